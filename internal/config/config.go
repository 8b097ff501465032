// Package config loads client and broker settings.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/ilyakaznacheev/cleanenv"

	"github.com/BioHazard786/Shroud/internal/connection"
	"github.com/BioHazard786/Shroud/internal/game"
)

// Default configuration values (production)
const (
	DefaultServer = "wss://shroud.qzz.io/ws"
	DefaultSTUN   = "stun:stun.l.google.com:19302"
)

var ErrInvalid = errors.New("invalid configuration")

// Config holds the settings for host and join.
type Config struct {
	// Server is the broker websocket URL.
	Server string `yaml:"server" env:"SHROUD_SERVER" env-default:"wss://shroud.qzz.io/ws"`

	// ICE servers for WebRTC
	STUNServer string `yaml:"stun" env:"STUN_SERVER" env-default:"stun:stun.l.google.com:19302"`
	TURNServer string `yaml:"turn" env:"TURN_SERVER"`
	TURNUser   string `yaml:"turn-user" env:"TURN_USERNAME"`
	TURNPass   string `yaml:"turn-pass" env:"TURN_PASSWORD"`
	ForceRelay bool   `yaml:"relay" env:"SHROUD_RELAY"`

	Game Game `yaml:"game"`

	Policy         string        `yaml:"policy" env:"SHROUD_POLICY" env-default:"replace"`
	ConnectTimeout time.Duration `yaml:"connect-timeout" env:"SHROUD_CONNECT_TIMEOUT" env-default:"30s"`
	LogLevel       string        `yaml:"log-level" env:"LOG_LEVEL" env-default:"error"`
}

// Game holds match settings. Only the joining side uses them.
type Game struct {
	BoardSize           int     `yaml:"board-size" env:"SHROUD_BOARD_SIZE" env-default:"5"`
	CoverProbability    float64 `yaml:"cover-probability" env:"SHROUD_COVER_PROBABILITY" env-default:"0.3"`
	CoverRamp           float64 `yaml:"cover-ramp" env:"SHROUD_COVER_RAMP" env-default:"0"`
	MaxCoverProbability float64 `yaml:"max-cover-probability" env:"SHROUD_MAX_COVER_PROBABILITY" env-default:"0.6"`
	Seed                uint64  `yaml:"seed" env:"SHROUD_SEED" env-default:"0"`
}

// Options carries command-line overrides. Zero values leave the loaded
// setting alone.
type Options struct {
	Path string

	Server     string
	STUNServer string
	TURNServer string
	TURNUser   string
	TURNPass   string
	ForceRelay bool

	BoardSize        int
	CoverProbability float64
	CoverRamp        float64
	Seed             uint64

	Policy         string
	ConnectTimeout time.Duration
	LogLevel       string
}

// Load reads configuration with the following priority:
//  1. CLI flags (passed via Options)
//  2. the YAML file at opts.Path, then environment variables
//  3. defaults
func Load(opts Options) (*Config, error) {
	cfg := &Config{}

	var err error
	if opts.Path != "" {
		err = cleanenv.ReadConfig(opts.Path, cfg)
	} else {
		err = cleanenv.ReadEnv(cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	opts.apply(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (o Options) apply(cfg *Config) {
	setString(&cfg.Server, o.Server)
	setString(&cfg.STUNServer, o.STUNServer)
	setString(&cfg.TURNServer, o.TURNServer)
	setString(&cfg.TURNUser, o.TURNUser)
	setString(&cfg.TURNPass, o.TURNPass)
	setString(&cfg.Policy, o.Policy)
	setString(&cfg.LogLevel, o.LogLevel)

	if o.ForceRelay {
		cfg.ForceRelay = true
	}
	if o.BoardSize != 0 {
		cfg.Game.BoardSize = o.BoardSize
	}
	if o.CoverProbability != 0 {
		cfg.Game.CoverProbability = o.CoverProbability
	}
	if o.CoverRamp != 0 {
		cfg.Game.CoverRamp = o.CoverRamp
	}
	if o.Seed != 0 {
		cfg.Game.Seed = o.Seed
	}
	if o.ConnectTimeout != 0 {
		cfg.ConnectTimeout = o.ConnectTimeout
	}
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

// Validate checks settings that would otherwise fail late.
func (c *Config) Validate() error {
	u, err := url.Parse(c.Server)
	if err != nil || (u.Scheme != "ws" && u.Scheme != "wss") || u.Host == "" {
		return fmt.Errorf("%w: server must be a ws:// or wss:// URL, got %q", ErrInvalid, c.Server)
	}
	if _, err := connection.ParsePolicy(c.Policy); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	if c.ConnectTimeout <= 0 {
		return fmt.Errorf("%w: connect timeout must be positive", ErrInvalid)
	}
	if c.ForceRelay && c.TURNServer == "" {
		return fmt.Errorf("%w: cannot force relay mode without a TURN server", ErrInvalid)
	}
	if _, err := c.GameOptions(); err != nil {
		return err
	}
	return nil
}

// GameOptions converts the game section for game.New.
func (c *Config) GameOptions() (game.Options, error) {
	g := c.Game
	if g.CoverProbability < 0 || g.CoverProbability > 1 || g.MaxCoverProbability < 0 || g.MaxCoverProbability > 1 {
		return game.Options{}, fmt.Errorf("%w: cover probabilities must be within [0, 1]", ErrInvalid)
	}
	if g.BoardSize < game.DefaultLineLength {
		return game.Options{}, fmt.Errorf("%w: board size must be at least %d", ErrInvalid, game.DefaultLineLength)
	}
	return game.Options{
		BoardSize:           g.BoardSize,
		CoverProbability:    g.CoverProbability,
		CoverRamp:           g.CoverRamp,
		MaxCoverProbability: g.MaxCoverProbability,
		Rand:                game.NewRand(g.Seed),
	}, nil
}

// ChannelPolicy is the parsed Policy.
func (c *Config) ChannelPolicy() connection.Policy {
	p, _ := connection.ParsePolicy(c.Policy)
	return p
}

// GetSTUNServers returns STUN server URLs as strings
func (c *Config) GetSTUNServers() []string {
	if c.STUNServer == "" {
		return nil
	}
	return []string{c.STUNServer}
}

// GetTURNServers returns TURN server URLs if configured
func (c *Config) GetTURNServers() []string {
	if c.TURNServer == "" {
		return nil
	}
	return []string{
		fmt.Sprintf("turn:%s:3478?transport=udp", c.TURNServer),
		fmt.Sprintf("turn:%s:3478?transport=tcp", c.TURNServer),
		fmt.Sprintf("turns:%s:5349?transport=tcp", c.TURNServer),
	}
}

// GetTURNCredentials returns TURN username and password
func (c *Config) GetTURNCredentials() (string, string) {
	return c.TURNUser, c.TURNPass
}
