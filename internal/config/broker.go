package config

import (
	"fmt"
	"time"
)

// MinPeerTTL leaves room for the broker's periodic reservation refresh.
const MinPeerTTL = time.Minute

// BrokerConfig holds the settings of the broker subcommand. It is filled
// from flags and SHROUD_BROKER_* variables through viper.
type BrokerConfig struct {
	Bind      string
	Port      int
	RedisAddr string
	PeerTTL   time.Duration
	LogLevel  string
	LogFormat string
	Profile   bool
}

func (c *BrokerConfig) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("%w: port must be between 1-65535 inclusive, got %d", ErrInvalid, c.Port)
	}
	if c.RedisAddr != "" && c.PeerTTL < MinPeerTTL {
		return fmt.Errorf("%w: peer ttl must be at least %s with redis, got %s", ErrInvalid, MinPeerTTL, c.PeerTTL)
	}
	if c.LogFormat != "text" && c.LogFormat != "json" {
		return fmt.Errorf("%w: log format must be text or json, got %q", ErrInvalid, c.LogFormat)
	}
	return nil
}
