package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/BioHazard786/Shroud/internal/broker"
	"github.com/BioHazard786/Shroud/internal/config"
	"github.com/BioHazard786/Shroud/internal/logging"
	"github.com/BioHazard786/Shroud/internal/version"
)

func newBrokerCmd(cfg *config.BrokerConfig) *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix("SHROUD_BROKER")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	cmd := &cobra.Command{
		Use:   "broker",
		Short: "Run the signaling broker that introduces players",
		Long: `Run the websocket broker players register with. It hands out peer IDs
and relays connection offers between players; game traffic never passes
through it. With --redis, peer IDs are reserved in Redis so several
brokers can share one namespace.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.Validate(); err != nil {
				return err
			}
			logging.Init(cfg.LogLevel, cfg.LogFormat)
			return runBroker(cmd.Context(), cfg)
		},
	}

	fs := cmd.Flags()

	fs.SetNormalizeFunc(func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})

	fs.StringVarP(&cfg.Bind, "bind", "b", "0.0.0.0", "address to bind to (env: SHROUD_BROKER_BIND)")
	fs.IntVarP(&cfg.Port, "port", "p", 8080, "port to listen on (env: SHROUD_BROKER_PORT)")
	fs.StringVar(&cfg.RedisAddr, "redis", "", "redis address for shared peer ids, e.g. localhost:6379 (env: SHROUD_BROKER_REDIS)")
	fs.DurationVar(&cfg.PeerTTL, "peer-ttl", 5*time.Minute, "lifetime of a peer id reservation in redis (env: SHROUD_BROKER_PEER_TTL)")
	fs.StringVar(&cfg.LogLevel, "log-level", "info", "debug, info, warn or error (env: SHROUD_BROKER_LOG_LEVEL)")
	fs.StringVar(&cfg.LogFormat, "log-format", "json", "text or json (env: SHROUD_BROKER_LOG_FORMAT)")
	fs.BoolVar(&cfg.Profile, "profile", false, "register net/http/pprof handlers (env: SHROUD_BROKER_PROFILE)")

	fs.VisitAll(func(f *pflag.Flag) {
		_ = v.BindPFlag(f.Name, f)
		_ = v.BindEnv(f.Name)
		if !f.Changed && v.IsSet(f.Name) {
			_ = fs.Set(f.Name, fmt.Sprintf("%v", v.Get(f.Name)))
		}
	})

	return cmd
}

func runBroker(ctx context.Context, cfg *config.BrokerConfig) error {
	log := slog.Default()

	var registry broker.Registry = broker.NewMemoryRegistry()
	if cfg.RedisAddr != "" {
		client, err := broker.DialRedis(ctx, cfg.RedisAddr)
		if err != nil {
			return err
		}
		defer client.Close()
		registry = broker.NewRedisRegistry(client, cfg.PeerTTL)
		log.Info("using redis registry", "addr", cfg.RedisAddr, "ttl", cfg.PeerTTL)
	}

	return broker.Serve(ctx, registry, broker.ServerOptions{
		Bind:    cfg.Bind,
		Port:    cfg.Port,
		Version: version.Version,
		Profile: cfg.Profile,
	}, log)
}

func init() {
	rootCmd.AddCommand(newBrokerCmd(&config.BrokerConfig{}))
}
