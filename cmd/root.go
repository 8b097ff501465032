package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/BioHazard786/Shroud/internal/config"
	"github.com/BioHazard786/Shroud/internal/logging"
	"github.com/BioHazard786/Shroud/internal/ui"
	"github.com/BioHazard786/Shroud/internal/version"
)

// Flags shared by host and join. Zero values leave the config file and
// environment alone.
var flags struct {
	config     string
	server     string
	stun       string
	turn       string
	turnUser   string
	turnPass   string
	relay      bool
	policy     string
	logLevel   string
	boardSize  int
	coverProb  float64
	coverRamp  float64
	seed       uint64
	timeout    time.Duration
	noQR       bool
}

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "shroud",
	Short: "Hidden-tile tic-tac-toe for two players over a peer-to-peer connection",
	Long: `Shroud is a two-player tic-tac-toe variant played directly between two
terminals over WebRTC. Each turn a random set of tiles is covered: a covered
tile hides its mark from the opponent, and placing on one shows you what was
underneath. A small signaling broker introduces the players; the match itself
never touches a server.`,
	Version: version.Version,
}

func loadClientConfig() (*config.Config, error) {
	return LoadConfig(config.Options{
		Path:             flags.config,
		Server:           flags.server,
		STUNServer:       flags.stun,
		TURNServer:       flags.turn,
		TURNUser:         flags.turnUser,
		TURNPass:         flags.turnPass,
		ForceRelay:       flags.relay,
		BoardSize:        flags.boardSize,
		CoverProbability: flags.coverProb,
		CoverRamp:        flags.coverRamp,
		Seed:             flags.seed,
		Policy:           flags.policy,
		ConnectTimeout:   flags.timeout,
		LogLevel:         flags.logLevel,
	})
}

func addClientFlags(cmd *cobra.Command) {
	fs := cmd.Flags()
	fs.StringVarP(&flags.config, "config", "c", "", "YAML config file")
	fs.StringVar(&flags.server, "server", "", "broker websocket URL (env: SHROUD_SERVER)")
	fs.StringVarP(&flags.stun, "stun", "s", "", "custom STUN server (env: STUN_SERVER)")
	fs.StringVarP(&flags.turn, "turn", "t", "", "custom TURN server (env: TURN_SERVER)")
	fs.StringVarP(&flags.turnUser, "turn-user", "u", "", "TURN username (env: TURN_USERNAME)")
	fs.StringVarP(&flags.turnPass, "turn-pass", "p", "", "TURN password (env: TURN_PASSWORD)")
	fs.BoolVarP(&flags.relay, "relay", "r", false, "force relay mode (env: SHROUD_RELAY)")
	fs.StringVar(&flags.policy, "policy", "", "what to do with a second peer: replace or reject (env: SHROUD_POLICY)")
	fs.DurationVar(&flags.timeout, "connect-timeout", 0, "give up connecting after this long (env: SHROUD_CONNECT_TIMEOUT)")
	fs.StringVar(&flags.logLevel, "log-level", "", "debug, info, warn or error (env: LOG_LEVEL)")
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rootCmd.SilenceErrors = true
	rootCmd.SilenceUsage = true
	rootCmd.CompletionOptions.HiddenDefaultCmd = true
	rootCmd.SetVersionTemplate("shroud {{.Version}}\n")

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		ui.PrintError(err.Error())
		stop()
		os.Exit(1)
	}
}

func initLogging(cfg *config.Config) {
	logging.Init(cfg.LogLevel, "text")
}
