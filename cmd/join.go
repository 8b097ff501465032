package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/BioHazard786/Shroud/internal/broker"
	"github.com/BioHazard786/Shroud/internal/game"
	"github.com/BioHazard786/Shroud/internal/ui"
)

var joinCmd = &cobra.Command{
	Use:     "join <peer-id>",
	Aliases: []string{"j"},
	Short:   "Join a waiting player",
	Long: `Connect to a player waiting in "shroud host". The joining side runs
the match, so the game settings below apply here.

Examples:
  shroud join calm-otter-lamp
  shroud join calm-otter-lamp --board-size 4 --cover-ramp 0.05
  shroud join calm-otter-lamp --relay`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if !broker.ValidPeerID(args[0]) {
			return fmt.Errorf("invalid peer id %q", args[0])
		}
		return join(cmd.Context(), args[0])
	},
}

func join(ctx context.Context, peerID string) error {
	cfg, err := loadClientConfig()
	if err != nil {
		return err
	}

	stopSpinner := ui.RunConnectionSpinner("Connecting to broker...")
	cc, err := NewConnectionContext(ctx, cfg)
	stopSpinner()
	if err != nil {
		return err
	}
	defer cc.Close()

	stopSpinner = ui.RunConnectionSpinner(fmt.Sprintf("Connecting to %s...", peerID))
	connectCtx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
	err = cc.Conn.Connect(connectCtx, peerID)
	cancel()
	stopSpinner()
	if err != nil {
		return err
	}
	ui.PrintSuccessf("Connected to %s", peerID)

	return playMatch(ctx, cc, game.Authoritative)
}

func init() {
	rootCmd.AddCommand(joinCmd)

	addClientFlags(joinCmd)
	fs := joinCmd.Flags()
	fs.IntVar(&flags.boardSize, "board-size", 0, "board edge length (env: SHROUD_BOARD_SIZE)")
	fs.Float64Var(&flags.coverProb, "cover-probability", 0, "chance a tile is covered each turn (env: SHROUD_COVER_PROBABILITY)")
	fs.Float64Var(&flags.coverRamp, "cover-ramp", 0, "cover probability added per turn (env: SHROUD_COVER_RAMP)")
	fs.Uint64Var(&flags.seed, "seed", 0, "random seed, 0 picks one (env: SHROUD_SEED)")
}
