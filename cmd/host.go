package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/BioHazard786/Shroud/internal/connection"
	"github.com/BioHazard786/Shroud/internal/game"
	"github.com/BioHazard786/Shroud/internal/ui"
)

var hostCmd = &cobra.Command{
	Use:     "host",
	Aliases: []string{"h"},
	Short:   "Wait for another player to join",
	Long: `Register with the broker and wait for a second player. The peer ID
is printed together with the join command and a QR code of it.

Examples:
  shroud host
  shroud host --relay
  shroud host --server ws://localhost:8080/ws`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return host(cmd.Context())
	},
}

func host(ctx context.Context) error {
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

	fmt.Println()
	ui.RenderJoinInfo(ui.JoinInfo{PeerID: cc.Conn.SelfID(), ShowQR: !flags.noQR})
	fmt.Println()

	peer, err := waitForPeer(ctx, cc.Conn)
	if err != nil {
		return err
	}
	ui.PrintSuccessf("%s joined", peer)

	return playMatch(ctx, cc, game.Mirror)
}

// waitForPeer blocks until a remote player opens a channel to us.
func waitForPeer(ctx context.Context, conn *connection.Connection) (string, error) {
	sp := ui.NewWaitingSpinner("Waiting for a player to join...")
	sp.Start()
	defer sp.Stop()

	for {
		select {
		case ev, ok := <-conn.PeerEvents():
			if !ok {
				return "", connection.ErrClosed
			}
			if ev.Kind == connection.Attached {
				return ev.PeerID, nil
			}
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
}

func init() {
	rootCmd.AddCommand(hostCmd)

	addClientFlags(hostCmd)
	hostCmd.Flags().BoolVar(&flags.noQR, "no-qr", false, "do not print the QR code")
}
