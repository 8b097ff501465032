package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/BioHazard786/Shroud/internal/config"
	"github.com/BioHazard786/Shroud/internal/connection"
	"github.com/BioHazard786/Shroud/internal/game"
	"github.com/BioHazard786/Shroud/internal/session"
	"github.com/BioHazard786/Shroud/internal/ui"
	"github.com/BioHazard786/Shroud/internal/webrtc"
)

// ConnectionContext bundles what host and join share once connected to
// the broker.
type ConnectionContext struct {
	Config    *config.Config
	Transport *webrtc.Transport
	Conn      *connection.Connection
}

// NewConnectionContext registers with the broker and returns once the
// self identity is known.
func NewConnectionContext(ctx context.Context, cfg *config.Config) (*ConnectionContext, error) {
	t := webrtc.NewTransport(cfg, webrtc.WithLogger(slog.Default()))
	conn := connection.New(t,
		connection.WithPolicy(cfg.ChannelPolicy()),
		connection.WithLogger(slog.Default()),
	)

	openCtx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
	defer cancel()
	if err := conn.Open(openCtx); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("connect to broker: %w", err)
	}

	return &ConnectionContext{Config: cfg, Transport: t, Conn: conn}, nil
}

func (c *ConnectionContext) Close() {
	if c.Conn != nil {
		_ = c.Conn.Close()
	}
}

func LoadConfig(opts config.Options) (*config.Config, error) {
	cfg, err := config.Load(opts)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	initLogging(cfg)
	return cfg, nil
}

// playMatch runs the session under the board UI and prints the summary.
// Quitting from the board is not an error.
func playMatch(ctx context.Context, cc *ConnectionContext, role game.Role) error {
	gameOpts, err := cc.Config.GameOptions()
	if err != nil {
		return err
	}

	s := session.New(cc.Conn, role,
		session.WithGameOptions(gameOpts),
		session.WithLogger(slog.Default()),
	)

	board := ui.NewGameUI(cc.Conn.PeerID(), s.Place)
	s.OnUpdate(board.Update)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	board.Start()
	done := make(chan error, 1)
	go func() {
		err := s.Run(ctx)
		board.End(err)
		done <- err
	}()

	quit, uiErr := board.Wait()
	cancel()
	runErr := <-done

	ui.RenderSummary(s.Summary())

	switch {
	case uiErr != nil:
		return uiErr
	case quit && errors.Is(runErr, context.Canceled):
		ui.PrintWarning("Match abandoned")
		return nil
	case errors.Is(runErr, session.ErrPeerDisconnected):
		return fmt.Errorf("%s left the match", cc.Conn.PeerID())
	}
	return runErr
}
