// Package session drives one match over a connection. On the
// authoritative side it owns the Game; on both sides it keeps the View the
// UI renders from.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/BioHazard786/Shroud/internal/connection"
	"github.com/BioHazard786/Shroud/internal/game"
	"github.com/BioHazard786/Shroud/internal/protocol"
)

var ErrPeerDisconnected = errors.New("peer disconnected")

// detachGrace is how long a session keeps reading after its peer leaves,
// so a game_end already in flight is still applied.
const detachGrace = 250 * time.Millisecond

// Conn is what a session needs from a connection.
type Conn interface {
	game.Conn
	Messages() <-chan connection.Inbound
	PeerEvents() <-chan connection.PeerEvent
}

type Option func(*Session)

// WithGameOptions sets the options used when this side builds the Game.
func WithGameOptions(o game.Options) Option {
	return func(s *Session) { s.gameOpts = o }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Session) { s.log = l }
}

type Session struct {
	conn     Conn
	role     game.Role
	gameOpts game.Options
	log      *slog.Logger

	id       string
	requests chan protocol.Coord

	// Owned by the Run goroutine.
	game *game.Game
	view *game.View

	mu       sync.Mutex
	observer func(game.View)
	peerID   string
	summary  Summary
}

func New(conn Conn, role game.Role, opts ...Option) *Session {
	s := &Session{
		conn:     conn,
		role:     role,
		log:      slog.Default(),
		id:       uuid.NewString(),
		requests: make(chan protocol.Coord, 8),
		view:     game.NewView(conn.SelfID()),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.With("component", "session", "match", s.id, "role", role.String())
	s.summary = Summary{MatchID: s.id, Role: role, SelfID: conn.SelfID()}
	return s
}

func (s *Session) ID() string {
	return s.id
}

// OnUpdate registers fn to receive a copy of the view after every applied
// event. fn runs on the Run goroutine and must not block.
func (s *Session) OnUpdate(fn func(game.View)) {
	s.mu.Lock()
	s.observer = fn
	s.mu.Unlock()
}

// Place asks to mark (x, y) for the local player. It is safe to call from
// any goroutine. Requests made out of turn are dropped.
func (s *Session) Place(x, y int) {
	select {
	case s.requests <- protocol.Coord{X: x, Y: y}:
	default:
		s.log.Debug("placement dropped, queue full", "x", x, "y", y)
	}
}

// Run plays the match until it ends, the peer leaves or ctx is done.
// It returns nil once game_end has been applied.
func (s *Session) Run(ctx context.Context) (err error) {
	s.setStarted(time.Now())
	defer func() { s.setFinished(time.Now(), err) }()

	if s.role == game.Authoritative {
		g, err := game.New(s.conn, s.gameOpts)
		if err != nil {
			return fmt.Errorf("start match: %w", err)
		}
		s.game = g
		players := g.Players()
		s.log.Info("match started", "first", players[0], "second", players[1])
	}

	var grace <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case <-grace:
			return ErrPeerDisconnected

		case ev := <-s.conn.PeerEvents():
			if ev.Kind == connection.Detached && grace == nil {
				s.log.Info("peer left", "peer", ev.PeerID)
				grace = time.After(detachGrace)
			}

		case in, ok := <-s.conn.Messages():
			if !ok {
				return ErrPeerDisconnected
			}
			done, err := s.handle(in)
			if err != nil {
				return err
			}
			if done {
				return nil
			}

		case c := <-s.requests:
			if grace != nil {
				continue
			}
			if err := s.place(s.conn.SelfID(), c); err != nil {
				return err
			}
		}
	}
}

func (s *Session) handle(in connection.Inbound) (bool, error) {
	ev, err := protocol.Decode(in.Message)
	if errors.Is(err, protocol.ErrUnknownMessage) {
		s.log.Debug("ignoring message", "from", in.From, "error", err)
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("message from %s: %w", in.From, err)
	}

	if req, ok := ev.(protocol.PlaceRequest); ok {
		return false, s.place(in.From, protocol.Coord{X: req.X, Y: req.Y})
	}

	protocol.Dispatch(ev, s.view)
	s.publish()

	if end, ok := ev.(protocol.GameEnd); ok {
		s.finish(end)
		return true, nil
	}
	return false, nil
}

// place handles a placement for player. The authoritative side applies it
// and ends the turn; the mirror side forwards its own requests.
func (s *Session) place(player string, c protocol.Coord) error {
	if s.game == nil {
		if player != s.conn.SelfID() || !s.view.MyTurn() {
			return nil
		}
		return s.conn.Send(s.conn.PeerID(), protocol.Encode(protocol.PlaceRequest{X: c.X, Y: c.Y}))
	}

	if s.game.Done() || player != s.game.CurrentPlayer() {
		s.log.Debug("placement out of turn", "player", player, "at", c)
		return nil
	}

	outcome, err := s.game.PlaceOnTile(c.X, c.Y)
	if err != nil {
		return err
	}
	s.log.Debug("placement", "player", player, "at", c, "outcome", outcome)
	if outcome == game.Ignored {
		return nil
	}
	return s.game.NextTurn()
}

func (s *Session) publish() {
	s.mu.Lock()
	fn := s.observer
	s.mu.Unlock()
	if fn != nil {
		fn(s.view.Clone())
	}
}
