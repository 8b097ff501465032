// Package game holds the turn-based board state machine. The authoritative
// side owns a Game and mutates it; both sides rebuild a View from the
// messages the Game broadcasts.
package game

import (
	"errors"
	"log/slog"
	"math/rand/v2"

	"github.com/BioHazard786/Shroud/internal/protocol"
)

var ErrNoPeer = errors.New("a match needs a connected peer")

// Conn is the part of a connection a Game talks through.
type Conn interface {
	SelfID() string
	PeerID() string
	Send(target string, m protocol.Message) error
	Broadcast(m protocol.Message) error
}

// Outcome describes what a placement attempt did.
type Outcome int

const (
	// Ignored means nothing happened: out of bounds, a visible occupied
	// tile, or a finished match.
	Ignored Outcome = iota
	// Placed means the tile was empty and now holds the player's mark.
	Placed
	// Peeked means the tile was covered and already occupied.
	Peeked
)

func (o Outcome) String() string {
	switch o {
	case Placed:
		return "placed"
	case Peeked:
		return "peeked"
	}
	return "ignored"
}

// Game is the canonical match state. It is not safe for concurrent use;
// a single driver goroutine owns it.
type Game struct {
	conn Conn
	opts Options
	rng  *rand.Rand
	log  *slog.Logger

	players [2]string
	current int
	turn    int
	tiles   protocol.TileData
	last    *protocol.Coord
	done    bool
	line    []protocol.Coord
}

// New starts a match between conn's self and its peer. Player order is a
// coin flip. It broadcasts game_start, game_update and next_turn in that
// order.
func New(conn Conn, opts Options) (*Game, error) {
	opts = opts.withDefaults()
	if err := opts.validate(); err != nil {
		return nil, err
	}

	self, peer := conn.SelfID(), conn.PeerID()
	if peer == "" {
		return nil, ErrNoPeer
	}

	g := &Game{
		conn: conn,
		opts: opts,
		rng:  opts.Rand,
		log:  slog.Default().With("component", "game"),
	}

	if g.rng.IntN(2) == 0 {
		g.players = [2]string{self, peer}
	} else {
		g.players = [2]string{peer, self}
	}

	g.tiles = protocol.TileData{
		TileContents: emptyBoard(opts.BoardSize),
		CoveredTiles: g.coverMask(),
	}

	g.log.Debug("match created", "players", g.players, "size", opts.BoardSize)

	if err := g.broadcast(protocol.GameStart{}); err != nil {
		return nil, err
	}
	if err := g.broadcastTurn(); err != nil {
		return nil, err
	}
	return g, nil
}

// CurrentPlayer is the identity whose turn it is.
func (g *Game) CurrentPlayer() string {
	return g.players[g.current]
}

// CurrentSymbol is the mark of the current player.
func (g *Game) CurrentSymbol() protocol.Symbol {
	return protocol.Symbols[g.current]
}

func (g *Game) Players() [2]string {
	return g.players
}

// Turn counts completed turns.
func (g *Game) Turn() int {
	return g.turn
}

func (g *Game) Done() bool {
	return g.done
}

// WinningLine is the line that ended the match, nil on a draw or while
// the match is running.
func (g *Game) WinningLine() []protocol.Coord {
	return append([]protocol.Coord(nil), g.line...)
}

// Tiles returns a snapshot of the board.
func (g *Game) Tiles() protocol.TileData {
	return g.tiles.Clone()
}

// PlaceOnTile tries to mark (x, y) for the current player and tells that
// player, and only that player, what happened. It never ends the turn;
// call NextTurn for that.
func (g *Game) PlaceOnTile(x, y int) (Outcome, error) {
	if g.done || !g.tiles.InBounds(x, y) {
		return Ignored, nil
	}

	player := g.CurrentPlayer()
	sym := g.CurrentSymbol()
	covered := g.tiles.CoveredTiles[y][x]

	if g.tiles.TileContents[y][x] == protocol.None {
		g.tiles.TileContents[y][x] = sym
		g.last = &protocol.Coord{X: x, Y: y}
		g.log.Debug("tile placed", "player", player, "x", x, "y", y, "covered", covered)

		ev := protocol.TilePlace{X: x, Y: y, Symbol: sym, Covered: covered}
		return Placed, g.conn.Send(player, protocol.Encode(ev))
	}

	if covered {
		g.log.Debug("covered tile peeked", "player", player, "x", x, "y", y)
		ev := protocol.TilePlace{X: x, Y: y, Covered: true}
		return Peeked, g.conn.Send(player, protocol.Encode(ev))
	}

	return Ignored, nil
}

// NextTurn ends the current turn. A win or a full board ends the match;
// otherwise the other player moves next on a freshly covered board.
func (g *Game) NextTurn() error {
	if g.done {
		return nil
	}

	if g.last != nil {
		at := *g.last
		g.last = nil

		if line := WinningLine(g.tiles.TileContents, at, g.opts.LineLength); line != nil {
			g.done = true
			g.line = line
			g.log.Debug("match won", "player", g.CurrentPlayer(), "line", line)
			return g.broadcast(protocol.GameEnd{WinningLine: line})
		}
	}

	if IsFull(g.tiles.TileContents) {
		g.done = true
		g.log.Debug("match drawn")
		return g.broadcast(protocol.GameEnd{})
	}

	g.turn++
	g.current = (g.current + 1) % 2
	g.tiles.CoveredTiles = g.coverMask()

	return g.broadcastTurn()
}

func (g *Game) broadcastTurn() error {
	if err := g.broadcast(protocol.GameUpdate{Tiles: g.tiles.Clone()}); err != nil {
		return err
	}
	panX, panY := g.panOffset()
	return g.broadcast(protocol.NextTurn{PlayerID: g.CurrentPlayer(), PanX: panX, PanY: panY})
}

func (g *Game) broadcast(ev protocol.Event) error {
	return g.conn.Broadcast(protocol.Encode(ev))
}

func (g *Game) coverMask() [][]bool {
	n := g.opts.BoardSize
	p := g.opts.coverProbability(g.turn)

	mask := make([][]bool, n)
	for y := range mask {
		mask[y] = make([]bool, n)
		for x := range mask[y] {
			mask[y][x] = g.rng.Float64() < p
		}
	}
	return mask
}

// panOffset returns two values in [-0.5, 0.5].
func (g *Game) panOffset() (float64, float64) {
	return g.rng.Float64() - 0.5, g.rng.Float64() - 0.5
}
