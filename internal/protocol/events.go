package protocol

import (
	"fmt"
	"math"
)

// Event is a decoded message. The set of implementations is closed: only
// the types in this file satisfy it.
type Event interface {
	Name() Name
	isEvent()
}

// GameStart opens a match. It carries no board data.
type GameStart struct{}

// GameUpdate carries a full board snapshot.
type GameUpdate struct {
	Tiles TileData
}

// NextTurn hands the turn to PlayerID. PanX and PanY are a view hint in
// [-0.5, 0.5] with no gameplay effect.
type NextTurn struct {
	PlayerID string
	PanX     float64
	PanY     float64
}

// TilePlace reveals the result of a placement to the acting player only.
// A covered placement on an occupied tile carries Symbol None.
type TilePlace struct {
	X       int
	Y       int
	Symbol  Symbol
	Covered bool
}

// GameEnd closes a match. WinningLine is nil on a draw.
type GameEnd struct {
	WinningLine []Coord
}

// PlaceRequest asks the authoritative side to place for the sender.
type PlaceRequest struct {
	X int
	Y int
}

func (GameStart) Name() Name    { return NameGameStart }
func (GameUpdate) Name() Name   { return NameGameUpdate }
func (NextTurn) Name() Name     { return NameNextTurn }
func (GameEnd) Name() Name      { return NameGameEnd }
func (PlaceRequest) Name() Name { return NamePlaceRequest }

func (e TilePlace) Name() Name {
	if e.Covered {
		return NameCoveredTilePlace
	}
	return NameUncoveredTilePlace
}

func (GameStart) isEvent()    {}
func (GameUpdate) isEvent()   {}
func (NextTurn) isEvent()     {}
func (TilePlace) isEvent()    {}
func (GameEnd) isEvent()      {}
func (PlaceRequest) isEvent() {}

// Draw reports whether the match ended without a winner.
func (e GameEnd) Draw() bool {
	return len(e.WinningLine) == 0
}

// Encode lays an event out as positional args.
func Encode(ev Event) Message {
	m := Message{Name: ev.Name(), Args: []any{}}

	switch e := ev.(type) {
	case GameStart:
	case GameUpdate:
		m.Args = []any{e.Tiles}
	case NextTurn:
		m.Args = []any{e.PlayerID, e.PanX, e.PanY}
	case TilePlace:
		m.Args = []any{e.X, e.Y, e.Symbol}
	case GameEnd:
		if e.WinningLine != nil {
			m.Args = []any{e.WinningLine}
		}
	case PlaceRequest:
		m.Args = []any{e.X, e.Y}
	}

	return m
}

type decoder func(Message) (Event, error)

var decoders = map[Name]decoder{
	NameGameStart:          decodeGameStart,
	NameGameUpdate:         decodeGameUpdate,
	NameNextTurn:           decodeNextTurn,
	NameUncoveredTilePlace: decodeTilePlace(false),
	NameCoveredTilePlace:   decodeTilePlace(true),
	NameGameEnd:            decodeGameEnd,
	NamePlaceRequest:       decodePlaceRequest,
}

// Decode turns a message into its typed event. Unknown names return
// ErrUnknownMessage; missing or mistyped args return ErrMalformed.
func Decode(m Message) (Event, error) {
	dec, ok := decoders[m.Name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownMessage, m.Name)
	}
	return dec(m)
}

func decodeGameStart(Message) (Event, error) {
	return GameStart{}, nil
}

func decodeGameUpdate(m Message) (Event, error) {
	var tiles TileData
	if err := decodeArg(m, 0, &tiles); err != nil {
		return nil, err
	}
	if err := validateTiles(tiles); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMalformed, m.Name, err)
	}
	return GameUpdate{Tiles: tiles}, nil
}

func decodeNextTurn(m Message) (Event, error) {
	var ev NextTurn
	if err := decodeArg(m, 0, &ev.PlayerID); err != nil {
		return nil, err
	}
	if err := decodeArg(m, 1, &ev.PanX); err != nil {
		return nil, err
	}
	if err := decodeArg(m, 2, &ev.PanY); err != nil {
		return nil, err
	}
	if ev.PlayerID == "" {
		return nil, fmt.Errorf("%w: %s: empty player id", ErrMalformed, m.Name)
	}
	if math.IsNaN(ev.PanX) || math.IsInf(ev.PanX, 0) || math.IsNaN(ev.PanY) || math.IsInf(ev.PanY, 0) {
		return nil, fmt.Errorf("%w: %s: pan offset is not finite", ErrMalformed, m.Name)
	}
	return ev, nil
}

func decodeTilePlace(covered bool) decoder {
	return func(m Message) (Event, error) {
		ev := TilePlace{Covered: covered}
		if err := decodeArg(m, 0, &ev.X); err != nil {
			return nil, err
		}
		if err := decodeArg(m, 1, &ev.Y); err != nil {
			return nil, err
		}
		if err := decodeArg(m, 2, &ev.Symbol); err != nil {
			return nil, err
		}
		if !covered && ev.Symbol == None {
			return nil, fmt.Errorf("%w: %s: missing symbol", ErrMalformed, m.Name)
		}
		return ev, nil
	}
}

func decodeGameEnd(m Message) (Event, error) {
	if len(m.Args) == 0 || m.Args[0] == nil {
		return GameEnd{}, nil
	}
	var line []Coord
	if err := decodeArg(m, 0, &line); err != nil {
		return nil, err
	}
	if len(line) == 0 {
		line = nil
	}
	return GameEnd{WinningLine: line}, nil
}

func decodePlaceRequest(m Message) (Event, error) {
	var ev PlaceRequest
	if err := decodeArg(m, 0, &ev.X); err != nil {
		return nil, err
	}
	if err := decodeArg(m, 1, &ev.Y); err != nil {
		return nil, err
	}
	return ev, nil
}

func validateTiles(t TileData) error {
	n := len(t.TileContents)
	if n == 0 {
		return fmt.Errorf("empty board")
	}
	if len(t.CoveredTiles) != n {
		return fmt.Errorf("cover mask has %d rows, board has %d", len(t.CoveredTiles), n)
	}
	for y := range n {
		if len(t.TileContents[y]) != n || len(t.CoveredTiles[y]) != n {
			return fmt.Errorf("row %d is not %d wide", y, n)
		}
	}
	return nil
}
