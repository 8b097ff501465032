package game

import "github.com/BioHazard786/Shroud/internal/protocol"

// View is a participant's picture of the match, rebuilt only from the
// messages it receives. Both roles keep one; on the mirror side it is the
// only state there is.
type View struct {
	SelfID string

	Started       bool
	Done          bool
	Tiles         protocol.TileData
	CurrentPlayer string
	FirstPlayer   string
	PanX, PanY    float64
	Turn          int

	// Reveal is the last placement result sent to this participant. It
	// stays until the next one so it can be shown after the turn passes.
	Reveal *protocol.TilePlace

	WinningLine []protocol.Coord
}

func NewView(selfID string) *View {
	return &View{SelfID: selfID}
}

var _ protocol.Handler = (*View)(nil)

func (v *View) OnGameStart(protocol.GameStart) {
	*v = View{SelfID: v.SelfID, Started: true}
}

func (v *View) OnGameUpdate(e protocol.GameUpdate) {
	v.Tiles = e.Tiles
}

func (v *View) OnNextTurn(e protocol.NextTurn) {
	if v.FirstPlayer == "" {
		v.FirstPlayer = e.PlayerID
	} else {
		v.Turn++
	}
	v.CurrentPlayer = e.PlayerID
	v.PanX, v.PanY = e.PanX, e.PanY
}

func (v *View) OnTilePlace(e protocol.TilePlace) {
	v.Reveal = &e
	if e.Symbol != protocol.None && v.Tiles.InBounds(e.X, e.Y) {
		v.Tiles.TileContents[e.Y][e.X] = e.Symbol
	}
}

// OnGameEnd marks the match finished. The winning move is never followed
// by a board update, so the line is filled in with the mover's mark here.
func (v *View) OnGameEnd(e protocol.GameEnd) {
	v.Done = true
	v.WinningLine = e.WinningLine

	sym := v.SymbolOf(v.CurrentPlayer)
	for _, c := range e.WinningLine {
		if v.Tiles.InBounds(c.X, c.Y) {
			v.Tiles.TileContents[c.Y][c.X] = sym
		}
	}
}

// OnPlaceRequest is handled by the session driver, not the view.
func (v *View) OnPlaceRequest(protocol.PlaceRequest) {}

// MyTurn reports whether this participant may place now.
func (v *View) MyTurn() bool {
	return v.Started && !v.Done && v.CurrentPlayer == v.SelfID
}

// SymbolOf returns the mark played by id. The first player to move is X.
func (v *View) SymbolOf(id string) protocol.Symbol {
	switch {
	case v.FirstPlayer == "":
		return protocol.None
	case id == v.FirstPlayer:
		return protocol.X
	default:
		return protocol.O
	}
}

// Winner returns the identity that completed the winning line, "" on a
// draw or while the match is running.
func (v *View) Winner() string {
	if !v.Done || len(v.WinningLine) == 0 {
		return ""
	}
	return v.CurrentPlayer
}

// Clone returns a deep copy safe to hand to another goroutine.
func (v *View) Clone() View {
	out := *v
	out.Tiles = v.Tiles.Clone()
	out.WinningLine = append([]protocol.Coord(nil), v.WinningLine...)
	if v.Reveal != nil {
		r := *v.Reveal
		out.Reveal = &r
	}
	return out
}
