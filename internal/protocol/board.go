package protocol

import (
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

// Symbol is the content of a single tile.
type Symbol string

const (
	None Symbol = ""
	X    Symbol = "X"
	O    Symbol = "O"
)

// Symbols maps a player index to its mark.
var Symbols = [2]Symbol{X, O}

// EncodeMsgpack writes an empty tile as nil so both ends agree on "no mark".
func (s Symbol) EncodeMsgpack(enc *msgpack.Encoder) error {
	if s == None {
		return enc.EncodeNil()
	}
	return enc.EncodeString(string(s))
}

func (s *Symbol) DecodeMsgpack(dec *msgpack.Decoder) error {
	v, err := dec.DecodeString()
	if err != nil {
		return err
	}
	sym := Symbol(v)
	if !sym.Valid() {
		return fmt.Errorf("unknown symbol %q", v)
	}
	*s = sym
	return nil
}

// Valid reports whether s is one of the known marks or None.
func (s Symbol) Valid() bool {
	return s == None || s == X || s == O
}

func (s Symbol) String() string {
	if s == None {
		return "-"
	}
	return string(s)
}

// Coord addresses a tile by column (X) and row (Y).
type Coord struct {
	X int `msgpack:"x"`
	Y int `msgpack:"y"`
}

func (c Coord) String() string {
	return fmt.Sprintf("(%d,%d)", c.X, c.Y)
}

// TileData is a full board snapshot. Rows are indexed by Y, columns by X.
type TileData struct {
	TileContents [][]Symbol `msgpack:"tileContents"`
	CoveredTiles [][]bool   `msgpack:"coveredTiles"`
}

// Size returns the board edge length.
func (t TileData) Size() int {
	return len(t.TileContents)
}

// InBounds reports whether (x, y) lies on the board.
func (t TileData) InBounds(x, y int) bool {
	n := t.Size()
	return x >= 0 && x < n && y >= 0 && y < n
}

// Clone returns a deep copy that shares no slices with t.
func (t TileData) Clone() TileData {
	out := TileData{
		TileContents: make([][]Symbol, len(t.TileContents)),
		CoveredTiles: make([][]bool, len(t.CoveredTiles)),
	}
	for i, row := range t.TileContents {
		out.TileContents[i] = append([]Symbol(nil), row...)
	}
	for i, row := range t.CoveredTiles {
		out.CoveredTiles[i] = append([]bool(nil), row...)
	}
	return out
}
