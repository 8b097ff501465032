package game

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/BioHazard786/Shroud/internal/protocol"
)

// board builds tiles from rows like "X.O", where '.' is an empty tile.
func board(rows ...string) [][]protocol.Symbol {
	tiles := emptyBoard(len(rows))
	for y, row := range rows {
		for x, r := range row {
			switch r {
			case 'X':
				tiles[y][x] = protocol.X
			case 'O':
				tiles[y][x] = protocol.O
			}
		}
	}
	return tiles
}

func coords(pairs ...int) []protocol.Coord {
	out := make([]protocol.Coord, 0, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		out = append(out, protocol.Coord{X: pairs[i], Y: pairs[i+1]})
	}
	return out
}

func TestWinningLine(t *testing.T) {
	tests := []struct {
		name  string
		tiles [][]protocol.Symbol
		at    protocol.Coord
		want  []protocol.Coord
	}{
		{
			name:  "vertical",
			tiles: board("X..", "XO.", "X.O"),
			at:    protocol.Coord{X: 0, Y: 2},
			want:  coords(0, 0, 0, 1, 0, 2),
		},
		{
			name:  "horizontal",
			tiles: board(".....", ".....", ".XXX.", ".....", "....."),
			at:    protocol.Coord{X: 3, Y: 2},
			want:  coords(1, 2, 2, 2, 3, 2),
		},
		{
			name:  "diagonal",
			tiles: board("O....", ".O...", "..O..", ".....", "....."),
			at:    protocol.Coord{X: 1, Y: 1},
			want:  coords(0, 0, 1, 1, 2, 2),
		},
		{
			name:  "anti-diagonal",
			tiles: board("..X", ".X.", "X.."),
			at:    protocol.Coord{X: 1, Y: 1},
			want:  coords(2, 0, 1, 1, 0, 2),
		},
		{
			name:  "longer run reports the first k cells of the window",
			tiles: board("XXXX.", ".....", ".....", ".....", "....."),
			at:    protocol.Coord{X: 3, Y: 0},
			want:  coords(1, 0, 2, 0, 3, 0),
		},
		{
			name:  "gap is not a line",
			tiles: board("XX.X.", ".....", ".....", ".....", "....."),
			at:    protocol.Coord{X: 3, Y: 0},
		},
		{
			name:  "opponent mark breaks the run",
			tiles: board("XXOX.", ".....", ".....", ".....", "....."),
			at:    protocol.Coord{X: 1, Y: 0},
		},
		{
			name:  "edge walk does not wrap",
			tiles: board("...XX", "X....", ".....", ".....", "....."),
			at:    protocol.Coord{X: 4, Y: 0},
		},
		{
			name:  "empty tile",
			tiles: board("...", "...", "..."),
			at:    protocol.Coord{X: 1, Y: 1},
		},
		{
			name:  "out of bounds",
			tiles: board("XXX", "...", "..."),
			at:    protocol.Coord{X: 3, Y: 0},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := WinningLine(tt.tiles, tt.at, 3)

			assert.Equal(t, tt.want, got)
		})
	}
}

func TestIsFull(t *testing.T) {
	assert.True(t, IsFull(board("XOX", "XOO", "OXX")))
	assert.False(t, IsFull(board("XOX", "XOO", "OX.")))
	assert.False(t, IsFull(emptyBoard(3)))
}
