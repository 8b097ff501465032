package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BioHazard786/Shroud/internal/protocol"
)

// replay feeds everything the game sent to who into a fresh view.
func replay(t *testing.T, who string, log []sent, v *View) {
	t.Helper()
	for _, s := range log {
		if s.broadcast || s.target == who {
			protocol.Dispatch(s.ev, v)
		}
	}
}

func TestView(t *testing.T) {
	t.Run("follows the authoritative board", func(t *testing.T) {
		// Given: a short match played out on the authoritative side
		g, conn := newTestGame(t, 3, 21)
		var log []sent
		for _, c := range coords(0, 0, 1, 0, 0, 1, 1, 1) {
			_, err := g.PlaceOnTile(c.X, c.Y)
			require.NoError(t, err)
			require.NoError(t, g.NextTurn())
		}
		log = conn.take()

		// When: both participants apply what they were sent
		joiner, host := NewView("joiner"), NewView("host")
		replay(t, "joiner", log, joiner)
		replay(t, "host", log, host)

		// Then: each view matches the canonical board
		for _, v := range []*View{joiner, host} {
			assert.True(t, v.Started)
			assert.False(t, v.Done)
			assert.Equal(t, g.Tiles(), v.Tiles)
			assert.Equal(t, g.CurrentPlayer(), v.CurrentPlayer)
			assert.Equal(t, g.Turn(), v.Turn)
			assert.Equal(t, g.Players()[0], v.FirstPlayer)
		}
		assert.NotEqual(t, joiner.MyTurn(), host.MyTurn())
	})

	t.Run("symbols follow move order", func(t *testing.T) {
		v := NewView("a")
		assert.Equal(t, protocol.None, v.SymbolOf("a"))

		v.OnGameStart(protocol.GameStart{})
		v.OnNextTurn(protocol.NextTurn{PlayerID: "b"})

		assert.Equal(t, protocol.X, v.SymbolOf("b"))
		assert.Equal(t, protocol.O, v.SymbolOf("a"))
		assert.False(t, v.MyTurn())
	})

	t.Run("reveal outlives the turn", func(t *testing.T) {
		v := NewView("a")
		v.OnGameStart(protocol.GameStart{})
		v.OnGameUpdate(protocol.GameUpdate{Tiles: protocol.TileData{
			TileContents: emptyBoard(3),
			CoveredTiles: [][]bool{{false, false, false}, {false, true, false}, {false, false, false}},
		}})
		v.OnNextTurn(protocol.NextTurn{PlayerID: "a"})

		v.OnTilePlace(protocol.TilePlace{X: 1, Y: 1, Symbol: protocol.X, Covered: true})
		require.NotNil(t, v.Reveal)
		assert.Equal(t, protocol.X, v.Tiles.TileContents[1][1])

		v.OnNextTurn(protocol.NextTurn{PlayerID: "b"})
		require.NotNil(t, v.Reveal)
		assert.Equal(t, protocol.Coord{X: 1, Y: 1}, protocol.Coord{X: v.Reveal.X, Y: v.Reveal.Y})
		assert.Equal(t, 1, v.Turn)

		v.OnGameStart(protocol.GameStart{})
		assert.Nil(t, v.Reveal)
	})

	t.Run("peek leaves the board alone", func(t *testing.T) {
		v := NewView("a")
		v.OnGameUpdate(protocol.GameUpdate{Tiles: protocol.TileData{
			TileContents: board("...", "...", "..O"),
			CoveredTiles: [][]bool{{false, false, false}, {false, false, false}, {false, false, true}},
		}})

		v.OnTilePlace(protocol.TilePlace{X: 2, Y: 2, Covered: true})

		assert.Equal(t, protocol.O, v.Tiles.TileContents[2][2])
		require.NotNil(t, v.Reveal)
		assert.Equal(t, protocol.None, v.Reveal.Symbol)
	})

	t.Run("game end fills in the winning move", func(t *testing.T) {
		v := NewView("b")
		v.OnGameStart(protocol.GameStart{})
		v.OnGameUpdate(protocol.GameUpdate{Tiles: protocol.TileData{
			TileContents: board("X..", "X..", "..."),
			CoveredTiles: [][]bool{{false, false, false}, {false, false, false}, {false, false, false}},
		}})
		v.OnNextTurn(protocol.NextTurn{PlayerID: "a"})

		v.OnGameEnd(protocol.GameEnd{WinningLine: coords(0, 0, 0, 1, 0, 2)})

		assert.True(t, v.Done)
		assert.Equal(t, "a", v.Winner())
		assert.Equal(t, protocol.X, v.Tiles.TileContents[2][0])
		assert.False(t, v.MyTurn())
	})

	t.Run("draw has no winner", func(t *testing.T) {
		v := NewView("a")
		v.OnGameStart(protocol.GameStart{})
		v.OnNextTurn(protocol.NextTurn{PlayerID: "a"})

		v.OnGameEnd(protocol.GameEnd{})

		assert.True(t, v.Done)
		assert.Empty(t, v.Winner())
	})

	t.Run("clone is independent", func(t *testing.T) {
		v := NewView("a")
		v.OnGameUpdate(protocol.GameUpdate{Tiles: protocol.TileData{
			TileContents: emptyBoard(2),
			CoveredTiles: [][]bool{{false, false}, {false, false}},
		}})

		c := v.Clone()
		c.Tiles.TileContents[0][0] = protocol.O

		assert.Equal(t, protocol.None, v.Tiles.TileContents[0][0])
	})
}
