package game

import "github.com/BioHazard786/Shroud/internal/protocol"

// Scan directions: diagonal top-left to bottom-right, vertical,
// anti-diagonal top-right to bottom-left, horizontal.
var directions = [4]protocol.Coord{{X: 1, Y: 1}, {X: 0, Y: 1}, {X: -1, Y: 1}, {X: 1, Y: 0}}

// WinningLine looks for k consecutive copies of the symbol at `at` on any
// line through it. Each direction walks the 2k-1 cells centered on `at`,
// resetting the streak on a mismatch or when the walk leaves the board.
// It returns the first run found, or nil.
func WinningLine(tiles [][]protocol.Symbol, at protocol.Coord, k int) []protocol.Coord {
	n := len(tiles)
	inBounds := func(c protocol.Coord) bool {
		return c.X >= 0 && c.X < n && c.Y >= 0 && c.Y < n
	}

	if k <= 0 || !inBounds(at) {
		return nil
	}
	sym := tiles[at.Y][at.X]
	if sym == protocol.None {
		return nil
	}

	for _, d := range directions {
		var run []protocol.Coord
		for i := -(k - 1); i <= k-1; i++ {
			c := protocol.Coord{X: at.X + i*d.X, Y: at.Y + i*d.Y}
			if !inBounds(c) || tiles[c.Y][c.X] != sym {
				run = nil
				continue
			}
			run = append(run, c)
			if len(run) == k {
				return run
			}
		}
	}
	return nil
}

// IsFull reports whether every tile holds a mark.
func IsFull(tiles [][]protocol.Symbol) bool {
	for _, row := range tiles {
		for _, s := range row {
			if s == protocol.None {
				return false
			}
		}
	}
	return true
}

func emptyBoard(n int) [][]protocol.Symbol {
	tiles := make([][]protocol.Symbol, n)
	for y := range tiles {
		tiles[y] = make([]protocol.Symbol, n)
	}
	return tiles
}
