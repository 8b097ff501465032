package session

import (
	"time"

	"github.com/BioHazard786/Shroud/internal/game"
	"github.com/BioHazard786/Shroud/internal/protocol"
)

// Summary describes a finished or running match.
type Summary struct {
	MatchID string
	Role    game.Role
	SelfID  string
	Players [2]string
	Turns   int

	// Winner is the winning identity, empty on a draw or an unfinished match.
	Winner       string
	WinnerSymbol protocol.Symbol
	Draw         bool
	WinningLine  []protocol.Coord

	Started  time.Time
	Finished time.Time
	Err      error
}

func (s Summary) Duration() time.Duration {
	if s.Started.IsZero() || s.Finished.IsZero() {
		return 0
	}
	return s.Finished.Sub(s.Started)
}

// Completed reports whether the match reached game_end.
func (s Summary) Completed() bool {
	return s.Draw || s.Winner != ""
}

// Summary returns a snapshot of the match so far.
func (s *Session) Summary() Summary {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.summary
	out.WinningLine = append([]protocol.Coord(nil), s.summary.WinningLine...)
	return out
}

func (s *Session) setStarted(t time.Time) {
	s.mu.Lock()
	s.summary.Started = t
	s.peerID = s.conn.PeerID()
	s.mu.Unlock()
}

func (s *Session) setFinished(t time.Time, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.summary.Finished = t
	s.summary.Err = err
	s.summary.Turns = s.view.Turn
	if s.view.FirstPlayer != "" {
		second := s.peerID
		if s.view.FirstPlayer != s.conn.SelfID() {
			second = s.conn.SelfID()
		}
		s.summary.Players = [2]string{s.view.FirstPlayer, second}
	}
}

func (s *Session) finish(end protocol.GameEnd) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if end.Draw() {
		s.summary.Draw = true
		s.log.Info("match drawn")
		return
	}
	s.summary.Winner = s.view.Winner()
	s.summary.WinnerSymbol = s.view.SymbolOf(s.summary.Winner)
	s.summary.WinningLine = append([]protocol.Coord(nil), end.WinningLine...)
	s.log.Info("match won", "winner", s.summary.Winner, "symbol", s.summary.WinnerSymbol.String())
}
