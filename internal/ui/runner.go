package ui

import (
	"fmt"
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/BioHazard786/Shroud/internal/game"
)

// GameUI runs the board in the terminal while a session feeds it views.
type GameUI struct {
	program *tea.Program
	updates chan tea.Msg
	done    chan struct{}
	wg      sync.WaitGroup

	mu    sync.Mutex
	final BoardModel
	err   error
}

// liveBoard pulls session updates into the bubbletea loop.
type liveBoard struct {
	BoardModel
	updates <-chan tea.Msg
}

func (m liveBoard) Init() tea.Cmd {
	return tea.Batch(m.BoardModel.Init(), m.listen())
}

func (m liveBoard) listen() tea.Cmd {
	return func() tea.Msg {
		return <-m.updates
	}
}

func (m liveBoard) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	next, cmd := m.BoardModel.Update(msg)
	m.BoardModel = next.(BoardModel)

	switch msg.(type) {
	case ViewMsg:
		return m, tea.Batch(cmd, m.listen())
	}
	return m, cmd
}

// NewGameUI prepares the board UI. place is called for each local move.
func NewGameUI(peerID string, place func(x, y int), opts ...tea.ProgramOption) *GameUI {
	updates := make(chan tea.Msg, 16)
	model := liveBoard{
		BoardModel: NewBoardModel(peerID, place),
		updates:    updates,
	}
	return &GameUI{
		program: tea.NewProgram(model, opts...),
		updates: updates,
		done:    make(chan struct{}),
	}
}

// Start runs the UI in a goroutine.
func (ui *GameUI) Start() {
	ui.wg.Add(1)
	go func() {
		defer ui.wg.Done()
		defer close(ui.done)
		final, err := ui.program.Run()

		ui.mu.Lock()
		defer ui.mu.Unlock()
		if err != nil {
			ui.err = fmt.Errorf("board ui: %w", err)
		}
		if m, ok := final.(liveBoard); ok {
			ui.final = m.BoardModel
		}
	}()
}

// Update hands a snapshot to the board.
func (ui *GameUI) Update(v game.View) {
	select {
	case ui.updates <- ViewMsg(v):
	case <-ui.done:
	}
}

// End stops the board once every queued snapshot has been drawn.
func (ui *GameUI) End(err error) {
	select {
	case ui.updates <- EndMsg{Err: err}:
	case <-ui.done:
	}
}

// Quit stops the board without waiting for the session.
func (ui *GameUI) Quit() {
	ui.program.Quit()
}

// Wait blocks until the UI exits and reports whether the player quit.
func (ui *GameUI) Wait() (quit bool, err error) {
	ui.wg.Wait()
	ui.mu.Lock()
	defer ui.mu.Unlock()
	return ui.final.Quitting(), ui.err
}
