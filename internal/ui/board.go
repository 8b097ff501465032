package ui

import (
	"fmt"
	"slices"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/BioHazard786/Shroud/internal/game"
	"github.com/BioHazard786/Shroud/internal/protocol"
)

type keyMap struct {
	Up    key.Binding
	Down  key.Binding
	Left  key.Binding
	Right key.Binding
	Place key.Binding
	Quit  key.Binding
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Up, k.Down, k.Left, k.Right, k.Place, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{k.ShortHelp()}
}

var defaultKeys = keyMap{
	Up:    key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
	Down:  key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
	Left:  key.NewBinding(key.WithKeys("left", "h"), key.WithHelp("←/h", "left")),
	Right: key.NewBinding(key.WithKeys("right", "l"), key.WithHelp("→/l", "right")),
	Place: key.NewBinding(key.WithKeys("enter", " "), key.WithHelp("enter", "place")),
	Quit:  key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
}

// ViewMsg carries a fresh snapshot of the match.
type ViewMsg game.View

// EndMsg tells the board the session is over.
type EndMsg struct {
	Err error
}

// BoardModel draws the board and turns key presses into placements.
type BoardModel struct {
	view    game.View
	peerID  string
	cursor  protocol.Coord
	keys    keyMap
	help    help.Model
	spinner spinner.Model
	place   func(x, y int)

	ended    bool
	err      error
	quitting bool
}

// NewBoardModel returns a board that calls place for every placement the
// local player makes.
func NewBoardModel(peerID string, place func(x, y int)) BoardModel {
	s := spinner.New()
	s.Spinner = spinner.Points
	s.Style = SpinnerStyle

	return BoardModel{
		peerID:  peerID,
		keys:    defaultKeys,
		help:    help.New(),
		spinner: s,
		place:   place,
	}
}

func (m BoardModel) Init() tea.Cmd {
	return m.spinner.Tick
}

// Quitting reports whether the player asked to leave.
func (m BoardModel) Quitting() bool {
	return m.quitting
}

func (m BoardModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case ViewMsg:
		m.view = game.View(msg)
		m.clampCursor()
		return m, nil

	case EndMsg:
		m.ended = true
		m.err = msg.Err
		return m, tea.Quit

	case tea.WindowSizeMsg:
		m.help.Width = msg.Width
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m BoardModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.quitting = true
		return m, tea.Quit
	case key.Matches(msg, m.keys.Up):
		m.cursor.Y--
	case key.Matches(msg, m.keys.Down):
		m.cursor.Y++
	case key.Matches(msg, m.keys.Left):
		m.cursor.X--
	case key.Matches(msg, m.keys.Right):
		m.cursor.X++
	case key.Matches(msg, m.keys.Place):
		if m.view.MyTurn() && m.place != nil {
			m.place(m.cursor.X, m.cursor.Y)
		}
	}
	m.clampCursor()
	return m, nil
}

func (m *BoardModel) clampCursor() {
	n := m.view.Tiles.Size()
	if n == 0 {
		m.cursor = protocol.Coord{}
		return
	}
	m.cursor.X = max(0, min(n-1, m.cursor.X))
	m.cursor.Y = max(0, min(n-1, m.cursor.Y))
}

func (m BoardModel) View() string {
	if !m.view.Started || m.view.Tiles.Size() == 0 {
		return fmt.Sprintf("%s Waiting for the match to start\n", m.spinner.View())
	}

	var b strings.Builder
	b.WriteString(m.status())
	b.WriteString("\n\n")
	b.WriteString(m.grid())
	b.WriteString("\n")
	if hint := m.revealHint(); hint != "" {
		b.WriteString(MutedStyle.Render(hint))
		b.WriteString("\n")
	}
	if !m.ended && !m.view.Done {
		b.WriteString(FooterStyle.Render(m.help.View(m.keys)))
		b.WriteString("\n")
	}
	return b.String()
}

func (m BoardModel) status() string {
	v := m.view
	mine := v.SymbolOf(v.SelfID)

	switch {
	case v.Done && v.Winner() == v.SelfID:
		return SuccessStyle.Render(fmt.Sprintf("%s You win as %s", IconTrophy, mine))
	case v.Done && v.Winner() != "":
		return ErrorStyle.Render(fmt.Sprintf("%s %s wins", IconMask, m.peerID))
	case v.Done:
		return WarningStyle.Render(IconDraw + " Draw")
	case v.MyTurn():
		return StatusStyle.Render(fmt.Sprintf("Your turn (%s)", mine)) +
			MutedStyle.Render(fmt.Sprintf("  turn %d", v.Turn+1))
	}
	return fmt.Sprintf("%s Waiting for %s (%s)", m.spinner.View(), m.peerID, v.SymbolOf(v.CurrentPlayer)) +
		MutedStyle.Render(fmt.Sprintf("  turn %d", v.Turn+1))
}

func (m BoardModel) revealHint() string {
	r := m.view.Reveal
	if r == nil || !r.Covered || m.view.Done {
		return ""
	}
	if r.Symbol == protocol.None {
		return fmt.Sprintf("The hidden tile at %s was already taken", protocol.Coord{X: r.X, Y: r.Y})
	}
	return fmt.Sprintf("You placed %s on a hidden tile at %s", r.Symbol, protocol.Coord{X: r.X, Y: r.Y})
}

func (m BoardModel) grid() string {
	n := m.view.Tiles.Size()
	rows := make([][]string, n)
	for y := range n {
		rows[y] = make([]string, n)
		for x := range n {
			rows[y][x] = cellText(m.view, x, y)
		}
	}

	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(Primary)).
		BorderRow(true).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			return m.cellStyle(col, row)
		}).
		Render()
}

func (m BoardModel) cellStyle(x, y int) lipgloss.Style {
	v := m.view
	c := protocol.Coord{X: x, Y: y}
	switch {
	case slices.Contains(v.WinningLine, c):
		return WinningStyle
	case !v.Done && c == m.cursor:
		return CursorStyle
	}

	switch cellText(v, x, y) {
	case string(protocol.X):
		return XStyle
	case string(protocol.O):
		return OStyle
	case "?":
		return CoveredStyle
	}
	return EmptyStyle
}

// cellText is what this participant may see at (x, y). Covered tiles stay
// hidden unless they are the latest placement result sent to us.
func cellText(v game.View, x, y int) string {
	if !v.Tiles.InBounds(x, y) {
		return ""
	}
	sym := v.Tiles.TileContents[y][x]

	if v.Tiles.CoveredTiles[y][x] && !v.Done {
		if r := v.Reveal; r != nil && r.X == x && r.Y == y && r.Symbol != protocol.None {
			return string(r.Symbol)
		}
		return "?"
	}
	if sym == protocol.None {
		return "·"
	}
	return string(sym)
}
