package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	prettytable "github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/skip2/go-qrcode"

	"github.com/BioHazard786/Shroud/internal/session"
	"github.com/BioHazard786/Shroud/internal/utils"
)

// JoinInfo is the box shown by the host while it waits for a player.
type JoinInfo struct {
	PeerID string
	ShowQR bool
}

func (j JoinInfo) View() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s Waiting for a player\n\n", IconMask)
	fmt.Fprintf(&b, "%s Peer ID:  %s\n", IconCopy, BoldStyle.Foreground(Primary).Render(j.PeerID))
	fmt.Fprintf(&b, "%s Join:     %s", IconPeer, MutedStyle.Render(utils.JoinCommand(j.PeerID)))

	if j.ShowQR {
		if qr, err := qrcode.New(utils.JoinCommand(j.PeerID), qrcode.Medium); err == nil {
			fmt.Fprintf(&b, "\n\n%s Scan to copy the join command\n", IconQR)
			b.WriteString(halfBlocks(qr.Bitmap()))
		}
	}

	return InfoBoxStyle.Render(b.String())
}

// halfBlocks draws two bitmap rows per text line.
func halfBlocks(bits [][]bool) string {
	var b strings.Builder
	for y := 0; y < len(bits); y += 2 {
		for x := range bits[y] {
			top := bits[y][x]
			bottom := y+1 < len(bits) && bits[y+1][x]
			switch {
			case top && bottom:
				b.WriteString("█")
			case top:
				b.WriteString("▀")
			case bottom:
				b.WriteString("▄")
			default:
				b.WriteString(" ")
			}
		}
		b.WriteString("\n")
	}
	return b.String()
}

func RenderJoinInfo(info JoinInfo) {
	fmt.Println(info.View())
}

// SummaryView renders the end-of-match table.
func SummaryView(s session.Summary) string {
	t := prettytable.NewWriter()
	t.SetTitle(IconMask + " Match Summary")
	t.SetStyle(prettytable.StyleRounded)
	t.Style().Title.Align = text.AlignCenter
	t.AppendHeader(prettytable.Row{"Metric", "Value"})

	t.AppendRows([]prettytable.Row{
		{"Match", s.MatchID},
		{"Role", s.Role},
		{"You", s.SelfID},
		{"Result", result(s)},
		{"Turns", s.Turns},
		{"Duration", utils.FormatTimeDuration(s.Duration())},
	})
	if len(s.WinningLine) > 0 {
		line := make([]string, len(s.WinningLine))
		for i, c := range s.WinningLine {
			line[i] = c.String()
		}
		t.AppendRow(prettytable.Row{"Winning line", strings.Join(line, " ")})
	}
	if s.Err != nil {
		t.AppendRow(prettytable.Row{"Error", s.Err.Error()})
	}

	return t.Render()
}

func RenderSummary(s session.Summary) {
	fmt.Println(lipgloss.NewStyle().MarginTop(1).Render(SummaryView(s)))
}

func result(s session.Summary) string {
	switch {
	case s.Draw:
		return IconDraw + " Draw"
	case s.Winner == s.SelfID:
		return fmt.Sprintf("%s You won (%s)", IconTrophy, s.WinnerSymbol)
	case s.Winner != "":
		return fmt.Sprintf("%s %s won (%s)", IconMask, s.Winner, s.WinnerSymbol)
	}
	return IconWarning + " Unfinished"
}
