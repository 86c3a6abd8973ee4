package ui

import (
	"fmt"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

// staleAfter is how long a peer may stay silent before its row is dimmed.
const staleAfter = 30 * time.Second

// PeerRow is one room member as seen by the watch view.
type PeerRow struct {
	ID        string
	Name      string
	Location  *Point
	UpdatedAt time.Time
}

// PeerTable renders room members using lipgloss/table.
type PeerTable struct {
	rows   []PeerRow
	origin *Point
	now    time.Time
}

// NewPeerTable builds a table of rows. When origin is set a distance column
// is added.
func NewPeerTable(rows []PeerRow, origin *Point, now time.Time) *PeerTable {
	return &PeerTable{rows: rows, origin: origin, now: now}
}

// View renders the table as a string
func (t *PeerTable) View() string {
	if len(t.rows) == 0 {
		return MutedStyle.Render("Nobody else is here yet")
	}

	headers := []string{"Peer", "ID", "Location", "Updated"}
	if t.origin != nil {
		headers = append(headers, "Distance")
	}

	stale := make(map[int]bool, len(t.rows))
	var rows [][]string
	for i, p := range t.rows {
		name := p.Name
		if name == "" {
			name = "-"
		}

		location, updated, distance := "waiting…", "-", "-"
		if p.Location != nil {
			location = FormatCoords(p.Location.Lat, p.Location.Lon)
			age := t.now.Sub(p.UpdatedAt)
			updated = formatAge(age)
			stale[i] = age > staleAfter
			if t.origin != nil {
				distance = FormatDistance(Distance(*t.origin, *p.Location))
			}
		}

		row := []string{name, ShortID(p.ID), location, updated}
		if t.origin != nil {
			row = append(row, distance)
		}
		rows = append(rows, row)
	}

	tbl := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(Primary)).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return TableHeaderStyle
			case stale[row]:
				return TableStaleStyle
			case row%2 == 0:
				return TableRowStyle
			default:
				return TableRowAltStyle
			}
		})

	return tbl.Render()
}

func formatAge(d time.Duration) string {
	switch {
	case d < time.Second:
		return "just now"
	case d < time.Minute:
		return fmt.Sprintf("%ds ago", int(d.Seconds()))
	default:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	}
}

// RoomBox frames the room id so it can be shared with others.
func RoomBox(roomID string, created bool) string {
	boxStyle := lipgloss.NewStyle().
		Border(lipgloss.DoubleBorder()).
		BorderForeground(Success).
		Padding(1, 2)

	title := "Joined room"
	if created {
		title = "Room created!"
	}

	content := fmt.Sprintf("%s %s\n\n%s Room ID:  %s\n%s",
		IconRoom, TitleStyle.Render(title),
		IconCopy, BoldStyle.Foreground(Primary).Render(roomID),
		MutedStyle.Render("Others can join with: live-location share "+roomID),
	)

	return boxStyle.Render(content)
}
