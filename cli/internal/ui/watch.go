package ui

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
)

// Messages fed into the watch program by the caller.
type (
	PeerJoinedMsg   struct{ ID string }
	PeerLeftMsg     struct{ ID string }
	PeerLocationMsg struct {
		ID   string
		Name string
		At   Point
	}
	// ReconnectingMsg reports a dropped connection that is being redialed.
	ReconnectingMsg struct{}
	// ReconnectedMsg follows a successful rejoin. Peers are forgotten until
	// they report again, since departures during the outage were missed.
	ReconnectedMsg struct{}
	// DisconnectedMsg ends the program when the relay goes away for good.
	DisconnectedMsg struct{ Err error }
)

type tickMsg time.Time

// WatchModel is a live table of the other members of a room.
type WatchModel struct {
	roomID  string
	origin  *Point
	peers   map[string]*PeerRow
	spinner spinner.Model
	now     func() time.Time

	reconnecting bool
	err          error
	quitting     bool
}

// NewWatchModel creates the model for roomID. origin may be nil.
func NewWatchModel(roomID string, origin *Point) *WatchModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = SpinnerStyle

	return &WatchModel{
		roomID:  roomID,
		origin:  origin,
		peers:   make(map[string]*PeerRow),
		spinner: s,
		now:     time.Now,
	}
}

// Err is set when the program ended because the relay disconnected.
func (m *WatchModel) Err() error {
	return m.err
}

func (m *WatchModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, tick())
}

func tick() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m *WatchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			m.quitting = true
			return m, tea.Quit
		}

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tickMsg:
		if m.quitting {
			return m, nil
		}
		return m, tick()

	case PeerJoinedMsg:
		if _, ok := m.peers[msg.ID]; !ok {
			m.peers[msg.ID] = &PeerRow{ID: msg.ID}
		}

	case PeerLeftMsg:
		delete(m.peers, msg.ID)

	case PeerLocationMsg:
		p, ok := m.peers[msg.ID]
		if !ok {
			p = &PeerRow{ID: msg.ID}
			m.peers[msg.ID] = p
		}
		if msg.Name != "" {
			p.Name = msg.Name
		}
		at := msg.At
		p.Location = &at
		p.UpdatedAt = m.now()

	case ReconnectingMsg:
		m.reconnecting = true

	case ReconnectedMsg:
		m.reconnecting = false
		clear(m.peers)

	case DisconnectedMsg:
		m.err = msg.Err
		m.quitting = true
		return m, tea.Quit
	}

	return m, nil
}

// Peers returns the known members ordered by name, then id.
func (m *WatchModel) Peers() []PeerRow {
	rows := make([]PeerRow, 0, len(m.peers))
	for _, p := range m.peers {
		rows = append(rows, *p)
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Name != rows[j].Name {
			return rows[i].Name < rows[j].Name
		}
		return rows[i].ID < rows[j].ID
	})
	return rows
}

func (m *WatchModel) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder

	b.WriteString(HeaderStyle.Render(fmt.Sprintf("%s Room %s", IconRoom, m.roomID)))
	b.WriteString("\n")
	if m.reconnecting {
		b.WriteString(WarningStyle.Render(fmt.Sprintf("%s %s Connection lost, reconnecting...", m.spinner.View(), IconWarning)))
		b.WriteString("\n\n")
	} else {
		b.WriteString(fmt.Sprintf("%s %d peer(s) connected\n\n", m.spinner.View(), len(m.peers)))
	}
	b.WriteString(NewPeerTable(m.Peers(), m.origin, m.now()).View())
	b.WriteString("\n")
	b.WriteString(FooterStyle.Render("Press q to quit"))

	return b.String()
}
