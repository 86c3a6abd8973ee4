package ui

import (
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// Report formats accepted by RenderRooms.
const (
	FormatTable    = "table"
	FormatMarkdown = "markdown"
	FormatCSV      = "csv"
)

// RoomsReport mirrors the relay's /api/rooms response.
type RoomsReport struct {
	Rooms []struct {
		ID      string `json:"id"`
		Members int    `json:"members"`
	} `json:"rooms"`
	Connections int `json:"connections"`
}

// RenderRooms writes report to w in the given format.
func RenderRooms(w io.Writer, report RoomsReport, format string) error {
	tw := table.NewWriter()
	tw.AppendHeader(table.Row{"#", "Room", "Members"})

	members := 0
	for i, r := range report.Rooms {
		tw.AppendRow(table.Row{i + 1, r.ID, r.Members})
		members += r.Members
	}
	tw.AppendFooter(table.Row{"", fmt.Sprintf("%d room(s)", len(report.Rooms)), members})

	var out string
	switch format {
	case "", FormatTable:
		tw.SetStyle(table.StyleRounded)
		tw.Style().Color.Header = text.Colors{text.FgCyan, text.Bold}
		tw.SetColumnConfigs([]table.ColumnConfig{
			{Number: 3, Align: text.AlignRight, AlignFooter: text.AlignRight},
		})
		tw.SetCaption("%d connection(s), %d unjoined", report.Connections, max(0, report.Connections-members))
		out = tw.Render()
	case FormatMarkdown:
		out = tw.RenderMarkdown()
	case FormatCSV:
		out = tw.RenderCSV()
	default:
		return fmt.Errorf("unknown format %q (want table, markdown or csv)", format)
	}

	_, err := fmt.Fprintln(w, out)
	return err
}
