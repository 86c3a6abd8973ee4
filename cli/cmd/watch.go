package cmd

import (
	"context"
	"errors"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/sranoldo2003/live-location/cli/internal/relay"
	"github.com/sranoldo2003/live-location/cli/internal/ui"
)

var (
	flagWatchLat float64
	flagWatchLon float64
)

var watchCmd = &cobra.Command{
	Use:     "watch <room-id>",
	Aliases: []string{"w"},
	Short:   "Watch the live locations of a room",
	Long: `Join a room without sharing a location and show a live table of its members.
Pass --lat and --lon to add a distance column.

Examples:
  live-location watch brave-otter-lamp-harbor
  live-location watch brave-otter-lamp-harbor --lat 48.8566 --lon 2.3522`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return watch(cmd, args[0])
	},
}

func watch(cmd *cobra.Command, roomID string) error {
	ctx := cmd.Context()

	cfg, err := LoadConfig()
	if err != nil {
		return err
	}

	conn, err := NewConnectionContext(ctx, cfg)
	if err != nil {
		return err
	}
	defer conn.Close()

	if err := conn.JoinRoom(ctx, roomID); err != nil {
		return err
	}

	var origin *ui.Point
	if cmd.Flags().Changed("lat") || cmd.Flags().Changed("lon") {
		origin = &ui.Point{Lat: flagWatchLat, Lon: flagWatchLon}
	}

	model := ui.NewWatchModel(conn.RoomID, origin)
	program := tea.NewProgram(model, tea.WithContext(ctx))

	fwdCtx, stopForwarding := context.WithCancel(ctx)
	forwarded := make(chan struct{})
	go func() {
		defer close(forwarded)
		forwardEvents(fwdCtx, conn, program)
	}()

	_, err = program.Run()
	stopForwarding()
	<-forwarded

	if err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("watch UI: %w", err)
	}
	if err := model.Err(); err != nil {
		return relay.NewError("watch room", err)
	}
	return nil
}

// forwardEvents feeds relay events into the program until ctx ends,
// reconnecting whenever the relay drops the connection.
func forwardEvents(ctx context.Context, conn *ConnectionContext, program *tea.Program) {
	for {
		select {
		case id := <-conn.Handler.UserJoined:
			program.Send(ui.PeerJoinedMsg{ID: id})
		case id := <-conn.Handler.UserLeft:
			program.Send(ui.PeerLeftMsg{ID: id})
		case loc := <-conn.Handler.Location:
			program.Send(ui.PeerLocationMsg{
				ID:   loc.ConnectionID,
				Name: loc.DisplayName,
				At:   ui.Point{Lat: loc.Lat, Lon: loc.Lon},
			})
		case <-conn.Handler.Done():
			program.Send(ui.ReconnectingMsg{})
			if err := conn.Reconnect(ctx); err != nil {
				if ctx.Err() == nil {
					program.Send(ui.DisconnectedMsg{Err: err})
				}
				return
			}
			program.Send(ui.ReconnectedMsg{})
		case <-ctx.Done():
			return
		}
	}
}

func init() {
	rootCmd.AddCommand(watchCmd)

	watchCmd.Flags().Float64Var(&flagWatchLat, "lat", 0, "Your latitude, for distances")
	watchCmd.Flags().Float64Var(&flagWatchLon, "lon", 0, "Your longitude, for distances")
}
