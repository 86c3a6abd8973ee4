package cmd

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/sranoldo2003/live-location/cli/internal/relay"
	"github.com/sranoldo2003/live-location/cli/internal/ui"
	"github.com/sranoldo2003/live-location/internal/protocol"
	"github.com/sranoldo2003/live-location/internal/wordlist"
)

var (
	flagCreate   bool
	flagLat      float64
	flagLon      float64
	flagName     string
	flagInterval time.Duration
)

var shareCmd = &cobra.Command{
	Use:     "share [room-id]",
	Aliases: []string{"s"},
	Short:   "Share your location with a room",
	Long: `Join a room (or create one with --create) and send your position at a fixed
interval. Peer joins, departures and locations are printed as they arrive.

Examples:
  live-location share --create --lat 48.8566 --lon 2.3522
  live-location share brave-otter-lamp-harbor --lat 51.5 --lon -0.12 --name sam`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var roomID string
		if len(args) == 1 {
			roomID = args[0]
		}
		if roomID == "" && !flagCreate {
			return fmt.Errorf("room ID is required unless --create is set")
		}
		if roomID == "" {
			roomID = wordlist.RoomID(nil)
		}
		if flagInterval <= 0 {
			return fmt.Errorf("--interval must be positive")
		}
		return share(cmd, roomID)
	},
}

func share(cmd *cobra.Command, roomID string) error {
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

	if err := conn.EnterRoom(ctx, roomID, flagCreate); err != nil {
		return err
	}

	name := flagName
	if name == "" {
		name = conn.Self.DisplayName
	}
	self := protocol.Location{
		Lat:          flagLat,
		Lon:          flagLon,
		ConnectionID: conn.Self.ConnectionID,
		DisplayName:  name,
	}
	origin := ui.Point{Lat: flagLat, Lon: flagLon}

	ui.PrintInfof("Sharing %s as %s every %s. Press Ctrl+C to stop.",
		ui.FormatCoords(self.Lat, self.Lon), ui.PeerStyle.Render(name), flagInterval)

	ticker := time.NewTicker(flagInterval)
	defer ticker.Stop()

	// A failed send means the connection dropped; Handler.Done reports it.
	send := func() {
		if err := conn.Client.Send(protocol.EventLocationUpdate, self); err != nil {
			slog.Debug("location not sent", "err", err)
		}
	}
	send()

	for {
		select {
		case <-ticker.C:
			send()

		case id := <-conn.Handler.UserJoined:
			ui.PrintPeerJoined(id)
			// Newcomers only see updates sent after they joined.
			send()

		case id := <-conn.Handler.UserLeft:
			ui.PrintPeerLeft(id)

		case loc := <-conn.Handler.Location:
			peer := loc.DisplayName
			if peer == "" {
				peer = ui.ShortID(loc.ConnectionID)
			}
			distance := ui.FormatDistance(ui.Distance(origin, ui.Point{Lat: loc.Lat, Lon: loc.Lon}))
			ui.PrintPeerLocation(peer, loc.Lat, loc.Lon, distance)

		case <-conn.Handler.Done():
			ui.PrintWarning("Connection lost, reconnecting...")
			if err := conn.Reconnect(ctx); err != nil {
				if ctx.Err() != nil {
					return stopSharing()
				}
				return relay.NewError("share location", err)
			}
			self.ConnectionID = conn.Self.ConnectionID
			ui.PrintSuccessf("Reconnected to room %s", conn.RoomID)
			ticker.Reset(flagInterval)
			send()

		case <-ctx.Done():
			return stopSharing()
		}
	}
}

func stopSharing() error {
	fmt.Println()
	ui.PrintSuccess("Stopped sharing")
	return nil
}

func printRoomBox(roomID string, created bool) {
	fmt.Println()
	fmt.Println(ui.RoomBox(roomID, created))
	fmt.Println()
}

func init() {
	rootCmd.AddCommand(shareCmd)

	shareCmd.Flags().BoolVarP(&flagCreate, "create", "c", false, "Create the room instead of joining it")
	shareCmd.Flags().Float64Var(&flagLat, "lat", 0, "Latitude in degrees")
	shareCmd.Flags().Float64Var(&flagLon, "lon", 0, "Longitude in degrees")
	shareCmd.Flags().StringVarP(&flagName, "name", "n", "", "Display name shown to others")
	shareCmd.Flags().DurationVarP(&flagInterval, "interval", "i", time.Second, "Time between location updates")
	_ = shareCmd.MarkFlagRequired("lat")
	_ = shareCmd.MarkFlagRequired("lon")
}
