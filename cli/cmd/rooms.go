package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/sranoldo2003/live-location/cli/internal/dns"
	"github.com/sranoldo2003/live-location/cli/internal/relay"
	"github.com/sranoldo2003/live-location/cli/internal/ui"
)

var flagFormat string

var httpClient = &http.Client{
	Transport: &http.Transport{
		DialContext:         dns.Default.DialContext,
		TLSHandshakeTimeout: 10 * time.Second,
	},
}

var roomsCmd = &cobra.Command{
	Use:   "rooms",
	Short: "List the active rooms on the relay",
	Long: `Fetch the relay's room listing and print it.

Examples:
  live-location rooms
  live-location rooms --format markdown`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := LoadConfig()
		if err != nil {
			return err
		}

		report, err := fetchRooms(cmd.Context(), cfg.RoomsURL())
		if err != nil {
			return relay.NewError("list rooms", err)
		}
		return ui.RenderRooms(os.Stdout, report, flagFormat)
	},
}

func fetchRooms(ctx context.Context, url string) (ui.RoomsReport, error) {
	var report ui.RoomsReport

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return report, err
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return report, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return report, fmt.Errorf("%s returned %s", url, resp.Status)
	}
	if err := json.NewDecoder(resp.Body).Decode(&report); err != nil {
		return report, fmt.Errorf("decode room listing: %w", err)
	}
	return report, nil
}

func init() {
	rootCmd.AddCommand(roomsCmd)

	roomsCmd.Flags().StringVarP(&flagFormat, "format", "f", ui.FormatTable, "Output format: table, markdown or csv")
}
