package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/sranoldo2003/live-location/cli/internal/ui"
	"github.com/sranoldo2003/live-location/internal/version"
)

var (
	flagServer string
	flagCodec  string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "live-location",
	Short: "Share and watch live locations in a room",
	Long: `live-location talks to a location relay server. Create or join a room,
stream your position to everyone else in it, and watch theirs in real time.

The relay address comes from --server, then LIVE_LOCATION_SERVER, then ws://localhost:3000/ws.`,
	Version: version.Version,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rootCmd.SilenceErrors = true
	rootCmd.SilenceUsage = true

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		ui.PrintError(err.Error())
		stop()
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&flagServer, "server", "S", "", "Relay websocket URL")
	rootCmd.PersistentFlags().StringVar(&flagCodec, "codec", "", "Wire codec: json or msgpack")
}
