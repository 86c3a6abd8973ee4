package main

import (
	"log/slog"

	"github.com/sranoldo2003/live-location/cli/cmd"
	"github.com/sranoldo2003/live-location/internal/logging"
)

func main() {
	// Quiet by default so log lines do not tear the terminal UI.
	logging.Init(logging.Config{DefaultLevel: slog.LevelError})
	cmd.Execute()
}
