package version

// Version is the current version of the live-location server and CLI.
// Release builds override it with:
//
//	go build -ldflags="-X 'github.com/sranoldo2003/live-location/internal/version.Version=v1.0.0'"
var Version = "dev"
