package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/sranoldo2003/live-location/internal/protocol"
)

// DefaultServer is the websocket endpoint of a locally running relay.
const DefaultServer = "ws://localhost:3000/ws"

// Config holds application configuration
type Config struct {
	// ServerURL is the relay websocket endpoint.
	ServerURL string

	// Codec is the wire encoding requested from the relay.
	Codec protocol.Codec
}

// Options for loading config with CLI flag overrides
type Options struct {
	Server string
	Codec  string
}

// Load reads configuration with the following priority:
// 1. CLI flags (passed via Options) - highest priority
// 2. Environment variables
// 3. Hardcoded defaults - lowest priority
func Load(opts Options) (*Config, error) {
	server := opts.Server
	if server == "" {
		server = os.Getenv("LIVE_LOCATION_SERVER")
	}
	if server == "" {
		server = DefaultServer
	}

	serverURL, err := normalizeServerURL(server)
	if err != nil {
		return nil, err
	}

	codecName := opts.Codec
	if codecName == "" {
		codecName = os.Getenv("LIVE_LOCATION_CODEC")
	}
	codec, err := protocol.CodecFor(codecName)
	if err != nil {
		return nil, err
	}

	return &Config{
		ServerURL: serverURL,
		Codec:     codec,
	}, nil
}

// normalizeServerURL accepts ws(s):// or http(s):// and a bare host, and
// defaults the path to /ws.
func normalizeServerURL(raw string) (string, error) {
	if !strings.Contains(raw, "://") {
		raw = "ws://" + raw
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("invalid server URL: %w", err)
	}

	switch u.Scheme {
	case "ws", "wss":
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("invalid server URL %q: unsupported scheme %q", raw, u.Scheme)
	}
	if u.Host == "" {
		return "", fmt.Errorf("invalid server URL %q: missing host", raw)
	}
	if u.Path == "" || u.Path == "/" {
		u.Path = "/ws"
	}
	return u.String(), nil
}

// RoomsURL returns the HTTP room listing endpoint served next to the websocket.
func (c *Config) RoomsURL() string {
	u, err := url.Parse(c.ServerURL)
	if err != nil {
		return ""
	}

	if u.Scheme == "wss" {
		u.Scheme = "https"
	} else {
		u.Scheme = "http"
	}
	u.Path = strings.TrimSuffix(strings.TrimSuffix(u.Path, "/"), "/ws") + "/api/rooms"
	u.RawQuery = ""
	return u.String()
}
