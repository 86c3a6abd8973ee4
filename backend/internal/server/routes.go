package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"

	"github.com/sranoldo2003/live-location/backend/internal/relay"
	"github.com/sranoldo2003/live-location/internal/protocol"
)

// Options configure the HTTP surface.
type Options struct {
	AllowedOrigins []string
	StatsEnabled   bool
}

// NewRouter mounts the health check, the websocket endpoint and, when
// enabled, the room listing.
func NewRouter(hub *relay.Hub, opts Options) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger)

	r.Get("/health", healthCheckHandler)
	r.Get("/ws", ServeWs(hub, NewOriginPolicy(opts.AllowedOrigins)))
	if opts.StatsEnabled {
		r.Get("/api/rooms", roomsHandler(hub))
	}

	return r
}

func healthCheckHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("Location relay is healthy."))
}

func roomsHandler(hub *relay.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		if err := json.NewEncoder(w).Encode(hub.Stats()); err != nil {
			slog.Error("encoding room stats", "err", err)
		}
	}
}

// ServeWs upgrades the request and hands the connection to hub. The codec
// follows the negotiated subprotocol, JSON when the client offered none.
func ServeWs(hub *relay.Hub, origins *OriginPolicy) http.HandlerFunc {
	upgrader := websocket.Upgrader{
		ReadBufferSize:  4 * 1024,
		WriteBufferSize: 4 * 1024,
		Subprotocols:    protocol.Subprotocols(),
		CheckOrigin:     origins.Check,
	}

	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			// The upgrader has already replied with an HTTP error.
			slog.Debug("websocket upgrade failed", "addr", r.RemoteAddr, "err", err)
			return
		}

		codec, err := protocol.CodecFor(conn.Subprotocol())
		if err != nil {
			slog.Warn("unsupported subprotocol", "subprotocol", conn.Subprotocol(), "err", err)
			conn.Close()
			return
		}

		client := relay.NewClient(hub, conn, codec, r.RemoteAddr)
		if !hub.Register(client) {
			conn.Close()
			return
		}

		go client.WritePump()
		go client.ReadPump()
	}
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		slog.Debug("http request",
			"req_id", middleware.GetReqID(r.Context()),
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start).String(),
		)
	})
}
