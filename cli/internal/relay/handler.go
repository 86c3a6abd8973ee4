package relay

import (
	"log/slog"

	"github.com/sranoldo2003/live-location/internal/protocol"
)

// Handler routes incoming relay events to typed channels.
//
// Channels are never closed; Done is closed once the connection ends.
// Events that arrive while a channel is full are dropped.
type Handler struct {
	incoming <-chan *protocol.Message

	Welcome     chan protocol.Welcome
	RoomCreated chan string
	RoomJoined  chan string
	UserJoined  chan string
	UserLeft    chan string
	Location    chan protocol.Location
	Error       chan string

	done chan struct{}
}

// NewHandler creates a handler reading from incoming, usually Client.Incoming().
func NewHandler(incoming <-chan *protocol.Message) *Handler {
	return &Handler{
		incoming:    incoming,
		Welcome:     make(chan protocol.Welcome, 1),
		RoomCreated: make(chan string, 1),
		RoomJoined:  make(chan string, 1),
		UserJoined:  make(chan string, 16),
		UserLeft:    make(chan string, 16),
		Location:    make(chan protocol.Location, 64),
		Error:       make(chan string, 1),
		done:        make(chan struct{}),
	}
}

// Done is closed after the incoming channel is drained.
func (h *Handler) Done() <-chan struct{} {
	return h.done
}

// Start begins listening to incoming messages and routing them.
// It returns when the incoming channel is closed.
func (h *Handler) Start() {
	defer close(h.done)

	for msg := range h.incoming {
		switch msg.Type {
		case protocol.EventWelcome:
			var welcome protocol.Welcome
			if err := msg.DecodePayload(&welcome); err != nil {
				slog.Debug("malformed welcome", "err", err)
				continue
			}
			deliver(h.Welcome, welcome, msg.Type)

		case protocol.EventRoomCreated:
			h.routeString(h.RoomCreated, msg)

		case protocol.EventRoomJoined:
			h.routeString(h.RoomJoined, msg)

		case protocol.EventUserJoined:
			h.routeString(h.UserJoined, msg)

		case protocol.EventUserLeft:
			h.routeString(h.UserLeft, msg)

		case protocol.EventRoomError:
			h.routeString(h.Error, msg)

		case protocol.EventOtherUserLocation:
			loc, ok := msg.LocationPayload()
			if !ok {
				slog.Debug("malformed location", "payload", msg.Payload)
				continue
			}
			deliver(h.Location, loc, msg.Type)

		default:
			slog.Debug("ignoring event", "type", msg.Type)
		}
	}
}

func (h *Handler) routeString(ch chan string, msg *protocol.Message) {
	s, ok := msg.StringPayload()
	if !ok {
		slog.Debug("expected string payload", "type", msg.Type, "payload", msg.Payload)
		return
	}
	deliver(ch, s, msg.Type)
}

func deliver[T any](ch chan T, v T, event string) {
	select {
	case ch <- v:
	default:
		slog.Debug("handler channel full, dropping event", "type", event)
	}
}
