package relay

import (
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"github.com/sranoldo2003/live-location/internal/protocol"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10
)

// Client is one live websocket connection and its relay state.
//
// ID and the transport fields are fixed at construction. DisplayName,
// Location, RoomID and State are owned by the hub goroutine.
type Client struct {
	// ID is the opaque connection identity shared with peers.
	ID string

	// DisplayName defaults to a generated placeholder and follows the
	// displayName field of the client's location updates.
	DisplayName string

	// Location is the last location the client reported, nil until the first update.
	Location *protocol.Location

	// RoomID is the room the client is in, empty while unjoined.
	RoomID string

	State State

	hub        *Hub
	conn       *websocket.Conn
	codec      protocol.Codec
	remoteAddr string

	// send is a buffered channel for outbound messages. The hub writes to
	// it and WritePump drains it to the websocket.
	send chan *protocol.Message

	limiter *rate.Limiter
}

// NewClient wraps conn for use with hub. conn may be nil in tests, in which
// case the pumps must not be started and messages are read from Outbox.
func NewClient(hub *Hub, conn *websocket.Conn, codec protocol.Codec, remoteAddr string) *Client {
	if codec == nil {
		codec = protocol.JSON
	}

	c := &Client{
		ID:         uuid.NewString(),
		State:      StateUnjoined,
		hub:        hub,
		conn:       conn,
		codec:      codec,
		remoteAddr: remoteAddr,
		send:       make(chan *protocol.Message, hub.opts.SendBuffer),
	}
	if hub.opts.LocationRate > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(hub.opts.LocationRate), hub.opts.LocationBurst)
	}
	return c
}

// Outbox exposes the outbound queue for callers that drive a client without
// a websocket.
func (c *Client) Outbox() <-chan *protocol.Message {
	return c.send
}

// allowLocation reports whether another location update fits the client's rate.
func (c *Client) allowLocation() bool {
	return c.limiter == nil || c.limiter.Allow()
}

// ReadPump pumps messages from the websocket connection to the hub.
//
// The application runs ReadPump in a per-connection goroutine. The application
// ensures that there is at most one reader on a connection by executing all
// reads from this goroutine.
func (c *Client) ReadPump() {
	defer func() {
		c.hub.Unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(c.hub.opts.MaxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			c.logReadError(err)
			return
		}

		var msg protocol.Message
		if err := c.codec.Unmarshal(data, &msg); err != nil {
			slog.Debug("dropping undecodable message", "conn", c.ID, "codec", c.codec.Name(), "err", err)
			continue
		}

		if !c.hub.Dispatch(c, &msg) {
			return
		}
	}
}

func (c *Client) logReadError(err error) {
	switch {
	case errors.Is(err, websocket.ErrReadLimit):
		slog.Warn("message exceeded size limit", "conn", c.ID, "addr", c.remoteAddr, "limit", c.hub.opts.MaxMessageSize)
	case websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseNoStatusReceived):
		slog.Info("connection closed unexpectedly", "conn", c.ID, "addr", c.remoteAddr, "err", err)
	default:
		slog.Debug("connection closed", "conn", c.ID, "err", err)
	}
}

// WritePump pumps messages from the hub to the websocket connection.
//
// A goroutine running WritePump is started for each connection. The
// application ensures that there is at most one writer to a connection by
// executing all writes from this goroutine.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel.
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			data, err := c.codec.Marshal(message)
			if err != nil {
				slog.Error("encoding outbound message", "conn", c.ID, "type", message.Type, "err", err)
				continue
			}
			if err := c.conn.WriteMessage(c.codec.FrameType(), data); err != nil {
				slog.Debug("write failed", "conn", c.ID, "err", err)
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
