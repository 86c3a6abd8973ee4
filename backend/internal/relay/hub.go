package relay

import (
	"context"
	"errors"
	"log/slog"

	"github.com/sranoldo2003/live-location/internal/protocol"
	"github.com/sranoldo2003/live-location/internal/wordlist"
)

// Options tune per-connection limits.
type Options struct {
	// SendBuffer is the capacity of each client's outbound queue. Messages
	// to a client whose queue is full are dropped.
	SendBuffer int

	// MaxMessageSize caps inbound websocket frames, in bytes.
	MaxMessageSize int64

	// LocationRate is the sustained number of location updates per second a
	// client may send; LocationBurst is the bucket size. Zero, the default,
	// disables the limit.
	LocationRate  float64
	LocationBurst int
}

// DefaultOptions returns the limits used when none are configured.
func DefaultOptions() Options {
	return Options{
		SendBuffer:     256,
		MaxMessageSize: 4 * 1024,
		LocationRate:   0,
		LocationBurst:  10,
	}
}

type inbound struct {
	client *Client
	msg    *protocol.Message
}

// Stats is a point-in-time summary of the hub.
type Stats struct {
	Rooms       []RoomInfo `json:"rooms"`
	Connections int        `json:"connections"`
}

// Hub is the relay engine. A single goroutine (Run) owns every change to the
// registry and the room directory, so command handling never races.
type Hub struct {
	directory *Directory
	registry  *Registry
	opts      Options

	register   chan *Client
	unregister chan *Client
	inbound    chan inbound

	// done is closed when Run returns.
	done chan struct{}
}

// NewHub creates a hub that manages rooms in directory.
func NewHub(directory *Directory, opts Options) *Hub {
	def := DefaultOptions()
	if opts.SendBuffer <= 0 {
		opts.SendBuffer = def.SendBuffer
	}
	if opts.MaxMessageSize <= 0 {
		opts.MaxMessageSize = def.MaxMessageSize
	}
	if opts.LocationRate > 0 && opts.LocationBurst <= 0 {
		opts.LocationBurst = 1
	}

	return &Hub{
		directory:  directory,
		registry:   NewRegistry(),
		opts:       opts,
		register:   make(chan *Client),
		unregister: make(chan *Client),
		inbound:    make(chan inbound),
		done:       make(chan struct{}),
	}
}

// Register hands a new client to the hub. It returns false once the hub has stopped.
func (h *Hub) Register(c *Client) bool {
	select {
	case h.register <- c:
		return true
	case <-h.done:
		return false
	}
}

// Unregister tells the hub the client is gone. Safe to call after the hub stopped.
func (h *Hub) Unregister(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

// Dispatch queues an inbound message from c. It returns false once the hub has stopped.
func (h *Hub) Dispatch(c *Client, msg *protocol.Message) bool {
	select {
	case h.inbound <- inbound{client: c, msg: msg}:
		return true
	case <-h.done:
		return false
	}
}

// Done is closed after Run returns.
func (h *Hub) Done() <-chan struct{} {
	return h.done
}

// Stats reports active rooms and connections.
func (h *Hub) Stats() Stats {
	return Stats{
		Rooms:       h.directory.Snapshot(),
		Connections: h.registry.Len(),
	}
}

// Run processes registrations, disconnects and inbound commands until ctx is
// cancelled, then closes every client.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)

	for {
		select {
		case <-ctx.Done():
			h.shutdown()
			return

		case c := <-h.register:
			h.handleRegister(c)

		case c := <-h.unregister:
			h.handleUnregister(c)

		case in := <-h.inbound:
			h.handleMessage(in.client, in.msg)
		}
	}
}

func (h *Hub) handleRegister(c *Client) {
	if c.DisplayName == "" {
		c.DisplayName = wordlist.DisplayName()
	}
	c.State = StateUnjoined
	h.registry.Add(c)

	slog.Info("client registered", "conn", c.ID, "name", c.DisplayName, "addr", c.remoteAddr, "clients", h.registry.Len())

	h.emit(c, protocol.New(protocol.EventWelcome, protocol.Welcome{
		ConnectionID: c.ID,
		DisplayName:  c.DisplayName,
	}))
}

func (h *Hub) handleUnregister(c *Client) {
	if _, ok := h.registry.Get(c.ID); !ok {
		return
	}

	if c.RoomID != "" {
		h.leaveRoom(c)
	}
	h.registry.Remove(c.ID)
	c.State = StateDisconnected

	// Stops the client's WritePump.
	close(c.send)

	slog.Info("client unregistered", "conn", c.ID, "clients", h.registry.Len())
}

func (h *Hub) handleMessage(c *Client, msg *protocol.Message) {
	if _, ok := h.registry.Get(c.ID); !ok {
		return
	}

	switch msg.Type {
	case protocol.EventCreateRoom:
		if roomID, ok := roomIDPayload(msg); ok {
			h.createRoom(c, roomID)
			return
		}

	case protocol.EventJoinRoom:
		if roomID, ok := roomIDPayload(msg); ok {
			h.joinRoom(c, roomID)
			return
		}

	case protocol.EventLocationUpdate:
		h.relayLocation(c, msg)
		return

	default:
		slog.Debug("ignoring unknown event", "conn", c.ID, "type", msg.Type)
		return
	}

	slog.Debug("ignoring room command without room id", "conn", c.ID, "type", msg.Type)
}

func roomIDPayload(msg *protocol.Message) (string, bool) {
	roomID, ok := msg.StringPayload()
	return roomID, ok && roomID != ""
}

func (h *Hub) createRoom(c *Client, roomID string) {
	if err := h.directory.Create(roomID, c.ID); err != nil {
		h.rejectRoomCommand(c, roomID, err)
		return
	}

	if c.RoomID != "" {
		h.leaveRoom(c)
	}
	c.RoomID = roomID
	c.State = StateInRoom

	slog.Info("room created", "room", roomID, "conn", c.ID)
	h.emit(c, protocol.New(protocol.EventRoomCreated, roomID))
}

func (h *Hub) joinRoom(c *Client, roomID string) {
	if err := h.directory.Join(roomID, c.ID); err != nil {
		h.rejectRoomCommand(c, roomID, err)
		return
	}

	if c.RoomID != "" && c.RoomID != roomID {
		h.leaveRoom(c)
	}
	c.RoomID = roomID
	c.State = StateInRoom

	slog.Info("client joined room", "room", roomID, "conn", c.ID, "name", c.DisplayName)
	h.emit(c, protocol.New(protocol.EventRoomJoined, roomID))
	h.emitToRoom(roomID, c.ID, protocol.New(protocol.EventUserJoined, c.ID))
}

func (h *Hub) rejectRoomCommand(c *Client, roomID string, err error) {
	var text string
	switch {
	case errors.Is(err, ErrRoomExists):
		text = protocol.MsgRoomExists
	case errors.Is(err, ErrRoomNotFound):
		text = protocol.MsgRoomNotFound
	default:
		text = err.Error()
	}

	slog.Debug("room command rejected", "room", roomID, "conn", c.ID, "err", err)
	h.emit(c, protocol.New(protocol.EventRoomError, text))
}

// leaveRoom takes c out of its current room and tells whoever is left.
func (h *Hub) leaveRoom(c *Client) {
	roomID := c.RoomID
	c.RoomID = ""
	c.State = StateUnjoined

	removed, deleted := h.directory.Leave(roomID, c.ID)
	if !removed {
		return
	}
	if deleted {
		slog.Info("room deleted", "room", roomID)
		return
	}

	slog.Info("client left room", "room", roomID, "conn", c.ID)
	h.emitToRoom(roomID, c.ID, protocol.New(protocol.EventUserLeft, c.ID))
}

func (h *Hub) relayLocation(c *Client, msg *protocol.Message) {
	if c.RoomID == "" {
		return
	}
	if msg.Payload == nil {
		slog.Debug("ignoring location update without payload", "conn", c.ID)
		return
	}
	if !c.allowLocation() {
		slog.Debug("location update rate limited", "conn", c.ID)
		return
	}

	if loc, ok := msg.LocationPayload(); ok {
		c.Location = &loc
		if loc.DisplayName != "" {
			c.DisplayName = loc.DisplayName
		}
	}

	h.emitToRoom(c.RoomID, c.ID, protocol.New(protocol.EventOtherUserLocation, msg.Payload))
}

// emit queues msg for c without blocking. A full queue drops the message.
func (h *Hub) emit(c *Client, msg *protocol.Message) {
	select {
	case c.send <- msg:
	default:
		slog.Warn("send buffer full, dropping message", "conn", c.ID, "type", msg.Type)
	}
}

// emitToRoom sends msg to every member of roomID except the connection except.
func (h *Hub) emitToRoom(roomID, except string, msg *protocol.Message) {
	for _, id := range h.directory.MembersExcept(roomID, except) {
		if peer, ok := h.registry.Get(id); ok {
			h.emit(peer, msg)
		}
	}
}

func (h *Hub) shutdown() {
	clients := h.registry.All()
	slog.Info("shutting down hub", "clients", len(clients))

	for _, c := range clients {
		h.registry.Remove(c.ID)
		c.RoomID = ""
		c.State = StateDisconnected
		close(c.send)
		if c.conn != nil {
			c.conn.Close()
		}
	}
	h.directory.Reset()
}
