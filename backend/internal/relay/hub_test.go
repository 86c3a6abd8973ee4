package relay

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sranoldo2003/live-location/internal/protocol"
)

func newTestHub(opts Options) *Hub {
	return NewHub(NewDirectory(), opts)
}

// connect registers a transport-less client and consumes its welcome message.
func connect(t *testing.T, h *Hub) *Client {
	t.Helper()

	c := NewClient(h, nil, protocol.JSON, "test")
	h.handleRegister(c)

	welcome := next(t, c)
	require.Equal(t, protocol.EventWelcome, welcome.Type)
	return c
}

func next(t *testing.T, c *Client) *protocol.Message {
	t.Helper()

	select {
	case msg := <-c.send:
		return msg
	default:
		t.Fatalf("expected a message for %s", c.ID)
		return nil
	}
}

func assertSilent(t *testing.T, c *Client) {
	t.Helper()

	select {
	case msg := <-c.send:
		t.Fatalf("unexpected %s message for %s: %v", msg.Type, c.ID, msg.Payload)
	default:
	}
}

func send(h *Hub, c *Client, eventType string, payload any) {
	h.handleMessage(c, protocol.New(eventType, payload))
}

func locationPayload(c *Client, lat, lon float64) map[string]any {
	return map[string]any{"lat": lat, "lon": lon, "connectionId": c.ID}
}

func TestWelcomeCarriesIdentity(t *testing.T) {
	h := newTestHub(Options{})
	c := NewClient(h, nil, nil, "test")
	h.handleRegister(c)

	msg := next(t, c)
	require.Equal(t, protocol.EventWelcome, msg.Type)
	welcome := msg.Payload.(protocol.Welcome)
	assert.Equal(t, c.ID, welcome.ConnectionID)
	assert.NotEmpty(t, welcome.DisplayName)
	assert.Equal(t, StateUnjoined, c.State)
}

func TestScenarioCreateJoinRelayLeave(t *testing.T) {
	h := newTestHub(Options{})
	a := connect(t, h)
	b := connect(t, h)

	send(h, a, protocol.EventCreateRoom, "R1")
	msg := next(t, a)
	assert.Equal(t, protocol.EventRoomCreated, msg.Type)
	assert.Equal(t, "R1", msg.Payload)
	assert.Equal(t, StateInRoom, a.State)

	send(h, b, protocol.EventJoinRoom, "R1")
	msg = next(t, b)
	assert.Equal(t, protocol.EventRoomJoined, msg.Type)
	assert.Equal(t, "R1", msg.Payload)
	msg = next(t, a)
	assert.Equal(t, protocol.EventUserJoined, msg.Type)
	assert.Equal(t, b.ID, msg.Payload)
	assertSilent(t, b)

	loc := locationPayload(b, 1, 2)
	send(h, b, protocol.EventLocationUpdate, loc)
	msg = next(t, a)
	assert.Equal(t, protocol.EventOtherUserLocation, msg.Type)
	assert.Equal(t, loc, msg.Payload)
	assertSilent(t, b)

	h.handleUnregister(b)
	msg = next(t, a)
	assert.Equal(t, protocol.EventUserLeft, msg.Type)
	assert.Equal(t, b.ID, msg.Payload)
	assert.True(t, h.directory.Exists("R1"))
	assert.Equal(t, StateDisconnected, b.State)

	h.handleUnregister(a)
	assert.False(t, h.directory.Exists("R1"))
	assert.Zero(t, h.registry.Len())
}

func TestCreateExistingRoomIsRejected(t *testing.T) {
	h := newTestHub(Options{})
	a := connect(t, h)
	b := connect(t, h)
	c := connect(t, h)

	send(h, a, protocol.EventCreateRoom, "R1")
	next(t, a)
	send(h, b, protocol.EventJoinRoom, "R1")
	next(t, b)
	next(t, a)

	send(h, c, protocol.EventCreateRoom, "R1")

	msg := next(t, c)
	assert.Equal(t, protocol.EventRoomError, msg.Type)
	assert.Equal(t, protocol.MsgRoomExists, msg.Payload)
	assertSilent(t, a)
	assertSilent(t, b)
	assert.Equal(t, StateUnjoined, c.State)
	assert.Empty(t, c.RoomID)
	assert.Equal(t, []string{b.ID}, h.directory.MembersExcept("R1", a.ID))
}

func TestJoinMissingRoomIsRejected(t *testing.T) {
	h := newTestHub(Options{})
	a := connect(t, h)

	send(h, a, protocol.EventJoinRoom, "ghost")

	msg := next(t, a)
	assert.Equal(t, protocol.EventRoomError, msg.Type)
	assert.Equal(t, protocol.MsgRoomNotFound, msg.Payload)
	assert.False(t, h.directory.Exists("ghost"))
	assert.Equal(t, StateUnjoined, a.State)
}

func TestLocationWithoutRoomIsDropped(t *testing.T) {
	h := newTestHub(Options{})
	a := connect(t, h)
	b := connect(t, h)

	send(h, b, protocol.EventCreateRoom, "R1")
	next(t, b)

	send(h, a, protocol.EventLocationUpdate, locationPayload(a, 1, 2))

	assertSilent(t, a)
	assertSilent(t, b)
	assert.Nil(t, a.Location)
}

func TestLastMemberDisconnectDeletesRoomSilently(t *testing.T) {
	h := newTestHub(Options{})
	a := connect(t, h)
	watcher := connect(t, h)

	send(h, a, protocol.EventCreateRoom, "R1")
	next(t, a)

	h.handleUnregister(a)

	assert.False(t, h.directory.Exists("R1"))
	assertSilent(t, watcher)

	_, open := <-a.send
	assert.False(t, open, "send channel must be closed on disconnect")
}

func TestUnjoinedDisconnectEmitsNothing(t *testing.T) {
	h := newTestHub(Options{})
	a := connect(t, h)
	b := connect(t, h)
	send(h, b, protocol.EventCreateRoom, "R1")
	next(t, b)

	h.handleUnregister(a)
	h.handleUnregister(a)

	assertSilent(t, b)
	assert.Equal(t, 1, h.registry.Len())
}

func TestRejoinSameRoomIsIdempotent(t *testing.T) {
	h := newTestHub(Options{})
	a := connect(t, h)
	b := connect(t, h)
	send(h, a, protocol.EventCreateRoom, "R1")
	next(t, a)
	send(h, b, protocol.EventJoinRoom, "R1")
	next(t, b)
	next(t, a)

	send(h, b, protocol.EventJoinRoom, "R1")

	assert.Equal(t, protocol.EventRoomJoined, next(t, b).Type)
	assert.Equal(t, protocol.EventUserJoined, next(t, a).Type)
	assert.Equal(t, []string{b.ID}, h.directory.MembersExcept("R1", a.ID))
}

func TestJoinAnotherRoomMovesConnection(t *testing.T) {
	h := newTestHub(Options{})
	a := connect(t, h)
	b := connect(t, h)
	c := connect(t, h)

	send(h, a, protocol.EventCreateRoom, "R1")
	next(t, a)
	send(h, b, protocol.EventCreateRoom, "R2")
	next(t, b)
	send(h, c, protocol.EventJoinRoom, "R1")
	next(t, c)
	next(t, a)

	send(h, c, protocol.EventJoinRoom, "R2")

	assert.Equal(t, protocol.EventRoomJoined, next(t, c).Type)
	left := next(t, a)
	assert.Equal(t, protocol.EventUserLeft, left.Type)
	assert.Equal(t, c.ID, left.Payload)
	assert.Equal(t, protocol.EventUserJoined, next(t, b).Type)
	assert.Equal(t, "R2", c.RoomID)
	assert.Empty(t, h.directory.MembersExcept("R1", a.ID))

	// Location now only reaches the new room.
	send(h, c, protocol.EventLocationUpdate, locationPayload(c, 3, 4))
	assert.Equal(t, protocol.EventOtherUserLocation, next(t, b).Type)
	assertSilent(t, a)
}

func TestFailedJoinKeepsCurrentRoom(t *testing.T) {
	h := newTestHub(Options{})
	a := connect(t, h)
	send(h, a, protocol.EventCreateRoom, "R1")
	next(t, a)

	send(h, a, protocol.EventJoinRoom, "ghost")

	assert.Equal(t, protocol.EventRoomError, next(t, a).Type)
	assert.Equal(t, "R1", a.RoomID)
	assert.True(t, h.directory.Exists("R1"))
}

func TestCreateWhileInRoomLeavesPrevious(t *testing.T) {
	h := newTestHub(Options{})
	a := connect(t, h)
	send(h, a, protocol.EventCreateRoom, "R1")
	next(t, a)

	send(h, a, protocol.EventCreateRoom, "R2")

	assert.Equal(t, protocol.EventRoomCreated, next(t, a).Type)
	assert.False(t, h.directory.Exists("R1"))
	assert.Equal(t, "R2", a.RoomID)
}

func TestLocationUpdatesRecord(t *testing.T) {
	h := newTestHub(Options{})
	a := connect(t, h)
	b := connect(t, h)
	send(h, a, protocol.EventCreateRoom, "R1")
	next(t, a)
	send(h, b, protocol.EventJoinRoom, "R1")
	next(t, b)
	next(t, a)

	payload := locationPayload(b, 48.85, 2.35)
	payload["displayName"] = "bea"
	send(h, b, protocol.EventLocationUpdate, payload)

	require.NotNil(t, b.Location)
	assert.Equal(t, 48.85, b.Location.Lat)
	assert.Equal(t, 2.35, b.Location.Lon)
	assert.Equal(t, "bea", b.DisplayName)
	assert.Equal(t, payload, next(t, a).Payload)
}

func TestMalformedCommandsAreIgnored(t *testing.T) {
	h := newTestHub(Options{})
	a := connect(t, h)
	b := connect(t, h)
	send(h, b, protocol.EventCreateRoom, "R1")
	next(t, b)

	send(h, a, protocol.EventCreateRoom, "")
	send(h, a, protocol.EventCreateRoom, 42.0)
	send(h, a, protocol.EventJoinRoom, nil)
	send(h, a, "shout", "hello")
	assertSilent(t, a)

	send(h, a, protocol.EventJoinRoom, "R1")
	next(t, a)
	next(t, b)

	send(h, a, protocol.EventLocationUpdate, nil)
	assertSilent(t, b)
	assert.Equal(t, 1, h.directory.Len())
}

func TestLocationPayloadOfAnyShapeIsForwarded(t *testing.T) {
	h := newTestHub(Options{})
	a := connect(t, h)
	b := connect(t, h)
	send(h, a, protocol.EventCreateRoom, "R1")
	next(t, a)
	send(h, b, protocol.EventJoinRoom, "R1")
	next(t, b)
	next(t, a)

	for _, payload := range []any{"just text", 42.0, []any{1.0, 2.0}} {
		send(h, b, protocol.EventLocationUpdate, payload)

		msg := next(t, a)
		assert.Equal(t, protocol.EventOtherUserLocation, msg.Type)
		assert.Equal(t, payload, msg.Payload)
	}
	assert.Nil(t, b.Location, "only object payloads with coordinates update the record")
}

func TestDefaultOptionsDoNotLimitLocations(t *testing.T) {
	h := newTestHub(DefaultOptions())
	a := connect(t, h)
	b := connect(t, h)
	send(h, a, protocol.EventCreateRoom, "R1")
	next(t, a)
	send(h, b, protocol.EventJoinRoom, "R1")
	next(t, b)
	next(t, a)

	const updates = 50
	for i := 0; i < updates; i++ {
		send(h, b, protocol.EventLocationUpdate, locationPayload(b, float64(i), 0))
	}

	require.Len(t, a.send, updates)
	for i := 0; i < updates; i++ {
		msg := next(t, a)
		assert.Equal(t, float64(i), msg.Payload.(map[string]any)["lat"])
	}
}

func TestLocationRateLimit(t *testing.T) {
	h := newTestHub(Options{LocationRate: 0.001, LocationBurst: 2})
	a := connect(t, h)
	b := connect(t, h)
	send(h, a, protocol.EventCreateRoom, "R1")
	next(t, a)
	send(h, b, protocol.EventJoinRoom, "R1")
	next(t, b)
	next(t, a)

	for i := 0; i < 5; i++ {
		send(h, b, protocol.EventLocationUpdate, locationPayload(b, float64(i), 0))
	}

	assert.Equal(t, 2, len(a.send))
}

func TestFullSendBufferDropsMessage(t *testing.T) {
	h := newTestHub(Options{SendBuffer: 1})
	a := connect(t, h)

	send(h, a, protocol.EventJoinRoom, "ghost")
	send(h, a, protocol.EventJoinRoom, "ghost")

	assert.Equal(t, protocol.EventRoomError, next(t, a).Type)
	assertSilent(t, a)
}

func TestStats(t *testing.T) {
	h := newTestHub(Options{})
	a := connect(t, h)
	connect(t, h)
	send(h, a, protocol.EventCreateRoom, "R1")

	stats := h.Stats()
	assert.Equal(t, 2, stats.Connections)
	assert.Equal(t, []RoomInfo{{ID: "R1", Members: 1}}, stats.Rooms)
}

func TestRunLoopAndShutdown(t *testing.T) {
	h := newTestHub(Options{})
	ctx, cancel := context.WithCancel(context.Background())
	go h.Run(ctx)

	a := NewClient(h, nil, protocol.JSON, "test")
	b := NewClient(h, nil, protocol.JSON, "test")
	require.True(t, h.Register(a))
	require.True(t, h.Register(b))

	require.True(t, h.Dispatch(a, protocol.New(protocol.EventCreateRoom, "R1")))
	require.True(t, h.Dispatch(b, protocol.New(protocol.EventJoinRoom, "R1")))

	expect := func(c *Client, eventType string) {
		t.Helper()
		select {
		case msg := <-c.Outbox():
			assert.Equal(t, eventType, msg.Type)
		case <-time.After(time.Second):
			t.Fatalf("timed out waiting for %s", eventType)
		}
	}
	expect(a, protocol.EventWelcome)
	expect(a, protocol.EventRoomCreated)
	expect(a, protocol.EventUserJoined)
	expect(b, protocol.EventWelcome)
	expect(b, protocol.EventRoomJoined)

	cancel()
	select {
	case <-h.Done():
	case <-time.After(time.Second):
		t.Fatal("hub did not stop")
	}

	assert.False(t, h.Register(NewClient(h, nil, protocol.JSON, "late")))
	assert.False(t, h.Dispatch(a, protocol.New(protocol.EventJoinRoom, "R1")))
	h.Unregister(a)

	_, open := <-a.Outbox()
	assert.False(t, open)
	assert.Zero(t, h.directory.Len())
}
