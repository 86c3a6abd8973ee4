package relay

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sranoldo2003/live-location/internal/protocol"
)

// echoServer answers every event with roomCreated carrying the event type.
func echoServer(t *testing.T, subprotocols []string) string {
	t.Helper()

	upgrader := websocket.Upgrader{Subprotocols: subprotocols}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		codec, err := protocol.CodecFor(conn.Subprotocol())
		if err != nil {
			return
		}
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			var msg protocol.Message
			if err := codec.Unmarshal(data, &msg); err != nil {
				return
			}
			reply, _ := codec.Marshal(protocol.New(protocol.EventRoomCreated, msg.Type))
			if err := conn.WriteMessage(codec.FrameType(), reply); err != nil {
				return
			}
		}
	}))
	t.Cleanup(srv.Close)

	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func receive(t *testing.T, c *Client) *protocol.Message {
	t.Helper()
	select {
	case msg, ok := <-c.Incoming():
		require.True(t, ok, "incoming closed")
		return msg
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for message")
		return nil
	}
}

func TestClientNegotiatesMsgpack(t *testing.T) {
	url := echoServer(t, protocol.Subprotocols())
	c := NewClient(url, protocol.Msgpack)
	require.NoError(t, c.Connect(context.Background()))
	defer c.Close()

	assert.Equal(t, protocol.SubprotocolMsgpack, c.Codec().Name())

	require.NoError(t, c.Send(protocol.EventJoinRoom, "R1"))
	msg := receive(t, c)
	assert.Equal(t, protocol.EventRoomCreated, msg.Type)
	assert.Equal(t, protocol.EventJoinRoom, msg.Payload)
}

func TestClientFallsBackToJSON(t *testing.T) {
	url := echoServer(t, nil)
	c := NewClient(url, protocol.Msgpack)
	require.NoError(t, c.Connect(context.Background()))
	defer c.Close()

	assert.Equal(t, protocol.SubprotocolJSON, c.Codec().Name())

	require.NoError(t, c.Send(protocol.EventCreateRoom, "R1"))
	assert.Equal(t, protocol.EventCreateRoom, receive(t, c).Payload)
}

func TestClientCloseEndsIncoming(t *testing.T) {
	url := echoServer(t, protocol.Subprotocols())
	c := NewClient(url, protocol.JSON)
	require.NoError(t, c.Connect(context.Background()))

	c.Close()
	c.Close()

	assert.ErrorIs(t, c.Send(protocol.EventJoinRoom, "R1"), ErrConnectionClosed)
	select {
	case _, ok := <-c.Incoming():
		assert.False(t, ok)
	case <-time.After(2 * time.Second):
		t.Fatal("incoming was not closed")
	}
}

func TestClientConnectFails(t *testing.T) {
	c := NewClient("ws://127.0.0.1:1/ws", protocol.JSON)
	err := c.Connect(context.Background())
	assert.Error(t, err)
}

func TestClientClosesWhenServerDrops(t *testing.T) {
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		conn.Close()
	}))
	defer srv.Close()

	c := NewClient("ws"+strings.TrimPrefix(srv.URL, "http"), protocol.JSON)
	require.NoError(t, c.Connect(context.Background()))

	select {
	case _, ok := <-c.Incoming():
		assert.False(t, ok)
	case <-time.After(2 * time.Second):
		t.Fatal("incoming was not closed")
	}
	assert.ErrorIs(t, c.Send(protocol.EventJoinRoom, "R1"), ErrConnectionClosed)
}
