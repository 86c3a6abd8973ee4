package cmd

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/sranoldo2003/live-location/cli/internal/config"
	"github.com/sranoldo2003/live-location/cli/internal/relay"
	"github.com/sranoldo2003/live-location/cli/internal/ui"
	"github.com/sranoldo2003/live-location/internal/protocol"
)

// replyTimeout bounds how long the relay may take to answer a room command.
const replyTimeout = 10 * time.Second

// newReconnectBackOff paces redial attempts. It never gives up on its own;
// the caller's context ends the loop.
var newReconnectBackOff = func() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond
	b.MaxInterval = 10 * time.Second
	b.MaxElapsedTime = 0
	return b
}

// ConnectionContext is an open relay connection and what we know about ourselves.
// Client, Handler and Self are replaced by Reconnect.
type ConnectionContext struct {
	Client  *relay.Client
	Handler *relay.Handler
	Config  *config.Config
	Self    protocol.Welcome
	RoomID  string
}

// NewConnectionContext dials the relay and waits for the welcome that
// carries our connection id.
func NewConnectionContext(ctx context.Context, cfg *config.Config) (*ConnectionContext, error) {
	sp := ui.NewConnectionSpinner("Connecting to " + cfg.ServerURL + "...")
	sp.Start()

	conn := &ConnectionContext{Config: cfg}
	if err := conn.dial(ctx); err != nil {
		sp.Fail("Could not reach " + cfg.ServerURL)
		return nil, err
	}

	sp.Success("Connected as " + ui.PeerStyle.Render(conn.Self.DisplayName))
	return conn, nil
}

// dial opens a fresh connection and waits for its welcome.
func (c *ConnectionContext) dial(ctx context.Context) error {
	client := relay.NewClient(c.Config.ServerURL, c.Config.Codec)
	if err := client.Connect(ctx); err != nil {
		return relay.NewError("connect to server", err)
	}

	handler := relay.NewHandler(client.Incoming())
	go handler.Start()

	select {
	case self := <-handler.Welcome:
		c.Client, c.Handler, c.Self = client, handler, self
		return nil
	case <-handler.Done():
		client.Close()
		return relay.NewError("connect to server", relay.ErrConnectionClosed)
	case <-time.After(replyTimeout):
		client.Close()
		return relay.NewError("wait for welcome", relay.ErrTimeout)
	case <-ctx.Done():
		client.Close()
		return ctx.Err()
	}
}

// Reconnect replaces a dropped connection. It redials with exponential
// backoff until ctx ends, then joins RoomID again. A room that emptied and
// was deleted while we were away is created again under the same id.
func (c *ConnectionContext) Reconnect(ctx context.Context) error {
	c.Close()

	attempt := 0
	return backoff.RetryNotify(func() error {
		attempt++
		return c.reconnectOnce(ctx)
	}, backoff.WithContext(newReconnectBackOff(), ctx), func(err error, wait time.Duration) {
		slog.Warn("reconnect failed", "attempt", attempt, "retry_in", wait, "err", err)
	})
}

func (c *ConnectionContext) reconnectOnce(ctx context.Context) error {
	if err := c.dial(ctx); err != nil {
		return err
	}
	if c.RoomID == "" {
		return nil
	}

	err := c.request(ctx, "rejoin room", protocol.EventJoinRoom, c.RoomID, c.Handler.RoomJoined)
	if errors.Is(err, relay.ErrServer) {
		err = c.request(ctx, "recreate room", protocol.EventCreateRoom, c.RoomID, c.Handler.RoomCreated)
	}
	if err != nil {
		c.Close()
		return err
	}

	slog.Info("rejoined room", "room", c.RoomID, "conn", c.Self.ConnectionID)
	return nil
}

func (c *ConnectionContext) Close() {
	if c.Client != nil {
		c.Client.Close()
	}
}

func LoadConfig() (*config.Config, error) {
	cfg, err := config.Load(config.Options{
		Server: flagServer,
		Codec:  flagCodec,
	})
	if err != nil {
		return nil, relay.NewError("load config", err)
	}
	return cfg, nil
}

// CreateRoom asks the relay for a new room and waits for the answer.
func (c *ConnectionContext) CreateRoom(ctx context.Context, roomID string) error {
	stopSpinner := ui.RunWaitingSpinner("Waiting for the relay...")
	defer stopSpinner()

	return c.request(ctx, "create room", protocol.EventCreateRoom, roomID, c.Handler.RoomCreated)
}

// JoinRoom joins an existing room and waits for the answer.
func (c *ConnectionContext) JoinRoom(ctx context.Context, roomID string) error {
	stopSpinner := ui.RunWaitingSpinner("Waiting for the relay...")
	defer stopSpinner()

	return c.request(ctx, "join room", protocol.EventJoinRoom, roomID, c.Handler.RoomJoined)
}

// request sends a room command and waits for its reply on ok, a roomError,
// or the end of the connection.
func (c *ConnectionContext) request(ctx context.Context, op, event, roomID string, ok <-chan string) error {
	if err := c.Client.Send(event, roomID); err != nil {
		return relay.NewError(op, err)
	}

	select {
	case id := <-ok:
		c.RoomID = id
		return nil
	case errMsg := <-c.Handler.Error:
		return relay.WrapError(op, relay.ErrServer, errMsg)
	case <-c.Handler.Done():
		return relay.NewError(op, relay.ErrConnectionClosed)
	case <-time.After(replyTimeout):
		return relay.NewError(op, relay.ErrTimeout)
	case <-ctx.Done():
		return ctx.Err()
	}
}

// EnterRoom creates or joins roomID and prints the room banner.
func (c *ConnectionContext) EnterRoom(ctx context.Context, roomID string, create bool) error {
	var err error
	if create {
		err = c.CreateRoom(ctx, roomID)
	} else {
		err = c.JoinRoom(ctx, roomID)
	}
	if err != nil {
		return err
	}

	printRoomBox(c.RoomID, create)
	return nil
}
