package engine

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/littlebee/portalbot/internal/logging"
	"github.com/littlebee/portalbot/internal/metrics"
)

const (
	writeWait  = 10 * time.Second
	sendBuffer = 16

	textMessage = 1 // websocket.TextMessage; avoids importing gorilla/websocket here so fakes in tests stay dependency-free
)

// wsConnection is the subset of *websocket.Conn the engine depends on,
// so tests can supply a fake without opening a real socket.
type wsConnection interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	Close() error
	SetWriteDeadline(t time.Time) error
}

// Client is one live connection: a human operator or a (possibly not yet
// authenticated) robot. Role, SpaceID and RobotID are mutated only while
// the Engine's mutex is held.
type Client struct {
	ID   string
	conn wsConnection
	send chan []byte

	engine *Engine

	Role    Role
	SpaceID string
	// RobotID is set only once this client has successfully authenticated
	// as a robot via robot_identify.
	RobotID string
}

func newClient(id string, conn wsConnection, e *Engine) *Client {
	return &Client{
		ID:     id,
		conn:   conn,
		send:   make(chan []byte, sendBuffer),
		engine: e,
		Role:   RoleUnknown,
	}
}

// readPump reads frames off the socket and dispatches them until the
// connection fails or is closed, then runs the disconnect cascade exactly
// once.
func (c *Client) readPump() {
	ctx := context.Background()
	defer func() {
		c.engine.handleDisconnect(c)
		_ = c.conn.Close()
		metrics.DecConnection()
	}()

	for {
		frameType, data, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		if frameType != textMessage {
			continue
		}

		var env envelope
		if err := json.Unmarshal(data, &env); err != nil {
			c.sendError(ctx, "Invalid JSON")
			continue
		}
		if len(env.Data) == 0 {
			env.Data = []byte("{}")
		}

		c.engine.dispatch(ctx, c, env.Type, env.Data)
	}
}

// writePump drains the outbound queue to the socket. Exits (and closes the
// connection) when the channel is closed by the engine during cleanup.
func (c *Client) writePump() {
	defer func() {
		_ = c.conn.Close()
	}()

	for msg := range c.send {
		_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteMessage(textMessage, msg); err != nil {
			return
		}
	}
}

// enqueue performs a non-blocking send to this client; a full buffer means
// the peer is not keeping up and is treated as "will disconnect soon" —
// the failure is logged, never retried.
func (c *Client) enqueue(ctx context.Context, msgType string, payload any) {
	msg, err := json.Marshal(outbound{Type: msgType, Data: payload})
	if err != nil {
		logging.Error(ctx, "failed to marshal outbound message", zap.String("type", msgType), zap.Error(err))
		return
	}

	select {
	case c.send <- msg:
	default:
		logging.Warn(ctx, "dropping outbound message, client send buffer full",
			zap.String("client_id", c.ID), zap.String("type", msgType))
	}
}

func (c *Client) sendError(ctx context.Context, message string) {
	c.enqueue(ctx, TypeError, errorPayload{Message: message})
}
