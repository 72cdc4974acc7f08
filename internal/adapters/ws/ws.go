// Package ws attaches sketch clients to duel sessions over WebSocket.
//
// The client streams envelope-framed JSON: strokes carry the cropped
// grayscale raster plus the cumulative drawing time; control messages
// drive the round state machine. Server broadcasts reuse game.Message.
package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/okian/scrawl/internal/domain/model"
	"github.com/okian/scrawl/internal/game"
	"github.com/okian/scrawl/pkg/logger"
)

// Connection tuning constants.
const (
	sendBuffer     = 16
	maxMessageSize = 1 << 20 // rasters are base64-encoded JSON
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
)

var upgrader = websocket.Upgrader{ //nolint:gochecknoglobals // shared stateless upgrader
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(_ *http.Request) bool {
		// Clients join via QR-scanned URLs from arbitrary origins.
		return true
	},
}

// Envelope frames every client→server message.
type Envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// Client→server message types.
const (
	TypeStart  = "start"
	TypeAgain  = "again"
	TypeExit   = "exit"
	TypeSkip   = "skip"
	TypeStroke = "stroke"
)

// StrokePayload mirrors the client's canvas state.
type StrokePayload struct {
	Sketch *model.Raster `json:"sketch"`
	DrawMS int64         `json:"draw_ms"`
}

// Client is one attached WebSocket connection; it implements game.Sink.
type Client struct {
	conn   *websocket.Conn
	send   chan game.Message
	closed sync.Once
	logger logger.Logger
}

// Send queues a broadcast without blocking; false means the client is
// wedged and should be dropped.
func (c *Client) Send(msg game.Message) bool {
	select {
	case c.send <- msg:
		return true
	default:
		return false
	}
}

// CloseSend stops the write pump. Called only from the session run
// loop, so it cannot race Send.
func (c *Client) CloseSend() {
	c.closed.Do(func() { close(c.send) })
}

// Serve upgrades the request and pumps messages between the connection
// and the session until either side goes away.
func Serve(ctx context.Context, w http.ResponseWriter, r *http.Request, sess *game.Session) error {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return fmt.Errorf("websocket upgrade: %w", err)
	}

	client := &Client{
		conn:   conn,
		send:   make(chan game.Message, sendBuffer),
		logger: logger.Get().Named("ws"),
	}

	sess.Attach(client)

	go client.writePump()
	client.readPump(ctx, sess)
	return nil
}

// readPump decodes envelopes and dispatches them as session commands.
func (c *Client) readPump(ctx context.Context, sess *game.Session) {
	defer func() {
		sess.Detach(c)
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var env Envelope
		if err := c.conn.ReadJSON(&env); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Debug(ctx, "read failed", logger.Error(err))
			}
			return
		}

		switch env.Type {
		case TypeStart:
			sess.Start(ctx)
		case TypeAgain:
			sess.Again(ctx)
		case TypeExit:
			sess.Exit(ctx)
		case TypeSkip:
			sess.Skip(ctx)
		case TypeStroke:
			c.handleStroke(ctx, sess, env.Data)
		default:
			// ignore unknown types
		}
	}
}

// handleStroke validates and forwards one canvas update.
func (c *Client) handleStroke(ctx context.Context, sess *game.Session, data json.RawMessage) {
	var stroke StrokePayload
	if err := json.Unmarshal(data, &stroke); err != nil {
		c.logger.Warn(ctx, "malformed stroke", logger.Error(err))
		return
	}
	if err := stroke.Sketch.Validate(); err != nil {
		c.logger.Warn(ctx, "invalid stroke raster", logger.Error(err))
		return
	}
	sess.Stroke(stroke.Sketch, stroke.DrawMS)
}

// writePump serializes broadcasts onto the wire and keeps the
// connection alive with pings.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
