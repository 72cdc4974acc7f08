package duelbot

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/okian/scrawl/internal/domain/model"
)

// HTTPClient wraps http.Client with timeout.
type HTTPClient struct {
	client *http.Client
}

// newHTTPClient creates a new HTTP client with timeout.
func newHTTPClient(timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		client: &http.Client{
			Timeout: timeout,
		},
	}
}

// checkHealth verifies the service is reachable.
func (c *HTTPClient) checkHealth(ctx context.Context, baseURL string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"/healthz", http.NoBody)
	if err != nil {
		return fmt.Errorf("building health request: %w", err)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("connecting to service: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck // drained below

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

// createDuel opens a fresh duel session.
func (c *HTTPClient) createDuel(ctx context.Context, baseURL string) (DuelInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, baseURL+"/duels", http.NoBody)
	if err != nil {
		return DuelInfo{}, fmt.Errorf("building create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return DuelInfo{}, fmt.Errorf("creating duel: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck // decoded below

	if resp.StatusCode != http.StatusCreated {
		return DuelInfo{}, fmt.Errorf("creating duel returned status %d", resp.StatusCode)
	}

	var info DuelInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return DuelInfo{}, fmt.Errorf("decoding duel info: %w", err)
	}
	return info, nil
}

// getLeaderboard fetches the current standings.
func (c *HTTPClient) getLeaderboard(ctx context.Context, baseURL string) ([]Entry, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"/leaderboard", http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("building leaderboard request: %w", err)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching leaderboard: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck // decoded below

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("leaderboard returned status %d", resp.StatusCode)
	}

	var entries []Entry
	if err := json.NewDecoder(resp.Body).Decode(&entries); err != nil {
		return nil, fmt.Errorf("decoding leaderboard: %w", err)
	}
	return entries, nil
}

// wsURL derives the WebSocket endpoint for a duel. Absolute ws_url
// values from the server win; relative ones are grafted onto the base.
func wsURL(baseURL string, info DuelInfo) string {
	if strings.HasPrefix(info.WSURL, "ws") {
		return info.WSURL
	}
	wsBase := "ws" + strings.TrimPrefix(baseURL, "http")
	if info.WSURL != "" {
		return wsBase + info.WSURL
	}
	return wsBase + "/ws/" + info.ID
}

// envelope frames every bot→server message.
type envelope struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
}

// strokePayload mirrors the sketch client's canvas update.
type strokePayload struct {
	Sketch *model.Raster `json:"sketch"`
	DrawMS int64         `json:"draw_ms"`
}

// serverMessage is one decoded broadcast from the session.
type serverMessage struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// botConn is the bot's end of a duel WebSocket.
type botConn struct {
	conn *websocket.Conn
}

// dialDuel attaches to the duel's WebSocket endpoint.
func dialDuel(ctx context.Context, baseURL string, info DuelInfo) (*botConn, error) {
	url := wsURL(baseURL, info)
	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if resp != nil {
		defer resp.Body.Close() //nolint:errcheck // error path only
	}
	if err != nil {
		return nil, fmt.Errorf("dialing %s: %w", url, err)
	}
	return &botConn{conn: conn}, nil
}

// sendControl sends a bare control envelope (start, again, skip, exit).
func (b *botConn) sendControl(msgType string) error {
	if err := b.conn.WriteJSON(envelope{Type: msgType}); err != nil {
		return fmt.Errorf("sending %s: %w", msgType, err)
	}
	return nil
}

// sendStroke mirrors the synthetic canvas to the session.
func (b *botConn) sendStroke(sketch *model.Raster, drawMS int64) error {
	env := envelope{Type: "stroke", Data: strokePayload{Sketch: sketch, DrawMS: drawMS}}
	if err := b.conn.WriteJSON(env); err != nil {
		return fmt.Errorf("sending stroke: %w", err)
	}
	return nil
}

// messages starts the read pump; the channel closes when the connection
// drops.
func (b *botConn) messages() <-chan serverMessage {
	out := make(chan serverMessage, 32)
	go func() {
		defer close(out)
		for {
			var msg serverMessage
			if err := b.conn.ReadJSON(&msg); err != nil {
				return
			}
			out <- msg
		}
	}()
	return out
}

// close tears the connection down.
func (b *botConn) close() {
	_ = b.conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	_ = b.conn.Close()
}
