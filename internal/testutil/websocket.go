package testutil

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

// Message is any server message: a typed response, a broadcast or an error.
type Message struct {
	Type    string          `json:"type"`
	ID      string          `json:"id,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
	Error   string          `json:"error,omitempty"`
	Message string          `json:"message,omitempty"`
	Code    string          `json:"code,omitempty"`
}

// WSClient is a WebSocket test client. Frames may carry several
// newline-separated messages; the client hands them out one at a time.
type WSClient struct {
	t       testing.TB
	conn    *websocket.Conn
	pending []Message
	seq     int
}

// DialWebSocket connects to path on an httptest server URL.
func DialWebSocket(t testing.TB, serverURL, path string) *WSClient {
	t.Helper()
	wsURL := strings.Replace(serverURL, "http://", "ws://", 1) + path

	dialer := &websocket.Dialer{
		HandshakeTimeout: 5 * time.Second,
	}
	conn, resp, err := dialer.Dial(wsURL, http.Header{})
	if err != nil {
		t.Fatalf("Failed to connect WebSocket: %v", err)
	}
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	return &WSClient{t: t, conn: conn}
}

// Close closes the connection.
func (c *WSClient) Close() {
	_ = c.conn.Close()
}

// Send writes a message and returns the id it was given.
func (c *WSClient) Send(msgType string, data any) string {
	c.t.Helper()
	c.seq++
	id := fmt.Sprintf("test-%d", c.seq)
	c.SendRaw(msgType, id, data)
	return id
}

// SendRaw writes a message with an explicit id.
func (c *WSClient) SendRaw(msgType, id string, data any) {
	c.t.Helper()
	msg := Message{Type: msgType, ID: id}
	if data != nil {
		dataBytes, err := json.Marshal(data)
		if err != nil {
			c.t.Fatalf("failed to marshal message data: %v", err)
		}
		msg.Data = dataBytes
	}
	msgBytes, err := json.Marshal(msg)
	if err != nil {
		c.t.Fatalf("failed to marshal message: %v", err)
	}
	c.WriteText(msgBytes)
}

// WriteText writes raw bytes as one text frame.
func (c *WSClient) WriteText(payload []byte) {
	c.t.Helper()
	if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
		c.t.Fatalf("failed to write message: %v", err)
	}
}

// Next returns the next message. A read timeout leaves the connection
// unusable, so callers should only let it expire at the end of a test.
func (c *WSClient) Next(timeout time.Duration) (Message, error) {
	for len(c.pending) == 0 {
		_ = c.conn.SetReadDeadline(time.Now().Add(timeout))
		_, frame, err := c.conn.ReadMessage()
		if err != nil {
			return Message{}, fmt.Errorf("failed to read message: %w", err)
		}
		for _, line := range bytes.Split(frame, []byte{'\n'}) {
			if len(bytes.TrimSpace(line)) == 0 {
				continue
			}
			var msg Message
			if err := json.Unmarshal(line, &msg); err != nil {
				return Message{}, fmt.Errorf("failed to unmarshal message: %w", err)
			}
			c.pending = append(c.pending, msg)
		}
	}
	msg := c.pending[0]
	c.pending = c.pending[1:]
	return msg, nil
}

// WaitFor skips messages until one of msgType arrives.
func (c *WSClient) WaitFor(msgType string, timeout time.Duration) (Message, error) {
	deadline := time.Now().Add(timeout)
	for {
		msg, err := c.Next(time.Until(deadline))
		if err != nil {
			return Message{}, fmt.Errorf("timeout waiting for message type %s: %w", msgType, err)
		}
		if msg.Type == msgType {
			return msg, nil
		}
	}
}

// WaitForID skips messages until the response to request id arrives.
func (c *WSClient) WaitForID(id string, timeout time.Duration) (Message, error) {
	deadline := time.Now().Add(timeout)
	for {
		msg, err := c.Next(time.Until(deadline))
		if err != nil {
			return Message{}, fmt.Errorf("timeout waiting for response to %s: %w", id, err)
		}
		if msg.ID == id {
			return msg, nil
		}
	}
}

// Request sends a message and waits for its response.
func (c *WSClient) Request(msgType string, data any, timeout time.Duration) Message {
	c.t.Helper()
	id := c.Send(msgType, data)
	msg, err := c.WaitForID(id, timeout)
	if err != nil {
		c.t.Fatalf("%s: %v", msgType, err)
	}
	return msg
}

// Drain collects every message that arrives within d. The connection cannot
// be read again afterwards.
func (c *WSClient) Drain(d time.Duration) []Message {
	var out []Message
	deadline := time.Now().Add(d)
	for {
		msg, err := c.Next(time.Until(deadline))
		if err != nil {
			return out
		}
		out = append(out, msg)
	}
}

// Decode unmarshals msg.Data into v.
func Decode(t testing.TB, msg Message, v any) {
	t.Helper()
	if err := json.Unmarshal(msg.Data, v); err != nil {
		t.Fatalf("failed to decode %s data: %v", msg.Type, err)
	}
}
