package publisher

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/gorilla/websocket"
)

// Frame is what the WebSocket publisher writes for each reading.
type Frame struct {
	Topic   string          `json:"topic"`
	QoS     QoS             `json:"qos"`
	Payload json.RawMessage `json:"payload"`
}

// WebSocket publishes readings as JSON frames over one connection.
type WebSocket struct {
	conn    *websocket.Conn
	timeout time.Duration
}

// DialWebSocket opens the connection used by one sensor.
func DialWebSocket(ctx context.Context, url string, timeout time.Duration) (*WebSocket, error) {
	dialer := websocket.Dialer{HandshakeTimeout: timeout}
	conn, _, err := dialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", url, err)
	}
	return &WebSocket{conn: conn, timeout: timeout}, nil
}

// Publish writes one frame. payload must be valid JSON.
func (w *WebSocket) Publish(ctx context.Context, topic string, payload []byte, qos QoS) error {
	if err := Validate(topic, qos); err != nil {
		return err
	}
	if !json.Valid(payload) {
		return fmt.Errorf("payload for topic %s is not valid JSON", topic)
	}

	deadline := time.Time{}
	if w.timeout > 0 {
		deadline = time.Now().Add(w.timeout)
	}
	if d, ok := ctx.Deadline(); ok && (deadline.IsZero() || d.Before(deadline)) {
		deadline = d
	}
	if err := w.conn.SetWriteDeadline(deadline); err != nil {
		return fmt.Errorf("error setting write deadline: %w", err)
	}

	frame := Frame{Topic: topic, QoS: qos, Payload: payload}
	if err := w.conn.WriteJSON(frame); err != nil {
		return fmt.Errorf("failed to publish to topic %s: %w", topic, err)
	}
	return nil
}

// Close sends a close frame and closes the connection.
func (w *WebSocket) Close() error {
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	_ = w.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
	return w.conn.Close()
}
