// pkg/network/client.go
package network

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/opd-ai/go-carsoccer/pkg/engine"
	"github.com/opd-ai/go-carsoccer/pkg/logging"
	"github.com/opd-ai/go-carsoccer/pkg/validation"
)

// ErrNotConnected is returned when sending on a closed client
var ErrNotConnected = errors.New("not connected")

// StreamClient is a remote spectator: it receives match snapshots and can send key events
type StreamClient struct {
	conn      *websocket.Conn
	sessionID string
	states    chan *engine.MatchState
	errors    chan string
	logger    *logging.Logger

	writeMu      sync.Mutex
	writeTimeout time.Duration

	mu        sync.Mutex
	connected bool
	latency   time.Duration
	pingSent  time.Time
	done      chan struct{}
}

// Dial connects to a stream server's websocket URL (ws://host:port/ws) and waits for the welcome envelope
func Dial(ctx context.Context, url string, logger *logging.Logger) (*StreamClient, error) {
	if logger == nil {
		logger = logging.NewLogger()
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to stream server: %w", err)
	}

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetReadDeadline(deadline)
	}
	var welcome ServerEnvelope
	if err := conn.ReadJSON(&welcome); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to read welcome: %w", err)
	}
	if welcome.Type != TypeWelcome {
		conn.Close()
		return nil, fmt.Errorf("expected %q envelope, got %q", TypeWelcome, welcome.Type)
	}
	_ = conn.SetReadDeadline(time.Time{})

	c := &StreamClient{
		conn:         conn,
		sessionID:    welcome.Session,
		states:       make(chan *engine.MatchState, 8),
		errors:       make(chan string, 8),
		logger:       logger.WithComponent("stream-client"),
		writeTimeout: 5 * time.Second,
		connected:    true,
		done:         make(chan struct{}),
	}
	if welcome.State != nil {
		c.states <- welcome.State
	}

	go c.readLoop()
	return c, nil
}

// SessionID returns the id the server assigned to this spectator
func (c *StreamClient) SessionID() string {
	return c.sessionID
}

// States delivers snapshots; it is closed when the connection ends.
// Snapshots are dropped while the channel is full.
func (c *StreamClient) States() <-chan *engine.MatchState {
	return c.states
}

// Errors delivers error messages reported by the server
func (c *StreamClient) Errors() <-chan string {
	return c.errors
}

// Done is closed when the connection ends
func (c *StreamClient) Done() <-chan struct{} {
	return c.done
}

// Latency returns the round trip time of the last ping
func (c *StreamClient) Latency() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.latency
}

// KeyDown sends a key press
func (c *StreamClient) KeyDown(key string) error {
	return c.send(ClientEnvelope{Type: validation.TypeKeyDown, Key: key})
}

// KeyUp sends a key release
func (c *StreamClient) KeyUp(key string) error {
	return c.send(ClientEnvelope{Type: validation.TypeKeyUp, Key: key})
}

// Reset asks the server to reset the car and the ball
func (c *StreamClient) Reset() error {
	return c.send(ClientEnvelope{Type: validation.TypeReset})
}

// Ping measures the round trip to the server; the result shows up in Latency
func (c *StreamClient) Ping() error {
	c.mu.Lock()
	c.pingSent = time.Now()
	c.mu.Unlock()
	return c.send(ClientEnvelope{Type: validation.TypePing})
}

func (c *StreamClient) send(env ClientEnvelope) error {
	c.mu.Lock()
	connected := c.connected
	c.mu.Unlock()
	if !connected {
		return ErrNotConnected
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(c.writeTimeout))
	if err := c.conn.WriteJSON(env); err != nil {
		return fmt.Errorf("failed to send %s: %w", env.Type, err)
	}
	return nil
}

// Close sends a close frame and tears the connection down
func (c *StreamClient) Close() error {
	c.mu.Lock()
	if !c.connected {
		c.mu.Unlock()
		return nil
	}
	c.connected = false
	c.mu.Unlock()

	c.writeMu.Lock()
	_ = c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	c.writeMu.Unlock()

	return c.conn.Close()
}

func (c *StreamClient) readLoop() {
	defer func() {
		c.mu.Lock()
		c.connected = false
		c.mu.Unlock()
		close(c.states)
		close(c.done)
		c.conn.Close()
	}()

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			c.logger.Debug(context.Background(), "stream read ended", "error", err)
			return
		}

		var env ServerEnvelope
		if err := json.Unmarshal(data, &env); err != nil {
			c.logger.Warn(context.Background(), "ignoring malformed envelope", "error", err)
			continue
		}

		switch env.Type {
		case TypeState:
			if env.State == nil {
				continue
			}
			select {
			case c.states <- env.State:
			default:
			}
		case TypePong:
			c.mu.Lock()
			if !c.pingSent.IsZero() {
				c.latency = time.Since(c.pingSent)
			}
			c.mu.Unlock()
		case TypeError:
			select {
			case c.errors <- env.Message:
			default:
			}
		}
	}
}
