package websocket

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"

	ws "github.com/gorilla/websocket"
)

const (
	sendChSize       = 4096
	maxReconnect     = 10
	maxBackoff       = 30 * time.Second
	writeWait        = 10 * time.Second
	pingPeriod       = 30 * time.Second
	ackTimeout       = 10 * time.Second
	handshakeTimeout = 10 * time.Second
	secretHeader     = "X-Ladderreach-Secret"
)

// connection manages a WebSocket connection with a single write goroutine.
// Acks are routed to whoever waits for the acknowledged message type.
type connection struct {
	mu      sync.Mutex
	conn    *ws.Conn
	sendCh  chan []byte
	waiters map[string][]chan struct{}
	done    chan struct{} // closed on shutdown
	closed  bool

	wsURL  string
	secret string
	dialer *ws.Dialer

	// Cached start_session message for reconnect replay.
	cachedStartMsg []byte

	logger *slog.Logger
}

func newConnection(logger *slog.Logger) *connection {
	return &connection{
		sendCh:  make(chan []byte, sendChSize),
		waiters: make(map[string][]chan struct{}),
		done:    make(chan struct{}),
		dialer:  &ws.Dialer{HandshakeTimeout: handshakeTimeout, Proxy: http.ProxyFromEnvironment},
		logger:  logger,
	}
}

// dial connects to the WebSocket server and starts read/write loops.
func (c *connection) dial(rawURL, secret string) error {
	c.wsURL = rawURL
	c.secret = secret

	conn, err := c.dialOnce()
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()

	go c.writeLoop(conn)
	go c.readLoop(conn)
	return nil
}

// dialOnce performs a single WebSocket dial, authenticating with a header.
func (c *connection) dialOnce() (*ws.Conn, error) {
	u, err := url.Parse(c.wsURL)
	if err != nil {
		return nil, fmt.Errorf("invalid websocket URL: %w", err)
	}
	header := http.Header{}
	if c.secret != "" {
		header.Set(secretHeader, c.secret)
	}

	conn, _, err := c.dialer.Dial(u.String(), header)
	if err != nil {
		return nil, fmt.Errorf("websocket dial failed: %w", err)
	}
	return conn, nil
}

// writeLoop drains sendCh onto conn and keeps it alive with pings. It
// returns on error or shutdown; a write error hands over to reconnect.
func (c *connection) writeLoop(conn *ws.Conn) {
	ping := time.NewTicker(pingPeriod)
	defer ping.Stop()

	for {
		var (
			kind = ws.TextMessage
			data []byte
		)
		select {
		case <-c.done:
			return
		case data = <-c.sendCh:
		case <-ping.C:
			kind = ws.PingMessage
		}

		if err := conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
			c.logger.Warn("WebSocket SetWriteDeadline error", "error", err)
			c.requeue(data)
			go c.reconnect(conn)
			return
		}
		if err := conn.WriteMessage(kind, data); err != nil {
			c.logger.Warn("WebSocket write error", "error", err)
			c.requeue(data)
			go c.reconnect(conn)
			return
		}
	}
}

// requeue puts an unsent message back so it goes out after reconnecting.
// Order relative to messages queued meanwhile is not preserved.
func (c *connection) requeue(data []byte) {
	if data != nil {
		c.send(data)
	}
}

// readLoop reads ack messages from the server and wakes their waiters.
func (c *connection) readLoop(conn *ws.Conn) {
	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			select {
			case <-c.done:
				return
			default:
			}
			c.logger.Warn("WebSocket read error", "error", err)
			go c.reconnect(conn)
			return
		}

		var ack AckMessage
		if err := json.Unmarshal(message, &ack); err != nil || ack.Type != "ack" {
			c.logger.Debug("Non-ack message received", "raw", string(message))
			continue
		}
		c.acknowledge(ack.For)
	}
}

func (c *connection) acknowledge(msgType string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	queue := c.waiters[msgType]
	if len(queue) == 0 {
		c.logger.Debug("Unexpected ack", "for", msgType)
		return
	}
	close(queue[0])
	c.waiters[msgType] = queue[1:]
}

// reconnect re-establishes the connection that failed with exponential
// backoff. Only the first caller for a given failed conn does the work. On
// success it replays the cached start_session message and restarts the
// read/write loops.
func (c *connection) reconnect(failed *ws.Conn) {
	c.mu.Lock()
	if c.closed || c.conn != failed {
		c.mu.Unlock()
		return
	}
	_ = c.conn.Close()
	c.conn = nil
	c.mu.Unlock()

	backoff := time.Second
	for attempt := 1; attempt <= maxReconnect; attempt++ {
		c.logger.Info("Reconnecting to WebSocket", "attempt", attempt, "backoff", backoff)
		select {
		case <-c.done:
			return
		case <-time.After(backoff):
		}

		conn, err := c.dialOnce()
		if err != nil {
			c.logger.Warn("Reconnect dial failed", "attempt", attempt, "error", err)
			backoff = min(backoff*2, maxBackoff)
			continue
		}

		c.mu.Lock()
		cached := c.cachedStartMsg
		c.mu.Unlock()

		if cached != nil {
			if err := conn.SetWriteDeadline(time.Now().Add(writeWait)); err == nil {
				err = conn.WriteMessage(ws.TextMessage, cached)
			}
			if err != nil {
				c.logger.Warn("Failed to replay start_session after reconnect", "error", err)
				_ = conn.Close()
				continue
			}
		}

		c.mu.Lock()
		if c.closed {
			c.mu.Unlock()
			_ = conn.Close()
			return
		}
		c.conn = conn
		c.mu.Unlock()

		c.logger.Info("WebSocket reconnected", "attempt", attempt)
		go c.writeLoop(conn)
		go c.readLoop(conn)
		return
	}

	c.logger.Error("WebSocket reconnect failed after max attempts", "maxAttempts", maxReconnect)
}

// send pushes data to the write loop. Non-blocking; drops if channel full.
func (c *connection) send(data []byte) {
	select {
	case c.sendCh <- data:
	default:
		c.logger.Warn("WebSocket send channel full, dropping message")
	}
}

// sendAndWait sends data and blocks until the server acknowledges ackFor,
// ctx is done or the connection closes.
func (c *connection) sendAndWait(ctx context.Context, data []byte, ackFor string) error {
	acked := make(chan struct{})
	c.mu.Lock()
	c.waiters[ackFor] = append(c.waiters[ackFor], acked)
	c.mu.Unlock()

	c.send(data)

	select {
	case <-acked:
		return nil
	case <-ctx.Done():
		c.dropWaiter(ackFor, acked)
		return fmt.Errorf("waiting for ack of %q: %w", ackFor, ctx.Err())
	case <-c.done:
		return fmt.Errorf("connection closed while waiting for ack of %q", ackFor)
	}
}

func (c *connection) dropWaiter(msgType string, acked chan struct{}) {
	c.mu.Lock()
	defer c.mu.Unlock()

	queue := c.waiters[msgType]
	for i, w := range queue {
		if w == acked {
			c.waiters[msgType] = append(queue[:i:i], queue[i+1:]...)
			return
		}
	}
}

// close sends a WebSocket close frame and shuts down all goroutines.
func (c *connection) close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	close(c.done)
	conn := c.conn
	c.conn = nil
	c.mu.Unlock()

	if conn != nil {
		_ = conn.WriteControl(
			ws.CloseMessage,
			ws.FormatCloseMessage(ws.CloseNormalClosure, ""),
			time.Now().Add(writeWait),
		)
		return conn.Close()
	}
	return nil
}
