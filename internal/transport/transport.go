// Package transport carries JSON messages over a persistent websocket.
// Sends are fire-and-forget; inbound frames arrive in server order.
package transport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

var (
	// ErrChannelClosed reports a send on a connection that has gone away.
	ErrChannelClosed = errors.New("channel closed")
	// ErrOutboxFull reports that the writer has fallen behind.
	ErrOutboxFull = errors.New("outbox full")
)

const (
	outboxSize     = 64
	inboxSize      = 128
	writeWait      = 5 * time.Second
	handshakeLimit = 5 * time.Second
)

// Conn is one websocket connection to the game server.
type Conn struct {
	ws     *websocket.Conn
	outbox chan []byte
	frames chan []byte
	done   chan struct{}

	mu     sync.Mutex
	closed bool
	err    error
	once   sync.Once
}

// WithToken adds a bearer token to the header and as a token query parameter.
// Some servers only see one of the two through their proxy.
func WithToken(rawURL string, header http.Header, token string) (string, http.Header) {
	if header == nil {
		header = http.Header{}
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return rawURL, header
	}
	header.Set("Authorization", "Bearer "+token)
	if u, err := url.Parse(rawURL); err == nil {
		q := u.Query()
		q.Set("token", token)
		u.RawQuery = q.Encode()
		rawURL = u.String()
	}
	return rawURL, header
}

// Dial opens a connection and starts its reader and writer goroutines.
func Dial(ctx context.Context, rawURL string, header http.Header) (*Conn, error) {
	dialer := websocket.Dialer{
		HandshakeTimeout:  handshakeLimit,
		EnableCompression: true,
		Proxy:             http.ProxyFromEnvironment,
	}
	ws, resp, err := dialer.DialContext(ctx, rawURL, header)
	if err != nil {
		if resp != nil {
			body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
			_ = resp.Body.Close()
			return nil, fmt.Errorf("dial %s: %s: %s", redact(rawURL), resp.Status, strings.TrimSpace(string(body)))
		}
		return nil, fmt.Errorf("dial %s: %w", redact(rawURL), err)
	}

	c := &Conn{
		ws:     ws,
		outbox: make(chan []byte, outboxSize),
		frames: make(chan []byte, inboxSize),
		done:   make(chan struct{}),
	}
	go c.reader()
	go c.writer()
	slog.Info("connected", "url", redact(rawURL))
	return c, nil
}

// Send marshals v and queues it for the writer. It never blocks.
func (c *Conn) Send(v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrChannelClosed
	}
	select {
	case c.outbox <- b:
		return nil
	default:
		return ErrOutboxFull
	}
}

// Frames delivers inbound text frames. It is closed when the connection drops.
func (c *Conn) Frames() <-chan []byte { return c.frames }

// Done is closed once the connection has gone away for any reason.
func (c *Conn) Done() <-chan struct{} { return c.done }

// Err returns why the connection closed, or nil while it is open or after a
// local Close.
func (c *Conn) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// Close tears the connection down. It is safe to call more than once.
func (c *Conn) Close() error {
	var err error
	c.once.Do(func() {
		c.mu.Lock()
		c.closed = true
		c.mu.Unlock()

		deadline := time.Now().Add(writeWait)
		_ = c.ws.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)
		err = c.ws.Close()
		close(c.done)
	})
	return err
}

// fail records the first remote or write error and closes the connection.
func (c *Conn) fail(err error) {
	c.mu.Lock()
	if !c.closed && c.err == nil {
		c.err = err
	}
	c.mu.Unlock()
	_ = c.Close()
}

func (c *Conn) reader() {
	defer close(c.frames)
	for {
		kind, data, err := c.ws.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				slog.Debug("read ended", "error", err)
			}
			c.fail(fmt.Errorf("%w: %v", ErrChannelClosed, err))
			return
		}
		if kind != websocket.TextMessage {
			continue
		}
		select {
		case c.frames <- data:
		case <-c.done:
			return
		}
	}
}

func (c *Conn) writer() {
	for {
		select {
		case b := <-c.outbox:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.TextMessage, b); err != nil {
				slog.Warn("write failed", "error", err)
				c.fail(fmt.Errorf("%w: %v", ErrChannelClosed, err))
				return
			}
		case <-c.done:
			return
		}
	}
}

// redact hides the token query parameter in logs and errors.
func redact(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	q := u.Query()
	if q.Has("token") {
		q.Set("token", "xxx")
		u.RawQuery = q.Encode()
	}
	return u.String()
}
