package client

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/talgya/hexsettlers/internal/board"
	"github.com/talgya/hexsettlers/internal/protocol"
	"github.com/talgya/hexsettlers/internal/transport"
)

// Conn is the part of a transport connection the session uses.
type Conn interface {
	Send(v any) error
	Frames() <-chan []byte
	Done() <-chan struct{}
	Err() error
	Close() error
}

// DialFunc opens a new connection.
type DialFunc func(ctx context.Context) (Conn, error)

// DialWebsocket returns a DialFunc for a websocket server.
func DialWebsocket(url string, header http.Header) DialFunc {
	return func(ctx context.Context) (Conn, error) {
		c, err := transport.Dial(ctx, url, header)
		if err != nil {
			return nil, err
		}
		return c, nil
	}
}

// Recorder stores accepted snapshots. Record reports false when the frame
// repeated the previous one and was not stored.
type Recorder interface {
	Record(ctx context.Context, raw []byte) (bool, error)
}

// EventKind classifies session notifications.
type EventKind uint8

const (
	EventConnected EventKind = iota
	EventSnapshot
	EventRejected
	EventClosed
	EventDialFailed
)

func (k EventKind) String() string {
	switch k {
	case EventConnected:
		return "connected"
	case EventSnapshot:
		return "snapshot"
	case EventRejected:
		return "rejected"
	case EventClosed:
		return "closed"
	case EventDialFailed:
		return "dial failed"
	}
	return "unknown"
}

// Event tells an observer what the session loop just did.
type Event struct {
	Kind       EventKind
	Err        error
	Violations []board.Violation
}

// SessionConfig wires a Session to the outside world.
type SessionConfig struct {
	Dial DialFunc
	// Redial is the minimum spacing between connection attempts.
	Redial time.Duration
	// NewRecorder, if set, is called once per connection.
	NewRecorder func(ctx context.Context, player board.PlayerID) (Recorder, error)
}

type command struct {
	fn    func(*State) (*protocol.Intent, error)
	reply chan error
}

// Session runs the client's event loop. State is only touched from Run's
// goroutine; other goroutines go through Do.
type Session struct {
	st      *State
	cfg     SessionConfig
	limiter *rate.Limiter
	cmds    chan command
	events  chan Event
}

// NewSession returns a session driving st.
func NewSession(st *State, cfg SessionConfig) *Session {
	if cfg.Redial <= 0 {
		cfg.Redial = 2 * time.Second
	}
	return &Session{
		st:      st,
		cfg:     cfg,
		limiter: rate.NewLimiter(rate.Every(cfg.Redial), 1),
		cmds:    make(chan command),
		events:  make(chan Event, 64),
	}
}

// Events delivers notifications. Events are dropped when nobody reads them.
func (s *Session) Events() <-chan Event { return s.events }

// Do runs fn on the session goroutine. If fn returns an intent it is sent on
// the current connection; with no connection Do returns ErrNotConnected.
func (s *Session) Do(ctx context.Context, fn func(*State) (*protocol.Intent, error)) error {
	c := command{fn: fn, reply: make(chan error, 1)}
	select {
	case s.cmds <- c:
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-c.reply:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run connects, applies frames and serves commands until ctx is done. A
// dropped connection clears the cached board and the session redials.
func (s *Session) Run(ctx context.Context) error {
	for {
		if err := s.idle(ctx, s.limiter.Reserve().Delay()); err != nil {
			return err
		}
		conn, err := s.cfg.Dial(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			slog.Warn("dial failed", "error", err)
			s.emit(Event{Kind: EventDialFailed, Err: err})
			continue
		}
		if err := s.serve(ctx, conn); err != nil {
			return err
		}
	}
}

// idle serves commands while waiting to redial.
func (s *Session) idle(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
			return nil
		case c := <-s.cmds:
			s.exec(c, nil)
		}
	}
}

// serve owns one connection. It returns nil when the connection drops and
// ctx.Err() when the session is cancelled.
func (s *Session) serve(ctx context.Context, conn Conn) error {
	defer conn.Close()

	s.st.Connect()
	s.emit(Event{Kind: EventConnected})

	var rec Recorder
	if s.cfg.NewRecorder != nil {
		r, err := s.cfg.NewRecorder(ctx, s.st.Player())
		if err != nil {
			slog.Warn("journal unavailable for this connection", "error", err)
		} else {
			rec = r
		}
	}

	for {
		select {
		case <-ctx.Done():
			s.st.ChannelClosed(nil)
			return ctx.Err()

		case raw, ok := <-conn.Frames():
			if !ok {
				reason := conn.Err()
				if reason == nil {
					reason = transport.ErrChannelClosed
				}
				s.st.ChannelClosed(reason)
				slog.Info("connection lost", "error", reason)
				s.emit(Event{Kind: EventClosed, Err: reason})
				return nil
			}
			violations, err := s.st.ApplySnapshot(raw)
			if err != nil {
				s.emit(Event{Kind: EventRejected, Err: err})
				continue
			}
			if rec != nil {
				if _, err := rec.Record(ctx, raw); err != nil && !errors.Is(err, context.Canceled) {
					slog.Warn("journal write failed", "error", err)
				}
			}
			s.emit(Event{Kind: EventSnapshot, Violations: violations})

		case c := <-s.cmds:
			s.exec(c, conn)
		}
	}
}

func (s *Session) exec(c command, conn Conn) {
	in, err := c.fn(s.st)
	if err == nil && in != nil {
		if conn == nil {
			err = ErrNotConnected
		} else {
			err = conn.Send(*in)
		}
	}
	c.reply <- err
}

func (s *Session) emit(e Event) {
	select {
	case s.events <- e:
	default:
		slog.Debug("event dropped", "kind", e.Kind.String())
	}
}
