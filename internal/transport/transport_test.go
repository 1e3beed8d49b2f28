package transport

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}

// server runs handle for every websocket connection and returns a ws:// URL.
func server(t *testing.T, handle func(*websocket.Conn, *http.Request)) string {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer ws.Close()
		handle(ws, r)
	}))
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func dial(t *testing.T, url string, header http.Header) *Conn {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	c, err := Dial(ctx, url, header)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

func recv(t *testing.T, c *Conn) string {
	t.Helper()
	select {
	case b, ok := <-c.Frames():
		if !ok {
			t.Fatal("frames closed")
		}
		return string(b)
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for a frame")
	}
	return ""
}

func TestEchoInOrder(t *testing.T) {
	url := server(t, func(ws *websocket.Conn, _ *http.Request) {
		for {
			kind, data, err := ws.ReadMessage()
			if err != nil {
				return
			}
			if err := ws.WriteMessage(kind, data); err != nil {
				return
			}
		}
	})
	c := dial(t, url, nil)

	for i := 0; i < 10; i++ {
		if err := c.Send(map[string]int{"n": i}); err != nil {
			t.Fatalf("send %d: %v", i, err)
		}
	}
	for i := 0; i < 10; i++ {
		want := `{"n":` + string(rune('0'+i)) + `}`
		if got := recv(t, c); got != want {
			t.Fatalf("frame %d = %s, want %s", i, got, want)
		}
	}
}

func TestServerPushesWithoutRequest(t *testing.T) {
	url := server(t, func(ws *websocket.Conn, _ *http.Request) {
		ws.WriteMessage(websocket.BinaryMessage, []byte{0, 1})
		ws.WriteMessage(websocket.TextMessage, []byte(`{"first":true}`))
		ws.WriteMessage(websocket.TextMessage, []byte(`{"second":true}`))
		ws.ReadMessage()
	})
	c := dial(t, url, nil)
	if got := recv(t, c); got != `{"first":true}` {
		t.Errorf("got %s; binary frames should be skipped", got)
	}
	if got := recv(t, c); got != `{"second":true}` {
		t.Errorf("got %s", got)
	}
}

func TestRemoteCloseReportsChannelClosed(t *testing.T) {
	url := server(t, func(ws *websocket.Conn, _ *http.Request) {
		ws.WriteMessage(websocket.TextMessage, []byte(`{}`))
	})
	c := dial(t, url, nil)
	recv(t, c)

	select {
	case <-c.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("Done not closed after the server hung up")
	}
	if _, ok := <-c.Frames(); ok {
		t.Error("frames still open")
	}
	if err := c.Err(); !errors.Is(err, ErrChannelClosed) {
		t.Errorf("Err() = %v, want ErrChannelClosed", err)
	}
	if err := c.Send("late"); !errors.Is(err, ErrChannelClosed) {
		t.Errorf("Send after close = %v", err)
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	url := server(t, func(ws *websocket.Conn, _ *http.Request) { ws.ReadMessage() })
	c := dial(t, url, nil)
	c.Close()
	c.Close()
	if err := c.Err(); err != nil {
		t.Errorf("local close recorded %v", err)
	}
	if err := c.Send(1); !errors.Is(err, ErrChannelClosed) {
		t.Errorf("Send after Close = %v", err)
	}
}

func TestTokenSentTwice(t *testing.T) {
	seen := make(chan *http.Request, 1)
	base := server(t, func(ws *websocket.Conn, r *http.Request) {
		seen <- r
		ws.ReadMessage()
	})
	url, header := WithToken(base, nil, " abc.def ")
	dial(t, url, header)

	r := <-seen
	if got := r.Header.Get("Authorization"); got != "Bearer abc.def" {
		t.Errorf("Authorization = %q", got)
	}
	if got := r.URL.Query().Get("token"); got != "abc.def" {
		t.Errorf("token param = %q", got)
	}
}

func TestWithTokenEmpty(t *testing.T) {
	url, header := WithToken("ws://h/ws", nil, "")
	if url != "ws://h/ws" || header.Get("Authorization") != "" {
		t.Errorf("empty token changed the request: %s %v", url, header)
	}
}

func TestOutboxFull(t *testing.T) {
	c := &Conn{outbox: make(chan []byte, 1), done: make(chan struct{})}
	if err := c.Send(1); err != nil {
		t.Fatal(err)
	}
	if err := c.Send(2); !errors.Is(err, ErrOutboxFull) {
		t.Errorf("second send = %v, want ErrOutboxFull", err)
	}
}

func TestRedact(t *testing.T) {
	got := redact("ws://h/ws?token=secret&x=1")
	if strings.Contains(got, "secret") {
		t.Errorf("redact leaked the token: %s", got)
	}
}
