package stream

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/coder/websocket"
)

// wsFixture is a test stream endpoint that sends each configured frame
// and then holds the connection open until the client closes it.
type wsFixture struct {
	frames  []string
	accepts atomic.Int32
}

func (f *wsFixture) handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		f.accepts.Add(1)
		ctx := r.Context()
		for _, frame := range f.frames {
			if err := conn.Write(ctx, websocket.MessageText, []byte(frame)); err != nil {
				return
			}
		}
		// Hold open; exits when the client closes.
		conn.Read(ctx)
		conn.Close(websocket.StatusNormalClosure, "")
	}
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestManager_DeliversFrames(t *testing.T) {
	fixture := &wsFixture{frames: []string{`{"type":"connected"}`, `{"type":"message"}`}}
	srv := httptest.NewServer(fixture.handler())
	defer srv.Close()

	var mu sync.Mutex
	var got []string
	var gotProject string
	received := make(chan struct{}, 8)

	m := NewManager(func(ctx context.Context, projectID string, frame []byte) {
		mu.Lock()
		got = append(got, string(frame))
		gotProject = projectID
		mu.Unlock()
		received <- struct{}{}
	})
	defer m.Disconnect()

	if err := m.Connect(context.Background(), wsURL(srv), "p1"); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if !m.IsConnected() || m.ProjectID() != "p1" {
		t.Fatalf("connected=%v project=%q", m.IsConnected(), m.ProjectID())
	}

	for i := 0; i < 2; i++ {
		select {
		case <-received:
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for frames")
		}
	}

	mu.Lock()
	defer mu.Unlock()
	if len(got) != 2 || got[0] != `{"type":"connected"}` || got[1] != `{"type":"message"}` {
		t.Errorf("frames = %v", got)
	}
	if gotProject != "p1" {
		t.Errorf("project = %q", gotProject)
	}
}

func TestManager_ConnectReplacesConnection(t *testing.T) {
	fixture := &wsFixture{}
	srv := httptest.NewServer(fixture.handler())
	defer srv.Close()

	m := NewManager(func(ctx context.Context, projectID string, frame []byte) {})
	defer m.Disconnect()

	ctx := context.Background()
	if err := m.Connect(ctx, wsURL(srv), "p1"); err != nil {
		t.Fatalf("first Connect: %v", err)
	}
	if err := m.Connect(ctx, wsURL(srv), "p2"); err != nil {
		t.Fatalf("second Connect: %v", err)
	}

	if m.ProjectID() != "p2" {
		t.Errorf("project = %q, want p2", m.ProjectID())
	}
	if fixture.accepts.Load() != 2 {
		t.Errorf("accepts = %d, want 2", fixture.accepts.Load())
	}
}

func TestManager_DisconnectIdempotent(t *testing.T) {
	fixture := &wsFixture{}
	srv := httptest.NewServer(fixture.handler())
	defer srv.Close()

	m := NewManager(func(ctx context.Context, projectID string, frame []byte) {})
	m.Disconnect() // nothing open yet

	if err := m.Connect(context.Background(), wsURL(srv), "p1"); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	m.Disconnect()
	m.Disconnect()

	if m.IsConnected() || m.ProjectID() != "" {
		t.Errorf("connected=%v project=%q after disconnect", m.IsConnected(), m.ProjectID())
	}
}

func TestManager_NoReconnectOnServerClose(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		conn.Close(websocket.StatusGoingAway, "shutting down")
	}))
	defer srv.Close()

	m := NewManager(func(ctx context.Context, projectID string, frame []byte) {})
	if err := m.Connect(context.Background(), wsURL(srv), "p1"); err != nil {
		t.Fatalf("Connect: %v", err)
	}

	deadline := time.After(2 * time.Second)
	for m.IsConnected() {
		select {
		case <-deadline:
			t.Fatal("manager never noticed the server close")
		case <-time.After(10 * time.Millisecond):
		}
	}

	// Stays down; reconnection is a caller decision.
	time.Sleep(50 * time.Millisecond)
	if m.IsConnected() {
		t.Error("manager reconnected on its own")
	}
}

func TestManager_DialFailure(t *testing.T) {
	m := NewManager(func(ctx context.Context, projectID string, frame []byte) {})

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()
	if err := m.Connect(ctx, "ws://127.0.0.1:1/ws/p1", "p1"); err == nil {
		t.Fatal("expected dial error")
	}
	if m.IsConnected() {
		t.Error("manager claims connected after failed dial")
	}
}
