// Package stream owns the lifecycle of the live event stream: exactly
// one websocket connection at a time, scoped to the focused project.
package stream

import (
	"context"
	"fmt"
	"sync"

	"github.com/coder/websocket"

	"github.com/crewboard/go-crewboard/internal/boardlog"
)

// FrameHandler receives every inbound frame, raw, before any other
// processing. projectID is the project the frame's connection belongs
// to, so handlers can discard frames from an abandoned focus.
type FrameHandler func(ctx context.Context, projectID string, frame []byte)

// Manager holds the single active stream connection. There is no
// auto-reconnect: a dropped transport leaves the manager disconnected
// until the caller decides to connect again (typically on re-focus).
type Manager struct {
	handler FrameHandler

	mu        sync.Mutex
	gen       int
	conn      *websocket.Conn
	cancel    context.CancelFunc
	projectID string
	connected bool
}

// NewManager creates a manager delivering frames to handler.
func NewManager(handler FrameHandler) *Manager {
	return &Manager{handler: handler}
}

// Connect tears down any existing connection, then opens one stream to
// the project-scoped endpoint at wsURL.
func (m *Manager) Connect(ctx context.Context, wsURL, projectID string) error {
	m.Disconnect()

	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	if err != nil {
		return fmt.Errorf("dial stream: %w", err)
	}
	// Telemetry frames can be large (full prompts in thinking entries).
	conn.SetReadLimit(4 << 20)

	readCtx, cancel := context.WithCancel(context.Background())

	m.mu.Lock()
	m.gen++
	gen := m.gen
	m.conn = conn
	m.cancel = cancel
	m.projectID = projectID
	m.connected = true
	m.mu.Unlock()

	boardlog.Log.Info("Stream connected", "project", projectID)
	go m.readLoop(readCtx, gen, conn, projectID)
	return nil
}

// Disconnect closes the active connection. Safe to call with none open.
func (m *Manager) Disconnect() {
	m.mu.Lock()
	conn := m.conn
	cancel := m.cancel
	projectID := m.projectID
	m.gen++
	m.conn = nil
	m.cancel = nil
	m.projectID = ""
	m.connected = false
	m.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if conn != nil {
		conn.Close(websocket.StatusNormalClosure, "client closing")
		boardlog.Log.Info("Stream disconnected", "project", projectID)
	}
}

// IsConnected reports whether a stream is currently open.
func (m *Manager) IsConnected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.connected
}

// ProjectID returns the project of the active connection, empty if none.
func (m *Manager) ProjectID() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.projectID
}

func (m *Manager) readLoop(ctx context.Context, gen int, conn *websocket.Conn, projectID string) {
	defer conn.CloseNow()

	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			m.mu.Lock()
			if m.gen == gen {
				// Transport-level close or error: mark disconnected,
				// do not reconnect. Reconnection is a caller decision.
				m.connected = false
				m.conn = nil
				boardlog.Log.Warn("Stream closed", "project", projectID, "error", err)
			}
			m.mu.Unlock()
			return
		}

		m.mu.Lock()
		current := m.gen == gen
		m.mu.Unlock()
		if !current {
			// A newer connection replaced this one mid-read.
			return
		}
		m.handler(ctx, projectID, data)
	}
}
