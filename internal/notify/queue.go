// Package notify manages short-lived user-facing notifications with
// automatic expiry.
package notify

import (
	"sync"
	"time"
)

// Severity classifies a notification for display.
type Severity string

const (
	SeveritySuccess Severity = "success"
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
)

// Notification is one entry in the queue. Notifications are never
// persisted; they exist only for the configured display duration.
type Notification struct {
	ID        int64     `json:"id"`
	Message   string    `json:"message"`
	Severity  Severity  `json:"severity"`
	CreatedAt time.Time `json:"created_at"`
}

// Queue holds active notifications. IDs are strictly increasing within
// the process lifetime and are never reused, even after removal.
type Queue struct {
	defaultDuration time.Duration
	errorDuration   time.Duration

	mu          sync.Mutex
	nextID      int64
	items       []Notification
	timers      map[int64]*time.Timer
	subscribers []*subscriber
}

type subscriber struct {
	ch     chan []Notification
	closed bool
}

// NewQueue creates a queue with the given auto-expiry durations.
// Zero durations fall back to 4s (default) and 6s (error).
func NewQueue(defaultDuration, errorDuration time.Duration) *Queue {
	if defaultDuration == 0 {
		defaultDuration = 4 * time.Second
	}
	if errorDuration == 0 {
		errorDuration = 6 * time.Second
	}
	return &Queue{
		defaultDuration: defaultDuration,
		errorDuration:   errorDuration,
		timers:          make(map[int64]*time.Timer),
	}
}

// Add enqueues a notification with the default duration for its severity
// and returns its id.
func (q *Queue) Add(message string, severity Severity) int64 {
	d := q.defaultDuration
	if severity == SeverityError {
		d = q.errorDuration
	}
	return q.AddWithDuration(message, severity, d)
}

// AddWithDuration enqueues a notification that expires after duration.
// A duration <= 0 disables auto-expiry; the entry stays until Remove.
func (q *Queue) AddWithDuration(message string, severity Severity, duration time.Duration) int64 {
	q.mu.Lock()
	q.nextID++
	id := q.nextID
	q.items = append(q.items, Notification{
		ID:        id,
		Message:   message,
		Severity:  severity,
		CreatedAt: time.Now(),
	})
	if duration > 0 {
		q.timers[id] = time.AfterFunc(duration, func() { q.Remove(id) })
	}
	q.notifyLocked()
	q.mu.Unlock()
	return id
}

// Remove deletes the notification with the given id and cancels its
// expiry timer. Removing an unknown or already-removed id is a no-op.
func (q *Queue) Remove(id int64) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if t, ok := q.timers[id]; ok {
		t.Stop()
		delete(q.timers, id)
	}
	for i, n := range q.items {
		if n.ID == id {
			q.items = append(q.items[:i], q.items[i+1:]...)
			q.notifyLocked()
			return
		}
	}
}

// Items returns a snapshot of the active notifications in insertion order.
func (q *Queue) Items() []Notification {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]Notification, len(q.items))
	copy(out, q.items)
	return out
}

// Subscribe returns a channel receiving the full notification list on
// every change, and an unsubscribe function.
func (q *Queue) Subscribe() (<-chan []Notification, func()) {
	ch := make(chan []Notification, 16)
	sub := &subscriber{ch: ch}

	q.mu.Lock()
	q.subscribers = append(q.subscribers, sub)
	q.mu.Unlock()

	return ch, func() {
		q.mu.Lock()
		defer q.mu.Unlock()
		for i, s := range q.subscribers {
			if s == sub {
				q.subscribers = append(q.subscribers[:i], q.subscribers[i+1:]...)
				if !s.closed {
					s.closed = true
					close(s.ch)
				}
				break
			}
		}
	}
}

// notifyLocked fans out the current list. Must be called with q.mu held.
// Slow subscribers have updates dropped rather than blocking the queue.
func (q *Queue) notifyLocked() {
	if len(q.subscribers) == 0 {
		return
	}
	snapshot := make([]Notification, len(q.items))
	copy(snapshot, q.items)
	for _, sub := range q.subscribers {
		if sub.closed {
			continue
		}
		select {
		case sub.ch <- snapshot:
		default:
		}
	}
}
