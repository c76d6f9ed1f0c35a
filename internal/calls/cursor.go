// Package calls implements cursor-style navigation over a project's
// append-only LLM call record set. Full records are too large to keep
// resident, so exactly one detail record is held at a time and fetched
// by its 1-based ordinal.
package calls

import (
	"context"
	"sync"

	"github.com/crewboard/go-crewboard/internal/boardlog"
	"github.com/crewboard/go-crewboard/internal/project"
)

// DetailFetcher pulls one full call record by ordinal. Implemented by
// api.Client.
type DetailFetcher interface {
	CallDetail(ctx context.Context, projectID string, ordinal int) (*project.LLMCallDetail, error)
}

// State is a snapshot of the cursor position for rendering.
type State struct {
	ProjectID  string
	Current    *project.LLMCallDetail
	Index      int // 1-based; 0 when nothing loaded
	TotalCount int
	HasPrev    bool
	HasNext    bool
	Loading    bool
	Stale      bool // displayed index moved ahead of the loaded record
}

// Cursor tracks the current position in a project's call record set.
// has_prev/has_next come from the server and are trusted verbatim.
type Cursor struct {
	client DetailFetcher

	mu        sync.Mutex
	gen       int // bumped on Bind; stale responses from an old binding are dropped
	projectID string
	current   *project.LLMCallDetail
	index     int
	total     int
	hasPrev   bool
	hasNext   bool
	loading   bool
	stale     bool
	expanded  map[string]bool
}

// NewCursor creates an unbound cursor.
func NewCursor(client DetailFetcher) *Cursor {
	return &Cursor{client: client, expanded: make(map[string]bool)}
}

// Bind targets the cursor at a project, discarding all prior state.
// In-flight fetches for the previous binding are ignored on arrival.
func (c *Cursor) Bind(projectID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gen++
	c.projectID = projectID
	c.current = nil
	c.index = 0
	c.total = 0
	c.hasPrev = false
	c.hasNext = false
	c.loading = false
	c.stale = false
	c.expanded = make(map[string]bool)
}

// Load fetches the record at the given 1-based ordinal. On failure the
// previously loaded record stays displayed and the loading flag clears.
func (c *Cursor) Load(ctx context.Context, ordinal int) error {
	c.mu.Lock()
	if c.projectID == "" || ordinal < 1 {
		c.mu.Unlock()
		return nil
	}
	gen := c.gen
	projectID := c.projectID
	c.loading = true
	c.mu.Unlock()

	detail, err := c.client.CallDetail(ctx, projectID, ordinal)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gen != gen {
		// The focus moved on while this fetch was in flight.
		boardlog.Log.Debug("Dropping stale call detail", "project", projectID, "ordinal", ordinal)
		return nil
	}
	c.loading = false
	if err != nil {
		boardlog.Log.Warn("Call detail fetch failed", "project", projectID, "ordinal", ordinal, "error", err)
		return err
	}

	c.current = detail
	c.index = detail.Index
	c.total = detail.TotalCount
	c.hasPrev = detail.HasPrev
	c.hasNext = detail.HasNext
	c.stale = false
	// Switching records discards any expanded sub-field view state.
	c.expanded = make(map[string]bool)
	return nil
}

// Prev navigates to the previous record. No-op when has_prev is false
// or already at the first record.
func (c *Cursor) Prev(ctx context.Context) error {
	c.mu.Lock()
	if !c.hasPrev || c.index <= 1 {
		c.mu.Unlock()
		return nil
	}
	target := c.index - 1
	c.mu.Unlock()
	return c.Load(ctx, target)
}

// Next navigates to the following record. No-op when has_next is false
// or already at the last record.
func (c *Cursor) Next(ctx context.Context) error {
	c.mu.Lock()
	if !c.hasNext || (c.total > 0 && c.index >= c.total) {
		c.mu.Unlock()
		return nil
	}
	target := c.index + 1
	c.mu.Unlock()
	return c.Load(ctx, target)
}

// Latest jumps to the newest record.
func (c *Cursor) Latest(ctx context.Context) error {
	c.mu.Lock()
	target := c.total
	c.mu.Unlock()
	if target < 1 {
		return nil
	}
	return c.Load(ctx, target)
}

// ObserveCall is the auto-follow hook, called when a new call summary
// arrives on the stream. At the latest position (or before anything was
// loaded) the cursor advances to the new record and marks itself stale
// for a lazy fetch; otherwise only the total and has_next refresh so
// the user's current view is not disturbed.
func (c *Cursor) ObserveCall(totalCount int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if totalCount <= 0 {
		totalCount = c.total + 1
	}

	atLatest := c.current == nil || c.index >= c.total
	if atLatest {
		c.index = totalCount
		c.total = totalCount
		c.hasPrev = totalCount > 1
		c.hasNext = false
		c.stale = true
		return
	}
	c.total = totalCount
	c.hasNext = c.index < totalCount
}

// EnsureLoaded fetches the record at the displayed index if auto-follow
// advanced past the loaded one.
func (c *Cursor) EnsureLoaded(ctx context.Context) error {
	c.mu.Lock()
	needed := c.stale && c.index > 0 && !c.loading
	target := c.index
	c.mu.Unlock()
	if !needed {
		return nil
	}
	return c.Load(ctx, target)
}

// ToggleExpanded flips the expanded flag for a sub-field key. This is
// local view state, discarded on every navigation.
func (c *Cursor) ToggleExpanded(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.expanded[key] = !c.expanded[key]
}

// IsExpanded reports the expanded flag for a sub-field key.
func (c *Cursor) IsExpanded(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.expanded[key]
}

// Snapshot returns the cursor state for rendering. The detail pointer
// is shared; callers must treat it as read-only.
func (c *Cursor) Snapshot() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return State{
		ProjectID:  c.projectID,
		Current:    c.current,
		Index:      c.index,
		TotalCount: c.total,
		HasPrev:    c.hasPrev,
		HasNext:    c.hasNext,
		Loading:    c.loading,
		Stale:      c.stale,
	}
}
