package calls

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/crewboard/go-crewboard/internal/project"
)

// fakeDetails serves a fixed-size record set, computing the cursor
// metadata the way the server does.
type fakeDetails struct {
	mu      sync.Mutex
	total   int
	err     error
	fetched []int
	block   chan struct{} // when set, CallDetail waits on it before answering
}

func (f *fakeDetails) CallDetail(ctx context.Context, projectID string, ordinal int) (*project.LLMCallDetail, error) {
	if f.block != nil {
		<-f.block
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetched = append(f.fetched, ordinal)
	if f.err != nil {
		return nil, f.err
	}
	if ordinal < 1 || ordinal > f.total {
		return nil, errors.New("not found")
	}
	d := &project.LLMCallDetail{
		LLMCallSummary: project.LLMCallSummary{
			ID:        fmt.Sprintf("%04d", ordinal),
			Index:     ordinal,
			AgentName: "Mike",
		},
		FullResponse: fmt.Sprintf("response %d", ordinal),
		TotalCount:   f.total,
		HasPrev:      ordinal > 1,
		HasNext:      ordinal < f.total,
	}
	if d.HasPrev {
		d.PrevID = fmt.Sprintf("%04d", ordinal-1)
	}
	if d.HasNext {
		d.NextID = fmt.Sprintf("%04d", ordinal+1)
	}
	return d, nil
}

func TestCursor_LoadPrevNext(t *testing.T) {
	f := &fakeDetails{total: 5}
	c := NewCursor(f)
	c.Bind("p1")
	ctx := context.Background()

	if err := c.Load(ctx, 3); err != nil {
		t.Fatalf("Load: %v", err)
	}
	st := c.Snapshot()
	if st.Index != 3 || st.TotalCount != 5 || !st.HasPrev || !st.HasNext {
		t.Fatalf("state after load = %+v", st)
	}

	if err := c.Prev(ctx); err != nil {
		t.Fatalf("Prev: %v", err)
	}
	if st := c.Snapshot(); st.Index != 2 {
		t.Fatalf("index after prev = %d", st.Index)
	}

	if err := c.Next(ctx); err != nil {
		t.Fatalf("Next: %v", err)
	}
	if st := c.Snapshot(); st.Index != 3 || st.Current.FullResponse != "response 3" {
		t.Fatalf("state after next = %+v", st)
	}
}

func TestCursor_BoundsAreNoops(t *testing.T) {
	f := &fakeDetails{total: 2}
	c := NewCursor(f)
	c.Bind("p1")
	ctx := context.Background()

	if err := c.Load(ctx, 1); err != nil {
		t.Fatal(err)
	}
	before := len(f.fetched)
	if err := c.Prev(ctx); err != nil {
		t.Fatal(err)
	}
	if len(f.fetched) != before {
		t.Error("Prev at first record issued a fetch")
	}

	if err := c.Load(ctx, 2); err != nil {
		t.Fatal(err)
	}
	before = len(f.fetched)
	if err := c.Next(ctx); err != nil {
		t.Fatal(err)
	}
	if len(f.fetched) != before {
		t.Error("Next at last record issued a fetch")
	}
}

func TestCursor_UnboundLoadIsNoop(t *testing.T) {
	f := &fakeDetails{total: 3}
	c := NewCursor(f)

	if err := c.Load(context.Background(), 1); err != nil {
		t.Fatal(err)
	}
	if len(f.fetched) != 0 {
		t.Error("unbound cursor issued a fetch")
	}
}

func TestCursor_LoadFailureKeepsPrevious(t *testing.T) {
	f := &fakeDetails{total: 3}
	c := NewCursor(f)
	c.Bind("p1")
	ctx := context.Background()

	if err := c.Load(ctx, 2); err != nil {
		t.Fatal(err)
	}
	f.err = errors.New("server down")
	if err := c.Load(ctx, 3); err == nil {
		t.Fatal("expected error")
	}

	st := c.Snapshot()
	if st.Current == nil || st.Index != 2 || st.Loading {
		t.Errorf("state after failed load = %+v", st)
	}
}

func TestCursor_ObserveCallAtLatestFollows(t *testing.T) {
	f := &fakeDetails{total: 2}
	c := NewCursor(f)
	c.Bind("p1")
	ctx := context.Background()

	if err := c.Load(ctx, 2); err != nil {
		t.Fatal(err)
	}

	f.total = 3
	c.ObserveCall(3)

	st := c.Snapshot()
	if st.Index != 3 || st.TotalCount != 3 || !st.Stale || st.HasNext {
		t.Fatalf("state after observe = %+v", st)
	}

	if err := c.EnsureLoaded(ctx); err != nil {
		t.Fatalf("EnsureLoaded: %v", err)
	}
	st = c.Snapshot()
	if st.Stale || st.Current.Index != 3 {
		t.Errorf("state after lazy fetch = %+v", st)
	}
}

func TestCursor_ObserveCallWhileBrowsingKeepsPosition(t *testing.T) {
	f := &fakeDetails{total: 5}
	c := NewCursor(f)
	c.Bind("p1")

	if err := c.Load(context.Background(), 2); err != nil {
		t.Fatal(err)
	}
	c.ObserveCall(6)

	st := c.Snapshot()
	if st.Index != 2 || st.TotalCount != 6 || !st.HasNext || st.Stale {
		t.Errorf("state after observe = %+v", st)
	}
}

func TestCursor_ObserveCallWithoutCount(t *testing.T) {
	c := NewCursor(&fakeDetails{})
	c.Bind("p1")

	c.ObserveCall(0)
	c.ObserveCall(0)

	st := c.Snapshot()
	if st.TotalCount != 2 || st.Index != 2 || !st.Stale {
		t.Errorf("state = %+v", st)
	}
}

func TestCursor_RebindDropsInFlightResponse(t *testing.T) {
	f := &fakeDetails{total: 3, block: make(chan struct{})}
	c := NewCursor(f)
	c.Bind("p1")

	done := make(chan error, 1)
	go func() {
		done <- c.Load(context.Background(), 2)
	}()

	// Rebind while the fetch is blocked; its response must be dropped.
	c.Bind("p2")
	close(f.block)
	if err := <-done; err != nil {
		t.Fatalf("Load: %v", err)
	}

	st := c.Snapshot()
	if st.ProjectID != "p2" || st.Current != nil || st.Index != 0 {
		t.Errorf("stale response applied after rebind: %+v", st)
	}
}

func TestCursor_LoadResetsExpanded(t *testing.T) {
	f := &fakeDetails{total: 2}
	c := NewCursor(f)
	c.Bind("p1")
	ctx := context.Background()

	if err := c.Load(ctx, 1); err != nil {
		t.Fatal(err)
	}
	c.ToggleExpanded("prompt")
	if !c.IsExpanded("prompt") {
		t.Fatal("toggle did not stick")
	}

	if err := c.Load(ctx, 2); err != nil {
		t.Fatal(err)
	}
	if c.IsExpanded("prompt") {
		t.Error("expanded state survived navigation")
	}
}
