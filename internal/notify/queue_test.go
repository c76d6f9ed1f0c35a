package notify

import (
	"testing"
	"time"
)

func TestQueue_IDsStrictlyIncrease(t *testing.T) {
	q := NewQueue(time.Minute, time.Minute)

	a := q.Add("one", SeverityInfo)
	b := q.Add("two", SeverityError)
	q.Remove(a)
	c := q.Add("three", SeverityInfo)

	if !(a < b && b < c) {
		t.Errorf("ids not strictly increasing: %d, %d, %d", a, b, c)
	}
}

func TestQueue_AutoExpiry(t *testing.T) {
	q := NewQueue(10*time.Millisecond, 20*time.Millisecond)

	q.Add("info", SeverityInfo)
	q.Add("error", SeverityError)

	deadline := time.After(time.Second)
	for len(q.Items()) > 0 {
		select {
		case <-deadline:
			t.Fatalf("notifications not auto-removed: %+v", q.Items())
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func TestQueue_ErrorOutlivesInfo(t *testing.T) {
	q := NewQueue(10*time.Millisecond, 200*time.Millisecond)

	q.Add("info", SeverityInfo)
	errID := q.Add("error", SeverityError)

	time.Sleep(60 * time.Millisecond)
	items := q.Items()
	if len(items) != 1 || items[0].ID != errID {
		t.Errorf("expected only error notification to survive, got %+v", items)
	}
}

func TestQueue_ZeroDurationNeverExpires(t *testing.T) {
	q := NewQueue(5*time.Millisecond, 5*time.Millisecond)

	id := q.AddWithDuration("sticky", SeverityInfo, 0)
	time.Sleep(30 * time.Millisecond)

	items := q.Items()
	if len(items) != 1 || items[0].ID != id {
		t.Fatalf("sticky notification expired: %+v", items)
	}
	q.Remove(id)
	if len(q.Items()) != 0 {
		t.Error("explicit remove failed")
	}
}

func TestQueue_RemoveIdempotent(t *testing.T) {
	q := NewQueue(time.Minute, time.Minute)
	id := q.Add("x", SeverityWarning)

	q.Remove(id)
	q.Remove(id)
	q.Remove(9999)

	if len(q.Items()) != 0 {
		t.Errorf("queue not empty: %+v", q.Items())
	}
}

func TestQueue_RemoveCancelsTimer(t *testing.T) {
	q := NewQueue(20*time.Millisecond, 20*time.Millisecond)

	id := q.Add("short lived", SeverityInfo)
	q.Remove(id)

	// The old timer firing must not touch a notification created later,
	// ids are never reused.
	id2 := q.AddWithDuration("survivor", SeverityInfo, 0)
	time.Sleep(50 * time.Millisecond)

	items := q.Items()
	if len(items) != 1 || items[0].ID != id2 {
		t.Errorf("expected survivor only, got %+v", items)
	}
}

func TestQueue_Subscribe(t *testing.T) {
	q := NewQueue(time.Minute, time.Minute)

	ch, unsub := q.Subscribe()
	defer unsub()

	q.Add("hello", SeveritySuccess)

	select {
	case items := <-ch:
		if len(items) != 1 || items[0].Message != "hello" {
			t.Errorf("unexpected update: %+v", items)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for update")
	}
}
