package board

import (
	"context"
	"testing"

	"github.com/crewboard/go-crewboard/internal/event"
	"github.com/crewboard/go-crewboard/internal/notify"
	"github.com/crewboard/go-crewboard/internal/project"
)

// Drives the router and store together with the exact frame sequence a
// run produces on the wire.
func TestRouterStore_RunSequence(t *testing.T) {
	s, _, notes := newTestStore(&project.Project{ID: "P1", Status: project.StatusCreated})
	if err := s.Focus(context.Background(), "P1"); err != nil {
		t.Fatal(err)
	}
	r := event.NewRouter(s, nil, false)
	ctx := context.Background()

	feed := func(frames ...string) {
		for _, f := range frames {
			r.HandleFrame(ctx, []byte(f))
		}
	}

	feed(`{"type":"connected","project_id":"P1","status":"created","employees":[
		{"name":"Mike","profile":"TeamLeader","is_idle":true},
		{"name":"Alice","profile":"ProductManager","is_idle":true},
		{"name":"Bob","profile":"Architect","is_idle":true}]}`)

	p, _ := s.Focused()
	if len(p.Employees) != 3 {
		t.Fatalf("roster after connected = %+v", p.Employees)
	}

	feed(`{"type":"agent_status","agent_name":"Mike","status":"working","action":"coding"}`)

	p, _ = s.Focused()
	if p.Employees[0].IsIdle || p.Employees[0].CurrentAction != "coding" {
		t.Errorf("employee 0 = %+v", p.Employees[0])
	}

	feed(`{"type":"project_status","status":"completed","message":"Project completed successfully!","total_cost":1.2345,"output_path":"workspace/P1"}`)

	p, _ = s.Focused()
	if p.Status != project.StatusCompleted {
		t.Errorf("status = %q", p.Status)
	}
	if p.TotalCost != 1.2345 {
		t.Errorf("total cost = %v", p.TotalCost)
	}

	msgs := s.Messages()
	systemCount := 0
	for _, m := range msgs {
		if m.Type == "system" {
			systemCount++
		}
	}
	if systemCount != 1 {
		t.Errorf("system messages = %d, want 1", systemCount)
	}
	if len(notes.added) != 1 || notes.added[0] != notify.SeveritySuccess {
		t.Errorf("notifications = %v", notes.added)
	}
}
