package event

import (
	"context"
	"time"

	"github.com/crewboard/go-crewboard/internal/boardlog"
	"github.com/crewboard/go-crewboard/internal/project"
)

// Store is the mutation surface the router drives. Implemented by
// board.Store.
type Store interface {
	ApplyConnected(status project.Status, employees []project.Employee)
	ReplaceRoster(employees []project.Employee)
	AppendMessage(msg project.Message)
	UpdateEmployeeStatus(name string, idle bool, action string)
	AppendThinking(agentName, action, content, kind string, ts time.Time)
	AppendCall(call project.LLMCallSummary)
	RecordToolUsage(usage project.ToolUsage, ts time.Time)
	SetTotalCost(cost float64)
	ApplyStatus(status project.Status, reason string, totalCost *float64, outputPath string)
	RefreshProjects(ctx context.Context) error
}

// Cursor receives call-arrival signals for auto-follow. Implemented by
// calls.Cursor.
type Cursor interface {
	ObserveCall(totalCount int)
}

// Router applies stream events to the store in delivery order. It holds
// no buffer and performs no reordering: whatever order the transport
// delivers is the order the model reflects.
type Router struct {
	store       Store
	cursor      Cursor
	refreshList bool
}

// NewRouter creates a router. refreshList enables the best-effort
// project list re-fetch on project_status events.
func NewRouter(store Store, cursor Cursor, refreshList bool) *Router {
	return &Router{store: store, cursor: cursor, refreshList: refreshList}
}

// HandleFrame parses one raw frame and dispatches it. Malformed frames
// are logged and dropped without touching the store.
func (r *Router) HandleFrame(ctx context.Context, data []byte) {
	ev, err := Parse(data)
	if err != nil {
		boardlog.Log.Warn("Dropping malformed frame", "error", err)
		return
	}
	r.Dispatch(ctx, ev)
}

// Dispatch applies one event to the store.
func (r *Router) Dispatch(ctx context.Context, ev Event) {
	switch e := ev.(type) {
	case *Connected:
		r.store.ApplyConnected(e.Status, e.Employees)

	case *Message:
		r.store.AppendMessage(project.Message{
			ID:        e.ID,
			Content:   e.Content,
			SentFrom:  e.SentFrom,
			Timestamp: e.Timestamp.Time,
		})

	case *AgentStatus:
		r.store.UpdateEmployeeStatus(e.AgentName, e.Status == "idle", e.Action)

	case *Thinking:
		r.store.AppendThinking(e.AgentName, e.Action, e.Content, project.ThinkingKindThought, e.Timestamp.Time)

	case *LLMCall:
		r.store.AppendCall(project.LLMCallSummary{
			ID:         e.ID,
			Index:      e.Index,
			AgentName:  e.AgentName,
			Model:      e.Model,
			Prompt:     e.Prompt,
			Response:   e.Response,
			Cost:       e.Cost,
			Tokens:     e.Tokens,
			TotalCount: e.TotalCount,
			Timestamp:  e.Timestamp.Time,
		})
		if e.TotalCost != nil {
			r.store.SetTotalCost(*e.TotalCost)
		}
		if r.cursor != nil {
			r.cursor.ObserveCall(e.TotalCount)
		}

	case *ToolUsage:
		r.store.RecordToolUsage(project.ToolUsage{
			AgentName: e.AgentName,
			ToolName:  e.ToolName,
			Args:      e.Args,
			Result:    e.Result,
		}, e.Timestamp.Time)

	case *CostUpdate:
		r.store.SetTotalCost(e.TotalCost)

	case *ProjectStatus:
		r.store.ApplyStatus(normalizeStatus(e.Status), e.Message, e.TotalCost, e.OutputPath)
		if r.refreshList {
			// Best effort: list staleness is tolerable, a failed refresh
			// must not surface as a user-facing error.
			if err := r.store.RefreshProjects(ctx); err != nil {
				boardlog.Log.Debug("Project list refresh failed", "error", err)
			}
		}

	case *EmployeesUpdated:
		r.store.ReplaceRoster(e.Employees)

	default:
		boardlog.Log.Debug("Ignoring unknown event", "tag", ev.eventTag())
	}
}

// normalizeStatus maps the orchestrator's "started" announcement onto
// the running state; everything else passes through.
func normalizeStatus(s project.Status) project.Status {
	if s == "started" {
		return project.StatusRunning
	}
	return s
}
