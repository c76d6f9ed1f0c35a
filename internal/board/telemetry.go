package board

import (
	"fmt"
	"time"

	"github.com/crewboard/go-crewboard/internal/notify"
	"github.com/crewboard/go-crewboard/internal/project"
)

// Mutation primitives consumed by the event router. Events are applied
// in delivery order; none of these methods buffer or reorder.

// ApplyConnected records the stream's opening snapshot: current status
// and full roster of the focused project.
func (s *Store) ApplyConnected(status project.Status, employees []project.Employee) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.focusedLocked()
	if p == nil {
		return
	}
	if status != "" {
		p.Status = status
	}
	p.Employees = employees
	s.changedLocked()
}

// ReplaceRoster replaces the focused project's roster wholesale. This is
// the only operation that changes the roster's shape; per-employee
// status updates never insert.
func (s *Store) ReplaceRoster(employees []project.Employee) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.focusedLocked()
	if p == nil {
		return
	}
	p.Employees = employees
	s.changedLocked()
}

// AppendMessage appends to the focused project's message feed,
// defaulting the timestamp to now when the frame carried none.
func (s *Store) AppendMessage(msg project.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.focusedID == "" {
		return
	}
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now()
	}
	s.messages = append(s.messages, msg)
	s.changedLocked()
}

// UpdateEmployeeStatus updates one employee in place by name. Updates
// targeting a name absent from the roster are no-ops, never insertions.
func (s *Store) UpdateEmployeeStatus(name string, idle bool, action string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.focusedLocked()
	if p == nil {
		return
	}
	for i := range p.Employees {
		if p.Employees[i].Name == name {
			p.Employees[i].IsIdle = idle
			p.Employees[i].CurrentAction = action
			s.changedLocked()
			return
		}
	}
}

// AppendThinking appends one entry to the thinking/tool log. The id is
// assigned locally and is stable enough for list keys only.
func (s *Store) AppendThinking(agentName, action, content, kind string, ts time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.appendThinkingLocked(agentName, action, content, kind, ts)
	s.changedLocked()
}

func (s *Store) appendThinkingLocked(agentName, action, content, kind string, ts time.Time) {
	if s.focusedID == "" {
		return
	}
	if ts.IsZero() {
		ts = time.Now()
	}
	s.nextLogID++
	s.thinking = append(s.thinking, project.ThinkingLogEntry{
		ID:        s.nextLogID,
		AgentName: agentName,
		Action:    action,
		Content:   content,
		Kind:      kind,
		Timestamp: ts,
	})
}

// AppendCall appends one LLM call summary to the live feed.
func (s *Store) AppendCall(call project.LLMCallSummary) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.focusedID == "" {
		return
	}
	if call.Timestamp.IsZero() {
		call.Timestamp = time.Now()
	}
	s.calls = append(s.calls, call)
	s.changedLocked()
}

// RecordToolUsage appends the tool usage and synthesizes the matching
// thinking-log entry, so the two views share one source of truth.
func (s *Store) RecordToolUsage(usage project.ToolUsage, ts time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.focusedID == "" {
		return
	}
	s.tools = append(s.tools, usage)
	content := usage.Result
	if len(usage.Args) > 0 {
		content = fmt.Sprintf("args: %v\n%s", usage.Args, usage.Result)
	}
	s.appendThinkingLocked(usage.AgentName, usage.ToolName, content, project.ThinkingKindTool, ts)
	s.changedLocked()
}

// SetTotalCost sets the focused project's cumulative cost to the
// server-provided figure. The client never sums its own observations;
// assignment keeps repeated deliveries idempotent.
func (s *Store) SetTotalCost(cost float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.focusedLocked()
	if p == nil {
		return
	}
	p.TotalCost = cost
	s.changedLocked()
}

// ApplyStatus applies a project_status event: status transition, a
// synthetic system message carrying the human-readable reason, and, on
// terminal success, the final cost and output path.
func (s *Store) ApplyStatus(status project.Status, reason string, totalCost *float64, outputPath string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.focusedLocked()
	if p == nil {
		return
	}

	p.Status = status
	if status == project.StatusCompleted {
		if totalCost != nil {
			p.TotalCost = *totalCost
		}
		if outputPath != "" {
			p.OutputPath = outputPath
		}
	}

	if reason != "" {
		s.messages = append(s.messages, project.Message{
			Content:   reason,
			SentFrom:  "System",
			Type:      "system",
			Timestamp: time.Now(),
		})
	}
	s.changedLocked()

	if status.IsTerminal() && reason != "" {
		severity := notify.SeverityInfo
		switch status {
		case project.StatusCompleted:
			severity = notify.SeveritySuccess
		case project.StatusFailed:
			severity = notify.SeverityError
		}
		s.notes.Add(reason, severity)
	}
}

// Messages returns a snapshot of the focused project's message feed.
func (s *Store) Messages() []project.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]project.Message, len(s.messages))
	copy(out, s.messages)
	return out
}

// ThinkingLog returns a snapshot of the thinking/tool log.
func (s *Store) ThinkingLog() []project.ThinkingLogEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]project.ThinkingLogEntry, len(s.thinking))
	copy(out, s.thinking)
	return out
}

// Calls returns a snapshot of the LLM call feed.
func (s *Store) Calls() []project.LLMCallSummary {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]project.LLMCallSummary, len(s.calls))
	copy(out, s.calls)
	return out
}

// ToolUsages returns a snapshot of the tool usage records.
func (s *Store) ToolUsages() []project.ToolUsage {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]project.ToolUsage, len(s.tools))
	copy(out, s.tools)
	return out
}
