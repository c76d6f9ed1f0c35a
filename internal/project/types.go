// Package project defines the data model shared by the sync engine:
// projects, their rosters, and the telemetry records streamed during a run.
package project

import "time"

// Status is the lifecycle state of a project run.
type Status string

const (
	StatusCreated   Status = "created"
	StatusRunning   Status = "running"
	StatusPaused    Status = "paused"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusStopped   Status = "stopped"
)

// IsTerminal reports whether no further transitions are expected
// without an explicit restart.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusStopped
}

// Project is the authoritative client-side copy of one remote project.
// Exactly one instance exists per id; the focused project is the same
// pointer as the list entry, never a copy.
type Project struct {
	ID           string     `json:"id"`
	Name         string     `json:"name"`
	Idea         string     `json:"idea"`
	Investment   float64    `json:"investment"`
	NRound       int        `json:"n_round"`
	Status       Status     `json:"status"`
	Employees    []Employee `json:"employees"`
	CreatedAt    string     `json:"created_at"`
	TotalCost    float64    `json:"total_cost"`
	OutputPath   string     `json:"output_path"`
	ErrorMessage string     `json:"error_message"`
}

// Summary is the lightweight list representation returned by the
// project list endpoint.
type Summary struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Status    Status `json:"status"`
	CreatedAt string `json:"created_at"`
}

// Employee is one agent in a project's roster. Names are unique within
// a project; updates address employees by name and never insert.
type Employee struct {
	Name          string `json:"name"`
	Profile       string `json:"profile"`
	Goal          string `json:"goal,omitempty"`
	IsIdle        bool   `json:"is_idle"`
	CurrentAction string `json:"current_action,omitempty"`
}

// Message is one entry in the focused project's conversation feed.
type Message struct {
	ID        string    `json:"id,omitempty"`
	Content   string    `json:"content"`
	SentFrom  string    `json:"sent_from"`
	Type      string    `json:"type,omitempty"` // "system" for locally synthesized notices
	Timestamp time.Time `json:"timestamp"`
}

// Thinking log entry kinds.
const (
	ThinkingKindThought = "thought"
	ThinkingKindTool    = "tool"
)

// ThinkingLogEntry is one entry in the focused project's thinking/tool
// log. The ID is assigned locally and is only stable enough for list
// keys, not for ordering.
type ThinkingLogEntry struct {
	ID        int64     `json:"id"`
	AgentName string    `json:"agent_name"`
	Action    string    `json:"action"`
	Content   string    `json:"content"`
	Kind      string    `json:"type"` // thought or tool
	Timestamp time.Time `json:"timestamp"`
}

// ToolUsage records one tool invocation observed on the stream.
type ToolUsage struct {
	AgentName string         `json:"agent_name"`
	ToolName  string         `json:"tool_name"`
	Args      map[string]any `json:"args"`
	Result    string         `json:"result"`
}

// TokenUsage carries per-call and cumulative token counts as reported
// by the remote cost manager.
type TokenUsage struct {
	Prompt          int `json:"prompt"`
	Completion      int `json:"completion"`
	TotalPrompt     int `json:"total_prompt"`
	TotalCompletion int `json:"total_completion"`
}

// LLMCallSummary is the lightweight pushed record of one LLM call. It
// drives the live feed; the full record is pulled separately by ordinal.
type LLMCallSummary struct {
	ID         string     `json:"id,omitempty"`
	Index      int        `json:"index,omitempty"`
	AgentName  string     `json:"agent_name"`
	Model      string     `json:"model"`
	Prompt     string     `json:"prompt"`
	Response   string     `json:"response"`
	Cost       float64    `json:"cost,omitempty"`
	Tokens     TokenUsage `json:"tokens"`
	TotalCount int        `json:"total_count,omitempty"`
	Timestamp  time.Time  `json:"timestamp"`
}

// RoleContent is one role/content pair from a call's full message list.
type RoleContent struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// LLMCallDetail is the full pulled record of one LLM call, including
// the cursor metadata computed server-side. The client trusts
// HasPrev/HasNext verbatim and never recomputes them.
type LLMCallDetail struct {
	LLMCallSummary
	FullMessages []RoleContent `json:"full_messages"`
	FullResponse string        `json:"full_response"`
	TotalCount   int           `json:"total_count"`
	HasPrev      bool          `json:"has_prev"`
	HasNext      bool          `json:"has_next"`
	PrevID       string        `json:"prev_id,omitempty"`
	NextID       string        `json:"next_id,omitempty"`
}
