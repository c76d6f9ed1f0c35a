// Package event defines the tagged stream event protocol and the router
// that translates inbound events into state store mutations.
package event

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/crewboard/go-crewboard/internal/project"
)

// Event tags as they appear on the wire.
const (
	TagConnected        = "connected"
	TagMessage          = "message"
	TagAgentStatus      = "agent_status"
	TagThinking         = "thinking"
	TagLLMCall          = "llm_call"
	TagToolUsage        = "tool_usage"
	TagCostUpdate       = "cost_update"
	TagProjectStatus    = "project_status"
	TagEmployeesUpdated = "employees_updated"
)

// Event is the closed set of stream events. Frames with tags outside
// this set parse into Unknown so future event types never fail dispatch.
type Event interface {
	eventTag() string
}

// Timestamp unmarshals the orchestrator's timestamp formats: RFC 3339
// with or without a zone offset. Unparseable or absent values stay zero;
// the store default-timestamps them on append.
type Timestamp struct {
	time.Time
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
}

// UnmarshalJSON implements lenient timestamp decoding.
func (t *Timestamp) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil || s == "" {
		return nil
	}
	for _, layout := range timestampLayouts {
		if parsed, err := time.Parse(layout, s); err == nil {
			t.Time = parsed
			return nil
		}
	}
	return nil
}

// Connected is the first frame on every stream: the project's current
// status and full roster.
type Connected struct {
	ProjectID string             `json:"project_id"`
	Status    project.Status     `json:"status"`
	Employees []project.Employee `json:"employees"`
}

// Message is one conversation entry published by an agent or the user.
type Message struct {
	ID        string    `json:"id"`
	Content   string    `json:"content"`
	Role      string    `json:"role"`
	SentFrom  string    `json:"sent_from"`
	SendTo    []string  `json:"send_to"`
	CauseBy   string    `json:"cause_by"`
	Timestamp Timestamp `json:"timestamp"`
}

// AgentStatus reports one employee starting, finishing, or failing work.
type AgentStatus struct {
	AgentName string    `json:"agent_name"`
	Profile   string    `json:"profile"`
	Status    string    `json:"status"` // working, idle, error
	Action    string    `json:"action"`
	Error     string    `json:"error"`
	Timestamp Timestamp `json:"timestamp"`
}

// Thinking carries one reasoning step produced by an agent.
type Thinking struct {
	AgentName string    `json:"agent_name"`
	Profile   string    `json:"profile"`
	Action    string    `json:"action"`
	Content   string    `json:"content"`
	Timestamp Timestamp `json:"timestamp"`
}

// LLMCall is the pushed summary of one LLM invocation. TotalCost, when
// present, is the authoritative cumulative figure from the remote cost
// manager, not a delta.
type LLMCall struct {
	ID         string             `json:"id"`
	Index      int                `json:"index"`
	AgentName  string             `json:"agent_name"`
	Model      string             `json:"model"`
	Prompt     string             `json:"prompt"`
	Response   string             `json:"response"`
	Cost       float64            `json:"cost"`
	Tokens     project.TokenUsage `json:"tokens"`
	TotalCost  *float64           `json:"total_cost"`
	TotalCount int                `json:"total_count"`
	Timestamp  Timestamp          `json:"timestamp"`
}

// ToolUsage reports one tool invocation by an agent.
type ToolUsage struct {
	AgentName string         `json:"agent_name"`
	ToolName  string         `json:"tool_name"`
	Args      map[string]any `json:"args"`
	Result    string         `json:"result"`
	Timestamp Timestamp      `json:"timestamp"`
}

// CostUpdate carries the cumulative run cost.
type CostUpdate struct {
	TotalCost float64 `json:"total_cost"`
}

// ProjectStatus announces a run lifecycle transition with a
// human-readable reason. TotalCost and OutputPath accompany
// terminal-success transitions.
type ProjectStatus struct {
	Status     project.Status `json:"status"`
	Message    string         `json:"message"`
	TotalCost  *float64       `json:"total_cost"`
	OutputPath string         `json:"output_path"`
	Error      string         `json:"error"`
}

// EmployeesUpdated replaces the roster wholesale, typically after hiring.
type EmployeesUpdated struct {
	Employees []project.Employee `json:"employees"`
}

// Unknown is any frame whose tag is not in the dispatch table. It is
// accepted and ignored.
type Unknown struct {
	Tag string
}

func (Connected) eventTag() string        { return TagConnected }
func (Message) eventTag() string          { return TagMessage }
func (AgentStatus) eventTag() string      { return TagAgentStatus }
func (Thinking) eventTag() string         { return TagThinking }
func (LLMCall) eventTag() string          { return TagLLMCall }
func (ToolUsage) eventTag() string        { return TagToolUsage }
func (CostUpdate) eventTag() string       { return TagCostUpdate }
func (ProjectStatus) eventTag() string    { return TagProjectStatus }
func (EmployeesUpdated) eventTag() string { return TagEmployeesUpdated }
func (u Unknown) eventTag() string        { return u.Tag }

// Parse decodes one stream frame. Frames that are not JSON objects with
// a string "type" field return an error; the caller drops them. Frames
// with an unrecognized tag parse into Unknown.
func Parse(data []byte) (Event, error) {
	var envelope struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, fmt.Errorf("parse frame: %w", err)
	}
	if envelope.Type == "" {
		return nil, fmt.Errorf("parse frame: missing type tag")
	}

	decode := func(v Event) (Event, error) {
		if err := json.Unmarshal(data, v); err != nil {
			return nil, fmt.Errorf("parse %s frame: %w", envelope.Type, err)
		}
		return v, nil
	}

	switch envelope.Type {
	case TagConnected:
		return decode(&Connected{})
	case TagMessage:
		return decode(&Message{})
	case TagAgentStatus:
		return decode(&AgentStatus{})
	case TagThinking:
		return decode(&Thinking{})
	case TagLLMCall:
		return decode(&LLMCall{})
	case TagToolUsage:
		return decode(&ToolUsage{})
	case TagCostUpdate:
		return decode(&CostUpdate{})
	case TagProjectStatus:
		return decode(&ProjectStatus{})
	case TagEmployeesUpdated:
		return decode(&EmployeesUpdated{})
	default:
		return Unknown{Tag: envelope.Type}, nil
	}
}
