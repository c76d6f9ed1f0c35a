package event

import (
	"testing"
	"time"
)

func TestParse_TaggedEvents(t *testing.T) {
	tests := []struct {
		name  string
		frame string
		check func(t *testing.T, ev Event)
	}{
		{
			name:  "connected",
			frame: `{"type":"connected","project_id":"p1","status":"running","employees":[{"name":"Mike","profile":"Team Leader"}]}`,
			check: func(t *testing.T, ev Event) {
				c, ok := ev.(*Connected)
				if !ok {
					t.Fatalf("got %T", ev)
				}
				if c.ProjectID != "p1" || c.Status != "running" || len(c.Employees) != 1 {
					t.Errorf("unexpected connected: %+v", c)
				}
			},
		},
		{
			name:  "agent status",
			frame: `{"type":"agent_status","agent_name":"Alice","status":"working","action":"WritePRD"}`,
			check: func(t *testing.T, ev Event) {
				a, ok := ev.(*AgentStatus)
				if !ok {
					t.Fatalf("got %T", ev)
				}
				if a.AgentName != "Alice" || a.Status != "working" || a.Action != "WritePRD" {
					t.Errorf("unexpected agent_status: %+v", a)
				}
			},
		},
		{
			name:  "llm call with total cost",
			frame: `{"type":"llm_call","id":"0003","index":3,"cost":0.0015,"total_cost":0.0045,"total_count":3,"tokens":{"prompt":120,"completion":80}}`,
			check: func(t *testing.T, ev Event) {
				c, ok := ev.(*LLMCall)
				if !ok {
					t.Fatalf("got %T", ev)
				}
				if c.TotalCost == nil || *c.TotalCost != 0.0045 {
					t.Errorf("total_cost not decoded: %+v", c.TotalCost)
				}
				if c.Tokens.Prompt != 120 || c.Tokens.Completion != 80 {
					t.Errorf("tokens not decoded: %+v", c.Tokens)
				}
			},
		},
		{
			name:  "project status without cost",
			frame: `{"type":"project_status","status":"failed","error":"boom","message":"Project failed: boom"}`,
			check: func(t *testing.T, ev Event) {
				p, ok := ev.(*ProjectStatus)
				if !ok {
					t.Fatalf("got %T", ev)
				}
				if p.TotalCost != nil {
					t.Errorf("absent total_cost must stay nil, got %v", *p.TotalCost)
				}
				if p.Error != "boom" {
					t.Errorf("unexpected error field: %q", p.Error)
				}
			},
		},
		{
			name:  "tool usage args",
			frame: `{"type":"tool_usage","agent_name":"Alex","tool_name":"Terminal","args":{"cmd":"ls"},"result":"ok"}`,
			check: func(t *testing.T, ev Event) {
				u, ok := ev.(*ToolUsage)
				if !ok {
					t.Fatalf("got %T", ev)
				}
				if u.Args["cmd"] != "ls" {
					t.Errorf("args not decoded: %+v", u.Args)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev, err := Parse([]byte(tt.frame))
			if err != nil {
				t.Fatalf("Parse: %v", err)
			}
			tt.check(t, ev)
		})
	}
}

func TestParse_UnknownTag(t *testing.T) {
	ev, err := Parse([]byte(`{"type":"heartbeat","seq":42}`))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	u, ok := ev.(Unknown)
	if !ok {
		t.Fatalf("got %T, want Unknown", ev)
	}
	if u.Tag != "heartbeat" {
		t.Errorf("tag = %q", u.Tag)
	}
}

func TestParse_Malformed(t *testing.T) {
	for _, frame := range []string{
		`not json`,
		`{"no_type":"here"}`,
		`{"type":""}`,
		`[]`,
	} {
		if _, err := Parse([]byte(frame)); err == nil {
			t.Errorf("Parse(%q): expected error", frame)
		}
	}
}

func TestTimestamp_Lenient(t *testing.T) {
	tests := []struct {
		in   string
		want time.Time
	}{
		{`"2026-08-26T10:30:00Z"`, time.Date(2026, 8, 26, 10, 30, 0, 0, time.UTC)},
		// python datetime.isoformat() carries no zone
		{`"2026-08-26T10:30:00.123456"`, time.Date(2026, 8, 26, 10, 30, 0, 123456000, time.UTC)},
		{`"2026-08-26T10:30:00"`, time.Date(2026, 8, 26, 10, 30, 0, 0, time.UTC)},
		{`"garbage"`, time.Time{}},
		{`""`, time.Time{}},
		{`null`, time.Time{}},
	}
	for _, tt := range tests {
		var ts Timestamp
		if err := ts.UnmarshalJSON([]byte(tt.in)); err != nil {
			t.Errorf("UnmarshalJSON(%s): %v", tt.in, err)
			continue
		}
		if !ts.Time.Equal(tt.want) {
			t.Errorf("UnmarshalJSON(%s) = %v, want %v", tt.in, ts.Time, tt.want)
		}
	}
}
