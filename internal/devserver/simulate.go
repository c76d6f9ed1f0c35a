package devserver

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/crewboard/go-crewboard/internal/boardlog"
	"github.com/crewboard/go-crewboard/internal/project"
)

// runProject drives one scripted run through the event protocol: the
// same frame sequence a real orchestrator produces, at dev-server pace.
func (s *Server) runProject(ctx context.Context, id string) {
	s.mu.Lock()
	ps, ok := s.projects[id]
	if !ok {
		s.mu.Unlock()
		return
	}
	ps.Status = project.StatusRunning
	ps.history = nil
	name := ps.Name
	roster := append([]project.Employee(nil), ps.Employees...)
	rounds := s.opts.Rounds
	s.mu.Unlock()

	s.broadcast(id, frame{
		"type":    "project_status",
		"status":  "started",
		"message": fmt.Sprintf("Project '%s' started", name),
	}, true)
	s.broadcast(id, frame{"type": "employees_updated", "employees": roster}, true)

	totalCost := 0.0
	err := func() error {
		for round := 1; round <= rounds; round++ {
			if err := s.waitResume(ctx, id); err != nil {
				return err
			}

			// One concurrent turn per employee, like the real
			// environment gathers its role futures.
			g, gctx := errgroup.WithContext(ctx)
			for _, emp := range roster {
				emp := emp
				g.Go(func() error {
					return s.runTurn(gctx, id, emp, round, &totalCost)
				})
			}
			if err := g.Wait(); err != nil {
				return err
			}

			s.broadcast(id, frame{"type": "cost_update", "total_cost": totalCost}, false)
		}
		return nil
	}()

	if err != nil {
		s.mu.Lock()
		ps.Status = project.StatusStopped
		ps.cancel = nil
		s.mu.Unlock()
		s.broadcast(id, frame{
			"type":    "project_status",
			"status":  "stopped",
			"message": "Project stopped",
		}, true)
		return
	}

	outputPath := "workspace/" + id
	s.mu.Lock()
	ps.Status = project.StatusCompleted
	ps.TotalCost = totalCost
	ps.OutputPath = outputPath
	ps.cancel = nil
	s.mu.Unlock()

	s.broadcast(id, frame{
		"type":        "project_status",
		"status":      "completed",
		"message":     fmt.Sprintf("Project completed! Total cost: $%.4f", totalCost),
		"total_cost":  totalCost,
		"output_path": outputPath,
	}, true)
	boardlog.Log.Info("Simulated run finished", "project", id, "cost", totalCost)
}

// runTurn simulates one employee working for one round.
func (s *Server) runTurn(ctx context.Context, id string, emp project.Employee, round int, totalCost *float64) error {
	action := fmt.Sprintf("Round %d: %s work", round, emp.Profile)

	s.broadcast(id, frame{
		"type":       "agent_status",
		"agent_name": emp.Name,
		"profile":    emp.Profile,
		"status":     "working",
		"action":     action,
	}, false)

	if err := s.sleep(ctx); err != nil {
		return err
	}

	s.broadcast(id, frame{
		"type":       "thinking",
		"agent_name": emp.Name,
		"profile":    emp.Profile,
		"action":     action,
		"content":    fmt.Sprintf("%s is reasoning about round %d...", emp.Name, round),
	}, true)

	if err := s.sleep(ctx); err != nil {
		return err
	}
	s.emitLLMCall(id, emp, round, totalCost)

	s.broadcast(id, frame{
		"type":       "tool_usage",
		"agent_name": emp.Name,
		"tool_name":  "write_file",
		"args":       map[string]any{"path": fmt.Sprintf("workspace/%s/%s_r%d.md", id, emp.Name, round)},
		"result":     "ok",
	}, false)

	if err := s.sleep(ctx); err != nil {
		return err
	}

	s.broadcast(id, frame{
		"type":       "agent_status",
		"agent_name": emp.Name,
		"profile":    emp.Profile,
		"status":     "idle",
	}, false)
	return nil
}

// emitLLMCall stores one full call record and pushes its summary frame.
func (s *Server) emitLLMCall(id string, emp project.Employee, round int, totalCost *float64) {
	prompt := fmt.Sprintf("As %s, plan round %d", emp.Profile, round)
	response := fmt.Sprintf("%s round %d output", emp.Name, round)

	s.mu.Lock()
	ps, ok := s.projects[id]
	if !ok {
		s.mu.Unlock()
		return
	}
	index := len(ps.calls) + 1
	callID := fmt.Sprintf("%04d", index)
	cost := 0.0015
	*totalCost += cost

	detail := &project.LLMCallDetail{
		LLMCallSummary: project.LLMCallSummary{
			ID:        callID,
			Index:     index,
			AgentName: emp.Name,
			Model:     "gpt-4o",
			Prompt:    prompt,
			Response:  response,
			Cost:      cost,
			Tokens: project.TokenUsage{
				Prompt:     120,
				Completion: 80,
			},
			Timestamp: time.Now(),
		},
		FullMessages: []project.RoleContent{
			{Role: "system", Content: "You are " + emp.Profile},
			{Role: "user", Content: prompt},
		},
		FullResponse: response + " (full)",
	}
	ps.calls[index] = detail
	total := len(ps.calls)
	costNow := *totalCost
	s.mu.Unlock()

	llmCallsStoredTotal.Inc()
	s.broadcast(id, frame{
		"type":        "llm_call",
		"id":          callID,
		"index":       index,
		"agent_name":  emp.Name,
		"model":       detail.Model,
		"prompt":      prompt,
		"response":    response,
		"cost":        cost,
		"tokens":      detail.Tokens,
		"total_cost":  costNow,
		"total_count": total,
	}, false)
}

// sleep waits one tick, honoring cancellation.
func (s *Server) sleep(ctx context.Context) error {
	select {
	case <-time.After(s.opts.Tick):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// waitResume blocks while the project is paused.
func (s *Server) waitResume(ctx context.Context, id string) error {
	for {
		s.mu.Lock()
		ps, ok := s.projects[id]
		paused := ok && ps.paused
		s.mu.Unlock()
		if !ok || !paused {
			return nil
		}
		select {
		case <-time.After(s.opts.Tick):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
