// Package board holds the normalized client-side model of all known
// projects and the focused project's live telemetry.
package board

import (
	"context"
	"fmt"
	"sync"

	"github.com/crewboard/go-crewboard/internal/api"
	"github.com/crewboard/go-crewboard/internal/boardlog"
	"github.com/crewboard/go-crewboard/internal/notify"
	"github.com/crewboard/go-crewboard/internal/project"
)

// API is the slice of the orchestrator client the store depends on.
type API interface {
	ListProjects(ctx context.Context) ([]project.Summary, error)
	GetProject(ctx context.Context, id string) (*project.Project, error)
	CreateProject(ctx context.Context, req api.CreateRequest) (*project.Project, error)
	UpdateProject(ctx context.Context, id string, req api.UpdateRequest) (*project.Project, error)
	DeleteProject(ctx context.Context, id string) error
	StartProject(ctx context.Context, id string) error
	StopProject(ctx context.Context, id string) error
	PauseProject(ctx context.Context, id string) error
	ResumeProject(ctx context.Context, id string) error
}

// Notifier surfaces user-facing notices. Implemented by notify.Queue.
type Notifier interface {
	Add(message string, severity notify.Severity) int64
}

// Store is the authoritative client-side project model. One entity per
// id lives in the map; the focused project is the same entity, so a
// mutation through either view is visible through both.
type Store struct {
	client API
	notes  Notifier

	mu        sync.Mutex
	projects  map[string]*project.Project
	order     []string
	focusedID string

	messages  []project.Message
	thinking  []project.ThinkingLogEntry
	calls     []project.LLMCallSummary
	tools     []project.ToolUsage
	nextLogID int64

	subscribers []chan struct{}
}

// NewStore creates an empty store backed by the given API client.
func NewStore(client API, notes Notifier) *Store {
	return &Store{
		client:   client,
		notes:    notes,
		projects: make(map[string]*project.Project),
	}
}

// Subscribe returns a channel that receives a coalesced tick after every
// store change, and an unsubscribe function.
func (s *Store) Subscribe() (<-chan struct{}, func()) {
	ch := make(chan struct{}, 1)

	s.mu.Lock()
	s.subscribers = append(s.subscribers, ch)
	s.mu.Unlock()

	return ch, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		for i, sub := range s.subscribers {
			if sub == ch {
				s.subscribers = append(s.subscribers[:i], s.subscribers[i+1:]...)
				close(ch)
				break
			}
		}
	}
}

// changedLocked signals subscribers. Must be called with s.mu held.
func (s *Store) changedLocked() {
	for _, ch := range s.subscribers {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

// fail records an API failure: one error notification with locally
// defined text, the server detail only in the log, and a wrapped error
// back to the caller so UI flows can abort.
func (s *Store) fail(userMsg string, err error) error {
	boardlog.Log.Error(userMsg, "error", err)
	s.notes.Add(userMsg, notify.SeverityError)
	return fmt.Errorf("%s: %w", userMsg, err)
}

// LoadProjects fetches the project summary list and reconciles the
// entity map with it. Failures surface a notification.
func (s *Store) LoadProjects(ctx context.Context) error {
	if err := s.RefreshProjects(ctx); err != nil {
		return s.fail("Failed to load projects", err)
	}
	return nil
}

// RefreshProjects is the silent variant of LoadProjects, used as a
// best-effort side effect of status events.
func (s *Store) RefreshProjects(ctx context.Context) error {
	summaries, err := s.client.ListProjects(ctx)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	seen := make(map[string]bool, len(summaries))
	s.order = s.order[:0]
	for _, sum := range summaries {
		seen[sum.ID] = true
		s.order = append(s.order, sum.ID)
		if p, ok := s.projects[sum.ID]; ok {
			// Patch the existing entity in place so the focused
			// reference stays valid.
			p.Name = sum.Name
			p.Status = sum.Status
			p.CreatedAt = sum.CreatedAt
		} else {
			s.projects[sum.ID] = &project.Project{
				ID:        sum.ID,
				Name:      sum.Name,
				Status:    sum.Status,
				CreatedAt: sum.CreatedAt,
			}
		}
	}
	for id := range s.projects {
		if !seen[id] {
			delete(s.projects, id)
		}
	}
	s.changedLocked()
	return nil
}

// FetchProject fetches one project's full record and upserts it.
func (s *Store) FetchProject(ctx context.Context, id string) (project.Project, error) {
	p, err := s.client.GetProject(ctx, id)
	if err != nil {
		return project.Project{}, s.fail("Failed to load project", err)
	}

	s.mu.Lock()
	s.upsertLocked(p)
	snapshot := *s.projects[p.ID]
	s.changedLocked()
	s.mu.Unlock()
	return snapshot, nil
}

// upsertLocked merges a full server record into the entity map,
// preserving pointer identity for existing entities.
func (s *Store) upsertLocked(p *project.Project) {
	if existing, ok := s.projects[p.ID]; ok {
		*existing = *p
		return
	}
	s.projects[p.ID] = p
	s.order = append(s.order, p.ID)
}

// Create creates a project on the orchestrator and adds it locally.
func (s *Store) Create(ctx context.Context, req api.CreateRequest) (project.Project, error) {
	p, err := s.client.CreateProject(ctx, req)
	if err != nil {
		return project.Project{}, s.fail("Failed to create project", err)
	}

	s.mu.Lock()
	s.upsertLocked(p)
	snapshot := *s.projects[p.ID]
	s.changedLocked()
	s.mu.Unlock()

	s.notes.Add("Project created", notify.SeveritySuccess)
	return snapshot, nil
}

// Update updates a project on the orchestrator and patches it locally.
func (s *Store) Update(ctx context.Context, id string, req api.UpdateRequest) (project.Project, error) {
	p, err := s.client.UpdateProject(ctx, id, req)
	if err != nil {
		return project.Project{}, s.fail("Failed to update project", err)
	}

	s.mu.Lock()
	s.upsertLocked(p)
	snapshot := *s.projects[p.ID]
	s.changedLocked()
	s.mu.Unlock()
	return snapshot, nil
}

// Delete removes a project. Deleting the focused project releases the
// focus and its telemetry.
func (s *Store) Delete(ctx context.Context, id string) error {
	if err := s.client.DeleteProject(ctx, id); err != nil {
		return s.fail("Failed to delete project", err)
	}

	s.mu.Lock()
	delete(s.projects, id)
	for i, oid := range s.order {
		if oid == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	if s.focusedID == id {
		s.releaseFocusLocked()
	}
	s.changedLocked()
	s.mu.Unlock()

	s.notes.Add("Project deleted", notify.SeveritySuccess)
	return nil
}

// Start asks the orchestrator to run the project.
func (s *Store) Start(ctx context.Context, id string) error {
	if err := s.client.StartProject(ctx, id); err != nil {
		return s.fail("Failed to start project", err)
	}
	s.notes.Add("Project started", notify.SeveritySuccess)
	s.refetchQuiet(ctx, id)
	return nil
}

// Stop cancels the running project.
func (s *Store) Stop(ctx context.Context, id string) error {
	if err := s.client.StopProject(ctx, id); err != nil {
		return s.fail("Failed to stop project", err)
	}
	s.notes.Add("Project stopped", notify.SeverityWarning)
	s.refetchQuiet(ctx, id)
	return nil
}

// Pause pauses the running project.
func (s *Store) Pause(ctx context.Context, id string) error {
	if err := s.client.PauseProject(ctx, id); err != nil {
		return s.fail("Failed to pause project", err)
	}
	s.refetchQuiet(ctx, id)
	return nil
}

// Resume resumes a paused project.
func (s *Store) Resume(ctx context.Context, id string) error {
	if err := s.client.ResumeProject(ctx, id); err != nil {
		return s.fail("Failed to resume project", err)
	}
	s.refetchQuiet(ctx, id)
	return nil
}

// refetchQuiet refreshes one entity after a lifecycle call. The
// lifecycle call itself already succeeded, so a failed refresh only
// leaves the model slightly stale and is not surfaced.
func (s *Store) refetchQuiet(ctx context.Context, id string) {
	p, err := s.client.GetProject(ctx, id)
	if err != nil {
		boardlog.Log.Debug("Post-lifecycle refresh failed", "project", id, "error", err)
		return
	}
	s.mu.Lock()
	s.upsertLocked(p)
	s.changedLocked()
	s.mu.Unlock()
}

// Focus makes the given project the live telemetry target, releasing
// the previous focus first. The entity is fetched if unknown.
func (s *Store) Focus(ctx context.Context, id string) error {
	s.mu.Lock()
	s.releaseFocusLocked()
	known := s.projects[id] != nil
	if known {
		s.focusedID = id
	}
	s.changedLocked()
	s.mu.Unlock()

	if !known {
		if _, err := s.FetchProject(ctx, id); err != nil {
			return err
		}
		s.mu.Lock()
		s.focusedID = id
		s.changedLocked()
		s.mu.Unlock()
	}
	return nil
}

// FocusedID returns the focused project id, empty if none.
func (s *Store) FocusedID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.focusedID
}

// Focused returns a snapshot of the focused project.
func (s *Store) Focused() (project.Project, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.focusedLocked()
	if p == nil {
		return project.Project{}, false
	}
	return *p, true
}

func (s *Store) focusedLocked() *project.Project {
	if s.focusedID == "" {
		return nil
	}
	return s.projects[s.focusedID]
}

// Projects returns snapshots of all known projects in listing order.
func (s *Store) Projects() []project.Project {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]project.Project, 0, len(s.order))
	for _, id := range s.order {
		if p, ok := s.projects[id]; ok {
			out = append(out, *p)
		}
	}
	return out
}

// HasProjects reports whether any project is known.
func (s *Store) HasProjects() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.projects) > 0
}

// IsFocusedRunning reports whether the focused project is running.
func (s *Store) IsFocusedRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.focusedLocked()
	return p != nil && p.Status == project.StatusRunning
}

// ClearMessages empties the focused project's telemetry. The project
// entity itself (status, cost, roster) is untouched.
func (s *Store) ClearMessages() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clearTelemetryLocked()
	s.changedLocked()
}

// Reset clears telemetry and releases the focus, used on navigation
// away from the detail view.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.releaseFocusLocked()
	s.changedLocked()
}

func (s *Store) releaseFocusLocked() {
	s.clearTelemetryLocked()
	s.focusedID = ""
}

func (s *Store) clearTelemetryLocked() {
	s.messages = nil
	s.thinking = nil
	s.calls = nil
	s.tools = nil
}
