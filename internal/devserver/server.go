// Package devserver implements the orchestrator's external surface
// in-process: project CRUD and lifecycle, the per-project event stream,
// and the LLM call record store. Runs are scripted simulations, so the
// sync engine can be exercised end-to-end without a real orchestrator.
package devserver

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/crewboard/go-crewboard/internal/boardlog"
	"github.com/crewboard/go-crewboard/internal/project"
)

// Options configures the dev server.
type Options struct {
	Host string
	Port int
	// Tick is the delay between simulated events. Tests shrink it.
	Tick time.Duration
	// Rounds is how many simulated rounds a run executes.
	Rounds int
	Quiet  bool
}

type projectState struct {
	project.Project
	history []json.RawMessage // frames replayed to new stream clients
	calls   map[int]*project.LLMCallDetail
	paused  bool
	cancel  context.CancelFunc
}

// Server is the in-process orchestrator.
type Server struct {
	opts Options

	mu       sync.Mutex
	projects map[string]*projectState
	nextID   int
	subs     map[string][]chan json.RawMessage

	router chi.Router
}

// New creates a dev server with sensible defaults filled in.
func New(opts Options) *Server {
	if opts.Host == "" {
		opts.Host = "127.0.0.1"
	}
	if opts.Tick == 0 {
		opts.Tick = 150 * time.Millisecond
	}
	if opts.Rounds == 0 {
		opts.Rounds = 2
	}

	s := &Server{
		opts:     opts,
		projects: make(map[string]*projectState),
		subs:     make(map[string][]chan json.RawMessage),
	}
	s.router = s.setupRouter()
	return s
}

func (s *Server) setupRouter() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	if !s.opts.Quiet {
		r.Use(middleware.Logger)
	}

	r.Route("/api/projects", func(r chi.Router) {
		r.Get("/", s.handleList)
		r.Post("/", s.handleCreate)
		r.Get("/{id}", s.handleGet)
		r.Put("/{id}", s.handleUpdate)
		r.Delete("/{id}", s.handleDelete)
		r.Post("/{id}/start", s.handleStart)
		r.Post("/{id}/stop", s.handleStop)
		r.Post("/{id}/pause", s.handlePause)
		r.Post("/{id}/resume", s.handleResume)
		r.Get("/{id}/messages", s.handleMessages)
		r.Get("/{id}/llm-calls", s.handleCallList)
		r.Get("/{id}/llm-calls/{callID}", s.handleCallDetail)
	})
	r.Get("/ws/{id}", s.handleWS)
	r.Get("/health", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())

	return r
}

// Handler returns the HTTP handler, for mounting in tests.
func (s *Server) Handler() http.Handler { return s.router }

// ListenAndServe starts the dev server and blocks until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", s.opts.Host, s.opts.Port),
		Handler: s.router,
	}

	ln, err := net.Listen("tcp", srv.Addr)
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	fmt.Printf("Dev server running at http://%s\n", ln.Addr())
	if err := srv.Serve(ln); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// defaultRoster mirrors the default hire order of the orchestrator.
func defaultRoster() []project.Employee {
	return []project.Employee{
		{Name: "Mike", Profile: "TeamLeader", Goal: "Lead the team to deliver", IsIdle: true},
		{Name: "Alice", Profile: "ProductManager", Goal: "Define a successful product", IsIdle: true},
		{Name: "Bob", Profile: "Architect", Goal: "Design a reusable modular system", IsIdle: true},
		{Name: "Alex", Profile: "Engineer", Goal: "Write elegant, efficient code", IsIdle: true},
		{Name: "David", Profile: "DataAnalyst", Goal: "Analyze data for insight", IsIdle: true},
	}
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name       string  `json:"name"`
		Idea       string  `json:"idea"`
		Investment float64 `json:"investment"`
		NRound     int     `json:"n_round"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeDetail(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Investment == 0 {
		req.Investment = 3.0
	}
	if req.NRound == 0 {
		req.NRound = 20
	}

	s.mu.Lock()
	s.nextID++
	id := fmt.Sprintf("p%04d", s.nextID)
	ps := &projectState{
		Project: project.Project{
			ID:         id,
			Name:       req.Name,
			Idea:       req.Idea,
			Investment: req.Investment,
			NRound:     req.NRound,
			Status:     project.StatusCreated,
			Employees:  defaultRoster(),
			CreatedAt:  time.Now().Format(time.RFC3339),
		},
		calls: make(map[int]*project.LLMCallDetail),
	}
	s.projects[id] = ps
	snapshot := ps.Project
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, snapshot)
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	out := make([]project.Summary, 0, len(s.projects))
	for _, ps := range s.projects {
		out = append(out, project.Summary{
			ID:        ps.ID,
			Name:      ps.Name,
			Status:    ps.Status,
			CreatedAt: ps.CreatedAt,
		})
	}
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	ps, ok := s.projects[chi.URLParam(r, "id")]
	var snapshot project.Project
	if ok {
		snapshot = ps.Project
	}
	s.mu.Unlock()

	if !ok {
		writeDetail(w, http.StatusNotFound, "Project not found")
		return
	}
	writeJSON(w, http.StatusOK, snapshot)
}

func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name       *string  `json:"name"`
		Idea       *string  `json:"idea"`
		Investment *float64 `json:"investment"`
		NRound     *int     `json:"n_round"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeDetail(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	s.mu.Lock()
	ps, ok := s.projects[chi.URLParam(r, "id")]
	if !ok {
		s.mu.Unlock()
		writeDetail(w, http.StatusNotFound, "Project not found")
		return
	}
	if ps.Status == project.StatusRunning {
		s.mu.Unlock()
		writeDetail(w, http.StatusBadRequest, "Cannot update project")
		return
	}
	if req.Name != nil {
		ps.Name = *req.Name
	}
	if req.Idea != nil {
		ps.Idea = *req.Idea
	}
	if req.Investment != nil {
		ps.Investment = *req.Investment
	}
	if req.NRound != nil {
		ps.NRound = *req.NRound
	}
	snapshot := ps.Project
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, snapshot)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	s.mu.Lock()
	ps, ok := s.projects[id]
	if !ok {
		s.mu.Unlock()
		writeDetail(w, http.StatusNotFound, "Project not found")
		return
	}
	if ps.Status == project.StatusRunning {
		s.mu.Unlock()
		writeDetail(w, http.StatusBadRequest, "Cannot delete project")
		return
	}
	delete(s.projects, id)
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]string{"message": "Project deleted", "project_id": id})
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	s.mu.Lock()
	ps, ok := s.projects[id]
	if !ok {
		s.mu.Unlock()
		writeDetail(w, http.StatusNotFound, "Project not found")
		return
	}
	if ps.Status == project.StatusRunning {
		s.mu.Unlock()
		writeDetail(w, http.StatusBadRequest, "Project already running")
		return
	}
	runCtx, cancel := context.WithCancel(context.Background())
	ps.cancel = cancel
	ps.paused = false
	s.mu.Unlock()

	runsStartedTotal.Inc()
	go s.runProject(runCtx, id)

	writeJSON(w, http.StatusOK, map[string]string{"message": "Project started", "project_id": id})
}

func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	s.mu.Lock()
	ps, ok := s.projects[id]
	cancel := (func())(nil)
	if ok && ps.cancel != nil {
		cancel = ps.cancel
		ps.cancel = nil
		ps.paused = false
	}
	s.mu.Unlock()

	if cancel == nil {
		writeDetail(w, http.StatusBadRequest, "Project is not running")
		return
	}
	cancel()
	writeJSON(w, http.StatusOK, map[string]string{"message": "Project stopped", "project_id": id})
}

func (s *Server) handlePause(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	s.mu.Lock()
	ps, ok := s.projects[id]
	if !ok {
		s.mu.Unlock()
		writeDetail(w, http.StatusNotFound, "Project not found")
		return
	}
	if ps.Status != project.StatusRunning {
		s.mu.Unlock()
		writeDetail(w, http.StatusBadRequest, "Project is not running")
		return
	}
	ps.paused = true
	ps.Status = project.StatusPaused
	s.mu.Unlock()

	s.broadcast(id, frame{"type": "project_status", "status": "paused", "message": "Project paused"}, true)
	writeJSON(w, http.StatusOK, map[string]string{"message": "Project paused", "project_id": id})
}

func (s *Server) handleResume(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	s.mu.Lock()
	ps, ok := s.projects[id]
	if !ok {
		s.mu.Unlock()
		writeDetail(w, http.StatusNotFound, "Project not found")
		return
	}
	if ps.Status != project.StatusPaused {
		s.mu.Unlock()
		writeDetail(w, http.StatusBadRequest, "Project is not paused")
		return
	}
	ps.paused = false
	ps.Status = project.StatusRunning
	s.mu.Unlock()

	s.broadcast(id, frame{"type": "project_status", "status": "running", "message": "Project resumed"}, true)
	writeJSON(w, http.StatusOK, map[string]string{"message": "Project resumed", "project_id": id})
}

func (s *Server) handleMessages(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	ps, ok := s.projects[chi.URLParam(r, "id")]
	var history []json.RawMessage
	if ok {
		history = append(history, ps.history...)
	}
	s.mu.Unlock()

	if !ok {
		writeDetail(w, http.StatusNotFound, "Project not found")
		return
	}
	if history == nil {
		history = []json.RawMessage{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"messages": history})
}

func (s *Server) handleCallList(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	ps, ok := s.projects[chi.URLParam(r, "id")]
	summaries := []map[string]any{}
	total := 0
	if ok {
		total = len(ps.calls)
		for i := 1; i <= total; i++ {
			d := ps.calls[i]
			summaries = append(summaries, map[string]any{
				"id":               d.ID,
				"index":            d.Index,
				"agent_name":       d.AgentName,
				"model":            d.Model,
				"timestamp":        d.Timestamp,
				"prompt_preview":   truncate(d.Prompt, 100),
				"response_preview": truncate(d.Response, 100),
			})
		}
	}
	s.mu.Unlock()

	if !ok {
		writeDetail(w, http.StatusNotFound, "Project not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"total_count": total, "calls": summaries})
}

func (s *Server) handleCallDetail(w http.ResponseWriter, r *http.Request) {
	ordinal, err := strconv.Atoi(chi.URLParam(r, "callID"))
	if err != nil || ordinal < 1 {
		writeDetail(w, http.StatusBadRequest, "Invalid call id")
		return
	}

	s.mu.Lock()
	ps, ok := s.projects[chi.URLParam(r, "id")]
	var out project.LLMCallDetail
	found := false
	if ok {
		if d, have := ps.calls[ordinal]; have {
			out = *d
			total := len(ps.calls)
			out.TotalCount = total
			out.HasPrev = ordinal > 1
			out.HasNext = ordinal < total
			if out.HasPrev {
				out.PrevID = fmt.Sprintf("%04d", ordinal-1)
			}
			if out.HasNext {
				out.NextID = fmt.Sprintf("%04d", ordinal+1)
			}
			found = true
		}
	}
	s.mu.Unlock()

	if !ok {
		writeDetail(w, http.StatusNotFound, "Project not found")
		return
	}
	if !found {
		writeDetail(w, http.StatusNotFound, "LLM call not found")
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	total := len(s.projects)
	running := 0
	for _, ps := range s.projects {
		if ps.Status == project.StatusRunning {
			running++
		}
	}
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]any{
		"status":           "healthy",
		"projects_count":   total,
		"running_projects": running,
	})
}

// handleWS upgrades to WebSocket, sends the connected snapshot, replays
// stored history, then relays live broadcasts.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	s.mu.Lock()
	ps, ok := s.projects[id]
	var connected frame
	var history []json.RawMessage
	if ok {
		connected = frame{
			"type":       "connected",
			"project_id": id,
			"status":     ps.Status,
			"employees":  ps.Employees,
		}
		history = append(history, ps.history...)
	}
	s.mu.Unlock()

	if !ok {
		writeDetail(w, http.StatusNotFound, "Project not found")
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		boardlog.Log.Error("WebSocket accept failed", "error", err)
		return
	}
	defer conn.CloseNow()

	ctx := r.Context()
	data, _ := json.Marshal(connected)
	if err := conn.Write(ctx, websocket.MessageText, data); err != nil {
		return
	}
	for _, raw := range history {
		if err := conn.Write(ctx, websocket.MessageText, raw); err != nil {
			return
		}
	}

	ch, unsub := s.subscribe(id)
	defer unsub()

	wsConnectionsActive.Inc()
	defer wsConnectionsActive.Dec()

	for {
		select {
		case <-ctx.Done():
			conn.Close(websocket.StatusNormalClosure, "server shutting down")
			return
		case raw, open := <-ch:
			if !open {
				conn.Close(websocket.StatusNormalClosure, "subscription closed")
				return
			}
			if err := conn.Write(ctx, websocket.MessageText, raw); err != nil {
				return
			}
		}
	}
}

func (s *Server) subscribe(projectID string) (<-chan json.RawMessage, func()) {
	ch := make(chan json.RawMessage, 64)

	s.mu.Lock()
	s.subs[projectID] = append(s.subs[projectID], ch)
	s.mu.Unlock()

	return ch, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		subs := s.subs[projectID]
		for i, c := range subs {
			if c == ch {
				s.subs[projectID] = append(subs[:i], subs[i+1:]...)
				close(ch)
				break
			}
		}
		if len(s.subs[projectID]) == 0 {
			delete(s.subs, projectID)
		}
	}
}

type frame map[string]any

// broadcast sends a frame to all stream subscribers of a project.
// record also appends it to the replay history.
func (s *Server) broadcast(projectID string, f frame, record bool) {
	if _, ok := f["timestamp"]; !ok {
		f["timestamp"] = time.Now().Format(time.RFC3339Nano)
	}
	raw, err := json.Marshal(f)
	if err != nil {
		return
	}
	if tag, ok := f["type"].(string); ok {
		eventsBroadcastTotal.WithLabelValues(tag).Inc()
	}

	s.mu.Lock()
	if record {
		if ps, ok := s.projects[projectID]; ok {
			ps.history = append(ps.history, raw)
		}
	}
	subs := append([]chan json.RawMessage(nil), s.subs[projectID]...)
	s.mu.Unlock()

	for _, ch := range subs {
		select {
		case ch <- raw:
		default:
			boardlog.Log.Warn("Dropping frame for slow stream subscriber", "project", projectID)
		}
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeDetail writes an error body with the "detail" field the real
// orchestrator uses.
func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}
