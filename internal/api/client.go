// Package api implements the HTTP client for the orchestrator's project
// CRUD/lifecycle API and the LLM call detail API.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/crewboard/go-crewboard/internal/boardlog"
	"github.com/crewboard/go-crewboard/internal/project"
)

const requestTimeout = 15 * time.Second

// Error is a non-2xx API response. Detail carries the server's own
// message verbatim; it is meant for logs, not for user-facing text.
type Error struct {
	StatusCode int
	Detail     string
}

func (e *Error) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("api: status %d", e.StatusCode)
	}
	return fmt.Sprintf("api: status %d: %s", e.StatusCode, e.Detail)
}

// Client talks to one orchestrator instance.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a client for the given base URL (no trailing slash).
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		http:    &http.Client{Timeout: requestTimeout},
	}
}

// BaseURL returns the configured base URL.
func (c *Client) BaseURL() string { return c.baseURL }

// StreamURL returns the websocket endpoint for the given project.
func (c *Client) StreamURL(projectID string) string {
	url := c.baseURL + "/ws/" + projectID
	if strings.HasPrefix(url, "https") {
		return "wss" + strings.TrimPrefix(url, "https")
	}
	return "ws" + strings.TrimPrefix(url, "http")
}

// CreateRequest is the payload for creating a project.
type CreateRequest struct {
	Name       string  `json:"name"`
	Idea       string  `json:"idea"`
	Investment float64 `json:"investment"`
	NRound     int     `json:"n_round"`
}

// UpdateRequest is the payload for updating a project. Nil fields are
// left unchanged server-side.
type UpdateRequest struct {
	Name       *string  `json:"name,omitempty"`
	Idea       *string  `json:"idea,omitempty"`
	Investment *float64 `json:"investment,omitempty"`
	NRound     *int     `json:"n_round,omitempty"`
}

// CallListItem is one summary row from the call list endpoint.
type CallListItem struct {
	ID              string `json:"id"`
	Index           int    `json:"index"`
	AgentName       string `json:"agent_name"`
	Model           string `json:"model"`
	Timestamp       string `json:"timestamp"`
	PromptPreview   string `json:"prompt_preview"`
	ResponsePreview string `json:"response_preview"`
}

// CallList is the response of the call list endpoint.
type CallList struct {
	TotalCount int            `json:"total_count"`
	Calls      []CallListItem `json:"calls"`
}

// Health is the orchestrator health response.
type Health struct {
	Status          string `json:"status"`
	ProjectsCount   int    `json:"projects_count"`
	RunningProjects int    `json:"running_projects"`
}

// ListProjects fetches the project summary list.
func (c *Client) ListProjects(ctx context.Context) ([]project.Summary, error) {
	var out []project.Summary
	if err := c.do(ctx, http.MethodGet, "/api/projects", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetProject fetches one project by id.
func (c *Client) GetProject(ctx context.Context, id string) (*project.Project, error) {
	var out project.Project
	if err := c.do(ctx, http.MethodGet, "/api/projects/"+id, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateProject creates a project and returns the server's copy.
func (c *Client) CreateProject(ctx context.Context, req CreateRequest) (*project.Project, error) {
	var out project.Project
	if err := c.do(ctx, http.MethodPost, "/api/projects", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateProject updates a project and returns the server's copy.
// The server rejects updates while the project is running.
func (c *Client) UpdateProject(ctx context.Context, id string, req UpdateRequest) (*project.Project, error) {
	var out project.Project
	if err := c.do(ctx, http.MethodPut, "/api/projects/"+id, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteProject deletes a project. Rejected while running.
func (c *Client) DeleteProject(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/projects/"+id, nil, nil)
}

// StartProject asks the orchestrator to begin a run.
func (c *Client) StartProject(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodPost, "/api/projects/"+id+"/start", nil, nil)
}

// StopProject cancels a running project.
func (c *Client) StopProject(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodPost, "/api/projects/"+id+"/stop", nil, nil)
}

// PauseProject pauses a running project.
func (c *Client) PauseProject(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodPost, "/api/projects/"+id+"/pause", nil, nil)
}

// ResumeProject resumes a paused project.
func (c *Client) ResumeProject(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodPost, "/api/projects/"+id+"/resume", nil, nil)
}

// Messages fetches the stored message history for a project.
func (c *Client) Messages(ctx context.Context, id string) ([]project.Message, error) {
	var out struct {
		Messages []project.Message `json:"messages"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/projects/"+id+"/messages", nil, &out); err != nil {
		return nil, err
	}
	return out.Messages, nil
}

// Calls fetches the call summary list and total count for a project.
func (c *Client) Calls(ctx context.Context, id string) (CallList, error) {
	var out CallList
	if err := c.do(ctx, http.MethodGet, "/api/projects/"+id+"/llm-calls", nil, &out); err != nil {
		return CallList{}, err
	}
	return out, nil
}

// CallDetail fetches one full LLM call record by its 1-based ordinal.
// The protocol encodes ordinals as 4-digit zero-padded decimals, which
// bounds the record set to 9999 calls per project.
func (c *Client) CallDetail(ctx context.Context, id string, ordinal int) (*project.LLMCallDetail, error) {
	var out project.LLMCallDetail
	path := fmt.Sprintf("/api/projects/%s/llm-calls/%04d", id, ordinal)
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Health checks the orchestrator health endpoint.
func (c *Client) Health(ctx context.Context) (Health, error) {
	var out Health
	if err := c.do(ctx, http.MethodGet, "/health", nil, &out); err != nil {
		return Health{}, err
	}
	return out, nil
}

func (c *Client) do(ctx context.Context, method, path string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &Error{StatusCode: resp.StatusCode, Detail: decodeDetail(resp.Body)}
		boardlog.Log.Warn("API request failed",
			"method", method, "path", path,
			"status", resp.StatusCode, "detail", apiErr.Detail)
		return apiErr
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// decodeDetail extracts the "detail" message from an error body.
func decodeDetail(r io.Reader) string {
	data, _ := io.ReadAll(io.LimitReader(r, 4096))
	var body struct {
		Detail string `json:"detail"`
	}
	if err := json.Unmarshal(data, &body); err != nil || body.Detail == "" {
		return strings.TrimSpace(string(data))
	}
	return body.Detail
}
