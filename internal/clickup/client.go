// Taskgraph - Task Tracker Graph Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/taskgraph

package clickup

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"golang.org/x/time/rate"

	"github.com/tomtom215/taskgraph/internal/config"
	"github.com/tomtom215/taskgraph/internal/logging"
	"github.com/tomtom215/taskgraph/internal/metrics"
)

const (
	// DefaultBaseURL is the public ClickUp v2 API.
	DefaultBaseURL = "https://api.clickup.com/api/v2"

	// maxPageSize is the largest page ClickUp returns for task listings.
	maxPageSize = 100

	// maxErrorBody bounds how much of an error response is read.
	maxErrorBody = 4096

	maxRateLimitRetries = 5
)

// APIError is a non-2xx response from ClickUp.
type APIError struct {
	StatusCode int
	Message    string
	Code       string
	Endpoint   string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("clickup %s: HTTP %d: %s (%s)", e.Endpoint, e.StatusCode, e.Message, e.Code)
	}
	return fmt.Sprintf("clickup %s: HTTP %d: %s", e.Endpoint, e.StatusCode, e.Message)
}

// IsNotFound reports whether err is a ClickUp 404.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

// isClientError reports a 4xx other than 429. These say nothing about
// ClickUp's health and are not counted by the circuit breaker.
func isClientError(err error) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	return apiErr.StatusCode >= 400 && apiErr.StatusCode < 500 && apiErr.StatusCode != http.StatusTooManyRequests
}

// TaskQuery filters a list task listing.
type TaskQuery struct {
	IncludeClosed bool
	Subtasks      bool

	// Limit caps the number of tasks returned. Zero means no cap.
	Limit int
}

// TaskSource is the read-only view of the task tracker used by the
// webhook processor and the importer.
type TaskSource interface {
	GetTeams(ctx context.Context) ([]Team, error)
	GetSpaces(ctx context.Context, teamID string) ([]Space, error)
	GetSpace(ctx context.Context, spaceID string) (*Space, error)
	GetFolders(ctx context.Context, spaceID string) ([]Folder, error)
	GetFolderLists(ctx context.Context, folderID string) ([]List, error)
	GetSpaceLists(ctx context.Context, spaceID string) ([]List, error)
	GetList(ctx context.Context, listID string) (*List, error)
	GetTask(ctx context.Context, taskID string) (*Task, error)
	GetTasks(ctx context.Context, listID string, q TaskQuery) ([]Task, error)
	SearchTasks(ctx context.Context, teamID, query string, limit int) ([]Task, error)
}

var (
	_ TaskSource = (*Client)(nil)
	_ TaskSource = (*CircuitBreakerClient)(nil)
)

// Client talks to the ClickUp REST API.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	limiter    *rate.Limiter
	baseDelay  time.Duration
}

// NewClient builds a client from configuration. A non-positive
// RequestsPerMinute disables client-side limiting.
func NewClient(cfg *config.ClickUpConfig) *Client {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	limiter := rate.NewLimiter(rate.Inf, 1)
	if cfg.RequestsPerMinute > 0 {
		burst := cfg.RequestsPerMinute / 60
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(float64(cfg.RequestsPerMinute)/60.0), burst)
	}

	return &Client{
		baseURL:    baseURL,
		token:      cfg.APIToken,
		httpClient: &http.Client{Timeout: timeout},
		limiter:    limiter,
		baseDelay:  time.Second,
	}
}

// getJSON performs a GET against path and decodes the body into out.
// endpoint is the templated path used as the metrics label.
func (c *Client) getJSON(ctx context.Context, endpoint, path string, query url.Values, out interface{}) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, http.NoBody)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", c.token)
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.doRequestWithRateLimit(req)
	if err != nil {
		metrics.RecordClickUpRequest(endpoint, "error", time.Since(start))
		return err
	}
	defer resp.Body.Close()
	metrics.RecordClickUpRequest(endpoint, strconv.Itoa(resp.StatusCode), time.Since(start))

	if resp.StatusCode >= 400 {
		return decodeAPIError(resp, endpoint)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", endpoint, err)
	}
	return nil
}

// doRequestWithRateLimit waits on the local limiter, sends req and retries
// HTTP 429 up to maxRateLimitRetries times. Retry-After (seconds) overrides
// the exponential delay.
func (c *Client) doRequestWithRateLimit(req *http.Request) (*http.Response, error) {
	ctx := req.Context()

	for attempt := 0; ; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter: %w", err)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("execute request: %w", err)
		}
		if resp.StatusCode != http.StatusTooManyRequests {
			return resp, nil
		}

		metrics.ClickUpRateLimited.Inc()
		retryAfter := resp.Header.Get("Retry-After")
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxErrorBody))
		resp.Body.Close()

		if attempt == maxRateLimitRetries {
			return nil, &APIError{
				StatusCode: http.StatusTooManyRequests,
				Message:    fmt.Sprintf("rate limit exceeded after %d retries", maxRateLimitRetries),
				Endpoint:   req.URL.Path,
			}
		}

		delay := c.baseDelay * (1 << attempt)
		if retryAfter != "" {
			if seconds, convErr := strconv.Atoi(strings.TrimSpace(retryAfter)); convErr == nil && seconds >= 0 {
				delay = time.Duration(seconds) * time.Second
			}
		}

		logging.Ctx(ctx).Warn().
			Dur("retry_delay", delay).
			Int("attempt", attempt+1).
			Int("max_retries", maxRateLimitRetries).
			Msg("ClickUp API rate limited (HTTP 429), retrying")

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
}

func decodeAPIError(resp *http.Response, endpoint string) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))

	var payload struct {
		Err   string `json:"err"`
		ECode string `json:"ECODE"`
	}
	msg := ""
	if len(body) > 0 && json.Unmarshal(body, &payload) == nil {
		msg = payload.Err
	}
	if msg == "" {
		msg = http.StatusText(resp.StatusCode)
	}
	return &APIError{
		StatusCode: resp.StatusCode,
		Message:    msg,
		Code:       payload.ECode,
		Endpoint:   endpoint,
	}
}

// GetTeams lists the workspaces visible to the token.
func (c *Client) GetTeams(ctx context.Context) ([]Team, error) {
	var out teamsResponse
	if err := c.getJSON(ctx, "/team", "/team", nil, &out); err != nil {
		return nil, err
	}
	return out.Teams, nil
}

// GetSpaces lists non-archived spaces in a workspace.
func (c *Client) GetSpaces(ctx context.Context, teamID string) ([]Space, error) {
	var out spacesResponse
	q := url.Values{"archived": {"false"}}
	if err := c.getJSON(ctx, "/team/{id}/space", "/team/"+url.PathEscape(teamID)+"/space", q, &out); err != nil {
		return nil, err
	}
	return out.Spaces, nil
}

// GetSpace fetches a single space.
func (c *Client) GetSpace(ctx context.Context, spaceID string) (*Space, error) {
	var out Space
	if err := c.getJSON(ctx, "/space/{id}", "/space/"+url.PathEscape(spaceID), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetFolders lists non-archived folders in a space.
func (c *Client) GetFolders(ctx context.Context, spaceID string) ([]Folder, error) {
	var out foldersResponse
	q := url.Values{"archived": {"false"}}
	if err := c.getJSON(ctx, "/space/{id}/folder", "/space/"+url.PathEscape(spaceID)+"/folder", q, &out); err != nil {
		return nil, err
	}
	return out.Folders, nil
}

// GetFolderLists lists the lists inside a folder.
func (c *Client) GetFolderLists(ctx context.Context, folderID string) ([]List, error) {
	var out listsResponse
	q := url.Values{"archived": {"false"}}
	if err := c.getJSON(ctx, "/folder/{id}/list", "/folder/"+url.PathEscape(folderID)+"/list", q, &out); err != nil {
		return nil, err
	}
	return out.Lists, nil
}

// GetSpaceLists lists folderless lists directly under a space.
func (c *Client) GetSpaceLists(ctx context.Context, spaceID string) ([]List, error) {
	var out listsResponse
	q := url.Values{"archived": {"false"}}
	if err := c.getJSON(ctx, "/space/{id}/list", "/space/"+url.PathEscape(spaceID)+"/list", q, &out); err != nil {
		return nil, err
	}
	return out.Lists, nil
}

// GetList fetches a single list including its task_count.
func (c *Client) GetList(ctx context.Context, listID string) (*List, error) {
	var out List
	if err := c.getJSON(ctx, "/list/{id}", "/list/"+url.PathEscape(listID), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetTask fetches a single task with its current assignees, status and list.
func (c *Client) GetTask(ctx context.Context, taskID string) (*Task, error) {
	var out Task
	if err := c.getJSON(ctx, "/task/{id}", "/task/"+url.PathEscape(taskID), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetTasks pages through a list's tasks. Paging stops on an empty or short
// page, when ClickUp flags last_page, or once q.Limit tasks are collected.
func (c *Client) GetTasks(ctx context.Context, listID string, q TaskQuery) ([]Task, error) {
	path := "/list/" + url.PathEscape(listID) + "/task"
	params := url.Values{
		"archived":       {"false"},
		"subtasks":       {strconv.FormatBool(q.Subtasks)},
		"include_closed": {strconv.FormatBool(q.IncludeClosed)},
	}
	return c.paginate(ctx, "/list/{id}/task", path, params, q.Limit)
}

// SearchTasks runs the workspace-wide filtered task query.
func (c *Client) SearchTasks(ctx context.Context, teamID, query string, limit int) ([]Task, error) {
	path := "/team/" + url.PathEscape(teamID) + "/task"
	params := url.Values{"include_closed": {"true"}, "subtasks": {"true"}}
	if query != "" {
		params.Set("query", query)
	}
	return c.paginate(ctx, "/team/{id}/task", path, params, limit)
}

func (c *Client) paginate(ctx context.Context, endpoint, path string, params url.Values, limit int) ([]Task, error) {
	var all []Task
	for page := 0; ; page++ {
		params.Set("page", strconv.Itoa(page))

		var out tasksResponse
		if err := c.getJSON(ctx, endpoint, path, params, &out); err != nil {
			return nil, fmt.Errorf("page %d: %w", page, err)
		}
		all = append(all, out.Tasks...)

		if limit > 0 && len(all) >= limit {
			return all[:limit], nil
		}
		if len(out.Tasks) < maxPageSize || out.LastPage {
			return all, nil
		}
	}
}
