package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/mschirtzinger/todosync/internal/schema"
)

// Default endpoints.
const (
	DefaultSyncURL = "https://api.todoist.com/sync/v9"
	DefaultRESTURL = "https://api.todoist.com/rest/v2"
)

// defaultRetryAfter is used when a 429 response names no delay.
const defaultRetryAfter = 5 * time.Second

// Config configures the client.
type Config struct {
	// Token is the API token sent as a bearer token (required)
	Token string

	// SyncURL is the base URL of the sync endpoints
	SyncURL string

	// RESTURL is the base URL of the REST endpoints
	RESTURL string

	// Timeout bounds a single HTTP exchange (default: 30s)
	Timeout time.Duration

	// MaxRetries is how often a rate-limited request is retried (default: 3)
	MaxRetries int

	// HTTPClient overrides the HTTP client; Timeout is ignored when set
	HTTPClient *http.Client

	// Logger for retry messages (default: stderr with "[api] " prefix)
	Logger *log.Logger
}

// DefaultConfig returns the production endpoints with no token.
func DefaultConfig() *Config {
	return &Config{
		SyncURL:    DefaultSyncURL,
		RESTURL:    DefaultRESTURL,
		Timeout:    30 * time.Second,
		MaxRetries: 3,
	}
}

// Client talks to the remote task service.
type Client struct {
	token      string
	syncURL    string
	restURL    string
	maxRetries int
	http       *http.Client
	logger     *log.Logger
}

// New creates a client. Missing config fields take their defaults.
func New(config *Config) (*Client, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if config.Token == "" {
		return nil, fmt.Errorf("API token is required")
	}

	def := DefaultConfig()
	c := &Client{
		token:      config.Token,
		syncURL:    strings.TrimRight(config.SyncURL, "/"),
		restURL:    strings.TrimRight(config.RESTURL, "/"),
		maxRetries: config.MaxRetries,
		http:       config.HTTPClient,
		logger:     config.Logger,
	}
	if c.syncURL == "" {
		c.syncURL = def.SyncURL
	}
	if c.restURL == "" {
		c.restURL = def.RESTURL
	}
	if c.maxRetries < 0 {
		c.maxRetries = 0
	}
	if c.http == nil {
		timeout := config.Timeout
		if timeout <= 0 {
			timeout = def.Timeout
		}
		c.http = &http.Client{Timeout: timeout}
	}
	if c.logger == nil {
		c.logger = log.New(os.Stderr, "[api] ", log.LstdFlags)
	}
	return c, nil
}

// Sync submits a sync request. The same body is resent on rate-limit
// retries, so the cursor and commands never change between attempts.
// Per-command rejections are not errors here; see SyncResponse.CommandErr.
func (c *Client) Sync(ctx context.Context, req SyncRequest) (*SyncResponse, error) {
	if req.Cursor == "" {
		req.Cursor = schema.WildcardCursor
	}
	if len(req.ResourceTypes) == 0 {
		req.ResourceTypes = []string{}
	}
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal sync request: %w", err)
	}

	var resp SyncResponse
	if err := c.do(ctx, "sync", http.MethodPost, c.syncURL+"/sync", body, &resp); err != nil {
		return nil, err
	}
	decodePriorities(resp.Tasks)
	return &resp, nil
}

// Bootstrap fetches the complete state.
func (c *Client) Bootstrap(ctx context.Context) (*SyncResponse, error) {
	return c.Sync(ctx, SyncRequest{
		Cursor:        schema.WildcardCursor,
		ResourceTypes: []string{schema.ResourceAll},
	})
}

// GetTask reads a single task outside the sync protocol.
func (c *Client) GetTask(ctx context.Context, id string) (schema.Task, error) {
	var rt restTask
	if err := c.do(ctx, "get task", http.MethodGet, c.restURL+"/tasks/"+url.PathEscape(id), nil, &rt); err != nil {
		return schema.Task{}, err
	}
	return rt.task(), nil
}

// ListTasks returns the active tasks matching a filter query.
func (c *Client) ListTasks(ctx context.Context, filter string) ([]schema.Task, error) {
	u := c.restURL + "/tasks"
	if filter != "" {
		u += "?" + url.Values{"filter": {filter}}.Encode()
	}
	var rts []restTask
	if err := c.do(ctx, "list tasks", http.MethodGet, u, nil, &rts); err != nil {
		return nil, err
	}
	tasks := make([]schema.Task, len(rts))
	for i, rt := range rts {
		tasks[i] = rt.task()
	}
	return tasks, nil
}

// QuickAdd creates a task from free text and returns the created task.
func (c *Client) QuickAdd(ctx context.Context, req QuickAddRequest) (schema.Task, error) {
	if strings.TrimSpace(req.Text) == "" {
		return schema.Task{}, fmt.Errorf("quick add text is required")
	}
	body, err := json.Marshal(req)
	if err != nil {
		return schema.Task{}, fmt.Errorf("failed to marshal quick add request: %w", err)
	}
	var t schema.Task
	if err := c.do(ctx, "quick add", http.MethodPost, c.syncURL+"/quick/add", body, &t); err != nil {
		return schema.Task{}, err
	}
	t.Priority = schema.PriorityFromAPI(t.Priority)
	return t, nil
}

// CompletedStats returns the productivity statistics of the user.
func (c *Client) CompletedStats(ctx context.Context) (*Stats, error) {
	var st Stats
	if err := c.do(ctx, "completed stats", http.MethodGet, c.syncURL+"/completed/get_stats", nil, &st); err != nil {
		return nil, err
	}
	return &st, nil
}

// do performs one request with rate-limit retries and decodes a JSON
// response into out.
func (c *Client) do(ctx context.Context, op, method, u string, body []byte, out any) error {
	return c.retry(ctx, op, func() error {
		return c.once(ctx, op, method, u, body, out)
	})
}

func (c *Client) once(ctx context.Context, op, method, u string, body []byte, out any) error {
	var rd io.Reader
	if body != nil {
		rd = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, u, rd)
	if err != nil {
		return &TransportError{Op: op, Err: err}
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return &TransportError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 64<<20))
	if err != nil {
		return &TransportError{Op: op, StatusCode: resp.StatusCode, Err: fmt.Errorf("failed to read response: %w", err)}
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return fmt.Errorf("%s: %w", op, ErrUnauthorized)
	case resp.StatusCode == http.StatusTooManyRequests:
		return &RateLimitError{RetryAfter: retryAfter(resp.Header, data)}
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return &TransportError{Op: op, StatusCode: resp.StatusCode, Err: errors.New(errorMessage(data))}
	}

	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return &TransportError{Op: op, StatusCode: resp.StatusCode, Err: fmt.Errorf("malformed response: %w", err)}
	}
	return nil
}

// retryAfter reads the delay from the Retry-After header (seconds or an
// HTTP date) or from a retry_after field in the body.
func retryAfter(h http.Header, body []byte) time.Duration {
	if v := strings.TrimSpace(h.Get("Retry-After")); v != "" {
		if secs, err := strconv.Atoi(v); err == nil && secs >= 0 {
			return time.Duration(secs) * time.Second
		}
		if t, err := http.ParseTime(v); err == nil {
			if d := time.Until(t); d > 0 {
				return d
			}
			return 0
		}
	}

	var payload struct {
		RetryAfter *float64 `json:"retry_after"`
		ErrorExtra struct {
			RetryAfter *float64 `json:"retry_after"`
		} `json:"error_extra"`
	}
	if json.Unmarshal(body, &payload) == nil {
		if payload.RetryAfter != nil {
			return time.Duration(*payload.RetryAfter * float64(time.Second))
		}
		if payload.ErrorExtra.RetryAfter != nil {
			return time.Duration(*payload.ErrorExtra.RetryAfter * float64(time.Second))
		}
	}
	return defaultRetryAfter
}

// errorMessage extracts a readable message from an error body.
func errorMessage(body []byte) string {
	var payload struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(body, &payload) == nil && payload.Error != "" {
		return payload.Error
	}
	msg := strings.TrimSpace(string(body))
	if len(msg) > 200 {
		msg = msg[:200] + "..."
	}
	if msg == "" {
		msg = "empty response"
	}
	return msg
}
