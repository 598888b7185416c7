package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/mschirtzinger/todosync/internal/schema"
)

// newTestClient returns a client pointed at an httptest server running handler.
func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := New(&Config{
		Token:      "secret",
		SyncURL:    srv.URL,
		RESTURL:    srv.URL + "/rest",
		MaxRetries: 2,
		Logger:     log.New(io.Discard, "", 0),
	})
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	return c
}

func TestNewRequiresToken(t *testing.T) {
	if _, err := New(&Config{}); err == nil {
		t.Error("expected error without token")
	}
}

func TestSync(t *testing.T) {
	var got SyncRequest
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/sync" || r.Method != http.MethodPost {
			t.Errorf("request = %s %s", r.Method, r.URL.Path)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer secret" {
			t.Errorf("Authorization = %q", auth)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("failed to decode request: %v", err)
		}
		io.WriteString(w, `{
			"sync_token": "c2",
			"full_sync": false,
			"sync_status": {"u1": "ok", "u2": {"error": "Item not found", "error_code": 22, "http_code": 404}},
			"temp_id_mapping": {"tmp": "999"},
			"items": [{"id": "999", "content": "New", "priority": 1}]
		}`)
	})

	resp, err := c.Sync(context.Background(), SyncRequest{
		Cursor:        "c1",
		ResourceTypes: []string{"items"},
		Commands: []schema.Command{
			{Type: schema.CommandItemAdd, UUID: "u1", TempID: "tmp", Args: map[string]any{"content": "New"}},
		},
	})
	if err != nil {
		t.Fatalf("Sync() failed: %v", err)
	}

	if got.Cursor != "c1" || len(got.Commands) != 1 || got.Commands[0].TempID != "tmp" {
		t.Errorf("request = %+v", got)
	}
	if resp.Cursor != "c2" {
		t.Errorf("Cursor = %q, want c2", resp.Cursor)
	}
	if resp.TempIDMapping["tmp"] != "999" {
		t.Errorf("TempIDMapping = %v", resp.TempIDMapping)
	}
	if len(resp.Tasks) != 1 || resp.Tasks[0].Priority != schema.PriorityUrgent {
		t.Errorf("Tasks = %+v, want wire priority 1 decoded as 4", resp.Tasks)
	}
	if err := resp.CommandErr("u1"); err != nil {
		t.Errorf("CommandErr(u1) = %v, want nil", err)
	}
	var cmdErr *CommandError
	if err := resp.CommandErr("u2"); !errors.As(err, &cmdErr) || cmdErr.Code != 22 || cmdErr.Message != "Item not found" {
		t.Errorf("CommandErr(u2) = %v", err)
	}
}

func TestBootstrapRequestsEverything(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var req SyncRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req.Cursor != "*" || len(req.ResourceTypes) != 1 || req.ResourceTypes[0] != "all" {
			t.Errorf("request = %+v", req)
		}
		io.WriteString(w, `{"sync_token": "c1", "full_sync": true}`)
	})

	resp, err := c.Bootstrap(context.Background())
	if err != nil {
		t.Fatalf("Bootstrap() failed: %v", err)
	}
	if !resp.FullSync {
		t.Error("FullSync = false")
	}
}

func TestUnauthorized(t *testing.T) {
	for _, status := range []int{http.StatusUnauthorized, http.StatusForbidden} {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(status)
		})
		_, err := c.Sync(context.Background(), SyncRequest{})
		if !errors.Is(err, ErrUnauthorized) {
			t.Errorf("status %d: err = %v, want ErrUnauthorized", status, err)
		}
	}
}

func TestRateLimitRetriesSameRequest(t *testing.T) {
	var mu sync.Mutex
	var bodies []string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		mu.Lock()
		bodies = append(bodies, string(b))
		n := len(bodies)
		mu.Unlock()
		if n == 1 {
			w.Header().Set("Retry-After", "0")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		io.WriteString(w, `{"sync_token": "c2"}`)
	})

	resp, err := c.Sync(context.Background(), SyncRequest{
		Cursor:   "c1",
		Commands: []schema.Command{{Type: schema.CommandItemClose, UUID: "u1", Args: map[string]any{"id": "1"}}},
	})
	if err != nil {
		t.Fatalf("Sync() failed: %v", err)
	}
	if resp.Cursor != "c2" {
		t.Errorf("Cursor = %q", resp.Cursor)
	}
	if len(bodies) != 2 || bodies[0] != bodies[1] {
		t.Errorf("bodies = %q, want the same request twice", bodies)
	}
}

func TestRateLimitExhausted(t *testing.T) {
	attempts := 0
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusTooManyRequests)
		io.WriteString(w, `{"error": "Too many requests", "error_extra": {"retry_after": 0}}`)
	})

	_, err := c.Sync(context.Background(), SyncRequest{})
	var rl *RateLimitError
	if !errors.As(err, &rl) {
		t.Fatalf("err = %v, want *RateLimitError", err)
	}
	if rl.RetryAfter != 0 {
		t.Errorf("RetryAfter = %s, want 0", rl.RetryAfter)
	}
	if attempts != 3 {
		t.Errorf("attempts = %d, want 1 + 2 retries", attempts)
	}
}

func TestNoRetryOnOtherErrors(t *testing.T) {
	attempts := 0
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusInternalServerError)
		io.WriteString(w, `{"error": "boom"}`)
	})

	_, err := c.Sync(context.Background(), SyncRequest{})
	var te *TransportError
	if !errors.As(err, &te) || te.StatusCode != 500 {
		t.Fatalf("err = %v, want *TransportError with status 500", err)
	}
	if attempts != 1 {
		t.Errorf("attempts = %d, want 1", attempts)
	}
}

func TestMalformedResponse(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"sync_token": `)
	})
	_, err := c.Sync(context.Background(), SyncRequest{})
	var te *TransportError
	if !errors.As(err, &te) {
		t.Errorf("err = %v, want *TransportError", err)
	}
}

func TestRetryAfter(t *testing.T) {
	tests := []struct {
		name   string
		header string
		body   string
		want   time.Duration
	}{
		{"header seconds", "7", "", 7 * time.Second},
		{"body", "", `{"retry_after": 2}`, 2 * time.Second},
		{"error extra", "", `{"error_extra": {"retry_after": 1.5}}`, 1500 * time.Millisecond},
		{"missing", "", `{}`, defaultRetryAfter},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := http.Header{}
			if tt.header != "" {
				h.Set("Retry-After", tt.header)
			}
			if got := retryAfter(h, []byte(tt.body)); got != tt.want {
				t.Errorf("retryAfter() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestGetTask(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/rest/tasks/42" {
			t.Errorf("path = %q", r.URL.Path)
		}
		io.WriteString(w, `{
			"id": "42", "content": "Dentist", "priority": 2, "project_id": "p1",
			"assignee_id": "u7", "is_completed": false,
			"due": {"date": "2024-03-01", "datetime": "2024-03-01T10:30:00", "string": "mar 1 10:30", "is_recurring": false}
		}`)
	})

	task, err := c.GetTask(context.Background(), "42")
	if err != nil {
		t.Fatalf("GetTask() failed: %v", err)
	}
	if task.Priority != schema.PriorityHigh {
		t.Errorf("Priority = %d, want %d", task.Priority, schema.PriorityHigh)
	}
	if task.Due == nil || task.Due.Date != "2024-03-01T10:30:00" || !task.Due.HasTime() {
		t.Errorf("Due = %+v", task.Due)
	}
	if task.Assignee() != "u7" {
		t.Errorf("Assignee() = %q", task.Assignee())
	}
}

func TestGetTaskNotFound(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})
	if _, err := c.GetTask(context.Background(), "nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestListTasksFilter(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if f := r.URL.Query().Get("filter"); f != "today | overdue" {
			t.Errorf("filter = %q", f)
		}
		io.WriteString(w, `[{"id": "1", "content": "a", "priority": 4}, {"id": "2", "content": "b", "priority": 1}]`)
	})

	tasks, err := c.ListTasks(context.Background(), "today | overdue")
	if err != nil {
		t.Fatalf("ListTasks() failed: %v", err)
	}
	if len(tasks) != 2 || tasks[0].Priority != schema.PriorityLow || tasks[1].Priority != schema.PriorityUrgent {
		t.Errorf("tasks = %+v", tasks)
	}
}

func TestQuickAdd(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var req QuickAddRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		if r.URL.Path != "/quick/add" || req.Text != "Call mom tomorrow p1" {
			t.Errorf("request = %s %+v", r.URL.Path, req)
		}
		io.WriteString(w, `{"id": "77", "content": "Call mom", "priority": 4, "due": {"date": "2024-01-11"}}`)
	})

	task, err := c.QuickAdd(context.Background(), QuickAddRequest{Text: "Call mom tomorrow p1"})
	if err != nil {
		t.Fatalf("QuickAdd() failed: %v", err)
	}
	if task.ID != "77" || task.Priority != schema.PriorityLow {
		t.Errorf("task = %+v", task)
	}

	if _, err := c.QuickAdd(context.Background(), QuickAddRequest{Text: "  "}); err == nil {
		t.Error("expected error for empty text")
	}
}

func TestCompletedStats(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"completed_count": 12, "days_items": [{"date": "2024-01-10", "total_completed": 3}],
			"goals": {"daily_goal": 5, "current_daily_streak": {"count": 4}}}`)
	})

	st, err := c.CompletedStats(context.Background())
	if err != nil {
		t.Fatalf("CompletedStats() failed: %v", err)
	}
	if st.CompletedCount != 12 || st.DaysItems[0].TotalCompleted != 3 || st.Goals.CurrentDailyStreak.Count != 4 {
		t.Errorf("stats = %+v", st)
	}
}

func TestCommandStatusJSON(t *testing.T) {
	var statuses map[string]CommandStatus
	if err := json.Unmarshal([]byte(`{"a": "ok", "b": {"error": "bad", "http_code": 403}}`), &statuses); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if !statuses["a"].OK || statuses["b"].OK {
		t.Errorf("statuses = %+v", statuses)
	}
	resp := SyncResponse{SyncStatus: statuses}
	var cmdErr *CommandError
	if !errors.As(resp.CommandErr("b"), &cmdErr) || !cmdErr.Unauthorized() {
		t.Errorf("CommandErr(b) = %v, want unauthorized rejection", resp.CommandErr("b"))
	}
}
