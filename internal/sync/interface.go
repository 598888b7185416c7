package sync

import (
	"context"
	"time"

	"github.com/mschirtzinger/todosync/internal/api"
	"github.com/mschirtzinger/todosync/internal/schema"
)

// Driver populates the cache store from the remote service.
//
// Bootstrap and Refresh persist the store after a successful sync. All
// methods are safe to call concurrently with command mutations.
type Driver interface {
	// Bootstrap fetches the complete state and replaces the store with it.
	//
	// Any optimistic patch not yet confirmed by the server is lost. Use it
	// on first load or when the user explicitly asks to reload everything.
	//
	// Example:
	//   res, err := driver.Bootstrap(ctx)
	Bootstrap(ctx context.Context) (*Result, error)

	// Refresh fetches what changed since the store's cursor and merges it.
	//
	// If the store was never bootstrapped (cursor "*"), Refresh bootstraps.
	// Entities with in-flight optimistic patches keep their local version.
	//
	// Example:
	//   res, err := driver.Refresh(ctx)
	Refresh(ctx context.Context) (*Result, error)

	// FetchTask reads one task from the REST endpoint.
	//
	// The store and its cursor are not modified.
	//
	// Example:
	//   task, err := driver.FetchTask(ctx, "2995104339")
	FetchTask(ctx context.Context, id string) (schema.Task, error)

	// ListTasks returns the tasks matching a filter query ("today | overdue").
	//
	// The store and its cursor are not modified.
	ListTasks(ctx context.Context, filter string) ([]schema.Task, error)

	// QuickAdd creates a task from free text, parsed server-side, and
	// merges the created task into the store. The cursor is not advanced;
	// the next Refresh delivers the task again and the upsert is idempotent.
	QuickAdd(ctx context.Context, req api.QuickAddRequest) (schema.Task, error)
}

// Client is the subset of *api.Client the driver needs.
type Client interface {
	Sync(ctx context.Context, req api.SyncRequest) (*api.SyncResponse, error)
	GetTask(ctx context.Context, id string) (schema.Task, error)
	ListTasks(ctx context.Context, filter string) ([]schema.Task, error)
	QuickAdd(ctx context.Context, req api.QuickAddRequest) (schema.Task, error)
}

// Result summarizes one sync.
type Result struct {
	Cursor   string              `json:"cursor"`
	FullSync bool                `json:"full_sync"`
	Counts   map[schema.Kind]int `json:"counts"`
	Duration time.Duration       `json:"duration"`
}
