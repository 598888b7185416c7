package sync

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/mschirtzinger/todosync/internal/api"
	"github.com/mschirtzinger/todosync/internal/cache"
	"github.com/mschirtzinger/todosync/internal/schema"
)

// driver implements the Driver interface.
type driver struct {
	store  *cache.Store
	client Client
	logger *log.Logger
}

// New creates a Driver for store.
//
// If logger is nil, a default logger writing to stderr is used.
//
// Example:
//
//	client, err := api.New(&api.Config{Token: cfg.APIToken})
//	if err != nil {
//	    return err
//	}
//	driver := sync.New(cache.New(database), client, nil)
func New(store *cache.Store, client Client, logger *log.Logger) Driver {
	if logger == nil {
		logger = log.New(os.Stderr, "[sync] ", log.LstdFlags)
	}
	return &driver{
		store:  store,
		client: client,
		logger: logger,
	}
}

// Bootstrap implements Driver.Bootstrap.
func (d *driver) Bootstrap(ctx context.Context) (*Result, error) {
	start := time.Now()

	resp, err := d.client.Sync(ctx, api.SyncRequest{
		Cursor:        schema.WildcardCursor,
		ResourceTypes: []string{schema.ResourceAll},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to bootstrap: %w", err)
	}

	d.store.Replace(resp.Snapshot)
	d.persist(ctx)

	res := d.result(resp.Cursor, true, start)
	d.logger.Printf("Bootstrap complete: tasks=%d projects=%d (%s)",
		res.Counts[schema.KindTask], res.Counts[schema.KindProject], res.Duration.Round(time.Millisecond))
	return res, nil
}

// Refresh implements Driver.Refresh.
func (d *driver) Refresh(ctx context.Context) (*Result, error) {
	cursor := d.store.Cursor()
	if cursor == "" || cursor == schema.WildcardCursor {
		return d.Bootstrap(ctx)
	}

	start := time.Now()
	seq := d.store.Sequence()
	resp, err := d.client.Sync(ctx, api.SyncRequest{
		Cursor:        cursor,
		ResourceTypes: []string{schema.ResourceAll},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to refresh: %w", err)
	}

	if resp.FullSync {
		// The server decided the cursor was too old.
		if !d.store.RebaseAt(seq, resp.Snapshot) {
			d.logger.Printf("Dropped stale full sync response (cursor %s)", resp.Cursor)
		}
	} else {
		stats, applied := d.store.MergeAt(seq, resp.Snapshot)
		switch {
		case !applied:
			d.logger.Printf("Dropped stale refresh response (cursor %s)", resp.Cursor)
		case stats.Upserted+stats.Removed > 0:
			d.logger.Printf("Refresh merged: upserted=%d removed=%d skipped=%d",
				stats.Upserted, stats.Removed, stats.Skipped)
		}
	}
	d.persist(ctx)

	return d.result(d.store.Cursor(), resp.FullSync, start), nil
}

// FetchTask implements Driver.FetchTask.
func (d *driver) FetchTask(ctx context.Context, id string) (schema.Task, error) {
	t, err := d.client.GetTask(ctx, id)
	if err != nil {
		return schema.Task{}, fmt.Errorf("failed to fetch task %s: %w", id, err)
	}
	return t, nil
}

// ListTasks implements Driver.ListTasks.
func (d *driver) ListTasks(ctx context.Context, filter string) ([]schema.Task, error) {
	tasks, err := d.client.ListTasks(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks for %q: %w", filter, err)
	}
	return tasks, nil
}

// QuickAdd implements Driver.QuickAdd.
func (d *driver) QuickAdd(ctx context.Context, req api.QuickAddRequest) (schema.Task, error) {
	t, err := d.client.QuickAdd(ctx, req)
	if err != nil {
		return schema.Task{}, fmt.Errorf("failed to quick add: %w", err)
	}
	d.store.Merge(schema.Snapshot{Tasks: []schema.Task{t}})
	d.persist(ctx)
	d.logger.Printf("Quick added task: %s (%s)", t.ID, t.Content)
	return t, nil
}

func (d *driver) persist(ctx context.Context) {
	if err := d.store.Persist(ctx); err != nil {
		d.logger.Printf("Warning: %v", err)
	}
}

func (d *driver) result(cursor string, full bool, start time.Time) *Result {
	snap := d.store.Read()
	counts := make(map[schema.Kind]int, len(schema.AllKinds))
	for _, k := range schema.AllKinds {
		counts[k] = snap.Count(k)
	}
	return &Result{
		Cursor:   cursor,
		FullSync: full,
		Counts:   counts,
		Duration: time.Since(start),
	}
}
