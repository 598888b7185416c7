// Package sync keeps the cache store in step with the remote service.
//
// Overview
//
// The driver performs the two kinds of read the sync protocol offers:
//
//	Bootstrap  cursor "*", resource types ["all"]
//	           → complete state, REPLACES the store
//	Refresh    cursor from the store
//	           → only what changed, MERGED into the store
//
// A bootstrap is stronger than a merge: optimistic patches that the server
// has not confirmed yet are lost. It runs on first load and on an explicit
// "refresh data". Refresh keeps them: entities held by in-flight commands
// are left alone, even when the server answers with a full sync.
//
// One-off reads (FetchTask, ListTasks) go through the REST endpoints and
// never touch the cursor.
//
// Usage
//
//	store := cache.New(database)
//	driver := sync.New(store, client, nil)
//
//	// First run
//	if _, err := driver.Bootstrap(ctx); err != nil {
//	    return err
//	}
//
//	// Later
//	res, err := driver.Refresh(ctx)
//	if err != nil {
//	    return err
//	}
//	fmt.Printf("cursor %s, %d tasks\n", res.Cursor, res.Counts[schema.KindTask])
//
// Error Handling
//
// Errors from the client are returned wrapped; errors.Is and errors.As see
// through to the api error types (ErrUnauthorized, *RateLimitError, ...).
// A failed persist after a successful sync is logged, not returned: the
// in-memory store is already current and the next sync persists again.
package sync
