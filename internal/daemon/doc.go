// Package daemon keeps a long-running process's cache current.
//
// The daemon:
//  1. Refreshes the store from the remote service on a fixed interval
//  2. Watches the cache database directory for writes by other processes
//     (a CLI command persisting after a mutation) and reloads the store
//     when the persisted cursor differs from the in-memory one
//  3. Handles graceful shutdown
//
// Usage
//
//	database, err := db.Open(cfg.DBPath)
//	if err != nil {
//	    return err
//	}
//	store := cache.New(database)
//	d, err := daemon.New(store, sync.New(store, client, nil), database, nil)
//	if err != nil {
//	    return err
//	}
//	if err := d.Start(ctx); err != nil {
//	    return err
//	}
//
// Start blocks until ctx is cancelled. Refresh errors are logged and the
// next tick tries again; a rate-limited refresh waits for the next tick.
package daemon
