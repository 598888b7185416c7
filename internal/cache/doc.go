// Package cache holds the single in-memory mirror of the remote task service.
//
// # Overview
//
// A Store owns one schema.Snapshot: every entity collection plus the sync
// cursor. All reads return deep copies, so callers never observe a
// half-applied patch and never mutate the store by accident.
//
// At any instant the snapshot is either the last state observed from the
// server, or that state with optimistic patches applied that the server has
// not yet confirmed or rejected. Entities carrying such a patch are "held"
// by the command that produced it; incremental merges leave held entities
// alone so a refresh never reverts an in-flight change.
//
// # Usage
//
//	store := cache.New(database)
//	if _, err := store.Load(ctx); err != nil {
//	    return err
//	}
//
//	// Optimistic update, visible to the next Read.
//	store.ApplyPatch(schema.KindTask, "42", schema.Fields{"priority": 4})
//
//	// Reconcile with the server response.
//	seq := store.Sequence()
//	resp, err := client.Sync(ctx, req)
//	...
//	store.RemapID(schema.KindTask, tempID, realID)
//	store.MergeAt(seq, resp.Snapshot)
//
// Every request takes a sequence number before it is sent. MergeAt and
// RebaseAt drop a response older than the one that last moved the cursor,
// entities included, so responses arriving out of order never move the
// store backwards.
//
// Temporary ids are remapped eagerly: RemapID renames the entity and
// rewrites every reference to it. The temporary id stays an alias of the
// server id, so a command sent before the remap still releases its hold
// and patches the right entity.
package cache
