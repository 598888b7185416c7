// Package command turns user intents into sync commands with optimistic
// local updates.
//
// # Overview
//
// A Mutator handles one user action (or a batch of independent actions) in
// four steps:
//
//  1. Build an immutable schema.Command with a fresh uuid, plus a temporary
//     id for add commands.
//  2. Apply the optimistic change to the cache store before any network
//     activity, and hold the entity so a concurrent refresh cannot revert it.
//  3. Submit the commands with the store's current cursor.
//  4. On success advance the cursor, remap temporary ids to the real ids and
//     merge the returned entities. On failure notify the user.
//
// Failed commands are not rolled back by default: the optimistic change
// stays in the cache until the next bootstrap or a corrective action. Set
// Options.RollbackOnFailure to restore the previous state instead.
//
// Submitted commands always run to completion. Mutate detaches the request
// from the caller's cancellation, so abandoning the UI that triggered an
// action never leaves it half-reconciled.
//
// # Usage
//
//	m := command.New(store, client, notifier, nil)
//	out := m.Mutate(ctx, command.UpdateTask("42", schema.Fields{"priority": 4}))
//	if !out.OK() {
//	    return out.Err
//	}
package command
