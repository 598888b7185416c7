// Package schema defines the entities mirrored from the remote task service.
//
// # Overview
//
// Every collection returned by the sync endpoint has a Go type here: Task (wire
// name "items"), Project, Section, Label, Filter, Comment ("notes"),
// Collaborator, CollaboratorState, Reminder and User. A Snapshot aggregates one
// slice per collection plus the sync cursor.
//
// JSON field names follow the wire format so the same structs decode sync
// responses, persist into the cache database and merge patches.
//
// # Priority orientation
//
// Task.Priority is stored in the user-facing orientation: 4 is the most urgent
// ("Priority 1" in the UI). The remote API numbers priorities the other way
// round. Use PriorityFromAPI and PriorityToAPI at the API boundary only; code
// inside the module never sees the wire orientation.
//
// # Patches
//
// A patch is a Fields map keyed by JSON field name. Merging is done by a JSON
// round trip (see MergeFields), so a patch only touches the fields it names:
//
//	task, err := schema.MergeFields(task, schema.Fields{"priority": 4})
//
// # Identifiers
//
// Entities carry the server-issued id. While an optimistic "add" is in flight
// the entity is keyed by a client-generated temporary id instead; the cache
// remaps it once the server answers.
package schema
