package cache

import "github.com/mschirtzinger/todosync/internal/schema"

// Op is the kind of change an Event reports.
type Op string

const (
	OpPatch   Op = "patch"
	OpRemove  Op = "remove"
	OpRemap   Op = "remap"
	OpReplace Op = "replace"
	OpCursor  Op = "cursor"
)

// Event describes one change to the store. Kind and ID are empty for
// OpReplace and OpCursor. For OpRemap, ID is the new id and PrevID the
// temporary one.
type Event struct {
	Kind   schema.Kind `json:"kind,omitempty"`
	ID     string      `json:"id,omitempty"`
	PrevID string      `json:"prev_id,omitempty"`
	Op     Op          `json:"op"`
	Cursor string      `json:"cursor,omitempty"`
}

type subscriber struct {
	id int
	fn func(Event)
}
