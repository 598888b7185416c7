package schema

import (
	"bytes"
	"encoding/json"
	"fmt"
	"maps"
)

// Kind names an entity collection. Values are the wire resource type names.
type Kind string

const (
	KindTask              Kind = "items"
	KindProject           Kind = "projects"
	KindSection           Kind = "sections"
	KindLabel             Kind = "labels"
	KindFilter            Kind = "filters"
	KindComment           Kind = "notes"
	KindCollaborator      Kind = "collaborators"
	KindCollaboratorState Kind = "collaborator_states"
	KindReminder          Kind = "reminders"
	KindUser              Kind = "user"
)

// ResourceAll requests every collection from the sync endpoint.
const ResourceAll = "all"

// AllKinds lists every collection in snapshot order.
var AllKinds = []Kind{
	KindTask,
	KindProject,
	KindSection,
	KindLabel,
	KindFilter,
	KindComment,
	KindCollaborator,
	KindCollaboratorState,
	KindReminder,
	KindUser,
}

// ParseKind accepts the wire name or the singular entity name ("task", "comment", ...).
func ParseKind(s string) (Kind, error) {
	switch s {
	case "items", "item", "task", "tasks":
		return KindTask, nil
	case "projects", "project":
		return KindProject, nil
	case "sections", "section":
		return KindSection, nil
	case "labels", "label":
		return KindLabel, nil
	case "filters", "filter":
		return KindFilter, nil
	case "notes", "note", "comment", "comments":
		return KindComment, nil
	case "collaborators", "collaborator":
		return KindCollaborator, nil
	case "collaborator_states":
		return KindCollaboratorState, nil
	case "reminders", "reminder":
		return KindReminder, nil
	case "user":
		return KindUser, nil
	}
	return "", fmt.Errorf("unknown entity kind %q", s)
}

// CommandPrefix is the prefix used by command types for this kind ("item", "note", ...).
func (k Kind) CommandPrefix() string {
	switch k {
	case KindTask:
		return "item"
	case KindComment:
		return "note"
	case KindCollaboratorState:
		return "collaborator_state"
	case KindUser:
		return "user"
	}
	s := string(k)
	return s[:len(s)-1]
}

// Entity is implemented by every mirrored entity.
type Entity interface {
	EntityID() string
}

// Fields is a field-level change set keyed by JSON field name.
type Fields map[string]any

// Clone returns a shallow copy of the change set.
func (f Fields) Clone() Fields {
	if f == nil {
		return Fields{}
	}
	return maps.Clone(f)
}

// MergeFields overlays fields onto entity and returns the merged copy.
// Fields not named in the change set keep their current value.
func MergeFields[T any](entity T, fields Fields) (T, error) {
	var out T

	base, err := json.Marshal(entity)
	if err != nil {
		return out, fmt.Errorf("failed to marshal entity: %w", err)
	}

	dec := json.NewDecoder(bytes.NewReader(base))
	dec.UseNumber()
	var m map[string]any
	if err := dec.Decode(&m); err != nil {
		return out, fmt.Errorf("failed to decode entity: %w", err)
	}
	if m == nil {
		m = make(map[string]any, len(fields))
	}
	for k, v := range fields {
		m[k] = v
	}

	merged, err := json.Marshal(m)
	if err != nil {
		return out, fmt.Errorf("failed to marshal merged fields: %w", err)
	}
	if err := json.Unmarshal(merged, &out); err != nil {
		return out, fmt.Errorf("failed to apply fields: %w", err)
	}
	return out, nil
}

// Placeholder synthesizes a minimal entity with the given id and fields.
// It is used for optimistic creates before the server returns the real record.
func Placeholder[T any](id string, fields Fields) (T, error) {
	f := fields.Clone()
	f["id"] = id
	var zero T
	return MergeFields(zero, f)
}
