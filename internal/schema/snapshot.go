package schema

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"
)

// WildcardCursor requests the full state from the sync endpoint.
const WildcardCursor = "*"

// Snapshot is the local mirror of every entity collection plus the cursor.
// Collection order is insignificant to the server but preserved locally, so
// the "no explicit sort" view shows tasks in the order they were received.
type Snapshot struct {
	Cursor             string              `json:"sync_token"`
	Tasks              []Task              `json:"items"`
	Projects           []Project           `json:"projects"`
	Sections           []Section           `json:"sections"`
	Labels             []Label             `json:"labels"`
	Filters            []Filter            `json:"filters"`
	Comments           []Comment           `json:"notes"`
	Collaborators      []Collaborator      `json:"collaborators"`
	CollaboratorStates []CollaboratorState `json:"collaborator_states"`
	Reminders          []Reminder          `json:"reminders"`
	User               *User               `json:"user,omitempty"`
}

// NewSnapshot returns an empty snapshot whose cursor requests full state.
func NewSnapshot() Snapshot {
	return Snapshot{Cursor: WildcardCursor}
}

// Clone returns a deep copy that shares no memory with s.
func (s Snapshot) Clone() Snapshot {
	out := Snapshot{
		Cursor:             s.Cursor,
		Projects:           slices.Clone(s.Projects),
		Sections:           slices.Clone(s.Sections),
		Labels:             slices.Clone(s.Labels),
		Filters:            slices.Clone(s.Filters),
		Collaborators:      slices.Clone(s.Collaborators),
		CollaboratorStates: slices.Clone(s.CollaboratorStates),
	}
	if s.Tasks != nil {
		out.Tasks = make([]Task, len(s.Tasks))
		for i, t := range s.Tasks {
			out.Tasks[i] = t.Clone()
		}
	}
	if s.Comments != nil {
		out.Comments = make([]Comment, len(s.Comments))
		for i, c := range s.Comments {
			out.Comments[i] = c.Clone()
		}
	}
	if s.Reminders != nil {
		out.Reminders = make([]Reminder, len(s.Reminders))
		for i, r := range s.Reminders {
			out.Reminders[i] = r.Clone()
		}
	}
	if s.User != nil {
		u := *s.User
		out.User = &u
	}
	return out
}

// Task returns the task with the given id.
func (s Snapshot) Task(id string) (Task, bool) {
	i := slices.IndexFunc(s.Tasks, func(t Task) bool { return t.ID == id })
	if i < 0 {
		return Task{}, false
	}
	return s.Tasks[i], true
}

// Project returns the project with the given id.
func (s Snapshot) Project(id string) (Project, bool) {
	i := slices.IndexFunc(s.Projects, func(p Project) bool { return p.ID == id })
	if i < 0 {
		return Project{}, false
	}
	return s.Projects[i], true
}

// InboxProjectID returns the id of the inbox project, or "".
func (s Snapshot) InboxProjectID() string {
	for _, p := range s.Projects {
		if p.InboxProject {
			return p.ID
		}
	}
	if s.User != nil {
		return s.User.InboxProject
	}
	return ""
}

// Count returns the number of entities in the collection.
func (s Snapshot) Count(kind Kind) int {
	switch kind {
	case KindTask:
		return len(s.Tasks)
	case KindProject:
		return len(s.Projects)
	case KindSection:
		return len(s.Sections)
	case KindLabel:
		return len(s.Labels)
	case KindFilter:
		return len(s.Filters)
	case KindComment:
		return len(s.Comments)
	case KindCollaborator:
		return len(s.Collaborators)
	case KindCollaboratorState:
		return len(s.CollaboratorStates)
	case KindReminder:
		return len(s.Reminders)
	case KindUser:
		if s.User != nil {
			return 1
		}
	}
	return 0
}

// Each calls fn for every entity, collection by collection in AllKinds order,
// with pos the index within its collection. It stops at the first error.
func (s Snapshot) Each(fn func(kind Kind, pos int, e Entity) error) error {
	w := &walker{fn: fn}
	walk(w, KindTask, s.Tasks)
	walk(w, KindProject, s.Projects)
	walk(w, KindSection, s.Sections)
	walk(w, KindLabel, s.Labels)
	walk(w, KindFilter, s.Filters)
	walk(w, KindComment, s.Comments)
	walk(w, KindCollaborator, s.Collaborators)
	walk(w, KindCollaboratorState, s.CollaboratorStates)
	walk(w, KindReminder, s.Reminders)
	if s.User != nil {
		walk(w, KindUser, []User{*s.User})
	}
	return w.err
}

type walker struct {
	fn  func(Kind, int, Entity) error
	err error
}

func walk[T Entity](w *walker, kind Kind, items []T) {
	for i, e := range items {
		if w.err != nil {
			return
		}
		w.err = w.fn(kind, i, e)
	}
}

// AppendJSON decodes one entity of kind and appends it to its collection.
// The user replaces the current user. Unknown kinds are ignored so data
// written by a newer version still loads.
func (s *Snapshot) AppendJSON(kind Kind, body []byte) error {
	switch kind {
	case KindTask:
		return appendJSON(&s.Tasks, kind, body)
	case KindProject:
		return appendJSON(&s.Projects, kind, body)
	case KindSection:
		return appendJSON(&s.Sections, kind, body)
	case KindLabel:
		return appendJSON(&s.Labels, kind, body)
	case KindFilter:
		return appendJSON(&s.Filters, kind, body)
	case KindComment:
		return appendJSON(&s.Comments, kind, body)
	case KindCollaborator:
		return appendJSON(&s.Collaborators, kind, body)
	case KindCollaboratorState:
		return appendJSON(&s.CollaboratorStates, kind, body)
	case KindReminder:
		return appendJSON(&s.Reminders, kind, body)
	case KindUser:
		var u User
		if err := json.Unmarshal(body, &u); err != nil {
			return fmt.Errorf("failed to decode user: %w", err)
		}
		s.User = &u
	}
	return nil
}

func appendJSON[T any](dst *[]T, kind Kind, body []byte) error {
	var e T
	if err := json.Unmarshal(body, &e); err != nil {
		return fmt.Errorf("failed to decode %s: %w", kind, err)
	}
	*dst = append(*dst, e)
	return nil
}

// IntBool decodes the 0/1 integers some endpoints use for booleans.
type IntBool bool

// UnmarshalJSON accepts true/false, 0/1 and null.
func (b *IntBool) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch string(data) {
	case "true", "1":
		*b = true
		return nil
	case "false", "0", "null":
		*b = false
		return nil
	}
	var n float64
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*b = n != 0
	return nil
}
