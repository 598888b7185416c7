package cache

import (
	"fmt"
	"slices"
	"strings"

	"github.com/mschirtzinger/todosync/internal/schema"
)

// collection is a kind-agnostic handle on one slice of the snapshot.
type collection interface {
	patch(id string, fields schema.Fields) error
	remove(id string) bool
	lookup(id string) (schema.Entity, bool)
	put(e schema.Entity) error
	rename(from, to string) bool
}

// slot adapts a typed snapshot slice to collection.
type slot[T schema.Entity] struct {
	items *[]T
}

func (s slot[T]) index(id string) int {
	return slices.IndexFunc(*s.items, func(e T) bool { return e.EntityID() == id })
}

func (s slot[T]) patch(id string, fields schema.Fields) error {
	if i := s.index(id); i >= 0 {
		merged, err := schema.MergeFields((*s.items)[i], fields)
		if err != nil {
			return err
		}
		(*s.items)[i] = merged
		return nil
	}
	e, err := schema.Placeholder[T](id, fields)
	if err != nil {
		return err
	}
	*s.items = append(*s.items, e)
	return nil
}

func (s slot[T]) remove(id string) bool {
	i := s.index(id)
	if i < 0 {
		return false
	}
	*s.items = slices.Delete(*s.items, i, i+1)
	return true
}

func (s slot[T]) lookup(id string) (schema.Entity, bool) {
	i := s.index(id)
	if i < 0 {
		return nil, false
	}
	return cloneEntity((*s.items)[i]), true
}

func (s slot[T]) put(e schema.Entity) error {
	typed, ok := e.(T)
	if !ok {
		var zero T
		return fmt.Errorf("entity %T does not belong in a %T collection", e, zero)
	}
	if i := s.index(typed.EntityID()); i >= 0 {
		(*s.items)[i] = typed
		return nil
	}
	*s.items = append(*s.items, typed)
	return nil
}

func (s slot[T]) rename(from, to string) bool {
	i := s.index(from)
	if i < 0 {
		return false
	}
	if s.index(to) >= 0 {
		// The real record already arrived; the placeholder is redundant.
		*s.items = slices.Delete(*s.items, i, i+1)
		return true
	}
	renamed, err := schema.MergeFields((*s.items)[i], schema.Fields{"id": to})
	if err != nil {
		return false
	}
	(*s.items)[i] = renamed
	return true
}

// userSlot is the singleton user record.
type userSlot struct {
	user **schema.User
}

func (s userSlot) patch(id string, fields schema.Fields) error {
	if *s.user == nil || (*s.user).ID != id {
		u, err := schema.Placeholder[schema.User](id, fields)
		if err != nil {
			return err
		}
		*s.user = &u
		return nil
	}
	merged, err := schema.MergeFields(**s.user, fields)
	if err != nil {
		return err
	}
	*s.user = &merged
	return nil
}

func (s userSlot) remove(id string) bool {
	if *s.user == nil || (*s.user).ID != id {
		return false
	}
	*s.user = nil
	return true
}

func (s userSlot) lookup(id string) (schema.Entity, bool) {
	if *s.user == nil || (*s.user).ID != id {
		return nil, false
	}
	return **s.user, true
}

func (s userSlot) put(e schema.Entity) error {
	u, ok := e.(schema.User)
	if !ok {
		return fmt.Errorf("entity %T is not a user", e)
	}
	*s.user = &u
	return nil
}

func (s userSlot) rename(from, to string) bool {
	if *s.user == nil || (*s.user).ID != from {
		return false
	}
	(*s.user).ID = to
	return true
}

// collectionFor returns the collection of kind inside snap.
func collectionFor(snap *schema.Snapshot, kind schema.Kind) (collection, error) {
	switch kind {
	case schema.KindTask:
		return slot[schema.Task]{&snap.Tasks}, nil
	case schema.KindProject:
		return slot[schema.Project]{&snap.Projects}, nil
	case schema.KindSection:
		return slot[schema.Section]{&snap.Sections}, nil
	case schema.KindLabel:
		return slot[schema.Label]{&snap.Labels}, nil
	case schema.KindFilter:
		return slot[schema.Filter]{&snap.Filters}, nil
	case schema.KindComment:
		return slot[schema.Comment]{&snap.Comments}, nil
	case schema.KindCollaborator:
		return slot[schema.Collaborator]{&snap.Collaborators}, nil
	case schema.KindCollaboratorState:
		return slot[schema.CollaboratorState]{&snap.CollaboratorStates}, nil
	case schema.KindReminder:
		return slot[schema.Reminder]{&snap.Reminders}, nil
	case schema.KindUser:
		return userSlot{&snap.User}, nil
	}
	return nil, fmt.Errorf("unknown entity kind %q", kind)
}

// placeholderFields adds the identifying fields a placeholder needs beyond
// "id". Collaborator states are keyed by "<project_id>:<user_id>".
func placeholderFields(kind schema.Kind, id string, fields schema.Fields) schema.Fields {
	if kind != schema.KindCollaboratorState {
		return fields
	}
	project, user, ok := strings.Cut(id, ":")
	if !ok {
		return fields
	}
	out := fields.Clone()
	if _, set := out["project_id"]; !set {
		out["project_id"] = project
	}
	if _, set := out["user_id"]; !set {
		out["user_id"] = user
	}
	return out
}

func cloneEntity(e schema.Entity) schema.Entity {
	switch v := e.(type) {
	case schema.Task:
		return v.Clone()
	case schema.Comment:
		return v.Clone()
	case schema.Reminder:
		return v.Clone()
	}
	return e
}

// gone reports whether an authoritative entity means "drop it from the
// active mirror": deleted, archived, or a completed task.
func gone(e schema.Entity) bool {
	switch v := e.(type) {
	case schema.Task:
		return v.IsDeleted || v.Checked
	case schema.Project:
		return v.IsDeleted || v.IsArchived
	case schema.Section:
		return v.IsDeleted || v.IsArchived
	case schema.Label:
		return v.IsDeleted
	case schema.Filter:
		return v.IsDeleted
	case schema.Comment:
		return v.IsDeleted
	case schema.CollaboratorState:
		return v.IsDeleted
	case schema.Reminder:
		return bool(v.IsDeleted)
	}
	return false
}

// rewriteRefs points every reference to from at to. Temporary ids are
// globally unique, so fields are rewritten regardless of referenced kind.
func rewriteRefs(snap *schema.Snapshot, from, to string) int {
	n := 0
	swap := func(p *string) {
		if *p == from {
			*p = to
			n++
		}
	}
	// Pointer fields may be shared with copies handed out by Read, so the
	// pointer is replaced rather than written through.
	swapPtr := func(p **string) {
		if *p != nil && **p == from {
			*p = schema.StringPtr(to)
			n++
		}
	}
	for i := range snap.Tasks {
		t := &snap.Tasks[i]
		swap(&t.ProjectID)
		swapPtr(&t.SectionID)
		swapPtr(&t.ParentID)
	}
	for i := range snap.Projects {
		swapPtr(&snap.Projects[i].ParentID)
	}
	for i := range snap.Sections {
		swap(&snap.Sections[i].ProjectID)
	}
	for i := range snap.Comments {
		swap(&snap.Comments[i].ItemID)
	}
	for i := range snap.Reminders {
		swap(&snap.Reminders[i].ItemID)
	}
	for i := range snap.CollaboratorStates {
		swap(&snap.CollaboratorStates[i].ProjectID)
	}
	if snap.User != nil {
		swap(&snap.User.InboxProject)
	}
	return n
}
