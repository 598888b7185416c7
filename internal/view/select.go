package view

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/mschirtzinger/todosync/internal/schema"
)

// ErrServerQuery is returned for filter views: their query language is
// evaluated by the server, not against the cache. Use the filter's Query with
// a REST listing instead.
var ErrServerQuery = errors.New("filter views are evaluated by the server")

// FilterQuery returns the query of a filter view.
func FilterQuery(snap schema.Snapshot, id ViewID) (string, bool) {
	filterID, ok := strings.CutPrefix(string(id), "filter:")
	if !ok {
		return "", false
	}
	i := slices.IndexFunc(snap.Filters, func(f schema.Filter) bool { return f.ID == filterID })
	if i < 0 {
		return "", false
	}
	return snap.Filters[i].Query, true
}

// Select returns the tasks of snap shown by the view and the projection
// context for them. Today shows overdue and today's tasks, Upcoming every
// task due today or later, Inbox the inbox project; project and label views
// show their members. Any other view shows every task.
func (p *Projector) Select(snap schema.Snapshot, id ViewID) ([]schema.Task, Context, error) {
	loc := p.config.Location
	today := midnight(p.config.Now(), loc)
	vc := ContextFromSnapshot(snap)

	switch {
	case id == Today:
		return filter(snap.Tasks, func(t schema.Task) bool {
			day, ok := dueDay(t, loc)
			return ok && !day.After(today)
		}), vc, nil
	case id == Upcoming:
		return filter(snap.Tasks, func(t schema.Task) bool {
			day, ok := dueDay(t, loc)
			return ok && !day.Before(today)
		}), vc, nil
	case id == Inbox:
		inbox := snap.InboxProjectID()
		vc.Exclude = []string{string(GroupProject)}
		return filter(snap.Tasks, func(t schema.Task) bool { return t.ProjectID == inbox }), vc, nil
	case strings.HasPrefix(string(id), "filter:"):
		return nil, vc, fmt.Errorf("view %s: %w", id, ErrServerQuery)
	}

	if projectID, ok := id.ProjectID(); ok {
		vc.Exclude = []string{string(GroupProject)}
		return filter(snap.Tasks, func(t schema.Task) bool { return t.ProjectID == projectID }), vc, nil
	}
	if label, ok := strings.CutPrefix(string(id), "label:"); ok {
		return filter(snap.Tasks, func(t schema.Task) bool { return t.HasLabel(label) }), vc, nil
	}
	return slices.Clone(snap.Tasks), vc, nil
}

// ProjectSnapshot selects the view's tasks from snap and projects them.
func (p *Projector) ProjectSnapshot(ctx context.Context, snap schema.Snapshot, id ViewID) (Projection, error) {
	tasks, vc, err := p.Select(snap, id)
	if err != nil {
		return Projection{}, err
	}
	return p.Project(ctx, tasks, id, vc)
}

func dueDay(t schema.Task, loc *time.Location) (time.Time, bool) {
	if t.Due == nil {
		return time.Time{}, false
	}
	day, err := t.Due.Day(loc)
	return day, err == nil
}
