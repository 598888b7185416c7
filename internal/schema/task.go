package schema

import (
	"fmt"
	"slices"
	"strings"
	"time"
)

// Priority levels in user-facing orientation.
const (
	PriorityLow     = 1
	PriorityMedium  = 2
	PriorityHigh    = 3
	PriorityUrgent  = 4
	PriorityDefault = PriorityLow
)

// DateLayout is the layout of date-only due dates.
const DateLayout = "2006-01-02"

var exactTimeLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
}

// Due is the due date of a task or reminder.
//
// Date is either date-only ("2024-01-01") or carries a time of day
// ("2024-01-01T09:00:00", with a trailing Z when pinned to a timezone).
type Due struct {
	Date        string  `json:"date"`
	Timezone    *string `json:"timezone,omitempty"`
	String      string  `json:"string,omitempty"`
	Lang        string  `json:"lang,omitempty"`
	IsRecurring bool    `json:"is_recurring"`
}

// HasTime reports whether the due date carries a time of day.
func (d *Due) HasTime() bool {
	return d != nil && len(d.Date) > len(DateLayout)
}

// Time returns the due instant. Date-only dues resolve to midnight in loc.
func (d *Due) Time(loc *time.Location) (time.Time, error) {
	if d == nil || d.Date == "" {
		return time.Time{}, fmt.Errorf("due date is empty")
	}
	if loc == nil {
		loc = time.Local
	}
	if !d.HasTime() {
		return time.ParseInLocation(DateLayout, d.Date, loc)
	}
	if strings.HasSuffix(d.Date, "Z") {
		t, err := time.Parse(time.RFC3339, d.Date)
		if err != nil {
			return time.Time{}, fmt.Errorf("invalid due date %q: %w", d.Date, err)
		}
		return t.In(loc), nil
	}
	for _, layout := range exactTimeLayouts {
		if t, err := time.ParseInLocation(layout, d.Date, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid due date %q", d.Date)
}

// Day returns midnight of the calendar day the task is due, in loc.
func (d *Due) Day(loc *time.Location) (time.Time, error) {
	t, err := d.Time(loc)
	if err != nil {
		return time.Time{}, err
	}
	y, m, day := t.Date()
	return time.Date(y, m, day, 0, 0, 0, 0, t.Location()), nil
}

// Deadline is a hard date-only deadline, independent of the due date.
type Deadline struct {
	Date string `json:"date"`
	Lang string `json:"lang,omitempty"`
}

// Task is an item in a project. ParentID is a lookup relation only: deleting a
// parent never removes its sub-tasks from the cache.
type Task struct {
	ID             string    `json:"id"`
	UserID         string    `json:"user_id,omitempty"`
	ProjectID      string    `json:"project_id"`
	SectionID      *string   `json:"section_id"`
	ParentID       *string   `json:"parent_id"`
	Content        string    `json:"content"`
	Description    string    `json:"description"`
	Due            *Due      `json:"due"`
	Deadline       *Deadline `json:"deadline"`
	Priority       int       `json:"priority"`
	Labels         []string  `json:"labels"`
	ResponsibleUID *string   `json:"responsible_uid"`
	AssignedByUID  string    `json:"assigned_by_uid,omitempty"`
	AddedByUID     string    `json:"added_by_uid,omitempty"`
	ChildOrder     int       `json:"child_order"`
	DayOrder       int       `json:"day_order"`
	Collapsed      bool      `json:"collapsed"`
	Checked        bool      `json:"checked"`
	IsDeleted      bool      `json:"is_deleted"`
	NoteCount      int       `json:"note_count"`
	AddedAt        string    `json:"added_at,omitempty"`
	CompletedAt    *string   `json:"completed_at"`
}

// EntityID implements Entity.
func (t Task) EntityID() string { return t.ID }

// Assignee returns the responsible user id or "" when unassigned.
func (t Task) Assignee() string {
	if t.ResponsibleUID == nil {
		return ""
	}
	return *t.ResponsibleUID
}

// HasLabel reports whether the task carries the named label.
func (t Task) HasLabel(name string) bool {
	return slices.Contains(t.Labels, name)
}

// Validate checks the task has an id and a priority in range.
func (t *Task) Validate() error {
	if t.ID == "" {
		return fmt.Errorf("id is required")
	}
	if t.Priority < PriorityLow || t.Priority > PriorityUrgent {
		return fmt.Errorf("priority must be between %d and %d (got %d)", PriorityLow, PriorityUrgent, t.Priority)
	}
	return nil
}

// Clone returns a deep copy of the task.
func (t Task) Clone() Task {
	c := t
	c.Labels = slices.Clone(t.Labels)
	c.SectionID = cloneString(t.SectionID)
	c.ParentID = cloneString(t.ParentID)
	c.ResponsibleUID = cloneString(t.ResponsibleUID)
	c.CompletedAt = cloneString(t.CompletedAt)
	if t.Due != nil {
		d := *t.Due
		d.Timezone = cloneString(t.Due.Timezone)
		c.Due = &d
	}
	if t.Deadline != nil {
		d := *t.Deadline
		c.Deadline = &d
	}
	return c
}

// PriorityFromAPI converts a wire priority to the user-facing orientation.
// Out-of-range values map to the default priority.
func PriorityFromAPI(p int) int {
	if p < PriorityLow || p > PriorityUrgent {
		return PriorityDefault
	}
	return PriorityUrgent + PriorityLow - p
}

// PriorityToAPI converts a user-facing priority to the wire orientation.
func PriorityToAPI(p int) int {
	if p < PriorityLow || p > PriorityUrgent {
		return PriorityUrgent
	}
	return PriorityUrgent + PriorityLow - p
}

// StringPtr returns a pointer to s.
func StringPtr(s string) *string {
	return &s
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
