// Package compare provides total orders over tasks for the view projection.
//
// Every Comparator returns -1, 0 or 1 and never panics. Ties are left at 0 so a
// stable sort keeps the incoming order. Direction is applied with Flip, which
// swaps operands instead of negating, so equal elements stay equal either way.
package compare

import (
	"cmp"
	"sync"
	"time"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/mschirtzinger/todosync/internal/schema"
)

// Unassigned is the display name used for tasks without a resolvable assignee.
const Unassigned = "Unassigned"

// Comparator orders two tasks.
type Comparator func(a, b schema.Task) int

// Flip reverses c when desc is true.
func Flip(c Comparator, desc bool) Comparator {
	if !desc {
		return c
	}
	return func(a, b schema.Task) int { return c(b, a) }
}

// Default keeps the incoming order.
func Default() Comparator {
	return func(a, b schema.Task) int { return 0 }
}

// Collator compares strings locale-aware and case-insensitively.
// It is safe for concurrent use.
type Collator struct {
	mu sync.Mutex
	c  *collate.Collator
}

// NewCollator returns a collator for the given language tag.
func NewCollator(tag language.Tag) *Collator {
	return &Collator{c: collate.New(tag, collate.IgnoreCase)}
}

// Compare returns -1, 0 or 1.
func (c *Collator) Compare(a, b string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return sign(c.c.CompareString(a, b))
}

var defaultCollator = NewCollator(language.Und)

// Names compares two display names with the default collator.
func Names(a, b string) int {
	return defaultCollator.Compare(a, b)
}

// ByName orders tasks by content.
func ByName() Comparator {
	return func(a, b schema.Task) int {
		return Names(a.Content, b.Content)
	}
}

// ByAssignee orders tasks by the display name of their assignee. Tasks whose
// assignee is absent or unknown sort as "Unassigned" among the named ones.
func ByAssignee(collaborators []schema.Collaborator) Comparator {
	names := schema.CollaboratorNames(collaborators)
	return func(a, b schema.Task) int {
		return Names(AssigneeName(a, names), AssigneeName(b, names))
	}
}

// AssigneeName resolves the task's assignee against names.
func AssigneeName(t schema.Task, names map[string]string) string {
	if name, ok := names[t.Assignee()]; ok && t.Assignee() != "" && name != "" {
		return name
	}
	return Unassigned
}

// ByPriority puts the most urgent task first.
func ByPriority() Comparator {
	return func(a, b schema.Task) int {
		return cmp.Compare(b.Priority, a.Priority)
	}
}

// ByProject orders tasks by project name; unknown projects compare as "".
func ByProject(projects []schema.Project) Comparator {
	names := schema.ProjectNames(projects)
	return func(a, b schema.Task) int {
		return Names(names[a.ProjectID], names[b.ProjectID])
	}
}

// ByDate orders tasks by due date in loc.
//
// Tasks without a due date come after tasks with one. Earlier days come first.
// On the same day an exact-time task precedes a date-only task, exact-time
// tasks are ordered by timestamp and date-only tasks are equal.
func ByDate(loc *time.Location) Comparator {
	if loc == nil {
		loc = time.Local
	}
	return func(a, b schema.Task) int {
		ad, aok := dueKey(a, loc)
		bd, bok := dueKey(b, loc)
		switch {
		case !aok && !bok:
			return 0
		case !aok:
			return 1
		case !bok:
			return -1
		}

		if c := ad.day.Compare(bd.day); c != 0 {
			return c
		}
		switch {
		case ad.exact && bd.exact:
			return ad.at.Compare(bd.at)
		case ad.exact:
			return -1
		case bd.exact:
			return 1
		}
		return 0
	}
}

type due struct {
	day   time.Time
	at    time.Time
	exact bool
}

func dueKey(t schema.Task, loc *time.Location) (due, bool) {
	if t.Due == nil || t.Due.Date == "" {
		return due{}, false
	}
	at, err := t.Due.Time(loc)
	if err != nil {
		return due{}, false
	}
	y, m, d := at.In(loc).Date()
	return due{
		day:   time.Date(y, m, d, 0, 0, 0, 0, loc),
		at:    at,
		exact: t.Due.HasTime(),
	}, true
}

func sign(n int) int {
	switch {
	case n < 0:
		return -1
	case n > 0:
		return 1
	}
	return 0
}
