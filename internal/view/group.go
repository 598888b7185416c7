package view

import (
	"cmp"
	"fmt"
	"slices"
	"time"

	"github.com/mschirtzinger/todosync/internal/compare"
	"github.com/mschirtzinger/todosync/internal/schema"
)

// Fixed section names.
const (
	SectionOverdue   = "Overdue"
	SectionNoDate    = "No date"
	SectionNoLabel   = "No label"
	SectionNoProject = "No project"
)

// groupByDate emits "Overdue" first (when any task is overdue), then one
// section per calendar day in ascending order, then "No date".
func groupByDate(tasks []schema.Task, now time.Time, loc *time.Location) []Section {
	today := midnight(now, loc)

	var overdue, undated []schema.Task
	byDay := make(map[string][]schema.Task)
	var days []time.Time

	for _, t := range tasks {
		if t.Due == nil {
			undated = append(undated, t)
			continue
		}
		day, err := t.Due.Day(loc)
		if err != nil {
			undated = append(undated, t)
			continue
		}
		if day.Before(today) {
			overdue = append(overdue, t)
			continue
		}
		key := day.Format(schema.DateLayout)
		if _, ok := byDay[key]; !ok {
			days = append(days, day)
		}
		byDay[key] = append(byDay[key], t)
	}

	slices.SortFunc(days, func(a, b time.Time) int { return a.Compare(b) })

	var sections []Section
	if len(overdue) > 0 {
		sections = append(sections, Section{Name: SectionOverdue, Tasks: overdue})
	}
	for _, day := range days {
		sections = append(sections, Section{Name: RelativeDay(day, today), Tasks: byDay[day.Format(schema.DateLayout)]})
	}
	if len(undated) > 0 {
		sections = append(sections, Section{Name: SectionNoDate, Tasks: undated})
	}
	return sections
}

// RelativeDay labels day relative to today: "Today", "Tomorrow", a weekday
// name within the next 7 days, "January 2" in the same year and
// "January 2, 2006" otherwise. Both arguments must be midnights in the same
// location.
func RelativeDay(day, today time.Time) string {
	diff := daysBetween(today, day)
	switch {
	case diff == 0:
		return "Today"
	case diff == 1:
		return "Tomorrow"
	case diff > 1 && diff < 7:
		return day.Weekday().String()
	case day.Year() == today.Year():
		return day.Format("January 2")
	}
	return day.Format("January 2, 2006")
}

// groupByPriority always yields four sections, most urgent first.
func groupByPriority(tasks []schema.Task) []Section {
	sections := make([]Section, 0, schema.PriorityUrgent)
	for p := schema.PriorityUrgent; p >= schema.PriorityLow; p-- {
		sections = append(sections, Section{
			Name:  PriorityName(p),
			Tasks: filter(tasks, func(t schema.Task) bool { return t.Priority == p }),
		})
	}
	return sections
}

// PriorityName returns the UI name of a user-facing priority (4 → "Priority 1").
func PriorityName(p int) string {
	return fmt.Sprintf("Priority %d", schema.PriorityUrgent+schema.PriorityLow-p)
}

// groupByProject yields one section per project in project order, skipping
// empty projects. Tasks whose project is unknown go to a trailing section.
func groupByProject(tasks []schema.Task, projects []schema.Project) []Section {
	ordered := slices.Clone(projects)
	slices.SortStableFunc(ordered, func(a, b schema.Project) int { return cmp.Compare(a.ChildOrder, b.ChildOrder) })

	known := make(map[string]bool, len(ordered))
	var sections []Section
	for _, p := range ordered {
		known[p.ID] = true
		in := filter(tasks, func(t schema.Task) bool { return t.ProjectID == p.ID })
		if len(in) > 0 {
			sections = append(sections, Section{Name: p.Name, Tasks: in})
		}
	}

	if lost := filter(tasks, func(t schema.Task) bool { return !known[t.ProjectID] }); len(lost) > 0 {
		sections = append(sections, Section{Name: SectionNoProject, Tasks: lost})
	}
	return sections
}

// groupByLabel yields one section per label in label order; a task with
// several labels appears in each. Label names used by tasks but missing from
// the label collection follow in alphabetical order. Exactly one "No label"
// section is always last.
func groupByLabel(tasks []schema.Task, labels []schema.Label) []Section {
	ordered := slices.Clone(labels)
	slices.SortStableFunc(ordered, func(a, b schema.Label) int { return cmp.Compare(a.ItemOrder, b.ItemOrder) })

	names := make([]string, 0, len(ordered))
	seen := make(map[string]bool)
	for _, l := range ordered {
		if !seen[l.Name] {
			seen[l.Name] = true
			names = append(names, l.Name)
		}
	}

	var extra []string
	for _, t := range tasks {
		for _, name := range t.Labels {
			if !seen[name] {
				seen[name] = true
				extra = append(extra, name)
			}
		}
	}
	slices.SortStableFunc(extra, compare.Names)
	names = append(names, extra...)

	var sections []Section
	for _, name := range names {
		in := filter(tasks, func(t schema.Task) bool { return t.HasLabel(name) })
		if len(in) > 0 {
			sections = append(sections, Section{Name: name, Tasks: in})
		}
	}

	return append(sections, Section{
		Name:  SectionNoLabel,
		Tasks: filter(tasks, func(t schema.Task) bool { return len(t.Labels) == 0 }),
	})
}

// groupByAssignee yields one section per assignee display name, ordered by
// name; "Unassigned" sorts among the others.
func groupByAssignee(tasks []schema.Task, collaborators []schema.Collaborator) []Section {
	names := schema.CollaboratorNames(collaborators)

	byName := make(map[string][]schema.Task)
	var order []string
	for _, t := range tasks {
		name := compare.AssigneeName(t, names)
		if _, ok := byName[name]; !ok {
			order = append(order, name)
		}
		byName[name] = append(byName[name], t)
	}
	slices.SortStableFunc(order, compare.Names)

	sections := make([]Section, 0, len(order))
	for _, name := range order {
		sections = append(sections, Section{Name: name, Tasks: byName[name]})
	}
	return sections
}

func filter(tasks []schema.Task, keep func(schema.Task) bool) []schema.Task {
	out := []schema.Task{}
	for _, t := range tasks {
		if keep(t) {
			out = append(out, t)
		}
	}
	return out
}

func midnight(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}

// daysBetween counts calendar days from a to b, ignoring DST shifts.
func daysBetween(a, b time.Time) int {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	ua := time.Date(ay, am, ad, 0, 0, 0, 0, time.UTC)
	ub := time.Date(by, bm, bd, 0, 0, 0, 0, time.UTC)
	return int(ub.Sub(ua).Hours() / 24)
}
