package ui

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/mschirtzinger/todosync/internal/schema"
	"github.com/mschirtzinger/todosync/internal/view"
)

// TaskLine formats one task: a priority-colored checkbox, the content, the
// due date, labels and project.
type TaskLine struct {
	Projects map[string]string
	Now      time.Time
	Location *time.Location
	Width    int
}

// Render returns the line for t.
func (l TaskLine) Render(t schema.Task) string {
	box := "○"
	if style, ok := priorityStyles[t.Priority]; ok {
		box = style.Render(box)
	}

	var meta []string
	if due := l.formatDue(t.Due); due != "" {
		meta = append(meta, due)
	}
	for _, label := range t.Labels {
		meta = append(meta, "@"+label)
	}
	if name, ok := l.Projects[t.ProjectID]; ok {
		meta = append(meta, "#"+name)
	}

	content := t.Content
	if l.Width > 0 {
		limit := l.Width - 2 - lipgloss.Width(strings.Join(meta, "  ")) - len(t.ID) - 3
		content = truncate(content, limit)
	}

	line := fmt.Sprintf("%s %s", box, content)
	if len(meta) > 0 {
		line += "  " + RenderMuted(strings.Join(meta, "  "))
	}
	return line + " " + RenderMuted("("+t.ID+")")
}

func (l TaskLine) formatDue(d *schema.Due) string {
	if d == nil {
		return ""
	}
	loc := l.Location
	if loc == nil {
		loc = time.Local
	}
	day, err := d.Day(loc)
	if err != nil {
		return d.Date
	}
	y, m, dd := l.Now.In(loc).Date()
	label := view.RelativeDay(day, time.Date(y, m, dd, 0, 0, 0, 0, loc))
	if d.HasTime() {
		if t, err := d.Time(loc); err == nil {
			label += " " + t.Format("15:04")
		}
	}
	if d.IsRecurring {
		label += " ↻"
	}
	if day.Before(time.Date(y, m, dd, 0, 0, 0, 0, loc)) {
		return RenderFail(label)
	}
	return label
}

func truncate(s string, limit int) string {
	if limit < 4 || lipgloss.Width(s) <= limit {
		return s
	}
	r := []rune(s)
	if len(r) > limit-1 {
		r = r[:limit-1]
	}
	return string(r) + "…"
}

// RenderProjection writes every section of p with its tasks. Unnamed
// sections print without a header; empty named sections print "(none)".
func RenderProjection(w io.Writer, p view.Projection, line TaskLine) {
	for i, section := range p.Sections {
		if section.Name != "" {
			if i > 0 {
				fmt.Fprintln(w)
			}
			fmt.Fprintf(w, "%s %s\n", RenderHeader(section.Name), RenderMuted(fmt.Sprintf("%d", len(section.Tasks))))
		}
		if len(section.Tasks) == 0 && section.Name != "" {
			fmt.Fprintf(w, "  %s\n", RenderMuted("(none)"))
		}
		for _, t := range section.Tasks {
			fmt.Fprintf(w, "  %s\n", line.Render(t))
		}
	}
}

// RenderControls writes the view's current sort/group/order settings.
func RenderControls(w io.Writer, p view.Projection) {
	order := "-"
	if p.Order != nil {
		order = p.Order.Value
	}
	fmt.Fprintf(w, "%s sort=%s group=%s order=%s\n",
		RenderAccent(string(p.View)), p.Sort.Value, p.Group.Value, order)
}
