package view

import (
	"context"
	"errors"
	"slices"
	"testing"

	"github.com/mschirtzinger/todosync/internal/schema"
)

func selectSnapshot() schema.Snapshot {
	inInbox := func(t *schema.Task) { t.ProjectID = "inbox" }
	return schema.Snapshot{
		Tasks: []schema.Task{
			newTask("overdue", withDue("2024-01-08")),
			newTask("today", withDue("2024-01-10T09:00:00")),
			newTask("later", withDue("2024-01-20"), withLabels("home")),
			newTask("undated", inInbox),
			newTask("homework", withLabels("home"), inInbox),
		},
		Projects: []schema.Project{{ID: "inbox", Name: "Inbox", InboxProject: true}, {ID: "p1", Name: "Work"}},
		Filters:  []schema.Filter{{ID: "f1", Name: "Urgent", Query: "p1 & today"}},
	}
}

func TestSelect(t *testing.T) {
	p := newTestProjector(t)
	snap := selectSnapshot()

	tests := []struct {
		view ViewID
		want []string
	}{
		{Today, []string{"overdue", "today"}},
		{Upcoming, []string{"today", "later"}},
		{Inbox, []string{"undated", "homework"}},
		{ProjectView("p1"), []string{"overdue", "today", "later"}},
		{LabelView("home"), []string{"later", "homework"}},
		{Search, []string{"overdue", "today", "later", "undated", "homework"}},
	}

	for _, tt := range tests {
		got, _, err := p.Select(snap, tt.view)
		if err != nil {
			t.Errorf("Select(%s) failed: %v", tt.view, err)
			continue
		}
		if ids := taskIDs(got); !slices.Equal(ids, tt.want) {
			t.Errorf("Select(%s) = %v, want %v", tt.view, ids, tt.want)
		}
	}
}

func TestSelectProjectViewExcludesProjectOption(t *testing.T) {
	p := newTestProjector(t)
	got, err := p.ProjectSnapshot(context.Background(), selectSnapshot(), ProjectView("p1"))
	if err != nil {
		t.Fatalf("ProjectSnapshot failed: %v", err)
	}
	if hasOption(got.Group.Options, string(GroupProject)) {
		t.Error("project view offers grouping by project")
	}
	if hasOption(got.Sort.Options, string(SortProject)) {
		t.Error("project view offers sorting by project")
	}
}

func TestSelectFilterView(t *testing.T) {
	p := newTestProjector(t)
	snap := selectSnapshot()

	if _, _, err := p.Select(snap, FilterView("f1")); !errors.Is(err, ErrServerQuery) {
		t.Errorf("err = %v, want ErrServerQuery", err)
	}
	if q, ok := FilterQuery(snap, FilterView("f1")); !ok || q != "p1 & today" {
		t.Errorf("FilterQuery = %q, %v", q, ok)
	}
	if _, ok := FilterQuery(snap, FilterView("missing")); ok {
		t.Error("FilterQuery found a missing filter")
	}
	if _, ok := FilterQuery(snap, Today); ok {
		t.Error("FilterQuery accepted a non-filter view")
	}
}
