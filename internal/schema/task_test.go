package schema

import (
	"encoding/json"
	"testing"
	"time"
)

func TestPriorityTranslation(t *testing.T) {
	tests := []struct {
		api  int
		user int
	}{
		{api: 1, user: 4},
		{api: 2, user: 3},
		{api: 3, user: 2},
		{api: 4, user: 1},
	}

	for _, tt := range tests {
		if got := PriorityFromAPI(tt.api); got != tt.user {
			t.Errorf("PriorityFromAPI(%d) = %d, want %d", tt.api, got, tt.user)
		}
		if got := PriorityToAPI(tt.user); got != tt.api {
			t.Errorf("PriorityToAPI(%d) = %d, want %d", tt.user, got, tt.api)
		}
	}

	if got := PriorityFromAPI(0); got != PriorityDefault {
		t.Errorf("PriorityFromAPI(0) = %d, want default %d", got, PriorityDefault)
	}
}

func TestDueHasTime(t *testing.T) {
	tests := []struct {
		date string
		want bool
	}{
		{"2024-01-01", false},
		{"2024-01-01T09:00", true},
		{"2024-01-01T09:00:00", true},
		{"2024-01-01T09:00:00Z", true},
	}
	for _, tt := range tests {
		d := &Due{Date: tt.date}
		if got := d.HasTime(); got != tt.want {
			t.Errorf("HasTime(%q) = %v, want %v", tt.date, got, tt.want)
		}
	}

	var nilDue *Due
	if nilDue.HasTime() {
		t.Error("nil due should not have a time")
	}
}

func TestDueTime(t *testing.T) {
	loc := time.FixedZone("test", 2*60*60)

	got, err := (&Due{Date: "2024-03-05T09:30"}).Time(loc)
	if err != nil {
		t.Fatalf("Time() failed: %v", err)
	}
	want := time.Date(2024, 3, 5, 9, 30, 0, 0, loc)
	if !got.Equal(want) {
		t.Errorf("Time() = %v, want %v", got, want)
	}

	got, err = (&Due{Date: "2024-03-05T09:30:00Z"}).Time(loc)
	if err != nil {
		t.Fatalf("Time() failed: %v", err)
	}
	if !got.Equal(time.Date(2024, 3, 5, 9, 30, 0, 0, time.UTC)) {
		t.Errorf("Time() with Z = %v, want 09:30 UTC", got)
	}

	day, err := (&Due{Date: "2024-03-05T23:30:00"}).Day(loc)
	if err != nil {
		t.Fatalf("Day() failed: %v", err)
	}
	if !day.Equal(time.Date(2024, 3, 5, 0, 0, 0, 0, loc)) {
		t.Errorf("Day() = %v, want midnight 2024-03-05", day)
	}

	if _, err := (&Due{Date: "not a date"}).Time(loc); err == nil {
		t.Error("expected error for invalid date")
	}
}

func TestMergeFieldsKeepsUnmentionedFields(t *testing.T) {
	task := Task{
		ID:        "1",
		Content:   "Write report",
		Priority:  1,
		Labels:    []string{"work"},
		ProjectID: "p1",
	}

	merged, err := MergeFields(task, Fields{"priority": 4})
	if err != nil {
		t.Fatalf("MergeFields failed: %v", err)
	}

	if merged.Priority != 4 {
		t.Errorf("Priority = %d, want 4", merged.Priority)
	}
	if merged.Content != "Write report" {
		t.Errorf("Content = %q, want %q", merged.Content, "Write report")
	}
	if merged.ProjectID != "p1" {
		t.Errorf("ProjectID = %q, want p1", merged.ProjectID)
	}
	if len(merged.Labels) != 1 || merged.Labels[0] != "work" {
		t.Errorf("Labels = %v, want [work]", merged.Labels)
	}
}

func TestMergeFieldsStructValues(t *testing.T) {
	merged, err := MergeFields(Task{ID: "1"}, Fields{
		"due":        &Due{Date: "2024-01-01", IsRecurring: true},
		"section_id": nil,
	})
	if err != nil {
		t.Fatalf("MergeFields failed: %v", err)
	}
	if merged.Due == nil || merged.Due.Date != "2024-01-01" || !merged.Due.IsRecurring {
		t.Errorf("Due = %+v, want recurring 2024-01-01", merged.Due)
	}
	if merged.SectionID != nil {
		t.Errorf("SectionID = %v, want nil", merged.SectionID)
	}
}

func TestPlaceholder(t *testing.T) {
	p, err := Placeholder[Task]("tmp-1", Fields{"content": "Buy milk", "priority": 2})
	if err != nil {
		t.Fatalf("Placeholder failed: %v", err)
	}
	if p.ID != "tmp-1" || p.Content != "Buy milk" || p.Priority != 2 {
		t.Errorf("Placeholder = %+v", p)
	}
}

func TestTaskCloneIsIndependent(t *testing.T) {
	orig := Task{ID: "1", Labels: []string{"a"}, Due: &Due{Date: "2024-01-01"}, ParentID: StringPtr("0")}
	c := orig.Clone()
	c.Labels[0] = "b"
	c.Due.Date = "2025-01-01"
	*c.ParentID = "9"

	if orig.Labels[0] != "a" || orig.Due.Date != "2024-01-01" || *orig.ParentID != "0" {
		t.Errorf("clone shares memory with original: %+v", orig)
	}
}

func TestIntBool(t *testing.T) {
	var r Reminder
	if err := json.Unmarshal([]byte(`{"id":"r1","is_deleted":1}`), &r); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if !r.IsDeleted {
		t.Error("is_deleted=1 should decode as true")
	}
	if err := json.Unmarshal([]byte(`{"id":"r1","is_deleted":false}`), &r); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if r.IsDeleted {
		t.Error("is_deleted=false should decode as false")
	}
}

func TestParseKind(t *testing.T) {
	for in, want := range map[string]Kind{
		"task":     KindTask,
		"items":    KindTask,
		"comment":  KindComment,
		"projects": KindProject,
	} {
		got, err := ParseKind(in)
		if err != nil {
			t.Fatalf("ParseKind(%q) failed: %v", in, err)
		}
		if got != want {
			t.Errorf("ParseKind(%q) = %q, want %q", in, got, want)
		}
	}
	if _, err := ParseKind("widgets"); err == nil {
		t.Error("expected error for unknown kind")
	}
	if got := KindSection.CommandPrefix(); got != "section" {
		t.Errorf("CommandPrefix = %q, want section", got)
	}
}
