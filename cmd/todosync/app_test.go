package main

import (
	"testing"

	"github.com/mschirtzinger/todosync/internal/command"
	"github.com/mschirtzinger/todosync/internal/schema"
)

func TestResolveProject(t *testing.T) {
	snap := schema.NewSnapshot()
	snap.Projects = []schema.Project{
		{ID: "p1", Name: "Inbox", InboxProject: true},
		{ID: "p2", Name: "Work"},
		{ID: "p3", Name: "Home"},
		{ID: "p4", Name: "home"},
	}

	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "p2", want: "p2"},
		{in: "work", want: "p2"},
		{in: "#Work", want: "p2"},
		{in: "Inbox", want: "p1"},
		{in: "home", wantErr: true},
		{in: "Garden", wantErr: true},
	}
	for _, tt := range tests {
		got, err := resolveProject(snap, tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("resolveProject(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("resolveProject(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestParsePriority(t *testing.T) {
	tests := []struct {
		in   int
		want int
	}{
		{1, schema.PriorityUrgent},
		{2, schema.PriorityHigh},
		{3, schema.PriorityMedium},
		{4, schema.PriorityLow},
	}
	for _, tt := range tests {
		got, err := parsePriority(tt.in)
		if err != nil {
			t.Fatalf("parsePriority(%d) error: %v", tt.in, err)
		}
		if got != tt.want {
			t.Errorf("parsePriority(%d) = %d, want %d", tt.in, got, tt.want)
		}
	}
	for _, bad := range []int{0, 5, -1} {
		if _, err := parsePriority(bad); err == nil {
			t.Errorf("parsePriority(%d) succeeded, want error", bad)
		}
	}
}

func TestEachID(t *testing.T) {
	intents := eachID([]string{"1", "2"}, command.CloseTask)
	if len(intents) != 2 {
		t.Fatalf("len = %d, want 2", len(intents))
	}
	for i, in := range intents {
		if in.Action != command.ActionClose || in.ID != []string{"1", "2"}[i] {
			t.Errorf("intent %d = %+v", i, in)
		}
	}
	if got := pastTense(intents[0]); got != "Completed" {
		t.Errorf("pastTense = %q, want Completed", got)
	}
}

func TestCommandsRegistered(t *testing.T) {
	want := []string{"sync", "refresh", "status", "list", "view", "add", "update", "close",
		"reopen", "delete", "move", "comment", "quick", "show", "export", "import",
		"daemon", "dashboard", "config"}
	for _, name := range want {
		cmd, _, err := rootCmd.Find([]string{name})
		if err != nil || cmd.Name() != name {
			t.Errorf("command %q not registered", name)
		}
	}
}
