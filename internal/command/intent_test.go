package command

import (
	"encoding/json"
	"testing"

	"github.com/mschirtzinger/todosync/internal/schema"
)

func TestIntentCommand(t *testing.T) {
	tests := []struct {
		name     string
		intent   Intent
		wantType string
		wantArgs map[string]any
	}{
		{
			name:     "update encodes priority",
			intent:   UpdateTask("1", schema.Fields{"priority": 4}),
			wantType: "item_update",
			wantArgs: map[string]any{"id": "1", "priority": 1},
		},
		{
			name:     "json number priority",
			intent:   UpdateTask("1", schema.Fields{"priority": json.Number("2")}),
			wantType: "item_update",
			wantArgs: map[string]any{"id": "1", "priority": 3},
		},
		{
			name:     "close",
			intent:   CloseTask("7"),
			wantType: "item_close",
			wantArgs: map[string]any{"id": "7"},
		},
		{
			name:     "archive project",
			intent:   ArchiveProject("p1"),
			wantType: "project_archive",
			wantArgs: map[string]any{"id": "p1"},
		},
		{
			name:     "comment add",
			intent:   AddComment("7", "hello"),
			wantType: "note_add",
			wantArgs: map[string]any{"item_id": "7", "content": "hello"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd, err := tt.intent.Command("u", "tmp")
			if err != nil {
				t.Fatalf("Command() failed: %v", err)
			}
			if cmd.Type != tt.wantType {
				t.Errorf("Type = %q, want %q", cmd.Type, tt.wantType)
			}
			if len(cmd.Args) != len(tt.wantArgs) {
				t.Errorf("Args = %v, want %v", cmd.Args, tt.wantArgs)
			}
			for k, v := range tt.wantArgs {
				if cmd.Args[k] != v {
					t.Errorf("Args[%s] = %v, want %v", k, cmd.Args[k], v)
				}
			}
		})
	}
}

func TestAddCommandCarriesTempID(t *testing.T) {
	cmd, err := AddTask(schema.Fields{"content": "x"}).Command("u", "tmp")
	if err != nil {
		t.Fatalf("Command() failed: %v", err)
	}
	if cmd.TempID != "tmp" || cmd.UUID != "u" {
		t.Errorf("cmd = %+v", cmd)
	}
	if _, ok := cmd.Args["id"]; ok {
		t.Error("add command carries an id")
	}

	update, _ := UpdateTask("1", schema.Fields{}).Command("u2", "ignored")
	if update.TempID != "" {
		t.Errorf("update TempID = %q, want empty", update.TempID)
	}
}

func TestIntentValidate(t *testing.T) {
	tests := []struct {
		name    string
		intent  Intent
		wantErr bool
	}{
		{"add without content", AddTask(schema.Fields{}), true},
		{"add with content", AddTask(schema.Fields{"content": "x"}), false},
		{"update without id", UpdateTask("", schema.Fields{"content": "x"}), true},
		{"move without destination", MoveTask("1", Destination{}), true},
		{"move to section", MoveTask("1", Destination{SectionID: "s"}), false},
		{"uncomplete label", Intent{Kind: schema.KindLabel, Action: ActionUncomplete, ID: "l"}, true},
		{"unknown kind", Intent{Kind: schema.KindUser, Action: ActionUpdate, ID: "u"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.intent.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestIntentTitle(t *testing.T) {
	tests := map[string]Intent{
		"complete task":   CloseTask("1"),
		"reopen task":     ReopenTask("1"),
		"add comment":     AddComment("1", "x"),
		"archive project": ArchiveProject("p"),
	}
	for want, in := range tests {
		if got := in.Title(); got != want {
			t.Errorf("Title() = %q, want %q", got, want)
		}
	}
}
