package schema

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestSnapshotEachOrder(t *testing.T) {
	snap := Snapshot{
		Tasks:    []Task{{ID: "t2"}, {ID: "t1"}},
		Projects: []Project{{ID: "p1"}},
		User:     &User{ID: "u1"},
	}

	var got []string
	err := snap.Each(func(kind Kind, pos int, e Entity) error {
		got = append(got, string(kind)+"/"+e.EntityID())
		return nil
	})
	if err != nil {
		t.Fatalf("Each failed: %v", err)
	}
	want := []string{"items/t2", "items/t1", "projects/p1", "user/u1"}
	if len(got) != len(want) {
		t.Fatalf("visited %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("visit %d = %s, want %s", i, got[i], want[i])
		}
	}
}

func TestSnapshotEachStopsAtError(t *testing.T) {
	snap := Snapshot{Tasks: []Task{{ID: "1"}, {ID: "2"}}, Projects: []Project{{ID: "p1"}}}
	stop := errors.New("stop")
	calls := 0
	err := snap.Each(func(Kind, int, Entity) error {
		calls++
		return stop
	})
	if !errors.Is(err, stop) || calls != 1 {
		t.Errorf("err = %v after %d calls, want stop after 1", err, calls)
	}
}

func TestSnapshotAppendJSON(t *testing.T) {
	var snap Snapshot
	src := Snapshot{
		Tasks:              []Task{{ID: "1", Content: "a", Priority: PriorityUrgent}},
		CollaboratorStates: []CollaboratorState{{ProjectID: "p1", UserID: "u1", State: "active"}},
		User:               &User{ID: "u1", FullName: "Ada"},
	}
	err := src.Each(func(kind Kind, _ int, e Entity) error {
		body, err := json.Marshal(e)
		if err != nil {
			return err
		}
		return snap.AppendJSON(kind, body)
	})
	if err != nil {
		t.Fatalf("round trip failed: %v", err)
	}

	if task, ok := snap.Task("1"); !ok || task.Priority != PriorityUrgent {
		t.Errorf("task = %+v, %v", task, ok)
	}
	if len(snap.CollaboratorStates) != 1 || snap.CollaboratorStates[0].EntityID() != "p1:u1" {
		t.Errorf("collaborator states = %+v", snap.CollaboratorStates)
	}
	if snap.User == nil || snap.User.FullName != "Ada" {
		t.Errorf("user = %+v", snap.User)
	}

	if err := snap.AppendJSON(Kind("locations"), []byte(`{}`)); err != nil {
		t.Errorf("unknown kind error = %v, want ignored", err)
	}
	if err := snap.AppendJSON(KindTask, []byte(`{"id":`)); err == nil {
		t.Error("malformed body accepted")
	}
}
