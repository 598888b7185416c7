package command

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/mschirtzinger/todosync/internal/api"
	"github.com/mschirtzinger/todosync/internal/cache"
	"github.com/mschirtzinger/todosync/internal/schema"
)

// fakeSyncer records requests and answers them with respond.
type fakeSyncer struct {
	mu       sync.Mutex
	requests []api.SyncRequest
	ctxErrs  []error
	respond  func(req api.SyncRequest) (*api.SyncResponse, error)
}

func (f *fakeSyncer) Sync(ctx context.Context, req api.SyncRequest) (*api.SyncResponse, error) {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	f.ctxErrs = append(f.ctxErrs, ctx.Err())
	f.mu.Unlock()
	if f.respond == nil {
		return &api.SyncResponse{Snapshot: schema.Snapshot{Cursor: "next"}}, nil
	}
	return f.respond(req)
}

// recorder collects notifications.
type recorder struct {
	mu    sync.Mutex
	notes []Notification
}

func (r *recorder) Notify(n Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notes = append(r.notes, n)
}

func seededStore(t *testing.T) *cache.Store {
	t.Helper()
	s := cache.New(nil)
	s.Replace(schema.Snapshot{
		Cursor: "c1",
		Tasks: []schema.Task{
			{ID: "1", Content: "Buy milk", Priority: schema.PriorityLow, ProjectID: "p1", SectionID: schema.StringPtr("s1")},
			{ID: "2", Content: "Water plants", Priority: schema.PriorityLow, ProjectID: "p1",
				Due: &schema.Due{Date: "2024-01-10", IsRecurring: true, String: "every day"}},
		},
		Projects: []schema.Project{{ID: "p1", Name: "Inbox"}, {ID: "p2", Name: "Work"}},
	})
	return s
}

func quietOptions() *Options {
	return &Options{Logger: log.New(io.Discard, "", 0)}
}

func mustTask(t *testing.T, s *cache.Store, id string) schema.Task {
	t.Helper()
	task, ok := s.Read().Task(id)
	if !ok {
		t.Fatalf("task %s not in store", id)
	}
	return task
}

func TestOptimisticPatchVisibleBeforeResponse(t *testing.T) {
	store := seededStore(t)
	entered := make(chan struct{})
	release := make(chan struct{})

	syncer := &fakeSyncer{respond: func(req api.SyncRequest) (*api.SyncResponse, error) {
		close(entered)
		<-release
		return &api.SyncResponse{Snapshot: schema.Snapshot{
			Cursor: "c2",
			Tasks:  []schema.Task{{ID: "1", Content: "Buy milk", Priority: schema.PriorityUrgent, ProjectID: "p1"}},
		}}, nil
	}}
	m := New(store, syncer, nil, quietOptions())

	done := make(chan Outcome)
	go func() {
		done <- m.Mutate(context.Background(), UpdateTask("1", schema.Fields{"priority": schema.PriorityUrgent}))
	}()

	<-entered
	if got := mustTask(t, store, "1").Priority; got != schema.PriorityUrgent {
		t.Errorf("priority while request in flight = %d, want %d", got, schema.PriorityUrgent)
	}
	if store.Cursor() != "c1" {
		t.Errorf("cursor advanced before response: %q", store.Cursor())
	}
	close(release)

	out := <-done
	if !out.OK() {
		t.Fatalf("outcome failed: %v", out.Err)
	}
	if store.Cursor() != "c2" {
		t.Errorf("Cursor = %q, want c2", store.Cursor())
	}

	req := syncer.requests[0]
	if req.Cursor != "c1" {
		t.Errorf("request cursor = %q, want c1", req.Cursor)
	}
	if got := req.Commands[0].Args["priority"]; got != schema.PriorityLow {
		t.Errorf("wire priority = %v, want %d", got, schema.PriorityLow)
	}
}

func TestOptimisticPatchSurvivesConcurrentMerge(t *testing.T) {
	store := seededStore(t)
	entered := make(chan struct{})
	release := make(chan struct{})
	syncer := &fakeSyncer{respond: func(req api.SyncRequest) (*api.SyncResponse, error) {
		close(entered)
		<-release
		return &api.SyncResponse{Snapshot: schema.Snapshot{Cursor: "c3"}}, nil
	}}
	m := New(store, syncer, nil, quietOptions())

	done := make(chan Outcome)
	go func() {
		done <- m.Mutate(context.Background(), UpdateTask("1", schema.Fields{"content": "Buy oat milk"}))
	}()
	<-entered

	// A refresh delivering the old server state must not revert the change.
	store.Merge(schema.Snapshot{Tasks: []schema.Task{{ID: "1", Content: "Buy milk", ProjectID: "p1"}}})
	if got := mustTask(t, store, "1").Content; got != "Buy oat milk" {
		t.Errorf("Content = %q, want optimistic value", got)
	}

	close(release)
	<-done
	if store.Held(schema.KindTask, "1") {
		t.Error("task still held after the command completed")
	}
}

func TestAddRemapsTemporaryID(t *testing.T) {
	store := seededStore(t)
	var tempID string
	syncer := &fakeSyncer{respond: func(req api.SyncRequest) (*api.SyncResponse, error) {
		tempID = req.Commands[0].TempID
		if _, ok := store.Read().Task(tempID); !ok {
			t.Errorf("placeholder missing under temporary id %q", tempID)
		}
		return &api.SyncResponse{
			Snapshot: schema.Snapshot{
				Cursor: "c2",
				Tasks:  []schema.Task{{ID: "999", Content: "Call mom", ProjectID: "p1", Priority: schema.PriorityHigh}},
			},
			SyncStatus:    map[string]api.CommandStatus{req.Commands[0].UUID: {OK: true}},
			TempIDMapping: map[string]string{tempID: "999"},
		}, nil
	}}
	m := New(store, syncer, nil, quietOptions())

	out := m.Mutate(context.Background(), AddTask(schema.Fields{"content": "Call mom", "project_id": "p1", "priority": 3}))
	if !out.OK() {
		t.Fatalf("outcome failed: %v", out.Err)
	}
	if out.ID != "999" {
		t.Errorf("outcome ID = %q, want 999", out.ID)
	}

	snap := store.Read()
	if _, ok := snap.Task(tempID); ok {
		t.Error("task still present under temporary id")
	}
	count := 0
	for _, task := range snap.Tasks {
		if task.Content == "Call mom" {
			count++
		}
	}
	if count != 1 {
		t.Errorf("found %d copies of the new task, want 1", count)
	}
	if task := mustTask(t, store, "999"); task.Priority != schema.PriorityHigh {
		t.Errorf("Priority = %d, want %d", task.Priority, schema.PriorityHigh)
	}
}

func TestUpdateByTemporaryIDWhileAddInFlight(t *testing.T) {
	store := seededStore(t)
	addSent := make(chan struct{})
	updateSent := make(chan struct{})
	releaseAdd := make(chan struct{})
	releaseUpdate := make(chan struct{})

	syncer := &fakeSyncer{respond: func(req api.SyncRequest) (*api.SyncResponse, error) {
		cmd := req.Commands[0]
		status := map[string]api.CommandStatus{cmd.UUID: {OK: true}}
		if cmd.TempID != "" {
			close(addSent)
			<-releaseAdd
			return &api.SyncResponse{
				Snapshot: schema.Snapshot{
					Cursor: "c2",
					Tasks:  []schema.Task{{ID: "999", Content: "x", ProjectID: "p1"}},
				},
				SyncStatus:    status,
				TempIDMapping: map[string]string{cmd.TempID: "999"},
			}, nil
		}
		close(updateSent)
		<-releaseUpdate
		return &api.SyncResponse{
			Snapshot: schema.Snapshot{
				Cursor: "c3",
				Tasks:  []schema.Task{{ID: "999", Content: "y", ProjectID: "p1"}},
			},
			SyncStatus: status,
		}, nil
	}}
	m := New(store, syncer, nil, quietOptions())

	add := AddTask(schema.Fields{"content": "x", "project_id": "p1"})
	add.TempID = "tmp-1"
	addDone := make(chan Outcome)
	go func() { addDone <- m.Mutate(context.Background(), add) }()
	<-addSent

	updateDone := make(chan Outcome)
	go func() { updateDone <- m.Mutate(context.Background(), UpdateTask("tmp-1", schema.Fields{"content": "y"})) }()
	<-updateSent

	close(releaseAdd)
	if out := <-addDone; out.ID != "999" {
		t.Errorf("add outcome ID = %q, want 999", out.ID)
	}
	if !store.Held(schema.KindTask, "999") {
		t.Error("task not held while the update is in flight")
	}

	close(releaseUpdate)
	out := <-updateDone
	if !out.OK() {
		t.Fatalf("update failed: %v", out.Err)
	}
	if out.ID != "999" {
		t.Errorf("update outcome ID = %q, want 999", out.ID)
	}
	if store.Held(schema.KindTask, "999") {
		t.Error("task still held after both commands completed")
	}
	if got := mustTask(t, store, "999").Content; got != "y" {
		t.Errorf("Content = %q, want y", got)
	}

	// Later server edits reach the task again.
	stats := store.Merge(schema.Snapshot{Tasks: []schema.Task{{ID: "999", Content: "z", ProjectID: "p1"}}})
	if stats.Upserted != 1 || stats.Skipped != 0 {
		t.Errorf("Merge stats = %+v, want one upsert", stats)
	}
	if got := mustTask(t, store, "999").Content; got != "z" {
		t.Errorf("Content after merge = %q, want z", got)
	}
}

func TestUpdateAfterRemapUsesServerID(t *testing.T) {
	store := seededStore(t)
	syncer := &fakeSyncer{respond: func(req api.SyncRequest) (*api.SyncResponse, error) {
		cmd := req.Commands[0]
		resp := &api.SyncResponse{
			Snapshot:   schema.Snapshot{Cursor: "c2"},
			SyncStatus: map[string]api.CommandStatus{cmd.UUID: {OK: true}},
		}
		if cmd.TempID == "tmp-1" {
			resp.TempIDMapping = map[string]string{cmd.TempID: "999"}
		}
		return resp, nil
	}}
	m := New(store, syncer, nil, quietOptions())

	add := AddTask(schema.Fields{"content": "x", "project_id": "p1"})
	add.TempID = "tmp-1"
	m.Mutate(context.Background(), add)

	out := m.Mutate(context.Background(), AddTask(schema.Fields{"content": "child", "parent_id": "tmp-1"}))
	if !out.OK() {
		t.Fatalf("outcome failed: %v", out.Err)
	}
	if got := syncer.requests[1].Commands[0].Args["parent_id"]; got != "999" {
		t.Errorf("parent_id on the wire = %v, want 999", got)
	}

	m.Mutate(context.Background(), UpdateTask("tmp-1", schema.Fields{"content": "y"}))
	if got := syncer.requests[2].Commands[0].Args["id"]; got != "999" {
		t.Errorf("update id on the wire = %v, want 999", got)
	}
}

func TestFailureNotifiesWithoutRollback(t *testing.T) {
	store := seededStore(t)
	notes := &recorder{}
	syncer := &fakeSyncer{respond: func(api.SyncRequest) (*api.SyncResponse, error) {
		return nil, &api.TransportError{Op: "sync", Err: errors.New("connection reset")}
	}}
	m := New(store, syncer, notes, quietOptions())

	out := m.Mutate(context.Background(), UpdateTask("1", schema.Fields{"priority": 4}))
	if out.OK() || out.Failure != FailureTransport {
		t.Fatalf("outcome = %+v, want transport failure", out)
	}

	if got := mustTask(t, store, "1").Priority; got != 4 {
		t.Errorf("Priority = %d, want optimistic 4 kept", got)
	}
	if store.Cursor() != "c1" {
		t.Errorf("Cursor = %q, want unchanged c1", store.Cursor())
	}
	if len(notes.notes) != 1 || notes.notes[0].Title != "Unable to update task" {
		t.Errorf("notifications = %+v", notes.notes)
	}
}

func TestRollbackOnFailure(t *testing.T) {
	store := seededStore(t)
	syncer := &fakeSyncer{respond: func(api.SyncRequest) (*api.SyncResponse, error) {
		return nil, &api.TransportError{Op: "sync", Err: errors.New("timeout")}
	}}
	opts := quietOptions()
	opts.RollbackOnFailure = true
	m := New(store, syncer, nil, opts)

	m.Mutate(context.Background(), UpdateTask("1", schema.Fields{"priority": 4}))
	if got := mustTask(t, store, "1").Priority; got != schema.PriorityLow {
		t.Errorf("Priority = %d, want restored %d", got, schema.PriorityLow)
	}

	m.Mutate(context.Background(), AddTask(schema.Fields{"content": "ghost"}))
	if n := len(store.Read().Tasks); n != 2 {
		t.Errorf("len(Tasks) = %d, want failed add removed", n)
	}

	m.Mutate(context.Background(), DeleteTask("1"))
	if _, ok := store.Read().Task("1"); !ok {
		t.Error("failed delete not restored")
	}
}

func TestUnauthorizedHasDistinctCopy(t *testing.T) {
	store := seededStore(t)
	notes := &recorder{}
	syncer := &fakeSyncer{respond: func(api.SyncRequest) (*api.SyncResponse, error) {
		return nil, fmt.Errorf("sync: %w", api.ErrUnauthorized)
	}}
	m := New(store, syncer, notes, quietOptions())

	out := m.Mutate(context.Background(), CloseTask("1"))
	if out.Failure != FailureUnauthorized {
		t.Errorf("Failure = %q, want unauthorized", out.Failure)
	}

	transport := FailureNotification(Outcome{Intent: CloseTask("1"), Err: errors.New("x"), Failure: FailureTransport})
	got := notes.notes[0]
	if got.Title == transport.Title || got.Message == transport.Message {
		t.Errorf("unauthorized notification %+v is not distinct from %+v", got, transport)
	}
}

func TestRateLimitedNotification(t *testing.T) {
	n := FailureNotification(Outcome{
		Intent:  UpdateTask("1", nil),
		Err:     &api.RateLimitError{RetryAfter: 30 * time.Second},
		Failure: FailureRateLimited,
	})
	if n.Title != "Unable to update task" || n.Message != "Too many requests; try again in 30s." {
		t.Errorf("notification = %+v", n)
	}
}

func TestCommandRejected(t *testing.T) {
	store := seededStore(t)
	notes := &recorder{}
	syncer := &fakeSyncer{respond: func(req api.SyncRequest) (*api.SyncResponse, error) {
		return &api.SyncResponse{
			Snapshot: schema.Snapshot{Cursor: "c2"},
			SyncStatus: map[string]api.CommandStatus{
				req.Commands[0].UUID: {Error: "Invalid argument value", ErrorCode: 20},
			},
		}, nil
	}}
	m := New(store, syncer, notes, quietOptions())

	out := m.Mutate(context.Background(), UpdateTask("1", schema.Fields{"content": ""}))
	if out.Failure != FailureRejected {
		t.Errorf("Failure = %q, want rejected", out.Failure)
	}
	if store.Cursor() != "c2" {
		t.Errorf("Cursor = %q, want c2: the request itself succeeded", store.Cursor())
	}
	if len(notes.notes) != 1 {
		t.Errorf("notifications = %d, want 1", len(notes.notes))
	}
}

func TestBatchDependencyRejected(t *testing.T) {
	store := seededStore(t)
	syncer := &fakeSyncer{}
	m := New(store, syncer, nil, quietOptions())

	add := AddTask(schema.Fields{"content": "Parent"})
	add.TempID = "tmp-parent"
	child := AddTask(schema.Fields{"content": "Child", "parent_id": "tmp-parent"})

	_, err := m.MutateBatch(context.Background(), add, child)
	if !errors.Is(err, ErrBatchDependency) {
		t.Fatalf("err = %v, want ErrBatchDependency", err)
	}
	if len(syncer.requests) != 0 {
		t.Error("request sent for a rejected batch")
	}
	if len(store.Read().Tasks) != 2 {
		t.Error("store changed by a rejected batch")
	}
}

func TestBatchSharesOneRequest(t *testing.T) {
	store := seededStore(t)
	syncer := &fakeSyncer{}
	m := New(store, syncer, nil, quietOptions())

	outs, err := m.MutateBatch(context.Background(),
		UpdateTask("1", schema.Fields{"content": "a"}),
		AddTask(schema.Fields{"content": "b"}),
	)
	if err != nil {
		t.Fatalf("MutateBatch failed: %v", err)
	}
	if len(syncer.requests) != 1 || len(syncer.requests[0].Commands) != 2 {
		t.Fatalf("requests = %+v, want one request with two commands", syncer.requests)
	}
	if len(outs) != 2 || !outs[0].OK() || !outs[1].OK() {
		t.Errorf("outcomes = %+v", outs)
	}
	if syncer.requests[0].ResourceTypes[0] != schema.ResourceAll {
		t.Errorf("ResourceTypes = %v", syncer.requests[0].ResourceTypes)
	}
}

func TestCloseTask(t *testing.T) {
	store := seededStore(t)
	release := make(chan struct{})
	syncer := &fakeSyncer{respond: func(api.SyncRequest) (*api.SyncResponse, error) {
		<-release
		return &api.SyncResponse{Snapshot: schema.Snapshot{Cursor: "c2"}}, nil
	}}
	m := New(store, syncer, nil, quietOptions())

	done := make(chan struct{})
	go func() {
		m.MutateBatch(context.Background(), CloseTask("1"), CloseTask("2"))
		close(done)
	}()

	waitFor(t, func() bool {
		_, ok := store.Read().Task("1")
		return !ok
	})
	if _, ok := store.Read().Task("2"); !ok {
		t.Error("recurring task removed on close")
	}
	close(release)
	<-done
}

func TestReopenTask(t *testing.T) {
	store := seededStore(t)
	_ = store.ApplyPatch(schema.KindTask, "1", schema.Fields{"checked": true})
	m := New(store, &fakeSyncer{}, nil, quietOptions())

	m.Mutate(context.Background(), ReopenTask("1"))
	if mustTask(t, store, "1").Checked {
		t.Error("task still checked")
	}
}

func TestMoveClearsLowerPlacement(t *testing.T) {
	store := seededStore(t)
	m := New(store, &fakeSyncer{}, nil, quietOptions())

	out := m.Mutate(context.Background(), MoveTask("1", Destination{ProjectID: "p2"}))
	if !out.OK() {
		t.Fatalf("outcome failed: %v", out.Err)
	}
	task := mustTask(t, store, "1")
	if task.ProjectID != "p2" || task.SectionID != nil {
		t.Errorf("task = project %q section %v, want p2 and no section", task.ProjectID, task.SectionID)
	}
	if out.Command.Args["project_id"] != "p2" || out.Command.Type != schema.CommandItemMove {
		t.Errorf("command = %+v", out.Command)
	}
}

func TestMutateIgnoresCallerCancellation(t *testing.T) {
	store := seededStore(t)
	syncer := &fakeSyncer{}
	m := New(store, syncer, nil, quietOptions())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	out := m.Mutate(ctx, UpdateTask("1", schema.Fields{"content": "x"}))
	if !out.OK() {
		t.Fatalf("outcome failed: %v", out.Err)
	}
	if syncer.ctxErrs[0] != nil {
		t.Errorf("request context error = %v, want detached context", syncer.ctxErrs[0])
	}
}

func TestOnOutcome(t *testing.T) {
	store := seededStore(t)
	var got []Outcome
	opts := quietOptions()
	opts.OnOutcome = func(o Outcome) { got = append(got, o) }
	m := New(store, &fakeSyncer{}, nil, opts)

	m.Mutate(context.Background(), UpdateTask("1", schema.Fields{"content": "x"}))
	m.Mutate(context.Background(), UpdateTask("", nil))

	if len(got) != 2 || !got[0].OK() || got[1].OK() {
		t.Errorf("outcomes = %+v", got)
	}
}

func TestMutateWithHTTPClient(t *testing.T) {
	store := seededStore(t)
	entered := make(chan struct{})
	release := make(chan struct{})

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req api.SyncRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		close(entered)
		<-release
		// Wire priority 1 is the most urgent.
		fmt.Fprintf(w, `{"sync_token": "c2", "sync_status": {%q: "ok"},
			"items": [{"id": "1", "content": "Buy milk", "project_id": "p1", "priority": 1}]}`, req.Commands[0].UUID)
	}))
	defer srv.Close()

	client, err := api.New(&api.Config{Token: "t", SyncURL: srv.URL, Logger: log.New(io.Discard, "", 0)})
	if err != nil {
		t.Fatalf("api.New failed: %v", err)
	}
	m := New(store, client, nil, quietOptions())

	done := make(chan Outcome)
	go func() {
		done <- m.Mutate(context.Background(), UpdateTask("1", schema.Fields{"priority": 4}))
	}()

	<-entered
	if got := mustTask(t, store, "1").Priority; got != 4 {
		t.Errorf("priority before response = %d, want 4", got)
	}
	close(release)

	if out := <-done; !out.OK() {
		t.Fatalf("outcome failed: %v", out.Err)
	}
	if got := mustTask(t, store, "1").Priority; got != 4 {
		t.Errorf("priority after reconcile = %d, want 4", got)
	}
	if store.Cursor() != "c2" {
		t.Errorf("Cursor = %q, want c2", store.Cursor())
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met within 2s")
		}
		time.Sleep(5 * time.Millisecond)
	}
}
