package command

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/google/uuid"

	"github.com/mschirtzinger/todosync/internal/api"
	"github.com/mschirtzinger/todosync/internal/cache"
	"github.com/mschirtzinger/todosync/internal/schema"
)

// Syncer submits sync requests. *api.Client implements it.
type Syncer interface {
	Sync(ctx context.Context, req api.SyncRequest) (*api.SyncResponse, error)
}

// Options configures a Mutator.
type Options struct {
	// RollbackOnFailure restores the pre-command state when a command fails.
	// Off by default: the optimistic change stays until the next bootstrap.
	RollbackOnFailure bool

	// OnOutcome is called after every intent completes, success or failure
	OnOutcome func(Outcome)

	// Logger for mutation messages (default: stderr with "[mutator] " prefix)
	Logger *log.Logger
}

// DefaultOptions returns the default mutator options.
func DefaultOptions() *Options {
	return &Options{
		Logger: log.New(os.Stderr, "[mutator] ", log.LstdFlags),
	}
}

// Mutator applies intents optimistically and reconciles them with the server.
type Mutator struct {
	store    *cache.Store
	client   Syncer
	notifier Notifier
	opts     *Options
	logger   *log.Logger
}

// New creates a mutator. notifier may be nil; opts may be nil for defaults.
func New(store *cache.Store, client Syncer, notifier Notifier, opts *Options) *Mutator {
	if opts == nil {
		opts = DefaultOptions()
	}
	if opts.Logger == nil {
		opts.Logger = DefaultOptions().Logger
	}
	if notifier == nil {
		notifier = NotifierFunc(func(Notification) {})
	}
	return &Mutator{
		store:    store,
		client:   client,
		notifier: notifier,
		opts:     opts,
		logger:   opts.Logger,
	}
}

// pending is one intent on its way to the server.
type pending struct {
	intent Intent
	cmd    schema.Command
	id     string // local id: the temp id for adds
	prior  schema.Entity
}

// Mutate runs a single intent to completion and returns its outcome. The
// request is not cancelled when ctx is.
func (m *Mutator) Mutate(ctx context.Context, in Intent) Outcome {
	outs, err := m.MutateBatch(ctx, in)
	if err != nil {
		out := Outcome{Intent: in, Err: err, Failure: FailureRejected}
		m.finish(out)
		return out
	}
	return outs[0]
}

// MutateBatch submits several independent intents in one request sharing
// one cursor. It fails with ErrBatchDependency, before touching the store,
// when an intent references the temporary id of an earlier add in the batch.
func (m *Mutator) MutateBatch(ctx context.Context, intents ...Intent) ([]Outcome, error) {
	if len(intents) == 0 {
		return nil, nil
	}

	batch, err := m.prepare(intents)
	if err != nil {
		return nil, err
	}

	ctx = context.WithoutCancel(ctx)

	// Optimistic phase: visible to every reader before the request is sent.
	for i := range batch {
		p := &batch[i]
		if e, ok := m.store.Lookup(p.intent.Kind, p.id); ok {
			p.prior = e
		}
		m.store.Hold(p.intent.Kind, p.id)
		if err := m.applyOptimistic(p); err != nil {
			m.logger.Printf("Warning: optimistic %s failed: %v", p.cmd.Type, err)
		}
	}

	cmds := make([]schema.Command, len(batch))
	for i, p := range batch {
		cmds[i] = p.cmd
	}
	seq := m.store.Sequence()
	req := api.SyncRequest{
		Cursor:        m.store.Cursor(),
		ResourceTypes: []string{schema.ResourceAll},
		Commands:      cmds,
	}

	resp, err := m.client.Sync(ctx, req)

	for _, p := range batch {
		m.store.Release(p.intent.Kind, p.id)
	}

	outs := make([]Outcome, len(batch))
	if err != nil {
		for i, p := range batch {
			outs[i] = Outcome{Intent: p.intent, Command: p.cmd, ID: m.store.Resolve(p.id), Err: err, Failure: Classify(err)}
		}
		m.logger.Printf("sync of %d command(s) failed: %v", len(batch), err)
	} else {
		m.reconcile(seq, resp, batch, outs)
	}

	for i := range outs {
		if !outs[i].OK() && m.opts.RollbackOnFailure {
			m.rollback(batch[i])
		}
	}

	if err == nil {
		if perr := m.store.Persist(ctx); perr != nil {
			m.logger.Printf("Warning: %v", perr)
		}
	}

	for _, out := range outs {
		m.finish(out)
	}
	return outs, nil
}

// prepare validates the batch and builds its commands.
func (m *Mutator) prepare(intents []Intent) ([]pending, error) {
	minted := make(map[string]bool)
	batch := make([]pending, 0, len(intents))

	for _, in := range intents {
		if err := in.Validate(); err != nil {
			return nil, fmt.Errorf("invalid %s: %w", in.Title(), err)
		}
		for _, ref := range in.references() {
			if minted[ref] {
				return nil, fmt.Errorf("%s references %s: %w", in.Title(), ref, ErrBatchDependency)
			}
		}

		// An id or reference minted by an earlier, already confirmed add
		// goes out as the server id.
		in = m.resolve(in)
		p := pending{intent: in, id: in.ID}
		if in.Action == ActionAdd {
			p.id = in.TempID
			if p.id == "" {
				p.id = uuid.NewString()
			}
			minted[p.id] = true
		}
		cmd, err := in.Command(uuid.NewString(), p.id)
		if err != nil {
			return nil, fmt.Errorf("failed to build %s command: %w", in.Title(), err)
		}
		p.cmd = cmd
		batch = append(batch, p)
	}
	return batch, nil
}

// applyOptimistic applies the local change implied by the intent.
func (m *Mutator) applyOptimistic(p *pending) error {
	kind := p.intent.Kind
	switch p.intent.Action {
	case ActionAdd:
		return m.store.ApplyPatch(kind, p.id, addDefaults(kind, p.intent.Fields))
	case ActionUpdate:
		return m.store.ApplyPatch(kind, p.id, p.intent.Fields)
	case ActionDelete, ActionArchive:
		return m.store.Remove(kind, p.id)
	case ActionClose:
		if t, ok := p.prior.(schema.Task); ok && t.Due != nil && t.Due.IsRecurring {
			// The server moves a recurring task to its next date.
			return nil
		}
		return m.store.Remove(kind, p.id)
	case ActionUncomplete:
		return m.store.ApplyPatch(kind, p.id, schema.Fields{"checked": false, "completed_at": nil})
	case ActionMove:
		return m.store.ApplyPatch(kind, p.id, moveFields(p.intent.Fields))
	}
	return fmt.Errorf("unknown action %q", p.intent.Action)
}

func addDefaults(kind schema.Kind, fields schema.Fields) schema.Fields {
	f := fields.Clone()
	if kind == schema.KindTask {
		if _, ok := f["priority"]; !ok {
			f["priority"] = schema.PriorityDefault
		}
	}
	return f
}

// moveFields clears the placement fields below the destination: moving to a
// project leaves any section and parent, moving to a section leaves the parent.
func moveFields(dest schema.Fields) schema.Fields {
	f := dest.Clone()
	if _, ok := dest["project_id"]; ok {
		f["section_id"] = nil
		f["parent_id"] = nil
	}
	if _, ok := dest["section_id"]; ok {
		f["parent_id"] = nil
	}
	return f
}

// reconcile folds a successful response into the store and fills outs.
func (m *Mutator) reconcile(seq uint64, resp *api.SyncResponse, batch []pending, outs []Outcome) {
	for i, p := range batch {
		out := Outcome{Intent: p.intent, Command: p.cmd, Cursor: resp.Cursor}
		if err := resp.CommandErr(p.cmd.UUID); err != nil {
			out.Err = err
			out.Failure = Classify(err)
		} else if p.cmd.TempID != "" {
			if realID, ok := resp.TempIDMapping[p.cmd.TempID]; ok {
				if err := m.store.RemapID(p.intent.Kind, p.cmd.TempID, realID); err != nil {
					m.logger.Printf("Warning: failed to remap %s: %v", p.cmd.TempID, err)
				}
			}
		}
		// Another batch may have remapped the temporary id this intent used.
		out.ID = m.store.Resolve(p.id)
		outs[i] = out
	}

	if resp.FullSync {
		m.store.RebaseAt(seq, resp.Snapshot)
		return
	}
	m.store.MergeAt(seq, resp.Snapshot)
}

// resolve rewrites the id and reference fields of in that name remapped
// temporary ids.
func (m *Mutator) resolve(in Intent) Intent {
	if in.ID != "" {
		in.ID = m.store.Resolve(in.ID)
	}
	var fields schema.Fields
	for _, key := range referenceFields {
		ref, ok := in.Fields[key].(string)
		if !ok || ref == "" {
			continue
		}
		if to := m.store.Resolve(ref); to != ref {
			if fields == nil {
				fields = in.Fields.Clone()
			}
			fields[key] = to
		}
	}
	if fields != nil {
		in.Fields = fields
	}
	return in
}

// rollback restores the state captured before the optimistic change.
func (m *Mutator) rollback(p pending) {
	kind := p.intent.Kind
	var err error
	if p.prior != nil {
		err = m.store.Put(kind, p.prior)
	} else {
		err = m.store.Remove(kind, m.store.Resolve(p.id))
	}
	if err != nil {
		m.logger.Printf("Warning: rollback of %s failed: %v", p.cmd.Type, err)
	}
}

func (m *Mutator) finish(out Outcome) {
	if !out.OK() {
		m.notifier.Notify(FailureNotification(out))
	}
	if m.opts.OnOutcome != nil {
		m.opts.OnOutcome(out)
	}
}
