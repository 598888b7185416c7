package cache

import (
	"context"
	"fmt"
	"sync"

	"github.com/mschirtzinger/todosync/internal/schema"
)

// Backend persists snapshots between runs.
type Backend interface {
	SaveSnapshot(ctx context.Context, snap schema.Snapshot) error
	LoadSnapshot(ctx context.Context) (schema.Snapshot, bool, error)
}

// MergeStats summarizes one Merge call.
type MergeStats struct {
	Upserted int `json:"upserted"`
	Removed  int `json:"removed"`
	Skipped  int `json:"skipped"`
}

// Store is the sync cache. It is safe for concurrent use; every operation is
// atomic with respect to every other.
type Store struct {
	mu      sync.RWMutex
	snap    schema.Snapshot
	held    map[heldKey]int
	aliases map[string]string // temporary id -> server id
	seq     uint64            // sequence of the request that last set the cursor
	next    uint64            // last sequence handed out by Sequence
	backend Backend

	subMu  sync.Mutex
	subs   []subscriber
	nextID int
}

type heldKey struct {
	kind schema.Kind
	id   string
}

// New returns an empty store whose cursor requests full state. backend may
// be nil for a memory-only store.
func New(backend Backend) *Store {
	return &Store{
		snap:    schema.NewSnapshot(),
		held:    make(map[heldKey]int),
		aliases: make(map[string]string),
		backend: backend,
	}
}

// Read returns a deep copy of the current snapshot.
func (s *Store) Read() schema.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap.Clone()
}

// Cursor returns the current sync cursor.
func (s *Store) Cursor() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap.Cursor
}

// Lookup returns a copy of one entity.
func (s *Store) Lookup(kind schema.Kind, id string) (schema.Entity, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, err := collectionFor(&s.snap, kind)
	if err != nil {
		return nil, false
	}
	return c.lookup(s.resolveLocked(id))
}

// ApplyPatch merges fields into the entity, or creates a placeholder holding
// the id plus fields when the entity does not exist yet. Fields not named in
// the patch are left unchanged, so applying the same patch twice is a no-op.
func (s *Store) ApplyPatch(kind schema.Kind, id string, fields schema.Fields) error {
	s.mu.Lock()
	id = s.resolveLocked(id)
	c, err := collectionFor(&s.snap, kind)
	if err == nil {
		err = c.patch(id, placeholderFields(kind, id, fields))
	}
	s.mu.Unlock()
	if err != nil {
		return fmt.Errorf("failed to patch %s %s: %w", kind, id, err)
	}
	s.emit(Event{Kind: kind, ID: id, Op: OpPatch})
	return nil
}

// Remove deletes an entity. Removing a missing entity is not an error.
func (s *Store) Remove(kind schema.Kind, id string) error {
	s.mu.Lock()
	id = s.resolveLocked(id)
	c, err := collectionFor(&s.snap, kind)
	removed := err == nil && c.remove(id)
	s.mu.Unlock()
	if err != nil {
		return err
	}
	if removed {
		s.emit(Event{Kind: kind, ID: id, Op: OpRemove})
	}
	return nil
}

// Put inserts or replaces a whole entity. It restores entities captured with
// Lookup.
func (s *Store) Put(kind schema.Kind, e schema.Entity) error {
	s.mu.Lock()
	c, err := collectionFor(&s.snap, kind)
	if err == nil {
		err = c.put(cloneEntity(e))
	}
	s.mu.Unlock()
	if err != nil {
		return fmt.Errorf("failed to put %s: %w", kind, err)
	}
	s.emit(Event{Kind: kind, ID: e.EntityID(), Op: OpPatch})
	return nil
}

// Replace swaps the whole snapshot, discarding every optimistic patch.
func (s *Store) Replace(snap schema.Snapshot) {
	snap = snap.Clone()
	if snap.Cursor == "" {
		snap.Cursor = schema.WildcardCursor
	}
	s.mu.Lock()
	s.snap = snap
	s.seq = s.next
	s.mu.Unlock()
	s.emit(Event{Op: OpReplace, Cursor: snap.Cursor})
}

// Rebase swaps in a complete server state like Replace, but keeps the local
// version of every held entity: an entity with an unconfirmed optimistic
// patch keeps it, and one removed optimistically stays removed.
func (s *Store) Rebase(snap schema.Snapshot) {
	next := s.prepareRebase(snap)
	s.mu.Lock()
	s.rebaseLocked(next)
	s.seq = s.next
	s.mu.Unlock()
	s.emit(Event{Op: OpReplace, Cursor: next.Cursor})
}

// RebaseAt rebases onto a full_sync response to the request with sequence
// seq. A response older than the one that last set the cursor is dropped,
// so neither the entities nor the cursor go backwards. It reports whether
// snap was applied.
func (s *Store) RebaseAt(seq uint64, snap schema.Snapshot) bool {
	next := s.prepareRebase(snap)
	s.mu.Lock()
	if seq < s.seq {
		s.mu.Unlock()
		return false
	}
	s.rebaseLocked(next)
	s.seq = seq
	s.mu.Unlock()
	s.emit(Event{Op: OpReplace, Cursor: next.Cursor})
	return true
}

func (s *Store) prepareRebase(snap schema.Snapshot) schema.Snapshot {
	next := snap.Clone()
	if next.Cursor == "" {
		next.Cursor = schema.WildcardCursor
	}
	return next
}

// rebaseLocked must be called with s.mu held.
func (s *Store) rebaseLocked(next schema.Snapshot) {
	for k, n := range s.held {
		if n <= 0 {
			continue
		}
		dst, err := collectionFor(&next, k.kind)
		if err != nil {
			continue
		}
		src, _ := collectionFor(&s.snap, k.kind)
		if e, ok := src.lookup(k.id); ok {
			_ = dst.put(e)
		} else {
			dst.remove(k.id)
		}
	}
	s.snap = next
}

// Sequence reserves a sequence number for a request about to be sent. Pass
// it to MergeAt, RebaseAt or AdvanceCursorAt once the response arrives.
func (s *Store) Sequence() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.next++
	return s.next
}

// AdvanceCursor sets the cursor unconditionally.
func (s *Store) AdvanceCursor(cursor string) {
	s.mu.Lock()
	s.snap.Cursor = cursor
	s.seq = s.next
	s.mu.Unlock()
	s.emit(Event{Op: OpCursor, Cursor: cursor})
}

// AdvanceCursorAt sets the cursor returned by the request with sequence seq.
// A response that arrives after a later request already advanced the cursor
// is ignored, so the cursor never moves backwards. It reports whether the
// cursor was updated.
func (s *Store) AdvanceCursorAt(seq uint64, cursor string) bool {
	s.mu.Lock()
	if seq < s.seq || cursor == "" {
		s.mu.Unlock()
		return false
	}
	s.snap.Cursor = cursor
	s.seq = seq
	s.mu.Unlock()
	s.emit(Event{Op: OpCursor, Cursor: cursor})
	return true
}

// RemapID renames an entity from its temporary id to the server-issued id
// and rewrites every reference to the temporary id. Pending holds move with
// the entity, and the temporary id stays an alias: Hold, Release and Resolve
// given the temporary id act on the server id from now on.
func (s *Store) RemapID(kind schema.Kind, tempID, realID string) error {
	if tempID == realID {
		return nil
	}
	s.mu.Lock()
	c, err := collectionFor(&s.snap, kind)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	renamed := c.rename(tempID, realID)
	refs := rewriteRefs(&s.snap, tempID, realID)
	s.aliases[tempID] = realID
	if n, ok := s.held[heldKey{kind, tempID}]; ok {
		delete(s.held, heldKey{kind, tempID})
		s.held[heldKey{kind, realID}] += n
	}
	s.mu.Unlock()

	if renamed || refs > 0 {
		s.emit(Event{Kind: kind, ID: realID, PrevID: tempID, Op: OpRemap})
	}
	return nil
}

// Resolve returns the server id of a remapped temporary id, or id itself.
func (s *Store) Resolve(id string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.resolveLocked(id)
}

// resolveLocked must be called with s.mu held.
func (s *Store) resolveLocked(id string) string {
	if to, ok := s.aliases[id]; ok {
		return to
	}
	return id
}

// Hold marks an entity as carrying an optimistic patch that the server has
// not confirmed yet. Holds are counted; each Hold needs one Release.
func (s *Store) Hold(kind schema.Kind, id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.held[heldKey{kind, s.resolveLocked(id)}]++
}

// Release drops one hold on an entity. A hold taken under a temporary id is
// released under either id after RemapID.
func (s *Store) Release(kind schema.Kind, id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := heldKey{kind, s.resolveLocked(id)}
	if s.held[k] <= 1 {
		delete(s.held, k)
		return
	}
	s.held[k]--
}

// Held reports whether an entity has an unconfirmed optimistic patch.
func (s *Store) Held(kind schema.Kind, id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.held[heldKey{kind, s.resolveLocked(id)}] > 0
}

// Merge folds authoritative entities from an incremental response into the
// snapshot. Entities flagged deleted (or archived, or completed tasks) are
// removed; held entities are skipped so in-flight optimistic patches
// survive. The cursor of delta is ignored; use MergeAt for responses to
// sequenced requests.
func (s *Store) Merge(delta schema.Snapshot) MergeStats {
	s.mu.Lock()
	stats, events := s.mergeLocked(delta)
	s.mu.Unlock()

	for _, e := range events {
		s.emit(e)
	}
	return stats
}

// MergeAt merges the response to the request with sequence seq and moves
// the cursor to delta's cursor. A response older than the one that last set
// the cursor is dropped whole, since the newer response already carried its
// changes. It reports whether delta was applied.
func (s *Store) MergeAt(seq uint64, delta schema.Snapshot) (MergeStats, bool) {
	s.mu.Lock()
	if seq < s.seq {
		s.mu.Unlock()
		return MergeStats{}, false
	}
	stats, events := s.mergeLocked(delta)
	if delta.Cursor != "" {
		s.snap.Cursor = delta.Cursor
		s.seq = seq
		events = append(events, Event{Op: OpCursor, Cursor: delta.Cursor})
	}
	s.mu.Unlock()

	for _, e := range events {
		s.emit(e)
	}
	return stats, true
}

// mergeLocked must be called with s.mu held.
func (s *Store) mergeLocked(delta schema.Snapshot) (MergeStats, []Event) {
	var stats MergeStats
	var events []Event

	mergeKind(s, schema.KindTask, &s.snap.Tasks, delta.Tasks, &stats, &events)
	mergeKind(s, schema.KindProject, &s.snap.Projects, delta.Projects, &stats, &events)
	mergeKind(s, schema.KindSection, &s.snap.Sections, delta.Sections, &stats, &events)
	mergeKind(s, schema.KindLabel, &s.snap.Labels, delta.Labels, &stats, &events)
	mergeKind(s, schema.KindFilter, &s.snap.Filters, delta.Filters, &stats, &events)
	mergeKind(s, schema.KindComment, &s.snap.Comments, delta.Comments, &stats, &events)
	mergeKind(s, schema.KindCollaborator, &s.snap.Collaborators, delta.Collaborators, &stats, &events)
	mergeKind(s, schema.KindCollaboratorState, &s.snap.CollaboratorStates, delta.CollaboratorStates, &stats, &events)
	mergeKind(s, schema.KindReminder, &s.snap.Reminders, delta.Reminders, &stats, &events)
	if delta.User != nil {
		u := *delta.User
		s.snap.User = &u
		stats.Upserted++
		events = append(events, Event{Kind: schema.KindUser, ID: u.ID, Op: OpPatch})
	}
	return stats, events
}

// mergeKind must be called with s.mu held.
func mergeKind[T schema.Entity](s *Store, kind schema.Kind, dst *[]T, src []T, stats *MergeStats, events *[]Event) {
	c := slot[T]{dst}
	for _, e := range src {
		id := e.EntityID()
		if s.held[heldKey{kind, id}] > 0 {
			stats.Skipped++
			continue
		}
		if gone(e) {
			if c.remove(id) {
				stats.Removed++
				*events = append(*events, Event{Kind: kind, ID: id, Op: OpRemove})
			}
			continue
		}
		_ = c.put(cloneEntity(e))
		stats.Upserted++
		*events = append(*events, Event{Kind: kind, ID: id, Op: OpPatch})
	}
}

// Subscribe registers fn for every subsequent change and returns a function
// that unregisters it. fn runs synchronously on the goroutine that made the
// change, after the store lock is released.
func (s *Store) Subscribe(fn func(Event)) (cancel func()) {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	s.nextID++
	id := s.nextID
	s.subs = append(s.subs, subscriber{id: id, fn: fn})
	return func() {
		s.subMu.Lock()
		defer s.subMu.Unlock()
		for i, sub := range s.subs {
			if sub.id == id {
				s.subs = append(s.subs[:i:i], s.subs[i+1:]...)
				return
			}
		}
	}
}

func (s *Store) emit(e Event) {
	s.subMu.Lock()
	subs := make([]subscriber, len(s.subs))
	copy(subs, s.subs)
	s.subMu.Unlock()
	for _, sub := range subs {
		sub.fn(e)
	}
}

// Persist writes the current snapshot to the backend.
func (s *Store) Persist(ctx context.Context) error {
	if s.backend == nil {
		return nil
	}
	if err := s.backend.SaveSnapshot(ctx, s.Read()); err != nil {
		return fmt.Errorf("failed to persist snapshot: %w", err)
	}
	return nil
}

// Load rebases the store onto the persisted snapshot, if any. Held entities
// keep their local version. It reports whether a persisted snapshot was found.
func (s *Store) Load(ctx context.Context) (bool, error) {
	if s.backend == nil {
		return false, nil
	}
	snap, ok, err := s.backend.LoadSnapshot(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to load snapshot: %w", err)
	}
	if !ok {
		return false, nil
	}
	s.Rebase(snap)
	return true, nil
}
