package view

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// ViewID identifies a named view. Its persisted key is namespaced ("view:<id>")
// so view state never collides with other keys in the same store.
type ViewID string

// Built-in views.
const (
	Today    ViewID = "today"
	Inbox    ViewID = "inbox"
	Upcoming ViewID = "upcoming"
	Search   ViewID = "search"
)

const keyPrefix = "view:"

// ProjectView is the view of a single project.
func ProjectView(projectID string) ViewID { return ViewID("project:" + projectID) }

// LabelView is the view of tasks carrying a label.
func LabelView(name string) ViewID { return ViewID("label:" + name) }

// FilterView is the view of a saved filter.
func FilterView(filterID string) ViewID { return ViewID("filter:" + filterID) }

// ParseViewID validates a view name from user input.
func ParseViewID(s string) (ViewID, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", fmt.Errorf("view name is required")
	}
	s = strings.TrimPrefix(s, keyPrefix)
	if s == "" {
		return "", fmt.Errorf("view name is required")
	}
	return ViewID(s), nil
}

// Key returns the namespaced persistence key.
func (id ViewID) Key() string { return keyPrefix + string(id) }

// ProjectID returns the project id for project views.
func (id ViewID) ProjectID() (string, bool) {
	return strings.CutPrefix(string(id), "project:")
}

// State is the persisted sort/group/order preference of one view.
type State struct {
	Sort  SortKey  `json:"sort" toml:"sort" yaml:"sort"`
	Group GroupKey `json:"group" toml:"group" yaml:"group"`
	Order Order    `json:"order" toml:"order" yaml:"order"`
}

// DefaultState is the state of a view that was never configured.
func DefaultState() State {
	return State{Sort: SortDefault, Group: GroupDefault, Order: OrderAsc}
}

// Normalize fills empty fields with defaults.
func (s State) Normalize() State {
	if s.Sort == "" {
		s.Sort = SortDefault
	}
	if s.Group == "" {
		s.Group = GroupDefault
	}
	if s.Order == "" {
		s.Order = OrderAsc
	}
	return s
}

// Validate checks every field names a known option.
func (s State) Validate() error {
	if _, err := ParseSortKey(string(s.Sort)); err != nil {
		return err
	}
	if _, err := ParseGroupKey(string(s.Group)); err != nil {
		return err
	}
	if _, err := ParseOrder(string(s.Order)); err != nil {
		return err
	}
	return nil
}

// StateStore persists view state. Implementations must round-trip a saved
// state unchanged for the same ViewID.
type StateStore interface {
	LoadViewState(ctx context.Context, id ViewID) (State, bool, error)
	SaveViewState(ctx context.Context, id ViewID, state State) error
}

// MemoryStateStore keeps view state in memory.
type MemoryStateStore struct {
	mu     sync.RWMutex
	states map[string]State
}

// NewMemoryStateStore returns an empty in-memory store.
func NewMemoryStateStore() *MemoryStateStore {
	return &MemoryStateStore{states: make(map[string]State)}
}

func (m *MemoryStateStore) LoadViewState(_ context.Context, id ViewID) (State, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.states[id.Key()]
	return s, ok, nil
}

func (m *MemoryStateStore) SaveViewState(_ context.Context, id ViewID, state State) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.states[id.Key()] = state
	return nil
}
