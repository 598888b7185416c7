// Package view turns a task collection into ordered, named sections.
//
// The pipeline is sort → group: the input is copied, stable-sorted with the
// comparator selected by the view's persisted sort key (flipped by its order),
// then split into sections by the view's group key. Each named view keeps its
// own State in a StateStore; two views never share state.
package view

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/mschirtzinger/todosync/internal/compare"
	"github.com/mschirtzinger/todosync/internal/schema"
)

// Section is one named group of tasks. The default grouping yields a single
// section with an empty name.
type Section struct {
	Name  string        `json:"name"`
	Tasks []schema.Task `json:"tasks"`
}

// Projection is the result of projecting a task collection through a view.
// Order is nil when the view has no explicit sort, since "insertion order" has
// no direction.
type Projection struct {
	View     ViewID    `json:"view"`
	Sections []Section `json:"sections"`
	Sort     Control   `json:"sort"`
	Group    Control   `json:"group"`
	Order    *Control  `json:"order,omitempty"`
}

// Context is the lookup data and option exclusions for one projection.
type Context struct {
	Projects      []schema.Project
	Labels        []schema.Label
	Collaborators []schema.Collaborator

	// Exclude lists sort/group option values the caller does not offer,
	// e.g. "project" inside a project view.
	Exclude []string
}

// ContextFromSnapshot builds a Context from the cache snapshot.
func ContextFromSnapshot(s schema.Snapshot, exclude ...string) Context {
	return Context{
		Projects:      s.Projects,
		Labels:        s.Labels,
		Collaborators: s.Collaborators,
		Exclude:       exclude,
	}
}

// Config configures a Projector.
type Config struct {
	// Location is used for calendar-day computations (default: time.Local)
	Location *time.Location

	// Now returns the current time (default: time.Now)
	Now func() time.Time

	// Presets seed the state of views that were never persisted
	Presets map[ViewID]State
}

// DefaultConfig returns the local-time configuration.
func DefaultConfig() *Config {
	return &Config{
		Location: time.Local,
		Now:      time.Now,
	}
}

// Projector projects tasks through persisted per-view state.
type Projector struct {
	states StateStore
	config *Config
}

// NewProjector creates a projector backed by states.
// If config is nil, DefaultConfig is used.
func NewProjector(states StateStore, config *Config) *Projector {
	if config == nil {
		config = DefaultConfig()
	}
	if config.Location == nil {
		config.Location = time.Local
	}
	if config.Now == nil {
		config.Now = time.Now
	}
	if states == nil {
		states = NewMemoryStateStore()
	}
	return &Projector{states: states, config: config}
}

// State returns the persisted state of the view, its preset, or the default.
func (p *Projector) State(ctx context.Context, id ViewID) (State, error) {
	s, ok, err := p.states.LoadViewState(ctx, id)
	if err != nil {
		return State{}, fmt.Errorf("failed to load view state %s: %w", id, err)
	}
	if ok {
		return s.Normalize(), nil
	}
	if preset, ok := p.config.Presets[id]; ok {
		return preset.Normalize(), nil
	}
	return DefaultState(), nil
}

// SetState validates and persists the full state of a view.
func (p *Projector) SetState(ctx context.Context, id ViewID, s State) error {
	s = s.Normalize()
	if err := s.Validate(); err != nil {
		return err
	}
	if err := p.states.SaveViewState(ctx, id, s); err != nil {
		return fmt.Errorf("failed to save view state %s: %w", id, err)
	}
	return nil
}

// SetSort persists the sort key of a view.
func (p *Projector) SetSort(ctx context.Context, id ViewID, key SortKey) error {
	s, err := p.State(ctx, id)
	if err != nil {
		return err
	}
	s.Sort = key
	return p.SetState(ctx, id, s)
}

// SetGroup persists the group key of a view.
func (p *Projector) SetGroup(ctx context.Context, id ViewID, key GroupKey) error {
	s, err := p.State(ctx, id)
	if err != nil {
		return err
	}
	s.Group = key
	return p.SetState(ctx, id, s)
}

// SetOrder persists the order direction of a view.
func (p *Projector) SetOrder(ctx context.Context, id ViewID, order Order) error {
	s, err := p.State(ctx, id)
	if err != nil {
		return err
	}
	s.Order = order
	return p.SetState(ctx, id, s)
}

// Project sorts and groups tasks according to the view's state. The caller's
// slice is never modified.
func (p *Projector) Project(ctx context.Context, tasks []schema.Task, id ViewID, vc Context) (Projection, error) {
	state, err := p.State(ctx, id)
	if err != nil {
		return Projection{}, err
	}

	exclude := slices.Clone(vc.Exclude)
	if !hasAssignee(tasks) {
		exclude = append(exclude, string(SortAssignee))
	}

	sortOpts := filterOptions(sortOptions, exclude)
	groupOpts := filterOptions(groupOptions, exclude)

	sortKey := state.Sort
	if !hasOption(sortOpts, string(sortKey)) {
		sortKey = SortDefault
	}
	groupKey := state.Group
	if !hasOption(groupOpts, string(groupKey)) {
		groupKey = GroupDefault
	}

	sorted := slices.Clone(tasks)
	slices.SortStableFunc(sorted, compare.Flip(p.comparator(sortKey, vc), state.Order == OrderDesc))

	out := Projection{
		View:     id,
		Sections: p.group(groupKey, sorted, vc),
		Sort:     Control{Value: string(sortKey), Options: sortOpts},
		Group:    Control{Value: string(groupKey), Options: groupOpts},
	}
	if sortKey != SortDefault {
		out.Order = &Control{Value: string(state.Order), Options: slices.Clone(orderOptions)}
	}
	return out, nil
}

func (p *Projector) comparator(key SortKey, vc Context) compare.Comparator {
	switch key {
	case SortName:
		return compare.ByName()
	case SortDate:
		return compare.ByDate(p.config.Location)
	case SortPriority:
		return compare.ByPriority()
	case SortProject:
		return compare.ByProject(vc.Projects)
	case SortAssignee:
		return compare.ByAssignee(vc.Collaborators)
	}
	return compare.Default()
}

func (p *Projector) group(key GroupKey, tasks []schema.Task, vc Context) []Section {
	switch key {
	case GroupDate:
		return groupByDate(tasks, p.config.Now().In(p.config.Location), p.config.Location)
	case GroupPriority:
		return groupByPriority(tasks)
	case GroupProject:
		return groupByProject(tasks, vc.Projects)
	case GroupLabel:
		return groupByLabel(tasks, vc.Labels)
	case GroupAssignee:
		return groupByAssignee(tasks, vc.Collaborators)
	}
	return []Section{{Name: "", Tasks: tasks}}
}

func hasAssignee(tasks []schema.Task) bool {
	return slices.ContainsFunc(tasks, func(t schema.Task) bool { return t.Assignee() != "" })
}
