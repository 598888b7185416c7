package view

import (
	"fmt"
	"slices"
)

// SortKey selects the comparator of the sort stage.
type SortKey string

const (
	SortDefault  SortKey = "default"
	SortName     SortKey = "name"
	SortDate     SortKey = "date"
	SortPriority SortKey = "priority"
	SortProject  SortKey = "project"
	SortAssignee SortKey = "assignee"
)

// GroupKey selects the grouping function of the group stage.
type GroupKey string

const (
	GroupDefault  GroupKey = "default"
	GroupDate     GroupKey = "date"
	GroupPriority GroupKey = "priority"
	GroupProject  GroupKey = "project"
	GroupLabel    GroupKey = "label"
	GroupAssignee GroupKey = "assignee"
)

// Order is the sort direction.
type Order string

const (
	OrderAsc  Order = "asc"
	OrderDesc Order = "desc"
)

// Option is one choice offered by a control.
type Option struct {
	Value string `json:"value"`
	Title string `json:"title"`
}

// Control is the current value of a view setting plus the choices offered.
type Control struct {
	Value   string   `json:"value"`
	Options []Option `json:"options"`
}

var sortOptions = []Option{
	{Value: string(SortDefault), Title: "Default"},
	{Value: string(SortName), Title: "Name"},
	{Value: string(SortDate), Title: "Date"},
	{Value: string(SortPriority), Title: "Priority"},
	{Value: string(SortProject), Title: "Project"},
	{Value: string(SortAssignee), Title: "Assignee"},
}

var groupOptions = []Option{
	{Value: string(GroupDefault), Title: "Default"},
	{Value: string(GroupDate), Title: "Date"},
	{Value: string(GroupPriority), Title: "Priority"},
	{Value: string(GroupProject), Title: "Project"},
	{Value: string(GroupLabel), Title: "Label"},
	{Value: string(GroupAssignee), Title: "Assignee"},
}

var orderOptions = []Option{
	{Value: string(OrderAsc), Title: "Ascending"},
	{Value: string(OrderDesc), Title: "Descending"},
}

// ParseSortKey validates a sort key.
func ParseSortKey(s string) (SortKey, error) {
	if !hasOption(sortOptions, s) {
		return "", fmt.Errorf("unknown sort option %q", s)
	}
	return SortKey(s), nil
}

// ParseGroupKey validates a group key.
func ParseGroupKey(s string) (GroupKey, error) {
	if !hasOption(groupOptions, s) {
		return "", fmt.Errorf("unknown group option %q", s)
	}
	return GroupKey(s), nil
}

// ParseOrder validates an order direction.
func ParseOrder(s string) (Order, error) {
	if !hasOption(orderOptions, s) {
		return "", fmt.Errorf("unknown order %q", s)
	}
	return Order(s), nil
}

// filterOptions drops excluded values. The default option is never dropped.
func filterOptions(options []Option, exclude []string) []Option {
	out := make([]Option, 0, len(options))
	for _, o := range options {
		if o.Value != "default" && slices.Contains(exclude, o.Value) {
			continue
		}
		out = append(out, o)
	}
	return out
}

func hasOption(options []Option, value string) bool {
	return slices.ContainsFunc(options, func(o Option) bool { return o.Value == value })
}
