package api

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/mschirtzinger/todosync/internal/schema"
)

// SyncRequest is the body of a sync call.
type SyncRequest struct {
	Cursor        string           `json:"sync_token"`
	ResourceTypes []string         `json:"resource_types"`
	Commands      []schema.Command `json:"commands,omitempty"`
}

// SyncResponse is the decoded sync response. The embedded snapshot holds the
// new cursor and only the entities that changed since the request cursor,
// unless FullSync is set.
type SyncResponse struct {
	schema.Snapshot
	FullSync      bool                     `json:"full_sync"`
	SyncStatus    map[string]CommandStatus `json:"sync_status,omitempty"`
	TempIDMapping map[string]string        `json:"temp_id_mapping,omitempty"`
}

// CommandErr returns the rejection for the command with the given uuid, or
// nil if it was accepted or not reported.
func (r *SyncResponse) CommandErr(uuid string) error {
	st, ok := r.SyncStatus[uuid]
	if !ok || st.OK {
		return nil
	}
	return &CommandError{UUID: uuid, Message: st.Error, Code: st.ErrorCode, HTTPCode: st.HTTPCode}
}

// CommandStatus is one sync_status entry: either the string "ok" or an
// error object.
type CommandStatus struct {
	OK        bool
	Error     string
	ErrorCode int
	HTTPCode  int
}

// UnmarshalJSON decodes "ok" or {"error": ..., "error_code": ..., "http_code": ...}.
func (s *CommandStatus) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var v string
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		*s = CommandStatus{OK: v == "ok", Error: v}
		if s.OK {
			s.Error = ""
		}
		return nil
	}

	var v struct {
		Error     string `json:"error"`
		ErrorCode int    `json:"error_code"`
		HTTPCode  int    `json:"http_code"`
	}
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("invalid sync status: %w", err)
	}
	*s = CommandStatus{Error: v.Error, ErrorCode: v.ErrorCode, HTTPCode: v.HTTPCode}
	return nil
}

// MarshalJSON mirrors UnmarshalJSON.
func (s CommandStatus) MarshalJSON() ([]byte, error) {
	if s.OK {
		return []byte(`"ok"`), nil
	}
	return json.Marshal(struct {
		Error     string `json:"error"`
		ErrorCode int    `json:"error_code,omitempty"`
		HTTPCode  int    `json:"http_code,omitempty"`
	}{s.Error, s.ErrorCode, s.HTTPCode})
}

// QuickAddRequest is parsed server-side like the quick add bar: dates,
// #project, @label and p1..p4 are extracted from Text.
type QuickAddRequest struct {
	Text         string `json:"text"`
	Note         string `json:"note,omitempty"`
	Reminder     string `json:"reminder,omitempty"`
	AutoReminder bool   `json:"auto_reminder,omitempty"`
}

// Stats is the productivity summary from completed/get_stats.
type Stats struct {
	CompletedCount int         `json:"completed_count"`
	DaysItems      []DayStats  `json:"days_items"`
	WeekItems      []WeekStats `json:"week_items"`
	Goals          Goals       `json:"goals"`
}

// DayStats is the completion count of one day.
type DayStats struct {
	Date           string `json:"date"`
	TotalCompleted int    `json:"total_completed"`
}

// WeekStats is the completion count of one week.
type WeekStats struct {
	From           string `json:"from"`
	To             string `json:"to"`
	TotalCompleted int    `json:"total_completed"`
}

// Goals are the user's karma goals and streaks.
type Goals struct {
	DailyGoal          int    `json:"daily_goal"`
	WeeklyGoal         int    `json:"weekly_goal"`
	CurrentDailyStreak Streak `json:"current_daily_streak"`
	MaxDailyStreak     Streak `json:"max_daily_streak"`
}

// Streak is a run of days meeting the daily goal.
type Streak struct {
	Count int    `json:"count"`
	Start string `json:"start"`
	End   string `json:"end"`
}

// restTask is the REST representation of a task; it differs from the sync
// representation in a few field names.
type restTask struct {
	ID          string   `json:"id"`
	ProjectID   string   `json:"project_id"`
	SectionID   *string  `json:"section_id"`
	ParentID    *string  `json:"parent_id"`
	Content     string   `json:"content"`
	Description string   `json:"description"`
	Priority    int      `json:"priority"`
	Labels      []string `json:"labels"`
	AssigneeID  *string  `json:"assignee_id"`
	AssignerID  *string  `json:"assigner_id"`
	CreatorID   string   `json:"creator_id"`
	Order       int      `json:"order"`
	IsCompleted bool     `json:"is_completed"`
	CommentCnt  int      `json:"comment_count"`
	CreatedAt   string   `json:"created_at"`
	Due         *struct {
		Date        string  `json:"date"`
		Datetime    string  `json:"datetime"`
		Timezone    *string `json:"timezone"`
		String      string  `json:"string"`
		Lang        string  `json:"lang"`
		IsRecurring bool    `json:"is_recurring"`
	} `json:"due"`
}

// task converts to the sync representation, priority included.
func (r restTask) task() schema.Task {
	t := schema.Task{
		ID:             r.ID,
		ProjectID:      r.ProjectID,
		SectionID:      r.SectionID,
		ParentID:       r.ParentID,
		Content:        r.Content,
		Description:    r.Description,
		Priority:       schema.PriorityFromAPI(r.Priority),
		Labels:         r.Labels,
		ResponsibleUID: r.AssigneeID,
		AddedByUID:     r.CreatorID,
		ChildOrder:     r.Order,
		Checked:        r.IsCompleted,
		NoteCount:      r.CommentCnt,
		AddedAt:        r.CreatedAt,
	}
	if r.AssignerID != nil {
		t.AssignedByUID = *r.AssignerID
	}
	if r.Due != nil {
		d := &schema.Due{
			Date:        r.Due.Date,
			Timezone:    r.Due.Timezone,
			String:      r.Due.String,
			Lang:        r.Due.Lang,
			IsRecurring: r.Due.IsRecurring,
		}
		if r.Due.Datetime != "" {
			d.Date = r.Due.Datetime
		}
		t.Due = d
	}
	return t
}

// decodePriorities flips every task priority into the user-facing orientation.
func decodePriorities(tasks []schema.Task) {
	for i := range tasks {
		tasks[i].Priority = schema.PriorityFromAPI(tasks[i].Priority)
	}
}

// EncodePriority converts a user-facing priority for command arguments.
func EncodePriority(p int) int {
	return schema.PriorityToAPI(p)
}
