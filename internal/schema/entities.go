package schema

import "slices"

// ViewStyle is how a project is laid out in the UI.
type ViewStyle string

const (
	ViewStyleList  ViewStyle = "list"
	ViewStyleBoard ViewStyle = "board"
)

// Project owns tasks and sections.
type Project struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Color        string    `json:"color,omitempty"`
	ParentID     *string   `json:"parent_id"`
	ChildOrder   int       `json:"child_order"`
	Collapsed    bool      `json:"collapsed"`
	Shared       bool      `json:"shared"`
	IsDeleted    bool      `json:"is_deleted"`
	IsArchived   bool      `json:"is_archived"`
	IsFavorite   bool      `json:"is_favorite"`
	InboxProject bool      `json:"inbox_project,omitempty"`
	TeamInbox    bool      `json:"team_inbox,omitempty"`
	ViewStyle    ViewStyle `json:"view_style,omitempty"`
}

func (p Project) EntityID() string { return p.ID }

// Section groups tasks inside a project.
type Section struct {
	ID           string  `json:"id"`
	Name         string  `json:"name"`
	ProjectID    string  `json:"project_id"`
	SectionOrder int     `json:"section_order"`
	Collapsed    bool    `json:"collapsed"`
	IsDeleted    bool    `json:"is_deleted"`
	IsArchived   bool    `json:"is_archived"`
	ArchivedAt   *string `json:"archived_at"`
	AddedAt      string  `json:"added_at,omitempty"`
}

func (s Section) EntityID() string { return s.ID }

// Label is referenced from tasks by name, not by id.
type Label struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Color      string `json:"color,omitempty"`
	ItemOrder  int    `json:"item_order"`
	IsDeleted  bool   `json:"is_deleted"`
	IsFavorite bool   `json:"is_favorite"`
}

func (l Label) EntityID() string { return l.ID }

// Filter is a saved task query.
type Filter struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Query      string `json:"query"`
	Color      string `json:"color,omitempty"`
	ItemOrder  int    `json:"item_order"`
	IsDeleted  bool   `json:"is_deleted"`
	IsFavorite bool   `json:"is_favorite"`
}

func (f Filter) EntityID() string { return f.ID }

// FileAttachment describes an uploaded file attached to a comment.
type FileAttachment struct {
	FileName    string `json:"file_name"`
	FileSize    int64  `json:"file_size"`
	FileType    string `json:"file_type"`
	FileURL     string `json:"file_url"`
	UploadState string `json:"upload_state,omitempty"`
}

// Comment is a note attached to a task (wire name "notes").
type Comment struct {
	ID             string              `json:"id"`
	PostedUID      string              `json:"posted_uid,omitempty"`
	ItemID         string              `json:"item_id"`
	Content        string              `json:"content"`
	FileAttachment *FileAttachment     `json:"file_attachment"`
	UIDsToNotify   []string            `json:"uids_to_notify,omitempty"`
	IsDeleted      bool                `json:"is_deleted"`
	PostedAt       string              `json:"posted_at,omitempty"`
	Reactions      map[string][]string `json:"reactions,omitempty"`
}

func (c Comment) EntityID() string { return c.ID }

// Clone returns a deep copy of the comment.
func (c Comment) Clone() Comment {
	out := c
	out.UIDsToNotify = slices.Clone(c.UIDsToNotify)
	if c.FileAttachment != nil {
		fa := *c.FileAttachment
		out.FileAttachment = &fa
	}
	if c.Reactions != nil {
		out.Reactions = make(map[string][]string, len(c.Reactions))
		for k, v := range c.Reactions {
			out.Reactions[k] = slices.Clone(v)
		}
	}
	return out
}

// Collaborator is a user sharing at least one project with the current user.
type Collaborator struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	FullName string `json:"full_name"`
	Timezone string `json:"timezone,omitempty"`
	ImageID  string `json:"image_id,omitempty"`
}

func (c Collaborator) EntityID() string { return c.ID }

// CollaboratorState links a collaborator to a shared project.
type CollaboratorState struct {
	ProjectID string `json:"project_id"`
	UserID    string `json:"user_id"`
	State     string `json:"state"`
	IsDeleted bool   `json:"is_deleted"`
}

// EntityID is the composite project/user key; states have no id of their own.
func (c CollaboratorState) EntityID() string { return c.ProjectID + ":" + c.UserID }

// Reminder notifies a user about a task.
type Reminder struct {
	ID         string  `json:"id"`
	NotifyUID  string  `json:"notify_uid,omitempty"`
	ItemID     string  `json:"item_id"`
	Type       string  `json:"type"`
	Due        *Due    `json:"due,omitempty"`
	MinuteOff  int     `json:"minute_offset,omitempty"`
	Name       string  `json:"name,omitempty"`
	LocLat     string  `json:"loc_lat,omitempty"`
	LocLong    string  `json:"loc_long,omitempty"`
	LocTrigger string  `json:"loc_trigger,omitempty"`
	Radius     int     `json:"radius,omitempty"`
	IsDeleted  IntBool `json:"is_deleted"`
}

func (r Reminder) EntityID() string { return r.ID }

// Clone returns a deep copy of the reminder.
func (r Reminder) Clone() Reminder {
	out := r
	if r.Due != nil {
		d := *r.Due
		d.Timezone = cloneString(r.Due.Timezone)
		out.Due = &d
	}
	return out
}

// User is the account the cache belongs to.
type User struct {
	ID           string `json:"id"`
	FullName     string `json:"full_name"`
	Email        string `json:"email,omitempty"`
	AvatarMedium string `json:"avatar_medium,omitempty"`
	AutoReminder int    `json:"auto_reminder"`
	DailyGoal    int    `json:"daily_goal"`
	IsPremium    bool   `json:"is_premium"`
	TimeFormat   int    `json:"time_format"`
	InboxProject string `json:"inbox_project_id,omitempty"`
	Timezone     *struct {
		Timezone string `json:"timezone"`
	} `json:"tz_info,omitempty"`
}

func (u User) EntityID() string { return u.ID }

// CollaboratorNames maps collaborator ids to display names.
func CollaboratorNames(collaborators []Collaborator) map[string]string {
	names := make(map[string]string, len(collaborators))
	for _, c := range collaborators {
		names[c.ID] = c.FullName
	}
	return names
}

// ProjectNames maps project ids to names.
func ProjectNames(projects []Project) map[string]string {
	names := make(map[string]string, len(projects))
	for _, p := range projects {
		names[p.ID] = p.Name
	}
	return names
}
