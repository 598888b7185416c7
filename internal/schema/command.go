package schema

// Command is one write operation submitted through the sync endpoint.
// Commands are immutable once built; UUID deduplicates replays server-side
// and TempID, set only on add commands, names the entity locally until the
// server assigns its real id.
type Command struct {
	Type   string         `json:"type"`
	UUID   string         `json:"uuid"`
	TempID string         `json:"temp_id,omitempty"`
	Args   map[string]any `json:"args"`
}

// Command types.
const (
	CommandItemAdd        = "item_add"
	CommandItemUpdate     = "item_update"
	CommandItemDelete     = "item_delete"
	CommandItemClose      = "item_close"
	CommandItemUncomplete = "item_uncomplete"
	CommandItemMove       = "item_move"
	CommandProjectAdd     = "project_add"
	CommandProjectUpdate  = "project_update"
	CommandProjectDelete  = "project_delete"
	CommandProjectArchive = "project_archive"
	CommandProjectMove    = "project_move"
	CommandSectionAdd     = "section_add"
	CommandSectionUpdate  = "section_update"
	CommandSectionDelete  = "section_delete"
	CommandSectionArchive = "section_archive"
	CommandSectionMove    = "section_move"
	CommandLabelAdd       = "label_add"
	CommandLabelUpdate    = "label_update"
	CommandLabelDelete    = "label_delete"
	CommandFilterAdd      = "filter_add"
	CommandFilterUpdate   = "filter_update"
	CommandFilterDelete   = "filter_delete"
	CommandNoteAdd        = "note_add"
	CommandNoteUpdate     = "note_update"
	CommandNoteDelete     = "note_delete"
	CommandReminderAdd    = "reminder_add"
	CommandReminderUpdate = "reminder_update"
	CommandReminderDelete = "reminder_delete"
)
