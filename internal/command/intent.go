package command

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mschirtzinger/todosync/internal/api"
	"github.com/mschirtzinger/todosync/internal/schema"
)

// Action is what an intent does to its entity.
type Action string

const (
	ActionAdd        Action = "add"
	ActionUpdate     Action = "update"
	ActionDelete     Action = "delete"
	ActionClose      Action = "close"
	ActionUncomplete Action = "uncomplete"
	ActionMove       Action = "move"
	ActionArchive    Action = "archive"
)

// commandTypes lists the supported kind/action combinations.
var commandTypes = map[schema.Kind]map[Action]string{
	schema.KindTask: {
		ActionAdd:        schema.CommandItemAdd,
		ActionUpdate:     schema.CommandItemUpdate,
		ActionDelete:     schema.CommandItemDelete,
		ActionClose:      schema.CommandItemClose,
		ActionUncomplete: schema.CommandItemUncomplete,
		ActionMove:       schema.CommandItemMove,
	},
	schema.KindProject: {
		ActionAdd:     schema.CommandProjectAdd,
		ActionUpdate:  schema.CommandProjectUpdate,
		ActionDelete:  schema.CommandProjectDelete,
		ActionArchive: schema.CommandProjectArchive,
		ActionMove:    schema.CommandProjectMove,
	},
	schema.KindSection: {
		ActionAdd:     schema.CommandSectionAdd,
		ActionUpdate:  schema.CommandSectionUpdate,
		ActionDelete:  schema.CommandSectionDelete,
		ActionArchive: schema.CommandSectionArchive,
		ActionMove:    schema.CommandSectionMove,
	},
	schema.KindLabel: {
		ActionAdd:    schema.CommandLabelAdd,
		ActionUpdate: schema.CommandLabelUpdate,
		ActionDelete: schema.CommandLabelDelete,
	},
	schema.KindFilter: {
		ActionAdd:    schema.CommandFilterAdd,
		ActionUpdate: schema.CommandFilterUpdate,
		ActionDelete: schema.CommandFilterDelete,
	},
	schema.KindComment: {
		ActionAdd:    schema.CommandNoteAdd,
		ActionUpdate: schema.CommandNoteUpdate,
		ActionDelete: schema.CommandNoteDelete,
	},
	schema.KindReminder: {
		ActionAdd:    schema.CommandReminderAdd,
		ActionUpdate: schema.CommandReminderUpdate,
		ActionDelete: schema.CommandReminderDelete,
	},
}

// requiredOnAdd names the field an add intent must carry.
var requiredOnAdd = map[schema.Kind]string{
	schema.KindTask:     "content",
	schema.KindProject:  "name",
	schema.KindSection:  "name",
	schema.KindLabel:    "name",
	schema.KindFilter:   "name",
	schema.KindComment:  "content",
	schema.KindReminder: "item_id",
}

// referenceFields may hold the id of another entity.
var referenceFields = []string{"project_id", "section_id", "parent_id", "item_id"}

// Intent is a user action against one entity. Fields use the user-facing
// priority orientation.
type Intent struct {
	Kind   schema.Kind   `json:"kind"`
	Action Action        `json:"action"`
	ID     string        `json:"id,omitempty"`
	Fields schema.Fields `json:"fields,omitempty"`

	// TempID optionally fixes the temporary id of an add intent; a fresh
	// one is generated when empty.
	TempID string `json:"temp_id,omitempty"`
}

// CommandType returns the wire command type.
func (in Intent) CommandType() (string, error) {
	actions, ok := commandTypes[in.Kind]
	if !ok {
		return "", fmt.Errorf("no commands for %s", in.Kind)
	}
	typ, ok := actions[in.Action]
	if !ok {
		return "", fmt.Errorf("cannot %s %s", in.Action, in.Kind.CommandPrefix())
	}
	return typ, nil
}

// Validate checks the intent can be turned into a command.
func (in Intent) Validate() error {
	if _, err := in.CommandType(); err != nil {
		return err
	}
	if in.Action == ActionAdd {
		field := requiredOnAdd[in.Kind]
		if s, _ := in.Fields[field].(string); strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s is required", field)
		}
		return nil
	}
	if in.ID == "" {
		return fmt.Errorf("%s id is required", in.Kind.CommandPrefix())
	}
	if in.Action == ActionMove && len(in.Fields) == 0 {
		return errors.New("move needs a destination")
	}
	return nil
}

// Title names the action for notifications ("update task").
func (in Intent) Title() string {
	verb := string(in.Action)
	switch in.Action {
	case ActionClose:
		verb = "complete"
	case ActionUncomplete:
		verb = "reopen"
	}
	return verb + " " + noun(in.Kind)
}

func noun(k schema.Kind) string {
	switch k {
	case schema.KindTask:
		return "task"
	case schema.KindComment:
		return "comment"
	}
	return k.CommandPrefix()
}

// Command builds the wire command. Task priorities are converted to the
// wire orientation here.
func (in Intent) Command(uuid, tempID string) (schema.Command, error) {
	typ, err := in.CommandType()
	if err != nil {
		return schema.Command{}, err
	}

	args := make(map[string]any, len(in.Fields)+1)
	for k, v := range in.Fields {
		args[k] = v
	}
	if in.Kind == schema.KindTask {
		if p, ok := args["priority"]; ok {
			n, err := toInt(p)
			if err != nil {
				return schema.Command{}, fmt.Errorf("invalid priority: %w", err)
			}
			args["priority"] = api.EncodePriority(n)
		}
	}

	cmd := schema.Command{Type: typ, UUID: uuid, Args: args}
	if in.Action == ActionAdd {
		cmd.TempID = tempID
		delete(args, "id")
	} else {
		args["id"] = in.ID
	}
	return cmd, nil
}

// references returns the ids this intent points at.
func (in Intent) references() []string {
	refs := []string{}
	if in.Action != ActionAdd {
		refs = append(refs, in.ID)
	}
	for _, f := range referenceFields {
		if s, ok := in.Fields[f].(string); ok && s != "" {
			refs = append(refs, s)
		}
	}
	return refs
}

func toInt(v any) (int, error) {
	switch n := v.(type) {
	case int:
		return n, nil
	case int64:
		return int(n), nil
	case float64:
		return int(n), nil
	case json.Number:
		i, err := n.Int64()
		return int(i), err
	}
	return 0, fmt.Errorf("unexpected type %T", v)
}

// AddTask creates a task. fields must include "content".
func AddTask(fields schema.Fields) Intent {
	return Intent{Kind: schema.KindTask, Action: ActionAdd, Fields: fields}
}

// UpdateTask changes task fields.
func UpdateTask(id string, fields schema.Fields) Intent {
	return Intent{Kind: schema.KindTask, Action: ActionUpdate, ID: id, Fields: fields}
}

// CloseTask completes a task. Recurring tasks are rescheduled by the server.
func CloseTask(id string) Intent {
	return Intent{Kind: schema.KindTask, Action: ActionClose, ID: id}
}

// ReopenTask uncompletes a task.
func ReopenTask(id string) Intent {
	return Intent{Kind: schema.KindTask, Action: ActionUncomplete, ID: id}
}

// DeleteTask deletes a task. Sub-tasks are not removed locally.
func DeleteTask(id string) Intent {
	return Intent{Kind: schema.KindTask, Action: ActionDelete, ID: id}
}

// Destination is where a move puts a task. Exactly one field should be set.
type Destination struct {
	ProjectID string
	SectionID string
	ParentID  string
}

// MoveTask moves a task to a project, section or parent task.
func MoveTask(id string, to Destination) Intent {
	fields := schema.Fields{}
	switch {
	case to.ParentID != "":
		fields["parent_id"] = to.ParentID
	case to.SectionID != "":
		fields["section_id"] = to.SectionID
	case to.ProjectID != "":
		fields["project_id"] = to.ProjectID
	}
	return Intent{Kind: schema.KindTask, Action: ActionMove, ID: id, Fields: fields}
}

// AddProject creates a project.
func AddProject(name string, fields schema.Fields) Intent {
	f := fields.Clone()
	f["name"] = name
	return Intent{Kind: schema.KindProject, Action: ActionAdd, Fields: f}
}

// UpdateProject changes project fields.
func UpdateProject(id string, fields schema.Fields) Intent {
	return Intent{Kind: schema.KindProject, Action: ActionUpdate, ID: id, Fields: fields}
}

// ArchiveProject archives a project.
func ArchiveProject(id string) Intent {
	return Intent{Kind: schema.KindProject, Action: ActionArchive, ID: id}
}

// DeleteProject deletes a project.
func DeleteProject(id string) Intent {
	return Intent{Kind: schema.KindProject, Action: ActionDelete, ID: id}
}

// AddComment attaches a comment to a task.
func AddComment(taskID, content string) Intent {
	return Intent{Kind: schema.KindComment, Action: ActionAdd, Fields: schema.Fields{"item_id": taskID, "content": content}}
}

// UpdateComment edits a comment.
func UpdateComment(id, content string) Intent {
	return Intent{Kind: schema.KindComment, Action: ActionUpdate, ID: id, Fields: schema.Fields{"content": content}}
}

// DeleteComment deletes a comment.
func DeleteComment(id string) Intent {
	return Intent{Kind: schema.KindComment, Action: ActionDelete, ID: id}
}

// UpdateLabel changes label fields.
func UpdateLabel(id string, fields schema.Fields) Intent {
	return Intent{Kind: schema.KindLabel, Action: ActionUpdate, ID: id, Fields: fields}
}

// DeleteLabel deletes a label.
func DeleteLabel(id string) Intent {
	return Intent{Kind: schema.KindLabel, Action: ActionDelete, ID: id}
}

// UpdateFilter changes filter fields.
func UpdateFilter(id string, fields schema.Fields) Intent {
	return Intent{Kind: schema.KindFilter, Action: ActionUpdate, ID: id, Fields: fields}
}

// DeleteFilter deletes a filter.
func DeleteFilter(id string) Intent {
	return Intent{Kind: schema.KindFilter, Action: ActionDelete, ID: id}
}

// AddReminder adds a reminder to a task.
func AddReminder(taskID string, fields schema.Fields) Intent {
	f := fields.Clone()
	f["item_id"] = taskID
	return Intent{Kind: schema.KindReminder, Action: ActionAdd, Fields: f}
}

// DeleteReminder deletes a reminder.
func DeleteReminder(id string) Intent {
	return Intent{Kind: schema.KindReminder, Action: ActionDelete, ID: id}
}
