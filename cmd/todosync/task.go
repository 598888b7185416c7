package main

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/mschirtzinger/todosync/internal/api"
	"github.com/mschirtzinger/todosync/internal/command"
	"github.com/mschirtzinger/todosync/internal/dates"
	"github.com/mschirtzinger/todosync/internal/schema"
	"github.com/mschirtzinger/todosync/internal/ui"
)

var addCmd = &cobra.Command{
	Use:     "add [content]",
	GroupID: "tasks",
	Short:   "Create a task",
	Long: `Create a task. The task appears in the cache immediately and is confirmed by
the server in the same run.

Without arguments on a terminal, an interactive form asks for the fields.

Examples:
  todosync add "Buy milk" --due tomorrow
  todosync add "Write report" --due "friday 5pm" --priority 1 --project Work
  todosync add`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		a := mustOpen(ctx, appOptions{online: true})
		defer a.close()
		snap := a.store.Read()

		var in ui.TaskInput
		if len(args) == 0 {
			if !ui.IsTerminal(os.Stdin) {
				fatalf("task content is required")
			}
			var err error
			in, err = ui.PromptTask(snap.Projects, snap.Labels, snap.InboxProjectID())
			if errors.Is(err, ui.ErrAborted) {
				return
			}
			if err != nil {
				fatalf("%v", err)
			}
		} else {
			in.Content = strings.Join(args, " ")
			in.Description, _ = cmd.Flags().GetString("description")
			in.Due, _ = cmd.Flags().GetString("due")
			in.Labels, _ = cmd.Flags().GetStringSlice("label")
			in.Priority = schema.PriorityDefault
			if cmd.Flags().Changed("priority") {
				p, _ := cmd.Flags().GetInt("priority")
				var err error
				if in.Priority, err = parsePriority(p); err != nil {
					fatalf("%v", err)
				}
			}
			if name, _ := cmd.Flags().GetString("project"); name != "" {
				id, err := resolveProject(snap, name)
				if err != nil {
					fatalf("%v", err)
				}
				in.ProjectID = id
			}
		}

		fields := schema.Fields{
			"content":  in.Content,
			"priority": in.Priority,
		}
		if in.Description != "" {
			fields["description"] = in.Description
		}
		if in.ProjectID != "" {
			fields["project_id"] = in.ProjectID
		}
		if len(in.Labels) > 0 {
			fields["labels"] = in.Labels
		}
		if in.Due != "" {
			for k, v := range dueFields(in.Due) {
				fields[k] = v
			}
		}
		a.mutate(ctx, command.AddTask(fields))
	},
}

var updateCmd = &cobra.Command{
	Use:     "update <id>",
	GroupID: "tasks",
	Short:   "Change a task",
	Long: `Change the fields of a task. Only the flags you pass are changed.

Examples:
  todosync update 2995104339 --due "next monday"
  todosync update 2995104339 --priority 2 --label errands --label home
  todosync update 2995104339 --due none`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		a := mustOpen(ctx, appOptions{online: true})
		defer a.close()

		fields := schema.Fields{}
		if cmd.Flags().Changed("content") {
			fields["content"], _ = cmd.Flags().GetString("content")
		}
		if cmd.Flags().Changed("description") {
			fields["description"], _ = cmd.Flags().GetString("description")
		}
		if cmd.Flags().Changed("priority") {
			p, _ := cmd.Flags().GetInt("priority")
			priority, err := parsePriority(p)
			if err != nil {
				fatalf("%v", err)
			}
			fields["priority"] = priority
		}
		if cmd.Flags().Changed("label") {
			fields["labels"], _ = cmd.Flags().GetStringSlice("label")
		}
		if cmd.Flags().Changed("due") {
			due, _ := cmd.Flags().GetString("due")
			for k, v := range dueFields(due) {
				fields[k] = v
			}
		}
		if len(fields) == 0 {
			fatalf("nothing to update")
		}
		a.mutate(ctx, command.UpdateTask(args[0], fields))
	},
}

var closeCmd = &cobra.Command{
	Use:     "close <id>...",
	Aliases: []string{"done"},
	GroupID: "tasks",
	Short:   "Complete tasks",
	Long: `Complete one or more tasks. Recurring tasks move to their next occurrence.
All tasks are sent in one request.`,
	Args: cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		a := mustOpen(ctx, appOptions{online: true})
		defer a.close()
		a.mutate(ctx, eachID(args, command.CloseTask)...)
	},
}

var reopenCmd = &cobra.Command{
	Use:     "reopen <id>...",
	GroupID: "tasks",
	Short:   "Reopen completed tasks",
	Args:    cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		a := mustOpen(ctx, appOptions{online: true})
		defer a.close()
		a.mutate(ctx, eachID(args, command.ReopenTask)...)
	},
}

var deleteCmd = &cobra.Command{
	Use:     "delete <id>...",
	GroupID: "tasks",
	Short:   "Delete tasks",
	Args:    cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		force, _ := cmd.Flags().GetBool("force")
		a := mustOpen(ctx, appOptions{online: true})
		defer a.close()

		if !force && ui.IsTerminal(os.Stdin) {
			ok, err := ui.Confirm(fmt.Sprintf("Delete %d task(s)?", len(args)))
			if err != nil {
				fatalf("%v", err)
			}
			if !ok {
				return
			}
		}
		a.mutate(ctx, eachID(args, command.DeleteTask)...)
	},
}

var moveCmd = &cobra.Command{
	Use:     "move <id>",
	GroupID: "tasks",
	Short:   "Move a task to a project, section or parent task",
	Args:    cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		a := mustOpen(ctx, appOptions{online: true})
		defer a.close()

		var to command.Destination
		to.SectionID, _ = cmd.Flags().GetString("section")
		to.ParentID, _ = cmd.Flags().GetString("parent")
		if name, _ := cmd.Flags().GetString("project"); name != "" {
			id, err := resolveProject(a.store.Read(), name)
			if err != nil {
				fatalf("%v", err)
			}
			to.ProjectID = id
		}
		if to == (command.Destination{}) {
			fatalf("one of --project, --section or --parent is required")
		}
		a.mutate(ctx, command.MoveTask(args[0], to))
	},
}

var commentCmd = &cobra.Command{
	Use:     "comment <id> <text>",
	GroupID: "tasks",
	Short:   "Comment on a task",
	Args:    cobra.MinimumNArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		a := mustOpen(ctx, appOptions{online: true})
		defer a.close()
		a.mutate(ctx, command.AddComment(args[0], strings.Join(args[1:], " ")))
	},
}

var quickCmd = &cobra.Command{
	Use:     "quick <text>",
	GroupID: "tasks",
	Short:   "Create a task from free text, parsed by the server",
	Long: `Create a task the way the quick add bar does: the server extracts the due
date, #project, @labels and p1..p4 from the text.

Example:
  todosync quick "Pay rent every 1st #Home p1"`,
	Args: cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		note, _ := cmd.Flags().GetString("note")
		a := mustOpen(ctx, appOptions{online: true})
		defer a.close()

		task, err := a.driver.QuickAdd(ctx, api.QuickAddRequest{
			Text: strings.Join(args, " "),
			Note: note,
		})
		if err != nil {
			fatalf("%v", err)
		}
		if jsonOutput {
			outputJSON(task)
			return
		}
		fmt.Printf("%s Created %s\n", ui.RenderPass("✓"), a.taskLine(a.store.Read()).Render(task))
	},
}

var showCmd = &cobra.Command{
	Use:     "show <id>",
	GroupID: "tasks",
	Short:   "Show one task",
	Args:    cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		remote, _ := cmd.Flags().GetBool("remote")
		a := mustOpen(ctx, appOptions{online: remote})
		defer a.close()

		task, ok := a.store.Read().Task(args[0])
		if remote {
			var err error
			if task, err = a.driver.FetchTask(ctx, args[0]); err != nil {
				fatalf("%v", err)
			}
			ok = true
		}
		if !ok {
			fatalf("task %s not found in cache", args[0])
		}
		if jsonOutput {
			outputJSON(task)
			return
		}
		fmt.Println(a.taskLine(a.store.Read()).Render(task))
		if task.Description != "" {
			fmt.Printf("\n%s\n", task.Description)
		}
	},
}

func eachID(ids []string, intent func(string) command.Intent) []command.Intent {
	out := make([]command.Intent, len(ids))
	for i, id := range ids {
		out[i] = intent(id)
	}
	return out
}

// dueFields parses a due expression locally. The server receives the original
// text as well and has the final word. "none" clears the due date.
func dueFields(text string) schema.Fields {
	if strings.EqualFold(text, "none") || text == "" {
		return dates.Fields(nil)
	}
	due, err := dates.NewParser(time.Local).Parse(text, time.Now())
	if err != nil {
		fatalf("%v", err)
	}
	return dates.Fields(due)
}

func init() {
	addCmd.Flags().String("description", "", "Task description")
	addCmd.Flags().String("due", "", "Due date (\"tomorrow\", \"friday 5pm\")")
	addCmd.Flags().IntP("priority", "p", 4, "Priority, 1 (urgent) to 4")
	addCmd.Flags().String("project", "", "Project name or id (default: inbox)")
	addCmd.Flags().StringSliceP("label", "l", nil, "Label (repeatable)")

	updateCmd.Flags().String("content", "", "New content")
	updateCmd.Flags().String("description", "", "New description")
	updateCmd.Flags().String("due", "", "Due date, or \"none\" to clear it")
	updateCmd.Flags().IntP("priority", "p", 4, "Priority, 1 (urgent) to 4")
	updateCmd.Flags().StringSliceP("label", "l", nil, "Replace labels (repeatable)")

	deleteCmd.Flags().BoolP("force", "f", false, "Do not ask for confirmation")

	moveCmd.Flags().String("project", "", "Destination project name or id")
	moveCmd.Flags().String("section", "", "Destination section id")
	moveCmd.Flags().String("parent", "", "Destination parent task id")

	quickCmd.Flags().String("note", "", "Attach a comment")

	showCmd.Flags().Bool("remote", false, "Fetch the task from the server")

	rootCmd.AddCommand(addCmd)
	rootCmd.AddCommand(updateCmd)
	rootCmd.AddCommand(closeCmd)
	rootCmd.AddCommand(reopenCmd)
	rootCmd.AddCommand(deleteCmd)
	rootCmd.AddCommand(moveCmd)
	rootCmd.AddCommand(commentCmd)
	rootCmd.AddCommand(quickCmd)
	rootCmd.AddCommand(showCmd)
}
