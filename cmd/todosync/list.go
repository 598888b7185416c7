package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mschirtzinger/todosync/internal/config"
	"github.com/mschirtzinger/todosync/internal/ui"
	"github.com/mschirtzinger/todosync/internal/view"
)

var listCmd = &cobra.Command{
	Use:     "list [view]",
	GroupID: "tasks",
	Short:   "List tasks in a view",
	Long: `List the tasks of a view, sorted and grouped by the view's saved settings.

Views:
  today            Overdue tasks and tasks due today (default)
  upcoming         Tasks due today or later
  inbox            Tasks in the inbox project
  project:<id>     Tasks in one project
  label:<name>     Tasks with a label
  filter:<id>      A saved filter, evaluated by the server

Examples:
  todosync list
  todosync list label:errands
  todosync list --filter "p1 & overdue"
  todosync list --refresh inbox`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		query, _ := cmd.Flags().GetString("filter")
		refresh, _ := cmd.Flags().GetBool("refresh")

		id := view.Today
		if len(args) == 1 {
			parsed, err := view.ParseViewID(args[0])
			if err != nil {
				fatalf("%v", err)
			}
			id = parsed
		}
		if query != "" {
			id = view.Search
		}

		online := refresh || query != "" || strings.HasPrefix(string(id), "filter:")
		a := mustOpen(ctx, appOptions{online: online})
		defer a.close()
		if refresh {
			refreshQuietly(ctx, a)
		}
		a.requireCache()

		cached := a.store.Read()
		if query == "" {
			if q, ok := view.FilterQuery(cached, id); ok {
				query = q
			}
		}

		var p view.Projection
		var err error
		if query != "" {
			tasks, err := a.driver.ListTasks(ctx, query)
			if err != nil {
				fatalf("%v", err)
			}
			p, err = a.projector.Project(ctx, tasks, id, view.ContextFromSnapshot(cached))
			if err != nil {
				fatalf("%v", err)
			}
		} else {
			p, err = a.projector.ProjectSnapshot(ctx, cached, id)
			if errors.Is(err, view.ErrServerQuery) {
				fatalf("unknown filter in %s", id)
			}
			if err != nil {
				fatalf("%v", err)
			}
		}

		if jsonOutput {
			outputJSON(p)
			return
		}
		ui.RenderControls(os.Stdout, p)
		fmt.Println()
		ui.RenderProjection(os.Stdout, p, a.taskLine(cached))
	},
}

var viewCmd = &cobra.Command{
	Use:     "view",
	GroupID: "tasks",
	Short:   "Show or change how a view sorts and groups tasks",
}

var viewGetCmd = &cobra.Command{
	Use:   "get <view>",
	Short: "Show a view's sort, group and order",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		id, err := view.ParseViewID(args[0])
		if err != nil {
			fatalf("%v", err)
		}
		a := mustOpen(ctx, appOptions{})
		defer a.close()

		p, err := a.projector.ProjectSnapshot(ctx, a.store.Read(), id)
		if errors.Is(err, view.ErrServerQuery) {
			p, err = a.projector.Project(ctx, nil, id, view.ContextFromSnapshot(a.store.Read()))
		}
		if err != nil {
			fatalf("%v", err)
		}
		p.Sections = nil

		if jsonOutput {
			outputJSON(p)
			return
		}
		ui.RenderControls(os.Stdout, p)
		printOptions("sort", p.Sort)
		printOptions("group", p.Group)
		if p.Order != nil {
			printOptions("order", *p.Order)
		}
	},
}

var viewSetCmd = &cobra.Command{
	Use:   "set <view>",
	Short: "Change a view's sort, group or order",
	Long: `Change how a view sorts and groups tasks. Settings persist per view.

Examples:
  todosync view set today --sort priority --order desc
  todosync view set project:2203306141 --group label`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		id, err := view.ParseViewID(args[0])
		if err != nil {
			fatalf("%v", err)
		}
		a := mustOpen(ctx, appOptions{})
		defer a.close()

		state, err := a.projector.State(ctx, id)
		if err != nil {
			fatalf("%v", err)
		}
		if cmd.Flags().Changed("sort") {
			s, _ := cmd.Flags().GetString("sort")
			if state.Sort, err = view.ParseSortKey(s); err != nil {
				fatalf("%v", err)
			}
		}
		if cmd.Flags().Changed("group") {
			s, _ := cmd.Flags().GetString("group")
			if state.Group, err = view.ParseGroupKey(s); err != nil {
				fatalf("%v", err)
			}
		}
		if cmd.Flags().Changed("order") {
			s, _ := cmd.Flags().GetString("order")
			if state.Order, err = view.ParseOrder(s); err != nil {
				fatalf("%v", err)
			}
		}
		if err := a.projector.SetState(ctx, id, state); err != nil {
			fatalf("%v", err)
		}
		fmt.Printf("%s %s sort=%s group=%s order=%s\n", ui.RenderPass("✓"), id, state.Sort, state.Group, state.Order)
	},
}

var viewSaveCmd = &cobra.Command{
	Use:   "save",
	Short: "Write every configured view to the presets file",
	Long: `Write the saved settings of every view to the presets file, so a fresh cache
starts with the same sorting and grouping.`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		a := mustOpen(ctx, appOptions{})
		defer a.close()

		states, err := a.db.ViewStates(ctx)
		if err != nil {
			fatalf("%v", err)
		}
		presets, err := config.LoadPresets(a.cfg.PresetsFile)
		if err != nil {
			fatalf("%v", err)
		}
		if presets == nil {
			presets = make(map[view.ViewID]view.State, len(states))
		}
		for id, s := range states {
			presets[id] = s
		}
		if err := config.WritePresets(a.cfg.PresetsFile, presets); err != nil {
			fatalf("%v", err)
		}
		fmt.Printf("%s Saved %d view(s) to %s\n", ui.RenderPass("✓"), len(presets), a.cfg.PresetsFile)
	},
}

func printOptions(name string, c view.Control) {
	values := make([]string, 0, len(c.Options))
	for _, o := range c.Options {
		values = append(values, o.Value)
	}
	fmt.Printf("  %-6s %v\n", name, values)
}

func init() {
	listCmd.Flags().String("filter", "", "Evaluate a filter query on the server")
	listCmd.Flags().Bool("refresh", false, "Pull changes before listing")

	viewSetCmd.Flags().String("sort", "", "Sort key (default, name, date, priority, project, assignee)")
	viewSetCmd.Flags().String("group", "", "Group key (default, date, priority, project, label, assignee)")
	viewSetCmd.Flags().String("order", "", "Order (asc, desc)")

	viewCmd.AddCommand(viewGetCmd)
	viewCmd.AddCommand(viewSetCmd)
	viewCmd.AddCommand(viewSaveCmd)

	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(viewCmd)
}
