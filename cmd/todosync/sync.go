package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/mschirtzinger/todosync/internal/schema"
	todosync "github.com/mschirtzinger/todosync/internal/sync"
	"github.com/mschirtzinger/todosync/internal/ui"
)

var syncCmd = &cobra.Command{
	Use:     "sync",
	GroupID: "sync",
	Short:   "Download full state from the server",
	Long: `Discard the local cache and download every resource from the server.

Unconfirmed local changes are dropped. Use 'todosync refresh' to pull only
what changed since the last sync.`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		a := mustOpen(ctx, appOptions{online: true})
		defer a.close()

		res, err := a.driver.Bootstrap(ctx)
		if err != nil {
			fatalf("%v", err)
		}
		printResult(res)
	},
}

var refreshCmd = &cobra.Command{
	Use:     "refresh",
	GroupID: "sync",
	Short:   "Pull changes since the last sync",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		a := mustOpen(ctx, appOptions{online: true})
		defer a.close()

		res, err := a.driver.Refresh(ctx)
		if err != nil {
			fatalf("%v", err)
		}
		printResult(res)
	},
}

var statusCmd = &cobra.Command{
	Use:     "status",
	GroupID: "sync",
	Short:   "Show cache status",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		withStats, _ := cmd.Flags().GetBool("stats")
		a := mustOpen(ctx, appOptions{online: withStats})
		defer a.close()

		counts, err := a.db.EntityCountsContext(ctx)
		if err != nil {
			fatalf("failed to count cached entities: %v", err)
		}
		saved, ok, err := a.db.LastSaved(ctx)
		if err != nil {
			fatalf("%v", err)
		}

		status := struct {
			Path      string              `json:"path"`
			Cursor    string              `json:"cursor"`
			LastSaved *time.Time          `json:"last_saved,omitempty"`
			Counts    map[schema.Kind]int `json:"counts"`
			Completed *int                `json:"completed,omitempty"`
		}{
			Path:   a.db.Path(),
			Cursor: a.store.Cursor(),
			Counts: counts,
		}
		if ok {
			status.LastSaved = &saved
		}
		if withStats {
			stats, err := a.client.CompletedStats(ctx)
			if err != nil {
				fatalf("failed to get stats: %v", err)
			}
			status.Completed = &stats.CompletedCount
		}

		if jsonOutput {
			outputJSON(status)
			return
		}

		fmt.Printf("%s %s\n", ui.RenderAccent("Cache:"), status.Path)
		if status.Cursor == schema.WildcardCursor {
			fmt.Printf("%s never synced\n", ui.RenderWarn("Cursor:"))
		} else {
			fmt.Printf("%s %s\n", ui.RenderAccent("Cursor:"), status.Cursor)
		}
		if status.LastSaved != nil {
			fmt.Printf("%s %s\n", ui.RenderAccent("Saved:"), status.LastSaved.Local().Format(time.DateTime))
		}
		for _, kind := range schema.AllKinds {
			if n := counts[kind]; n > 0 {
				fmt.Printf("  %-20s %d\n", kind, n)
			}
		}
		if status.Completed != nil {
			fmt.Printf("%s %d\n", ui.RenderAccent("Completed:"), *status.Completed)
		}
	},
}

func printResult(res *todosync.Result) {
	if jsonOutput {
		outputJSON(res)
		return
	}
	mode := "incremental"
	if res.FullSync {
		mode = "full"
	}
	fmt.Printf("%s Synced (%s) in %s: %d tasks, %d projects\n",
		ui.RenderPass("✓"), mode, res.Duration.Round(time.Millisecond),
		res.Counts[schema.KindTask], res.Counts[schema.KindProject])
}

// refreshQuietly refreshes before a read when online, and falls back to the
// cache when the server is unreachable.
func refreshQuietly(ctx context.Context, a *app) {
	if a.driver == nil {
		return
	}
	if _, err := a.driver.Refresh(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "%s %v (showing cached data)\n", ui.RenderWarn("Warning:"), err)
	}
}

func init() {
	statusCmd.Flags().Bool("stats", false, "Include completion stats from the server")

	rootCmd.AddCommand(syncCmd)
	rootCmd.AddCommand(refreshCmd)
	rootCmd.AddCommand(statusCmd)
}
