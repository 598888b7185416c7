package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/mschirtzinger/todosync/internal/api"
	"github.com/mschirtzinger/todosync/internal/cache"
	"github.com/mschirtzinger/todosync/internal/command"
	"github.com/mschirtzinger/todosync/internal/config"
	"github.com/mschirtzinger/todosync/internal/db"
	"github.com/mschirtzinger/todosync/internal/logging"
	"github.com/mschirtzinger/todosync/internal/schema"
	todosync "github.com/mschirtzinger/todosync/internal/sync"
	"github.com/mschirtzinger/todosync/internal/ui"
	"github.com/mschirtzinger/todosync/internal/view"
)

// app holds everything a command needs.
type app struct {
	cfg       *config.Config
	logs      *logging.Output
	db        *db.DB
	store     *cache.Store
	projector *view.Projector

	// Nil for offline commands.
	client  *api.Client
	driver  todosync.Driver
	mutator *command.Mutator
}

type appOptions struct {
	online bool // needs the API token
	stderr bool // long-running: log to stderr when no log file is set
}

func openApp(ctx context.Context, opts appOptions) (*app, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg}
	a.logs = openLogs(cfg, opts.stderr)

	a.db, err = db.Open(cfg.CachePath)
	if err != nil {
		a.close()
		return nil, fmt.Errorf("failed to open cache: %w", err)
	}
	if err := a.db.InitSchemaContext(ctx); err != nil {
		a.close()
		return nil, fmt.Errorf("failed to initialize cache: %w", err)
	}

	a.store = cache.New(a.db)
	if _, err := a.store.Load(ctx); err != nil {
		a.close()
		return nil, err
	}

	presets, err := config.LoadPresets(cfg.PresetsFile)
	if err != nil {
		a.close()
		return nil, err
	}
	a.projector = view.NewProjector(a.db, &view.Config{Presets: presets})

	if !opts.online {
		return a, nil
	}

	apiCfg, err := cfg.API()
	if err != nil {
		a.close()
		return nil, err
	}
	apiCfg.Logger = a.logs.Logger("api")
	a.client, err = api.New(apiCfg)
	if err != nil {
		a.close()
		return nil, err
	}
	a.driver = todosync.New(a.store, a.client, a.logs.Logger("sync"))
	a.mutator = command.New(a.store, a.client, command.NotifierFunc(notify), &command.Options{
		RollbackOnFailure: cfg.RollbackOnFailure,
		Logger:            a.logs.Logger("mutator"),
	})
	return a, nil
}

func openLogs(cfg *config.Config, stderr bool) *logging.Output {
	file := cfg.LogFile
	if logFile != "" {
		file = logFile
	}
	if file == "" && !verbose && !stderr {
		return logging.Discard()
	}
	return logging.Open(logging.Config{File: file, Verbose: verbose})
}

// mustOpen opens the app or exits.
func mustOpen(ctx context.Context, opts appOptions) *app {
	a, err := openApp(ctx, opts)
	if err != nil {
		fatalf("%v", err)
	}
	return a
}

func (a *app) close() {
	if a.db != nil {
		_ = a.db.Close()
	}
	if a.logs != nil {
		_ = a.logs.Close()
	}
}

// requireCache exits when nothing was ever synced.
func (a *app) requireCache() {
	if a.store.Cursor() == schema.WildcardCursor {
		fatalf("cache is empty, run 'todosync sync' first")
	}
}

// taskLine returns the renderer for stdout.
func (a *app) taskLine(snap schema.Snapshot) ui.TaskLine {
	line := ui.TaskLine{
		Projects: schema.ProjectNames(snap.Projects),
		Now:      time.Now(),
		Location: time.Local,
	}
	if ui.IsTerminal(os.Stdout) {
		line.Width = ui.Width(os.Stdout)
	}
	return line
}

// mutate runs intents and reports each outcome. It exits 1 when any intent
// failed.
func (a *app) mutate(ctx context.Context, intents ...command.Intent) []command.Outcome {
	outs, err := a.mutator.MutateBatch(ctx, intents...)
	if err != nil {
		fatalf("%v", err)
	}
	if jsonOutput {
		outputJSON(outs)
	}
	failed := false
	for _, o := range outs {
		if !o.OK() {
			failed = true
			continue
		}
		if !jsonOutput {
			fmt.Printf("%s %s %s\n", ui.RenderPass("✓"), pastTense(o.Intent), ui.RenderMuted(o.ID))
		}
	}
	if failed {
		a.close()
		os.Exit(1)
	}
	return outs
}

func pastTense(in command.Intent) string {
	switch in.Action {
	case command.ActionAdd:
		return "Created"
	case command.ActionClose:
		return "Completed"
	case command.ActionUncomplete:
		return "Reopened"
	case command.ActionDelete:
		return "Deleted"
	case command.ActionMove:
		return "Moved"
	case command.ActionArchive:
		return "Archived"
	}
	return "Updated"
}

func notify(n command.Notification) {
	fmt.Fprintf(os.Stderr, "%s %s\n", ui.RenderFail("✗"), n.Title)
	if n.Message != "" {
		fmt.Fprintf(os.Stderr, "  %s\n", n.Message)
	}
}

// resolveProject accepts a project id or a case-insensitive name.
func resolveProject(snap schema.Snapshot, s string) (string, error) {
	if _, ok := snap.Project(s); ok {
		return s, nil
	}
	s = strings.TrimPrefix(s, "#")
	var match string
	for _, p := range snap.Projects {
		if strings.EqualFold(p.Name, s) {
			if match != "" {
				return "", fmt.Errorf("project name %q is ambiguous, use the id", s)
			}
			match = p.ID
		}
	}
	if match == "" {
		return "", fmt.Errorf("unknown project %q", s)
	}
	return match, nil
}

// parsePriority converts the UI priority (1 is most urgent) to a stored
// priority.
func parsePriority(p int) (int, error) {
	if p < 1 || p > 4 {
		return 0, fmt.Errorf("priority must be between 1 and 4 (got %d)", p)
	}
	return schema.PriorityUrgent + schema.PriorityLow - p, nil
}
