package daemon

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/mschirtzinger/todosync/internal/cache"
	todosync "github.com/mschirtzinger/todosync/internal/sync"
)

// Config holds configuration for the daemon.
type Config struct {
	// RefreshInterval is how often to pull changes from the server
	RefreshInterval time.Duration

	// DebounceInterval is how long to wait after the last database write
	// before reloading. SQLite touches the main file and the WAL together.
	DebounceInterval time.Duration

	// OnRefresh is called after every refresh attempt, successful or not
	OnRefresh func(*todosync.Result, error)

	// Logger for daemon activity
	Logger *log.Logger
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		RefreshInterval:  30 * time.Second,
		DebounceInterval: 250 * time.Millisecond,
		Logger:           log.New(os.Stderr, "[daemon] ", log.LstdFlags),
	}
}

// CursorSource reports the cursor of the persisted snapshot. *db.DB
// implements it.
type CursorSource interface {
	Path() string
	CursorContext(ctx context.Context) (string, bool, error)
}

// Daemon refreshes the store and follows cache writes from other processes.
type Daemon struct {
	store   *cache.Store
	driver  todosync.Driver
	cursors CursorSource
	config  *Config

	watcher   *fsnotify.Watcher
	dir       string
	base      string
	changedAt time.Time
	changedMu sync.Mutex

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a new Daemon.
//
// The daemon requires:
//   - store: the in-memory cache it keeps current
//   - driver: the sync driver used for periodic refreshes
//   - cursors: the cache database, watched for writes by other processes
//
// Use Start() to begin.
func New(store *cache.Store, driver todosync.Driver, cursors CursorSource, config *Config) (*Daemon, error) {
	if store == nil {
		return nil, fmt.Errorf("store cannot be nil")
	}
	if driver == nil {
		return nil, fmt.Errorf("driver cannot be nil")
	}
	if cursors == nil || cursors.Path() == "" {
		return nil, fmt.Errorf("cache database cannot be empty")
	}
	if config == nil {
		config = DefaultConfig()
	}
	if config.Logger == nil {
		config.Logger = DefaultConfig().Logger
	}
	if config.RefreshInterval <= 0 {
		config.RefreshInterval = DefaultConfig().RefreshInterval
	}
	if config.DebounceInterval <= 0 {
		config.DebounceInterval = DefaultConfig().DebounceInterval
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())

	path := cursors.Path()
	return &Daemon{
		store:   store,
		driver:  driver,
		cursors: cursors,
		config:  config,
		watcher: watcher,
		dir:     filepath.Dir(path),
		base:    filepath.Base(path),
		ctx:     ctx,
		cancel:  cancel,
	}, nil
}

// Start begins the daemon's operation.
//
// The daemon will:
//  1. Load the persisted cache and refresh it from the server
//  2. Start watching the cache database for outside writes
//  3. Refresh periodically
//
// An initial refresh failure is fatal only when there is no persisted cache
// to fall back on. This blocks until ctx is cancelled.
func (d *Daemon) Start(ctx context.Context) error {
	d.config.Logger.Println("Starting daemon")

	loaded, err := d.store.Load(ctx)
	if err != nil {
		return fmt.Errorf("failed to load cache: %w", err)
	}
	if _, err := d.refresh(ctx); err != nil {
		if !loaded {
			return fmt.Errorf("initial sync failed: %w", err)
		}
		d.config.Logger.Printf("Warning: initial refresh failed, serving cached data: %v", err)
	}

	if err := d.watcher.Add(d.dir); err != nil {
		return fmt.Errorf("failed to watch cache directory: %w", err)
	}
	d.config.Logger.Printf("Watching: %s", filepath.Join(d.dir, d.base))

	d.wg.Add(3)
	go d.watchFileEvents()
	go d.processChanges()
	go d.refreshLoop()

	select {
	case <-ctx.Done():
		d.config.Logger.Println("Shutdown signal received")
		return d.Stop()
	case <-d.ctx.Done():
		return nil
	}
}

// Stop gracefully shuts down the daemon.
func (d *Daemon) Stop() error {
	d.config.Logger.Println("Stopping daemon")

	d.cancel()

	if err := d.watcher.Close(); err != nil {
		d.config.Logger.Printf("Error closing watcher: %v", err)
	}

	d.wg.Wait()

	d.config.Logger.Println("Daemon stopped")
	return nil
}

// Refresh runs one refresh outside the schedule.
func (d *Daemon) Refresh(ctx context.Context) (*todosync.Result, error) {
	return d.refresh(ctx)
}

// ReloadIfChanged reloads the store from the cache database when another
// process persisted a different cursor. It reports whether it reloaded.
func (d *Daemon) ReloadIfChanged(ctx context.Context) (bool, error) {
	persisted, ok, err := d.cursors.CursorContext(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to read persisted cursor: %w", err)
	}
	if !ok || persisted == d.store.Cursor() {
		return false, nil
	}
	if _, err := d.store.Load(ctx); err != nil {
		return false, err
	}
	d.config.Logger.Printf("Reloaded cache at cursor %s", persisted)
	return true, nil
}

func (d *Daemon) refresh(ctx context.Context) (*todosync.Result, error) {
	res, err := d.driver.Refresh(ctx)
	if d.config.OnRefresh != nil {
		d.config.OnRefresh(res, err)
	}
	return res, err
}

// watchFileEvents notes writes to the cache database.
func (d *Daemon) watchFileEvents() {
	defer d.wg.Done()

	for {
		select {
		case <-d.ctx.Done():
			return

		case event, ok := <-d.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Create|fsnotify.Write) == 0 {
				continue
			}
			if !strings.HasPrefix(filepath.Base(event.Name), d.base) {
				continue
			}
			d.changedMu.Lock()
			d.changedAt = time.Now()
			d.changedMu.Unlock()

		case err, ok := <-d.watcher.Errors:
			if !ok {
				return
			}
			d.config.Logger.Printf("Watcher error: %v", err)
		}
	}
}

// processChanges reloads once writes have settled.
func (d *Daemon) processChanges() {
	defer d.wg.Done()

	ticker := time.NewTicker(d.config.DebounceInterval)
	defer ticker.Stop()

	for {
		select {
		case <-d.ctx.Done():
			return

		case <-ticker.C:
			if !d.settled(time.Now()) {
				continue
			}
			if _, err := d.ReloadIfChanged(d.ctx); err != nil {
				d.config.Logger.Printf("Error reloading cache: %v", err)
			}
		}
	}
}

// settled reports whether a write is pending and the debounce window has
// passed since the last one, clearing the pending write if so.
func (d *Daemon) settled(now time.Time) bool {
	d.changedMu.Lock()
	defer d.changedMu.Unlock()

	if d.changedAt.IsZero() || now.Sub(d.changedAt) < d.config.DebounceInterval {
		return false
	}
	d.changedAt = time.Time{}
	return true
}

// refreshLoop pulls changes from the server on every tick.
func (d *Daemon) refreshLoop() {
	defer d.wg.Done()

	ticker := time.NewTicker(d.config.RefreshInterval)
	defer ticker.Stop()

	for {
		select {
		case <-d.ctx.Done():
			return

		case <-ticker.C:
			res, err := d.refresh(d.ctx)
			if err != nil {
				d.config.Logger.Printf("Error refreshing: %v", err)
				continue
			}
			if res.FullSync {
				d.config.Logger.Printf("Server sent full state at cursor %s", res.Cursor)
			}
		}
	}
}
