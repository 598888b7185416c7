package main

import (
	"fmt"
	"log"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/mschirtzinger/todosync/internal/daemon"
	"github.com/mschirtzinger/todosync/internal/dashboard"
	todosync "github.com/mschirtzinger/todosync/internal/sync"
)

var daemonCmd = &cobra.Command{
	Use:     "daemon",
	GroupID: "sync",
	Short:   "Keep the cache in sync in the background",
	Long: `Run in the foreground, pulling changes from the server on an interval.

The daemon also watches the cache database, so writes from other todosync
processes (for example 'todosync add' in another shell) are picked up without
waiting for the next refresh.

If the server is unreachable at startup, the daemon keeps serving the cached
data and retries on the next interval.`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer cancel()

		interval, _ := cmd.Flags().GetDuration("interval")
		a := mustOpen(ctx, appOptions{online: true, stderr: true})
		defer a.close()

		logger := a.logs.Logger("daemon")
		d := newDaemon(a, interval, logger, func(res *todosync.Result, err error) {
			if err != nil {
				logger.Printf("Refresh failed: %v", err)
			}
		})

		fmt.Println("Daemon started. Press Ctrl+C to stop...")
		if err := d.Start(ctx); err != nil {
			fatalf("daemon stopped with error: %v", err)
		}
		fmt.Println("Daemon stopped")
	},
}

var dashboardCmd = &cobra.Command{
	Use:     "dashboard",
	GroupID: "advanced",
	Short:   "Start a real-time WebSocket dashboard",
	Long: `Start a WebSocket dashboard server backed by a sync daemon.

Connected clients receive a message for every cache change and every sync.

WebSocket messages include:
- snapshot_changed: An entity was patched, removed or remapped, or the snapshot was replaced
- sync_complete: A refresh finished (with an error field on failure)
- command_outcome: A command was confirmed or rejected
- stats: Cursor and entity counts (sent on connect)

HTTP endpoints:
  /health          Cursor, entity counts and client count
  /views/{view}    The projection of a view as JSON

Example usage:
  todosync dashboard                   # Start on the configured port
  todosync dashboard --port 9000       # Start on custom port`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer cancel()

		interval, _ := cmd.Flags().GetDuration("interval")
		a := mustOpen(ctx, appOptions{online: true, stderr: true})
		defer a.close()

		port := a.cfg.DashboardPort
		if cmd.Flags().Changed("port") {
			port, _ = cmd.Flags().GetInt("port")
		}

		logger := a.logs.Logger("dashboard")
		server := dashboard.NewServer(&dashboard.Config{Port: port, Logger: logger})
		handler := dashboard.NewHandler(server, a.store, a.projector, logger)
		detach := handler.Attach()
		defer detach()

		if err := server.Start(); err != nil {
			fatalf("failed to start dashboard: %v", err)
		}

		d := newDaemon(a, interval, a.logs.Logger("daemon"), handler.OnSyncComplete)

		addr := server.GetAddr()
		if _, p, err := net.SplitHostPort(addr); err == nil {
			addr = "localhost:" + p
		}
		fmt.Printf("Dashboard server started on http://%s\n", addr)
		fmt.Printf("WebSocket endpoint: ws://%s/ws\n", addr)
		fmt.Printf("Health check: http://%s/health\n", addr)
		fmt.Println("\nPress Ctrl+C to stop...")

		// Start blocks until the signal arrives.
		daemonErr := d.Start(ctx)

		fmt.Println("\nShutting down dashboard server...")
		if err := server.Stop(); err != nil {
			fmt.Fprintf(os.Stderr, "Error during shutdown: %v\n", err)
		}
		if daemonErr != nil {
			fatalf("daemon stopped with error: %v", daemonErr)
		}
		fmt.Println("Dashboard server stopped")
	},
}

func newDaemon(a *app, interval time.Duration, logger *log.Logger, onRefresh func(*todosync.Result, error)) *daemon.Daemon {
	cfg := daemon.DefaultConfig()
	cfg.RefreshInterval = a.cfg.RefreshInterval
	if interval > 0 {
		cfg.RefreshInterval = interval
	}
	cfg.Logger = logger
	cfg.OnRefresh = onRefresh

	d, err := daemon.New(a.store, a.driver, a.db, cfg)
	if err != nil {
		fatalf("failed to create daemon: %v", err)
	}
	return d
}

func init() {
	daemonCmd.Flags().Duration("interval", 0, "Refresh interval (default: refresh_interval from config)")
	dashboardCmd.Flags().Duration("interval", 0, "Refresh interval (default: refresh_interval from config)")
	dashboardCmd.Flags().IntP("port", "p", 8080, "Port to listen on")

	rootCmd.AddCommand(daemonCmd)
	rootCmd.AddCommand(dashboardCmd)
}
