package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"workdash/internal/dashboard"
	"workdash/internal/sync"
	"workdash/internal/ui"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the dashboard API over the local cache",
	Long: `Start the dashboard HTTP server.

Endpoints:
  GET  /api/items   Cached work items (optional ?state= and ?assignee= filters)
  GET  /api/stats   Cache statistics (totals by state)
  POST /api/sync    Run one reconciliation pass (?full=true to re-fetch all)
  GET  /health      Server health
  GET  /ws          WebSocket notifications (sync_complete, stats)

If the cache is empty at startup, one reconciliation pass runs first so
the dashboard has data to show.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig()
		if servePort != 0 {
			cfg.Port = servePort
		}

		store := openCache(cfg)
		defer store.Close()

		rec := newReconciler(cfg, store)

		count, err := store.CountItems()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error reading cache: %v\n", err)
			os.Exit(1)
		}
		if count == 0 {
			fmt.Printf("%s No local data found, downloading from Azure DevOps...\n", ui.RenderAccent("📡"))
			if _, err := rec.Reconcile(context.Background(), sync.Options{}); err != nil {
				fmt.Fprintf(os.Stderr, "Error during initial sync: %v\n", err)
				os.Exit(1)
			}
		}

		server := dashboard.NewServer(store, rec, &dashboard.Config{
			Port:   cfg.Port,
			Logger: newLogger("dashboard"),
		})

		if err := server.Start(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: failed to start dashboard: %v\n", err)
			os.Exit(1)
		}

		fmt.Printf("%s Dashboard running on http://localhost%s\n", ui.RenderPass("✓"), portSuffix(server.Addr()))
		fmt.Println("\nPress Ctrl+C to stop...")

		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer cancel()

		<-ctx.Done()

		fmt.Println("\nShutting down...")
		if err := server.Stop(); err != nil {
			fmt.Fprintf(os.Stderr, "Error during shutdown: %v\n", err)
			os.Exit(1)
		}
	},
}

// portSuffix extracts ":port" from a host:port address for display.
func portSuffix(addr string) string {
	for i := len(addr) - 1; i >= 0; i-- {
		if addr[i] == ':' {
			return addr[i:]
		}
	}
	return addr
}

func init() {
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 0, "Port to listen on (overrides config)")
	rootCmd.AddCommand(serveCmd)
}
