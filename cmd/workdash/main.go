// Command workdash synchronizes Azure DevOps work items into a local
// SQLite cache and serves them as a filterable dashboard.
package main

import (
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/natefinch/lumberjack.v2"

	"workdash/internal/azdo"
	"workdash/internal/cache"
	"workdash/internal/config"
	"workdash/internal/sync"
)

var (
	configPath string
	logFile    string
)

var rootCmd = &cobra.Command{
	Use:   "workdash",
	Short: "Azure DevOps backlog dashboard with a local work-item cache",
	Long: `workdash keeps a local SQLite cache of your Azure DevOps work items
and renders them as filterable tables.

The cache is reconciled against the remote on demand: stale records are
deleted, new records are fetched, and everything already cached is left
alone. Reads (list, serve) never touch the network.

Configuration comes from environment variables (WORKDASH_PAT,
WORKDASH_ORGANIZATION_URL, WORKDASH_PROJECT, ...) or a workdash.yaml file.
The personal access token is never stored in the cache or in code.`,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "",
		"Path to config file (default: workdash.yaml in . or ~/.config/workdash)")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "",
		"Write logs to a rotating file instead of stderr")
}

// newLogger returns a component logger honoring --log-file.
func newLogger(component string) *log.Logger {
	prefix := "[" + component + "] "
	if logFile != "" {
		return log.New(&lumberjack.Logger{
			Filename:   logFile,
			MaxSize:    10, // megabytes
			MaxBackups: 3,
			MaxAge:     28, // days
		}, prefix, log.LstdFlags)
	}
	return log.New(os.Stderr, prefix, log.LstdFlags)
}

// loadConfig loads configuration or exits.
func loadConfig() *config.Config {
	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	return cfg
}

// openCache opens the cache and ensures the schema exists, or exits.
func openCache(cfg *config.Config) *cache.Cache {
	store, err := cache.Open(cfg.CachePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening cache: %v\n", err)
		os.Exit(1)
	}
	if err := store.InitSchema(); err != nil {
		_ = store.Close()
		fmt.Fprintf(os.Stderr, "Error initializing cache schema: %v\n", err)
		os.Exit(1)
	}
	return store
}

// newReconciler builds the remote client and reconciler, or exits when the
// remote configuration is incomplete.
func newReconciler(cfg *config.Config, store *cache.Cache) sync.Reconciler {
	if err := cfg.ValidateRemote(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	client, err := azdo.New(azdo.Config{
		OrganizationURL: cfg.OrganizationURL,
		Project:         cfg.Project,
		PAT:             cfg.PAT,
		WorkItemTypes:   cfg.WorkItemTypes,
		AssignedTo:      cfg.AssignedTo,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating Azure DevOps client: %v\n", err)
		os.Exit(1)
	}

	return sync.New(store, client, newLogger("sync"))
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
