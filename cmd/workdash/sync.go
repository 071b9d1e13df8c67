package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"workdash/internal/sync"
	"workdash/internal/ui"
)

var syncFull bool

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Reconcile the local cache with Azure DevOps",
	Long: `Reconcile the local work-item cache with the remote identifier set.

This performs one sync pass:
  1. Lists all remote work-item IDs matching the configured filter
  2. Deletes cached records no longer present remotely
  3. Fetches detail records for IDs not yet cached
  4. Merges them into the cache (insert-or-replace by ID)

Individual fetch failures are skipped and retried on the next sync.
If the remote listing fails, the cache is left untouched.

With --full, every remote work item is re-fetched and replaced, picking up
remote edits to records already cached.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig()
		store := openCache(cfg)
		defer store.Close()

		rec := newReconciler(cfg, store)

		fmt.Printf("%s Checking Azure DevOps for changes...\n", ui.RenderAccent("🔄"))
		start := time.Now()

		result, err := rec.Reconcile(context.Background(), sync.Options{ForceRefetch: syncFull})
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error during sync: %v\n", err)
			os.Exit(1)
		}

		elapsed := time.Since(start)

		if result.NothingNew {
			if result.Deleted > 0 {
				fmt.Printf("%s Removed %d stale items; nothing new to download\n",
					ui.RenderPass("✓"), result.Deleted)
			} else {
				fmt.Printf("%s Nothing new (remote: %d, cached: %d)\n",
					ui.RenderPass("✓"), result.Remote, len(result.Items))
			}
			return
		}

		fmt.Printf("%s Sync complete in %v\n", ui.RenderPass("✓"), elapsed.Round(time.Millisecond))
		fmt.Printf("   Remote:  %d\n", result.Remote)
		fmt.Printf("   Fetched: %d\n", result.Fetched)
		fmt.Printf("   Deleted: %d\n", result.Deleted)
		if result.FetchFailed > 0 {
			fmt.Printf("   %s Failed:  %d (will retry on next sync)\n",
				ui.RenderWarn("⚠"), result.FetchFailed)
		}
		fmt.Printf("   Cache:   %s (%d items)\n", store.Path(), len(result.Items))
	},
}

func init() {
	syncCmd.Flags().BoolVar(&syncFull, "full", false, "Re-fetch every remote work item, not just new ones")
	rootCmd.AddCommand(syncCmd)
}
