package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"workdash/internal/ui"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show local cache status",
	Long: `Display the current status of the local work-item cache.

Shows:
  - Cache file location and size
  - Number of cached work items
  - Last modification time`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig()

		info, err := os.Stat(cfg.CachePath)
		if os.IsNotExist(err) {
			fmt.Printf("\n%s Cache not initialized\n", ui.RenderWarn("⚠"))
			fmt.Printf("   Run 'workdash sync' to create it\n\n")
			return
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error checking cache: %v\n", err)
			os.Exit(1)
		}

		store := openCache(cfg)
		defer store.Close()

		count, err := store.CountItems()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error counting work items: %v\n", err)
			os.Exit(1)
		}

		size := info.Size()
		sizeStr := fmt.Sprintf("%d bytes", size)
		if size > 1024*1024 {
			sizeStr = fmt.Sprintf("%.1f MB", float64(size)/(1024*1024))
		} else if size > 1024 {
			sizeStr = fmt.Sprintf("%.1f KB", float64(size)/1024)
		}

		fmt.Printf("\n%s Cache Status\n\n", ui.RenderAccent("📊"))
		fmt.Printf("Location:   %s\n", cfg.CachePath)
		fmt.Printf("Size:       %s\n", sizeStr)
		fmt.Printf("Work items: %d\n", count)
		fmt.Printf("Modified:   %s\n", info.ModTime().Format("2006-01-02 15:04:05"))
		fmt.Println()
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
