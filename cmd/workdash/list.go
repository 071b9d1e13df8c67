package main

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"workdash/internal/ui"
	"workdash/internal/workitem"
)

var (
	listState    string
	listAssignee string
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List cached work items",
	Long: `Render the cached work items as tables.

By default the output is split into completed tasks (state "Done") and
tasks still to close, matching the dashboard layout. Use --state or
--assignee to filter instead.

This command only reads the local cache; run 'workdash sync' first to
refresh it.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig()
		store := openCache(cfg)
		defer store.Close()

		items, err := store.ListItems()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error reading cache: %v\n", err)
			os.Exit(1)
		}

		if listAssignee != "" {
			items = filterByAssignee(items, listAssignee)
		}

		if len(items) == 0 {
			fmt.Printf("%s No cached work items. Run 'workdash sync' first.\n", ui.RenderWarn("⚠"))
			return
		}

		if listState != "" {
			printTable(filterByState(items, listState, false))
			return
		}

		done := filterByState(items, "Done", false)
		open := filterByState(items, "Done", true)

		fmt.Printf("\n%s\n\n", ui.RenderHeader("✅ Completed Tasks"))
		if len(done) > 0 {
			printTable(done)
		} else {
			fmt.Println(ui.RenderDim("No completed tasks."))
		}

		fmt.Printf("\n%s\n\n", ui.RenderHeader("🚧 Tasks To Close"))
		if len(open) > 0 {
			printTable(open)
		} else {
			fmt.Println(ui.RenderDim("No tasks to close."))
		}
		fmt.Println()
	},
}

func filterByState(items []*workitem.WorkItem, state string, invert bool) []*workitem.WorkItem {
	var out []*workitem.WorkItem
	for _, item := range items {
		if (item.State == state) != invert {
			out = append(out, item)
		}
	}
	return out
}

func filterByAssignee(items []*workitem.WorkItem, assignee string) []*workitem.WorkItem {
	var out []*workitem.WorkItem
	for _, item := range items {
		if item.AssignedTo == assignee {
			out = append(out, item)
		}
	}
	return out
}

func printTable(items []*workitem.WorkItem) {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTYPE\tTITLE\tASSIGNED TO\tSTATE\tSTART\tTARGET")
	for _, item := range items {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\t%s\n",
			item.ID,
			item.Type,
			item.Title,
			item.AssignedTo,
			item.State,
			formatDate(item.StartDate),
			formatDate(item.TargetDate),
		)
	}
	_ = w.Flush()
}

func formatDate(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.Format("2006-01-02")
}

func init() {
	listCmd.Flags().StringVar(&listState, "state", "", "Only show items in this state")
	listCmd.Flags().StringVar(&listAssignee, "assignee", "", "Only show items assigned to this display name")
	rootCmd.AddCommand(listCmd)
}
