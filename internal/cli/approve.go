package cli

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/aide-sh/aide/pkg/models"
	"github.com/spf13/cobra"
)

var approveList bool

// priorityOrder defines the display order for the picker (high first).
var priorityOrder = map[models.Priority]int{
	models.PriorityHigh:   0,
	models.PriorityMedium: 1,
	models.PriorityLow:    2,
}

var approveCmd = &cobra.Command{
	Use:   "approve",
	Short: "Review pending items and approve them",
	Long: `List the work items waiting in Needs_Action/ and pick one to approve.
Approving stamps the frontmatter and moves the file to Approved/, where the
actors (post, email-server) will find it.

Editing the file before approving is fine; anything you change travels with
it. Use --list to print the queue without approving.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		items, err := Store.Pending()
		if err != nil {
			return fmt.Errorf("listing pending items: %w", err)
		}
		if len(items) == 0 {
			fmt.Println("Nothing waiting in Needs_Action/.")
			return nil
		}

		sort.SliceStable(items, func(i, j int) bool {
			return priorityOrder[items[i].Priority] < priorityOrder[items[j].Priority]
		})

		printPendingTable(items)
		if approveList {
			return nil
		}

		item, err := pickPendingItem(items)
		if err != nil {
			return err
		}
		if err := Store.Approve(item.Path); err != nil {
			return fmt.Errorf("approving %s: %w", filepath.Base(item.Path), err)
		}
		fmt.Printf("Approved %s.\n", filepath.Base(item.Path))
		return nil
	},
}

func printPendingTable(items []*models.WorkItem) {
	fmt.Println("\nPending items:")
	fmt.Println()
	fmt.Printf("  %-4s %-10s %-6s %-24s %s\n", "#", "TYPE", "PRI", "SENDER", "PREVIEW")
	fmt.Printf("  %-4s %-10s %-6s %-24s %s\n", "---", "----", "---", "------", "-------")
	for i, item := range items {
		fmt.Printf("  %-4d %-10s %-6s %-24s %s\n",
			i+1, item.Type, item.Priority,
			clip(itemSender(item), 24), clip(itemPreview(item), 50))
	}
	fmt.Println()
}

func pickPendingItem(items []*models.WorkItem) (*models.WorkItem, error) {
	reader := bufio.NewReader(os.Stdin)
	for {
		fmt.Printf("Approve item [1-%d] (or 'q' to cancel): ", len(items))
		input, err := reader.ReadString('\n')
		if err != nil {
			return nil, fmt.Errorf("reading input: %w", err)
		}

		input = strings.TrimSpace(input)
		if strings.EqualFold(input, "q") {
			return nil, fmt.Errorf("cancelled")
		}

		num, err := strconv.Atoi(input)
		if err != nil || num < 1 || num > len(items) {
			fmt.Printf("  Invalid selection. Enter a number between 1 and %d.\n", len(items))
			continue
		}
		return items[num-1], nil
	}
}

func itemSender(item *models.WorkItem) string {
	if s := item.Field("sender"); s != "" {
		return s
	}
	return item.Field("from")
}

func itemPreview(item *models.WorkItem) string {
	for _, field := range []string{"subject", "preview", "message_preview"} {
		if s := item.Field(field); s != "" {
			return s
		}
	}
	return ""
}

func clip(s string, n int) string {
	if len(s) > n {
		return s[:n-3] + "..."
	}
	return s
}

func init() {
	approveCmd.Flags().BoolVar(&approveList, "list", false, "print the pending queue without approving")
	rootCmd.AddCommand(approveCmd)
}
