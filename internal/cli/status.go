package cli

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Print a workspace summary",
	Long: `Print the current workspace state: item counts per directory, today's
activity from the audit log, and any triggered alerts.

For a live view, use 'aide dashboard'.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if MetricsCalc == nil {
			return fmt.Errorf("metrics calculator not initialized")
		}

		m, err := MetricsCalc.Calculate()
		if err != nil {
			return fmt.Errorf("calculating metrics: %w", err)
		}

		fmt.Println("== WORKSPACE ==")
		fmt.Printf("  %-14s %d\n", "Needs_Action", m.PendingItems)
		fmt.Printf("  %-14s %d\n", "Approved", m.ApprovedItems)
		fmt.Printf("  %-14s %d\n", "Done", m.DoneItems)
		if len(m.PendingByType) > 0 {
			fmt.Println("\n  Pending by type:")
			for _, line := range sortedCounts(m.PendingByType) {
				fmt.Printf("    %s\n", line)
			}
		}

		fmt.Println("\n== TODAY ==")
		fmt.Printf("  %-14s %d\n", "Actions", m.ActionsToday)
		fmt.Printf("  %-14s %d\n", "Sends", m.SendsToday)
		fmt.Printf("  %-14s %d\n", "Errors", m.ErrorsToday)
		if m.LastActionAt != "" {
			fmt.Printf("  %-14s %s\n", "Last action", m.LastActionAt)
		}
		if Limiter != nil {
			fmt.Printf("  %-14s %d/%d in window\n", "Rate limit", Limiter.Count(), Limiter.Max())
		}

		if AlertEngine != nil {
			alerts, err := AlertEngine.Evaluate()
			if err != nil {
				return fmt.Errorf("evaluating alerts: %w", err)
			}
			fmt.Println("\n== ALERTS ==")
			if len(alerts) == 0 {
				fmt.Println("  None.")
			}
			for _, a := range alerts {
				fmt.Printf("  [%s] %s\n", strings.ToUpper(string(a.Severity)), a.Message)
			}
		}

		return nil
	},
}

func sortedCounts(counts map[string]int) []string {
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	lines := make([]string, 0, len(keys))
	for _, k := range keys {
		lines = append(lines, fmt.Sprintf("%-12s %d", k, counts[k]))
	}
	return lines
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
