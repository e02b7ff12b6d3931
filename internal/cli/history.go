package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/CairBin/sc2replay-autofix/pkg/models"
	"github.com/CairBin/sc2replay-autofix/pkg/utils"
	"github.com/spf13/cobra"
)

// historyCmd represents the history command
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recorded fix outcomes",
	Long:  `Display the most recent fix outcomes recorded by watch, fix and sweep runs.`,
	RunE:  runHistory,
}

var historyPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete old history records",
	RunE:  runHistoryPrune,
}

func init() {
	historyCmd.Flags().Int("limit", 20, "Number of records to display (0 = all)")
	historyCmd.Flags().String("outcome", "", "Filter by outcome (fixed, pattern_not_found, invalid_format, io_failure)")
	historyCmd.Flags().Bool("json", false, "Output records in JSON format")

	historyPruneCmd.Flags().String("older-than", "30d", "Delete records older than this (e.g. 72h, 30d)")

	historyCmd.AddCommand(historyPruneCmd)
}

func runHistory(cmd *cobra.Command, args []string) error {
	limit, _ := cmd.Flags().GetInt("limit")
	outcome, _ := cmd.Flags().GetString("outcome")
	jsonOutput, _ := cmd.Flags().GetBool("json")

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	repo, closeHistory, err := openHistory(cfg, true)
	if err != nil {
		return fmt.Errorf("failed to open history (is 'sc2fix watch' running?): %w", err)
	}
	defer closeHistory()

	if repo == nil {
		fmt.Printf("📜 No history recorded yet\n")
		return nil
	}

	records, err := repo.List(limit, models.Outcome(outcome))
	if err != nil {
		return fmt.Errorf("failed to read history: %w", err)
	}

	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(records)
	}

	fmt.Printf("📜 Fix History\n")
	fmt.Printf("═══════════════════════════════════════\n\n")

	if len(records) == 0 {
		fmt.Printf("  No matching records\n")
		return nil
	}

	now := time.Now()
	for _, rec := range records {
		fmt.Printf("[%s] %s %-17s %-6s %s\n",
			rec.Timestamp.Local().Format("2006-01-02 15:04:05"),
			utils.OutcomeIcon(rec.Outcome),
			rec.Outcome,
			rec.Source,
			utils.TruncateLeft(rec.Path, 70),
		)
		if rec.Error != "" {
			fmt.Printf("    %s\n", rec.Error)
		}
	}

	oldest := records[len(records)-1].Timestamp
	fmt.Printf("\n%d records, oldest %s ago\n", len(records), utils.FormatDuration(now.Sub(oldest)))
	return nil
}

func runHistoryPrune(cmd *cobra.Command, args []string) error {
	olderThan, _ := cmd.Flags().GetString("older-than")

	age, err := utils.ParseDuration(olderThan)
	if err != nil {
		return fmt.Errorf("invalid --older-than: %w", err)
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	repo, closeHistory, err := openHistory(cfg, false)
	if err != nil {
		return fmt.Errorf("failed to open history: %w", err)
	}
	defer closeHistory()

	if repo == nil {
		fmt.Printf("📜 History is disabled\n")
		return nil
	}

	removed, err := repo.Prune(time.Now().Add(-age))
	if err != nil {
		return fmt.Errorf("failed to prune history: %w", err)
	}

	fmt.Printf("🗑️  Removed %d records older than %s\n", removed, utils.FormatDuration(age))
	return nil
}
