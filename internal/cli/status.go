package cli

import (
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/CairBin/sc2replay-autofix/pkg/models"
	"github.com/CairBin/sc2replay-autofix/pkg/utils"
	"github.com/spf13/cobra"
)

// statusCmd represents the status command
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show sc2fix status",
	Long: `Display the directories sc2fix would watch and a summary of the
recorded fix history.`,
	RunE: runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	fmt.Printf("🎯 sc2fix Status\n")
	fmt.Printf("═══════════════════════════════════════\n\n")

	fmt.Printf("📡 Watch Settings\n")
	fmt.Printf("─────────────────\n")
	fmt.Printf("  Mode: %s (every %s)\n", cfg.Watch.Mode, cfg.Watch.PollInterval)
	fmt.Printf("  Debounce: %s\n", cfg.Watch.Debounce)
	if cfg.Watch.SweepSchedule != "" {
		fmt.Printf("  Sweep: %s\n", cfg.Watch.SweepSchedule)
	}
	if len(cfg.Watch.Ignore) > 0 {
		fmt.Printf("  Ignore: %d pattern(s)\n", len(cfg.Watch.Ignore))
	}
	if _, err := os.Stat(cfg.Watch.IgnoreFile); err == nil {
		fmt.Printf("  Ignore file: %s\n", cfg.Watch.IgnoreFile)
	}
	fmt.Printf("\n")

	dirs, err := resolveDirs(cfg, nil)
	if err != nil {
		return err
	}

	fmt.Printf("📁 Directories\n")
	fmt.Printf("──────────────\n")
	if len(dirs) == 0 {
		fmt.Printf("  None found below %s\n", cfg.SC2.BaseDir)
	}
	for _, dir := range dirs {
		icon := "🟢"
		if info, err := os.Stat(dir); err != nil || !info.IsDir() {
			icon = "🔴"
		}
		fmt.Printf("  %s %s\n", icon, dir)
	}
	fmt.Printf("\n")

	fmt.Printf("📊 History\n")
	fmt.Printf("──────────\n")

	repo, closeHistory, err := openHistory(cfg, true)
	if err != nil {
		fmt.Printf("  ⚠️  Unavailable: %v\n", err)
		return nil
	}
	defer closeHistory()

	if repo == nil {
		fmt.Printf("  No history recorded\n")
		return nil
	}

	summary, err := repo.Summary()
	if err != nil {
		return fmt.Errorf("failed to read history: %w", err)
	}

	fmt.Printf("  Total: %d\n", summary.Total)

	outcomes := make([]string, 0, len(summary.ByOutcome))
	for o := range summary.ByOutcome {
		outcomes = append(outcomes, string(o))
	}
	sort.Strings(outcomes)
	for _, o := range outcomes {
		outcome := models.Outcome(o)
		fmt.Printf("  %s %-18s %d\n", utils.OutcomeIcon(outcome), outcome, summary.ByOutcome[outcome])
	}

	if !summary.LastFix.IsZero() {
		fmt.Printf("  Last fix: %s ago\n", utils.FormatDuration(time.Since(summary.LastFix)))
	}

	return nil
}
