package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/CairBin/sc2replay-autofix/internal/core/interfaces"
	"github.com/CairBin/sc2replay-autofix/internal/patcher"
	"github.com/CairBin/sc2replay-autofix/pkg/models"
	"github.com/CairBin/sc2replay-autofix/pkg/utils"
	"github.com/spf13/cobra"
	"go.uber.org/multierr"
)

// fixCmd represents the fix command
var fixCmd = &cobra.Command{
	Use:   "fix [paths...]",
	Short: "Fix existing replays",
	Long: `Fix replay files or every replay directly inside the given directories.

Directories are not searched recursively. With --all, every discovered
Replays/Multiplayer folder is processed. Healthy replays and replays that
were already fixed are skipped.`,
	RunE: runFix,
}

func init() {
	fixCmd.Flags().Bool("all", false, "Fix every discovered replay directory")
	fixCmd.Flags().Bool("quiet", false, "Only print the summary")
}

// tally counts outcomes and forwards them to the next recorder
type tally struct {
	mu     sync.Mutex
	counts map[models.Outcome]int
	failed []*models.FixRecord
	next   interfaces.OutcomeRecorder
}

func newTally(next interfaces.OutcomeRecorder) *tally {
	return &tally{counts: make(map[models.Outcome]int), next: next}
}

func (t *tally) Record(rec *models.FixRecord) error {
	t.mu.Lock()
	t.counts[rec.Outcome]++
	if rec.Outcome.IsFailure() {
		t.failed = append(t.failed, rec)
	}
	t.mu.Unlock()

	if t.next == nil {
		return nil
	}
	return t.next.Record(rec)
}

func runFix(cmd *cobra.Command, args []string) error {
	all, _ := cmd.Flags().GetBool("all")
	quiet, _ := cmd.Flags().GetBool("quiet")

	if !all && len(args) == 0 {
		return fmt.Errorf("pass replay files or directories, or use --all")
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	var files, dirs []string
	if all {
		dirs, err = resolveDirs(cfg, nil)
		if err != nil {
			return err
		}
		if len(dirs) == 0 {
			return fmt.Errorf("no replay directories found under %s", cfg.SC2.BaseDir)
		}
	}
	for _, arg := range args {
		abs, err := filepath.Abs(arg)
		if err != nil {
			return fmt.Errorf("failed to get absolute path: %w", err)
		}
		if info, err := os.Stat(abs); err == nil && info.IsDir() {
			dirs = append(dirs, abs)
		} else {
			files = append(files, abs)
		}
	}

	history, closeHistory, err := openHistory(cfg, false)
	if err != nil {
		return fmt.Errorf("failed to open history: %w", err)
	}
	defer closeHistory()

	var next interfaces.OutcomeRecorder
	if history != nil {
		next = history
	}
	counts := newTally(next)
	fixer := patcher.New(logger, patcher.WithRecorder(counts), patcher.WithSource(models.SourceBatch))

	var errs error
	for _, file := range files {
		out, err := fixer.Fix(file)
		if !quiet {
			printFixResult(file, out, err)
		}
		if patcher.Classify(out, err).IsFailure() {
			errs = multierr.Append(errs, err)
		}
	}

	if len(dirs) > 0 {
		for _, dir := range dirs {
			if !quiet {
				fmt.Printf("📁 %s\n", dir)
			}
		}
		errs = multierr.Append(errs, fixer.FixDirectories(dirs))
	}

	printFixSummary(counts)

	if errs != nil {
		return fmt.Errorf("some replays could not be fixed: %w", errs)
	}
	return nil
}

func printFixResult(path, out string, err error) {
	outcome := patcher.Classify(out, err)
	switch {
	case outcome == models.OutcomeFixed:
		fmt.Printf("%s %s → %s\n", utils.OutcomeIcon(outcome), filepath.Base(path), filepath.Base(out))
	case err != nil:
		fmt.Printf("%s %s: %v\n", utils.OutcomeIcon(outcome), filepath.Base(path), err)
	default:
		fmt.Printf("%s %s: %s\n", utils.OutcomeIcon(outcome), filepath.Base(path), outcome)
	}
}

func printFixSummary(t *tally) {
	t.mu.Lock()
	defer t.mu.Unlock()

	fmt.Printf("\n📊 Summary\n")
	fmt.Printf("──────────\n")
	if len(t.counts) == 0 {
		fmt.Printf("  No replays processed\n")
		return
	}

	outcomes := make([]string, 0, len(t.counts))
	for o := range t.counts {
		outcomes = append(outcomes, string(o))
	}
	sort.Strings(outcomes)

	for _, o := range outcomes {
		outcome := models.Outcome(o)
		fmt.Printf("  %s %-18s %d\n", utils.OutcomeIcon(outcome), outcome, t.counts[outcome])
	}

	for _, rec := range t.failed {
		fmt.Printf("  ❌ %s: %s\n", utils.TruncateLeft(rec.Path, 60), rec.Error)
	}
}
