package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/CairBin/sc2replay-autofix/internal/patcher"
	"github.com/CairBin/sc2replay-autofix/internal/sweep"
	"github.com/CairBin/sc2replay-autofix/internal/watchers"
	"github.com/CairBin/sc2replay-autofix/pkg/models"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// watchCmd represents the watch command (main monitoring command)
var watchCmd = &cobra.Command{
	Use:   "watch [dirs...]",
	Short: "Watch replay directories and fix new replays",
	Long: `Start watching replay directories and fix every new replay that
carries the known corruption.

Without arguments sc2fix watches the directories configured in watch.dirs,
or every Replays/Multiplayer folder found below sc2.base_dir. Replays that
already exist when watching starts are left alone; use 'sc2fix fix --all'
for those.`,
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().String("mode", "poll", "Detection mode (poll or notify)")
	watchCmd.Flags().Duration("poll-interval", time.Second, "Interval between directory scans")
	watchCmd.Flags().Duration("debounce", 500*time.Millisecond, "Delay before a new replay is read")
	watchCmd.Flags().Int("max-concurrent", 0, "Maximum replays fixed at once (0 = unbounded)")
	watchCmd.Flags().String("sweep", "", "Cron schedule for a full re-scan (e.g. '@every 30m')")

	viper.BindPFlag("watch.mode", watchCmd.Flags().Lookup("mode"))
	viper.BindPFlag("watch.poll_interval", watchCmd.Flags().Lookup("poll-interval"))
	viper.BindPFlag("watch.debounce", watchCmd.Flags().Lookup("debounce"))
	viper.BindPFlag("watch.max_concurrent", watchCmd.Flags().Lookup("max-concurrent"))
	viper.BindPFlag("watch.sweep_schedule", watchCmd.Flags().Lookup("sweep"))
}

func runWatch(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	dirs, err := resolveDirs(cfg, args)
	if err != nil {
		return err
	}
	if len(dirs) == 0 {
		return fmt.Errorf("no replay directories found under %s; pass directories or set watch.dirs", cfg.SC2.BaseDir)
	}

	history, closeHistory, err := openHistory(cfg, false)
	if err != nil {
		return fmt.Errorf("failed to open history: %w", err)
	}
	defer closeHistory()

	opts := []patcher.Option{patcher.WithSource(models.SourceWatch)}
	if history != nil {
		opts = append(opts, patcher.WithRecorder(history))
	}
	fixer := patcher.New(logger, opts...)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	monitor, err := watchers.Start(ctx, dirs, fixer, watchers.Config{
		PollInterval:  cfg.Watch.PollInterval,
		Debounce:      cfg.Watch.Debounce,
		Mode:          cfg.Watch.Mode,
		MaxConcurrent: cfg.Watch.MaxConcurrent,
		StopTimeout:   cfg.Watch.StopTimeout,
		Ignore:        cfg.Watch.Ignore,
		IgnoreFile:    cfg.Watch.IgnoreFile,
	}, logger)
	if err != nil {
		return fmt.Errorf("failed to start watching: %w", err)
	}
	defer monitor.Stop()

	fmt.Printf("🚀 Starting sc2fix\n")
	for _, dir := range monitor.Dirs() {
		fmt.Printf("📁 Watching: %s\n", dir)
	}
	fmt.Printf("🔍 Mode: %s (every %s)\n", cfg.Watch.Mode, cfg.Watch.PollInterval)
	fmt.Printf("⏳ Debounce: %s\n", cfg.Watch.Debounce)
	if cfg.Watch.MaxConcurrent > 0 {
		fmt.Printf("🚦 Max concurrent fixes: %d\n", cfg.Watch.MaxConcurrent)
	}
	if len(cfg.Watch.Ignore) > 0 {
		fmt.Printf("🙈 Ignoring: %s\n", strings.Join(cfg.Watch.Ignore, ", "))
	}
	if history == nil {
		fmt.Printf("📜 History: disabled\n")
	}

	sweepDone := make(chan struct{})
	if cfg.Watch.SweepSchedule != "" {
		sweepFixer := fixer.Derive(
			patcher.WithSource(models.SourceSweep),
			patcher.WithSkipExisting(),
			patcher.WithClaimer(monitor),
		)
		sweeper, err := sweep.New(cfg.Watch.SweepSchedule, monitor.Dirs(), sweepFixer, logger)
		if err != nil {
			return err
		}
		fmt.Printf("🧹 Sweep: %s\n", sweeper.Schedule())

		go func() {
			defer close(sweepDone)
			if err := sweeper.Start(ctx); err != nil {
				logger.Error("Sweep scheduler failed", zap.Error(err))
			}
		}()
	} else {
		close(sweepDone)
	}

	fmt.Printf("\n👀 Watching for new replays... Press Ctrl+C to stop\n")

	<-ctx.Done()

	fmt.Printf("\n[%s] 🛑 Stopping sc2fix...\n", time.Now().Format("15:04:05"))
	if pending := monitor.Pending(); len(pending) > 0 {
		fmt.Printf("⏸️  Dropping %d pending fix(es)\n", len(pending))
	}
	monitor.Stop()
	<-sweepDone
	return nil
}
