// Package sweep periodically re-runs the batch fix over the watched
// directories, picking up replays written while no watcher was running.
package sweep

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/CairBin/sc2replay-autofix/pkg/logger"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// BatchFixer fixes every replay in a set of directories
type BatchFixer interface {
	FixDirectories(dirs []string) error
}

// Sweeper runs a BatchFixer on a cron schedule
type Sweeper struct {
	schedule string
	dirs     []string
	fixer    BatchFixer
	runs     atomic.Int64
	logger   *zap.Logger
}

// New creates a sweeper. Returns an error if the schedule expression is
// invalid.
func New(schedule string, dirs []string, fixer BatchFixer, log *zap.Logger) (*Sweeper, error) {
	if _, err := cron.ParseStandard(schedule); err != nil {
		return nil, fmt.Errorf("invalid sweep schedule %q: %w", schedule, err)
	}
	return &Sweeper{
		schedule: schedule,
		dirs:     dirs,
		fixer:    fixer,
		logger:   logger.OrNop(log).With(zap.String("component", "sweep")),
	}, nil
}

// Schedule returns the cron expression
func (s *Sweeper) Schedule() string {
	return s.schedule
}

// Runs returns how many sweeps have completed
func (s *Sweeper) Runs() int64 {
	return s.runs.Load()
}

// RunOnce sweeps every directory once
func (s *Sweeper) RunOnce() error {
	s.logger.Debug("Sweep started", zap.Strings("dirs", s.dirs))

	err := s.fixer.FixDirectories(s.dirs)
	s.runs.Add(1)
	if err != nil {
		s.logger.Warn("Sweep finished with failures", zap.Error(err))
		return err
	}

	s.logger.Debug("Sweep finished")
	return nil
}

// Start runs the schedule until ctx is cancelled. A sweep still running when
// the next one is due causes that one to be skipped.
func (s *Sweeper) Start(ctx context.Context) error {
	clog := cronLogger{s.logger.Sugar()}
	c := cron.New(cron.WithLogger(clog), cron.WithChain(cron.SkipIfStillRunning(clog)))

	_, err := c.AddFunc(s.schedule, func() {
		if ctx.Err() != nil {
			return
		}
		_ = s.RunOnce()
	})
	if err != nil {
		return fmt.Errorf("adding sweep job: %w", err)
	}

	s.logger.Info("Sweep scheduled", zap.String("schedule", s.schedule), zap.Int("dirs", len(s.dirs)))

	c.Start()
	<-ctx.Done()
	<-c.Stop().Done()
	return nil
}

// cronLogger routes cron's own logging to zap
type cronLogger struct {
	sugar *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.sugar.Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.sugar.Errorw(msg, append(keysAndValues, "error", err)...)
}
