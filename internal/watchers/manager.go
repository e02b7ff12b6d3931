// Package watchers runs one directory watcher per replay directory and
// controls them as a single session.
package watchers

import (
	"context"
	"sync"
	"time"

	"github.com/CairBin/sc2replay-autofix/internal/core/interfaces"
	"github.com/CairBin/sc2replay-autofix/internal/watchers/ignore"
	"github.com/CairBin/sc2replay-autofix/internal/watchers/local"
	"github.com/CairBin/sc2replay-autofix/internal/watchers/registry"
	"github.com/CairBin/sc2replay-autofix/pkg/logger"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
)

// Config contains configuration for a monitor session
type Config struct {
	PollInterval  time.Duration // Interval between directory listings
	Debounce      time.Duration // Delay between detection and fix
	Mode          string        // local.ModePoll or local.ModeNotify
	MaxConcurrent int           // Bound on concurrently running fixes, 0 = unbounded
	StopTimeout   time.Duration // How long Stop waits for watchers to exit
	Ignore        []string      // Glob patterns of replay names to leave alone
	IgnoreFile    string        // Optional file with more patterns, one per line
}

// DefaultConfig returns the timings the tool ships with
func DefaultConfig() Config {
	return Config{
		PollInterval: time.Second,
		Debounce:     500 * time.Millisecond,
		Mode:         local.ModePoll,
		StopTimeout:  100 * time.Millisecond,
	}
}

type session struct {
	watcher *local.Watcher
	cancel  context.CancelFunc
	ctx     context.Context
}

// Monitor is the handle of a running watch session. It owns one stop signal
// per directory and the registry shared by all of their tasks.
type Monitor struct {
	sessions    []*session
	registry    *registry.Registry
	stopTimeout time.Duration
	wg          sync.WaitGroup
	stopOnce    sync.Once
	logger      *zap.Logger
}

// Start creates one watcher per directory and runs each in its own goroutine.
// Directories that are missing or unreadable are watched until they appear.
// If a watcher cannot be created at all, the ones created so far are torn
// down and a StartFailure error is returned.
func Start(ctx context.Context, dirs []string, fixer interfaces.Fixer, cfg Config, log *zap.Logger) (*Monitor, error) {
	if cfg.StopTimeout <= 0 {
		cfg.StopTimeout = 100 * time.Millisecond
	}

	log = logger.OrNop(log)
	m := &Monitor{
		registry:    registry.New(log),
		stopTimeout: cfg.StopTimeout,
		logger:      log.With(zap.String("component", "monitor")),
	}

	opts := local.Options{
		PollInterval: cfg.PollInterval,
		Debounce:     cfg.Debounce,
		Mode:         cfg.Mode,
		Ignore:       m.loadIgnore(cfg),
	}
	if cfg.MaxConcurrent > 0 {
		opts.Limiter = semaphore.NewWeighted(int64(cfg.MaxConcurrent))
	}

	watchers := make([]*local.Watcher, 0, len(dirs))
	for _, dir := range dirs {
		w, err := local.NewWatcher(dir, opts, m.registry, fixer, log)
		if err != nil {
			for _, started := range watchers {
				started.Close()
			}
			m.logger.Error("Failed to start watcher", zap.String("dir", dir), zap.Error(err))
			return nil, err
		}
		watchers = append(watchers, w)
	}

	for _, w := range watchers {
		sctx, cancel := context.WithCancel(ctx)
		s := &session{watcher: w, cancel: cancel, ctx: sctx}
		m.sessions = append(m.sessions, s)

		m.wg.Add(1)
		go func() {
			defer m.wg.Done()
			s.watcher.Run(s.ctx)
			s.watcher.Wait()
		}()
	}

	m.logger.Info("Replay monitor started",
		zap.Int("directories", len(m.sessions)),
		zap.String("mode", opts.Mode),
		zap.Int("max_concurrent", cfg.MaxConcurrent),
		zap.Int("ignore_patterns", opts.Ignore.Len()),
	)

	return m, nil
}

func (m *Monitor) loadIgnore(cfg Config) *ignore.Matcher {
	matcher := ignore.New(cfg.Ignore...)
	if cfg.IgnoreFile != "" {
		if err := matcher.LoadFromFile(cfg.IgnoreFile); err != nil {
			m.logger.Warn("Failed to load ignore file", zap.String("path", cfg.IgnoreFile), zap.Error(err))
		}
	}
	if matcher.Len() == 0 {
		return nil
	}
	return matcher
}

// Stop signals every watcher, withdraws every claim so that no pending task
// can write anymore, and waits up to the stop timeout for watchers to exit.
// It is safe to call more than once.
func (m *Monitor) Stop() {
	m.stopOnce.Do(func() {
		for _, s := range m.sessions {
			s.cancel()
		}
		if pending := m.registry.Paths(); len(pending) > 0 {
			m.logger.Info("Withdrawing pending fixes", zap.Strings("files", pending))
		}
		m.registry.Clear()

		done := make(chan struct{})
		go func() {
			m.wg.Wait()
			close(done)
		}()

		timer := time.NewTimer(m.stopTimeout)
		defer timer.Stop()

		select {
		case <-done:
			m.logger.Info("Replay monitor stopped")
		case <-timer.C:
			m.logger.Warn("Replay monitor stopped, some watchers are still exiting",
				zap.Duration("timeout", m.stopTimeout),
			)
		}
	})
}

// IsRunning returns true while at least one stop signal is unset
func (m *Monitor) IsRunning() bool {
	for _, s := range m.sessions {
		if s.ctx.Err() == nil {
			return true
		}
	}
	return false
}

// Wait blocks until every watcher and every task it spawned has exited
func (m *Monitor) Wait() {
	m.wg.Wait()
}

// Dirs returns the watched directories
func (m *Monitor) Dirs() []string {
	dirs := make([]string, 0, len(m.sessions))
	for _, s := range m.sessions {
		dirs = append(dirs, s.watcher.Dir())
	}
	return dirs
}

// Claim reserves path in the registry shared with the watchers' tasks, so
// that other fixers of the same directories stay single-flight. It fails
// for paths already claimed and once the monitor is stopped.
func (m *Monitor) Claim(path string) (func(), bool) {
	if !m.IsRunning() {
		return nil, false
	}
	c, ok := m.registry.TryClaim(path)
	if !ok {
		return nil, false
	}
	return func() { m.registry.ReleaseClaim(c) }, true
}

// Pending returns the replays currently claimed, sorted
func (m *Monitor) Pending() []string {
	return m.registry.Paths()
}

// InFlight returns the number of replays with a live fix task
func (m *Monitor) InFlight() int {
	return m.registry.Len()
}
