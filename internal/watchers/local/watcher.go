// Package local watches replay directories on the local file system and
// spawns a debounced fix task for every replay that appears in them.
package local

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/CairBin/sc2replay-autofix/internal/core/interfaces"
	"github.com/CairBin/sc2replay-autofix/internal/patcher"
	"github.com/CairBin/sc2replay-autofix/internal/watchers/ignore"
	"github.com/CairBin/sc2replay-autofix/internal/watchers/registry"
	pperrors "github.com/CairBin/sc2replay-autofix/pkg/errors"
	"github.com/CairBin/sc2replay-autofix/pkg/logger"
	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
)

const (
	// ModePoll only relies on periodic directory listings
	ModePoll = "poll"

	// ModeNotify adds OS file notifications on top of polling
	ModeNotify = "notify"
)

// Options contains configuration for a directory watcher
type Options struct {
	PollInterval time.Duration       // Interval between directory listings
	Debounce     time.Duration       // Delay between detection and fix
	Mode         string              // ModePoll or ModeNotify
	Limiter      *semaphore.Weighted // Optional bound on concurrently running fixes
	Ignore       *ignore.Matcher     // Optional replay name exclusions
}

func (o *Options) setDefaults() {
	if o.PollInterval <= 0 {
		o.PollInterval = time.Second
	}
	if o.Debounce < 0 {
		o.Debounce = 0
	}
	if o.Mode == "" {
		o.Mode = ModePoll
	}
}

// Watcher polls one directory and dispatches fix tasks for new replays.
// The snapshot and the readable/subscribed flags are owned by the goroutine
// running Run.
type Watcher struct {
	dir        string
	opts       Options
	registry   *registry.Registry
	fixer      interfaces.Fixer
	notifier   *fsnotify.Watcher
	subscribed bool
	readable   bool
	snapshot   map[string]struct{}
	tasks      sync.WaitGroup
	logger     *zap.Logger
}

// NewWatcher takes the initial snapshot of dir. Files present at this point
// never trigger a task. A missing or unlistable dir starts out empty and is
// polled until it can be listed; every replay found then counts as new.
func NewWatcher(dir string, opts Options, reg *registry.Registry, fixer interfaces.Fixer, log *zap.Logger) (*Watcher, error) {
	opts.setDefaults()

	absDir, err := filepath.Abs(dir)
	if err != nil {
		return nil, pperrors.NewStartError("failed to get absolute path", dir, err)
	}

	w := &Watcher{
		dir:      absDir,
		opts:     opts,
		registry: reg,
		fixer:    fixer,
		snapshot: map[string]struct{}{},
		logger:   logger.OrNop(log).With(zap.String("component", "watcher"), zap.String("dir", absDir)),
	}

	if snapshot, err := w.scan(); err != nil {
		w.logger.Warn("Replay directory cannot be listed yet, waiting for it", zap.Error(err))
	} else {
		w.snapshot = snapshot
		w.readable = true
	}

	if opts.Mode == ModeNotify {
		notifier, err := fsnotify.NewWatcher()
		if err != nil {
			w.logger.Warn("File notifications unavailable, polling only", zap.Error(err))
		} else {
			w.notifier = notifier
			w.subscribe()
		}
	}

	return w, nil
}

// subscribe adds the directory to the notifier once it exists. Until then
// polling alone detects new replays.
func (w *Watcher) subscribe() {
	if w.notifier == nil || w.subscribed || !w.readable {
		return
	}
	if err := w.notifier.Add(w.dir); err != nil {
		w.logger.Warn("Failed to add directory to file notifications, polling only", zap.Error(err))
		return
	}
	w.subscribed = true
}

// Dir returns the absolute watched directory
func (w *Watcher) Dir() string {
	return w.dir
}

// Run polls the directory until ctx is cancelled. Tasks spawned by the
// watcher observe the same ctx.
func (w *Watcher) Run(ctx context.Context) {
	w.logger.Info("Watching replay directory",
		zap.Duration("poll_interval", w.opts.PollInterval),
		zap.Duration("debounce", w.opts.Debounce),
		zap.String("mode", w.opts.Mode),
		zap.Int("known_files", len(w.snapshot)),
	)

	ticker := time.NewTicker(w.opts.PollInterval)
	defer ticker.Stop()

	var events <-chan fsnotify.Event
	var errs <-chan error
	if w.notifier != nil {
		defer w.notifier.Close()
		events = w.notifier.Events
		errs = w.notifier.Errors
	}

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("Stopped watching replay directory")
			return
		case <-ticker.C:
			w.poll(ctx)
		case event, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			w.handleEvent(ctx, event)
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			w.logger.Warn("File notification error, polling continues", zap.Error(err))
		}
	}
}

// Wait blocks until every task spawned by the watcher has been reaped
func (w *Watcher) Wait() {
	w.tasks.Wait()
}

// Close releases the OS notification handle of a watcher that will not Run
func (w *Watcher) Close() error {
	if w.notifier == nil {
		return nil
	}
	return w.notifier.Close()
}

func (w *Watcher) poll(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}

	current, err := w.scan()
	if err != nil {
		if w.readable {
			w.logger.Warn("Failed to list directory", zap.Error(err))
			w.readable = false
			w.subscribed = false
		}
		return
	}
	if !w.readable {
		w.logger.Info("Replay directory is available")
		w.readable = true
		w.subscribe()
	}

	for path := range current {
		if ctx.Err() != nil {
			return
		}
		if _, seen := w.snapshot[path]; seen {
			continue
		}
		w.consider(ctx, path)
	}

	w.snapshot = current
}

func (w *Watcher) handleEvent(ctx context.Context, event fsnotify.Event) {
	if !event.Has(fsnotify.Create) || ctx.Err() != nil {
		return
	}
	if _, seen := w.snapshot[event.Name]; seen {
		return
	}

	info, err := os.Stat(event.Name)
	if err != nil || info.IsDir() {
		return
	}

	w.snapshot[event.Name] = struct{}{}
	w.consider(ctx, event.Name)
}

func (w *Watcher) consider(ctx context.Context, path string) {
	if !patcher.IsReplay(path) {
		return
	}
	if w.opts.Ignore.ShouldIgnore(path) {
		w.logger.Debug("Replay ignored by pattern", zap.String("file", filepath.Base(path)))
		return
	}
	w.dispatch(ctx, path)
}

// dispatch claims path and, if the claim is granted, spawns its task and the
// reaper that releases the claim once the task is terminal.
func (w *Watcher) dispatch(ctx context.Context, path string) {
	claim, ok := w.registry.TryClaim(path)
	if !ok {
		return
	}

	w.logger.Debug("New replay detected", zap.String("file", filepath.Base(path)))

	t := newTask(claim, w)
	w.tasks.Add(2)
	go func() {
		defer w.tasks.Done()
		t.Run(ctx)
	}()
	go func() {
		defer w.tasks.Done()
		<-t.Done()
		w.registry.ReleaseClaim(claim)
	}()
}

func (w *Watcher) scan() (map[string]struct{}, error) {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		return nil, err
	}

	files := make(map[string]struct{}, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		files[filepath.Join(w.dir, entry.Name())] = struct{}{}
	}
	return files, nil
}
