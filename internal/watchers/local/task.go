package local

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/CairBin/sc2replay-autofix/internal/core/interfaces"
	"github.com/CairBin/sc2replay-autofix/internal/watchers/registry"
	"github.com/CairBin/sc2replay-autofix/pkg/logger"
	"github.com/CairBin/sc2replay-autofix/pkg/models"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
)

// Task fixes one newly observed replay. It is created Pending, sleeps for the
// debounce period, checks that it may still run and then calls the fixer.
type Task struct {
	claim    registry.Claim
	registry *registry.Registry
	fixer    interfaces.Fixer
	limiter  *semaphore.Weighted
	debounce time.Duration
	logger   *zap.Logger

	state   models.TaskState
	stateMu sync.RWMutex
	done    chan struct{}
}

func newTask(claim registry.Claim, w *Watcher) *Task {
	return &Task{
		claim:    claim,
		registry: w.registry,
		fixer:    w.fixer,
		limiter:  w.opts.Limiter,
		debounce: w.opts.Debounce,
		logger:   w.logger,
		state:    models.TaskPending,
		done:     make(chan struct{}),
	}
}

// Path returns the replay the task was spawned for
func (t *Task) Path() string {
	return t.claim.Path
}

// State returns the current lifecycle state
func (t *Task) State() models.TaskState {
	t.stateMu.RLock()
	defer t.stateMu.RUnlock()
	return t.state
}

// Done is closed once the task reached a terminal state
func (t *Task) Done() <-chan struct{} {
	return t.done
}

func (t *Task) setState(s models.TaskState) {
	t.stateMu.Lock()
	t.state = s
	t.stateMu.Unlock()
}

// Run drives the task to a terminal state. The claim is not released here;
// whoever spawned the task does that after Done is closed.
func (t *Task) Run(ctx context.Context) models.TaskState {
	defer close(t.done)

	state := t.run(ctx)
	t.setState(state)
	return state
}

func (t *Task) run(ctx context.Context) models.TaskState {
	if ctx.Err() != nil {
		return t.cancelled("stopped before start")
	}

	t.setState(models.TaskDelayed)
	timer := time.NewTimer(t.debounce)
	select {
	case <-ctx.Done():
		timer.Stop()
		return t.cancelled("stopped during debounce")
	case <-timer.C:
	}

	if ctx.Err() != nil {
		return t.cancelled("stopped after debounce")
	}
	if !t.registry.Holds(t.claim) {
		return t.cancelled("claim withdrawn")
	}

	if t.limiter != nil {
		if err := t.limiter.Acquire(ctx, 1); err != nil {
			return t.cancelled("stopped waiting for a slot")
		}
		defer t.limiter.Release(1)
	}

	t.setState(models.TaskRunning)

	patch, err := t.fixer.Prepare(t.claim.Path)
	if err != nil {
		t.fixer.Report(t.claim.Path, "", err)
		return models.TaskFailed
	}
	if patch == nil {
		t.fixer.Report(t.claim.Path, "", nil)
		return models.TaskDone
	}

	err = t.registry.Commit(t.claim, patch.Write)
	switch {
	case errors.Is(err, registry.ErrClaimWithdrawn):
		return t.cancelled("claim withdrawn before write")
	case err != nil:
		t.fixer.Report(t.claim.Path, "", err)
		return models.TaskFailed
	}

	t.fixer.Report(t.claim.Path, patch.OutputPath(), nil)
	return models.TaskDone
}

func (t *Task) cancelled(reason string) models.TaskState {
	t.logger.Info("Fix task cancelled",
		zap.String("path", t.claim.Path),
		zap.String("reason", reason),
		logger.OutcomeField(logger.OutcomeCancelled),
	)
	return models.TaskCancelled
}
