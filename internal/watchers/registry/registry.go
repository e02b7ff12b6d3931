// Package registry tracks which replay paths have an in-flight fix task.
package registry

import (
	"errors"
	"sort"
	"sync"

	"github.com/CairBin/sc2replay-autofix/pkg/logger"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrClaimWithdrawn is returned by Commit when the claim was released or
// cleared before the commit could run.
var ErrClaimWithdrawn = errors.New("claim withdrawn")

// Claim is a token for one path. Only the holder of the current token can
// commit or release it.
type Claim struct {
	Path  string
	Token string
}

// Registry is the set of paths that currently have a fix task. It is shared
// by every directory watcher of a monitor, so at most one task exists per
// path across all of them.
type Registry struct {
	claims map[string]string // path -> token
	mu     sync.RWMutex
	logger *zap.Logger
}

// New creates an empty registry
func New(log *zap.Logger) *Registry {
	return &Registry{
		claims: make(map[string]string),
		logger: logger.OrNop(log).With(zap.String("component", "registry")),
	}
}

// TryClaim atomically inserts path. It returns false if path is already
// claimed.
func (r *Registry) TryClaim(path string) (Claim, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.claims[path]; exists {
		r.logger.Debug("Path already claimed", zap.String("path", path))
		return Claim{}, false
	}

	c := Claim{Path: path, Token: uuid.NewString()}
	r.claims[path] = c.Token
	return c, true
}

// Release removes path regardless of who holds it
func (r *Registry) Release(path string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.claims, path)
}

// ReleaseClaim removes c only if it is still the current claim for its path,
// so a late release never drops a newer claim.
func (r *Registry) ReleaseClaim(c Claim) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.claims[c.Path] != c.Token || c.Token == "" {
		return false
	}
	delete(r.claims, c.Path)
	return true
}

// Holds reports whether c is still the current claim for its path
func (r *Registry) Holds(c Claim) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return c.Token != "" && r.claims[c.Path] == c.Token
}

// Commit runs fn while c is held. Clear waits for running commits, so once
// Clear returns no commit for a cleared claim can start or be in progress.
func (r *Registry) Commit(c Claim, fn func() error) error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if c.Token == "" || r.claims[c.Path] != c.Token {
		return ErrClaimWithdrawn
	}
	return fn()
}

// Clear removes every claim
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if n := len(r.claims); n > 0 {
		r.logger.Debug("Clearing claims", zap.Int("count", n))
	}
	r.claims = make(map[string]string)
}

// Len returns the number of claimed paths
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.claims)
}

// Paths returns the claimed paths, sorted
func (r *Registry) Paths() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	paths := make([]string, 0, len(r.claims))
	for path := range r.claims {
		paths = append(paths, path)
	}
	sort.Strings(paths)
	return paths
}
