package patcher

import (
	"fmt"
	"os"
	"path/filepath"

	pperrors "github.com/CairBin/sc2replay-autofix/pkg/errors"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// FixDirectory fixes every replay directly inside dir (no recursion).
// Files are processed even after earlier ones fail. The returned error
// aggregates the directory read error, if any, and every per-file failure;
// replays without the signature are healthy and do not count.
func (p *Patcher) FixDirectory(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return pperrors.NewIOError("cannot read directory", dir, err)
	}

	var errs error
	fixed := 0
	for _, entry := range entries {
		if entry.IsDir() || !IsReplay(entry.Name()) {
			continue
		}

		out, claimed, err := p.fixClaimed(filepath.Join(dir, entry.Name()))
		if !claimed {
			p.logger.Debug("Replay is being fixed elsewhere, skipping", zap.String("file", entry.Name()))
			continue
		}
		switch {
		case err == nil && out != "":
			fixed++
		case err != nil && !pperrors.IsPatternNotFound(err):
			errs = multierr.Append(errs, err)
		}
	}

	p.logger.Debug("Directory processed",
		zap.String("dir", dir),
		zap.Int("fixed", fixed),
		zap.Int("failed", len(multierr.Errors(errs))),
	)

	return errs
}

func (p *Patcher) fixClaimed(path string) (string, bool, error) {
	if p.claimer == nil {
		out, err := p.Fix(path)
		return out, true, err
	}

	release, ok := p.claimer.Claim(path)
	if !ok {
		return "", false, nil
	}
	defer release()

	out, err := p.Fix(path)
	return out, true, err
}

// FixDirectories runs FixDirectory on every dir, continuing past failing
// directories. Directories that do not exist are skipped. It returns an
// error iff at least one directory reported one.
func (p *Patcher) FixDirectories(dirs []string) error {
	var errs error
	for _, dir := range dirs {
		if _, err := os.Stat(dir); os.IsNotExist(err) {
			p.logger.Warn("Replay directory does not exist, skipping", zap.String("dir", dir))
			continue
		}

		p.logger.Info("Entering replay directory", zap.String("dir", dir))

		if err := p.FixDirectory(dir); err != nil {
			p.logger.Error("Directory fix failed", zap.String("dir", dir), zap.Error(err))
			errs = multierr.Append(errs, fmt.Errorf("%s: %w", dir, err))
		}
	}
	return errs
}
