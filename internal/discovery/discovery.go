// Package discovery locates StarCraft II multiplayer replay directories.
package discovery

import (
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

const (
	// GameDirName is the game folder inside the user's documents
	GameDirName = "StarCraft II"

	// MaxDepth bounds the search below the Accounts directory
	MaxDepth = 10
)

// DefaultBaseDir returns <documents>/StarCraft II. XDG_DOCUMENTS_DIR wins over
// ~/Documents when set.
func DefaultBaseDir() (string, error) {
	if docs := os.Getenv("XDG_DOCUMENTS_DIR"); docs != "" {
		return filepath.Join(docs, GameDirName), nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, "Documents", GameDirName), nil
}

// FindReplayDirs returns every <account>/.../Replays/Multiplayer directory
// found under <base>/Accounts, at most MaxDepth levels deep. If none exist it
// falls back to <base>/Replays/Multiplayer. A missing base yields no
// directories and no error.
func FindReplayDirs(base string) ([]string, error) {
	if _, err := os.Stat(base); err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var dirs []string
	accounts := filepath.Join(base, "Accounts")
	if isDir(accounts) {
		err := filepath.WalkDir(accounts, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				// unreadable subtrees are skipped
				if d != nil && d.IsDir() && path != accounts {
					return filepath.SkipDir
				}
				return nil
			}
			if !d.IsDir() || path == accounts {
				return nil
			}
			if depth(accounts, path) > MaxDepth {
				return filepath.SkipDir
			}

			candidate := filepath.Join(path, "Replays", "Multiplayer")
			if isDir(candidate) {
				dirs = append(dirs, candidate)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}

	if len(dirs) == 0 {
		fallback := filepath.Join(base, "Replays", "Multiplayer")
		if isDir(fallback) {
			dirs = append(dirs, fallback)
		}
	}

	sort.Strings(dirs)
	return dedupe(dirs), nil
}

func depth(root, path string) int {
	rel, err := filepath.Rel(root, path)
	if err != nil || rel == "." {
		return 0
	}
	return strings.Count(rel, string(filepath.Separator)) + 1
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

// dedupe drops adjacent duplicates from a sorted slice
func dedupe(dirs []string) []string {
	out := dirs[:0]
	for i, d := range dirs {
		if i > 0 && d == dirs[i-1] {
			continue
		}
		out = append(out, d)
	}
	return out
}
