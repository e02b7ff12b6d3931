package cli

import (
	"fmt"
	"os"

	"github.com/CairBin/sc2replay-autofix/internal/discovery"
	"github.com/CairBin/sc2replay-autofix/internal/patcher"
	"github.com/spf13/cobra"
)

// dirsCmd represents the dirs command
var dirsCmd = &cobra.Command{
	Use:   "dirs",
	Short: "List StarCraft II replay directories",
	Long: `List every Replays/Multiplayer directory found below the StarCraft II
documents folder, together with how many replays each one holds.`,
	RunE: runDirs,
}

func init() {
	dirsCmd.Flags().String("base", "", "StarCraft II documents folder (default sc2.base_dir)")
}

func runDirs(cmd *cobra.Command, args []string) error {
	base, _ := cmd.Flags().GetString("base")

	if base == "" {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		base = cfg.SC2.BaseDir
	}

	dirs, err := discovery.FindReplayDirs(base)
	if err != nil {
		return fmt.Errorf("failed to discover replay directories: %w", err)
	}

	fmt.Printf("🎮 Replay directories in %s\n", base)
	fmt.Printf("═══════════════════════════════════════\n\n")

	if len(dirs) == 0 {
		fmt.Printf("  No replay directories found\n")
		return nil
	}

	for _, dir := range dirs {
		replays, fixed := countReplays(dir)
		fmt.Printf("📁 %s\n", dir)
		fmt.Printf("   %d replays, %d fixed copies\n", replays, fixed)
	}

	return nil
}

func countReplays(dir string) (replays, fixed int) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, 0
	}
	for _, entry := range entries {
		if entry.IsDir() || !patcher.IsReplay(entry.Name()) {
			continue
		}
		if patcher.IsFixed(entry.Name()) {
			fixed++
		} else {
			replays++
		}
	}
	return replays, fixed
}
