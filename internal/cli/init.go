package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/CairBin/sc2replay-autofix/internal/config"
	"github.com/CairBin/sc2replay-autofix/internal/discovery"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// initCmd represents the init command
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize sc2fix configuration",
	Long: `Initialize sc2fix configuration in your home directory.

This command creates:
- ~/.sc2fix/config.yaml - Main configuration file
- ~/.sc2fix/logs/ - Directory for log files

The discovered replay directories are written to watch.dirs so they can be
edited by hand.`,
	RunE: runInit,
}

func init() {
	initCmd.Flags().Bool("force", false, "Overwrite existing configuration")
	initCmd.Flags().Bool("discover", true, "Fill watch.dirs with discovered replay directories")
}

func runInit(cmd *cobra.Command, args []string) error {
	force, _ := cmd.Flags().GetBool("force")
	discover, _ := cmd.Flags().GetBool("discover")

	dir, err := config.HomeDir()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Join(dir, "logs"), 0700); err != nil {
		return fmt.Errorf("failed to create sc2fix directory: %w", err)
	}

	configPath := filepath.Join(dir, "config.yaml")
	if _, err := os.Stat(configPath); err == nil && !force {
		return fmt.Errorf("configuration already exists at %s. Use --force to overwrite", configPath)
	}

	cfg := config.Default()
	if discover {
		dirs, err := discovery.FindReplayDirs(cfg.SC2.BaseDir)
		if err != nil {
			fmt.Printf("⚠️  Replay directory discovery failed: %v\n", err)
		}
		cfg.Watch.Dirs = append(cfg.Watch.Dirs, dirs...)
	}

	if err := writeConfig(configPath, cfg); err != nil {
		return err
	}

	fmt.Printf("✅ sc2fix initialized successfully!\n")
	fmt.Printf("📁 Configuration directory: %s\n", dir)
	fmt.Printf("📝 Configuration file: %s\n", configPath)
	if len(cfg.Watch.Dirs) > 0 {
		fmt.Printf("🎮 Replay directories:\n")
		for _, d := range cfg.Watch.Dirs {
			fmt.Printf("   %s\n", d)
		}
	} else {
		fmt.Printf("⚠️  No replay directories found below %s\n", cfg.SC2.BaseDir)
	}
	fmt.Printf("\n")
	fmt.Printf("Next steps:\n")
	fmt.Printf("1. Run 'sc2fix fix --all' to repair replays you already have\n")
	fmt.Printf("2. Run 'sc2fix watch' to repair new replays as they are saved\n")

	return nil
}

func writeConfig(path string, cfg *config.Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal configuration: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write configuration file: %w", err)
	}
	return nil
}
