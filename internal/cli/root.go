// Package cli implements the command-line interface for sc2fix
package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/CairBin/sc2replay-autofix/internal/config"
	"github.com/CairBin/sc2replay-autofix/internal/database"
	"github.com/CairBin/sc2replay-autofix/internal/database/repositories"
	"github.com/CairBin/sc2replay-autofix/internal/discovery"
	pplogger "github.com/CairBin/sc2replay-autofix/pkg/logger"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

var (
	cfgFile     string
	verboseMode bool
	logger      = zap.NewNop()
	version     string
	buildDate   string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "sc2fix",
	Short: "sc2fix - repair corrupted StarCraft II replays",
	Long: `sc2fix watches your StarCraft II multiplayer replay folders and repairs
replays written with a known header corruption.

Each fixed replay is written next to the original as <name>-FIXED.SC2Replay;
the original file is never modified.`,
	Version:           version,
	SilenceUsage:      true,
	PersistentPreRunE: setupLogger,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	defer func() { _ = logger.Sync() }()
	return rootCmd.Execute()
}

// SetVersionInfo sets the version information for the CLI
func SetVersionInfo(v, bd string) {
	version = v
	buildDate = bd
	rootCmd.Version = fmt.Sprintf("%s (built %s)", version, buildDate)
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.sc2fix/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verboseMode, "verbose", "v", false, "verbose output")

	viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(fixCmd)
	rootCmd.AddCommand(dirsCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(logsCmd)
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	config.SetDefaults(viper.GetViper())

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		dir, err := config.HomeDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		viper.AddConfigPath(dir)
		viper.SetConfigType("yaml")
		viper.SetConfigName("config")
	}

	if err := viper.ReadInConfig(); err == nil && verboseMode {
		fmt.Fprintf(os.Stderr, "Using config file: %s\n", viper.ConfigFileUsed())
	}
}

// setupLogger replaces the no-op logger once the configuration is known
func setupLogger(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	l, err := pplogger.New(cfg.LogConfig(verboseMode))
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	logger = l
	return nil
}

func loadConfig() (*config.Config, error) {
	return config.Load(viper.GetViper())
}

// configFilePath returns the config file in use, or where init writes it
func configFilePath() string {
	if file := viper.ConfigFileUsed(); file != "" {
		return file
	}
	dir, err := config.HomeDir()
	if err != nil {
		return filepath.Join("~", config.DirName, "config.yaml")
	}
	return filepath.Join(dir, "config.yaml")
}

// resolveDirs picks the replay directories to work on: explicit arguments
// first, then watch.dirs, then discovery below sc2.base_dir.
func resolveDirs(cfg *config.Config, args []string) ([]string, error) {
	if len(args) > 0 {
		return absPaths(args)
	}
	if len(cfg.Watch.Dirs) > 0 {
		return absPaths(cfg.Watch.Dirs)
	}

	dirs, err := discovery.FindReplayDirs(cfg.SC2.BaseDir)
	if err != nil {
		return nil, fmt.Errorf("failed to discover replay directories: %w", err)
	}
	return dirs, nil
}

func absPaths(paths []string) ([]string, error) {
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			return nil, fmt.Errorf("failed to get absolute path: %w", err)
		}
		out = append(out, abs)
	}
	return out, nil
}

// openHistory opens the fix history store. It returns a nil repository when
// history is disabled.
func openHistory(cfg *config.Config, readOnly bool) (*repositories.FixRepository, func(), error) {
	if !cfg.History.Enabled {
		return nil, func() {}, nil
	}

	opts := database.DefaultOptions()
	opts.Path = cfg.History.Path
	opts.ReadOnly = readOnly

	db, err := database.NewManager(opts, logger)
	if err != nil {
		return nil, nil, err
	}
	if readOnly {
		if _, err := os.Stat(db.Path()); os.IsNotExist(err) {
			return nil, func() {}, nil
		}
	}
	if err := db.Open(); err != nil {
		return nil, nil, err
	}

	closeFn := func() {
		if err := db.Close(); err != nil {
			logger.Warn("Failed to close history database", zap.Error(err))
		}
	}
	return repositories.NewFixRepository(db), closeFn, nil
}
