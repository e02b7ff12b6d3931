package cli

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

// logsCmd represents the logs command
var logsCmd = &cobra.Command{
	Use:   "logs",
	Short: "View sc2fix logs",
	Long:  `Display the last lines of the sc2fix log file (logging.file).`,
	RunE:  runLogs,
}

func init() {
	logsCmd.Flags().Int("tail", 20, "Number of lines to display")
	logsCmd.Flags().String("level", "", "Filter by log level (debug, info, warn, error)")
	logsCmd.Flags().String("outcome", "", "Filter by fix outcome (success, pattern_not_found, io_failure, ...)")
}

func runLogs(cmd *cobra.Command, args []string) error {
	tail, _ := cmd.Flags().GetInt("tail")
	level, _ := cmd.Flags().GetString("level")
	outcome, _ := cmd.Flags().GetString("outcome")

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cfg.Logging.File == "" {
		return fmt.Errorf("file logging is disabled (logging.file is empty)")
	}

	f, err := os.Open(cfg.Logging.File)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer f.Close()

	lines, err := tailLines(f, tail, logFilter(level, outcome))
	if err != nil {
		return fmt.Errorf("failed to read log file: %w", err)
	}

	fmt.Printf("📜 sc2fix Logs (%s)\n", cfg.Logging.File)
	fmt.Printf("═══════════════════════════════════════\n")
	if level != "" {
		fmt.Printf("🔍 Level: %s\n", level)
	}
	if outcome != "" {
		fmt.Printf("🔍 Outcome: %s\n", outcome)
	}
	fmt.Printf("\n")

	for _, line := range lines {
		fmt.Println(line)
	}
	return nil
}

// logFilter matches both console ("\tINFO\t") and JSON ("level":"INFO")
// encoded lines
func logFilter(level, outcome string) func(string) bool {
	level = strings.ToUpper(level)
	return func(line string) bool {
		if level != "" &&
			!strings.Contains(line, "\t"+level+"\t") &&
			!strings.Contains(line, `"level":"`+level+`"`) {
			return false
		}
		if outcome != "" &&
			!strings.Contains(line, `"outcome": "`+outcome+`"`) &&
			!strings.Contains(line, `"outcome":"`+outcome+`"`) {
			return false
		}
		return true
	}
}

// tailLines returns the last n lines of r accepted by keep
func tailLines(r io.Reader, n int, keep func(string) bool) ([]string, error) {
	if n <= 0 {
		return nil, nil
	}

	ring := make([]string, 0, n)
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if keep != nil && !keep(line) {
			continue
		}
		if len(ring) == n {
			ring = append(ring[:0], ring[1:]...)
		}
		ring = append(ring, line)
	}
	return ring, scanner.Err()
}
