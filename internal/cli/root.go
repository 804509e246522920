// Package cli provides the command-line interface for taskwheel.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/taskwheel/taskwheel/internal/cli/commands"
	"github.com/taskwheel/taskwheel/internal/version"
)

var rootCmd = &cobra.Command{
	Use:   "taskwheel",
	Short: "A programmable delayed-and-recurring task scheduler",
	Long: `taskwheel runs a hierarchical timing wheel and a 7-field cron
evaluator in a single process, dispatching task bodies through an inline
executor or a bounded worker pool with per-task parallelism caps and
deadlines.`,
	Version: version.Version,
}

func init() {
	rootCmd.AddCommand(commands.NewRunCommand())
	rootCmd.AddCommand(commands.NewTuiCommand())
	rootCmd.AddCommand(commands.NewVersionCommand())

	rootCmd.PersistentFlags().StringP("config", "c", "", "config file (default is ~/.taskwheel/taskwheel.json)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "enable verbose output (read only by run, through its own -v flag; tui and version ignore it)")

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		if path, _ := cmd.Flags().GetString("config"); path != "" {
			return os.Setenv("TASKWHEEL_CONFIG_PATH", path)
		}
		return nil
	}
}

// Execute runs the root command.
func Execute() error {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return err
	}
	return nil
}
