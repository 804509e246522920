package commands

import (
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/taskwheel/taskwheel"
	"github.com/taskwheel/taskwheel/internal/tui"
)

// NewTuiCommand creates the tui subcommand: it starts a Scheduler and
// opens a live dashboard over its Outcome stream.
func NewTuiCommand() *cobra.Command {
	var workers int

	cmd := &cobra.Command{
		Use:     "tui",
		Short:   "Open a live dashboard over an in-process scheduler",
		Example: `  taskwheel tui`,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := zerolog.Nop()
			if logFile, ferr := openLogFile(); ferr == nil {
				defer logFile.Close()
				logger = zerolog.New(logFile).With().Timestamp().Logger()
			}

			events := make(chan taskwheel.Outcome, 64)
			sched, err := taskwheel.New(taskwheel.Config{
				Workers: workers,
				Events:  events,
				Logger:  logger,
			})
			if err != nil {
				return err
			}
			defer sched.Stop()

			return tui.Run(tui.Config{Scheduler: sched, Events: events})
		},
	}

	cmd.Flags().IntVar(&workers, "workers", 0, "pool executor worker count (0 = single-goroutine inline executor)")
	return cmd
}
