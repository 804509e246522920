package commands

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/taskwheel/taskwheel"
	"github.com/taskwheel/taskwheel/cron"
	"github.com/taskwheel/taskwheel/executor"
	"github.com/taskwheel/taskwheel/internal/config"
)

// NewRunCommand creates the "run" subcommand: it starts a scheduler and
// drops into a small line-oriented session where add/list/remove/cancel
// map directly onto the Façade, since the scheduler is purely in-memory
// and owns no persistent daemon to talk to across separate CLI
// invocations (spec.md §1 places the CLI demo and any such "gateway"
// outside the core's scope).
func NewRunCommand() *cobra.Command {
	var workers int
	var verbose bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Start a scheduler and manage tasks interactively",
		Example: `  taskwheel run
  > add 1 cron "*/5 * * * * * *" command "echo tick"
  > list
  > remove 1`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				cfg = &config.Config{}
			}
			if workers == 0 {
				workers = cfg.Scheduler.Workers
			}

			logLevel := zerolog.InfoLevel
			if verbose {
				logLevel = zerolog.DebugLevel
			}
			writers := []io.Writer{cmd.ErrOrStderr()}
			if logFile, ferr := openLogFile(); ferr == nil {
				defer logFile.Close()
				writers = append(writers, logFile)
			}
			logger := zerolog.New(zerolog.MultiLevelWriter(writers...)).Level(logLevel).With().Timestamp().Logger()

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

			go printOutcomes(cmd.OutOrStdout(), events)

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

			return runSession(cmd.InOrStdin(), cmd.OutOrStdout(), sched, sigCh)
		},
	}

	cmd.Flags().IntVar(&workers, "workers", 0, "pool executor worker count (0 = use scheduler.workers from the config; inline executor when that is 0 too)")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "debug-level logging")
	return cmd
}

func printOutcomes(out io.Writer, events <-chan taskwheel.Outcome) {
	for o := range events {
		fmt.Fprintf(out, "[%s] task=%d instance=%d %s\n", o.At.Format("15:04:05"), o.TaskID, o.InstanceID, o.Kind)
	}
}

// runSession reads add/list/remove/cancel/quit lines from in until EOF,
// quit, or a termination signal.
func runSession(in io.Reader, out io.Writer, sched *taskwheel.Scheduler, sigCh <-chan os.Signal) error {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	tasks := map[uint64]string{} // id -> description, for `list`
	fmt.Fprintln(out, "taskwheel session started. Commands: add, list, remove <id>, cancel <id> <instance>, quit")

	for {
		select {
		case <-sigCh:
			fmt.Fprintln(out, "\nsignal received, stopping")
			return nil
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			if strings.TrimSpace(line) == "" {
				continue
			}
			if err := handleLine(out, sched, tasks, line); err != nil {
				if err == errQuit {
					return nil
				}
				fmt.Fprintf(out, "error: %v\n", err)
			}
		}
	}
}

var errQuit = fmt.Errorf("quit")

func handleLine(out io.Writer, sched *taskwheel.Scheduler, tasks map[uint64]string, line string) error {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil
	}

	switch fields[0] {
	case "quit", "exit":
		return errQuit
	case "list":
		w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tSCHEDULE")
		for id, desc := range tasks {
			fmt.Fprintf(w, "%d\t%s\n", id, desc)
		}
		return w.Flush()
	case "remove":
		if len(fields) < 2 {
			return fmt.Errorf("usage: remove <id>")
		}
		id, err := strconv.ParseUint(fields[1], 10, 64)
		if err != nil {
			return err
		}
		delete(tasks, id)
		return sched.RemoveTask(id)
	case "cancel":
		if len(fields) < 3 {
			return fmt.Errorf("usage: cancel <id> <instance>")
		}
		id, err := strconv.ParseUint(fields[1], 10, 64)
		if err != nil {
			return err
		}
		inst, err := strconv.ParseUint(fields[2], 10, 64)
		if err != nil {
			return err
		}
		return sched.CancelInstance(id, inst)
	case "add":
		return handleAdd(sched, tasks, fields[1:])
	default:
		return fmt.Errorf("unknown command %q", fields[0])
	}
}

// handleAdd parses one of:
//
//	add <id> cron "<7-field expr>" command "<shell command>" [cap=N] [maxrun=Ns] [countdown=N]
//	add <id> every <go duration> command "<shell command>"
//	add <id> at <RFC3339 instant> command "<shell command>"
//
// and rebuilds the quoted segments that strings.Fields already split on
// whitespace.
func handleAdd(sched *taskwheel.Scheduler, tasks map[uint64]string, fields []string) error {
	joined := strings.Join(fields, " ")
	parts := splitQuoted(joined)
	if len(parts) < 4 {
		return fmt.Errorf("usage: add <id> cron|every|at <value> command <shell command>")
	}

	id, err := strconv.ParseUint(parts[0], 10, 64)
	if err != nil {
		return err
	}
	if id == 0 {
		return taskwheel.ErrInvalidTaskID
	}

	kind := parts[1]
	value := parts[2]
	if parts[3] != "command" || len(parts) < 5 {
		return fmt.Errorf("expected `command \"<shell command>\"`")
	}
	command := parts[4]

	var expr *cron.Expr
	switch kind {
	case "cron":
		expr, err = cron.Parse(value)
	case "every":
		d, derr := time.ParseDuration(value)
		if derr != nil {
			return derr
		}
		expr, err = cron.Every(d)
	case "at":
		t, terr := time.Parse(time.RFC3339, value)
		if terr != nil {
			return terr
		}
		expr = cron.At(t)
	default:
		return fmt.Errorf("unknown schedule kind %q (want cron|every|at)", kind)
	}
	if err != nil {
		return err
	}

	parallelCap := 1
	var maxRun time.Duration
	countdown := 0
	for _, extra := range parts[5:] {
		kv := strings.SplitN(extra, "=", 2)
		if len(kv) != 2 {
			continue
		}
		switch kv[0] {
		case "cap":
			parallelCap, _ = strconv.Atoi(kv[1])
		case "maxrun":
			maxRun, _ = time.ParseDuration(kv[1])
		case "countdown":
			countdown, _ = strconv.Atoi(kv[1])
		}
	}

	freq := taskwheel.Repeated(expr)
	if kind == "at" {
		freq = taskwheel.Once(expr)
	} else if countdown > 0 {
		freq = taskwheel.CountDown(countdown, expr)
	}

	t := taskwheel.Task{
		ID:             id,
		Frequency:      freq,
		ParallelismCap: parallelCap,
		MaxRunningTime: maxRun,
		Body: func() executor.Runnable {
			return executor.Subprocess(command)
		},
	}
	if err := sched.AddTask(t); err != nil {
		return err
	}
	tasks[id] = fmt.Sprintf("%s %s -> %q", kind, value, command)
	return nil
}

// splitQuoted splits s on whitespace but keeps double-quoted segments
// (including their interior spaces) as single tokens.
func splitQuoted(s string) []string {
	var out []string
	var cur strings.Builder
	inQuotes := false
	flush := func() {
		if cur.Len() > 0 {
			out = append(out, cur.String())
			cur.Reset()
		}
	}
	for _, r := range s {
		switch {
		case r == '"':
			inQuotes = !inQuotes
		case r == ' ' && !inQuotes:
			flush()
		default:
			cur.WriteRune(r)
		}
	}
	flush()
	return out
}
