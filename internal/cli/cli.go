package cli

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/specialistvlad/taskgraph/internal/app"
	"github.com/specialistvlad/taskgraph/internal/taskfile"
)

// Exit codes.
const (
	ExitFailure = 1 // the run itself failed
	ExitUsage   = 2 // bad flags or an invalid task manifest
)

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

// options collects raw flag values shared by all subcommands.
type options struct {
	files       []string
	logFormat   string
	logLevel    string
	workers     int
	keepGoing   bool
	retryDelay  time.Duration
	shell       string
	metricsPort int
}

// Execute parses args and runs the selected subcommand. Every returned error
// is an *ExitError.
func Execute(ctx context.Context, args []string, outW, errW io.Writer) error {
	root := newRootCommand(outW, errW)
	root.SetArgs(args)
	root.SetOut(outW)
	root.SetErr(errW)

	err := root.ExecuteContext(ctx)
	if err == nil {
		return nil
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr
	}
	return &ExitError{Code: ExitUsage, Message: err.Error()}
}

func newRootCommand(outW, errW io.Writer) *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:   "taskgraph",
		Short: "Run tasks in dependency order.",
		Long: `taskgraph - a dependency-aware task runner.

Tasks are declared in HCL or YAML files. Each task names the tasks it depends
on; taskgraph validates the graph and runs every task once all of its
dependencies have succeeded.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return &ExitError{Code: ExitUsage, Message: err.Error()}
	})

	pf := root.PersistentFlags()
	pf.StringSliceVarP(&opts.files, "file", "f", nil, "Task file or directory (repeatable). Positional arguments are added too.")
	pf.StringVar(&opts.logFormat, "log-format", "text", "Log output format. Options: 'text' or 'json'.")
	pf.StringVar(&opts.logLevel, "log-level", "info", "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")

	root.AddCommand(
		newValidateCommand(opts, outW, errW),
		newPlanCommand(opts, outW, errW),
		newRunCommand(opts, outW, errW),
	)
	return root
}

func newValidateCommand(opts *options, outW, errW io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "validate [FILE...]",
		Short: "Load the task files and check the dependency graph.",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.newApp(args, outW, errW)
			if err != nil {
				return err
			}
			return toExitError(a.Validate(cmd.Context()))
		},
	}
}

func newPlanCommand(opts *options, outW, errW io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "plan [FILE...]",
		Short: "Print the execution waves without running anything.",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.newApp(args, outW, errW)
			if err != nil {
				return err
			}
			return toExitError(a.Plan(cmd.Context()))
		},
	}
}

func newRunCommand(opts *options, outW, errW io.Writer) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run [FILE...]",
		Short: "Run every task in dependency order.",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.newApp(args, outW, errW)
			if err != nil {
				return err
			}
			_, err = a.Run(cmd.Context())
			return toExitError(err)
		},
	}
	addRunFlags(cmd.Flags(), opts)
	return cmd
}

func addRunFlags(fs *pflag.FlagSet, opts *options) {
	fs.IntVarP(&opts.workers, "workers", "w", 4, "Number of tasks run concurrently.")
	fs.BoolVarP(&opts.keepGoing, "keep-going", "k", false, "Keep running independent tasks after a failure.")
	fs.DurationVar(&opts.retryDelay, "retry-delay", 0, "Pause between a failed attempt and its retry.")
	fs.StringVar(&opts.shell, "shell", "/bin/sh", "Shell used to run task commands.")
	fs.IntVar(&opts.metricsPort, "metrics-port", 0, "Port for the /metrics and /health endpoints. 0 is disabled.")
}

// newApp validates the collected flags and builds the application.
func (o *options) newApp(args []string, outW, errW io.Writer) (*app.App, error) {
	files := append(append([]string(nil), o.files...), args...)
	workers := o.workers
	if workers == 0 {
		// validate and plan do not register --workers.
		workers = 1
	}

	cfg, err := app.NewConfig(app.Config{
		Files:       files,
		LogFormat:   o.logFormat,
		LogLevel:    o.logLevel,
		Workers:     workers,
		KeepGoing:   o.keepGoing,
		RetryDelay:  o.retryDelay,
		Shell:       o.shell,
		MetricsPort: o.metricsPort,
	})
	if err != nil {
		return nil, &ExitError{Code: ExitUsage, Message: err.Error()}
	}
	slog.Debug("CLI parser finished successfully.", "config", cfg)
	return app.NewApp(outW, errW, cfg, taskfile.NewLoader()), nil
}

func toExitError(err error) error {
	if err == nil {
		return nil
	}
	code := ExitFailure
	if errors.Is(err, app.ErrInvalidManifest) {
		code = ExitUsage
	}
	return &ExitError{Code: code, Message: err.Error()}
}
