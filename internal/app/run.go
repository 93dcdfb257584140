package app

import (
	"context"
	"fmt"
	"strings"

	"github.com/specialistvlad/taskgraph/internal/ctxlog"
	"github.com/specialistvlad/taskgraph/internal/runner"
)

// Validate loads and finalizes the task graph without running anything.
func (a *App) Validate(ctx context.Context) error {
	g, err := a.loadGraph(ctx)
	if err != nil {
		return err
	}
	levels, err := g.Levels()
	if err != nil {
		return err
	}
	fmt.Fprintf(a.outW, "ok: %d tasks in %d waves\n", g.Len(), len(levels))
	return nil
}

// Plan prints the execution waves and the graph dump.
func (a *App) Plan(ctx context.Context) error {
	g, err := a.loadGraph(ctx)
	if err != nil {
		return err
	}
	levels, err := g.Levels()
	if err != nil {
		return err
	}
	for i, wave := range levels {
		fmt.Fprintf(a.outW, "wave %d: %s\n", i+1, strings.Join(wave, ", "))
	}
	fmt.Fprintln(a.outW)
	return g.PrintGraph(a.outW)
}

// Run executes the task graph and prints a summary.
func (a *App) Run(ctx context.Context) (*runner.Result, error) {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.logger.Debug("App.Run method started.")

	g, err := a.loadGraph(ctx)
	if err != nil {
		return nil, err
	}

	if err := a.startMetricsServer(ctx); err != nil {
		return nil, err
	}
	defer func() {
		if err := a.closeMetricsServer(ctx); err != nil {
			a.logger.Warn("Metrics server shutdown failed.", "error", err)
		}
	}()

	shell := runner.NewShellRunner(a.config.Shell, a.outW, a.errW)
	r := runner.New(g, shell, runner.Config{
		Workers:    a.config.Workers,
		KeepGoing:  a.config.KeepGoing,
		RetryDelay: a.config.RetryDelay,
	}, runner.NewMetrics(a.registry))

	a.logger.Info("🚀 Starting execution...", "tasks", g.Len())
	result, runErr := r.Run(ctx)
	a.printSummary(result)
	if runErr != nil {
		return result, fmt.Errorf("execution failed: %w", runErr)
	}
	a.logger.Info("🏁 Execution finished.")
	return result, nil
}

func (a *App) printSummary(res *runner.Result) {
	fmt.Fprintf(a.outW, "run %s: %d succeeded, %d failed, %d blocked\n",
		res.RunID, len(res.Succeeded), len(res.Failed), len(res.Blocked))
	if len(res.Failed) > 0 {
		fmt.Fprintf(a.outW, "  failed:  %s\n", strings.Join(res.Failed, ", "))
	}
	if len(res.Blocked) > 0 {
		fmt.Fprintf(a.outW, "  blocked: %s\n", strings.Join(res.Blocked, ", "))
	}
}
