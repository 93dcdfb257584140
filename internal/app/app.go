package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/specialistvlad/taskgraph/internal/ctxlog"
	"github.com/specialistvlad/taskgraph/internal/taskfile"
	"github.com/specialistvlad/taskgraph/internal/taskgraph"
)

// ErrInvalidManifest marks failures caused by the task files rather than by
// running them.
var ErrInvalidManifest = errors.New("invalid task manifest")

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	outW   io.Writer
	errW   io.Writer
	logger *slog.Logger
	config *Config
	loader taskfile.Loader

	registry   *prometheus.Registry
	httpServer *http.Server
}

// NewApp is the constructor for the main application. User-facing output
// goes to outW; logs and task stderr go to errW.
func NewApp(outW, errW io.Writer, cfg *Config, loader taskfile.Loader) *App {
	logger := newLogger(cfg.LogLevel, cfg.LogFormat, errW)
	logger.Debug("Logger configured successfully.")

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())

	return &App{
		outW:     outW,
		errW:     errW,
		logger:   logger,
		config:   cfg,
		loader:   loader,
		registry: registry,
	}
}

// loadGraph reads the configured task files and finalizes the graph. When the
// graph fails validation its dump is written to the output for diagnosis.
func (a *App) loadGraph(ctx context.Context) (*taskgraph.Graph, error) {
	ctx = ctxlog.WithLogger(ctx, a.logger)

	manifest, err := a.loader.Load(ctx, a.config.Files...)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidManifest, err)
	}

	g, err := manifest.Build(taskgraph.WithLogger(a.logger))
	if err != nil {
		if g != nil {
			fmt.Fprintln(a.outW, "Task graph (invalid):")
			if perr := g.PrintGraph(a.outW); perr != nil {
				a.logger.Warn("Failed to print task graph.", "error", perr)
			}
		}
		return nil, fmt.Errorf("%w: %w", ErrInvalidManifest, err)
	}
	a.logger.Debug("Task graph built.", "tasks", g.Len())
	return g, nil
}
