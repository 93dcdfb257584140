package testutil

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/specialistvlad/taskgraph/internal/ctxlog"
	"github.com/specialistvlad/taskgraph/internal/runner"
	"github.com/specialistvlad/taskgraph/internal/taskfile"
	"github.com/specialistvlad/taskgraph/internal/taskgraph"
)

// SafeBuffer is a thread-safe buffer for capturing log output in tests.
type SafeBuffer struct {
	b  bytes.Buffer
	mu sync.Mutex
}

// Write implements the io.Writer interface for SafeBuffer.
func (b *SafeBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.b.Write(p)
}

// String implements the fmt.Stringer interface for SafeBuffer.
func (b *SafeBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.b.String()
}

// HarnessResult holds the outcomes of an integration test run.
type HarnessResult struct {
	LogOutput string
	Graph     *taskgraph.Graph
	Result    *runner.Result
	Err       error
}

// RunTaskfile provides a standardized harness for running integration tests
// using a default background context.
func RunTaskfile(t *testing.T, files map[string]string, cmd runner.CommandRunner, cfg runner.Config) *HarnessResult {
	t.Helper()
	return RunTaskfileWithContext(context.Background(), t, files, cmd, cfg)
}

// RunTaskfileWithContext writes files (relative path to content) into a
// temporary directory, loads them, builds the graph and runs it with cmd.
// Load and build failures are returned in Err without running anything.
func RunTaskfileWithContext(ctx context.Context, t *testing.T, files map[string]string, cmd runner.CommandRunner, cfg runner.Config) *HarnessResult {
	t.Helper()

	tmpDir := t.TempDir()
	for name, content := range files {
		filePath := filepath.Join(tmpDir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(filePath), 0o755))
		require.NoError(t, os.WriteFile(filePath, []byte(content), 0o644))
	}

	logBuffer := &SafeBuffer{}
	logger := slog.New(slog.NewTextHandler(logBuffer, &slog.HandlerOptions{Level: slog.LevelDebug}))
	ctx = ctxlog.WithLogger(ctx, logger)

	res := &HarnessResult{}
	defer func() {
		res.LogOutput = logBuffer.String()
		if os.Getenv("TASKGRAPH_TEST_LOGS") == "true" {
			t.Logf("--- Full Log Output for %s ---\n%s", t.Name(), res.LogOutput)
		}
	}()

	manifest, err := taskfile.NewLoader().Load(ctx, tmpDir)
	if err != nil {
		res.Err = err
		return res
	}
	res.Graph, err = manifest.Build(taskgraph.WithLogger(logger))
	if err != nil {
		res.Err = err
		return res
	}

	if cfg.Workers == 0 {
		cfg.Workers = 4
	}
	res.Result, res.Err = runner.New(res.Graph, cmd, cfg, runner.NewMetrics(nil)).Run(ctx)
	return res
}
