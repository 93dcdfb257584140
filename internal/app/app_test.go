package app

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/specialistvlad/taskgraph/internal/runner"
	"github.com/specialistvlad/taskgraph/internal/taskfile"
	"github.com/specialistvlad/taskgraph/internal/taskgraph"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// syncBuffer is a bytes.Buffer safe for the concurrent writes of workers and
// the logger.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func newTestApp(t *testing.T, manifest string) (*App, *syncBuffer) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tasks.hcl")
	require.NoError(t, os.WriteFile(path, []byte(manifest), 0o600))

	cfg, err := NewConfig(Config{
		Files:     []string{path},
		LogFormat: "text",
		LogLevel:  "error",
		Workers:   1,
	})
	require.NoError(t, err)

	out := &syncBuffer{}
	return NewApp(out, &syncBuffer{}, cfg, taskfile.NewLoader()), out
}

const pipeline = `
task "fetch" {
  command = "echo fetched"
}
task "build" {
  command    = "echo built"
  depends_on = ["fetch"]
}
task "test" {
  command    = "echo tested"
  depends_on = ["fetch"]
}
task "ship" {
  depends_on = ["build", "test"]
}
`

func TestNewConfig(t *testing.T) {
	valid := Config{Files: []string{"tasks.hcl"}, LogFormat: "json", LogLevel: "info", Workers: 2}

	cfg, err := NewConfig(valid)
	require.NoError(t, err)
	assert.Equal(t, valid, *cfg)

	testCases := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"no files", func(c *Config) { c.Files = nil }, "at least one task file"},
		{"bad format", func(c *Config) { c.LogFormat = "xml" }, "invalid log format"},
		{"bad level", func(c *Config) { c.LogLevel = "trace" }, "invalid log level"},
		{"no workers", func(c *Config) { c.Workers = 0 }, "workers must be at least 1"},
		{"negative delay", func(c *Config) { c.RetryDelay = -1 }, "retry delay"},
		{"port out of range", func(c *Config) { c.MetricsPort = 70000 }, "metrics port"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			c := valid
			tc.mutate(&c)
			_, err := NewConfig(c)
			assert.ErrorContains(t, err, tc.wantErr)
		})
	}
}

func TestValidate(t *testing.T) {
	a, out := newTestApp(t, pipeline)
	require.NoError(t, a.Validate(context.Background()))
	assert.Equal(t, "ok: 4 tasks in 3 waves\n", out.String())
}

func TestValidate_CycleIsManifestError(t *testing.T) {
	a, out := newTestApp(t, `
task "a" { depends_on = ["b"] }
task "b" { depends_on = ["a"] }
`)
	err := a.Validate(context.Background())
	require.ErrorIs(t, err, ErrInvalidManifest)
	require.ErrorIs(t, err, taskgraph.ErrCycleDetected)
	assert.Contains(t, out.String(), "a deps=[b] done=false")
}

func TestPlan(t *testing.T) {
	a, out := newTestApp(t, pipeline)
	require.NoError(t, a.Plan(context.Background()))

	want := "wave 1: fetch\n" +
		"wave 2: build, test\n" +
		"wave 3: ship\n" +
		"\n" +
		"fetch deps=[] done=false\n" +
		"build deps=[fetch] done=false\n" +
		"test deps=[fetch] done=false\n" +
		"ship deps=[build,test] done=false\n"
	assert.Equal(t, want, out.String())
}

func TestRun(t *testing.T) {
	a, out := newTestApp(t, pipeline)
	res, err := a.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"build", "fetch", "ship", "test"}, res.Succeeded)
	assert.Contains(t, out.String(), "[fetch] fetched\n")
	assert.Contains(t, out.String(), "[build] built\n")
	assert.Contains(t, out.String(), "4 succeeded, 0 failed, 0 blocked")
}

func TestRun_Failure(t *testing.T) {
	a, out := newTestApp(t, `
task "broken" { command = "exit 1" }
task "after" {
  command    = "echo never"
  depends_on = ["broken"]
}
`)
	res, err := a.Run(context.Background())
	require.ErrorIs(t, err, runner.ErrTasksFailed)
	assert.NotErrorIs(t, err, ErrInvalidManifest)

	assert.Equal(t, []string{"broken"}, res.Failed)
	assert.Equal(t, []string{"after"}, res.Blocked)
	assert.NotContains(t, out.String(), "never")
	assert.Contains(t, out.String(), "blocked: after")
}

func TestHandler(t *testing.T) {
	a, _ := newTestApp(t, pipeline)
	_, err := a.Run(context.Background())
	require.NoError(t, err)

	srv := httptest.NewServer(a.handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	var body bytes.Buffer
	_, err = body.ReadFrom(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, body.String(), "taskgraph_tasks_succeeded_total 4")
}
