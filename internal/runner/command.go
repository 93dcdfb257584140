package runner

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"github.com/specialistvlad/taskgraph/internal/taskgraph"
)

// CommandRunner executes the command of a single task attempt.
type CommandRunner interface {
	Run(ctx context.Context, task taskgraph.Task) error
}

// CommandFunc adapts a function to the CommandRunner interface.
type CommandFunc func(ctx context.Context, task taskgraph.Task) error

// Run calls f.
func (f CommandFunc) Run(ctx context.Context, task taskgraph.Task) error {
	return f(ctx, task)
}

// ShellRunner runs task commands through a shell, one process per attempt.
type ShellRunner struct {
	// Shell is the interpreter invoked as `<Shell> -c <command>`.
	Shell  string
	Dir    string
	Env    []string
	Stdout io.Writer
	Stderr io.Writer
}

// NewShellRunner creates a ShellRunner writing process output to the given
// writers. An empty shell defaults to /bin/sh.
func NewShellRunner(shell string, stdout, stderr io.Writer) *ShellRunner {
	if shell == "" {
		shell = "/bin/sh"
	}
	return &ShellRunner{Shell: shell, Stdout: stdout, Stderr: stderr}
}

// Run executes the task command. An empty command succeeds without spawning
// a process unless ctx is already done.
func (r *ShellRunner) Run(ctx context.Context, task taskgraph.Task) error {
	if strings.TrimSpace(task.Command) == "" {
		return ctx.Err()
	}

	cmd := exec.CommandContext(ctx, r.Shell, "-c", task.Command)
	cmd.Dir = r.Dir
	cmd.Env = append(os.Environ(), r.Env...)
	cmd.Env = append(cmd.Env, "TASKGRAPH_TASK="+task.Name)
	cmd.Stdout = prefixed(r.Stdout, task.Name)
	cmd.Stderr = prefixed(r.Stderr, task.Name)

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("command %q: %w", task.Command, err)
	}
	return nil
}

func prefixed(w io.Writer, name string) io.Writer {
	if w == nil {
		return io.Discard
	}
	return &linePrefixWriter{w: w, prefix: "[" + name + "] ", atStart: true}
}

// linePrefixWriter tags every output line with the task name so that
// interleaved output of parallel tasks stays readable.
type linePrefixWriter struct {
	w       io.Writer
	prefix  string
	atStart bool
}

func (p *linePrefixWriter) Write(b []byte) (int, error) {
	var sb strings.Builder
	for _, c := range string(b) {
		if p.atStart {
			sb.WriteString(p.prefix)
			p.atStart = false
		}
		sb.WriteRune(c)
		if c == '\n' {
			p.atStart = true
		}
	}
	if _, err := io.WriteString(p.w, sb.String()); err != nil {
		return 0, err
	}
	return len(b), nil
}
