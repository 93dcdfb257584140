package taskfile

import (
	"context"
	"fmt"

	"github.com/specialistvlad/taskgraph/internal/taskgraph"
)

// Definition is one task as declared in a manifest file.
type Definition struct {
	Name      string
	Command   string
	DependsOn []string
	MaxRetry  int
	// Source is the file the task was declared in.
	Source string
}

// Manifest is the format-agnostic result of loading task files.
type Manifest struct {
	Tasks []Definition
}

// Loader reads manifests from files or directories.
type Loader interface {
	Load(ctx context.Context, paths ...string) (*Manifest, error)
}

// Build registers every task of the manifest and finalizes the graph.
//
// When finalization fails the graph is still returned alongside the error so
// callers can print it for diagnostics. Errors from registering a task are
// returned without a graph.
func (m *Manifest) Build(opts ...taskgraph.Option) (*taskgraph.Graph, error) {
	g := taskgraph.New(opts...)
	for _, def := range m.Tasks {
		if err := g.AddTask(def.Name, def.DependsOn, def.Command, def.MaxRetry); err != nil {
			return nil, fmt.Errorf("%s: %w", def.Source, err)
		}
	}
	if err := g.Init(); err != nil {
		return g, err
	}
	return g, nil
}
