package taskfile

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/specialistvlad/taskgraph/internal/ctxlog"
)

// FileLoader is the file-system implementation of Loader. It dispatches on
// file extension.
type FileLoader struct {
	env map[string]string
}

// LoaderOption configures a FileLoader.
type LoaderOption func(*FileLoader)

// WithEnv replaces the environment exposed to HCL expressions. By default
// the process environment is used.
func WithEnv(env map[string]string) LoaderOption {
	return func(l *FileLoader) {
		l.env = env
	}
}

// NewLoader creates a new task file loader.
func NewLoader(opts ...LoaderOption) *FileLoader {
	l := &FileLoader{env: processEnv()}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load parses every task file under the given paths, in the order given.
// Files inside a directory are visited in lexical order.
func (l *FileLoader) Load(ctx context.Context, paths ...string) (*Manifest, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Task file loader started.", "path_count", len(paths))

	files, err := findTaskFiles(paths)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no task files found in %s", strings.Join(paths, ", "))
	}
	logger.Debug("Discovered task files.", "count", len(files))

	manifest := &Manifest{}
	for _, file := range files {
		var defs []Definition
		switch formatOf(file) {
		case formatHCL:
			defs, err = l.loadHCL(file)
		case formatYAML:
			defs, err = loadYAML(file)
		}
		if err != nil {
			return nil, err
		}
		logger.Debug("Loaded task file.", "file", file, "tasks", len(defs))
		manifest.Tasks = append(manifest.Tasks, defs...)
	}

	logger.Debug("Task file loading complete.", "tasks", len(manifest.Tasks))
	return manifest, nil
}

type format int

const (
	formatUnknown format = iota
	formatHCL
	formatYAML
)

func formatOf(path string) format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".hcl":
		return formatHCL
	case ".yaml", ".yml":
		return formatYAML
	default:
		return formatUnknown
	}
}

// findTaskFiles walks all given paths and returns a flat, deduplicated list
// of task files. A file named explicitly must have a known extension.
func findTaskFiles(paths []string) ([]string, error) {
	var files []string
	seen := make(map[string]struct{})
	add := func(p string) {
		if _, ok := seen[p]; !ok {
			seen[p] = struct{}{}
			files = append(files, p)
		}
	}

	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			return nil, fmt.Errorf("error accessing path %s: %w", path, err)
		}

		if !info.IsDir() {
			if formatOf(path) == formatUnknown {
				return nil, fmt.Errorf("unsupported task file %s: expected .hcl, .yaml or .yml", path)
			}
			add(filepath.Clean(path))
			continue
		}

		err = filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() && formatOf(p) != formatUnknown {
				add(filepath.Clean(p))
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return files, nil
}

func processEnv() map[string]string {
	env := make(map[string]string)
	for _, kv := range os.Environ() {
		if k, v, ok := strings.Cut(kv, "="); ok && k != "" {
			env[k] = v
		}
	}
	return env
}
