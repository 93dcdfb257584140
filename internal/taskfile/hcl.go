package taskfile

import (
	"errors"
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
)

// hclRoot decodes the top-level blocks of a task file.
type hclRoot struct {
	Tasks []*hclTask `hcl:"task,block"`
}

// hclTask is the raw shape of a `task` block.
type hclTask struct {
	Name      string         `hcl:"name,label"`
	Command   hcl.Expression `hcl:"command,optional"`
	DependsOn []string       `hcl:"depends_on,optional"`
	MaxRetry  int            `hcl:"max_retry,optional"`
}

func (l *FileLoader) loadHCL(path string) ([]Definition, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(path)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL file %s: %w", path, diags)
	}

	var root hclRoot
	if diags := gohcl.DecodeBody(file.Body, nil, &root); diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode HCL file %s: %w", path, diags)
	}

	evalCtx := l.evalContext()
	defs := make([]Definition, 0, len(root.Tasks))
	for _, t := range root.Tasks {
		command, err := evalCommand(t.Command, evalCtx)
		if err != nil {
			return nil, fmt.Errorf("%s: task %q: %w", path, t.Name, err)
		}
		defs = append(defs, Definition{
			Name:      t.Name,
			Command:   command,
			DependsOn: t.DependsOn,
			MaxRetry:  t.MaxRetry,
			Source:    path,
		})
	}
	return defs, nil
}

// evalContext exposes the environment as the `env` object.
func (l *FileLoader) evalContext() *hcl.EvalContext {
	vals := make(map[string]cty.Value, len(l.env))
	for k, v := range l.env {
		vals[k] = cty.StringVal(v)
	}
	return &hcl.EvalContext{
		Variables: map[string]cty.Value{
			"env": cty.ObjectVal(vals),
		},
	}
}

// evalCommand evaluates a command expression to a string. A missing or null
// command yields the empty string.
func evalCommand(expr hcl.Expression, evalCtx *hcl.EvalContext) (string, error) {
	if expr == nil {
		return "", nil
	}
	val, diags := expr.Value(evalCtx)
	if diags.HasErrors() {
		return "", fmt.Errorf("evaluate command: %w", diags)
	}
	if val.IsNull() {
		return "", nil
	}
	val, err := convert.Convert(val, cty.String)
	if err != nil {
		return "", fmt.Errorf("command must be a string: %w", err)
	}
	if !val.IsWhollyKnown() {
		return "", errors.New("command value is not known")
	}
	return val.AsString(), nil
}
