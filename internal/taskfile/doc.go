// Package taskfile loads task definitions from disk and turns them into a
// finalized taskgraph.Graph.
//
// Two formats are understood, chosen by file extension.
//
// HCL (.hcl):
//
//	task "build" {
//	  command    = "go build ${env.GOFLAGS} ./..."
//	  depends_on = ["generate"]
//	  max_retry  = 2
//	}
//
// The command attribute is an HCL expression evaluated with an `env` object
// holding the loader's environment, so commands may interpolate variables.
//
// YAML (.yaml, .yml):
//
//	tasks:
//	  - name: build
//	    command: go build ./...
//	    depends_on: [generate]
//	    max_retry: 2
//
// Paths may be files or directories; directories are walked recursively.
package taskfile
