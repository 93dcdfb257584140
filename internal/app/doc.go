// Package app contains the core application logic. It wires the task file
// loader, the dependency graph and the runner together behind the three
// user-facing operations (validate, plan, run), decoupled from any specific
// entrypoint like a CLI.
package app
