// Package testutil holds shared helpers for tests that drive task files
// through the loader, the scheduling engine and the runner together.
package testutil
