package integration_tests

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/specialistvlad/taskgraph/internal/runner"
	"github.com/specialistvlad/taskgraph/internal/testutil"
)

// TestDagConcurrency_FanOutExecution validates that tasks unlocked by the same
// dependency run concurrently.
func TestDagConcurrency_FanOutExecution(t *testing.T) {
	t.Parallel()
	// --- Arrange ---
	tasksYAML := `
tasks:
  - name: A
  - name: B
    depends_on: [A]
  - name: C
    depends_on: [A]
  - name: D
    depends_on: [A]
`
	files := map[string]string{"tasks.yaml": tasksYAML}
	sleeper := testutil.NewSleeperRunner(200 * time.Millisecond)

	// --- Act ---
	result := testutil.RunTaskfile(t, files, sleeper, runner.Config{Workers: 4})

	// --- Assert ---
	require.NoError(t, result.Err)
	for _, name := range []string{"B", "C", "D"} {
		testutil.AssertRanBefore(t, sleeper, "A", name)
	}
	testutil.AssertOverlapped(t, sleeper, "B", "C")
	testutil.AssertOverlapped(t, sleeper, "C", "D")
	require.Equal(t, 3, sleeper.MaxConcurrent())
}
