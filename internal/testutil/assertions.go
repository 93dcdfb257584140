package testutil

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// AssertRanBefore checks that first finished before second started.
func AssertRanBefore(t *testing.T, s *SleeperRunner, first, second string) {
	t.Helper()

	a, ok := s.Record(first)
	require.True(t, ok, "task %q never ran", first)
	b, ok := s.Record(second)
	require.True(t, ok, "task %q never ran", second)

	require.False(t, b.Start.Before(a.End),
		"task %q started at %v, before %q finished at %v", second, b.Start, first, a.End)
}

// AssertOverlapped checks that the execution windows of a and b intersect.
func AssertOverlapped(t *testing.T, s *SleeperRunner, a, b string) {
	t.Helper()

	ra, ok := s.Record(a)
	require.True(t, ok, "task %q never ran", a)
	rb, ok := s.Record(b)
	require.True(t, ok, "task %q never ran", b)

	require.True(t, ra.Start.Before(rb.End) && rb.Start.Before(ra.End),
		"tasks %q and %q were expected to run concurrently", a, b)
}

// AssertNotRan checks that the named task was never dispatched.
func AssertNotRan(t *testing.T, s *SleeperRunner, name string) {
	t.Helper()
	_, ok := s.Record(name)
	require.False(t, ok, "task %q was not expected to run", name)
}
