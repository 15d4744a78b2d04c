package scheduler

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMainContextTickRunsQueuedItemsInOrder(t *testing.T) {
	s := NewMainContext()
	var order []int
	for i := 1; i <= 3; i++ {
		i := i
		s.Queue(func() { order = append(order, i) }, nil)
	}

	require.Equal(t, 0, len(order)) // nothing runs before Tick
	n := s.Tick()
	require.Equal(t, 3, n)
	require.Equal(t, []int{1, 2, 3}, order)
}

func TestMainContextTickIsIdempotentWhenDrained(t *testing.T) {
	s := NewMainContext()
	s.Queue(func() {}, nil)
	require.Equal(t, 1, s.Tick())
	require.Equal(t, 0, s.Tick())
}

func TestMainContextCloseRunsDestroyWithoutFn(t *testing.T) {
	s := NewMainContext()
	destroyed := false
	s.Queue(func() { t.Fatal("fn must not run on Close") }, func() { destroyed = true })
	s.Close()
	require.True(t, destroyed)
	require.Equal(t, 0, s.Tick())
}

func TestMainContextMinMaxThreadsAreZero(t *testing.T) {
	s := NewMainContext()
	require.Equal(t, 0, s.MinThreads())
	require.Equal(t, 0, s.MaxThreads())
}
