package scheduler

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSharedQueueRunsFn(t *testing.T) {
	s := NewShared(1, 2)
	defer s.Close()

	done := make(chan struct{})
	s.Queue(func() { close(done) }, nil)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("fn never ran")
	}
}

func TestSharedRunsDestroyAfterFn(t *testing.T) {
	s := NewShared(1, 2)
	defer s.Close()

	var ran, destroyed int32
	done := make(chan struct{})
	s.Queue(func() { atomic.StoreInt32(&ran, 1) }, func() {
		atomic.StoreInt32(&destroyed, 1)
		close(done)
	})

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("destroy never ran")
	}
	require.Equal(t, int32(1), atomic.LoadInt32(&ran))
	require.Equal(t, int32(1), atomic.LoadInt32(&destroyed))
}

func TestSharedFIFOWithOneWorker(t *testing.T) {
	s := NewShared(1, 1)
	defer s.Close()

	var mu sync.Mutex
	var order []int
	var wg sync.WaitGroup
	wg.Add(3)
	for i := 1; i <= 3; i++ {
		i := i
		s.Queue(func() {
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
			wg.Done()
		}, nil)
	}
	wg.Wait()
	require.Equal(t, []int{1, 2, 3}, order)
}

func TestSharedCloseRunsDestroyForUnrunItems(t *testing.T) {
	s := NewShared(0, 1)
	// No workers started (min=0): nothing pops until Close drains.
	var destroyed int32
	require.NoError(t, s.q.Push(workItem{fn: func() {}, destroy: func() { atomic.AddInt32(&destroyed, 1) }}))
	s.Close()
	require.Equal(t, int32(1), atomic.LoadInt32(&destroyed))
}

func TestSharedQueueAfterCloseRunsDestroyImmediately(t *testing.T) {
	s := NewShared(1, 1)
	s.Close()

	var destroyed int32
	s.Queue(func() { t.Fatal("fn must not run after close") }, func() {
		atomic.StoreInt32(&destroyed, 1)
	})
	require.Equal(t, int32(1), atomic.LoadInt32(&destroyed))
}

func TestSharedMinMaxThreads(t *testing.T) {
	s := NewShared(2, 5)
	defer s.Close()
	require.Equal(t, 2, s.MinThreads())
	require.Equal(t, 5, s.MaxThreads())
}
