package scheduler

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLockFreeQueueRunsFn(t *testing.T) {
	s := NewLockFree(1, 2)
	defer s.Close()

	done := make(chan struct{})
	s.Queue(func() { close(done) }, nil)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("fn never ran")
	}
}

func TestLockFreeZeroMinSpawnsOnDemand(t *testing.T) {
	s := NewLockFree(0, 2)
	defer s.Close()
	require.Equal(t, 0, s.MinThreads())

	done := make(chan struct{})
	s.Queue(func() { close(done) }, nil)
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("fn never ran after on-demand spawn")
	}
}

func TestLockFreeStealingDistributesWork(t *testing.T) {
	s := NewLockFree(2, 2)
	defer s.Close()

	const n = 200
	var count int32
	done := make(chan struct{})
	for i := 0; i < n; i++ {
		s.Queue(func() {
			if atomic.AddInt32(&count, 1) == n {
				close(done)
			}
		}, nil)
	}

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatalf("only %d/%d items ran", atomic.LoadInt32(&count), n)
	}
}

// TestLockFreeDestroyAlwaysRunsExactlyOnce exercises both the "a worker got
// to it" path and the "Close drained it unrun" path: whichever happens,
// destroy must fire exactly once.
func TestLockFreeDestroyAlwaysRunsExactlyOnce(t *testing.T) {
	s := NewLockFree(1, 1)

	var destroyed int32
	block := make(chan struct{})
	s.Queue(func() {
		// keep the single worker busy so the next item sits queued
		<-block
	}, nil)
	s.Queue(func() {}, func() { atomic.AddInt32(&destroyed, 1) })

	close(block)
	s.Close()
	require.Equal(t, int32(1), atomic.LoadInt32(&destroyed))
}
