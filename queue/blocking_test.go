package queue

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"
)

func TestBlockingPushPop(t *testing.T) {
	q := NewBlocking[int]()
	require.NoError(t, q.Push(1))
	require.NoError(t, q.Push(2))
	require.Equal(t, 2, q.Len())

	v, err := q.Pop(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, v)
}

func TestBlockingTryPopEmpty(t *testing.T) {
	q := NewBlocking[int]()
	_, ok := q.TryPop()
	require.False(t, ok)
}

func TestBlockingCloseDrainsThenErrCloseds(t *testing.T) {
	q := NewBlocking[int]()
	require.NoError(t, q.Push(1))
	q.Close()

	v, err := q.Pop(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, v)

	_, err = q.Pop(context.Background())
	require.ErrorIs(t, err, ErrClosed)
}

func TestBlockingPushAfterCloseFails(t *testing.T) {
	q := NewBlocking[int]()
	q.Close()
	require.ErrorIs(t, q.Push(1), ErrClosed)
}

func TestBlockingPopWakesOnPush(t *testing.T) {
	q := NewBlocking[int]()
	result := make(chan int, 1)
	go func() {
		v, err := q.Pop(context.Background())
		require.NoError(t, err)
		result <- v
	}()

	time.Sleep(20 * time.Millisecond)
	require.NoError(t, q.Push(7))

	select {
	case v := <-result:
		require.Equal(t, 7, v)
	case <-time.After(time.Second):
		t.Fatal("Pop never woke up")
	}
}

func TestBlockingPopRespectsContextCancel(t *testing.T) {
	q := NewBlocking[int]()
	ctx, cancel := context.WithCancel(context.Background())

	errc := make(chan error, 1)
	go func() {
		_, err := q.Pop(ctx)
		errc <- err
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-errc:
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("Pop never observed cancellation")
	}
}

func TestBlockingTimedPopDeadlineWithFakeClock(t *testing.T) {
	fc := clockwork.NewFakeClock()
	q := newBlockingWithClock[int](fc)

	errc := make(chan error, 1)
	go func() {
		_, err := q.TimedPop(time.Second)
		errc <- err
	}()

	fc.BlockUntil(1)
	fc.Advance(time.Second)

	select {
	case err := <-errc:
		require.ErrorIs(t, err, ErrTimeout)
	case <-time.After(time.Second):
		t.Fatal("TimedPop never observed the fake deadline")
	}
}

func TestBlockingTimedPopSucceedsBeforeDeadline(t *testing.T) {
	fc := clockwork.NewFakeClock()
	q := newBlockingWithClock[int](fc)
	require.NoError(t, q.Push(5))

	v, err := q.TimedPop(time.Second)
	require.NoError(t, err)
	require.Equal(t, 5, v)
}

func TestBlockingTryPopOrCloseReturnsValueWithoutClosing(t *testing.T) {
	q := NewBlocking[int]()
	require.NoError(t, q.Push(1))
	require.NoError(t, q.Push(2))

	v, ok := q.TryPopOrClose()
	require.True(t, ok)
	require.Equal(t, 1, v)

	require.NoError(t, q.Push(3))
	require.Equal(t, 2, q.Len())
}

func TestBlockingTryPopOrCloseClosesOnEmpty(t *testing.T) {
	q := NewBlocking[int]()

	_, ok := q.TryPopOrClose()
	require.False(t, ok)
	require.ErrorIs(t, q.Push(1), ErrClosed)

	_, err := q.Pop(context.Background())
	require.ErrorIs(t, err, ErrClosed)
}

func TestBlockingTimedPopOrCloseSucceedsBeforeDeadline(t *testing.T) {
	fc := clockwork.NewFakeClock()
	q := newBlockingWithClock[int](fc)
	require.NoError(t, q.Push(5))

	v, err := q.TimedPopOrClose(time.Second)
	require.NoError(t, err)
	require.Equal(t, 5, v)
	require.NoError(t, q.Push(6))
}

func TestBlockingTimedPopOrCloseClosesOnDeadline(t *testing.T) {
	fc := clockwork.NewFakeClock()
	q := newBlockingWithClock[int](fc)

	errc := make(chan error, 1)
	go func() {
		_, err := q.TimedPopOrClose(time.Second)
		errc <- err
	}()

	fc.BlockUntil(1)
	fc.Advance(time.Second)

	select {
	case err := <-errc:
		require.ErrorIs(t, err, ErrTimeout)
	case <-time.After(time.Second):
		t.Fatal("TimedPopOrClose never observed the fake deadline")
	}

	require.ErrorIs(t, q.Push(1), ErrClosed)
}

func TestBlockingConcurrentProducersConsumers(t *testing.T) {
	q := NewBlocking[int]()
	const n = 500
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func(v int) {
			defer wg.Done()
			require.NoError(t, q.Push(v))
		}(i)
	}
	wg.Wait()
	require.Equal(t, n, q.Len())

	seen := make(map[int]bool, n)
	for i := 0; i < n; i++ {
		v, err := q.Pop(context.Background())
		require.NoError(t, err)
		seen[v] = true
	}
	require.Len(t, seen, n)
}
