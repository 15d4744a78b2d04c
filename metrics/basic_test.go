package metrics

import (
	"reflect"
	"runtime"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBasicProvider_Counter_ReusedAndAccumulates(t *testing.T) {
	p := NewBasicProvider()

	c1 := p.Counter("iris_arbiter_exclusive_transitions_total")
	c2 := p.Counter("iris_arbiter_exclusive_transitions_total")
	require.Equal(t, reflect.ValueOf(c1).Pointer(), reflect.ValueOf(c2).Pointer(), "expected same counter instance for same name")

	bc, ok := c1.(*BasicCounter)
	require.True(t, ok, "expected *BasicCounter, got %T", c1)

	c1.Add(3)
	c2.Add(2)
	require.Equal(t, int64(5), bc.Snapshot())

	cOther := p.Counter("iris_arbiter_concurrent_transitions_total")
	require.NotEqual(t, reflect.ValueOf(c1).Pointer(), reflect.ValueOf(cOther).Pointer(), "expected different counter instance for different name")
}

func TestBasicProvider_UpDownCounter_ReusedAndMoves(t *testing.T) {
	p := NewBasicProvider()
	u1 := p.UpDownCounter("iris_receiver_active")
	u2 := p.UpDownCounter("iris_receiver_active")
	require.Equal(t, reflect.ValueOf(u1).Pointer(), reflect.ValueOf(u2).Pointer(), "expected same updown instance for same name")

	bu, ok := u1.(*BasicUpDownCounter)
	require.True(t, ok, "expected *BasicUpDownCounter, got %T", u1)

	u1.Add(+3)
	u2.Add(-1)
	u1.Add(+10)
	require.Equal(t, int64(12), bu.Snapshot())
}

func TestBasicProvider_Histogram_RecordsStats(t *testing.T) {
	p := NewBasicProvider()
	h := p.Histogram("iris_receiver_handler_seconds")

	bh, ok := h.(*BasicHistogram)
	require.True(t, ok, "expected *BasicHistogram, got %T", h)

	h.Record(0.1)
	h.Record(0.3)
	h.Record(0.2)
	s := bh.Snapshot()
	require.Equal(t, int64(3), s.Count)
	require.Equal(t, 0.1, s.Min)
	require.Equal(t, 0.3, s.Max)
	require.InDelta(t, 0.6, s.Sum, 0.01)
	require.InDelta(t, 0.2, s.Mean, 0.01)
}

func TestBasicProvider_Concurrent_GetSameInstrument(t *testing.T) {
	p := NewBasicProvider()
	n := 50
	ptrs := make([]uintptr, n)
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func(idx int) {
			defer wg.Done()
			c := p.Counter("iris_scheduler_workers")
			ptrs[idx] = reflect.ValueOf(c).Pointer()
		}(i)
	}
	wg.Wait()
	first := ptrs[0]
	for i := 1; i < n; i++ {
		require.Equal(t, first, ptrs[i], "expected same pointer for all retrieved counters; mismatch at %d", i)
	}
}

func TestBasicProvider_Concurrent_CounterAdd(t *testing.T) {
	p := NewBasicProvider()
	c := p.Counter("iris_arbiter_teardown_transitions_total")
	bc := c.(*BasicCounter)

	workers := runtime.NumCPU() * 2
	iters := 1000
	var wg sync.WaitGroup
	wg.Add(workers)
	for w := 0; w < workers; w++ {
		go func() {
			defer wg.Done()
			for i := 0; i < iters; i++ {
				c.Add(1)
			}
		}()
	}
	wg.Wait()
	require.Equal(t, int64(workers*iters), bc.Snapshot())
}

func TestBasicProvider_Concurrent_UpDownAdd(t *testing.T) {
	p := NewBasicProvider()
	u := p.UpDownCounter("iris_scheduler_queue_depth")
	bu := u.(*BasicUpDownCounter)

	workers := runtime.NumCPU() * 2
	iters := 1000
	var wg sync.WaitGroup
	wg.Add(workers)
	for w := 0; w < workers; w++ {
		go func(id int) {
			defer wg.Done()
			for i := 0; i < iters; i++ {
				if (i+id)%2 == 0 {
					u.Add(+1)
				} else {
					u.Add(-1)
				}
			}
		}(w)
	}
	wg.Wait()
	// Each worker alternates +1/-1 in equal measure, so the net across all
	// workers settles back to zero regardless of interleaving.
	require.Equal(t, int64(0), bu.Snapshot())
}

func TestBasicProvider_Concurrent_HistogramRecord(t *testing.T) {
	p := NewBasicProvider()
	h := p.Histogram("iris_receiver_handler_seconds")
	bh := h.(*BasicHistogram)

	workers := runtime.NumCPU() * 2
	iters := 500
	var wg sync.WaitGroup
	wg.Add(workers)
	for w := 0; w < workers; w++ {
		go func(base int) {
			defer wg.Done()
			for i := 0; i < iters; i++ {
				v := float64((base%10)+i%10) / 100.0
				h.Record(v)
			}
		}(w)
	}
	wg.Wait()
	s := bh.Snapshot()
	require.Equal(t, int64(workers*iters), s.Count)
	require.GreaterOrEqual(t, s.Min, 0.0)
	require.LessOrEqual(t, s.Min, 0.09)
	require.GreaterOrEqual(t, s.Max, 0.0)
	require.LessOrEqual(t, s.Max, 0.19)
}
