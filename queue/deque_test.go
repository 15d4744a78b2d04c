package queue

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDequeLocalPushPop(t *testing.T) {
	d := NewDeque[int](4)
	d.PushBottom(1)
	v, ok := d.PopBottom()
	require.True(t, ok)
	require.Equal(t, 1, v)
}

func TestDequePopEmpty(t *testing.T) {
	d := NewDeque[int](4)
	_, ok := d.PopBottom()
	require.False(t, ok)
}

func TestDequeStealFromOwner(t *testing.T) {
	d := NewDeque[int](4)
	d.PushBottom(1)
	v, ok := d.Steal()
	require.True(t, ok)
	require.Equal(t, 1, v)
}

func TestDequeStealEmpty(t *testing.T) {
	d := NewDeque[int](4)
	_, ok := d.Steal()
	require.False(t, ok)
}

func TestDequeGrowsUnderManyPushes(t *testing.T) {
	d := NewDeque[int](4)
	for i := 0; i < 50; i++ {
		d.PushBottom(i)
	}
	require.Equal(t, 50, d.Len())
	for i := 49; i >= 0; i-- {
		v, ok := d.PopBottom()
		require.True(t, ok)
		require.Equal(t, i, v)
	}
}

func TestDequeOwnerAndStealersDontDuplicate(t *testing.T) {
	d := NewDeque[int](8)
	const n = 1000
	for i := 0; i < n; i++ {
		d.PushBottom(i)
	}

	var mu sync.Mutex
	seen := make(map[int]bool, n)
	record := func(v int) {
		mu.Lock()
		seen[v] = true
		mu.Unlock()
	}

	var wg sync.WaitGroup
	for t := 0; t < 4; t++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				v, ok := d.Steal()
				if !ok {
					if d.Len() == 0 {
						return
					}
					continue
				}
				record(v)
			}
		}()
	}

	for {
		v, ok := d.PopBottom()
		if !ok {
			break
		}
		record(v)
	}
	wg.Wait()

	require.Len(t, seen, n)
}
