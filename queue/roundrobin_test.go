package queue

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRoundRobinCyclesInOrder(t *testing.T) {
	r := NewRoundRobin("a", "b", "c")
	for _, want := range []string{"a", "b", "c", "a", "b"} {
		v, ok := r.Next()
		require.True(t, ok)
		require.Equal(t, want, v)
	}
}

func TestRoundRobinEmpty(t *testing.T) {
	r := NewRoundRobin[int]()
	_, ok := r.Next()
	require.False(t, ok)
}

func TestRoundRobinAppendExtendsRotation(t *testing.T) {
	r := NewRoundRobin("a")
	r.Append("b")
	require.Equal(t, 2, r.Len())
	v, _ := r.Next()
	require.Equal(t, "a", v)
	v, _ = r.Next()
	require.Equal(t, "b", v)
}
