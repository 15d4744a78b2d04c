package scheduler

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDefaultIsLazyAndIdempotent(t *testing.T) {
	orig := defaultVal
	defer func() { defaultVal = orig }()
	defaultVal = nil

	d1 := Default()
	d2 := Default()
	require.NotNil(t, d1)
	require.Same(t, d1, d2)
}

func TestSetDefaultReplaces(t *testing.T) {
	orig := defaultVal
	defer func() { defaultVal = orig }()

	custom := NewMainContext()
	SetDefault(custom)
	require.Same(t, Scheduler(custom), Default())
}
