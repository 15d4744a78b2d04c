package scheduler

import (
	"testing"
	"time"

	"github.com/irisconc/iris/metrics"
	"github.com/stretchr/testify/require"
)

func TestSharedWithMetricsTracksWorkersAndDepth(t *testing.T) {
	provider := metrics.NewBasicProvider()
	s := NewShared(1, 2, WithMetrics(provider))
	defer s.Close()

	workers := provider.UpDownCounter("iris_scheduler_workers").(*metrics.BasicUpDownCounter)
	require.Equal(t, int64(1), workers.Snapshot())

	done := make(chan struct{})
	s.Queue(func() { close(done) }, nil)
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for item to run")
	}
}
