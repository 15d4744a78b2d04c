package scheduler

import "github.com/irisconc/iris/metrics"

// Option configures optional, cross-cutting scheduler behavior shared by
// every variant in this package — currently just metrics wiring.
type Option func(*metricsConfig)

type metricsConfig struct {
	provider metrics.Provider
}

// WithMetrics attaches a metrics.Provider a scheduler reports its worker
// count and queue depth through. Defaults to metrics.NewNoopProvider()
// when not supplied.
func WithMetrics(p metrics.Provider) Option {
	return func(c *metricsConfig) { c.provider = p }
}

func buildMetricsConfig(opts []Option) metricsConfig {
	c := metricsConfig{provider: metrics.NewNoopProvider()}
	for _, opt := range opts {
		if opt != nil {
			opt(&c)
		}
	}
	return c
}

// instruments is the small, fixed set of gauges every scheduler variant
// records through, named consistently across variants so a single
// dashboard query can sum them by their "scheduler" label, which
// newInstruments sets to the variant's name via metrics.WithAttributes.
type instruments struct {
	workers metrics.UpDownCounter
	depth   metrics.UpDownCounter
}

func newInstruments(name string, c metricsConfig) instruments {
	return instruments{
		workers: c.provider.UpDownCounter(
			"iris_scheduler_workers",
			metrics.WithDescription("current worker goroutine count"),
			metrics.WithAttributes(map[string]string{"scheduler": name}),
		),
		depth: c.provider.UpDownCounter(
			"iris_scheduler_queue_depth",
			metrics.WithDescription("current backlog across the scheduler's queue(s)"),
			metrics.WithAttributes(map[string]string{"scheduler": name}),
		),
	}
}
