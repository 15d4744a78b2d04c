package metrics

// NoopProvider returns no-op instruments. It's what scheduler.WithMetrics,
// receiver.WithMetrics, and arbiter.WithMetrics fall back to when a caller
// never supplies a Provider — worker gauges, in-flight counts, and
// transition totals are all tallied and discarded instead of panicking on a
// nil Provider.
// All methods are safe for concurrent use and perform no work.
type NoopProvider struct{}

// NewNoopProvider constructs the Provider every scheduler/receiver/arbiter
// defaults to until WithMetrics overrides it.
func NewNoopProvider() NoopProvider { return NoopProvider{} }

func (NoopProvider) Counter(_ string, _ ...InstrumentOption) Counter {
	return noopCounter{}
}

func (NoopProvider) UpDownCounter(_ string, _ ...InstrumentOption) UpDownCounter {
	return noopUpDownCounter{}
}

func (NoopProvider) Histogram(_ string, _ ...InstrumentOption) Histogram {
	return noopHistogram{}
}

type noopCounter struct{}

func (noopCounter) Add(_ int64) {}

type noopUpDownCounter struct{}

func (noopUpDownCounter) Add(_ int64) {}

type noopHistogram struct{}

func (noopHistogram) Record(_ float64) {}
