package ngstate

// Metrics receives counters from the reducer and importer. pkg/metrics
// provides a Prometheus implementation.
type Metrics interface {
	ActionApplied(action string, changed bool)
	Imported(repaired bool)
	ImportFailed()
	GuardSkipped(guard string)
}

type noopMetrics struct{}

func (noopMetrics) ActionApplied(string, bool) {}
func (noopMetrics) Imported(bool)              {}
func (noopMetrics) ImportFailed()              {}
func (noopMetrics) GuardSkipped(string)        {}

func metricsOrNoop(m Metrics) Metrics {
	if m == nil {
		return noopMetrics{}
	}
	return m
}
