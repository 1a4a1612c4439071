// Package metrics exports reducer and importer counters to Prometheus.
package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "ngstate"

// Collector implements ngstate.Metrics with Prometheus counters.
type Collector struct {
	actions      *prometheus.CounterVec
	imports      *prometheus.CounterVec
	importErrors prometheus.Counter
	guardSkips   *prometheus.CounterVec
}

// New registers the counters on reg. A nil reg uses
// prometheus.DefaultRegisterer.
func New(reg prometheus.Registerer) *Collector {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)
	return &Collector{
		// Labels: action (wire name), changed (true, false)
		actions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "reducer",
			Name:      "actions_total",
			Help:      "Actions applied to the viewer document",
		}, []string{"action", "changed"}),
		// Labels: repaired (true, false)
		imports: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sync",
			Name:      "imports_total",
			Help:      "Live viewer states absorbed into the canonical document",
		}, []string{"repaired"}),
		importErrors: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sync",
			Name:      "import_errors_total",
			Help:      "Failed reads of the live viewer state",
		}),
		// Labels: guard (segmentColors, equivalences)
		guardSkips: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "reducer",
			Name:      "guard_skips_total",
			Help:      "Writes skipped because the proposed value was unchanged",
		}, []string{"guard"}),
	}
}

func (c *Collector) ActionApplied(action string, changed bool) {
	c.actions.WithLabelValues(action, strconv.FormatBool(changed)).Inc()
}

func (c *Collector) Imported(repaired bool) {
	c.imports.WithLabelValues(strconv.FormatBool(repaired)).Inc()
}

func (c *Collector) ImportFailed() {
	c.importErrors.Inc()
}

func (c *Collector) GuardSkipped(guard string) {
	c.guardSkips.WithLabelValues(guard).Inc()
}
