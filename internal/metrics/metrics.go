// Package metrics wires dispatcher lifecycle events into Prometheus
// collectors via dispatcher.MetricsHook.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Collector implements dispatcher.MetricsHook over a set of Prometheus
// collectors scoped to one dispatcher instance.
type Collector struct {
	offered        *prometheus.CounterVec
	committed      prometheus.Counter
	padding        prometheus.Counter
	capacityExceed prometheus.Counter
	lastPosition   prometheus.Gauge
	subscriberLag  *prometheus.GaugeVec
	subscriberPos  *prometheus.GaugeVec
}

// New creates a Collector and registers its collectors against reg.
// Labels identify one dispatcher instance (e.g. its name) so multiple
// dispatchers in one process don't collide.
func New(reg prometheus.Registerer, dispatcherName string) *Collector {
	constLabels := prometheus.Labels{"dispatcher": dispatcherName}

	c := &Collector{
		offered: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   "fdispatch",
			Name:        "fragments_offered_total",
			Help:        "Fragments successfully offered or committed, by stream id.",
			ConstLabels: constLabels,
		}, []string{"stream_id"}),
		committed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   "fdispatch",
			Name:        "fragments_committed_total",
			Help:        "Fragments committed to the log.",
			ConstLabels: constLabels,
		}),
		padding: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   "fdispatch",
			Name:        "padding_bytes_total",
			Help:        "Bytes written as partition-rotation padding.",
			ConstLabels: constLabels,
		}),
		capacityExceed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   "fdispatch",
			Name:        "capacity_exceeded_total",
			Help:        "Offer/claim calls rejected for insufficient capacity.",
			ConstLabels: constLabels,
		}),
		lastPosition: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   "fdispatch",
			Name:        "appender_position",
			Help:        "Most recent committed log position.",
			ConstLabels: constLabels,
		}),
		subscriberLag: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace:   "fdispatch",
			Name:        "subscriber_lag_bytes",
			Help:        "Bytes between a subscription's cursor and the appender tail.",
			ConstLabels: constLabels,
		}, []string{"subscription"}),
		subscriberPos: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace:   "fdispatch",
			Name:        "subscriber_position",
			Help:        "A subscription's current cursor position.",
			ConstLabels: constLabels,
		}, []string{"subscription"}),
	}

	reg.MustRegister(c.offered, c.committed, c.padding, c.capacityExceed,
		c.lastPosition, c.subscriberLag, c.subscriberPos)
	return c
}

// OnOffered implements dispatcher.MetricsHook.
func (c *Collector) OnOffered(streamID int32, length int32) {
	c.offered.WithLabelValues(streamIDLabel(streamID)).Inc()
}

// OnCommitted implements dispatcher.MetricsHook.
func (c *Collector) OnCommitted(position int64) {
	c.committed.Inc()
	c.lastPosition.Set(float64(position))
}

// OnPadding implements dispatcher.MetricsHook.
func (c *Collector) OnPadding(bytes int32) {
	c.padding.Add(float64(bytes))
}

// OnCapacityExceeded implements dispatcher.MetricsHook.
func (c *Collector) OnCapacityExceeded() {
	c.capacityExceed.Inc()
}

// OnSubscriptionAdvance implements dispatcher.MetricsHook.
func (c *Collector) OnSubscriptionAdvance(name string, position int64, lagBytes int64) {
	c.subscriberPos.WithLabelValues(name).Set(float64(position))
	c.subscriberLag.WithLabelValues(name).Set(float64(lagBytes))
}

func streamIDLabel(streamID int32) string {
	const digits = "0123456789"
	if streamID == 0 {
		return "0"
	}
	neg := streamID < 0
	n := streamID
	if neg {
		n = -n
	}
	var buf [12]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = digits[n%10]
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}
