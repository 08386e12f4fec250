// Package metrics defines the Prometheus series published by the exporter.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/coral-mesh/jitterbuffer-exporter/internal/constants"
)

// Label names of every per-function series.
const (
	LabelPID      = "pid"
	LabelFunction = "function"
)

// DelayBuckets are the delay histogram bounds in seconds.
var DelayBuckets = []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5}

var labels = []string{LabelPID, LabelFunction}

// Metrics holds the jitter buffer series and the exporter's own series.
type Metrics struct {
	PacketCount    *CumulativeCounter
	DroppedPackets *CumulativeCounter
	Bytes          *CumulativeCounter

	DelayMin   *prometheus.GaugeVec
	DelayMax   *prometheus.GaugeVec
	DelayAvg   *prometheus.GaugeVec
	Delay      *prometheus.HistogramVec
	BufferSize *prometheus.GaugeVec

	CollectionCycles   prometheus.Counter
	CollectionErrors   prometheus.Counter
	CollectionDuration prometheus.Histogram
	AttachedProbes     prometheus.Gauge
	TrackedKeys        prometheus.Gauge
}

// New creates the series and registers them with reg when it is not nil.
func New(reg prometheus.Registerer) *Metrics {
	ns := constants.MetricsNamespace

	m := &Metrics{
		PacketCount: NewCumulativeCounter(
			prometheus.BuildFQName(ns, "", "packet_count_total"),
			"Total number of packets processed by the function",
			labels,
		),
		DroppedPackets: NewCumulativeCounter(
			prometheus.BuildFQName(ns, "", "dropped_packets_total"),
			"Total number of calls that returned an error",
			labels,
		),
		Bytes: NewCumulativeCounter(
			prometheus.BuildFQName(ns, "", "bytes_total"),
			"Total number of payload bytes passed to the function",
			labels,
		),

		DelayMin: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: ns,
			Name:      "delay_min_seconds",
			Help:      "Shortest observed call duration",
		}, labels),
		DelayMax: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: ns,
			Name:      "delay_max_seconds",
			Help:      "Longest observed call duration",
		}, labels),
		DelayAvg: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: ns,
			Name:      "delay_avg_seconds",
			Help:      "Mean call duration since the probe was attached",
		}, labels),
		Delay: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: ns,
			Name:      "delay_seconds",
			Help:      "Mean call duration, observed once per collection cycle",
			Buckets:   DelayBuckets,
		}, labels),
		BufferSize: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: ns,
			Name:      "buffer_size_packets",
			Help:      "Advisory buffer occupancy; currently the packet count",
		}, labels),

		CollectionCycles: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: ns,
			Subsystem: "exporter",
			Name:      "collection_cycles_total",
			Help:      "Total number of completed collection cycles",
		}),
		CollectionErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: ns,
			Subsystem: "exporter",
			Name:      "collection_errors_total",
			Help:      "Total number of abandoned collection cycles",
		}),
		CollectionDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: ns,
			Subsystem: "exporter",
			Name:      "collection_duration_seconds",
			Help:      "Time spent reading the counter table and updating series",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 4, 8),
		}),
		AttachedProbes: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: ns,
			Subsystem: "exporter",
			Name:      "attached_probes",
			Help:      "Number of attached probe candidates",
		}),
		TrackedKeys: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: ns,
			Subsystem: "exporter",
			Name:      "tracked_keys",
			Help:      "Number of (pid, function) keys in the last snapshot",
		}),
	}

	if reg != nil {
		reg.MustRegister(
			m.PacketCount,
			m.DroppedPackets,
			m.Bytes,
			m.DelayMin,
			m.DelayMax,
			m.DelayAvg,
			m.Delay,
			m.BufferSize,
			m.CollectionCycles,
			m.CollectionErrors,
			m.CollectionDuration,
			m.AttachedProbes,
			m.TrackedKeys,
		)
	}

	return m
}
