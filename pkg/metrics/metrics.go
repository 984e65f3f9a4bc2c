package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Cluster metrics
	NodesTotal = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "warren_nodes_total",
			Help: "Total number of present nodes in the pool",
		},
	)

	// Raft metrics
	RaftLeader = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "warren_raft_is_leader",
			Help: "Whether this node is the Raft leader (1 = leader, 0 = follower)",
		},
	)

	RaftPeers = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "warren_raft_peers_total",
			Help: "Total number of Raft peers in the cluster",
		},
	)

	RaftLogIndex = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "warren_raft_log_index",
			Help: "Current Raft log index",
		},
	)

	RaftAppliedIndex = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "warren_raft_applied_index",
			Help: "Last applied Raft log index",
		},
	)

	RaftCommitDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "warren_raft_commit_duration_seconds",
			Help:    "Time taken to commit a Raft log entry in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	// Node-map codec metrics
	NodemapDecodeTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "warren_nodemap_decode_total",
			Help: "Total number of node-map wire messages decoded, by message kind",
		},
		[]string{"message"},
	)

	NodemapDecodeBytes = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "warren_nodemap_decode_bytes",
			Help:    "Size in bytes of decoded node-map wire messages, by message kind",
			Buckets: prometheus.ExponentialBuckets(64, 4, 8),
		},
		[]string{"message"},
	)

	NodemapDecodeErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "warren_nodemap_decode_errors_total",
			Help: "Total number of node-map decode failures, by message kind and error kind",
		},
		[]string{"message", "kind"},
	)

	NodemapDecodeDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "warren_nodemap_decode_duration_seconds",
			Help:    "Time taken to decode a node-map wire message, by message kind",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"message"},
	)
)

func init() {
	prometheus.MustRegister(NodesTotal)
	prometheus.MustRegister(RaftLeader)
	prometheus.MustRegister(RaftPeers)
	prometheus.MustRegister(RaftLogIndex)
	prometheus.MustRegister(RaftAppliedIndex)
	prometheus.MustRegister(RaftCommitDuration)
	prometheus.MustRegister(NodemapDecodeTotal)
	prometheus.MustRegister(NodemapDecodeBytes)
	prometheus.MustRegister(NodemapDecodeErrorsTotal)
	prometheus.MustRegister(NodemapDecodeDuration)
}

// Handler returns the Prometheus HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Timer is a helper for timing operations.
type Timer struct {
	start time.Time
}

// NewTimer creates a new timer.
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// ObserveDuration records the duration to a histogram.
func (t *Timer) ObserveDuration(histogram prometheus.Histogram) {
	duration := time.Since(t.start).Seconds()
	histogram.Observe(duration)
}

// ObserveDurationVec records the duration to a histogram vec with labels.
func (t *Timer) ObserveDurationVec(histogram prometheus.ObserverVec, labels ...string) {
	duration := time.Since(t.start).Seconds()
	histogram.WithLabelValues(labels...).Observe(duration)
}

// Duration returns the elapsed time since the timer started.
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}
