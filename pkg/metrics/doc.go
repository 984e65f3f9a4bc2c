/*
Package metrics provides Prometheus metrics collection and exposition for
the node-map serialization core and the Raft cluster it runs inside.

Metrics are defined and registered with the Prometheus client library at
package init and exposed via an HTTP handler for scraping.

# Architecture

	┌──────────────────── METRICS SYSTEM ──────────────────────┐
	│                                                            │
	│  Prometheus Registry                                      │
	│    - Global DefaultRegistry, MustRegister at package init │
	│                                                            │
	│  Metric Categories                                        │
	│    - Cluster: present-node count                          │
	│    - Raft: leader status, log index, peers, commit time   │
	│    - Nodemap: decode count, bytes, errors, duration        │
	│      by wire-message kind (nidmap/nodeinfo/ppn)           │
	└────────────────────────────────────────────────────────┘

# Usage

	http.Handle("/metrics", metrics.Handler())

	timer := metrics.NewTimer()
	// ... decode a wire message ...
	timer.ObserveDurationVec(metrics.NodemapDecodeDuration, "nidmap")
	metrics.NodemapDecodeTotal.WithLabelValues("nidmap").Inc()

On decode failure:

	metrics.NodemapDecodeErrorsTotal.WithLabelValues("nidmap", kind.String()).Inc()

# See Also

  - pkg/nodemap for the codecs these metrics observe
  - pkg/manager for the Raft commit metrics
*/
package metrics
