// Package metrics provides the Prometheus collectors for soundtrack components.
package metrics

import "time"

const (
	// Namespace prefixes every metric name.
	Namespace = "soundtrack"

	// ShutdownTimeout bounds the metrics server shutdown.
	ShutdownTimeout = 5 * time.Second
)

// Result label values.
const (
	ResultSuccess = "success"
	ResultFailure = "failure"
	ResultTimeout = "timeout"
	ResultHit     = "hit"
	ResultMiss    = "miss"
	ResultError   = "error"
)
