package metrics

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds all Prometheus metrics for the mews graph service
type Metrics struct {
	GraphQueries       *prometheus.CounterVec   // query_type, status
	QueryDuration      *prometheus.HistogramVec // query_type
	ClusteringRuns     *prometheus.CounterVec   // status
	ClusteringDuration *prometheus.HistogramVec // stage
	LabelPropOutcomes  *prometheus.CounterVec   // outcome: converged | cap_reached
}
