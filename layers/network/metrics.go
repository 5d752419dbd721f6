package network

import (
	"github.com/matheuscscp/world-net/observability"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type (
	simulationMetrics struct {
		addressLookups    *prometheus.CounterVec
		hopCalculations   *prometheus.CounterVec
		hopCount          prometheus.Observer
		topologyMutations *prometheus.CounterVec
	}
)

const (
	promSubsystemInterface  = "network_interface"
	promSubsystemSimulation = "simulation"
	labelNameTier           = "tier"
	labelNameResult         = "result"
	labelNameOp             = "op"

	tierLoopback = "loopback"
	tierLocal    = "local"
	tierRemote   = "remote"

	resultFound    = "found"
	resultNotFound = "not_found"
	resultError    = "error"

	hopsSelf        = "self"
	hopsLocal       = "local"
	hopsRemote      = "remote"
	hopsUnreachable = "unreachable"
)

var (
	addressLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: promNamespace,
		Subsystem: promSubsystemInterface,
		Name:      "address_lookups_total",
		Help:      "Total number of NetworkInterface.MapAddressToNode() calls by tier and result.",
	}, []string{observability.WorldName, labelNameTier, labelNameResult})
	hopCalculations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: promNamespace,
		Subsystem: promSubsystemSimulation,
		Name:      "hop_calculations_total",
		Help:      "Total number of NetworkSimulation.CalculateHops() calls by result.",
	}, []string{observability.WorldName, labelNameResult})
	hopCount = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: promNamespace,
		Subsystem: promSubsystemSimulation,
		Name:      "hop_count",
		Help:      "Distribution of hop counts of reachable destinations.",
		Buckets:   prometheus.LinearBuckets(0, 1, 16),
	}, []string{observability.WorldName})
	topologyMutations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: promNamespace,
		Subsystem: promSubsystemSimulation,
		Name:      "topology_mutations_total",
		Help:      "Total number of applied topology mutations by operation.",
	}, []string{observability.WorldName, labelNameOp})
)

func newSimulationMetrics(worldName string) *simulationMetrics {
	metricLabels := prometheus.Labels{observability.WorldName: worldName}
	return &simulationMetrics{
		addressLookups:    addressLookups.MustCurryWith(metricLabels),
		hopCalculations:   hopCalculations.MustCurryWith(metricLabels),
		hopCount:          hopCount.With(metricLabels),
		topologyMutations: topologyMutations.MustCurryWith(metricLabels),
	}
}

func (m *simulationMetrics) lookup(tier, result string) {
	m.addressLookups.WithLabelValues(tier, result).Inc()
}

func (m *simulationMetrics) hops(result string, hops int) {
	m.hopCalculations.WithLabelValues(result).Inc()
	if hops != Unreachable {
		m.hopCount.Observe(float64(hops))
	}
}

func (m *simulationMetrics) mutation(op string) {
	m.topologyMutations.WithLabelValues(op).Inc()
}
