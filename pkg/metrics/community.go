package metrics

import "github.com/prometheus/client_golang/prometheus"

// CommunityMetrics tracks membership outcomes and counter health.
type CommunityMetrics struct {
	joins            *prometheus.CounterVec
	fallbacks        *prometheus.CounterVec
	memberCountDrift prometheus.Counter
	memberCountClamp prometheus.Counter
}

// NewCommunityMetrics registers the community metrics on reg. A nil registerer
// yields a recorder whose methods are no-ops.
func NewCommunityMetrics(reg prometheus.Registerer) *CommunityMetrics {
	if reg == nil {
		return &CommunityMetrics{}
	}
	joins := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "community",
		Name:      "join_attempts_total",
		Help:      "Join attempts partitioned by outcome.",
	}, []string{"outcome"})
	fallbacks := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "community",
		Name:      "discovery_fallback_total",
		Help:      "Discovery requests served from a fallback location or fallback result set.",
	}, []string{"kind"})
	drift := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "community",
		Name:      "member_count_drift_total",
		Help:      "Communities whose stored member count disagreed with active memberships.",
	})
	clamp := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "community",
		Name:      "member_count_clamp_total",
		Help:      "Member count decrements clamped at zero.",
	})
	reg.MustRegister(joins, fallbacks, drift, clamp)
	return &CommunityMetrics{
		joins:            joins,
		fallbacks:        fallbacks,
		memberCountDrift: drift,
		memberCountClamp: clamp,
	}
}

func (c *CommunityMetrics) IncJoin(outcome string) {
	if c == nil || c.joins == nil {
		return
	}
	c.joins.WithLabelValues(normalizeLabel(outcome)).Inc()
}

func (c *CommunityMetrics) IncFallback(kind string) {
	if c == nil || c.fallbacks == nil {
		return
	}
	c.fallbacks.WithLabelValues(normalizeLabel(kind)).Inc()
}

func (c *CommunityMetrics) AddMemberCountDrift(n int) {
	if c == nil || c.memberCountDrift == nil || n <= 0 {
		return
	}
	c.memberCountDrift.Add(float64(n))
}

func (c *CommunityMetrics) IncMemberCountClamp() {
	if c == nil || c.memberCountClamp == nil {
		return
	}
	c.memberCountClamp.Inc()
}
