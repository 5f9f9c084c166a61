package observability

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// SimCollector bundles Prometheus metrics for the simulation surface:
// per-faction squad counts, LOD tier distribution, and combat/
// destruction event totals.
type SimCollector struct {
	gatherer prometheus.Gatherer

	SquadsAlive        *prometheus.GaugeVec
	LODTierCount       *prometheus.GaugeVec
	CombatEventsTotal  prometheus.Counter
	DestructionEvents  prometheus.Counter
	LimitExceededTotal *prometheus.CounterVec
}

// NewSimCollector registers simulation Prometheus metrics against the
// provided registerer, defaulting to the global Prometheus registry
// when nil.
func NewSimCollector(reg prometheus.Registerer) (*SimCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	squadsAlive, err := registerGaugeVec(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "battlesim_squads_alive",
		Help: "Current number of live squads, labeled by faction.",
	}, []string{"faction"}), "battlesim_squads_alive")
	if err != nil {
		return nil, err
	}

	lodTier, err := registerGaugeVec(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "battlesim_lod_tier_count",
		Help: "Current number of live squads per LOD tier, labeled by faction and tier.",
	}, []string{"faction", "tier"}), "battlesim_lod_tier_count")
	if err != nil {
		return nil, err
	}

	combatEvents, err := registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "battlesim_combat_events_total",
		Help: "Cumulative number of combat_apply damage contributions resolved.",
	}), "battlesim_combat_events_total")
	if err != nil {
		return nil, err
	}

	destructionEvents, err := registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "battlesim_destruction_events_total",
		Help: "Cumulative number of destructible state transitions caused by terrain damage.",
	}), "battlesim_destruction_events_total")
	if err != nil {
		return nil, err
	}

	limitExceeded, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "battlesim_limit_exceeded_total",
		Help: "Cumulative number of LimitExceeded warnings, labeled by the limit that tripped.",
	}, []string{"limit"}), "battlesim_limit_exceeded_total")
	if err != nil {
		return nil, err
	}

	return &SimCollector{
		gatherer:           gatherer,
		SquadsAlive:        squadsAlive,
		LODTierCount:       lodTier,
		CombatEventsTotal:  combatEvents,
		DestructionEvents:  destructionEvents,
		LimitExceededTotal: limitExceeded,
	}, nil
}

// Handler exposes a ready-to-use /metrics handler.
func (c *SimCollector) Handler() http.Handler {
	gatherer := c.gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// SetSquadsAlive records the current live squad count for a faction.
func (c *SimCollector) SetSquadsAlive(faction string, count int) {
	if c == nil || c.SquadsAlive == nil {
		return
	}
	c.SquadsAlive.WithLabelValues(faction).Set(float64(count))
}

// SetLODTierCount records the current squad count for a faction/tier pair.
func (c *SimCollector) SetLODTierCount(faction, tier string, count int) {
	if c == nil || c.LODTierCount == nil {
		return
	}
	c.LODTierCount.WithLabelValues(faction, tier).Set(float64(count))
}

// AddCombatEvents increments the combat event counter by n.
func (c *SimCollector) AddCombatEvents(n int) {
	if c == nil || c.CombatEventsTotal == nil || n <= 0 {
		return
	}
	c.CombatEventsTotal.Add(float64(n))
}

// AddDestructionEvents increments the destruction event counter by n.
func (c *SimCollector) AddDestructionEvents(n int) {
	if c == nil || c.DestructionEvents == nil || n <= 0 {
		return
	}
	c.DestructionEvents.Add(float64(n))
}

// IncLimitExceeded increments the limit-exceeded counter for the named limit.
func (c *SimCollector) IncLimitExceeded(limit string) {
	if c == nil || c.LimitExceededTotal == nil {
		return
	}
	c.LimitExceededTotal.WithLabelValues(limit).Inc()
}

func registerCounterVec(reg prometheus.Registerer, vec *prometheus.CounterVec, name string) (*prometheus.CounterVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerGaugeVec(reg prometheus.Registerer, vec *prometheus.GaugeVec, name string) (*prometheus.GaugeVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.GaugeVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerGauge(reg prometheus.Registerer, gauge prometheus.Gauge, name string) (prometheus.Gauge, error) {
	if err := reg.Register(gauge); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Gauge); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return gauge, nil
}
