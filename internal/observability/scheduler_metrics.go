package observability

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// TickCollector exposes scheduler-specific Prometheus metrics: overall
// tick duration, per-system duration (labelled by the name each timed
// RunFunc is registered under), and the accumulator backlog that
// the fixed-timestep loop is carrying.
type TickCollector struct {
	gatherer prometheus.Gatherer

	TickDuration       prometheus.Histogram
	GroupDuration      *prometheus.HistogramVec
	AccumulatedBacklog prometheus.Gauge
	TicksRunTotal      prometheus.Counter
}

// NewTickCollector registers scheduler metrics against the provided registerer.
func NewTickCollector(reg prometheus.Registerer) (*TickCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	tickHistogram := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "battlesim_tick_duration_seconds",
		Help:    "Wall-clock duration of a single fixed-timestep simulation tick.",
		Buckets: []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25},
	})
	tickHistogram, err := registerHistogram(reg, tickHistogram, "battlesim_tick_duration_seconds")
	if err != nil {
		return nil, err
	}

	groupHistogram := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "battlesim_group_duration_seconds",
		Help:    "Wall-clock duration of one timed system (RunFunc) within a tick, labeled by its name.",
		Buckets: []float64{0.0001, 0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1},
	}, []string{"group"})
	groupHistogram, err = registerHistogramVec(reg, groupHistogram, "battlesim_group_duration_seconds")
	if err != nil {
		return nil, err
	}

	backlog := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "battlesim_accumulated_backlog_seconds",
		Help: "Simulation time currently queued in the fixed-timestep accumulator.",
	})
	backlog, err = registerGauge(reg, backlog, "battlesim_accumulated_backlog_seconds")
	if err != nil {
		return nil, err
	}

	ticksRun := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "battlesim_ticks_run_total",
		Help: "Cumulative number of fixed-timestep ticks executed.",
	})
	ticksRun, err = registerCounter(reg, ticksRun, "battlesim_ticks_run_total")
	if err != nil {
		return nil, err
	}

	return &TickCollector{
		gatherer:           gatherer,
		TickDuration:       tickHistogram,
		GroupDuration:      groupHistogram,
		AccumulatedBacklog: backlog,
		TicksRunTotal:      ticksRun,
	}, nil
}

// Gatherer returns the Prometheus gatherer associated with the collector.
func (c *TickCollector) Gatherer() prometheus.Gatherer {
	if c == nil {
		return nil
	}
	return c.gatherer
}

// ObserveTick records one tick's total wall-clock duration.
func (c *TickCollector) ObserveTick(d time.Duration) {
	if c == nil || c.TickDuration == nil {
		return
	}
	c.TickDuration.Observe(d.Seconds())
	if c.TicksRunTotal != nil {
		c.TicksRunTotal.Inc()
	}
}

// ObserveGroup records one timed system's wall-clock duration within a
// tick, labelled by the name the caller passes.
func (c *TickCollector) ObserveGroup(group string, d time.Duration) {
	if c == nil || c.GroupDuration == nil {
		return
	}
	c.GroupDuration.WithLabelValues(group).Observe(d.Seconds())
}

// SetAccumulatedBacklog records the accumulator's current queued-time backlog.
func (c *TickCollector) SetAccumulatedBacklog(backlog time.Duration) {
	if c == nil || c.AccumulatedBacklog == nil {
		return
	}
	c.AccumulatedBacklog.Set(backlog.Seconds())
}

func registerHistogram(reg prometheus.Registerer, hist prometheus.Histogram, name string) (prometheus.Histogram, error) {
	if err := reg.Register(hist); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Histogram); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return hist, nil
}

func registerCounter(reg prometheus.Registerer, counter prometheus.Counter, name string) (prometheus.Counter, error) {
	if err := reg.Register(counter); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Counter); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return counter, nil
}

func registerHistogramVec(reg prometheus.Registerer, vec *prometheus.HistogramVec, name string) (*prometheus.HistogramVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.HistogramVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}
