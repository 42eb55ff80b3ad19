package observability

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/signalsfoundry/contagion-simulator/model"
)

// SimulationCollector bundles Prometheus metrics for a running simulation
// and exposes them through an HTTP handler.
type SimulationCollector struct {
	gatherer prometheus.Gatherer

	TickDuration prometheus.Histogram
	Transitions  *prometheus.CounterVec
	Resets       prometheus.Counter

	LiveAgents         prometheus.Gauge
	AgentsByState      *prometheus.GaugeVec
	CumulativeInfected prometheus.Gauge
	CumulativeDeceased prometheus.Gauge
}

// NewSimulationCollector registers simulation metrics against the provided
// registerer, defaulting to the global Prometheus registry when nil.
func NewSimulationCollector(reg prometheus.Registerer) (*SimulationCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	tickDuration, err := registerHistogram(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "simulation_tick_duration_seconds",
		Help:    "Wall-clock time spent advancing the population by one tick.",
		Buckets: []float64{0.0001, 0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25},
	}), "simulation_tick_duration_seconds")
	if err != nil {
		return nil, err
	}

	transitions, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "simulation_transitions_total",
		Help: "Agent health transitions, labeled by transition kind.",
	}, []string{"transition"}), "simulation_transitions_total")
	if err != nil {
		return nil, err
	}

	resets, err := registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "simulation_resets_total",
		Help: "Number of times the population was re-populated.",
	}), "simulation_resets_total")
	if err != nil {
		return nil, err
	}

	live, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "simulation_live_agents",
		Help: "Current number of agents in the live population.",
	}), "simulation_live_agents")
	if err != nil {
		return nil, err
	}

	byState, err := registerGaugeVec(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "simulation_agents",
		Help: "Current number of live agents, labeled by health state.",
	}, []string{"state"}), "simulation_agents")
	if err != nil {
		return nil, err
	}

	infected, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "simulation_infected_cumulative",
		Help: "Infections since the last reset, including the starting infections.",
	}), "simulation_infected_cumulative")
	if err != nil {
		return nil, err
	}

	deceased, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "simulation_deceased_cumulative",
		Help: "Deaths since the last reset.",
	}), "simulation_deceased_cumulative")
	if err != nil {
		return nil, err
	}

	return &SimulationCollector{
		gatherer:           gatherer,
		TickDuration:       tickDuration,
		Transitions:        transitions,
		Resets:             resets,
		LiveAgents:         live,
		AgentsByState:      byState,
		CumulativeInfected: infected,
		CumulativeDeceased: deceased,
	}, nil
}

// Handler exposes a ready-to-use /metrics handler.
func (c *SimulationCollector) Handler() http.Handler {
	gatherer := c.gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// Gatherer returns the gatherer backing the collector.
func (c *SimulationCollector) Gatherer() prometheus.Gatherer {
	if c == nil || c.gatherer == nil {
		return prometheus.DefaultGatherer
	}
	return c.gatherer
}

// ObserveTick records the duration and transitions of one tick.
func (c *SimulationCollector) ObserveTick(d time.Duration, tally model.Tally) {
	if c == nil {
		return
	}
	if c.TickDuration != nil {
		c.TickDuration.Observe(d.Seconds())
	}
	if c.Transitions != nil {
		c.Transitions.WithLabelValues(model.TransitionInfected.String()).Add(float64(tally.Infected))
		c.Transitions.WithLabelValues(model.TransitionRecovered.String()).Add(float64(tally.Recovered))
		c.Transitions.WithLabelValues(model.TransitionDeceased.String()).Add(float64(tally.Deceased))
	}
}

// SetPopulation satisfies the state package's metrics recorder so the
// simulation can drive gauge values after every tick and reset.
func (c *SimulationCollector) SetPopulation(counts map[model.HealthState]int, infectedTotal, deceasedTotal int) {
	if c == nil {
		return
	}
	live := 0
	for _, s := range model.HealthStates {
		n := counts[s]
		live += n
		if c.AgentsByState != nil {
			c.AgentsByState.WithLabelValues(s.String()).Set(float64(n))
		}
	}
	if c.LiveAgents != nil {
		c.LiveAgents.Set(float64(live))
	}
	if c.CumulativeInfected != nil {
		c.CumulativeInfected.Set(float64(infectedTotal))
	}
	if c.CumulativeDeceased != nil {
		c.CumulativeDeceased.Set(float64(deceasedTotal))
	}
}

// IncResets counts one re-population.
func (c *SimulationCollector) IncResets() {
	if c == nil || c.Resets == nil {
		return
	}
	c.Resets.Inc()
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
