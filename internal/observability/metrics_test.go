package observability

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"

	"github.com/signalsfoundry/contagion-simulator/model"
)

func TestObserveTickRecordsTransitions(t *testing.T) {
	reg := prometheus.NewRegistry()
	collector, err := NewSimulationCollector(reg)
	if err != nil {
		t.Fatalf("NewSimulationCollector: %v", err)
	}

	collector.ObserveTick(2*time.Millisecond, model.Tally{Infected: 3, Recovered: 1})
	collector.ObserveTick(time.Millisecond, model.Tally{Infected: 1, Deceased: 2})

	if got := testutil.ToFloat64(collector.Transitions.WithLabelValues("infected")); got != 4 {
		t.Fatalf("simulation_transitions_total{infected} = %v, want 4", got)
	}
	if got := testutil.ToFloat64(collector.Transitions.WithLabelValues("deceased")); got != 2 {
		t.Fatalf("simulation_transitions_total{deceased} = %v, want 2", got)
	}
	if got := testutil.ToFloat64(collector.Transitions.WithLabelValues("recovered")); got != 1 {
		t.Fatalf("simulation_transitions_total{recovered} = %v, want 1", got)
	}
	if count := histogramSampleCount(t, reg, "simulation_tick_duration_seconds", nil); count != 2 {
		t.Fatalf("simulation_tick_duration_seconds sample_count = %d, want 2", count)
	}
}

func TestSetPopulationDrivesGauges(t *testing.T) {
	reg := prometheus.NewRegistry()
	collector, err := NewSimulationCollector(reg)
	if err != nil {
		t.Fatalf("NewSimulationCollector: %v", err)
	}

	collector.SetPopulation(map[model.HealthState]int{
		model.Susceptible: 90,
		model.Infected:    7,
		model.Immune:      2,
	}, 12, 4)

	if got := testutil.ToFloat64(collector.LiveAgents); got != 99 {
		t.Fatalf("simulation_live_agents = %v, want 99", got)
	}
	if got := testutil.ToFloat64(collector.AgentsByState.WithLabelValues("infected")); got != 7 {
		t.Fatalf("simulation_agents{infected} = %v, want 7", got)
	}
	if got := testutil.ToFloat64(collector.AgentsByState.WithLabelValues("recovered")); got != 0 {
		t.Fatalf("simulation_agents{recovered} = %v, want 0", got)
	}
	if got := testutil.ToFloat64(collector.CumulativeInfected); got != 12 {
		t.Fatalf("simulation_infected_cumulative = %v, want 12", got)
	}
	if got := testutil.ToFloat64(collector.CumulativeDeceased); got != 4 {
		t.Fatalf("simulation_deceased_cumulative = %v, want 4", got)
	}
}

func TestCollectorReusesRegisteredMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	first, err := NewSimulationCollector(reg)
	if err != nil {
		t.Fatalf("first NewSimulationCollector: %v", err)
	}
	second, err := NewSimulationCollector(reg)
	if err != nil {
		t.Fatalf("second NewSimulationCollector: %v", err)
	}

	first.IncResets()
	second.IncResets()
	if got := testutil.ToFloat64(first.Resets); got != 2 {
		t.Fatalf("simulation_resets_total = %v, want 2 (shared collector)", got)
	}
}

func TestNilCollectorIsSafe(t *testing.T) {
	var c *SimulationCollector
	c.ObserveTick(time.Millisecond, model.Tally{Infected: 1})
	c.SetPopulation(nil, 0, 0)
	c.IncResets()
}

func TestMetricsHandlerExposesSimulationGauges(t *testing.T) {
	reg := prometheus.NewRegistry()
	collector, err := NewSimulationCollector(reg)
	if err != nil {
		t.Fatalf("NewSimulationCollector: %v", err)
	}
	collector.SetPopulation(map[model.HealthState]int{model.Susceptible: 3}, 5, 6)
	collector.ObserveTick(time.Millisecond, model.Tally{})
	collector.IncResets()

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rr := httptest.NewRecorder()
	collector.Handler().ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("/metrics status = %d, want 200", rr.Code)
	}
	body := rr.Body.String()
	for _, metric := range []string{
		"simulation_tick_duration_seconds",
		"simulation_transitions_total",
		"simulation_resets_total",
		"simulation_live_agents 3",
		"simulation_infected_cumulative 5",
		"simulation_deceased_cumulative 6",
		`simulation_agents{state="susceptible"} 3`,
	} {
		if !strings.Contains(body, metric) {
			t.Fatalf("expected %q in /metrics output:\n%s", metric, body)
		}
	}
}

func histogramSampleCount(t *testing.T, gatherer prometheus.Gatherer, name string, labels map[string]string) uint64 {
	t.Helper()

	metrics, err := gatherer.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	for _, mf := range metrics {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.Metric {
			if matchLabels(m.GetLabel(), labels) && m.GetHistogram() != nil {
				return m.GetHistogram().GetSampleCount()
			}
		}
	}
	return 0
}

func matchLabels(got []*dto.LabelPair, want map[string]string) bool {
	if len(got) < len(want) {
		return false
	}
	matched := 0
	for _, lp := range got {
		if val, ok := want[lp.GetName()]; ok && val == lp.GetValue() {
			matched++
		}
	}
	return matched == len(want)
}
