// Package state owns a running simulation: the population, its active
// settings, the stats aggregator and chart sink, and the tick and render
// cadences that drive them.
package state

import (
	"context"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/signalsfoundry/contagion-simulator/core"
	"github.com/signalsfoundry/contagion-simulator/internal/logging"
	"github.com/signalsfoundry/contagion-simulator/internal/observability"
	"github.com/signalsfoundry/contagion-simulator/internal/render"
	"github.com/signalsfoundry/contagion-simulator/internal/stats"
	"github.com/signalsfoundry/contagion-simulator/model"
	"github.com/signalsfoundry/contagion-simulator/timectrl"
)

const (
	// DefaultTickRate is the number of ticks per second while running.
	DefaultTickRate = 30.0
	// DefaultRenderRate is the number of frames per second handed to the
	// renderer while running.
	DefaultRenderRate = 60.0
)

// MetricsRecorder receives per-tick and per-reset measurements.
type MetricsRecorder interface {
	ObserveTick(d time.Duration, tally model.Tally)
	SetPopulation(counts map[model.HealthState]int, infectedTotal, deceasedTotal int)
	IncResets()
}

// ChartSink receives chart points and is cleared on reset.
type ChartSink interface {
	stats.Sink
	Reset()
}

// Renderer draws one frame per render step.
type Renderer interface {
	Draw(render.Frame)
}

// Simulation coordinates a population with its collaborators. All methods
// are safe for concurrent use; ticks, resets and snapshots are serialised
// on one lock so a renderer never observes a half-applied tick.
type Simulation struct {
	mu sync.Mutex

	pop      *core.Population
	settings core.Settings

	// pending holds settings changes queued since the last tick or reset.
	pending core.SettingsPatch

	rng  *rand.Rand
	seed uint64

	agg      *stats.Aggregator
	sink     ChartSink
	metrics  MetricsRecorder
	renderer Renderer

	tickRate    float64
	renderRate  float64
	accelerated bool
	tickCtl     *timectrl.Controller
	renderCtl   *timectrl.Controller

	// runMu guards done, which closes once both cadences have exited.
	runMu sync.Mutex
	done  chan struct{}

	runID string
	log   logging.Logger
}

// Option customises Simulation construction.
type Option func(*Simulation)

// WithSeed makes the run reproducible.
func WithSeed(seed uint64) Option {
	return func(s *Simulation) {
		s.seed = seed
		s.rng = nil
	}
}

// WithRand injects the random source directly.
func WithRand(rng *rand.Rand) Option {
	return func(s *Simulation) {
		s.rng = rng
	}
}

// WithChartSink attaches the sink fed by the stats aggregator.
func WithChartSink(sink ChartSink) Option {
	return func(s *Simulation) {
		s.sink = sink
	}
}

// WithMetricsRecorder attaches an optional metrics recorder.
func WithMetricsRecorder(m MetricsRecorder) Option {
	return func(s *Simulation) {
		s.metrics = m
	}
}

// WithRenderer attaches a renderer driven by the render cadence.
func WithRenderer(r Renderer) Option {
	return func(s *Simulation) {
		s.renderer = r
	}
}

// WithTickRate sets ticks per second.
func WithTickRate(perSecond float64) Option {
	return func(s *Simulation) {
		s.tickRate = perSecond
	}
}

// WithRenderRate sets frames per second.
func WithRenderRate(perSecond float64) Option {
	return func(s *Simulation) {
		s.renderRate = perSecond
	}
}

// WithAccelerated runs ticks back to back instead of at the tick rate.
func WithAccelerated() Option {
	return func(s *Simulation) {
		s.accelerated = true
	}
}

// NewSimulation validates settings and populates a fresh simulation. The
// run_id on ctx is adopted when present, otherwise one is generated.
func NewSimulation(ctx context.Context, settings core.Settings, log logging.Logger, opts ...Option) (*Simulation, error) {
	if err := settings.Validate(); err != nil {
		return nil, err
	}

	s := &Simulation{
		pop:        core.NewPopulation(),
		settings:   settings,
		seed:       rand.Uint64(),
		tickRate:   DefaultTickRate,
		renderRate: DefaultRenderRate,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	if s.rng == nil {
		s.rng = rand.New(rand.NewPCG(s.seed, s.seed^0x9e3779b97f4a7c15))
	}
	ctx, s.log = logging.WithRunLogger(ctx, log)
	s.runID = logging.RunIDFromContext(ctx)
	s.agg = stats.NewAggregator(s.sink)

	mode := timectrl.RealTime
	if s.accelerated {
		mode = timectrl.Accelerated
	}
	s.tickCtl = timectrl.NewController(timectrl.Interval(s.tickRate), mode)
	s.tickCtl.AddListener(func(ctx context.Context, _ int) { s.Tick(ctx) })
	s.renderCtl = timectrl.NewController(timectrl.Interval(s.renderRate), timectrl.RealTime)
	s.renderCtl.AddListener(func(context.Context, int) { s.Render() })

	s.mu.Lock()
	s.resetLocked(ctx)
	s.mu.Unlock()
	return s, nil
}

// RunID identifies this simulation in logs and traces.
func (s *Simulation) RunID() string { return s.runID }

// Seed returns the seed used for the random source.
func (s *Simulation) Seed() uint64 { return s.seed }

// UpdateSettings queues a partial settings change. It is merged into the
// active record at the start of the next tick or reset. A patch that would
// produce an invalid record is rejected and nothing is queued.
func (s *Simulation) UpdateSettings(p core.SettingsPatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	combined := s.pending.Combine(p)
	if err := s.settings.Merge(combined).Validate(); err != nil {
		return err
	}
	s.pending = combined
	return nil
}

// Settings returns the active settings record.
func (s *Simulation) Settings() core.Settings {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.settings
}

// NextSettings returns the record the next tick or reset will use: the
// active settings with queued changes applied.
func (s *Simulation) NextSettings() core.Settings {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.settings.Merge(s.pending)
}

func (s *Simulation) applyPendingLocked() {
	if s.pending.Empty() {
		return
	}
	s.settings = s.settings.Merge(s.pending)
	s.pending = core.SettingsPatch{}
}

// Tick advances the population once and feeds the aggregator.
func (s *Simulation) Tick(ctx context.Context) model.Tally {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.applyPendingLocked()

	ctx, span := observability.StartTickSpan(ctx, s.runID, s.pop.Totals().Tick+1)
	defer span.End()

	start := time.Now()
	tally := s.pop.Tick(s.settings, s.rng)
	elapsed := time.Since(start)

	totals := s.pop.Totals()
	s.agg.Observe(totals.Tick, totals.Infected, totals.Deceased)

	observability.RecordTally(span, s.pop.Len(), tally)

	if s.metrics != nil {
		s.metrics.ObserveTick(elapsed, tally)
		s.metrics.SetPopulation(s.pop.Counts(), totals.Infected, totals.Deceased)
	}
	if tally != (model.Tally{}) {
		s.log.Debug(ctx, "tick transitions",
			logging.Int("tick", totals.Tick),
			logging.Int("infected", tally.Infected),
			logging.Int("recovered", tally.Recovered),
			logging.Int("deceased", tally.Deceased),
		)
	}
	return tally
}

// Reset re-populates from the active settings, zeroes the counters and
// tick index, and clears the chart sink.
func (s *Simulation) Reset(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resetLocked(ctx)
}

func (s *Simulation) resetLocked(ctx context.Context) {
	s.applyPendingLocked()

	ctx, span := observability.StartResetSpan(ctx, s.runID, s.settings.StartingPopulation)
	defer span.End()

	s.pop.Populate(s.settings, s.rng)
	s.agg.Reset()
	if s.sink != nil {
		s.sink.Reset()
	}

	totals := s.pop.Totals()
	if s.metrics != nil {
		s.metrics.IncResets()
		s.metrics.SetPopulation(s.pop.Counts(), totals.Infected, totals.Deceased)
	}

	s.log.Info(ctx, "population reset",
		logging.Int("population", s.pop.Len()),
		logging.Int("starting_infections", s.settings.StartingInfections),
		logging.Float("transmission_radius", s.settings.TransmissionRadius),
		logging.Float("transmission_probability", s.settings.TransmissionProbability),
		logging.Float("death_rate_percent", s.settings.DeathRatePercent),
		logging.Int("recovery_ticks", s.settings.RecoveryTicks),
		logging.Any("seed", s.seed),
	)
}

// Totals returns the tick index and cumulative counters.
func (s *Simulation) Totals() core.Totals {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pop.Totals()
}

// Counts returns live agents per health state.
func (s *Simulation) Counts() map[model.HealthState]int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pop.Counts()
}

// Snapshot copies the current population for a renderer.
func (s *Simulation) Snapshot() render.Frame {
	s.mu.Lock()
	agents := s.pop.Snapshot()
	totals := s.pop.Totals()
	s.mu.Unlock()

	return render.Frame{
		Agents:  agents,
		Totals:  stats.Sample{Tick: totals.Tick, Infected: totals.Infected, Deceased: totals.Deceased},
		Running: s.Running(),
	}
}

// Render hands the current snapshot to the renderer, if any. Drawing
// happens outside the simulation lock.
func (s *Simulation) Render() {
	if s.renderer == nil {
		return
	}
	s.renderer.Draw(s.Snapshot())
}

// Start begins the tick and render cadences. Tick spans parent to the
// span carried by ctx. maxTicks bounds the tick cadence (<= 0 runs until
// Stop or ctx is done); the render cadence stops with it. The returned
// channel is closed once both cadences have exited, so no Draw is in
// flight afterwards. Starting a running simulation returns the channel
// of the run already in progress.
func (s *Simulation) Start(ctx context.Context, maxTicks int) <-chan struct{} {
	s.runMu.Lock()
	defer s.runMu.Unlock()
	if s.done != nil {
		select {
		case <-s.done:
		default:
			return s.done
		}
	}

	ctx = logging.ContextWithRunID(ctx, s.runID)
	s.log.Info(ctx, "simulation started",
		logging.Float("tick_rate", s.tickRate),
		logging.Int("max_ticks", maxTicks),
	)

	tickDone := s.tickCtl.Start(ctx, maxTicks)
	var renderDone <-chan struct{}
	if s.renderer != nil {
		renderDone = s.renderCtl.Start(ctx, 0)
	}

	done := make(chan struct{})
	go func() {
		<-tickDone
		if renderDone != nil {
			s.renderCtl.Stop()
			<-renderDone
		}
		close(done)
	}()
	s.done = done
	return done
}

// Stop halts both cadences. A tick already in progress completes. Stop is
// idempotent.
func (s *Simulation) Stop() {
	if s.tickCtl.Running() || s.renderCtl.Running() {
		s.log.Info(context.Background(), "simulation stopped", logging.Int("tick", s.Totals().Tick))
	}
	s.tickCtl.Stop()
	s.renderCtl.Stop()
}

// Running reports whether the tick cadence is active.
func (s *Simulation) Running() bool {
	return s.tickCtl.Running()
}
