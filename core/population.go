package core

import (
	"math/rand/v2"
	"slices"

	"github.com/signalsfoundry/contagion-simulator/model"
)

// Totals is the running summary of a population since its last reset.
type Totals struct {
	Tick     int
	Infected int
	Deceased int
}

// Population owns the live agents and advances them one tick at a time.
//
// Population is not safe for concurrent use; callers serialise access
// (see internal/sim/state).
type Population struct {
	agents   []*model.Agent
	settings Settings

	infectedCumulative int
	deceasedCumulative int
	tick               int
}

// NewPopulation returns an empty population using the default settings.
// Call Populate before ticking.
func NewPopulation() *Population {
	return &Population{settings: DefaultSettings()}
}

// Populate replaces the live collection with settings.StartingPopulation
// fresh agents and resets the counters and tick index.
//
// Initial status per agent: Quarantined with SelfQuarantineRatio,
// otherwise Immune with ImmunityRatio, otherwise Infected while the
// remaining-infections counter stays non-negative. The counter is
// consumed by every agent, including quarantined and immune ones, so
// fewer than StartingInfections agents may start infected.
func (p *Population) Populate(settings Settings, rng *rand.Rand) {
	remaining := settings.StartingInfections
	agents := make([]*model.Agent, 0, max(settings.StartingPopulation, 0))

	for range settings.StartingPopulation {
		remaining--

		state := model.Susceptible
		switch {
		case rng.Float64() < settings.SelfQuarantineRatio:
			state = model.Quarantined
		case rng.Float64() < settings.ImmunityRatio:
			state = model.Immune
		case remaining >= 0:
			state = model.Infected
		}
		agents = append(agents, model.NewAgent(rng, state))
	}

	p.agents = agents
	p.settings = settings
	p.infectedCumulative = settings.StartingInfections
	p.deceasedCumulative = 0
	p.tick = 0
}

// Tick advances every live agent once using settings, which become the
// active settings. It returns the transitions observed during the pass.
//
// Agents are processed in collection order and exposure scans read the
// collection as it is being updated: an agent infected earlier in the
// pass already counts as a source for agents processed after it. Agents
// that die are marked Deceased, which drops them out of every later scan
// in the same pass, and are compacted away once the pass completes.
func (p *Population) Tick(settings Settings, rng *rand.Rand) model.Tally {
	p.settings = settings

	var tally model.Tally
	for _, a := range p.agents {
		tally.Add(Advance(a, p.agents, settings, rng))
	}
	if tally.Deceased > 0 {
		p.agents = slices.DeleteFunc(p.agents, func(a *model.Agent) bool {
			return !a.Alive()
		})
	}

	p.infectedCumulative += tally.Infected
	p.deceasedCumulative += tally.Deceased
	p.tick++
	return tally
}

// Advance runs one step of the per-agent state machine against the live
// collection and returns the resulting transition, if any.
func Advance(a *model.Agent, live []*model.Agent, s Settings, rng *rand.Rand) model.Transition {
	if !a.Alive() || a.State == model.Quarantined {
		return model.TransitionNone
	}

	// Bounce corrects the previous step's overshoot before moving again.
	if outOfBounds(a.Position.X) {
		a.Velocity.X = -a.Velocity.X
	}
	if outOfBounds(a.Position.Y) {
		a.Velocity.Y = -a.Velocity.Y
	}
	a.Position = a.Position.Add(a.Velocity)

	switch a.State {
	case model.Infected:
		a.InfectionAge++
		if rng.Float64() < s.DeathProbability() {
			a.Kill()
			return model.TransitionDeceased
		}
		if a.InfectionAge > s.RecoveryTicks {
			a.Recover()
			return model.TransitionRecovered
		}
		return model.TransitionNone
	case model.Immune, model.Recovered:
		return model.TransitionNone
	}

	exposures := countExposures(a, live, s.TransmissionRadius)
	if exposures == 0 {
		return model.TransitionNone
	}
	if rng.Float64() < CompoundProbability(exposures, s.TransmissionProbability) {
		a.Infect()
		return model.TransitionInfected
	}
	return model.TransitionNone
}

// Len returns the live population size.
func (p *Population) Len() int { return len(p.agents) }

// Settings returns the active settings.
func (p *Population) Settings() Settings { return p.settings }

// Totals returns the tick index and cumulative counters.
func (p *Population) Totals() Totals {
	return Totals{
		Tick:     p.tick,
		Infected: p.infectedCumulative,
		Deceased: p.deceasedCumulative,
	}
}

// Snapshot copies the renderable state of every live agent.
func (p *Population) Snapshot() []model.AgentView {
	out := make([]model.AgentView, len(p.agents))
	for i, a := range p.agents {
		out[i] = a.View()
	}
	return out
}

// Counts returns how many live agents hold each health state.
func (p *Population) Counts() map[model.HealthState]int {
	counts := make(map[model.HealthState]int, len(model.HealthStates))
	for _, a := range p.agents {
		counts[a.State]++
	}
	return counts
}
