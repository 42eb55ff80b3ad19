package model

import "math/rand/v2"

// MapSize is the side length of the square area agents move in.
const MapSize = 700.0

// Vec2 is a position or velocity on the map plane.
type Vec2 struct {
	X float64
	Y float64
}

// Add returns v + other.
func (v Vec2) Add(other Vec2) Vec2 {
	return Vec2{X: v.X + other.X, Y: v.Y + other.Y}
}

// Agent is one simulated individual.
//
// InfectionAge counts the ticks an Infected agent has spent infected. It
// is zero for every other state, and zero for an agent created Infected
// until that agent's first tick starts its clock.
type Agent struct {
	Position     Vec2
	Velocity     Vec2
	State        HealthState
	InfectionAge int
}

// NewAgent places an agent uniformly at random on the map. Quarantined
// agents never move; everyone else gets a fixed velocity with each
// component drawn from [-0.5, 0.5). An agent created Infected starts with
// an unstarted clock, so with RecoveryTicks n it recovers on tick n+1.
func NewAgent(rng *rand.Rand, state HealthState) *Agent {
	a := &Agent{
		Position: Vec2{
			X: rng.Float64() * MapSize,
			Y: rng.Float64() * MapSize,
		},
		State: state,
	}
	if state != Quarantined {
		a.Velocity = Vec2{
			X: rng.Float64() - 0.5,
			Y: rng.Float64() - 0.5,
		}
	}
	return a
}

// Infect moves the agent into the Infected state with a fresh clock.
func (a *Agent) Infect() {
	a.State = Infected
	a.InfectionAge = 1
}

// Recover moves an infected agent into the Recovered state.
func (a *Agent) Recover() {
	a.State = Recovered
	a.InfectionAge = 0
}

// Kill marks the agent deceased. Deceased agents are dropped from the
// live population at the end of the tick in which they die.
func (a *Agent) Kill() {
	a.State = Deceased
	a.InfectionAge = 0
}

// Alive reports whether the agent still belongs to the live population.
func (a *Agent) Alive() bool {
	return a.State != Deceased
}

// AgentView is the read-only projection handed to renderers.
type AgentView struct {
	Position Vec2
	State    HealthState
}

// View returns a copy of the agent's renderable state.
func (a *Agent) View() AgentView {
	return AgentView{Position: a.Position, State: a.State}
}
