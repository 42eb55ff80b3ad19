package model

import (
	"math/rand/v2"
	"testing"
)

func TestNewAgentQuarantinedIsStationary(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))
	for i := 0; i < 100; i++ {
		a := NewAgent(rng, Quarantined)
		if a.Velocity != (Vec2{}) {
			t.Fatalf("quarantined velocity = %+v, want zero", a.Velocity)
		}
		if a.InfectionAge != 0 {
			t.Fatalf("quarantined infection age = %d, want 0", a.InfectionAge)
		}
	}
}

func TestNewAgentRanges(t *testing.T) {
	rng := rand.New(rand.NewPCG(3, 4))
	for _, state := range []HealthState{Susceptible, Immune, Infected} {
		for i := 0; i < 200; i++ {
			a := NewAgent(rng, state)
			if a.Position.X < 0 || a.Position.X >= MapSize || a.Position.Y < 0 || a.Position.Y >= MapSize {
				t.Fatalf("%v agent placed at %+v", state, a.Position)
			}
			if a.Velocity.X < -0.5 || a.Velocity.X >= 0.5 || a.Velocity.Y < -0.5 || a.Velocity.Y >= 0.5 {
				t.Fatalf("%v agent velocity %+v", state, a.Velocity)
			}
			if a.InfectionAge != 0 {
				t.Fatalf("%v agent infection age = %d, want 0 until its first tick", state, a.InfectionAge)
			}
		}
	}
}

func TestAgentTransitionsClearClock(t *testing.T) {
	a := &Agent{State: Susceptible}
	a.Infect()
	if a.State != Infected || a.InfectionAge != 1 {
		t.Fatalf("after Infect: %+v", a)
	}
	a.InfectionAge = 9
	a.Recover()
	if a.State != Recovered || a.InfectionAge != 0 {
		t.Fatalf("after Recover: %+v", a)
	}

	b := &Agent{State: Infected, InfectionAge: 4}
	b.Kill()
	if b.Alive() || b.InfectionAge != 0 {
		t.Fatalf("after Kill: %+v", b)
	}
}

func TestTallyAdd(t *testing.T) {
	var tally Tally
	for _, tr := range []Transition{TransitionInfected, TransitionNone, TransitionInfected, TransitionDeceased, TransitionRecovered} {
		tally.Add(tr)
	}
	if tally != (Tally{Infected: 2, Recovered: 1, Deceased: 1}) {
		t.Fatalf("tally = %+v", tally)
	}
}

func TestHealthStateString(t *testing.T) {
	seen := map[string]bool{}
	for _, s := range HealthStates {
		name := s.String()
		if name == "unknown" || seen[name] {
			t.Fatalf("HealthState(%d).String() = %q", int(s), name)
		}
		seen[name] = true
	}
	if HealthState(99).String() != "unknown" {
		t.Fatalf("out-of-range state should stringify as unknown")
	}
}
