package model

// HealthState is the single health status an agent holds at any time.
type HealthState int

const (
	Susceptible HealthState = iota
	Immune
	Quarantined
	Infected
	Recovered
	Deceased
)

// String implements fmt.Stringer.
func (s HealthState) String() string {
	switch s {
	case Susceptible:
		return "susceptible"
	case Immune:
		return "immune"
	case Quarantined:
		return "quarantined"
	case Infected:
		return "infected"
	case Recovered:
		return "recovered"
	case Deceased:
		return "deceased"
	default:
		return "unknown"
	}
}

// HealthStates lists every state in declaration order.
var HealthStates = []HealthState{Susceptible, Immune, Quarantined, Infected, Recovered, Deceased}

// Transition is an observable change emitted by a single agent step.
type Transition int

const (
	TransitionNone Transition = iota
	TransitionInfected
	TransitionRecovered
	TransitionDeceased
)

func (t Transition) String() string {
	switch t {
	case TransitionInfected:
		return "infected"
	case TransitionRecovered:
		return "recovered"
	case TransitionDeceased:
		return "deceased"
	default:
		return "none"
	}
}

// Tally counts the transitions emitted during one tick.
type Tally struct {
	Infected  int
	Recovered int
	Deceased  int
}

// Add records one transition.
func (t *Tally) Add(tr Transition) {
	switch tr {
	case TransitionInfected:
		t.Infected++
	case TransitionRecovered:
		t.Recovered++
	case TransitionDeceased:
		t.Deceased++
	}
}
