package core

import "github.com/signalsfoundry/contagion-simulator/model"

// IsExposed reports whether self is within radius of other. The
// comparison is strict: an agent exactly radius away is not exposed.
func IsExposed(other, self model.Vec2, radius float64) bool {
	return Distance(other, self) < radius
}

// CompoundProbability returns the chance of at least one success across
// exposures independent trials of probability q.
//
// The risk is accumulated one exposure at a time (p += (1-p)*q) rather
// than via 1-(1-q)^n so the floating-point result is reproducible.
func CompoundProbability(exposures int, q float64) float64 {
	p := 0.0
	for i := 0; i < exposures; i++ {
		p += (1 - p) * q
	}
	return p
}

// countExposures returns how many live infected agents other than self
// are within radius of self.
func countExposures(self *model.Agent, live []*model.Agent, radius float64) int {
	n := 0
	for _, other := range live {
		if other == self || other.State != model.Infected {
			continue
		}
		if IsExposed(other.Position, self.Position, radius) {
			n++
		}
	}
	return n
}
