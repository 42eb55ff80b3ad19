package core

import (
	"math"

	"github.com/signalsfoundry/contagion-simulator/model"
)

// Distance returns the straight-line distance between two map positions.
func Distance(a, b model.Vec2) float64 {
	dx := a.X - b.X
	dy := a.Y - b.Y
	return math.Sqrt(dx*dx + dy*dy)
}

// outOfBounds reports whether v lies outside [0, MapSize).
func outOfBounds(v float64) bool {
	return v < 0 || v >= model.MapSize
}
