// Package stats tracks the process-lifetime running totals of a
// simulation and forwards them to a chart sink when they change.
package stats

// Sample is one chart point.
type Sample struct {
	Tick     int
	Infected int
	Deceased int
}

// Sink receives chart points in tick order.
type Sink interface {
	Append(Sample)
}

// Aggregator forwards samples to a Sink, skipping ticks where neither
// cumulative counter moved.
type Aggregator struct {
	sink     Sink
	latest   Sample
	last     Sample
	notified bool
}

// NewAggregator returns an aggregator writing to sink. A nil sink is
// allowed; samples are then only kept as Latest.
func NewAggregator(sink Sink) *Aggregator {
	return &Aggregator{sink: sink}
}

// Observe records the totals after a tick. It reports whether the sample
// was forwarded to the sink.
func (a *Aggregator) Observe(tick, infected, deceased int) bool {
	s := Sample{Tick: tick, Infected: infected, Deceased: deceased}
	a.latest = s

	if a.notified && s.Infected == a.last.Infected && s.Deceased == a.last.Deceased {
		return false
	}
	a.last = s
	a.notified = true
	if a.sink != nil {
		a.sink.Append(s)
	}
	return true
}

// Latest returns the most recently observed totals, forwarded or not.
func (a *Aggregator) Latest() Sample {
	return a.latest
}

// Reset forgets the last forwarded sample so the next observation is
// always forwarded.
func (a *Aggregator) Reset() {
	a.latest = Sample{}
	a.last = Sample{}
	a.notified = false
}
