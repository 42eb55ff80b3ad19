// Package chart keeps the samples of the current chart frame and renders
// them as an infected/deceased time series.
package chart

import (
	"sync"

	"github.com/signalsfoundry/contagion-simulator/internal/stats"
)

// History is an append-only, concurrency-safe chart sink. Reset clears it
// when the simulation is re-populated; nothing older than the current
// frame is retained.
type History struct {
	mu      sync.RWMutex
	samples []stats.Sample
}

// NewHistory returns an empty history.
func NewHistory() *History {
	return &History{}
}

// Append implements stats.Sink. Samples must arrive in tick order; a
// sample older than the last one is dropped.
func (h *History) Append(s stats.Sample) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if n := len(h.samples); n > 0 && s.Tick < h.samples[n-1].Tick {
		return
	}
	h.samples = append(h.samples, s)
}

// Reset drops every sample.
func (h *History) Reset() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.samples = nil
}

// Samples returns a copy of the current frame.
func (h *History) Samples() []stats.Sample {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return append([]stats.Sample(nil), h.samples...)
}

// Len returns the number of samples held.
func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.samples)
}
