package core

import "github.com/signalsfoundry/contagion-simulator/model"

// Agents exposes the live collection so tests can inspect agents in place.
func (p *Population) Agents() []*model.Agent { return p.agents }

// SetAgents replaces the live collection without touching counters.
func (p *Population) SetAgents(agents []*model.Agent) { p.agents = agents }
