// Package render maps a population snapshot to display colors and draws
// it onto a terminal screen.
package render

import (
	"fmt"

	"github.com/gdamore/tcell/v2"

	"github.com/signalsfoundry/contagion-simulator/internal/stats"
	"github.com/signalsfoundry/contagion-simulator/model"
)

// ColorName returns the display color for a health state.
func ColorName(s model.HealthState) string {
	switch s {
	case model.Immune:
		return "lime"
	case model.Infected:
		return "red"
	case model.Quarantined:
		return "blue"
	case model.Recovered:
		return "darkgreen"
	default:
		return "white"
	}
}

// Color returns the terminal color for a health state.
func Color(s model.HealthState) tcell.Color {
	switch s {
	case model.Immune:
		return tcell.ColorLime
	case model.Infected:
		return tcell.ColorRed
	case model.Quarantined:
		return tcell.ColorBlue
	case model.Recovered:
		return tcell.ColorDarkGreen
	default:
		return tcell.ColorWhite
	}
}

// Frame is everything a renderer reads for one animation frame.
type Frame struct {
	Agents  []model.AgentView
	Totals  stats.Sample
	Running bool
}

// Surface is the subset of tcell.Screen the terminal renderer draws on.
type Surface interface {
	Clear()
	Size() (width, height int)
	SetContent(x, y int, primary rune, combining []rune, style tcell.Style)
	Show()
}

const agentGlyph = '●'

// TerminalRenderer draws frames onto a terminal surface. The map is scaled
// to the surface with the bottom row reserved for a status line.
type TerminalRenderer struct {
	surface Surface
}

// NewTerminalRenderer returns a renderer drawing onto surface.
func NewTerminalRenderer(surface Surface) *TerminalRenderer {
	return &TerminalRenderer{surface: surface}
}

// Draw renders one frame and flushes it to the surface.
func (r *TerminalRenderer) Draw(f Frame) {
	r.surface.Clear()
	width, height := r.surface.Size()
	mapHeight := height - 1
	if width <= 0 || mapHeight <= 0 {
		r.surface.Show()
		return
	}

	for _, a := range f.Agents {
		x, y := Cell(a.Position, width, mapHeight)
		r.surface.SetContent(x, y, agentGlyph, nil, tcell.StyleDefault.Foreground(Color(a.State)))
	}

	state := "stopped"
	if f.Running {
		state = "running"
	}
	status := fmt.Sprintf(" tick %d  infected %d  deceased %d  agents %d  [%s]  s:start/stop r:reset [/]:radius q:quit",
		f.Totals.Tick, f.Totals.Infected, f.Totals.Deceased, len(f.Agents), state)
	style := tcell.StyleDefault.Reverse(true)
	for i, ch := range []rune(status) {
		if i >= width {
			break
		}
		r.surface.SetContent(i, height-1, ch, nil, style)
	}

	r.surface.Show()
}

// Cell maps a map position to a terminal cell inside a width x height
// area. Positions that overshoot the map edge are clamped to the border.
func Cell(p model.Vec2, width, height int) (int, int) {
	x := int(p.X / model.MapSize * float64(width))
	y := int(p.Y / model.MapSize * float64(height))
	return clamp(x, 0, width-1), clamp(y, 0, height-1)
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
