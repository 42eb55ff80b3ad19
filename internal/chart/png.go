package chart

import (
	"errors"
	"fmt"
	"io"

	gochart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/signalsfoundry/contagion-simulator/internal/stats"
)

// ErrNoSamples is returned when there is nothing to plot.
var ErrNoSamples = errors.New("chart has no samples")

var (
	infectedColor = drawing.ColorFromHex("80CAF6")
	deceasedColor = drawing.ColorFromHex("FF0000")
)

// RenderPNG draws the cumulative infected and deceased series as filled
// line charts and writes a PNG to w.
func RenderPNG(w io.Writer, samples []stats.Sample, width, height int) error {
	if len(samples) == 0 {
		return ErrNoSamples
	}
	if len(samples) == 1 {
		// A single point has no extent; hold it flat for one tick.
		next := samples[0]
		next.Tick++
		samples = append(samples, next)
	}

	xs := make([]float64, len(samples))
	infected := make([]float64, len(samples))
	deceased := make([]float64, len(samples))
	yMax := 1.0
	for i, s := range samples {
		xs[i] = float64(s.Tick)
		infected[i] = float64(s.Infected)
		deceased[i] = float64(s.Deceased)
		yMax = max(yMax, infected[i], deceased[i])
	}

	graph := gochart.Chart{
		Width:  width,
		Height: height,
		XAxis: gochart.XAxis{
			Name: "tick",
			Range: &gochart.ContinuousRange{
				Min: xs[0],
				Max: max(xs[len(xs)-1], xs[0]+1),
			},
			ValueFormatter: func(v interface{}) string {
				return fmt.Sprintf("%d", int(v.(float64)))
			},
		},
		YAxis: gochart.YAxis{
			Range: &gochart.ContinuousRange{Min: 0, Max: yMax},
			ValueFormatter: func(v interface{}) string {
				return fmt.Sprintf("%d", int(v.(float64)))
			},
		},
		Series: []gochart.Series{
			gochart.ContinuousSeries{
				Name:    "Infected",
				XValues: xs,
				YValues: infected,
				Style: gochart.Style{
					StrokeColor: infectedColor,
					FillColor:   infectedColor.WithAlpha(96),
					StrokeWidth: 2,
				},
			},
			gochart.ContinuousSeries{
				Name:    "Deaths",
				XValues: xs,
				YValues: deceased,
				Style: gochart.Style{
					StrokeColor: deceasedColor,
					FillColor:   deceasedColor.WithAlpha(96),
					StrokeWidth: 2,
				},
			},
		},
	}
	graph.Elements = []gochart.Renderable{gochart.Legend(&graph)}

	if err := graph.Render(gochart.PNG, w); err != nil {
		return fmt.Errorf("render chart: %w", err)
	}
	return nil
}
