package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gdamore/tcell/v2"

	"github.com/signalsfoundry/contagion-simulator/core"
	"github.com/signalsfoundry/contagion-simulator/internal/chart"
	"github.com/signalsfoundry/contagion-simulator/internal/logging"
	"github.com/signalsfoundry/contagion-simulator/internal/observability"
	"github.com/signalsfoundry/contagion-simulator/internal/render"
	sim "github.com/signalsfoundry/contagion-simulator/internal/sim/state"
)

// Config holds the command-line configuration of one run.
type Config struct {
	SettingsPath   string
	Ticks          int
	TickRate       float64
	RenderRate     float64
	Accelerated    bool
	Seed           uint64
	MetricsAddress string
	ChartOut       string
	ChartWidth     int
	ChartHeight    int
	TUI            bool
}

func main() {
	var cfg Config
	flag.StringVar(&cfg.SettingsPath, "settings", "", "Path to a JSON settings file merged over the defaults")
	flag.IntVar(&cfg.Ticks, "ticks", 0, "Stop after this many ticks (0 runs until interrupted)")
	flag.Float64Var(&cfg.TickRate, "tick-rate", sim.DefaultTickRate, "Ticks per second")
	flag.Float64Var(&cfg.RenderRate, "render-rate", sim.DefaultRenderRate, "Frames per second in terminal mode")
	flag.BoolVar(&cfg.Accelerated, "accelerated", false, "Run ticks back to back instead of at the tick rate")
	flag.Uint64Var(&cfg.Seed, "seed", 0, "Random seed (0 picks one)")
	flag.StringVar(&cfg.MetricsAddress, "metrics-addr", "", "HTTP address for Prometheus /metrics (empty disables)")
	flag.StringVar(&cfg.ChartOut, "chart-out", "", "Write the infected/deceased chart as PNG to this path on exit")
	flag.IntVar(&cfg.ChartWidth, "chart-width", 1024, "Chart width in pixels")
	flag.IntVar(&cfg.ChartHeight, "chart-height", 400, "Chart height in pixels")
	flag.BoolVar(&cfg.TUI, "tui", false, "Draw the population in the terminal")
	flag.Parse()

	log := logging.NewFromEnv()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := observability.InitTracing(ctx, observability.TracingConfigFromEnv(), log)
	if err != nil {
		log.Error(ctx, "failed to initialise tracing", logging.Err(err))
		os.Exit(1)
	}

	err = run(ctx, cfg, log)
	observability.ShutdownWithTimeout(context.Background(), shutdownTracing, log)
	if err != nil {
		log.Error(ctx, "simulation failed", logging.Err(err))
		os.Exit(1)
	}
}

// run executes one simulation until ctx is done, the tick limit is reached,
// or the terminal user quits.
func run(ctx context.Context, cfg Config, log logging.Logger) error {
	settings, err := loadSettings(cfg.SettingsPath)
	if err != nil {
		return err
	}

	collector, err := observability.NewSimulationCollector(nil)
	if err != nil {
		return fmt.Errorf("init metrics collector: %w", err)
	}
	metricsSrv := serveMetrics(cfg.MetricsAddress, collector, log)
	defer func() {
		if metricsSrv == nil {
			return
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsSrv.Shutdown(shutdownCtx)
	}()

	history := chart.NewHistory()
	opts := []sim.Option{
		sim.WithChartSink(history),
		sim.WithMetricsRecorder(collector),
		sim.WithTickRate(cfg.TickRate),
		sim.WithRenderRate(cfg.RenderRate),
	}
	if cfg.Seed != 0 {
		opts = append(opts, sim.WithSeed(cfg.Seed))
	}
	if cfg.Accelerated {
		opts = append(opts, sim.WithAccelerated())
	}

	var screen tcell.Screen
	if cfg.TUI {
		screen, err = tcell.NewScreen()
		if err != nil {
			return fmt.Errorf("open terminal: %w", err)
		}
		if err := screen.Init(); err != nil {
			return fmt.Errorf("init terminal: %w", err)
		}
		defer screen.Fini()
		screen.HideCursor()
		opts = append(opts, sim.WithRenderer(render.NewTerminalRenderer(screen)))
	}

	ctx, runLog := logging.WithRunLogger(ctx, log)
	simulation, err := sim.NewSimulation(ctx, settings, log, opts...)
	if err != nil {
		return err
	}
	log = runLog

	if screen != nil {
		runTerminal(ctx, screen, simulation, cfg.Ticks, log)
	} else {
		runHeadless(ctx, simulation, cfg.Ticks)
	}

	totals := simulation.Totals()
	log.Info(ctx, "simulation finished",
		logging.Int("tick", totals.Tick),
		logging.Int("infected", totals.Infected),
		logging.Int("deceased", totals.Deceased),
		logging.Int("live", len(simulation.Snapshot().Agents)),
	)

	return writeChart(ctx, cfg, history, log)
}

func runHeadless(ctx context.Context, simulation *sim.Simulation, ticks int) {
	done := simulation.Start(ctx, ticks)
	select {
	case <-done:
	case <-ctx.Done():
		simulation.Stop()
		<-done
	}
}

// radiusStep is how far one key press moves the transmission radius.
const radiusStep = 5.0

// runTerminal starts the simulation and handles keys until quit:
// s toggles running, r resets, [ and ] shrink or grow the transmission
// radius from the next tick, q / Esc / Ctrl-C quit.
func runTerminal(ctx context.Context, screen tcell.Screen, simulation *sim.Simulation, ticks int, log logging.Logger) {
	events := make(chan tcell.Event, 16)
	go func() {
		for {
			ev := screen.PollEvent()
			if ev == nil {
				close(events)
				return
			}
			events <- ev
		}
	}()

	done := simulation.Start(ctx, ticks)
	defer func() {
		simulation.Stop()
		<-done
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			switch ev := ev.(type) {
			case *tcell.EventKey:
				switch {
				case ev.Key() == tcell.KeyEscape || ev.Key() == tcell.KeyCtrlC:
					return
				case ev.Key() != tcell.KeyRune:
				case ev.Rune() == 'q':
					return
				case ev.Rune() == 's':
					if simulation.Running() {
						simulation.Stop()
						<-done
					} else {
						done = simulation.Start(ctx, ticks)
					}
				case ev.Rune() == 'r':
					simulation.Reset(ctx)
				case ev.Rune() == '[':
					if err := adjustRadius(simulation, -radiusStep); err != nil {
						log.Debug(ctx, "radius change rejected", logging.Err(err))
					}
				case ev.Rune() == ']':
					if err := adjustRadius(simulation, radiusStep); err != nil {
						log.Debug(ctx, "radius change rejected", logging.Err(err))
					}
				}
			case *tcell.EventResize:
				screen.Sync()
			}
			simulation.Render()
		}
	}
}

// adjustRadius queues a transmission radius change of delta on top of any
// change already queued. Changes that would leave the radius non-positive
// are rejected.
func adjustRadius(simulation *sim.Simulation, delta float64) error {
	radius := simulation.NextSettings().TransmissionRadius + delta
	return simulation.UpdateSettings(core.SettingsPatch{TransmissionRadius: &radius})
}

func loadSettings(path string) (core.Settings, error) {
	base := core.DefaultSettings()
	if path == "" {
		return base, base.Validate()
	}
	f, err := os.Open(path)
	if err != nil {
		return core.Settings{}, fmt.Errorf("open settings: %w", err)
	}
	defer f.Close()

	settings, err := core.LoadSettings(base, f)
	if err != nil {
		return core.Settings{}, fmt.Errorf("%s: %w", path, err)
	}
	return settings, nil
}

func writeChart(ctx context.Context, cfg Config, history *chart.History, log logging.Logger) error {
	if cfg.ChartOut == "" {
		return nil
	}
	samples := history.Samples()
	if len(samples) == 0 {
		log.Warn(ctx, "skipping chart output", logging.String("path", cfg.ChartOut), logging.Err(chart.ErrNoSamples))
		return nil
	}

	f, err := os.Create(cfg.ChartOut)
	if err != nil {
		return fmt.Errorf("create chart: %w", err)
	}
	if err := chart.RenderPNG(f, samples, cfg.ChartWidth, cfg.ChartHeight); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close chart: %w", err)
	}

	log.Info(ctx, "wrote chart", logging.String("path", cfg.ChartOut), logging.Int("samples", len(samples)))
	return nil
}

func serveMetrics(addr string, collector *observability.SimulationCollector, log logging.Logger) *http.Server {
	if collector == nil || addr == "" {
		return nil
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", collector.Handler())

	srv := &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Warn(context.Background(), "metrics server exited", logging.Err(err))
		}
	}()

	log.Info(context.Background(), "serving Prometheus metrics", logging.String("addr", addr))
	return srv
}
