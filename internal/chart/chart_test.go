package chart

import (
	"bytes"
	"errors"
	"image/png"
	"reflect"
	"sync"
	"testing"

	"github.com/signalsfoundry/contagion-simulator/internal/stats"
)

func TestHistoryAppendAndReset(t *testing.T) {
	h := NewHistory()
	h.Append(stats.Sample{Tick: 1, Infected: 3})
	h.Append(stats.Sample{Tick: 4, Infected: 5})
	h.Append(stats.Sample{Tick: 2, Infected: 9}) // out of order, dropped

	want := []stats.Sample{{Tick: 1, Infected: 3}, {Tick: 4, Infected: 5}}
	if got := h.Samples(); !reflect.DeepEqual(got, want) {
		t.Fatalf("Samples() = %+v, want %+v", got, want)
	}

	h.Reset()
	if h.Len() != 0 {
		t.Fatalf("Len() after Reset = %d, want 0", h.Len())
	}
}

func TestHistorySamplesIsCopy(t *testing.T) {
	h := NewHistory()
	h.Append(stats.Sample{Tick: 1, Infected: 3})

	got := h.Samples()
	got[0].Infected = 100
	if h.Samples()[0].Infected != 3 {
		t.Fatalf("mutating Samples() result changed history")
	}
}

func TestHistoryConcurrentAppend(t *testing.T) {
	h := NewHistory()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				h.Append(stats.Sample{Tick: 1})
				_ = h.Samples()
			}
		}()
	}
	wg.Wait()
	if h.Len() != 800 {
		t.Fatalf("Len() = %d, want 800", h.Len())
	}
}

func TestRenderPNG(t *testing.T) {
	samples := []stats.Sample{
		{Tick: 0, Infected: 3},
		{Tick: 10, Infected: 8, Deceased: 1},
		{Tick: 25, Infected: 20, Deceased: 2},
	}

	var buf bytes.Buffer
	if err := RenderPNG(&buf, samples, 640, 320); err != nil {
		t.Fatalf("RenderPNG: %v", err)
	}
	img, err := png.Decode(&buf)
	if err != nil {
		t.Fatalf("decode rendered chart: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 640 || b.Dy() != 320 {
		t.Fatalf("chart size = %dx%d, want 640x320", b.Dx(), b.Dy())
	}
}

func TestRenderPNGSingleSample(t *testing.T) {
	var buf bytes.Buffer
	if err := RenderPNG(&buf, []stats.Sample{{Tick: 0}}, 320, 200); err != nil {
		t.Fatalf("RenderPNG single flat sample: %v", err)
	}
}

func TestRenderPNGEmpty(t *testing.T) {
	if err := RenderPNG(&bytes.Buffer{}, nil, 320, 200); !errors.Is(err, ErrNoSamples) {
		t.Fatalf("RenderPNG(nil) = %v, want ErrNoSamples", err)
	}
}
