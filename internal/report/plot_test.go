package report

import (
	"bytes"
	"math"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/ysegawa/forceplate/internal/model"
	"github.com/ysegawa/forceplate/internal/trace"
)

func TestPlotWaveform(t *testing.T) {
	var buf bytes.Buffer
	err := PlotWaveform(&buf, "trial01.csv — Force.Fy.1", []Series{
		{Name: "Force.Fy.1", Values: []float64{0, 5, 20, 8, 0}},
		{Name: "window", Values: []float64{math.NaN(), 5, 20, 8, math.NaN()}},
	}, 5, 4, false)
	if err != nil {
		t.Fatalf("PlotWaveform failed: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "trial01.csv — Force.Fy.1") {
		t.Fatalf("expected title in output")
	}
	if !strings.Contains(out, "Legend:") {
		t.Fatalf("expected legend in output")
	}
	if !strings.Contains(out, "window") {
		t.Fatalf("expected window series in legend")
	}
	lines := strings.Split(strings.TrimSpace(out), "\n")
	expectedMin := 1 + 4 + 1
	if len(lines) < expectedMin {
		t.Fatalf("expected at least %d lines of output, got %d", expectedMin, len(lines))
	}
}

func TestPlotWaveformAxisLabels(t *testing.T) {
	var buf bytes.Buffer
	err := PlotWaveform(&buf, "", []Series{
		{Name: "Force.Fy.1", Values: []float64{-10, 0, 30}},
	}, 10, 4, false)
	if err != nil {
		t.Fatalf("PlotWaveform failed: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "30.0") {
		t.Fatalf("expected max label in output:\n%s", out)
	}
	if !strings.Contains(out, "-10.0") {
		t.Fatalf("expected min label in output:\n%s", out)
	}
}

func TestPlotWaveformEmptySeries(t *testing.T) {
	var buf bytes.Buffer
	if err := PlotWaveform(&buf, "empty", nil, 10, 4, false); err != nil {
		t.Fatalf("PlotWaveform failed: %v", err)
	}
	if buf.Len() != 0 {
		t.Fatalf("expected no output for empty series, got %q", buf.String())
	}
}

func TestWaveformSeries(t *testing.T) {
	table, err := trace.NewTable(
		[]string{trace.TimeColumn, "Force.Fy.1"},
		map[string][]float64{
			trace.TimeColumn: {0, 0.1, 0.2, 0.3, 0.4},
			"Force.Fy.1":     {0, 15, 20, 12, 0},
		},
	)
	if err != nil {
		t.Fatalf("build table: %v", err)
	}

	series, err := WaveformSeries(table, model.Window{Start: 1, End: 3}, "Force.Fy.1")
	if err != nil {
		t.Fatalf("WaveformSeries failed: %v", err)
	}
	if len(series) != 2 {
		t.Fatalf("expected 2 series, got %d", len(series))
	}
	overlay := series[1].Values
	if !math.IsNaN(overlay[0]) || !math.IsNaN(overlay[4]) {
		t.Fatalf("expected NaN outside the window, got %v", overlay)
	}
	for i := 1; i <= 3; i++ {
		if overlay[i] != series[0].Values[i] {
			t.Fatalf("expected overlay to match channel at %d: %v vs %v", i, overlay[i], series[0].Values[i])
		}
	}
}

func TestWaveformSeriesInvalidWindow(t *testing.T) {
	table, err := trace.NewTable(
		[]string{trace.TimeColumn, "Force.Fy.1"},
		map[string][]float64{
			trace.TimeColumn: {0, 0.1},
			"Force.Fy.1":     {0, 1},
		},
	)
	if err != nil {
		t.Fatalf("build table: %v", err)
	}
	if _, err := WaveformSeries(table, model.Window{Start: 0, End: 5}, "Force.Fy.1"); err == nil {
		t.Fatalf("expected error for out-of-range window")
	}
	if _, err := WaveformSeries(table, model.Window{Start: 0, End: 1}, "Force.Fx.9"); err == nil {
		t.Fatalf("expected error for missing channel")
	}
}

func TestPlotWidthFor(t *testing.T) {
	axisWidth := axisLabelWidth + utf8.RuneCountInString(axisSeparator)
	total := 80
	expected := total - axisWidth
	if expected < minPlotWidth {
		expected = minPlotWidth
	}
	if got := PlotWidthFor(total); got != expected {
		t.Fatalf("expected width %d, got %d", expected, got)
	}
	if got := PlotWidthFor(0); got != minPlotWidth {
		t.Fatalf("expected min width %d, got %d", minPlotWidth, got)
	}
}

func TestResampleSeriesKeepsGaps(t *testing.T) {
	in := []float64{1, math.NaN(), math.NaN(), math.NaN(), 5, 5, 5, 5}
	out := resampleSeries(in, 4)
	if len(out) != 4 {
		t.Fatalf("expected 4 samples, got %d", len(out))
	}
	if !math.IsNaN(out[1]) {
		t.Fatalf("expected all-NaN bucket to stay a gap, got %v", out)
	}
	if out[3] != 5 {
		t.Fatalf("expected trailing bucket mean 5, got %v", out[3])
	}
}
