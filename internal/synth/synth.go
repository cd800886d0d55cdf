// Package synth generates synthetic force-plate trials in instrument format.
package synth

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"

	"github.com/ysegawa/forceplate/internal/trace"
)

// Config shapes a synthetic trial.
type Config struct {
	SamplingRate float64 // Hz
	Duration     float64 // s
	PeakForce    float64 // N
	Noise        float64 // N, deterministic jitter amplitude
}

// DefaultConfig matches the instrument defaults.
func DefaultConfig() Config {
	return Config{
		SamplingRate: 1000.0,
		Duration:     3.0,
		PeakForce:    800.0,
		Noise:        1.0,
	}
}

// Trial holds raw synthetic channels before export.
type Trial struct {
	Times []float64
	Axis  []float64 // axis-foot channel, exported as FY[1]
	Lead  []float64 // lead-foot channel, exported as FZ[2]
}

// Jump produces a single force excursion on the axis channel after a quiet
// second, the shape the LMJ detector expects.
func Jump(cfg Config) *Trial {
	tr := newTrial(cfg)
	center := cfg.Duration * 0.6
	width := cfg.Duration * 0.05
	for i, t := range tr.Times {
		tr.Axis[i] = cfg.PeakForce*gauss(t, center, width) + jitter(cfg.Noise, t)
		tr.Lead[i] = jitter(cfg.Noise, t+cfg.Duration)
	}
	return tr
}

// Throw produces two disjoint axis excursions (so start disambiguation is
// exercised) and a lead-foot contact spike after the quiet baseline second.
func Throw(cfg Config) *Trial {
	tr := newTrial(cfg)
	firstCenter := cfg.Duration * 0.45
	secondCenter := cfg.Duration * 0.6
	width := cfg.Duration * 0.02
	contact := cfg.Duration * 0.8
	for i, t := range tr.Times {
		tr.Axis[i] = cfg.PeakForce*gauss(t, firstCenter, width) +
			cfg.PeakForce*0.8*gauss(t, secondCenter, width) +
			jitter(cfg.Noise, t)
		lead := jitter(cfg.Noise, t+cfg.Duration)
		if t >= contact {
			lead += cfg.PeakForce * 0.5
		}
		tr.Lead[i] = lead
	}
	return tr
}

func newTrial(cfg Config) *Trial {
	n := int(cfg.Duration * cfg.SamplingRate)
	if n < 1 {
		n = 1
	}
	dt := 1.0 / cfg.SamplingRate
	tr := &Trial{
		Times: make([]float64, n),
		Axis:  make([]float64, n),
		Lead:  make([]float64, n),
	}
	for i := range tr.Times {
		tr.Times[i] = float64(i) * dt
	}
	return tr
}

// Table returns the trial as a normalized sample table.
func (tr *Trial) Table() (*trace.Table, error) {
	return trace.NewTable(
		[]string{trace.TimeColumn, "Force.Fy.1", "Force.Fz.2"},
		map[string][]float64{
			trace.TimeColumn: tr.Times,
			"Force.Fy.1":     tr.Axis,
			"Force.Fz.2":     tr.Lead,
		},
	)
}

// WriteCSV writes the trial in raw instrument format: a 4-line preamble, the
// header on line 5, a DataUnit row, and data rows. The output round-trips
// through trace.Parse.
func (tr *Trial) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	preamble := [][]string{
		{"DeviceName", "forceplate-synth"},
		{"SampleCount", strconv.Itoa(len(tr.Times))},
		{"ChannelCount", "2"},
		{"Comment", "synthetic trial"},
	}
	for _, row := range preamble {
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	if err := cw.Write([]string{"DataLabel", "", "FY[1]", "FZ[2]"}); err != nil {
		return err
	}
	if err := cw.Write([]string{"DataUnit", "s", "N", "N"}); err != nil {
		return err
	}
	for i := range tr.Times {
		row := []string{
			strconv.Itoa(i),
			strconv.FormatFloat(tr.Times[i], 'f', 4, 64),
			strconv.FormatFloat(tr.Axis[i], 'f', 6, 64),
			strconv.FormatFloat(tr.Lead[i], 'f', 6, 64),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteFile writes the trial CSV to path.
func (tr *Trial) WriteFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create trial file: %w", err)
	}
	if err := tr.WriteCSV(f); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to write trial file: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close trial file: %w", err)
	}
	return nil
}

func gauss(x, mu, sigma float64) float64 {
	z := (x - mu) / sigma
	return math.Exp(-0.5 * z * z)
}

// jitter is a cheap deterministic noise term, after the ECG simulator trick.
func jitter(amplitude, t float64) float64 {
	return amplitude * (2*fract(math.Sin(12345.678*t)*9876.543) - 1)
}

func fract(x float64) float64 { return x - math.Floor(x) }
