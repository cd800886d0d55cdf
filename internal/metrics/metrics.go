// Package metrics computes summary metrics over a detected window.
package metrics

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/integrate"

	"github.com/ysegawa/forceplate/internal/model"
	"github.com/ysegawa/forceplate/internal/trace"
)

// Metrics summarizes the force within a window. PeakForce and Impulse are
// rounded to 2 decimals for reporting; the Raw fields keep full precision.
type Metrics struct {
	PeakForce  float64 // N
	Impulse    float64 // N·s
	RawPeak    float64
	RawImpulse float64
	StartTime  float64 // s
	EndTime    float64 // s
}

// Compute calculates peak rectified force and the trapezoidal impulse of the
// rectified force over [win.Start, win.End] inclusive. Irregular sample
// spacing is honored using the actual time values.
func Compute(t *trace.Table, win model.Window, channel string) (Metrics, error) {
	force, ok := t.Column(channel)
	if !ok {
		return Metrics{}, fmt.Errorf("channel %q not found", channel)
	}
	times, ok := t.Times()
	if !ok {
		return Metrics{}, fmt.Errorf("column %q not found", trace.TimeColumn)
	}
	if win.Start < 0 || win.End >= t.Len() || win.Start > win.End {
		return Metrics{}, fmt.Errorf("window [%d, %d] is not valid for %d rows", win.Start, win.End, t.Len())
	}

	rectified := make([]float64, win.End-win.Start+1)
	for i := range rectified {
		rectified[i] = math.Abs(force[win.Start+i])
	}

	peak := floats.Max(rectified)
	impulse := 0.0
	if len(rectified) > 1 {
		impulse = integrate.Trapezoidal(times[win.Start:win.End+1], rectified)
	}

	return Metrics{
		PeakForce:  round2(peak),
		Impulse:    round2(impulse),
		RawPeak:    peak,
		RawImpulse: impulse,
		StartTime:  times[win.Start],
		EndTime:    times[win.End],
	}, nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
