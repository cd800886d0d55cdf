// Package detect locates analysis windows in force-plate sample tables.
package detect

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/ysegawa/forceplate/internal/model"
	"github.com/ysegawa/forceplate/internal/trace"
)

// ErrNoWindow reports that no sample crossed the relevant threshold.
// It is a normal, expected outcome, not a fault.
var ErrNoWindow = errors.New("no analysis window found")

// ErrCancelled reports that the operator aborted disambiguation.
var ErrCancelled = errors.New("detection cancelled")

// Chooser resolves multiple start-point candidates to a single time value.
// Implementations return ErrCancelled to abort the detection.
type Chooser interface {
	Choose(times []float64) (float64, error)
}

// ChooserFunc adapts a function to the Chooser interface.
type ChooserFunc func(times []float64) (float64, error)

// Choose implements Chooser.
func (f ChooserFunc) Choose(times []float64) (float64, error) {
	return f(times)
}

// ChooseFirst always selects the earliest candidate.
var ChooseFirst = ChooserFunc(func(times []float64) (float64, error) {
	if len(times) == 0 {
		return 0, fmt.Errorf("no candidates to choose from")
	}
	return times[0], nil
})

// Detect dispatches to the detector for the given mode.
func Detect(t *trace.Table, mode model.Mode, cfg model.DetectionConfig, chooser Chooser) (model.Window, error) {
	switch mode {
	case model.ModeLMJ:
		return LMJ(t, cfg)
	case model.ModeThrowing:
		return Throwing(t, cfg, chooser)
	}
	return model.Window{}, fmt.Errorf("unknown analysis mode %q", mode)
}

// LMJ finds the envelope of all rows whose rectified axis force exceeds the
// force threshold. The window spans from the first to the last crossing even
// if it contains sub-threshold dips; this is a deliberate policy, not a
// peak finder.
func LMJ(t *trace.Table, cfg model.DetectionConfig) (model.Window, error) {
	if err := requireColumns(t, cfg.AxisChannel, trace.TimeColumn); err != nil {
		return model.Window{}, err
	}
	force, _ := t.Column(cfg.AxisChannel)

	start, end := -1, -1
	for i, v := range force {
		if math.Abs(v) > cfg.ForceThreshold {
			if start == -1 {
				start = i
			}
			end = i
		}
	}
	if start == -1 {
		return model.Window{}, ErrNoWindow
	}
	return model.Window{Start: start, End: end}, nil
}

// Throwing finds the window from a chosen axis-foot crossing to the first
// lead-foot sample exceeding the statistical foot-contact threshold.
func Throwing(t *trace.Table, cfg model.DetectionConfig, chooser Chooser) (model.Window, error) {
	if err := requireColumns(t, cfg.AxisChannel, cfg.LeadChannel, trace.TimeColumn); err != nil {
		return model.Window{}, err
	}
	axis, _ := t.Column(cfg.AxisChannel)
	lead, _ := t.Column(cfg.LeadChannel)
	times, _ := t.Times()

	var candidates []int
	for i, v := range axis {
		if math.Abs(v) > cfg.ForceThreshold {
			candidates = append(candidates, i)
		}
	}
	if len(candidates) == 0 {
		return model.Window{}, ErrNoWindow
	}

	start := candidates[0]
	if len(candidates) > 1 {
		if chooser == nil {
			return model.Window{}, fmt.Errorf("multiple start candidates but no chooser provided")
		}
		candidateTimes := make([]float64, len(candidates))
		for i, idx := range candidates {
			candidateTimes[i] = times[idx]
		}
		chosen, err := chooser.Choose(candidateTimes)
		if err != nil {
			return model.Window{}, err
		}
		idx, ok := t.IndexForTime(chosen)
		if !ok {
			return model.Window{}, fmt.Errorf("chosen time %v does not match any sample", chosen)
		}
		start = idx
	}

	threshold := contactThreshold(lead, cfg)

	// Search from the start index inclusive; the start sample itself may
	// satisfy the contact condition.
	for i := start; i < len(lead); i++ {
		if lead[i] > threshold {
			return model.Window{Start: start, End: i}, nil
		}
	}
	return model.Window{}, ErrNoWindow
}

// contactThreshold computes baselineMean + factor * baselineStd over the
// quiet period at the head of the lead-foot channel, using raw values and the
// sample (N-1) standard deviation. A short table clamps the baseline to
// whatever rows exist.
func contactThreshold(lead []float64, cfg model.DetectionConfig) float64 {
	n := int(cfg.BaselinePeriod * cfg.SamplingRate)
	if n > len(lead) {
		n = len(lead)
	}
	baseline := lead[:n]
	mean := stat.Mean(baseline, nil)
	sd := stat.StdDev(baseline, nil)
	return mean + cfg.ContactSdFactor*sd
}

func requireColumns(t *trace.Table, names ...string) error {
	for _, name := range names {
		if !t.HasColumn(name) {
			return &trace.FormatError{Reason: fmt.Sprintf("required column %q not found", name)}
		}
	}
	return nil
}
