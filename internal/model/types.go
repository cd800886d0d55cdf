// Package model defines shared data structures.
package model

import "time"

// Mode selects the analysis protocol.
type Mode string

const (
	// ModeLMJ detects a single-threshold movement window.
	ModeLMJ Mode = "LMJ"
	// ModeThrowing detects a two-stage throwing window ending at foot contact.
	ModeThrowing Mode = "Throwing"
)

// ParseMode validates a mode string.
func ParseMode(s string) (Mode, bool) {
	switch Mode(s) {
	case ModeLMJ:
		return ModeLMJ, true
	case ModeThrowing:
		return ModeThrowing, true
	}
	return "", false
}

// DetectionConfig holds the tunable detection parameters.
type DetectionConfig struct {
	SamplingRate    float64
	ForceThreshold  float64
	BaselinePeriod  float64
	ContactSdFactor float64
	AxisChannel     string
	LeadChannel     string
}

// DefaultDetection returns the instrument defaults.
func DefaultDetection() DetectionConfig {
	return DetectionConfig{
		SamplingRate:    1000.0,
		ForceThreshold:  10.0,
		BaselinePeriod:  1.0,
		ContactSdFactor: 5.0,
		AxisChannel:     "Force.Fy.1",
		LeadChannel:     "Force.Fz.2",
	}
}

// Window is a detected analysis window, both indices inclusive.
type Window struct {
	Start int
	End   int
}

// ResultRecord is one confirmed analysis outcome. Immutable once created.
type ResultRecord struct {
	Subject    string
	Mode       Mode
	SourceFile string
	PeakForce  float64 // N, rounded to 2 decimals
	Impulse    float64 // N·s, rounded to 2 decimals
	StartTime  float64 // s
	EndTime    float64 // s
}

// StoredResult is a ResultRecord as persisted, with store metadata.
type StoredResult struct {
	ID        int64
	CreatedAt time.Time
	ResultRecord
}

// ResultFilter selects stored results for listing and export.
type ResultFilter struct {
	Subject string
	Mode    string
	Since   *time.Time
	Last    int
}
