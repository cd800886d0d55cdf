// Package session orchestrates analysis runs and accumulates results.
package session

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/ysegawa/forceplate/internal/detect"
	"github.com/ysegawa/forceplate/internal/metrics"
	"github.com/ysegawa/forceplate/internal/model"
	"github.com/ysegawa/forceplate/internal/trace"
)

// State tracks the per-file analysis lifecycle.
type State int

const (
	// StateIdle means no trial file is loaded.
	StateIdle State = iota
	// StateDataLoaded means a table is loaded and ready for detection.
	StateDataLoaded
	// StateWindowDetected means a window was found but metrics are not final.
	StateWindowDetected
	// StateResultPending means a computed result awaits confirmation.
	StateResultPending
)

// ErrNoPending reports a confirm with no pending result.
var ErrNoPending = errors.New("no pending result to confirm")

// ValidationError reports a missing precondition for detection.
type ValidationError struct {
	Field string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s is required before running detection", e.Field)
}

// Session holds the active dataset and mode, runs detection and metrics, and
// accumulates confirmed results. A single pending slot exists between
// computation and confirmation; a successful re-run or loading a new file
// discards an unconfirmed result silently.
type Session struct {
	cfg model.DetectionConfig

	subject    string
	mode       model.Mode
	table      *trace.Table
	sourceFile string

	state   State
	window  model.Window
	pending *model.ResultRecord
	records []model.ResultRecord
}

// New creates an idle session in LMJ mode.
func New(cfg model.DetectionConfig) *Session {
	return &Session{cfg: cfg, mode: model.ModeLMJ, state: StateIdle}
}

// SetSubject sets the subject name used for subsequent results.
func (s *Session) SetSubject(name string) {
	s.subject = name
}

// Subject returns the current subject name.
func (s *Session) Subject() string {
	return s.subject
}

// SetMode selects the analysis protocol.
func (s *Session) SetMode(m model.Mode) {
	s.mode = m
}

// Mode returns the current analysis protocol.
func (s *Session) Mode() model.Mode {
	return s.mode
}

// State returns the lifecycle state.
func (s *Session) State() State {
	return s.state
}

// Table returns the loaded sample table, or nil.
func (s *Session) Table() *trace.Table {
	return s.table
}

// SourceFile returns the base name of the loaded trial file.
func (s *Session) SourceFile() string {
	return s.sourceFile
}

// Config returns the detection parameters.
func (s *Session) Config() model.DetectionConfig {
	return s.cfg
}

// LoadFile loads and normalizes a trial file, replacing the current table.
// An unconfirmed pending result is discarded.
func (s *Session) LoadFile(path string) error {
	t, err := trace.LoadFile(path)
	if err != nil {
		return err
	}
	s.setTable(t, filepath.Base(path))
	return nil
}

// SetTable installs an already-normalized table, replacing the current one.
func (s *Session) SetTable(t *trace.Table, sourceFile string) {
	s.setTable(t, sourceFile)
}

func (s *Session) setTable(t *trace.Table, sourceFile string) {
	s.table = t
	s.sourceFile = sourceFile
	s.pending = nil
	s.state = StateDataLoaded
}

// Detect validates preconditions, runs the detector for the current mode, and
// computes window metrics. A successful detection replaces any unconfirmed
// result in the pending slot; a failed or cancelled one leaves the session in
// its prior state, an unconfirmed result included.
func (s *Session) Detect(chooser detect.Chooser) (model.Window, metrics.Metrics, error) {
	if s.subject == "" {
		return model.Window{}, metrics.Metrics{}, &ValidationError{Field: "subject name"}
	}
	if s.table == nil {
		return model.Window{}, metrics.Metrics{}, &ValidationError{Field: "trial file"}
	}

	win, err := detect.Detect(s.table, s.mode, s.cfg, chooser)
	if err != nil {
		return model.Window{}, metrics.Metrics{}, err
	}

	// Throwing uses the axis-foot channel for metrics even though the
	// lead-foot channel decided the window end.
	m, err := metrics.Compute(s.table, win, s.cfg.AxisChannel)
	if err != nil {
		return model.Window{}, metrics.Metrics{}, err
	}

	s.window = win
	s.state = StateWindowDetected
	s.pending = &model.ResultRecord{
		Subject:    s.subject,
		Mode:       s.mode,
		SourceFile: s.sourceFile,
		PeakForce:  m.PeakForce,
		Impulse:    m.Impulse,
		StartTime:  m.StartTime,
		EndTime:    m.EndTime,
	}
	s.state = StateResultPending
	return win, m, nil
}

// Window returns the most recent detected window.
func (s *Session) Window() (model.Window, bool) {
	if s.state != StateWindowDetected && s.state != StateResultPending {
		return model.Window{}, false
	}
	return s.window, true
}

// Pending returns the unconfirmed result, if any.
func (s *Session) Pending() (model.ResultRecord, bool) {
	if s.pending == nil {
		return model.ResultRecord{}, false
	}
	return *s.pending, true
}

// Confirm appends the pending result to the accumulated collection and clears
// the pending slot. A second confirm without a new detection fails.
func (s *Session) Confirm() (model.ResultRecord, error) {
	if s.pending == nil {
		return model.ResultRecord{}, ErrNoPending
	}
	rec := *s.pending
	s.records = append(s.records, rec)
	s.pending = nil
	s.state = StateDataLoaded
	return rec, nil
}

// Discard drops the pending result without accumulating it.
func (s *Session) Discard() {
	s.pending = nil
	if s.state == StateResultPending {
		s.state = StateDataLoaded
	}
}

// Records returns a copy of the confirmed results in confirmation order.
func (s *Session) Records() []model.ResultRecord {
	return append([]model.ResultRecord(nil), s.records...)
}
