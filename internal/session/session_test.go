package session

import (
	"errors"
	"testing"

	"github.com/ysegawa/forceplate/internal/detect"
	"github.com/ysegawa/forceplate/internal/model"
	"github.com/ysegawa/forceplate/internal/trace"
)

func jumpTable(t *testing.T) *trace.Table {
	t.Helper()
	times := []float64{0, 0.1, 0.2, 0.3, 0.4}
	axis := []float64{0, 15, 20, 12, 0}
	table, err := trace.NewTable(
		[]string{trace.TimeColumn, "Force.Fy.1"},
		map[string][]float64{trace.TimeColumn: times, "Force.Fy.1": axis},
	)
	if err != nil {
		t.Fatalf("build table: %v", err)
	}
	return table
}

func readySession(t *testing.T) *Session {
	t.Helper()
	cfg := model.DefaultDetection()
	cfg.SamplingRate = 10.0
	sess := New(cfg)
	sess.SetSubject("subject-a")
	sess.SetTable(jumpTable(t), "trial01.csv")
	return sess
}

func TestDetectRequiresSubject(t *testing.T) {
	sess := New(model.DefaultDetection())
	sess.SetTable(jumpTable(t), "trial01.csv")
	_, _, err := sess.Detect(nil)
	var vErr *ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if vErr.Field != "subject name" {
		t.Fatalf("unexpected field: %q", vErr.Field)
	}
}

func TestDetectRequiresTable(t *testing.T) {
	sess := New(model.DefaultDetection())
	sess.SetSubject("subject-a")
	_, _, err := sess.Detect(nil)
	var vErr *ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if vErr.Field != "trial file" {
		t.Fatalf("unexpected field: %q", vErr.Field)
	}
	if sess.State() != StateIdle {
		t.Fatalf("session must keep its prior state, got %v", sess.State())
	}
}

func TestDetectConfirmFlow(t *testing.T) {
	sess := readySession(t)
	win, met, err := sess.Detect(nil)
	if err != nil {
		t.Fatalf("detect: %v", err)
	}
	if win.Start != 1 || win.End != 3 {
		t.Fatalf("expected window [1, 3], got [%d, %d]", win.Start, win.End)
	}
	if sess.State() != StateResultPending {
		t.Fatalf("expected pending state, got %v", sess.State())
	}

	pending, ok := sess.Pending()
	if !ok {
		t.Fatalf("expected a pending result")
	}
	if pending.Subject != "subject-a" || pending.SourceFile != "trial01.csv" {
		t.Fatalf("unexpected pending record: %+v", pending)
	}
	if pending.PeakForce != met.PeakForce || pending.Impulse != met.Impulse {
		t.Fatalf("pending metrics mismatch: %+v vs %+v", pending, met)
	}
	if pending.StartTime != 0.1 || pending.EndTime != 0.3 {
		t.Fatalf("unexpected window times: %+v", pending)
	}

	rec, err := sess.Confirm()
	if err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if rec != pending {
		t.Fatalf("confirmed record differs from pending")
	}
	if got := len(sess.Records()); got != 1 {
		t.Fatalf("expected 1 record, got %d", got)
	}
	if sess.State() != StateDataLoaded {
		t.Fatalf("expected data-loaded state after confirm, got %v", sess.State())
	}
}

func TestDoubleConfirmIsRejected(t *testing.T) {
	sess := readySession(t)
	if _, _, err := sess.Detect(nil); err != nil {
		t.Fatalf("detect: %v", err)
	}
	if _, err := sess.Confirm(); err != nil {
		t.Fatalf("first confirm: %v", err)
	}
	if _, err := sess.Confirm(); !errors.Is(err, ErrNoPending) {
		t.Fatalf("expected ErrNoPending, got %v", err)
	}
	if got := len(sess.Records()); got != 1 {
		t.Fatalf("second confirm must not duplicate, got %d records", got)
	}
}

func TestRerunDiscardsPending(t *testing.T) {
	sess := readySession(t)
	if _, _, err := sess.Detect(nil); err != nil {
		t.Fatalf("detect: %v", err)
	}
	if _, _, err := sess.Detect(nil); err != nil {
		t.Fatalf("re-run detect: %v", err)
	}
	if _, err := sess.Confirm(); err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if got := len(sess.Records()); got != 1 {
		t.Fatalf("expected 1 record after re-run, got %d", got)
	}
}

func TestLoadDiscardsPending(t *testing.T) {
	sess := readySession(t)
	if _, _, err := sess.Detect(nil); err != nil {
		t.Fatalf("detect: %v", err)
	}
	sess.SetTable(jumpTable(t), "trial02.csv")
	if _, ok := sess.Pending(); ok {
		t.Fatalf("loading a new table must discard the pending result")
	}
	if _, err := sess.Confirm(); !errors.Is(err, ErrNoPending) {
		t.Fatalf("expected ErrNoPending, got %v", err)
	}
}

func TestDiscard(t *testing.T) {
	sess := readySession(t)
	if _, _, err := sess.Detect(nil); err != nil {
		t.Fatalf("detect: %v", err)
	}
	sess.Discard()
	if sess.State() != StateDataLoaded {
		t.Fatalf("expected data-loaded state after discard, got %v", sess.State())
	}
	if got := len(sess.Records()); got != 0 {
		t.Fatalf("discard must not accumulate, got %d records", got)
	}
}

// throwTableNoContact has a multi-sample axis excursion and no lead-foot
// contact, so a Throwing detection always ends with no window found.
func throwTableNoContact(t *testing.T) *trace.Table {
	t.Helper()
	n := 20
	times := make([]float64, n)
	axis := make([]float64, n)
	lead := make([]float64, n)
	for i := 0; i < n; i++ {
		times[i] = float64(i) * 0.1
		if i < 10 {
			if i%2 == 0 {
				lead[i] = 1
			} else {
				lead[i] = -1
			}
		}
	}
	axis[2] = 15
	axis[3] = 20
	axis[4] = 12
	table, err := trace.NewTable(
		[]string{trace.TimeColumn, "Force.Fy.1", "Force.Fz.2"},
		map[string][]float64{
			trace.TimeColumn: times,
			"Force.Fy.1":     axis,
			"Force.Fz.2":     lead,
		},
	)
	if err != nil {
		t.Fatalf("build table: %v", err)
	}
	return table
}

func TestCancelledDetectionKeepsPending(t *testing.T) {
	sess := readySession(t)
	sess.SetTable(throwTableNoContact(t), "throw01.csv")
	if _, _, err := sess.Detect(nil); err != nil {
		t.Fatalf("detect: %v", err)
	}
	want, ok := sess.Pending()
	if !ok {
		t.Fatalf("expected a pending result")
	}

	sess.SetMode(model.ModeThrowing)
	cancel := detect.ChooserFunc(func([]float64) (float64, error) {
		return 0, detect.ErrCancelled
	})
	if _, _, err := sess.Detect(cancel); !errors.Is(err, detect.ErrCancelled) {
		t.Fatalf("expected ErrCancelled, got %v", err)
	}

	got, ok := sess.Pending()
	if !ok {
		t.Fatalf("cancelling must leave the pending result in place")
	}
	if got != want {
		t.Fatalf("pending result changed: %+v vs %+v", got, want)
	}
	if sess.State() != StateResultPending {
		t.Fatalf("expected pending state after cancel, got %v", sess.State())
	}
	if _, err := sess.Confirm(); err != nil {
		t.Fatalf("confirm after cancel: %v", err)
	}
}

func TestNoWindowDetectionKeepsPending(t *testing.T) {
	sess := readySession(t)
	sess.SetTable(throwTableNoContact(t), "throw01.csv")
	if _, _, err := sess.Detect(nil); err != nil {
		t.Fatalf("detect: %v", err)
	}

	// The same table in Throwing mode has start candidates but no contact.
	sess.SetMode(model.ModeThrowing)
	if _, _, err := sess.Detect(detect.ChooseFirst); !errors.Is(err, detect.ErrNoWindow) {
		t.Fatalf("expected ErrNoWindow, got %v", err)
	}
	if _, ok := sess.Pending(); !ok {
		t.Fatalf("a no-window detection must leave the pending result in place")
	}
	if sess.State() != StateResultPending {
		t.Fatalf("expected pending state, got %v", sess.State())
	}
}

func TestFormatErrorKeepsPending(t *testing.T) {
	sess := readySession(t)
	if _, _, err := sess.Detect(nil); err != nil {
		t.Fatalf("detect: %v", err)
	}

	// Throwing needs the lead-foot channel, which jumpTable lacks.
	sess.SetMode(model.ModeThrowing)
	_, _, err := sess.Detect(detect.ChooseFirst)
	var formatErr *trace.FormatError
	if !errors.As(err, &formatErr) {
		t.Fatalf("expected FormatError, got %v", err)
	}
	if _, ok := sess.Pending(); !ok {
		t.Fatalf("a failed detection must leave the pending result in place")
	}
}

func TestDetectFailureKeepsState(t *testing.T) {
	times := []float64{0, 0.1, 0.2}
	quiet := []float64{0, 1, 0}
	table, err := trace.NewTable(
		[]string{trace.TimeColumn, "Force.Fy.1"},
		map[string][]float64{trace.TimeColumn: times, "Force.Fy.1": quiet},
	)
	if err != nil {
		t.Fatalf("build table: %v", err)
	}
	cfg := model.DefaultDetection()
	sess := New(cfg)
	sess.SetSubject("subject-a")
	sess.SetTable(table, "quiet.csv")

	_, _, err = sess.Detect(nil)
	if !errors.Is(err, detect.ErrNoWindow) {
		t.Fatalf("expected ErrNoWindow, got %v", err)
	}
	if sess.State() != StateDataLoaded {
		t.Fatalf("expected data-loaded state after failed detect, got %v", sess.State())
	}
}
