package synth

import (
	"bytes"
	"math"
	"path/filepath"
	"testing"

	"github.com/ysegawa/forceplate/internal/detect"
	"github.com/ysegawa/forceplate/internal/model"
	"github.com/ysegawa/forceplate/internal/trace"
)

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.SamplingRate = 100.0
	return cfg
}

func TestJumpIsDetectable(t *testing.T) {
	trial := Jump(testConfig())
	table, err := trial.Table()
	if err != nil {
		t.Fatalf("build table: %v", err)
	}

	dcfg := model.DefaultDetection()
	dcfg.SamplingRate = 100.0
	win, err := detect.Detect(table, model.ModeLMJ, dcfg, nil)
	if err != nil {
		t.Fatalf("detect: %v", err)
	}
	times, ok := table.Times()
	if !ok {
		t.Fatalf("missing time column")
	}
	center := 3.0 * 0.6
	if times[win.Start] > center || times[win.End] < center {
		t.Fatalf("window [%v, %v] does not bracket the excursion at %v",
			times[win.Start], times[win.End], center)
	}
	if times[win.Start] < 1.0 {
		t.Fatalf("window starts in the quiet baseline at %v", times[win.Start])
	}
}

func TestThrowIsDetectable(t *testing.T) {
	trial := Throw(testConfig())
	table, err := trial.Table()
	if err != nil {
		t.Fatalf("build table: %v", err)
	}

	dcfg := model.DefaultDetection()
	dcfg.SamplingRate = 100.0
	win, err := detect.Detect(table, model.ModeThrowing, dcfg, detect.ChooseFirst)
	if err != nil {
		t.Fatalf("detect: %v", err)
	}
	times, ok := table.Times()
	if !ok {
		t.Fatalf("missing time column")
	}
	firstCenter := 3.0 * 0.45
	contact := 3.0 * 0.8
	if math.Abs(times[win.Start]-firstCenter) > 0.3 {
		t.Fatalf("window start %v is far from the first excursion at %v", times[win.Start], firstCenter)
	}
	if math.Abs(times[win.End]-contact) > 0.05 {
		t.Fatalf("window end %v is far from foot contact at %v", times[win.End], contact)
	}
}

func TestWriteCSVRoundTrip(t *testing.T) {
	trial := Jump(testConfig())
	var buf bytes.Buffer
	if err := trial.WriteCSV(&buf); err != nil {
		t.Fatalf("write csv: %v", err)
	}

	table, err := trace.Parse(bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if table.Len() != len(trial.Times) {
		t.Fatalf("expected %d rows, got %d", len(trial.Times), table.Len())
	}
	for _, name := range []string{trace.TimeColumn, "Force.Fy.1", "Force.Fz.2"} {
		if !table.HasColumn(name) {
			t.Fatalf("expected column %q after round trip", name)
		}
	}
	axis, _ := table.Column("Force.Fy.1")
	for i := range trial.Axis {
		if math.Abs(axis[i]-trial.Axis[i]) > 1e-5 {
			t.Fatalf("axis value %d changed: %v vs %v", i, axis[i], trial.Axis[i])
		}
	}
	times, ok := table.Times()
	if !ok {
		t.Fatalf("missing time column")
	}
	for i := range trial.Times {
		if math.Abs(times[i]-trial.Times[i]) > 1e-3 {
			t.Fatalf("time %d changed: %v vs %v", i, times[i], trial.Times[i])
		}
	}
}

func TestWriteFile(t *testing.T) {
	trial := Throw(testConfig())
	path := filepath.Join(t.TempDir(), "trials", "throw.csv")
	if err := trial.WriteFile(path); err != nil {
		t.Fatalf("write file: %v", err)
	}
	table, err := trace.LoadFile(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if table.Len() != len(trial.Times) {
		t.Fatalf("expected %d rows, got %d", len(trial.Times), table.Len())
	}
}

func TestTrialIsDeterministic(t *testing.T) {
	a := Jump(testConfig())
	b := Jump(testConfig())
	for i := range a.Axis {
		if a.Axis[i] != b.Axis[i] {
			t.Fatalf("axis value %d differs between runs", i)
		}
	}
}
