package trace

import (
	"errors"
	"strings"
	"testing"
)

const fixture = `DeviceName,plate-01
SampleCount,3
ChannelCount,2
Comment,unit fixture
DataLabel,,FY[1],FZ[2]
DataUnit,s,N,N
0,0.000,1.5,-0.25
1,0.001,2.5,0.5
2,0.002,-3.0,1.0
`

func TestParseFixture(t *testing.T) {
	table, err := Parse(strings.NewReader(fixture))
	if err != nil {
		t.Fatalf("parse fixture: %v", err)
	}
	if table.Len() != 3 {
		t.Fatalf("expected 3 rows, got %d", table.Len())
	}
	if table.HasColumn("DataLabel") {
		t.Fatalf("DataLabel column should be dropped")
	}
	for _, name := range []string{TimeColumn, "Force.Fy.1", "Force.Fz.2"} {
		if !table.HasColumn(name) {
			t.Fatalf("expected column %q, have %v", name, table.Columns())
		}
	}
	times, _ := table.Times()
	if times[2] != 0.002 {
		t.Fatalf("unexpected time value: %v", times[2])
	}
	fy, _ := table.Column("Force.Fy.1")
	if fy[2] != -3.0 {
		t.Fatalf("unexpected force value: %v", fy[2])
	}
}

func TestParseWithoutUnitRow(t *testing.T) {
	raw := strings.Replace(fixture, "DataUnit,s,N,N\n", "", 1)
	table, err := Parse(strings.NewReader(raw))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if table.Len() != 3 {
		t.Fatalf("expected 3 rows, got %d", table.Len())
	}
}

func TestParsePassthroughColumn(t *testing.T) {
	raw := strings.NewReader(`a
b
c
d
DataLabel,,FY[1],AUX
0,0.0,1.0,9.0
`)
	table, err := Parse(raw)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if !table.HasColumn("AUX") {
		t.Fatalf("unmatched column should pass through, have %v", table.Columns())
	}
}

func TestParseMissingHeader(t *testing.T) {
	_, err := Parse(strings.NewReader("only\ntwo\nthree\n"))
	var formatErr *FormatError
	if !errors.As(err, &formatErr) {
		t.Fatalf("expected FormatError, got %v", err)
	}
}

func TestParseNonNumericData(t *testing.T) {
	raw := strings.Replace(fixture, "2,0.002,-3.0,1.0", "2,0.002,oops,1.0", 1)
	_, err := Parse(strings.NewReader(raw))
	var formatErr *FormatError
	if !errors.As(err, &formatErr) {
		t.Fatalf("expected FormatError, got %v", err)
	}
}

func TestIndexForTime(t *testing.T) {
	table, err := Parse(strings.NewReader(fixture))
	if err != nil {
		t.Fatalf("parse fixture: %v", err)
	}
	idx, ok := table.IndexForTime(0.001)
	if !ok || idx != 1 {
		t.Fatalf("expected index 1, got %d (ok=%v)", idx, ok)
	}
	if _, ok := table.IndexForTime(0.5); ok {
		t.Fatalf("expected no match for 0.5")
	}
}

func TestNewTableValidation(t *testing.T) {
	_, err := NewTable([]string{"Time", "F"}, map[string][]float64{
		"Time": {0, 1},
		"F":    {0},
	})
	if err == nil {
		t.Fatalf("expected error for ragged columns")
	}
}
