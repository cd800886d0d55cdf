// Package export writes accumulated results as delimited tables.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/ysegawa/forceplate/internal/model"
)

// Header is the exported column layout.
var Header = []string{"subject", "mode", "source_file", "peak_force_n", "impulse_ns", "start_time_s", "end_time_s"}

// ExportError reports a destination write failure with the cause attached.
type ExportError struct {
	Path string
	Err  error
}

func (e *ExportError) Error() string {
	return fmt.Sprintf("failed to export results to %s: %v", e.Path, e.Err)
}

func (e *ExportError) Unwrap() error {
	return e.Err
}

// Write streams the records as CSV with a header row.
func Write(w io.Writer, records []model.ResultRecord) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return err
	}
	for _, rec := range records {
		row := []string{
			rec.Subject,
			string(rec.Mode),
			rec.SourceFile,
			strconv.FormatFloat(rec.PeakForce, 'f', 2, 64),
			strconv.FormatFloat(rec.Impulse, 'f', 2, 64),
			strconv.FormatFloat(rec.StartTime, 'g', -1, 64),
			strconv.FormatFloat(rec.EndTime, 'g', -1, 64),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteFile writes the records to path atomically via a temp file.
func WriteFile(path string, records []model.ResultRecord) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return &ExportError{Path: path, Err: err}
	}
	tmpFile, err := os.CreateTemp(filepath.Dir(path), "results-*.csv")
	if err != nil {
		return &ExportError{Path: path, Err: err}
	}
	tmpPath := tmpFile.Name()
	defer func() {
		_ = tmpFile.Close()
		_ = os.Remove(tmpPath)
	}()

	if err := Write(tmpFile, records); err != nil {
		return &ExportError{Path: path, Err: err}
	}
	if err := tmpFile.Close(); err != nil {
		return &ExportError{Path: path, Err: err}
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return &ExportError{Path: path, Err: err}
	}
	return nil
}
