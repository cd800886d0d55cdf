// Package report renders waveforms and result tables for the terminal.
package report

import (
	"fmt"
	"io"

	"gonum.org/v1/gonum/stat"

	"github.com/ysegawa/forceplate/internal/model"
)

// RenderResults prints the stored results as an aligned table.
func RenderResults(w io.Writer, results []model.StoredResult) error {
	if len(results) == 0 {
		_, err := fmt.Fprintln(w, "No results found.")
		return err
	}
	headers := []string{"ID", "Date", "Subject", "Mode", "File", "Peak (N)", "Impulse (N·s)", "Start (s)", "End (s)"}
	rows := make([][]string, 0, len(results))
	for _, r := range results {
		rows = append(rows, []string{
			fmt.Sprintf("%d", r.ID),
			r.CreatedAt.Format("2006-01-02 15:04"),
			r.Subject,
			string(r.Mode),
			r.SourceFile,
			fmt.Sprintf("%.2f", r.PeakForce),
			fmt.Sprintf("%.2f", r.Impulse),
			fmt.Sprintf("%.4f", r.StartTime),
			fmt.Sprintf("%.4f", r.EndTime),
		})
	}
	rightAlign := map[int]bool{0: true, 5: true, 6: true, 7: true, 8: true}
	for _, line := range formatTable(headers, rows, rightAlign) {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

// RenderSummary prints aggregate stats over the stored results.
func RenderSummary(w io.Writer, results []model.StoredResult) error {
	if len(results) == 0 {
		return nil
	}
	peaks := make([]float64, len(results))
	impulses := make([]float64, len(results))
	best := results[0].PeakForce
	for i, r := range results {
		peaks[i] = r.PeakForce
		impulses[i] = r.Impulse
		if r.PeakForce > best {
			best = r.PeakForce
		}
	}
	if _, err := fmt.Fprintln(w, "Summary"); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "Results: %d\n", len(results)); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "Mean peak force: %.2f N\n", stat.Mean(peaks, nil)); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "Best peak force: %.2f N\n", best); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "Mean impulse: %.2f N·s\n", stat.Mean(impulses, nil)); err != nil {
		return err
	}
	if _, err := fmt.Fprintln(w, ""); err != nil {
		return err
	}
	return nil
}
