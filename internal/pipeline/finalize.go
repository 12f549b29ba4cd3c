package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mrz1836/codexbuild/internal/metrics"
)

// Finalizer runs once after every run, successful or not. Finalizer errors
// are logged and never change the run outcome.
type Finalizer interface {
	Name() string
	Finalize(ctx context.Context, result *Result) error
}

// ReportWriter writes the run result as indented JSON.
type ReportWriter struct {
	Path string
}

// Name implements Finalizer.
func (w *ReportWriter) Name() string {
	return "report"
}

// Finalize writes the report next to its final path and renames it into
// place, so readers never see a partial file.
func (w *ReportWriter) Finalize(_ context.Context, result *Result) error {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal run report: %w", err)
	}
	data = append(data, '\n')

	dir := filepath.Dir(w.Path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("failed to create report directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".codexbuild-report-*.json")
	if err != nil {
		return fmt.Errorf("failed to create report file: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to write run report: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write run report: %w", err)
	}
	if err := os.Rename(tmp.Name(), w.Path); err != nil {
		return fmt.Errorf("failed to write run report: %w", err)
	}
	return nil
}

// MetricsTextfile exports the run metrics in Prometheus text format.
type MetricsTextfile struct {
	Recorder *metrics.PrometheusRecorder
	Path     string
}

// Name implements Finalizer.
func (m *MetricsTextfile) Name() string {
	return "metrics"
}

// Finalize implements Finalizer.
func (m *MetricsTextfile) Finalize(context.Context, *Result) error {
	return m.Recorder.WriteTextfile(m.Path)
}
