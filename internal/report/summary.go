package report

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ludanortmun/bargal/internal/pipeline"
)

// RunConfig records how a run was configured
type RunConfig struct {
	Dataset   string `yaml:"dataset"`
	Processor string `yaml:"processor"`
	Model     string `yaml:"model"`
	Format    string `yaml:"format"`
	PerBand   bool   `yaml:"perband"`
	ImageDir  string `yaml:"imagedir,omitempty"`
	Skip      int    `yaml:"skip"`
	Top       int    `yaml:"top,omitempty"`
}

// Counts are the run totals
type Counts struct {
	Total    int `yaml:"total"`
	Done     int `yaml:"done"`
	Failed   int `yaml:"failed"`
	Barred   int `yaml:"barred"`
	Unbarred int `yaml:"unbarred"`
}

// Summary is the run record written next to a report
type Summary struct {
	RunID  string    `yaml:"runid"`
	Report string    `yaml:"report"`
	Config RunConfig `yaml:"config"`
	Counts Counts    `yaml:"counts"`
	// Agreement is set when the catalog carries reference labels
	Agreement *Agreement `yaml:"agreement,omitempty"`
	Started   string     `yaml:"started"`
	Finished  string     `yaml:"finished"`
	Duration  string     `yaml:"duration"`
}

// NewSummary collects the totals of run
func NewSummary(run *pipeline.Run, reportPath string, cfg RunConfig) Summary {
	s := run.Summary()
	return Summary{
		RunID:  run.ID,
		Report: reportPath,
		Config: cfg,
		Counts: Counts{
			Total:    s.Total,
			Done:     s.Done,
			Failed:   s.Failed,
			Barred:   s.Barred,
			Unbarred: s.Unbarred,
		},
		Started:  run.Started.Format(time.RFC3339),
		Finished: run.Finished.Format(time.RFC3339),
		Duration: s.Duration.Round(time.Millisecond).String(),
	}
}

// SummaryPath returns the summary file that belongs to a report
func SummaryPath(reportPath string) string {
	return strings.TrimSuffix(reportPath, filepath.Ext(reportPath)) + ".summary.yaml"
}

// WriteSummary saves s as YAML, atomically like WriteCSV
func WriteSummary(path string, s Summary) error {
	data, err := yaml.Marshal(&s)
	if err != nil {
		return fmt.Errorf("failed to marshal summary: %w", err)
	}
	return writeAtomic(path, func(w io.Writer) error {
		if _, err := w.Write(data); err != nil {
			return fmt.Errorf("failed to write summary file: %w", err)
		}
		return nil
	})
}

// PrintSummary writes the human-readable totals block
func PrintSummary(w io.Writer, s Summary) {
	fmt.Fprintln(w, "\n========================================")
	fmt.Fprintln(w, "Classification Summary")
	fmt.Fprintln(w, "========================================")
	fmt.Fprintf(w, "Run ID:             %s\n", s.RunID)
	fmt.Fprintf(w, "Dataset:            %s\n", s.Config.Dataset)
	fmt.Fprintf(w, "Processor:          %s\n", s.Config.Processor)
	if s.Config.Model != "" {
		fmt.Fprintf(w, "Model:              %s\n", s.Config.Model)
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Total Records:      %d\n", s.Counts.Total)
	fmt.Fprintf(w, "Completed:          %d\n", s.Counts.Done)
	fmt.Fprintf(w, "Failed:             %d\n", s.Counts.Failed)
	if s.Config.Model != "" {
		fmt.Fprintf(w, "Barred:             %d\n", s.Counts.Barred)
		fmt.Fprintf(w, "Unbarred:           %d\n", s.Counts.Unbarred)
	}
	if a := s.Agreement; a != nil {
		fmt.Fprintln(w)
		fmt.Fprintf(w, "Reference Column:   %s (%d scored)\n", a.Column, a.Scored)
		fmt.Fprintf(w, "Accuracy:           %.2f%%\n", a.Accuracy*100)
		fmt.Fprintf(w, "Precision:          %.2f%%\n", a.Precision*100)
		fmt.Fprintf(w, "Recall:             %.2f%%\n", a.Recall*100)
		fmt.Fprintf(w, "F1:                 %.2f%%\n", a.F1*100)
		fmt.Fprintln(w)
	}
	fmt.Fprintf(w, "Duration:           %s\n", s.Duration)
	if s.Report != "" {
		fmt.Fprintf(w, "Report:             %s\n", s.Report)
	}
	fmt.Fprintln(w, "========================================")
}
