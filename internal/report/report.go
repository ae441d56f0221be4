// Package report writes YAML summaries of split and check runs.
package report

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/lehigh-university-libraries/pagesplit/internal/reconcile"
	"github.com/lehigh-university-libraries/pagesplit/internal/splitter"
)

const timestampLayout = "2006-01-02_15-04-05"

// RunConfig represents the configuration section of a report
type RunConfig struct {
	Command   string `yaml:"command"`
	BookID    string `yaml:"bookid,omitempty"`
	SourceDir string `yaml:"sourcedir"`
	TargetDir string `yaml:"targetdir,omitempty"`
	Metadata  string `yaml:"metadata"`
	Backend   string `yaml:"backend,omitempty"`
	Workers   int    `yaml:"workers,omitempty"`
	Timeout   string `yaml:"timeout,omitempty"`
	Timestamp string `yaml:"timestamp"`
}

// Counts totals the operations of a split run per status
type Counts struct {
	Done          int `yaml:"done"`
	Skipped       int `yaml:"skipped"`
	Failed        int `yaml:"failed"`
	TimedOut      int `yaml:"timedout"`
	Canceled      int `yaml:"canceled"`
	SourceMissing int `yaml:"sourcemissing"`
	NoLabels      int `yaml:"nolabels"`
}

// OperationResult represents a single page operation
type OperationResult struct {
	Record   string `yaml:"record"`
	Kind     string `yaml:"kind"`
	Side     string `yaml:"side,omitempty"`
	Label    string `yaml:"label"`
	Target   string `yaml:"target"`
	Status   string `yaml:"status"`
	Error    string `yaml:"error,omitempty"`
	Duration string `yaml:"duration,omitempty"`
}

// Miss represents a record whose image could not be found or recovered
type Miss struct {
	SourceName string `yaml:"sourcename"`
	Dir        string `yaml:"dir"`
	Error      string `yaml:"error,omitempty"`
}

// Run is the complete report document
type Run struct {
	Config  RunConfig         `yaml:"config"`
	Counts  *Counts           `yaml:"counts,omitempty"`
	Results []OperationResult `yaml:"results,omitempty"`
	Misses  []Miss            `yaml:"misses,omitempty"`
}

// Timestamp formats t the way report files are named
func Timestamp(t time.Time) string {
	return t.Format(timestampLayout)
}

// Filename returns reports/<command>-<timestamp>.yaml under dir
func Filename(dir, command string, t time.Time) string {
	return filepath.Join(dir, "reports", fmt.Sprintf("%s-%s.yaml", command, Timestamp(t)))
}

// AddSplit records the outcome of a split run
func (r *Run) AddSplit(summary splitter.Summary) {
	r.Counts = &Counts{
		Done:          summary.Count(splitter.StatusDone),
		Skipped:       summary.Count(splitter.StatusSkipped),
		Failed:        summary.Count(splitter.StatusFailed),
		TimedOut:      summary.Count(splitter.StatusTimeout),
		Canceled:      summary.Count(splitter.StatusCanceled),
		SourceMissing: summary.SourceMissing,
		NoLabels:      summary.NoLabels,
	}

	r.Results = make([]OperationResult, 0, len(summary.Results))
	for _, res := range summary.Results {
		op := OperationResult{
			Record: res.Record,
			Kind:   string(res.Kind),
			Side:   string(res.Side),
			Label:  res.Label,
			Target: filepath.Base(res.Target),
			Status: string(res.Status),
		}
		if res.Err != nil {
			op.Error = res.Err.Error()
		}
		if res.Duration > 0 {
			op.Duration = res.Duration.Round(time.Millisecond).String()
		}
		r.Results = append(r.Results, op)
	}
}

// AddMisses records the unresolved records of a check run
func (r *Run) AddMisses(errs []reconcile.Error) {
	r.Misses = make([]Miss, 0, len(errs))
	for _, e := range errs {
		miss := Miss{SourceName: e.SourceName, Dir: e.Dir}
		if e.Err != nil {
			miss.Error = e.Err.Error()
		}
		r.Misses = append(r.Misses, miss)
	}
}

// Write saves the report as YAML, creating parent directories as needed
func Write(path string, run Run) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create report directory: %w", err)
	}

	data, err := yaml.Marshal(&run)
	if err != nil {
		return fmt.Errorf("failed to marshal YAML: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write YAML file: %w", err)
	}
	return nil
}
