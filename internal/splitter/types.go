package splitter

import (
	"time"

	"github.com/lehigh-university-libraries/pagesplit/internal/imaging"
)

// Kind distinguishes a crop from the single-page copy fallback.
type Kind string

const (
	KindCrop Kind = "crop"
	KindCopy Kind = "copy"
)

// Status is the outcome of one operation.
type Status string

const (
	StatusDone     Status = "done"
	StatusSkipped  Status = "skipped"
	StatusTimeout  Status = "timeout"
	StatusFailed   Status = "failed"
	StatusCanceled Status = "canceled"
)

// Operation writes one page image
type Operation struct {
	Record string
	Kind   Kind
	Side   imaging.Side // empty for copies
	Label  string
	Source string
	Target string
}

// Result is an operation together with its outcome
type Result struct {
	Operation
	Status   Status
	Err      error
	Duration time.Duration
}

// Summary collects the outcome of a Split call
type Summary struct {
	Results       []Result
	SourceMissing int
	NoLabels      int
}

// Count returns how many operations ended with status
func (s Summary) Count(status Status) int {
	n := 0
	for _, r := range s.Results {
		if r.Status == status {
			n++
		}
	}
	return n
}

// HasFailures reports whether any operation failed or timed out
func (s Summary) HasFailures() bool {
	return s.Count(StatusFailed) > 0 || s.Count(StatusTimeout) > 0
}

// Failures returns the operations that failed or timed out
func (s Summary) Failures() []Result {
	var out []Result
	for _, r := range s.Results {
		if r.Status == StatusFailed || r.Status == StatusTimeout {
			out = append(out, r)
		}
	}
	return out
}
