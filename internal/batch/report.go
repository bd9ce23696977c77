package batch

import (
	"errors"
	"fmt"
	"io"

	"github.com/example/recipient-mailer/internal/common"
)

// Failure records why one recipient was skipped or not delivered. Index is
// zero based; messages print it one based.
type Failure struct {
	Index   int
	Total   int
	Address string
	Kind    error
	Err     error
	Code    int
	Status  string
}

func (f Failure) Error() string {
	return fmt.Sprintf("recipient %d/%d: %v", f.Index+1, f.Total, f.Err)
}

// Unwrap exposes the cause, which also matches Kind under errors.Is.
func (f Failure) Unwrap() error {
	return f.Err
}

// KindName returns the short label of the failure kind.
func (f Failure) KindName() string {
	return common.KindName(f.Kind)
}

// Report summarises one run.
type Report struct {
	RunID     string
	Total     int
	Attempted int
	Sent      int
	Failures  []Failure
}

// Err returns a *BatchError carrying every failure, or nil if all
// recipients were delivered.
func (r *Report) Err() error {
	if r == nil || len(r.Failures) == 0 {
		return nil
	}
	return &BatchError{Failures: append([]Failure(nil), r.Failures...)}
}

// FailuresOf returns the failures whose kind matches kind.
func (r *Report) FailuresOf(kind error) []Failure {
	if r == nil {
		return nil
	}
	var out []Failure
	for _, f := range r.Failures {
		if errors.Is(f.Kind, kind) {
			out = append(out, f)
		}
	}
	return out
}

// WriteSummary prints the accumulated failures, one per line.
func (r *Report) WriteSummary(w io.Writer) {
	if r == nil || len(r.Failures) == 0 {
		return
	}
	fmt.Fprintf(w, "Encountered %d error(s):\n", len(r.Failures))
	for _, f := range r.Failures {
		fmt.Fprintf(w, "  - %s\n", f.Error())
	}
}

// BatchError is the aggregate error of a run with at least one failed
// recipient.
type BatchError struct {
	Failures []Failure
}

func (e *BatchError) Error() string {
	return fmt.Sprintf("batch: %d recipient(s) failed", len(e.Failures))
}

// Unwrap lets errors.Is and errors.As reach every recipient failure.
func (e *BatchError) Unwrap() []error {
	errs := make([]error, 0, len(e.Failures))
	for _, f := range e.Failures {
		errs = append(errs, f)
	}
	return errs
}
