// Package agreement is the boundary to the inter-annotator agreement
// computation. The statistics live outside this process; a Runner only has
// to report fractional progress and finish with a result or an error.
package agreement

import (
	"context"
	"fmt"

	"assessment-backend/internal/domain"
)

// Job carries the validated parameters of one assessment request.
type Job struct {
	Files          []string `json:"files"`
	Features       []string `json:"features,omitempty"`
	Weighted       bool     `json:"weighted"`
	DefFile        string   `json:"def_file,omitempty"`
	MergeEpistemic bool     `json:"merge_epistemic,omitempty"`
	SplitByUse     bool     `json:"split_by_use,omitempty"`
	OnlyEpistemic  bool     `json:"only_epistemic,omitempty"`
}

// ProgressFunc receives intermediate progress from a runner. fraction is in
// [0,1]; callers may report out of order, the task registry clamps it.
type ProgressFunc func(fraction float64, message string)

type Runner interface {
	// Run performs the assessment. It either returns a result payload or an
	// error; a *ComputationError marks a failure of the computation itself
	// rather than of the surrounding machinery.
	Run(ctx context.Context, job Job, report ProgressFunc) (*domain.Result, error)

	// Name identifies the backing implementation in logs.
	Name() string
}

// ComputationError is a failure reported by the agreement computation.
type ComputationError struct {
	Message string
}

func (e *ComputationError) Error() string {
	return e.Message
}

func computationErrorf(format string, args ...any) *ComputationError {
	return &ComputationError{Message: fmt.Sprintf(format, args...)}
}
