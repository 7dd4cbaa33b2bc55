package agreement

import (
	"context"
	"time"

	"assessment-backend/internal/domain"
)

// SimulatedNote marks result payloads produced without a real computation
// backend, so callers can tell degraded output from the real thing.
const SimulatedNote = "This is simulated data. Install the assessment backend and provide valid files for real results."

type simulationStep struct {
	fraction float64
	message  string
}

var simulationSteps = []simulationStep{
	{0.1, "Loading annotation files (simulation)..."},
	{0.3, "Calculating agreement metrics (simulation)..."},
	{0.5, "Computing Cohen's Kappa (simulation)..."},
	{0.7, "Computing Krippendorff's Alpha (simulation)..."},
	{0.9, "Finalizing results (simulation)..."},
}

// SimulatedRunner stands in when no computation backend is available. It
// walks a fixed progress sequence and returns canned metrics, always
// labelled via the Note field.
type SimulatedRunner struct {
	// StepDelay is the pause between progress steps. Zero means no pause.
	StepDelay time.Duration
}

func (s *SimulatedRunner) Name() string { return "simulated" }

func (s *SimulatedRunner) Run(ctx context.Context, job Job, report ProgressFunc) (*domain.Result, error) {
	for _, step := range simulationSteps {
		if s.StepDelay > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(s.StepDelay):
			}
		} else if err := ctx.Err(); err != nil {
			return nil, err
		}
		report(step.fraction, step.message)
	}

	return &domain.Result{
		Summary: "Assessment completed successfully (simulation mode)",
		Metrics: map[string]float64{
			"cohens_kappa":         0.75,
			"krippendorffs_alpha":  0.72,
			"agreement_percentage": 85.5,
		},
		Files:     job.Files,
		Timestamp: time.Now(),
		Note:      SimulatedNote,
	}, nil
}
