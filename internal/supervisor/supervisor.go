package supervisor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"social-evaluation/internal/common/errors"
	"social-evaluation/internal/common/logger"
	"social-evaluation/internal/common/observability"
	"social-evaluation/internal/evaluator"
	"social-evaluation/internal/models"

	"github.com/google/uuid"
)

// Supervisor turns one application into one decision.
type Supervisor interface {
	Track() models.Track
	Run(ctx context.Context, app models.Application) (models.Decision, error)
}

type Config struct {
	MaxRounds     int
	Observability *observability.Observability
}

// EvaluationError names the evaluator that failed a run. The taxonomy kind
// of the wrapped error is kept.
type EvaluationError struct {
	Kind models.EvaluatorKind
	Err  error
}

func (e *EvaluationError) Error() string {
	return fmt.Sprintf("evaluator %s: %v", e.Kind, e.Err)
}

func (e *EvaluationError) Unwrap() error {
	return e.Err
}

type dispatch struct {
	runner evaluator.Runner
	input  evaluator.Input
}

// runAll charges one round per evaluator, then runs them concurrently. The
// first failure cancels the others and their results are dropped.
func runAll(ctx context.Context, budget *RoundBudget, jobs []dispatch) ([]models.Verdict, error) {
	for range jobs {
		if err := budget.Charge(); err != nil {
			return nil, err
		}
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		wg       sync.WaitGroup
		once     sync.Once
		firstErr error
	)
	verdicts := make([]models.Verdict, len(jobs))

	for i, job := range jobs {
		wg.Add(1)
		go func(i int, job dispatch) {
			defer wg.Done()
			v, err := job.runner.Evaluate(ctx, job.input)
			if err != nil {
				once.Do(func() {
					firstErr = &EvaluationError{Kind: job.runner.Kind(), Err: err}
					cancel()
				})
				return
			}
			verdicts[i] = v
		}(i, job)
	}
	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}
	return verdicts, nil
}

func inputFor(app models.Application, r evaluator.Runner, budget *RoundBudget) evaluator.Input {
	in := evaluator.Input{
		ApplicantID: app.ApplicantID,
		Profile:     app.Profile,
		Rounds:      budget,
	}
	if role := r.DocumentRole(); role != "" {
		in.DocumentHandle, _ = app.Document(role)
	}
	return in
}

func newDecision(app models.Application, outcome models.Outcome, verdicts []models.Verdict) models.Decision {
	return models.Decision{
		EvaluationID: uuid.New().String(),
		ApplicantID:  app.ApplicantID,
		Track:        app.Track,
		Outcome:      outcome,
		Inputs:       verdicts,
		DecidedAt:    time.Now().UTC().Format(time.RFC3339),
	}
}

func expectKind(r evaluator.Runner, kind models.EvaluatorKind) error {
	if r == nil {
		return fmt.Errorf("no %s evaluator configured", kind)
	}
	if r.Kind() != kind {
		return fmt.Errorf("expected %s evaluator, got %s", kind, r.Kind())
	}
	return nil
}

func logFailure(log logger.Logger, app models.Application, err error) {
	log.Warn("run failed", map[string]interface{}{
		"applicantId": app.ApplicantID,
		"errorCode":   errors.Kind(err),
		"error":       err.Error(),
	})
}
