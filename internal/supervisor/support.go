package supervisor

import (
	"context"
	"fmt"

	"social-evaluation/internal/common/logger"
	"social-evaluation/internal/evaluator"
	"social-evaluation/internal/models"

	"go.opentelemetry.io/otel/attribute"
)

// SupportSupervisor runs the hardship and credit evaluators and reconciles
// them with DecideSupport.
type SupportSupervisor struct {
	hardship evaluator.Runner
	credit   evaluator.Runner
	cfg      Config
	logger   logger.Logger
}

func NewSupportSupervisor(hardship, credit evaluator.Runner, cfg Config, log logger.Logger) (*SupportSupervisor, error) {
	if err := expectKind(hardship, models.KindFinancialHardship); err != nil {
		return nil, err
	}
	if err := expectKind(credit, models.KindCreditRisk); err != nil {
		return nil, err
	}
	return &SupportSupervisor{
		hardship: hardship,
		credit:   credit,
		cfg:      cfg,
		logger:   log.WithFields(map[string]interface{}{"component": "supervisor", "track": models.TrackSupport}),
	}, nil
}

func (s *SupportSupervisor) Track() models.Track {
	return models.TrackSupport
}

func (s *SupportSupervisor) Run(ctx context.Context, app models.Application) (models.Decision, error) {
	if app.Track != models.TrackSupport {
		return models.Decision{}, fmt.Errorf("support supervisor cannot run %s application", app.Track)
	}
	ctx, span := s.cfg.Observability.StartSpan(ctx, "supervisor.support", attribute.String("applicant", app.ApplicantID))
	defer span.End()

	budget := NewRoundBudget(s.cfg.MaxRounds)
	verdicts, err := runAll(ctx, budget, []dispatch{
		{runner: s.hardship, input: inputFor(app, s.hardship, budget)},
		{runner: s.credit, input: inputFor(app, s.credit, budget)},
	})
	if err != nil {
		logFailure(s.logger, app, err)
		return models.Decision{}, err
	}

	inputs, err := supportInputsFrom(verdicts[0], verdicts[1])
	if err != nil {
		logFailure(s.logger, app, err)
		return models.Decision{}, err
	}
	outcome, reason := DecideSupport(inputs)

	decision := newDecision(app, outcome, verdicts)
	decision.Reason = reason

	s.logger.Info("support decision", map[string]interface{}{
		"applicantId":  app.ApplicantID,
		"evaluationId": decision.EvaluationID,
		"outcome":      outcome,
		"roundsUsed":   budget.Used(),
	})
	return decision, nil
}
