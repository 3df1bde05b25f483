package supervisor

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"strings"

	"social-evaluation/internal/common/errors"
	"social-evaluation/internal/common/logger"
	"social-evaluation/internal/engine/reasoning"
	"social-evaluation/internal/evaluator"
	"social-evaluation/internal/models"
	"social-evaluation/pkg/registry"

	"go.opentelemetry.io/otel/attribute"
)

// EnablementSupervisor runs the career and upskilling evaluators and asks
// the engine for one applicant-facing narrative.
type EnablementSupervisor struct {
	career    evaluator.Runner
	upskill   evaluator.Runner
	engine    reasoning.Engine
	synthesis string
	cfg       Config
	logger    logger.Logger
}

func NewEnablementSupervisor(career, upskill evaluator.Runner, engine reasoning.Engine, cfg Config, log logger.Logger) (*EnablementSupervisor, error) {
	if err := expectKind(career, models.KindCareerReadiness); err != nil {
		return nil, err
	}
	if err := expectKind(upskill, models.KindUpskillingMatch); err != nil {
		return nil, err
	}
	if engine == nil {
		return nil, fmt.Errorf("enablement supervisor needs a reasoning engine")
	}
	return &EnablementSupervisor{
		career:    career,
		upskill:   upskill,
		engine:    engine,
		synthesis: registry.EnablementSynthesisInstruction,
		cfg:       cfg,
		logger:    log.WithFields(map[string]interface{}{"component": "supervisor", "track": models.TrackEnablement}),
	}, nil
}

func (s *EnablementSupervisor) Track() models.Track {
	return models.TrackEnablement
}

func (s *EnablementSupervisor) Run(ctx context.Context, app models.Application) (models.Decision, error) {
	if app.Track != models.TrackEnablement {
		return models.Decision{}, fmt.Errorf("enablement supervisor cannot run %s application", app.Track)
	}
	ctx, span := s.cfg.Observability.StartSpan(ctx, "supervisor.enablement", attribute.String("applicant", app.ApplicantID))
	defer span.End()

	budget := NewRoundBudget(s.cfg.MaxRounds)
	verdicts, err := runAll(ctx, budget, []dispatch{
		{runner: s.career, input: inputFor(app, s.career, budget)},
		{runner: s.upskill, input: inputFor(app, s.upskill, budget)},
	})
	if err != nil {
		logFailure(s.logger, app, err)
		return models.Decision{}, err
	}

	narrative, err := s.synthesize(ctx, budget, app, verdicts)
	if err != nil {
		logFailure(s.logger, app, err)
		return models.Decision{}, err
	}

	decision := newDecision(app, models.OutcomeAdvisory, verdicts)
	decision.Narrative = narrative

	s.logger.Info("enablement advice ready", map[string]interface{}{
		"applicantId":  app.ApplicantID,
		"evaluationId": decision.EvaluationID,
		"roundsUsed":   budget.Used(),
	})
	return decision, nil
}

func (s *EnablementSupervisor) synthesize(ctx context.Context, budget *RoundBudget, app models.Application, verdicts []models.Verdict) (string, error) {
	combined := make(map[string]interface{}, len(verdicts))
	for _, v := range verdicts {
		combined[string(v.Kind)] = v.Fields
	}
	body, err := json.MarshalIndent(map[string]interface{}{
		"applicant_data": app.Profile,
		"evaluations":    combined,
	}, "", "  ")
	if err != nil {
		return "", errors.NewInternalError(err)
	}

	if err := budget.Charge(); err != nil {
		return "", err
	}

	conv := reasoning.NewConversation(s.synthesis)
	conv.AddUser(string(body))
	out, err := s.engine.Complete(ctx, conv)
	if err != nil {
		if stderrors.Is(err, context.DeadlineExceeded) && !errors.Is(err, errors.ErrCodeTimeout) {
			return "", errors.NewTimeoutError("enablement-synthesis", err)
		}
		return "", err
	}
	return strings.TrimSpace(out), nil
}
