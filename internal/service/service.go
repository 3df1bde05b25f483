// internal/service/service.go
package service

import (
	"context"
	stderrors "errors"
	"fmt"
	"sync"
	"time"

	"social-evaluation/internal/common/errors"
	"social-evaluation/internal/common/logger"
	"social-evaluation/internal/common/metrics"
	"social-evaluation/internal/common/observability"
	"social-evaluation/internal/models"
	"social-evaluation/internal/supervisor"
)

const (
	DefaultRunTimeout      = 120 * time.Second
	DefaultFollowupTimeout = 30 * time.Second

	followupBuffer = 64
)

// Recorder stores final decisions.
type Recorder interface {
	RecordDecision(ctx context.Context, d models.Decision) (int64, error)
}

// Notifier announces final decisions.
type Notifier interface {
	Notify(ctx context.Context, d models.Decision, email string) error
}

type Options struct {
	RunTimeout      time.Duration
	FollowupTimeout time.Duration
	// DocumentHandles maps a document role to a handle template with {id}.
	DocumentHandles map[string]string
	Observability   *observability.Observability
}

// FollowupError reports a failed fire-and-forget task.
type FollowupError struct {
	Task         string
	EvaluationID string
	Err          error
}

func (e FollowupError) Error() string {
	return fmt.Sprintf("followup %s for %s: %v", e.Task, e.EvaluationID, e.Err)
}

// Service validates submissions, guards per-applicant concurrency and runs
// the supervisor of the requested track.
type Service struct {
	supervisors map[models.Track]supervisor.Supervisor
	lease       *Lease
	recorder    Recorder
	notifier    Notifier
	opts        Options
	logger      logger.Logger

	followups    sync.WaitGroup
	followupErrs chan FollowupError
}

// New builds the service. lease, recorder and notifier may be nil.
func New(supervisors []supervisor.Supervisor, lease *Lease, recorder Recorder, notifier Notifier, opts Options, log logger.Logger) *Service {
	if opts.RunTimeout <= 0 {
		opts.RunTimeout = DefaultRunTimeout
	}
	if opts.FollowupTimeout <= 0 {
		opts.FollowupTimeout = DefaultFollowupTimeout
	}
	byTrack := make(map[models.Track]supervisor.Supervisor, len(supervisors))
	for _, s := range supervisors {
		byTrack[s.Track()] = s
	}
	return &Service{
		supervisors:  byTrack,
		lease:        lease,
		recorder:     recorder,
		notifier:     notifier,
		opts:         opts,
		logger:       log.WithFields(map[string]interface{}{"component": "application-service"}),
		followupErrs: make(chan FollowupError, followupBuffer),
	}
}

// Submit evaluates one request. Errors carry a taxonomy kind; only
// validation messages are meant for the caller.
func (s *Service) Submit(ctx context.Context, req Request) (models.Decision, error) {
	start := time.Now()

	app, err := buildApplication(req, s.opts.DocumentHandles)
	if err != nil {
		s.observeFailure(ctx, trackLabel(req.Track), "", start, err)
		return models.Decision{}, err
	}

	sup, ok := s.supervisors[app.Track]
	if !ok {
		err := errors.NewValidationError(fmt.Sprintf("Track %s is not served here", app.Track))
		s.observeFailure(ctx, string(app.Track), "", start, err)
		return models.Decision{}, err
	}

	release, err := s.lease.Acquire(ctx, app.ApplicantID)
	if err != nil {
		s.observeFailure(ctx, string(app.Track), app.ApplicantID, start, err)
		return models.Decision{}, err
	}
	defer release()

	runCtx, cancel := context.WithTimeout(ctx, s.opts.RunTimeout)
	defer cancel()

	s.logger.Info("evaluation started", map[string]interface{}{
		"applicantId": app.ApplicantID,
		"track":       app.Track,
	})

	decision, err := sup.Run(runCtx, app)
	if err != nil {
		err = s.translate(ctx, runCtx, err)
		s.observeFailure(ctx, string(app.Track), app.ApplicantID, start, err)
		return models.Decision{}, err
	}

	s.observeDecision(ctx, decision, start)
	s.launchFollowups(decision, app)
	return decision, nil
}

// translate turns deadline and cancellation leftovers into taxonomy errors.
func (s *Service) translate(parent, run context.Context, err error) error {
	if errors.Is(err, errors.ErrCodeTimeout) {
		return err
	}
	if stderrors.Is(run.Err(), context.DeadlineExceeded) || stderrors.Is(err, context.DeadlineExceeded) {
		return errors.NewTimeoutError("evaluation", err)
	}
	if parent.Err() != nil {
		return errors.NewInternalError(fmt.Errorf("caller went away: %w", err))
	}
	return err
}

func trackLabel(raw string) string {
	if t, err := models.ParseTrack(raw); err == nil {
		return string(t)
	}
	return "unknown"
}

func (s *Service) observeFailure(ctx context.Context, track, applicantID string, start time.Time, err error) {
	elapsed := time.Since(start)
	code := errors.Kind(err)
	metrics.EvaluationsTotal.WithLabelValues(track, string(code)).Inc()
	s.opts.Observability.RecordEvaluation(ctx, track, string(code), elapsed)

	fields := map[string]interface{}{
		"applicantId": applicantID,
		"track":       track,
		"errorCode":   code,
		"category":    errors.GetErrorCategory(code),
		"durationMs":  elapsed.Milliseconds(),
	}
	if code == errors.ErrCodeValidation || code == errors.ErrCodeEvaluationInProgress {
		s.logger.Info("evaluation rejected", fields)
		return
	}
	fields["error"] = err.Error()
	s.logger.Error("evaluation failed", fields)
}

func (s *Service) observeDecision(ctx context.Context, d models.Decision, start time.Time) {
	elapsed := time.Since(start)
	track, outcome := string(d.Track), string(d.Outcome)

	metrics.EvaluationsTotal.WithLabelValues(track, outcome).Inc()
	metrics.EvaluationDuration.WithLabelValues(track).Observe(elapsed.Seconds())
	s.opts.Observability.RecordEvaluation(ctx, track, outcome, elapsed)

	s.logger.Info("evaluation finished", map[string]interface{}{
		"applicantId":  d.ApplicantID,
		"evaluationId": d.EvaluationID,
		"track":        track,
		"outcome":      outcome,
		"durationMs":   elapsed.Milliseconds(),
	})
}

// launchFollowups records and announces d in the background. The caller's
// context is not used so a finished request does not cancel them.
func (s *Service) launchFollowups(d models.Decision, app models.Application) {
	if s.recorder == nil && s.notifier == nil {
		return
	}
	email, _ := app.Profile["email"].(string)

	s.followups.Add(1)
	go func() {
		defer s.followups.Done()
		ctx, cancel := context.WithTimeout(context.Background(), s.opts.FollowupTimeout)
		defer cancel()

		if s.recorder != nil {
			if _, err := s.recorder.RecordDecision(ctx, d); err != nil {
				s.followupFailed("record", d, err)
			}
		}
		if s.notifier != nil {
			if err := s.notifier.Notify(ctx, d, email); err != nil {
				s.followupFailed("notify", d, err)
			}
		}
	}()
}

func (s *Service) followupFailed(task string, d models.Decision, err error) {
	metrics.FollowupFailures.WithLabelValues(task).Inc()
	s.logger.Warn("followup failed", map[string]interface{}{
		"task":         task,
		"evaluationId": d.EvaluationID,
		"error":        err.Error(),
	})

	select {
	case s.followupErrs <- FollowupError{Task: task, EvaluationID: d.EvaluationID, Err: err}:
	default:
	}
}

// FollowupErrors delivers failed follow-ups. Reading it is optional; when
// nobody reads, failures beyond the buffer are only logged and counted.
func (s *Service) FollowupErrors() <-chan FollowupError {
	return s.followupErrs
}

// Tracks lists the tracks this service runs.
func (s *Service) Tracks() []models.Track {
	tracks := make([]models.Track, 0, len(s.supervisors))
	for _, t := range []models.Track{models.TrackSupport, models.TrackEnablement} {
		if _, ok := s.supervisors[t]; ok {
			tracks = append(tracks, t)
		}
	}
	return tracks
}

// Close waits for in-flight follow-ups.
func (s *Service) Close() {
	s.followups.Wait()
}
