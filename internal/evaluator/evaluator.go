// internal/evaluator/evaluator.go
package evaluator

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"sort"
	"strings"

	"social-evaluation/internal/common/errors"
	"social-evaluation/internal/common/logger"
	"social-evaluation/internal/common/metrics"
	"social-evaluation/internal/common/observability"
	"social-evaluation/internal/common/validation"
	"social-evaluation/internal/engine/corpus"
	"social-evaluation/internal/engine/reasoning"
	"social-evaluation/internal/models"
	"social-evaluation/pkg/registry"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// Summarizer is the document capability an evaluator needs.
type Summarizer interface {
	Summarize(ctx context.Context, role, handle string, maxChars int) (string, error)
}

// RoundCharger consumes one delegation round, failing once the budget is
// spent. A nil RoundCharger means unbounded.
type RoundCharger interface {
	Charge() error
}

// Input is everything one evaluation of one kind may look at.
type Input struct {
	ApplicantID    string
	Profile        map[string]interface{}
	DocumentHandle string
	Rounds         RoundCharger
}

// Runner is implemented by Evaluator; supervisors depend on it.
type Runner interface {
	Kind() models.EvaluatorKind
	DocumentRole() models.DocumentRole
	Evaluate(ctx context.Context, in Input) (models.Verdict, error)
}

type Options struct {
	SummaryMaxChars int
	Observability   *observability.Observability
}

const strictInstruction = "Your previous reply could not be used. Reply again with only a single JSON object " +
	"containing exactly these keys with the declared value types: %s. No code fences, no commentary."

// Evaluator runs summarize, retrieve and reason for one fixed definition.
// It keeps no state between calls.
type Evaluator struct {
	def        registry.Definition
	schema     *validation.Schema
	required   []string
	summarizer Summarizer
	corpus     corpus.Corpus
	engine     reasoning.Engine
	opts       Options
	logger     logger.Logger
}

func New(def registry.Definition, summarizer Summarizer, c corpus.Corpus, engine reasoning.Engine, opts Options, log logger.Logger) (*Evaluator, error) {
	if err := def.Validate(); err != nil {
		return nil, err
	}
	rawSchema, err := json.Marshal(def.OutputSchema)
	if err != nil {
		return nil, fmt.Errorf("%s: encode schema: %w", def.Kind, err)
	}
	schema, err := validation.CompileSchema(string(rawSchema))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", def.Kind, err)
	}

	return &Evaluator{
		def:        def,
		schema:     schema,
		required:   requiredKeys(def.OutputSchema),
		summarizer: summarizer,
		corpus:     c,
		engine:     engine,
		opts:       opts,
		logger:     log.WithFields(map[string]interface{}{"component": "evaluator", "kind": def.Kind}),
	}, nil
}

func (e *Evaluator) Kind() models.EvaluatorKind {
	return models.EvaluatorKind(e.def.Kind)
}

// DocumentRole is the document this kind reads, empty when it reads none.
func (e *Evaluator) DocumentRole() models.DocumentRole {
	return models.DocumentRole(e.def.DocumentRole)
}

// Evaluate produces a schema-checked verdict or fails with a taxonomy error.
func (e *Evaluator) Evaluate(ctx context.Context, in Input) (verdict models.Verdict, err error) {
	ctx, span := e.opts.Observability.StartSpan(ctx, "evaluator."+e.def.Kind, attribute.String("kind", e.def.Kind))
	defer func() {
		status := "success"
		if err != nil && stderrors.Is(ctx.Err(), context.Canceled) {
			status = "cancelled"
		} else if err != nil {
			status = string(errors.Kind(err))
			span.SetStatus(codes.Error, status)
		}
		metrics.EvaluatorRuns.WithLabelValues(e.def.Kind, status).Inc()
		span.End()
	}()

	summary, err := e.summarize(ctx, in)
	if err != nil {
		return models.Verdict{}, err
	}

	passages, err := e.corpus.Search(ctx, corpus.Query{
		Collection: e.def.Collection,
		Text:       strings.TrimSpace(e.def.QueryInstruction + "\n" + summary),
		K:          e.def.K,
		FetchK:     e.def.FetchK,
		Diversity:  e.def.DiversityOrDefault(),
	})
	if err != nil {
		return models.Verdict{}, err
	}

	conv := reasoning.NewConversation(e.def.SystemInstruction)
	conv.AddUser(e.buildPrompt(in.Profile, summary, passages))

	raw, err := e.ask(ctx, in.Rounds, conv)
	if err != nil {
		return models.Verdict{}, err
	}
	fields, parseErr := parseVerdictFields(raw, e.schema)
	if parseErr == nil {
		return models.NewVerdict(e.Kind(), fields, raw), nil
	}

	metrics.SchemaRetries.WithLabelValues(e.def.Kind).Inc()
	e.logger.Warn("verdict rejected, asking again", map[string]interface{}{
		"applicantId": in.ApplicantID,
		"error":       parseErr.Error(),
	})

	conv.AddUser(fmt.Sprintf(strictInstruction, strings.Join(e.required, ", ")))
	raw, err = e.ask(ctx, in.Rounds, conv)
	if err != nil {
		return models.Verdict{}, err
	}
	fields, parseErr = parseVerdictFields(raw, e.schema)
	if parseErr != nil {
		e.logger.Error("verdict rejected twice", map[string]interface{}{
			"applicantId": in.ApplicantID,
			"error":       parseErr.Error(),
		})
		return models.Verdict{}, errors.NewSchemaError(e.def.Kind, raw, parseErr)
	}
	return models.NewVerdict(e.Kind(), fields, raw), nil
}

func (e *Evaluator) summarize(ctx context.Context, in Input) (string, error) {
	if e.def.DocumentRole == "" {
		return "", nil
	}
	if strings.TrimSpace(in.DocumentHandle) == "" {
		return "", errors.NewValidationError(fmt.Sprintf("Missing %s document", e.def.DocumentRole))
	}
	return e.summarizer.Summarize(ctx, e.def.DocumentRole, in.DocumentHandle, e.opts.SummaryMaxChars)
}

func (e *Evaluator) ask(ctx context.Context, rounds RoundCharger, conv *reasoning.ConversationContext) (string, error) {
	if rounds != nil {
		if err := rounds.Charge(); err != nil {
			return "", err
		}
	}
	out, err := e.engine.Complete(ctx, conv)
	if err != nil && stderrors.Is(err, context.DeadlineExceeded) && !errors.Is(err, errors.ErrCodeTimeout) {
		return "", errors.NewTimeoutError(e.def.Kind, err)
	}
	return out, err
}

func (e *Evaluator) buildPrompt(profile map[string]interface{}, summary string, passages []corpus.Passage) string {
	var b strings.Builder

	b.WriteString("Applicant profile:\n")
	if profileJSON, err := json.MarshalIndent(profile, "", "  "); err == nil {
		b.Write(profileJSON)
	} else {
		b.WriteString("{}")
	}
	b.WriteString("\n\n")

	if summary != "" {
		fmt.Fprintf(&b, "%s summary:\n%s\n\n", strings.ReplaceAll(e.def.DocumentRole, "_", " "), summary)
	}

	b.WriteString("Reference context:\n")
	if len(passages) == 0 {
		b.WriteString("(none)\n")
	}
	for i, p := range passages {
		fmt.Fprintf(&b, "[%d] %s\n", i+1, strings.TrimSpace(p.Content))
	}
	return b.String()
}

func requiredKeys(schema map[string]interface{}) []string {
	var keys []string
	switch req := schema["required"].(type) {
	case []interface{}:
		for _, r := range req {
			if s, ok := r.(string); ok {
				keys = append(keys, s)
			}
		}
	case []string:
		keys = append(keys, req...)
	}
	sort.Strings(keys)
	return keys
}
