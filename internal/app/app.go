// Package app assembles the evaluation pipeline from configuration and
// already-connected backends.
package app

import (
	"database/sql"
	"fmt"

	"social-evaluation/internal/api"
	"social-evaluation/internal/common/config"
	"social-evaluation/internal/common/database"
	apphttp "social-evaluation/internal/common/http"
	"social-evaluation/internal/common/logger"
	"social-evaluation/internal/common/observability"
	"social-evaluation/internal/engine/corpus"
	"social-evaluation/internal/engine/reasoning"
	"social-evaluation/internal/engine/summarizer"
	"social-evaluation/internal/evaluator"
	"social-evaluation/internal/models"
	"social-evaluation/internal/notify"
	"social-evaluation/internal/records"
	"social-evaluation/internal/service"
	"social-evaluation/internal/supervisor"
	"social-evaluation/pkg/registry"

	"github.com/redis/go-redis/v9"
)

// Deps are the connected backends. Redis, Zeebe, SES and SNS may be nil.
type Deps struct {
	DB            *sql.DB
	Elasticsearch *database.ElasticsearchClient
	Redis         *redis.Client
	Zeebe         notify.MessagePublisher
	SES           notify.SESService
	SNS           notify.SNSService
	Observability *observability.Observability
	Checks        map[string]api.Check
}

// App is the assembled pipeline.
type App struct {
	Service  *service.Service
	Store    *records.Store
	Server   *api.Server
	Registry *registry.EvaluatorRegistry
}

// Build wires engines, evaluators, supervisors and follow-ups.
func Build(cfg *config.Config, deps Deps, log logger.Logger) (*App, error) {
	if deps.DB == nil || deps.Elasticsearch == nil {
		return nil, fmt.Errorf("database and elasticsearch are required")
	}

	rc := cfg.APIs.Reasoning
	engine := reasoning.NewClient(reasoning.Config{
		BaseURL:     rc.BaseURL,
		APIKey:      rc.APIKey,
		Model:       rc.Model,
		Temperature: rc.Temperature,
		MaxTokens:   rc.MaxTokens,
		Timeout:     config.GetDuration(rc.Timeout),
		Retry:       retryPolicy(rc.MaxAttempts),
	}, log)

	ev := cfg.Evaluation
	source := summarizer.NewHTTPSource(
		cfg.APIs.Documents.BaseURL,
		config.GetDuration(cfg.APIs.Documents.Timeout),
		retryPolicy(cfg.APIs.Documents.MaxAttempts),
	)
	summ := summarizer.New(source, engine, deps.Redis, config.GetDuration(ev.SummaryCacheTTL), log)
	retrieval := corpus.NewElasticCorpus(deps.Elasticsearch.Client, deps.Elasticsearch.IndexPrefix, retryPolicy(ev.CorpusAttempts), log)

	reg, err := registry.LoadRegistry(ev.DefinitionsPath)
	if err != nil {
		return nil, fmt.Errorf("load evaluator definitions: %w", err)
	}

	runners, err := buildEvaluators(reg, summ, retrieval, engine, evaluator.Options{
		SummaryMaxChars: ev.SummaryMaxChars,
		Observability:   deps.Observability,
	}, log)
	if err != nil {
		return nil, err
	}

	supCfg := supervisor.Config{MaxRounds: ev.MaxRounds, Observability: deps.Observability}
	support, err := supervisor.NewSupportSupervisor(runners[models.KindFinancialHardship], runners[models.KindCreditRisk], supCfg, log)
	if err != nil {
		return nil, err
	}
	enablement, err := supervisor.NewEnablementSupervisor(runners[models.KindCareerReadiness], runners[models.KindUpskillingMatch], engine, supCfg, log)
	if err != nil {
		return nil, err
	}

	store := records.NewStore(deps.DB, log)
	notifier := notify.NewNotifier(notify.Config{
		SNSEnabled:  cfg.Notifications.SNS.Enabled,
		TopicARN:    cfg.Notifications.SNS.TopicARN,
		SESEnabled:  cfg.Notifications.SES.Enabled,
		FromEmail:   cfg.Notifications.SES.FromEmail,
		MessageName: cfg.Camunda.MessageName,
	}, deps.SES, deps.SNS, deps.Zeebe, log)

	var lease *service.Lease
	if deps.Redis != nil {
		lease = service.NewLease(deps.Redis, config.GetDuration(ev.LockTTL), log)
	}

	svc := service.New(
		[]supervisor.Supervisor{support, enablement},
		lease,
		store,
		notifier,
		service.Options{
			RunTimeout:      config.GetDuration(ev.RunTimeout),
			FollowupTimeout: config.GetDuration(ev.FollowupTimeout),
			DocumentHandles: ev.DocumentHandles,
			Observability:   deps.Observability,
		},
		log,
	)

	defaultTrack, err := models.ParseTrack(cfg.Server.DefaultTrack)
	if err != nil {
		defaultTrack = models.TrackSupport
	}
	server := api.NewServer(api.Config{
		DefaultTrack:   defaultTrack,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		Checks:         deps.Checks,
	}, svc, store, log)

	return &App{Service: svc, Store: store, Server: server, Registry: reg}, nil
}

func buildEvaluators(
	reg *registry.EvaluatorRegistry,
	summ evaluator.Summarizer,
	retrieval corpus.Corpus,
	engine reasoning.Engine,
	opts evaluator.Options,
	log logger.Logger,
) (map[models.EvaluatorKind]evaluator.Runner, error) {
	kinds := []models.EvaluatorKind{
		models.KindFinancialHardship,
		models.KindCreditRisk,
		models.KindCareerReadiness,
		models.KindUpskillingMatch,
	}
	runners := make(map[models.EvaluatorKind]evaluator.Runner, len(kinds))
	for _, kind := range kinds {
		def, ok := reg.Get(string(kind))
		if !ok {
			return nil, fmt.Errorf("no definition for evaluator %s", kind)
		}
		e, err := evaluator.New(def, summ, retrieval, engine, opts, log)
		if err != nil {
			return nil, fmt.Errorf("evaluator %s: %w", kind, err)
		}
		runners[kind] = e
	}
	return runners, nil
}

func retryPolicy(attempts int) apphttp.RetryPolicy {
	p := apphttp.DefaultRetryPolicy
	if attempts > 0 {
		p.MaxAttempts = attempts
	}
	return p
}
