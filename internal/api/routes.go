package api

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	apperrors "social-evaluation/internal/common/errors"
	"social-evaluation/internal/common/logger"
	"social-evaluation/internal/models"
	"social-evaluation/internal/records"
	"social-evaluation/internal/service"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Evaluator runs one submission to a decision.
type Evaluator interface {
	Submit(ctx context.Context, req service.Request) (models.Decision, error)
}

// RecordWriter stores evaluation results posted to /submit.
type RecordWriter interface {
	Insert(ctx context.Context, emiratesID string, result interface{}) (int64, error)
}

// Check reports whether one dependency is usable.
type Check func(ctx context.Context) error

// Config defines server dependencies.
type Config struct {
	DefaultTrack   models.Track
	AllowedOrigins []string
	Checks         map[string]Check
}

// Server wires HTTP handlers to the application service and record store.
type Server struct {
	cfg       Config
	evaluator Evaluator
	records   RecordWriter
	logger    logger.Logger
}

func NewServer(cfg Config, evaluator Evaluator, records RecordWriter, log logger.Logger) *Server {
	if cfg.DefaultTrack == "" {
		cfg.DefaultTrack = models.TrackSupport
	}
	return &Server{
		cfg:       cfg,
		evaluator: evaluator,
		records:   records,
		logger:    log.WithFields(map[string]interface{}{"component": "http"}),
	}
}

func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), s.requestLogger())

	corsCfg := cors.DefaultConfig()
	if len(s.cfg.AllowedOrigins) == 0 {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = s.cfg.AllowedOrigins
	}
	corsCfg.AllowHeaders = []string{"Origin", "Content-Type", "Accept"}
	corsCfg.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	r.Use(cors.New(corsCfg))

	r.GET("/health", s.handleHealth)
	r.GET("/ready", s.handleReady)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	r.POST("/evaluate", s.handleEvaluate(s.cfg.DefaultTrack))
	r.POST("/support/evaluate", s.handleEvaluate(models.TrackSupport))
	r.POST("/enablement/evaluate", s.handleEvaluate(models.TrackEnablement))
	r.POST("/submit", s.handleSubmit)

	return r
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handleReady(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()

	status := http.StatusOK
	checks := make(map[string]string, len(s.cfg.Checks))
	for name, check := range s.cfg.Checks {
		if err := check(ctx); err != nil {
			status = http.StatusServiceUnavailable
			checks[name] = err.Error()
			continue
		}
		checks[name] = "ok"
	}

	state := "ready"
	if status != http.StatusOK {
		state = "not ready"
	}
	c.JSON(status, gin.H{"status": state, "checks": checks})
}

func (s *Server) handleEvaluate(track models.Track) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req EvaluateRequest
		if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
			s.renderError(c, http.StatusBadRequest, "Invalid JSON body")
			return
		}
		if strings.TrimSpace(req.EmiratesID) == "" || len(req.ApplicantData) == 0 {
			s.renderError(c, http.StatusBadRequest, service.MissingIdentityMessage)
			return
		}

		decision, err := s.evaluator.Submit(c.Request.Context(), service.Request{
			Track:       string(track),
			ApplicantID: req.EmiratesID,
			Profile:     req.ApplicantData,
			Documents:   req.Documents,
		})
		if err != nil {
			s.renderTaxonomyError(c, err)
			return
		}
		c.JSON(http.StatusOK, EvaluateResponse{Result: decision.Payload()})
	}
}

func (s *Server) handleSubmit(c *gin.Context) {
	var req SubmitRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		s.renderError(c, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	if strings.TrimSpace(req.EmiratesID) == "" || !records.HasResult(req.EvaluationResult) {
		s.renderError(c, http.StatusBadRequest, "Missing required fields")
		return
	}

	id, err := s.records.Insert(c.Request.Context(), req.EmiratesID, req.EvaluationResult)
	if err != nil {
		if apperrors.Is(err, apperrors.ErrCodeValidation) {
			s.renderError(c, http.StatusBadRequest, apperrors.PublicMessage(err))
			return
		}
		s.logger.Error("record insert failed", map[string]interface{}{
			"emiratesId": req.EmiratesID,
			"error":      err.Error(),
		})
		s.renderError(c, http.StatusInternalServerError, "Internal server error")
		return
	}
	c.JSON(http.StatusOK, SubmitResponse{Status: "success", InsertedID: id})
}

func (s *Server) renderTaxonomyError(c *gin.Context, err error) {
	code := apperrors.Kind(err)
	s.renderError(c, apperrors.HTTPStatus(code), apperrors.PublicMessage(err))
}

func (s *Server) renderError(c *gin.Context, status int, message string) {
	c.JSON(status, ErrorResponse{Error: message})
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Debug("request served", map[string]interface{}{
			"method":     c.Request.Method,
			"path":       c.FullPath(),
			"status":     c.Writer.Status(),
			"durationMs": time.Since(start).Milliseconds(),
		})
	}
}
