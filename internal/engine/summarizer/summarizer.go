// internal/engine/summarizer/summarizer.go
package summarizer

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"social-evaluation/internal/common/logger"
	"social-evaluation/internal/engine/reasoning"

	"github.com/redis/go-redis/v9"
)

// DefaultMaxChars caps summaries when the caller passes no limit.
const DefaultMaxChars = 400

var roleFocus = map[string]string{
	"bank_statement": "the key factors that will contribute to the applicant's economic support plan: income, recurring liabilities, loan repayments and balances",
	"credit_report":  "outstanding debts, repayment history, defaults and the debt-to-income position",
	"resume":         "roles held with dates, employment gaps, the work domain and the tools and skills used",
}

// Summarizer turns a document handle into a bounded plain-text summary.
type Summarizer struct {
	source Source
	engine reasoning.Engine
	cache  *redis.Client
	ttl    time.Duration
	logger logger.Logger
}

// New builds a summarizer. cache may be nil; ttl <= 0 disables caching.
// Cached summaries only save the reasoning call; the document is always fetched.
func New(source Source, engine reasoning.Engine, cache *redis.Client, ttl time.Duration, log logger.Logger) *Summarizer {
	return &Summarizer{
		source: source,
		engine: engine,
		cache:  cache,
		ttl:    ttl,
		logger: log.WithFields(map[string]interface{}{"component": "summarizer"}),
	}
}

// Summarize returns at most maxChars characters describing the document.
func (s *Summarizer) Summarize(ctx context.Context, role, handle string, maxChars int) (string, error) {
	if maxChars <= 0 {
		maxChars = DefaultMaxChars
	}

	text, err := s.source.Fetch(ctx, handle)
	if err != nil {
		return "", err
	}

	// Keyed on content so a new document at the same handle misses.
	key := cacheKey(role, text, maxChars)
	if cached, ok := s.fromCache(ctx, key); ok {
		return cached, nil
	}

	conv := reasoning.NewConversation(instruction(role, maxChars))
	conv.AddUser(text)

	summary, err := s.engine.Complete(ctx, conv)
	if err != nil {
		return "", err
	}
	summary = Truncate(strings.TrimSpace(summary), maxChars)

	s.toCache(ctx, key, summary)
	return summary, nil
}

func (s *Summarizer) fromCache(ctx context.Context, key string) (string, bool) {
	if s.cache == nil || s.ttl <= 0 {
		return "", false
	}
	val, err := s.cache.Get(ctx, key).Result()
	if err == redis.Nil {
		return "", false
	}
	if err != nil {
		s.logger.Warn("summary cache read failed", map[string]interface{}{"error": err.Error()})
		return "", false
	}
	return val, true
}

func (s *Summarizer) toCache(ctx context.Context, key, summary string) {
	if s.cache == nil || s.ttl <= 0 {
		return
	}
	if err := s.cache.Set(ctx, key, summary, s.ttl).Err(); err != nil {
		s.logger.Warn("summary cache write failed", map[string]interface{}{"error": err.Error()})
	}
}

func cacheKey(role, text string, maxChars int) string {
	sum := sha256.Sum256([]byte(text))
	return fmt.Sprintf("eval:summary:%s:%d:%s", role, maxChars, hex.EncodeToString(sum[:]))
}

func instruction(role string, maxChars int) string {
	focus, ok := roleFocus[role]
	if !ok {
		focus = "the facts most relevant to a social support evaluation"
	}
	return fmt.Sprintf(
		"Summarize the %s below in plain text with key points and not more than %d characters, highlighting %s.",
		strings.ReplaceAll(role, "_", " "), maxChars, focus,
	)
}

// Truncate cuts s to at most max characters (runes).
func Truncate(s string, max int) string {
	if max <= 0 {
		return s
	}
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max])
}
