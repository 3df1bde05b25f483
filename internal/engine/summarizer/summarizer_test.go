package summarizer

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"social-evaluation/internal/common/errors"
	apphttp "social-evaluation/internal/common/http"
	"social-evaluation/internal/common/logger"
	"social-evaluation/internal/engine/reasoning"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redismock/v9"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubSource struct {
	text  string
	err   error
	calls int32
}

func (s *stubSource) Fetch(ctx context.Context, handle string) (string, error) {
	atomic.AddInt32(&s.calls, 1)
	return s.text, s.err
}

type stubEngine struct {
	reply string
	err   error
	seen  []reasoning.Message
	calls int32
}

func (e *stubEngine) Complete(ctx context.Context, conv *reasoning.ConversationContext) (string, error) {
	atomic.AddInt32(&e.calls, 1)
	e.seen = conv.Messages()
	if e.err != nil {
		return "", e.err
	}
	conv.AddAssistant(e.reply)
	return e.reply, nil
}

func TestSummarize_TruncatesToCap(t *testing.T) {
	engine := &stubEngine{reply: strings.Repeat("é", 500)}
	s := New(&stubSource{text: "statement rows"}, engine, nil, 0, logger.NewTestLogger(t))

	out, err := s.Summarize(context.Background(), "bank_statement", "bank-statements/784.xlsx", 400)
	require.NoError(t, err)
	assert.Equal(t, 400, len([]rune(out)))

	require.Len(t, engine.seen, 2)
	assert.Contains(t, engine.seen[0].Content, "not more than 400 characters")
	assert.Equal(t, "statement rows", engine.seen[1].Content)
}

func TestSummarize_DefaultCap(t *testing.T) {
	engine := &stubEngine{reply: strings.Repeat("a", 1000)}
	s := New(&stubSource{text: "resume"}, engine, nil, 0, logger.NewTestLogger(t))

	out, err := s.Summarize(context.Background(), "resume", "resumes/1.pdf", 0)
	require.NoError(t, err)
	assert.Len(t, out, DefaultMaxChars)
}

func TestSummarize_CacheMissThenStore(t *testing.T) {
	db, mock := redismock.NewClientMock()
	key := cacheKey("credit_report", "report", 400)
	mock.ExpectGet(key).RedisNil()
	mock.ExpectSet(key, "short summary", time.Hour).SetVal("OK")

	source := &stubSource{text: "report"}
	s := New(source, &stubEngine{reply: " short summary "}, db, time.Hour, logger.NewTestLogger(t))

	out, err := s.Summarize(context.Background(), "credit_report", "credit-reports/784.pdf", 400)
	require.NoError(t, err)
	assert.Equal(t, "short summary", out)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSummarize_CacheHitSkipsUpstream(t *testing.T) {
	db, mock := redismock.NewClientMock()
	key := cacheKey("resume", "resume", 400)
	mock.ExpectGet(key).SetVal("cached summary")

	source := &stubSource{text: "resume"}
	engine := &stubEngine{reply: "fresh"}
	s := New(source, engine, db, time.Hour, logger.NewTestLogger(t))

	out, err := s.Summarize(context.Background(), "resume", "resumes/9.pdf", 400)
	require.NoError(t, err)
	assert.Equal(t, "cached summary", out)
	assert.Equal(t, int32(1), atomic.LoadInt32(&source.calls))
	assert.Equal(t, int32(0), atomic.LoadInt32(&engine.calls))
	assert.NoError(t, mock.ExpectationsWereMet())
}

type echoEngine struct {
	calls int32
}

func (e *echoEngine) Complete(ctx context.Context, conv *reasoning.ConversationContext) (string, error) {
	atomic.AddInt32(&e.calls, 1)
	msgs := conv.Messages()
	return msgs[len(msgs)-1].Content + " summary", nil
}

func TestSummarize_ReplacedDocumentAtSameHandleIsResummarized(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	source := &stubSource{text: "v1"}
	engine := &echoEngine{}
	s := New(source, engine, rdb, time.Hour, logger.NewTestLogger(t))
	ctx := context.Background()

	first, err := s.Summarize(ctx, "bank_statement", "bank-statements/784.xlsx", 400)
	require.NoError(t, err)
	assert.Equal(t, "v1 summary", first)

	again, err := s.Summarize(ctx, "bank_statement", "bank-statements/784.xlsx", 400)
	require.NoError(t, err)
	assert.Equal(t, "v1 summary", again)
	assert.Equal(t, int32(1), atomic.LoadInt32(&engine.calls))

	source.text = "v2"
	second, err := s.Summarize(ctx, "bank_statement", "bank-statements/784.xlsx", 400)
	require.NoError(t, err)
	assert.Equal(t, "v2 summary", second)
	assert.Equal(t, int32(3), atomic.LoadInt32(&source.calls))
	assert.Equal(t, int32(2), atomic.LoadInt32(&engine.calls))
}

func TestSummarize_PropagatesSourceError(t *testing.T) {
	srcErr := errors.NewUpstreamError(SourceCapability, ErrDocumentUnavailable)
	engine := &stubEngine{reply: "unused"}
	s := New(&stubSource{err: srcErr}, engine, nil, 0, logger.NewTestLogger(t))

	_, err := s.Summarize(context.Background(), "resume", "resumes/1.pdf", 400)
	assert.Equal(t, errors.ErrCodeUpstream, errors.Kind(err))
	assert.Equal(t, int32(0), atomic.LoadInt32(&engine.calls))
}

func fastRetry() apphttp.RetryPolicy {
	return apphttp.RetryPolicy{MaxAttempts: 3, InitialInterval: time.Millisecond, MaxInterval: 2 * time.Millisecond}
}

func TestHTTPSource(t *testing.T) {
	var flaky int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/documents/text", r.URL.Path)
		switch r.URL.Query().Get("handle") {
		case "credit-reports/784.pdf":
			_ = json.NewEncoder(w).Encode(map[string]string{"text": "credit report text"})
		case "flaky.pdf":
			if atomic.AddInt32(&flaky, 1) == 1 {
				w.WriteHeader(http.StatusBadGateway)
				return
			}
			_ = json.NewEncoder(w).Encode(map[string]string{"text": "recovered"})
		case "empty.pdf":
			_ = json.NewEncoder(w).Encode(map[string]string{"text": "  "})
		case "down.pdf":
			w.WriteHeader(http.StatusServiceUnavailable)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	source := NewHTTPSource(server.URL, time.Second, fastRetry())
	ctx := context.Background()

	text, err := source.Fetch(ctx, "credit-reports/784.pdf")
	require.NoError(t, err)
	assert.Equal(t, "credit report text", text)

	text, err = source.Fetch(ctx, "flaky.pdf")
	require.NoError(t, err)
	assert.Equal(t, "recovered", text)

	_, err = source.Fetch(ctx, "missing.pdf")
	assert.Equal(t, errors.ErrCodeValidation, errors.Kind(err))

	_, err = source.Fetch(ctx, "empty.pdf")
	assert.ErrorIs(t, err, ErrDocumentEmpty)

	_, err = source.Fetch(ctx, "down.pdf")
	assert.Equal(t, errors.ErrCodeUpstream, errors.Kind(err))
	assert.ErrorIs(t, err, ErrDocumentUnavailable)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", Truncate("abcdef", 3))
	assert.Equal(t, "ab", Truncate("ab", 3))
	assert.Equal(t, "ab", Truncate("ab", 0))
}
