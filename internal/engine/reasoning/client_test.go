package reasoning

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"social-evaluation/internal/common/errors"
	apphttp "social-evaluation/internal/common/http"
	"social-evaluation/internal/common/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createTestClient(t *testing.T, url string) *Client {
	t.Helper()
	return NewClient(Config{
		BaseURL:     url,
		APIKey:      "sk-test",
		Model:       "gpt-4-turbo",
		Temperature: 0.1,
		Timeout:     time.Second,
		Retry:       apphttp.RetryPolicy{MaxAttempts: 3, InitialInterval: time.Millisecond, MaxInterval: 2 * time.Millisecond},
	}, logger.NewTestLogger(t))
}

func completion(content string) map[string]interface{} {
	return map[string]interface{}{
		"choices": []interface{}{
			map[string]interface{}{"message": map[string]interface{}{"role": "assistant", "content": content}},
		},
	}
}

func TestComplete_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))

		var req chatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "gpt-4-turbo", req.Model)
		assert.Equal(t, 0.1, req.Temperature)
		require.Len(t, req.Messages, 2)
		assert.Equal(t, "system", req.Messages[0].Role)

		_ = json.NewEncoder(w).Encode(completion(`{"credit_risk":"Low"}`))
	}))
	defer server.Close()

	conv := NewConversation("You are a Credit Risk Evaluation Agent.")
	conv.AddUser("summary")

	out, err := createTestClient(t, server.URL).Complete(context.Background(), conv)
	require.NoError(t, err)
	assert.Equal(t, `{"credit_risk":"Low"}`, out)
	assert.Equal(t, 3, conv.Len())
	assert.Equal(t, "assistant", conv.Messages()[2].Role)
}

func TestComplete_RetriesTransientStatus(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_ = json.NewEncoder(w).Encode(completion("ok"))
	}))
	defer server.Close()

	out, err := createTestClient(t, server.URL).Complete(context.Background(), NewConversation("sys"))
	require.NoError(t, err)
	assert.Equal(t, "ok", out)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestComplete_ExhaustedRetriesIsUpstreamError(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	conv := NewConversation("sys")
	_, err := createTestClient(t, server.URL).Complete(context.Background(), conv)

	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeUpstream, errors.Kind(err))
	assert.ErrorIs(t, err, ErrReasoningUnavailable)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
	assert.Equal(t, 1, conv.Len())
}

func TestComplete_ClientErrorNotRetried(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	_, err := createTestClient(t, server.URL).Complete(context.Background(), NewConversation("sys"))
	assert.Equal(t, errors.ErrCodeUpstream, errors.Kind(err))
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestComplete_DeadlineIsTimeoutError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := createTestClient(t, server.URL).Complete(ctx, NewConversation("sys"))
	assert.Equal(t, errors.ErrCodeTimeout, errors.Kind(err))
}

func TestConversationsAreIndependent(t *testing.T) {
	a := NewConversation("sys")
	b := NewConversation("sys")
	a.AddUser("applicant A")

	assert.Equal(t, 2, a.Len())
	assert.Equal(t, 1, b.Len())

	msgs := a.Messages()
	msgs[0].Content = "mutated"
	assert.Equal(t, "sys", a.Messages()[0].Content)
}
