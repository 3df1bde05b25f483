package api

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"social-evaluation/internal/common/errors"
	"social-evaluation/internal/common/logger"
	"social-evaluation/internal/models"
	"social-evaluation/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubEvaluator struct {
	calls    int32
	lastReq  service.Request
	decision models.Decision
	err      error
}

func (s *stubEvaluator) Submit(ctx context.Context, req service.Request) (models.Decision, error) {
	atomic.AddInt32(&s.calls, 1)
	s.lastReq = req
	return s.decision, s.err
}

type stubWriter struct {
	id     int64
	err    error
	result interface{}
}

func (s *stubWriter) Insert(ctx context.Context, emiratesID string, result interface{}) (int64, error) {
	s.result = result
	return s.id, s.err
}

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestRouter(t *testing.T, ev Evaluator, w RecordWriter, cfg Config) *gin.Engine {
	t.Helper()
	return NewServer(cfg, ev, w, logger.NewTestLogger(t)).Router()
}

func doJSON(r http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if s, ok := body.(string); ok {
		buf.WriteString(s)
	} else if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestEvaluate_SupportPayload(t *testing.T) {
	ev := &stubEvaluator{decision: models.Decision{
		Track:   models.TrackSupport,
		Outcome: models.OutcomeSoftDecline,
		Reason:  "High debt-to-income ratio",
	}}
	r := newTestRouter(t, ev, nil, Config{})

	rec := doJSON(r, http.MethodPost, "/evaluate", EvaluateRequest{
		EmiratesID:    "784-1",
		ApplicantData: map[string]interface{}{"CurrentlyEmployed": "No"},
	})

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	result := body["result"].(map[string]interface{})
	assert.Equal(t, "Soft Decline", result["financial_support_decision"])
	assert.Equal(t, "High debt-to-income ratio", result["reason"])
	assert.Equal(t, "support", ev.lastReq.Track)
}

func TestEvaluate_EnablementPayloadIsText(t *testing.T) {
	ev := &stubEvaluator{decision: models.Decision{
		Track:     models.TrackEnablement,
		Outcome:   models.OutcomeAdvisory,
		Narrative: "Consider the data analytics bootcamp.",
	}}
	r := newTestRouter(t, ev, nil, Config{DefaultTrack: models.TrackEnablement})

	rec := doJSON(r, http.MethodPost, "/evaluate", EvaluateRequest{
		EmiratesID:    "784-2",
		ApplicantData: map[string]interface{}{"current_work_domain": "Retail"},
		Documents:     map[string]string{"resume": "resumes/784-2.pdf"},
	})

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Consider the data analytics bootcamp.", decodeBody(t, rec)["result"])
	assert.Equal(t, "enablement", ev.lastReq.Track)
	assert.Equal(t, "resumes/784-2.pdf", ev.lastReq.Documents["resume"])
}

func TestEvaluate_NamedTrackRoutes(t *testing.T) {
	ev := &stubEvaluator{decision: models.Decision{Track: models.TrackSupport, Outcome: models.OutcomeApproved}}
	r := newTestRouter(t, ev, nil, Config{DefaultTrack: models.TrackEnablement})

	rec := doJSON(r, http.MethodPost, "/support/evaluate", EvaluateRequest{EmiratesID: "1", ApplicantData: map[string]interface{}{"a": 1}})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "support", ev.lastReq.Track)

	doJSON(r, http.MethodPost, "/enablement/evaluate", EvaluateRequest{EmiratesID: "1", ApplicantData: map[string]interface{}{"a": 1}})
	assert.Equal(t, "enablement", ev.lastReq.Track)
}

func TestEvaluate_MissingApplicantDataMakesNoCalls(t *testing.T) {
	ev := &stubEvaluator{}
	r := newTestRouter(t, ev, nil, Config{})

	for _, body := range []interface{}{
		map[string]interface{}{"emirates_id": "784-1"},
		map[string]interface{}{"applicant_data": map[string]interface{}{"a": 1}},
		map[string]interface{}{"emirates_id": "784-1", "applicant_data": map[string]interface{}{}},
		nil,
	} {
		rec := doJSON(r, http.MethodPost, "/evaluate", body)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "Missing emirates_id or applicant_data", decodeBody(t, rec)["error"])
	}
	assert.Equal(t, int32(0), atomic.LoadInt32(&ev.calls))
}

func TestEvaluate_ErrorMapping(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		status  int
		message string
	}{
		{"validation", errors.NewValidationError("num_children: must be a non-negative integer"), http.StatusBadRequest, "num_children: must be a non-negative integer"},
		{"in progress", errors.NewEvaluationInProgressError("784-1"), http.StatusConflict, "Evaluation already in progress"},
		{"schema", errors.NewSchemaError("credit-risk", "garbage", stderrors.New("x")), http.StatusInternalServerError, "Internal processing error"},
		{"timeout", errors.NewTimeoutError("evaluation", stderrors.New("x")), http.StatusInternalServerError, "Evaluation timed out"},
		{"upstream", errors.NewUpstreamError("reasoning", stderrors.New("503")), http.StatusInternalServerError, "Internal processing error"},
		{"plain", stderrors.New("boom"), http.StatusInternalServerError, "Internal processing error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newTestRouter(t, &stubEvaluator{err: tt.err}, nil, Config{})
			rec := doJSON(r, http.MethodPost, "/evaluate", EvaluateRequest{EmiratesID: "784-1", ApplicantData: map[string]interface{}{"a": 1}})

			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, tt.message, decodeBody(t, rec)["error"])
		})
	}
}

func TestEvaluate_InvalidJSON(t *testing.T) {
	ev := &stubEvaluator{}
	r := newTestRouter(t, ev, nil, Config{})

	rec := doJSON(r, http.MethodPost, "/evaluate", `{"emirates_id":`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, int32(0), atomic.LoadInt32(&ev.calls))
}

func TestSubmit(t *testing.T) {
	r := newTestRouter(t, nil, &stubWriter{id: 12}, Config{})
	rec := doJSON(r, http.MethodPost, "/submit", SubmitRequest{
		EmiratesID:       "784-1",
		EvaluationResult: map[string]interface{}{"financial_support_decision": "Approved"},
	})

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "success", body["status"])
	assert.Equal(t, float64(12), body["inserted_id"])
}

func TestSubmit_MissingFields(t *testing.T) {
	r := newTestRouter(t, nil, &stubWriter{id: 1}, Config{})
	rec := doJSON(r, http.MethodPost, "/submit", map[string]interface{}{"emirates_id": "784-1"})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Missing required fields", decodeBody(t, rec)["error"])

	for _, empty := range []string{`null`, `""`, `false`, `0`, `[]`, `{}`} {
		rec = doJSON(r, http.MethodPost, "/submit", `{"emirates_id":"784-1","evaluation_result":`+empty+`}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code, empty)
		assert.Equal(t, "Missing required fields", decodeBody(t, rec)["error"], empty)
	}
}

func TestSubmit_AcceptsAnyJSONResult(t *testing.T) {
	tests := []struct {
		body string
		want interface{}
	}{
		{`{"emirates_id":"784-1","evaluation_result":"Approved with Conditions"}`, "Approved with Conditions"},
		{`{"emirates_id":"784-1","evaluation_result":["Approved"]}`, []interface{}{"Approved"}},
		{`{"emirates_id":"784-1","evaluation_result":true}`, true},
	}
	for _, tt := range tests {
		w := &stubWriter{id: 7}
		r := newTestRouter(t, nil, w, Config{})
		rec := doJSON(r, http.MethodPost, "/submit", tt.body)

		require.Equal(t, http.StatusOK, rec.Code, tt.body)
		assert.Equal(t, float64(7), decodeBody(t, rec)["inserted_id"])
		assert.Equal(t, tt.want, w.result)
	}
}

func TestSubmit_DatabaseFailure(t *testing.T) {
	r := newTestRouter(t, nil, &stubWriter{err: stderrors.New("connection refused")}, Config{})
	rec := doJSON(r, http.MethodPost, "/submit", SubmitRequest{
		EmiratesID:       "784-1",
		EvaluationResult: map[string]interface{}{"a": 1},
	})

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Internal server error", decodeBody(t, rec)["error"])
}

func TestHealthAndReady(t *testing.T) {
	r := newTestRouter(t, nil, nil, Config{Checks: map[string]Check{
		"postgres": func(ctx context.Context) error { return nil },
		"redis":    func(ctx context.Context) error { return stderrors.New("dial tcp: refused") },
	}})

	rec := doJSON(r, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(r, http.MethodGet, "/ready", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	checks := decodeBody(t, rec)["checks"].(map[string]interface{})
	assert.Equal(t, "ok", checks["postgres"])
	assert.Equal(t, "dial tcp: refused", checks["redis"])
}

func TestMetricsEndpoint(t *testing.T) {
	r := newTestRouter(t, nil, nil, Config{})
	rec := doJSON(r, http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}
