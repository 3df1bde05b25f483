// internal/engine/summarizer/source.go
package summarizer

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"social-evaluation/internal/common/errors"
	apphttp "social-evaluation/internal/common/http"
	"social-evaluation/internal/common/metrics"
)

const SourceCapability = "documents"

var (
	ErrDocumentUnavailable = stderrors.New("DOCUMENT_UNAVAILABLE")
	ErrDocumentEmpty       = stderrors.New("DOCUMENT_EMPTY")
)

// Source resolves a document handle to its extracted plain text.
type Source interface {
	Fetch(ctx context.Context, handle string) (string, error)
}

// HTTPSource reads extracted text from the document service:
// GET {base}/documents/text?handle=<handle> -> {"text": "..."}.
type HTTPSource struct {
	http    *apphttp.Client
	baseURL string
	retry   apphttp.RetryPolicy
}

func NewHTTPSource(baseURL string, timeout time.Duration, retry apphttp.RetryPolicy) *HTTPSource {
	if retry.MaxAttempts == 0 {
		retry = apphttp.DefaultRetryPolicy
	}
	return &HTTPSource{
		http:    apphttp.NewClient(timeout),
		baseURL: strings.TrimRight(baseURL, "/"),
		retry:   retry,
	}
}

func (s *HTTPSource) Fetch(ctx context.Context, handle string) (string, error) {
	endpoint := fmt.Sprintf("%s/documents/text?handle=%s", s.baseURL, url.QueryEscape(handle))

	var body struct {
		Text string `json:"text"`
	}
	err := apphttp.Retry(ctx, s.retry, func(ctx context.Context) error {
		return s.http.GetJSON(ctx, endpoint, nil, &body)
	}, func(int, error) {
		metrics.UpstreamRetries.WithLabelValues(SourceCapability).Inc()
	})

	var statusErr *apphttp.StatusError
	switch {
	case err == nil:
	case stderrors.Is(ctx.Err(), context.DeadlineExceeded):
		return "", errors.NewTimeoutError(SourceCapability, err)
	case stderrors.As(err, &statusErr) && statusErr.StatusCode == http.StatusNotFound:
		return "", errors.NewValidationError("Document not found: " + handle)
	default:
		return "", errors.NewUpstreamError(SourceCapability, fmt.Errorf("%w: %v", ErrDocumentUnavailable, err))
	}

	if strings.TrimSpace(body.Text) == "" {
		return "", errors.NewUpstreamError(SourceCapability, ErrDocumentEmpty)
	}
	return body.Text, nil
}
