// internal/engine/corpus/corpus.go
package corpus

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"

	"social-evaluation/internal/common/errors"
	apphttp "social-evaluation/internal/common/http"
	"social-evaluation/internal/common/logger"
	"social-evaluation/internal/common/metrics"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
	"github.com/google/uuid"
)

const Capability = "corpus"

var (
	ErrCorpusQueryFailed = stderrors.New("CORPUS_QUERY_FAILED")
	ErrInvalidQuery      = stderrors.New("INVALID_CORPUS_QUERY")
)

// Corpus retrieves grounding passages from a named collection.
type Corpus interface {
	Search(ctx context.Context, q Query) ([]Passage, error)
}

// ElasticCorpus stores each collection in its own Elasticsearch index.
type ElasticCorpus struct {
	client *elasticsearch.Client
	prefix string
	retry  apphttp.RetryPolicy
	logger logger.Logger
}

func NewElasticCorpus(client *elasticsearch.Client, indexPrefix string, retry apphttp.RetryPolicy, log logger.Logger) *ElasticCorpus {
	if retry.MaxAttempts == 0 {
		retry = apphttp.DefaultRetryPolicy
	}
	return &ElasticCorpus{
		client: client,
		prefix: indexPrefix,
		retry:  retry,
		logger: log.WithFields(map[string]interface{}{"component": "corpus"}),
	}
}

func (c *ElasticCorpus) index(collection string) string {
	return c.prefix + collection
}

// Search fetches FetchK candidates by full-text relevance and keeps K of them
// with MMR.
func (c *ElasticCorpus) Search(ctx context.Context, q Query) ([]Passage, error) {
	if q.Collection == "" || q.K < 1 {
		return nil, errors.NewInternalError(fmt.Errorf("%w: collection=%q k=%d", ErrInvalidQuery, q.Collection, q.K))
	}
	fetchK := q.FetchK
	if fetchK < q.K {
		fetchK = q.K
	}

	body, err := json.Marshal(map[string]interface{}{
		"size": fetchK,
		"query": map[string]interface{}{
			"match": map[string]interface{}{"content": q.Text},
		},
	})
	if err != nil {
		return nil, errors.NewInternalError(err)
	}

	var candidates []Passage
	err = apphttp.Retry(ctx, c.retry, func(ctx context.Context) error {
		var searchErr error
		candidates, searchErr = c.search(ctx, q.Collection, body)
		return searchErr
	}, func(attempt int, err error) {
		metrics.UpstreamRetries.WithLabelValues(Capability).Inc()
		c.logger.Warn("corpus search failed, retrying", map[string]interface{}{
			"collection": q.Collection,
			"attempt":    attempt,
			"error":      err.Error(),
		})
	})
	if err != nil {
		if stderrors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, errors.NewTimeoutError(Capability, err)
		}
		return nil, errors.NewUpstreamError(Capability, fmt.Errorf("%w: %v", ErrCorpusQueryFailed, err))
	}

	return MMR(candidates, q.K, 1-q.Diversity), nil
}

func (c *ElasticCorpus) search(ctx context.Context, collection string, body []byte) ([]Passage, error) {
	req := esapi.SearchRequest{
		Index: []string{c.index(collection)},
		Body:  bytes.NewReader(body),
	}
	res, err := req.Do(ctx, c.client)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	if res.IsError() {
		raw, _ := io.ReadAll(io.LimitReader(res.Body, 2048))
		return nil, &apphttp.StatusError{StatusCode: res.StatusCode, Body: string(raw)}
	}

	var decoded searchResponse
	if err := json.NewDecoder(res.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("failed to decode search response: %w", err)
	}

	passages := make([]Passage, 0, len(decoded.Hits.Hits))
	for _, hit := range decoded.Hits.Hits {
		passages = append(passages, Passage{
			ID:         hit.ID,
			Collection: collection,
			Title:      hit.Source.Title,
			Content:    hit.Source.Content,
			Score:      hit.Score,
			Metadata:   hit.Source.Metadata,
		})
	}
	return passages, nil
}

// EnsureCollection creates the collection index with a text mapping if it
// does not exist yet.
func (c *ElasticCorpus) EnsureCollection(ctx context.Context, collection string) error {
	mapping := `{"mappings":{"properties":{"title":{"type":"keyword"},"content":{"type":"text"},"metadata":{"type":"object","enabled":false}}}}`
	req := esapi.IndicesCreateRequest{
		Index: c.index(collection),
		Body:  bytes.NewReader([]byte(mapping)),
	}
	res, err := req.Do(ctx, c.client)
	if err != nil {
		return fmt.Errorf("create index %s: %w", c.index(collection), err)
	}
	defer res.Body.Close()

	if res.IsError() && res.StatusCode != http.StatusBadRequest {
		return fmt.Errorf("create index %s: %s", c.index(collection), res.Status())
	}
	return nil
}

// IndexPassages bulk-writes passages into a collection and refreshes it.
// Passages without an id get a random one.
func (c *ElasticCorpus) IndexPassages(ctx context.Context, collection string, passages []SeedPassage) (int, error) {
	if len(passages) == 0 {
		return 0, nil
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, p := range passages {
		id := p.ID
		if id == "" {
			id = uuid.New().String()
		}
		meta := map[string]interface{}{"index": map[string]interface{}{"_index": c.index(collection), "_id": id}}
		if err := enc.Encode(meta); err != nil {
			return 0, err
		}
		if err := enc.Encode(map[string]interface{}{"title": p.Title, "content": p.Content, "metadata": p.Metadata}); err != nil {
			return 0, err
		}
	}

	req := esapi.BulkRequest{
		Body:    &buf,
		Refresh: "true",
	}
	res, err := req.Do(ctx, c.client)
	if err != nil {
		return 0, fmt.Errorf("bulk index %s: %w", collection, err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return 0, fmt.Errorf("bulk index %s: %s", collection, res.Status())
	}

	var result struct {
		Errors bool `json:"errors"`
		Items  []map[string]struct {
			Status int `json:"status"`
		} `json:"items"`
	}
	if err := json.NewDecoder(res.Body).Decode(&result); err != nil {
		return 0, fmt.Errorf("decode bulk response: %w", err)
	}

	indexed := 0
	for _, item := range result.Items {
		for _, op := range item {
			if op.Status >= 200 && op.Status < 300 {
				indexed++
			}
		}
	}
	if result.Errors {
		return indexed, fmt.Errorf("bulk index %s: %d of %d passages failed", collection, len(passages)-indexed, len(passages))
	}
	return indexed, nil
}
