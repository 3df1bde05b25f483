// internal/records/store.go
package records

import (
	"context"
	"database/sql"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"strings"
	"time"

	"social-evaluation/internal/common/errors"
	"social-evaluation/internal/common/logger"
	"social-evaluation/internal/models"

	"github.com/google/uuid"
)

var ErrRecordInsertFailed = stderrors.New("RECORD_INSERT_FAILED")

// Store writes decisions to social_evaluation_status and the audit log.
type Store struct {
	db     *sql.DB
	logger logger.Logger
}

func NewStore(db *sql.DB, log logger.Logger) *Store {
	return &Store{
		db:     db,
		logger: log.WithFields(map[string]interface{}{"component": "record-store"}),
	}
}

// HasResult reports whether a decoded JSON value counts as a supplied
// result. null, false, 0, "" and empty arrays or objects do not.
func HasResult(v interface{}) bool {
	switch r := v.(type) {
	case nil:
		return false
	case bool:
		return r
	case float64:
		return r != 0
	case int:
		return r != 0
	case int64:
		return r != 0
	case json.Number:
		f, err := r.Float64()
		return err != nil || f != 0
	case string:
		return r != ""
	case []interface{}:
		return len(r) > 0
	case map[string]interface{}:
		return len(r) > 0
	case json.RawMessage:
		var decoded interface{}
		if err := json.Unmarshal(r, &decoded); err != nil {
			return len(r) > 0
		}
		return HasResult(decoded)
	default:
		return true
	}
}

// Insert stores one evaluation result and returns the generated row id.
// result may be any JSON value; it is stored serialized.
func (s *Store) Insert(ctx context.Context, emiratesID string, result interface{}) (int64, error) {
	if strings.TrimSpace(emiratesID) == "" || !HasResult(result) {
		return 0, errors.NewValidationError("Missing required fields")
	}

	payload, err := json.Marshal(result)
	if err != nil {
		return 0, errors.NewValidationError("evaluation_result is not serializable")
	}

	var id int64
	err = s.db.QueryRowContext(ctx, `
		INSERT INTO social_evaluation_status (emirates_id, evaluation_result)
		VALUES ($1, $2)
		RETURNING id`,
		emiratesID, payload,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrRecordInsertFailed, err)
	}

	s.logger.Info("evaluation record stored", map[string]interface{}{
		"insertedId": id,
		"emiratesId": emiratesID,
	})
	return id, nil
}

// RecordDecision stores the caller-facing result of d and appends an audit
// entry. A failed audit insert is logged, not returned.
func (s *Store) RecordDecision(ctx context.Context, d models.Decision) (int64, error) {
	id, err := s.Insert(ctx, d.ApplicantID, DecisionResult(d))
	if err != nil {
		return 0, err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO evaluation_audit_log (id, evaluation_id, emirates_id, track, outcome, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		uuid.New().String(),
		d.EvaluationID,
		d.ApplicantID,
		string(d.Track),
		string(d.Outcome),
		time.Now().UTC(),
	)
	if err != nil {
		s.logger.Warn("audit log insert failed", map[string]interface{}{
			"error":        err.Error(),
			"evaluationId": d.EvaluationID,
		})
	}
	return id, nil
}

// DecisionResult is the evaluation_result document stored for d.
func DecisionResult(d models.Decision) map[string]interface{} {
	return map[string]interface{}{
		"evaluation_id": d.EvaluationID,
		"track":         string(d.Track),
		"outcome":       string(d.Outcome),
		"result":        d.Payload(),
		"decided_at":    d.DecidedAt,
	}
}
