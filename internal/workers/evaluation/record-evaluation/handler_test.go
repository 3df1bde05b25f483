// internal/workers/evaluation/record-evaluation/handler_test.go
package recordevaluation

import (
	"context"
	stderrors "errors"
	"testing"

	"social-evaluation/internal/common/errors"
	"social-evaluation/internal/common/logger"
	"social-evaluation/internal/records"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createTestConfig() *Config {
	return LoadConfig()
}

func createTestInput() *Input {
	return &Input{
		EmiratesID:       "784-1",
		EvaluationResult: map[string]interface{}{"financial_support_decision": "Approved"},
	}
}

func TestHandler_Execute_Success(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`INSERT INTO social_evaluation_status`).
		WithArgs("784-1", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(5))

	log := logger.NewTestLogger(t)
	handler := NewHandler(createTestConfig(), records.NewStore(db, log), log)

	output, err := handler.Execute(context.Background(), createTestInput())
	require.NoError(t, err)
	assert.Equal(t, int64(5), output.InsertedID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHandler_Execute_InsertErrorIsRetryable(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`INSERT INTO social_evaluation_status`).
		WillReturnError(stderrors.New("connection reset"))

	log := logger.NewTestLogger(t)
	handler := NewHandler(createTestConfig(), records.NewStore(db, log), log)

	_, err = handler.Execute(context.Background(), createTestInput())
	assert.Equal(t, errors.ErrCodeUpstream, errors.Kind(err))
	assert.True(t, errors.IsRetryableErrorCode(errors.Kind(err)))
}

func TestHandler_Execute_MissingFields(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	log := logger.NewTestLogger(t)
	handler := NewHandler(createTestConfig(), records.NewStore(db, log), log)

	_, err = handler.Execute(context.Background(), &Input{EmiratesID: "784-1"})
	assert.Equal(t, errors.ErrCodeValidation, errors.Kind(err))
}
