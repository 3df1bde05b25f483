// internal/workers/evaluation/record-evaluation/models.go
package recordevaluation

type Input struct {
	EmiratesID       string      `json:"emiratesId"`
	EvaluationResult interface{} `json:"evaluationResult"`
}

type Output struct {
	InsertedID int64 `json:"insertedId"`
}
