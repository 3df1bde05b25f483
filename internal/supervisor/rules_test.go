package supervisor

import (
	"testing"

	"social-evaluation/internal/common/errors"
	"social-evaluation/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecideSupport(t *testing.T) {
	tests := []struct {
		name    string
		in      SupportInputs
		outcome models.Outcome
		reason  string
	}{
		{
			name:    "low risk, low burden",
			in:      SupportInputs{CreditRisk: "Low", DebtToIncome: 0.3, BurdenScore: 0.2, ComplianceFlag: true},
			outcome: models.OutcomeApproved,
			reason:  "Low burden and acceptable credit",
		},
		{
			name:    "high debt to income",
			in:      SupportInputs{CreditRisk: "Low", DebtToIncome: 0.85, BurdenScore: 0.4, ComplianceFlag: true},
			outcome: models.OutcomeSoftDecline,
			reason:  "High debt-to-income ratio",
		},
		{
			name:    "moderate debt to income",
			in:      SupportInputs{CreditRisk: "Low", DebtToIncome: 0.6, BurdenScore: 0.4, ComplianceFlag: true},
			outcome: models.OutcomeApprovedWithConditions,
			reason:  "Moderate debt-to-income ratio",
		},
		{
			name:    "moderate debt to income and moderate burden",
			in:      SupportInputs{CreditRisk: "Low", DebtToIncome: 0.6, BurdenScore: 0.6, ComplianceFlag: true},
			outcome: models.OutcomeApprovedWithConditions,
			reason:  "Moderate debt-to-income ratio and financial burden",
		},
		{
			name:    "burden exactly at approve threshold",
			in:      SupportInputs{CreditRisk: "Low", DebtToIncome: 0.2, BurdenScore: 0.5, ComplianceFlag: true},
			outcome: models.OutcomeApprovedWithConditions,
			reason:  "Moderate financial burden",
		},
		{
			name:    "dti exactly at decline threshold",
			in:      SupportInputs{CreditRisk: "Low", DebtToIncome: 0.8, BurdenScore: 0.2, ComplianceFlag: true},
			outcome: models.OutcomeApprovedWithConditions,
		},
		{
			name:    "dti exactly at approve threshold",
			in:      SupportInputs{CreditRisk: "Low", DebtToIncome: 0.5, BurdenScore: 0.2, ComplianceFlag: true},
			outcome: models.OutcomeApprovedWithConditions,
		},
		{
			name:    "burden exactly at decline threshold",
			in:      SupportInputs{CreditRisk: "Low", DebtToIncome: 0.2, BurdenScore: 0.8, ComplianceFlag: true},
			outcome: models.OutcomeApprovedWithConditions,
			reason:  "Moderate financial burden",
		},
		{
			name:    "burden above decline threshold",
			in:      SupportInputs{CreditRisk: "Low", DebtToIncome: 0.2, BurdenScore: 0.81, ComplianceFlag: true},
			outcome: models.OutcomeSoftDecline,
			reason:  "High financial burden",
		},
		{
			name:    "high credit risk wins over low ratios",
			in:      SupportInputs{CreditRisk: "High", DebtToIncome: 0.1, BurdenScore: 0.1, ComplianceFlag: true},
			outcome: models.OutcomeSoftDecline,
			reason:  "High credit risk",
		},
		{
			name:    "non compliant",
			in:      SupportInputs{CreditRisk: "Low", DebtToIncome: 0.1, BurdenScore: 0.1, ComplianceFlag: false},
			outcome: models.OutcomeSoftDecline,
			reason:  "Credit policy non-compliance",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			outcome, reason := DecideSupport(tt.in)
			assert.Equal(t, tt.outcome, outcome)
			if tt.reason != "" {
				assert.Equal(t, tt.reason, reason)
			}
			assert.NotEmpty(t, reason)

			again, againReason := DecideSupport(tt.in)
			assert.Equal(t, outcome, again)
			assert.Equal(t, reason, againReason)
		})
	}
}

func TestSupportInputsFromMissingField(t *testing.T) {
	hardship := models.NewVerdict(models.KindFinancialHardship, map[string]interface{}{"debt_to_income": 0.3}, "{}")
	credit := models.NewVerdict(models.KindCreditRisk, map[string]interface{}{"credit_risk": "Low", "compliance_flag": true}, "{}")

	_, err := supportInputsFrom(hardship, credit)
	require.Error(t, err)

	var evalErr *EvaluationError
	require.ErrorAs(t, err, &evalErr)
	assert.Equal(t, models.KindFinancialHardship, evalErr.Kind)
	assert.Equal(t, errors.ErrCodeSchema, errors.Kind(err))
}

func TestRoundBudget(t *testing.T) {
	b := NewRoundBudget(2)
	assert.NoError(t, b.Charge())
	assert.NoError(t, b.Charge())
	assert.Error(t, b.Charge())
	assert.Equal(t, 2, b.Used())
	assert.Equal(t, 0, b.Remaining())

	assert.Equal(t, DefaultMaxRounds, NewRoundBudget(0).Remaining())
}
