package supervisor

import (
	"fmt"

	"social-evaluation/internal/common/errors"
	"social-evaluation/internal/models"
)

const (
	approveThreshold = 0.5
	declineThreshold = 0.8
)

// SupportInputs are the verdict fields the support rule reads.
type SupportInputs struct {
	CreditRisk     string
	DebtToIncome   float64
	BurdenScore    float64
	ComplianceFlag bool
}

// DecideSupport is the support reconciliation rule. It is a pure function of
// its inputs; thresholds are strict on both sides.
func DecideSupport(in SupportInputs) (models.Outcome, string) {
	switch {
	case in.CreditRisk == "High":
		return models.OutcomeSoftDecline, "High credit risk"
	case in.DebtToIncome > declineThreshold:
		return models.OutcomeSoftDecline, "High debt-to-income ratio"
	case in.BurdenScore > declineThreshold:
		return models.OutcomeSoftDecline, "High financial burden"
	case !in.ComplianceFlag:
		return models.OutcomeSoftDecline, "Credit policy non-compliance"
	}

	if in.CreditRisk == "Low" && in.DebtToIncome < approveThreshold && in.BurdenScore < approveThreshold {
		return models.OutcomeApproved, "Low burden and acceptable credit"
	}

	switch {
	case in.DebtToIncome >= approveThreshold && in.BurdenScore >= approveThreshold:
		return models.OutcomeApprovedWithConditions, "Moderate debt-to-income ratio and financial burden"
	case in.DebtToIncome >= approveThreshold:
		return models.OutcomeApprovedWithConditions, "Moderate debt-to-income ratio"
	case in.BurdenScore >= approveThreshold:
		return models.OutcomeApprovedWithConditions, "Moderate financial burden"
	default:
		return models.OutcomeApprovedWithConditions, fmt.Sprintf("Credit risk rated %q", in.CreditRisk)
	}
}

// supportInputsFrom reads the rule inputs out of the two support verdicts.
func supportInputsFrom(hardship, credit models.Verdict) (SupportInputs, error) {
	var in SupportInputs
	var ok bool

	if in.DebtToIncome, ok = hardship.Float("debt_to_income"); !ok {
		return in, missingField(hardship, "debt_to_income")
	}
	if in.BurdenScore, ok = hardship.Float("burden_score"); !ok {
		return in, missingField(hardship, "burden_score")
	}
	if in.CreditRisk, ok = credit.String("credit_risk"); !ok {
		return in, missingField(credit, "credit_risk")
	}
	if in.ComplianceFlag, ok = credit.Bool("compliance_flag"); !ok {
		return in, missingField(credit, "compliance_flag")
	}
	return in, nil
}

func missingField(v models.Verdict, field string) error {
	return &EvaluationError{
		Kind: v.Kind,
		Err:  errors.NewSchemaError(string(v.Kind), v.RawText, fmt.Errorf("verdict has no usable %s", field)),
	}
}
