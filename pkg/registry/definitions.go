// pkg/registry/definitions.go
package registry

// Built-in evaluator definitions. A YAML definitions file may override any
// field per kind.

func careerSchema(extra map[string]interface{}, required ...string) map[string]interface{} {
	props := map[string]interface{}{
		"employment_gap_months":    map[string]interface{}{"type": "integer", "minimum": 0},
		"career_alignment_score":   map[string]interface{}{"type": "number", "minimum": 0, "maximum": 1},
		"in_demand_skills_matched": map[string]interface{}{"type": "array", "items": map[string]interface{}{"type": "string"}},
		"rehire_potential":         map[string]interface{}{"type": "string", "enum": []interface{}{"High", "Moderate", "Low"}},
	}
	for k, v := range extra {
		props[k] = v
	}
	req := []interface{}{"employment_gap_months", "career_alignment_score", "in_demand_skills_matched", "rehire_potential"}
	for _, r := range required {
		req = append(req, r)
	}
	return map[string]interface{}{
		"type":       "object",
		"required":   req,
		"properties": props,
	}
}

func defaultDefinitions() []Definition {
	return []Definition{
		{
			Kind:         "career-readiness",
			DisplayName:  "Career Readiness",
			DocumentRole: "resume",
			Collection:   "career_trends",
			K:            1,
			FetchK:       2,
			SystemInstruction: "You are a Career Readiness Evaluation Agent for the UAE job market.\n" +
				"Evaluate the applicant's employability using the resume summary and the market context.\n" +
				"Match experience and skills against booming roles, list the in-demand tools and skills found,\n" +
				"predict short-term rehire potential from hiring demand and estimate the employment gap in whole months.\n" +
				"Do not explain your reasoning. Return only a JSON object with exactly these keys:\n" +
				"employment_gap_months (integer), career_alignment_score (number between 0 and 1),\n" +
				"in_demand_skills_matched (list of strings), rehire_potential (\"High\", \"Moderate\" or \"Low\").",
			QueryInstruction: "Booming UAE job roles and in-demand skills relevant to this resume.",
			OutputSchema:     careerSchema(nil),
			Tags:             []string{"enablement"},
		},
		{
			Kind:         "upskilling-match",
			DisplayName:  "Upskilling Program Match",
			DocumentRole: "resume",
			Collection:   "upskilling_training",
			K:            2,
			FetchK:       4,
			SystemInstruction: "You are an Upskilling Program Recommendation Agent.\n" +
				"Use the resume summary, the applicant profile and the program catalogue excerpts to recommend\n" +
				"practical, accessible training or career transition programs that fill current skill gaps\n" +
				"and improve short-term employability.\n" +
				"Return only a JSON object with exactly these keys:\n" +
				"employment_gap_months (integer), career_alignment_score (number between 0 and 1),\n" +
				"in_demand_skills_matched (list of strings), rehire_potential (\"High\", \"Moderate\" or \"Low\"),\n" +
				"recommended_course_topics (list of strings).",
			QueryInstruction: "Upskilling and job placement programs suited to this resume and work domain.",
			OutputSchema: careerSchema(map[string]interface{}{
				"recommended_course_topics": map[string]interface{}{"type": "array", "items": map[string]interface{}{"type": "string"}},
			}, "recommended_course_topics"),
			Tags: []string{"enablement"},
		},
		{
			Kind:         "credit-risk",
			DisplayName:  "Credit Risk",
			DocumentRole: "credit_report",
			Collection:   "credit_policy_collection",
			K:            1,
			FetchK:       2,
			SystemInstruction: "You are a Credit Risk Evaluation Agent.\n" +
				"Assess whether the applicant's credit report violates any financial support policy, basing the\n" +
				"evaluation only on the policy clauses provided.\n" +
				"Do not explain your reasoning. Return only a JSON object with exactly these keys:\n" +
				"credit_risk (\"High\" or \"Low\"), policy_matches (list of strings such as \"DTI >= 0.4\"),\n" +
				"compliance_flag (true or false).",
			QueryInstruction: "Given the summary of the credit report of an applicant, check whether the applicant " +
				"is eligible for financial support given the credit policy rules.",
			OutputSchema: map[string]interface{}{
				"type":     "object",
				"required": []interface{}{"credit_risk", "policy_matches", "compliance_flag"},
				"properties": map[string]interface{}{
					"credit_risk":     map[string]interface{}{"type": "string", "enum": []interface{}{"High", "Low"}},
					"policy_matches":  map[string]interface{}{"type": "array", "items": map[string]interface{}{"type": "string"}},
					"compliance_flag": map[string]interface{}{"type": "boolean"},
				},
			},
			Tags: []string{"support"},
		},
		{
			Kind:         "financial-hardship",
			DisplayName:  "Financial Hardship",
			DocumentRole: "bank_statement",
			Collection:   "hardship_guidelines",
			K:            1,
			FetchK:       2,
			SystemInstruction: "You are a Financial Hardship Assessment Agent.\n" +
				"Calculate the applicant's financial hardship from income, liabilities and number of dependents.\n" +
				"Compute the debt-to-income ratio, the monthly disposable income after liabilities and the\n" +
				"per-dependent allocation, then score the overall burden between 0 and 1.\n" +
				"Return only a JSON object with exactly these keys and no commentary:\n" +
				"net_worth (number), debt_to_income (number), burden_score (number).",
			QueryInstruction: "Summarize the bank statement with key points highlighting the factors that will " +
				"contribute to the applicant's economic support plan.",
			OutputSchema: map[string]interface{}{
				"type":     "object",
				"required": []interface{}{"net_worth", "debt_to_income", "burden_score"},
				"properties": map[string]interface{}{
					"net_worth":      map[string]interface{}{"type": "number"},
					"debt_to_income": map[string]interface{}{"type": "number"},
					"burden_score":   map[string]interface{}{"type": "number"},
				},
			},
			Tags: []string{"support"},
		},
	}
}

// EnablementSynthesisInstruction asks the engine to merge both enablement
// verdicts into the applicant-facing narrative.
const EnablementSynthesisInstruction = "You are the Enablement Planning Supervisor.\n" +
	"You receive the combined results of a career readiness evaluation and an upskilling program match.\n" +
	"Write a unified response in natural language addressed to the applicant that considers\n" +
	"employment_gap_months, career_alignment_score, in_demand_skills_matched, rehire_potential and\n" +
	"recommended_course_topics. Do not return JSON."
