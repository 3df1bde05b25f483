// internal/service/request.go
package service

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"social-evaluation/internal/common/errors"
	"social-evaluation/internal/common/validation"
	"social-evaluation/internal/models"
)

// MissingIdentityMessage is returned when a request lacks the applicant id
// or profile.
const MissingIdentityMessage = "Missing emirates_id or applicant_data"

// Request is one submission as received at the edge.
type Request struct {
	Track       string                 `json:"track,omitempty"`
	ApplicantID string                 `json:"emirates_id"`
	Profile     map[string]interface{} `json:"applicant_data"`
	Documents   map[string]string      `json:"documents,omitempty"`
}

var defaultHandleTemplates = map[models.DocumentRole]string{
	models.RoleBankStatement: "bank-statements/{id}.xlsx",
	models.RoleCreditReport:  "credit-reports/{id}.pdf",
}

var trackDocuments = map[models.Track][]models.DocumentRole{
	models.TrackSupport:    {models.RoleBankStatement, models.RoleCreditReport},
	models.TrackEnablement: {models.RoleResume},
}

// buildApplication validates req and resolves its document handles. Nothing
// upstream is contacted.
func buildApplication(req Request, templates map[string]string) (models.Application, error) {
	id := strings.TrimSpace(req.ApplicantID)
	if id == "" || len(req.Profile) == 0 {
		return models.Application{}, errors.NewValidationError(MissingIdentityMessage)
	}

	track, err := models.ParseTrack(req.Track)
	if err != nil {
		return models.Application{}, errors.NewValidationError(fmt.Sprintf("Unknown track: %q", req.Track))
	}

	vr := &validation.ValidationResult{Valid: true}
	validateProfile(track, req.Profile, vr)
	if !vr.Valid {
		return models.Application{}, errors.NewValidationError(strings.Join(vr.GetErrorMessages(), "; "))
	}

	docs, err := resolveDocuments(track, id, req, templates)
	if err != nil {
		return models.Application{}, err
	}
	return models.NewApplication(id, track, req.Profile, docs), nil
}

func validateProfile(track models.Track, profile map[string]interface{}, vr *validation.ValidationResult) {
	employed, ok := yesNo(profile["CurrentlyEmployed"])
	if !ok {
		vr.Add("CurrentlyEmployed", "INVALID_VALUE", "must be Yes or No")
	} else if employed {
		requireKeys(profile, vr, "employer_name", "current_monthly_income")
	} else {
		requireKeys(profile, vr, "last_drawn_salary", "last_employment_date")
	}

	switch track {
	case models.TrackSupport:
		requireKeys(profile, vr, "marital_status")
		if _, present := profile["num_children"]; !present {
			vr.Add("num_children", "REQUIRED_FIELD_MISSING", "required field missing")
		} else if _, ok := nonNegativeInt(profile["num_children"]); !ok {
			vr.Add("num_children", "INVALID_VALUE", "must be a non-negative integer")
		}
	case models.TrackEnablement:
		requireKeys(profile, vr, "current_work_domain")
	}
}

func requireKeys(profile map[string]interface{}, vr *validation.ValidationResult, keys ...string) {
	for _, k := range keys {
		v, ok := profile[k]
		if !ok || v == nil {
			vr.Add(k, "REQUIRED_FIELD_MISSING", "required field missing")
			continue
		}
		if s, isString := v.(string); isString && strings.TrimSpace(s) == "" {
			vr.Add(k, "REQUIRED_FIELD_MISSING", "required field missing")
		}
	}
}

func yesNo(v interface{}) (bool, bool) {
	switch t := v.(type) {
	case string:
		switch strings.ToLower(strings.TrimSpace(t)) {
		case "yes":
			return true, true
		case "no":
			return false, true
		}
	case bool:
		return t, true
	}
	return false, false
}

func nonNegativeInt(v interface{}) (int, bool) {
	switch t := v.(type) {
	case float64:
		if t < 0 || t != math.Trunc(t) {
			return 0, false
		}
		return int(t), true
	case int:
		return t, t >= 0
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(t))
		if err != nil || n < 0 {
			return 0, false
		}
		return n, true
	}
	return 0, false
}

func resolveDocuments(track models.Track, id string, req Request, templates map[string]string) (map[models.DocumentRole]string, error) {
	for role := range req.Documents {
		switch models.DocumentRole(role) {
		case models.RoleResume, models.RoleBankStatement, models.RoleCreditReport:
		default:
			return nil, errors.NewValidationError(fmt.Sprintf("Unknown document role: %q", role))
		}
	}

	docs := make(map[models.DocumentRole]string)
	for _, role := range trackDocuments[track] {
		if h := strings.TrimSpace(req.Documents[string(role)]); h != "" {
			docs[role] = h
			continue
		}
		if role == models.RoleResume {
			if h, ok := req.Profile["resume"].(string); ok && strings.TrimSpace(h) != "" {
				docs[role] = strings.TrimSpace(h)
				continue
			}
			return nil, errors.NewValidationError("Missing resume document")
		}
		tmpl := templates[string(role)]
		if tmpl == "" {
			tmpl = defaultHandleTemplates[role]
		}
		docs[role] = strings.ReplaceAll(tmpl, "{id}", id)
	}
	return docs, nil
}
