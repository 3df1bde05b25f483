// internal/models/application.go
package models

import (
	"fmt"
	"strings"
)

// Track selects which supervisor handles an application.
type Track string

const (
	TrackSupport    Track = "support"
	TrackEnablement Track = "enablement"
)

// ParseTrack accepts the track name in any case.
func ParseTrack(s string) (Track, error) {
	switch Track(strings.ToLower(strings.TrimSpace(s))) {
	case TrackSupport:
		return TrackSupport, nil
	case TrackEnablement:
		return TrackEnablement, nil
	default:
		return "", fmt.Errorf("unknown track %q", s)
	}
}

// DocumentRole names the part a document plays in an application.
type DocumentRole string

const (
	RoleResume        DocumentRole = "resume"
	RoleBankStatement DocumentRole = "bank_statement"
	RoleCreditReport  DocumentRole = "credit_report"
)

// Application is one submission. It is built once and never mutated; a
// resubmission is a new Application.
type Application struct {
	ApplicantID string                  `json:"emirates_id"`
	Track       Track                   `json:"track"`
	Profile     map[string]interface{}  `json:"applicant_data"`
	Documents   map[DocumentRole]string `json:"documents,omitempty"`
}

// NewApplication copies profile and documents so later changes by the caller
// cannot leak into a running evaluation.
func NewApplication(applicantID string, track Track, profile map[string]interface{}, documents map[DocumentRole]string) Application {
	p := make(map[string]interface{}, len(profile))
	for k, v := range profile {
		p[k] = v
	}
	d := make(map[DocumentRole]string, len(documents))
	for k, v := range documents {
		d[k] = v
	}
	return Application{ApplicantID: applicantID, Track: track, Profile: p, Documents: d}
}

// Document returns the handle for role.
func (a Application) Document(role DocumentRole) (string, bool) {
	h, ok := a.Documents[role]
	return h, ok && h != ""
}
