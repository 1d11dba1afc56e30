// internal/workers/application/create-application-record/models.go
package createapplicationrecord

import "hireflow/internal/wizard"

// Input carries a completed wizard form started from a process instead of
// the HTTP API. Resume bytes are attached through the API only; a process
// may pass the URL of a resume it already stored.
type Input struct {
	ApplicantID  string           `json:"applicantId"`
	Company      string           `json:"company"`
	JobPostingID string           `json:"jobPostingId,omitempty"`
	ResumeURL    string           `json:"resumeUrl,omitempty"`
	Form         wizard.FormState `json:"form"`
}

type Output struct {
	ApplicationID     string `json:"applicationId"`
	ApplicationStatus string `json:"applicationStatus"`
	ResumeURL         string `json:"resumeUrl,omitempty"`
	CreatedAt         string `json:"createdAt"`
}
