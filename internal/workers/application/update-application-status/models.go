// internal/workers/application/update-application-status/models.go
package updateapplicationstatus

type Input struct {
	ApplicationID string `json:"applicationId"`
	Status        string `json:"status"`
}

type Output struct {
	ApplicationID string `json:"applicationId"`
	Status        string `json:"status"`
	ApplicantID   string `json:"applicantId"`
	UpdatedAt     string `json:"updatedAt"`
}
