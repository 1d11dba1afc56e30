package models

import "time"

// Notification types. Status changes use the status value itself.
const (
	NotificationApplication = "application"
	NotificationShortlisted = "shortlisted"
	NotificationWithdrawn   = "withdrawn"
)

type Notification struct {
	ID            string    `json:"id"`
	JobPostingID  *string   `json:"job_posting_id"`
	ApplicationID *string   `json:"application_id"`
	RecipientID   string    `json:"recipient_id"`
	Message       string    `json:"message"`
	Type          string    `json:"type"`
	Read          bool      `json:"read"`
	CreatedAt     time.Time `json:"created_at"`

	// Joined from job_posting on feed reads.
	JobTitle    string `json:"job_title,omitempty"`
	CompanyName string `json:"company_name,omitempty"`
}
