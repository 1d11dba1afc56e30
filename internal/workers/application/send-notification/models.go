// internal/workers/application/send-notification/models.go
package sendnotification

// Input names a stored notification row to deliver out of band.
type Input struct {
	NotificationID string `json:"notificationId"`
}

type Output struct {
	NotificationID string   `json:"notificationId"`
	Status         string   `json:"status"` // "sent", "partial", "disabled"
	Channels       []string `json:"channels"`
	Failed         []string `json:"failedChannels,omitempty"`
	SentAt         string   `json:"sentAt"` // ISO 8601
}

// Statuses
const (
	StatusSent     = "sent"
	StatusPartial  = "partial"
	StatusDisabled = "disabled"
)

// Channels
const (
	ChannelEmail = "email"
	ChannelSMS   = "sms"
)

var subjects = map[string]string{
	"application": "New application received",
	"shortlisted": "Your application was shortlisted",
	"withdrawn":   "An application was withdrawn",
	"reviewed":    "Your application is under review",
	"interview":   "Interview invitation",
	"accepted":    "Your application was accepted",
	"rejected":    "Update on your application",
}

const defaultSubject = "Update on your application"
