package models

import "fmt"

// ApplicationStatus values mirror the applications_status_check constraint.
//
//	pending ──► reviewed ──► interview ──► accepted
//	   │            │            │
//	   └────────────┴────────────┴──► rejected | withdrawn
//
// accepted, rejected and withdrawn are terminal. pending may also jump
// straight to interview or accepted.
type ApplicationStatus string

const (
	StatusPending   ApplicationStatus = "pending"
	StatusReviewed  ApplicationStatus = "reviewed"
	StatusInterview ApplicationStatus = "interview"
	StatusAccepted  ApplicationStatus = "accepted"
	StatusRejected  ApplicationStatus = "rejected"
	StatusWithdrawn ApplicationStatus = "withdrawn"
)

var validTransitions = map[ApplicationStatus][]ApplicationStatus{
	StatusPending:   {StatusReviewed, StatusInterview, StatusAccepted, StatusRejected, StatusWithdrawn},
	StatusReviewed:  {StatusInterview, StatusAccepted, StatusRejected, StatusWithdrawn},
	StatusInterview: {StatusAccepted, StatusRejected, StatusWithdrawn},
}

// ParseStatus converts a raw string, rejecting unknown values.
func ParseStatus(s string) (ApplicationStatus, error) {
	st := ApplicationStatus(s)
	switch st {
	case StatusPending, StatusReviewed, StatusInterview, StatusAccepted, StatusRejected, StatusWithdrawn:
		return st, nil
	}
	return "", fmt.Errorf("unknown application status %q", s)
}

// IsTransitionAllowed reports whether from → to is a legal move.
func IsTransitionAllowed(from, to ApplicationStatus) bool {
	for _, s := range validTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

func (s ApplicationStatus) IsTerminal() bool {
	_, hasNext := validTransitions[s]
	return !hasNext
}
