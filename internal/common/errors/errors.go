// Package errors provides the structured error type shared by the wizard,
// the stores, the HTTP API and the BPMN job workers.
package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	ErrCodeApplicationValidationFailed ErrorCode = "APPLICATION_VALIDATION_FAILED"
	ErrCodeResumeTooLarge              ErrorCode = "RESUME_TOO_LARGE"
	ErrCodeResumeTypeUnsupported       ErrorCode = "RESUME_TYPE_UNSUPPORTED"
	ErrCodeResumeUploadFailed          ErrorCode = "RESUME_UPLOAD_FAILED"

	ErrCodeDatabaseConnectionFailed ErrorCode = "DATABASE_CONNECTION_FAILED"
	ErrCodeDatabaseInsertFailed     ErrorCode = "DATABASE_INSERT_FAILED"
	ErrCodeQueryExecutionFailed     ErrorCode = "QUERY_EXECUTION_FAILED"

	ErrCodeApplicationNotFound     ErrorCode = "APPLICATION_NOT_FOUND"
	ErrCodeInvalidStatusTransition ErrorCode = "INVALID_STATUS_TRANSITION"
	ErrCodeStatusConflict          ErrorCode = "STATUS_CONFLICT"
	ErrCodeJobPostingNotFound      ErrorCode = "JOB_POSTING_NOT_FOUND"
	ErrCodeJobPostingInvalid       ErrorCode = "JOB_POSTING_VALIDATION_FAILED"

	ErrCodeNotificationSendFailed ErrorCode = "NOTIFICATION_SEND_FAILED"
	ErrCodeSearchQueryFailed      ErrorCode = "SEARCH_QUERY_FAILED"
	ErrCodeAuthenticationFailed   ErrorCode = "AUTHENTICATION_ERROR"
	ErrCodeAccessDenied           ErrorCode = "ACCESS_DENIED"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// WithMetadata attaches a key to the error's metadata and returns it.
func (e *StandardError) WithMetadata(key string, value interface{}) *StandardError {
	if e.Metadata == nil {
		e.Metadata = make(map[string]interface{})
	}
	e.Metadata[key] = value
	return e
}

// As extracts a *StandardError from an error chain.
func As(err error) (*StandardError, bool) {
	var stdErr *StandardError
	if stderrors.As(err, &stdErr) {
		return stdErr, true
	}
	return nil, false
}

// HasCode reports whether err carries the given code anywhere in its chain.
func HasCode(err error, code ErrorCode) bool {
	stdErr, ok := As(err)
	return ok && stdErr.Code == code
}

// ==========================
// 2. BPMN Error Integration
// ==========================

// BPMNError represents an error that can be thrown to the Camunda workflow engine.
type BPMNError struct {
	Code           string                 `json:"code"`
	Message        string                 `json:"message"`
	Details        string                 `json:"details,omitempty"`
	Retryable      bool                   `json:"retryable"`
	Retries        int                    `json:"retries"`
	ErrorVariables map[string]interface{} `json:"errorVariables,omitempty"`
}

func (e *BPMNError) Error() string {
	return fmt.Sprintf("BPMNError[%s]: %s", e.Code, e.Message)
}

// ToErrorVariables returns a map suitable for setting Camunda job fail variables.
func (e *BPMNError) ToErrorVariables() map[string]interface{} {
	vars := map[string]interface{}{
		"errorCode":    e.Code,
		"errorMessage": e.Message,
		"errorDetails": e.Details,
		"retryable":    e.Retryable,
	}
	for k, v := range e.ErrorVariables {
		vars[k] = v
	}
	return vars
}

// ==========================
// 3. Error Constructors
// ==========================

func NewApplicationValidationFailedError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeApplicationValidationFailed,
		Message:   "Please fill in all required fields",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

func NewResumeTooLargeError(size, limit int64) *StandardError {
	return &StandardError{
		Code:      ErrCodeResumeTooLarge,
		Message:   "Resume file is too large",
		Details:   fmt.Sprintf("size %d bytes exceeds the %d byte limit", size, limit),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

func NewResumeTypeUnsupportedError(contentType string) *StandardError {
	return &StandardError{
		Code:      ErrCodeResumeTypeUnsupported,
		Message:   "Resume must be a PDF, DOC or DOCX file",
		Details:   fmt.Sprintf("contentType: %s", contentType),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewResumeUploadFailedError keeps the store's message in Details so it can
// be surfaced to the applicant verbatim.
func NewResumeUploadFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeResumeUploadFailed,
		Message:   "Resume upload failed",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

func NewDatabaseConnectionFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeDatabaseConnectionFailed,
		Message:   "Database connection error",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

func NewDatabaseInsertFailedError(table string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeDatabaseInsertFailed,
		Message:   fmt.Sprintf("Failed to insert into %s", table),
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

func NewQueryExecutionFailedError(queryType string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeQueryExecutionFailed,
		Message:   "Database query execution error",
		Details:   fmt.Sprintf("queryType: %s, error: %s", queryType, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

func NewApplicationNotFoundError(applicationID string) *StandardError {
	return &StandardError{
		Code:      ErrCodeApplicationNotFound,
		Message:   "Application not found",
		Details:   fmt.Sprintf("applicationId: %s", applicationID),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

func NewInvalidStatusTransitionError(from, to string) *StandardError {
	return &StandardError{
		Code:      ErrCodeInvalidStatusTransition,
		Message:   "Status change not allowed",
		Details:   fmt.Sprintf("%s -> %s", from, to),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewStatusConflictError reports that the row left status expected between
// the read and the write.
func NewStatusConflictError(applicationID, expected string) *StandardError {
	return &StandardError{
		Code:      ErrCodeStatusConflict,
		Message:   "Application status changed concurrently",
		Details:   fmt.Sprintf("applicationId: %s, expected status: %s", applicationID, expected),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

func NewJobPostingNotFoundError(jobID string) *StandardError {
	return &StandardError{
		Code:      ErrCodeJobPostingNotFound,
		Message:   "Job posting not found",
		Details:   fmt.Sprintf("jobPostingId: %s", jobID),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

func NewJobPostingInvalidError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeJobPostingInvalid,
		Message:   "Invalid job posting",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

func NewNotificationSendFailedError(notificationType string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeNotificationSendFailed,
		Message:   "Notification delivery failed",
		Details:   fmt.Sprintf("type: %s, error: %s", notificationType, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

func NewSearchQueryFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeSearchQueryFailed,
		Message:   "Application search failed",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

func NewAuthenticationError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeAuthenticationFailed,
		Message:   "Authentication failed",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

func NewAccessDeniedError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeAccessDenied,
		Message:   "You do not have access to this resource",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

func NewExternalServiceError(service string, err error) *StandardError {
	return &StandardError{
		Code:      "EXTERNAL_SERVICE_ERROR",
		Message:   fmt.Sprintf("External service '%s' error", service),
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// ==========================
// 4. Retry & Category Helpers
// ==========================

// GetRetryCount returns how many job retries a code deserves.
func GetRetryCount(code ErrorCode) int {
	switch code {
	case ErrCodeDatabaseConnectionFailed,
		ErrCodeDatabaseInsertFailed,
		ErrCodeQueryExecutionFailed,
		ErrCodeResumeUploadFailed,
		ErrCodeNotificationSendFailed,
		ErrCodeSearchQueryFailed,
		"EXTERNAL_SERVICE_ERROR":
		return 3
	default:
		return 0 // Business errors: no retry
	}
}

// ConvertToBPMNError maps a StandardError onto a BPMN error.
func ConvertToBPMNError(stdErr *StandardError) *BPMNError {
	retries := GetRetryCount(stdErr.Code)
	if !stdErr.Retryable {
		retries = 0
	}

	return &BPMNError{
		Code:      string(stdErr.Code),
		Message:   stdErr.Message,
		Details:   stdErr.Details,
		Retryable: stdErr.Retryable,
		Retries:   retries,
		ErrorVariables: map[string]interface{}{
			"originalErrorCode": string(stdErr.Code),
			"timestamp":         stdErr.Timestamp.Format(time.RFC3339),
		},
	}
}

func IsRetryableErrorCode(code ErrorCode) bool {
	return GetRetryCount(code) > 0
}

func GetErrorCategory(code ErrorCode) string {
	codeStr := string(code)
	switch {
	case strings.Contains(codeStr, "RESUME"):
		return "STORAGE"
	case strings.Contains(codeStr, "DATABASE") || strings.Contains(codeStr, "QUERY"):
		return "DATABASE"
	case strings.Contains(codeStr, "SEARCH"):
		return "SEARCH"
	case strings.Contains(codeStr, "NOTIFICATION"):
		return "NOTIFICATION"
	case strings.Contains(codeStr, "AUTHENTICATION") || strings.Contains(codeStr, "ACCESS"):
		return "AUTH"
	case strings.Contains(codeStr, "CONFLICT"):
		return "CONFLICT"
	case strings.Contains(codeStr, "NOT_FOUND"):
		return "NOT_FOUND"
	case strings.Contains(codeStr, "INVALID") || strings.Contains(codeStr, "VALIDATION"):
		return "VALIDATION"
	default:
		return "OTHER"
	}
}
