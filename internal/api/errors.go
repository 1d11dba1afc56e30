package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "hireflow/internal/common/errors"
	"hireflow/internal/notifications"
	"hireflow/internal/wizard"
)

// ErrorBody is the single JSON error envelope of the API.
type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

var codeStatus = map[apperrors.ErrorCode]int{
	apperrors.ErrCodeApplicationValidationFailed: http.StatusUnprocessableEntity,
	apperrors.ErrCodeResumeTooLarge:              http.StatusRequestEntityTooLarge,
	apperrors.ErrCodeResumeTypeUnsupported:       http.StatusUnsupportedMediaType,
	apperrors.ErrCodeResumeUploadFailed:          http.StatusBadGateway,
	apperrors.ErrCodeApplicationNotFound:         http.StatusNotFound,
	apperrors.ErrCodeJobPostingNotFound:          http.StatusNotFound,
	apperrors.ErrCodeInvalidStatusTransition:     http.StatusConflict,
	apperrors.ErrCodeStatusConflict:              http.StatusConflict,
	apperrors.ErrCodeJobPostingInvalid:           http.StatusBadRequest,
	apperrors.ErrCodeAccessDenied:                http.StatusForbidden,
	apperrors.ErrCodeAuthenticationFailed:        http.StatusUnauthorized,
	apperrors.ErrCodeSearchQueryFailed:           http.StatusBadGateway,
}

var sentinelStatus = []struct {
	err    error
	status int
}{
	{ErrSessionNotFound, http.StatusNotFound},
	{notifications.ErrNotFound, http.StatusNotFound},
	{wizard.ErrIncomplete, http.StatusUnprocessableEntity},
	{wizard.ErrResumeTooLarge, http.StatusRequestEntityTooLarge},
	{wizard.ErrResumeUnsupported, http.StatusUnsupportedMediaType},
	{wizard.ErrResumeName, http.StatusBadRequest},
	{wizard.ErrStageNotActive, http.StatusConflict},
	{wizard.ErrNotEditing, http.StatusConflict},
	{wizard.ErrNoNextStage, http.StatusConflict},
	{wizard.ErrNoPreviousStage, http.StatusConflict},
	{wizard.ErrNotAtReview, http.StatusConflict},
	{wizard.ErrSubmitInProgress, http.StatusConflict},
	{wizard.ErrAlreadySubmitted, http.StatusConflict},
	{wizard.ErrNothingToDismiss, http.StatusConflict},
	{wizard.ErrMissingCompany, http.StatusBadRequest},
	{wizard.ErrMissingApplicant, http.StatusBadRequest},
	{wizard.ErrInvalidAnswer, http.StatusBadRequest},
	{wizard.ErrUnknownQuestion, http.StatusBadRequest},
	{wizard.ErrInvalidSuffix, http.StatusBadRequest},
	{wizard.ErrEmptySkill, http.StatusBadRequest},
	{wizard.ErrDuplicateSkill, http.StatusBadRequest},
	{wizard.ErrIndexOutOfRange, http.StatusBadRequest},
}

// classify maps err to a status and envelope.
func classify(err error) (int, ErrorBody) {
	var fe *wizard.FieldError
	if errors.As(err, &fe) {
		return http.StatusBadRequest, ErrorBody{Code: "INVALID_FIELD", Message: fe.Message, Details: fe.Field}
	}

	for _, s := range sentinelStatus {
		if errors.Is(err, s.err) {
			body := ErrorBody{Code: s.err.Error(), Message: err.Error()}
			// a failed submission reports the transport's error below
			if std, ok := apperrors.As(err); ok {
				body.Details = std.Details
			}
			return s.status, body
		}
	}

	if std, ok := apperrors.As(err); ok {
		status, known := codeStatus[std.Code]
		if !known {
			status = http.StatusInternalServerError
		}
		return status, ErrorBody{Code: string(std.Code), Message: std.Message, Details: std.Details}
	}

	return http.StatusInternalServerError, ErrorBody{Code: "INTERNAL_ERROR", Message: "Unexpected error"}
}

func respondError(c *gin.Context, err error) {
	status, body := classify(err)
	c.AbortWithStatusJSON(status, gin.H{"error": body})
}

func badRequest(c *gin.Context, details string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": ErrorBody{
		Code:    "INVALID_REQUEST",
		Message: "Invalid request",
		Details: details,
	}})
}
