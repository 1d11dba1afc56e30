package wizard

import "errors"

var (
	ErrStageNotActive    = errors.New("STAGE_NOT_ACTIVE")
	ErrNotEditing        = errors.New("WIZARD_NOT_EDITING")
	ErrNoNextStage       = errors.New("NO_NEXT_STAGE")
	ErrNoPreviousStage   = errors.New("NO_PREVIOUS_STAGE")
	ErrNotAtReview       = errors.New("SUBMIT_ONLY_FROM_REVIEW")
	ErrSubmitInProgress  = errors.New("SUBMIT_IN_PROGRESS")
	ErrAlreadySubmitted  = errors.New("ALREADY_SUBMITTED")
	ErrIncomplete        = errors.New("APPLICATION_INCOMPLETE")
	ErrNothingToDismiss  = errors.New("NOTHING_TO_DISMISS")
	ErrMissingCompany    = errors.New("MISSING_COMPANY")
	ErrMissingApplicant  = errors.New("MISSING_APPLICANT")
	ErrInvalidAnswer     = errors.New("INVALID_ANSWER")
	ErrUnknownQuestion   = errors.New("UNKNOWN_QUESTION")
	ErrInvalidSuffix     = errors.New("INVALID_SUFFIX")
	ErrEmptySkill        = errors.New("EMPTY_SKILL")
	ErrDuplicateSkill    = errors.New("DUPLICATE_SKILL")
	ErrIndexOutOfRange   = errors.New("INDEX_OUT_OF_RANGE")
	ErrResumeTooLarge    = errors.New("RESUME_TOO_LARGE")
	ErrResumeUnsupported = errors.New("RESUME_TYPE_UNSUPPORTED")
	ErrResumeName        = errors.New("RESUME_NAME_INVALID")
)

// FieldError rejects a single field value in a stage editor.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e *FieldError) Error() string {
	return e.Field + ": " + e.Message
}
