package wizard

import (
	"errors"
	"sort"
	"strings"

	apperrors "hireflow/internal/common/errors"
	"hireflow/internal/models"
)

// GenericFailureMessage is shown when a transport error carries no text.
const GenericFailureMessage = "Failed to submit application. Please try again."

// IncompleteMessage is the coarse message for a failed final validation.
const IncompleteMessage = "Please fill in all required fields"

// MountContext identifies what the wizard is applying to and for whom.
type MountContext struct {
	Company     string `json:"company"`
	JobID       string `json:"jobId,omitempty"`
	ApplicantID string `json:"applicantId"`
}

// Build maps a form onto the persisted application shape. It does not
// validate and never touches the resume bytes.
func Build(f *FormState, mount MountContext) models.ApplicationPayload {
	a := f.Applicant

	var jobID *string
	if mount.JobID != "" {
		id := mount.JobID
		jobID = &id
	}

	work := make([]models.WorkExperience, 0, len(f.WorkHistory))
	for _, w := range f.WorkHistory {
		work = append(work, models.WorkExperience{
			JobTitle:    w.Title,
			Company:     w.Company,
			Location:    w.Location,
			FromDate:    w.StartDate,
			ToDate:      w.EndDate,
			CurrentWork: w.IsCurrent,
			Description: w.Description,
		})
	}

	education := make([]models.Education, 0, len(f.Education))
	for _, e := range f.Education {
		education = append(education, models.Education{
			School:       e.School,
			Degree:       e.Degree,
			FieldOfStudy: e.FieldOfStudy,
			GPA:          e.GPA,
			FromYear:     e.StartYearMonth,
			ToYear:       e.EndYearMonth,
		})
	}

	websites := make([]string, 0, len(f.Websites))
	for _, w := range f.Websites {
		if strings.TrimSpace(w) != "" {
			websites = append(websites, w)
		}
	}

	answers := make(map[string]string, len(f.ScreeningAnswers))
	for key, ans := range f.ScreeningAnswers {
		answers[key] = string(ans.Answer)
	}

	return models.ApplicationPayload{
		ApplicantID:  mount.ApplicantID,
		JobPostingID: jobID,
		Company:      mount.Company,
		PersonalInfo: models.PersonalInfo{
			GivenName:  a.GivenName,
			MiddleName: a.MiddleName,
			FamilyName: a.FamilyName,
			Suffix:     a.Suffix,
		},
		ContactInfo: models.ContactInfo{
			Email:       a.Email,
			PhoneType:   a.Phone.Type,
			PhoneCode:   a.Phone.CountryCode,
			PhoneNumber: a.Phone.Number,
		},
		Address: models.Address{
			Street:            a.Address.Street,
			AdditionalAddress: a.Address.AdditionalLine,
			City:              a.Address.City,
			Province:          a.Address.Province,
			PostalCode:        a.Address.PostalCode,
			Country:           a.Address.CountryCode,
		},
		PreviousEmployment: models.PreviousEmployment{
			PreviouslyEmployed: f.PreviousEmployment.WasEmployed == Yes,
			EmployeeID:         f.PreviousEmployment.EmployeeID,
			Manager:            f.PreviousEmployment.ManagerName,
		},
		WorkExperience:       work,
		NoWorkExperience:     f.NoWorkExperience,
		Education:            education,
		Skills:               append([]string{}, f.Skills...),
		Websites:             websites,
		LinkedIn:             f.LinkedInURL,
		ApplicationQuestions: answers,
		TermsAccepted:        f.TermsAccepted,
		Status:               models.StatusPending,
	}
}

// FailureMessage extracts the best human-readable text from a transport
// error.
func FailureMessage(err error) string {
	if err == nil {
		return GenericFailureMessage
	}
	if stdErr, ok := apperrors.As(err); ok {
		if stdErr.Details != "" {
			return stdErr.Details
		}
		if stdErr.Message != "" {
			return stdErr.Message
		}
	}
	if msg := strings.TrimSpace(err.Error()); msg != "" {
		return msg
	}
	return GenericFailureMessage
}

// FieldKeys returns the error map keys in a stable order.
func FieldKeys(errs map[string]string) []string {
	keys := make([]string, 0, len(errs))
	for k := range errs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// IsUserError reports whether err came from a rejected edit rather than a
// system failure.
func IsUserError(err error) bool {
	var fe *FieldError
	if errors.As(err, &fe) {
		return true
	}
	for _, target := range []error{
		ErrInvalidSuffix, ErrEmptySkill, ErrDuplicateSkill, ErrIndexOutOfRange,
		ErrResumeTooLarge, ErrResumeUnsupported, ErrResumeName, ErrUnknownQuestion, ErrInvalidAnswer,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
