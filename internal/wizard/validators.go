package wizard

import (
	"hireflow/internal/common/validation"
)

// Result is the outcome of a stage or final validation. Errors is never nil.
type Result struct {
	Valid  bool              `json:"valid"`
	Errors map[string]string `json:"errors"`
}

func newResult() Result {
	return Result{Valid: true, Errors: map[string]string{}}
}

func (r *Result) add(key, msg string) {
	if _, exists := r.Errors[key]; exists {
		return
	}
	r.Errors[key] = msg
	r.Valid = false
}

// Validator checks the form for one transition.
type Validator func(f *FormState) Result

// ValidatorFor returns the stage's validator, or nil for stages without one.
func ValidatorFor(s Stage) Validator {
	switch s {
	case StageMyInformation:
		return ValidateMyInformation
	case StageApplicationQuestions:
		return ValidateApplicationQuestions
	case StageVoluntaryDisclosures:
		return ValidateVoluntaryDisclosures
	}
	return nil
}

type requiredField struct {
	key   string
	label string
	value func(f *FormState) string
}

var myInformationRequired = []requiredField{
	{"country", "Country", func(f *FormState) string { return f.Applicant.Address.CountryCode }},
	{"street", "Street", func(f *FormState) string { return f.Applicant.Address.Street }},
	{"city", "City", func(f *FormState) string { return f.Applicant.Address.City }},
	{"province", "Province", func(f *FormState) string { return f.Applicant.Address.Province }},
	{"postalCode", "Postal code", func(f *FormState) string { return f.Applicant.Address.PostalCode }},
	{"email", "Email", func(f *FormState) string { return f.Applicant.Email }},
	{"phoneType", "Phone type", func(f *FormState) string { return f.Applicant.Phone.Type }},
	{"phoneCode", "Phone code", func(f *FormState) string { return f.Applicant.Phone.CountryCode }},
	{"phoneNumber", "Phone number", func(f *FormState) string { return f.Applicant.Phone.Number }},
	{"givenName", "Given name", func(f *FormState) string { return f.Applicant.GivenName }},
	{"familyName", "Family name", func(f *FormState) string { return f.Applicant.FamilyName }},
}

// ValidateMyInformation runs the required sweep, then format checks on the
// values that are present.
func ValidateMyInformation(f *FormState) Result {
	r := newResult()
	if f == nil {
		f = &FormState{}
	}

	for _, rf := range myInformationRequired {
		if rf.value(f) == "" {
			r.add(rf.key, rf.label+" is required")
		}
	}

	a := f.Applicant
	checks := []struct {
		key   string
		value string
		check func(string) validation.FieldResult
	}{
		{"email", a.Email, validation.Email},
		{"phoneNumber", a.Phone.Number, validation.Phone},
		{"postalCode", a.Address.PostalCode, validation.PostalCode},
		{"givenName", a.GivenName, validation.Name},
		{"familyName", a.FamilyName, validation.Name},
		{"middleName", a.MiddleName, validation.Name},
		{"city", a.Address.City, validation.Name},
		{"province", a.Address.Province, validation.Name},
	}
	for _, c := range checks {
		if c.value == "" {
			continue
		}
		if res := c.check(c.value); !res.Valid {
			r.add(c.key, res.Message)
		}
	}

	if f.PreviousEmployment.WasEmployed == Yes {
		if f.PreviousEmployment.EmployeeID == "" {
			r.add("employeeID", "Employee ID is required")
		}
		if f.PreviousEmployment.ManagerName == "" {
			r.add("managerName", "Manager name is required")
		}
	}

	return r
}

// ValidateApplicationQuestions requires an answer to every required
// screening question.
func ValidateApplicationQuestions(f *FormState) Result {
	r := newResult()
	if f == nil {
		return r
	}
	for key, a := range f.ScreeningAnswers {
		if a.Required && a.Answer == Unset {
			r.add(key, "This question is required")
		}
	}
	return r
}

func ValidateVoluntaryDisclosures(f *FormState) Result {
	r := newResult()
	if f == nil || !f.TermsAccepted {
		r.add("terms", "You must accept the terms and conditions")
	}
	return r
}

// ValidateFinal is the gate in front of the transport. Address fields are
// not re-checked here.
func ValidateFinal(f *FormState) Result {
	r := newResult()
	if f == nil {
		f = &FormState{}
	}
	a := f.Applicant

	if a.GivenName == "" {
		r.add("givenName", "Given name is required")
	}
	if a.FamilyName == "" {
		r.add("familyName", "Family name is required")
	}
	if a.Email == "" {
		r.add("email", "Email is required")
	} else if res := validation.Email(a.Email); !res.Valid {
		r.add("email", res.Message)
	}
	if a.Phone.Number == "" {
		r.add("phoneNumber", "Phone number is required")
	} else if res := validation.Phone(a.Phone.Number); !res.Valid {
		r.add("phoneNumber", res.Message)
	}
	if a.Address.CountryCode == "" {
		r.add("country", "Country is required")
	}

	switch {
	case len(f.WorkHistory) == 0 && !f.NoWorkExperience:
		r.add("workExperience", "Add work experience or indicate that you have none")
	case len(f.WorkHistory) > 0 && f.NoWorkExperience:
		r.add("workExperience", "Work experience cannot be combined with no work experience")
	}

	if len(f.Education) == 0 {
		r.add("education", "At least one education entry is required")
	}

	if !f.TermsAccepted {
		r.add("terms", "You must accept the terms and conditions")
	}

	return r
}
