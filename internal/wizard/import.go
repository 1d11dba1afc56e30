package wizard

import (
	"fmt"

	"hireflow/pkg/registry"
)

// Import rebuilds a form that arrived in one piece, from a process variable
// or a saved draft, through the stage editors. Screening questions are
// seeded from catalog, so the caller cannot change which are required;
// answers to keys outside the catalog are rejected. The resume is dropped.
func Import(catalog *registry.QuestionCatalog, src *FormState) (*FormState, error) {
	if catalog == nil {
		catalog = registry.Default()
	}
	f := NewFormState(catalog)
	if src == nil {
		return f, nil
	}

	info := &MyInformationEditor{f: f}
	a := src.Applicant
	info.SetGivenName(a.GivenName)
	info.SetMiddleName(a.MiddleName)
	info.SetFamilyName(a.FamilyName)
	if err := info.SetSuffix(a.Suffix); err != nil {
		return nil, err
	}
	info.SetEmail(a.Email)
	info.SetPhone(a.Phone.Type, a.Phone.CountryCode, a.Phone.Number)
	info.SetStreet(a.Address.Street)
	info.SetAdditionalLine(a.Address.AdditionalLine)
	info.SetCity(a.Address.City)
	info.SetProvince(a.Address.Province)
	info.SetPostalCode(a.Address.PostalCode)
	info.SetCountry(a.Address.CountryCode)
	info.SetPreviouslyEmployed(src.PreviousEmployment.WasEmployed)
	if src.PreviousEmployment.WasEmployed == Yes {
		info.SetEmployeeID(src.PreviousEmployment.EmployeeID)
		info.SetManagerName(src.PreviousEmployment.ManagerName)
	}

	exp := &MyExperienceEditor{f: f}
	if src.NoWorkExperience && len(src.WorkHistory) > 0 {
		return nil, &FieldError{Field: "workExperience", Message: "Work experience cannot be combined with no work experience"}
	}
	exp.ReplaceWorkHistory(src.WorkHistory)
	if src.NoWorkExperience {
		exp.SetNoWorkExperience(true)
	}
	exp.ReplaceEducation(src.Education)
	if err := exp.ReplaceSkills(src.Skills); err != nil {
		return nil, err
	}
	if err := exp.SetWebsites(src.Websites); err != nil {
		return nil, err
	}
	if err := exp.SetLinkedIn(src.LinkedInURL); err != nil {
		return nil, err
	}

	questions := &ApplicationQuestionsEditor{f: f}
	for key, ans := range src.ScreeningAnswers {
		if err := questions.Answer(key, ans.Answer); err != nil {
			return nil, fmt.Errorf("screening answer %q: %w", key, err)
		}
	}

	(&VoluntaryDisclosuresEditor{f: f}).SetTermsAccepted(src.TermsAccepted)
	return f, nil
}

// ValidateAll runs every stage validator and the final validator and merges
// their errors. It is the gate for forms that never went through Next.
func ValidateAll(f *FormState) Result {
	r := newResult()
	for _, v := range []Validator{
		ValidateMyInformation,
		ValidateApplicationQuestions,
		ValidateVoluntaryDisclosures,
		ValidateFinal,
	} {
		for key, msg := range v(f).Errors {
			r.add(key, msg)
		}
	}
	return r
}
