package wizard

import (
	"fmt"

	"hireflow/pkg/registry"
)

// YesNo is a tri-state answer. The zero value is unset.
type YesNo string

const (
	Unset YesNo = ""
	Yes   YesNo = "yes"
	No    YesNo = "no"
)

// ParseYesNo accepts "", "yes" and "no".
func ParseYesNo(s string) (YesNo, error) {
	switch YesNo(s) {
	case Unset, Yes, No:
		return YesNo(s), nil
	}
	return Unset, fmt.Errorf("%w: %q", ErrInvalidAnswer, s)
}

type Phone struct {
	Type        string `json:"type"`
	CountryCode string `json:"countryCode"`
	Number      string `json:"number"`
}

type Address struct {
	Street         string `json:"street"`
	AdditionalLine string `json:"additionalLine"`
	City           string `json:"city"`
	Province       string `json:"province"`
	PostalCode     string `json:"postalCode"`
	CountryCode    string `json:"countryCode"`
}

type Applicant struct {
	GivenName  string  `json:"givenName"`
	MiddleName string  `json:"middleName"`
	FamilyName string  `json:"familyName"`
	Suffix     string  `json:"suffix"`
	Email      string  `json:"email"`
	Phone      Phone   `json:"phone"`
	Address    Address `json:"address"`
}

type PreviousEmployment struct {
	WasEmployed YesNo  `json:"wasEmployed"`
	EmployeeID  string `json:"employeeId"`
	ManagerName string `json:"managerName"`
}

type WorkEntry struct {
	Title       string `json:"title"`
	Company     string `json:"company"`
	Location    string `json:"location"`
	StartDate   string `json:"startDate"`
	EndDate     string `json:"endDate"`
	IsCurrent   bool   `json:"isCurrent"`
	Description string `json:"description"`
}

type EducationEntry struct {
	School         string `json:"school"`
	Degree         string `json:"degree"`
	FieldOfStudy   string `json:"fieldOfStudy"`
	GPA            string `json:"gpa"`
	StartYearMonth string `json:"startYearMonth"`
	EndYearMonth   string `json:"endYearMonth"`
}

// ResumeFile is the attached resume. Data is never serialised into views.
type ResumeFile struct {
	Name        string `json:"name"`
	ContentType string `json:"contentType"`
	Size        int64  `json:"size"`
	Data        []byte `json:"-"`
}

// ScreeningAnswer pairs an answer with the catalog's required flag.
type ScreeningAnswer struct {
	Answer   YesNo `json:"answer"`
	Required bool  `json:"required"`
}

// FormState is every answer of one wizard session. The Controller owns it;
// stage editors are the only writers.
type FormState struct {
	Applicant          Applicant                  `json:"applicant"`
	PreviousEmployment PreviousEmployment         `json:"previousEmployment"`
	WorkHistory        []WorkEntry                `json:"workHistory"`
	NoWorkExperience   bool                       `json:"noWorkExperience"`
	Education          []EducationEntry           `json:"education"`
	Skills             []string                   `json:"skills"`
	Resume             *ResumeFile                `json:"resume,omitempty"`
	Websites           []string                   `json:"websites"`
	LinkedInURL        string                     `json:"linkedinUrl"`
	ScreeningAnswers   map[string]ScreeningAnswer `json:"screeningAnswers"`
	TermsAccepted      bool                       `json:"termsAccepted"`
}

// NewFormState seeds every catalog question as unset.
func NewFormState(catalog *registry.QuestionCatalog) *FormState {
	f := &FormState{
		WorkHistory:      []WorkEntry{},
		Education:        []EducationEntry{},
		Skills:           []string{},
		Websites:         []string{},
		ScreeningAnswers: map[string]ScreeningAnswer{},
	}
	if catalog != nil {
		for _, q := range catalog.Questions {
			f.ScreeningAnswers[q.Key] = ScreeningAnswer{Required: q.Required}
		}
	}
	return f
}

// Clone returns a deep copy.
func (f *FormState) Clone() *FormState {
	c := *f
	c.WorkHistory = append([]WorkEntry{}, f.WorkHistory...)
	c.Education = append([]EducationEntry{}, f.Education...)
	c.Skills = append([]string{}, f.Skills...)
	c.Websites = append([]string{}, f.Websites...)
	c.ScreeningAnswers = make(map[string]ScreeningAnswer, len(f.ScreeningAnswers))
	for k, v := range f.ScreeningAnswers {
		c.ScreeningAnswers[k] = v
	}
	if f.Resume != nil {
		r := *f.Resume
		r.Data = append([]byte(nil), f.Resume.Data...)
		c.Resume = &r
	}
	return &c
}
