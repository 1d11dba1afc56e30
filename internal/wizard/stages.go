package wizard

import (
	"fmt"
	"net/http"
	"path/filepath"
	"strings"

	"hireflow/internal/common/storage"
	"hireflow/internal/common/validation"
)

// Stage is a 1-based wizard stage index.
type Stage int

const (
	StageMyInformation Stage = iota + 1
	StageMyExperience
	StageApplicationQuestions
	StageVoluntaryDisclosures
	StageReview
)

// NumStages is the number of wizard stages.
const NumStages = 5

var stageNames = map[Stage]string{
	StageMyInformation:        "My Information",
	StageMyExperience:         "My Experience",
	StageApplicationQuestions: "Application Questions",
	StageVoluntaryDisclosures: "Voluntary Disclosures",
	StageReview:               "Review",
}

func (s Stage) String() string {
	if name, ok := stageNames[s]; ok {
		return name
	}
	return fmt.Sprintf("Stage(%d)", int(s))
}

func (s Stage) Valid() bool { return s >= StageMyInformation && s <= StageReview }

// SuffixOptions are the accepted name suffixes.
var SuffixOptions = []string{"I", "II", "III", "IV", "V", "VI", "VII", "VIII", "IX", "Jr", "Sr"}

// DefaultMaxResumeBytes is 5 MiB.
const DefaultMaxResumeBytes int64 = 5 * 1024 * 1024

var resumeTypes = map[string]string{
	".pdf":  "application/pdf",
	".doc":  "application/msword",
	".docx": "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
}

// ==========================
// Stage 1: My Information
// ==========================

// MyInformationEditor writes the applicant and previous-employment slices.
// Name-like fields are filtered to letters, spaces and hyphens.
type MyInformationEditor struct {
	f *FormState
}

func (e *MyInformationEditor) SetGivenName(s string) {
	e.f.Applicant.GivenName = validation.FilterName(s)
}

func (e *MyInformationEditor) SetMiddleName(s string) {
	e.f.Applicant.MiddleName = validation.FilterName(s)
}

func (e *MyInformationEditor) SetFamilyName(s string) {
	e.f.Applicant.FamilyName = validation.FilterName(s)
}

func (e *MyInformationEditor) SetSuffix(s string) error {
	if s != "" {
		found := false
		for _, opt := range SuffixOptions {
			if opt == s {
				found = true
				break
			}
		}
		if !found {
			return fmt.Errorf("%w: %q", ErrInvalidSuffix, s)
		}
	}
	e.f.Applicant.Suffix = s
	return nil
}

func (e *MyInformationEditor) SetEmail(s string) {
	e.f.Applicant.Email = strings.TrimSpace(s)
}

func (e *MyInformationEditor) SetPhone(phoneType, countryCode, number string) {
	e.f.Applicant.Phone = Phone{
		Type:        strings.TrimSpace(phoneType),
		CountryCode: strings.TrimSpace(countryCode),
		Number:      strings.TrimSpace(number),
	}
}

func (e *MyInformationEditor) SetStreet(s string)         { e.f.Applicant.Address.Street = s }
func (e *MyInformationEditor) SetAdditionalLine(s string) { e.f.Applicant.Address.AdditionalLine = s }
func (e *MyInformationEditor) SetCity(s string)           { e.f.Applicant.Address.City = validation.FilterName(s) }
func (e *MyInformationEditor) SetProvince(s string)       { e.f.Applicant.Address.Province = validation.FilterName(s) }
func (e *MyInformationEditor) SetPostalCode(s string)     { e.f.Applicant.Address.PostalCode = strings.TrimSpace(s) }
func (e *MyInformationEditor) SetCountry(code string)     { e.f.Applicant.Address.CountryCode = strings.TrimSpace(code) }

// SetPreviouslyEmployed clears the employee id and manager when the answer
// is not yes.
func (e *MyInformationEditor) SetPreviouslyEmployed(v YesNo) {
	e.f.PreviousEmployment.WasEmployed = v
	if v != Yes {
		e.f.PreviousEmployment.EmployeeID = ""
		e.f.PreviousEmployment.ManagerName = ""
	}
}

func (e *MyInformationEditor) SetEmployeeID(s string) {
	e.f.PreviousEmployment.EmployeeID = strings.TrimSpace(s)
}

func (e *MyInformationEditor) SetManagerName(s string) {
	e.f.PreviousEmployment.ManagerName = validation.FilterName(s)
}

// ==========================
// Stage 2: My Experience
// ==========================

// MyExperienceEditor writes work history, education, skills, resume and
// links. It keeps work history and the no-experience flag mutually
// exclusive.
type MyExperienceEditor struct {
	f              *FormState
	maxResumeBytes int64
}

// AddWorkEntry appends an entry and clears the no-experience flag.
func (e *MyExperienceEditor) AddWorkEntry(w WorkEntry) int {
	if w.IsCurrent {
		w.EndDate = ""
	}
	e.f.WorkHistory = append(e.f.WorkHistory, w)
	e.f.NoWorkExperience = false
	return len(e.f.WorkHistory) - 1
}

func (e *MyExperienceEditor) UpdateWorkEntry(i int, w WorkEntry) error {
	if i < 0 || i >= len(e.f.WorkHistory) {
		return fmt.Errorf("%w: work entry %d", ErrIndexOutOfRange, i)
	}
	if w.IsCurrent {
		w.EndDate = ""
	}
	e.f.WorkHistory[i] = w
	return nil
}

func (e *MyExperienceEditor) RemoveWorkEntry(i int) error {
	if i < 0 || i >= len(e.f.WorkHistory) {
		return fmt.Errorf("%w: work entry %d", ErrIndexOutOfRange, i)
	}
	e.f.WorkHistory = append(e.f.WorkHistory[:i], e.f.WorkHistory[i+1:]...)
	return nil
}

// SetNoWorkExperience drops any work history when set.
func (e *MyExperienceEditor) SetNoWorkExperience(v bool) {
	e.f.NoWorkExperience = v
	if v {
		e.f.WorkHistory = []WorkEntry{}
	}
}

func (e *MyExperienceEditor) AddEducation(ed EducationEntry) int {
	e.f.Education = append(e.f.Education, ed)
	return len(e.f.Education) - 1
}

func (e *MyExperienceEditor) UpdateEducation(i int, ed EducationEntry) error {
	if i < 0 || i >= len(e.f.Education) {
		return fmt.Errorf("%w: education entry %d", ErrIndexOutOfRange, i)
	}
	e.f.Education[i] = ed
	return nil
}

func (e *MyExperienceEditor) RemoveEducation(i int) error {
	if i < 0 || i >= len(e.f.Education) {
		return fmt.Errorf("%w: education entry %d", ErrIndexOutOfRange, i)
	}
	e.f.Education = append(e.f.Education[:i], e.f.Education[i+1:]...)
	return nil
}

// AddSkill trims s and rejects empty and case-insensitive duplicates.
func (e *MyExperienceEditor) AddSkill(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		return ErrEmptySkill
	}
	for _, existing := range e.f.Skills {
		if strings.EqualFold(existing, s) {
			return fmt.Errorf("%w: %q", ErrDuplicateSkill, s)
		}
	}
	e.f.Skills = append(e.f.Skills, s)
	return nil
}

// RemoveSkill is a no-op for unknown skills.
func (e *MyExperienceEditor) RemoveSkill(s string) {
	for i, existing := range e.f.Skills {
		if strings.EqualFold(existing, strings.TrimSpace(s)) {
			e.f.Skills = append(e.f.Skills[:i], e.f.Skills[i+1:]...)
			return
		}
	}
}

// ReplaceWorkHistory swaps the whole list. A non-empty list clears the
// no-experience flag.
func (e *MyExperienceEditor) ReplaceWorkHistory(entries []WorkEntry) {
	e.f.WorkHistory = []WorkEntry{}
	for _, w := range entries {
		e.AddWorkEntry(w)
	}
}

func (e *MyExperienceEditor) ReplaceEducation(entries []EducationEntry) {
	e.f.Education = append([]EducationEntry{}, entries...)
}

// ReplaceSkills applies AddSkill's rules to every entry; on error the
// previous skills are kept.
func (e *MyExperienceEditor) ReplaceSkills(skills []string) error {
	prev := e.f.Skills
	e.f.Skills = []string{}
	for _, s := range skills {
		if err := e.AddSkill(s); err != nil {
			e.f.Skills = prev
			return err
		}
	}
	return nil
}

// AttachResume replaces any attached resume. Only PDF, DOC and DOCX up to
// the size limit are accepted, under a name the object store can key.
func (e *MyExperienceEditor) AttachResume(name, contentType string, data []byte) error {
	if _, err := storage.SanitizeFileName(name); err != nil {
		return fmt.Errorf("%w: %q", ErrResumeName, name)
	}
	limit := e.maxResumeBytes
	if limit <= 0 {
		limit = DefaultMaxResumeBytes
	}
	if int64(len(data)) > limit {
		return fmt.Errorf("%w: %d bytes exceeds %d", ErrResumeTooLarge, len(data), limit)
	}
	ct, ok := resumeContentType(name, contentType, data)
	if !ok {
		return fmt.Errorf("%w: %s", ErrResumeUnsupported, name)
	}
	e.f.Resume = &ResumeFile{
		Name:        name,
		ContentType: ct,
		Size:        int64(len(data)),
		Data:        append([]byte(nil), data...),
	}
	return nil
}

func (e *MyExperienceEditor) RemoveResume() {
	e.f.Resume = nil
}

// SetWebsites replaces the list. Blank entries are dropped; the rest must be
// absolute http(s) URLs.
func (e *MyExperienceEditor) SetWebsites(urls []string) error {
	out := make([]string, 0, len(urls))
	for i, u := range urls {
		u = strings.TrimSpace(u)
		if u == "" {
			continue
		}
		if res := validation.URL(u); !res.Valid {
			return &FieldError{Field: fmt.Sprintf("websites[%d]", i), Message: res.Message}
		}
		out = append(out, u)
	}
	e.f.Websites = out
	return nil
}

func (e *MyExperienceEditor) SetLinkedIn(u string) error {
	u = strings.TrimSpace(u)
	if u != "" {
		if res := validation.URL(u); !res.Valid {
			return &FieldError{Field: "linkedin", Message: res.Message}
		}
	}
	e.f.LinkedInURL = u
	return nil
}

func resumeContentType(name, declared string, data []byte) (string, bool) {
	byExt, extOK := resumeTypes[strings.ToLower(filepath.Ext(name))]
	for _, ct := range resumeTypes {
		if declared == ct {
			return ct, true
		}
	}
	if extOK {
		return byExt, true
	}
	if len(data) > 0 && http.DetectContentType(data) == "application/pdf" {
		return "application/pdf", true
	}
	return "", false
}

// ==========================
// Stage 3: Application Questions
// ==========================

// ApplicationQuestionsEditor answers screening questions.
type ApplicationQuestionsEditor struct {
	f *FormState
}

// Answer rejects keys the catalog did not seed.
func (e *ApplicationQuestionsEditor) Answer(key string, v YesNo) error {
	a, ok := e.f.ScreeningAnswers[key]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownQuestion, key)
	}
	if _, err := ParseYesNo(string(v)); err != nil {
		return err
	}
	a.Answer = v
	e.f.ScreeningAnswers[key] = a
	return nil
}

// Questions returns the catalog keys seeded in the form.
func (e *ApplicationQuestionsEditor) Questions() map[string]ScreeningAnswer {
	out := make(map[string]ScreeningAnswer, len(e.f.ScreeningAnswers))
	for k, v := range e.f.ScreeningAnswers {
		out[k] = v
	}
	return out
}

// ==========================
// Stage 4: Voluntary Disclosures
// ==========================

type VoluntaryDisclosuresEditor struct {
	f *FormState
}

func (e *VoluntaryDisclosuresEditor) SetTermsAccepted(v bool) {
	e.f.TermsAccepted = v
}
