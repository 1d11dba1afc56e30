package wizard

import (
	"bytes"
	"context"
	"io"
	"sync"
	"testing"

	"hireflow/internal/common/logger"
	"hireflow/internal/models"
	"hireflow/pkg/registry"

	"github.com/stretchr/testify/require"
)

// ==========================
// Test Helper Functions
// ==========================

// callLog records the order of external calls across fakes.
type callLog struct {
	mu    sync.Mutex
	calls []string
}

func (l *callLog) add(s string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls = append(l.calls, s)
}

func (l *callLog) list() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string{}, l.calls...)
}

type MockStore struct {
	log        *callLog
	UploadFunc func(ctx context.Context, key, contentType string, r io.Reader) (int64, error)
	keys       []string
	bodies     [][]byte
}

func (m *MockStore) Upload(ctx context.Context, key, contentType string, r io.Reader) (int64, error) {
	if m.log != nil {
		m.log.add("upload")
	}
	data, _ := io.ReadAll(r)
	m.keys = append(m.keys, key)
	m.bodies = append(m.bodies, data)
	if m.UploadFunc != nil {
		return m.UploadFunc(ctx, key, contentType, bytes.NewReader(data))
	}
	return int64(len(data)), nil
}

func (m *MockStore) PublicURL(key string) string {
	return "https://cdn.example.com/resumes/" + key
}

type MockInserter struct {
	log        *callLog
	InsertFunc func(ctx context.Context, p models.ApplicationPayload) (*models.Application, error)
	payloads   []models.ApplicationPayload
}

func (m *MockInserter) Insert(ctx context.Context, p models.ApplicationPayload) (*models.Application, error) {
	if m.log != nil {
		m.log.add("insert")
	}
	m.payloads = append(m.payloads, p)
	if m.InsertFunc != nil {
		return m.InsertFunc(ctx, p)
	}
	return &models.Application{ID: "app-1", ApplicationPayload: p}, nil
}

// MockSubmitter stands in for the whole transport in controller tests.
type MockSubmitter struct {
	mu         sync.Mutex
	SubmitFunc func(ctx context.Context, p models.ApplicationPayload, r *ResumeFile) (*SubmitResult, error)
	calls      int
}

func (m *MockSubmitter) Submit(ctx context.Context, p models.ApplicationPayload, r *ResumeFile) (*SubmitResult, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
	if m.SubmitFunc != nil {
		return m.SubmitFunc(ctx, p, r)
	}
	return &SubmitResult{ApplicationID: "app-1"}, nil
}

func (m *MockSubmitter) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func testMount() MountContext {
	return MountContext{Company: "Acme", JobID: "job-1", ApplicantID: "user-1"}
}

func newTestController(t *testing.T, transport Submitter, opts ...Option) *Controller {
	t.Helper()
	opts = append([]Option{WithLogger(logger.NewTestLogger(t))}, opts...)
	c, err := New(testMount(), transport, opts...)
	require.NoError(t, err)
	return c
}

// validForm returns a form that passes every validator.
func validForm() *FormState {
	f := NewFormState(registry.Default())
	f.Applicant = Applicant{
		GivenName:  "Ada",
		FamilyName: "Lovelace",
		Email:      "ada@example.com",
		Phone:      Phone{Type: "mobile", CountryCode: "+1", Number: "5551234567"},
		Address: Address{
			Street:      "1 Main St",
			City:        "Springfield",
			Province:    "Ontario",
			PostalCode:  "12345",
			CountryCode: "CA",
		},
	}
	f.PreviousEmployment.WasEmployed = No
	f.WorkHistory = []WorkEntry{{Title: "Engineer", Company: "Initech", StartDate: "2020-01"}}
	f.Education = []EducationEntry{{School: "State University", Degree: "BSc"}}
	for k, a := range f.ScreeningAnswers {
		a.Answer = No
		f.ScreeningAnswers[k] = a
	}
	f.TermsAccepted = true
	return f
}

// fillValid drives a controller through every stage with valid data and
// leaves it at Review.
func fillValid(t *testing.T, c *Controller) {
	t.Helper()
	v := validForm()

	require.NoError(t, c.MyInformation(func(e *MyInformationEditor) error {
		e.SetGivenName(v.Applicant.GivenName)
		e.SetFamilyName(v.Applicant.FamilyName)
		e.SetEmail(v.Applicant.Email)
		e.SetPhone(v.Applicant.Phone.Type, v.Applicant.Phone.CountryCode, v.Applicant.Phone.Number)
		e.SetStreet(v.Applicant.Address.Street)
		e.SetCity(v.Applicant.Address.City)
		e.SetProvince(v.Applicant.Address.Province)
		e.SetPostalCode(v.Applicant.Address.PostalCode)
		e.SetCountry(v.Applicant.Address.CountryCode)
		e.SetPreviouslyEmployed(No)
		return nil
	}))
	advance(t, c)

	require.NoError(t, c.MyExperience(func(e *MyExperienceEditor) error {
		e.AddWorkEntry(v.WorkHistory[0])
		e.AddEducation(v.Education[0])
		return e.AddSkill("Go")
	}))
	advance(t, c)

	require.NoError(t, c.ApplicationQuestions(func(e *ApplicationQuestionsEditor) error {
		for key := range e.Questions() {
			if err := e.Answer(key, No); err != nil {
				return err
			}
		}
		return nil
	}))
	advance(t, c)

	require.NoError(t, c.VoluntaryDisclosures(func(e *VoluntaryDisclosuresEditor) error {
		e.SetTermsAccepted(true)
		return nil
	}))
	advance(t, c)

	require.Equal(t, StageReview, c.Stage())
}

func advance(t *testing.T, c *Controller) {
	t.Helper()
	res, err := c.Next()
	require.NoError(t, err)
	require.True(t, res.Valid, "blocked: %v", res.Errors)
}
