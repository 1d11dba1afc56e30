package api

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "hireflow/internal/common/errors"
	"hireflow/internal/jobs"
	"hireflow/internal/models"
)

type postingCall struct {
	op     string
	user   string
	id     string
	mine   bool
	filter jobs.ListFilter
	input  models.JobPostingInput
}

// MockPostings owns job-1 as hr-1 and denies every other writer.
type MockPostings struct {
	calls []postingCall
}

func (m *MockPostings) write(op, user, id string) (*models.JobPosting, error) {
	m.calls = append(m.calls, postingCall{op: op, user: user, id: id})
	if user != "hr-1" {
		return nil, apperrors.NewAccessDeniedError("job posting " + id)
	}
	status := models.JobPostingActive
	if op == "archive" {
		status = models.JobPostingArchived
	}
	return &models.JobPosting{ID: id, CreatorID: user, Status: status}, nil
}

func (m *MockPostings) Get(ctx context.Context, userID, id string) (*models.JobPosting, error) {
	if id != "job-1" {
		return nil, apperrors.NewJobPostingNotFoundError(id)
	}
	return &models.JobPosting{ID: id, CreatorID: "hr-1", Status: models.JobPostingActive}, nil
}

func (m *MockPostings) Create(ctx context.Context, userID string, in models.JobPostingInput) (*models.JobPosting, error) {
	m.calls = append(m.calls, postingCall{op: "create", user: userID, input: in})
	if in.JobTitle == "" {
		return nil, apperrors.NewJobPostingInvalidError("missing job_title")
	}
	return &models.JobPosting{ID: "job-2", JobTitle: in.JobTitle, CreatorID: userID, Status: models.JobPostingActive}, nil
}

func (m *MockPostings) Update(ctx context.Context, userID, id string, in models.JobPostingInput) (*models.JobPosting, error) {
	return m.write("update", userID, id)
}

func (m *MockPostings) Archive(ctx context.Context, userID, id string) (*models.JobPosting, error) {
	return m.write("archive", userID, id)
}

func (m *MockPostings) Restore(ctx context.Context, userID, id string) (*models.JobPosting, error) {
	return m.write("restore", userID, id)
}

func (m *MockPostings) List(ctx context.Context, userID string, mine bool, f jobs.ListFilter) (*models.JobPostingPage, error) {
	m.calls = append(m.calls, postingCall{op: "list", user: userID, mine: mine, filter: f})
	return &models.JobPostingPage{Data: []models.JobPosting{}, Page: 1}, nil
}

func (m *MockPostings) Stats(ctx context.Context, userID string) (*models.JobStats, error) {
	m.calls = append(m.calls, postingCall{op: "stats", user: userID})
	return &models.JobStats{Active: 3, MonthlyChange: 50, RecentJobs: []models.RecentJob{}, PopularRoles: []models.RoleCount{}}, nil
}

func postingsEnv(t *testing.T) (*testEnv, *MockPostings) {
	postings := &MockPostings{}
	return newTestEnv(t, func(d *Deps) { d.Postings = postings }), postings
}

// ==========================
// Job Postings
// ==========================

func TestJobs_CreateUsesCaller(t *testing.T) {
	env, postings := postingsEnv(t)

	rec := env.do(t, http.MethodPost, "/api/v1/jobs", "hr-1", map[string]interface{}{
		"job_title":         "Engineer",
		"company_name":      "Acme",
		"applicants_needed": 2,
		"skills":            []string{"Go"},
	})

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	require.Len(t, postings.calls, 1)
	assert.Equal(t, "hr-1", postings.calls[0].user)
	assert.Equal(t, 2, postings.calls[0].input.ApplicantsNeeded)
	assert.Equal(t, "hr-1", decode(t, rec)["creator_id"])
}

func TestJobs_CreateInvalid(t *testing.T) {
	env, _ := postingsEnv(t)

	rec := env.do(t, http.MethodPost, "/api/v1/jobs", "hr-1", map[string]interface{}{"company_name": "Acme"})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, string(apperrors.ErrCodeJobPostingInvalid), errorCode(t, rec))
}

func TestJobs_WritesByOtherEmployerAreForbidden(t *testing.T) {
	env, _ := postingsEnv(t)

	for _, req := range []struct{ method, path string }{
		{http.MethodPut, "/api/v1/jobs/job-1"},
		{http.MethodPost, "/api/v1/jobs/job-1/archive"},
		{http.MethodPost, "/api/v1/jobs/job-1/restore"},
	} {
		rec := env.do(t, req.method, req.path, "hr-2", map[string]string{"job_title": "Engineer", "company_name": "Acme"})
		assert.Equal(t, http.StatusForbidden, rec.Code, req.path)
	}

	rec := env.do(t, http.MethodPost, "/api/v1/jobs/job-1/archive", "hr-1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, models.JobPostingArchived, decode(t, rec)["status"])
}

func TestJobs_ListViews(t *testing.T) {
	env, postings := postingsEnv(t)

	rec := env.do(t, http.MethodGet, "/api/v1/jobs?search=go&page=2", "seeker-1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = env.do(t, http.MethodGet, "/api/v1/jobs?view=employer&status=archived", "hr-1", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	require.Len(t, postings.calls, 2)
	assert.False(t, postings.calls[0].mine)
	assert.Equal(t, jobs.ListFilter{Search: "go", Page: 2}, postings.calls[0].filter)
	assert.True(t, postings.calls[1].mine)
	assert.Equal(t, "archived", postings.calls[1].filter.Status)

	rec = env.do(t, http.MethodGet, "/api/v1/jobs?limit=ten", "hr-1", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestJobs_StatsAndGet(t *testing.T) {
	env, postings := postingsEnv(t)

	rec := env.do(t, http.MethodGet, "/api/v1/jobs/stats", "hr-1", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, float64(3), decode(t, rec)["active"])
	assert.Equal(t, "hr-1", postings.calls[0].user)

	rec = env.do(t, http.MethodGet, "/api/v1/jobs/job-1", "seeker-1", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	rec = env.do(t, http.MethodGet, "/api/v1/jobs/job-9", "seeker-1", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestJobs_Unavailable(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/v1/jobs", "hr-1", nil)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
