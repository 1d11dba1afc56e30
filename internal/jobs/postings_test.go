package jobs

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "hireflow/internal/common/errors"
	"hireflow/internal/common/logger"
	"hireflow/internal/models"
)

func engineerInput() models.JobPostingInput {
	return models.JobPostingInput{
		JobTitle:         "Engineer",
		CompanyName:      "Acme",
		EmploymentType:   "full-time",
		ApplicantsNeeded: 2,
		Skills:           []string{"Go"},
	}
}

// ==========================
// Writes
// ==========================

func TestInsert_StoresActivePosting(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO job_posting")).
		WithArgs("Engineer", "Acme", "hr-1", "", "", "full-time", 2, "", []byte(`["Go"]`), models.JobPostingActive).
		WillReturnRows(jobRow("job-9"))

	job, err := NewRepository(db, nil, 0, logger.NewNoOpLogger()).Insert(context.Background(), "hr-1", engineerInput())

	require.NoError(t, err)
	assert.Equal(t, "job-9", job.ID)
	assert.Equal(t, []string{"Go"}, job.Skills)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdate_InvalidatesCache(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()
	require.NoError(t, mr.Set(CacheKey("job-1"), `{"id":"job-1","job_title":"Old"}`))

	mock.ExpectQuery(regexp.QuoteMeta("UPDATE job_posting SET job_title = $3")).
		WithArgs("job-1", "hr-1", "Engineer", "Acme", "", "", "full-time", 2, "", []byte(`["Go"]`)).
		WillReturnRows(jobRow("job-1"))

	job, err := NewRepository(db, rdb, 0, logger.NewTestLogger(t)).Update(context.Background(), "job-1", "hr-1", engineerInput())

	require.NoError(t, err)
	assert.Equal(t, "Engineer", job.JobTitle)
	assert.False(t, mr.Exists(CacheKey("job-1")))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSetStatus_OtherCreatorMatchesNoRow(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta("WHERE id = $1 AND creator_id = $2")).
		WithArgs("job-1", "hr-2", models.JobPostingArchived).
		WillReturnError(sql.ErrNoRows)

	_, err = NewRepository(db, nil, 0, logger.NewNoOpLogger()).SetStatus(context.Background(), "job-1", "hr-2", models.JobPostingArchived)

	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeJobPostingNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}

// ==========================
// List
// ==========================

func TestList_FiltersAndPages(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM job_posting WHERE creator_id = $1 AND status = $2")).
		WithArgs("hr-1", "archived").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(11))
	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY created_at DESC LIMIT $3 OFFSET $4")).
		WithArgs("hr-1", "archived", 10, 10).
		WillReturnRows(jobRow("job-11"))

	page, err := NewRepository(db, nil, 0, logger.NewNoOpLogger()).List(context.Background(),
		ListFilter{CreatorID: "hr-1", Status: "archived", Page: 2})

	require.NoError(t, err)
	assert.Equal(t, 11, page.Count)
	assert.Equal(t, 2, page.TotalPages)
	require.Len(t, page.Data, 1)
	assert.Equal(t, "job-11", page.Data[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestList_Search(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta("WHERE status = $1 AND (job_title ILIKE $2")).
		WithArgs("active", "%rust%").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectQuery(regexp.QuoteMeta("LIMIT $3 OFFSET $4")).
		WithArgs("active", "%rust%", 100, 0).
		WillReturnRows(sqlmock.NewRows(jobRowColumns))

	page, err := NewRepository(db, nil, 0, logger.NewNoOpLogger()).List(context.Background(),
		ListFilter{Status: "active", Search: " rust ", Limit: 500})

	require.NoError(t, err)
	assert.Empty(t, page.Data)
	assert.NotNil(t, page.Data)
	assert.Equal(t, MaxPageLimit, page.Limit)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// ==========================
// Stats
// ==========================

func TestStats_AggregatesCreatorsPostings(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	now := time.Date(2024, 6, 15, 9, 30, 0, 0, time.UTC)
	mock.ExpectQuery(regexp.QuoteMeta("FROM job_posting WHERE creator_id = $1")).
		WithArgs("hr-1").
		WillReturnRows(sqlmock.NewRows([]string{"active", "archived"}).AddRow(3, 1))
	mock.ExpectQuery(regexp.QuoteMeta("FROM applications a JOIN job_posting j")).
		WithArgs("hr-1", time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC), time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)).
		WillReturnRows(sqlmock.NewRows([]string{"total", "this", "last", "shortlisted"}).AddRow(40, 12, 8, 5))
	mock.ExpectQuery(regexp.QuoteMeta("GROUP BY j.id ORDER BY j.created_at DESC LIMIT $2")).
		WithArgs("hr-1", DashboardListSize).
		WillReturnRows(sqlmock.NewRows([]string{"id", "job_title", "status", "created_at", "count"}).
			AddRow("job-2", "Designer", "active", jobDate, 4).
			AddRow("job-1", "Engineer", "archived", jobDate, 0))
	mock.ExpectQuery(regexp.QuoteMeta("GROUP BY j.job_title")).
		WithArgs("hr-1", DashboardListSize).
		WillReturnRows(sqlmock.NewRows([]string{"job_title", "count"}).AddRow("Engineer", 30).AddRow("Designer", 10))

	stats, err := NewRepository(db, nil, 0, logger.NewNoOpLogger()).Stats(context.Background(), "hr-1", now)

	require.NoError(t, err)
	assert.Equal(t, 3, stats.Active)
	assert.Equal(t, 1, stats.Archived)
	assert.Equal(t, 40, stats.TotalApplicants)
	assert.Equal(t, 50.0, stats.MonthlyChange)
	assert.Equal(t, 5, stats.Shortlisted)
	require.Len(t, stats.RecentJobs, 2)
	assert.Equal(t, 4, stats.RecentJobs[0].ApplicantsCount)
	assert.Equal(t, []models.RoleCount{{JobTitle: "Engineer", Applications: 30}, {JobTitle: "Designer", Applications: 10}}, stats.PopularRoles)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMonthlyChange(t *testing.T) {
	tests := []struct {
		this, last int
		want       float64
	}{
		{0, 0, 0},
		{5, 0, 100},
		{12, 8, 50},
		{2, 3, -33.3},
		{7, 6, 16.7},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, MonthlyChange(tt.this, tt.last), "%d vs %d", tt.this, tt.last)
	}
}
