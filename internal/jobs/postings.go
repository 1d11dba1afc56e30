package jobs

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	apperrors "hireflow/internal/common/errors"
	"hireflow/internal/models"
)

const (
	DefaultPageLimit = 10
	MaxPageLimit     = 100

	// DashboardListSize bounds the recent jobs and popular roles lists.
	DashboardListSize = 5
)

// ListFilter selects postings. An empty CreatorID with Status "" lists
// every status; the service narrows it per viewer.
type ListFilter struct {
	CreatorID string
	Status    string
	Search    string
	Page      int
	Limit     int
}

func (f *ListFilter) normalize() {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit < 1 {
		f.Limit = DefaultPageLimit
	}
	if f.Limit > MaxPageLimit {
		f.Limit = MaxPageLimit
	}
}

// Insert stores a new active posting owned by creatorID.
func (r *Repository) Insert(ctx context.Context, creatorID string, in models.JobPostingInput) (*models.JobPosting, error) {
	skills, err := json.Marshal(nonNil(in.Skills))
	if err != nil {
		return nil, fmt.Errorf("encode skills: %w", err)
	}
	job, err := scanJob(r.db.QueryRowContext(ctx, `
		INSERT INTO job_posting (job_title, company_name, creator_id, location, salary_range,
			employment_type, applicants_needed, description, skills, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING `+jobColumns,
		in.JobTitle, in.CompanyName, creatorID, in.Location, in.SalaryRange,
		in.EmploymentType, in.ApplicantsNeeded, in.Description, skills, models.JobPostingActive,
	))
	if err != nil {
		return nil, apperrors.NewQueryExecutionFailedError("job_posting_insert", err)
	}
	return job, nil
}

// Update rewrites the editable fields of id when creatorID owns it.
func (r *Repository) Update(ctx context.Context, id, creatorID string, in models.JobPostingInput) (*models.JobPosting, error) {
	skills, err := json.Marshal(nonNil(in.Skills))
	if err != nil {
		return nil, fmt.Errorf("encode skills: %w", err)
	}
	job, err := scanJob(r.db.QueryRowContext(ctx, `
		UPDATE job_posting SET job_title = $3, company_name = $4, location = $5, salary_range = $6,
			employment_type = $7, applicants_needed = $8, description = $9, skills = $10, updated_at = now()
		WHERE id = $1 AND creator_id = $2
		RETURNING `+jobColumns,
		id, creatorID, in.JobTitle, in.CompanyName, in.Location, in.SalaryRange,
		in.EmploymentType, in.ApplicantsNeeded, in.Description, skills,
	))
	return r.afterWrite(ctx, "job_posting_update", id, job, err)
}

// SetStatus archives or restores id when creatorID owns it.
func (r *Repository) SetStatus(ctx context.Context, id, creatorID, status string) (*models.JobPosting, error) {
	job, err := scanJob(r.db.QueryRowContext(ctx, `
		UPDATE job_posting SET status = $3, updated_at = now()
		WHERE id = $1 AND creator_id = $2
		RETURNING `+jobColumns,
		id, creatorID, status,
	))
	return r.afterWrite(ctx, "job_posting_status", id, job, err)
}

func (r *Repository) afterWrite(ctx context.Context, queryType, id string, job *models.JobPosting, err error) (*models.JobPosting, error) {
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NewJobPostingNotFoundError(id)
		}
		return nil, apperrors.NewQueryExecutionFailedError(queryType, err)
	}
	if err := r.Invalidate(ctx, id); err != nil {
		r.logger.Warn("job cache invalidation failed", map[string]interface{}{
			"key":   CacheKey(id),
			"error": err.Error(),
		})
	}
	return job, nil
}

// List returns one page of postings, newest first.
func (r *Repository) List(ctx context.Context, f ListFilter) (*models.JobPostingPage, error) {
	f.normalize()
	page := &models.JobPostingPage{Data: []models.JobPosting{}, Page: f.Page, Limit: f.Limit}

	var conds []string
	var args []interface{}
	add := func(cond string, arg interface{}) {
		args = append(args, arg)
		conds = append(conds, strings.ReplaceAll(cond, "?", fmt.Sprintf("$%d", len(args))))
	}
	if f.CreatorID != "" {
		add("creator_id = ?", f.CreatorID)
	}
	if f.Status != "" {
		add("status = ?", f.Status)
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		add("(job_title ILIKE ? OR company_name ILIKE ? OR location ILIKE ?)", "%"+s+"%")
	}
	where := ""
	if len(conds) > 0 {
		where = " WHERE " + strings.Join(conds, " AND ")
	}

	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM job_posting`+where, args...).Scan(&page.Count); err != nil {
		return nil, apperrors.NewQueryExecutionFailedError("job_posting_count", err)
	}

	args = append(args, f.Limit, (f.Page-1)*f.Limit)
	rows, err := r.db.QueryContext(ctx, fmt.Sprintf(
		"SELECT %s FROM job_posting%s ORDER BY created_at DESC LIMIT $%d OFFSET $%d",
		jobColumns, where, len(args)-1, len(args)), args...)
	if err != nil {
		return nil, apperrors.NewQueryExecutionFailedError("job_posting_list", err)
	}
	defer rows.Close()

	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, apperrors.NewQueryExecutionFailedError("job_posting_list", err)
		}
		page.Data = append(page.Data, *job)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewQueryExecutionFailedError("job_posting_list", err)
	}
	page.TotalPages = (page.Count + f.Limit - 1) / f.Limit
	return page, nil
}

// Stats aggregates creatorID's postings and the applications they drew.
// Months are calendar months in now's location.
func (r *Repository) Stats(ctx context.Context, creatorID string, now time.Time) (*models.JobStats, error) {
	stats := &models.JobStats{RecentJobs: []models.RecentJob{}, PopularRoles: []models.RoleCount{}}

	if err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FILTER (WHERE status = 'active'), COUNT(*) FILTER (WHERE status = 'archived')
		FROM job_posting WHERE creator_id = $1`, creatorID).Scan(&stats.Active, &stats.Archived); err != nil {
		return nil, apperrors.NewQueryExecutionFailedError("job_stats_postings", err)
	}

	thisMonth := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	lastMonth := thisMonth.AddDate(0, -1, 0)
	if err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
		       COUNT(*) FILTER (WHERE a.created_at >= $2),
		       COUNT(*) FILTER (WHERE a.created_at >= $3 AND a.created_at < $2),
		       COUNT(*) FILTER (WHERE a.shortlisted)
		FROM applications a JOIN job_posting j ON j.id = a.job_posting_id
		WHERE j.creator_id = $1`, creatorID, thisMonth, lastMonth).Scan(
		&stats.TotalApplicants, &stats.ApplicantsThisMonth, &stats.ApplicantsLastMonth, &stats.Shortlisted,
	); err != nil {
		return nil, apperrors.NewQueryExecutionFailedError("job_stats_applicants", err)
	}
	stats.MonthlyChange = MonthlyChange(stats.ApplicantsThisMonth, stats.ApplicantsLastMonth)

	rows, err := r.db.QueryContext(ctx, `
		SELECT j.id, j.job_title, j.status, j.created_at, COUNT(a.id)
		FROM job_posting j LEFT JOIN applications a ON a.job_posting_id = j.id
		WHERE j.creator_id = $1
		GROUP BY j.id ORDER BY j.created_at DESC LIMIT $2`, creatorID, DashboardListSize)
	if err != nil {
		return nil, apperrors.NewQueryExecutionFailedError("job_stats_recent", err)
	}
	defer rows.Close()
	for rows.Next() {
		var rj models.RecentJob
		if err := rows.Scan(&rj.ID, &rj.JobTitle, &rj.Status, &rj.CreatedAt, &rj.ApplicantsCount); err != nil {
			return nil, apperrors.NewQueryExecutionFailedError("job_stats_recent", err)
		}
		stats.RecentJobs = append(stats.RecentJobs, rj)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewQueryExecutionFailedError("job_stats_recent", err)
	}

	roles, err := r.db.QueryContext(ctx, `
		SELECT j.job_title, COUNT(a.id)
		FROM job_posting j JOIN applications a ON a.job_posting_id = j.id
		WHERE j.creator_id = $1
		GROUP BY j.job_title ORDER BY COUNT(a.id) DESC, j.job_title LIMIT $2`, creatorID, DashboardListSize)
	if err != nil {
		return nil, apperrors.NewQueryExecutionFailedError("job_stats_roles", err)
	}
	defer roles.Close()
	for roles.Next() {
		var rc models.RoleCount
		if err := roles.Scan(&rc.JobTitle, &rc.Applications); err != nil {
			return nil, apperrors.NewQueryExecutionFailedError("job_stats_roles", err)
		}
		stats.PopularRoles = append(stats.PopularRoles, rc)
	}
	if err := roles.Err(); err != nil {
		return nil, apperrors.NewQueryExecutionFailedError("job_stats_roles", err)
	}
	return stats, nil
}

// MonthlyChange is the percent change from last to this, rounded to one
// decimal. Growth from zero counts as 100.
func MonthlyChange(this, last int) float64 {
	if last == 0 {
		if this == 0 {
			return 0
		}
		return 100
	}
	return math.Round(float64(this-last)/float64(last)*1000) / 10
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
