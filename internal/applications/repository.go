// Package applications stores submitted applications and implements the
// employer and applicant actions on them.
package applications

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/lib/pq"

	apperrors "hireflow/internal/common/errors"
	"hireflow/internal/models"
)

const (
	DefaultPageSize = 10
	MaxPageSize     = 100
)

// FilterShortlisted as a status filter selects shortlisted rows instead of
// a status value.
const FilterShortlisted = "shortlisted"

// Filter narrows List. Zero values are ignored.
type Filter struct {
	Status       string
	Company      string
	JobPostingID string
	ApplicantID  string
	// CreatorID keeps applications to postings created by this user.
	CreatorID string
	Search    string
	Page         int
	Limit        int

	// ids restricts results to search-engine hits when non-nil.
	ids []string
}

func (f *Filter) normalize() {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit < 1 {
		f.Limit = DefaultPageSize
	}
	if f.Limit > MaxPageSize {
		f.Limit = MaxPageSize
	}
}

// Repository is the SQL side of the applications store.
type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// Insert stores one application and returns it joined with its job
// posting's title, company and creator.
func (r *Repository) Insert(ctx context.Context, p models.ApplicationPayload) (*models.Application, error) {
	jsonCols, err := encodeJSONColumns(p)
	if err != nil {
		return nil, apperrors.NewDatabaseInsertFailedError("applications", err)
	}

	var jobID interface{}
	if p.JobPostingID != nil && *p.JobPostingID != "" {
		jobID = *p.JobPostingID
	}
	var resumeURL interface{}
	if p.ResumeURL != nil {
		resumeURL = *p.ResumeURL
	}
	status := p.Status
	if status == "" {
		status = models.StatusPending
	}

	app := &models.Application{ApplicationPayload: p}
	app.Status = status

	var title, company, creator sql.NullString
	err = r.db.QueryRowContext(ctx, `
		WITH inserted AS (
			INSERT INTO applications (
				applicant_id, job_posting_id, company, personal_info, contact_info, address,
				previous_employment, work_experience, no_work_experience, education, skills,
				websites, linkedin, application_questions, terms_accepted, resume_url, status
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
			RETURNING id, job_posting_id, created_at, updated_at
		)
		SELECT i.id, i.created_at, i.updated_at, j.job_title, j.company_name, j.creator_id
		FROM inserted i
		LEFT JOIN job_posting j ON j.id = i.job_posting_id`,
		p.ApplicantID, jobID, p.Company,
		jsonCols[0], jsonCols[1], jsonCols[2], jsonCols[3], jsonCols[4],
		p.NoWorkExperience,
		jsonCols[5], jsonCols[6], jsonCols[7],
		p.LinkedIn,
		jsonCols[8],
		p.TermsAccepted, resumeURL, string(status),
	).Scan(&app.ID, &app.CreatedAt, &app.UpdatedAt, &title, &company, &creator)
	if err != nil {
		return nil, apperrors.NewDatabaseInsertFailedError("applications", err)
	}

	if title.Valid {
		app.JobPosting = &models.JobPostingRef{
			JobTitle:    title.String,
			CompanyName: company.String,
			CreatorID:   creator.String,
		}
	}
	return app, nil
}

// encodeJSONColumns marshals the jsonb columns in insert order.
func encodeJSONColumns(p models.ApplicationPayload) ([][]byte, error) {
	values := []interface{}{
		p.PersonalInfo,
		p.ContactInfo,
		p.Address,
		p.PreviousEmployment,
		nonNil(p.WorkExperience),
		nonNil(p.Education),
		nonNil(p.Skills),
		nonNil(p.Websites),
		nonNilMap(p.ApplicationQuestions),
	}
	out := make([][]byte, len(values))
	for i, v := range values {
		b, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("encode column %d: %w", i, err)
		}
		out[i] = b
	}
	return out, nil
}

const selectColumns = `
		SELECT a.id, a.applicant_id, a.job_posting_id, a.company, a.personal_info, a.contact_info,
		       a.address, a.previous_employment, a.work_experience, a.no_work_experience,
		       a.education, a.skills, a.websites, a.linkedin, a.application_questions,
		       a.terms_accepted, a.resume_url, a.status, a.shortlisted, a.created_at, a.updated_at,
		       j.job_title, j.company_name, j.creator_id
		FROM applications a
		LEFT JOIN job_posting j ON j.id = a.job_posting_id`

// Get fails with APPLICATION_NOT_FOUND for unknown ids.
func (r *Repository) Get(ctx context.Context, id string) (*models.Application, error) {
	rows, err := r.db.QueryContext(ctx, selectColumns+` WHERE a.id = $1`, id)
	if err != nil {
		return nil, apperrors.NewQueryExecutionFailedError("application_get", err)
	}
	defer rows.Close()

	list, err := scanApplications(rows)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, apperrors.NewApplicationNotFoundError(id)
	}
	return &list[0], nil
}

// List returns one page, newest first.
func (r *Repository) List(ctx context.Context, f Filter) (*models.ApplicationPage, error) {
	f.normalize()
	page := &models.ApplicationPage{Data: []models.Application{}, Page: f.Page, Limit: f.Limit}

	if f.ids != nil && len(f.ids) == 0 {
		return page, nil
	}

	where, args := buildWhere(f)

	var count int
	if err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM applications a LEFT JOIN job_posting j ON j.id = a.job_posting_id`+where,
		args...).Scan(&count); err != nil {
		return nil, apperrors.NewQueryExecutionFailedError("application_count", err)
	}

	args = append(args, f.Limit, (f.Page-1)*f.Limit)
	query := fmt.Sprintf("%s%s ORDER BY a.created_at DESC LIMIT $%d OFFSET $%d",
		selectColumns, where, len(args)-1, len(args))
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewQueryExecutionFailedError("application_list", err)
	}
	defer rows.Close()

	data, err := scanApplications(rows)
	if err != nil {
		return nil, err
	}

	page.Data = data
	page.Count = count
	page.TotalPages = (count + f.Limit - 1) / f.Limit
	return page, nil
}

func buildWhere(f Filter) (string, []interface{}) {
	var conds []string
	var args []interface{}
	add := func(cond string, arg interface{}) {
		args = append(args, arg)
		conds = append(conds, strings.ReplaceAll(cond, "?", fmt.Sprintf("$%d", len(args))))
	}

	switch {
	case f.Status == FilterShortlisted:
		conds = append(conds, "a.shortlisted = TRUE")
	case f.Status != "":
		add("a.status = ?", f.Status)
	}
	if f.Company != "" {
		add("a.company = ?", f.Company)
	}
	if f.JobPostingID != "" {
		add("a.job_posting_id = ?", f.JobPostingID)
	}
	if f.ApplicantID != "" {
		add("a.applicant_id = ?", f.ApplicantID)
	}
	if f.CreatorID != "" {
		add("j.creator_id = ?", f.CreatorID)
	}
	if f.ids != nil {
		add("a.id::text = ANY(?)", pq.Array(f.ids))
	} else if s := strings.TrimSpace(f.Search); s != "" {
		add(`(a.company ILIKE ?
			OR a.personal_info->>'given_name' ILIKE ?
			OR a.personal_info->>'family_name' ILIKE ?
			OR a.contact_info->>'email' ILIKE ?
			OR a.work_experience::text ILIKE ?
			OR a.skills::text ILIKE ?)`, "%"+s+"%")
	}

	if len(conds) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// UpdateStatus moves id from status from to status to. The write only lands
// while the row still holds from; otherwise it fails with STATUS_CONFLICT.
// Transition rules live in the service.
func (r *Repository) UpdateStatus(ctx context.Context, id string, from, to models.ApplicationStatus) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE applications SET status = $2, updated_at = now() WHERE id = $1 AND status = $3`,
		id, string(to), string(from))
	if err != nil {
		return apperrors.NewQueryExecutionFailedError("application_update_status", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return apperrors.NewQueryExecutionFailedError("application_update_status", err)
	}
	if n == 0 {
		return apperrors.NewStatusConflictError(id, string(from))
	}
	return nil
}

func (r *Repository) SetShortlisted(ctx context.Context, id string, shortlisted bool) error {
	return r.exec(ctx, "application_shortlist", id,
		`UPDATE applications SET shortlisted = $2, updated_at = now() WHERE id = $1`, id, shortlisted)
}

func (r *Repository) exec(ctx context.Context, queryType, id, query string, args ...interface{}) error {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return apperrors.NewQueryExecutionFailedError(queryType, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return apperrors.NewQueryExecutionFailedError(queryType, err)
	}
	if n == 0 {
		return apperrors.NewApplicationNotFoundError(id)
	}
	return nil
}

func scanApplications(rows *sql.Rows) ([]models.Application, error) {
	list := []models.Application{}
	for rows.Next() {
		var (
			a                                           models.Application
			jobID, resumeURL, title, company, creator   sql.NullString
			personal, contact, address, prev, work, edu []byte
			skills, websites, questions                 []byte
			status                                      string
		)
		if err := rows.Scan(
			&a.ID, &a.ApplicantID, &jobID, &a.Company, &personal, &contact,
			&address, &prev, &work, &a.NoWorkExperience,
			&edu, &skills, &websites, &a.LinkedIn, &questions,
			&a.TermsAccepted, &resumeURL, &status, &a.Shortlisted, &a.CreatedAt, &a.UpdatedAt,
			&title, &company, &creator,
		); err != nil {
			return nil, apperrors.NewQueryExecutionFailedError("application_scan", err)
		}

		decode := []struct {
			raw  []byte
			into interface{}
		}{
			{personal, &a.PersonalInfo},
			{contact, &a.ContactInfo},
			{address, &a.Address},
			{prev, &a.PreviousEmployment},
			{work, &a.WorkExperience},
			{edu, &a.Education},
			{skills, &a.Skills},
			{websites, &a.Websites},
			{questions, &a.ApplicationQuestions},
		}
		for _, d := range decode {
			if len(d.raw) == 0 {
				continue
			}
			if err := json.Unmarshal(d.raw, d.into); err != nil {
				return nil, apperrors.NewQueryExecutionFailedError("application_decode",
					fmt.Errorf("application %s: %w", a.ID, err))
			}
		}

		a.Status = models.ApplicationStatus(status)
		if jobID.Valid {
			id := jobID.String
			a.JobPostingID = &id
		}
		if resumeURL.Valid {
			u := resumeURL.String
			a.ResumeURL = &u
		}
		if title.Valid {
			a.JobPosting = &models.JobPostingRef{
				JobTitle:    title.String,
				CompanyName: company.String,
				CreatorID:   creator.String,
			}
		}
		list = append(list, a)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewQueryExecutionFailedError("application_scan", err)
	}
	return list, nil
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

func nonNilMap(m map[string]string) map[string]string {
	if m == nil {
		return map[string]string{}
	}
	return m
}
