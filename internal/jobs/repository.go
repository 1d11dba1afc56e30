// Package jobs stores job postings in Postgres and serves reads through a
// Redis cache. Writes drop the cached copy.
package jobs

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	apperrors "hireflow/internal/common/errors"
	"hireflow/internal/common/logger"
	"hireflow/internal/common/metrics"
	"hireflow/internal/models"
)

const DefaultCacheTTL = 5 * time.Minute

func CacheKey(id string) string {
	return "job_posting:" + id
}

type Repository struct {
	db     *sql.DB
	redis  *redis.Client
	ttl    time.Duration
	logger logger.Logger
}

// NewRepository builds a cache-aside reader. rdb may be nil to disable the
// cache; ttl <= 0 uses DefaultCacheTTL.
func NewRepository(db *sql.DB, rdb *redis.Client, ttl time.Duration, log logger.Logger) *Repository {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &Repository{
		db:     db,
		redis:  rdb,
		ttl:    ttl,
		logger: log.WithFields(map[string]interface{}{"component": "jobs"}),
	}
}

// Get returns the posting or JOB_POSTING_NOT_FOUND. Cache failures are
// logged and fall through to the database.
func (r *Repository) Get(ctx context.Context, id string) (*models.JobPosting, error) {
	if id == "" {
		return nil, apperrors.NewJobPostingNotFoundError(id)
	}

	key := CacheKey(id)
	if r.redis != nil {
		val, err := r.redis.Get(ctx, key).Result()
		switch {
		case err == nil:
			var job models.JobPosting
			if jsonErr := json.Unmarshal([]byte(val), &job); jsonErr == nil {
				metrics.JobCacheLookups.WithLabelValues("hit").Inc()
				return &job, nil
			}
			r.logger.Warn("discarding undecodable cache entry", map[string]interface{}{"key": key})
		case errors.Is(err, redis.Nil):
		default:
			metrics.JobCacheLookups.WithLabelValues("error").Inc()
			r.logger.Warn("job cache read failed", map[string]interface{}{
				"key":   key,
				"error": err.Error(),
			})
		}
	}
	metrics.JobCacheLookups.WithLabelValues("miss").Inc()

	job, err := scanJob(r.db.QueryRowContext(ctx, `SELECT `+jobColumns+` FROM job_posting WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NewJobPostingNotFoundError(id)
		}
		return nil, apperrors.NewQueryExecutionFailedError("job_posting_get", err)
	}

	if r.redis != nil {
		data, _ := json.Marshal(*job)
		if err := r.redis.Set(ctx, key, data, r.ttl).Err(); err != nil {
			r.logger.Warn("job cache write failed", map[string]interface{}{
				"key":   key,
				"error": err.Error(),
			})
		}
	}
	return job, nil
}

// Invalidate drops the cached copy of id.
func (r *Repository) Invalidate(ctx context.Context, id string) error {
	if r.redis == nil {
		return nil
	}
	return r.redis.Del(ctx, CacheKey(id)).Err()
}

const jobColumns = `id, job_title, company_name, creator_id, location, salary_range,
	employment_type, applicants_needed, description, skills, status, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanJob(row rowScanner) (*models.JobPosting, error) {
	var job models.JobPosting
	var location, salary, employment, description sql.NullString
	var needed sql.NullInt64
	var skills []byte
	err := row.Scan(
		&job.ID, &job.JobTitle, &job.CompanyName, &job.CreatorID, &location, &salary,
		&employment, &needed, &description, &skills, &job.Status, &job.CreatedAt, &job.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	job.Location = location.String
	job.SalaryRange = salary.String
	job.EmploymentType = employment.String
	job.ApplicantsNeeded = int(needed.Int64)
	job.Description = description.String
	job.Skills = []string{}
	if len(skills) > 0 {
		if err := json.Unmarshal(skills, &job.Skills); err != nil {
			return nil, fmt.Errorf("decode skills: %w", err)
		}
	}
	return &job, nil
}
