package jobs

import (
	"context"
	"fmt"
	"strings"
	"time"

	apperrors "hireflow/internal/common/errors"
	"hireflow/internal/common/logger"
	"hireflow/internal/models"
)

// Store is the persistence the service needs; *Repository implements it.
type Store interface {
	Get(ctx context.Context, id string) (*models.JobPosting, error)
	Insert(ctx context.Context, creatorID string, in models.JobPostingInput) (*models.JobPosting, error)
	Update(ctx context.Context, id, creatorID string, in models.JobPostingInput) (*models.JobPosting, error)
	SetStatus(ctx context.Context, id, creatorID, status string) (*models.JobPosting, error)
	List(ctx context.Context, f ListFilter) (*models.JobPostingPage, error)
	Stats(ctx context.Context, creatorID string, now time.Time) (*models.JobStats, error)
}

// Service manages postings on behalf of a signed-in user. Only a posting's
// creator may change it; everyone else sees active postings only.
type Service struct {
	store  Store
	now    func() time.Time
	logger logger.Logger
}

func NewService(store Store, log logger.Logger) *Service {
	return &Service{
		store:  store,
		now:    time.Now,
		logger: log.WithFields(map[string]interface{}{"component": "job_postings"}),
	}
}

// Get hides archived postings from everyone but their creator.
func (s *Service) Get(ctx context.Context, userID, id string) (*models.JobPosting, error) {
	job, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if job.Status != models.JobPostingActive && job.CreatorID != userID {
		return nil, apperrors.NewJobPostingNotFoundError(id)
	}
	return job, nil
}

func (s *Service) Create(ctx context.Context, userID string, in models.JobPostingInput) (*models.JobPosting, error) {
	in, err := normalizeInput(in)
	if err != nil {
		return nil, err
	}
	job, err := s.store.Insert(ctx, userID, in)
	if err != nil {
		return nil, err
	}
	s.logger.Info("job posting created", map[string]interface{}{"jobPostingId": job.ID, "creatorId": userID})
	return job, nil
}

func (s *Service) Update(ctx context.Context, userID, id string, in models.JobPostingInput) (*models.JobPosting, error) {
	in, err := normalizeInput(in)
	if err != nil {
		return nil, err
	}
	if _, err := s.owned(ctx, userID, id); err != nil {
		return nil, err
	}
	return s.store.Update(ctx, id, userID, in)
}

func (s *Service) Archive(ctx context.Context, userID, id string) (*models.JobPosting, error) {
	return s.setStatus(ctx, userID, id, models.JobPostingArchived)
}

func (s *Service) Restore(ctx context.Context, userID, id string) (*models.JobPosting, error) {
	return s.setStatus(ctx, userID, id, models.JobPostingActive)
}

func (s *Service) setStatus(ctx context.Context, userID, id, status string) (*models.JobPosting, error) {
	job, err := s.owned(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if job.Status == status {
		return job, nil
	}
	job, err = s.store.SetStatus(ctx, id, userID, status)
	if err != nil {
		return nil, err
	}
	s.logger.Info("job posting status changed", map[string]interface{}{"jobPostingId": id, "status": status})
	return job, nil
}

// List shows an employer their own postings in any status when mine is
// set, and active postings from every employer otherwise.
func (s *Service) List(ctx context.Context, userID string, mine bool, f ListFilter) (*models.JobPostingPage, error) {
	if mine {
		f.CreatorID = userID
	} else {
		f.CreatorID = ""
		f.Status = models.JobPostingActive
	}
	if f.Status != "" && f.Status != models.JobPostingActive && f.Status != models.JobPostingArchived {
		return nil, apperrors.NewJobPostingInvalidError(fmt.Sprintf("unknown status %q", f.Status))
	}
	return s.store.List(ctx, f)
}

// Stats is the dashboard summary of userID's postings.
func (s *Service) Stats(ctx context.Context, userID string) (*models.JobStats, error) {
	return s.store.Stats(ctx, userID, s.now())
}

func (s *Service) owned(ctx context.Context, userID, id string) (*models.JobPosting, error) {
	job, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if job.CreatorID != userID {
		return nil, apperrors.NewAccessDeniedError("job posting " + id + " belongs to another employer")
	}
	return job, nil
}

func normalizeInput(in models.JobPostingInput) (models.JobPostingInput, error) {
	in.JobTitle = strings.TrimSpace(in.JobTitle)
	in.CompanyName = strings.TrimSpace(in.CompanyName)
	in.Location = strings.TrimSpace(in.Location)
	in.SalaryRange = strings.TrimSpace(in.SalaryRange)
	in.EmploymentType = strings.TrimSpace(in.EmploymentType)
	in.Description = strings.TrimSpace(in.Description)

	var missing []string
	if in.JobTitle == "" {
		missing = append(missing, "job_title")
	}
	if in.CompanyName == "" {
		missing = append(missing, "company_name")
	}
	if len(missing) > 0 {
		return in, apperrors.NewJobPostingInvalidError("missing " + strings.Join(missing, ", "))
	}
	if in.ApplicantsNeeded == 0 {
		in.ApplicantsNeeded = 1
	}
	if in.ApplicantsNeeded < 0 {
		return in, apperrors.NewJobPostingInvalidError("applicants_needed must be positive")
	}

	seen := make(map[string]bool, len(in.Skills))
	skills := make([]string, 0, len(in.Skills))
	for _, sk := range in.Skills {
		sk = strings.TrimSpace(sk)
		key := strings.ToLower(sk)
		if sk == "" || seen[key] {
			continue
		}
		seen[key] = true
		skills = append(skills, sk)
	}
	in.Skills = skills
	return in, nil
}
