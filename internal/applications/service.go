package applications

import (
	"context"
	"fmt"

	apperrors "hireflow/internal/common/errors"
	"hireflow/internal/common/logger"
	"hireflow/internal/models"
)

// MaxSearchHits bounds how many ids a search engine query may contribute.
const MaxSearchHits = 1000

// Store is the persistence the service needs; *Repository implements it.
type Store interface {
	Get(ctx context.Context, id string) (*models.Application, error)
	List(ctx context.Context, f Filter) (*models.ApplicationPage, error)
	UpdateStatus(ctx context.Context, id string, from, to models.ApplicationStatus) error
	SetShortlisted(ctx context.Context, id string, shortlisted bool) error
}

// NotificationCreator writes one feed row.
type NotificationCreator interface {
	Create(ctx context.Context, n *models.Notification) (*models.Notification, error)
}

// Searcher resolves free text to application ids.
type Searcher interface {
	SearchIDs(ctx context.Context, query string, limit int) ([]string, error)
}

// StatusIndex is implemented by searchers that also keep each
// application's status; the service updates it after every change.
type StatusIndex interface {
	UpdateStatus(ctx context.Context, id string, status models.ApplicationStatus) error
}

type Service struct {
	store    Store
	notifier NotificationCreator
	searcher Searcher
	logger   logger.Logger
}

// NewService wires the store and the notification writer. searcher may be
// nil, in which case free-text search runs in SQL.
func NewService(store Store, notifier NotificationCreator, searcher Searcher, log logger.Logger) *Service {
	return &Service{
		store:    store,
		notifier: notifier,
		searcher: searcher,
		logger:   log.WithFields(map[string]interface{}{"component": "applications"}),
	}
}

func (s *Service) Get(ctx context.Context, id string) (*models.Application, error) {
	return s.store.Get(ctx, id)
}

// List applies f. With a searcher configured, the search text is resolved to
// ids first; a search engine failure falls back to SQL matching.
func (s *Service) List(ctx context.Context, f Filter) (*models.ApplicationPage, error) {
	if s.searcher != nil && f.Search != "" {
		ids, err := s.searcher.SearchIDs(ctx, f.Search, MaxSearchHits)
		if err != nil {
			s.logger.Warn("search engine query failed, falling back to SQL", map[string]interface{}{
				"error": err.Error(),
			})
		} else {
			if ids == nil {
				ids = []string{}
			}
			f.ids = ids
		}
	}
	return s.store.List(ctx, f)
}

// UpdateStatus enforces the transition table and tells the applicant.
func (s *Service) UpdateStatus(ctx context.Context, id, raw string) (*models.Application, error) {
	app, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	next, err := models.ParseStatus(raw)
	if err != nil || !models.IsTransitionAllowed(app.Status, next) {
		return nil, apperrors.NewInvalidStatusTransitionError(string(app.Status), raw)
	}

	if err := s.store.UpdateStatus(ctx, id, app.Status, next); err != nil {
		return nil, err
	}
	from := app.Status
	app.Status = next
	s.syncIndex(ctx, id, next)

	s.logger.Info("application status changed", map[string]interface{}{
		"applicationId": id,
		"from":          string(from),
		"to":            string(next),
	})

	s.notify(ctx, app, app.ApplicantID, string(next),
		fmt.Sprintf("Your application for %s status changed to %s", jobTitle(app), next))
	return app, nil
}

// SetShortlisted is a no-op when the flag already has the requested value.
func (s *Service) SetShortlisted(ctx context.Context, id string, shortlisted bool) (*models.Application, error) {
	app, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if app.Shortlisted == shortlisted {
		return app, nil
	}

	if err := s.store.SetShortlisted(ctx, id, shortlisted); err != nil {
		return nil, err
	}
	app.Shortlisted = shortlisted

	msg := fmt.Sprintf("You've been shortlisted for %s", jobTitle(app))
	if !shortlisted {
		msg = fmt.Sprintf("You've been removed from the shortlist for %s", jobTitle(app))
	}
	s.notify(ctx, app, app.ApplicantID, models.NotificationShortlisted, msg)
	return app, nil
}

// Withdraw moves the application to withdrawn and tells the employer.
func (s *Service) Withdraw(ctx context.Context, id string) (*models.Application, error) {
	app, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !models.IsTransitionAllowed(app.Status, models.StatusWithdrawn) {
		return nil, apperrors.NewInvalidStatusTransitionError(string(app.Status), string(models.StatusWithdrawn))
	}

	if err := s.store.UpdateStatus(ctx, id, app.Status, models.StatusWithdrawn); err != nil {
		return nil, err
	}
	app.Status = models.StatusWithdrawn
	s.syncIndex(ctx, id, models.StatusWithdrawn)

	if app.JobPosting != nil && app.JobPosting.CreatorID != "" {
		s.notify(ctx, app, app.JobPosting.CreatorID, models.NotificationWithdrawn,
			fmt.Sprintf("An applicant has withdrawn their application for %s", jobTitle(app)))
	}
	return app, nil
}

// NotifyNewApplication tells the job posting's creator about app. Postings
// without a creator are skipped.
func (s *Service) NotifyNewApplication(ctx context.Context, app *models.Application) error {
	if s.notifier == nil || app.JobPosting == nil || app.JobPosting.CreatorID == "" {
		return nil
	}
	_, err := s.notifier.Create(ctx, &models.Notification{
		JobPostingID:  app.JobPostingID,
		ApplicationID: &app.ID,
		RecipientID:   app.JobPosting.CreatorID,
		Message:       fmt.Sprintf("New application received for %s", jobTitle(app)),
		Type:          models.NotificationApplication,
	})
	return err
}

func (s *Service) syncIndex(ctx context.Context, id string, status models.ApplicationStatus) {
	idx, ok := s.searcher.(StatusIndex)
	if !ok {
		return
	}
	if err := idx.UpdateStatus(ctx, id, status); err != nil {
		s.logger.Warn("failed to update search index status", map[string]interface{}{
			"applicationId": id,
			"status":        string(status),
			"error":         err.Error(),
		})
	}
}

func (s *Service) notify(ctx context.Context, app *models.Application, recipient, kind, msg string) {
	if s.notifier == nil || recipient == "" {
		return
	}
	_, err := s.notifier.Create(ctx, &models.Notification{
		JobPostingID:  app.JobPostingID,
		ApplicationID: &app.ID,
		RecipientID:   recipient,
		Message:       msg,
		Type:          kind,
	})
	if err != nil {
		s.logger.Warn("failed to create notification", map[string]interface{}{
			"applicationId": app.ID,
			"type":          kind,
			"error":         err.Error(),
		})
	}
}

func jobTitle(app *models.Application) string {
	if app.JobPosting != nil && app.JobPosting.JobTitle != "" {
		return app.JobPosting.JobTitle
	}
	return "the position"
}
