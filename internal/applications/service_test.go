package applications

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "hireflow/internal/common/errors"
	"hireflow/internal/common/logger"
	"hireflow/internal/models"
)

// ==========================
// Mocks
// ==========================

type MockStore struct {
	GetFunc            func(ctx context.Context, id string) (*models.Application, error)
	ListFunc           func(ctx context.Context, f Filter) (*models.ApplicationPage, error)
	UpdateStatusFunc   func(ctx context.Context, id string, from, to models.ApplicationStatus) error
	SetShortlistedFunc func(ctx context.Context, id string, shortlisted bool) error

	updates    []models.ApplicationStatus
	shortlists []bool
}

func (m *MockStore) Get(ctx context.Context, id string) (*models.Application, error) {
	return m.GetFunc(ctx, id)
}

func (m *MockStore) List(ctx context.Context, f Filter) (*models.ApplicationPage, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx, f)
	}
	return &models.ApplicationPage{Data: []models.Application{}}, nil
}

func (m *MockStore) UpdateStatus(ctx context.Context, id string, from, to models.ApplicationStatus) error {
	m.updates = append(m.updates, to)
	if m.UpdateStatusFunc != nil {
		return m.UpdateStatusFunc(ctx, id, from, to)
	}
	return nil
}

func (m *MockStore) SetShortlisted(ctx context.Context, id string, shortlisted bool) error {
	m.shortlists = append(m.shortlists, shortlisted)
	if m.SetShortlistedFunc != nil {
		return m.SetShortlistedFunc(ctx, id, shortlisted)
	}
	return nil
}

type MockNotifier struct {
	CreateFunc func(ctx context.Context, n *models.Notification) (*models.Notification, error)
	created    []models.Notification
}

func (m *MockNotifier) Create(ctx context.Context, n *models.Notification) (*models.Notification, error) {
	m.created = append(m.created, *n)
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, n)
	}
	return n, nil
}

type MockSearcher struct {
	SearchIDsFunc func(ctx context.Context, query string, limit int) ([]string, error)
}

func (m *MockSearcher) SearchIDs(ctx context.Context, query string, limit int) ([]string, error) {
	return m.SearchIDsFunc(ctx, query, limit)
}

// MockIndex is a searcher that also tracks status.
type MockIndex struct {
	MockSearcher
	UpdateStatusFunc func(ctx context.Context, id string, status models.ApplicationStatus) error
	statuses         []models.ApplicationStatus
}

func (m *MockIndex) UpdateStatus(ctx context.Context, id string, status models.ApplicationStatus) error {
	m.statuses = append(m.statuses, status)
	if m.UpdateStatusFunc != nil {
		return m.UpdateStatusFunc(ctx, id, status)
	}
	return nil
}

func storedApp(status models.ApplicationStatus, shortlisted bool) *models.Application {
	job := "job-1"
	return &models.Application{
		ID: "app-1",
		ApplicationPayload: models.ApplicationPayload{
			ApplicantID:  "user-1",
			JobPostingID: &job,
			Company:      "Acme",
			Status:       status,
		},
		Shortlisted: shortlisted,
		JobPosting:  &models.JobPostingRef{JobTitle: "Engineer", CompanyName: "Acme", CreatorID: "hr-1"},
	}
}

func fixedStore(app *models.Application) *MockStore {
	return &MockStore{GetFunc: func(ctx context.Context, id string) (*models.Application, error) {
		cp := *app
		return &cp, nil
	}}
}

// ==========================
// Status transitions
// ==========================

func TestUpdateStatus_AllowedTransitionNotifiesApplicant(t *testing.T) {
	store := fixedStore(storedApp(models.StatusPending, false))
	notifier := &MockNotifier{}
	svc := NewService(store, notifier, nil, logger.NewTestLogger(t))

	app, err := svc.UpdateStatus(context.Background(), "app-1", "interview")

	require.NoError(t, err)
	assert.Equal(t, models.StatusInterview, app.Status)
	assert.Equal(t, []models.ApplicationStatus{models.StatusInterview}, store.updates)
	require.Len(t, notifier.created, 1)
	n := notifier.created[0]
	assert.Equal(t, "user-1", n.RecipientID)
	assert.Equal(t, "interview", n.Type)
	assert.Equal(t, "Your application for Engineer status changed to interview", n.Message)
	assert.Equal(t, "app-1", *n.ApplicationID)
}

func TestUpdateStatus_DisallowedTransitionWritesNothing(t *testing.T) {
	tests := []struct {
		name string
		from models.ApplicationStatus
		to   string
	}{
		{"terminal accepted", models.StatusAccepted, "pending"},
		{"terminal withdrawn", models.StatusWithdrawn, "reviewed"},
		{"unknown value", models.StatusPending, "hired"},
		{"same status", models.StatusReviewed, "reviewed"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := fixedStore(storedApp(tt.from, false))
			notifier := &MockNotifier{}
			svc := NewService(store, notifier, nil, logger.NewNoOpLogger())

			_, err := svc.UpdateStatus(context.Background(), "app-1", tt.to)

			assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeInvalidStatusTransition))
			assert.Empty(t, store.updates)
			assert.Empty(t, notifier.created)
		})
	}
}

func TestUpdateStatus_NotificationFailureIsNotFatal(t *testing.T) {
	store := fixedStore(storedApp(models.StatusPending, false))
	notifier := &MockNotifier{CreateFunc: func(ctx context.Context, n *models.Notification) (*models.Notification, error) {
		return nil, errors.New("insert failed")
	}}
	svc := NewService(store, notifier, nil, logger.NewTestLogger(t))

	app, err := svc.UpdateStatus(context.Background(), "app-1", "rejected")

	require.NoError(t, err)
	assert.Equal(t, models.StatusRejected, app.Status)
}

func TestUpdateStatus_StoreErrors(t *testing.T) {
	missing := &MockStore{GetFunc: func(ctx context.Context, id string) (*models.Application, error) {
		return nil, apperrors.NewApplicationNotFoundError(id)
	}}
	svc := NewService(missing, &MockNotifier{}, nil, logger.NewNoOpLogger())
	_, err := svc.UpdateStatus(context.Background(), "gone", "reviewed")
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeApplicationNotFound))

	store := fixedStore(storedApp(models.StatusPending, false))
	store.UpdateStatusFunc = func(ctx context.Context, id string, from, to models.ApplicationStatus) error {
		return apperrors.NewQueryExecutionFailedError("application_update_status", errors.New("timeout"))
	}
	notifier := &MockNotifier{}
	svc = NewService(store, notifier, nil, logger.NewNoOpLogger())
	_, err = svc.UpdateStatus(context.Background(), "app-1", "reviewed")
	assert.Error(t, err)
	assert.Empty(t, notifier.created)
}

func TestUpdateStatus_ConflictPassesReadStatusAndSkipsNotification(t *testing.T) {
	store := fixedStore(storedApp(models.StatusPending, false))
	var gotFrom models.ApplicationStatus
	store.UpdateStatusFunc = func(ctx context.Context, id string, from, to models.ApplicationStatus) error {
		gotFrom = from
		return apperrors.NewStatusConflictError(id, string(from))
	}
	notifier := &MockNotifier{}
	svc := NewService(store, notifier, nil, logger.NewNoOpLogger())

	_, err := svc.UpdateStatus(context.Background(), "app-1", "interview")

	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeStatusConflict))
	assert.Equal(t, models.StatusPending, gotFrom)
	assert.Empty(t, notifier.created)

	_, err = svc.Withdraw(context.Background(), "app-1")
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeStatusConflict))
	assert.Empty(t, notifier.created)
}

func TestUpdateStatus_SyncsSearchIndex(t *testing.T) {
	store := fixedStore(storedApp(models.StatusPending, false))
	idx := &MockIndex{}
	svc := NewService(store, &MockNotifier{}, idx, logger.NewTestLogger(t))

	_, err := svc.UpdateStatus(context.Background(), "app-1", "reviewed")
	require.NoError(t, err)
	_, err = svc.Withdraw(context.Background(), "app-1")
	require.NoError(t, err)

	assert.Equal(t, []models.ApplicationStatus{models.StatusReviewed, models.StatusWithdrawn}, idx.statuses)
}

func TestUpdateStatus_IndexFailureIsNotFatal(t *testing.T) {
	store := fixedStore(storedApp(models.StatusPending, false))
	idx := &MockIndex{UpdateStatusFunc: func(ctx context.Context, id string, status models.ApplicationStatus) error {
		return errors.New("cluster unavailable")
	}}
	svc := NewService(store, &MockNotifier{}, idx, logger.NewTestLogger(t))

	app, err := svc.UpdateStatus(context.Background(), "app-1", "reviewed")

	require.NoError(t, err)
	assert.Equal(t, models.StatusReviewed, app.Status)
}

// ==========================
// Shortlist
// ==========================

func TestSetShortlisted_UnchangedIsNoOp(t *testing.T) {
	for _, flag := range []bool{true, false} {
		store := fixedStore(storedApp(models.StatusReviewed, flag))
		notifier := &MockNotifier{}
		svc := NewService(store, notifier, nil, logger.NewNoOpLogger())

		app, err := svc.SetShortlisted(context.Background(), "app-1", flag)

		require.NoError(t, err)
		assert.Equal(t, flag, app.Shortlisted)
		assert.Empty(t, store.shortlists)
		assert.Empty(t, notifier.created)
	}
}

func TestSetShortlisted_ToggleNotifies(t *testing.T) {
	store := fixedStore(storedApp(models.StatusReviewed, false))
	notifier := &MockNotifier{}
	svc := NewService(store, notifier, nil, logger.NewTestLogger(t))

	app, err := svc.SetShortlisted(context.Background(), "app-1", true)
	require.NoError(t, err)
	assert.True(t, app.Shortlisted)

	store2 := fixedStore(storedApp(models.StatusReviewed, true))
	svc = NewService(store2, notifier, nil, logger.NewTestLogger(t))
	_, err = svc.SetShortlisted(context.Background(), "app-1", false)
	require.NoError(t, err)

	require.Len(t, notifier.created, 2)
	assert.Equal(t, "You've been shortlisted for Engineer", notifier.created[0].Message)
	assert.Equal(t, "You've been removed from the shortlist for Engineer", notifier.created[1].Message)
	for _, n := range notifier.created {
		assert.Equal(t, models.NotificationShortlisted, n.Type)
		assert.Equal(t, "user-1", n.RecipientID)
	}
}

// ==========================
// Withdraw / new application
// ==========================

func TestWithdraw_NotifiesCreator(t *testing.T) {
	store := fixedStore(storedApp(models.StatusInterview, false))
	notifier := &MockNotifier{}
	svc := NewService(store, notifier, nil, logger.NewTestLogger(t))

	app, err := svc.Withdraw(context.Background(), "app-1")

	require.NoError(t, err)
	assert.Equal(t, models.StatusWithdrawn, app.Status)
	require.Len(t, notifier.created, 1)
	assert.Equal(t, "hr-1", notifier.created[0].RecipientID)
	assert.Equal(t, models.NotificationWithdrawn, notifier.created[0].Type)
	assert.Equal(t, "An applicant has withdrawn their application for Engineer", notifier.created[0].Message)
}

func TestWithdraw_FromTerminalFails(t *testing.T) {
	store := fixedStore(storedApp(models.StatusRejected, false))
	svc := NewService(store, &MockNotifier{}, nil, logger.NewNoOpLogger())

	_, err := svc.Withdraw(context.Background(), "app-1")

	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeInvalidStatusTransition))
	assert.Empty(t, store.updates)
}

func TestNotifyNewApplication(t *testing.T) {
	notifier := &MockNotifier{}
	svc := NewService(&MockStore{}, notifier, nil, logger.NewNoOpLogger())

	require.NoError(t, svc.NotifyNewApplication(context.Background(), storedApp(models.StatusPending, false)))
	require.Len(t, notifier.created, 1)
	assert.Equal(t, "New application received for Engineer", notifier.created[0].Message)
	assert.Equal(t, models.NotificationApplication, notifier.created[0].Type)
	assert.Equal(t, "hr-1", notifier.created[0].RecipientID)

	orphan := storedApp(models.StatusPending, false)
	orphan.JobPosting = nil
	require.NoError(t, svc.NotifyNewApplication(context.Background(), orphan))
	assert.Len(t, notifier.created, 1)
}

func TestNotifyNewApplication_PropagatesError(t *testing.T) {
	notifier := &MockNotifier{CreateFunc: func(ctx context.Context, n *models.Notification) (*models.Notification, error) {
		return nil, errors.New("db down")
	}}
	svc := NewService(&MockStore{}, notifier, nil, logger.NewNoOpLogger())

	assert.Error(t, svc.NotifyNewApplication(context.Background(), storedApp(models.StatusPending, false)))
}

func TestJobTitleFallback(t *testing.T) {
	app := storedApp(models.StatusPending, false)
	app.JobPosting = &models.JobPostingRef{CreatorID: "hr-1"}
	assert.Equal(t, "the position", jobTitle(app))
}

// ==========================
// Search
// ==========================

func TestList_UsesSearchEngineIDs(t *testing.T) {
	var got Filter
	store := &MockStore{ListFunc: func(ctx context.Context, f Filter) (*models.ApplicationPage, error) {
		got = f
		return &models.ApplicationPage{}, nil
	}}
	searcher := &MockSearcher{SearchIDsFunc: func(ctx context.Context, query string, limit int) ([]string, error) {
		assert.Equal(t, "golang", query)
		assert.Equal(t, MaxSearchHits, limit)
		return []string{"app-3", "app-1"}, nil
	}}
	svc := NewService(store, nil, searcher, logger.NewNoOpLogger())

	_, err := svc.List(context.Background(), Filter{Search: "golang"})

	require.NoError(t, err)
	assert.Equal(t, []string{"app-3", "app-1"}, got.ids)
}

func TestList_NoHitsYieldsEmptyIDs(t *testing.T) {
	var got Filter
	store := &MockStore{ListFunc: func(ctx context.Context, f Filter) (*models.ApplicationPage, error) {
		got = f
		return &models.ApplicationPage{}, nil
	}}
	searcher := &MockSearcher{SearchIDsFunc: func(ctx context.Context, query string, limit int) ([]string, error) {
		return nil, nil
	}}
	svc := NewService(store, nil, searcher, logger.NewNoOpLogger())

	_, err := svc.List(context.Background(), Filter{Search: "nothing"})

	require.NoError(t, err)
	assert.NotNil(t, got.ids)
	assert.Empty(t, got.ids)
}

func TestList_SearchFailureFallsBackToSQL(t *testing.T) {
	var got Filter
	store := &MockStore{ListFunc: func(ctx context.Context, f Filter) (*models.ApplicationPage, error) {
		got = f
		return &models.ApplicationPage{}, nil
	}}
	searcher := &MockSearcher{SearchIDsFunc: func(ctx context.Context, query string, limit int) ([]string, error) {
		return nil, errors.New("cluster unavailable")
	}}
	svc := NewService(store, nil, searcher, logger.NewTestLogger(t))

	_, err := svc.List(context.Background(), Filter{Search: "golang"})

	require.NoError(t, err)
	assert.Nil(t, got.ids)
	assert.Equal(t, "golang", got.Search)
}
