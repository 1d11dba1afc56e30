// internal/workers/application/update-application-status/handler_test.go
package updateapplicationstatus

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	apperrors "hireflow/internal/common/errors"
	"hireflow/internal/common/logger"
	"hireflow/internal/models"
)

type MockUpdater struct {
	mock.Mock
}

func (m *MockUpdater) UpdateStatus(ctx context.Context, id, status string) (*models.Application, error) {
	args := m.Called(ctx, id, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Application), args.Error(1)
}

func TestHandler_Execute_Success(t *testing.T) {
	updated := &models.Application{
		ID:                 "app-1",
		ApplicationPayload: models.ApplicationPayload{ApplicantID: "seeker-1", Status: models.StatusInterview},
		UpdatedAt:          time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC),
	}
	apps := &MockUpdater{}
	apps.On("UpdateStatus", mock.Anything, "app-1", "interview").Return(updated, nil)

	out, err := NewHandler(nil, apps, logger.NewTestLogger(t)).
		Execute(context.Background(), &Input{ApplicationID: "app-1", Status: "interview"})

	require.NoError(t, err)
	assert.Equal(t, &Output{
		ApplicationID: "app-1",
		Status:        "interview",
		ApplicantID:   "seeker-1",
		UpdatedAt:     "2024-06-01T10:00:00Z",
	}, out)
	apps.AssertExpectations(t)
}

func TestHandler_Execute_MissingFields(t *testing.T) {
	apps := &MockUpdater{}
	h := NewHandler(nil, apps, logger.NewNoOpLogger())

	for _, in := range []*Input{{Status: "reviewed"}, {ApplicationID: "app-1"}} {
		_, err := h.Execute(context.Background(), in)
		assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeApplicationValidationFailed))
	}
	apps.AssertNotCalled(t, "UpdateStatus", mock.Anything, mock.Anything, mock.Anything)
}

func TestHandler_Execute_RejectedTransition(t *testing.T) {
	apps := &MockUpdater{}
	apps.On("UpdateStatus", mock.Anything, "app-1", "pending").
		Return(nil, apperrors.NewInvalidStatusTransitionError("accepted", "pending"))

	_, err := NewHandler(nil, apps, logger.NewNoOpLogger()).
		Execute(context.Background(), &Input{ApplicationID: "app-1", Status: "pending"})

	std, ok := apperrors.As(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.ErrCodeInvalidStatusTransition, std.Code)
	assert.False(t, std.Retryable)
}

func TestHandler_Execute_NotFound(t *testing.T) {
	apps := &MockUpdater{}
	apps.On("UpdateStatus", mock.Anything, "missing", "reviewed").
		Return(nil, apperrors.NewApplicationNotFoundError("missing"))

	_, err := NewHandler(nil, apps, logger.NewNoOpLogger()).
		Execute(context.Background(), &Input{ApplicationID: "missing", Status: "reviewed"})

	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeApplicationNotFound))
}
