// Package notifications persists the in-app notification feed and fans new
// rows out over Redis pub/sub.
package notifications

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	apperrors "hireflow/internal/common/errors"
	"hireflow/internal/common/logger"
	"hireflow/internal/common/metrics"
	"hireflow/internal/models"
)

var ErrNotFound = errors.New("NOTIFICATION_NOT_FOUND")

// DefaultFeedLimit caps ListForRecipient when no limit is given.
const DefaultFeedLimit = 50

// ChannelName is the Redis channel carrying one recipient's new rows.
func ChannelName(recipientID string) string {
	return "notifications:" + recipientID
}

// Contact is a recipient's delivery address from profiles.
type Contact struct {
	Email string
	Phone string
}

type Store struct {
	db     *sql.DB
	rdb    *redis.Client
	logger logger.Logger
}

// NewStore builds a store. rdb may be nil, in which case nothing is
// published.
func NewStore(db *sql.DB, rdb *redis.Client, log logger.Logger) *Store {
	return &Store{
		db:     db,
		rdb:    rdb,
		logger: log.WithFields(map[string]interface{}{"component": "notifications"}),
	}
}

// Create inserts n and publishes the stored row on the recipient's channel.
// A publish failure is logged and does not fail the call.
func (s *Store) Create(ctx context.Context, n *models.Notification) (*models.Notification, error) {
	out := *n
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO notifications (job_posting_id, application_id, recipient_id, message, type)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, read, created_at`,
		nullable(n.JobPostingID), nullable(n.ApplicationID), n.RecipientID, n.Message, n.Type,
	).Scan(&out.ID, &out.Read, &out.CreatedAt)
	if err != nil {
		return nil, apperrors.NewDatabaseInsertFailedError("notifications", err)
	}

	metrics.NotificationsCreated.WithLabelValues(out.Type).Inc()
	s.publish(ctx, &out)
	return &out, nil
}

func (s *Store) publish(ctx context.Context, n *models.Notification) {
	if s.rdb == nil {
		return
	}
	payload, err := json.Marshal(n)
	if err != nil {
		s.logger.Warn("failed to encode notification", map[string]interface{}{"error": err})
		return
	}
	if err := s.rdb.Publish(ctx, ChannelName(n.RecipientID), payload).Err(); err != nil {
		s.logger.Warn("failed to publish notification", map[string]interface{}{
			"notificationId": n.ID,
			"recipientId":    n.RecipientID,
			"error":          err,
		})
	}
}

// Get loads one notification.
func (s *Store) Get(ctx context.Context, id string) (*models.Notification, error) {
	rows, err := s.db.QueryContext(ctx, feedQuery+` WHERE n.id = $1`, id)
	if err != nil {
		return nil, apperrors.NewQueryExecutionFailedError("notification_get", err)
	}
	defer rows.Close()

	list, err := scanFeed(rows)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return &list[0], nil
}

// ListForRecipient returns the feed newest first, joined with the job
// posting's title and company.
func (s *Store) ListForRecipient(ctx context.Context, recipientID string, limit int) ([]models.Notification, error) {
	if limit <= 0 {
		limit = DefaultFeedLimit
	}
	rows, err := s.db.QueryContext(ctx, feedQuery+`
		WHERE n.recipient_id = $1
		ORDER BY n.created_at DESC
		LIMIT $2`, recipientID, limit)
	if err != nil {
		return nil, apperrors.NewQueryExecutionFailedError("notification_feed", err)
	}
	defer rows.Close()

	return scanFeed(rows)
}

// MarkAsRead only touches rows owned by recipientID.
func (s *Store) MarkAsRead(ctx context.Context, id, recipientID string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE notifications SET read = TRUE WHERE id = $1 AND recipient_id = $2`,
		id, recipientID)
	if err != nil {
		return apperrors.NewQueryExecutionFailedError("notification_mark_read", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return apperrors.NewQueryExecutionFailedError("notification_mark_read", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}

func (s *Store) UnreadCount(ctx context.Context, recipientID string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM notifications WHERE recipient_id = $1 AND read = FALSE`,
		recipientID).Scan(&count)
	if err != nil {
		return 0, apperrors.NewQueryExecutionFailedError("notification_unread_count", err)
	}
	return count, nil
}

// RecipientContact reads the delivery address of a profile.
func (s *Store) RecipientContact(ctx context.Context, recipientID string) (Contact, error) {
	var c Contact
	err := s.db.QueryRowContext(ctx,
		`SELECT email, phone FROM profiles WHERE id = $1`, recipientID).Scan(&c.Email, &c.Phone)
	if errors.Is(err, sql.ErrNoRows) {
		return Contact{}, fmt.Errorf("%w: no profile for recipient %s", ErrNotFound, recipientID)
	}
	if err != nil {
		return Contact{}, apperrors.NewQueryExecutionFailedError("recipient_contact", err)
	}
	return c, nil
}

// Subscribe opens the recipient's channel. The caller closes it.
func (s *Store) Subscribe(ctx context.Context, recipientID string) *redis.PubSub {
	if s.rdb == nil {
		return nil
	}
	return s.rdb.Subscribe(ctx, ChannelName(recipientID))
}

const feedQuery = `
		SELECT n.id, n.job_posting_id, n.application_id, n.recipient_id, n.message, n.type,
		       n.read, n.created_at, COALESCE(j.job_title, ''), COALESCE(j.company_name, '')
		FROM notifications n
		LEFT JOIN job_posting j ON j.id = n.job_posting_id`

func scanFeed(rows *sql.Rows) ([]models.Notification, error) {
	list := []models.Notification{}
	for rows.Next() {
		var n models.Notification
		var jobID, appID sql.NullString
		if err := rows.Scan(&n.ID, &jobID, &appID, &n.RecipientID, &n.Message, &n.Type,
			&n.Read, &n.CreatedAt, &n.JobTitle, &n.CompanyName); err != nil {
			return nil, apperrors.NewQueryExecutionFailedError("notification_scan", err)
		}
		n.JobPostingID = fromNull(jobID)
		n.ApplicationID = fromNull(appID)
		list = append(list, n)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewQueryExecutionFailedError("notification_scan", err)
	}
	return list, nil
}

func nullable(s *string) interface{} {
	if s == nil || *s == "" {
		return nil
	}
	return *s
}

func fromNull(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}
