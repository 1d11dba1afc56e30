package api

import (
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"

	"hireflow/internal/common/auth"
	"hireflow/internal/models"
	"hireflow/internal/notifications"
)

func (s *Server) listNotifications(c *gin.Context) {
	user := auth.UserID(c)
	ctx := c.Request.Context()

	feed, err := s.deps.Notifications.ListForRecipient(ctx, user, notifications.DefaultFeedLimit)
	if err != nil {
		respondError(c, err)
		return
	}
	unread, err := s.deps.Notifications.UnreadCount(ctx, user)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"notifications": feed, "unread": unread})
}

func (s *Server) markRead(c *gin.Context) {
	if err := s.deps.Notifications.MarkAsRead(c.Request.Context(), c.Param("id"), auth.UserID(c)); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// streamNotifications pushes the caller's feed as server-sent events. Each
// event carries the whole feed; only the latest undelivered feed is kept.
func (s *Server) streamNotifications(c *gin.Context) {
	ctx := c.Request.Context()
	updates := make(chan []models.Notification, 1)
	var mu sync.Mutex

	p := notifications.NewPoller(s.deps.Notifications, s.deps.Subscriber, auth.UserID(c), s.cfg.PollInterval, s.logger)
	p.OnUpdate(func(feed []models.Notification) {
		mu.Lock()
		defer mu.Unlock()
		select {
		case <-updates:
		default:
		}
		updates <- feed
	})
	if err := p.Start(ctx); err != nil {
		respondError(c, err)
		return
	}
	defer p.Stop()

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Status(http.StatusOK)
	for {
		select {
		case <-ctx.Done():
			return
		case feed := <-updates:
			c.SSEvent("notifications", feed)
			c.Writer.Flush()
		}
	}
}
