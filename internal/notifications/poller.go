package notifications

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"hireflow/internal/common/logger"
	"hireflow/internal/models"
)

var ErrPollerStarted = errors.New("poller already started")

// FeedReader reads a recipient's notification feed.
type FeedReader interface {
	ListForRecipient(ctx context.Context, recipientID string, limit int) ([]models.Notification, error)
}

// Subscriber opens the push channel for a recipient. A nil *redis.PubSub
// means push is unavailable and the poller relies on the timer alone.
type Subscriber interface {
	Subscribe(ctx context.Context, recipientID string) *redis.PubSub
}

// Listener receives the whole refreshed feed.
type Listener func(feed []models.Notification)

// Poller re-reads one recipient's feed on a fixed interval and whenever the
// recipient's channel signals a new row. Stop releases the timer and the
// subscription.
type Poller struct {
	feed        FeedReader
	sub         Subscriber
	recipientID string
	interval    time.Duration
	limit       int
	logger      logger.Logger

	mu        sync.Mutex
	listeners []Listener
	started   bool
	cancel    context.CancelFunc
	pubsub    *redis.PubSub
	wg        sync.WaitGroup
	stopOnce  sync.Once
}

// NewPoller builds a poller. sub may be nil.
func NewPoller(feed FeedReader, sub Subscriber, recipientID string, interval time.Duration, log logger.Logger) *Poller {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &Poller{
		feed:        feed,
		sub:         sub,
		recipientID: recipientID,
		interval:    interval,
		limit:       DefaultFeedLimit,
		logger: log.WithFields(map[string]interface{}{
			"component":   "notification-poller",
			"recipientId": recipientID,
		}),
	}
}

// OnUpdate registers a listener. Listeners run on the poller's goroutines.
func (p *Poller) OnUpdate(l Listener) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.listeners = append(p.listeners, l)
}

// Start performs an immediate refresh, then launches the timer and the
// subscription loops.
func (p *Poller) Start(parent context.Context) error {
	p.mu.Lock()
	if p.started {
		p.mu.Unlock()
		return ErrPollerStarted
	}
	p.started = true
	ctx, cancel := context.WithCancel(parent)
	p.cancel = cancel

	if p.sub != nil {
		if ps := p.sub.Subscribe(ctx, p.recipientID); ps != nil {
			if _, err := ps.Receive(ctx); err != nil {
				p.logger.Warn("notification subscription unavailable", map[string]interface{}{"error": err})
				_ = ps.Close()
			} else {
				p.pubsub = ps
			}
		}
	}
	pubsub := p.pubsub
	p.mu.Unlock()

	p.Refresh(ctx)

	p.wg.Add(1)
	go p.tick(ctx)

	if pubsub != nil {
		p.wg.Add(1)
		go p.listen(ctx, pubsub)
	}
	return nil
}

// Stop is idempotent and waits for both loops to exit.
func (p *Poller) Stop() {
	p.stopOnce.Do(func() {
		p.mu.Lock()
		cancel, pubsub := p.cancel, p.pubsub
		p.mu.Unlock()

		if cancel != nil {
			cancel()
		}
		if pubsub != nil {
			_ = pubsub.Close()
		}
		p.wg.Wait()
		p.logger.Debug("poller stopped", nil)
	})
}

// Refresh reads the feed and notifies listeners. Errors are logged.
func (p *Poller) Refresh(ctx context.Context) []models.Notification {
	feed, err := p.feed.ListForRecipient(ctx, p.recipientID, p.limit)
	if err != nil {
		if ctx.Err() == nil {
			p.logger.Warn("feed refresh failed", map[string]interface{}{"error": err})
		}
		return nil
	}

	p.mu.Lock()
	listeners := append([]Listener(nil), p.listeners...)
	p.mu.Unlock()

	for _, l := range listeners {
		l(feed)
	}
	return feed
}

func (p *Poller) tick(ctx context.Context) {
	defer p.wg.Done()
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.Refresh(ctx)
		}
	}
}

func (p *Poller) listen(ctx context.Context, ps *redis.PubSub) {
	defer p.wg.Done()
	ch := ps.Channel()

	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-ch:
			if !ok {
				return
			}
			p.Refresh(ctx)
		}
	}
}
