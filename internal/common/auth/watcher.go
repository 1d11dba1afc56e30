package auth

import (
	"context"
	"sync"
	"time"

	"hireflow/internal/common/logger"
)

const DefaultCheckInterval = 60 * time.Second

// SessionSource is what the Watcher polls.
type SessionSource interface {
	CurrentSession(ctx context.Context) (*Session, error)
}

// Watcher re-checks the session on a ticker and calls onSignedOut once per
// transition from present to absent.
type Watcher struct {
	source      SessionSource
	interval    time.Duration
	onSignedOut func()
	logger      logger.Logger

	mu      sync.Mutex
	present bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	stop    sync.Once
}

func NewWatcher(source SessionSource, interval time.Duration, onSignedOut func(), log logger.Logger) *Watcher {
	if interval <= 0 {
		interval = DefaultCheckInterval
	}
	if onSignedOut == nil {
		onSignedOut = func() {}
	}
	return &Watcher{
		source:      source,
		interval:    interval,
		onSignedOut: onSignedOut,
		logger:      log.WithFields(map[string]interface{}{"component": "auth_watcher"}),
	}
}

// Start checks once synchronously, then on every tick until Stop or ctx is
// done.
func (w *Watcher) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	w.mu.Lock()
	w.cancel = cancel
	w.mu.Unlock()

	w.Check(ctx)

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		ticker := time.NewTicker(w.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				w.Check(ctx)
			}
		}
	}()
}

// Check reports whether a session is present.
func (w *Watcher) Check(ctx context.Context) bool {
	s, err := w.source.CurrentSession(ctx)
	if err != nil {
		w.logger.Debug("session check failed", map[string]interface{}{"error": err.Error()})
	}
	present := s != nil

	w.mu.Lock()
	lost := w.present && !present
	w.present = present
	w.mu.Unlock()

	if lost {
		w.logger.Info("session ended", nil)
		w.onSignedOut()
	}
	return present
}

// Stop is idempotent and waits for the ticker goroutine to exit.
func (w *Watcher) Stop() {
	w.stop.Do(func() {
		w.mu.Lock()
		cancel := w.cancel
		w.mu.Unlock()
		if cancel != nil {
			cancel()
		}
	})
	w.wg.Wait()
}
