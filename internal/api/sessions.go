package api

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"hireflow/internal/common/logger"
	"hireflow/internal/common/metrics"
	"hireflow/internal/wizard"
)

var ErrSessionNotFound = errors.New("WIZARD_NOT_FOUND")

const DefaultSessionTTL = 2 * time.Hour

type wizardSession struct {
	ctrl    *wizard.Controller
	owner   string
	touched time.Time
}

// SessionRegistry holds live wizard controllers keyed by id. Sessions belong
// to the user that mounted them; other users see them as not found.
type SessionRegistry struct {
	ttl    time.Duration
	now    func() time.Time
	logger logger.Logger

	mu       sync.Mutex
	sessions map[string]*wizardSession

	cancel context.CancelFunc
	wg     sync.WaitGroup
	stop   sync.Once
}

func NewSessionRegistry(ttl time.Duration, log logger.Logger) *SessionRegistry {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &SessionRegistry{
		ttl:      ttl,
		now:      time.Now,
		logger:   log.WithFields(map[string]interface{}{"component": "wizard_sessions"}),
		sessions: make(map[string]*wizardSession),
	}
}

func (r *SessionRegistry) Add(owner string, ctrl *wizard.Controller) string {
	id := uuid.NewString()
	r.mu.Lock()
	r.sessions[id] = &wizardSession{ctrl: ctrl, owner: owner, touched: r.now()}
	n := len(r.sessions)
	r.mu.Unlock()

	metrics.WizardSessionsActive.Set(float64(n))
	return id
}

// Get returns the controller and refreshes its idle timer.
func (r *SessionRegistry) Get(id, owner string) (*wizard.Controller, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[id]
	if !ok || s.owner != owner {
		return nil, ErrSessionNotFound
	}
	s.touched = r.now()
	return s.ctrl, nil
}

func (r *SessionRegistry) Remove(id, owner string) error {
	r.mu.Lock()
	s, ok := r.sessions[id]
	if !ok || s.owner != owner {
		r.mu.Unlock()
		return ErrSessionNotFound
	}
	delete(r.sessions, id)
	n := len(r.sessions)
	r.mu.Unlock()

	metrics.WizardSessionsActive.Set(float64(n))
	return nil
}

func (r *SessionRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Sweep drops sessions idle longer than the TTL. A session that is
// submitting is kept until its transport call returns.
func (r *SessionRegistry) Sweep() int {
	cutoff := r.now().Add(-r.ttl)

	r.mu.Lock()
	removed := 0
	for id, s := range r.sessions {
		if s.touched.Before(cutoff) && s.ctrl.Phase() != wizard.PhaseSubmitting {
			delete(r.sessions, id)
			removed++
		}
	}
	n := len(r.sessions)
	r.mu.Unlock()

	metrics.WizardSessionsActive.Set(float64(n))
	if removed > 0 {
		r.logger.Info("expired wizard sessions removed", map[string]interface{}{
			"removed":   removed,
			"remaining": n,
		})
	}
	return removed
}

// StartSweeper runs Sweep every interval until Stop or ctx is done.
func (r *SessionRegistry) StartSweeper(ctx context.Context, interval time.Duration) {
	ctx, cancel := context.WithCancel(ctx)
	r.mu.Lock()
	r.cancel = cancel
	r.mu.Unlock()

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				r.Sweep()
			}
		}
	}()
}

func (r *SessionRegistry) Stop() {
	r.stop.Do(func() {
		r.mu.Lock()
		cancel := r.cancel
		r.mu.Unlock()
		if cancel != nil {
			cancel()
		}
	})
	r.wg.Wait()
}
