package auth

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/greenlot/menu-order-service/internal/metrics"
)

// RefreshFunc performs one actual refresh against the auth provider.
type RefreshFunc func(ctx context.Context) (*Session, error)

type call struct {
	done    chan struct{}
	session *Session
	err     error
}

// RefreshManager collapses concurrent token refreshes for the same scope
// into one upstream call, and short-circuits refreshes requested within the
// minimum interval of the last success (the recent session is still valid).
// Construct one per process and inject it; the registry is per-replica only.
type RefreshManager struct {
	mu          sync.Mutex
	inflight    map[string]*call
	lastSession map[string]*Session
	lastSuccess map[string]time.Time
	minInterval time.Duration
	logger      *zap.Logger
	now         func() time.Time
}

func NewRefreshManager(minInterval time.Duration, log *zap.Logger) *RefreshManager {
	return &RefreshManager{
		inflight:    make(map[string]*call),
		lastSession: make(map[string]*Session),
		lastSuccess: make(map[string]time.Time),
		minInterval: minInterval,
		logger:      log,
		now:         time.Now,
	}
}

// Refresh returns the scope's session, executing fn at most once across all
// concurrent callers. Callers joining an in-flight refresh receive the same
// result, success or failure.
func (m *RefreshManager) Refresh(ctx context.Context, scope string, fn RefreshFunc) (*Session, error) {
	m.mu.Lock()

	if ts, ok := m.lastSuccess[scope]; ok && m.now().Sub(ts) < m.minInterval {
		session := m.lastSession[scope]
		m.mu.Unlock()
		metrics.TokenRefreshTotal.WithLabelValues("throttled").Inc()
		m.logger.Debug("refresh within minimum interval, returning last session",
			zap.String("scope", scope))
		return session, nil
	}

	if c, ok := m.inflight[scope]; ok {
		m.mu.Unlock()
		metrics.TokenRefreshTotal.WithLabelValues("deduplicated").Inc()
		select {
		case <-c.done:
			return c.session, c.err
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	c := &call{done: make(chan struct{})}
	m.inflight[scope] = c
	m.mu.Unlock()

	c.session, c.err = fn(ctx)

	m.mu.Lock()
	delete(m.inflight, scope)
	if c.err == nil {
		m.lastSession[scope] = c.session
		m.lastSuccess[scope] = m.now()
	}
	m.mu.Unlock()
	close(c.done)

	metrics.TokenRefreshTotal.WithLabelValues("executed").Inc()
	if c.err != nil {
		m.logger.Warn("token refresh failed",
			zap.String("scope", scope),
			zap.Error(c.err))
	}
	return c.session, c.err
}
