package review

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/andukdahacker/classlite-sub004/internal/anchor"
	"github.com/andukdahacker/classlite-sub004/internal/highlight"
	"github.com/andukdahacker/classlite-sub004/internal/observe"
)

// ErrSessionNotFound is returned for unknown session ids.
var ErrSessionNotFound = errors.New("review: session not found")

// ManagerConfig holds the dependencies of a [Manager].
type ManagerConfig struct {
	// Validator classifies anchors for new sessions. Nil means the defaults.
	Validator *anchor.Validator

	// Metrics is passed to every session. May be nil.
	Metrics *observe.Metrics

	// HighlightDelay is the debounce window of new sessions' highlight
	// stores. Zero means [highlight.DefaultDelay].
	HighlightDelay time.Duration
}

// Manager keeps the open review sessions of a process. All exported methods
// are safe for concurrent use.
type Manager struct {
	metrics *observe.Metrics

	mu        sync.RWMutex
	validator *anchor.Validator
	delay     time.Duration
	sessions  map[string]*Session
}

// NewManager returns a manager with no open sessions.
func NewManager(cfg ManagerConfig) *Manager {
	v := cfg.Validator
	if v == nil {
		v = anchor.New(anchor.WithMetrics(cfg.Metrics))
	}
	return &Manager{
		metrics:   cfg.Metrics,
		validator: v,
		delay:     cfg.HighlightDelay,
		sessions:  make(map[string]*Session),
	}
}

// Open validates b, loads it into a new session and registers the session
// under a fresh id.
func (m *Manager) Open(ctx context.Context, b Bundle) (*Session, error) {
	if err := b.Validate(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	v, delay := m.validator, m.delay
	m.mu.RUnlock()

	s := NewSession(uuid.NewString(),
		WithValidator(v),
		WithMetrics(m.metrics),
		WithHighlightOptions(highlight.WithDelay(delay)),
	)
	if err := s.Load(ctx, b.Text, b.Annotations()); err != nil {
		s.Close()
		return nil, fmt.Errorf("review: open: %w", err)
	}

	m.mu.Lock()
	m.sessions[s.ID()] = s
	m.mu.Unlock()
	m.metrics.AddActiveReviews(ctx, 1)

	observe.Logger(ctx).Info("review opened",
		"review_id", s.ID(),
		"annotations", len(b.Feedback)+len(b.Comments),
	)
	return s, nil
}

// Get returns the session with the given id.
func (m *Manager) Get(id string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, fmt.Errorf("review: session %q: %w", id, ErrSessionNotFound)
	}
	return s, nil
}

// Close closes and forgets the session with the given id.
func (m *Manager) Close(ctx context.Context, id string) error {
	m.mu.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()
	if !ok {
		return fmt.Errorf("review: session %q: %w", id, ErrSessionNotFound)
	}
	s.Close()
	m.metrics.AddActiveReviews(ctx, -1)
	observe.Logger(ctx).Info("review closed", "review_id", id)
	return nil
}

// CloseAll closes every open session. Used on shutdown.
func (m *Manager) CloseAll(ctx context.Context) {
	m.mu.Lock()
	sessions := m.sessions
	m.sessions = make(map[string]*Session)
	m.mu.Unlock()

	for _, s := range sessions {
		s.Close()
	}
	if n := len(sessions); n > 0 {
		m.metrics.AddActiveReviews(ctx, -int64(n))
		slog.Info("reviews closed", "count", n)
	}
}

// Len returns the number of open sessions.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// ApplyValidator makes v the validator for new sessions and re-validates
// every open session with it. It is called after a configuration reload.
func (m *Manager) ApplyValidator(ctx context.Context, v *anchor.Validator) error {
	if v == nil {
		return nil
	}
	m.mu.Lock()
	m.validator = v
	sessions := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		sessions = append(sessions, s)
	}
	m.mu.Unlock()

	var errs []error
	for _, s := range sessions {
		if err := s.SetValidator(ctx, v); err != nil && !errors.Is(err, ErrClosed) {
			errs = append(errs, fmt.Errorf("review: session %q: %w", s.ID(), err))
		}
	}
	slog.Info("anchor validator applied",
		"sessions", len(sessions),
		"valid_threshold", v.Thresholds().Valid,
		"drifted_threshold", v.Thresholds().Drifted,
	)
	return errors.Join(errs...)
}

// SetHighlightDelay changes the debounce window for sessions opened later.
func (m *Manager) SetHighlightDelay(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.delay = d
}
