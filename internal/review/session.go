// Package review ties the anchoring pipeline to a review session: one student
// text, the annotations attached to it and the highlight shared by every
// widget that renders them.
//
// A [Session] memoises anchor results and paragraphs per loaded text so that
// highlight changes, which only affect which segment is styled active, never
// trigger a new boundary sweep. A [Manager] keeps the open sessions of a
// process and fans configuration changes out to them.
package review

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/andukdahacker/classlite-sub004/internal/anchor"
	"github.com/andukdahacker/classlite-sub004/internal/highlight"
	"github.com/andukdahacker/classlite-sub004/internal/observe"
	"github.com/andukdahacker/classlite-sub004/internal/segment"
	"github.com/andukdahacker/classlite-sub004/pkg/annotation"
)

// ErrClosed is returned by operations on a closed [Session].
var ErrClosed = errors.New("review: session closed")

// SessionOption configures a [Session].
type SessionOption func(*Session)

// WithValidator sets the anchor validator. Nil is ignored.
func WithValidator(v *anchor.Validator) SessionOption {
	return func(s *Session) {
		if v != nil {
			s.validator = v
		}
	}
}

// WithMetrics records segmentation metrics on m and passes m on to the
// highlight store.
func WithMetrics(m *observe.Metrics) SessionOption {
	return func(s *Session) {
		s.metrics = m
	}
}

// WithHighlightOptions configures the session's highlight store.
func WithHighlightOptions(opts ...highlight.Option) SessionOption {
	return func(s *Session) {
		s.storeOpts = append(s.storeOpts, opts...)
	}
}

// Session is one open review. All methods are safe for concurrent use.
type Session struct {
	id        string
	metrics   *observe.Metrics
	storeOpts []highlight.Option
	store     *highlight.Store
	openedAt  time.Time
	done      chan struct{}

	mu         sync.RWMutex
	validator  *anchor.Validator
	text       string
	anns       []annotation.Annotation
	results    map[string]anchor.Result
	paragraphs []annotation.Paragraph
	version    uint64
	closed     bool
}

// NewSession returns an empty session with the given id. Call [Session.Load]
// before reading from it.
func NewSession(id string, opts ...SessionOption) *Session {
	s := &Session{
		id:        id,
		validator: anchor.New(),
		openedAt:  time.Now().UTC(),
		done:      make(chan struct{}),
		results:   map[string]anchor.Result{},
	}
	for _, o := range opts {
		o(s)
	}
	storeOpts := append([]highlight.Option{highlight.WithMetrics(s.metrics)}, s.storeOpts...)
	s.store = highlight.NewStore(storeOpts...)
	s.paragraphs = segment.Render("", nil)
	return s
}

// ID returns the session id.
func (s *Session) ID() string { return s.id }

// OpenedAt returns when the session was created.
func (s *Session) OpenedAt() time.Time { return s.openedAt }

// Load replaces the text and the annotation set, recomputes anchors and
// paragraphs, and clears the highlight. anns is copied.
func (s *Session) Load(ctx context.Context, text string, anns []annotation.Annotation) error {
	ctx, span := observe.StartSpan(ctx, "review.Load",
		trace.WithAttributes(
			attribute.String("review.id", s.id),
			attribute.Int("review.annotations", len(anns)),
		),
	)
	defer span.End()

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	s.text = text
	s.anns = append([]annotation.Annotation(nil), anns...)
	s.recomputeLocked(ctx)
	version := s.version
	s.mu.Unlock()

	// The annotation set was replaced, so any highlighted id may be stale.
	s.store.Reset()

	observe.Logger(ctx).Debug("review loaded",
		"review_id", s.id,
		"version", version,
		"annotations", len(anns),
	)
	return nil
}

// SetText reloads the session with a new text and the current annotations,
// as happens when a student resubmits.
func (s *Session) SetText(ctx context.Context, text string) error {
	return s.Load(ctx, text, s.Annotations())
}

// SetValidator re-validates the current annotations with v. The highlight is
// kept because the annotation set did not change.
func (s *Session) SetValidator(ctx context.Context, v *anchor.Validator) error {
	if v == nil {
		return nil
	}
	ctx, span := observe.StartSpan(ctx, "review.SetValidator",
		trace.WithAttributes(attribute.String("review.id", s.id)),
	)
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	s.validator = v
	s.recomputeLocked(ctx)
	return nil
}

func (s *Session) recomputeLocked(ctx context.Context) {
	s.results = s.validator.ValidateAll(ctx, s.text, s.anns)
	ranges := anchor.Ranges(s.anns, s.results)

	start := time.Now()
	s.paragraphs = segment.Render(s.text, ranges)
	var n int
	for _, p := range s.paragraphs {
		n += len(p.Segments)
	}
	s.metrics.RecordSegmentation(ctx, time.Since(start).Seconds(), n)
	s.version++
}

// Version increases every time anchors and paragraphs are recomputed.
func (s *Session) Version() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}

// Text returns the current text.
func (s *Session) Text() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.text
}

// Annotations returns a copy of the current annotation set.
func (s *Session) Annotations() []annotation.Annotation {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]annotation.Annotation(nil), s.anns...)
}

// Statuses returns the anchor status of every annotation, keyed by id.
func (s *Session) Statuses() map[string]annotation.AnchorStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]annotation.AnchorStatus, len(s.results))
	for id, r := range s.results {
		out[id] = r.Status
	}
	return out
}

// Result returns the validation result for one annotation.
func (s *Session) Result(id string) (anchor.Result, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.results[id]
	return r, ok
}

// Paragraphs returns the memoised paragraphs. The slice is shared between
// callers until the next recomputation and must not be modified.
func (s *Session) Paragraphs() []annotation.Paragraph {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.paragraphs
}

// Highlight returns the read and write ports of the session's highlight
// store.
func (s *Session) Highlight() (highlight.Reader, highlight.Writer) {
	return s.store, s.store
}

// Close releases the highlight store. Later loads fail with [ErrClosed].
// Close is idempotent.
func (s *Session) Close() {
	s.mu.Lock()
	already := s.closed
	s.closed = true
	s.mu.Unlock()
	if already {
		return
	}
	s.store.Close()
	close(s.done)
	slog.Debug("review closed", "review_id", s.id)
}

// Done returns a channel that is closed when the session is closed.
func (s *Session) Done() <-chan struct{} { return s.done }
