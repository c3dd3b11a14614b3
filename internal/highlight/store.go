// Package highlight synchronises the "currently highlighted annotation"
// between the widgets of one review: annotation cards, text spans and remote
// clients all read and write the same [Store].
//
// Writes come in two flavours:
//
//   - Debounced (pointer hover enter/leave): the value is committed only after
//     the store's delay (50 ms by default) passes without another write, so a
//     cursor sweeping across several cards does not flicker the highlight.
//   - Immediate (keyboard focus/blur, touch tap): any pending debounced write
//     is cancelled and the value is committed synchronously.
//
// Every write cancels the pending debounced commit, so at most one commit is
// ever outstanding and a late timer can never overwrite a newer value.
//
// Reading and writing are split into the [Reader] and [Writer] ports so a
// component that only sets the highlight never has to observe it.
package highlight

import (
	"context"
	"sync"
	"time"

	"github.com/andukdahacker/classlite-sub004/internal/observe"
)

// DefaultDelay is the debounce window for hover writes.
const DefaultDelay = 50 * time.Millisecond

// Reader is the read port of a [Store].
type Reader interface {
	// Current returns the highlighted annotation id, or "" for none.
	Current() string

	// Subscribe registers fn to be called after every commit that changes the
	// value. It returns a function that removes the subscription.
	Subscribe(fn func(id string)) (cancel func())
}

// Writer is the write port of a [Store].
type Writer interface {
	// SetHighlighted requests id ("" clears) to become the highlighted
	// annotation, either after the debounce delay or immediately.
	SetHighlighted(id string, debounce bool)
}

// timer is the part of *time.Timer the store relies on.
type timer interface {
	Stop() bool
}

// scheduleFunc arranges for f to run once after d.
type scheduleFunc func(d time.Duration, f func()) timer

func afterFunc(d time.Duration, f func()) timer {
	return time.AfterFunc(d, f)
}

// Option configures a [Store].
type Option func(*Store)

// WithDelay sets the debounce window. Non-positive values are ignored.
func WithDelay(d time.Duration) Option {
	return func(s *Store) {
		if d > 0 {
			s.delay = d
		}
	}
}

// WithMetrics records commits and superseded writes on m.
func WithMetrics(m *observe.Metrics) Option {
	return func(s *Store) {
		s.metrics = m
	}
}

type subscriber struct {
	id uint64
	fn func(string)
}

// Store holds the highlighted annotation id for one review session.
//
// Debounce timers fire on their own goroutines, so all methods are safe for
// concurrent use. Subscribers are called outside the lock, in subscription
// order, on the goroutine that committed the value.
type Store struct {
	delay    time.Duration
	schedule scheduleFunc
	metrics  *observe.Metrics

	mu      sync.Mutex
	current string
	pending timer
	gen     uint64 // bumped by every write; a timer commits only if still current
	closed  bool
	subs    []subscriber
	nextSub uint64
}

var (
	_ Reader = (*Store)(nil)
	_ Writer = (*Store)(nil)
)

// NewStore returns an empty store.
func NewStore(opts ...Option) *Store {
	s := &Store{
		delay:    DefaultDelay,
		schedule: afterFunc,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Delay returns the debounce window.
func (s *Store) Delay() time.Duration {
	return s.delay
}

// Current implements [Reader].
func (s *Store) Current() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// Subscribe implements [Reader]. Subscribing to a closed store is a no-op.
func (s *Store) Subscribe(fn func(id string)) (cancel func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || fn == nil {
		return func() {}
	}
	s.nextSub++
	subID := s.nextSub
	s.subs = append(s.subs, subscriber{id: subID, fn: fn})

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			for i, sub := range s.subs {
				if sub.id == subID {
					s.subs = append(s.subs[:i:i], s.subs[i+1:]...)
					return
				}
			}
		})
	}
}

// SetHighlighted implements [Writer]. Writes to a closed store are dropped.
func (s *Store) SetHighlighted(id string, debounce bool) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.gen++
	superseded := s.stopPendingLocked()

	if debounce {
		gen := s.gen
		s.pending = s.schedule(s.delay, func() { s.fire(gen, id) })
		s.mu.Unlock()
		if superseded {
			s.metrics.RecordHighlightSuperseded(context.Background())
		}
		return
	}

	notify := s.commitLocked(id)
	s.mu.Unlock()

	if superseded {
		s.metrics.RecordHighlightSuperseded(context.Background())
	}
	s.metrics.RecordHighlightCommit(context.Background(), observe.ModeImmediate)
	deliver(notify, id)
}

// Reset clears the highlight immediately. The owning session calls it when
// the annotation set is replaced.
func (s *Store) Reset() {
	s.SetHighlighted("", false)
}

// Close cancels any pending commit, drops all subscribers and turns later
// writes into no-ops. It is idempotent.
func (s *Store) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	s.gen++
	s.stopPendingLocked()
	s.subs = nil
}

// fire commits a debounced write unless a newer write happened meanwhile.
func (s *Store) fire(gen uint64, id string) {
	s.mu.Lock()
	if s.closed || gen != s.gen {
		s.mu.Unlock()
		return
	}
	s.pending = nil
	notify := s.commitLocked(id)
	s.mu.Unlock()

	s.metrics.RecordHighlightCommit(context.Background(), observe.ModeDebounced)
	deliver(notify, id)
}

// stopPendingLocked cancels the outstanding timer, reporting whether there was
// one.
func (s *Store) stopPendingLocked() bool {
	if s.pending == nil {
		return false
	}
	s.pending.Stop()
	s.pending = nil
	return true
}

// commitLocked stores id and returns the subscribers to notify, or nil when
// the value did not change.
func (s *Store) commitLocked(id string) []func(string) {
	if s.current == id {
		return nil
	}
	s.current = id
	fns := make([]func(string), len(s.subs))
	for i, sub := range s.subs {
		fns[i] = sub.fn
	}
	return fns
}

func deliver(fns []func(string), id string) {
	for _, fn := range fns {
		fn(id)
	}
}
