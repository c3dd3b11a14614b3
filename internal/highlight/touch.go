package highlight

import (
	"sync"
	"time"
)

// DefaultTouchSuppression is how long synthetic pointer events are ignored
// after a tap.
const DefaultTouchSuppression = 400 * time.Millisecond

// TouchOption configures a [TouchTarget].
type TouchOption func(*TouchTarget)

// WithSuppressionWindow sets how long pointer events are ignored after a tap.
// Negative values are ignored; zero disables suppression.
func WithSuppressionWindow(d time.Duration) TouchOption {
	return func(t *TouchTarget) {
		if d >= 0 {
			t.window = d
		}
	}
}

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) TouchOption {
	return func(t *TouchTarget) {
		if now != nil {
			t.now = now
		}
	}
}

// TouchTarget translates the input events of one element (a card or a text
// span) into writes on a [Writer]:
//
//	PointerEnter -> debounced highlight of the target
//	PointerLeave -> debounced clear
//	Focus        -> immediate highlight
//	Blur         -> immediate clear
//	Tap          -> immediate highlight, then pointer events are ignored for
//	                the suppression window
//
// Many platforms emit synthetic pointer enter/leave events right after a
// touch; the window stops those from undoing the highlight the tap just set.
// The window belongs to this target only.
type TouchTarget struct {
	id     string
	w      Writer
	window time.Duration
	now    func() time.Time

	mu            sync.Mutex
	suppressUntil time.Time
}

// NewTouchTarget binds the element for annotation id to w.
func NewTouchTarget(id string, w Writer, opts ...TouchOption) *TouchTarget {
	t := &TouchTarget{
		id:     id,
		w:      w,
		window: DefaultTouchSuppression,
		now:    time.Now,
	}
	for _, o := range opts {
		o(t)
	}
	return t
}

// ID returns the annotation id the target highlights.
func (t *TouchTarget) ID() string { return t.id }

func (t *TouchTarget) PointerEnter() {
	if t.suppressed() {
		return
	}
	t.w.SetHighlighted(t.id, true)
}

func (t *TouchTarget) PointerLeave() {
	if t.suppressed() {
		return
	}
	t.w.SetHighlighted("", true)
}

func (t *TouchTarget) Focus() { t.w.SetHighlighted(t.id, false) }

func (t *TouchTarget) Blur() { t.w.SetHighlighted("", false) }

func (t *TouchTarget) Tap() {
	t.mu.Lock()
	t.suppressUntil = t.now().Add(t.window)
	t.mu.Unlock()
	t.w.SetHighlighted(t.id, false)
}

func (t *TouchTarget) suppressed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.now().Before(t.suppressUntil)
}
