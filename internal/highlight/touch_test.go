package highlight

import (
	"testing"
	"time"
)

type write struct {
	id       string
	debounce bool
}

type recordingWriter struct {
	writes []write
}

func (w *recordingWriter) SetHighlighted(id string, debounce bool) {
	w.writes = append(w.writes, write{id, debounce})
}

type manualClock struct {
	now time.Time
}

func (c *manualClock) Now() time.Time { return c.now }

func (c *manualClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func newTouch(t *testing.T, opts ...TouchOption) (*TouchTarget, *recordingWriter, *manualClock) {
	t.Helper()
	w := &recordingWriter{}
	clk := &manualClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	opts = append([]TouchOption{WithClock(clk.Now)}, opts...)
	return NewTouchTarget("f1", w, opts...), w, clk
}

func TestTouchTarget_EventMapping(t *testing.T) {
	t.Parallel()
	tt, w, _ := newTouch(t)

	tt.PointerEnter()
	tt.PointerLeave()
	tt.Focus()
	tt.Blur()

	want := []write{{"f1", true}, {"", true}, {"f1", false}, {"", false}}
	if len(w.writes) != len(want) {
		t.Fatalf("writes = %v, want %v", w.writes, want)
	}
	for i := range want {
		if w.writes[i] != want[i] {
			t.Errorf("writes[%d] = %+v, want %+v", i, w.writes[i], want[i])
		}
	}
	if tt.ID() != "f1" {
		t.Errorf("ID() = %q", tt.ID())
	}
}

func TestTouchTarget_TapSuppressesPointerEvents(t *testing.T) {
	t.Parallel()
	tt, w, clk := newTouch(t)

	tt.Tap()
	clk.Advance(100 * time.Millisecond)
	tt.PointerEnter()
	tt.PointerLeave()

	if len(w.writes) != 1 || w.writes[0] != (write{"f1", false}) {
		t.Fatalf("writes = %v, want only the tap", w.writes)
	}

	// Focus and blur are never suppressed.
	tt.Blur()
	if len(w.writes) != 2 {
		t.Errorf("blur suppressed: writes = %v", w.writes)
	}

	clk.Advance(300 * time.Millisecond)
	tt.PointerLeave()
	if got := w.writes[len(w.writes)-1]; got != (write{"", true}) {
		t.Errorf("pointer leave after window = %+v, want debounced clear", got)
	}
}

func TestTouchTarget_CustomWindow(t *testing.T) {
	t.Parallel()
	tt, w, _ := newTouch(t, WithSuppressionWindow(0))

	tt.Tap()
	tt.PointerLeave()
	if len(w.writes) != 2 {
		t.Errorf("zero window suppressed pointer leave: writes = %v", w.writes)
	}

	tt2, w2, clk2 := newTouch(t, WithSuppressionWindow(time.Second))
	tt2.Tap()
	clk2.Advance(900 * time.Millisecond)
	tt2.PointerEnter()
	if len(w2.writes) != 1 {
		t.Errorf("pointer enter inside 1s window not suppressed: writes = %v", w2.writes)
	}
}

func TestTouchTarget_WithStore(t *testing.T) {
	t.Parallel()
	s, sched := newFakeStore(t)
	clk := &manualClock{now: time.Unix(0, 0)}
	card := NewTouchTarget("f1", s, WithClock(clk.Now))

	card.Tap()
	clk.Advance(10 * time.Millisecond)
	card.PointerLeave()
	sched.advance()

	if got := s.Current(); got != "f1" {
		t.Errorf("Current() = %q, want tap to stick", got)
	}
}
