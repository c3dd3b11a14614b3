package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"golang.org/x/sync/errgroup"

	"github.com/andukdahacker/classlite-sub004/internal/highlight"
	"github.com/andukdahacker/classlite-sub004/internal/observe"
)

// Client input events. An empty event is a raw store write.
const (
	EventPointerEnter = "pointerenter"
	EventPointerLeave = "pointerleave"
	EventFocus        = "focus"
	EventBlur         = "blur"
	EventTap          = "tap"
)

// highlightRequest is a client message on the highlight socket.
//
// Without an event it writes id to the store directly, debounced unless
// debounce is false. With an event it is routed through the touch target
// for id, which applies the tap suppression window.
type highlightRequest struct {
	ID       string `json:"id"`
	Debounce *bool  `json:"debounce,omitempty"`
	Event    string `json:"event,omitempty"`
}

// highlightPush is sent on connect and after every committed change.
type highlightPush struct {
	Highlighted string `json:"highlighted"`
}

func (s *Server) handleHighlight(w http.ResponseWriter, r *http.Request) {
	sess, err := s.reviews.Get(r.PathValue("id"))
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: s.allowedOrigins,
	})
	if err != nil {
		// Accept has already written an error response.
		observe.Logger(r.Context()).Warn("highlight socket: accept failed", "err", err)
		return
	}
	defer conn.CloseNow()

	log := observe.Logger(r.Context()).With("review_id", sess.ID())
	log.Debug("highlight socket: connected")

	reader, writer := sess.Highlight()
	changed := make(chan struct{}, 1)
	unsubscribe := reader.Subscribe(func(string) {
		select {
		case changed <- struct{}{}:
		default:
		}
	})
	defer unsubscribe()

	g, ctx := errgroup.WithContext(r.Context())
	g.Go(func() error {
		return s.readHighlights(ctx, conn, writer)
	})
	g.Go(func() error {
		return pushHighlights(ctx, conn, reader, changed, sess.Done())
	})
	err = g.Wait()

	switch {
	case errors.Is(err, errReviewClosed):
		log.Debug("highlight socket: review closed")
	case websocket.CloseStatus(err) == websocket.StatusNormalClosure,
		websocket.CloseStatus(err) == websocket.StatusGoingAway:
		log.Debug("highlight socket: client closed")
	case errors.Is(err, context.Canceled):
		conn.Close(websocket.StatusGoingAway, "server shutting down")
	default:
		log.Warn("highlight socket: closed with error", "err", err)
		conn.Close(websocket.StatusInternalError, "")
	}
}

var errReviewClosed = errors.New("server: review closed")

// readHighlights applies client messages to the store until the connection
// fails.
func (s *Server) readHighlights(ctx context.Context, conn *websocket.Conn, w highlight.Writer) error {
	window := time.Duration(s.touchWindow.Load())
	targets := make(map[string]*highlight.TouchTarget)
	target := func(id string) *highlight.TouchTarget {
		t, ok := targets[id]
		if !ok {
			t = highlight.NewTouchTarget(id, w, highlight.WithSuppressionWindow(window))
			targets[id] = t
		}
		return t
	}

	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			return err
		}
		var req highlightRequest
		if err := json.Unmarshal(data, &req); err != nil {
			observe.Logger(ctx).Debug("highlight socket: malformed message", "err", err)
			continue
		}

		switch req.Event {
		case "":
			w.SetHighlighted(req.ID, req.Debounce == nil || *req.Debounce)
		case EventPointerEnter:
			target(req.ID).PointerEnter()
		case EventPointerLeave:
			target(req.ID).PointerLeave()
		case EventFocus:
			target(req.ID).Focus()
		case EventBlur:
			target(req.ID).Blur()
		case EventTap:
			target(req.ID).Tap()
		default:
			observe.Logger(ctx).Debug("highlight socket: unknown event", "event", req.Event)
		}
	}
}

// pushHighlights sends the current value on connect and again whenever it
// changes. Notifications are coalesced: the value sent is read at send time,
// so a slow client only ever skips intermediate states.
func pushHighlights(ctx context.Context, conn *websocket.Conn, r highlight.Reader, changed <-chan struct{}, done <-chan struct{}) error {
	last, first := "", true
	for {
		if cur := r.Current(); first || cur != last {
			data, err := json.Marshal(highlightPush{Highlighted: cur})
			if err != nil {
				return fmt.Errorf("server: encode highlight: %w", err)
			}
			if err := conn.Write(ctx, websocket.MessageText, data); err != nil {
				return err
			}
			last, first = cur, false
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-done:
			conn.Close(websocket.StatusGoingAway, "review closed")
			return errReviewClosed
		case <-changed:
		}
	}
}
