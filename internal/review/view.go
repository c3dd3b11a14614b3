package review

import (
	"github.com/andukdahacker/classlite-sub004/pkg/annotation"
)

// Card is what the feedback panel lists for one annotation. Every annotation
// gets a card, including general comments and lost anchors.
type Card struct {
	ID           string                  `json:"id"`
	Kind         annotation.Kind         `json:"kind"`
	Severity     annotation.Severity     `json:"severity,omitempty"`
	Content      string                  `json:"content"`
	Status       annotation.AnchorStatus `json:"status"`
	TextAtOffset *string                 `json:"textAtOffset,omitempty"`

	// AnchorLost is set for orphaned anchors; the card shows a muted
	// "anchor lost" indicator instead of linking to the text.
	AnchorLost bool `json:"anchorLost"`

	// Linked is set when the card has a highlight in the text.
	Linked bool `json:"linked"`

	// Active is set when the card's annotation is the highlighted one.
	Active bool `json:"active"`
}

// ViewSegment is a segment plus whether it is currently highlighted.
type ViewSegment struct {
	annotation.TextSegment
	Active bool `json:"active"`
}

// ViewParagraph is a paragraph of [ViewSegment]s.
type ViewParagraph struct {
	Index    int           `json:"index"`
	Segments []ViewSegment `json:"segments"`
}

// View is a snapshot of everything a rendering client needs.
type View struct {
	ID          string          `json:"id"`
	Version     uint64          `json:"version"`
	Highlighted string          `json:"highlighted"`
	Paragraphs  []ViewParagraph `json:"paragraphs"`
	Cards       []Card          `json:"cards"`
}

// Cards returns one card per annotation in input order, marking the one
// that is currently highlighted.
func (s *Session) Cards() []Card {
	current := s.store.Current()
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cardsLocked(current)
}

func (s *Session) cardsLocked(current string) []Card {
	cards := make([]Card, 0, len(s.anns))
	for _, a := range s.anns {
		id := a.AnnotationID()
		r := s.results[id]
		c := Card{
			ID:           id,
			Kind:         annotation.KindOf(a),
			Severity:     a.AnnotationSeverity(),
			Content:      content(a),
			Status:       r.Status,
			TextAtOffset: r.TextAtOffset,
			AnchorLost:   r.Status.Lost(),
			Linked:       r.Status.Highlightable(),
			Active:       current != "" && id == current,
		}
		cards = append(cards, c)
	}
	return cards
}

// View returns the paragraphs with the highlighted segments marked, the
// cards and the highlighted id. Only the active flags depend on the
// highlight; the segments themselves come from the memoised paragraphs.
func (s *Session) View() View {
	current := s.store.Current()
	s.mu.RLock()
	defer s.mu.RUnlock()

	paras := make([]ViewParagraph, len(s.paragraphs))
	for i, p := range s.paragraphs {
		segs := make([]ViewSegment, len(p.Segments))
		for j, seg := range p.Segments {
			segs[j] = ViewSegment{
				TextSegment: seg,
				Active:      current != "" && seg.AnnotationID == current,
			}
		}
		paras[i] = ViewParagraph{Index: p.Index, Segments: segs}
	}

	return View{
		ID:          s.id,
		Version:     s.version,
		Highlighted: current,
		Paragraphs:  paras,
		Cards:       s.cardsLocked(current),
	}
}

func content(a annotation.Annotation) string {
	switch v := a.(type) {
	case annotation.FeedbackItem:
		return v.Content
	case *annotation.FeedbackItem:
		return v.Content
	case annotation.TeacherComment:
		return v.Content
	case *annotation.TeacherComment:
		return v.Content
	}
	return ""
}
