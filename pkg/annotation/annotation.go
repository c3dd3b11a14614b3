// Package annotation defines the shared types used across the classlite
// anchoring packages.
//
// These types form the lingua franca between the anchor validator, the
// segment builder, the review session and the transport layer. Feedback
// items and teacher comments are owned by an external store; this package
// only models the shape in which they arrive and the derived, transient data
// computed from them.
//
// All character offsets are counted in Unicode code points (runes) of the
// current submission text.
package annotation

import (
	"strings"
	"time"
)

// Severity is the ordering weight of an annotation. The zero value means "no
// severity" and ranks like [SeveritySuggestion].
type Severity string

const (
	SeverityError      Severity = "error"
	SeverityWarning    Severity = "warning"
	SeveritySuggestion Severity = "suggestion"
)

// Priority returns the overlap-resolution weight of s: error 3, warning 2,
// everything else 1.
func (s Severity) Priority() int {
	switch s {
	case SeverityError:
		return 3
	case SeverityWarning:
		return 2
	default:
		return 1
	}
}

// IsValid reports whether s is one of the recognised severities. The empty
// severity is not valid but is still accepted everywhere.
func (s Severity) IsValid() bool {
	switch s {
	case SeverityError, SeverityWarning, SeveritySuggestion:
		return true
	}
	return false
}

// ParseSeverity maps a case-insensitive severity name onto a [Severity].
// Unknown names yield the empty severity.
func ParseSeverity(s string) Severity {
	sev := Severity(strings.ToLower(strings.TrimSpace(s)))
	if sev.IsValid() {
		return sev
	}
	return ""
}

// AnchorStatus classifies how well an annotation's stored offsets still match
// the current text. It is derived, never persisted.
type AnchorStatus string

const (
	// StatusNoAnchor marks annotations without offsets (general comments).
	StatusNoAnchor AnchorStatus = "no-anchor"

	// StatusValid marks anchors whose text matches the stored snippet closely,
	// or which carry no snippet at all.
	StatusValid AnchorStatus = "valid"

	// StatusDrifted marks anchors whose text was edited slightly. They are
	// still highlighted but flagged.
	StatusDrifted AnchorStatus = "drifted"

	// StatusOrphaned marks anchors that can no longer be trusted. They are
	// never highlighted.
	StatusOrphaned AnchorStatus = "orphaned"
)

// Highlightable reports whether an annotation with this status may produce a
// text highlight.
func (s AnchorStatus) Highlightable() bool {
	return s == StatusValid || s == StatusDrifted
}

// Lost reports whether the anchor was lost and the card should show an
// "anchor lost" indicator.
func (s AnchorStatus) Lost() bool {
	return s == StatusOrphaned
}

// Annotation is the minimal shape shared by AI feedback items and teacher
// comments. The anchor validator and the segment builder consume only this.
type Annotation interface {
	// AnnotationID returns the unique, stable id.
	AnnotationID() string

	// Offsets returns the stored [start, end) offsets. Either may be nil, in
	// which case the annotation is not anchored to any span.
	Offsets() (start, end *int)

	// ContextSnippet returns the text captured at creation time, or nil when
	// the offsets should be trusted as-is.
	ContextSnippet() *string

	// AnnotationSeverity returns the ordering weight; empty for none.
	AnnotationSeverity() Severity
}

// Kind names the concrete annotation type behind an [Annotation].
type Kind string

const (
	KindFeedback Kind = "feedback"
	KindComment  Kind = "comment"
)

// KindOf returns the kind of a, or the empty kind for foreign implementations.
func KindOf(a Annotation) Kind {
	switch a.(type) {
	case FeedbackItem, *FeedbackItem:
		return KindFeedback
	case TeacherComment, *TeacherComment:
		return KindComment
	}
	return ""
}

// FeedbackItem is a single AI-generated feedback entry attached to a
// submission.
type FeedbackItem struct {
	ID                     string   `json:"id" yaml:"id"`
	Type                   string   `json:"type" yaml:"type"`
	Content                string   `json:"content" yaml:"content"`
	Severity               Severity `json:"severity,omitempty" yaml:"severity,omitempty"`
	Confidence             *float64 `json:"confidence,omitempty" yaml:"confidence,omitempty"`
	OriginalContextSnippet *string  `json:"originalContextSnippet,omitempty" yaml:"originalContextSnippet,omitempty"`
	StartOffset            *int     `json:"startOffset,omitempty" yaml:"startOffset,omitempty"`
	EndOffset              *int     `json:"endOffset,omitempty" yaml:"endOffset,omitempty"`
	SuggestedFix           *string  `json:"suggestedFix,omitempty" yaml:"suggestedFix,omitempty"`
}

var _ Annotation = FeedbackItem{}

func (f FeedbackItem) AnnotationID() string { return f.ID }
func (f FeedbackItem) Offsets() (*int, *int) { return f.StartOffset, f.EndOffset }
func (f FeedbackItem) ContextSnippet() *string { return f.OriginalContextSnippet }
func (f FeedbackItem) AnnotationSeverity() Severity { return f.Severity }

// Visibility controls who can see a teacher comment.
type Visibility string

const (
	VisibilityPrivate       Visibility = "private"
	VisibilityStudentFacing Visibility = "student_facing"
)

// TeacherComment is a human comment left by a teacher during review. Comments
// carry no severity and therefore always rank lowest in overlaps.
type TeacherComment struct {
	ID                     string     `json:"id" yaml:"id"`
	AuthorName             string     `json:"authorName" yaml:"authorName"`
	Content                string     `json:"content" yaml:"content"`
	Visibility             Visibility `json:"visibility" yaml:"visibility"`
	StartOffset            *int       `json:"startOffset,omitempty" yaml:"startOffset,omitempty"`
	EndOffset              *int       `json:"endOffset,omitempty" yaml:"endOffset,omitempty"`
	OriginalContextSnippet *string    `json:"originalContextSnippet,omitempty" yaml:"originalContextSnippet,omitempty"`
	CreatedAt              time.Time  `json:"createdAt" yaml:"createdAt"`
	UpdatedAt              time.Time  `json:"updatedAt" yaml:"updatedAt"`
}

var _ Annotation = TeacherComment{}

func (c TeacherComment) AnnotationID() string { return c.ID }
func (c TeacherComment) Offsets() (*int, *int) { return c.StartOffset, c.EndOffset }
func (c TeacherComment) ContextSnippet() *string { return c.OriginalContextSnippet }
func (c TeacherComment) AnnotationSeverity() Severity { return "" }

// AnnotatedRange is the segment builder's view of an annotation: resolved
// offsets plus the status computed by the anchor validator.
type AnnotatedRange struct {
	ID           string
	StartOffset  int
	EndOffset    int
	Severity     Severity
	AnchorStatus AnchorStatus
}

// TextSegment is a contiguous slice of the text assigned to at most one
// winning annotation.
type TextSegment struct {
	// Text is the exact slice of the original text.
	Text string `json:"text"`

	// AnnotationID is the winning annotation, or empty when the segment is
	// unannotated.
	AnnotationID string `json:"annotationId,omitempty"`

	// Severity is the winner's severity; empty when unannotated.
	Severity Severity `json:"severity,omitempty"`

	// AnchorStatus is the winner's status, so drifted spans can be flagged.
	AnchorStatus AnchorStatus `json:"anchorStatus,omitempty"`

	// CharOffset is the absolute rune offset of Text in the original text.
	CharOffset int `json:"charOffset"`
}

// Annotated reports whether the segment carries a winning annotation.
func (s TextSegment) Annotated() bool {
	return s.AnnotationID != ""
}

// End returns the absolute rune offset just past the segment.
func (s TextSegment) End() int {
	return s.CharOffset + RuneLen(s.Text)
}

// Paragraph is one newline-delimited line of the text, ready to render.
type Paragraph struct {
	Index    int           `json:"index"`
	Segments []TextSegment `json:"segments"`
}

// Text returns the concatenated text of the paragraph's segments.
func (p Paragraph) Text() string {
	var b strings.Builder
	for _, s := range p.Segments {
		b.WriteString(s.Text)
	}
	return b.String()
}

// Int returns a pointer to v. Handy for building annotations in code.
func Int(v int) *int { return &v }

// String returns a pointer to v.
func String(v string) *string { return &v }
