// Package anchor classifies whether an annotation's stored offsets still
// point at the text they were created against.
//
// Each annotation carries [start, end) rune offsets and, optionally, the
// snippet that sat at those offsets when it was written. Validation slices
// the current text at the offsets and compares the slice with the snippet:
//
//	similarity >= valid threshold   -> valid
//	similarity >= drifted threshold -> drifted
//	otherwise                       -> orphaned
//
// Annotations without offsets are no-anchor; annotations without a snippet
// trust their offsets and are valid. The classification is a pure function of
// (offsets, snippet, text); callers re-run it whenever the text changes.
//
// Nothing in this package returns an error or panics on malformed input.
package anchor

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/andukdahacker/classlite-sub004/internal/observe"
	"github.com/andukdahacker/classlite-sub004/internal/textsim"
	"github.com/andukdahacker/classlite-sub004/pkg/annotation"
)

const (
	DefaultValidThreshold   = 0.8
	DefaultDriftedThreshold = 0.5
)

// Thresholds are the similarity cut-offs for valid and drifted anchors.
type Thresholds struct {
	Valid   float64
	Drifted float64
}

// DefaultThresholds returns valid >= 0.8, drifted >= 0.5.
func DefaultThresholds() Thresholds {
	return Thresholds{Valid: DefaultValidThreshold, Drifted: DefaultDriftedThreshold}
}

// Validate checks that both cut-offs lie in [0, 1] and drifted <= valid.
func (t Thresholds) Validate() error {
	if t.Valid < 0 || t.Valid > 1 {
		return fmt.Errorf("anchor: valid threshold %.2f is out of range [0, 1]", t.Valid)
	}
	if t.Drifted < 0 || t.Drifted > 1 {
		return fmt.Errorf("anchor: drifted threshold %.2f is out of range [0, 1]", t.Drifted)
	}
	if t.Drifted > t.Valid {
		return fmt.Errorf("anchor: drifted threshold %.2f exceeds valid threshold %.2f", t.Drifted, t.Valid)
	}
	return nil
}

// Classify maps a similarity score onto a status.
func (t Thresholds) Classify(score float64) annotation.AnchorStatus {
	switch {
	case score >= t.Valid:
		return annotation.StatusValid
	case score >= t.Drifted:
		return annotation.StatusDrifted
	default:
		return annotation.StatusOrphaned
	}
}

// Result is the outcome of validating one anchor.
type Result struct {
	Status annotation.AnchorStatus

	// TextAtOffset is the current text at the stored offsets, clamped to the
	// text bounds. Nil for no-anchor results.
	TextAtOffset *string

	// Similarity is the score against the stored snippet. It is 1 when there
	// was no snippet and 0 for no-anchor results.
	Similarity float64
}

// Validate classifies one anchor with the default thresholds and the
// Levenshtein similarity.
func Validate(start, end *int, snippet *string, currentText string) Result {
	return validate(start, end, snippet, annotation.NewText(currentText), DefaultThresholds(), textsim.Similarity)
}

func validate(start, end *int, snippet *string, text annotation.Text, th Thresholds, metric textsim.Metric) Result {
	if start == nil || end == nil {
		return Result{Status: annotation.StatusNoAnchor}
	}
	at := text.Slice(*start, *end)
	if snippet == nil {
		return Result{Status: annotation.StatusValid, TextAtOffset: &at, Similarity: 1}
	}
	score := metric(at, *snippet)
	return Result{Status: th.Classify(score), TextAtOffset: &at, Similarity: score}
}

// Option configures a [Validator].
type Option func(*Validator)

// WithThresholds overrides the default cut-offs. Invalid thresholds are
// ignored and the defaults kept; check them with [Thresholds.Validate] first.
func WithThresholds(t Thresholds) Option {
	return func(v *Validator) {
		if t.Validate() == nil {
			v.thresholds = t
		}
	}
}

// WithMetric replaces the similarity metric. Nil is ignored.
func WithMetric(m textsim.Metric) Option {
	return func(v *Validator) {
		if m != nil {
			v.metric = m
		}
	}
}

// WithMetrics records every classification on m.
func WithMetrics(m *observe.Metrics) Option {
	return func(v *Validator) {
		v.metrics = m
	}
}

// Validator classifies anchors with configurable thresholds and metric. It
// is immutable after construction and safe for concurrent use.
type Validator struct {
	thresholds Thresholds
	metric     textsim.Metric
	metrics    *observe.Metrics
}

// New returns a [Validator] using the defaults unless overridden by opts.
func New(opts ...Option) *Validator {
	v := &Validator{
		thresholds: DefaultThresholds(),
		metric:     textsim.Similarity,
	}
	for _, o := range opts {
		o(v)
	}
	return v
}

// Thresholds returns the cut-offs in use.
func (v *Validator) Thresholds() Thresholds {
	return v.thresholds
}

// Validate classifies one anchor against currentText.
func (v *Validator) Validate(ctx context.Context, start, end *int, snippet *string, currentText string) Result {
	r := validate(start, end, snippet, annotation.NewText(currentText), v.thresholds, v.metric)
	v.metrics.RecordAnchorValidation(ctx, string(r.Status))
	return r
}

// ValidateAll classifies every annotation against text and returns the
// results keyed by annotation id. When ids repeat, the first occurrence wins.
func (v *Validator) ValidateAll(ctx context.Context, text string, anns []annotation.Annotation) map[string]Result {
	indexed := annotation.NewText(text)
	results := make(map[string]Result, len(anns))
	for _, a := range anns {
		id := a.AnnotationID()
		if _, dup := results[id]; dup {
			slog.Debug("anchor: duplicate annotation id ignored", "id", id)
			continue
		}
		start, end := a.Offsets()
		r := validate(start, end, a.ContextSnippet(), indexed, v.thresholds, v.metric)
		v.metrics.RecordAnchorValidation(ctx, string(r.Status))
		results[id] = r
	}
	return results
}

// Ranges converts validated annotations into segment builder input, in the
// order of anns. Annotations without offsets or without a result are left
// out; everything else, including orphaned anchors, is passed through so the
// builder can apply its own filtering.
func Ranges(anns []annotation.Annotation, results map[string]Result) []annotation.AnnotatedRange {
	ranges := make([]annotation.AnnotatedRange, 0, len(anns))
	seen := make(map[string]struct{}, len(anns))
	for _, a := range anns {
		id := a.AnnotationID()
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}

		r, ok := results[id]
		if !ok || r.Status == annotation.StatusNoAnchor {
			continue
		}
		start, end := a.Offsets()
		if start == nil || end == nil {
			continue
		}
		ranges = append(ranges, annotation.AnnotatedRange{
			ID:           id,
			StartOffset:  *start,
			EndOffset:    *end,
			Severity:     a.AnnotationSeverity(),
			AnchorStatus: r.Status,
		})
	}
	return ranges
}
