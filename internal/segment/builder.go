// Package segment turns a text and its validated annotation ranges into
// render-ready pieces.
//
// [Build] runs a boundary sweep over the whole text and partitions it into
// contiguous, non-overlapping [annotation.TextSegment] values, each assigned
// to at most one winning annotation. [SplitParagraphs] then slices that flat
// list along newlines. Keeping the two apart means the sweep does not depend
// on the paragraph count.
//
// Both functions are pure and total. Malformed ranges are dropped, never
// reported.
package segment

import (
	"cmp"
	"log/slog"
	"slices"

	"github.com/andukdahacker/classlite-sub004/pkg/annotation"
)

type boundary struct {
	pos   int
	start bool
	idx   int // index into the filtered ranges, i.e. input order
}

// Build partitions text into segments.
//
// Only ranges whose status is highlightable (valid or drifted) and which
// satisfy 0 <= start < end <= runeLen(text) take part. Where several ranges
// overlap, the one with the highest severity priority wins; equal priorities
// go to the range that comes first in the input. Neighbouring segments with
// the same winner are merged.
//
// Concatenating the returned segments reproduces text exactly, and each
// segment's CharOffset is its absolute rune offset. The result is never
// empty: an empty text yields one empty, unannotated segment.
func Build(text string, ranges []annotation.AnnotatedRange) []annotation.TextSegment {
	return build(annotation.NewText(text), ranges)
}

func build(t annotation.Text, ranges []annotation.AnnotatedRange) []annotation.TextSegment {
	n := t.Len()
	kept := filter(ranges, n)
	if len(kept) == 0 {
		return []annotation.TextSegment{{Text: t.String()}}
	}

	bounds := make([]boundary, 0, 2*len(kept))
	for i, r := range kept {
		bounds = append(bounds,
			boundary{pos: r.StartOffset, start: true, idx: i},
			boundary{pos: r.EndOffset, idx: i},
		)
	}
	slices.SortStableFunc(bounds, func(a, b boundary) int {
		if c := cmp.Compare(a.pos, b.pos); c != 0 {
			return c
		}
		switch {
		case a.start && !b.start:
			return -1
		case !a.start && b.start:
			return 1
		}
		return 0
	})

	var (
		segs   = make([]annotation.TextSegment, 0, len(bounds)+1)
		active = make([]bool, len(kept))
		cursor int
	)
	emit := func(end int) {
		if end <= cursor {
			return
		}
		seg := annotation.TextSegment{CharOffset: cursor}
		if w := winner(kept, active); w >= 0 {
			seg.AnnotationID = kept[w].ID
			seg.Severity = kept[w].Severity
			seg.AnchorStatus = kept[w].AnchorStatus
		}
		if last := len(segs) - 1; last >= 0 && sameWinner(segs[last], seg) {
			segs[last].Text = t.Slice(segs[last].CharOffset, end)
		} else {
			seg.Text = t.Slice(cursor, end)
			segs = append(segs, seg)
		}
		cursor = end
	}

	for _, b := range bounds {
		emit(b.pos)
		active[b.idx] = b.start
	}
	emit(n)
	return segs
}

// filter keeps the ranges that can be highlighted within a text of n runes.
func filter(ranges []annotation.AnnotatedRange, n int) []annotation.AnnotatedRange {
	kept := make([]annotation.AnnotatedRange, 0, len(ranges))
	for _, r := range ranges {
		if !r.AnchorStatus.Highlightable() {
			continue
		}
		if r.StartOffset < 0 || r.EndOffset <= r.StartOffset || r.EndOffset > n {
			slog.Debug("segment: dropping malformed range",
				"id", r.ID, "start", r.StartOffset, "end", r.EndOffset, "text_len", n)
			continue
		}
		kept = append(kept, r)
	}
	return kept
}

// winner returns the index of the active range with the highest priority,
// preferring the lowest index on ties, or -1 when nothing is active.
func winner(ranges []annotation.AnnotatedRange, active []bool) int {
	best, bestPri := -1, 0
	for i, on := range active {
		if !on {
			continue
		}
		if p := ranges[i].Severity.Priority(); p > bestPri {
			best, bestPri = i, p
		}
	}
	return best
}

func sameWinner(a, b annotation.TextSegment) bool {
	return a.AnnotationID == b.AnnotationID &&
		a.Severity == b.Severity &&
		a.AnchorStatus == b.AnchorStatus
}
