package segment

import (
	"strings"

	"github.com/andukdahacker/classlite-sub004/pkg/annotation"
)

// SplitParagraphs slices segs along the newlines of text.
//
// Paragraph i covers the rune range of line i without its newline; a text
// ending in a newline therefore has a trailing empty paragraph. Every segment
// that overlaps a paragraph contributes a copy trimmed to the overlap, with
// CharOffset moved to the overlap start. Segment order is preserved. Empty
// paragraphs carry an empty, non-nil Segments slice.
func SplitParagraphs(text string, segs []annotation.TextSegment) []annotation.Paragraph {
	indexed := make([]annotation.Text, len(segs))
	for i, s := range segs {
		indexed[i] = annotation.NewText(s.Text)
	}

	lines := strings.Split(text, "\n")
	paras := make([]annotation.Paragraph, 0, len(lines))
	lineStart := 0
	for i, line := range lines {
		lineEnd := lineStart + annotation.RuneLen(line)
		p := annotation.Paragraph{Index: i, Segments: []annotation.TextSegment{}}

		for j, s := range segs {
			segStart, segEnd := s.CharOffset, s.CharOffset+indexed[j].Len()
			lo, hi := max(lineStart, segStart), min(lineEnd, segEnd)
			if lo >= hi {
				continue
			}
			part := s
			part.Text = indexed[j].Slice(lo-segStart, hi-segStart)
			part.CharOffset = lo
			p.Segments = append(p.Segments, part)
		}

		paras = append(paras, p)
		lineStart = lineEnd + 1
	}
	return paras
}

// Render builds the segments for text and splits them into paragraphs.
func Render(text string, ranges []annotation.AnnotatedRange) []annotation.Paragraph {
	return SplitParagraphs(text, Build(text, ranges))
}
