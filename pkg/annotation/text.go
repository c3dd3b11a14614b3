package annotation

import "unicode/utf8"

// RuneLen returns the number of runes in s.
func RuneLen(s string) int {
	return utf8.RuneCountInString(s)
}

// Text wraps a string with a rune-to-byte index so that rune offsets can be
// sliced repeatedly without re-decoding. Slices are taken from the original
// bytes, so invalid UTF-8 survives a round trip unchanged.
type Text struct {
	s     string
	index []int // byte offset of each rune, plus len(s) as sentinel
}

// NewText indexes s.
func NewText(s string) Text {
	index := make([]int, 0, len(s)+1)
	for i := range s {
		index = append(index, i)
	}
	index = append(index, len(s))
	return Text{s: s, index: index}
}

// String returns the underlying text.
func (t Text) String() string { return t.s }

// Len returns the length of the text in runes.
func (t Text) Len() int { return len(t.index) - 1 }

// Clamp limits the rune offsets to the text bounds. An inverted range
// collapses onto start.
func (t Text) Clamp(start, end int) (int, int) {
	n := t.Len()
	start = min(max(start, 0), n)
	end = min(max(end, 0), n)
	if end < start {
		end = start
	}
	return start, end
}

// Slice returns the text in the rune range [start, end), clamped to the text
// bounds. It never panics.
func (t Text) Slice(start, end int) string {
	start, end = t.Clamp(start, end)
	return t.s[t.index[start]:t.index[end]]
}
