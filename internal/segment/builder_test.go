package segment_test

import (
	"math/rand/v2"
	"strings"
	"testing"

	"github.com/andukdahacker/classlite-sub004/internal/segment"
	"github.com/andukdahacker/classlite-sub004/pkg/annotation"
)

func rng(id string, start, end int, sev annotation.Severity) annotation.AnnotatedRange {
	return annotation.AnnotatedRange{
		ID: id, StartOffset: start, EndOffset: end,
		Severity: sev, AnchorStatus: annotation.StatusValid,
	}
}

// checkPartition asserts the round-trip and contiguity post-conditions.
func checkPartition(t *testing.T, text string, segs []annotation.TextSegment) {
	t.Helper()
	if len(segs) == 0 {
		t.Fatal("Build returned no segments")
	}
	var b strings.Builder
	next := 0
	for i, s := range segs {
		b.WriteString(s.Text)
		if s.CharOffset != next {
			t.Fatalf("segs[%d].CharOffset = %d, want %d", i, s.CharOffset, next)
		}
		next = s.End()
	}
	if b.String() != text {
		t.Fatalf("concatenation = %q, want %q", b.String(), text)
	}
}

// idAt returns the annotation id covering rune position pos.
func idAt(segs []annotation.TextSegment, pos int) string {
	for _, s := range segs {
		if pos >= s.CharOffset && pos < s.End() {
			return s.AnnotationID
		}
	}
	return "<none>"
}

func TestBuild_NoRanges(t *testing.T) {
	t.Parallel()

	for _, text := range []string{"Hello world", ""} {
		segs := segment.Build(text, nil)
		if len(segs) != 1 {
			t.Fatalf("Build(%q) = %d segments, want 1", text, len(segs))
		}
		if segs[0].Text != text || segs[0].Annotated() || segs[0].CharOffset != 0 {
			t.Errorf("Build(%q) = %+v", text, segs[0])
		}
	}
}

func TestBuild_PriorityResolution(t *testing.T) {
	t.Parallel()

	text := "Hello world"
	segs := segment.Build(text, []annotation.AnnotatedRange{
		rng("err", 0, 8, annotation.SeverityError),
		rng("warn", 3, 11, annotation.SeverityWarning),
	})
	checkPartition(t, text, segs)

	for pos := 3; pos < 8; pos++ {
		if got := idAt(segs, pos); got != "err" {
			t.Errorf("position %d resolved to %q, want err", pos, got)
		}
	}
	for pos := 8; pos < 11; pos++ {
		if got := idAt(segs, pos); got != "warn" {
			t.Errorf("position %d resolved to %q, want warn", pos, got)
		}
	}
	if len(segs) != 2 || segs[0].Text != "Hello wo" || segs[1].Text != "rld" {
		t.Errorf("segments = %+v, want [Hello wo][rld]", segs)
	}
	if segs[0].Severity != annotation.SeverityError {
		t.Errorf("segs[0].Severity = %q", segs[0].Severity)
	}
}

func TestBuild_Gaps(t *testing.T) {
	t.Parallel()

	text := "The student wrote this essay."
	segs := segment.Build(text, []annotation.AnnotatedRange{
		rng("a", 4, 11, annotation.SeverityWarning),
	})
	checkPartition(t, text, segs)

	want := []struct {
		text string
		id   string
	}{
		{"The ", ""},
		{"student", "a"},
		{" wrote this essay.", ""},
	}
	if len(segs) != len(want) {
		t.Fatalf("segments = %+v", segs)
	}
	for i, w := range want {
		if segs[i].Text != w.text || segs[i].AnnotationID != w.id {
			t.Errorf("segs[%d] = (%q, %q), want (%q, %q)", i, segs[i].Text, segs[i].AnnotationID, w.text, w.id)
		}
	}
}

func TestBuild_AdjacentRangesLeaveNoGap(t *testing.T) {
	t.Parallel()

	text := "Hello world"
	segs := segment.Build(text, []annotation.AnnotatedRange{
		rng("b", 5, 11, annotation.SeveritySuggestion),
		rng("a", 0, 5, annotation.SeveritySuggestion),
	})
	checkPartition(t, text, segs)
	if len(segs) != 2 || segs[0].AnnotationID != "a" || segs[1].AnnotationID != "b" {
		t.Errorf("segments = %+v, want [a][b]", segs)
	}
}

func TestBuild_NestedRanges(t *testing.T) {
	t.Parallel()

	text := "abcdefghij"
	segs := segment.Build(text, []annotation.AnnotatedRange{
		rng("outer", 0, 10, ""),
		rng("inner", 3, 6, annotation.SeverityError),
	})
	checkPartition(t, text, segs)

	got := []string{}
	for _, s := range segs {
		got = append(got, s.AnnotationID+":"+s.Text)
	}
	want := []string{"outer:abc", "inner:def", "outer:ghij"}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("segments = %v, want %v", got, want)
	}
}

func TestBuild_TieBreakIsInputOrder(t *testing.T) {
	t.Parallel()

	text := "overlapping"
	first := segment.Build(text, []annotation.AnnotatedRange{
		rng("x", 0, 7, annotation.SeverityWarning),
		rng("y", 4, 11, annotation.SeverityWarning),
	})
	second := segment.Build(text, []annotation.AnnotatedRange{
		rng("y", 4, 11, annotation.SeverityWarning),
		rng("x", 0, 7, annotation.SeverityWarning),
	})
	if got := idAt(first, 5); got != "x" {
		t.Errorf("first order: overlap resolved to %q, want x", got)
	}
	if got := idAt(second, 5); got != "y" {
		t.Errorf("second order: overlap resolved to %q, want y", got)
	}

	again := segment.Build(text, []annotation.AnnotatedRange{
		rng("x", 0, 7, annotation.SeverityWarning),
		rng("y", 4, 11, annotation.SeverityWarning),
	})
	if len(again) != len(first) {
		t.Fatal("Build is not deterministic")
	}
	for i := range first {
		if first[i] != again[i] {
			t.Errorf("run 2 segs[%d] = %+v, want %+v", i, again[i], first[i])
		}
	}
}

func TestBuild_Filtering(t *testing.T) {
	t.Parallel()

	text := "Hello world"
	ranges := []annotation.AnnotatedRange{
		{ID: "orphan", StartOffset: 0, EndOffset: 5, Severity: annotation.SeverityError, AnchorStatus: annotation.StatusOrphaned},
		{ID: "none", StartOffset: 0, EndOffset: 5, Severity: annotation.SeverityError, AnchorStatus: annotation.StatusNoAnchor},
		{ID: "negative", StartOffset: -1, EndOffset: 3, AnchorStatus: annotation.StatusValid},
		{ID: "empty", StartOffset: 3, EndOffset: 3, AnchorStatus: annotation.StatusValid},
		{ID: "inverted", StartOffset: 6, EndOffset: 2, AnchorStatus: annotation.StatusValid},
		{ID: "past-end", StartOffset: 6, EndOffset: 12, AnchorStatus: annotation.StatusValid},
		{ID: "drifted", StartOffset: 6, EndOffset: 11, AnchorStatus: annotation.StatusDrifted},
	}
	segs := segment.Build(text, ranges)
	checkPartition(t, text, segs)

	for _, s := range segs {
		if s.Annotated() && s.AnnotationID != "drifted" {
			t.Errorf("filtered range %q produced a segment", s.AnnotationID)
		}
	}
	if got := idAt(segs, 8); got != "drifted" {
		t.Errorf("drifted range not highlighted: %q", got)
	}
	if segs[len(segs)-1].AnchorStatus != annotation.StatusDrifted {
		t.Errorf("drifted segment status = %q", segs[len(segs)-1].AnchorStatus)
	}
}

func TestBuild_RuneOffsets(t *testing.T) {
	t.Parallel()

	text := "Le café noir 日本語"
	segs := segment.Build(text, []annotation.AnnotatedRange{
		rng("cafe", 3, 7, ""),
		rng("jp", 13, 16, annotation.SeverityError),
	})
	checkPartition(t, text, segs)

	if got := segs[1]; got.Text != "café" || got.CharOffset != 3 {
		t.Errorf("segs[1] = %+v, want café at 3", got)
	}
	if got := segs[len(segs)-1]; got.Text != "日本語" || got.CharOffset != 13 {
		t.Errorf("last segment = %+v, want 日本語 at 13", got)
	}
}

func TestBuild_RandomPartitions(t *testing.T) {
	t.Parallel()

	r := rand.New(rand.NewPCG(1, 2))
	alphabet := []rune("ab cdé\n語")
	severities := []annotation.Severity{"", annotation.SeveritySuggestion, annotation.SeverityWarning, annotation.SeverityError}
	statuses := []annotation.AnchorStatus{annotation.StatusValid, annotation.StatusDrifted, annotation.StatusOrphaned, annotation.StatusNoAnchor}

	for range 200 {
		n := r.IntN(40)
		runes := make([]rune, n)
		for i := range runes {
			runes[i] = alphabet[r.IntN(len(alphabet))]
		}
		text := string(runes)

		var ranges []annotation.AnnotatedRange
		for k := range r.IntN(8) {
			start := r.IntN(n+4) - 2
			ranges = append(ranges, annotation.AnnotatedRange{
				ID:           string(rune('A' + k)),
				StartOffset:  start,
				EndOffset:    start + r.IntN(12) - 2,
				Severity:     severities[r.IntN(len(severities))],
				AnchorStatus: statuses[r.IntN(len(statuses))],
			})
		}

		segs := segment.Build(text, ranges)
		checkPartition(t, text, segs)

		for _, s := range segs {
			if !s.Annotated() {
				continue
			}
			for _, rg := range ranges {
				if rg.ID == s.AnnotationID && !rg.AnchorStatus.Highlightable() {
					t.Fatalf("range %+v with status %q was highlighted", rg, rg.AnchorStatus)
				}
			}
		}
		for i := 1; i < len(segs); i++ {
			if segs[i-1].AnnotationID == segs[i].AnnotationID &&
				segs[i-1].Severity == segs[i].Severity &&
				segs[i-1].AnchorStatus == segs[i].AnchorStatus {
				t.Fatalf("neighbouring segments %d and %d share a winner: %+v", i-1, i, segs)
			}
		}

		paras := segment.SplitParagraphs(text, segs)
		lines := strings.Split(text, "\n")
		if len(paras) != len(lines) {
			t.Fatalf("paragraphs = %d, want %d", len(paras), len(lines))
		}
		for i, p := range paras {
			if p.Text() != lines[i] {
				t.Fatalf("paragraph %d = %q, want %q", i, p.Text(), lines[i])
			}
		}
	}
}
