// Package textsim implements the normalised string similarity used to decide
// whether an annotation's stored snippet still matches the current text.
//
// The default metric is a normalised Levenshtein similarity:
//
//	1 - distance(a, b) / max(len(a), len(b))
//
// computed on trimmed, lower-cased inputs with lengths counted in runes. A
// Jaro-Winkler alternative backed by [matchr] can be selected by name through
// [MetricByName]; it shares the same normalisation and empty-string rules.
//
// All functions are pure and safe for concurrent use.
package textsim

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/antzucaro/matchr"
)

// ErrUnknownMetric is returned by [MetricByName] for unrecognised names.
var ErrUnknownMetric = errors.New("textsim: unknown metric")

// Metric scores the similarity of two strings in [0, 1], where 1 means
// identical after normalisation.
type Metric func(a, b string) float64

const (
	// MetricLevenshtein names [Similarity].
	MetricLevenshtein = "levenshtein"

	// MetricJaroWinkler names [JaroWinkler].
	MetricJaroWinkler = "jaro-winkler"
)

// MetricNames lists the names accepted by [MetricByName].
var MetricNames = []string{MetricLevenshtein, MetricJaroWinkler}

// MetricByName returns the metric registered under name. The empty name
// selects the Levenshtein default.
func MetricByName(name string) (Metric, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", MetricLevenshtein:
		return Similarity, nil
	case MetricJaroWinkler:
		return JaroWinkler, nil
	}
	return nil, fmt.Errorf("%w %q; valid values: %s", ErrUnknownMetric, name, strings.Join(MetricNames, ", "))
}

// Similarity returns the normalised Levenshtein similarity of a and b.
//
// Both inputs are trimmed and lower-cased first, so the comparison ignores
// case and surrounding whitespace; whitespace inside the strings still counts
// as edits. Two empty strings are identical (1); one empty string against a
// non-empty one scores 0.
func Similarity(a, b string) float64 {
	a, b = normalize(a), normalize(b)
	if score, ok := emptyScore(a, b); ok {
		return score
	}
	longest := max(utf8.RuneCountInString(a), utf8.RuneCountInString(b))
	return 1 - float64(Levenshtein(a, b))/float64(longest)
}

// JaroWinkler returns the Jaro-Winkler similarity of a and b with the same
// normalisation and empty-string handling as [Similarity].
func JaroWinkler(a, b string) float64 {
	a, b = normalize(a), normalize(b)
	if score, ok := emptyScore(a, b); ok {
		return score
	}
	return matchr.JaroWinkler(a, b, false)
}

// Levenshtein returns the edit distance between a and b, where insertion,
// deletion and substitution of a rune each cost 1.
//
// A single DP row sized by the shorter input is kept, so memory is
// O(min(len(a), len(b))) and time O(len(a)·len(b)).
func Levenshtein(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	if len(ra) < len(rb) {
		ra, rb = rb, ra
	}
	if len(rb) == 0 {
		return len(ra)
	}

	row := make([]int, len(rb)+1)
	for j := range row {
		row[j] = j
	}
	for i := 1; i <= len(ra); i++ {
		diag := row[0]
		row[0] = i
		for j := 1; j <= len(rb); j++ {
			above := row[j]
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			row[j] = min(above+1, row[j-1]+1, diag+cost)
			diag = above
		}
	}
	return row[len(rb)]
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// emptyScore handles the cases where at least one normalised input is empty.
func emptyScore(a, b string) (float64, bool) {
	switch {
	case a == "" && b == "":
		return 1, true
	case a == "" || b == "":
		return 0, true
	}
	return 0, false
}
