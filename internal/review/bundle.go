package review

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/andukdahacker/classlite-sub004/pkg/annotation"
)

// ErrEmptyBundle is returned when a bundle carries neither text nor
// annotations.
var ErrEmptyBundle = errors.New("review: empty bundle")

// Bundle is the serialised input of a review: the current submission text and
// the annotations attached to it, as exported by the feedback store.
type Bundle struct {
	Text     string                      `json:"text" yaml:"text"`
	Feedback []annotation.FeedbackItem   `json:"feedback,omitempty" yaml:"feedback,omitempty"`
	Comments []annotation.TeacherComment `json:"comments,omitempty" yaml:"comments,omitempty"`
}

// Annotations returns the feedback items followed by the teacher comments.
func (b Bundle) Annotations() []annotation.Annotation {
	anns := make([]annotation.Annotation, 0, len(b.Feedback)+len(b.Comments))
	for _, f := range b.Feedback {
		anns = append(anns, f)
	}
	for _, c := range b.Comments {
		anns = append(anns, c)
	}
	return anns
}

// Validate reports structural problems: an empty bundle, annotations without
// an id, and ids used more than once. Problems with offsets or snippets are
// not errors; they surface as anchor statuses.
func (b Bundle) Validate() error {
	anns := b.Annotations()
	if b.Text == "" && len(anns) == 0 {
		return ErrEmptyBundle
	}

	var errs []error
	seen := make(map[string]int, len(anns))
	for i, a := range anns {
		id := a.AnnotationID()
		if id == "" {
			errs = append(errs, fmt.Errorf("review: annotation %d (%s): id is required", i, annotation.KindOf(a)))
			continue
		}
		if first, dup := seen[id]; dup {
			errs = append(errs, fmt.Errorf("review: annotation %d: id %q already used by annotation %d", i, id, first))
			continue
		}
		seen[id] = i
	}
	return errors.Join(errs...)
}

// DecodeBundle reads a JSON or YAML bundle from r and validates it. JSON is
// detected by a leading '{'.
func DecodeBundle(r io.Reader) (Bundle, error) {
	br := bufio.NewReader(r)
	var b Bundle

	if isJSON(br) {
		if err := json.NewDecoder(br).Decode(&b); err != nil {
			if errors.Is(err, io.EOF) {
				return Bundle{}, ErrEmptyBundle
			}
			return Bundle{}, fmt.Errorf("review: decode json bundle: %w", err)
		}
	} else {
		if err := yaml.NewDecoder(br).Decode(&b); err != nil {
			if errors.Is(err, io.EOF) {
				return Bundle{}, ErrEmptyBundle
			}
			return Bundle{}, fmt.Errorf("review: decode yaml bundle: %w", err)
		}
	}

	if err := b.Validate(); err != nil {
		return Bundle{}, err
	}
	return b, nil
}

// isJSON peeks past leading whitespace for an opening brace.
func isJSON(br *bufio.Reader) bool {
	for n := 1; ; n++ {
		buf, _ := br.Peek(n)
		if len(buf) < n {
			return false
		}
		switch buf[n-1] {
		case ' ', '\t', '\r', '\n':
			continue
		case '{':
			return true
		default:
			return false
		}
	}
}
