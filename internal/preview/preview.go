// Package preview renders a review view for the terminal: the text with
// annotated spans styled by severity, followed by the feedback cards.
//
// Styles are bound to a lipgloss renderer for the output writer, so colour
// is dropped automatically when the writer is not a terminal.
package preview

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/andukdahacker/classlite-sub004/internal/review"
	"github.com/andukdahacker/classlite-sub004/pkg/annotation"
)

// Color palette.
var (
	colorRed    = lipgloss.Color("#ff5555")
	colorYellow = lipgloss.Color("#f1fa8c")
	colorBlue   = lipgloss.Color("#8be9fd")
	colorPurple = lipgloss.Color("#bd93f9")
	colorOrange = lipgloss.Color("#ffb86c")
	colorDim    = lipgloss.Color("#6272a4")
	colorBorder = lipgloss.Color("#44475a")
)

// Printer renders views with a fixed set of styles.
type Printer struct {
	header       lipgloss.Style
	paragraph    lipgloss.Style
	errStyle     lipgloss.Style
	warnStyle    lipgloss.Style
	suggestStyle lipgloss.Style
	commentStyle lipgloss.Style
	drifted      lipgloss.Style
	marker       lipgloss.Style
	cards        lipgloss.Style
	lost         lipgloss.Style
}

// New returns a Printer whose styles match the colour support of w.
func New(w io.Writer) *Printer {
	r := lipgloss.NewRenderer(w)
	return &Printer{
		header: r.NewStyle().
			Foreground(colorBlue).
			Bold(true).
			Padding(0, 0, 1, 0),
		paragraph: r.NewStyle().
			PaddingLeft(2),
		errStyle: r.NewStyle().
			Foreground(colorRed).
			Underline(true),
		warnStyle: r.NewStyle().
			Foreground(colorOrange).
			Underline(true),
		suggestStyle: r.NewStyle().
			Foreground(colorYellow).
			Underline(true),
		commentStyle: r.NewStyle().
			Foreground(colorPurple).
			Underline(true),
		drifted: r.NewStyle().
			Italic(true),
		marker: r.NewStyle().
			Foreground(colorDim),
		cards: r.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorBorder).
			Padding(0, 1),
		lost: r.NewStyle().
			Foreground(colorDim).
			Italic(true),
	}
}

// Fprint writes the rendered view to w.
func (p *Printer) Fprint(w io.Writer, v review.View) error {
	_, err := io.WriteString(w, p.Render(v)+"\n")
	return err
}

// Render returns the view as styled text. Annotated spans are followed by a
// dim [id] marker; the highlighted span is reversed and bold.
func (p *Printer) Render(v review.View) string {
	var b strings.Builder
	b.WriteString(p.header.Render(fmt.Sprintf("review %s  v%d", v.ID, v.Version)))
	b.WriteString("\n")

	for _, para := range v.Paragraphs {
		var line strings.Builder
		for _, seg := range para.Segments {
			line.WriteString(p.segment(seg))
		}
		b.WriteString(p.paragraph.Render(line.String()))
		b.WriteString("\n")
	}

	if len(v.Cards) > 0 {
		lines := make([]string, 0, len(v.Cards))
		for _, c := range v.Cards {
			lines = append(lines, p.card(c))
		}
		b.WriteString("\n")
		b.WriteString(p.cards.Render(strings.Join(lines, "\n")))
	}
	return b.String()
}

func (p *Printer) segment(seg review.ViewSegment) string {
	if !seg.Annotated() {
		return seg.Text
	}
	st := p.severityStyle(seg.Severity)
	if seg.AnchorStatus == annotation.StatusDrifted {
		st = st.Inherit(p.drifted)
	}
	if seg.Active {
		st = st.Reverse(true).Bold(true)
	}
	return st.Render(seg.Text) + p.marker.Render("["+seg.AnnotationID+"]")
}

func (p *Printer) card(c review.Card) string {
	label := string(c.Severity)
	if label == "" {
		label = string(c.Kind)
	}
	prefix := "  "
	if c.Active {
		prefix = "> "
	}
	line := fmt.Sprintf("%s%s %s", prefix, p.severityStyle(c.Severity).Render(c.ID), label)
	switch {
	case c.AnchorLost:
		line += " " + p.lost.Render("(anchor lost)")
	case c.Status == annotation.StatusDrifted:
		line += " " + p.lost.Render("(drifted)")
	case !c.Linked:
		line += " " + p.lost.Render("(general)")
	}
	if c.Content != "" {
		line += ": " + c.Content
	}
	return line
}

func (p *Printer) severityStyle(s annotation.Severity) lipgloss.Style {
	switch s {
	case annotation.SeverityError:
		return p.errStyle
	case annotation.SeverityWarning:
		return p.warnStyle
	case annotation.SeveritySuggestion:
		return p.suggestStyle
	default:
		return p.commentStyle
	}
}
