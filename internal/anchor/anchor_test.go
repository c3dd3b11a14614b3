package anchor_test

import (
	"context"
	"testing"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/andukdahacker/classlite-sub004/internal/anchor"
	"github.com/andukdahacker/classlite-sub004/internal/observe"
	"github.com/andukdahacker/classlite-sub004/internal/textsim"
	"github.com/andukdahacker/classlite-sub004/pkg/annotation"
)

const essay = "The student wrote this essay about climate change."

var (
	intp = annotation.Int
	strp = annotation.String
)

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		start, end *int
		snippet    *string
		text       string
		wantStatus annotation.AnchorStatus
		wantText   *string
	}{
		{
			name: "exact match", start: intp(4), end: intp(17), snippet: strp("student wrote"),
			text: essay, wantStatus: annotation.StatusValid, wantText: strp("student wrote"),
		},
		{
			name: "case and padding ignored", start: intp(4), end: intp(17), snippet: strp("  Student Wrote "),
			text: essay, wantStatus: annotation.StatusValid, wantText: strp("student wrote"),
		},
		{
			name: "nil offsets", snippet: strp("student wrote"),
			text: essay, wantStatus: annotation.StatusNoAnchor,
		},
		{
			name: "nil end only", start: intp(4), snippet: strp("student wrote"),
			text: essay, wantStatus: annotation.StatusNoAnchor,
		},
		{
			name: "three edits of thirteen drift", start: intp(4), end: intp(17), snippet: strp("stadent wruta"),
			text: essay, wantStatus: annotation.StatusDrifted, wantText: strp("student wrote"),
		},
		{
			name: "unrelated snippet orphans", start: intp(4), end: intp(17), snippet: strp("banana bread recipe"),
			text: essay, wantStatus: annotation.StatusOrphaned, wantText: strp("student wrote"),
		},
		{
			name: "no snippet trusts offsets", start: intp(0), end: intp(3),
			text: essay, wantStatus: annotation.StatusValid, wantText: strp("The"),
		},
		{
			name: "out of range offsets clamp", start: intp(45), end: intp(500), snippet: strp("ange."),
			text: essay, wantStatus: annotation.StatusValid, wantText: strp("ange."),
		},
		{
			name: "entirely past the end", start: intp(100), end: intp(120), snippet: strp("anything"),
			text: essay, wantStatus: annotation.StatusOrphaned, wantText: strp(""),
		},
		{
			name: "inverted range yields empty slice", start: intp(17), end: intp(4), snippet: strp("student wrote"),
			text: essay, wantStatus: annotation.StatusOrphaned, wantText: strp(""),
		},
		{
			name: "negative start clamps to zero", start: intp(-5), end: intp(3), snippet: strp("The"),
			text: essay, wantStatus: annotation.StatusValid, wantText: strp("The"),
		},
		{
			name: "empty snippet against empty slice", start: intp(3), end: intp(3), snippet: strp(""),
			text: essay, wantStatus: annotation.StatusValid, wantText: strp(""),
		},
		{
			name: "rune offsets", start: intp(3), end: intp(7), snippet: strp("café"),
			text: "Le café noir", wantStatus: annotation.StatusValid, wantText: strp("café"),
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got := anchor.Validate(tc.start, tc.end, tc.snippet, tc.text)
			if got.Status != tc.wantStatus {
				t.Errorf("Status = %q, want %q", got.Status, tc.wantStatus)
			}
			switch {
			case tc.wantText == nil && got.TextAtOffset != nil:
				t.Errorf("TextAtOffset = %q, want nil", *got.TextAtOffset)
			case tc.wantText != nil && got.TextAtOffset == nil:
				t.Errorf("TextAtOffset = nil, want %q", *tc.wantText)
			case tc.wantText != nil && *got.TextAtOffset != *tc.wantText:
				t.Errorf("TextAtOffset = %q, want %q", *got.TextAtOffset, *tc.wantText)
			}
		})
	}
}

func TestThresholds_Classify(t *testing.T) {
	t.Parallel()

	th := anchor.DefaultThresholds()
	tests := []struct {
		score float64
		want  annotation.AnchorStatus
	}{
		{1, annotation.StatusValid},
		{0.81, annotation.StatusValid},
		{0.79, annotation.StatusDrifted},
		{0.5, annotation.StatusDrifted},
		{0.49, annotation.StatusOrphaned},
		{0, annotation.StatusOrphaned},
	}
	for _, tc := range tests {
		if got := th.Classify(tc.score); got != tc.want {
			t.Errorf("Classify(%v) = %q, want %q", tc.score, got, tc.want)
		}
	}
}

func TestThresholds_Validate(t *testing.T) {
	t.Parallel()

	bad := []anchor.Thresholds{
		{Valid: 1.2, Drifted: 0.5},
		{Valid: 0.8, Drifted: -0.1},
		{Valid: 0.4, Drifted: 0.6},
	}
	for _, th := range bad {
		if err := th.Validate(); err == nil {
			t.Errorf("Validate(%+v) = nil, want error", th)
		}
	}
	if err := anchor.DefaultThresholds().Validate(); err != nil {
		t.Errorf("default thresholds invalid: %v", err)
	}
}

func TestValidator_Options(t *testing.T) {
	t.Parallel()

	strict := anchor.New(anchor.WithThresholds(anchor.Thresholds{Valid: 0.95, Drifted: 0.9}))
	got := strict.Validate(context.Background(), intp(4), intp(17), strp("studant wrote"), essay)
	if got.Status != annotation.StatusDrifted {
		t.Errorf("strict Validate = %q, want drifted (similarity %.3f)", got.Status, got.Similarity)
	}

	ignored := anchor.New(anchor.WithThresholds(anchor.Thresholds{Valid: 0.2, Drifted: 0.9}))
	if ignored.Thresholds() != anchor.DefaultThresholds() {
		t.Errorf("invalid thresholds applied: %+v", ignored.Thresholds())
	}

	jw := anchor.New(anchor.WithMetric(textsim.JaroWinkler))
	got = jw.Validate(context.Background(), intp(4), intp(17), strp("student wrote"), essay)
	if got.Status != annotation.StatusValid || got.Similarity < 0.999 {
		t.Errorf("jaro-winkler Validate = %+v, want valid with similarity ~1", got)
	}
}

func TestValidator_ValidateAll(t *testing.T) {
	t.Parallel()

	anns := []annotation.Annotation{
		annotation.FeedbackItem{ID: "f1", StartOffset: intp(4), EndOffset: intp(17), OriginalContextSnippet: strp("student wrote")},
		annotation.FeedbackItem{ID: "f2", OriginalContextSnippet: strp("overall")},
		annotation.TeacherComment{ID: "c1", StartOffset: intp(4), EndOffset: intp(17), OriginalContextSnippet: strp("zzzz")},
		annotation.FeedbackItem{ID: "f1", StartOffset: intp(0), EndOffset: intp(3)},
	}

	got := anchor.New().ValidateAll(context.Background(), essay, anns)
	if len(got) != 3 {
		t.Fatalf("len(results) = %d, want 3", len(got))
	}
	want := map[string]annotation.AnchorStatus{
		"f1": annotation.StatusValid,
		"f2": annotation.StatusNoAnchor,
		"c1": annotation.StatusOrphaned,
	}
	for id, status := range want {
		if got[id].Status != status {
			t.Errorf("results[%q].Status = %q, want %q", id, got[id].Status, status)
		}
	}
	if *got["f1"].TextAtOffset != "student wrote" {
		t.Errorf("duplicate id overrode the first occurrence: %q", *got["f1"].TextAtOffset)
	}
}

func TestRanges(t *testing.T) {
	t.Parallel()

	anns := []annotation.Annotation{
		annotation.FeedbackItem{ID: "a", Severity: annotation.SeverityError, StartOffset: intp(0), EndOffset: intp(3)},
		annotation.TeacherComment{ID: "general"},
		annotation.TeacherComment{ID: "b", StartOffset: intp(4), EndOffset: intp(17), OriginalContextSnippet: strp("zzzz")},
	}
	results := anchor.New().ValidateAll(context.Background(), essay, anns)
	ranges := anchor.Ranges(anns, results)

	if len(ranges) != 2 {
		t.Fatalf("len(ranges) = %d, want 2", len(ranges))
	}
	if ranges[0].ID != "a" || ranges[0].Severity != annotation.SeverityError || ranges[0].AnchorStatus != annotation.StatusValid {
		t.Errorf("ranges[0] = %+v", ranges[0])
	}
	if ranges[1].ID != "b" || ranges[1].Severity != "" || ranges[1].AnchorStatus != annotation.StatusOrphaned {
		t.Errorf("ranges[1] = %+v", ranges[1])
	}
	if ranges[1].StartOffset != 4 || ranges[1].EndOffset != 17 {
		t.Errorf("ranges[1] offsets = [%d, %d), want [4, 17)", ranges[1].StartOffset, ranges[1].EndOffset)
	}
}

func TestValidator_RecordsMetrics(t *testing.T) {
	t.Parallel()

	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })
	met, err := observe.NewMetrics(mp)
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}

	v := anchor.New(anchor.WithMetrics(met))
	v.ValidateAll(context.Background(), essay, []annotation.Annotation{
		annotation.FeedbackItem{ID: "x", StartOffset: intp(0), EndOffset: intp(3)},
		annotation.FeedbackItem{ID: "y"},
	})

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect: %v", err)
	}
	var total int64
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != "classlite.anchor.validations" {
				continue
			}
			for _, dp := range m.Data.(metricdata.Sum[int64]).DataPoints {
				total += dp.Value
			}
		}
	}
	if total != 2 {
		t.Errorf("recorded validations = %d, want 2", total)
	}
}
