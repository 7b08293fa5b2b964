package transform

import (
	"reflect"
	"strings"
	"testing"

	"github.com/TobiSchelling/auditreports/internal/audit"
)

func record(id, client string, fields map[string]any) audit.Record {
	all := map[string]any{"Client": client}
	for k, v := range fields {
		all[k] = v
	}
	return audit.Normalize(id, all)
}

func scores(values ...any) map[string]any {
	fields := make(map[string]any)
	for i, v := range values {
		fields[audit.ScoreField(audit.Categories[i])] = v
	}
	return fields
}

func TestScoresDefaultAndClamp(t *testing.T) {
	tr := New([]audit.Record{
		record("rec1", "Acme Co", scores(float64(4), "3", "abc", nil, float64(9), float64(-2), "5 stars", float64(2.7))),
		record("rec2", "Acme Co", nil),
	})
	got := tr.Scores()
	if len(got) != 2 {
		t.Fatalf("expected 2 score sets, got %d", len(got))
	}
	want := []int{4, 3, 0, 0, 5, 0, 5, 2}
	if !reflect.DeepEqual(got[0].Scores, want) {
		t.Errorf("expected %v, got %v", want, got[0].Scores)
	}
	for _, s := range got {
		if len(s.Scores) != len(audit.Categories) {
			t.Fatalf("expected a score per category, got %d", len(s.Scores))
		}
		for i, v := range s.Scores {
			if v < 0 || v > MaxScore {
				t.Errorf("%s: score %d out of range", audit.Categories[i], v)
			}
		}
	}
	if !reflect.DeepEqual(got[1].Scores, make([]int, len(audit.Categories))) {
		t.Errorf("expected all zeros for empty record, got %v", got[1].Scores)
	}
}

func TestAveragesAndSummary(t *testing.T) {
	tr := New([]audit.Record{
		record("rec1", "Acme Co", scores(float64(4), float64(2), float64(5), float64(1), float64(3), float64(3), float64(2), float64(4))),
		record("rec2", "Acme Co", scores(float64(3), float64(2), float64(4), float64(1), float64(4), float64(3), float64(2), float64(4))),
		record("rec3", "Beta Ltd", scores(float64(4), float64(3), float64(5), float64(2), float64(3), float64(3), float64(2), float64(4))),
	})

	avg := tr.Averages()
	wantAvg := []float64{3.7, 2.3, 4.7, 1.3, 3.3, 3, 2, 4}
	for i, a := range avg {
		if a.Category != audit.Categories[i] {
			t.Errorf("expected category %s at %d, got %s", audit.Categories[i], i, a.Category)
		}
		if a.Score != wantAvg[i] {
			t.Errorf("%s: expected %.1f, got %v", a.Category, wantAvg[i], a.Score)
		}
	}

	s := tr.Summary()
	// (3.7+2.3+4.7+1.3+3.3+3+2+4)/8 = 24.3/8 = 3.0375
	if s.OverallAverage != 3.0 {
		t.Errorf("expected overall 3.0, got %v", s.OverallAverage)
	}
	if s.Highest.Category != "Mobile Experience" || s.Highest.Score != 4.7 {
		t.Errorf("unexpected highest %+v", s.Highest)
	}
	if s.Lowest.Category != "Information Hierarchy" || s.Lowest.Score != 1.3 {
		t.Errorf("unexpected lowest %+v", s.Lowest)
	}
	if s.TotalAudits != 3 {
		t.Errorf("expected 3 audits, got %d", s.TotalAudits)
	}
	if !reflect.DeepEqual(s.Clients, []string{"Acme Co", "Beta Ltd"}) {
		t.Errorf("unexpected clients %v", s.Clients)
	}
}

func TestSummaryTiesGoToFirstCategory(t *testing.T) {
	tr := New([]audit.Record{record("rec1", "Acme Co", scores(float64(3), float64(5), float64(5), float64(1), float64(1), float64(2), float64(2), float64(2)))})
	s := tr.Summary()
	if s.Highest.Category != "Trust & Credibility" {
		t.Errorf("expected first maximum, got %s", s.Highest.Category)
	}
	if s.Lowest.Category != "Information Hierarchy" {
		t.Errorf("expected first minimum, got %s", s.Lowest.Category)
	}
}

func TestSummaryEmpty(t *testing.T) {
	s := New(nil).Summary()
	if s.OverallAverage != 0 || s.TotalAudits != 0 || len(s.Clients) != 0 {
		t.Errorf("unexpected empty summary %+v", s)
	}
}

func TestForSlugIsolatesRecords(t *testing.T) {
	tr := New([]audit.Record{
		record("rec1", "Acme Co", nil),
		record("rec2", "Beta Ltd", nil),
		record("rec3", "Acme Co", nil),
	})
	acme := tr.ForSlug("acme-co")
	var ids []string
	for _, r := range acme.Records() {
		ids = append(ids, r.ID)
	}
	if !reflect.DeepEqual(ids, []string{"rec1", "rec3"}) {
		t.Errorf("unexpected records %v", ids)
	}
	if got := acme.Summary().Clients; !reflect.DeepEqual(got, []string{"Acme Co"}) {
		t.Errorf("unexpected clients %v", got)
	}
	if n := len(tr.ForSlug("nobody").Records()); n != 0 {
		t.Errorf("expected no records, got %d", n)
	}
}

func TestForSlugJoinsNamesWithOneSlug(t *testing.T) {
	tr := New([]audit.Record{
		record("rec1", "Acme Co", nil),
		record("rec2", "Acme-Co", nil),
		record("rec3", "Beta Ltd", nil),
	})
	acme := tr.ForSlug("acme-co")
	if n := len(acme.Records()); n != 2 {
		t.Fatalf("expected 2 records, got %d", n)
	}
	if got := acme.Summary().Clients; !reflect.DeepEqual(got, []string{"Acme Co", "Acme-Co"}) {
		t.Errorf("unexpected clients %v", got)
	}
}

func TestFindingsFallbacks(t *testing.T) {
	tr := New([]audit.Record{record("rec1", "Acme Co", map[string]any{
		"Clarity & Purpose Issue":         "Hero is vague",
		"Clarity & Purpose Issues":        "ignored",
		"Trust & Credibility Issues":      "No reviews",
		"Trust & Credibility Experiments": "Add testimonials",
		"Mobile Experience Issue":         "   ",
	})})
	f := tr.Findings()[0].Findings
	if len(f) != len(audit.Categories) {
		t.Fatalf("expected %d findings, got %d", len(audit.Categories), len(f))
	}
	if f[0].Issue != "Hero is vague" || f[0].Experiment != NoExperiments {
		t.Errorf("unexpected first finding %+v", f[0])
	}
	if f[1].Issue != "No reviews" || f[1].Experiment != "Add testimonials" {
		t.Errorf("unexpected second finding %+v", f[1])
	}
	if f[2].Issue != NoIssues {
		t.Errorf("expected blank issue to fall back, got %q", f[2].Issue)
	}
}

func TestPartitionLaw(t *testing.T) {
	findings := []Finding{
		{Category: "A", Score: 4},
		{Category: "B", Score: 1},
		{Category: "C", Score: 3},
		{Category: "D", Score: 5},
		{Category: "E", Score: 1},
		{Category: "F", Score: 0},
		{Category: "G", Score: 4},
		{Category: "H", Score: 3},
	}
	needsWork, doingWell := Partition(findings)

	if len(needsWork)+len(doingWell) != len(findings) {
		t.Fatalf("partition lost findings: %d + %d != %d", len(needsWork), len(doingWell), len(findings))
	}
	seen := make(map[string]int)
	for _, f := range append(append([]Finding(nil), needsWork...), doingWell...) {
		seen[f.Category]++
	}
	for _, f := range findings {
		if seen[f.Category] != 1 {
			t.Errorf("category %s appears %d times", f.Category, seen[f.Category])
		}
	}

	var gotNeeds, gotWell []string
	for _, f := range needsWork {
		if f.Score > NeedsWorkThreshold {
			t.Errorf("needs work holds score %d", f.Score)
		}
		gotNeeds = append(gotNeeds, f.Category)
	}
	for _, f := range doingWell {
		if f.Score <= NeedsWorkThreshold {
			t.Errorf("doing well holds score %d", f.Score)
		}
		gotWell = append(gotWell, f.Category)
	}
	if want := []string{"F", "B", "E", "C", "H"}; !reflect.DeepEqual(gotNeeds, want) {
		t.Errorf("needs work order: expected %v, got %v", want, gotNeeds)
	}
	if want := []string{"D", "A", "G"}; !reflect.DeepEqual(gotWell, want) {
		t.Errorf("doing well order: expected %v, got %v", want, gotWell)
	}
}

func TestJourneyFiltersEmptyPhases(t *testing.T) {
	tr := New([]audit.Record{record("rec1", "Acme Co", map[string]any{
		audit.DiscoveryScreenshotsField: "assets/img/acme-co-discovery.png, assets/img/acme-co-discovery-2.png",
		audit.DecisionCommentsField:     "  ",
		audit.ConversionCommentsField:   "Checkout is **slow**",
	})})
	j := tr.Journey()[0]
	if len(j.Phases) != 2 {
		t.Fatalf("expected 2 phases, got %d", len(j.Phases))
	}
	if j.Phases[0].ID != "discovery" || len(j.Phases[0].Screenshots) != 2 {
		t.Errorf("unexpected discovery phase %+v", j.Phases[0])
	}
	if j.Phases[0].Screenshots[1].URL != "assets/img/acme-co-discovery-2.png" {
		t.Errorf("unexpected screenshot order %+v", j.Phases[0].Screenshots)
	}
	if j.Phases[1].Name != "Conversion phase" || j.Phases[1].Comments != "Checkout is **slow**" {
		t.Errorf("unexpected conversion phase %+v", j.Phases[1])
	}
}

func TestEyequantDefaults(t *testing.T) {
	tr := New([]audit.Record{
		record("rec1", "Acme Co", nil),
		record("rec2", "Acme Co", map[string]any{
			audit.EyequantScreenshotField: "a.png, b.png, c.png",
			audit.TopFeedbackField:        "Strong hero focus",
		}),
	})
	eq := tr.Eyequant()
	if len(eq[0].Screenshots) != 0 || eq[0].TopFeedback != NoTopFeedback || eq[0].BottomFeedback != NoBottomFeedback {
		t.Errorf("unexpected defaults %+v", eq[0])
	}
	if len(eq[1].Screenshots) != MaxEyequantScreenshots {
		t.Errorf("expected %d screenshots, got %d", MaxEyequantScreenshots, len(eq[1].Screenshots))
	}
	if eq[1].TopFeedback != "Strong hero focus" {
		t.Errorf("unexpected top feedback %q", eq[1].TopFeedback)
	}
}

func TestDetails(t *testing.T) {
	tr := New([]audit.Record{
		record("rec1", "Acme Co", map[string]any{audit.SiteField: "acme.example"}),
		record("rec2", "Acme Co", map[string]any{audit.UserField: "Sam", audit.UserIDField: float64(7)}),
	})
	want := Details{User: "Sam", UserID: "7", Site: "acme.example"}
	if got := tr.Details(); got != want {
		t.Errorf("expected %+v, got %+v", want, got)
	}
}

func TestWrapLabel(t *testing.T) {
	cases := map[string][]string{
		"Clarity & Purpose":     {"Clarity &", "Purpose"},
		"Information Hierarchy": {"Information", "Hierarchy"},
		"Visual Design":         {"Visual Design"},
		"Speed & Performance":   {"Speed &", "Performance"},
		"Supercalifragilistic":  {"Supercalifragilistic"},
	}
	for label, want := range cases {
		got := WrapLabel(label, LabelWidth)
		if !reflect.DeepEqual(got, want) {
			t.Errorf("WrapLabel(%q) = %q, want %q", label, got, want)
		}
		if strings.Join(got, " ") != label {
			t.Errorf("WrapLabel(%q) does not rejoin to the label", label)
		}
	}
}

func TestRadarChart(t *testing.T) {
	tr := New([]audit.Record{
		record("rec1", "Acme Co", scores(float64(4))),
		record("rec2", "Acme Co", scores(float64(2))),
	})
	data := tr.RadarChart()
	if len(data.Labels) != len(audit.Categories) {
		t.Fatalf("expected %d labels, got %d", len(audit.Categories), len(data.Labels))
	}
	if len(data.Datasets) != 2 {
		t.Fatalf("expected 2 datasets, got %d", len(data.Datasets))
	}
	ds := data.Datasets[1]
	if ds.Label != "Acme Co (ID: rec2)" {
		t.Errorf("unexpected label %q", ds.Label)
	}
	if ds.BorderColor != "rgba(99, 37, 244, 1)" || ds.BackgroundColor != "rgba(99, 37, 244, 0.2)" {
		t.Errorf("unexpected colours %q %q", ds.BorderColor, ds.BackgroundColor)
	}
	if ds.Data[0] != 2 {
		t.Errorf("unexpected data %v", ds.Data)
	}
	if ChartColor(8, 1) != ChartColor(0, 1) {
		t.Error("expected palette to cycle")
	}

	opts := RadarOptions()
	if opts.Scales.R.Max != 5 || opts.Scales.R.Ticks.StepSize != 1 || !opts.Scales.R.BeginAtZero {
		t.Errorf("unexpected scale %+v", opts.Scales.R)
	}
	keys := CriteriaKeys()
	for _, c := range audit.Categories {
		if keys[c] == "" {
			t.Errorf("missing criteria key for %s", c)
		}
	}
}
