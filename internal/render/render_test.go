package render

import (
	"bytes"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"

	"github.com/TobiSchelling/auditreports/internal/audit"
	"github.com/TobiSchelling/auditreports/internal/transform"
)

func newTestRenderer(t *testing.T, opts ...Option) *Renderer {
	t.Helper()
	r, err := New(nil, opts...)
	if err != nil {
		t.Fatalf("failed to create renderer: %v", err)
	}
	return r
}

func parseHTML(t *testing.T, html []byte) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		t.Fatalf("failed to parse html: %v", err)
	}
	return doc
}

func sampleRecords() []audit.Record {
	return []audit.Record{
		audit.Normalize("rec1", map[string]any{
			"Client":                          "Acme Co",
			"Site":                            "acme.example",
			"User":                            "Sam",
			"Clarity & Purpose Score":         float64(2),
			"Clarity & Purpose Issue":         "Hero copy is **vague**",
			"Trust & Credibility Score":       float64(5),
			"Trust & Credibility Experiments": "Add `reviews` widget",
			"Mobile Experience Score":         float64(1),
			"Discovery Phase Comments":        "Landing page loads *fast*",
			"Discovery Phase Screenshots":     "assets/img/acme-co-discovery.png",
		}),
		audit.Normalize("rec2", map[string]any{
			"Client":                  "Beta Ltd",
			"Clarity & Purpose Score": float64(4),
			"Clarity & Purpose Issue": "Beta secret issue",
			"Decision Phase Comments": "Beta pricing table",
			"Eyequant Screenshot":     "assets/img/beta-ltd-eyequant.png",
			"Top Feedback":            "Beta headline draws attention",
		}),
	}
}

func acmeView() View {
	return View{
		ClientName:   "Acme Co",
		ReportDate:   "7 March 2025",
		AssetVersion: "1741305600000",
		Data:         transform.New(sampleRecords()).ForSlug("acme-co"),
	}
}

func TestSubstituteSinglePass(t *testing.T) {
	out, unresolved := Substitute("{{A}} and {{B}} then {{C}} and {{A}} again {{C}}", Values{
		"A": "{{B}}",
		"B": "b",
	})
	if out != "{{B}} and b then {{C}} and {{B}} again {{C}}" {
		t.Errorf("unexpected output %q", out)
	}
	if !reflect.DeepEqual(unresolved, []string{"C"}) {
		t.Errorf("expected [C] unresolved, got %v", unresolved)
	}
}

func TestSubstituteIgnoresTemplateActions(t *testing.T) {
	out, unresolved := Substitute("{{.Name}} {{ CLIENT_NAME }} {{CLIENT_NAME}}", Values{TokenClientName: "Acme"})
	if out != "{{.Name}} {{ CLIENT_NAME }} Acme" {
		t.Errorf("unexpected output %q", out)
	}
	if len(unresolved) != 0 {
		t.Errorf("expected nothing unresolved, got %v", unresolved)
	}
}

func TestCheckTemplate(t *testing.T) {
	base, err := embedded.ReadFile("templates/base.html")
	if err != nil {
		t.Fatalf("failed to read base: %v", err)
	}
	if err := CheckTemplate(string(base)); err != nil {
		t.Errorf("expected built-in base to pass: %v", err)
	}
	for _, name := range KnownTokens {
		if !strings.Contains(string(base), "{{"+name+"}}") {
			t.Errorf("base template never uses %s", name)
		}
	}

	err = CheckTemplate("<p>{{CLIENT_NAME}} {{CLIENT_LOGO}} {{FOOTER}}</p>")
	if err == nil || !strings.Contains(err.Error(), "CLIENT_LOGO, FOOTER") {
		t.Errorf("expected unknown placeholders named, got %v", err)
	}
}

func TestNewRejectsUnknownPlaceholders(t *testing.T) {
	dir := t.TempDir()
	os.WriteFile(filepath.Join(dir, "base.html"), []byte("<html>{{NOT_A_TOKEN}}</html>"), 0o644)
	if _, err := New(nil, WithTemplateDir(dir)); err == nil {
		t.Error("expected error for unknown placeholder")
	}
}

func TestRenderIsDeterministic(t *testing.T) {
	r := newTestRenderer(t)
	first, err := r.Render(acmeView())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := r.Render(acmeView())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !bytes.Equal(first, second) {
		t.Error("expected identical output for identical views")
	}
	if bytes.Contains(first, []byte("{{")) {
		t.Error("expected every placeholder resolved")
	}
}

func TestRenderContent(t *testing.T) {
	out, err := newTestRenderer(t).Render(acmeView())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	doc := parseHTML(t, out)

	if got := doc.Find("title").Text(); got != "Acme Co | Digital Experience Audit Report" {
		t.Errorf("unexpected title %q", got)
	}
	if got := doc.Find(".report--date").Text(); got != "7 March 2025" {
		t.Errorf("unexpected report date %q", got)
	}
	if href, _ := doc.Find(`link[rel="stylesheet"]`).Attr("href"); href != "assets/styles/report.css?v=1741305600000" {
		t.Errorf("unexpected stylesheet href %q", href)
	}

	var needs []string
	doc.Find(".needs-work-item .category-name").Each(func(_ int, s *goquery.Selection) {
		needs = append(needs, strings.TrimSpace(s.Text()))
	})
	wantNeeds := []string{
		"Information Hierarchy", "Friction Points", "Visual Design", "Speed & Performance",
		"User Flow Logic", "Mobile Experience", "Clarity & Purpose",
	}
	if !reflect.DeepEqual(needs, wantNeeds) {
		t.Errorf("expected lowest scores first, got %v", needs)
	}
	if well := doc.Find(".doing-well-item .category-name").First().Text(); strings.TrimSpace(well) != "Trust & Credibility" {
		t.Errorf("expected trust first in doing well, got %q", well)
	}

	if html, _ := doc.Find(".needs-work-item.score-2 .finding-text").First().Html(); html != "<p>Hero copy is <strong>vague</strong></p>" {
		t.Errorf("expected rich text issue, got %q", html)
	}
	if got := doc.Find(".doing-well-item .finding-label").First().Text(); got != "What's working:" {
		t.Errorf("unexpected doing-well label %q", got)
	}

	phase := doc.Find(".journey-phase#discovery")
	if phase.Length() != 1 {
		t.Fatalf("expected discovery phase, got %d", phase.Length())
	}
	if src, _ := phase.Find("img.screenshot").Attr("src"); src != "assets/img/acme-co-discovery.png" {
		t.Errorf("unexpected screenshot src %q", src)
	}
	if doc.Find(".journey-phase#decision").Length() != 0 {
		t.Error("expected empty decision phase omitted")
	}

	script := doc.Find("script").Last().Text()
	for _, want := range []string{`"clarity"`, `"Acme Co (ID: rec1)"`, `"stepSize":1`} {
		if !strings.Contains(script, want) {
			t.Errorf("expected chart script to contain %s", want)
		}
	}
}

func TestRenderMissingEyequantScreenshot(t *testing.T) {
	out, err := newTestRenderer(t).Render(acmeView())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	doc := parseHTML(t, out)
	eq := doc.Find(".eyequant-container")
	if eq.Length() != 1 {
		t.Fatalf("expected one eyequant block, got %d", eq.Length())
	}
	if got := strings.TrimSpace(eq.Find(".eyequant-placeholder").Text()); got != "No Eyequant screenshot provided" {
		t.Errorf("expected placeholder, got %q", got)
	}
	if eq.Find("img").Length() != 0 {
		t.Error("expected no image tag")
	}
	if got := eq.Find(".feedback-box.top .feedback-text").Text(); got != transform.NoTopFeedback {
		t.Errorf("expected default top feedback, got %q", got)
	}
}

func TestRenderKeepsClientsApart(t *testing.T) {
	r := newTestRenderer(t)
	all := transform.New(sampleRecords())

	acme, err := r.Render(acmeView())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	beta, err := r.Render(View{ClientName: "Beta Ltd", ReportDate: "7 March 2025", Data: all.ForSlug("beta-ltd")})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if bytes.Contains(acme, []byte("Beta")) {
		t.Error("acme report leaks beta data")
	}
	for _, leak := range []string{"Acme", "Hero copy", "Landing page"} {
		if bytes.Contains(beta, []byte(leak)) {
			t.Errorf("beta report leaks %q", leak)
		}
	}
	if src, _ := parseHTML(t, beta).Find("img.eyequant-image").Attr("src"); src != "assets/img/beta-ltd-eyequant.png" {
		t.Errorf("unexpected eyequant src %q", src)
	}
}

func TestRenderEscapesScalars(t *testing.T) {
	records := []audit.Record{audit.Normalize("rec1", map[string]any{"Client": `<b>"Evil"</b>`})}
	out, err := newTestRenderer(t).Render(View{
		ClientName: `<b>"Evil"</b>`,
		Data:       transform.New(records),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if bytes.Contains(out, []byte(`<b>"Evil"</b>`)) {
		t.Error("expected client name escaped")
	}
	if got := parseHTML(t, out).Find("title").Text(); !strings.HasPrefix(got, `<b>"Evil"</b>`) {
		t.Errorf("expected escaped name to display verbatim, got %q", got)
	}
}

func TestBrokenSectionRendersComment(t *testing.T) {
	dir := t.TempDir()
	os.MkdirAll(filepath.Join(dir, "sections"), 0o755)
	os.WriteFile(filepath.Join(dir, "sections", "journey.html"), []byte("{{range .Nope}"), 0o644)
	os.WriteFile(filepath.Join(dir, "sections", "cta.html"), []byte("{{.Missing.Field}}"), 0o644)

	out, err := newTestRenderer(t, WithTemplateDir(dir)).Render(acmeView())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, want := range []string{"<!-- journey section unavailable -->", "<!-- cta section unavailable -->"} {
		if !bytes.Contains(out, []byte(want)) {
			t.Errorf("expected %q in output", want)
		}
	}
	if parseHTML(t, out).Find(".needs-work-item").Length() == 0 {
		t.Error("expected other sections still rendered")
	}
}

func TestRenderRequiresData(t *testing.T) {
	if _, err := newTestRenderer(t).Render(View{ClientName: "Acme Co"}); err == nil {
		t.Error("expected error for view without data")
	}
}
