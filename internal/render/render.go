// Package render turns transformed audit data into a standalone HTML report.
//
// A report is a base skeleton with {{NAME}} placeholders. Scalar values are
// HTML-escaped before substitution; section placeholders receive fragments
// rendered with html/template.
package render

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"log/slog"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/TobiSchelling/auditreports/internal/richtext"
	"github.com/TobiSchelling/auditreports/internal/transform"
)

//go:embed templates
var embedded embed.FS

// Section fragments under templates/sections.
const (
	SectionHeader   = "header"
	SectionSummary  = "summary"
	SectionJourney  = "journey"
	SectionEyequant = "eyequant"
	SectionFindings = "findings"
	SectionCTA      = "cta"
	SectionCharts   = "charts"
)

var sectionNames = []string{
	SectionHeader, SectionSummary, SectionJourney, SectionEyequant,
	SectionFindings, SectionCTA, SectionCharts,
}

// DefaultContactEmail receives enquiries from the call-to-action section.
const DefaultContactEmail = "conversion@journeyfurther.com"

// DateLayout formats the report date, e.g. "7 March 2025".
const DateLayout = "2 January 2006"

// FormatDate formats t as a report date.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// View is everything needed to render one client's report. Rendering the
// same View twice yields identical bytes.
type View struct {
	ClientName   string
	ReportDate   string
	AssetVersion string
	Data         *transform.Transformer
}

// Renderer renders reports from a base skeleton and section fragments.
type Renderer struct {
	base         string
	sections     map[string]*template.Template
	contactEmail string
	logger       *slog.Logger
}

// Option customizes a Renderer.
type Option func(*rendererConfig)

type rendererConfig struct {
	dir          string
	contactEmail string
}

// WithTemplateDir reads templates from dir, falling back to the built-in
// templates for files the directory does not provide.
func WithTemplateDir(dir string) Option {
	return func(c *rendererConfig) { c.dir = dir }
}

// WithContactEmail sets the call-to-action address.
func WithContactEmail(email string) Option {
	return func(c *rendererConfig) { c.contactEmail = email }
}

// New loads and checks the templates. A missing or invalid base skeleton is
// an error; a broken section only blanks that section.
func New(logger *slog.Logger, opts ...Option) (*Renderer, error) {
	cfg := rendererConfig{contactEmail: DefaultContactEmail}
	for _, opt := range opts {
		opt(&cfg)
	}
	if logger == nil {
		logger = slog.Default()
	}
	r := &Renderer{
		sections:     make(map[string]*template.Template),
		contactEmail: cfg.contactEmail,
		logger:       logger.With("component", "render"),
	}

	src := &sources{dir: cfg.dir}
	base, err := src.read("base.html")
	if err != nil {
		return nil, fmt.Errorf("reading base template: %w", err)
	}
	if err := CheckTemplate(string(base)); err != nil {
		return nil, err
	}
	r.base = string(base)

	for _, name := range sectionNames {
		tmpl, err := parseSection(src, name)
		if err != nil {
			r.logger.Warn("section template unavailable", "section", name, "error", err)
			continue
		}
		r.sections[name] = tmpl
	}
	return r, nil
}

// Render produces the complete HTML document for v.
func (r *Renderer) Render(v View) ([]byte, error) {
	if v.Data == nil {
		return nil, errors.New("render: view has no data")
	}

	summary := v.Data.Summary()
	details := v.Data.Details()

	values := Values{
		TokenClientName:     template.HTMLEscapeString(v.ClientName),
		TokenReportDate:     template.HTMLEscapeString(v.ReportDate),
		TokenOverallAverage: formatScore(summary.OverallAverage),
		TokenHighestName:    template.HTMLEscapeString(summary.Highest.Category),
		TokenHighestScore:   formatScore(summary.Highest.Score),
		TokenLowestName:     template.HTMLEscapeString(summary.Lowest.Category),
		TokenLowestScore:    formatScore(summary.Lowest.Score),
		TokenTotalAudits:    strconv.Itoa(summary.TotalAudits),
		TokenAssetVersion:   template.HTMLEscapeString(v.AssetVersion),
		TokenUser:           template.HTMLEscapeString(details.User),
		TokenUserID:         template.HTMLEscapeString(details.UserID),
		TokenSite:           template.HTMLEscapeString(details.Site),
	}

	sections := []struct {
		token, name string
		data        any
	}{
		{TokenHeaderSection, SectionHeader, headerData{ClientName: v.ClientName, ReportDate: v.ReportDate, Details: details}},
		{TokenSummarySection, SectionSummary, summaryData{Summary: summary, Averages: v.Data.Averages()}},
		{TokenJourneySection, SectionJourney, journeyData{Journeys: v.Data.Journey()}},
		{TokenEyequantSection, SectionEyequant, eyequantData{Eyequants: v.Data.Eyequant()}},
		{TokenFindingsSection, SectionFindings, findingsData{Findings: groupFindings(v.Data.Findings())}},
		{TokenCTASection, SectionCTA, ctaData{ContactEmail: r.contactEmail, ContactURL: contactURL(r.contactEmail, v.ClientName)}},
		{TokenChartScripts, SectionCharts, chartData{Radar: v.Data.RadarChart(), Options: transform.RadarOptions(), Criteria: transform.CriteriaKeys()}},
	}
	for _, s := range sections {
		values[s.token] = r.section(s.name, s.data)
	}

	html, unresolved := Substitute(r.base, values)
	for _, name := range unresolved {
		r.logger.Warn("unresolved placeholder", "token", name, "client", v.ClientName)
	}
	return []byte(html), nil
}

// section executes one fragment. Failures render as an HTML comment so the
// rest of the report survives.
func (r *Renderer) section(name string, data any) string {
	tmpl, ok := r.sections[name]
	if !ok {
		return missingSection(name)
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		r.logger.Warn("section render failed", "section", name, "error", err)
		return missingSection(name)
	}
	return buf.String()
}

func missingSection(name string) string {
	return "<!-- " + name + " section unavailable -->"
}

var funcs = template.FuncMap{
	"richtext": func(s string) template.HTML { return template.HTML(richtext.ToHTML(s)) },
	"score":    formatScore,
	"criteria": func(category string) string { return transform.CriteriaKeys()[category] },
}

func parseSection(src *sources, name string) (*template.Template, error) {
	text, err := src.read(path.Join("sections", name+".html"))
	if err != nil {
		return nil, err
	}
	return template.New(name).Funcs(funcs).Parse(string(text))
}

// sources reads template files from an optional directory, then from the
// embedded defaults.
type sources struct {
	dir string
}

func (s *sources) read(name string) ([]byte, error) {
	if s.dir != "" {
		data, err := os.ReadFile(filepath.Join(s.dir, filepath.FromSlash(name)))
		if err == nil {
			return data, nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}
	return embedded.ReadFile(path.Join("templates", name))
}

func formatScore(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func contactURL(email, client string) string {
	q := url.Values{}
	q.Set("subject", "CRO Services Enquiry - "+client)
	q.Set("body", "Hi,\r\n\r\nI've reviewed the UX audit report for "+client+
		" and I'm interested in discussing what CRO can do for my website.\r\n\r\nThanks!")
	return "mailto:" + email + "?" + strings.ReplaceAll(q.Encode(), "+", "%20")
}
