// Package pipeline sequences a generation run: fetch records, localize their
// images, render one report per client and build each client's assets.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/TobiSchelling/auditreports/internal/airtable"
	"github.com/TobiSchelling/auditreports/internal/audit"
	"github.com/TobiSchelling/auditreports/internal/database"
	"github.com/TobiSchelling/auditreports/internal/devcache"
	"github.com/TobiSchelling/auditreports/internal/images"
	"github.com/TobiSchelling/auditreports/internal/render"
	"github.com/TobiSchelling/auditreports/internal/transform"
)

var (
	// ErrRecordNotFound means the requested record id does not exist.
	ErrRecordNotFound = errors.New("record not found")
	// ErrEmptyRecord means the requested record exists but has no fields.
	ErrEmptyRecord = errors.New("record has no data")
	// ErrNoSelection means neither a record id nor all records were requested.
	ErrNoSelection = errors.New("a record id or --all is required")
	// ErrFilterNeedsAll means a filter formula was given for a single record.
	ErrFilterNeedsAll = errors.New("a filter applies only with --all")
)

// StepCount is the number of steps a complete run reports.
const StepCount = 5

// Options selects what a run generates.
type Options struct {
	RecordID string
	All      bool
	// Filter narrows an all-records run to the records matching an
	// Airtable formula.
	Filter string
	Dev    bool
	// Regenerate marks a dev-mode rebuild after a source change. It lets
	// all-records runs reuse the dataset cached by the session's first run.
	Regenerate bool
	// ClearCache drops the dev cache before fetching.
	ClearCache bool
}

// datasetKey is the dev cache key for an all-records dataset.
func (o Options) datasetKey() string {
	if o.Filter != "" {
		return "filter:" + o.Filter
	}
	return "all"
}

func (o Options) mode() string {
	if o.All {
		return database.ModeAll
	}
	return database.ModeSingle
}

// StepResult holds the result of a single pipeline step.
type StepResult struct {
	Name    string
	Summary string
	Err     error
}

// ClientReport describes one generated client bundle.
type ClientReport struct {
	Client         string  `json:"client"`
	Slug           string  `json:"slug"`
	Path           string  `json:"path"`
	Dir            string  `json:"-"`
	Audits         int     `json:"audits"`
	OverallAverage float64 `json:"overall_average"`
	Images         int     `json:"images"`
}

// Result holds the results of a pipeline run.
type Result struct {
	RunID   string
	Steps   []StepResult
	Reports []ClientReport
}

// ImageFetcher downloads and optimizes record images.
type ImageFetcher interface {
	DownloadAll(ctx context.Context, records []audit.Record) []images.Downloaded
}

// AssetBuilder builds per-client and shared assets.
type AssetBuilder interface {
	Build(ctx context.Context, clientDir, version string) error
	CopyStatic(outputDir string) error
}

// History records runs. *database.DB implements it.
type History interface {
	StartRun(mode string, dev bool, recordID string) (string, error)
	FinishRun(id string, out database.RunOutcome) error
	InsertReport(r database.Report) (int64, error)
}

// Deps are the collaborators of a Pipeline. History and Cache are optional.
type Deps struct {
	Source   Source
	Images   ImageFetcher
	Renderer *render.Renderer
	Assets   AssetBuilder
	History  History
	Cache    *devcache.Cache
	Logger   *slog.Logger
	Now      func() time.Time
}

// Pipeline orchestrates report generation into one output directory.
type Pipeline struct {
	outputDir string
	deps      Deps
	logger    *slog.Logger
}

// New creates a new pipeline.
func New(outputDir string, deps Deps) *Pipeline {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return &Pipeline{
		outputDir: outputDir,
		deps:      deps,
		logger:    deps.Logger.With("component", "pipeline"),
	}
}

// OutputDir returns the directory reports are written to.
func (p *Pipeline) OutputDir() string {
	return p.outputDir
}

// Run executes one generation run. Per-image, per-client asset and
// per-section failures are logged and do not fail the run; errors fetching
// records or writing report files do.
func (p *Pipeline) Run(ctx context.Context, opts Options) (*Result, error) {
	if opts.RecordID == "" && !opts.All {
		return nil, ErrNoSelection
	}
	if opts.Filter != "" && !opts.All {
		return nil, ErrFilterNeedsAll
	}
	started := p.deps.Now()
	r := &Result{RunID: p.startRun(opts)}

	outcome, err := p.run(ctx, opts, started, r)
	outcome.Err = err
	p.finishRun(r.RunID, outcome)
	return r, err
}

func (p *Pipeline) run(ctx context.Context, opts Options, started time.Time, r *Result) (database.RunOutcome, error) {
	var outcome database.RunOutcome

	// Step 1: Fetch
	records, cached, step := p.runFetch(ctx, opts)
	r.Steps = append(r.Steps, step)
	if step.Err != nil {
		return outcome, step.Err
	}
	outcome.RecordCount = len(records)

	// Step 2: Images
	var downloaded []images.Downloaded
	if cached {
		r.Steps = append(r.Steps, StepResult{Name: "Images", Summary: "Using cached records with local images"})
	} else {
		records, downloaded, step = p.runImages(ctx, records)
		r.Steps = append(r.Steps, step)
		outcome.ImageCount = len(downloaded)
		p.storeCache(opts, records)
	}

	// Step 3: Render
	version := strconv.FormatInt(started.UnixMilli(), 10)
	reports, step := p.runRender(records, downloaded, started, version)
	r.Steps = append(r.Steps, step)
	r.Reports = reports
	if step.Err != nil {
		return outcome, step.Err
	}

	// Step 4: Assets
	r.Steps = append(r.Steps, p.runAssets(ctx, reports, version))

	// Step 5: Index
	listed, err := WriteIndex(p.outputDir, reports, started)
	if err != nil {
		p.logger.Warn("could not write report index", "error", err)
		step = StepResult{Name: "Index", Err: err}
	} else {
		step = StepResult{Name: "Index", Summary: fmt.Sprintf("Listed %d reports", len(listed))}
	}
	r.Steps = append(r.Steps, step)

	p.recordReports(r.RunID, reports)
	return outcome, nil
}

func (p *Pipeline) runFetch(ctx context.Context, opts Options) ([]audit.Record, bool, StepResult) {
	p.logger.Info("fetching audit records", "record_id", opts.RecordID, "all", opts.All, "filter", opts.Filter, "dev", opts.Dev)
	if opts.ClearCache && p.deps.Cache != nil {
		if err := p.deps.Cache.Clear(); err != nil {
			p.logger.Warn("could not clear dev cache", "path", p.deps.Cache.Path(), "error", err)
		}
	}

	if opts.All {
		if opts.Dev && opts.Regenerate {
			if records, ok := p.cachedDataset(opts.datasetKey()); ok {
				return records, true, StepResult{Name: "Fetch", Summary: fmt.Sprintf("Loaded %d cached records", len(records))}
			}
		}
		var records []audit.Record
		var err error
		if opts.Filter != "" {
			records, err = p.deps.Source.List(ctx, opts.Filter)
		} else {
			records, err = p.deps.Source.ListAll(ctx)
		}
		if err != nil {
			return nil, false, StepResult{Name: "Fetch", Err: fmt.Errorf("fetching records: %w", err)}
		}
		return records, false, StepResult{Name: "Fetch", Summary: fmt.Sprintf("Fetched %d records", len(records))}
	}

	if opts.Dev && p.deps.Cache != nil {
		rec, ok, err := p.deps.Cache.Record(opts.RecordID)
		if err != nil {
			p.logger.Warn("ignoring unreadable dev cache", "path", p.deps.Cache.Path(), "error", err)
		}
		if ok && rec.HasData() {
			p.logger.Info("using cached record", "record_id", rec.ID)
			return []audit.Record{rec}, true, StepResult{Name: "Fetch", Summary: "Loaded record " + rec.ID + " from dev cache"}
		}
	}

	rec, err := p.deps.Source.Get(ctx, opts.RecordID)
	if errors.Is(err, airtable.ErrNotFound) {
		return nil, false, StepResult{Name: "Fetch", Err: fmt.Errorf("%w: %s", ErrRecordNotFound, opts.RecordID)}
	}
	if err != nil {
		return nil, false, StepResult{Name: "Fetch", Err: fmt.Errorf("fetching record %s: %w", opts.RecordID, err)}
	}
	if !rec.HasData() {
		return nil, false, StepResult{Name: "Fetch", Err: fmt.Errorf("%w: %s", ErrEmptyRecord, opts.RecordID)}
	}
	return []audit.Record{rec}, false, StepResult{Name: "Fetch", Summary: "Fetched record " + rec.ID + " for " + rec.Client}
}

func (p *Pipeline) cachedDataset(key string) ([]audit.Record, bool) {
	if p.deps.Cache == nil {
		return nil, false
	}
	entry, err := p.deps.Cache.Load()
	if err != nil {
		p.logger.Warn("ignoring unreadable dev cache", "path", p.deps.Cache.Path(), "error", err)
		return nil, false
	}
	if entry == nil || entry.Kind != devcache.KindDataset || entry.Key != key {
		return nil, false
	}
	return entry.Records, true
}

func (p *Pipeline) storeCache(opts Options, records []audit.Record) {
	if !opts.Dev || p.deps.Cache == nil {
		return
	}
	var err error
	if opts.All {
		err = p.deps.Cache.StoreDataset(opts.datasetKey(), records)
	} else if len(records) == 1 {
		err = p.deps.Cache.StoreRecord(records[0])
	}
	if err != nil {
		p.logger.Warn("could not write dev cache", "path", p.deps.Cache.Path(), "error", err)
	}
}

func (p *Pipeline) runImages(ctx context.Context, records []audit.Record) ([]audit.Record, []images.Downloaded, StepResult) {
	if p.deps.Images == nil {
		return records, nil, StepResult{Name: "Images", Summary: "Image downloads disabled"}
	}
	downloaded := p.deps.Images.DownloadAll(ctx, records)
	records = images.UpdateRecords(records, downloaded)
	return records, downloaded, StepResult{
		Name:    "Images",
		Summary: fmt.Sprintf("Saved %d images", len(downloaded)),
	}
}

// clientGroup is one client folder. Display names that map to the same slug
// share a group under the first name seen.
type clientGroup struct {
	client string
	slug   string
	names  []string
}

func groupBySlug(records []audit.Record) []*clientGroup {
	var groups []*clientGroup
	bySlug := make(map[string]*clientGroup)
	for _, rec := range records {
		slug := audit.Slug(rec.Client)
		g, ok := bySlug[slug]
		if !ok {
			g = &clientGroup{client: rec.Client, slug: slug}
			bySlug[slug] = g
			groups = append(groups, g)
		}
		if !slices.Contains(g.names, rec.Client) {
			g.names = append(g.names, rec.Client)
		}
	}
	return groups
}

func (p *Pipeline) runRender(records []audit.Record, downloaded []images.Downloaded, started time.Time, version string) ([]ClientReport, StepResult) {
	all := transform.New(records)
	groups := groupBySlug(records)
	if len(groups) == 0 {
		p.logger.Warn("no audit records to render")
		return nil, StepResult{Name: "Render", Summary: "No audit records found"}
	}

	imageCounts := make(map[string]int)
	for _, d := range downloaded {
		imageCounts[audit.Slug(d.Client)]++
	}

	reportDate := render.FormatDate(started)
	var reports []ClientReport
	for _, g := range groups {
		if len(g.names) > 1 {
			p.logger.Warn("client names share a report folder, merging", "slug", g.slug, "clients", g.names, "using", g.client)
		}
		data := all.ForSlug(g.slug)
		dir := filepath.Join(p.outputDir, g.slug)

		html, err := p.deps.Renderer.Render(render.View{
			ClientName:   g.client,
			ReportDate:   reportDate,
			AssetVersion: version,
			Data:         data,
		})
		if err != nil {
			return reports, StepResult{Name: "Render", Err: fmt.Errorf("rendering %s: %w", g.client, err)}
		}
		if err := writeReport(dir, html); err != nil {
			return reports, StepResult{Name: "Render", Err: fmt.Errorf("writing %s report: %w", g.client, err)}
		}

		report := ClientReport{
			Client:         g.client,
			Slug:           g.slug,
			Path:           path.Join(g.slug, "index.html"),
			Dir:            dir,
			Audits:         len(data.Records()),
			OverallAverage: data.Summary().OverallAverage,
			Images:         imageCounts[g.slug],
		}
		reports = append(reports, report)
		p.logger.Info("report written", "client", g.client, "path", filepath.Join(dir, "index.html"), "audits", report.Audits)
	}
	return reports, StepResult{
		Name:    "Render",
		Summary: fmt.Sprintf("Generated %d client reports", len(reports)),
	}
}

func writeReport(dir string, html []byte) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, "index.html"), html, 0o644)
}

func (p *Pipeline) runAssets(ctx context.Context, reports []ClientReport, version string) StepResult {
	if p.deps.Assets == nil {
		return StepResult{Name: "Assets", Summary: "Asset pipeline disabled"}
	}
	var errs []error
	failed := 0
	for _, report := range reports {
		if err := p.deps.Assets.Build(ctx, report.Dir, version); err != nil {
			failed++
			errs = append(errs, fmt.Errorf("%s: %w", report.Client, err))
		}
	}
	if err := p.deps.Assets.CopyStatic(p.outputDir); err != nil {
		errs = append(errs, fmt.Errorf("static images: %w", err))
	}
	return StepResult{
		Name:    "Assets",
		Summary: fmt.Sprintf("Built assets for %d clients, %d failed", len(reports)-failed, failed),
		Err:     errors.Join(errs...),
	}
}

func (p *Pipeline) startRun(opts Options) string {
	if p.deps.History == nil {
		return uuid.NewString()
	}
	id, err := p.deps.History.StartRun(opts.mode(), opts.Dev, opts.RecordID)
	if err != nil {
		p.logger.Warn("could not record run start", "error", err)
		return uuid.NewString()
	}
	return id
}

func (p *Pipeline) finishRun(id string, outcome database.RunOutcome) {
	if p.deps.History == nil {
		return
	}
	if err := p.deps.History.FinishRun(id, outcome); err != nil {
		p.logger.Warn("could not record run result", "run_id", id, "error", err)
	}
}

func (p *Pipeline) recordReports(runID string, reports []ClientReport) {
	if p.deps.History == nil {
		return
	}
	for _, r := range reports {
		_, err := p.deps.History.InsertReport(database.Report{
			RunID:          runID,
			Client:         r.Client,
			Slug:           r.Slug,
			Path:           r.Dir,
			AuditCount:     r.Audits,
			OverallAverage: r.OverallAverage,
			ImageCount:     r.Images,
		})
		if err != nil {
			p.logger.Warn("could not record report", "client", r.Client, "error", err)
		}
	}
}
