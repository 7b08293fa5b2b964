package main

import (
	"context"
	"log/slog"
	"time"

	"github.com/TobiSchelling/auditreports/internal/airtable"
	"github.com/TobiSchelling/auditreports/internal/assets"
	"github.com/TobiSchelling/auditreports/internal/config"
	"github.com/TobiSchelling/auditreports/internal/database"
	"github.com/TobiSchelling/auditreports/internal/devcache"
	"github.com/TobiSchelling/auditreports/internal/images"
	"github.com/TobiSchelling/auditreports/internal/pipeline"
	"github.com/TobiSchelling/auditreports/internal/render"
)

const sassTimeout = 30 * time.Second

// app holds the long-lived collaborators of a generation run. The renderer
// is rebuilt per pipeline so template edits are picked up in dev mode.
type app struct {
	cfg    *config.Config
	logger *slog.Logger
	source pipeline.Source
	images *images.Downloader
	assets *assets.Pipeline
	db     *database.DB
	cache  *devcache.Cache
}

func newApp(cfg *config.Config, logger *slog.Logger) (*app, error) {
	client, err := airtable.New(cfg.AirtableConfig(), logger)
	if err != nil {
		return nil, err
	}
	profiles, err := cfg.ImageProfiles()
	if err != nil {
		return nil, err
	}

	a := &app{
		cfg:    cfg,
		logger: logger,
		source: pipeline.AirtableSource{Client: client},
		images: images.NewDownloader(cfg.Output.Dir, profiles, logger),
		assets: assets.New(assets.Sources{
			Styles:  cfg.Sources.Styles,
			Fonts:   cfg.Sources.Fonts,
			Scripts: cfg.Sources.Scripts,
			Images:  cfg.Sources.Images,
		}, assets.NewDartSass(cfg.Sources.SassBinary, sassTimeout), cfg.Output.KeepStyles, logger),
		cache: devcache.New(cfg.Output.Dir),
	}

	db, err := openDB()
	if err != nil {
		logger.Warn("run history unavailable", "error", err)
	} else {
		a.db = db
	}
	return a, nil
}

func (a *app) pipeline() (*pipeline.Pipeline, error) {
	opts := []render.Option{render.WithContactEmail(a.cfg.Report.ContactEmail)}
	if a.cfg.Sources.Templates != "" {
		opts = append(opts, render.WithTemplateDir(a.cfg.Sources.Templates))
	}
	renderer, err := render.New(a.logger, opts...)
	if err != nil {
		return nil, err
	}

	deps := pipeline.Deps{
		Source:   a.source,
		Images:   a.images,
		Renderer: renderer,
		Assets:   a.assets,
		Cache:    a.cache,
		Logger:   a.logger,
	}
	if a.db != nil {
		deps.History = a.db
	}
	return pipeline.New(a.cfg.Output.Dir, deps), nil
}

func (a *app) run(ctx context.Context, opts pipeline.Options) (*pipeline.Result, error) {
	p, err := a.pipeline()
	if err != nil {
		return nil, err
	}
	return p.Run(ctx, opts)
}

func (a *app) Close() {
	if err := a.assets.Close(); err != nil {
		a.logger.Warn("closing sass compiler", "error", err)
	}
	if a.db != nil {
		a.db.Close()
	}
}
