package main

import (
	"context"
	"fmt"

	"github.com/TobiSchelling/auditreports/internal/pipeline"
	"github.com/TobiSchelling/auditreports/internal/server"
)

// runDev generates once, then serves the output with live reload and
// regenerates whenever templates or styles change.
func runDev(ctx context.Context, opts pipeline.Options) error {
	opts.Dev = true

	a, err := newApp(cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	result, err := a.run(ctx, opts)
	printResult(result)
	if err != nil {
		return err
	}

	watch := []string{cfg.Sources.Styles, cfg.Sources.Scripts}
	if cfg.Sources.Templates != "" {
		watch = append(watch, cfg.Sources.Templates)
	}

	rebuild := opts
	rebuild.Regenerate = true
	rebuild.ClearCache = false

	fmt.Printf("\nServing reports at http://localhost:%d\n", cfg.Server.Port)
	fmt.Println("Press Ctrl+C to stop")
	return server.RunDev(ctx, server.DevConfig{
		OutputDir:  cfg.Output.Dir,
		Port:       cfg.Server.Port,
		ReloadPort: cfg.Server.ReloadPort,
		WatchPaths: watch,
		Debounce:   cfg.Server.Debounce,
		Rebuild: func(ctx context.Context, changed []string) error {
			result, err := a.run(ctx, rebuild)
			if err != nil {
				return err
			}
			for _, step := range result.Steps {
				if step.Err != nil {
					logger.Warn("rebuild step failed", "step", step.Name, "error", step.Err)
				}
			}
			logger.Info("reports regenerated", "reports", len(result.Reports), "changed", len(changed))
			return nil
		},
		Logger: logger,
	})
}
