package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/TobiSchelling/auditreports/internal/config"
	"github.com/TobiSchelling/auditreports/internal/database"
	"github.com/TobiSchelling/auditreports/internal/logging"
	"github.com/TobiSchelling/auditreports/internal/pipeline"
)

var version = "dev"

var (
	verbose    bool
	configPath string
	cfg        *config.Config
	logger     *slog.Logger
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:           "auditreports",
	Short:         "Generate UX audit reports from Airtable",
	Long:          "auditreports fetches UX audit records from Airtable and renders one static HTML report per client.",
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Skip config loading for init and version
		if cmd.Name() == "init" || cmd.Name() == "version" {
			return nil
		}

		if err := config.LoadDotEnv(".env"); err != nil {
			return err
		}
		path, err := config.ResolveConfigPath(configPath)
		if err != nil {
			return err
		}
		cfg, err = config.Load(path)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		if err := cfg.ApplyEnv(os.Getenv); err != nil {
			return err
		}
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid config: %w", err)
		}

		opts := cfg.LoggingOptions()
		if verbose {
			opts.Level = "debug"
		}
		logger, err = logging.New(opts)
		if err != nil {
			return err
		}
		slog.SetDefault(logger)
		if path != "" {
			logger.Debug("config loaded", "path", path)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to config file")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(generateCmd)
	rootCmd.AddCommand(devCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("auditreports", version)
	},
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration in ~/.config/auditreports/",
	RunE: func(cmd *cobra.Command, args []string) error {
		target := filepath.Join(config.ConfigDir(), "config.yaml")
		if _, err := os.Stat(target); err == nil {
			fmt.Printf("Config already exists: %s\n", target)
			return nil
		}

		if err := os.MkdirAll(config.ConfigDir(), 0o755); err != nil {
			return fmt.Errorf("creating config directory: %w", err)
		}

		if err := os.WriteFile(target, config.DefaultConfigYAML, 0o644); err != nil {
			return fmt.Errorf("writing config: %w", err)
		}

		fmt.Printf("Created config: %s\n", target)
		fmt.Println("Set AIRTABLE_API_KEY, AIRTABLE_BASE_ID and AIRTABLE_TABLE_NAME in your environment or a .env file.")
		return nil
	},
}

// --- generate command ---

// runFlags are the selection flags shared by generate and dev.
type runFlags struct {
	all     bool
	filter  string
	noCache bool
}

func (f *runFlags) register(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&f.all, "all", false, "Generate reports for every client")
	cmd.Flags().StringVar(&f.filter, "filter", "", "Airtable formula limiting --all to matching records")
	cmd.Flags().BoolVar(&f.noCache, "no-cache", false, "Drop the dev cache and fetch fresh records")
}

var generateFlags runFlags

var generateCmd = &cobra.Command{
	Use:   "generate [record-id]",
	Short: "Generate the report for one audit record, or for every client with --all",
	Long: `Generate fetches audit records from Airtable, downloads their screenshots
and writes one report bundle per client into the output directory.

Without a record id or --all, AUDIT_RECORD_ID is used. --filter takes an
Airtable formula such as "{Client}='Acme Co'" and limits --all to the
matching records. With DEV=true the development server starts after the
first run.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		opts, err := selection(cmd, args, generateFlags)
		if err != nil {
			return err
		}
		if cfg.Dev {
			return runDev(cmd.Context(), opts)
		}
		return generate(cmd.Context(), opts)
	},
}

func init() {
	generateFlags.register(generateCmd)
}

// selection resolves which records a run covers from the arguments, the
// run flags and AUDIT_RECORD_ID.
func selection(cmd *cobra.Command, args []string, f runFlags) (pipeline.Options, error) {
	if f.all && len(args) > 0 {
		return pipeline.Options{}, errors.New("a record id cannot be combined with --all")
	}
	if f.filter != "" && !f.all {
		return pipeline.Options{}, pipeline.ErrFilterNeedsAll
	}
	opts := pipeline.Options{All: f.all, Filter: f.filter, Dev: cfg.Dev, ClearCache: f.noCache}
	if f.all {
		return opts, nil
	}
	if len(args) > 0 {
		opts.RecordID = args[0]
	} else {
		opts.RecordID = cfg.RecordID
	}
	if opts.RecordID == "" {
		if err := cmd.Usage(); err != nil {
			return opts, fmt.Errorf("%w (or set AUDIT_RECORD_ID); printing usage: %w", pipeline.ErrNoSelection, err)
		}
		return opts, fmt.Errorf("%w (or set AUDIT_RECORD_ID)", pipeline.ErrNoSelection)
	}
	return opts, nil
}

func generate(ctx context.Context, opts pipeline.Options) error {
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
	if len(result.Reports) > 0 {
		fmt.Printf("\nDone! Open %s in a browser, or run 'auditreports dev' to preview.\n", result.Reports[0].Dir)
	}
	return nil
}

func printResult(result *pipeline.Result) {
	if result == nil {
		return
	}
	for i, step := range result.Steps {
		fmt.Printf("\nStep %d/%d: %s\n", i+1, pipeline.StepCount, step.Name)
		if step.Err != nil {
			fmt.Printf("  Error: %v\n", step.Err)
		}
		if step.Summary != "" {
			fmt.Printf("  %s\n", step.Summary)
		}
	}
	if len(result.Reports) == 0 {
		return
	}
	fmt.Println("\nReports:")
	for _, r := range result.Reports {
		fmt.Printf("  %s (%d audits, average %.1f): %s\n", r.Client, r.Audits, r.OverallAverage, r.Path)
	}
}

// --- dev command ---

var (
	devFlags runFlags
	devPort  int
)

var devCmd = &cobra.Command{
	Use:   "dev [record-id]",
	Short: "Generate, then serve the reports with live reload",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg.Dev = true
		if devPort > 0 {
			cfg.Server.Port = devPort
		}
		opts, err := selection(cmd, args, devFlags)
		if err != nil {
			return err
		}
		return runDev(cmd.Context(), opts)
	},
}

func init() {
	devFlags.register(devCmd)
	devCmd.Flags().IntVarP(&devPort, "port", "p", 0, "Port to serve reports on (default from config)")
}

// --- status command ---

var (
	statusLimit int
	statusRun   string
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show recent runs and generated reports",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		if statusRun != "" {
			return showRun(db, statusRun)
		}

		stats, err := db.GetStats()
		if err != nil {
			return fmt.Errorf("getting stats: %w", err)
		}

		fmt.Printf("History: %s\n\n", db.Path())
		fmt.Println("Runs:")
		fmt.Printf("  Total: %d\n", stats.TotalRuns)
		fmt.Printf("  Failed: %d\n", stats.FailedRuns)
		fmt.Printf("  Dev: %d\n", stats.DevRuns)
		if stats.LastRunAt != nil {
			fmt.Printf("  Last run: %s\n", humanize.Time(*stats.LastRunAt))
		}
		fmt.Println("\nOutput:")
		fmt.Printf("  Reports written: %d\n", stats.TotalReports)
		fmt.Printf("  Clients: %d\n", stats.Clients)
		fmt.Printf("  Images saved: %s\n", humanize.Comma(int64(stats.ImagesWritten)))

		runs, err := db.RecentRuns(statusLimit)
		if err != nil {
			return fmt.Errorf("listing runs: %w", err)
		}
		if len(runs) > 0 {
			fmt.Println("\nRecent runs:")
			fmt.Println(runsTable(runs))
		}

		reports, err := db.RecentReports(statusLimit)
		if err != nil {
			return fmt.Errorf("listing reports: %w", err)
		}
		if len(reports) > 0 {
			fmt.Println("\nLatest reports:")
			fmt.Println(reportsTable(reports))
		}
		return nil
	},
}

func init() {
	statusCmd.Flags().IntVarP(&statusLimit, "limit", "n", 10, "Number of runs and reports to show")
	statusCmd.Flags().StringVar(&statusRun, "run", "", "Show one run and its reports by id or id prefix")
}

func showRun(db *database.DB, id string) error {
	run, err := db.GetRun(id)
	if err != nil {
		return err
	}
	if run == nil {
		return fmt.Errorf("run %s not found", id)
	}
	reports, err := db.ReportsForRun(run.ID)
	if err != nil {
		return fmt.Errorf("listing reports: %w", err)
	}
	fmt.Print(runDetail(*run, reports))
	return nil
}

func openDB() (*database.DB, error) {
	dataDir := cfg.GetDataDir()
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}
	return database.Open(filepath.Join(dataDir, database.FileName), logger)
}

func since(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return humanize.Time(t)
}
