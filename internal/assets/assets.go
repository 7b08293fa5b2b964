// Package assets compiles the report stylesheet and copies fonts, scripts
// and static images into the output tree.
package assets

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/dustin/go-humanize"
)

// StylesheetName is the entry SCSS file inside the styles source directory.
const StylesheetName = "report.scss"

// DefaultKeepVersions is how many timestamped stylesheets a client keeps.
const DefaultKeepVersions = 3

// StaticDir is the site-wide image folder under the output root.
const StaticDir = "static"

// Sources locates the asset source directories. Empty entries are skipped.
type Sources struct {
	Styles  string
	Fonts   string
	Scripts string
	Images  string
}

// Pipeline builds the per-client asset bundle.
type Pipeline struct {
	src      Sources
	compiler Compiler
	keep     int
	logger   *slog.Logger
}

// New creates an asset pipeline. keep <= 0 uses DefaultKeepVersions.
func New(src Sources, compiler Compiler, keep int, logger *slog.Logger) *Pipeline {
	if keep <= 0 {
		keep = DefaultKeepVersions
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{src: src, compiler: compiler, keep: keep, logger: logger.With("component", "assets")}
}

// Build compiles the stylesheet into clientDir/assets/styles as report.css
// and report.<version>.css, prunes old versions, and copies fonts and
// scripts. Each step runs even if an earlier one failed; the failures are
// returned joined.
func (p *Pipeline) Build(ctx context.Context, clientDir, version string) error {
	client := filepath.Base(clientDir)
	var errs []error

	if err := p.buildStyles(clientDir, version); err != nil {
		p.logger.Error("stylesheet build failed", "client", client, "error", err)
		errs = append(errs, err)
	}

	for _, c := range []struct{ name, src, dest string }{
		{"fonts", p.src.Fonts, filepath.Join(clientDir, "assets", "fonts")},
		{"scripts", p.src.Scripts, filepath.Join(clientDir, "assets", "js")},
	} {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := p.copyIfPresent(c.name, c.src, c.dest); err != nil {
			p.logger.Error("asset copy failed", "client", client, "assets", c.name, "error", err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// CopyStatic copies site-wide images into outputDir/static.
func (p *Pipeline) CopyStatic(outputDir string) error {
	return p.copyIfPresent("static images", p.src.Images, filepath.Join(outputDir, StaticDir))
}

// Close releases the stylesheet compiler.
func (p *Pipeline) Close() error {
	if p.compiler == nil {
		return nil
	}
	return p.compiler.Close()
}

func (p *Pipeline) buildStyles(clientDir, version string) error {
	if p.src.Styles == "" {
		return nil
	}
	entry := filepath.Join(p.src.Styles, StylesheetName)
	source, err := os.ReadFile(entry)
	if errors.Is(err, fs.ErrNotExist) {
		p.logger.Warn("stylesheet source missing, skipping", "path", entry)
		return nil
	}
	if err != nil {
		return fmt.Errorf("reading stylesheet: %w", err)
	}
	if p.compiler == nil {
		return errors.New("no stylesheet compiler configured")
	}

	css, err := p.compiler.Compile(string(source), []string{p.src.Styles})
	if err != nil {
		return err
	}

	dir := filepath.Join(clientDir, "assets", "styles")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating styles directory: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "report.css"), []byte(css), 0o644); err != nil {
		return fmt.Errorf("writing stylesheet: %w", err)
	}
	if version != "" {
		if err := os.WriteFile(filepath.Join(dir, "report."+version+".css"), []byte(css), 0o644); err != nil {
			return fmt.Errorf("writing versioned stylesheet: %w", err)
		}
	}
	p.logger.Info("stylesheet compiled", "client", filepath.Base(clientDir), "size", humanize.Bytes(uint64(len(css))))

	removed, err := PruneVersions(dir, p.keep)
	if err != nil {
		p.logger.Warn("could not prune old stylesheets", "dir", dir, "error", err)
	}
	for _, name := range removed {
		p.logger.Debug("removed old stylesheet", "file", name)
	}
	return nil
}

// PruneVersions keeps the newest keep report.<version>.css files in dir,
// by modification time, and removes the rest. It returns the removed names.
func PruneVersions(dir string, keep int) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	type versioned struct {
		name  string
		mtime int64
	}
	var files []versioned
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || name == "report.css" || !strings.HasPrefix(name, "report.") || !strings.HasSuffix(name, ".css") {
			continue
		}
		info, err := e.Info()
		if err != nil {
			return nil, err
		}
		files = append(files, versioned{name: name, mtime: info.ModTime().UnixNano()})
	}
	if len(files) <= keep {
		return nil, nil
	}

	slices.SortFunc(files, func(a, b versioned) int {
		if a.mtime != b.mtime {
			if a.mtime > b.mtime {
				return -1
			}
			return 1
		}
		return strings.Compare(b.name, a.name)
	})

	var removed []string
	for _, f := range files[keep:] {
		if err := os.Remove(filepath.Join(dir, f.name)); err != nil {
			return removed, err
		}
		removed = append(removed, f.name)
	}
	return removed, nil
}

func (p *Pipeline) copyIfPresent(name, src, dest string) error {
	if src == "" {
		return nil
	}
	info, err := os.Stat(src)
	if errors.Is(err, fs.ErrNotExist) || (err == nil && !info.IsDir()) {
		p.logger.Warn("asset source missing, skipping", "assets", name, "path", src)
		return nil
	}
	if err != nil {
		return err
	}
	n, err := CopyDir(src, dest)
	if err != nil {
		return err
	}
	p.logger.Debug("assets copied", "assets", name, "files", n, "dest", dest)
	return nil
}

// CopyDir copies the regular files under src into dest, preserving the
// directory structure. It returns the number of files copied.
func CopyDir(src, dest string) (int, error) {
	count := 0
	err := filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dest, rel)
		if d.IsDir() {
			return os.MkdirAll(target, 0o755)
		}
		if !d.Type().IsRegular() {
			return nil
		}
		if err := copyFile(path, target); err != nil {
			return err
		}
		count++
		return nil
	})
	if err != nil {
		return count, fmt.Errorf("copying %s: %w", src, err)
	}
	return count, nil
}

func copyFile(src, dest string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dest)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
