package pipeline

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/nao1215/markdown"
)

// Index files written at the output root.
const (
	IndexMarkdown = "README.md"
	IndexJSON     = "reports.json"
)

type indexFile struct {
	GeneratedAt time.Time      `json:"generated_at"`
	Reports     []ClientReport `json:"reports"`
}

// WriteIndex lists the client reports in README.md and reports.json under
// outputDir and returns the listed entries in slug order.
//
// Entries from the previous reports.json are kept when this run did not
// regenerate them and their index.html is still on disk. An unreadable
// reports.json is replaced.
func WriteIndex(outputDir string, reports []ClientReport, generated time.Time) ([]ClientReport, error) {
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}
	reports = mergeIndex(outputDir, reports)

	data, err := json.MarshalIndent(indexFile{GeneratedAt: generated.UTC(), Reports: reports}, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding report index: %w", err)
	}
	if err := os.WriteFile(filepath.Join(outputDir, IndexJSON), append(data, '\n'), 0o644); err != nil {
		return nil, fmt.Errorf("writing %s: %w", IndexJSON, err)
	}

	f, err := os.Create(filepath.Join(outputDir, IndexMarkdown))
	if err != nil {
		return nil, fmt.Errorf("writing %s: %w", IndexMarkdown, err)
	}
	defer f.Close()
	return reports, writeReadme(f, reports, generated)
}

func writeReadme(w io.Writer, reports []ClientReport, generated time.Time) error {
	md := markdown.NewMarkdown(w)
	md.H1("UX Audit Reports")
	md.PlainText("")
	md.PlainTextf("Generated %s.", generated.Format("2 January 2006 15:04 MST"))
	md.PlainText("")

	if len(reports) == 0 {
		md.PlainText("No reports have been generated yet.")
		return md.Build()
	}

	rows := make([][]string, 0, len(reports))
	for _, r := range reports {
		rows = append(rows, []string{
			fmt.Sprintf("[%s](%s)", r.Client, r.Path),
			strconv.Itoa(r.Audits),
			strconv.FormatFloat(r.OverallAverage, 'f', 1, 64),
			strconv.Itoa(r.Images),
		})
	}
	md.Table(markdown.TableSet{
		Header: []string{"Client", "Audits", "Overall average", "Images"},
		Rows:   rows,
	})
	return md.Build()
}

func readIndex(outputDir string) ([]ClientReport, error) {
	data, err := os.ReadFile(filepath.Join(outputDir, IndexJSON))
	if err != nil {
		return nil, err
	}
	var idx indexFile
	if err := json.Unmarshal(data, &idx); err != nil {
		return nil, err
	}
	return idx.Reports, nil
}

func mergeIndex(outputDir string, reports []ClientReport) []ClientReport {
	merged := make([]ClientReport, 0, len(reports))
	fresh := make(map[string]bool, len(reports))
	for _, r := range reports {
		fresh[r.Slug] = true
		merged = append(merged, r)
	}

	previous, _ := readIndex(outputDir)
	for _, r := range previous {
		if r.Slug == "" || fresh[r.Slug] {
			continue
		}
		if _, err := os.Stat(filepath.Join(outputDir, r.Slug, "index.html")); err != nil {
			continue
		}
		fresh[r.Slug] = true
		r.Dir = filepath.Join(outputDir, r.Slug)
		merged = append(merged, r)
	}

	slices.SortFunc(merged, func(a, b ClientReport) int {
		return strings.Compare(a.Slug, b.Slug)
	})
	return merged
}
