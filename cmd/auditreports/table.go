package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/TobiSchelling/auditreports/internal/database"
)

type columnAlignment int

const (
	alignLeft columnAlignment = iota
	alignRight
)

func renderTable(headers []string, rows [][]string, aligns []columnAlignment) string {
	if len(headers) == 0 {
		return ""
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)

	header := make(table.Row, len(headers))
	for i, h := range headers {
		header[i] = h
	}
	tw.AppendHeader(header)

	for _, row := range rows {
		r := make(table.Row, len(headers))
		for i := range r {
			if i < len(row) {
				r[i] = row[i]
			} else {
				r[i] = ""
			}
		}
		tw.AppendRow(r)
	}

	configs := make([]table.ColumnConfig, len(headers))
	for i := range configs {
		align := text.AlignLeft
		if i < len(aligns) && aligns[i] == alignRight {
			align = text.AlignRight
		}
		configs[i] = table.ColumnConfig{Number: i + 1, Align: align, AlignHeader: text.AlignLeft}
	}
	tw.SetColumnConfigs(configs)

	return tw.Render()
}

func runTarget(r database.Run) string {
	target := "all clients"
	if r.RecordID != nil {
		target = *r.RecordID
	}
	if r.Dev {
		target += " (dev)"
	}
	return target
}

func runDuration(r database.Run) string {
	if d := r.Duration(); d > 0 {
		return d.Round(100 * time.Millisecond).String()
	}
	return "-"
}

func runsTable(runs []database.Run) string {
	rows := make([][]string, 0, len(runs))
	for _, r := range runs {
		status := r.Status
		if r.Error != nil {
			status += ": " + truncate(*r.Error, 40)
		}
		rows = append(rows, []string{
			r.ID[:min(8, len(r.ID))],
			runTarget(r),
			status,
			strconv.Itoa(r.RecordCount),
			strconv.Itoa(r.ImageCount),
			since(r.StartedAt),
			runDuration(r),
		})
	}
	return renderTable(
		[]string{"Run", "Target", "Status", "Records", "Images", "Started", "Took"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignLeft, alignRight},
	)
}

func reportsTable(reports []database.Report) string {
	rows := make([][]string, 0, len(reports))
	for _, r := range reports {
		rows = append(rows, []string{
			r.Client,
			strconv.Itoa(r.AuditCount),
			strconv.FormatFloat(r.OverallAverage, 'f', 1, 64),
			strconv.Itoa(r.ImageCount),
			since(r.GeneratedAt),
			r.Path,
		})
	}
	return renderTable(
		[]string{"Client", "Audits", "Average", "Images", "Generated", "Path"},
		rows,
		[]columnAlignment{alignLeft, alignRight, alignRight, alignRight, alignLeft, alignLeft},
	)
}

// runDetail describes one run in full, followed by the reports it wrote.
func runDetail(r database.Run, reports []database.Report) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Run %s\n", r.ID)
	fmt.Fprintf(&b, "  Target: %s\n", runTarget(r))
	fmt.Fprintf(&b, "  Status: %s\n", r.Status)
	if r.Error != nil {
		fmt.Fprintf(&b, "  Error: %s\n", *r.Error)
	}
	fmt.Fprintf(&b, "  Records: %d\n", r.RecordCount)
	fmt.Fprintf(&b, "  Images: %d\n", r.ImageCount)
	fmt.Fprintf(&b, "  Started: %s (%s)\n", r.StartedAt.Local().Format(time.DateTime), since(r.StartedAt))
	fmt.Fprintf(&b, "  Took: %s\n", runDuration(r))
	if len(reports) == 0 {
		b.WriteString("\nNo reports written.\n")
		return b.String()
	}
	b.WriteString("\nReports:\n")
	b.WriteString(reportsTable(reports))
	b.WriteString("\n")
	return b.String()
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
