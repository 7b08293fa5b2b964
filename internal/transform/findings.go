package transform

import (
	"slices"

	"github.com/TobiSchelling/auditreports/internal/audit"
)

// Fallback texts for categories without recorded findings.
const (
	NoIssues      = "No issues recorded"
	NoExperiments = "No experiments suggested"
)

// NeedsWorkThreshold is the highest score still reported as needing work.
const NeedsWorkThreshold = 3

// Finding is one category's score with its issue and suggested experiment.
// Issue and Experiment are raw rich text.
type Finding struct {
	Category   string `json:"category"`
	Score      int    `json:"score"`
	Issue      string `json:"issue"`
	Experiment string `json:"experiment"`
}

// RecordFindings holds the per-category findings of one record.
type RecordFindings struct {
	RecordID string    `json:"recordId"`
	Client   string    `json:"client"`
	Findings []Finding `json:"findings"`
}

// Findings returns every record's findings in category order.
func (t *Transformer) Findings() []RecordFindings {
	out := make([]RecordFindings, len(t.records))
	for i, r := range t.records {
		findings := make([]Finding, len(audit.Categories))
		for j, c := range audit.Categories {
			issue, ok := r.FirstString(audit.IssueFields(c)...)
			if !ok {
				issue = NoIssues
			}
			experiment, ok := r.FirstString(audit.ExperimentField(c))
			if !ok {
				experiment = NoExperiments
			}
			findings[j] = Finding{
				Category:   c,
				Score:      Score(r, c),
				Issue:      issue,
				Experiment: experiment,
			}
		}
		out[i] = RecordFindings{RecordID: r.ID, Client: r.Client, Findings: findings}
	}
	return out
}

// Partition splits findings into those needing work (score at or below the
// threshold, lowest first) and those doing well (highest first). Equal
// scores keep their input order.
func Partition(findings []Finding) (needsWork, doingWell []Finding) {
	for _, f := range findings {
		if f.Score <= NeedsWorkThreshold {
			needsWork = append(needsWork, f)
		} else {
			doingWell = append(doingWell, f)
		}
	}
	slices.SortStableFunc(needsWork, func(a, b Finding) int { return a.Score - b.Score })
	slices.SortStableFunc(doingWell, func(a, b Finding) int { return b.Score - a.Score })
	return needsWork, doingWell
}
