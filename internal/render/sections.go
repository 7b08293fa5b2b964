package render

import "github.com/TobiSchelling/auditreports/internal/transform"

type headerData struct {
	ClientName string
	ReportDate string
	Details    transform.Details
}

type summaryData struct {
	Summary  transform.Summary
	Averages []transform.CategoryScore
}

type journeyData struct {
	Journeys []transform.RecordJourney
}

type eyequantData struct {
	Eyequants []transform.Eyequant
}

type findingsData struct {
	Findings []recordFindings
}

type recordFindings struct {
	RecordID  string
	NeedsWork findingGroup
	DoingWell findingGroup
}

type findingGroup struct {
	Class           string
	Title           string
	IssueLabel      string
	ExperimentLabel string
	Findings        []transform.Finding
}

type ctaData struct {
	ContactEmail string
	ContactURL   string
}

type chartData struct {
	Radar    transform.RadarData
	Options  transform.ChartOptions
	Criteria map[string]string
}

// groupFindings splits each record's findings into the two report groups.
func groupFindings(all []transform.RecordFindings) []recordFindings {
	out := make([]recordFindings, len(all))
	for i, rf := range all {
		needsWork, doingWell := transform.Partition(rf.Findings)
		out[i] = recordFindings{
			RecordID: rf.RecordID,
			NeedsWork: findingGroup{
				Class:           "needs-work",
				Title:           "What needs work",
				IssueLabel:      "Issue Identified:",
				ExperimentLabel: "Recommended Experiment:",
				Findings:        needsWork,
			},
			DoingWell: findingGroup{
				Class:           "doing-well",
				Title:           "What you're doing well",
				IssueLabel:      "What's working:",
				ExperimentLabel: "Potential Enhancement:",
				Findings:        doingWell,
			},
		}
	}
	return out
}
