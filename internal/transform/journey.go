package transform

import (
	"strings"

	"github.com/TobiSchelling/auditreports/internal/audit"
)

// Default eyequant feedback when the record has none.
const (
	NoTopFeedback    = "No feedback provided for top section"
	NoBottomFeedback = "No feedback provided for bottom section"
)

// MaxEyequantScreenshots caps the screenshots shown in the eyequant section:
// the client's page and optionally a competitor's.
const MaxEyequantScreenshots = 2

// Phase is one step of the audited user journey.
type Phase struct {
	Name        string             `json:"name"`
	ID          string             `json:"id"`
	Screenshots []audit.Attachment `json:"screenshots"`
	Comments    string             `json:"comments"`
}

// Empty reports whether the phase has nothing to show.
func (p Phase) Empty() bool {
	return len(p.Screenshots) == 0 && strings.TrimSpace(p.Comments) == ""
}

// RecordJourney holds the non-empty journey phases of one record.
type RecordJourney struct {
	RecordID string  `json:"recordId"`
	Client   string  `json:"client"`
	Phases   []Phase `json:"phases"`
}

type phaseSource struct {
	name, id, screenshots, comments string
}

var phases = []phaseSource{
	{"Discovery phase", "discovery", audit.DiscoveryScreenshotsField, audit.DiscoveryCommentsField},
	{"Decision phase", "decision", audit.DecisionScreenshotsField, audit.DecisionCommentsField},
	{"Conversion phase", "conversion", audit.ConversionScreenshotsField, audit.ConversionCommentsField},
}

// Journey returns each record's phases in Discovery, Decision, Conversion
// order, dropping phases with neither screenshots nor comments.
func (t *Transformer) Journey() []RecordJourney {
	out := make([]RecordJourney, len(t.records))
	for i, r := range t.records {
		j := RecordJourney{RecordID: r.ID, Client: r.Client}
		for _, src := range phases {
			p := Phase{
				Name:        src.name,
				ID:          src.id,
				Screenshots: r.Attachments(src.screenshots),
				Comments:    r.String(src.comments),
			}
			if !p.Empty() {
				j.Phases = append(j.Phases, p)
			}
		}
		out[i] = j
	}
	return out
}

// Eyequant is the visual attention analysis of one record.
type Eyequant struct {
	RecordID       string             `json:"recordId"`
	Client         string             `json:"client"`
	Screenshots    []audit.Attachment `json:"screenshots"`
	TopFeedback    string             `json:"topFeedback"`
	BottomFeedback string             `json:"bottomFeedback"`
}

// Eyequant returns each record's attention analysis. Missing feedback falls
// back to explanatory text.
func (t *Transformer) Eyequant() []Eyequant {
	out := make([]Eyequant, len(t.records))
	for i, r := range t.records {
		shots := r.Attachments(audit.EyequantScreenshotField)
		if len(shots) > MaxEyequantScreenshots {
			shots = shots[:MaxEyequantScreenshots]
		}
		top, ok := r.FirstString(audit.TopFeedbackField)
		if !ok {
			top = NoTopFeedback
		}
		bottom, ok := r.FirstString(audit.BottomFeedbackField)
		if !ok {
			bottom = NoBottomFeedback
		}
		out[i] = Eyequant{
			RecordID:       r.ID,
			Client:         r.Client,
			Screenshots:    shots,
			TopFeedback:    top,
			BottomFeedback: bottom,
		}
	}
	return out
}

// Details identifies who audited which site.
type Details struct {
	User   string `json:"user"`
	UserID string `json:"userId"`
	Site   string `json:"site"`
}

// Details returns the report details, each value taken from the first
// record that has it.
func (t *Transformer) Details() Details {
	var d Details
	for _, r := range t.records {
		if d.User == "" {
			d.User = strings.TrimSpace(r.String(audit.UserField))
		}
		if d.UserID == "" {
			d.UserID = strings.TrimSpace(r.String(audit.UserIDField))
		}
		if d.Site == "" {
			d.Site = strings.TrimSpace(r.String(audit.SiteField))
		}
	}
	return d
}
