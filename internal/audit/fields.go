package audit

import "strings"

// Categories is the fixed, ordered set of scored audit categories.
var Categories = []string{
	"Clarity & Purpose",
	"Trust & Credibility",
	"Mobile Experience",
	"Information Hierarchy",
	"Friction Points",
	"Visual Design",
	"Speed & Performance",
	"User Flow Logic",
}

// Image-bearing fields, in processing order.
const (
	DiscoveryScreenshotsField  = "Discovery Phase Screenshots"
	DecisionScreenshotsField   = "Decision Phase Screenshots"
	ConversionScreenshotsField = "Conversion Phase Screenshots"
	EyequantScreenshotField    = "Eyequant Screenshot"
)

// ImageFields lists every field that may reference images.
var ImageFields = []string{
	DiscoveryScreenshotsField,
	DecisionScreenshotsField,
	ConversionScreenshotsField,
	EyequantScreenshotField,
}

// Free-text fields outside the per-category ones.
const (
	DiscoveryCommentsField  = "Discovery Phase Comments"
	DecisionCommentsField   = "Decision Phase Comments"
	ConversionCommentsField = "Conversion Phase Comments"
	TopFeedbackField        = "Top Feedback"
	BottomFeedbackField     = "Bottom Feedback"
	UserField               = "User"
	UserIDField             = "User ID"
	SiteField               = "Site"
)

// ScoreField returns the score field name for a category.
func ScoreField(category string) string { return category + " Score" }

// IssueFields returns the issue field names for a category, preferred first.
func IssueFields(category string) []string {
	return []string{category + " Issue", category + " Issues"}
}

// ExperimentField returns the experiment field name for a category.
func ExperimentField(category string) string { return category + " Experiments" }

// Slug derives the client folder name: lowercase, with every character
// outside [a-z0-9] replaced by '-'.
func Slug(name string) string {
	lower := strings.ToLower(name)
	var b strings.Builder
	b.Grow(len(lower))
	for _, r := range lower {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		} else {
			b.WriteByte('-')
		}
	}
	return b.String()
}
