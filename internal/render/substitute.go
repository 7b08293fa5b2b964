package render

import (
	"fmt"
	"regexp"
	"slices"
	"strings"
)

// Placeholder names understood by the base skeleton.
const (
	TokenClientName      = "CLIENT_NAME"
	TokenReportDate      = "REPORT_DATE"
	TokenOverallAverage  = "OVERALL_AVERAGE"
	TokenHighestName     = "HIGHEST_CATEGORY_NAME"
	TokenHighestScore    = "HIGHEST_CATEGORY_SCORE"
	TokenLowestName      = "LOWEST_CATEGORY_NAME"
	TokenLowestScore     = "LOWEST_CATEGORY_SCORE"
	TokenTotalAudits     = "TOTAL_AUDITS"
	TokenAssetVersion    = "ASSET_VERSION"
	TokenUser            = "USER"
	TokenUserID          = "USER_ID"
	TokenSite            = "SITE"
	TokenHeaderSection   = "HEADER_SECTION"
	TokenSummarySection  = "SUMMARY_SECTION"
	TokenJourneySection  = "USER_JOURNEY_CONTENT"
	TokenEyequantSection = "EYEQUANT_CONTENT"
	TokenFindingsSection = "DETAILED_FINDINGS"
	TokenCTASection      = "CTA_SECTION"
	TokenChartScripts    = "CHART_SCRIPTS"
)

// KnownTokens lists every placeholder a report supplies a value for.
var KnownTokens = []string{
	TokenClientName, TokenReportDate, TokenOverallAverage,
	TokenHighestName, TokenHighestScore, TokenLowestName, TokenLowestScore,
	TokenTotalAudits, TokenAssetVersion, TokenUser, TokenUserID, TokenSite,
	TokenHeaderSection, TokenSummarySection, TokenJourneySection,
	TokenEyequantSection, TokenFindingsSection, TokenCTASection, TokenChartScripts,
}

var tokenPattern = regexp.MustCompile(`\{\{([A-Z][A-Z0-9_]*)\}\}`)

// Values maps placeholder names (without braces) to their replacement text.
type Values map[string]string

// Substitute replaces every {{NAME}} token in tmpl with its value in a single
// pass, so replacement text is never scanned for further tokens. Tokens with
// no value are left in place and returned, deduplicated, in order of first
// appearance.
func Substitute(tmpl string, values Values) (string, []string) {
	var unresolved []string
	out := tokenPattern.ReplaceAllStringFunc(tmpl, func(match string) string {
		name := match[2 : len(match)-2]
		if v, ok := values[name]; ok {
			return v
		}
		if !slices.Contains(unresolved, name) {
			unresolved = append(unresolved, name)
		}
		return match
	})
	return out, unresolved
}

// Tokens returns the distinct placeholder names used in tmpl.
func Tokens(tmpl string) []string {
	var names []string
	for _, m := range tokenPattern.FindAllStringSubmatch(tmpl, -1) {
		if !slices.Contains(names, m[1]) {
			names = append(names, m[1])
		}
	}
	return names
}

// CheckTemplate reports placeholders in tmpl that no report ever supplies.
func CheckTemplate(tmpl string) error {
	var unknown []string
	for _, name := range Tokens(tmpl) {
		if !slices.Contains(KnownTokens, name) {
			unknown = append(unknown, name)
		}
	}
	if len(unknown) > 0 {
		return fmt.Errorf("template uses unknown placeholders: %s", strings.Join(unknown, ", "))
	}
	return nil
}
