package transform

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/TobiSchelling/auditreports/internal/audit"
)

// LabelWidth is the character budget per line of a chart label.
const LabelWidth = 14

// LabelColor is the point label colour of the radar chart.
const LabelColor = "#2b0573"

type rgb struct{ r, g, b int }

// Brand palette, cycled across datasets.
var palette = []rgb{
	{43, 5, 115},    // indigo
	{99, 37, 244},   // purple
	{230, 8, 52},    // red
	{0, 163, 184},   // teal
	{232, 228, 255}, // pastel purple
	{207, 236, 255}, // pastel blue
	{253, 228, 225}, // pastel pink
	{218, 242, 238}, // pastel green
}

// ChartColor returns the palette colour for a dataset index as a CSS rgba().
func ChartColor(index int, alpha float64) string {
	c := palette[index%len(palette)]
	return fmt.Sprintf("rgba(%d, %d, %d, %s)", c.r, c.g, c.b, strconv.FormatFloat(alpha, 'f', -1, 64))
}

// Dataset is one series of a Chart.js chart.
type Dataset struct {
	Label                     string `json:"label"`
	Data                      []int  `json:"data"`
	BorderColor               string `json:"borderColor"`
	BackgroundColor           string `json:"backgroundColor"`
	PointBackgroundColor      string `json:"pointBackgroundColor"`
	PointBorderColor          string `json:"pointBorderColor"`
	PointHoverBackgroundColor string `json:"pointHoverBackgroundColor"`
	PointHoverBorderColor     string `json:"pointHoverBorderColor"`
}

// RadarData is the data block of the radar chart. Each label is a list of
// lines.
type RadarData struct {
	Labels   [][]string `json:"labels"`
	Datasets []Dataset  `json:"datasets"`
}

// RadarChart returns the category scores of every record as radar datasets.
func (t *Transformer) RadarChart() RadarData {
	labels := make([][]string, len(audit.Categories))
	for i, c := range audit.Categories {
		labels[i] = WrapLabel(c, LabelWidth)
	}

	scores := t.Scores()
	datasets := make([]Dataset, len(scores))
	for i, s := range scores {
		datasets[i] = Dataset{
			Label:                     fmt.Sprintf("%s (ID: %s)", s.Client, s.RecordID),
			Data:                      s.Scores,
			BorderColor:               ChartColor(i, 1),
			BackgroundColor:           ChartColor(i, 0.2),
			PointBackgroundColor:      ChartColor(i, 1),
			PointBorderColor:          "#fff",
			PointHoverBackgroundColor: "#fff",
			PointHoverBorderColor:     ChartColor(i, 1),
		}
	}
	return RadarData{Labels: labels, Datasets: datasets}
}

// WrapLabel splits a label into lines of at most width characters, breaking
// between words. A single word longer than width gets a line of its own.
func WrapLabel(label string, width int) []string {
	var lines []string
	var line string
	for _, word := range strings.Fields(label) {
		switch {
		case line == "":
			line = word
		case len(line)+1+len(word) <= width:
			line += " " + word
		default:
			lines = append(lines, line)
			line = word
		}
	}
	if line != "" {
		lines = append(lines, line)
	}
	return lines
}

// ChartOptions is the Chart.js options block of the radar chart.
type ChartOptions struct {
	Responsive bool         `json:"responsive"`
	Plugins    ChartPlugins `json:"plugins"`
	Scales     ChartScales  `json:"scales"`
}

// ChartPlugins configures the legend and title plugins.
type ChartPlugins struct {
	Legend struct {
		Display bool `json:"display"`
	} `json:"legend"`
	Title struct {
		Display bool      `json:"display"`
		Text    string    `json:"text"`
		Font    ChartFont `json:"font"`
	} `json:"title"`
}

// ChartScales configures the radial axis.
type ChartScales struct {
	R struct {
		BeginAtZero bool `json:"beginAtZero"`
		Max         int  `json:"max"`
		Ticks       struct {
			StepSize int `json:"stepSize"`
		} `json:"ticks"`
		PointLabels struct {
			UsePointStyle bool      `json:"usePointStyle"`
			Padding       int       `json:"padding"`
			Font          ChartFont `json:"font"`
			Color         string    `json:"color"`
		} `json:"pointLabels"`
	} `json:"r"`
}

// ChartFont is a Chart.js font setting.
type ChartFont struct {
	Size   int    `json:"size,omitempty"`
	Weight string `json:"weight"`
}

// RadarOptions returns the radar chart options: a 0 to 5 scale in steps
// of 1 with the legend hidden.
func RadarOptions() ChartOptions {
	var o ChartOptions
	o.Responsive = true
	o.Plugins.Title.Display = true
	o.Plugins.Title.Text = "UX Audit Scores by Category"
	o.Plugins.Title.Font = ChartFont{Size: 16, Weight: "bold"}
	o.Scales.R.BeginAtZero = true
	o.Scales.R.Max = MaxScore
	o.Scales.R.Ticks.StepSize = 1
	o.Scales.R.PointLabels.UsePointStyle = true
	o.Scales.R.PointLabels.Padding = 15
	o.Scales.R.PointLabels.Font = ChartFont{Weight: "normal"}
	o.Scales.R.PointLabels.Color = LabelColor
	return o
}

// CriteriaKeys maps each category to the key of its explanation panel.
func CriteriaKeys() map[string]string {
	return map[string]string{
		"Clarity & Purpose":     "clarity",
		"Trust & Credibility":   "trust",
		"Mobile Experience":     "mobile",
		"Information Hierarchy": "hierarchy",
		"Friction Points":       "friction",
		"Visual Design":         "visual",
		"Speed & Performance":   "performance",
		"User Flow Logic":       "flow",
	}
}
