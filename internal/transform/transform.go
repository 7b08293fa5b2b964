// Package transform derives report view models from audit records.
package transform

import (
	"math"

	"github.com/TobiSchelling/auditreports/internal/audit"
)

// MaxScore is the top of the category scoring scale.
const MaxScore = 5

// CategoryScore pairs a category with a (possibly averaged) score.
type CategoryScore struct {
	Category string  `json:"category"`
	Score    float64 `json:"score"`
}

// RecordScores holds one record's integer score per category, in category
// order.
type RecordScores struct {
	RecordID string `json:"recordId"`
	Client   string `json:"client"`
	Scores   []int  `json:"scores"`
}

// Summary is the headline statistics block of a report.
type Summary struct {
	Clients        []string      `json:"clients"`
	OverallAverage float64       `json:"overallAverage"`
	Highest        CategoryScore `json:"highest"`
	Lowest         CategoryScore `json:"lowest"`
	TotalAudits    int           `json:"totalAudits"`
}

// Transformer computes view models over a fixed set of records. It performs
// no I/O and never mutates its input.
type Transformer struct {
	records []audit.Record
}

// New creates a transformer over records.
func New(records []audit.Record) *Transformer {
	return &Transformer{records: append([]audit.Record(nil), records...)}
}

// Records returns the records the transformer was built from.
func (t *Transformer) Records() []audit.Record {
	return append([]audit.Record(nil), t.records...)
}

// ForSlug returns a transformer scoped to the records whose client name has
// the given slug.
func (t *Transformer) ForSlug(slug string) *Transformer {
	var scoped []audit.Record
	for _, r := range t.records {
		if audit.Slug(r.Client) == slug {
			scoped = append(scoped, r)
		}
	}
	return &Transformer{records: scoped}
}

// Clients returns the distinct client names in first-seen order.
func (t *Transformer) Clients() []string {
	seen := make(map[string]bool)
	var clients []string
	for _, r := range t.records {
		if !seen[r.Client] {
			seen[r.Client] = true
			clients = append(clients, r.Client)
		}
	}
	return clients
}

// Score reads a category score from a record. Missing or unparseable values
// score 0; values outside the scale are clamped.
func Score(r audit.Record, category string) int {
	n, ok := r.Int(audit.ScoreField(category))
	if !ok {
		return 0
	}
	return min(max(n, 0), MaxScore)
}

// Scores returns every record's category scores.
func (t *Transformer) Scores() []RecordScores {
	out := make([]RecordScores, len(t.records))
	for i, r := range t.records {
		scores := make([]int, len(audit.Categories))
		for j, c := range audit.Categories {
			scores[j] = Score(r, c)
		}
		out[i] = RecordScores{RecordID: r.ID, Client: r.Client, Scores: scores}
	}
	return out
}

// Averages returns the mean score per category, rounded to one decimal, in
// category order. An empty record set averages to 0.
func (t *Transformer) Averages() []CategoryScore {
	scores := t.Scores()
	out := make([]CategoryScore, len(audit.Categories))
	for j, c := range audit.Categories {
		out[j] = CategoryScore{Category: c}
		if len(scores) == 0 {
			continue
		}
		total := 0
		for _, s := range scores {
			total += s.Scores[j]
		}
		out[j].Score = round1(float64(total) / float64(len(scores)))
	}
	return out
}

// Summary computes the report's headline statistics. Ties for highest and
// lowest go to the category listed first.
func (t *Transformer) Summary() Summary {
	averages := t.Averages()

	highest, lowest := averages[0], averages[0]
	sum := 0.0
	for _, a := range averages {
		sum += a.Score
		if a.Score > highest.Score {
			highest = a
		}
		if a.Score < lowest.Score {
			lowest = a
		}
	}

	return Summary{
		Clients:        t.Clients(),
		OverallAverage: round1(sum / float64(len(averages))),
		Highest:        highest,
		Lowest:         lowest,
		TotalAudits:    len(t.records),
	}
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
