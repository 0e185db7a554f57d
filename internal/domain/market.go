package domain

import (
	"strings"
	"time"
)

// Market is an immutable snapshot of a venue market taken during one fetch.
type Market struct {
	ID       string    `json:"id"`
	Question string    `json:"question"`
	Slug     string    `json:"slug,omitempty"`
	EndDate  time.Time `json:"endDate,omitempty"`
	Outcomes []Outcome `json:"outcomes"`
}

// Outcome is one possible resolution of a market with its quoted probability.
type Outcome struct {
	ID          string  `json:"id"` // CLOB token id
	Label       string  `json:"label"`
	Probability float64 `json:"probability"`
}

// Resolved reports whether the outcome is priced as already settled.
func (o Outcome) Resolved() bool {
	return o.Probability >= 1.0
}

// MatchesKeywords reports whether the question contains any of the keywords,
// case-insensitively. An empty keyword list matches every market.
func (m Market) MatchesKeywords(keywords []string) bool {
	if len(keywords) == 0 {
		return true
	}
	q := strings.ToLower(m.Question)
	for _, k := range keywords {
		k = strings.ToLower(strings.TrimSpace(k))
		if k != "" && strings.Contains(q, k) {
			return true
		}
	}
	return false
}

// TruncateQuestion shortens a question for table output, falling back to the id.
func TruncateQuestion(question, id string, max int) string {
	s := question
	if s == "" {
		s = id
	}
	if max <= 3 || len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
