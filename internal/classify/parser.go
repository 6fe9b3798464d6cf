package classify

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrMalformedOutput marks an oracle response that could not be decoded into
// judgments. Callers treat the whole batch as failed when they see it.
var ErrMalformedOutput = errors.New("oracle output is not a judgment array")

// Judgment is one oracle verdict, addressed to a batch position by 1-based
// index.
type Judgment struct {
	Index          int    `json:"index"`
	Category       string `json:"category"`
	Subcategory    string `json:"subcategory"`
	SentimentScore int    `json:"sentiment_score"`
	IsAppSolvable  bool   `json:"is_app_solvable"`
	Summary        string `json:"summary"`
}

// ParseJudgments decodes the oracle response. Markdown code fences around
// the array are tolerated and stripped; anything that then fails to decode
// as a JSON array wraps ErrMalformedOutput. Shape problems inside individual
// judgments are repaired where safe (sentiment clamped to 1-10, names
// lowercased) rather than rejected.
func ParseJudgments(raw string) ([]Judgment, error) {
	cleaned := stripCodeFences(raw)
	if cleaned == "" {
		return nil, fmt.Errorf("%w: empty response", ErrMalformedOutput)
	}

	var judgments []Judgment
	if err := json.Unmarshal([]byte(cleaned), &judgments); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedOutput, err)
	}

	for i := range judgments {
		normalizeJudgment(&judgments[i])
	}
	return judgments, nil
}

func stripCodeFences(raw string) string {
	cleaned := strings.ReplaceAll(raw, "```json", "")
	cleaned = strings.ReplaceAll(cleaned, "```", "")
	return strings.TrimSpace(cleaned)
}

func normalizeJudgment(j *Judgment) {
	j.Category = strings.ToLower(strings.TrimSpace(j.Category))
	j.Subcategory = strings.ToLower(strings.TrimSpace(j.Subcategory))
	j.Summary = strings.TrimSpace(j.Summary)

	if j.SentimentScore < 1 {
		j.SentimentScore = 1
	}
	if j.SentimentScore > 10 {
		j.SentimentScore = 10
	}
}
