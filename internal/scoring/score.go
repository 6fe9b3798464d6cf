// Package scoring computes the composite NicheScore and its bounded
// sub-scores. Everything here is a pure function of its inputs; weights and
// lookup tables are immutable values injected at the call site so pipeline
// policy stays testable in isolation.
package scoring

import (
	"encoding/json"
	"math"
)

// Weights are the fixed multipliers of the four sub-scores. Frequency and
// solvability carry the most weight.
type Weights struct {
	Sentiment     int
	Frequency     int
	SourceQuality int
	Solvability   int
}

// DefaultWeights is the production scoring policy.
var DefaultWeights = Weights{
	Sentiment:     2,
	Frequency:     3,
	SourceQuality: 2,
	Solvability:   3,
}

// Inputs are the four sub-scores, each on a 1-10 scale.
type Inputs struct {
	Sentiment     int
	Frequency     int
	SourceQuality int
	Solvability   int
}

// QualityTable maps a source (or a reddit tier) to a 1-10 trust score.
type QualityTable map[string]int

// DefaultQualityTable is the production source-quality policy. Reddit is
// resolved through the tier stored in a record's metadata, not listed here
// directly.
var DefaultQualityTable = QualityTable{
	"appstore_ios":      8,
	"appstore_google":   8,
	"x":                 4,
	"tiktok":            3,
	"niche_subreddit":   9,
	"idea_subreddit":    8,
	"general_subreddit": 5,
}

const (
	// SourceReddit records resolve quality via their subreddit tier.
	SourceReddit = "reddit"

	// redditFallbackTier is applied when a reddit record carries no tier:
	// the lowest-trust tier, so untagged records never inflate a score.
	redditFallbackTier = "general_subreddit"

	// neutralQuality is the default for sources absent from the table.
	neutralQuality = 5
)

// NicheScore combines the four sub-scores under the given weights and clamps
// the result to [0, 100]. With inputs on the 1-10 scale and the default
// weights the raw maximum is exactly 100, so the clamp is a safety net only.
func NicheScore(in Inputs, w Weights) int {
	raw := in.Sentiment*w.Sentiment +
		in.Frequency*w.Frequency +
		in.SourceQuality*w.SourceQuality +
		in.Solvability*w.Solvability

	if raw < 0 {
		return 0
	}
	if raw > 100 {
		return 100
	}
	return raw
}

// FrequencyScore compresses an unbounded post count into a 1-10 sub-score
// with diminishing sensitivity at scale. Non-decreasing in count.
func FrequencyScore(postCount int) int {
	switch {
	case postCount <= 1:
		return 1
	case postCount <= 3:
		return 2
	case postCount <= 6:
		return 3
	case postCount <= 10:
		return 4
	case postCount <= 15:
		return 5
	case postCount <= 25:
		return 6
	case postCount <= 40:
		return 7
	case postCount <= 60:
		return 8
	case postCount <= 80:
		return 9
	default:
		return 10
	}
}

// SourceQuality resolves the 1-10 trust score for a record. Reddit records
// are scored by the tier in their metadata; every other source is looked up
// directly, defaulting to a neutral 5 when unknown.
func SourceQuality(table QualityTable, source string, metadata json.RawMessage) int {
	if source == SourceReddit {
		tier := metadataTier(metadata)
		if tier == "" {
			tier = redditFallbackTier
		}
		if quality, ok := table[tier]; ok {
			return quality
		}
		return table[redditFallbackTier]
	}

	if quality, ok := table[source]; ok {
		return quality
	}
	return neutralQuality
}

// RoundSentiment converts an averaged sentiment back onto the integer 1-10
// scale for score composition.
func RoundSentiment(avg float64) int {
	rounded := int(math.Round(avg))
	if rounded < 1 {
		return 1
	}
	if rounded > 10 {
		return 10
	}
	return rounded
}

func metadataTier(metadata json.RawMessage) string {
	if len(metadata) == 0 {
		return ""
	}
	var fields struct {
		Tier string `json:"tier"`
	}
	if err := json.Unmarshal(metadata, &fields); err != nil {
		return ""
	}
	return fields.Tier
}
