package classify

import (
	"fmt"
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"

	"horse.fit/nichescore/internal/db"
)

const systemPrompt = "You are a problem classifier for market research. You read social media posts and decide whether each describes a real problem that a mobile or web app could solve."

const instructionTemplate = `For each numbered post below, determine if it describes a real problem that could be solved by a mobile or web app.

Return ONLY a JSON array. Each element must have:
- "index": the post number (1-based)
- "category": broad problem area (e.g. "property management", "gardening", "meal planning"). Use lowercase.
- "subcategory": specific issue (e.g. "tenant screening", "plant disease identification"). Use lowercase.
- "sentiment_score": 1-10, how frustrated/urgent the person sounds (10 = extremely frustrated)
- "is_app_solvable": true/false, could a mobile or web app realistically help?
- "summary": one plain-English sentence summarizing the problem

If a post is not about a real problem (just joking, off-topic, etc.), set is_app_solvable to false and sentiment_score to 1.

Posts:

%s

Return ONLY the JSON array, no other text.`

var markupStripper = bluemonday.StrictPolicy()

// CleanExcerpt strips markup and entity noise from post content, collapses
// whitespace, and truncates to at most maxChars runes. Truncation counts
// runes, never bytes, so multibyte content is not split mid-character.
func CleanExcerpt(content string, maxChars int) string {
	cleaned := markupStripper.Sanitize(content)
	cleaned = html.UnescapeString(cleaned)
	cleaned = strings.Join(strings.Fields(cleaned), " ")

	if maxChars > 0 {
		runes := []rune(cleaned)
		if len(runes) > maxChars {
			cleaned = string(runes[:maxChars])
		}
	}
	return cleaned
}

// BuildPrompt renders the numbered batch prompt. The position of each post
// in the slice defines its 1-based index; the oracle's judgments refer back
// to these numbers.
func BuildPrompt(posts []db.PendingPost, maxChars int) string {
	numbered := make([]string, 0, len(posts))
	for i, post := range posts {
		numbered = append(numbered, fmt.Sprintf("%d. %q", i+1, CleanExcerpt(post.Content, maxChars)))
	}
	return fmt.Sprintf(instructionTemplate, strings.Join(numbered, "\n\n"))
}
