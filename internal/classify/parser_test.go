package classify

import (
	"errors"
	"strings"
	"testing"
)

func TestParseJudgmentsPlainArray(t *testing.T) {
	t.Parallel()

	raw := `[{"index":1,"category":"Gardening","subcategory":"Plant Disease","sentiment_score":8,"is_app_solvable":true,"summary":" Tomatoes keep dying. "}]`

	judgments, err := ParseJudgments(raw)
	if err != nil {
		t.Fatalf("ParseJudgments: %v", err)
	}
	if len(judgments) != 1 {
		t.Fatalf("got %d judgments, want 1", len(judgments))
	}

	j := judgments[0]
	if j.Index != 1 {
		t.Errorf("index = %d, want 1", j.Index)
	}
	if j.Category != "gardening" {
		t.Errorf("category = %q, want lowercased", j.Category)
	}
	if j.Subcategory != "plant disease" {
		t.Errorf("subcategory = %q, want lowercased", j.Subcategory)
	}
	if j.Summary != "Tomatoes keep dying." {
		t.Errorf("summary = %q, want trimmed", j.Summary)
	}
	if !j.IsAppSolvable {
		t.Error("is_app_solvable lost in decode")
	}
}

func TestParseJudgmentsStripsFences(t *testing.T) {
	t.Parallel()

	raw := "```json\n[{\"index\":2,\"category\":\"meal planning\",\"sentiment_score\":5}]\n```"

	judgments, err := ParseJudgments(raw)
	if err != nil {
		t.Fatalf("ParseJudgments with fences: %v", err)
	}
	if len(judgments) != 1 || judgments[0].Index != 2 {
		t.Fatalf("unexpected judgments: %+v", judgments)
	}
}

func TestParseJudgmentsClampsSentiment(t *testing.T) {
	t.Parallel()

	raw := `[{"index":1,"sentiment_score":42},{"index":2,"sentiment_score":-3}]`

	judgments, err := ParseJudgments(raw)
	if err != nil {
		t.Fatalf("ParseJudgments: %v", err)
	}
	if judgments[0].SentimentScore != 10 {
		t.Errorf("high sentiment = %d, want clamped to 10", judgments[0].SentimentScore)
	}
	if judgments[1].SentimentScore != 1 {
		t.Errorf("low sentiment = %d, want clamped to 1", judgments[1].SentimentScore)
	}
}

func TestParseJudgmentsMalformed(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		raw  string
	}{
		{"empty", ""},
		{"fences only", "```json\n```"},
		{"prose", "Sorry, I cannot classify these posts."},
		{"object not array", `{"index":1}`},
		{"truncated", `[{"index":1,"category":"garde`},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			_, err := ParseJudgments(tc.raw)
			if !errors.Is(err, ErrMalformedOutput) {
				t.Fatalf("ParseJudgments(%q) err = %v, want ErrMalformedOutput", tc.raw, err)
			}
		})
	}
}

func TestCleanExcerptStripsMarkup(t *testing.T) {
	t.Parallel()

	in := "<p>My basil &amp; mint keep   dying\n\n<b>every</b> summer</p>"
	want := "My basil & mint keep dying every summer"
	if got := CleanExcerpt(in, 300); got != want {
		t.Fatalf("CleanExcerpt = %q, want %q", got, want)
	}
}

func TestCleanExcerptTruncatesRunes(t *testing.T) {
	t.Parallel()

	in := strings.Repeat("ü", 400)
	got := CleanExcerpt(in, 300)
	if len([]rune(got)) != 300 {
		t.Fatalf("truncated length = %d runes, want 300", len([]rune(got)))
	}
}
