package app

import (
	"testing"
	"time"
)

func TestParseUTCDate(t *testing.T) {
	t.Parallel()

	day, err := parseUTCDate("2025-06-14")
	if err != nil {
		t.Fatalf("parseUTCDate: %v", err)
	}
	if !day.Equal(time.Date(2025, 6, 14, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("day = %v", day)
	}

	for _, raw := range []string{"", "14.06.2025", "2025-6-14", "2025-06-14T10:00:00Z"} {
		if _, err := parseUTCDate(raw); err == nil {
			t.Errorf("parseUTCDate(%q) accepted invalid input", raw)
		}
	}
}

func TestParsePeriodFlag(t *testing.T) {
	t.Parallel()

	cases := map[string]int{
		"day":    1,
		"week":   7,
		"month":  30,
		"":       7,
		" WEEK ": 7,
	}
	for raw, want := range cases {
		got, err := parsePeriodFlag(raw)
		if err != nil || got != want {
			t.Errorf("parsePeriodFlag(%q) = %d, %v; want %d", raw, got, err, want)
		}
	}
	if _, err := parsePeriodFlag("fortnight"); err == nil {
		t.Error("parsePeriodFlag accepted unknown period")
	}
}

func TestParseOutputFormat(t *testing.T) {
	t.Parallel()

	if got, err := parseOutputFormat("", outputFormatTable); err != nil || got != outputFormatTable {
		t.Errorf("default format: got %q, %v", got, err)
	}
	if got, err := parseOutputFormat("JSON", outputFormatTable); err != nil || got != outputFormatJSON {
		t.Errorf("json format: got %q, %v", got, err)
	}
	if _, err := parseOutputFormat("yaml", outputFormatTable); err == nil {
		t.Error("unknown format accepted")
	}
}

func TestTruncateForTable(t *testing.T) {
	t.Parallel()

	if got := truncateForTable("short", 10); got != "short" {
		t.Errorf("short value changed: %q", got)
	}
	if got := truncateForTable("a very long example summary", 10); got != "a very ..." {
		t.Errorf("truncated value = %q", got)
	}
	if got := truncateForTable("  padded  ", 0); got != "padded" {
		t.Errorf("unlimited value = %q", got)
	}
}
