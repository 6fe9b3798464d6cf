package app

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"horse.fit/nichescore/internal/cli"
	"horse.fit/nichescore/internal/globaltime"
	"horse.fit/nichescore/internal/scoring"
)

type topRow struct {
	Category     string   `json:"category"`
	NicheScore   int      `json:"niche_score"`
	PostCount    int      `json:"post_count"`
	AvgSentiment float64  `json:"avg_sentiment"`
	Solvability  int      `json:"solvability"`
	Platforms    []string `json:"platforms"`
	TopExample   string   `json:"top_example"`
}

func runTop(args []string) int {
	fs := flag.NewFlagSet("top", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	timeout := fs.Duration("timeout", 30*time.Second, "Command timeout")
	period := fs.String("period", "week", "Ranking window: day, week, or month")
	category := fs.String("category", "", "Filter by category substring")
	limit := fs.Int("limit", 10, "Maximum categories to show")
	format := fs.String("format", outputFormatTable, "Output format: table or json")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	days, err := parsePeriodFlag(*period)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}
	if *limit < 1 || *limit > 50 {
		fmt.Fprintln(os.Stderr, "--limit must be between 1 and 50")
		return 2
	}

	outputFormat, err := parseOutputFormat(*format, outputFormatTable)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid format: %v\n", err)
		return 2
	}

	ctx, cancel, pool, cfg, err := connectReadPool(*timeout, envLoader)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	defer cancel()
	defer pool.Close()

	since := globaltime.UTC().AddDate(0, 0, -days)
	aggregates, err := pool.QueryTopCategories(ctx, since, *category, *limit)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to query top categories: %v\n", err)
		return 1
	}

	items := make([]topRow, 0, len(aggregates))
	for _, agg := range aggregates {
		items = append(items, topRow{
			Category: agg.Category,
			NicheScore: scoring.NicheScore(scoring.Inputs{
				Sentiment:     scoring.RoundSentiment(agg.AvgSentiment),
				Frequency:     scoring.FrequencyScore(agg.PostCount),
				SourceQuality: cfg.SourceQualityPlaceholder,
				Solvability:   agg.Solvability,
			}, scoring.DefaultWeights),
			PostCount:    agg.PostCount,
			AvgSentiment: agg.AvgSentiment,
			Solvability:  agg.Solvability,
			Platforms:    agg.Platforms,
			TopExample:   agg.TopExample,
		})
	}

	if outputFormat == outputFormatJSON {
		if err := printJSON(items); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to encode JSON: %v\n", err)
			return 1
		}
		return 0
	}

	rows := make([][]string, 0, len(items))
	for _, item := range items {
		rows = append(rows, []string{
			item.Category,
			fmt.Sprintf("%d", item.NicheScore),
			fmt.Sprintf("%d", item.PostCount),
			fmt.Sprintf("%.1f", item.AvgSentiment),
			fmt.Sprintf("%d", item.Solvability),
			strings.Join(item.Platforms, ","),
			truncateForTable(item.TopExample, 60),
		})
	}

	if err := writeTable([]string{"category", "score", "posts", "sentiment", "solvability", "platforms", "top_example"}, rows); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to render table: %v\n", err)
		return 1
	}
	return 0
}
