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
)

func runTrends(args []string) int {
	fs := flag.NewFlagSet("trends", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	timeout := fs.Duration("timeout", 30*time.Second, "Command timeout")
	days := fs.Int("days", 7, "How many days back to show")
	format := fs.String("format", outputFormatTable, "Output format: table or json")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	if *days < 1 || *days > 90 {
		fmt.Fprintln(os.Stderr, "--days must be between 1 and 90")
		return 2
	}

	outputFormat, err := parseOutputFormat(*format, outputFormatTable)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid format: %v\n", err)
		return 2
	}

	ctx, cancel, pool, _, err := connectReadPool(*timeout, envLoader)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	defer cancel()
	defer pool.Close()

	to := globaltime.UTC()
	from := to.AddDate(0, 0, -(*days - 1))

	rows, err := pool.ListTrendSnapshots(ctx, from, to)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to query trend snapshots: %v\n", err)
		return 1
	}

	if outputFormat == outputFormatJSON {
		if err := printJSON(rows); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to encode JSON: %v\n", err)
			return 1
		}
		return 0
	}

	tableRows := make([][]string, 0, len(rows))
	for _, row := range rows {
		tableRows = append(tableRows, []string{
			row.Date,
			row.Category,
			fmt.Sprintf("%d", row.PostCount),
			fmt.Sprintf("%.1f", row.AvgSentiment),
			strings.Join(row.Platforms, ","),
			truncateForTable(row.TopExample, 60),
		})
	}

	if err := writeTable([]string{"date", "category", "posts", "sentiment", "platforms", "top_example"}, tableRows); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to render table: %v\n", err)
		return 1
	}
	return 0
}
