package db

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"
)

// CategoryRollup is one category's aggregate over a day of solvable,
// classified posts, as computed by the trend aggregator.
type CategoryRollup struct {
	Category     string
	PostCount    int
	AvgSentiment float64
	Platforms    []string
	TopExample   string
}

// TrendSnapshotUpsert carries one rollup into niche.trend_snapshots.
type TrendSnapshotUpsert struct {
	Date         time.Time
	Category     string
	PostCount    int
	AvgSentiment float64
	Platforms    []string
	TopExample   string
	UpdatedAt    time.Time
}

// TrendRow is a snapshot row as served by the trends read surface.
type TrendRow struct {
	Date         string   `json:"date"`
	Category     string   `json:"category"`
	PostCount    int      `json:"post_count"`
	AvgSentiment float64  `json:"avg_sentiment"`
	Platforms    []string `json:"platforms"`
	TopExample   string   `json:"top_example"`
}

// CategoryAggregate is one ranked category for the top-problems read surface.
type CategoryAggregate struct {
	Category     string
	PostCount    int
	AvgSentiment float64
	Platforms    []string
	Solvability  int
	TopExample   string
}

// QueryCategoryRollups groups solvable classifications of posts collected in
// [dayStart, dayEnd) by category. The top example is the summary of the
// highest-sentiment post, earliest collection winning ties.
func (p *Pool) QueryCategoryRollups(ctx context.Context, dayStart, dayEnd time.Time) ([]CategoryRollup, error) {
	const q = `
SELECT
	c.category,
	COUNT(*)::INT AS post_count,
	ROUND(AVG(c.sentiment_score)::NUMERIC, 1)::FLOAT8 AS avg_sentiment,
	STRING_AGG(DISTINCT rp.source, ',') AS platforms,
	(
		SELECT c2.summary
		FROM niche.classifications c2
		JOIN niche.raw_posts rp2
			ON rp2.raw_post_id = c2.raw_post_id
		WHERE c2.category = c.category
		  AND c2.is_app_solvable = TRUE
		  AND rp2.collected_at >= $1
		  AND rp2.collected_at < $2
		ORDER BY c2.sentiment_score DESC, rp2.collected_at ASC, c2.classification_id ASC
		LIMIT 1
	) AS top_example
FROM niche.classifications c
JOIN niche.raw_posts rp
	ON rp.raw_post_id = c.raw_post_id
WHERE rp.collected_at >= $1
  AND rp.collected_at < $2
  AND c.is_app_solvable = TRUE
GROUP BY c.category
ORDER BY post_count DESC, c.category ASC
`

	rows, err := p.Query(ctx, q, dayStart.UTC(), dayEnd.UTC())
	if err != nil {
		return nil, fmt.Errorf("query category rollups: %w", err)
	}
	defer rows.Close()

	items := make([]CategoryRollup, 0, 16)
	for rows.Next() {
		var row CategoryRollup
		var platforms *string
		var topExample *string
		if err := rows.Scan(&row.Category, &row.PostCount, &row.AvgSentiment, &platforms, &topExample); err != nil {
			return nil, fmt.Errorf("scan category rollup row: %w", err)
		}
		row.Platforms = splitPlatformList(platforms)
		if topExample != nil {
			row.TopExample = *topExample
		}
		items = append(items, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate category rollups: %w", err)
	}

	return items, nil
}

// UpsertTrendSnapshot writes one (date, category) snapshot row, overwriting
// any previous rollup for the same key.
func (p *Pool) UpsertTrendSnapshot(ctx context.Context, row TrendSnapshotUpsert) error {
	platformsJSON, err := json.Marshal(row.Platforms)
	if err != nil {
		return fmt.Errorf("marshal snapshot platforms: %w", err)
	}

	const q = `
INSERT INTO niche.trend_snapshots (date, category, post_count, avg_sentiment, platforms, top_example, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (date, category) DO UPDATE SET
	post_count = EXCLUDED.post_count,
	avg_sentiment = EXCLUDED.avg_sentiment,
	platforms = EXCLUDED.platforms,
	top_example = EXCLUDED.top_example,
	updated_at = EXCLUDED.updated_at
`

	if _, err := p.Exec(ctx, q,
		row.Date.UTC().Format("2006-01-02"),
		row.Category,
		row.PostCount,
		row.AvgSentiment,
		string(platformsJSON),
		row.TopExample,
		row.UpdatedAt.UTC(),
	); err != nil {
		return fmt.Errorf("upsert trend snapshot: %w", err)
	}
	return nil
}

// ListTrendSnapshots returns snapshot rows for dates in [from, to],
// oldest day first, busiest categories first within a day.
func (p *Pool) ListTrendSnapshots(ctx context.Context, from, to time.Time) ([]TrendRow, error) {
	const q = `
SELECT
	ts.date,
	ts.category,
	ts.post_count,
	ts.avg_sentiment::FLOAT8,
	ts.platforms,
	ts.top_example
FROM niche.trend_snapshots ts
WHERE ts.date >= $1
  AND ts.date <= $2
ORDER BY ts.date ASC, ts.post_count DESC, ts.category ASC
`

	rows, err := p.Query(ctx, q, from.UTC().Format("2006-01-02"), to.UTC().Format("2006-01-02"))
	if err != nil {
		return nil, fmt.Errorf("query trend snapshots: %w", err)
	}
	defer rows.Close()

	items := make([]TrendRow, 0, 64)
	for rows.Next() {
		var row TrendRow
		var date time.Time
		var platforms []byte
		if err := rows.Scan(&date, &row.Category, &row.PostCount, &row.AvgSentiment, &platforms, &row.TopExample); err != nil {
			return nil, fmt.Errorf("scan trend snapshot row: %w", err)
		}
		row.Date = date.UTC().Format("2006-01-02")
		if len(platforms) > 0 {
			if err := json.Unmarshal(platforms, &row.Platforms); err != nil {
				return nil, fmt.Errorf("unmarshal snapshot platforms: %w", err)
			}
		}
		items = append(items, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate trend snapshots: %w", err)
	}

	return items, nil
}

// QueryTopCategories ranks categories of solvable posts collected since the
// cutoff, optionally filtered by a category substring.
func (p *Pool) QueryTopCategories(ctx context.Context, since time.Time, category string, limit int) ([]CategoryAggregate, error) {
	const q = `
SELECT
	c.category,
	COUNT(*)::INT AS post_count,
	ROUND(AVG(c.sentiment_score)::NUMERIC, 1)::FLOAT8 AS avg_sentiment,
	STRING_AGG(DISTINCT rp.source, ',') AS platforms,
	ROUND(AVG(CASE WHEN c.is_app_solvable THEN 1 ELSE 0 END) * 10)::INT AS solvability,
	(
		SELECT c2.summary
		FROM niche.classifications c2
		JOIN niche.raw_posts rp2
			ON rp2.raw_post_id = c2.raw_post_id
		WHERE c2.category = c.category
		  AND c2.is_app_solvable = TRUE
		  AND rp2.collected_at > $1
		ORDER BY c2.sentiment_score DESC, rp2.collected_at ASC, c2.classification_id ASC
		LIMIT 1
	) AS top_example
FROM niche.classifications c
JOIN niche.raw_posts rp
	ON rp.raw_post_id = c.raw_post_id
WHERE rp.collected_at > $1
  AND c.is_app_solvable = TRUE
  AND ($2 = '' OR c.category ILIKE '%' || $2 || '%')
GROUP BY c.category
ORDER BY post_count DESC, c.category ASC
LIMIT $3
`

	rows, err := p.Query(ctx, q, since.UTC(), strings.TrimSpace(category), limit)
	if err != nil {
		return nil, fmt.Errorf("query top categories: %w", err)
	}
	defer rows.Close()

	items := make([]CategoryAggregate, 0, limit)
	for rows.Next() {
		var row CategoryAggregate
		var platforms *string
		var topExample *string
		if err := rows.Scan(&row.Category, &row.PostCount, &row.AvgSentiment, &platforms, &row.Solvability, &topExample); err != nil {
			return nil, fmt.Errorf("scan top category row: %w", err)
		}
		row.Platforms = splitPlatformList(platforms)
		if topExample != nil {
			row.TopExample = *topExample
		}
		items = append(items, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate top categories: %w", err)
	}

	return items, nil
}

func splitPlatformList(raw *string) []string {
	if raw == nil {
		return nil
	}
	parts := strings.Split(*raw, ",")
	items := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			items = append(items, trimmed)
		}
	}
	sort.Strings(items)
	return items
}
