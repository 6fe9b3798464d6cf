package db

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// RawPostInsert carries one normalized record into niche.raw_posts.
type RawPostInsert struct {
	Source         string
	SourceNativeID string
	Author         string
	Content        string
	URL            *string
	PostedAt       *time.Time
	Metadata       json.RawMessage
}

// PendingPost is a raw post with no classification yet, as selected for an
// oracle batch.
type PendingPost struct {
	RawPostID      int64
	Source         string
	SourceNativeID string
	Content        string
	Metadata       json.RawMessage
}

// SourceCount is a per-source raw post count for the stats read surface.
type SourceCount struct {
	Source string `json:"source"`
	Posts  int64  `json:"posts"`
}

// CollectionStats is the read model behind the stats command and endpoint.
type CollectionStats struct {
	TotalPosts int64         `json:"total_posts"`
	Classified int64         `json:"classified"`
	Pending    int64         `json:"pending"`
	Sources    []SourceCount `json:"sources"`
}

// InsertRawPost stores one record unless its (source, source_native_id)
// identity already exists. Returns true when a new row was written; a
// conflict is absorbed silently and reported as false.
func (p *Pool) InsertRawPost(ctx context.Context, row RawPostInsert) (bool, error) {
	const q = `
INSERT INTO niche.raw_posts (source, source_native_id, author, content, url, posted_at, metadata)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (source, source_native_id) DO NOTHING
`

	tag, err := p.Exec(ctx, q,
		row.Source,
		row.SourceNativeID,
		row.Author,
		row.Content,
		row.URL,
		row.PostedAt,
		nullableJSON(row.Metadata),
	)
	if err != nil {
		return false, fmt.Errorf("insert raw post: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// ListPendingPosts returns up to limit posts that have no classification,
// oldest collection first so early backlog is never starved.
func (p *Pool) ListPendingPosts(ctx context.Context, limit int) ([]PendingPost, error) {
	const q = `
SELECT
	rp.raw_post_id,
	rp.source,
	rp.source_native_id,
	rp.content,
	rp.metadata
FROM niche.raw_posts rp
WHERE NOT EXISTS (
	SELECT 1
	FROM niche.classifications c
	WHERE c.raw_post_id = rp.raw_post_id
)
ORDER BY rp.collected_at ASC, rp.raw_post_id ASC
LIMIT $1
`

	rows, err := p.Query(ctx, q, limit)
	if err != nil {
		return nil, fmt.Errorf("query pending posts: %w", err)
	}
	defer rows.Close()

	items := make([]PendingPost, 0, limit)
	for rows.Next() {
		var row PendingPost
		var metadata []byte
		if err := rows.Scan(&row.RawPostID, &row.Source, &row.SourceNativeID, &row.Content, &metadata); err != nil {
			return nil, fmt.Errorf("scan pending post row: %w", err)
		}
		if len(metadata) > 0 {
			row.Metadata = json.RawMessage(metadata)
		}
		items = append(items, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate pending posts: %w", err)
	}

	return items, nil
}

// QueryCollectionStats returns overall and per-source counts plus the
// classified/pending split.
func (p *Pool) QueryCollectionStats(ctx context.Context) (*CollectionStats, error) {
	stats := &CollectionStats{
		Sources: make([]SourceCount, 0, 8),
	}

	const sourcesQuery = `
SELECT rp.source, COUNT(*)::BIGINT AS posts
FROM niche.raw_posts rp
GROUP BY rp.source
ORDER BY posts DESC, rp.source ASC
`

	rows, err := p.Query(ctx, sourcesQuery)
	if err != nil {
		return nil, fmt.Errorf("query source counts: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var row SourceCount
		if err := rows.Scan(&row.Source, &row.Posts); err != nil {
			return nil, fmt.Errorf("scan source count row: %w", err)
		}
		stats.Sources = append(stats.Sources, row)
		stats.TotalPosts += row.Posts
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate source counts: %w", err)
	}

	const splitQuery = `
SELECT
	(SELECT COUNT(*) FROM niche.classifications) AS classified,
	(SELECT COUNT(*) FROM niche.raw_posts rp WHERE NOT EXISTS (
		SELECT 1 FROM niche.classifications c WHERE c.raw_post_id = rp.raw_post_id
	)) AS pending
`

	if err := p.QueryRow(ctx, splitQuery).Scan(&stats.Classified, &stats.Pending); err != nil {
		return nil, fmt.Errorf("query classification split: %w", err)
	}

	return stats, nil
}

func nullableJSON(raw json.RawMessage) any {
	if len(raw) == 0 {
		return nil
	}
	return string(raw)
}
