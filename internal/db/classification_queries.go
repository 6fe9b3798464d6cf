package db

import (
	"context"
	"fmt"
)

// ClassificationInsert carries one oracle judgment (or the quarantine
// sentinel) into niche.classifications.
type ClassificationInsert struct {
	RawPostID      int64
	Category       string
	Subcategory    string
	SentimentScore int
	IsAppSolvable  bool
	Summary        string
}

// InsertClassification stores a judgment unless the post already has one.
// The unique index on raw_post_id makes "at most one classification" an
// enforced invariant; a conflict is reported as false, not an error.
func (p *Pool) InsertClassification(ctx context.Context, row ClassificationInsert) (bool, error) {
	const q = `
INSERT INTO niche.classifications (raw_post_id, category, subcategory, sentiment_score, is_app_solvable, summary)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (raw_post_id) DO NOTHING
`

	tag, err := p.Exec(ctx, q,
		row.RawPostID,
		row.Category,
		row.Subcategory,
		row.SentimentScore,
		row.IsAppSolvable,
		row.Summary,
	)
	if err != nil {
		return false, fmt.Errorf("insert classification: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}
