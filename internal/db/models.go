package db

import (
	"encoding/json"
	"time"
)

// RawPost maps niche.raw_posts. Rows are append-only: a post is created at
// most once per (source, source_native_id) and never mutated afterwards.
type RawPost struct {
	RawPostID      int64           `gorm:"column:raw_post_id;primaryKey;autoIncrement"`
	RawPostUUID    string          `gorm:"column:raw_post_uuid;type:uuid;not null;default:gen_random_uuid();unique"`
	Source         string          `gorm:"column:source;type:text;not null;uniqueIndex:ux_raw_posts_source_native_id"`
	SourceNativeID string          `gorm:"column:source_native_id;type:text;not null;uniqueIndex:ux_raw_posts_source_native_id"`
	Author         string          `gorm:"column:author;type:text;not null;default:anonymous"`
	Content        string          `gorm:"column:content;type:text;not null"`
	URL            *string         `gorm:"column:url;type:text"`
	PostedAt       *time.Time      `gorm:"column:posted_at;type:timestamptz"`
	CollectedAt    time.Time       `gorm:"column:collected_at;type:timestamptz;not null;default:now()"`
	Metadata       json.RawMessage `gorm:"column:metadata;type:jsonb"`
}

func (RawPost) TableName() string { return "niche.raw_posts" }

// Classification maps niche.classifications. At most one row exists per raw
// post; the unique index on raw_post_id enforces this even across concurrent
// classifier runs.
type Classification struct {
	ClassificationID   int64     `gorm:"column:classification_id;primaryKey;autoIncrement"`
	ClassificationUUID string    `gorm:"column:classification_uuid;type:uuid;not null;default:gen_random_uuid();unique"`
	RawPostID          int64     `gorm:"column:raw_post_id;type:bigint;not null;unique"`
	Category           string    `gorm:"column:category;type:text;not null"`
	Subcategory        string    `gorm:"column:subcategory;type:text;not null"`
	SentimentScore     int       `gorm:"column:sentiment_score;type:integer;not null"`
	IsAppSolvable      bool      `gorm:"column:is_app_solvable;type:boolean;not null;default:false"`
	Summary            string    `gorm:"column:summary;type:text;not null;default:''"`
	CreatedAt          time.Time `gorm:"column:created_at;type:timestamptz;not null;default:now()"`
}

func (Classification) TableName() string { return "niche.classifications" }

// TrendSnapshot maps niche.trend_snapshots, one row per (date, category),
// refreshed by upsert so re-aggregating a past day is always safe.
type TrendSnapshot struct {
	SnapshotID   int64           `gorm:"column:snapshot_id;primaryKey;autoIncrement"`
	SnapshotUUID string          `gorm:"column:snapshot_uuid;type:uuid;not null;default:gen_random_uuid();unique"`
	Date         time.Time       `gorm:"column:date;type:date;not null;uniqueIndex:ux_trend_snapshots_date_category"`
	Category     string          `gorm:"column:category;type:text;not null;uniqueIndex:ux_trend_snapshots_date_category"`
	PostCount    int             `gorm:"column:post_count;type:integer;not null;default:0"`
	AvgSentiment float64         `gorm:"column:avg_sentiment;type:numeric(4,1);not null;default:0"`
	Platforms    json.RawMessage `gorm:"column:platforms;type:jsonb"`
	TopExample   string          `gorm:"column:top_example;type:text;not null;default:''"`
	UpdatedAt    time.Time       `gorm:"column:updated_at;type:timestamptz;not null;default:now()"`
}

func (TrendSnapshot) TableName() string { return "niche.trend_snapshots" }

func autoMigrateModels() []any {
	return []any{
		&RawPost{},
		&Classification{},
		&TrendSnapshot{},
	}
}
