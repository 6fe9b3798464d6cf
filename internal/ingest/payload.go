package ingest

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	payloadschema "horse.fit/nichescore/schema"
)

// RecordFromPayload converts a schema-validated collector payload into an
// ingestable record.
func RecordFromPayload(payload *payloadschema.RawPostPayload) (Record, error) {
	if payload == nil {
		return Record{}, fmt.Errorf("payload is nil")
	}

	record := Record{
		Source:         payload.Source,
		SourceNativeID: payload.SourceNativeID,
		Content:        payload.Content,
		URL:            payload.URL,
	}
	if payload.Author != nil {
		record.Author = *payload.Author
	}
	if payload.PostedAt != nil {
		postedAt, err := time.Parse(time.RFC3339, strings.TrimSpace(*payload.PostedAt))
		if err != nil {
			return Record{}, fmt.Errorf("posted_at must be RFC3339: %w", err)
		}
		utc := postedAt.UTC()
		record.PostedAt = &utc
	}
	if payload.Metadata != nil {
		metadata, err := json.Marshal(payload.Metadata)
		if err != nil {
			return Record{}, fmt.Errorf("marshal metadata: %w", err)
		}
		record.Metadata = metadata
	}
	return record, nil
}
