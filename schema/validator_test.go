package payloadschema

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestValidateRawPostPayload_Valid(t *testing.T) {
	payload := json.RawMessage(`{
		"payload_version":"v1",
		"source":"reddit",
		"source_native_id":"t3_1abcd",
		"author":"gardener42",
		"content":"I wish there was an app that told me when to water each bed",
		"url":"https://reddit.com/r/gardening/comments/1abcd",
		"posted_at":"2026-08-29T14:00:00Z",
		"metadata":{
			"subreddit":"gardening",
			"tier":"niche_subreddit",
			"score":120
		}
	}`)

	record, err := ValidateRawPostPayload(payload)
	if err != nil {
		t.Fatalf("expected payload to be valid, got error: %v", err)
	}

	if record.Source != "reddit" {
		t.Fatalf("expected source=reddit, got %q", record.Source)
	}
	if record.SourceNativeID != "t3_1abcd" {
		t.Fatalf("expected source_native_id=t3_1abcd, got %q", record.SourceNativeID)
	}
}

func TestValidateRawPostPayload_MissingNativeID(t *testing.T) {
	payload := json.RawMessage(`{
		"payload_version":"v1",
		"source":"tiktok",
		"content":"why is there no app for this"
	}`)

	_, err := ValidateRawPostPayload(payload)
	if err == nil {
		t.Fatalf("expected validation to fail for missing source_native_id")
	}
}

func TestValidateRawPostPayload_WhitespaceContent(t *testing.T) {
	payload := json.RawMessage(`{
		"payload_version":"v1",
		"source":"hackernews",
		"source_native_id":"99887766",
		"content":"   "
	}`)

	_, err := ValidateRawPostPayload(payload)
	if err == nil {
		t.Fatalf("expected validation to fail for whitespace-only content")
	}
	if !strings.Contains(err.Error(), "content must not be empty") {
		t.Fatalf("expected content semantic error, got: %v", err)
	}
}

func TestValidateRawPostPayload_BadPostedAt(t *testing.T) {
	payload := json.RawMessage(`{
		"payload_version":"v1",
		"source":"appstore_ios",
		"source_native_id":"review-1",
		"content":"the export button never works",
		"posted_at":"yesterday"
	}`)

	_, err := ValidateRawPostPayload(payload)
	if err == nil {
		t.Fatalf("expected validation to fail for non-RFC3339 posted_at")
	}
}

func TestValidateRawPostPayload_TrailingContent(t *testing.T) {
	payload := json.RawMessage(`{"payload_version":"v1","source":"x","source_native_id":"1","content":"a"} extra`)

	_, err := ValidateRawPostPayload(payload)
	if err == nil {
		t.Fatalf("expected validation to fail for trailing content")
	}
}
