package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/rs/zerolog"

	"horse.fit/nichescore/internal/db"
)

type stubStore struct {
	rows      []db.RawPostInsert
	known     map[string]bool
	insertErr error
}

func (s *stubStore) InsertRawPost(ctx context.Context, row db.RawPostInsert) (bool, error) {
	if s.insertErr != nil {
		return false, s.insertErr
	}
	key := row.Source + "/" + row.SourceNativeID
	if s.known == nil {
		s.known = map[string]bool{}
	}
	if s.known[key] {
		return false, nil
	}
	s.known[key] = true
	s.rows = append(s.rows, row)
	return true, nil
}

func TestIngestCountsInsertsAndDuplicates(t *testing.T) {
	t.Parallel()

	store := &stubStore{}
	svc := NewService(store, zerolog.Nop(), nil)

	records := []Record{
		{Source: "reddit", SourceNativeID: "t3_abc", Content: "my herbs keep dying"},
		{Source: "reddit", SourceNativeID: "t3_def", Content: "no good tenant screening"},
		{Source: "reddit", SourceNativeID: "t3_abc", Content: "my herbs keep dying"},
	}

	result, err := svc.Ingest(context.Background(), records)
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}

	want := Result{Received: 3, Inserted: 2, Duplicates: 1}
	if result != want {
		t.Fatalf("result = %+v, want %+v", result, want)
	}
}

func TestIngestDefaultsAuthor(t *testing.T) {
	t.Parallel()

	store := &stubStore{}
	svc := NewService(store, zerolog.Nop(), nil)

	_, err := svc.Ingest(context.Background(), []Record{
		{Source: "x", SourceNativeID: "123", Content: "content", Author: "  "},
		{Source: "x", SourceNativeID: "124", Content: "content", Author: "gardener42"},
	})
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}

	if store.rows[0].Author != DefaultAuthor {
		t.Errorf("blank author stored as %q, want %q", store.rows[0].Author, DefaultAuthor)
	}
	if store.rows[1].Author != "gardener42" {
		t.Errorf("author = %q, want preserved", store.rows[1].Author)
	}
}

func TestIngestRejectsIncompleteRecords(t *testing.T) {
	t.Parallel()

	store := &stubStore{}
	svc := NewService(store, zerolog.Nop(), nil)

	result, err := svc.Ingest(context.Background(), []Record{
		{Source: "", SourceNativeID: "1", Content: "c"},
		{Source: "x", SourceNativeID: "", Content: "c"},
		{Source: "x", SourceNativeID: "2", Content: "   "},
		{Source: "x", SourceNativeID: "3", Content: "fine"},
	})
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}

	if result.Failed != 3 || result.Inserted != 1 {
		t.Fatalf("result = %+v, want 3 failed and 1 inserted", result)
	}
}

func TestIngestLowercasesSource(t *testing.T) {
	t.Parallel()

	store := &stubStore{}
	svc := NewService(store, zerolog.Nop(), nil)

	if _, err := svc.Ingest(context.Background(), []Record{
		{Source: "  Reddit ", SourceNativeID: "t3_x", Content: "c"},
	}); err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if store.rows[0].Source != "reddit" {
		t.Fatalf("source = %q, want normalized", store.rows[0].Source)
	}
}

func TestIngestBackfillsRedditTier(t *testing.T) {
	t.Parallel()

	store := &stubStore{}
	svc := NewService(store, zerolog.Nop(), nil)

	if _, err := svc.Ingest(context.Background(), []Record{
		{Source: "reddit", SourceNativeID: "1", Content: "c",
			Metadata: json.RawMessage(`{"subreddit":"AppIdeas"}`)},
		{Source: "reddit", SourceNativeID: "2", Content: "c",
			Metadata: json.RawMessage(`{"subreddit":"gardening"}`)},
		{Source: "reddit", SourceNativeID: "3", Content: "c",
			Metadata: json.RawMessage(`{"subreddit":"gardening","tier":"general_subreddit"}`)},
		{Source: "x", SourceNativeID: "4", Content: "c",
			Metadata: json.RawMessage(`{"subreddit":"gardening"}`)},
	}); err != nil {
		t.Fatalf("Ingest: %v", err)
	}

	tierOf := func(raw json.RawMessage) string {
		var fields struct {
			Tier string `json:"tier"`
		}
		if err := json.Unmarshal(raw, &fields); err != nil {
			t.Fatalf("unmarshal stored metadata: %v", err)
		}
		return fields.Tier
	}

	if got := tierOf(store.rows[0].Metadata); got != "idea_subreddit" {
		t.Errorf("AppIdeas tier = %q, want idea_subreddit", got)
	}
	if got := tierOf(store.rows[1].Metadata); got != "niche_subreddit" {
		t.Errorf("gardening tier = %q, want niche_subreddit", got)
	}
	if got := tierOf(store.rows[2].Metadata); got != "general_subreddit" {
		t.Errorf("explicit tier = %q, want untouched", got)
	}
	if got := tierOf(store.rows[3].Metadata); got != "" {
		t.Errorf("non-reddit record gained tier %q", got)
	}
}

func TestIngestContinuesPastStoreErrors(t *testing.T) {
	t.Parallel()

	store := &stubStore{insertErr: errors.New("connection reset")}
	svc := NewService(store, zerolog.Nop(), nil)

	result, err := svc.Ingest(context.Background(), []Record{
		{Source: "x", SourceNativeID: "1", Content: "c"},
		{Source: "x", SourceNativeID: "2", Content: "c"},
	})
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if result.Failed != 2 || result.Inserted != 0 {
		t.Fatalf("result = %+v, want every record failed", result)
	}
}
