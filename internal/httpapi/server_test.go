package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"horse.fit/nichescore/internal/db"
	"horse.fit/nichescore/internal/ingest"
)

type recordingStore struct {
	rows []db.RawPostInsert
}

func (s *recordingStore) InsertRawPost(ctx context.Context, row db.RawPostInsert) (bool, error) {
	s.rows = append(s.rows, row)
	return true, nil
}

func newIngestContext(t *testing.T, body string) (echo.Context, *httptest.ResponseRecorder) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/ingest", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func TestHandleIngestAcceptsValidBatch(t *testing.T) {
	t.Parallel()

	store := &recordingStore{}
	server := NewServer(nil, ingest.NewService(store, zerolog.Nop(), nil), nil, zerolog.Nop(), Options{})

	body := `{"items":[
		{"payload_version":"v1","source":"reddit","source_native_id":"t3_abc","content":"my basil keeps dying","author":"gardener42","posted_at":"2025-06-14T10:00:00Z","metadata":{"tier":"niche_subreddit"}},
		{"payload_version":"v1","source":"tiktok","source_native_id":"777","content":"meal prep chaos"}
	]}`

	c, rec := newIngestContext(t, body)
	if err := server.handleIngest(c); err != nil {
		t.Fatalf("handleIngest: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201; body: %s", rec.Code, rec.Body.String())
	}

	if len(store.rows) != 2 {
		t.Fatalf("stored %d rows, want 2", len(store.rows))
	}
	if store.rows[0].Author != "gardener42" {
		t.Errorf("author = %q", store.rows[0].Author)
	}
	if store.rows[0].PostedAt == nil {
		t.Error("posted_at was dropped")
	}
	var meta map[string]string
	if err := json.Unmarshal(store.rows[0].Metadata, &meta); err != nil || meta["tier"] != "niche_subreddit" {
		t.Errorf("metadata = %s (err %v)", store.rows[0].Metadata, err)
	}
	if store.rows[1].Author != ingest.DefaultAuthor {
		t.Errorf("missing author stored as %q, want %q", store.rows[1].Author, ingest.DefaultAuthor)
	}
}

func TestHandleIngestRejectsInvalidItems(t *testing.T) {
	t.Parallel()

	store := &recordingStore{}
	server := NewServer(nil, ingest.NewService(store, zerolog.Nop(), nil), nil, zerolog.Nop(), Options{})

	body := `{"items":[
		{"payload_version":"v1","source":"reddit","source_native_id":"t3_ok","content":"fine"},
		{"payload_version":"v2","source":"reddit","source_native_id":"t3_bad","content":"wrong version"}
	]}`

	c, rec := newIngestContext(t, body)
	if err := server.handleIngest(c); err != nil {
		t.Fatalf("handleIngest: %v", err)
	}
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if len(store.rows) != 0 {
		t.Fatal("invalid batch was partially stored")
	}
	if !strings.Contains(rec.Body.String(), "items[1]") {
		t.Errorf("response does not point at the bad item: %s", rec.Body.String())
	}
}

func TestHandleIngestRejectsEmptyBatch(t *testing.T) {
	t.Parallel()

	store := &recordingStore{}
	server := NewServer(nil, ingest.NewService(store, zerolog.Nop(), nil), nil, zerolog.Nop(), Options{})

	c, rec := newIngestContext(t, `{"items":[]}`)
	if err := server.handleIngest(c); err != nil {
		t.Fatalf("handleIngest: %v", err)
	}
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestParsePeriod(t *testing.T) {
	t.Parallel()

	cases := []struct {
		raw     string
		want    int
		wantErr bool
	}{
		{"day", 1, false},
		{"week", 7, false},
		{"month", 30, false},
		{"", 7, false},
		{" Week ", 7, false},
		{"year", 0, true},
	}
	for _, tc := range cases {
		got, err := parsePeriod(tc.raw)
		if tc.wantErr {
			if err == nil {
				t.Errorf("parsePeriod(%q) succeeded, want error", tc.raw)
			}
			continue
		}
		if err != nil || got != tc.want {
			t.Errorf("parsePeriod(%q) = %d, %v; want %d", tc.raw, got, err, tc.want)
		}
	}
}

func TestParsePositiveInt(t *testing.T) {
	t.Parallel()

	if got, err := parsePositiveInt("", 10, 1, 50); err != nil || got != 10 {
		t.Errorf("empty input: got %d, %v", got, err)
	}
	if got, err := parsePositiveInt("25", 10, 1, 50); err != nil || got != 25 {
		t.Errorf("valid input: got %d, %v", got, err)
	}
	if _, err := parsePositiveInt("0", 10, 1, 50); err == nil {
		t.Error("below minimum accepted")
	}
	if _, err := parsePositiveInt("99", 10, 1, 50); err == nil {
		t.Error("above maximum accepted")
	}
	if _, err := parsePositiveInt("ten", 10, 1, 50); err == nil {
		t.Error("non-integer accepted")
	}
}
