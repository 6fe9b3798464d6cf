package payloadschema

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed raw_post.schema.json
var rawPostSchemaJSON string

// RawPostPayload is one normalized record as produced by a source collector.
// Collectors own the source-specific parsing; the pipeline only accepts this
// shape.
type RawPostPayload struct {
	PayloadVersion string         `json:"payload_version"`
	Source         string         `json:"source"`
	SourceNativeID string         `json:"source_native_id"`
	Author         *string        `json:"author,omitempty"`
	Content        string         `json:"content"`
	URL            *string        `json:"url,omitempty"`
	PostedAt       *string        `json:"posted_at,omitempty"`
	Metadata       map[string]any `json:"metadata,omitempty"`
}

var (
	compileOnce       sync.Once
	compiledSchema    *jsonschema.Schema
	compiledSchemaErr error
)

// ValidateRawPostPayload checks a collector record against the v1 schema and
// the semantic rules the schema cannot express.
func ValidateRawPostPayload(payload json.RawMessage) (*RawPostPayload, error) {
	value, err := decodeStrictJSON(payload)
	if err != nil {
		return nil, fmt.Errorf("decode payload JSON: %w", err)
	}

	schema, err := loadSchema()
	if err != nil {
		return nil, fmt.Errorf("load schema: %w", err)
	}

	if err := schema.Validate(value); err != nil {
		return nil, fmt.Errorf("schema validation failed: %w", err)
	}

	normalized, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("normalize payload JSON: %w", err)
	}

	var record RawPostPayload
	if err := json.Unmarshal(normalized, &record); err != nil {
		return nil, fmt.Errorf("unmarshal payload: %w", err)
	}

	if err := validateSemantics(&record); err != nil {
		return nil, err
	}

	return &record, nil
}

func loadSchema() (*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		compiler.Draft = jsonschema.Draft2020
		compiler.AssertFormat = true

		if err := compiler.AddResource("raw_post.schema.json", strings.NewReader(rawPostSchemaJSON)); err != nil {
			compiledSchemaErr = fmt.Errorf("add schema resource: %w", err)
			return
		}

		schema, err := compiler.Compile("raw_post.schema.json")
		if err != nil {
			compiledSchemaErr = fmt.Errorf("compile schema: %w", err)
			return
		}

		compiledSchema = schema
	})

	if compiledSchemaErr != nil {
		return nil, compiledSchemaErr
	}
	if compiledSchema == nil {
		return nil, fmt.Errorf("schema not initialized")
	}
	return compiledSchema, nil
}

func decodeStrictJSON(raw []byte) (any, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("payload is empty")
	}

	decoder := json.NewDecoder(bytes.NewReader(trimmed))
	decoder.UseNumber()

	var value any
	if err := decoder.Decode(&value); err != nil {
		return nil, err
	}

	if err := decoder.Decode(&struct{}{}); err != io.EOF {
		return nil, fmt.Errorf("payload contains trailing content")
	}

	return value, nil
}

func validateSemantics(record *RawPostPayload) error {
	if record == nil {
		return fmt.Errorf("payload is nil")
	}

	if strings.TrimSpace(record.PayloadVersion) != "v1" {
		return fmt.Errorf("payload_version must be v1")
	}
	if strings.TrimSpace(record.Source) == "" {
		return fmt.Errorf("source must not be empty")
	}
	if strings.TrimSpace(record.SourceNativeID) == "" {
		return fmt.Errorf("source_native_id must not be empty")
	}
	if strings.TrimSpace(record.Content) == "" {
		return fmt.Errorf("content must not be empty")
	}

	if record.URL != nil {
		if err := validateURI("url", *record.URL); err != nil {
			return err
		}
	}
	if record.PostedAt != nil {
		if _, err := time.Parse(time.RFC3339, strings.TrimSpace(*record.PostedAt)); err != nil {
			return fmt.Errorf("posted_at must be RFC3339: %w", err)
		}
	}

	return nil
}

func validateURI(fieldName, value string) error {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return fmt.Errorf("%s must not be empty", fieldName)
	}
	if _, err := url.ParseRequestURI(trimmed); err != nil {
		return fmt.Errorf("%s is not a valid URI: %w", fieldName, err)
	}
	return nil
}
