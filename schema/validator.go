// Package docschema embeds and compiles the JSON Schemas for the two
// structured payloads the engine exchanges with the outside world: the
// extraction fields returned by the scrape collaborator and the catalog
// document records written by export and read back by import.
package docschema

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed extraction.schema.json
var extractionSchemaJSON []byte

//go:embed document.schema.json
var documentSchemaJSON []byte

var (
	extractionSchemaOnce sync.Once
	extractionSchema     *jsonschema.Schema
	extractionSchemaErr  error

	documentSchemaOnce sync.Once
	documentSchema     *jsonschema.Schema
	documentSchemaErr  error
)

// ExtractionFields is the validated shape of one extraction result.
type ExtractionFields struct {
	Title              string   `json:"title"`
	CompaniesMentioned []string `json:"companies_mentioned"`
	Sectors            []string `json:"sector"`
	Relevance          []string `json:"relevance"`
	Summary            string   `json:"summary"`
}

// DocumentRecord is the validated shape of one exported catalog row.
type DocumentRecord struct {
	PackageID    string  `json:"package_id"`
	GranuleID    string  `json:"granule_id"`
	Title        string  `json:"title"`
	DocClass     string  `json:"doc_class"`
	PublishDate  string  `json:"publish_date"`
	MetadataLine string  `json:"metadata_line"`
	Teaser       string  `json:"teaser"`
	PDFURL       *string `json:"pdf_url,omitempty"`
	HTMLURL      *string `json:"html_url,omitempty"`
	DetailsURL   *string `json:"details_url,omitempty"`
	IngestedAt   *string `json:"ingested_at,omitempty"`
}

// PublishDay parses the record's publish_date into a UTC day value.
func (r *DocumentRecord) PublishDay() (time.Time, error) {
	day, err := time.ParseInLocation("2006-01-02", r.PublishDate, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse publish_date %q: %w", r.PublishDate, err)
	}
	return day, nil
}

// ExtractionSchemaJSON returns the embedded extraction schema document
// for collaborators that accept a JSON Schema in their request payload.
func ExtractionSchemaJSON() json.RawMessage {
	return json.RawMessage(extractionSchemaJSON)
}

// ValidateExtractionPayload checks raw against the extraction schema and
// returns the decoded fields when valid.
func ValidateExtractionPayload(raw json.RawMessage) (*ExtractionFields, error) {
	schema, err := compiledExtractionSchema()
	if err != nil {
		return nil, err
	}

	decoded, err := decodeStrictJSON(raw)
	if err != nil {
		return nil, err
	}
	if err := schema.Validate(decoded); err != nil {
		return nil, fmt.Errorf("schema validation: %w", err)
	}

	var fields ExtractionFields
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, fmt.Errorf("decode extraction payload: %w", err)
	}
	if err := fields.validateSemantics(); err != nil {
		return nil, err
	}
	return &fields, nil
}

// ValidateDocumentRecord checks raw against the document schema and
// returns the decoded record when valid.
func ValidateDocumentRecord(raw json.RawMessage) (*DocumentRecord, error) {
	schema, err := compiledDocumentSchema()
	if err != nil {
		return nil, err
	}

	decoded, err := decodeStrictJSON(raw)
	if err != nil {
		return nil, err
	}
	if err := schema.Validate(decoded); err != nil {
		return nil, fmt.Errorf("schema validation: %w", err)
	}

	var record DocumentRecord
	if err := json.Unmarshal(raw, &record); err != nil {
		return nil, fmt.Errorf("decode document record: %w", err)
	}
	if err := record.validateSemantics(); err != nil {
		return nil, err
	}
	return &record, nil
}

func (f *ExtractionFields) validateSemantics() error {
	if strings.TrimSpace(f.Summary) == "" {
		return fmt.Errorf("summary must not be blank")
	}
	for i, company := range f.CompaniesMentioned {
		if strings.TrimSpace(company) == "" {
			return fmt.Errorf("companies_mentioned[%d] must not be blank", i)
		}
	}
	return nil
}

func (r *DocumentRecord) validateSemantics() error {
	if _, err := r.PublishDay(); err != nil {
		return err
	}
	if r.IngestedAt != nil {
		if _, err := time.Parse(time.RFC3339, *r.IngestedAt); err != nil {
			return fmt.Errorf("parse ingested_at %q: %w", *r.IngestedAt, err)
		}
	}
	return nil
}

func compiledExtractionSchema() (*jsonschema.Schema, error) {
	extractionSchemaOnce.Do(func() {
		extractionSchema, extractionSchemaErr = compileSchema("extraction.schema.json", extractionSchemaJSON)
	})
	return extractionSchema, extractionSchemaErr
}

func compiledDocumentSchema() (*jsonschema.Schema, error) {
	documentSchemaOnce.Do(func() {
		documentSchema, documentSchemaErr = compileSchema("document.schema.json", documentSchemaJSON)
	})
	return documentSchema, documentSchemaErr
}

func compileSchema(name string, source []byte) (*jsonschema.Schema, error) {
	compiler := jsonschema.NewCompiler()
	compiler.AssertFormat = true
	if err := compiler.AddResource(name, bytes.NewReader(source)); err != nil {
		return nil, fmt.Errorf("add schema resource %s: %w", name, err)
	}
	schema, err := compiler.Compile(name)
	if err != nil {
		return nil, fmt.Errorf("compile schema %s: %w", name, err)
	}
	return schema, nil
}

func decodeStrictJSON(raw json.RawMessage) (any, error) {
	decoder := json.NewDecoder(bytes.NewReader(raw))
	decoder.UseNumber()

	var decoded any
	if err := decoder.Decode(&decoded); err != nil {
		return nil, fmt.Errorf("decode JSON: %w", err)
	}
	if decoder.More() {
		return nil, fmt.Errorf("unexpected trailing JSON content")
	}
	return decoded, nil
}
