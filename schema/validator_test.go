package docschema

import (
	"encoding/json"
	"strings"
	"testing"
)

func validExtractionJSON() map[string]any {
	return map[string]any{
		"title":               "Tariff Adjustment Notice",
		"companies_mentioned": []string{"Acme Corp"},
		"sector":              []string{"manufacturing", "retail"},
		"relevance":           []string{"low", "high"},
		"summary":             "The Commerce Department finalized new tariff rates on imported steel.",
	}
}

func marshal(t *testing.T, value any) json.RawMessage {
	t.Helper()
	raw, err := json.Marshal(value)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	return raw
}

func TestValidateExtractionPayloadAccepts(t *testing.T) {
	t.Parallel()

	fields, err := ValidateExtractionPayload(marshal(t, validExtractionJSON()))
	if err != nil {
		t.Fatalf("expected valid payload, got %v", err)
	}
	if len(fields.Sectors) != 2 || fields.Sectors[0] != "manufacturing" || fields.Sectors[1] != "retail" {
		t.Fatalf("sectors = %v", fields.Sectors)
	}
	if len(fields.Relevance) != 2 || fields.Relevance[0] != "low" || fields.Relevance[1] != "high" {
		t.Fatalf("relevance = %v", fields.Relevance)
	}
	if len(fields.CompaniesMentioned) != 1 || fields.CompaniesMentioned[0] != "Acme Corp" {
		t.Fatalf("companies = %v", fields.CompaniesMentioned)
	}
}

func TestValidateExtractionPayloadRejects(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		mutate  func(map[string]any)
		errPart string
	}{
		{
			name:    "missing summary",
			mutate:  func(m map[string]any) { delete(m, "summary") },
			errPart: "schema validation",
		},
		{
			name:    "sector not an array",
			mutate:  func(m map[string]any) { m["sector"] = "manufacturing" },
			errPart: "schema validation",
		},
		{
			name:    "empty relevance list",
			mutate:  func(m map[string]any) { m["relevance"] = []string{} },
			errPart: "schema validation",
		},
		{
			name:    "unknown sector",
			mutate:  func(m map[string]any) { m["sector"] = []string{"aerospace"} },
			errPart: "schema validation",
		},
		{
			name:    "unknown relevance tier",
			mutate:  func(m map[string]any) { m["relevance"] = []string{"critical"} },
			errPart: "schema validation",
		},
		{
			name:    "companies not an array",
			mutate:  func(m map[string]any) { m["companies_mentioned"] = "Acme Corp" },
			errPart: "schema validation",
		},
		{
			name:    "blank summary",
			mutate:  func(m map[string]any) { m["summary"] = "   " },
			errPart: "summary must not be blank",
		},
		{
			name:    "blank company entry",
			mutate:  func(m map[string]any) { m["companies_mentioned"] = []string{" \t"} },
			errPart: "must not be blank",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			payload := validExtractionJSON()
			tc.mutate(payload)
			_, err := ValidateExtractionPayload(marshal(t, payload))
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tc.errPart) {
				t.Fatalf("error %q does not mention %q", err, tc.errPart)
			}
		})
	}
}

func TestValidateExtractionPayloadRejectsTrailingContent(t *testing.T) {
	t.Parallel()

	raw := append(marshal(t, validExtractionJSON()), []byte(`{"another":true}`)...)
	if _, err := ValidateExtractionPayload(raw); err == nil {
		t.Fatal("expected trailing content to be rejected")
	}
}

func TestValidateDocumentRecord(t *testing.T) {
	t.Parallel()

	html := "https://api.govinfo.gov/content/pkg/CREC-2026-02-03/html/CREC-2026-02-03-pt1.htm"
	record := map[string]any{
		"package_id":    "CREC-2026-02-03",
		"granule_id":    "",
		"title":         "Congressional Record Volume 172",
		"doc_class":     "CREC",
		"publish_date":  "2026-02-03",
		"metadata_line": "Daily Edition",
		"teaser":        "",
		"html_url":      html,
	}

	decoded, err := ValidateDocumentRecord(marshal(t, record))
	if err != nil {
		t.Fatalf("expected valid record, got %v", err)
	}
	day, err := decoded.PublishDay()
	if err != nil {
		t.Fatalf("PublishDay: %v", err)
	}
	if got := day.Format("2006-01-02"); got != "2026-02-03" {
		t.Fatalf("publish day = %s", got)
	}
	if decoded.HTMLURL == nil || *decoded.HTMLURL != html {
		t.Fatalf("html_url = %v", decoded.HTMLURL)
	}

	record["publish_date"] = "February 3"
	if _, err := ValidateDocumentRecord(marshal(t, record)); err == nil {
		t.Fatal("expected malformed publish_date to be rejected")
	}

	delete(record, "publish_date")
	if _, err := ValidateDocumentRecord(marshal(t, record)); err == nil {
		t.Fatal("expected missing publish_date to be rejected")
	}
}
