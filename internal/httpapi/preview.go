package httpapi

import (
	"context"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/labstack/echo/v4"

	"congresssignal.com/signal/internal/db"
	"congresssignal.com/signal/internal/reader"
)

const (
	defaultPreviewMaxChars = 1000
	minPreviewMaxChars     = 200
	maxPreviewMaxChars     = 4000
)

type documentPreview struct {
	DocumentID   int64   `json:"document_id"`
	PackageID    string  `json:"package_id"`
	Title        string  `json:"title"`
	PreviewText  string  `json:"preview_text"`
	Source       string  `json:"source"`
	CharCount    int     `json:"char_count"`
	Truncated    bool    `json:"truncated"`
	PreviewError *string `json:"preview_error,omitempty"`
}

func (s *Server) handleDocumentPreview(c echo.Context) error {
	rawID := strings.TrimSpace(c.Param("document_id"))
	documentID, err := strconv.ParseInt(rawID, 10, 64)
	if err != nil || documentID <= 0 {
		return failValidation(c, map[string]string{"document_id": "must be a positive integer"})
	}

	maxChars, err := parsePositiveInt(
		c.QueryParam("max_chars"),
		defaultPreviewMaxChars,
		minPreviewMaxChars,
		maxPreviewMaxChars,
	)
	if err != nil {
		return failValidation(c, map[string]string{"max_chars": err.Error()})
	}

	doc, err := s.documentStore().GetDocument(c.Request().Context(), documentID)
	if err != nil {
		if db.IsNoRows(err) {
			return failNotFound(c, "Document not found")
		}
		s.logger.Error().Err(err).Int64("document_id", documentID).Msg("load document for preview failed")
		return internalError(c, "Failed to load document")
	}

	previewRaw, source, previewErr := s.buildPreviewText(c.Request().Context(), doc)
	previewText, truncated := reader.TruncateText(previewRaw, maxChars)

	resp := &documentPreview{
		DocumentID:  doc.DocumentID,
		PackageID:   doc.PackageID,
		Title:       doc.Title,
		PreviewText: previewText,
		Source:      source,
		CharCount:   utf8.RuneCountInString(previewText),
		Truncated:   truncated,
	}
	if previewErr != nil {
		msg := previewErr.Error()
		resp.PreviewError = &msg
		s.logger.Warn().
			Err(previewErr).
			Int64("document_id", documentID).
			Str("source", source).
			Msg("preview fell back to catalog fields")
	}

	return success(c, resp)
}

// buildPreviewText prefers readable text extracted from the document's
// HTML rendition and falls back to the catalog's teaser or metadata
// line when the page cannot be fetched.
func (s *Server) buildPreviewText(ctx context.Context, doc *db.DocumentRow) (string, string, error) {
	pageURL := ""
	if doc.HTMLURL != nil {
		pageURL = strings.TrimSpace(*doc.HTMLURL)
	}
	catalog := catalogPreviewText(doc)

	if pageURL != "" {
		text, err := reader.FetchText(ctx, pageURL, doc.Title)
		if err == nil && strings.TrimSpace(text) != "" {
			return text, "reader", nil
		}
		if catalog != "" {
			return catalog, "catalog", err
		}
		return "", "none", err
	}

	if catalog != "" {
		return catalog, "catalog", nil
	}
	return "", "none", nil
}

func catalogPreviewText(doc *db.DocumentRow) string {
	if teaser := strings.TrimSpace(doc.Teaser); teaser != "" {
		return teaser
	}
	return strings.TrimSpace(doc.MetadataLine)
}
