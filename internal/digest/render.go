// Package digest assembles and sends the two daily emails: the
// rule-matched standard digest and the semantically selected pro
// digest.
package digest

import (
	"fmt"
	"strings"
	"time"

	"congresssignal.com/signal/internal/delivery"
)

const subjectDateLayout = "January 2, 2006"

// StandardItem is one rendered entry of a standard digest.
type StandardItem struct {
	Title     string
	Summary   string
	Sectors   []string
	Relevance []string
	Companies []string
	LinkURL   string
}

var htmlEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&#39;",
)

func escapeHTML(s string) string {
	return htmlEscaper.Replace(s)
}

// StandardSubject is the standard digest subject line.
func StandardSubject(count int, date time.Time) string {
	return fmt.Sprintf("Congress Signal: %d updates for %s", count, date.UTC().Format(subjectDateLayout))
}

// ProSubject is the pro digest subject line.
func ProSubject(count int, date time.Time) string {
	return fmt.Sprintf("Congress Signal Pro: %d insights for %s", count, date.UTC().Format(subjectDateLayout))
}

// RenderStandard builds the standard digest HTML body.
func RenderStandard(date time.Time, items []StandardItem) string {
	var b strings.Builder

	b.WriteString(`<!DOCTYPE html><html><head><meta charset="utf-8"></head>`)
	b.WriteString(`<body style="margin:0;padding:0;background-color:#f4f4f5;font-family:Georgia,'Times New Roman',serif;">`)
	b.WriteString(`<div style="max-width:640px;margin:0 auto;padding:24px;">`)

	b.WriteString(`<div style="background-color:#1e3a5f;color:#ffffff;padding:28px 32px;border-radius:8px 8px 0 0;">`)
	b.WriteString(`<h1 style="margin:0;font-size:24px;letter-spacing:0.5px;">Congress Signal</h1>`)
	b.WriteString(`<p style="margin:8px 0 0;font-size:14px;color:#bcd0e5;">`)
	b.WriteString(escapeHTML(date.UTC().Format(subjectDateLayout)))
	b.WriteString(` &middot; `)
	b.WriteString(fmt.Sprintf("%d update", len(items)))
	if len(items) != 1 {
		b.WriteString("s")
	}
	b.WriteString(` matching your interests</p></div>`)

	b.WriteString(`<div style="background-color:#ffffff;padding:8px 32px 24px;border-radius:0 0 8px 8px;">`)
	for _, item := range items {
		writeStandardItem(&b, item)
	}
	b.WriteString(`</div>`)

	writeFooter(&b, "You are receiving this digest because you subscribed to Congress Signal.")

	b.WriteString(`</div></body></html>`)
	return b.String()
}

// RenderPro builds the pro digest HTML body from summarized candidates.
func RenderPro(date time.Time, items []delivery.PendingItem) string {
	var b strings.Builder

	b.WriteString(`<!DOCTYPE html><html><head><meta charset="utf-8"></head>`)
	b.WriteString(`<body style="margin:0;padding:0;background-color:#f4f4f5;font-family:Georgia,'Times New Roman',serif;">`)
	b.WriteString(`<div style="max-width:640px;margin:0 auto;padding:24px;">`)

	b.WriteString(`<div style="background-color:#2d1b4e;color:#ffffff;padding:28px 32px;border-radius:8px 8px 0 0;">`)
	b.WriteString(`<h1 style="margin:0;font-size:24px;letter-spacing:0.5px;">Congress Signal <span style="color:#c9b8e8;">Pro</span></h1>`)
	b.WriteString(`<p style="margin:8px 0 0;font-size:14px;color:#c9b8e8;">`)
	b.WriteString(escapeHTML(date.UTC().Format(subjectDateLayout)))
	b.WriteString(` &middot; `)
	b.WriteString(fmt.Sprintf("%d insight", len(items)))
	if len(items) != 1 {
		b.WriteString("s")
	}
	b.WriteString(` selected for your business</p></div>`)

	b.WriteString(`<div style="background-color:#ffffff;padding:8px 32px 24px;border-radius:0 0 8px 8px;">`)
	for _, item := range items {
		writeProItem(&b, item)
	}
	b.WriteString(`</div>`)

	writeFooter(&b, "You are receiving this digest because you subscribed to Congress Signal Pro.")

	b.WriteString(`</div></body></html>`)
	return b.String()
}

func writeStandardItem(b *strings.Builder, item StandardItem) {
	b.WriteString(`<div style="padding:20px 0;border-bottom:1px solid #e4e4e7;">`)

	b.WriteString(`<h2 style="margin:0 0 8px;font-size:17px;color:#18181b;">`)
	if item.LinkURL != "" {
		b.WriteString(`<a href="`)
		b.WriteString(escapeHTML(item.LinkURL))
		b.WriteString(`" style="color:#1e3a5f;text-decoration:none;">`)
		b.WriteString(escapeHTML(item.Title))
		b.WriteString(`</a>`)
	} else {
		b.WriteString(escapeHTML(item.Title))
	}
	b.WriteString(`</h2>`)

	b.WriteString(`<p style="margin:0 0 10px;font-size:12px;">`)
	for _, tier := range item.Relevance {
		b.WriteString(relevanceBadge(tier))
	}
	for _, sector := range item.Sectors {
		b.WriteString(`<span style="display:inline-block;margin-right:6px;padding:2px 8px;background-color:#eef2f7;color:#1e3a5f;border-radius:10px;">`)
		b.WriteString(escapeHTML(sector))
		b.WriteString(`</span>`)
	}
	b.WriteString(`</p>`)

	b.WriteString(`<p style="margin:0;font-size:14px;line-height:1.6;color:#3f3f46;">`)
	b.WriteString(escapeHTML(item.Summary))
	b.WriteString(`</p>`)

	if len(item.Companies) > 0 {
		b.WriteString(`<p style="margin:10px 0 0;font-size:12px;color:#71717a;">Mentioned: `)
		b.WriteString(escapeHTML(strings.Join(item.Companies, ", ")))
		b.WriteString(`</p>`)
	}

	b.WriteString(`</div>`)
}

func writeProItem(b *strings.Builder, item delivery.PendingItem) {
	b.WriteString(`<div style="padding:20px 0;border-bottom:1px solid #e4e4e7;">`)

	link := proItemLink(item)
	b.WriteString(`<h2 style="margin:0 0 10px;font-size:17px;color:#18181b;">`)
	if link != "" {
		b.WriteString(`<a href="`)
		b.WriteString(escapeHTML(link))
		b.WriteString(`" style="color:#2d1b4e;text-decoration:none;">`)
		b.WriteString(escapeHTML(item.Title))
		b.WriteString(`</a>`)
	} else {
		b.WriteString(escapeHTML(item.Title))
	}
	b.WriteString(`</h2>`)

	b.WriteString(`<p style="margin:0;font-size:14px;line-height:1.6;color:#3f3f46;">`)
	b.WriteString(escapeHTML(item.Summary))
	b.WriteString(`</p>`)

	b.WriteString(`</div>`)
}

func writeFooter(b *strings.Builder, reason string) {
	b.WriteString(`<div style="padding:20px 32px;text-align:center;">`)
	b.WriteString(`<p style="margin:0;font-size:12px;color:#a1a1aa;">`)
	b.WriteString(escapeHTML(reason))
	b.WriteString(` Reply to this email to unsubscribe.</p>`)
	b.WriteString(`</div>`)
}

func relevanceBadge(tier string) string {
	color := "#6b7280"
	switch strings.ToLower(strings.TrimSpace(tier)) {
	case "high":
		color = "#dc2626"
	case "medium":
		color = "#d97706"
	}
	return fmt.Sprintf(
		`<span style="display:inline-block;margin-right:6px;padding:2px 8px;background-color:%s;color:#ffffff;border-radius:10px;text-transform:uppercase;">%s</span>`,
		color, escapeHTML(tier),
	)
}

func proItemLink(item delivery.PendingItem) string {
	switch {
	case item.DetailsURL != nil && *item.DetailsURL != "":
		return *item.DetailsURL
	case item.HTMLURL != nil && *item.HTMLURL != "":
		return *item.HTMLURL
	case item.PDFURL != nil && *item.PDFURL != "":
		return *item.PDFURL
	default:
		return ""
	}
}
