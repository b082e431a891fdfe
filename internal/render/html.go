// Package render turns report markdown into standalone HTML and PDF.
package render

import (
	"bytes"
	_ "embed"
	"fmt"
	"html"
	"regexp"
	"strings"
	"time"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	gmhtml "github.com/yuin/goldmark/renderer/html"
)

//go:embed style.css
var styleCSS string

// Meta is shown in the report header.
type Meta struct {
	Title       string
	Company     string
	GeneratedAt time.Time
	Badges      []string
	Disclaimer  string
}

var (
	pageBreakRe     = regexp.MustCompile(`<!--\s*pagebreak\s*-->`)
	sectionMarkerRe = regexp.MustCompile(`<!--\s*section:([a-z0-9_]+)\s*-->`)
)

var markdown = goldmark.New(
	goldmark.WithExtensions(extension.GFM),
	// Raw HTML is needed so layout comments survive conversion.
	goldmark.WithRendererOptions(gmhtml.WithUnsafe()),
)

// HTML converts report markdown into a complete HTML document.
func HTML(md string, meta Meta) (string, error) {
	var content bytes.Buffer
	if err := markdown.Convert([]byte(md), &content); err != nil {
		return "", fmt.Errorf("markdown convert: %w", err)
	}
	body := applyPrintLayoutHooks(content.String())

	title := strings.TrimSpace(meta.Title)
	if title == "" {
		title = "Business Assessment"
	}

	var b strings.Builder
	b.WriteString("<!doctype html><html><head><meta charset='utf-8'>")
	b.WriteString("<title>" + html.EscapeString(title) + "</title>")
	b.WriteString("<style>" + styleCSS + "</style></head><body>")
	b.WriteString("<div class='report-wrap'><div class='report-header'><div class='report-meta'>")
	b.WriteString(buildMetaHTML(meta))
	b.WriteString("</div><div class='report-badges'>")
	for _, badge := range meta.Badges {
		if badge = strings.TrimSpace(badge); badge != "" {
			b.WriteString("<span class='report-badge'>" + html.EscapeString(badge) + "</span>")
		}
	}
	b.WriteString("</div></div><div class='report-html'>")
	b.WriteString(body)
	b.WriteString("</div>")
	if d := strings.TrimSpace(meta.Disclaimer); d != "" {
		b.WriteString("<div class='report-disclaimer'>" + html.EscapeString(d) + "</div>")
	}
	b.WriteString("</div></body></html>")
	return b.String(), nil
}

// applyPrintLayoutHooks turns layout comments into elements the stylesheet
// can target.
func applyPrintLayoutHooks(contentHTML string) string {
	out := pageBreakRe.ReplaceAllString(contentHTML, `<div class="page-break"></div>`)
	return sectionMarkerRe.ReplaceAllString(out, `<span class="report-section" id="section-$1"></span>`)
}

func buildMetaHTML(meta Meta) string {
	var out strings.Builder
	if c := strings.TrimSpace(meta.Company); c != "" {
		out.WriteString("<div><strong>Company:</strong> " + html.EscapeString(c) + "</div>")
	}
	if !meta.GeneratedAt.IsZero() {
		out.WriteString("<div><strong>Date:</strong> " + html.EscapeString(meta.GeneratedAt.Format("January 2, 2006")) + "</div>")
	}
	return out.String()
}
