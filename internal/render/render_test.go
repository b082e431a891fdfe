package render

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleMarkdown = "# Business Assessment: Acme\n\n" +
	"<!-- section:executive_summary -->\n## Executive Summary\n\nText.\n\n" +
	"<!-- pagebreak -->\n\n" +
	"<!-- section:roi -->\n## Return on Investment\n\n| Item | Amount |\n|------|--------|\n| Setup | $13,800 |\n"

func TestApplyPrintLayoutHooks(t *testing.T) {
	in := "<p>a</p>\n<!-- pagebreak -->\n<!-- section:current_state -->\n<h2>Current</h2>"
	out := applyPrintLayoutHooks(in)
	assert.Contains(t, out, `<div class="page-break"></div>`)
	assert.Contains(t, out, `<span class="report-section" id="section-current_state"></span>`)
	assert.NotContains(t, out, "<!--")
}

func TestApplyPrintLayoutHooksNoopWithoutMarkers(t *testing.T) {
	in := "<h2>Executive Summary</h2><p>x</p>"
	assert.Equal(t, in, applyPrintLayoutHooks(in))
}

func TestHTMLDocument(t *testing.T) {
	doc, err := HTML(sampleMarkdown, Meta{
		Title:       "Acme <assessment>",
		Company:     "Acme & Co",
		GeneratedAt: time.Date(2026, 10, 17, 0, 0, 0, 0, time.UTC),
		Badges:      []string{"Quality: high", " "},
		Disclaimer:  "Estimates only.",
	})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(doc, "<!doctype html>"))
	assert.Contains(t, doc, "<title>Acme &lt;assessment&gt;</title>")
	assert.Contains(t, doc, "<strong>Company:</strong> Acme &amp; Co")
	assert.Contains(t, doc, "October 17, 2026")
	assert.Equal(t, 1, strings.Count(doc, "class='report-badge'"))
	assert.Contains(t, doc, `id="section-executive_summary"`)
	assert.Contains(t, doc, `id="section-roi"`)
	assert.Contains(t, doc, `<div class="page-break"></div>`)
	assert.Contains(t, doc, "<td>$13,800</td>")
	assert.Contains(t, doc, "Estimates only.")
	assert.Contains(t, doc, ".page-break")
}

func TestHTMLDefaultsTitle(t *testing.T) {
	doc, err := HTML("plain", Meta{})
	require.NoError(t, err)
	assert.Contains(t, doc, "<title>Business Assessment</title>")
	assert.NotContains(t, doc, "report-disclaimer'>")
}

func TestPDFRendererRejectsEmptyDocument(t *testing.T) {
	_, err := NewPDFRenderer(DefaultLayout()).Render(context.Background(), "")
	assert.Error(t, err)
}

func TestParsePageSize(t *testing.T) {
	cases := []struct {
		in   string
		want PageSize
	}{
		{"", Letter},
		{"letter", Letter},
		{" A4 ", A4},
	}
	for _, tc := range cases {
		got, err := ParsePageSize(tc.in)
		require.NoError(t, err)
		assert.Equal(t, tc.want, got)
	}
	_, err := ParsePageSize("legal")
	assert.Error(t, err)
}

func TestLayoutPrintParams(t *testing.T) {
	l := LayoutFor(A4, Meta{Company: "Acme <Labs>"})
	p := l.printParams()
	assert.Equal(t, 8.27, p.PaperWidth)
	assert.Equal(t, 11.69, p.PaperHeight)
	assert.Equal(t, 0.5, p.MarginTop)
	assert.Equal(t, 0.75, p.MarginBottom)
	assert.True(t, p.DisplayHeaderFooter)
	assert.Contains(t, p.FooterTemplate, "Acme &lt;Labs&gt; · Business Assessment")
	assert.Contains(t, p.FooterTemplate, `class="totalPages"`)

	p = Layout{Margin: -1}.printParams()
	assert.Equal(t, Letter.Width, p.PaperWidth)
	assert.Equal(t, 0.0, p.MarginLeft)
	assert.Equal(t, 0.25, p.MarginBottom)
}

func TestPDFRender(t *testing.T) {
	r := NewPDFRenderer(LayoutFor(Letter, Meta{Company: "Acme"}))
	if !r.Available() {
		t.Skip("chromium not installed")
	}
	doc, err := HTML(sampleMarkdown, Meta{Company: "Acme"})
	require.NoError(t, err)
	pdf, err := r.Render(context.Background(), doc)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(pdf, []byte("%PDF")))
}
