package render

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"html"
	"os"
	"strings"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
)

const pdfTimeout = 30 * time.Second

// PageSize is a paper size in inches.
type PageSize struct {
	Name          string
	Width, Height float64
}

var (
	Letter = PageSize{Name: "letter", Width: 8.5, Height: 11}
	A4     = PageSize{Name: "a4", Width: 8.27, Height: 11.69}
)

// ParsePageSize maps a config value onto a known paper size. Empty means letter.
func ParsePageSize(name string) (PageSize, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", Letter.Name:
		return Letter, nil
	case A4.Name:
		return A4, nil
	}
	return PageSize{}, fmt.Errorf("unknown page size %q (want letter or a4)", name)
}

// Layout controls the printed page. Margins are in inches.
type Layout struct {
	Page       PageSize
	// Margin applies to top, left and right; the bottom margin leaves room for
	// the footer.
	Margin     float64
	// FooterText is printed left of the page counter, usually the company.
	FooterText string
}

func DefaultLayout() Layout {
	return Layout{Page: Letter, Margin: 0.5}
}

// LayoutFor builds the print layout for a report page size and its metadata.
func LayoutFor(size PageSize, meta Meta) Layout {
	l := DefaultLayout()
	l.Page = size
	if c := strings.TrimSpace(meta.Company); c != "" {
		l.FooterText = c + " · Business Assessment"
	}
	return l
}

func (l Layout) footerTemplate() string {
	var b strings.Builder
	b.WriteString(`<div style="width:100%;font-size:8px;color:#666;padding:0 0.4in;display:flex;justify-content:space-between;">`)
	b.WriteString("<span>" + html.EscapeString(l.FooterText) + "</span>")
	b.WriteString(`<span>Page <span class="pageNumber"></span> of <span class="totalPages"></span></span></div>`)
	return b.String()
}

func (l Layout) printParams() *page.PrintToPDFParams {
	size := l.Page
	if size.Width <= 0 || size.Height <= 0 {
		size = Letter
	}
	margin := l.Margin
	if margin < 0 {
		margin = 0
	}
	return page.PrintToPDF().
		WithPrintBackground(true).
		WithDisplayHeaderFooter(true).
		WithHeaderTemplate(`<div></div>`).
		WithFooterTemplate(l.footerTemplate()).
		WithPaperWidth(size.Width).
		WithPaperHeight(size.Height).
		WithMarginTop(margin).
		WithMarginBottom(margin + 0.25).
		WithMarginLeft(margin).
		WithMarginRight(margin)
}

// PDFRenderer prints HTML documents through a headless Chromium.
type PDFRenderer struct {
	chromePath string
	layout     Layout
}

func NewPDFRenderer(layout Layout) *PDFRenderer {
	return &PDFRenderer{chromePath: DetectChromePath(), layout: layout}
}

// Available reports whether a Chromium binary was found. chromedp can still
// locate one on PATH when it is false.
func (r *PDFRenderer) Available() bool {
	return r.chromePath != ""
}

func (r *PDFRenderer) Render(ctx context.Context, htmlDoc string) ([]byte, error) {
	if htmlDoc == "" {
		return nil, errors.New("render pdf: empty document")
	}
	ctx, cancel := context.WithTimeout(ctx, pdfTimeout)
	defer cancel()

	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.NoSandbox,
		chromedp.DisableGPU,
		chromedp.Flag("disable-dev-shm-usage", true),
	)
	if r.chromePath != "" {
		allocOpts = append(allocOpts, chromedp.ExecPath(r.chromePath))
	}
	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, allocOpts...)
	defer allocCancel()
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)
	defer browserCancel()

	params := r.layout.printParams()
	var pdf []byte
	err := chromedp.Run(browserCtx,
		chromedp.Navigate("data:text/html;base64,"+base64.StdEncoding.EncodeToString([]byte(htmlDoc))),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.ActionFunc(func(ctx context.Context) error {
			out, _, err := params.Do(ctx)
			pdf = out
			return err
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("render pdf (%s): %w", r.layout.Page.Name, err)
	}
	return pdf, nil
}

// DetectChromePath prefers CHROME_PATH, then common install locations.
func DetectChromePath() string {
	if p := os.Getenv("CHROME_PATH"); p != "" {
		return p
	}
	for _, p := range []string{
		"/usr/bin/chromium",
		"/usr/bin/chromium-browser",
		"/usr/bin/google-chrome",
		"/Applications/Google Chrome.app/Contents/MacOS/Google Chrome",
	} {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}
