// pkg/render/fpdf.go

package render

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/jung-kurt/gofpdf"
	"golang.org/x/net/html"
)

// FPDFEngine lays out the visible text of the markup without a browser.
// Styling is dropped; table cells are separated by a column gap. It serves as
// a fallback on hosts where Chrome is not installed.
type FPDFEngine struct {
	FontFamily string
	FontSize   float64
}

func NewFPDFEngine() *FPDFEngine {
	return &FPDFEngine{FontFamily: "Helvetica", FontSize: 10}
}

// glyphs outside cp1252 that the core fonts cannot draw
var glyphReplacer = strings.NewReplacer("₹", "Rs.")

func (e *FPDFEngine) PrintToPDF(ctx context.Context, markup string, opts PageOptions) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, commFailure(ctx, "start", err)
	}

	lines, err := visibleLines(markup)
	if err != nil {
		return nil, Fail(Unknown, fmt.Errorf("parse markup: %w", err))
	}

	const ptPerInch = 72
	margin := opts.MarginInches() * ptPerInch
	pdf := gofpdf.NewCustom(&gofpdf.InitType{
		OrientationStr: "P",
		UnitStr:        "pt",
		Size:           gofpdf.SizeType{Wd: opts.PaperWidth * ptPerInch, Ht: opts.PaperHeight * ptPerInch},
	})
	pdf.SetMargins(margin, margin, margin)
	pdf.SetAutoPageBreak(true, margin)
	pdf.AddPage()
	pdf.SetFont(e.FontFamily, "", e.FontSize)

	tr := pdf.UnicodeTranslatorFromDescriptor("")
	lineHeight := e.FontSize * 1.4
	for _, line := range lines {
		pdf.MultiCell(0, lineHeight, tr(glyphReplacer.Replace(line)), "", "L", false)
	}
	if pdf.Err() {
		return nil, Fail(Unknown, fmt.Errorf("layout: %w", pdf.Error()))
	}
	if err := ctx.Err(); err != nil {
		return nil, commFailure(ctx, "layout", err)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, Fail(Unknown, fmt.Errorf("write pdf: %w", err))
	}
	return buf.Bytes(), nil
}

var (
	skipTags  = map[string]bool{"head": true, "style": true, "script": true, "title": true}
	blockTags = map[string]bool{
		"p": true, "div": true, "tr": true, "br": true, "li": true, "table": true,
		"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
		"header": true, "footer": true, "section": true, "thead": true, "tbody": true,
	}
)

// visibleLines flattens markup into text lines, one per block element.
func visibleLines(markup string) ([]string, error) {
	z := html.NewTokenizer(strings.NewReader(markup))
	var (
		lines []string
		cur   []string
		skip  int
	)
	flush := func() {
		if len(cur) > 0 {
			lines = append(lines, strings.Join(cur, "    "))
			cur = cur[:0]
		}
	}

	for {
		switch z.Next() {
		case html.ErrorToken:
			if errors.Is(z.Err(), io.EOF) {
				flush()
				return lines, nil
			}
			return nil, z.Err()
		case html.StartTagToken, html.SelfClosingTagToken:
			name, _ := z.TagName()
			tag := string(name)
			if skipTags[tag] {
				skip++
			} else if blockTags[tag] {
				flush()
			}
		case html.EndTagToken:
			name, _ := z.TagName()
			tag := string(name)
			if skipTags[tag] && skip > 0 {
				skip--
			} else if blockTags[tag] {
				flush()
			}
		case html.TextToken:
			if skip > 0 {
				continue
			}
			if text := strings.Join(strings.Fields(string(z.Text())), " "); text != "" {
				cur = append(cur, text)
			}
		}
	}
}
