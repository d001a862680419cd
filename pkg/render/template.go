// pkg/render/template.go

package render

import (
	_ "embed"
	"errors"
	"fmt"
	"html"
	"maps"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/invoicing-microservice/invoicer/pkg/invoice"
)

//go:embed templates/invoice.html
var defaultTemplate string

var (
	rowBlock    = regexp.MustCompile(`(?s)\{\{#each\s+products\s*\}\}(.*?)\{\{/each\}\}`)
	placeholder = regexp.MustCompile(`\{\{\s*(?:this\.)?(\w+)\s*\}\}`)
)

// Template is an HTML invoice template with {{name}} placeholders and one
// {{#each products}}...{{/each}} row block.
type Template struct {
	// Path is read on every load; empty means the built-in template.
	Path string
}

// Load returns the raw template markup.
func (t *Template) Load() (string, error) {
	if t == nil || t.Path == "" {
		return defaultTemplate, nil
	}
	b, err := os.ReadFile(t.Path)
	if err != nil {
		return "", Fail(TemplateUnavailable, fmt.Errorf("read template %s: %w", t.Path, err))
	}
	return string(b), nil
}

// Fill substitutes doc into markup. Money is formatted with symbol and two
// decimals; every value is HTML-escaped.
func Fill(markup string, doc *invoice.Document, symbol string, now time.Time) (string, error) {
	blocks := rowBlock.FindAllStringSubmatchIndex(markup, -1)
	if len(blocks) != 1 {
		return "", Fail(TemplateUnavailable, fmt.Errorf("template must contain exactly one products block, found %d", len(blocks)))
	}
	if len(doc.Items) == 0 {
		return "", Fail(Unknown, errors.New("document has no line items"))
	}

	scalars := map[string]string{
		"invoiceNumber": doc.InvoiceNumber,
		"customerName":  doc.Customer.Name,
		"customerEmail": doc.Customer.Email,
		"invoiceDate":   doc.IssuedDate,
		"totalCharges":  invoice.FormatMoney(doc.Totals.Subtotal, symbol),
		"gst":           invoice.FormatMoney(doc.Totals.TaxAmount, symbol),
		"finalAmount":   invoice.FormatMoney(doc.Totals.GrandTotal, symbol),
		"currentDate":   invoice.FormatDate(now, invoice.DateLong),
	}

	// Every part of the template is substituted exactly once, so submitted
	// text is never re-read as a placeholder.
	loc := blocks[0]
	rowTmpl := markup[loc[2]:loc[3]]
	var rows strings.Builder
	for _, item := range doc.Items {
		row := maps.Clone(scalars)
		row["name"] = item.Name
		row["quantity"] = strconv.Itoa(item.Quantity)
		row["rate"] = invoice.FormatMoney(item.Rate, symbol)
		row["totalAmount"] = invoice.FormatMoney(item.LineTotal, symbol)
		rows.WriteString(substitute(rowTmpl, row))
	}
	head := substitute(markup[:loc[0]], scalars)
	tail := substitute(markup[loc[1]:], scalars)
	return head + rows.String() + tail, nil
}

// substitute replaces known placeholders and leaves unknown ones in place.
func substitute(markup string, values map[string]string) string {
	return placeholder.ReplaceAllStringFunc(markup, func(m string) string {
		key := placeholder.FindStringSubmatch(m)[1]
		v, ok := values[key]
		if !ok {
			return m
		}
		return html.EscapeString(v)
	})
}
