// pkg/render/renderer.go

// Package render turns invoice documents into PDF bytes.
package render

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/invoicing-microservice/invoicer/pkg/invoice"
)

// maxAttempts allows one retry after a transient failure.
const maxAttempts = 2

const DefaultTimeout = 30 * time.Second

// Options configure a Renderer.
type Options struct {
	CurrencySymbol string
	// Timeout bounds each attempt separately.
	Timeout time.Duration
	Page    PageOptions
}

// Renderer fills the template and drives the engine.
type Renderer struct {
	engine   Engine
	template *Template
	opts     Options
	logger   *zap.Logger
	metrics  *Metrics
	now      func() time.Time
}

func NewRenderer(engine Engine, tmpl *Template, opts Options, logger *zap.Logger, metrics *Metrics) *Renderer {
	if opts.CurrencySymbol == "" {
		opts.CurrencySymbol = "₹"
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.Page == (PageOptions{}) {
		opts.Page = DefaultPage()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Renderer{
		engine:   engine,
		template: tmpl,
		opts:     opts,
		logger:   logger,
		metrics:  metrics,
		now:      time.Now,
	}
}

// Markup returns the filled template for doc.
func (r *Renderer) Markup(doc *invoice.Document) (string, error) {
	raw, err := r.template.Load()
	if err != nil {
		return "", Classify(err)
	}
	out, err := Fill(raw, doc, r.opts.CurrencySymbol, r.now())
	if err != nil {
		return "", Classify(err)
	}
	return out, nil
}

// Render returns the PDF for doc. Every error is a *Failure.
func (r *Renderer) Render(ctx context.Context, doc *invoice.Document) ([]byte, error) {
	log := r.logger.With(zap.String("invoice_number", doc.InvoiceNumber))

	markup, err := r.Markup(doc)
	if err != nil {
		f := Classify(err)
		r.metrics.observe(string(f.Reason), 0)
		log.Error("invoice template failed", zap.String("reason", string(f.Reason)), zap.Error(f.Err))
		return nil, f
	}

	var last *Failure
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		pdf, took, f := r.attempt(ctx, markup)
		if f == nil {
			r.metrics.observe("ok", took)
			log.Debug("invoice rendered", zap.Int("attempt", attempt), zap.Int("bytes", len(pdf)), zap.Duration("took", took))
			return pdf, nil
		}

		r.metrics.observe(string(f.Reason), took)
		log.Warn("invoice render attempt failed",
			zap.Int("attempt", attempt),
			zap.String("reason", string(f.Reason)),
			zap.Duration("took", took),
			zap.Error(f.Err),
		)
		last = f
		if !f.Reason.Retryable() || ctx.Err() != nil {
			break
		}
	}

	log.Error("invoice render failed", zap.String("reason", string(last.Reason)), zap.Error(last.Err))
	return nil, last
}

func (r *Renderer) attempt(ctx context.Context, markup string) ([]byte, time.Duration, *Failure) {
	ctx, cancel := context.WithTimeout(ctx, r.opts.Timeout)
	defer cancel()

	start := time.Now()
	pdf, err := r.engine.PrintToPDF(ctx, markup, r.opts.Page)
	took := time.Since(start)
	if err != nil {
		return nil, took, Classify(err)
	}
	if len(pdf) == 0 {
		return nil, took, Fail(Unknown, errors.New("engine returned an empty document"))
	}
	return pdf, took, nil
}
