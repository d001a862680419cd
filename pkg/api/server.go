// pkg/api/server.go

// Package api exposes the invoice pipeline over HTTP.
package api

import (
	"context"
	_ "embed"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/justinas/alice"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"
	"go.uber.org/zap"

	"github.com/invoicing-microservice/invoicer/pkg/auth"
	"github.com/invoicing-microservice/invoicer/pkg/invoice"
	"github.com/invoicing-microservice/invoicer/pkg/pipeline"
)

//go:embed swagger.json
var swaggerDoc []byte

// maxBodyBytes bounds generate requests.
const maxBodyBytes = 1 << 20

// Service is the part of pipeline.Service the handlers use.
type Service interface {
	Generate(ctx context.Context, ownerID string, issuer invoice.Customer, items []invoice.LineItem) (*pipeline.Output, error)
	Regenerate(ctx context.Context, ownerID, invoiceID string) (*pipeline.Output, error)
	History(ctx context.Context, ownerID string, page, pageSize int) ([]invoice.Summary, invoice.Pagination, error)
	Invoice(ctx context.Context, ownerID, invoiceID string) (*invoice.Document, error)
	Sample(ctx context.Context) (*pipeline.Output, error)
}

type Options struct {
	// Development adds diagnostic detail to error responses and enables the
	// sample render endpoint.
	Development bool
	Coercion    invoice.CoercionPolicy
	// Gatherer backs /metrics. Nil uses the default registry.
	Gatherer prometheus.Gatherer
}

type Server struct {
	svc      Service
	verifier auth.Verifier
	logger   *zap.Logger
	opts     Options
	started  time.Time
}

func NewServer(svc Service, verifier auth.Verifier, logger *zap.Logger, opts Options) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.Gatherer == nil {
		opts.Gatherer = prometheus.DefaultGatherer
	}
	return &Server{
		svc:      svc,
		verifier: verifier,
		logger:   logger,
		opts:     opts,
		started:  time.Now(),
	}
}

// Routes builds the HTTP handler.
func (s *Server) Routes() http.Handler {
	standard := alice.New(s.recoverPanic, s.logRequest, secureHeaders)
	private := standard.Append(s.authenticate)

	r := mux.NewRouter()
	r.NotFoundHandler = standard.ThenFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, envelope{"success": false, "message": "Route not found"})
	})

	r.Handle("/health", standard.ThenFunc(s.health)).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.HandlerFor(s.opts.Gatherer, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	r.HandleFunc("/swagger/doc.json", serveSwaggerDoc).Methods(http.MethodGet)
	r.PathPrefix("/swagger/").Handler(httpSwagger.Handler(httpSwagger.URL("/swagger/doc.json")))

	inv := r.PathPrefix("/api/invoices").Subrouter()
	inv.Handle("/generate-pdf", private.ThenFunc(s.generatePDF)).Methods(http.MethodPost)
	inv.Handle("/history", private.ThenFunc(s.history)).Methods(http.MethodGet)
	if s.opts.Development {
		inv.Handle("/test-pdf", standard.ThenFunc(s.testPDF)).Methods(http.MethodPost)
	}
	inv.Handle("/{id}", private.ThenFunc(s.getInvoice)).Methods(http.MethodGet)
	inv.Handle("/{id}/download", private.ThenFunc(s.download)).Methods(http.MethodGet)

	return r
}

func serveSwaggerDoc(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write(swaggerDoc)
}
