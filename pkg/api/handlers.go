// pkg/api/handlers.go

package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/invoicing-microservice/invoicer/pkg/auth"
	"github.com/invoicing-microservice/invoicer/pkg/invoice"
)

// generateRequest is the generate-pdf body. A client-supplied summary is
// accepted for compatibility and ignored; totals are always recomputed.
type generateRequest struct {
	Products []invoice.RawItem `json:"products"`
	Summary  json.RawMessage   `json:"summary,omitempty"`
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, envelope{
		"success":   true,
		"message":   "Server is running!",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"uptime":    time.Since(s.started).Seconds(),
	})
}

func (s *Server) generatePDF(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.FromContext(r.Context())

	var req generateRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(&req); err != nil {
		s.writeError(w, &invoice.InvalidInputError{Violations: []invoice.Violation{
			{Field: "body", Message: "request body must be a JSON object"},
		}})
		return
	}

	items, err := invoice.ParseItems(req.Products, s.opts.Coercion)
	if err != nil {
		s.writeError(w, err)
		return
	}

	out, err := s.svc.Generate(r.Context(), id.ID, invoice.Customer{Name: id.Name, Email: id.Email}, items)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writePDF(w, out)
}

func (s *Server) history(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.FromContext(r.Context())

	q := r.URL.Query()
	page := queryInt(q.Get("page"))
	size := queryInt(q.Get("pageSize"))
	if size == 0 {
		size = queryInt(q.Get("limit"))
	}

	list, p, err := s.svc.History(r.Context(), id.ID, page, size)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if list == nil {
		list = []invoice.Summary{}
	}
	writeJSON(w, http.StatusOK, envelope{"success": true, "invoices": list, "pagination": p})
}

func (s *Server) getInvoice(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.FromContext(r.Context())

	doc, err := s.svc.Invoice(r.Context(), id.ID, mux.Vars(r)["id"])
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{"success": true, "invoice": doc})
}

func (s *Server) download(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.FromContext(r.Context())

	out, err := s.svc.Regenerate(r.Context(), id.ID, mux.Vars(r)["id"])
	if err != nil {
		s.writeError(w, err)
		return
	}
	writePDF(w, out)
}

func (s *Server) testPDF(w http.ResponseWriter, r *http.Request) {
	out, err := s.svc.Sample(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	out.Filename = "test-invoice.pdf"
	writePDF(w, out)
}

// queryInt returns 0 for missing or malformed values; the store normalizes 0
// to its defaults.
func queryInt(v string) int {
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0
	}
	return n
}
