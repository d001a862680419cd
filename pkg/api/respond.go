// pkg/api/respond.go

package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/invoicing-microservice/invoicer/pkg/invoice"
	"github.com/invoicing-microservice/invoicer/pkg/pipeline"
	"github.com/invoicing-microservice/invoicer/pkg/render"
)

type envelope map[string]any

func writeJSON(w http.ResponseWriter, status int, body envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func writePDF(w http.ResponseWriter, out *pipeline.Output) {
	w.Header().Set("Content-Type", out.ContentType)
	w.Header().Set("Content-Disposition", "attachment; filename="+out.Filename)
	w.Header().Set("Content-Length", strconv.Itoa(len(out.PDF)))
	w.WriteHeader(http.StatusOK)
	w.Write(out.PDF)
}

// writeError maps pipeline errors to responses. Diagnostic detail is only
// included in development.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	var (
		invalid *invoice.InvalidInputError
		failure *render.Failure
	)
	switch {
	case errors.As(err, &invalid):
		writeJSON(w, http.StatusBadRequest, envelope{
			"success": false,
			"message": "Invalid invoice data",
			"errors":  invalid.Violations,
		})
	case errors.Is(err, invoice.ErrNotFound):
		writeJSON(w, http.StatusNotFound, envelope{"success": false, "message": "Invoice not found"})
	case errors.As(err, &failure):
		body := envelope{"success": false, "message": failure.UserMessage()}
		if s.opts.Development {
			body["reason"] = failure.Reason
			body["error"] = err.Error()
		}
		writeJSON(w, http.StatusBadGateway, body)
	default:
		s.serverError(w, err)
	}
}

func (s *Server) serverError(w http.ResponseWriter, err error) {
	s.logger.Error("request failed", zap.Error(err))
	body := envelope{"success": false, "message": "Server error"}
	if s.opts.Development {
		body["error"] = err.Error()
	}
	writeJSON(w, http.StatusInternalServerError, body)
}
