// internal/adapters/http_server/handlers.go
package httpserver

import (
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"soldprices/internal/app"
	"soldprices/internal/domain"
)

const maxLimit = 5000

type Handlers struct{ Q *app.QueryService }

type problem struct {
	Type   string `json:"type"`
	Title  string `json:"title"`
	Status int    `json:"status"`
	Detail string `json:"detail,omitempty"`
}

type salesResponse struct {
	Area  string           `json:"area"`
	Count int              `json:"count"`
	Items []domain.SaleRow `json:"items"`
}

func (s *Server) MountHandlers(h *Handlers) {
	s.mux.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200); _, _ = w.Write([]byte("ok")) })
	s.mux.Get("/v1/areas/{area}/sales", h.listSales)
}

func writeProblem(w http.ResponseWriter, status int, title, detail string) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(problem{Type: "about:blank", Title: title, Status: status, Detail: detail}); err != nil {
		log.Error().Err(err).Msg("write JSON problem response failed")
	}
}

// calcETagAndBody marshals once and hashes once, returning both ETag and body.
func calcETagAndBody(v any) (string, []byte) {
	body, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal object for ETag/body")
		return "", nil
	}
	sum := sha1.Sum(body)
	etag := `W/"` + hex.EncodeToString(sum[:]) + `"`
	return etag, body
}

func (h *Handlers) listSales(w http.ResponseWriter, r *http.Request) {
	area := chi.URLParam(r, "area")
	q := r.URL.Query()

	f := domain.SalesFilter{PropertyType: q.Get("propertyType")}
	if bs := q.Get("bedrooms"); bs != "" {
		b, err := strconv.Atoi(bs)
		if err != nil || b < 0 {
			writeProblem(w, http.StatusBadRequest, "Invalid bedrooms", "bedrooms must be a non-negative integer")
			return
		}
		f.Bedrooms = &b
	}
	if ls := q.Get("limit"); ls != "" {
		l, err := strconv.Atoi(ls)
		if err != nil || l <= 0 || l > maxLimit {
			writeProblem(w, http.StatusBadRequest, "Invalid limit", "limit must be an integer between 1 and 5000")
			return
		}
		f.Limit = l
	}

	items, err := h.Q.ListSales(r.Context(), area, f)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		writeProblem(w, http.StatusNotFound, "Not Found", "no extract for "+area)
		return
	case err != nil:
		log.Error().Err(err).Str("area", area).Msg("list sales failed")
		writeProblem(w, http.StatusInternalServerError, "Internal Server Error", "")
		return
	}

	etag, body := calcETagAndBody(salesResponse{Area: area, Count: len(items), Items: items})
	// If client already has this version, short-circuit.
	if inm := r.Header.Get("If-None-Match"); inm != "" && inm == etag {
		w.Header().Set("ETag", etag)
		w.WriteHeader(http.StatusNotModified)
		return
	}

	w.Header().Set("ETag", etag)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(body); err != nil {
		log.Error().Err(err).Msg("failed to write listSales body")
	}
}
