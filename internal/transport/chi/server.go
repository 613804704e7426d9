// Package chi is the HTTP/JSON transport.
package chi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/venuedex/internal/domain"
	"github.com/kailas-cloud/venuedex/internal/domain/query/spec"
	domvenue "github.com/kailas-cloud/venuedex/internal/domain/venue"
	"github.com/kailas-cloud/venuedex/internal/logger"
	healthuc "github.com/kailas-cloud/venuedex/internal/usecase/health"
)

// ErrorCode is a machine-readable error code.
type ErrorCode string

// Error codes.
const (
	CodeBadRequest         ErrorCode = "bad_request"
	CodeValidationFailed   ErrorCode = "validation_failed"
	CodeNotFound           ErrorCode = "not_found"
	CodeDocumentInvalid    ErrorCode = "document_invalid"
	CodeBackendUnavailable ErrorCode = "backend_unavailable"
	CodeUnauthorized       ErrorCode = "unauthorized"
	CodeInternal           ErrorCode = "internal_error"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Field   string    `json:"field,omitempty"`
}

// MessageResponse is the body of single-document index calls.
type MessageResponse struct {
	Message string `json:"message"`
}

// RebuildRequest is the optional body of POST /index/rebuild.
type RebuildRequest struct {
	Filter map[string]any `json:"filter,omitempty"`
}

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error) bool

// Services are the use cases behind the HTTP surface.
type Services struct {
	Search  SearchService
	Listing ListingService
	Venues  VenueService
	Reindex ReindexService
	Health  HealthService
}

// Server serves the venuedex HTTP API.
type Server struct {
	svc           Services
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(svc Services, logger *zap.Logger) *Server {
	return &Server{
		svc:    svc,
		logger: logger,
		errorHandlers: []errorHandler{
			inputErrorHandler,
			sentinelHandler(domain.ErrInvalidInput, http.StatusBadRequest, CodeValidationFailed),
			sentinelHandler(domain.ErrNotFound, http.StatusNotFound, CodeNotFound),
			sentinelHandler(domain.ErrDocumentInvalid, http.StatusUnprocessableEntity, CodeDocumentInvalid),
			unavailableHandler,
		},
	}
}

// Routes mounts the API on r.
func (s *Server) Routes(r chi.Router) {
	r.Get("/health", s.HealthCheck)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/venues/search", s.SearchVenues)
		r.Get("/venues", s.ListVenues)
		r.Post("/venues", s.CreateVenue)
		r.Get("/venues/{id}", s.GetVenue)
		r.Put("/venues/{id}", s.PutVenue)
		r.Delete("/venues/{id}", s.DeleteVenue)
		r.Get("/venues/{id}/document", s.GetDocument)

		r.Post("/index/venues/{id}", s.IndexVenue)
		r.Post("/index/rebuild", s.RebuildIndex)
		r.Get("/index/stats", s.IndexStats)
	})
}

// --- Listing ---

// SearchVenues handles GET /api/v1/venues/search.
func (s *Server) SearchVenues(w http.ResponseWriter, r *http.Request) {
	fs, ok := s.filterSpec(w, r, s.svc.Search.Surface())
	if !ok {
		return
	}
	res, err := s.svc.Search.Search(r.Context(), fs)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// ListVenues handles GET /api/v1/venues.
func (s *Server) ListVenues(w http.ResponseWriter, r *http.Request) {
	fs, ok := s.filterSpec(w, r, s.svc.Listing.Surface())
	if !ok {
		return
	}
	res, err := s.svc.Listing.List(r.Context(), fs)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) filterSpec(w http.ResponseWriter, r *http.Request, surface spec.Surface) (spec.FilterSpec, bool) {
	p, err := bindListParams(r)
	if err == nil {
		var fs spec.FilterSpec
		if fs, err = spec.New(p, surface); err == nil {
			return fs, true
		}
	}
	s.handleDomainError(w, r, err)
	return spec.FilterSpec{}, false
}

// --- Venues ---

// CreateVenue handles POST /api/v1/venues.
func (s *Server) CreateVenue(w http.ResponseWriter, r *http.Request) {
	in, ok := decodeBody[domvenue.Venue](w, r)
	if !ok {
		return
	}
	v, err := s.svc.Venues.Create(r.Context(), in)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, v)
}

// GetVenue handles GET /api/v1/venues/{id}.
func (s *Server) GetVenue(w http.ResponseWriter, r *http.Request) {
	v, err := s.svc.Venues.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

// PutVenue handles PUT /api/v1/venues/{id}: update, or create under that id.
func (s *Server) PutVenue(w http.ResponseWriter, r *http.Request) {
	in, ok := decodeBody[domvenue.Venue](w, r)
	if !ok {
		return
	}
	id := chi.URLParam(r, "id")

	v, err := s.svc.Venues.Update(r.Context(), id, in)
	if errors.Is(err, domain.ErrNotFound) {
		in.ID = id
		if v, err = s.svc.Venues.Create(r.Context(), in); err == nil {
			writeJSON(w, http.StatusCreated, v)
			return
		}
	}
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

// DeleteVenue handles DELETE /api/v1/venues/{id}.
func (s *Server) DeleteVenue(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.Venues.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetDocument handles GET /api/v1/venues/{id}/document.
func (s *Server) GetDocument(w http.ResponseWriter, r *http.Request) {
	doc, err := s.svc.Search.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	if doc == nil {
		writeError(w, http.StatusNotFound, CodeNotFound, "document not found")
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

// --- Index ---

// IndexVenue handles POST /api/v1/index/venues/{id}.
func (s *Server) IndexVenue(w http.ResponseWriter, r *http.Request) {
	msg, err := s.svc.Search.IndexOne(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageResponse{Message: msg})
}

// RebuildIndex handles POST /api/v1/index/rebuild. Partial failures are
// part of a 200 response.
func (s *Server) RebuildIndex(w http.ResponseWriter, r *http.Request) {
	var req RebuildRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Invalid request body: "+err.Error())
		return
	}
	rep, err := s.svc.Reindex.ReindexAll(r.Context(), req.Filter)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

// IndexStats handles GET /api/v1/index/stats.
func (s *Server) IndexStats(w http.ResponseWriter, r *http.Request) {
	st, err := s.svc.Search.Stats(r.Context())
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.svc.Health.Check(r.Context())

	httpStatus := http.StatusOK
	if report.Status != healthuc.Healthy {
		httpStatus = http.StatusServiceUnavailable
	}
	writeJSON(w, httpStatus, report)
}

// --- Helpers ---

func decodeBody[T any](w http.ResponseWriter, r *http.Request) (T, bool) {
	var v T
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&v); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Invalid request body: "+err.Error())
		return v, false
	}
	return v, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code ErrorCode, message string) {
	writeJSON(w, status, ErrorResponse{Code: code, Message: message})
}

// handleDomainError maps domain errors to HTTP responses.
func (s *Server) handleDomainError(w http.ResponseWriter, r *http.Request, err error) {
	for _, h := range s.errorHandlers {
		if h(w, err) {
			return
		}
	}
	logger.FromContext(r.Context()).Error("unhandled error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, CodeInternal, "internal error")
}

// inputErrorHandler returns the violated constraint to the client.
func inputErrorHandler(w http.ResponseWriter, err error) bool {
	var ie *domain.InputError
	if !errors.As(err, &ie) {
		return false
	}
	writeJSON(w, http.StatusBadRequest, ErrorResponse{
		Code:    CodeValidationFailed,
		Message: ie.Constraint,
		Field:   ie.Field,
	})
	return true
}

func sentinelHandler(sentinel error, status int, code ErrorCode) errorHandler {
	return func(w http.ResponseWriter, err error) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, err.Error())
		return true
	}
}

// unavailableHandler hides the backend cause and asks clients to retry.
func unavailableHandler(w http.ResponseWriter, err error) bool {
	if !errors.Is(err, domain.ErrBackendUnavailable) {
		return false
	}
	w.Header().Set("Retry-After", "1")
	writeError(w, http.StatusServiceUnavailable, CodeBackendUnavailable, domain.ErrBackendUnavailable.Error())
	return true
}
