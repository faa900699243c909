package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/opensource-finance/kestrel/internal/domain"
	"github.com/opensource-finance/kestrel/internal/repository"
	"github.com/opensource-finance/kestrel/internal/service"
)

// maxBody caps request bodies for review and evaluate calls.
const maxBody = 8 << 20

// Handler holds dependencies for API handlers.
type Handler struct {
	registry *service.Registry
	repo     domain.Repository
	cache    domain.Cache
	version  string
}

// NewHandler creates a new API handler. repo and cache are only pinged by
// the health check and may be nil.
func NewHandler(registry *service.Registry, repo domain.Repository, cache domain.Cache, version string) *Handler {
	return &Handler{
		registry: registry,
		repo:     repo,
		cache:    cache,
		version:  version,
	}
}

// Health returns server health status.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	status := "healthy"

	if h.repo != nil {
		if err := h.repo.Ping(r.Context()); err != nil {
			slog.Warn("repository ping failed", "error", err)
			status = "degraded"
		}
	}

	if h.cache != nil {
		if err := h.cache.Ping(r.Context()); err != nil {
			slog.Warn("cache ping failed", "error", err)
			status = "degraded"
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":    status,
		"version":   h.version,
		"verticals": h.registry.Verticals(),
	})
}

// Ready returns whether the server is ready to accept traffic.
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"ready": "true",
	})
}

// ListRules describes the rule catalog of one vertical.
func (h *Handler) ListRules(w http.ResponseWriter, r *http.Request) {
	rv, ok := h.reviewer(w, r)
	if !ok {
		return
	}

	rules := rv.Rules()
	writeJSON(w, http.StatusOK, map[string]any{
		"vertical": rv.Vertical(),
		"version":  rv.RuleVersion(),
		"rules":    rules,
		"count":    len(rules),
	})
}

// List returns the stored collection of one vertical.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	rv, ok := h.reviewer(w, r)
	if !ok {
		return
	}

	items, err := rv.List(r.Context())
	if err != nil {
		fail(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"vertical": rv.Vertical(),
		"items":    items,
	})
}

// Review reviews stored entities and rewrites their collection.
// An empty body reviews everything.
func (h *Handler) Review(w http.ResponseWriter, r *http.Request) {
	rv, ok := h.reviewer(w, r)
	if !ok {
		return
	}

	var req service.Request
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBody))
	if err := dec.Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid JSON request body")
		return
	}

	report, err := rv.Review(r.Context(), req)
	if err != nil {
		fail(w, err)
		return
	}

	noteReview(w, r, report, true)
	writeJSON(w, http.StatusOK, report)
}

// Evaluate reviews a JSON array of inline entities without persisting them.
func (h *Handler) Evaluate(w http.ResponseWriter, r *http.Request) {
	rv, ok := h.reviewer(w, r)
	if !ok {
		return
	}

	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBody))
	if err != nil {
		writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
		return
	}
	if !json.Valid(payload) {
		writeError(w, http.StatusBadRequest, "invalid JSON request body")
		return
	}

	report, err := rv.Evaluate(r.Context(), payload)
	if err != nil {
		fail(w, err)
		return
	}

	noteReview(w, r, report, false)
	writeJSON(w, http.StatusOK, report)
}

func (h *Handler) reviewer(w http.ResponseWriter, r *http.Request) (service.Reviewer, bool) {
	rv, err := h.registry.Get(chi.URLParam(r, "vertical"))
	if err != nil {
		fail(w, err)
		return nil, false
	}
	return rv, true
}

// fail maps service and repository errors onto HTTP statuses.
func fail(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrUnknownVertical), errors.Is(err, repository.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrBadPayload), errors.Is(err, repository.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		slog.Error("request failed", "error", err)
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("internal error: %v", err))
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
