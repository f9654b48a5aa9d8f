// Package handler implements the HTTP layer: parsing requests, invoking the
// service, and encoding responses. No business rules live here.
package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	json "github.com/goccy/go-json"

	"github.com/rashik/snipvault/internal/auth"
	"github.com/rashik/snipvault/internal/model"
	"github.com/rashik/snipvault/internal/query"
	"github.com/rashik/snipvault/internal/service"
)

// SnippetHandler serves the snippet CRUD and stats endpoints.
type SnippetHandler struct {
	svc    *service.SnippetService
	logger *slog.Logger
}

// NewSnippetHandler creates a SnippetHandler.
func NewSnippetHandler(svc *service.SnippetService, logger *slog.Logger) *SnippetHandler {
	return &SnippetHandler{svc: svc, logger: logger}
}

// createRequest mirrors the create body. Unknown fields are ignored.
type createRequest struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Language    string   `json:"language"`
	Code        string   `json:"code"`
	Tags        []string `json:"tags"`
	IsPublic    bool     `json:"isPublic"`
}

// updateRequest uses pointers so absent fields are distinguishable from
// zero values. That distinction carries the partial-update semantics.
type updateRequest struct {
	Title       *string   `json:"title"`
	Description *string   `json:"description"`
	Language    *string   `json:"language"`
	Code        *string   `json:"code"`
	Tags        *[]string `json:"tags"`
	IsPublic    *bool     `json:"isPublic"`
}

// listResponse is the list envelope.
type listResponse struct {
	Snippets   []model.Snippet  `json:"snippets"`
	Pagination query.Pagination `json:"pagination"`
}

// HandleList serves GET /api/snippets. Auth is optional: anonymous callers
// see public snippets only, whatever view they ask for.
func (h *SnippetHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	requesterID := requesterID(r)
	params := query.Parse(r.URL.Query())

	snippets, pagination, err := h.svc.List(r.Context(), requesterID, params)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, listResponse{Snippets: snippets, Pagination: pagination})
}

// HandleGet serves GET /api/snippets/{id}.
func (h *SnippetHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	snippet, err := h.svc.Get(r.Context(), requesterID(r), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, snippet)
}

// HandleCreate serves POST /api/snippets. Requires authentication.
func (h *SnippetHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ident, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w)
		return
	}

	var req createRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("invalid snippet JSON", slog.String("error", err.Error()))
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid_json", Message: "invalid JSON body"})
		return
	}

	snippet, err := h.svc.Create(r.Context(), ident, service.CreateInput{
		Title:       req.Title,
		Description: req.Description,
		Language:    req.Language,
		Code:        req.Code,
		Tags:        req.Tags,
		IsPublic:    req.IsPublic,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, snippet)
}

// HandleUpdate serves PUT /api/snippets/{id}. Requires authentication;
// only the owner's rows can match.
func (h *SnippetHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	ident, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w)
		return
	}

	var req updateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("invalid snippet JSON", slog.String("error", err.Error()))
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid_json", Message: "invalid JSON body"})
		return
	}

	snippet, err := h.svc.Update(r.Context(), ident.ID, chi.URLParam(r, "id"), service.UpdateInput{
		Title:       req.Title,
		Description: req.Description,
		Language:    req.Language,
		Code:        req.Code,
		Tags:        req.Tags,
		IsPublic:    req.IsPublic,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, snippet)
}

// HandleDelete serves DELETE /api/snippets/{id}. Requires authentication.
func (h *SnippetHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	ident, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w)
		return
	}

	if err := h.svc.Delete(r.Context(), ident.ID, chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "Snippet deleted successfully"})
}

// HandleStats serves GET /api/stats under the same visibility rules as
// listing.
func (h *SnippetHandler) HandleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.svc.Stats(r.Context(), requesterID(r), query.Parse(r.URL.Query()))
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, stats)
}

// HandleHealth serves GET /healthz.
func (h *SnippetHandler) HandleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func requesterID(r *http.Request) string {
	ident, _ := auth.IdentityFromContext(r.Context())
	return ident.ID
}

func writeUnauthorized(w http.ResponseWriter) {
	writeJSON(w, http.StatusUnauthorized, ErrorResponse{
		Error:   "unauthorized",
		Message: "valid authentication required",
	})
}
