// Package function exposes the API as per-endpoint http.Handlers for
// platforms that route one function per path instead of running a router.
// The handlers set permissive CORS headers, answer preflight requests, and
// dispatch on method; the snippet endpoint takes its id from the query
// string. All business behaviour is shared with the chi transport.
package function

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	json "github.com/goccy/go-json"

	"github.com/rashik/snipvault/internal/auth"
	"github.com/rashik/snipvault/internal/handler"
)

// API bundles the endpoint handlers with the auth middleware they need.
type API struct {
	list   http.Handler
	get    http.Handler
	create http.Handler
	update http.Handler
	remove http.Handler
	stats  http.Handler
}

// New wires the endpoints. Reads go through the optional-identity chain,
// writes through the required one, same as the routed server.
func New(h *handler.SnippetHandler, v *auth.Verifier) *API {
	optional := auth.OptionalIdentity(v)
	required := auth.RequireIdentity(v)

	return &API{
		list:   optional(http.HandlerFunc(h.HandleList)),
		get:    optional(http.HandlerFunc(h.HandleGet)),
		create: required(http.HandlerFunc(h.HandleCreate)),
		update: required(http.HandlerFunc(h.HandleUpdate)),
		remove: required(http.HandlerFunc(h.HandleDelete)),
		stats:  optional(http.HandlerFunc(h.HandleStats)),
	}
}

// Snippets serves the collection endpoint: GET lists, POST creates.
func (a *API) Snippets(w http.ResponseWriter, r *http.Request) {
	if preflight(w, r, "GET, POST, OPTIONS") {
		return
	}

	switch r.Method {
	case http.MethodGet:
		a.list.ServeHTTP(w, r)
	case http.MethodPost:
		a.create.ServeHTTP(w, r)
	default:
		methodNotAllowed(w)
	}
}

// Snippet serves the single-snippet endpoint. The id arrives as a query
// parameter; it is copied into the request's path value so the shared
// handlers see it the same way as routed requests.
func (a *API) Snippet(w http.ResponseWriter, r *http.Request) {
	if preflight(w, r, "GET, PUT, DELETE, OPTIONS") {
		return
	}

	id := r.URL.Query().Get("id")
	if id == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "snippet id is required"})
		return
	}
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("id", id)
	r = r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))

	switch r.Method {
	case http.MethodGet:
		a.get.ServeHTTP(w, r)
	case http.MethodPut:
		a.update.ServeHTTP(w, r)
	case http.MethodDelete:
		a.remove.ServeHTTP(w, r)
	default:
		methodNotAllowed(w)
	}
}

// Stats serves the aggregate stats endpoint, GET only.
func (a *API) Stats(w http.ResponseWriter, r *http.Request) {
	if preflight(w, r, "GET, OPTIONS") {
		return
	}

	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	a.stats.ServeHTTP(w, r)
}

// Health reports liveness, GET only.
func (a *API) Health(w http.ResponseWriter, r *http.Request) {
	if preflight(w, r, "GET, OPTIONS") {
		return
	}

	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"status":    "ok",
		"service":   "snipvault",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// preflight writes the CORS headers and, for OPTIONS requests, completes
// the exchange. Returns true when the request was a preflight.
func preflight(w http.ResponseWriter, r *http.Request, methods string) bool {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", methods)
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusOK)
		return true
	}
	return false
}

func methodNotAllowed(w http.ResponseWriter) {
	writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}
