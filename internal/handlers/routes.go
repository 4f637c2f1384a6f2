package handlers

import (
	"net/http"

	"family-media/internal/auth"
	"family-media/internal/middleware"

	"github.com/gorilla/mux"
)

// Router builds the application routes. Every request is authorized once by
// authz; individual routes then demand the role they need.
func (h *Handlers) Router(authz auth.Authorizer) *mux.Router {
	// Keep ".." and doubled slashes so the media handler can reject them
	// itself instead of mux answering with a redirect.
	r := mux.NewRouter().SkipClean(true)
	r.Use(auth.Middleware(authz), accessUser)

	// Health check endpoints (no auth required)
	r.HandleFunc("/health", h.HealthCheck).Methods("GET")
	r.HandleFunc("/healthz", h.HealthCheck).Methods("GET")
	r.HandleFunc("/livez", h.LivenessCheck).Methods("GET", "HEAD")
	r.HandleFunc("/readyz", h.ReadinessCheck).Methods("GET")
	r.HandleFunc("/version", h.GetVersion).Methods("GET")

	// The token is the credential here.
	r.HandleFunc("/api/direct", h.ServeDirect).Methods("GET", "HEAD")

	read := func(fn http.HandlerFunc) http.HandlerFunc { return auth.Require(auth.RoleRead, fn) }

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/media/{path:.*}", read(h.GetMedia)).Methods("GET", "HEAD")
	api.HandleFunc("/test-thumbnail-paths", read(h.TestThumbnailPaths)).Methods("GET")
	api.HandleFunc("/debug-thumbnail/{filename}", read(h.DebugThumbnail)).Methods("GET")
	api.HandleFunc("/rotate-thumbnail/{fileName}", auth.Require(auth.RoleFull, h.RotateThumbnail)).Methods("POST")

	r.HandleFunc("/media/{path:.*}", read(h.GetMedia)).Methods("GET", "HEAD")

	return r
}

// accessUser copies the caller's key name into the access log.
func accessUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if d := auth.FromContext(r.Context()); d.Subject != "" {
			middleware.SetAccessUser(r.Context(), d.Subject)
		}
		next.ServeHTTP(w, r)
	})
}
