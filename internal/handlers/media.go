package handlers

import (
	"context"
	"errors"
	"net/http"
	"path"
	"strings"

	"family-media/internal/logging"
	"family-media/internal/media"
	"family-media/internal/middleware"
	"family-media/internal/resolver"
	"family-media/internal/storage"

	"github.com/gorilla/mux"
)

// mediaPath normalizes the {path} route variable. mux has already
// percent-decoded it once.
func mediaPath(raw string) (string, bool) {
	p := strings.TrimLeft(strings.ReplaceAll(raw, `\`, "/"), "/")
	if p == "" {
		return "", false
	}
	for _, seg := range strings.Split(p, "/") {
		if seg == ".." {
			return "", false
		}
	}
	return p, true
}

func queryFlag(r *http.Request, name string) bool {
	switch strings.ToLower(r.URL.Query().Get(name)) {
	case "true", "1", "yes":
		return true
	}
	return false
}

// GetMedia serves an original, or its thumbnail when ?thumbnail=true.
func (h *Handlers) GetMedia(w http.ResponseWriter, r *http.Request) {
	logical, ok := mediaPath(mux.Vars(r)["path"])
	if !ok {
		writeJSONError(w, "invalid media path", http.StatusBadRequest)
		return
	}

	res, err := h.resolver.Resolve(r.Context(), logical)
	if err != nil {
		var nr *resolver.NotResolvedError
		if errors.As(err, &nr) {
			writeError(w, errorResponse{Error: "media not found", Path: logical, Tried: nr.Tried}, http.StatusNotFound)
			return
		}
		logging.Error("Resolving %s failed: %v", logical, err)
		writeError(w, errorResponse{Error: "failed to resolve media", Path: logical}, http.StatusInternalServerError)
		return
	}

	if queryFlag(r, "thumbnail") {
		h.serveThumbnail(w, r, res, queryFlag(r, "regenerate"))
		return
	}

	if err := h.streamer.ServeObject(w, r, res.Key, false); err != nil {
		h.storageError(w, logical, err)
	}
}

func (h *Handlers) serveThumbnail(w http.ResponseWriter, r *http.Request, res resolver.Resolution, force bool) {
	if h.generator == nil {
		writeError(w, errorResponse{Error: "thumbnails are disabled", Path: res.Logical}, http.StatusServiceUnavailable)
		return
	}

	// Generation outlives a client that disconnects mid-request so the
	// artifact still lands in storage.
	thumb, err := h.generator.Get(context.WithoutCancel(r.Context()), res.Key, force)
	if err != nil {
		var se *media.StageError
		switch {
		case errors.Is(err, media.ErrUnsupportedType):
			writeError(w, errorResponse{Error: "thumbnails are only available for images and videos", Path: res.Logical}, http.StatusBadRequest)
		case errors.As(err, &se):
			logging.Error("Thumbnail for %s failed at %s: %v", res.Key, se.Stage, se.Err)
			writeError(w, errorResponse{Error: "thumbnail generation failed", Path: res.Logical, Stage: se.Stage}, http.StatusInternalServerError)
		default:
			logging.Error("Thumbnail for %s failed: %v", res.Key, err)
			writeError(w, errorResponse{Error: "thumbnail generation failed", Path: res.Logical}, http.StatusInternalServerError)
		}
		return
	}

	logging.Debug("Thumbnail %s: %s", thumb.ArtifactPath, thumb.Outcome)
	middleware.SetAccessOutcome(r.Context(), string(thumb.Outcome))
	h.streamer.ServeBytes(w, r, path.Base(res.Key), thumb.Data, thumb.ContentType)
}

// storageError answers a failed ServeObject. Nothing has been written yet.
func (h *Handlers) storageError(w http.ResponseWriter, logical string, err error) {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		writeError(w, errorResponse{Error: "media not found", Path: logical}, http.StatusNotFound)
	case errors.Is(err, storage.ErrUnavailable):
		writeError(w, errorResponse{Error: "storage temporarily unavailable", Path: logical}, http.StatusServiceUnavailable)
	default:
		logging.Error("Serving %s failed: %v", logical, err)
		writeError(w, errorResponse{Error: "failed to read media", Path: logical}, http.StatusInternalServerError)
	}
}

// ServeDirect serves an object addressed by a signed token, the local
// backend's stand-in for cloud presigned URLs.
func (h *Handlers) ServeDirect(w http.ResponseWriter, r *http.Request) {
	if h.signer == nil {
		writeJSONError(w, "direct access is not enabled", http.StatusNotFound)
		return
	}

	key, err := h.signer.Verify(r.URL.Query().Get("token"))
	if err != nil {
		logging.Debug("Rejected direct token from %s: %v", r.RemoteAddr, err)
		writeJSONError(w, "invalid or expired token", http.StatusForbidden)
		return
	}

	if err := h.streamer.ServeDirect(w, r, key); err != nil {
		h.storageError(w, key, err)
	}
}
