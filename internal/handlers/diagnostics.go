package handlers

import (
	"errors"
	"net/http"
	"net/url"
	"path"
	"strconv"

	"family-media/internal/logging"
	"family-media/internal/media"
	"family-media/internal/resolver"
	"family-media/internal/storage"

	"github.com/gorilla/mux"
)

// ThumbnailPathsResponse lists every candidate key probed for a path.
type ThumbnailPathsResponse struct {
	Original string                 `json:"original"`
	Decoded  string                 `json:"decoded"`
	Results  []resolver.ProbeResult `json:"results"`
}

// TestThumbnailPaths probes all candidate keys for ?path= and reports
// which exist. Unlike GetMedia it does not stop at the first match.
func (h *Handlers) TestThumbnailPaths(w http.ResponseWriter, r *http.Request) {
	original := r.URL.Query().Get("path")
	if original == "" {
		writeJSONError(w, "Missing path query parameter", http.StatusBadRequest)
		return
	}

	decoded, err := url.PathUnescape(original)
	if err != nil {
		decoded = original
	}

	writeJSONResponse(w, ThumbnailPathsResponse{
		Original: original,
		Decoded:  decoded,
		Results:  h.resolver.Probe(r.Context(), decoded),
	}, http.StatusOK)
}

// Dimensions is the pixel size of an inspected image.
type Dimensions struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// ThumbnailDebugResponse describes a stored legacy thumbnail.
type ThumbnailDebugResponse struct {
	Filename        string      `json:"filename"`
	Path            string      `json:"path"`
	Size            int         `json:"size"`
	Dimensions      Dimensions  `json:"dimensions"`
	Format          string      `json:"format"`
	Orientation     interface{} `json:"orientation"`
	HasExif         bool        `json:"hasExif"`
	ExifOrientation int         `json:"exifOrientation,omitempty"`
}

// DebugThumbnail reads the metadata of media/thumb_<name>.jpg.
func (h *Handlers) DebugThumbnail(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["filename"]
	if name == "" {
		writeJSONError(w, "filename is required", http.StatusBadRequest)
		return
	}
	if h.generator == nil {
		writeJSONError(w, "thumbnails are disabled", http.StatusServiceUnavailable)
		return
	}

	key := media.LegacyThumbPath(name)
	info, err := h.generator.Inspect(r.Context(), key)
	if err != nil {
		h.maintenanceError(w, key, err)
		return
	}

	resp := ThumbnailDebugResponse{
		Filename:        path.Base(key),
		Path:            key,
		Size:            info.Size,
		Dimensions:      Dimensions{Width: info.Width, Height: info.Height},
		Format:          info.Format,
		Orientation:     "none",
		HasExif:         info.HasExif,
		ExifOrientation: info.Orientation,
	}
	if info.Orientation > 0 {
		resp.Orientation = info.Orientation
	}
	writeJSONResponse(w, resp, http.StatusOK)
}

// RotateResponse reports an in-place thumbnail rotation.
type RotateResponse struct {
	Success       bool   `json:"success"`
	ThumbnailPath string `json:"thumbnailPath"`
	OriginalSize  int    `json:"originalSize"`
	RotatedSize   int    `json:"rotatedSize"`
}

// RotateThumbnail turns thumbnails/media/<fileName> clockwise, 90 degrees
// unless ?degrees= says otherwise, and overwrites it.
func (h *Handlers) RotateThumbnail(w http.ResponseWriter, r *http.Request) {
	fileName, ok := mediaPath(mux.Vars(r)["fileName"])
	if !ok {
		writeJSONError(w, "fileName parameter is required", http.StatusBadRequest)
		return
	}
	if h.generator == nil {
		writeJSONError(w, "thumbnails are disabled", http.StatusServiceUnavailable)
		return
	}

	degrees := 90
	if v := r.URL.Query().Get("degrees"); v != "" {
		d, err := strconv.Atoi(v)
		if err != nil || d%90 != 0 || d <= 0 || d >= 360 {
			writeJSONError(w, "degrees must be 90, 180 or 270", http.StatusBadRequest)
			return
		}
		degrees = d
	}

	key := media.ThumbnailPrefix + "media/" + fileName
	rot, err := h.generator.RotateArtifact(r.Context(), key, degrees)
	if err != nil {
		h.maintenanceError(w, key, err)
		return
	}

	logging.Info("Rotated thumbnail %s by %d degrees: %d -> %d bytes", key, degrees, rot.OriginalSize, rot.RotatedSize)
	writeJSONResponse(w, RotateResponse{
		Success:       true,
		ThumbnailPath: rot.Path,
		OriginalSize:  rot.OriginalSize,
		RotatedSize:   rot.RotatedSize,
	}, http.StatusOK)
}

func (h *Handlers) maintenanceError(w http.ResponseWriter, key string, err error) {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		writeError(w, errorResponse{Error: "Thumbnail not found", Path: key}, http.StatusNotFound)
	case errors.Is(err, media.ErrNoProcessor):
		writeError(w, errorResponse{Error: "image processing is disabled", Path: key}, http.StatusServiceUnavailable)
	default:
		logging.Error("Thumbnail maintenance on %s failed: %v", key, err)
		writeError(w, errorResponse{Error: "thumbnail operation failed", Path: key}, http.StatusInternalServerError)
	}
}
