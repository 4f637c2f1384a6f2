package handlers

import (
	"net/http"

	"family-media/internal/startup"
)

// versionResponse is the build info plus what this instance serves from.
type versionResponse struct {
	startup.BuildInfo
	Storage      string `json:"storage,omitempty"`
	Thumbnails   string `json:"thumbnails,omitempty"`
	VideoFrames  bool   `json:"videoFrames"`
	DirectAccess bool   `json:"directAccess"`
}

// GetVersion returns build information and the active storage and
// thumbnail backends.
func (h *Handlers) GetVersion(w http.ResponseWriter, _ *http.Request) {
	resp := versionResponse{
		BuildInfo:    startup.GetBuildInfo(),
		DirectAccess: h.signer != nil,
	}
	if h.store != nil {
		resp.Storage = h.store.Type()
	}
	if h.generator != nil {
		resp.Thumbnails = "none"
		if p := h.generator.Images(); p != nil {
			resp.Thumbnails = p.Name()
		}
		resp.VideoFrames = h.generator.HasFrames()
	}

	w.Header().Set("Cache-Control", "no-cache")
	writeJSONResponse(w, resp, http.StatusOK)
}
