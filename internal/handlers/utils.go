package handlers

import (
	"net/http"

	"family-media/internal/logging"

	"github.com/goccy/go-json"
)

// errorResponse is the JSON body of every failed request. Storage URLs and
// credentials never appear in it.
type errorResponse struct {
	Error   string   `json:"error"`
	Path    string   `json:"path,omitempty"`
	Stage   string   `json:"stage,omitempty"`
	Tried   []string `json:"tried,omitempty"`
}

// writeJSON encodes v as JSON and writes it to the response writer.
// Any encoding or write errors are logged since we typically cannot
// recover from them in an HTTP handler context.
func writeJSON(w http.ResponseWriter, v interface{}) {
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Error("failed to encode JSON response: %v", err)
	}
}

// writeJSONResponse writes v with the given status code.
func writeJSONResponse(w http.ResponseWriter, v interface{}, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	writeJSON(w, v)
}

// writeJSONError writes an error response as JSON with the given status code.
func writeJSONError(w http.ResponseWriter, message string, statusCode int) {
	writeJSONResponse(w, errorResponse{Error: message}, statusCode)
}

// writeError writes a structured error body.
func writeError(w http.ResponseWriter, body errorResponse, statusCode int) {
	writeJSONResponse(w, body, statusCode)
}

// writeJSONStatus writes a simple status response as JSON.
func writeJSONStatus(w http.ResponseWriter, status string, statusCode int) {
	writeJSONResponse(w, map[string]string{"status": status}, statusCode)
}
