package httptransport

import (
	"encoding/json"
	"net/http"
)

// apiError is the envelope for every non-2xx JSON response, including the
// validation and overload rejections on the generate endpoint.
type apiError struct {
	Message string `json:"message"`
}

// writeJSON encodes v as the response body. Encoding errors are ignored:
// by the time Encode runs the status line is already on the wire.
func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeErr(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, apiError{Message: msg})
}
