package httpapi

import (
	"encoding/json"
	"net/http"
	"time"
)

// errorBody is the JSON shape of every error response.
type errorBody struct {
	Error     string   `json:"error"`
	Timestamp string   `json:"timestamp"`
	Extension string   `json:"extension,omitempty"`
	Allowed   []string `json:"allowed,omitempty"`
}

func timestamp() string {
	return time.Now().UTC().Format(time.RFC3339)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorBody{Error: msg, Timestamp: timestamp()})
}
