package internal

import (
	"encoding/json"
	"net/http"
)

// Version is reported by the health endpoint.
const Version = "1.0.0"

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

// HandleHealth reports liveness along with the live connection count.
func (hub *Hub) HandleHealth(w http.ResponseWriter, _ *http.Request) {
	connections, users := hub.Stats()
	writeJSON(w, http.StatusOK, map[string]any{
		"status":      "ok",
		"version":     Version,
		"connections": connections,
		"users":       users,
	})
}
