package http

import "net/http"

// Health reports API availability for load balancers and monitoring.
func Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
