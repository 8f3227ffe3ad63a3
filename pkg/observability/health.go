package observability

import (
	"encoding/json"
	"net/http"
)

const healthStatusOK = "ok"

// HealthResponse is the body of the liveness endpoint.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version,omitempty"`
}

// HealthHandler serves liveness checks; it always answers 200.
func HealthHandler(version string) http.Handler {
	body, err := json.Marshal(HealthResponse{Status: healthStatusOK, Version: version})
	if err != nil {
		body = []byte(`{"status":"ok"}`)
	}

	return http.HandlerFunc(func(rw http.ResponseWriter, _ *http.Request) {
		rw.Header().Set("Content-Type", "application/json")
		rw.WriteHeader(http.StatusOK)

		_, writeErr := rw.Write(body)
		if writeErr != nil {
			return
		}
	})
}
