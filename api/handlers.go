package api

import (
	"io"
	"net/http"
)

// LivenessMessage is the body of the liveness route.
const LivenessMessage = "Server is running!"

// liveness reports that the process is up. It makes no claim about the
// database, which may still be connecting or may have failed.
func (a *API) liveness(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if _, err := io.WriteString(w, LivenessMessage); err != nil {
		a.logger.Debugw("Failed to write liveness response", "error", err)
	}
}
