package handler

import (
	"net/http"

	"github.com/edutok-api/internal/application/retention"
)

// CleanupHandler triggers a retention pass on demand.
type CleanupHandler struct {
	runner retention.Runner
}

func NewCleanupHandler(r retention.Runner) *CleanupHandler {
	return &CleanupHandler{runner: r}
}

// Run blocks until the pass finishes. A pass with a failed sweep still
// answers 200; the stats carry the error.
func (h *CleanupHandler) Run(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.runner.Run(r.Context()))
}
