package handler

import (
	"net/http"

	"github.com/edutok-api/internal/config"
)

// FirebaseConfigHandler serves the web push configuration to the service
// worker. When nothing is configured it answers 404 and the worker falls back
// to its built-in defaults.
type FirebaseConfigHandler struct {
	cfg config.FirebaseWebConfig
}

func NewFirebaseConfigHandler(cfg config.FirebaseWebConfig) *FirebaseConfigHandler {
	return &FirebaseConfigHandler{cfg: cfg}
}

func (h *FirebaseConfigHandler) Get(w http.ResponseWriter, _ *http.Request) {
	if !h.cfg.Configured() {
		writeError(w, http.StatusNotFound, "firebase config not available")
		return
	}
	w.Header().Set("Cache-Control", "public, max-age=300")
	writeJSON(w, http.StatusOK, h.cfg)
}
