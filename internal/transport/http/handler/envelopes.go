package handler

import (
	"encoding/json"
	"net/http"

	"github.com/edutok-api/internal/domain"
)

// MessageEnvelope is the generic response wrapper.
type MessageEnvelope struct {
	Message   string `json:"message,omitempty"`
	Error     string `json:"error,omitempty"`
	ErrorCode int    `json:"error_code,omitempty"`
}

// PushEnvelope answers push-token requests. OK=false carries a message the
// UI can show as a retry toast.
type PushEnvelope struct {
	OK    bool   `json:"ok"`
	Token string `json:"token,omitempty"`
	State string `json:"state,omitempty"`
	Error string `json:"error,omitempty"`
}

// CreatedNotificationsEnvelope wraps a fan-out result.
type CreatedNotificationsEnvelope struct {
	Created       int                   `json:"created"`
	Notifications []domain.Notification `json:"notifications"`
}

// MarkAllEnvelope reports how many records a read-all changed.
type MarkAllEnvelope struct {
	Updated int `json:"updated"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, MessageEnvelope{Error: msg})
}
