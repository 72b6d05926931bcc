package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/edutok-api/internal/application/notification"
	"github.com/edutok-api/internal/domain"
	"github.com/edutok-api/internal/infrastructure/ws"
	"github.com/edutok-api/internal/pkg/validate"
	"github.com/edutok-api/internal/transport/http/middleware"
	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
)

// NotificationHandler handles notification endpoints.
type NotificationHandler struct {
	svc      notification.Service
	hub      *ws.Hub
	upgrader *websocket.Upgrader
}

func NewNotificationHandler(svc notification.Service, hub *ws.Hub, upgrader *websocket.Upgrader) *NotificationHandler {
	return &NotificationHandler{svc: svc, hub: hub, upgrader: upgrader}
}

func (h *NotificationHandler) List(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	writeJSON(w, http.StatusOK, h.svc.Inbox(r.Context(), claims.UserID))
}

// Stream upgrades to a websocket that receives the inbox on every change and
// a toast for every new notification.
func (h *NotificationHandler) Stream(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("websocket upgrade failed", "user_id", claims.UserID, "err", err)
		return
	}
	client := h.hub.Attach(claims.UserID, conn)
	sub, err := h.svc.Subscribe(r.Context(), claims.UserID, func(in notification.Inbox) {
		client.Send(ws.Message{Type: ws.TypeInbox, Inbox: in})
	})
	if err != nil {
		slog.Warn("inbox subscription failed", "user_id", claims.UserID, "err", err)
		client.Close()
		return
	}
	defer sub.Close()
	client.ReadUntilClosed()
}

func (h *NotificationHandler) MarkAsRead(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	if err := h.svc.MarkAsRead(r.Context(), claims.UserID, chi.URLParam(r, "id")); err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageEnvelope{Message: "ok"})
}

func (h *NotificationHandler) MarkAllAsRead(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	n, err := h.svc.MarkAllAsRead(r.Context(), claims.UserID)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, MarkAllEnvelope{Updated: n})
}

func (h *NotificationHandler) Delete(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	if err := h.svc.SoftDelete(r.Context(), claims.UserID, chi.URLParam(r, "id")); err != nil {
		httpError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Create fans one notification out to every listed user.
func (h *NotificationHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateNotificationsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(req); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	created, err := h.svc.CreateForUsers(r.Context(), req.UserIDs, req.NotificationInput)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, CreatedNotificationsEnvelope{Created: len(created), Notifications: created})
}
