package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/edutok-api/internal/application/push"
	"github.com/edutok-api/internal/domain"
	"github.com/edutok-api/internal/pkg/validate"
	"github.com/edutok-api/internal/transport/http/middleware"
)

const (
	msgPushDenied      = "notifications are blocked in this browser; allow them in the site settings and try again"
	msgPushUnavailable = "could not enable push notifications right now, please try again later"
)

// PushManager is the token lifecycle the handler drives.
type PushManager interface {
	Enable(ctx context.Context, userID string, reg domain.PushRegistration) (*domain.PushToken, error)
	Rotate(ctx context.Context, userID string, reg domain.PushRegistration) (*domain.PushToken, error)
	Current(ctx context.Context, userID string) (*domain.PushToken, error)
	State(userID string) push.State
}

// PushHandler handles push-token endpoints.
type PushHandler struct {
	mgr PushManager
}

func NewPushHandler(mgr PushManager) *PushHandler {
	return &PushHandler{mgr: mgr}
}

func (h *PushHandler) Get(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	tok, err := h.mgr.Current(r.Context(), claims.UserID)
	state := string(h.mgr.State(claims.UserID))
	if errors.Is(err, domain.ErrNotFound) {
		writeJSON(w, http.StatusOK, PushEnvelope{OK: false, State: state})
		return
	}
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, PushEnvelope{OK: true, Token: tok.Token, State: state})
}

func (h *PushHandler) Register(w http.ResponseWriter, r *http.Request) {
	h.handle(w, r, h.mgr.Enable)
}

func (h *PushHandler) Rotate(w http.ResponseWriter, r *http.Request) {
	h.handle(w, r, h.mgr.Rotate)
}

type tokenOp func(ctx context.Context, userID string, reg domain.PushRegistration) (*domain.PushToken, error)

func (h *PushHandler) handle(w http.ResponseWriter, r *http.Request, op tokenOp) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var reg domain.PushRegistration
	if err := json.NewDecoder(r.Body).Decode(&reg); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(reg); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	tok, err := op(r.Context(), claims.UserID, reg)
	state := string(h.mgr.State(claims.UserID))
	switch {
	case errors.Is(err, push.ErrPermissionDenied):
		writeJSON(w, http.StatusForbidden, PushEnvelope{OK: false, State: state, Error: msgPushDenied})
	case errors.Is(err, push.ErrTokenUnavailable):
		writeJSON(w, http.StatusServiceUnavailable, PushEnvelope{OK: false, State: state, Error: msgPushUnavailable})
	case err != nil:
		httpError(w, err)
	default:
		writeJSON(w, http.StatusOK, PushEnvelope{OK: true, Token: tok.Token, State: state})
	}
}
