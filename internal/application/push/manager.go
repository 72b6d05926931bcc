package push

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/edutok-api/internal/domain"
	"github.com/edutok-api/internal/pathstore"
	"github.com/jonboulle/clockwork"
)

var (
	ErrPermissionDenied = fmt.Errorf("push permission denied: %w", domain.ErrForbidden)
	ErrTokenUnavailable = errors.New("push token unavailable")
)

// State is where a user sits in the token lifecycle.
type State string

const (
	StateNoPermission        State = "no-permission"
	StatePermissionRequested State = "permission-requested"
	StateGrantedNoToken      State = "granted-no-token"
	StateTokenActive         State = "token-active"
	StateRotating            State = "rotating"
)

// Channel is the external push delivery channel.
type Channel interface {
	RequestPermission(ctx context.Context, reg domain.PushRegistration) (bool, error)
	GetToken(ctx context.Context, reg domain.PushRegistration, credential string) (string, error)
	DeleteToken(ctx context.Context, token string) error
}

type tokenStore interface {
	Get(ctx context.Context, path string) (json.RawMessage, error)
	Update(ctx context.Context, updates map[string]any) error
}

// Manager owns the fcmTokens/{userId} record. Operations on one user are
// serialised; different users proceed independently.
type Manager struct {
	store      tokenStore
	channel    Channel
	credential string
	clock      clockwork.Clock

	mu     sync.Mutex
	states map[string]State
	locks  map[string]*sync.Mutex
}

func NewManager(store tokenStore, channel Channel, credential string, clock clockwork.Clock) *Manager {
	return &Manager{
		store:      store,
		channel:    channel,
		credential: credential,
		clock:      clock,
		states:     map[string]State{},
		locks:      map[string]*sync.Mutex{},
	}
}

// Enable asks for permission and, once granted, issues and stores a token.
func (m *Manager) Enable(ctx context.Context, userID string, reg domain.PushRegistration) (*domain.PushToken, error) {
	if !pathstore.ValidKey(userID) {
		return nil, fmt.Errorf("invalid user id: %w", domain.ErrBadRequest)
	}
	unlock := m.lockUser(userID)
	defer unlock()

	m.setState(userID, StatePermissionRequested)
	granted, err := m.channel.RequestPermission(ctx, reg)
	if err != nil || !granted {
		m.setState(userID, StateNoPermission)
		if err != nil {
			slog.Warn("push permission request failed", "user_id", userID, "err", err)
		}
		return nil, ErrPermissionDenied
	}
	m.setState(userID, StateGrantedNoToken)
	return m.issue(ctx, userID, reg)
}

// Rotate replaces the user's token. The old token is revoked and its record
// removed before a new one is requested, so two tokens never coexist.
func (m *Manager) Rotate(ctx context.Context, userID string, reg domain.PushRegistration) (*domain.PushToken, error) {
	if !pathstore.ValidKey(userID) {
		return nil, fmt.Errorf("invalid user id: %w", domain.ErrBadRequest)
	}
	unlock := m.lockUser(userID)
	defer unlock()

	m.setState(userID, StateRotating)
	if old, err := m.read(ctx, userID); err == nil && old.Token != "" {
		if err := m.channel.DeleteToken(ctx, old.Token); err != nil {
			slog.Warn("revoke push token failed", "user_id", userID, "err", err)
		}
	}
	if err := m.dropRecord(ctx, userID); err != nil {
		slog.Warn("delete push token record failed", "user_id", userID, "err", err)
		m.setState(userID, StateGrantedNoToken)
		return nil, ErrTokenUnavailable
	}
	m.setState(userID, StateGrantedNoToken)
	return m.issue(ctx, userID, reg)
}

// dropRecord deletes the stored token, retrying once. No new token may be
// requested while the old record is still present.
func (m *Manager) dropRecord(ctx context.Context, userID string) error {
	var err error
	for attempt := 0; attempt < 2; attempt++ {
		if err = m.store.Update(ctx, map[string]any{domain.PushTokenPath(userID): nil}); err == nil {
			return nil
		}
	}
	return err
}

// Current returns the stored token, or ErrNotFound.
func (m *Manager) Current(ctx context.Context, userID string) (*domain.PushToken, error) {
	if !pathstore.ValidKey(userID) {
		return nil, fmt.Errorf("invalid user id: %w", domain.ErrBadRequest)
	}
	return m.read(ctx, userID)
}

// State reports the lifecycle state last reached for userID.
func (m *Manager) State(userID string) State {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.states[userID]; ok {
		return s
	}
	return StateNoPermission
}

func (m *Manager) issue(ctx context.Context, userID string, reg domain.PushRegistration) (*domain.PushToken, error) {
	tok, err := m.channel.GetToken(ctx, reg, m.credential)
	if err != nil || tok == "" {
		slog.Warn("push token request failed", "user_id", userID, "err", err)
		return nil, ErrTokenUnavailable
	}
	rec := domain.PushToken{Token: tok, UpdatedAt: m.clock.Now().UnixMilli()}
	if err := m.store.Update(ctx, map[string]any{domain.PushTokenPath(userID): rec}); err != nil {
		slog.Warn("store push token failed", "user_id", userID, "err", err)
		if derr := m.channel.DeleteToken(ctx, tok); derr != nil {
			slog.Warn("revoke unsaved push token failed", "user_id", userID, "err", derr)
		}
		return nil, ErrTokenUnavailable
	}
	m.setState(userID, StateTokenActive)
	return &rec, nil
}

func (m *Manager) read(ctx context.Context, userID string) (*domain.PushToken, error) {
	raw, err := m.store.Get(ctx, domain.PushTokenPath(userID))
	if err != nil {
		return nil, err
	}
	var tok domain.PushToken
	if err := json.Unmarshal(raw, &tok); err != nil {
		return nil, fmt.Errorf("decode push token: %w", err)
	}
	return &tok, nil
}

func (m *Manager) setState(userID string, s State) {
	m.mu.Lock()
	m.states[userID] = s
	m.mu.Unlock()
}

func (m *Manager) lockUser(userID string) func() {
	m.mu.Lock()
	l, ok := m.locks[userID]
	if !ok {
		l = &sync.Mutex{}
		m.locks[userID] = l
	}
	m.mu.Unlock()
	l.Lock()
	return l.Unlock
}
