package http

import (
	"context"

	"github.com/edutok-api/internal/application/notification"
	"github.com/edutok-api/internal/application/retention"
	"github.com/edutok-api/internal/infrastructure/ws"
	"github.com/edutok-api/internal/transport/http/handler"
	appmiddleware "github.com/edutok-api/internal/transport/http/middleware"
)

// StoreProbe is what the readiness check calls on the backing store.
type StoreProbe interface {
	Keys(ctx context.Context, path string) ([]string, error)
}

// Deps holds everything the router wires into handlers.
type Deps struct {
	Notifications notification.Service
	Push          handler.PushManager
	Cleaner       retention.Runner
	Hub           *ws.Hub
	Store         StoreProbe
	Verifier      appmiddleware.Verifier
}
