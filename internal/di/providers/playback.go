package providers

import (
	"context"

	"github.com/samber/do/v2"

	"github.com/lecternapp/lectern/internal/config"
	"github.com/lecternapp/lectern/internal/logger"
	"github.com/lecternapp/lectern/internal/session"
)

// PlayerHandle wraps the player with shutdown capability.
type PlayerHandle struct {
	*session.Player
}

// Shutdown implements do.Shutdownable.
func (h *PlayerHandle) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return h.Close(ctx)
}

// ProvidePlayer provides the cross-book playback manager. The engine factory
// is supplied by the caller when the container is built; the core never
// constructs a concrete engine itself.
func ProvidePlayer(i do.Injector) (*PlayerHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	catalog := do.MustInvoke[*CatalogHandle](i)
	bus := do.MustInvoke[*BusHandle](i)
	factory := do.MustInvoke[session.EngineFactory](i)

	player := session.NewPlayer(cfg.Playback, log.Logger, catalog.Store, bus.Bus, factory)

	return &PlayerHandle{Player: player}, nil
}
