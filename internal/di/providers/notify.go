package providers

import (
	"context"

	"github.com/samber/do/v2"

	"github.com/lecternapp/lectern/internal/logger"
	"github.com/lecternapp/lectern/internal/notify"
)

// BusHandle wraps the event bus with its context for lifecycle management.
type BusHandle struct {
	*notify.Bus
	cancel context.CancelFunc
}

// Shutdown implements do.Shutdownable.
func (h *BusHandle) Shutdown() error {
	h.cancel()
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return h.Bus.Shutdown(ctx)
}

// ProvideBus provides the in-process event bus.
func ProvideBus(i do.Injector) (*BusHandle, error) {
	log := do.MustInvoke[*logger.Logger](i)

	bus := notify.NewBus(log.Logger)

	// Start in background
	ctx, cancel := context.WithCancel(context.Background())
	go bus.Start(ctx)

	log.Info("Event bus started")

	return &BusHandle{
		Bus:    bus,
		cancel: cancel,
	}, nil
}
