// Package main provides the entry point for the Lectern playback core.
//
// Lectern is a library first: an embedding UI supplies a real engine adapter
// and drives the player. This binary wires the full container against the
// scripted silent engine so the catalog, persistence, refinement, and timer
// paths can be exercised without audio output.
package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/samber/do/v2"

	"github.com/lecternapp/lectern/internal/di"
	"github.com/lecternapp/lectern/internal/di/providers"
	"github.com/lecternapp/lectern/internal/engine"
	"github.com/lecternapp/lectern/internal/engine/enginetest"
	"github.com/lecternapp/lectern/internal/logger"
)

func main() {
	// Create DI container. The silent engine still checks file presence on
	// playlist load, so index-map gaps behave as they would with real audio.
	injector := di.NewContainer(func() engine.Adapter {
		f := enginetest.New()
		f.AcceptAll = false
		return f
	})

	// Bootstrap all services
	if err := di.Bootstrap(injector); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to bootstrap: %v\n", err)
		os.Exit(1)
	}

	log := do.MustInvoke[*logger.Logger](injector)
	timer := do.MustInvoke[*providers.SleepTimerHandle](injector)

	// Wait for a shutdown signal or a fired close_app sleep timer.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case <-timer.Quit:
		log.Info("Sleep timer requested application shutdown")
	}

	log.Info("Shutting down gracefully...")

	// The DI container handles shutdown order automatically
	if err := injector.Shutdown(); err != nil {
		log.Error("Shutdown error", "error", err)
	}

	// The catalog uses a wrapper type and needs explicit shutdown
	if catalog, err := do.Invoke[*providers.CatalogHandle](injector); err == nil {
		log.Info("Closing catalog...")
		if err := catalog.Shutdown(); err != nil {
			log.Error("Failed to close catalog", "error", err)
		}
	}

	log.Info("Goodnight.")
}
