// Package di provides dependency injection configuration for the Lectern core.
package di

import (
	"github.com/samber/do/v2"

	"github.com/lecternapp/lectern/internal/config"
	"github.com/lecternapp/lectern/internal/di/providers"
	"github.com/lecternapp/lectern/internal/logger"
	"github.com/lecternapp/lectern/internal/refine"
	"github.com/lecternapp/lectern/internal/session"
)

// NewContainer creates and configures the DI container with all providers.
// The engine factory is the only value supplied from outside: the core
// consumes a playback engine, it never implements one.
func NewContainer(factory session.EngineFactory) *do.RootScope {
	injector := do.New()

	do.ProvideValue(injector, factory)

	// Core infrastructure
	do.Provide(injector, providers.ProvideConfig)
	do.Provide(injector, providers.ProvideLogger)

	// Catalog and events
	do.Provide(injector, providers.ProvideCatalog)
	do.Provide(injector, providers.ProvideBus)

	// Playback
	do.Provide(injector, providers.ProvidePlayer)
	do.Provide(injector, providers.ProvideSleepTimer)

	// Workers
	do.Provide(injector, providers.ProvideRefineWorker)

	return injector
}

// Bootstrap initializes all services and returns once every provider has run.
// This triggers lazy initialization in dependency order.
func Bootstrap(injector *do.RootScope) error {
	_ = do.MustInvoke[*config.Config](injector)
	_ = do.MustInvoke[*logger.Logger](injector)
	_ = do.MustInvoke[*providers.CatalogHandle](injector)
	_ = do.MustInvoke[*providers.BusHandle](injector)
	_ = do.MustInvoke[*providers.PlayerHandle](injector)
	_ = do.MustInvoke[*providers.SleepTimerHandle](injector)
	_ = do.MustInvoke[*refine.Worker](injector)

	return nil
}
