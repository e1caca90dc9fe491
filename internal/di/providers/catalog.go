package providers

import (
	"github.com/samber/do/v2"

	"github.com/lecternapp/lectern/internal/config"
	"github.com/lecternapp/lectern/internal/logger"
	"github.com/lecternapp/lectern/internal/store/sqlite"
)

// CatalogHandle wraps the catalog store with shutdown capability.
type CatalogHandle struct {
	*sqlite.Store
}

// Shutdown implements do.Shutdownable.
func (h *CatalogHandle) Shutdown() error {
	return h.Close()
}

// ProvideCatalog provides the SQLite-backed catalog.
func ProvideCatalog(i do.Injector) (*CatalogHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	db, err := sqlite.Open(cfg.Catalog.Path, log.Logger)
	if err != nil {
		return nil, err
	}

	log.Info("Catalog initialized", "path", cfg.Catalog.Path)

	return &CatalogHandle{Store: db}, nil
}
