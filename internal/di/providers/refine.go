package providers

import (
	"github.com/samber/do/v2"

	"github.com/lecternapp/lectern/internal/config"
	"github.com/lecternapp/lectern/internal/logger"
	"github.com/lecternapp/lectern/internal/refine"
)

// ProvideRefineWorker provides the background duration refinement worker.
func ProvideRefineWorker(i do.Injector) (*refine.Worker, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	catalog := do.MustInvoke[*CatalogHandle](i)

	worker := refine.NewWorker(cfg.Refinement, log.Logger, catalog.Store, refine.NewAudiometaProber())

	return worker, nil
}
