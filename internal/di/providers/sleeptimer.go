package providers

import (
	"context"
	"sync"

	"github.com/samber/do/v2"

	"github.com/lecternapp/lectern/internal/config"
	"github.com/lecternapp/lectern/internal/logger"
	"github.com/lecternapp/lectern/internal/session"
	"github.com/lecternapp/lectern/internal/sleeptimer"
)

// SleepTimerHandle wraps the sleep timer with shutdown capability. Quit is
// closed when a fired timer requests application termination.
type SleepTimerHandle struct {
	*sleeptimer.Service
	Quit chan struct{}
}

// Shutdown implements do.Shutdownable. Cancelling here guarantees no timer
// fires after the container is torn down.
func (h *SleepTimerHandle) Shutdown() error {
	h.CancelTimer()
	return nil
}

// playerDispatcher routes in-application timer actions to the live session.
type playerDispatcher struct {
	player   *session.Player
	quit     chan struct{}
	quitOnce *sync.Once
}

func (d *playerDispatcher) PausePlayback() {
	if s := d.player.Current(); s != nil {
		s.Pause()
	}
}

func (d *playerDispatcher) ClosePlayer() {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	// The player clears its live session so a later open starts fresh.
	_ = d.player.Close(ctx)
}

func (d *playerDispatcher) CloseApp() {
	d.quitOnce.Do(func() { close(d.quit) })
}

// ProvideSleepTimer provides the sleep timer service wired to the player.
// No prompter is registered here: a headless run aborts confirm-gated OS
// actions, and an embedding UI can arm timers in silent mode.
func ProvideSleepTimer(i do.Injector) (*SleepTimerHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	bus := do.MustInvoke[*BusHandle](i)
	player := do.MustInvoke[*PlayerHandle](i)

	quit := make(chan struct{})
	dispatcher := &playerDispatcher{
		player:   player.Player,
		quit:     quit,
		quitOnce: &sync.Once{},
	}

	svc := sleeptimer.New(cfg.SleepTimer, log.Logger, bus.Bus, dispatcher, nil, nil)

	return &SleepTimerHandle{
		Service: svc,
		Quit:    quit,
	}, nil
}
