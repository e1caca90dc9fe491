// Package sleeptimer implements the sleep timer: a single-shot countdown
// that pauses playback, closes the player or application, or performs an OS
// power action, gated by one of three confirmation modes.
package sleeptimer

import (
	"context"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/lecternapp/lectern/internal/config"
	"github.com/lecternapp/lectern/internal/errors"
	"github.com/lecternapp/lectern/internal/notify"
)

// maxTimerDelay is the largest delay a single-shot timer is armed with.
// Longer requests are clamped and logged, never silently wrapped.
const maxTimerDelay = time.Duration(math.MaxInt32) * time.Millisecond

// Action is what happens when the timer fires.
type Action string

const (
	ActionPause       Action = "pause"
	ActionClosePlayer Action = "close_player"
	ActionCloseApp    Action = "close_app"
	ActionSleep       Action = "sleep"
	ActionHibernate   Action = "hibernate"
	ActionShutdown    Action = "shutdown"
)

// IsOSAction reports whether the action invokes an OS power command.
func (a Action) IsOSAction() bool {
	switch a {
	case ActionSleep, ActionHibernate, ActionShutdown:
		return true
	}
	return false
}

// ConfirmMode gates OS actions before execution.
type ConfirmMode string

const (
	// ConfirmSilent executes immediately.
	ConfirmSilent ConfirmMode = "silent"
	// ConfirmPrompt shows a blocking yes/no prompt.
	ConfirmPrompt ConfirmMode = "confirm"
	// ConfirmTimed shows a cancellable countdown that executes on expiry.
	ConfirmTimed ConfirmMode = "timed"
)

// Dispatcher receives the in-application actions.
type Dispatcher interface {
	// PausePlayback pauses the active session, if any.
	PausePlayback()
	// ClosePlayer requests termination of the active session.
	ClosePlayer()
	// CloseApp requests application shutdown.
	CloseApp()
}

// Prompter gates OS actions that require user consent. Implementations block
// until the user answers or the countdown elapses.
type Prompter interface {
	// Confirm asks a yes/no question; true means proceed.
	Confirm(ctx context.Context, action Action) bool
	// TimedConfirm shows a countdown of the given length; true means the
	// countdown elapsed without cancellation.
	TimedConfirm(ctx context.Context, action Action, seconds int) bool
}

// Runner invokes the resolved OS command. The call is fire and forget: a
// failure is reported once and never retried.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) error
}

// Service is the sleep timer state machine: Idle or Armed. All methods are
// safe for concurrent use; the timer callback re-enters through the same
// mutex.
type Service struct {
	cfg        config.SleepTimerConfig
	logger     *slog.Logger
	bus        *notify.Bus
	dispatcher Dispatcher
	prompter   Prompter
	runner     Runner

	mu       sync.Mutex
	timer    *time.Timer
	tickStop chan struct{}
	endTime  time.Time
	action   Action
	mode     ConfirmMode
	armed    bool
}

// New creates a sleep timer service. A nil runner uses the real command
// runner.
func New(cfg config.SleepTimerConfig, logger *slog.Logger, bus *notify.Bus, dispatcher Dispatcher, prompter Prompter, runner Runner) *Service {
	if runner == nil {
		runner = &execRunner{}
	}
	return &Service{
		cfg:        cfg,
		logger:     logger,
		bus:        bus,
		dispatcher: dispatcher,
		prompter:   prompter,
		runner:     runner,
	}
}

// StartTimer arms the timer, replacing any armed one.
func (s *Service) StartTimer(d time.Duration, action Action, mode ConfirmMode) error {
	if d <= 0 {
		return errors.Validation("sleep timer duration must be positive")
	}
	if d > maxTimerDelay {
		s.logger.Warn("sleep timer duration clamped",
			slog.Duration("requested", d), slog.Duration("clamped", maxTimerDelay))
		d = maxTimerDelay
	}

	s.mu.Lock()
	if s.timer != nil {
		s.timer.Stop()
	}
	s.stopTickerLocked()
	s.endTime = time.Now().Add(d)
	s.action = action
	s.mode = mode
	s.armed = true
	s.timer = time.AfterFunc(d, s.fire)
	stop := make(chan struct{})
	s.tickStop = stop
	s.mu.Unlock()

	go s.runTicker(stop)

	s.bus.Emit(notify.EventSleepTimerStarted, notify.SleepTimerData{
		DurationMs: d.Milliseconds(),
		Action:     string(action),
	})
	return nil
}

// CancelTimer disarms the timer. No-op when idle.
func (s *Service) CancelTimer() {
	s.mu.Lock()
	if !s.armed {
		s.mu.Unlock()
		return
	}
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.stopTickerLocked()
	s.armed = false
	s.endTime = time.Time{}
	s.mu.Unlock()

	s.bus.Emit(notify.EventSleepTimerCancelled, nil)
}

// stopTickerLocked stops the countdown ticker. Caller holds s.mu.
func (s *Service) stopTickerLocked() {
	if s.tickStop != nil {
		close(s.tickStop)
		s.tickStop = nil
	}
}

// runTicker emits a tick with the remaining whole seconds once per second
// while the timer stays armed. The stop channel ties each ticker to the arm
// that created it, so a restart never leaves two tickers running.
func (s *Service) runTicker(stop chan struct{}) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if !s.IsArmed() {
				return
			}
			s.bus.Emit(notify.EventSleepTimerTick, notify.SleepTimerTickData{
				RemainingSec: s.GetRemainingSeconds(),
			})
		}
	}
}

// IsArmed reports whether a timer is counting down.
func (s *Service) IsArmed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.armed
}

// Remaining returns the time left, derived from the wall clock so it never
// drifts. Zero when idle.
func (s *Service) Remaining() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.armed {
		return 0
	}
	left := time.Until(s.endTime)
	if left < 0 {
		return 0
	}
	return left
}

// GetRemainingSeconds returns the remaining whole seconds.
func (s *Service) GetRemainingSeconds() int {
	return int(s.Remaining() / time.Second)
}

// fire runs on timer expiry. State is cleared back to Idle before the action
// dispatches, so a re-entrant StartTimer during dispatch is valid.
func (s *Service) fire() {
	s.mu.Lock()
	if !s.armed {
		// Lost the race against CancelTimer.
		s.mu.Unlock()
		return
	}
	action := s.action
	mode := s.mode
	s.stopTickerLocked()
	s.armed = false
	s.timer = nil
	s.endTime = time.Time{}
	s.mu.Unlock()

	s.bus.Emit(notify.EventSleepTimerFired, notify.SleepTimerData{Action: string(action)})
	s.dispatch(action, mode)
}

func (s *Service) dispatch(action Action, mode ConfirmMode) {
	switch action {
	case ActionPause:
		// Pausing never asks for confirmation.
		s.dispatcher.PausePlayback()
	case ActionClosePlayer:
		s.dispatcher.ClosePlayer()
	case ActionCloseApp:
		s.dispatcher.CloseApp()
	default:
		s.dispatchOSAction(action, mode)
	}
}

func (s *Service) dispatchOSAction(action Action, mode ConfirmMode) {
	ctx := context.Background()

	switch mode {
	case ConfirmPrompt:
		if s.prompter == nil || !s.prompter.Confirm(ctx, action) {
			s.logger.Info("os action declined", slog.String("action", string(action)))
			return
		}
	case ConfirmTimed:
		if s.prompter == nil || !s.prompter.TimedConfirm(ctx, action, s.cfg.TimedConfirmSeconds) {
			s.logger.Info("os action countdown cancelled", slog.String("action", string(action)))
			return
		}
	}

	name, args, err := osCommand(action)
	if err != nil {
		s.logger.Error("resolve os command",
			slog.String("action", string(action)), slog.String("error", err.Error()))
		return
	}

	// One attempt only. Retrying a failed shutdown command blindly is not
	// safe.
	if err := s.runner.Run(ctx, name, args...); err != nil {
		osErr := errors.Wrapf(err, errors.CodeOsAction, "run %s command", action)
		s.logger.Error("os action failed", slog.String("action", string(action)),
			slog.String("error", osErr.Error()))
	}
}
