package session

import (
	"context"
	"log/slog"
	"sync"

	"github.com/lecternapp/lectern/internal/config"
	"github.com/lecternapp/lectern/internal/engine"
	"github.com/lecternapp/lectern/internal/errors"
	"github.com/lecternapp/lectern/internal/notify"
	"github.com/lecternapp/lectern/internal/store"
)

// EngineFactory produces a fresh engine adapter for each session. Switching
// books never reloads an engine in place.
type EngineFactory func() engine.Adapter

// Player owns at most one live session and performs cross-book switches: the
// outgoing session is flushed and torn down completely before the next book
// is loaded.
type Player struct {
	cfg       config.PlaybackConfig
	logger    *slog.Logger
	catalog   store.Catalog
	bus       *notify.Bus
	newEngine EngineFactory

	mu      sync.Mutex
	current *Session
	cancel  context.CancelFunc
	history []string
}

// NewPlayer creates a player.
func NewPlayer(cfg config.PlaybackConfig, logger *slog.Logger, catalog store.Catalog, bus *notify.Bus, factory EngineFactory) *Player {
	return &Player{
		cfg:       cfg,
		logger:    logger,
		catalog:   catalog,
		bus:       bus,
		newEngine: factory,
	}
}

// Current returns the live session, or nil.
func (p *Player) Current() *Session {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current
}

// History returns the IDs of books listened to long enough to count, oldest
// first.
func (p *Player) History() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.history...)
}

// OpenBook switches the player to the given book and starts playback.
// Opening the already-active book is a no-op.
func (p *Player) OpenBook(ctx context.Context, bookID string) (*Session, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.current != nil && p.current.BookID() == bookID {
		return p.current, nil
	}
	return p.switchLocked(ctx, bookID)
}

// NextBook opens the book after the current one in the caller-supplied
// ordered ID list.
func (p *Player) NextBook(ctx context.Context, order []string) (*Session, error) {
	return p.openRelative(ctx, order, +1)
}

// PreviousBook opens the book before the current one in the caller-supplied
// ordered ID list.
func (p *Player) PreviousBook(ctx context.Context, order []string) (*Session, error) {
	return p.openRelative(ctx, order, -1)
}

func (p *Player) openRelative(ctx context.Context, order []string, step int) (*Session, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(order) == 0 {
		return nil, errors.NotFound("no books to switch between")
	}

	pos := -1
	if p.current != nil {
		currentID := p.current.BookID()
		for i, bid := range order {
			if bid == currentID {
				pos = i
				break
			}
		}
	}

	next := pos + step
	if pos == -1 {
		// No current book in the list: start at an end.
		if step > 0 {
			next = 0
		} else {
			next = len(order) - 1
		}
	}
	if next < 0 || next >= len(order) {
		p.bus.Emit(notify.EventPlaybackBoundary, nil)
		return nil, errors.NotFound("no book in that direction")
	}
	return p.switchLocked(ctx, order[next])
}

// OpenPinned opens the pinned book at the given position (0-based).
func (p *Player) OpenPinned(ctx context.Context, index int) (*Session, error) {
	pinned, err := p.catalog.GetPinnedBooks(ctx)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeInternal, "load pinned books")
	}
	if index < 0 || index >= len(pinned) {
		return nil, errors.NotFoundf("no pinned book at position %d", index+1)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.current != nil && p.current.BookID() == pinned[index].ID {
		return p.current, nil
	}
	return p.switchLocked(ctx, pinned[index].ID)
}

// switchLocked flushes and tears down the outgoing session, then opens and
// starts the new book. Caller holds p.mu.
func (p *Player) switchLocked(ctx context.Context, bookID string) (*Session, error) {
	// The outgoing state is fully flushed before the new book loads;
	// the two books' saves never interleave.
	if err := p.closeCurrentLocked(ctx); err != nil {
		p.logger.Error("close outgoing session", slog.String("error", err.Error()))
	}

	eng := p.newEngine()
	s, err := Open(ctx, Deps{
		Engine:  eng,
		Catalog: p.catalog,
		Bus:     p.bus,
		Logger:  p.logger,
		Config:  p.cfg,
	}, bookID)
	if err != nil {
		eng.Release()
		return nil, err
	}

	runCtx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel
	go s.Run(runCtx)
	p.current = s

	s.Play()
	p.bus.Emit(notify.EventBookSwitched, notify.BookData{BookID: bookID})
	return s, nil
}

// closeCurrentLocked flushes and tears down the live session and clears it.
// Caller holds p.mu.
func (p *Player) closeCurrentLocked(ctx context.Context) error {
	if p.current == nil {
		return nil
	}
	outgoing := p.current
	listened := outgoing.ListenedMs()
	outgoingID := outgoing.BookID()

	err := outgoing.Close(ctx)
	if p.cancel != nil {
		p.cancel()
		p.cancel = nil
	}
	p.current = nil

	// Accidental opens stay out of the listening history.
	if listened >= p.cfg.HistoryThresholdMs {
		p.history = append(p.history, outgoingID)
	}
	return err
}

// Close tears down the live session, if any. Idempotent. A later OpenBook
// starts a fresh session; the player itself stays usable.
func (p *Player) Close(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closeCurrentLocked(ctx)
}
