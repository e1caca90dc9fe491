package session

import (
	"context"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lecternapp/lectern/internal/engine"
	"github.com/lecternapp/lectern/internal/engine/enginetest"
	"github.com/lecternapp/lectern/internal/errors"
	"github.com/lecternapp/lectern/internal/notify"
)

func newTestPlayer(t *testing.T) (*Player, *memCatalog) {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	catalog := newMemCatalog()
	ctx := context.Background()
	require.NoError(t, catalog.CreateBook(ctx, testBook("book-1")))
	require.NoError(t, catalog.CreateBook(ctx, testBook("book-2")))
	require.NoError(t, catalog.CreateBook(ctx, testBook("book-3")))

	bus := notify.NewBus(logger)
	busCtx, cancel := context.WithCancel(ctx)
	go bus.Start(busCtx)
	t.Cleanup(cancel)

	factory := func() engine.Adapter {
		f := enginetest.New()
		f.Lengths = map[string]int64{}
		return f
	}

	p := NewPlayer(defaultTestConfig(), logger, catalog, bus, factory)
	t.Cleanup(func() { _ = p.Close(context.Background()) })
	return p, catalog
}

func TestPlayerOpenStartsPlayback(t *testing.T) {
	p, _ := newTestPlayer(t)

	s, err := p.OpenBook(context.Background(), "book-1")
	require.NoError(t, err)
	assert.True(t, s.IsPlaying())
	assert.Same(t, s, p.Current())
}

func TestPlayerReopenSameBookIsNoop(t *testing.T) {
	p, _ := newTestPlayer(t)
	ctx := context.Background()

	s1, err := p.OpenBook(ctx, "book-1")
	require.NoError(t, err)
	s2, err := p.OpenBook(ctx, "book-1")
	require.NoError(t, err)
	assert.Same(t, s1, s2)
}

func TestPlayerSwitchFlushesOutgoingFirst(t *testing.T) {
	p, catalog := newTestPlayer(t)
	ctx := context.Background()

	s1, err := p.OpenBook(ctx, "book-1")
	require.NoError(t, err)
	s1.SeekTo(33000)

	s2, err := p.OpenBook(ctx, "book-2")
	require.NoError(t, err)

	select {
	case <-s1.Done():
	default:
		t.Fatal("outgoing session must be torn down before the new one runs")
	}

	saved, err := catalog.GetPlaybackState(ctx, "book-1")
	require.NoError(t, err)
	assert.Equal(t, int64(33000), saved.PositionMs, "outgoing position flushed on switch")
	assert.Equal(t, "book-2", s2.BookID())
}

func TestPlayerHistoryThreshold(t *testing.T) {
	p, _ := newTestPlayer(t)
	ctx := context.Background()

	s1, err := p.OpenBook(ctx, "book-1")
	require.NoError(t, err)

	// Below the threshold: an accidental open leaves no history entry.
	s1.mu.Lock()
	s1.st.ListenedMs = 1000
	s1.mu.Unlock()
	_, err = p.OpenBook(ctx, "book-2")
	require.NoError(t, err)
	assert.Empty(t, p.History())

	// At or above the threshold the outgoing book is recorded.
	s2 := p.Current()
	s2.mu.Lock()
	s2.st.ListenedMs = 61000
	s2.mu.Unlock()
	_, err = p.OpenBook(ctx, "book-3")
	require.NoError(t, err)
	assert.Equal(t, []string{"book-2"}, p.History())
}

func TestPlayerNextPreviousBook(t *testing.T) {
	p, _ := newTestPlayer(t)
	ctx := context.Background()
	order := []string{"book-1", "book-2", "book-3"}

	_, err := p.OpenBook(ctx, "book-2")
	require.NoError(t, err)

	s, err := p.NextBook(ctx, order)
	require.NoError(t, err)
	assert.Equal(t, "book-3", s.BookID())

	_, err = p.NextBook(ctx, order)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrNotFound))
	assert.Equal(t, "book-3", p.Current().BookID(), "boundary leaves the current book open")

	s, err = p.PreviousBook(ctx, order)
	require.NoError(t, err)
	assert.Equal(t, "book-2", s.BookID())
}

func TestPlayerOpenPinned(t *testing.T) {
	p, catalog := newTestPlayer(t)
	ctx := context.Background()

	catalog.mu.Lock()
	catalog.books["book-2"].IsPinned = true
	catalog.mu.Unlock()

	s, err := p.OpenPinned(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, "book-2", s.BookID())

	_, err = p.OpenPinned(ctx, 5)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrNotFound))
}

func TestPlayerCloseIdempotent(t *testing.T) {
	p, _ := newTestPlayer(t)
	ctx := context.Background()

	_, err := p.OpenBook(ctx, "book-1")
	require.NoError(t, err)

	require.NoError(t, p.Close(ctx))
	require.NoError(t, p.Close(ctx))
	assert.Nil(t, p.Current())
}

func TestPlayerCloseClearsCurrentForReopen(t *testing.T) {
	p, _ := newTestPlayer(t)
	ctx := context.Background()

	s1, err := p.OpenBook(ctx, "book-1")
	require.NoError(t, err)

	// A timer-driven close goes through the player, not the session, so
	// the dead session is never handed out again.
	require.NoError(t, p.Close(ctx))
	assert.Nil(t, p.Current())

	s2, err := p.OpenBook(ctx, "book-1")
	require.NoError(t, err)
	assert.NotSame(t, s1, s2, "reopening the same book yields a fresh session")
	assert.True(t, s2.IsPlaying())

	select {
	case <-s2.Done():
		t.Fatal("fresh session must not be closed")
	default:
	}
}

func TestPlayerCloseRecordsHistory(t *testing.T) {
	p, _ := newTestPlayer(t)
	ctx := context.Background()

	s, err := p.OpenBook(ctx, "book-1")
	require.NoError(t, err)
	s.mu.Lock()
	s.st.ListenedMs = 61000
	s.mu.Unlock()

	require.NoError(t, p.Close(ctx))
	assert.Equal(t, []string{"book-1"}, p.History())
}

func TestPlayerOpenUnknownBook(t *testing.T) {
	p, _ := newTestPlayer(t)

	_, err := p.OpenBook(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrNotFound))
	assert.Nil(t, p.Current())
}

func TestPlayerSessionRunLoopTicks(t *testing.T) {
	p, _ := newTestPlayer(t)
	ctx := context.Background()

	bus := p.bus
	sub, err := bus.Subscribe()
	require.NoError(t, err)
	defer bus.Unsubscribe(sub.ID)

	_, err = p.OpenBook(ctx, "book-1")
	require.NoError(t, err)

	// The pump goroutine emits time ticks while the session is open.
	deadline := time.After(3 * time.Second)
	for {
		select {
		case ev := <-sub.EventChan:
			if ev.Type == notify.EventTimeTick {
				return
			}
		case <-deadline:
			t.Fatal("no time tick observed from the session pump")
		}
	}
}
