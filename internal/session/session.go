package session

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/lecternapp/lectern/internal/config"
	"github.com/lecternapp/lectern/internal/domain"
	"github.com/lecternapp/lectern/internal/engine"
	"github.com/lecternapp/lectern/internal/errors"
	"github.com/lecternapp/lectern/internal/notify"
	"github.com/lecternapp/lectern/internal/store"
)

const (
	// engineEventBuffer bounds the inbound engine event queue.
	engineEventBuffer = 64
	// endOfBookCloseDelay lets the finished notification be perceived
	// before the session tears itself down.
	endOfBookCloseDelay = 100 * time.Millisecond
	// tickInterval drives position updates and the auto-save counter.
	tickInterval = time.Second

	// durationSyncMarginMs is the smallest engine/catalog duration disagreement
	// worth writing back. Sub-second drift is container rounding noise.
	durationSyncMarginMs = 1000

	// settingPreviousRate stores the rate restored by the speed toggle.
	settingPreviousRate = "speed.previous"

	// settingMasterVolume persists the engine volume across sessions. It is
	// a global setting, not part of any book's snapshot.
	settingMasterVolume = "volume.master"
	// defaultPreviousRate applies when the toggle has never stored a rate.
	defaultPreviousRate = 1.5
)

type engineEventKind int

const (
	evFileChanged engineEventKind = iota
	evEndReached
	evCloseRequest
)

type engineEvent struct {
	kind  engineEventKind
	index int
}

// Deps are the collaborators a session needs.
type Deps struct {
	Engine  engine.Adapter
	Catalog store.Catalog
	Bus     *notify.Bus
	Logger  *slog.Logger
	Config  config.PlaybackConfig
}

// Session is one active book's playback session. Engine callbacks are
// marshaled through an internal queue consumed by Run, so state is only ever
// mutated with the session mutex held; exported methods are safe to call
// from any goroutine.
type Session struct {
	cfg     config.PlaybackConfig
	logger  *slog.Logger
	engine  engine.Adapter
	catalog store.Catalog
	bus     *notify.Bus

	events chan engineEvent
	done   chan struct{}

	mu          sync.Mutex
	st          State
	im          IndexMap
	pendingSeek *int64
	tickCount   int
	closed      bool
	closeTimer  *time.Timer
}

// Open loads a book into a fresh session: catalog snapshot, persisted state
// validation and recovery, engine playlist load, and index map construction.
// The caller runs the event pump via Run and releases everything via Close.
func Open(ctx context.Context, deps Deps, bookID string) (*Session, error) {
	book, err := deps.Catalog.GetBook(ctx, bookID)
	if err != nil {
		return nil, errors.Wrapf(err, errors.CodeNotFound, "book %s", bookID)
	}
	files, err := deps.Catalog.GetBookFiles(ctx, bookID)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeInternal, "load book files")
	}
	if len(files) == 0 {
		return nil, errors.EngineLoadf("book %s has no files", bookID)
	}

	persisted, recoveredReason := loadPersistedState(ctx, deps, bookID, files)

	prevRate := defaultPreviousRate
	if v, err := deps.Catalog.GetSetting(ctx, settingPreviousRate); err == nil {
		if parsed, err := strconv.ParseFloat(v, 64); err == nil && parsed >= domain.MinRate && parsed <= domain.MaxRate {
			prevRate = parsed
		}
	}

	// Resume rewind: back up a little when reopening mid-book.
	if persisted.PositionMs > 0 && deps.Config.ResumeRewindMs > 0 {
		persisted.PositionMs -= deps.Config.ResumeRewindMs
		if persisted.PositionMs < 0 {
			persisted.PositionMs = 0
		}
	}

	paths := make([]string, len(files))
	for i, f := range files {
		paths[i] = f.Path
	}
	if !deps.Engine.LoadPlaylist(paths, 0, 0, persisted.Rate) {
		return nil, errors.EngineLoadf("engine rejected playlist for book %s", bookID)
	}
	im := BuildIndexMap(files, deps.Engine.LoadedPaths())

	engineIdx, ok := im.ToEngine(persisted.FileSeq)
	if !ok {
		return nil, errors.FileUnavailablef("saved file %d of book %s is missing on disk", persisted.FileSeq, bookID)
	}

	var dur int64
	if f := book.FileBySequence(persisted.FileSeq); f != nil {
		dur = f.DurationMs
	} else {
		for i := range files {
			if files[i].SequenceIndex == persisted.FileSeq {
				dur = files[i].DurationMs
			}
		}
	}
	persisted.PositionMs = domain.ClampPosition(persisted.PositionMs, dur)

	// Position before registering callbacks so the initial jump produces
	// no file-changed event.
	if engineIdx != deps.Engine.GetCurrentIndex() || persisted.PositionMs > 0 {
		if !deps.Engine.PlaylistJump(engineIdx, persisted.PositionMs) {
			return nil, errors.EngineLoadf("engine rejected jump to file %d", persisted.FileSeq)
		}
	}
	deps.Engine.SetRate(persisted.Rate)
	deps.Engine.SetAudioFilters(persisted.EQ.FilterString(persisted.EQEnabled))

	if v, err := deps.Catalog.GetSetting(ctx, settingMasterVolume); err == nil {
		if volume, err := strconv.Atoi(v); err == nil && volume >= 0 && volume <= 100 {
			deps.Engine.SetVolume(volume)
		}
	}

	s := &Session{
		cfg:     deps.Config,
		logger:  deps.Logger,
		engine:  deps.Engine,
		catalog: deps.Catalog,
		bus:     deps.Bus,
		events:  make(chan engineEvent, engineEventBuffer),
		done:    make(chan struct{}),
		st: State{
			BookID:         bookID,
			Title:          book.Title,
			Files:          files,
			CurrentFileSeq: persisted.FileSeq,
			PositionMs:     persisted.PositionMs,
			Rate:           persisted.Rate,
			PreviousRate:   prevRate,
			EQ:             persisted.EQ,
			EQEnabled:      persisted.EQEnabled,
		},
		im: im,
	}

	deps.Engine.OnFileChanged(func(index int) {
		s.enqueue(engineEvent{kind: evFileChanged, index: index})
	})
	deps.Engine.OnEndReached(func() {
		s.enqueue(engineEvent{kind: evEndReached})
	})

	if recoveredReason != "" {
		deps.Logger.Warn("recovered inconsistent playback state",
			slog.String("book_id", bookID),
			slog.String("reason", recoveredReason))
		s.bus.Emit(notify.EventStateRecovered, notify.StateRecoveredData{
			BookID: bookID,
			Reason: recoveredReason,
		})
	}

	return s, nil
}

// loadPersistedState fetches the saved snapshot and repairs it against the
// current file list. A missing snapshot is normal (fresh book); an unusable
// one resets to the start of the book and reports why.
func loadPersistedState(ctx context.Context, deps Deps, bookID string, files []domain.FileEntry) (*domain.PlaybackState, string) {
	persisted, err := deps.Catalog.GetPlaybackState(ctx, bookID)
	if err != nil {
		if stderrors.Is(err, store.ErrNotFound) {
			return domain.NewPlaybackState(bookID), ""
		}
		deps.Logger.Warn("playback state unreadable, starting from defaults",
			slog.String("book_id", bookID), slog.String("error", err.Error()))
		return domain.NewPlaybackState(bookID), "saved state unreadable"
	}

	for i := range files {
		if files[i].SequenceIndex == persisted.FileSeq {
			if persisted.Rate < domain.MinRate || persisted.Rate > domain.MaxRate {
				persisted.Rate = 1.0
			}
			return persisted, ""
		}
	}

	// The book was edited since the last session.
	reason := fmt.Sprintf("saved file index %d out of range", persisted.FileSeq)
	fresh := domain.NewPlaybackState(bookID)
	fresh.Rate = persisted.Rate
	if fresh.Rate < domain.MinRate || fresh.Rate > domain.MaxRate {
		fresh.Rate = 1.0
	}
	fresh.EQ = persisted.EQ
	fresh.EQEnabled = persisted.EQEnabled
	return fresh, reason
}

// Run consumes engine events and drives the periodic tick until ctx is
// cancelled or the session closes. Call once, in a goroutine.
func (s *Session) Run(ctx context.Context) {
	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()

	for {
		select {
		case ev := <-s.events:
			s.dispatch(ev)
		case <-ticker.C:
			s.tick()
		case <-ctx.Done():
			return
		case <-s.done:
			return
		}
	}
}

// Done is closed when the session has been torn down.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// BookID returns the open book's ID.
func (s *Session) BookID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.BookID
}

// ListenedMs returns the playing time accumulated within this session.
func (s *Session) ListenedMs() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.ListenedMs
}

// StateSnapshot returns a copy of the session state for inspection.
func (s *Session) StateSnapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.st
	st.Files = append([]domain.FileEntry(nil), s.st.Files...)
	if s.st.LoopStartMs != nil {
		v := *s.st.LoopStartMs
		st.LoopStartMs = &v
	}
	return st
}

// enqueue posts an engine event onto the session queue without blocking.
func (s *Session) enqueue(ev engineEvent) {
	select {
	case s.events <- ev:
	default:
		s.logger.Warn("engine event queue full, dropping event",
			slog.Int("kind", int(ev.kind)))
	}
}

func (s *Session) dispatch(ev engineEvent) {
	switch ev.kind {
	case evFileChanged:
		s.handleFileChanged(ev.index)
	case evEndReached:
		s.handleEndReached()
	case evCloseRequest:
		if err := s.Close(context.Background()); err != nil {
			s.logger.Error("session close after end of book", slog.String("error", err.Error()))
		}
	}
}

// drainEngineEvents processes queued events synchronously. Used by tests and
// by teardown paths that must observe a quiesced queue.
func (s *Session) drainEngineEvents() {
	for {
		select {
		case ev := <-s.events:
			s.dispatch(ev)
		default:
			return
		}
	}
}

// handleFileChanged reacts to the engine moving to another playlist entry,
// whether by automatic advancement or an explicit jump.
func (s *Session) handleFileChanged(engineIdx int) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	seq, ok := s.im.ToSequence(engineIdx)
	if !ok {
		s.mu.Unlock()
		s.logger.Warn("file change for unmapped engine index", slog.Int("engine_index", engineIdx))
		return
	}
	s.st.CurrentFileSeq = seq
	s.st.PositionMs = 0

	// Second phase of a two-phase jump: the engine resets position to 0 on
	// file change, so the target position is applied only now.
	if s.pendingSeek != nil {
		target := *s.pendingSeek
		s.pendingSeek = nil
		s.engine.SetTime(target)
		s.st.PositionMs = target
	}

	var path string
	if f := s.st.FileBySeq(seq); f != nil {
		path = f.Path
	}
	bookID := s.st.BookID
	s.mu.Unlock()

	s.bus.Emit(notify.EventFileChanged, notify.FileChangedData{
		BookID:        bookID,
		SequenceIndex: seq,
		Path:          path,
	})
}

// handleEndReached runs the end-of-book policy after the engine finished the
// final playlist entry on its own.
func (s *Session) handleEndReached() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	bookID := s.st.BookID
	title := s.st.Title
	s.mu.Unlock()

	// The finished flag is recorded before any policy side effect so a
	// crash mid-policy cannot lose it.
	if err := s.catalog.SetBookFinished(context.Background(), bookID, true); err != nil {
		s.logger.Error("mark book finished", slog.String("book_id", bookID), slog.String("error", err.Error()))
	}
	s.bus.Emit(notify.EventBookFinished, notify.BookData{BookID: bookID, Title: title})

	switch s.cfg.EndOfBookAction {
	case config.EndOfBookLoop:
		s.jumpToStart(true)
	case config.EndOfBookClose:
		s.save(context.Background())
		s.mu.Lock()
		if !s.closed {
			s.closeTimer = time.AfterFunc(endOfBookCloseDelay, func() {
				s.enqueue(engineEvent{kind: evCloseRequest})
			})
		}
		s.mu.Unlock()
	default: // stop
		s.jumpToStart(false)
	}
}

// jumpToStart rewinds the session to the first file at position 0, playing
// or paused.
func (s *Session) jumpToStart(play bool) {
	s.mu.Lock()
	if s.closed || len(s.st.Files) == 0 {
		s.mu.Unlock()
		return
	}
	firstSeq := s.st.Files[0].SequenceIndex
	engineIdx, ok := s.im.ToEngine(firstSeq)
	if !ok {
		s.st.Playing = false
		s.mu.Unlock()
		s.logger.Error("first file unavailable, stopping", slog.String("book_id", s.st.BookID))
		s.engine.Stop()
		return
	}
	s.engine.PlaylistJump(engineIdx, 0)
	s.st.CurrentFileSeq = firstSeq
	s.st.PositionMs = 0
	s.st.Playing = play
	if play {
		s.st.LastPause = time.Time{}
		s.engine.Play()
	} else {
		s.engine.Pause()
	}
	s.mu.Unlock()

	if play {
		s.bus.Emit(notify.EventPlaybackStarted, nil)
	} else {
		s.bus.Emit(notify.EventPlaybackPaused, nil)
	}
	s.save(context.Background())
}

// tick refreshes the position, counts listening time, and drives the
// periodic auto-save.
func (s *Session) tick() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.st.PositionMs = s.engine.GetTime()
	var durationFix *store.DurationUpdate
	if engineLen := s.engine.GetLength(); engineLen > 0 {
		if f := s.st.FileBySeq(s.st.CurrentFileSeq); f != nil && absInt64(engineLen-f.DurationMs) > durationSyncMarginMs {
			f.DurationMs = engineLen
			durationFix = &store.DurationUpdate{FileID: f.ID, DurationMs: engineLen}
		}
	}
	doSave := false
	if s.st.Playing {
		s.st.ListenedMs += tickInterval.Milliseconds()
		s.tickCount++
		if s.tickCount >= s.cfg.AutoSaveTicks {
			s.tickCount = 0
			doSave = true
		}
	}
	data := notify.TimeTickData{
		BookID:     s.st.BookID,
		PositionMs: s.st.PositionMs,
		DurationMs: s.engine.GetLength(),
		Playing:    s.st.Playing,
	}
	s.mu.Unlock()

	s.bus.Emit(notify.EventTimeTick, data)
	if durationFix != nil {
		if err := s.catalog.UpdateFileDurationBatch(context.Background(), []store.DurationUpdate{*durationFix}); err != nil {
			s.logger.Warn("duration write-back failed",
				"file_id", durationFix.FileID,
				"error", err,
			)
		}
	}
	if doSave {
		s.save(context.Background())
	}
}

func absInt64(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}

// save flushes the current snapshot to the catalog.
func (s *Session) save(ctx context.Context) {
	s.mu.Lock()
	snap := s.st.Snapshot()
	s.mu.Unlock()

	if err := s.catalog.SavePlaybackState(ctx, snap); err != nil {
		s.logger.Error("save playback state",
			slog.String("book_id", snap.BookID), slog.String("error", err.Error()))
	}
}

// Close tears the session down: the periodic tick is disabled first so the
// final state write is always the last one applied, then the engine is
// released. Idempotent.
func (s *Session) Close(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	if s.closeTimer != nil {
		s.closeTimer.Stop()
		s.closeTimer = nil
	}
	snap := s.st.Snapshot()
	bookID := s.st.BookID
	s.mu.Unlock()

	err := s.catalog.SavePlaybackState(ctx, snap)
	if err != nil {
		s.logger.Error("final state save", slog.String("book_id", bookID), slog.String("error", err.Error()))
	}

	volume := s.engine.GetVolume()
	if verr := s.catalog.SetSetting(ctx, settingMasterVolume, strconv.Itoa(volume)); verr != nil {
		s.logger.Warn("persist master volume", slog.String("error", verr.Error()))
	}

	s.engine.Release()
	s.bus.Emit(notify.EventSessionClosed, notify.BookData{BookID: bookID})
	close(s.done)

	if err != nil {
		return errors.Wrap(err, errors.CodeInternal, "flush session state")
	}
	return nil
}
