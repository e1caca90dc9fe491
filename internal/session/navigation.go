package session

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/lecternapp/lectern/internal/domain"
	"github.com/lecternapp/lectern/internal/errors"
	"github.com/lecternapp/lectern/internal/id"
	"github.com/lecternapp/lectern/internal/notify"
)

// SeekTo moves to an absolute position within the current file, clamped to
// the playable range. The final second of a file is reserved so a seek can
// never race the engine's own end-of-file detection.
func (s *Session) SeekTo(ms int64) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	target := domain.ClampPosition(ms, s.engine.GetLength())
	s.engine.SetTime(target)
	s.st.PositionMs = target
	s.mu.Unlock()
}

// SeekRelative moves by deltaMs from the current position.
func (s *Session) SeekRelative(deltaMs int64) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	target := domain.ClampPosition(s.engine.GetTime()+deltaMs, s.engine.GetLength())
	s.engine.SetTime(target)
	s.st.PositionMs = target
	s.mu.Unlock()
}

// SeekForward seeks ahead by the configured step.
func (s *Session) SeekForward() {
	s.SeekRelative(s.cfg.SeekForwardMs)
}

// SeekBackward seeks back by the configured step.
func (s *Session) SeekBackward() {
	s.SeekRelative(-s.cfg.SeekBackwardMs)
}

// nearEndSeekOffsetMs is how far before the end of the file SeekToNearEnd
// lands.
const nearEndSeekOffsetMs = 30000

// RestartFile returns to the start of the current file.
func (s *Session) RestartFile() {
	s.SeekTo(0)
}

// SeekToMiddle jumps to the midpoint of the current file. A no-op when the
// engine does not know the duration yet.
func (s *Session) SeekToMiddle() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	dur := s.engine.GetLength()
	if dur <= 0 {
		s.mu.Unlock()
		return
	}
	target := domain.ClampPosition(dur/2, dur)
	s.engine.SetTime(target)
	s.st.PositionMs = target
	s.mu.Unlock()
}

// SeekToNearEnd jumps to thirty seconds before the end of the current file,
// still outside the reserved end margin. A no-op when the duration is
// unknown.
func (s *Session) SeekToNearEnd() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	dur := s.engine.GetLength()
	if dur <= 0 {
		s.mu.Unlock()
		return
	}
	target := domain.ClampPosition(dur-nearEndSeekOffsetMs, dur)
	s.engine.SetTime(target)
	s.st.PositionMs = target
	s.mu.Unlock()
}

// JumpToBookmark navigates to a bookmark. A bookmark in the current file is
// a plain seek; one in another file is a two-phase jump whose target
// position is applied once the engine reports the file change. A bookmark
// pointing at a file the engine did not load fails without touching state.
func (s *Session) JumpToBookmark(bm domain.Bookmark) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return errors.InvalidNavigation("session closed")
	}

	engineIdx, ok := s.im.ToEngine(bm.FileSequenceIndex)
	if !ok {
		s.mu.Unlock()
		return errors.FileUnavailablef("bookmark file %d is missing on disk", bm.FileSequenceIndex)
	}

	var dur int64
	if f := s.st.FileBySeq(bm.FileSequenceIndex); f != nil {
		dur = f.DurationMs
	}
	pos := domain.ClampPosition(bm.PositionMs, dur)

	if engineIdx == s.engine.GetCurrentIndex() {
		s.engine.SetTime(pos)
		s.st.PositionMs = pos
	} else {
		target := pos
		s.pendingSeek = &target
		if !s.engine.PlaylistJump(engineIdx, 0) {
			s.pendingSeek = nil
			s.mu.Unlock()
			return errors.EngineLoadf("engine rejected jump to file %d", bm.FileSequenceIndex)
		}
	}

	s.afterManualNavLocked()
	return nil
}

// AddBookmark records a bookmark at the current position.
func (s *Session) AddBookmark(ctx context.Context, title, note string) (*domain.Bookmark, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, errors.InvalidNavigation("session closed")
	}
	bm := domain.Bookmark{
		BookID:            s.st.BookID,
		FileSequenceIndex: s.st.CurrentFileSeq,
		PositionMs:        s.engine.GetTime(),
		Title:             title,
		Note:              note,
	}
	s.mu.Unlock()

	bmID, err := id.Generate("bm")
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeInternal, "generate bookmark id")
	}
	bm.ID = bmID
	if bm.Title == "" {
		bm.Title = fmt.Sprintf("File %d @ %ds", bm.FileSequenceIndex+1, bm.PositionMs/1000)
	}

	if err := s.catalog.AddBookmark(ctx, &bm); err != nil {
		return nil, errors.Wrap(err, errors.CodeInternal, "store bookmark")
	}
	return &bm, nil
}

// NextBookmark jumps to the first bookmark after the current position.
func (s *Session) NextBookmark(ctx context.Context) error {
	bms, cur, err := s.bookmarkCursor(ctx)
	if err != nil {
		return err
	}
	for _, bm := range bms {
		if bm.FileSequenceIndex > cur.FileSequenceIndex ||
			(bm.FileSequenceIndex == cur.FileSequenceIndex && bm.PositionMs > cur.PositionMs) {
			return s.JumpToBookmark(bm)
		}
	}
	return errors.NotFound("no bookmark after the current position")
}

// PreviousBookmark jumps to the last bookmark before the current position.
// A small margin keeps repeated presses from landing on the bookmark just
// jumped to.
func (s *Session) PreviousBookmark(ctx context.Context) error {
	const margin = 1000

	bms, cur, err := s.bookmarkCursor(ctx)
	if err != nil {
		return err
	}
	for i := len(bms) - 1; i >= 0; i-- {
		bm := bms[i]
		if bm.FileSequenceIndex < cur.FileSequenceIndex ||
			(bm.FileSequenceIndex == cur.FileSequenceIndex && bm.PositionMs < cur.PositionMs-margin) {
			return s.JumpToBookmark(bm)
		}
	}
	return errors.NotFound("no bookmark before the current position")
}

// bookmarkCursor fetches the book's bookmarks plus the current position as a
// pseudo-bookmark for comparison.
func (s *Session) bookmarkCursor(ctx context.Context) ([]domain.Bookmark, domain.Bookmark, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, domain.Bookmark{}, errors.InvalidNavigation("session closed")
	}
	cur := domain.Bookmark{
		FileSequenceIndex: s.st.CurrentFileSeq,
		PositionMs:        s.engine.GetTime(),
	}
	bookID := s.st.BookID
	s.mu.Unlock()

	bms, err := s.catalog.GetBookmarksForBook(ctx, bookID)
	if err != nil {
		return nil, domain.Bookmark{}, errors.Wrap(err, errors.CodeInternal, "load bookmarks")
	}
	return bms, cur, nil
}

// SetLoopStart records the current position as the A mark of an A-B loop.
func (s *Session) SetLoopStart() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	pos := s.engine.GetTime()
	s.st.LoopStartMs = &pos
	s.mu.Unlock()
}

// SetLoopEnd records the B mark, activates the loop, and seeks to A. B must
// not precede A and A must already be set.
func (s *Session) SetLoopEnd() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return errors.InvalidNavigation("session closed")
	}
	if s.st.LoopStartMs == nil {
		s.st.LoopActive = false
		s.mu.Unlock()
		return errors.InvalidNavigation("loop end set before loop start")
	}
	a := *s.st.LoopStartMs
	b := s.engine.GetTime()
	if b < a {
		s.mu.Unlock()
		return errors.InvalidNavigation("loop end precedes loop start")
	}

	s.engine.SetLoopA(a)
	s.engine.SetLoopB(b)
	s.engine.SetTime(a)
	s.st.LoopEndMs = b
	s.st.LoopActive = true
	s.st.PositionMs = a
	s.mu.Unlock()

	s.bus.Emit(notify.EventLoopSet, notify.LoopData{StartMs: a, EndMs: b})
	return nil
}

// ClearLoop deactivates any A-B loop and discards a pending A mark.
func (s *Session) ClearLoop() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	hadLoop := s.st.LoopActive || s.st.LoopStartMs != nil
	s.st.LoopStartMs = nil
	s.st.LoopEndMs = 0
	s.st.LoopActive = false
	s.engine.ClearLoop()
	s.mu.Unlock()

	if hadLoop {
		s.bus.Emit(notify.EventLoopCleared, nil)
	}
}

// ToggleFileRepeat flips single-file repeat, independent of any A-B loop.
func (s *Session) ToggleFileRepeat() bool {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return false
	}
	s.st.FileRepeat = !s.st.FileRepeat
	enabled := s.st.FileRepeat
	s.engine.SetFileRepeat(enabled)
	s.mu.Unlock()
	return enabled
}

// StepSpeed changes the rate by delta within the supported range. The
// returned flag is false when the rate was already pinned at the bound.
func (s *Session) StepSpeed(delta float64) (float64, bool) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return 0, false
	}
	rate, ok := domain.StepRate(s.st.Rate, delta)
	if !ok {
		cur := s.st.Rate
		s.mu.Unlock()
		return cur, false
	}
	s.applyRateLocked(rate)
	s.mu.Unlock()

	s.bus.Emit(notify.EventSpeedChanged, notify.SpeedChangedData{Rate: rate})
	return rate, true
}

// SnapSpeed changes the rate by delta and snaps to the nearest half step.
func (s *Session) SnapSpeed(delta float64) (float64, bool) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return 0, false
	}
	rate, ok := domain.SnapRate(s.st.Rate, delta)
	if !ok {
		cur := s.st.Rate
		s.mu.Unlock()
		return cur, false
	}
	changed := rate != s.st.Rate
	s.applyRateLocked(rate)
	s.mu.Unlock()

	if changed {
		s.bus.Emit(notify.EventSpeedChanged, notify.SpeedChangedData{Rate: rate})
	}
	return rate, true
}

// ToggleSpeed switches between 1.0 and the previously used rate.
func (s *Session) ToggleSpeed(ctx context.Context) float64 {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return 0
	}
	var rate float64
	var remember bool
	if s.st.Rate != 1.0 {
		s.st.PreviousRate = s.st.Rate
		remember = true
		rate = 1.0
	} else {
		rate = s.st.PreviousRate
	}
	prev := s.st.PreviousRate
	s.applyRateLocked(rate)
	s.mu.Unlock()

	if remember {
		if err := s.catalog.SetSetting(ctx, settingPreviousRate, fmt.Sprintf("%.3f", prev)); err != nil {
			s.logger.Warn("persist previous rate", slog.String("error", err.Error()))
		}
	}
	s.bus.Emit(notify.EventSpeedChanged, notify.SpeedChangedData{Rate: rate})
	return rate
}

// applyRateLocked sets the engine rate and records it. Caller holds s.mu.
func (s *Session) applyRateLocked(rate float64) {
	s.engine.SetRate(rate)
	s.st.Rate = rate
}

// Rate returns the current playback rate.
func (s *Session) Rate() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.Rate
}

// SetEQ applies equalizer settings, clamped per band, and persists them.
func (s *Session) SetEQ(ctx context.Context, eq domain.EQSettings, enabled bool) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	eq = eq.Clamp()
	s.st.EQ = eq
	s.st.EQEnabled = enabled
	s.engine.SetAudioFilters(eq.FilterString(enabled))
	s.mu.Unlock()

	s.save(ctx)
}

// ToggleEQ flips the equalizer on or off without changing the band gains.
func (s *Session) ToggleEQ(ctx context.Context) bool {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return false
	}
	eq := s.st.EQ
	enabled := !s.st.EQEnabled
	s.mu.Unlock()

	s.SetEQ(ctx, eq, enabled)
	return enabled
}

// SetVolume passes a volume level through to the engine.
func (s *Session) SetVolume(volume int) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	if volume < 0 {
		volume = 0
	} else if volume > 100 {
		volume = 100
	}
	s.engine.SetVolume(volume)
	s.mu.Unlock()
}

// ToggleMute flips the engine mute flag and returns the new value.
func (s *Session) ToggleMute() bool {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return false
	}
	muted := !s.engine.GetMute()
	s.engine.SetMute(muted)
	s.mu.Unlock()
	return muted
}
