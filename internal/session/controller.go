package session

import (
	"context"
	"time"

	"github.com/lecternapp/lectern/internal/domain"
	"github.com/lecternapp/lectern/internal/notify"
)

// TogglePlayPause flips between playing and paused. Resuming applies the
// smart-resume rewind when the pause lasted longer than the configured
// threshold, and restarts the file when paused within its final second.
func (s *Session) TogglePlayPause() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}

	if s.st.Playing {
		s.st.Playing = false
		s.st.LastPause = time.Now()
		s.st.PositionMs = s.engine.GetTime()
		s.engine.Pause()
		s.mu.Unlock()

		s.bus.Emit(notify.EventPlaybackPaused, nil)
		s.save(context.Background())
		return
	}

	s.resumeLocked()
	s.mu.Unlock()
	s.bus.Emit(notify.EventPlaybackStarted, nil)
}

// Play starts playback if not already playing, through the same resume gate
// as TogglePlayPause.
func (s *Session) Play() {
	s.mu.Lock()
	if s.closed || s.st.Playing {
		s.mu.Unlock()
		return
	}
	s.resumeLocked()
	s.mu.Unlock()
	s.bus.Emit(notify.EventPlaybackStarted, nil)
}

// Pause pauses playback if playing.
func (s *Session) Pause() {
	s.mu.Lock()
	if s.closed || !s.st.Playing {
		s.mu.Unlock()
		return
	}
	s.st.Playing = false
	s.st.LastPause = time.Now()
	s.st.PositionMs = s.engine.GetTime()
	s.engine.Pause()
	s.mu.Unlock()

	s.bus.Emit(notify.EventPlaybackPaused, nil)
	s.save(context.Background())
}

// IsPlaying reports whether the session is currently playing.
func (s *Session) IsPlaying() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.Playing
}

// resumeLocked performs the paused-to-playing transition. The rewind rules
// apply uniformly to every resume path, whatever caused the pause. Caller
// holds s.mu.
func (s *Session) resumeLocked() {
	pos := s.engine.GetTime()
	dur := s.engine.GetLength()

	if dur > 0 && pos >= dur-domain.EndMarginMs {
		// Unpausing at the very end of a file restarts it instead of
		// immediately signalling end-of-file.
		pos = 0
		s.engine.SetTime(0)
	} else if s.cfg.SmartResumeThresholdSec > 0 && !s.st.LastPause.IsZero() &&
		time.Since(s.st.LastPause) > time.Duration(s.cfg.SmartResumeThresholdSec)*time.Second {
		pos -= s.cfg.SmartResumeRewindMs
		if pos < 0 {
			pos = 0
		}
		s.engine.SetTime(pos)
	}

	s.st.PositionMs = pos
	s.st.LastPause = time.Time{}
	s.st.Playing = true
	s.engine.Play()
}

// NextFile advances to the next file by explicit user request. At the last
// file it emits a boundary notification and changes nothing; manual
// navigation never triggers the end-of-book policy.
func (s *Session) NextFile() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	idx := s.engine.GetCurrentIndex()
	if idx < 0 || idx+1 >= s.im.Len() {
		s.mu.Unlock()
		s.bus.Emit(notify.EventPlaybackBoundary, nil)
		return
	}
	if !s.engine.PlaylistNext() {
		s.mu.Unlock()
		s.bus.Emit(notify.EventPlaybackBoundary, nil)
		return
	}
	s.afterManualNavLocked()
}

// PreviousFile moves to the previous file by explicit user request, with the
// same boundary behavior as NextFile.
func (s *Session) PreviousFile() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	if s.engine.GetCurrentIndex() <= 0 {
		s.mu.Unlock()
		s.bus.Emit(notify.EventPlaybackBoundary, nil)
		return
	}
	if !s.engine.PlaylistPrevious() {
		s.mu.Unlock()
		s.bus.Emit(notify.EventPlaybackBoundary, nil)
		return
	}
	s.afterManualNavLocked()
}

// afterManualNavLocked optionally resumes playback after a manual file
// change while paused. Unlocks s.mu.
func (s *Session) afterManualNavLocked() {
	resumed := false
	if s.cfg.ResumeOnJump && !s.st.Playing {
		s.resumeLocked()
		resumed = true
	}
	s.mu.Unlock()
	if resumed {
		s.bus.Emit(notify.EventPlaybackStarted, nil)
	}
}
