package session

import (
	"time"

	"github.com/lecternapp/lectern/internal/domain"
)

// State is the in-memory record of one active book's playback. It is owned
// by the session goroutine; all access goes through Session methods.
type State struct {
	BookID string
	Title  string
	// Files is a read-only snapshot of the catalog file list, taken when
	// the session opened.
	Files []domain.FileEntry

	CurrentFileSeq int
	PositionMs     int64

	Rate float64
	// PreviousRate is the rate restored by the speed toggle.
	PreviousRate float64

	EQ        domain.EQSettings
	EQEnabled bool

	// LoopStartMs holds the pending A mark; nil when no mark is set.
	LoopStartMs *int64
	LoopEndMs   int64
	LoopActive  bool

	FileRepeat bool

	// LastPause is the wall-clock time of the most recent pause; zero when
	// playing or never paused.
	LastPause time.Time
	Playing   bool

	// ListenedMs accumulates playing time within this session, for the
	// history threshold on book switches.
	ListenedMs int64
}

// FileBySeq returns the file entry with the given sequence index, or nil.
func (st *State) FileBySeq(seq int) *domain.FileEntry {
	for i := range st.Files {
		if st.Files[i].SequenceIndex == seq {
			return &st.Files[i]
		}
	}
	return nil
}

// Snapshot converts the state into its persisted form.
func (st *State) Snapshot() *domain.PlaybackState {
	return &domain.PlaybackState{
		BookID:     st.BookID,
		FileSeq:    st.CurrentFileSeq,
		PositionMs: st.PositionMs,
		Rate:       st.Rate,
		EQ:         st.EQ,
		EQEnabled:  st.EQEnabled,
	}
}
