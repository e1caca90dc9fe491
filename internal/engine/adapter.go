// Package engine defines the interface to the native playback engine.
//
// The core never links against a media library directly; a concrete adapter
// (e.g. an mpv binding) is supplied by the embedding application. All methods
// are called from the session domain only. The two event callbacks may fire
// on an engine-internal thread; adapters must expect the registered callbacks
// to do nothing but enqueue.
package engine

// Adapter is the transport surface of the playback engine.
//
// LoadPlaylist replaces the engine playlist and reports whether the engine
// accepted it. Files missing on disk may be silently dropped by the adapter;
// the session reconciles the difference through its index map via
// LoadedPaths.
type Adapter interface {
	// LoadPlaylist loads paths as the playlist, positioned at startIndex /
	// startMs with the given rate. Returns false when the engine could not
	// load the list at all.
	LoadPlaylist(paths []string, startIndex int, startMs int64, rate float64) bool

	// LoadedPaths returns the paths the engine actually accepted, in
	// engine playlist order. Valid after a successful LoadPlaylist.
	LoadedPaths() []string

	Play()
	Pause()
	Stop()
	IsPlaying() bool

	// GetTime returns the position in the current file in milliseconds.
	GetTime() int64
	SetTime(ms int64)
	// GetLength returns the current file's duration in milliseconds, or 0
	// when the engine does not know it yet.
	GetLength() int64

	GetRate() float64
	SetRate(rate float64)

	PlaylistNext() bool
	PlaylistPrevious() bool
	PlaylistJump(index int, startMs int64) bool
	// GetCurrentIndex returns the engine playlist index of the current
	// file, or -1 when nothing is loaded.
	GetCurrentIndex() int

	SetLoopA(ms int64)
	SetLoopB(ms int64)
	ClearLoop()
	SetFileRepeat(repeat bool)

	GetVolume() int
	SetVolume(volume int)
	GetMute() bool
	SetMute(mute bool)

	// SetAudioFilters applies a filter expression (e.g. an equalizer
	// chain); the empty string clears all filters.
	SetAudioFilters(filters string)

	// OnEndReached registers the end-of-playlist callback.
	OnEndReached(cb func())
	// OnFileChanged registers the file-transition callback. The argument
	// is the new engine playlist index.
	OnFileChanged(cb func(index int))

	// Release frees engine resources. No calls are valid afterwards.
	Release()
}
