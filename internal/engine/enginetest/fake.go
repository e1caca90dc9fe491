// Package enginetest provides a scripted in-memory engine adapter for tests.
package enginetest

import (
	"os"
	"sync"
)

// Fake is an engine.Adapter that simulates playlist behavior in memory.
//
// By default LoadPlaylist accepts every path that exists on disk, mirroring
// a real engine skipping missing files. Set AcceptAll to skip the disk check,
// or FailLoad to reject loading entirely.
//
// Event callbacks fire synchronously from FireFileChanged / FireEndReached,
// so tests control event ordering exactly.
type Fake struct {
	mu sync.Mutex

	AcceptAll bool
	FailLoad  bool
	// FailJump makes PlaylistJump report failure.
	FailJump bool

	// Lengths maps path -> duration reported by GetLength. Paths absent
	// from the map report 0 (duration unknown).
	Lengths map[string]int64

	loaded  []string
	index   int
	timeMs  int64
	rate    float64
	playing bool

	volume int
	muted  bool

	loopA      int64
	loopB      int64
	loopSet    bool
	fileRepeat bool
	filters    string

	onEndReached  func()
	onFileChanged func(int)

	// Calls records method names in invocation order for assertions.
	Calls []string
}

// New returns a Fake that accepts all paths without touching the disk.
func New() *Fake {
	return &Fake{AcceptAll: true, volume: 100, rate: 1.0, index: -1}
}

func (f *Fake) record(name string) {
	f.Calls = append(f.Calls, name)
}

// LoadPlaylist implements engine.Adapter.
func (f *Fake) LoadPlaylist(paths []string, startIndex int, startMs int64, rate float64) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("LoadPlaylist")

	if f.FailLoad {
		return false
	}

	f.loaded = nil
	for _, p := range paths {
		if f.AcceptAll {
			f.loaded = append(f.loaded, p)
			continue
		}
		if _, err := os.Stat(p); err == nil {
			f.loaded = append(f.loaded, p)
		}
	}
	if len(f.loaded) == 0 {
		return false
	}
	if startIndex < 0 || startIndex >= len(f.loaded) {
		startIndex = 0
	}
	f.index = startIndex
	f.timeMs = startMs
	f.rate = rate
	f.playing = false
	return true
}

// LoadedPaths implements engine.Adapter.
func (f *Fake) LoadedPaths() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.loaded))
	copy(out, f.loaded)
	return out
}

// Play implements engine.Adapter.
func (f *Fake) Play() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("Play")
	f.playing = true
}

// Pause implements engine.Adapter.
func (f *Fake) Pause() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("Pause")
	f.playing = false
}

// Stop implements engine.Adapter.
func (f *Fake) Stop() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("Stop")
	f.playing = false
	f.timeMs = 0
}

// IsPlaying implements engine.Adapter.
func (f *Fake) IsPlaying() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.playing
}

// GetTime implements engine.Adapter.
func (f *Fake) GetTime() int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.timeMs
}

// SetTime implements engine.Adapter.
func (f *Fake) SetTime(ms int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("SetTime")
	f.timeMs = ms
}

// GetLength implements engine.Adapter.
func (f *Fake) GetLength() int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.index < 0 || f.index >= len(f.loaded) {
		return 0
	}
	return f.Lengths[f.loaded[f.index]]
}

// GetRate implements engine.Adapter.
func (f *Fake) GetRate() float64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.rate
}

// SetRate implements engine.Adapter.
func (f *Fake) SetRate(rate float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("SetRate")
	f.rate = rate
}

// PlaylistNext implements engine.Adapter. Advancing past the end reports
// failure without firing events, like a real engine refusing the jump.
func (f *Fake) PlaylistNext() bool {
	f.mu.Lock()
	if f.index+1 >= len(f.loaded) {
		f.mu.Unlock()
		return false
	}
	f.index++
	f.timeMs = 0
	idx := f.index
	cb := f.onFileChanged
	f.mu.Unlock()
	if cb != nil {
		cb(idx)
	}
	return true
}

// PlaylistPrevious implements engine.Adapter.
func (f *Fake) PlaylistPrevious() bool {
	f.mu.Lock()
	if f.index <= 0 {
		f.mu.Unlock()
		return false
	}
	f.index--
	f.timeMs = 0
	idx := f.index
	cb := f.onFileChanged
	f.mu.Unlock()
	if cb != nil {
		cb(idx)
	}
	return true
}

// PlaylistJump implements engine.Adapter.
func (f *Fake) PlaylistJump(index int, startMs int64) bool {
	f.mu.Lock()
	if f.FailJump || index < 0 || index >= len(f.loaded) {
		f.mu.Unlock()
		return false
	}
	f.index = index
	f.timeMs = startMs
	cb := f.onFileChanged
	f.mu.Unlock()
	if cb != nil {
		cb(index)
	}
	return true
}

// GetCurrentIndex implements engine.Adapter.
func (f *Fake) GetCurrentIndex() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.index
}

// SetLoopA implements engine.Adapter.
func (f *Fake) SetLoopA(ms int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("SetLoopA")
	f.loopA = ms
}

// SetLoopB implements engine.Adapter.
func (f *Fake) SetLoopB(ms int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("SetLoopB")
	f.loopB = ms
	f.loopSet = true
}

// ClearLoop implements engine.Adapter.
func (f *Fake) ClearLoop() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("ClearLoop")
	f.loopSet = false
	f.loopA, f.loopB = 0, 0
}

// LoopWindow returns the active loop window, if any.
func (f *Fake) LoopWindow() (a, b int64, active bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.loopA, f.loopB, f.loopSet
}

// SetFileRepeat implements engine.Adapter.
func (f *Fake) SetFileRepeat(repeat bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("SetFileRepeat")
	f.fileRepeat = repeat
}

// FileRepeat reports the current file-repeat flag.
func (f *Fake) FileRepeat() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fileRepeat
}

// GetVolume implements engine.Adapter.
func (f *Fake) GetVolume() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.volume
}

// SetVolume implements engine.Adapter.
func (f *Fake) SetVolume(volume int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("SetVolume")
	f.volume = volume
}

// GetMute implements engine.Adapter.
func (f *Fake) GetMute() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.muted
}

// SetMute implements engine.Adapter.
func (f *Fake) SetMute(mute bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("SetMute")
	f.muted = mute
}

// SetAudioFilters implements engine.Adapter.
func (f *Fake) SetAudioFilters(filters string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("SetAudioFilters")
	f.filters = filters
}

// AudioFilters returns the last applied filter expression.
func (f *Fake) AudioFilters() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.filters
}

// OnEndReached implements engine.Adapter.
func (f *Fake) OnEndReached(cb func()) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.onEndReached = cb
}

// OnFileChanged implements engine.Adapter.
func (f *Fake) OnFileChanged(cb func(index int)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.onFileChanged = cb
}

// Release implements engine.Adapter.
func (f *Fake) Release() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("Release")
	f.loaded = nil
	f.index = -1
}

// FireEndReached invokes the registered end-of-playlist callback.
func (f *Fake) FireEndReached() {
	f.mu.Lock()
	cb := f.onEndReached
	f.mu.Unlock()
	if cb != nil {
		cb()
	}
}

// FireFileChanged invokes the file-changed callback with the given engine
// index and updates the fake's current index to match.
func (f *Fake) FireFileChanged(index int) {
	f.mu.Lock()
	f.index = index
	f.timeMs = 0
	cb := f.onFileChanged
	f.mu.Unlock()
	if cb != nil {
		cb(index)
	}
}

// AdvanceTime moves the simulated position forward.
func (f *Fake) AdvanceTime(ms int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.timeMs += ms
}
