// Package session implements the per-book playback session: state loading
// and persistence, the play/pause state machine, navigation, and the event
// pump that marshals engine callbacks onto a single goroutine.
package session

import (
	"github.com/lecternapp/lectern/internal/domain"
)

// IndexMap translates between catalog sequence indices (stable, persisted)
// and engine playlist indices (contiguous over the files the engine actually
// accepted). Rebuilt whenever the engine loads a playlist.
type IndexMap struct {
	toEngine map[int]int
	toSeq    []int
}

// BuildIndexMap reconciles the catalog file list against the paths the
// engine reports as loaded, in engine order. Files the engine dropped have
// no engine index; lookups for them fail explicitly.
func BuildIndexMap(files []domain.FileEntry, loadedPaths []string) IndexMap {
	pathToSeq := make(map[string]int, len(files))
	for _, f := range files {
		pathToSeq[f.Path] = f.SequenceIndex
	}

	im := IndexMap{
		toEngine: make(map[int]int, len(loadedPaths)),
		toSeq:    make([]int, len(loadedPaths)),
	}
	for engineIdx, path := range loadedPaths {
		seq, ok := pathToSeq[path]
		if !ok {
			// A path the catalog does not know; unmapped on both sides.
			im.toSeq[engineIdx] = -1
			continue
		}
		im.toEngine[seq] = engineIdx
		im.toSeq[engineIdx] = seq
	}
	return im
}

// ToEngine returns the engine index for a sequence index. ok is false when
// the file was not loaded by the engine; callers must surface that as a
// file-unavailable condition, never fall back to index 0.
func (im IndexMap) ToEngine(seq int) (engineIdx int, ok bool) {
	engineIdx, ok = im.toEngine[seq]
	return engineIdx, ok
}

// ToSequence returns the sequence index for a valid engine index.
func (im IndexMap) ToSequence(engineIdx int) (seq int, ok bool) {
	if engineIdx < 0 || engineIdx >= len(im.toSeq) {
		return 0, false
	}
	seq = im.toSeq[engineIdx]
	if seq < 0 {
		return 0, false
	}
	return seq, true
}

// Len returns the number of files the engine loaded.
func (im IndexMap) Len() int {
	return len(im.toSeq)
}
