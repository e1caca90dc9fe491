package domain

import "time"

// FileEntry is one playable file within a book, in catalog order.
// SequenceIndex is the stable, catalog-assigned position; it does not change
// when files go missing on disk.
type FileEntry struct {
	ID            string `json:"id"`
	Path          string `json:"path"`
	SequenceIndex int    `json:"sequence_index"`
	DurationMs    int64  `json:"duration_ms"`
}

// Book is a catalog entry: an ordered collection of audio files forming one
// logical audiobook. The session holds a read-only snapshot of Files for its
// lifetime.
type Book struct {
	ID         string      `json:"id"`
	Title      string      `json:"title"`
	Path       string      `json:"path"`
	Files      []FileEntry `json:"files,omitempty"`
	IsFinished bool        `json:"is_finished"`
	IsPinned   bool        `json:"is_pinned"`
	PinOrder   int         `json:"pin_order"`
	AddedAt    time.Time   `json:"added_at"`
	LastPlayed *time.Time  `json:"last_played,omitempty"`
}

// TotalDurationMs sums the known durations of all files.
// Files still carrying the fast-scan placeholder (0) contribute nothing.
func (b *Book) TotalDurationMs() int64 {
	var total int64
	for _, f := range b.Files {
		total += f.DurationMs
	}
	return total
}

// FileBySequence returns the file with the given sequence index, or nil.
func (b *Book) FileBySequence(seq int) *FileEntry {
	for i := range b.Files {
		if b.Files[i].SequenceIndex == seq {
			return &b.Files[i]
		}
	}
	return nil
}
