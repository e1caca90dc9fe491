package domain

// Bookmark marks a position within one file of a book. FileSequenceIndex
// refers to the catalog sequence index, which stays valid even when the file
// is currently missing on disk (navigation to such a bookmark fails
// explicitly rather than landing on the wrong file).
type Bookmark struct {
	ID                string `json:"id"`
	BookID            string `json:"book_id"`
	FileSequenceIndex int    `json:"file_sequence_index"`
	PositionMs        int64  `json:"position_ms"`
	Title             string `json:"title"`
	Note              string `json:"note,omitempty"`
}
