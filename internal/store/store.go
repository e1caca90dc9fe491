// Package store defines the catalog persistence interface consumed by the
// playback session and the duration refinement worker.
//
// Implementations must be safe for concurrent calls from the session domain
// and the background worker domain; the session core assumes nothing further
// about the catalog's internal concurrency model.
package store

import (
	"context"

	"github.com/lecternapp/lectern/internal/domain"
)

// DurationUpdate is one probed duration result flushed to the catalog.
type DurationUpdate struct {
	FileID     string
	DurationMs int64
}

// Catalog is the persistence collaborator: books and their files, persisted
// playback state keyed by book ID, bookmarks, and free-form settings.
type Catalog interface {
	// CreateBook inserts a book together with its file entries.
	CreateBook(ctx context.Context, book *domain.Book) error
	// GetBook returns a book without its file list.
	GetBook(ctx context.Context, bookID string) (*domain.Book, error)
	// ListBooks returns all books ordered by title, without file lists.
	ListBooks(ctx context.Context) ([]*domain.Book, error)
	// GetPinnedBooks returns pinned books in pin order.
	GetPinnedBooks(ctx context.Context) ([]*domain.Book, error)
	// GetBookFiles returns the book's files ordered by sequence index.
	GetBookFiles(ctx context.Context, bookID string) ([]domain.FileEntry, error)
	// UpdateFileDurationBatch persists probed durations in one transaction.
	UpdateFileDurationBatch(ctx context.Context, updates []DurationUpdate) error
	// SetBookFinished flags a book finished or unfinished. Idempotent.
	SetBookFinished(ctx context.Context, bookID string, finished bool) error
	// TouchLastPlayed bumps the book's last-played timestamp to now.
	TouchLastPlayed(ctx context.Context, bookID string) error

	// GetPlaybackState returns the saved state for a book, or ErrNotFound
	// when the book has never been played.
	GetPlaybackState(ctx context.Context, bookID string) (*domain.PlaybackState, error)
	// SavePlaybackState upserts the state and touches last-played.
	SavePlaybackState(ctx context.Context, state *domain.PlaybackState) error

	// GetBookmarksForBook returns bookmarks ordered by file sequence and
	// position.
	GetBookmarksForBook(ctx context.Context, bookID string) ([]domain.Bookmark, error)
	AddBookmark(ctx context.Context, bm *domain.Bookmark) error
	DeleteBookmark(ctx context.Context, bookmarkID string) error

	// GetSetting returns the value for key, or ErrNotFound.
	GetSetting(ctx context.Context, key string) (string, error)
	SetSetting(ctx context.Context, key, value string) error
}
