package sqlite

import (
	"context"
	"fmt"

	"github.com/lecternapp/lectern/internal/domain"
	"github.com/lecternapp/lectern/internal/store"
)

// GetBookmarksForBook returns bookmarks ordered by file sequence and position.
func (s *Store) GetBookmarksForBook(ctx context.Context, bookID string) ([]domain.Bookmark, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, book_id, file_seq, position_ms, title, note
		FROM bookmarks WHERE book_id = ?
		ORDER BY file_seq, position_ms`, bookID)
	if err != nil {
		return nil, fmt.Errorf("bookmarks: %w", err)
	}
	defer rows.Close()

	var bms []domain.Bookmark
	for rows.Next() {
		var bm domain.Bookmark
		if err := rows.Scan(&bm.ID, &bm.BookID, &bm.FileSequenceIndex, &bm.PositionMs, &bm.Title, &bm.Note); err != nil {
			return nil, fmt.Errorf("scan bookmark: %w", err)
		}
		bms = append(bms, bm)
	}
	return bms, rows.Err()
}

// AddBookmark inserts a bookmark.
func (s *Store) AddBookmark(ctx context.Context, bm *domain.Bookmark) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO bookmarks (id, book_id, file_seq, position_ms, title, note)
		VALUES (?, ?, ?, ?, ?, ?)`,
		bm.ID, bm.BookID, bm.FileSequenceIndex, bm.PositionMs, bm.Title, bm.Note,
	)
	if err != nil {
		return fmt.Errorf("add bookmark: %w", err)
	}
	return nil
}

// DeleteBookmark removes a bookmark by ID.
func (s *Store) DeleteBookmark(ctx context.Context, bookmarkID string) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM bookmarks WHERE id = ?`, bookmarkID)
	if err != nil {
		return fmt.Errorf("delete bookmark: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete bookmark: %w", err)
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}
