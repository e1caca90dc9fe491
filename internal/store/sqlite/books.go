package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lecternapp/lectern/internal/domain"
	"github.com/lecternapp/lectern/internal/store"
)

// bookColumns is the ordered list of columns selected in book queries.
// Must match the scan order in scanBook.
const bookColumns = `id, title, path, is_finished, is_pinned, pin_order, added_at, last_played`

// scanBook scans a sql.Row (or sql.Rows via its Scan method) into a domain.Book.
func scanBook(scanner interface{ Scan(dest ...any) error }) (*domain.Book, error) {
	var b domain.Book

	var (
		finished   int
		pinned     int
		addedAt    string
		lastPlayed sql.NullString
	)

	err := scanner.Scan(
		&b.ID,
		&b.Title,
		&b.Path,
		&finished,
		&pinned,
		&b.PinOrder,
		&addedAt,
		&lastPlayed,
	)
	if err != nil {
		return nil, err
	}

	b.IsFinished = finished != 0
	b.IsPinned = pinned != 0

	b.AddedAt, err = parseTime(addedAt)
	if err != nil {
		return nil, err
	}
	b.LastPlayed, err = parseNullableTime(lastPlayed)
	if err != nil {
		return nil, err
	}

	return &b, nil
}

// CreateBook inserts a book and its file entries in one transaction.
func (s *Store) CreateBook(ctx context.Context, book *domain.Book) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if book.AddedAt.IsZero() {
		book.AddedAt = time.Now()
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO books (id, title, path, is_finished, is_pinned, pin_order, added_at, last_played)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		book.ID, book.Title, book.Path,
		boolToInt(book.IsFinished), boolToInt(book.IsPinned), book.PinOrder,
		formatTime(book.AddedAt), nullTimeString(book.LastPlayed),
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return store.ErrDuplicate
		}
		return fmt.Errorf("insert book: %w", err)
	}

	for i := range book.Files {
		f := &book.Files[i]
		_, err = tx.ExecContext(ctx, `
			INSERT INTO book_files (id, book_id, path, sequence_index, duration_ms)
			VALUES (?, ?, ?, ?, ?)`,
			f.ID, book.ID, f.Path, f.SequenceIndex, f.DurationMs,
		)
		if err != nil {
			return fmt.Errorf("insert book file %d: %w", f.SequenceIndex, err)
		}
	}

	return tx.Commit()
}

// GetBook returns a book without its file list.
func (s *Store) GetBook(ctx context.Context, bookID string) (*domain.Book, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+bookColumns+` FROM books WHERE id = ?`, bookID)
	b, err := scanBook(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get book: %w", err)
	}
	return b, nil
}

// ListBooks returns all books ordered by title.
func (s *Store) ListBooks(ctx context.Context) ([]*domain.Book, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+bookColumns+` FROM books ORDER BY title COLLATE NOCASE`)
	if err != nil {
		return nil, fmt.Errorf("list books: %w", err)
	}
	defer rows.Close()

	var books []*domain.Book
	for rows.Next() {
		b, err := scanBook(rows)
		if err != nil {
			return nil, fmt.Errorf("scan book: %w", err)
		}
		books = append(books, b)
	}
	return books, rows.Err()
}

// GetPinnedBooks returns pinned books in pin order.
func (s *Store) GetPinnedBooks(ctx context.Context) ([]*domain.Book, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+bookColumns+` FROM books WHERE is_pinned = 1 ORDER BY pin_order, title COLLATE NOCASE`)
	if err != nil {
		return nil, fmt.Errorf("pinned books: %w", err)
	}
	defer rows.Close()

	var books []*domain.Book
	for rows.Next() {
		b, err := scanBook(rows)
		if err != nil {
			return nil, fmt.Errorf("scan book: %w", err)
		}
		books = append(books, b)
	}
	return books, rows.Err()
}

// GetBookFiles returns the book's files ordered by sequence index.
func (s *Store) GetBookFiles(ctx context.Context, bookID string) ([]domain.FileEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, path, sequence_index, duration_ms
		FROM book_files WHERE book_id = ? ORDER BY sequence_index`, bookID)
	if err != nil {
		return nil, fmt.Errorf("book files: %w", err)
	}
	defer rows.Close()

	var files []domain.FileEntry
	for rows.Next() {
		var f domain.FileEntry
		if err := rows.Scan(&f.ID, &f.Path, &f.SequenceIndex, &f.DurationMs); err != nil {
			return nil, fmt.Errorf("scan book file: %w", err)
		}
		files = append(files, f)
	}
	return files, rows.Err()
}

// UpdateFileDurationBatch persists probed durations in one transaction.
// An empty batch is a no-op.
func (s *Store) UpdateFileDurationBatch(ctx context.Context, updates []store.DurationUpdate) error {
	if len(updates) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`UPDATE book_files SET duration_ms = ? WHERE id = ?`)
	if err != nil {
		return fmt.Errorf("prepare duration update: %w", err)
	}
	defer stmt.Close()

	for _, u := range updates {
		if _, err := stmt.ExecContext(ctx, u.DurationMs, u.FileID); err != nil {
			return fmt.Errorf("update duration %s: %w", u.FileID, err)
		}
	}

	return tx.Commit()
}

// SetBookFinished flags a book finished or unfinished. Updating an already
// matching flag is a no-op with no error.
func (s *Store) SetBookFinished(ctx context.Context, bookID string, finished bool) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE books SET is_finished = ? WHERE id = ?`, boolToInt(finished), bookID)
	if err != nil {
		return fmt.Errorf("set finished: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("set finished: %w", err)
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

// TouchLastPlayed bumps the book's last-played timestamp to now.
func (s *Store) TouchLastPlayed(ctx context.Context, bookID string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE books SET last_played = ? WHERE id = ?`, formatTime(time.Now()), bookID)
	if err != nil {
		return fmt.Errorf("touch last played: %w", err)
	}
	return nil
}
