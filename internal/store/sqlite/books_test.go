package sqlite

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/lecternapp/lectern/internal/domain"
	"github.com/lecternapp/lectern/internal/store"
)

// makeTestBook creates a domain.Book with two files for testing.
func makeTestBook(id, title, path string) *domain.Book {
	return &domain.Book{
		ID:    id,
		Title: title,
		Path:  path,
		Files: []domain.FileEntry{
			{ID: id + "-f0", Path: path + "/part01.mp3", SequenceIndex: 0, DurationMs: 0},
			{ID: id + "-f1", Path: path + "/part02.mp3", SequenceIndex: 1, DurationMs: 0},
		},
	}
}

func TestCreateAndGetBook(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	book := makeTestBook("book-1", "The Hobbit", "/audiobooks/the-hobbit")
	if err := s.CreateBook(ctx, book); err != nil {
		t.Fatalf("CreateBook: %v", err)
	}

	got, err := s.GetBook(ctx, "book-1")
	if err != nil {
		t.Fatalf("GetBook: %v", err)
	}
	if got.Title != "The Hobbit" {
		t.Errorf("title = %q, want The Hobbit", got.Title)
	}
	if got.IsFinished || got.IsPinned {
		t.Errorf("new book should be unfinished and unpinned")
	}
	if got.AddedAt.IsZero() {
		t.Errorf("AddedAt not persisted")
	}
	if got.LastPlayed != nil {
		t.Errorf("LastPlayed should be nil for a never-played book")
	}

	files, err := s.GetBookFiles(ctx, "book-1")
	if err != nil {
		t.Fatalf("GetBookFiles: %v", err)
	}
	if len(files) != 2 {
		t.Fatalf("got %d files, want 2", len(files))
	}
	if files[0].SequenceIndex != 0 || files[1].SequenceIndex != 1 {
		t.Errorf("files not ordered by sequence index: %+v", files)
	}
}

func TestGetBookNotFound(t *testing.T) {
	s := newTestStore(t)

	_, err := s.GetBook(context.Background(), "missing")
	if !errors.Is(err, store.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestCreateBookDuplicatePath(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.CreateBook(ctx, makeTestBook("book-1", "A", "/audiobooks/a")); err != nil {
		t.Fatalf("CreateBook: %v", err)
	}
	err := s.CreateBook(ctx, makeTestBook("book-2", "A again", "/audiobooks/a"))
	if !errors.Is(err, store.ErrDuplicate) {
		t.Errorf("err = %v, want ErrDuplicate", err)
	}
}

func TestListBooksOrdered(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for i, title := range []string{"zebra", "Alpha", "mango"} {
		b := makeTestBook(fmt.Sprintf("book-%d", i), title, fmt.Sprintf("/audiobooks/%d", i))
		if err := s.CreateBook(ctx, b); err != nil {
			t.Fatalf("CreateBook %s: %v", title, err)
		}
	}

	books, err := s.ListBooks(ctx)
	if err != nil {
		t.Fatalf("ListBooks: %v", err)
	}
	if len(books) != 3 {
		t.Fatalf("got %d books, want 3", len(books))
	}
	want := []string{"Alpha", "mango", "zebra"}
	for i, b := range books {
		if b.Title != want[i] {
			t.Errorf("books[%d].Title = %q, want %q", i, b.Title, want[i])
		}
	}
}

func TestGetPinnedBooks(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	b1 := makeTestBook("book-1", "First", "/audiobooks/1")
	b2 := makeTestBook("book-2", "Second", "/audiobooks/2")
	b2.IsPinned = true
	b2.PinOrder = 1
	b3 := makeTestBook("book-3", "Third", "/audiobooks/3")
	b3.IsPinned = true
	b3.PinOrder = 0
	for _, b := range []*domain.Book{b1, b2, b3} {
		if err := s.CreateBook(ctx, b); err != nil {
			t.Fatalf("CreateBook: %v", err)
		}
	}

	pinned, err := s.GetPinnedBooks(ctx)
	if err != nil {
		t.Fatalf("GetPinnedBooks: %v", err)
	}
	if len(pinned) != 2 {
		t.Fatalf("got %d pinned, want 2", len(pinned))
	}
	if pinned[0].ID != "book-3" || pinned[1].ID != "book-2" {
		t.Errorf("pin order wrong: %s, %s", pinned[0].ID, pinned[1].ID)
	}
}

func TestUpdateFileDurationBatch(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	book := makeTestBook("book-1", "Durations", "/audiobooks/d")
	if err := s.CreateBook(ctx, book); err != nil {
		t.Fatalf("CreateBook: %v", err)
	}

	updates := []store.DurationUpdate{
		{FileID: "book-1-f0", DurationMs: 3_600_000},
		{FileID: "book-1-f1", DurationMs: 4_200_000},
	}
	if err := s.UpdateFileDurationBatch(ctx, updates); err != nil {
		t.Fatalf("UpdateFileDurationBatch: %v", err)
	}

	files, err := s.GetBookFiles(ctx, "book-1")
	if err != nil {
		t.Fatalf("GetBookFiles: %v", err)
	}
	if files[0].DurationMs != 3_600_000 || files[1].DurationMs != 4_200_000 {
		t.Errorf("durations not persisted: %+v", files)
	}

	// Empty batch is a no-op.
	if err := s.UpdateFileDurationBatch(ctx, nil); err != nil {
		t.Errorf("empty batch: %v", err)
	}
}

func TestSetBookFinished(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.CreateBook(ctx, makeTestBook("book-1", "Done", "/audiobooks/done")); err != nil {
		t.Fatalf("CreateBook: %v", err)
	}

	if err := s.SetBookFinished(ctx, "book-1", true); err != nil {
		t.Fatalf("SetBookFinished: %v", err)
	}
	// Setting the same flag again succeeds.
	if err := s.SetBookFinished(ctx, "book-1", true); err != nil {
		t.Fatalf("SetBookFinished repeat: %v", err)
	}

	got, err := s.GetBook(ctx, "book-1")
	if err != nil {
		t.Fatalf("GetBook: %v", err)
	}
	if !got.IsFinished {
		t.Errorf("book not marked finished")
	}

	if err := s.SetBookFinished(ctx, "missing", true); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestTouchLastPlayed(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.CreateBook(ctx, makeTestBook("book-1", "Played", "/audiobooks/p")); err != nil {
		t.Fatalf("CreateBook: %v", err)
	}
	if err := s.TouchLastPlayed(ctx, "book-1"); err != nil {
		t.Fatalf("TouchLastPlayed: %v", err)
	}

	got, err := s.GetBook(ctx, "book-1")
	if err != nil {
		t.Fatalf("GetBook: %v", err)
	}
	if got.LastPlayed == nil {
		t.Errorf("LastPlayed should be set")
	}
}
