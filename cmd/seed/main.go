// Package main provides a tool to seed the catalog with test books.
//
// It creates a handful of books with placeholder file durations, pins a
// couple, and writes realistic playback positions and bookmarks so the
// player, refinement, and history paths have data to work against.
//
// Usage:
//
//	CATALOG_PATH=~/Lectern/catalog.db go run ./cmd/seed
//	CATALOG_PATH=~/Lectern/catalog.db go run ./cmd/seed --books 20
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"math/rand"
	"os"
	"time"

	"github.com/lecternapp/lectern/internal/domain"
	"github.com/lecternapp/lectern/internal/id"
	"github.com/lecternapp/lectern/internal/store"
	"github.com/lecternapp/lectern/internal/store/sqlite"
)

var bookCount = flag.Int("books", 8, "Number of books to create")

var titles = []string{
	"The Silent Meridian",
	"A Winter of Glass",
	"The Cartographer's Daughter",
	"Notes from the Deep",
	"The Last Lighthouse",
	"Emberfall",
	"The Clockmaker's Apprentice",
	"Songs of the Northern Road",
	"The Orchard at World's End",
	"Paper Boats",
	"The Hollow Crown of Averel",
	"Driftwood and Sparrows",
}

func main() {
	flag.Parse()

	dbPath := os.Getenv("CATALOG_PATH")
	if dbPath == "" {
		dbPath = os.ExpandEnv("$HOME/Lectern/catalog.db")
	}

	fmt.Printf("Opening catalog at: %s\n", dbPath)

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	db, err := sqlite.Open(dbPath, logger)
	if err != nil {
		log.Fatalf("Failed to open catalog: %v", err)
	}
	defer db.Close()

	ctx := context.Background()
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))

	n := min(*bookCount, len(titles))
	created := 0

	for i := range n {
		title := titles[i]
		bookID := id.MustGenerate("book")
		fileCount := 4 + rng.Intn(12)

		book := &domain.Book{
			ID:    bookID,
			Title: title,
			Path:  fmt.Sprintf("/library/%s", bookID),
			// Every third book is pinned, in creation order.
			IsPinned: i%3 == 0,
			PinOrder: i / 3,
			AddedAt:  time.Now().AddDate(0, 0, -rng.Intn(90)),
		}
		for seq := range fileCount {
			// Half the files keep the fast-scan placeholder so the
			// refinement worker has work to do.
			var durationMs int64
			if rng.Intn(2) == 0 {
				durationMs = int64(120000 + rng.Intn(1800000))
			}
			book.Files = append(book.Files, domain.FileEntry{
				ID:            id.MustGenerate("file"),
				Path:          fmt.Sprintf("%s/%02d.mp3", book.Path, seq),
				SequenceIndex: seq,
				DurationMs:    durationMs,
			})
		}

		if err := db.CreateBook(ctx, book); err != nil {
			if errors.Is(err, store.ErrDuplicate) {
				fmt.Printf("  Skipping %q (already seeded)\n", title)
				continue
			}
			log.Fatalf("Failed to create book %q: %v", title, err)
		}
		created++

		// Most books get a saved position somewhere in the first files.
		if rng.Intn(4) > 0 {
			state := domain.NewPlaybackState(bookID)
			state.FileSeq = rng.Intn(fileCount)
			state.PositionMs = int64(rng.Intn(600000))
			state.Rate = []float64{1.0, 1.25, 1.5}[rng.Intn(3)]
			if err := db.SavePlaybackState(ctx, state); err != nil {
				log.Fatalf("Failed to save playback state for %q: %v", title, err)
			}
		}

		for b := range rng.Intn(3) {
			bm := &domain.Bookmark{
				ID:                id.MustGenerate("bm"),
				BookID:            bookID,
				FileSequenceIndex: rng.Intn(fileCount),
				PositionMs:        int64(rng.Intn(600000)),
				Title:             fmt.Sprintf("Bookmark %d", b+1),
			}
			if err := db.AddBookmark(ctx, bm); err != nil {
				log.Fatalf("Failed to add bookmark for %q: %v", title, err)
			}
		}

		fmt.Printf("  Created %q with %d files\n", title, fileCount)
	}

	fmt.Printf("\nSeeded %d books\n", created)
}
