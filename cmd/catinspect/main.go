package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/lecternapp/lectern/internal/config"
	"github.com/lecternapp/lectern/internal/refine"
	"github.com/lecternapp/lectern/internal/store"
	"github.com/lecternapp/lectern/internal/store/sqlite"
)

func main() {
	runRefine := flag.Bool("refine", false, "Probe and persist missing file durations")
	flag.Parse()

	dbPath := os.Getenv("CATALOG_PATH")
	if dbPath == "" {
		dbPath = os.ExpandEnv("$HOME/Lectern/catalog.db")
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	db, err := sqlite.Open(dbPath, logger)
	if err != nil {
		log.Fatalf("Failed to open catalog: %v", err)
	}
	defer db.Close()

	ctx := context.Background()

	fmt.Println("=== Catalog Inspection ===")
	fmt.Println()

	books, err := db.ListBooks(ctx)
	if err != nil {
		log.Fatalf("Failed to list books: %v", err)
	}

	totalFiles := 0
	pendingFiles := 0
	finished := 0

	for _, book := range books {
		files, err := db.GetBookFiles(ctx, book.ID)
		if err != nil {
			log.Fatalf("Failed to load files for %s: %v", book.ID, err)
		}

		pending := 0
		var totalMs int64
		for _, f := range files {
			if f.DurationMs == 0 {
				pending++
			}
			totalMs += f.DurationMs
		}
		totalFiles += len(files)
		pendingFiles += pending
		if book.IsFinished {
			finished++
		}

		fmt.Printf("Book: %s\n", book.Title)
		fmt.Printf("  ID: %s\n", book.ID)
		fmt.Printf("  Files: %d (%d without duration)\n", len(files), pending)
		fmt.Printf("  Known duration: %s\n", time.Duration(totalMs)*time.Millisecond)
		if book.IsFinished {
			fmt.Println("  Finished: yes")
		}

		state, err := db.GetPlaybackState(ctx, book.ID)
		if err == nil {
			fmt.Printf("  Position: file %d @ %s (rate %.2f)\n",
				state.FileSeq,
				time.Duration(state.PositionMs)*time.Millisecond,
				state.Rate)
		} else if !errors.Is(err, store.ErrNotFound) {
			log.Fatalf("Failed to load playback state for %s: %v", book.ID, err)
		}
		fmt.Println()
	}

	fmt.Println("=== Summary ===")
	fmt.Printf("Books: %d (%d finished)\n", len(books), finished)
	fmt.Printf("Files: %d\n", totalFiles)
	fmt.Printf("Files awaiting duration: %d\n", pendingFiles)

	if !*runRefine {
		return
	}

	fmt.Println()
	fmt.Println("=== Duration Refinement ===")

	worker := refine.NewWorker(config.RefinementConfig{}, logger, db, refine.NewAudiometaProber())
	tasks, err := worker.PendingTasks(ctx)
	if err != nil {
		log.Fatalf("Failed to collect pending files: %v", err)
	}

	start := time.Now()
	persisted, err := worker.Refine(ctx, tasks)
	if err != nil {
		log.Fatalf("Refinement failed: %v", err)
	}

	fmt.Printf("Probed %d files, persisted %d durations in %s\n",
		len(tasks), persisted, time.Since(start).Round(time.Millisecond))
}
