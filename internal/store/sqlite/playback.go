package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lecternapp/lectern/internal/domain"
	"github.com/lecternapp/lectern/internal/store"
)

// GetPlaybackState returns the saved state for a book, or store.ErrNotFound
// when the book has never been played.
func (s *Store) GetPlaybackState(ctx context.Context, bookID string) (*domain.PlaybackState, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT book_id, file_seq, position_ms, rate, eq_settings, eq_enabled
		FROM playback_state WHERE book_id = ?`, bookID)

	var (
		st        domain.PlaybackState
		eqRaw     string
		eqEnabled int
	)
	err := row.Scan(&st.BookID, &st.FileSeq, &st.PositionMs, &st.Rate, &eqRaw, &eqEnabled)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get playback state: %w", err)
	}

	st.EQEnabled = eqEnabled != 0
	eq, err := domain.ParseEQSettings(eqRaw)
	if err != nil {
		// Corrupt settings reset to flat rather than failing the load.
		s.logger.Warn("discarding unparseable eq settings",
			"book_id", bookID, "error", err)
		eq = domain.EQSettings{}
		st.EQEnabled = false
	}
	st.EQ = eq

	return &st, nil
}

// SavePlaybackState upserts the state and touches the book's last-played
// timestamp in one transaction.
func (s *Store) SavePlaybackState(ctx context.Context, state *domain.PlaybackState) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO playback_state (book_id, file_seq, position_ms, rate, eq_settings, eq_enabled)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(book_id) DO UPDATE SET
			file_seq = excluded.file_seq,
			position_ms = excluded.position_ms,
			rate = excluded.rate,
			eq_settings = excluded.eq_settings,
			eq_enabled = excluded.eq_enabled`,
		state.BookID, state.FileSeq, state.PositionMs, state.Rate,
		state.EQ.String(), boolToInt(state.EQEnabled),
	)
	if err != nil {
		return fmt.Errorf("save playback state: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE books SET last_played = ? WHERE id = ?`,
		formatTime(time.Now()), state.BookID)
	if err != nil {
		return fmt.Errorf("touch last played: %w", err)
	}

	return tx.Commit()
}
