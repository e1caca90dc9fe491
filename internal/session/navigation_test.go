package session

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lecternapp/lectern/internal/domain"
	"github.com/lecternapp/lectern/internal/engine/enginetest"
	"github.com/lecternapp/lectern/internal/errors"
	"github.com/lecternapp/lectern/internal/notify"
)

func TestSeekClampsToEndMargin(t *testing.T) {
	f := newFixture(t, defaultTestConfig(), nil)

	f.session.SeekTo(59990)
	assert.Equal(t, int64(59000), f.engine.GetTime())

	f.session.SeekTo(-500)
	assert.Equal(t, int64(0), f.engine.GetTime())
}

func TestSeekRelativeSteps(t *testing.T) {
	f := newFixture(t, defaultTestConfig(), nil)

	f.session.SeekForward()
	assert.Equal(t, int64(30000), f.engine.GetTime())

	f.session.SeekBackward()
	assert.Equal(t, int64(20000), f.engine.GetTime())

	f.session.SeekRelative(-50000)
	assert.Equal(t, int64(0), f.engine.GetTime())
}

func TestSeekUnknownDurationOnlyLowerBound(t *testing.T) {
	f := newFixture(t, defaultTestConfig(), func(_ *memCatalog, e *enginetest.Fake) {
		e.Lengths = nil // engine does not know durations
	})

	f.session.SeekTo(10_000_000)
	assert.Equal(t, int64(10_000_000), f.engine.GetTime())
}

func TestJumpToBookmarkSameFile(t *testing.T) {
	f := newFixture(t, defaultTestConfig(), nil)

	bm := domain.Bookmark{BookID: "book-1", FileSequenceIndex: 0, PositionMs: 21000}
	require.NoError(t, f.session.JumpToBookmark(bm))

	assert.Equal(t, int64(21000), f.engine.GetTime())
	assert.Equal(t, 0, f.engine.GetCurrentIndex())
}

func TestJumpToBookmarkOtherFileTwoPhase(t *testing.T) {
	f := newFixture(t, defaultTestConfig(), nil)

	bm := domain.Bookmark{BookID: "book-1", FileSequenceIndex: 2, PositionMs: 15000}
	require.NoError(t, f.session.JumpToBookmark(bm))

	// The engine resets to 0 on the jump; the target position is applied
	// when the file change is processed.
	f.session.drainEngineEvents()

	st := f.session.StateSnapshot()
	assert.Equal(t, 2, st.CurrentFileSeq)
	assert.Equal(t, int64(15000), st.PositionMs)
	assert.Equal(t, int64(15000), f.engine.GetTime())
}

func TestJumpToBookmarkMissingFile(t *testing.T) {
	f := newFixture(t, defaultTestConfig(), nil)

	before := f.session.StateSnapshot()
	bm := domain.Bookmark{BookID: "book-1", FileSequenceIndex: 7, PositionMs: 1000}
	err := f.session.JumpToBookmark(bm)

	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrFileUnavailable))
	after := f.session.StateSnapshot()
	assert.Equal(t, before.CurrentFileSeq, after.CurrentFileSeq, "state untouched on failure")
	assert.Equal(t, 0, f.engine.GetCurrentIndex(), "never falls back to another file")
}

func TestJumpToBookmarkEngineRejection(t *testing.T) {
	f := newFixture(t, defaultTestConfig(), func(_ *memCatalog, e *enginetest.Fake) {
		e.FailJump = true
	})

	bm := domain.Bookmark{BookID: "book-1", FileSequenceIndex: 2, PositionMs: 1000}
	err := f.session.JumpToBookmark(bm)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrEngineLoad))
	assert.Nil(t, f.session.StateSnapshot().LoopStartMs)
}

func TestAddAndNavigateBookmarks(t *testing.T) {
	f := newFixture(t, defaultTestConfig(), nil)
	ctx := context.Background()

	f.session.SeekTo(10000)
	_, err := f.session.AddBookmark(ctx, "first", "")
	require.NoError(t, err)
	f.session.SeekTo(40000)
	bm2, err := f.session.AddBookmark(ctx, "", "auto title")
	require.NoError(t, err)
	assert.NotEmpty(t, bm2.ID)
	assert.NotEmpty(t, bm2.Title)

	f.session.SeekTo(0)
	require.NoError(t, f.session.NextBookmark(ctx))
	assert.Equal(t, int64(10000), f.engine.GetTime())

	require.NoError(t, f.session.NextBookmark(ctx))
	assert.Equal(t, int64(40000), f.engine.GetTime())

	err = f.session.NextBookmark(ctx)
	assert.True(t, errors.Is(err, errors.ErrNotFound))

	require.NoError(t, f.session.PreviousBookmark(ctx))
	assert.Equal(t, int64(10000), f.engine.GetTime())
}

func TestPreviousBookmarkBuffer(t *testing.T) {
	f := newFixture(t, defaultTestConfig(), nil)
	ctx := context.Background()

	f.session.SeekTo(10000)
	_, err := f.session.AddBookmark(ctx, "mark", "")
	require.NoError(t, err)

	// Within the 1000 ms buffer the bookmark just jumped to is skipped.
	f.session.SeekTo(10800)
	err = f.session.PreviousBookmark(ctx)
	assert.True(t, errors.Is(err, errors.ErrNotFound))
	assert.Equal(t, int64(10800), f.engine.GetTime())

	// Past the buffer it is reachable again.
	f.session.SeekTo(11200)
	require.NoError(t, f.session.PreviousBookmark(ctx))
	assert.Equal(t, int64(10000), f.engine.GetTime())
}

func TestSeekHelpers(t *testing.T) {
	f := newFixture(t, defaultTestConfig(), func(_ *memCatalog, e *enginetest.Fake) {
		e.Lengths["/books/book-1/00.mp3"] = 200000
	})

	f.session.SeekToMiddle()
	assert.Equal(t, int64(100000), f.engine.GetTime())

	f.session.SeekToNearEnd()
	assert.Equal(t, int64(170000), f.engine.GetTime())

	f.session.RestartFile()
	assert.Equal(t, int64(0), f.engine.GetTime())
}

func TestSeekHelpersUnknownDuration(t *testing.T) {
	f := newFixture(t, defaultTestConfig(), func(_ *memCatalog, e *enginetest.Fake) {
		e.Lengths = nil
	})

	f.session.SeekTo(45000)
	f.session.SeekToMiddle()
	assert.Equal(t, int64(45000), f.engine.GetTime(), "unknown duration leaves position alone")

	f.session.SeekToNearEnd()
	assert.Equal(t, int64(45000), f.engine.GetTime())
}

func TestLoopEndBeforeStartRejected(t *testing.T) {
	f := newFixture(t, defaultTestConfig(), nil)

	err := f.session.SetLoopEnd()
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrInvalidNavigation))

	st := f.session.StateSnapshot()
	assert.False(t, st.LoopActive)
	assert.Nil(t, st.LoopStartMs)
	_, _, active := f.engine.LoopWindow()
	assert.False(t, active)
}

func TestLoopEndPrecedingStartRejected(t *testing.T) {
	f := newFixture(t, defaultTestConfig(), nil)

	f.session.SeekTo(30000)
	f.session.SetLoopStart()
	f.session.SeekTo(10000)

	err := f.session.SetLoopEnd()
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrInvalidNavigation))
	assert.False(t, f.session.StateSnapshot().LoopActive)
}

func TestLoopActivateSeeksToStart(t *testing.T) {
	f := newFixture(t, defaultTestConfig(), nil)

	f.session.SeekTo(10000)
	f.session.SetLoopStart()
	f.session.SeekTo(25000)
	require.NoError(t, f.session.SetLoopEnd())

	a, b, active := f.engine.LoopWindow()
	assert.True(t, active)
	assert.Equal(t, int64(10000), a)
	assert.Equal(t, int64(25000), b)
	assert.Equal(t, int64(10000), f.engine.GetTime(), "activation seeks to A")

	ev := waitEvent(t, f.sub, notify.EventLoopSet)
	data, ok := ev.Data.(notify.LoopData)
	require.True(t, ok)
	assert.Equal(t, int64(10000), data.StartMs)

	f.session.ClearLoop()
	_, _, active = f.engine.LoopWindow()
	assert.False(t, active)
	waitEvent(t, f.sub, notify.EventLoopCleared)
}

func TestFileRepeatIndependentOfLoop(t *testing.T) {
	f := newFixture(t, defaultTestConfig(), nil)

	assert.True(t, f.session.ToggleFileRepeat())
	assert.True(t, f.engine.FileRepeat())

	f.session.SeekTo(1000)
	f.session.SetLoopStart()
	f.session.SeekTo(2000)
	require.NoError(t, f.session.SetLoopEnd())
	assert.True(t, f.engine.FileRepeat(), "activating a loop leaves file repeat alone")

	f.session.ClearLoop()
	assert.True(t, f.engine.FileRepeat())

	assert.False(t, f.session.ToggleFileRepeat())
	_, _, active := f.engine.LoopWindow()
	assert.False(t, active)
}

func TestStepSpeedBounds(t *testing.T) {
	f := newFixture(t, defaultTestConfig(), nil)

	rate, ok := f.session.StepSpeed(0.1)
	assert.True(t, ok)
	assert.Equal(t, 1.1, rate)
	assert.Equal(t, 1.1, f.engine.GetRate())

	// Step past the maximum lands on it.
	for i := 0; i < 25; i++ {
		rate, _ = f.session.StepSpeed(0.1)
	}
	assert.Equal(t, domain.MaxRate, rate)

	// Stepping at the bound is rejected.
	_, ok = f.session.StepSpeed(0.1)
	assert.False(t, ok)
	assert.Equal(t, domain.MaxRate, f.engine.GetRate())
}

func TestSnapSpeed(t *testing.T) {
	f := newFixture(t, defaultTestConfig(), nil)

	f.session.StepSpeed(0.1) // 1.1
	rate, ok := f.session.SnapSpeed(0.5)
	assert.True(t, ok)
	assert.Equal(t, 1.5, rate)
}

func TestToggleSpeed(t *testing.T) {
	f := newFixture(t, defaultTestConfig(), nil)
	ctx := context.Background()

	f.session.StepSpeed(0.8) // 1.8
	rate := f.session.ToggleSpeed(ctx)
	assert.Equal(t, 1.0, rate)

	rate = f.session.ToggleSpeed(ctx)
	assert.Equal(t, 1.8, rate, "toggle restores the previous rate")

	// The remembered rate is persisted for the next session.
	v, err := f.catalog.GetSetting(ctx, settingPreviousRate)
	require.NoError(t, err)
	assert.Equal(t, "1.800", v)
}

func TestSetEQAppliesFilterAndPersists(t *testing.T) {
	f := newFixture(t, defaultTestConfig(), nil)
	ctx := context.Background()

	eq := domain.EQSettings{0, 3, -20, 0, 0, 0, 0, 0, 0, 0}
	f.session.SetEQ(ctx, eq, true)

	filters := f.engine.AudioFilters()
	assert.Contains(t, filters, "equalizer=f=170:width_type=o:w=1:g=3")
	assert.Contains(t, filters, "g=-12", "band gains are clamped")

	saved, err := f.catalog.GetPlaybackState(ctx, "book-1")
	require.NoError(t, err)
	assert.True(t, saved.EQEnabled)
	assert.Equal(t, -12, saved.EQ[2])

	assert.False(t, f.session.ToggleEQ(ctx))
	assert.Equal(t, "", f.engine.AudioFilters(), "disabling clears the filter chain")
}

func TestVolumeAndMute(t *testing.T) {
	f := newFixture(t, defaultTestConfig(), nil)

	f.session.SetVolume(150)
	assert.Equal(t, 100, f.engine.GetVolume())
	f.session.SetVolume(-5)
	assert.Equal(t, 0, f.engine.GetVolume())

	assert.True(t, f.session.ToggleMute())
	assert.True(t, f.engine.GetMute())
	assert.False(t, f.session.ToggleMute())
}
