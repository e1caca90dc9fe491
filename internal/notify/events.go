// Package notify implements the in-process event bus the session publishes
// observable playback changes on. Subscribers (a UI layer, tests, loggers)
// receive events on buffered channels; slow subscribers drop events rather
// than stall the session.
package notify

import "time"

// EventType represents the type of session event.
type EventType string

const (
	// EventPlaybackStarted fires when playback transitions to playing.
	EventPlaybackStarted EventType = "playback.started"
	// EventPlaybackPaused fires when playback transitions to paused.
	EventPlaybackPaused EventType = "playback.paused"
	// EventPlaybackBoundary fires when a manual next/previous hits the edge
	// of the playlist and nothing changes.
	EventPlaybackBoundary EventType = "playback.boundary"

	// EventFileChanged fires when the active file changes, for any reason.
	EventFileChanged EventType = "file.changed"
	// EventTimeTick fires roughly once a second while a book is open.
	EventTimeTick EventType = "time.tick"
	// EventSpeedChanged fires when the playback rate changes.
	EventSpeedChanged EventType = "speed.changed"

	// EventLoopSet fires when an A-B loop becomes active.
	EventLoopSet EventType = "loop.set"
	// EventLoopCleared fires when an A-B loop is cleared.
	EventLoopCleared EventType = "loop.cleared"

	// EventBookFinished fires once when the last file of a book ends
	// naturally.
	EventBookFinished EventType = "book.finished"
	// EventBookSwitched fires when the session moves to a different book.
	EventBookSwitched EventType = "book.switched"
	// EventSessionClosed fires after the session has released its engine.
	EventSessionClosed EventType = "session.closed"
	// EventStateRecovered fires when persisted state was unusable and the
	// session fell back to defaults.
	EventStateRecovered EventType = "state.recovered"

	// EventSleepTimerStarted fires when a sleep timer is armed.
	EventSleepTimerStarted EventType = "sleeptimer.started"
	// EventSleepTimerTick fires every second while a timer is armed.
	EventSleepTimerTick EventType = "sleeptimer.tick"
	// EventSleepTimerCancelled fires when an armed timer is cancelled.
	EventSleepTimerCancelled EventType = "sleeptimer.cancelled"
	// EventSleepTimerFired fires when an armed timer elapses, before any
	// configured action runs.
	EventSleepTimerFired EventType = "sleeptimer.fired"
)

// Event is one session event. Data carries an event-specific payload and may
// be nil.
type Event struct {
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data,omitempty"`
	Type      EventType `json:"type"`
}

// New builds an event stamped with the current time.
func New(eventType EventType, data any) Event {
	return Event{
		Type:      eventType,
		Timestamp: time.Now(),
		Data:      data,
	}
}

// FileChangedData is the payload for file.changed events.
type FileChangedData struct {
	BookID        string `json:"book_id"`
	SequenceIndex int    `json:"sequence_index"`
	Path          string `json:"path"`
}

// TimeTickData is the payload for time.tick events.
type TimeTickData struct {
	BookID     string `json:"book_id"`
	PositionMs int64  `json:"position_ms"`
	DurationMs int64  `json:"duration_ms"`
	Playing    bool   `json:"playing"`
}

// SpeedChangedData is the payload for speed.changed events.
type SpeedChangedData struct {
	Rate float64 `json:"rate"`
}

// LoopData is the payload for loop.set events.
type LoopData struct {
	StartMs int64 `json:"start_ms"`
	EndMs   int64 `json:"end_ms"`
}

// BookData is the payload for book.finished and book.switched events.
type BookData struct {
	BookID string `json:"book_id"`
	Title  string `json:"title,omitempty"`
}

// SleepTimerData is the payload for sleeptimer events.
type SleepTimerData struct {
	DurationMs int64  `json:"duration_ms,omitempty"`
	Action     string `json:"action,omitempty"`
}

// SleepTimerTickData is the payload for sleeptimer.tick events.
type SleepTimerTickData struct {
	RemainingSec int `json:"remaining_sec"`
}

// StateRecoveredData is the payload for state.recovered events.
type StateRecoveredData struct {
	BookID string `json:"book_id"`
	Reason string `json:"reason"`
}
