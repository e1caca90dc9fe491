package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// EQBandCount is the number of equalizer bands.
const EQBandCount = 10

// EQ gain bounds in dB.
const (
	EQGainMin = -12
	EQGainMax = 12
)

// eqBandFrequencies are the center frequencies (Hz) of the ten bands.
var eqBandFrequencies = [EQBandCount]int{60, 170, 310, 600, 1000, 3000, 6000, 12000, 14000, 16000}

// EQSettings is a ten-band equalizer gain vector in dB.
type EQSettings [EQBandCount]int

// Clamp returns a copy with every gain forced into [EQGainMin, EQGainMax].
func (eq EQSettings) Clamp() EQSettings {
	for i, g := range eq {
		if g < EQGainMin {
			eq[i] = EQGainMin
		} else if g > EQGainMax {
			eq[i] = EQGainMax
		}
	}
	return eq
}

// IsFlat reports whether every band gain is zero.
func (eq EQSettings) IsFlat() bool {
	for _, g := range eq {
		if g != 0 {
			return false
		}
	}
	return true
}

// String encodes the settings as a comma-separated list, the catalog's
// storage format (e.g. "0,0,0,0,0,0,0,0,0,0").
func (eq EQSettings) String() string {
	parts := make([]string, EQBandCount)
	for i, g := range eq {
		parts[i] = strconv.Itoa(g)
	}
	return strings.Join(parts, ",")
}

// ParseEQSettings decodes the comma-separated catalog format. Unparseable or
// wrong-length input yields flat settings and an error; gains out of range
// are clamped silently.
func ParseEQSettings(s string) (EQSettings, error) {
	var eq EQSettings
	parts := strings.Split(s, ",")
	if len(parts) != EQBandCount {
		return eq, fmt.Errorf("eq settings: want %d bands, got %d", EQBandCount, len(parts))
	}
	for i, p := range parts {
		g, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return EQSettings{}, fmt.Errorf("eq settings: band %d: %w", i, err)
		}
		eq[i] = g
	}
	return eq.Clamp(), nil
}

// FilterString builds the engine audio filter expression for these settings.
// Flat bands are omitted; entirely flat (or disabled) settings produce the
// empty string, which clears any active filter.
func (eq EQSettings) FilterString(enabled bool) string {
	if !enabled || eq.IsFlat() {
		return ""
	}
	var bands []string
	for i, g := range eq {
		if g != 0 {
			bands = append(bands, fmt.Sprintf("equalizer=f=%d:width_type=o:w=1:g=%d", eqBandFrequencies[i], g))
		}
	}
	return "lavfi=[" + strings.Join(bands, ",") + "]"
}

// PlaybackState is the persisted playback snapshot for one book, keyed by
// book ID in the catalog.
type PlaybackState struct {
	BookID     string     `json:"book_id"`
	FileSeq    int        `json:"file_seq"`
	PositionMs int64      `json:"position_ms"`
	Rate       float64    `json:"rate"`
	EQ         EQSettings `json:"eq"`
	EQEnabled  bool       `json:"eq_enabled"`
}

// NewPlaybackState returns the default state for a freshly opened book.
func NewPlaybackState(bookID string) *PlaybackState {
	return &PlaybackState{
		BookID: bookID,
		Rate:   1.0,
	}
}

// EndMarginMs is the reserved margin before a file's end. Positions are never
// set inside this margin so the engine's own end-of-file detection cannot be
// raced by a caller seek.
const EndMarginMs = 1000

// ClampPosition forces positionMs into the playable range for a file of the
// given duration. With an unknown duration (0) only the lower bound applies.
func ClampPosition(positionMs, durationMs int64) int64 {
	if positionMs < 0 {
		return 0
	}
	if durationMs > 0 && positionMs > durationMs-EndMarginMs {
		clamped := durationMs - EndMarginMs
		if clamped < 0 {
			return 0
		}
		return clamped
	}
	return positionMs
}
