package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStepRate(t *testing.T) {
	tests := []struct {
		name     string
		current  float64
		delta    float64
		wantRate float64
		wantOK   bool
	}{
		{"simple step up", 1.0, 0.1, 1.1, true},
		{"simple step down", 1.5, -0.1, 1.4, true},
		{"repeated steps stay quantized", 1.1, 0.1, 1.2, true},
		{"step onto max", 2.9, 0.1, 3.0, true},
		{"step past max lands on max", 2.95, 0.1, 3.0, true},
		{"step at max rejected", 3.0, 0.1, 3.0, false},
		{"step onto min", 0.6, -0.1, 0.5, true},
		{"step past min lands on min", 0.55, -0.1, 0.5, true},
		{"step at min rejected", 0.5, -0.1, 0.5, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := StepRate(tt.current, tt.delta)
			assert.Equal(t, tt.wantOK, ok)
			assert.InDelta(t, tt.wantRate, got, 0.0001)
		})
	}
}

func TestSnapRate(t *testing.T) {
	tests := []struct {
		name     string
		current  float64
		delta    float64
		wantRate float64
		wantOK   bool
	}{
		{"snap up from odd rate", 1.3, 0.5, 2.0, true},
		{"snap down from odd rate", 1.3, -0.5, 1.0, true},
		{"snap up on grid", 1.5, 0.5, 2.0, true},
		{"snap clamps at max", 2.8, 0.5, 3.0, true},
		{"snap at max rejected", 3.0, 0.5, 3.0, false},
		{"snap clamps at min", 0.7, -0.5, 0.5, true},
		{"snap at min rejected", 0.5, -0.5, 0.5, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := SnapRate(tt.current, tt.delta)
			assert.Equal(t, tt.wantOK, ok)
			assert.InDelta(t, tt.wantRate, got, 0.0001)
		})
	}
}

func TestSnapRate_OffGridNudge(t *testing.T) {
	// 1.1 + 0.5 = 1.6 snaps to 1.5: a change, so accepted.
	got, ok := SnapRate(1.1, 0.5)
	assert.True(t, ok)
	assert.InDelta(t, 1.5, got, 0.0001)
}
