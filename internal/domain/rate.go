package domain

import "math"

// Playback rate bounds and granularity.
const (
	MinRate      = 0.5
	MaxRate      = 3.0
	RateSnapStep = 0.5
)

// quantizeRate rounds to three decimal places, removing binary float drift
// from repeated small steps (0.1 + 0.1 + ... staying displayable).
func quantizeRate(rate float64) float64 {
	return math.Round(rate*1000) / 1000
}

// StepRate changes rate by delta within [MinRate, MaxRate].
// Stepping past a bound from inside the range lands on the bound; stepping
// while already at the bound is rejected and ok is false.
func StepRate(current, delta float64) (rate float64, ok bool) {
	next := quantizeRate(current + delta)

	if next >= MinRate && next <= MaxRate {
		return next, true
	}
	if next > MaxRate && current < MaxRate {
		return MaxRate, true
	}
	if next < MinRate && current > MinRate {
		return MinRate, true
	}
	return current, false
}

// SnapRate changes rate by delta and snaps the result to the nearest
// RateSnapStep increment, clamped to [MinRate, MaxRate].
// Returns ok=false when the snap produces no change because the rate is
// already pinned at the bound in the direction of delta.
func SnapRate(current, delta float64) (rate float64, ok bool) {
	target := current + delta
	snapped := math.Round(target/RateSnapStep) * RateSnapStep
	snapped = quantizeRate(snapped)

	if snapped > MaxRate {
		snapped = MaxRate
	} else if snapped < MinRate {
		snapped = MinRate
	}

	if snapped == current {
		atBound := (delta > 0 && current == MaxRate) || (delta < 0 && current == MinRate)
		return current, !atBound
	}
	return snapped, true
}
