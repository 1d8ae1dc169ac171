// Package progress maps raw remote progress signals onto the stable
// 0-100 scale reported to API clients. All functions are pure.
package progress

import "time"

// Phase identifies one stage of an analysis run. Each phase owns a slice
// of the overall 0-100 progress scale so that phase-local progress never
// collides with a neighbouring phase.
type Phase int

const (
	PhaseSession Phase = iota
	PhaseUpload
	PhaseKickoff
	PhasePolling
	PhaseFinalize
)

// Bounds returns the [lo, hi] slice of the overall progress scale owned
// by the phase.
func (p Phase) Bounds() (lo, hi int) {
	switch p {
	case PhaseSession:
		return 0, 10
	case PhaseUpload:
		return 10, 30
	case PhaseKickoff:
		return 30, 40
	case PhasePolling:
		return 40, 90
	case PhaseFinalize:
		return 90, 100
	default:
		return 0, 100
	}
}

// Scale rescales a phase-local progress value in [0, 100] onto the
// [lo, hi] slice of the overall scale. Inputs outside [0, 100] are
// clamped before scaling.
func Scale(local, lo, hi int) int {
	if local < 0 {
		local = 0
	}
	if local > 100 {
		local = 100
	}
	if hi < lo {
		lo, hi = hi, lo
	}
	return lo + local*(hi-lo)/100
}

// Overall maps a phase-local progress value onto the overall scale using
// the phase's bounds.
func Overall(p Phase, local int) int {
	lo, hi := p.Bounds()
	return Scale(local, lo, hi)
}

// Estimate derives a progress value from wall-clock time for protocols
// that expose no numeric progress. The result grows linearly with
// elapsed against the typical run duration and is capped at max so a
// run is never reported complete before completion is confirmed.
func Estimate(elapsed, typical time.Duration, max int) int {
	if elapsed <= 0 || typical <= 0 || max <= 0 {
		return 0
	}
	v := int(float64(elapsed) / float64(typical) * float64(max))
	if v > max {
		return max
	}
	return v
}
