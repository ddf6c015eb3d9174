// Package tick implements the monotonic change-detection counter. The world
// increments the tick once per scheduler pass, and every stored component
// slot is stamped with the tick at which it was added and last changed. A
// system compares those stamps against the tick of its own previous run to
// cheaply answer "did this value change since I last looked?".
package tick

import "math"

// Tick is a 32-bit monotonic counter. It wraps around; all comparisons must
// go through IsNewerThan rather than naive ordering.
type Tick uint32

// MaxChangeAge is the maximum age, in ticks, that a change stamp can reach
// before the window comparison saturates. Keeping it under half the u32
// range makes the wraparound subtraction unambiguous.
const MaxChangeAge Tick = math.MaxUint32 / 2

// RelativeTo returns the wrapping distance from other to t.
func (t Tick) RelativeTo(other Tick) uint32 {
	return uint32(t - other)
}

// IsNewerThan reports whether t is observable as "changed" by a system whose
// previous run completed at lastRun and whose current pass is at current.
// The comparison is performed in the circular tick ordering: t is observable
// iff it is strictly after lastRun, where ages are measured backwards from
// current and clamped to MaxChangeAge.
func (t Tick) IsNewerThan(lastRun, current Tick) bool {
	ticksSinceChange := min(current.RelativeTo(t), uint32(MaxChangeAge))
	ticksSinceSystem := min(current.RelativeTo(lastRun), uint32(MaxChangeAge))
	return ticksSinceSystem > ticksSinceChange
}

// ComponentTicks carries the add and change stamps for one stored component
// instance. A component added and then mutated within the same pass reports
// both "added" and "changed" to any system that has not yet observed either.
type ComponentTicks struct {
	Added   Tick
	Changed Tick
}

// NewComponentTicks stamps a freshly written component: both stamps start at
// the tick of the write.
func NewComponentTicks(now Tick) ComponentTicks {
	return ComponentTicks{Added: now, Changed: now}
}

// IsAdded reports whether the slot was added within the observation window.
func (c ComponentTicks) IsAdded(lastRun, current Tick) bool {
	return c.Added.IsNewerThan(lastRun, current)
}

// IsChanged reports whether the slot was mutated within the observation
// window.
func (c ComponentTicks) IsChanged(lastRun, current Tick) bool {
	return c.Changed.IsNewerThan(lastRun, current)
}

func min(a, b uint32) uint32 {
	if a < b {
		return a
	}
	return b
}
