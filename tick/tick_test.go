package tick

import (
	"math"
	"testing"

	"github.com/bevyengine/bevy-sub038/assert"
)

func TestIsNewerThanBasicWindow(t *testing.T) {
	// Change at tick 5, system last ran at 3, current is 10: inside window.
	assert.Check(t, Tick(5).IsNewerThan(3, 10))
	// Change at tick 3, system last ran at 5: already observed.
	assert.Check(t, !Tick(3).IsNewerThan(5, 10))
	// Change at the same tick the system last ran is not newer.
	assert.Check(t, !Tick(5).IsNewerThan(5, 10))
}

func TestIsNewerThanAcrossWraparound(t *testing.T) {
	nearMax := Tick(math.MaxUint32 - 2)
	// The counter wrapped: change happened just before the wrap, the system
	// last ran long before that, current sits past zero.
	assert.Check(t, nearMax.IsNewerThan(nearMax-10, 5))
	// A change recorded after the wrap is newer than a pre-wrap last run.
	assert.Check(t, Tick(3).IsNewerThan(nearMax, 5))
	// Observed post-wrap change is not re-reported.
	assert.Check(t, !Tick(3).IsNewerThan(4, 5))
}

func TestAgesClampToMaxChangeAge(t *testing.T) {
	current := Tick(uint32(MaxChangeAge) + 100)
	// Both the change and the last run saturate, so the change is no longer
	// distinguishable from one the system already observed.
	assert.Check(t, !Tick(50).IsNewerThan(0, current))
	// A change younger than the saturation point still reports against a
	// saturated last run.
	assert.Check(t, Tick(uint32(MaxChangeAge)).IsNewerThan(0, current))
}

func TestRelativeTo(t *testing.T) {
	assert.Equal(t, uint32(5), Tick(10).RelativeTo(5))
	// Wrapping subtraction.
	assert.Equal(t, uint32(11), Tick(5).RelativeTo(math.MaxUint32-5))
}

func TestComponentTicks(t *testing.T) {
	ticks := NewComponentTicks(7)
	assert.Equal(t, Tick(7), ticks.Added)
	assert.Equal(t, Tick(7), ticks.Changed)

	assert.Check(t, ticks.IsAdded(3, 10))
	assert.Check(t, ticks.IsChanged(3, 10))
	assert.Check(t, !ticks.IsAdded(8, 10))
	assert.Check(t, !ticks.IsChanged(8, 10))
}
