package runstate

import (
	"testing"

	"github.com/bevyengine/bevy-sub038/assert"
)

func TestCanOperateOnZeroValue(t *testing.T) {
	atomicRunState := NewAtomic()
	gotState := atomicRunState.Load()
	assert.Equal(t, StateBuilding, gotState)

	gotState = atomicRunState.Swap(StateShutDown)
	assert.Equal(t, StateBuilding, gotState)
}

func TestCanCompareAndSwapOnZeroValue(t *testing.T) {
	atomicRunState := NewAtomic()
	ok := atomicRunState.CompareAndSwap(StateShutDown, StateShutDown)
	assert.Check(t, !ok, "zero value should be StateBuilding")

	ok = atomicRunState.CompareAndSwap(StateBuilding, StateShutDown)
	assert.Check(t, ok, "compare and swap should succeed with correct old value")

	assert.Equal(t, StateShutDown, atomicRunState.Load())
}

func TestOnlyOneCompareAndSwapSuccess(t *testing.T) {
	successCh := make(chan bool)
	atomicRunState := NewAtomic()

	for i := 0; i < 10; i++ {
		go func() {
			ok := atomicRunState.CompareAndSwap(StateBuilding, StateShutDown)
			successCh <- ok
		}()
	}

	successCount := 0
	failureCount := 0
	for i := 0; i < 10; i++ {
		if <-successCh {
			successCount++
		} else {
			failureCount++
		}
	}
	assert.Equal(t, 1, successCount)
	assert.Equal(t, 9, failureCount)
}
