// Package runstate tracks the lifecycle of a schedule with a single atomic
// value, so build-time mutation and pass execution cannot interleave.
package runstate

import "sync/atomic"

type State int32

type Atomic interface {
	CompareAndSwap(oldState, newState State) (swapped bool)
	Load() State
	Store(val State)
	Swap(newState State) (oldState State)
}

const (
	// StateBuilding accepts system and set registration.
	StateBuilding State = iota
	// StateReady has a finalized graph; passes may start.
	StateReady
	// StateRunning means a pass is executing right now.
	StateRunning
	// StateShutDown rejects all further work.
	StateShutDown
)

type atomicState struct {
	value *atomic.Value
}

func NewAtomic() Atomic {
	a := &atomicState{
		value: &atomic.Value{},
	}
	a.Store(StateBuilding)
	return a
}

func (a *atomicState) CompareAndSwap(oldState, newState State) (swapped bool) {
	return a.value.CompareAndSwap(oldState, newState)
}

func (a *atomicState) Load() State {
	return a.value.Load().(State)
}

func (a *atomicState) Store(val State) {
	a.value.Store(val)
}

func (a *atomicState) Swap(newState State) (oldState State) {
	return a.value.Swap(newState).(State)
}
