package schedule

import (
	"github.com/bevyengine/bevy-sub038/world"
)

// RunOnce passes on its first evaluation and fails ever after. Each call
// returns an independent condition, so two systems sharing run-once
// behavior need to share the returned value.
func RunOnce() Condition {
	ran := false
	return func(*Context) (bool, error) {
		if ran {
			return false, nil
		}
		ran = true
		return true, nil
	}
}

// EveryNTicks passes every n-th pass, counting from the first.
func EveryNTicks(n uint32) Condition {
	return func(ctx *Context) (bool, error) {
		if n == 0 {
			return true, nil
		}
		return uint32(ctx.CurrentTick())%n == 0, nil
	}
}

// ResourceExists passes while a resource of type T is present in the world.
func ResourceExists[T any]() Condition {
	return func(ctx *Context) (bool, error) {
		_, err := world.Resource[T](ctx.World())
		return err == nil, nil
	}
}

// ResourceChanged passes when the resource of type T was written within the
// observing system's change window. A missing resource counts as unchanged.
func ResourceChanged[T any]() Condition {
	return func(ctx *Context) (bool, error) {
		ticks, err := world.ResourceTicks[T](ctx.World())
		if err != nil {
			return false, nil
		}
		win := ctx.Window()
		return ticks.IsChanged(win.LastRun, win.This), nil
	}
}
