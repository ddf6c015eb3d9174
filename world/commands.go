package world

import (
	"github.com/rotisserie/eris"

	"github.com/bevyengine/bevy-sub038/types"
)

// CommandBuffer queues structural mutations so they can be applied at a
// synchronization point instead of while systems are iterating the store.
// Every queued operation is a no-op until Apply runs; a buffer whose system
// failed is discarded without ever touching the world.
type CommandBuffer struct {
	commands []queuedCommand
}

type queuedCommand struct {
	name  string
	apply func(w *World) error
}

func NewCommandBuffer() *CommandBuffer {
	return &CommandBuffer{}
}

// Len returns the number of queued commands.
func (b *CommandBuffer) Len() int {
	return len(b.commands)
}

// Spawn queues the creation of a new entity with the given bundle.
func (b *CommandBuffer) Spawn(bundle any) {
	b.commands = append(b.commands, queuedCommand{
		name: "spawn",
		apply: func(w *World) error {
			_, err := w.Spawn(bundle)
			return err
		},
	})
}

// Despawn queues the removal of an entity.
func (b *CommandBuffer) Despawn(e types.Entity) {
	b.commands = append(b.commands, queuedCommand{
		name: "despawn",
		apply: func(w *World) error {
			return w.Despawn(e)
		},
	})
}

// Insert queues writing a bundle onto an existing entity.
func (b *CommandBuffer) Insert(e types.Entity, bundle any) {
	b.commands = append(b.commands, queuedCommand{
		name: "insert",
		apply: func(w *World) error {
			return w.Insert(e, bundle)
		},
	})
}

// Remove queues stripping a bundle's components from an entity.
func (b *CommandBuffer) Remove(e types.Entity, bundle any) {
	b.commands = append(b.commands, queuedCommand{
		name: "remove",
		apply: func(w *World) error {
			return w.Remove(e, bundle)
		},
	})
}

// Queue appends an arbitrary deferred closure. The name is used in error
// reports.
func (b *CommandBuffer) Queue(name string, fn func(w *World) error) {
	b.commands = append(b.commands, queuedCommand{name: name, apply: fn})
}

// Apply runs the queued commands against the world in the order they were
// queued, then empties the buffer. The first failing command aborts the
// remainder of this buffer; already-applied commands stay applied.
func (b *CommandBuffer) Apply(w *World) error {
	cmds := b.commands
	b.commands = nil
	for i, cmd := range cmds {
		if err := cmd.apply(w); err != nil {
			return eris.Wrapf(err, "deferred command %d (%s) failed", i, cmd.name)
		}
	}
	return nil
}

// Discard drops all queued commands without applying them.
func (b *CommandBuffer) Discard() {
	b.commands = nil
}
