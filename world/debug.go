package world

import (
	"github.com/goccy/go-json"

	"github.com/bevyengine/bevy-sub038/types"
)

// DebugStateElement is one entity's full component payload in a debug dump.
type DebugStateElement struct {
	ID         string                     `json:"id"`
	Archetype  int                        `json:"archetype_id"`
	Components map[string]json.RawMessage `json:"components"`
}

// DebugState renders the entire store as JSON-serializable elements, one per
// live entity. Intended for inspection and tests, not for persistence.
func (w *World) DebugState() ([]DebugStateElement, error) {
	result := make([]DebugStateElement, 0, w.EntityCount())
	for _, arch := range w.archetypes.All() {
		for row, e := range arch.Table().Entities() {
			element := DebugStateElement{
				ID:         e.String(),
				Archetype:  int(arch.ID()),
				Components: make(map[string]json.RawMessage, len(arch.Components())),
			}
			for _, id := range arch.Components() {
				meta, err := w.registry.GetComponentByID(id)
				if err != nil {
					return nil, err
				}
				var value any
				if meta.StorageType() == types.StorageTypeSparseSet {
					set, err := w.sparseSet(id)
					if err != nil {
						return nil, err
					}
					value, err = set.Get(e)
					if err != nil {
						return nil, err
					}
				} else {
					col, err := arch.Table().Column(id)
					if err != nil {
						return nil, err
					}
					value, err = col.Get(types.TableRow(row))
					if err != nil {
						return nil, err
					}
				}
				bz, err := meta.Encode(value)
				if err != nil {
					return nil, err
				}
				element.Components[meta.Name()] = bz
			}
			result = append(result, element)
		}
	}
	return result, nil
}
