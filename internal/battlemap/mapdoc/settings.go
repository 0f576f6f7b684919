package mapdoc

import (
	"github.com/cory-johannsen/battlemap/internal/battlemap/geom"
	"github.com/cory-johannsen/battlemap/internal/replica"
)

// Settings are the shared scalar settings of a map.
type Settings struct {
	FogOpacity  float64
	Grid        geom.GridSpec
	GridEnabled bool
	ActiveLayer string
}

// Settings returns the current settings, filling unset values from def.
func (m *Map) Settings(def Settings) Settings {
	s := def
	if v, ok := replica.Value[float64](m.settings, keyOpacity); ok {
		s.FogOpacity = v
	}
	if v, ok := replica.Value[geom.GridSpec](m.settings, keyGrid); ok {
		s.Grid = v
	}
	if v, ok := replica.Value[bool](m.settings, keyGridEnabled); ok {
		s.GridEnabled = v
	}
	if v, ok := replica.Value[string](m.settings, keyActiveLayer); ok {
		s.ActiveLayer = v
	}
	return s
}

// SetFogOpacity stores the rendered darkness of hidden areas, clamped to [0,1].
func (m *Map) SetFogOpacity(v float64) bool {
	v = max(0, min(1, v))
	return m.transact("set opacity", func(tx *replica.Txn) error {
		return m.settings.Set(tx, keyOpacity, v)
	})
}

// SetGrid stores the grid geometry and whether grid snapping is enabled.
func (m *Map) SetGrid(g geom.GridSpec, enabled bool) bool {
	return m.transact("set grid", func(tx *replica.Txn) error {
		if err := m.settings.Set(tx, keyGrid, g); err != nil {
			return err
		}
		return m.settings.Set(tx, keyGridEnabled, enabled)
	})
}

// SetActiveLayer stores the layer new walls are drawn on.
func (m *Map) SetActiveLayer(id string) bool {
	return m.transact("set active layer", func(tx *replica.Txn) error {
		return m.settings.Set(tx, keyActiveLayer, id)
	})
}
