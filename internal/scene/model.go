// Package scene reads and writes battlemap scene files: YAML documents holding
// a map's size, grid, layers, walls and fog log, used to seed documents and by
// the battlemap command.
package scene

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/cory-johannsen/battlemap/internal/battlemap/fog"
	"github.com/cory-johannsen/battlemap/internal/battlemap/geom"
	"github.com/cory-johannsen/battlemap/internal/battlemap/layer"
	"github.com/cory-johannsen/battlemap/internal/battlemap/mapdoc"
	"github.com/cory-johannsen/battlemap/internal/replica"
)

// Scene is a complete battlemap.
type Scene struct {
	ID          string
	Name        string
	Width       float64
	Height      float64
	Grid        geom.GridSpec
	GridEnabled bool
	FogOpacity  float64
	Layers      []layer.Layer
	Walls       []geom.Wall
	Fog         []fog.Shape
	Rooms       []fog.Room
}

// Bounds returns the map rectangle.
func (s *Scene) Bounds() geom.Rect {
	return geom.Rect{Max: geom.Pt(s.Width, s.Height)}
}

// Registry returns the scene's layers. A scene without layers gets one
// editable layer per distinct wall layer.
func (s *Scene) Registry() *layer.Static {
	if len(s.Layers) > 0 {
		return layer.NewStatic(s.Layers...)
	}
	reg := layer.NewStatic()
	for _, w := range s.Walls {
		if _, ok := reg.Layer(w.Layer); !ok {
			reg.Put(layer.Layer{ID: w.Layer, Visible: true})
		}
	}
	return reg
}

// Settings returns the map settings the scene implies, with activeLayer as
// the layer new edits land on.
func (s *Scene) Settings(activeLayer string) mapdoc.Settings {
	return mapdoc.Settings{
		FogOpacity:  s.FogOpacity,
		Grid:        s.Grid,
		GridEnabled: s.GridEnabled,
		ActiveLayer: activeLayer,
	}
}

// Validate checks all scene invariants.
//
// Postcondition: Returns nil if the scene is valid, or an error describing all violations.
func (s *Scene) Validate() error {
	var errs []string
	if s.ID == "" {
		errs = append(errs, "scene id must not be empty")
	}
	if s.Width <= 0 || s.Height <= 0 {
		errs = append(errs, fmt.Sprintf("scene size must be positive, got %gx%g", s.Width, s.Height))
	}
	if s.FogOpacity < 0 || s.FogOpacity > 1 {
		errs = append(errs, fmt.Sprintf("fog_opacity must be within [0,1], got %g", s.FogOpacity))
	}
	switch s.Grid.Type {
	case "", geom.GridNone, geom.GridSquare, geom.GridHexPointy, geom.GridHexFlat:
	default:
		errs = append(errs, fmt.Sprintf("unknown grid type %q", s.Grid.Type))
	}
	if s.GridEnabled && s.Grid.CellSize <= 0 {
		errs = append(errs, "grid cell_size must be positive when the grid is enabled")
	}

	layers := make(map[string]bool, len(s.Layers))
	for _, l := range s.Layers {
		if layers[l.ID] {
			errs = append(errs, fmt.Sprintf("duplicate layer %q", l.ID))
		}
		layers[l.ID] = true
	}
	walls := make(map[string]bool, len(s.Walls))
	for i, w := range s.Walls {
		if walls[w.ID] {
			errs = append(errs, fmt.Sprintf("duplicate wall id %q", w.ID))
		}
		walls[w.ID] = true
		if w.Layer == "" {
			errs = append(errs, fmt.Sprintf("wall %d has no layer", i))
		} else if len(s.Layers) > 0 && !layers[w.Layer] {
			errs = append(errs, fmt.Sprintf("wall %d references unknown layer %q", i, w.Layer))
		}
		if len(w.Segments) == 0 {
			errs = append(errs, fmt.Sprintf("wall %d has no segments", i))
		}
		for _, seg := range w.Segments {
			if !seg.Finite() {
				errs = append(errs, fmt.Sprintf("wall %d segment %q has a non-finite coordinate", i, seg.ID))
			}
		}
	}
	shapes := make(map[string]bool, len(s.Fog))
	for _, sh := range s.Fog {
		if err := sh.Validate(); err != nil {
			errs = append(errs, err.Error())
		}
		if shapes[sh.ID] {
			errs = append(errs, fmt.Sprintf("duplicate fog shape id %q", sh.ID))
		}
		shapes[sh.ID] = true
	}
	for _, r := range s.Rooms {
		if r.ID == "" {
			errs = append(errs, "room id must not be empty")
		}
		for _, id := range r.ShapeIDs {
			if !shapes[id] {
				errs = append(errs, fmt.Sprintf("room %q references unknown fog shape %q", r.ID, id))
			}
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid scene: %s", strings.Join(errs, "; "))
	}
	return nil
}

// Open writes the scene into doc under the scene's id as one transaction
// and returns the adapter over it.
//
// Precondition: s must be valid.
func (s *Scene) Open(doc *replica.Doc, logger *zap.Logger) *mapdoc.Map {
	m := mapdoc.New(doc, s.ID, logger)
	doc.Transact(func(*replica.Txn) {
		for _, w := range s.Walls {
			m.AddWall(w)
		}
		if len(s.Fog) > 0 {
			m.CommitFog(s.Fog, nil)
		}
		for _, r := range s.Rooms {
			m.CommitFog(nil, &r)
		}
		m.SetFogOpacity(s.FogOpacity)
		m.SetGrid(s.Grid, s.GridEnabled)
	})
	return m
}

// Capture returns a copy of s whose walls, fog log, rooms and settings are
// read from m.
func (s *Scene) Capture(m *mapdoc.Map) *Scene {
	out := *s
	st := m.Settings(s.Settings(""))
	out.FogOpacity = st.FogOpacity
	out.Grid = st.Grid
	out.GridEnabled = st.GridEnabled
	out.Walls = m.Walls()
	out.Fog = m.FogShapes()
	out.Rooms = m.Rooms()
	return &out
}
