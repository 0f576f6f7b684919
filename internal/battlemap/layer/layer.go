// Package layer describes the map layer records consulted before wall and fog
// edits. Layer storage belongs to the host application; this package only
// defines the contract and a static registry.
package layer

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/cory-johannsen/battlemap/internal/battlemap/geom"
)

// ErrLayerNotEditable is returned when an edit targets a locked, hidden, or
// unknown layer.
var ErrLayerNotEditable = errors.New("layer not editable")

// Layer is one entry of the host's layer list.
type Layer struct {
	ID        string `json:"id" yaml:"id"`
	Locked    bool   `json:"locked" yaml:"locked"`
	Visible   bool   `json:"visible" yaml:"visible"`
	SortOrder int    `json:"sortOrder" yaml:"sort_order"`
}

// EditableWalls returns the walls whose layer passes CanEdit, in order. A nil
// registry permits every wall.
func EditableWalls(r Registry, walls []geom.Wall) []geom.Wall {
	if r == nil {
		return walls
	}
	out := make([]geom.Wall, 0, len(walls))
	for _, w := range walls {
		if CanEdit(r, w.Layer) == nil {
			out = append(out, w)
		}
	}
	return out
}

// Registry looks up layers by ID.
type Registry interface {
	Layer(id string) (Layer, bool)
}

// CanEdit checks that the layer exists, is visible, and is unlocked.
//
// Postcondition: returns nil when editing is permitted, or an error wrapping
// ErrLayerNotEditable.
func CanEdit(r Registry, id string) error {
	if r == nil {
		return nil
	}
	l, ok := r.Layer(id)
	if !ok {
		return fmt.Errorf("layer %q not found: %w", id, ErrLayerNotEditable)
	}
	if l.Locked {
		return fmt.Errorf("layer %q is locked: %w", id, ErrLayerNotEditable)
	}
	if !l.Visible {
		return fmt.Errorf("layer %q is hidden: %w", id, ErrLayerNotEditable)
	}
	return nil
}

// Static is an in-memory Registry safe for concurrent use.
type Static struct {
	mu     sync.RWMutex
	layers map[string]Layer
}

// NewStatic creates a Static registry holding the given layers.
func NewStatic(layers ...Layer) *Static {
	s := &Static{layers: make(map[string]Layer, len(layers))}
	for _, l := range layers {
		s.layers[l.ID] = l
	}
	return s
}

// Layer implements Registry.
func (s *Static) Layer(id string) (Layer, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	l, ok := s.layers[id]
	return l, ok
}

// Put inserts or replaces a layer.
func (s *Static) Put(l Layer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.layers[l.ID] = l
}

// Ordered returns all layers sorted by SortOrder, then ID.
func (s *Static) Ordered() []Layer {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Layer, 0, len(s.layers))
	for _, l := range s.layers {
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].SortOrder != out[j].SortOrder {
			return out[i].SortOrder < out[j].SortOrder
		}
		return out[i].ID < out[j].ID
	})
	return out
}
