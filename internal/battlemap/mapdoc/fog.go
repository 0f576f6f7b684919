package mapdoc

import (
	"fmt"
	"slices"

	"github.com/cory-johannsen/battlemap/internal/battlemap/fog"
	"github.com/cory-johannsen/battlemap/internal/replica"
)

// FogShapes returns the fog log in order.
func (m *Map) FogShapes() []fog.Shape { return m.shapes.ToSlice() }

// Rooms returns every fog room.
func (m *Map) Rooms() []fog.Room { return m.rooms.ToSlice() }

// Room returns the room with id.
func (m *Map) Room(id string) (fog.Room, bool) { return m.rooms.Find(id) }

// AppendFogShape appends s to the fog log.
func (m *Map) AppendFogShape(s fog.Shape) bool {
	return m.CommitFog([]fog.Shape{s}, nil)
}

// CommitFog appends shapes to the fog log and, when room is non-nil, inserts
// or replaces it, in one transaction. Invalid shapes reject the whole commit.
func (m *Map) CommitFog(shapes []fog.Shape, room *fog.Room) bool {
	if len(shapes) == 0 && room == nil {
		return false
	}
	for _, s := range shapes {
		if err := s.Validate(); err != nil {
			m.logger.Debug("fog shape rejected")
			return false
		}
	}
	return m.transact("commit fog", func(tx *replica.Txn) error {
		for _, s := range shapes {
			s.Data = slices.Clone(s.Data)
			if err := m.shapes.Push(tx, s); err != nil {
				return err
			}
		}
		if room == nil {
			return nil
		}
		r := *room
		r.ShapeIDs = slices.Clone(r.ShapeIDs)
		if i := m.rooms.Index(r.ID); i >= 0 {
			return m.rooms.Replace(tx, i, r)
		}
		return m.rooms.Push(tx, r)
	})
}

// DeleteRoom removes the room with id. Its shapes stay in the fog log.
func (m *Map) DeleteRoom(id string) bool {
	return m.transact("delete room", func(tx *replica.Txn) error {
		i := m.rooms.Index(id)
		if i < 0 {
			return fmt.Errorf("room %s: %w", id, ErrRecordNotFound)
		}
		return m.rooms.Delete(tx, i, 1)
	})
}

// ClearFog empties the fog log and rooms, returning the map to fully hidden.
func (m *Map) ClearFog() bool {
	return m.transact("clear fog", func(tx *replica.Txn) error {
		if err := m.shapes.Clear(tx); err != nil {
			return err
		}
		return m.rooms.Clear(tx)
	})
}
