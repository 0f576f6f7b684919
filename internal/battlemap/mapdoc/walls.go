package mapdoc

import (
	"fmt"

	"github.com/cory-johannsen/battlemap/internal/battlemap/geom"
	"github.com/cory-johannsen/battlemap/internal/replica"
)

// Walls returns every wall in document order. The returned walls are shared
// and must not be modified; use Clone before editing.
func (m *Map) Walls() []geom.Wall { return m.walls.ToSlice() }

// Wall returns the wall with id.
func (m *Map) Wall(id string) (geom.Wall, bool) { return m.walls.Find(id) }

// FindSegment returns the wall containing the segment segID and the
// segment's index within it.
func (m *Map) FindSegment(segID string) (geom.Wall, int, bool) {
	for _, w := range m.walls.ToSlice() {
		if i := w.SegmentIndex(segID); i >= 0 {
			return w, i, true
		}
	}
	return geom.Wall{}, -1, false
}

// AddWall appends w as a new wall, minting IDs where missing.
//
// Postcondition: returns the stored wall and true, or false when w has no
// segments or a non-finite coordinate.
func (m *Map) AddWall(w geom.Wall) (geom.Wall, bool) {
	if len(w.Segments) == 0 || checkFinite(w) != nil {
		return geom.Wall{}, false
	}
	w = w.Clone()
	if w.ID == "" {
		w.ID = geom.NewID()
	}
	for i := range w.Segments {
		if w.Segments[i].ID == "" {
			w.Segments[i].ID = geom.NewID()
		}
		w.Segments[i] = w.Segments[i].Normalized()
	}
	ok := m.transact("add wall", func(tx *replica.Txn) error {
		return m.walls.Push(tx, w)
	})
	return w, ok
}

// ReplaceWall swaps the stored wall with the same ID for w. A wall with no
// segments is deleted instead.
func (m *Map) ReplaceWall(w geom.Wall) bool {
	return m.transact("replace wall", func(tx *replica.Txn) error {
		return m.replaceWall(tx, w)
	})
}

func (m *Map) replaceWall(tx *replica.Txn, w geom.Wall) error {
	i := m.walls.Index(w.ID)
	if i < 0 {
		return fmt.Errorf("wall %s: %w", w.ID, ErrRecordNotFound)
	}
	if len(w.Segments) == 0 {
		return m.walls.Delete(tx, i, 1)
	}
	if err := checkFinite(w); err != nil {
		return err
	}
	return m.walls.Replace(tx, i, w.Clone())
}

func checkFinite(w geom.Wall) error {
	for _, s := range w.Segments {
		if !s.Finite() {
			return fmt.Errorf("wall %s segment %s: non-finite coordinate", w.ID, s.ID)
		}
	}
	return nil
}

// DeleteWall removes the wall with id.
func (m *Map) DeleteWall(id string) bool {
	return m.transact("delete wall", func(tx *replica.Txn) error {
		i := m.walls.Index(id)
		if i < 0 {
			return fmt.Errorf("wall %s: %w", id, ErrRecordNotFound)
		}
		return m.walls.Delete(tx, i, 1)
	})
}

// ReplaceSegments replaces each stored segment whose ID is a key of segs with
// the mapped value, across any number of walls, in one transaction.
//
// Postcondition: returns the number of segments replaced, or 0 when any
// replacement fails. IDs that no longer exist are skipped.
func (m *Map) ReplaceSegments(segs map[string]geom.WallSegment) int {
	if len(segs) == 0 {
		return 0
	}
	n := 0
	ok := m.transact("replace segments", func(tx *replica.Txn) error {
		for _, w := range m.walls.ToSlice() {
			var next geom.Wall
			changed := false
			for i, s := range w.Segments {
				repl, ok := segs[s.ID]
				if !ok {
					continue
				}
				if !changed {
					next = w.Clone()
					changed = true
				}
				next.Segments[i] = repl.Normalized()
				n++
			}
			if changed {
				if err := m.replaceWall(tx, next); err != nil {
					return err
				}
			}
		}
		return nil
	})
	if !ok {
		return 0
	}
	return n
}

// ReplaceSegment replaces one segment, matched by seg.ID.
func (m *Map) ReplaceSegment(seg geom.WallSegment) bool {
	return m.ReplaceSegments(map[string]geom.WallSegment{seg.ID: seg}) == 1
}

// SpliceSegment replaces the segment segID with the segments in with, in
// order, keeping its position in its wall.
func (m *Map) SpliceSegment(segID string, with ...geom.WallSegment) bool {
	return m.transact("splice segment", func(tx *replica.Txn) error {
		w, i, ok := m.FindSegment(segID)
		if !ok {
			return fmt.Errorf("segment %s: %w", segID, ErrRecordNotFound)
		}
		next := w.Clone()
		segs := make([]geom.WallSegment, 0, len(next.Segments)+len(with)-1)
		segs = append(segs, next.Segments[:i]...)
		for _, s := range with {
			segs = append(segs, s.Normalized())
		}
		segs = append(segs, next.Segments[i+1:]...)
		next.Segments = segs
		return m.replaceWall(tx, next)
	})
}

// MergeSegments replaces two adjacent segments of one wall, a then b, with
// merged.
func (m *Map) MergeSegments(aID, bID string, merged geom.WallSegment) bool {
	return m.transact("merge segments", func(tx *replica.Txn) error {
		w, i, ok := m.FindSegment(aID)
		if !ok {
			return fmt.Errorf("segment %s: %w", aID, ErrRecordNotFound)
		}
		if i+1 >= len(w.Segments) || w.Segments[i+1].ID != bID {
			return fmt.Errorf("segments %s and %s are not adjacent", aID, bID)
		}
		next := w.Clone()
		next.Segments[i] = merged.Normalized()
		next.Segments = append(next.Segments[:i+1], next.Segments[i+2:]...)
		return m.replaceWall(tx, next)
	})
}

// DeleteSegments removes every segment whose ID is in ids. Walls left with no
// segments are removed.
//
// Postcondition: returns the number of segments removed, or 0 when the
// write fails.
func (m *Map) DeleteSegments(ids []string) int {
	drop := make(map[string]bool, len(ids))
	for _, id := range ids {
		drop[id] = true
	}
	n := 0
	ok := m.transact("delete segments", func(tx *replica.Txn) error {
		for _, w := range m.walls.ToSlice() {
			kept := make([]geom.WallSegment, 0, len(w.Segments))
			for _, s := range w.Segments {
				if !drop[s.ID] {
					kept = append(kept, s)
				}
			}
			if len(kept) == len(w.Segments) {
				continue
			}
			n += len(w.Segments) - len(kept)
			next := w.Clone()
			next.Segments = kept
			if err := m.replaceWall(tx, next); err != nil {
				return err
			}
		}
		return nil
	})
	if !ok {
		return 0
	}
	return n
}
