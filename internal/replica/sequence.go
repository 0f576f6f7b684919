package replica

import (
	"encoding/json"
	"fmt"

	"go.uber.org/zap"
)

// Sequence is a typed handle on an ordered container of records. Handles are
// cheap; any number may address the same container, but all must use the
// same record type.
//
// Records returned by reads are shared with the document and must not be
// mutated. Change a record by building a new value and calling Replace.
type Sequence[T Record] struct {
	doc  *Doc
	name string
}

// NewSequence returns a handle on the sequence container name in d.
func NewSequence[T Record](d *Doc, name string) *Sequence[T] {
	return &Sequence[T]{doc: d, name: name}
}

// Name returns the container name.
func (s *Sequence[T]) Name() string { return s.name }

// Len returns the number of records.
func (s *Sequence[T]) Len() int { return len(s.doc.view.seqs[s.name]) }

// Get returns the record at index i.
//
// Postcondition: ok is false when i is out of range or the stored payload
// cannot be decoded as T.
func (s *Sequence[T]) Get(i int) (rec T, ok bool) {
	items := s.doc.view.seqs[s.name]
	if i < 0 || i >= len(items) {
		return rec, false
	}
	return s.decode(items, i)
}

// Index returns the position of the record with id, or -1.
func (s *Sequence[T]) Index(id string) int {
	return s.doc.view.index(s.name, id)
}

// Find returns the record with id.
func (s *Sequence[T]) Find(id string) (T, bool) {
	return s.Get(s.Index(id))
}

// ToSlice returns all decodable records in order.
func (s *Sequence[T]) ToSlice() []T {
	items := s.doc.view.seqs[s.name]
	out := make([]T, 0, len(items))
	for i := range items {
		if rec, ok := s.decode(items, i); ok {
			out = append(out, rec)
		}
	}
	return out
}

func (s *Sequence[T]) decode(items []item, i int) (T, bool) {
	if rec, ok := items[i].rec.(T); ok {
		return rec, true
	}
	var rec T
	if err := json.Unmarshal(items[i].raw, &rec); err != nil {
		s.doc.logger.Warn("undecodable record",
			zap.String("container", s.name),
			zap.String("id", items[i].id),
			zap.Error(err),
		)
		return rec, false
	}
	items[i].rec = rec
	return rec, true
}

// Push appends recs at the end.
func (s *Sequence[T]) Push(tx *Txn, recs ...T) error {
	return s.Insert(tx, s.Len(), recs...)
}

// Insert places recs, in order, before the record currently at index i.
// Every record is encoded before any op is recorded, so a record that cannot
// be encoded leaves the transaction untouched.
//
// Precondition: 0 <= i <= Len(); every record has a non-empty id.
// Postcondition: recs occupy positions i..i+len(recs)-1 unless one of their
// ids already existed, in which case that record is moved.
func (s *Sequence[T]) Insert(tx *Txn, i int, recs ...T) error {
	if i < 0 || i > s.Len() {
		return fmt.Errorf("inserting into %s at %d: index out of range [0,%d]", s.name, i, s.Len())
	}
	ops, err := s.insertOps(i, recs)
	if err != nil {
		return err
	}
	for _, op := range ops {
		tx.record(op)
	}
	return nil
}

// insertOps encodes recs as inserts anchored after the record at i-1.
func (s *Sequence[T]) insertOps(i int, recs []T) ([]Op, error) {
	after := ""
	if i > 0 {
		after = s.doc.view.seqs[s.name][i-1].id
	}
	ops := make([]Op, 0, len(recs))
	for _, rec := range recs {
		id := rec.RecordID()
		if id == "" {
			return nil, fmt.Errorf("inserting into %s: record has empty id", s.name)
		}
		raw, err := json.Marshal(rec)
		if err != nil {
			return nil, fmt.Errorf("encoding record %s: %w", id, err)
		}
		ops = append(ops, Op{Container: s.name, Kind: OpInsert, ID: id, After: after, Value: raw})
		after = id
	}
	return ops, nil
}

// Delete removes n records starting at index i.
//
// Precondition: 0 <= i and i+n <= Len().
func (s *Sequence[T]) Delete(tx *Txn, i, n int) error {
	items := s.doc.view.seqs[s.name]
	if i < 0 || n < 0 || i+n > len(items) {
		return fmt.Errorf("deleting %d from %s at %d: range out of bounds [0,%d]", n, s.name, i, len(items))
	}
	ids := make([]string, n)
	for k := range n {
		ids[k] = items[i+k].id
	}
	for _, id := range ids {
		tx.record(Op{Container: s.name, Kind: OpDelete, ID: id})
	}
	return nil
}

// DeleteID removes the record with id if present.
func (s *Sequence[T]) DeleteID(tx *Txn, id string) {
	tx.record(Op{Container: s.name, Kind: OpDelete, ID: id})
}

// Replace swaps the record at index i for rec, keeping its position. rec is
// encoded first; when that fails nothing is recorded.
func (s *Sequence[T]) Replace(tx *Txn, i int, rec T) error {
	items := s.doc.view.seqs[s.name]
	if i < 0 || i >= len(items) {
		return fmt.Errorf("replacing in %s at %d: index out of range [0,%d)", s.name, i, len(items))
	}
	ins, err := s.insertOps(i, []T{rec})
	if err != nil {
		return err
	}
	tx.record(Op{Container: s.name, Kind: OpDelete, ID: items[i].id})
	for _, op := range ins {
		tx.record(op)
	}
	return nil
}

// Clear removes every record.
func (s *Sequence[T]) Clear(tx *Txn) error {
	return s.Delete(tx, 0, s.Len())
}

// Observe registers fn for changes to this sequence.
func (s *Sequence[T]) Observe(fn func()) (cancel func()) {
	return s.doc.Observe(s.name, fn)
}
