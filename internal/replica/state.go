package replica

import (
	"encoding/json"
	"slices"
)

type item struct {
	id  string
	raw json.RawMessage
	// rec caches the decoded record; it is shared with readers and must be
	// treated as immutable.
	rec any
}

type state struct {
	seqs map[string][]item
	maps map[string]map[string]json.RawMessage
}

func newState() *state {
	return &state{
		seqs: make(map[string][]item),
		maps: make(map[string]map[string]json.RawMessage),
	}
}

// clone copies container structure; raw payloads and cached records are
// immutable and therefore shared.
func (s *state) clone() *state {
	c := newState()
	for k, v := range s.seqs {
		c.seqs[k] = slices.Clone(v)
	}
	for k, v := range s.maps {
		m := make(map[string]json.RawMessage, len(v))
		for mk, mv := range v {
			m[mk] = mv
		}
		c.maps[k] = m
	}
	return c
}

func (s *state) index(container, id string) int {
	for i, it := range s.seqs[container] {
		if it.id == id {
			return i
		}
	}
	return -1
}

// apply executes op. Inserting an ID that already exists replaces it;
// deleting a missing ID is a no-op; a missing anchor appends at the end.
func (s *state) apply(op Op, rec any) {
	switch op.Kind {
	case OpInsert:
		items := s.seqs[op.Container]
		if i := s.index(op.Container, op.ID); i >= 0 {
			items = slices.Delete(items, i, i+1)
		}
		pos := 0
		if op.After != "" {
			pos = len(items)
			for i, it := range items {
				if it.id == op.After {
					pos = i + 1
					break
				}
			}
		}
		s.seqs[op.Container] = slices.Insert(items, pos, item{id: op.ID, raw: op.Value, rec: rec})
	case OpDelete:
		if i := s.index(op.Container, op.ID); i >= 0 {
			s.seqs[op.Container] = slices.Delete(s.seqs[op.Container], i, i+1)
		}
	case OpSet:
		m := s.maps[op.Container]
		if m == nil {
			m = make(map[string]json.RawMessage)
			s.maps[op.Container] = m
		}
		m[op.Key] = op.Value
	case OpUnset:
		delete(s.maps[op.Container], op.Key)
	}
}

func (s *state) applyUpdate(u Update) {
	for _, op := range u.Ops {
		s.apply(op, nil)
	}
}
