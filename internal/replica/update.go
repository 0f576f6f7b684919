// Package replica is a small operation-based replicated document: ordered
// sequences of records and key/value maps, mutated in atomic transactions and
// observed through change callbacks.
//
// A Doc is owned by a single goroutine. Remote updates are delivered to the
// owner (for example from a relay.Client channel) and applied with
// ApplyRemote; the Doc never spawns goroutines of its own.
package replica

import (
	"encoding/json"
	"fmt"
)

// Record is an element of a Sequence. IDs must be unique within a sequence.
type Record interface {
	RecordID() string
}

// OpKind identifies a primitive document operation.
type OpKind string

// Operation kinds.
const (
	OpInsert OpKind = "insert"
	OpDelete OpKind = "delete"
	OpSet    OpKind = "set"
	OpUnset  OpKind = "unset"
)

// Op is one primitive change to a single container.
//
// Sequence ops are anchored by record ID rather than index: an insert places
// record ID directly after the record After ("" meaning the head), replacing
// any existing record with the same ID; a delete removes ID if present. This
// makes a replayed update leave the document unchanged.
type Op struct {
	Container string          `json:"container"`
	Kind      OpKind          `json:"kind"`
	ID        string          `json:"id,omitempty"`
	After     string          `json:"after,omitempty"`
	Key       string          `json:"key,omitempty"`
	Value     json.RawMessage `json:"value,omitempty"`
}

// Update is the unit of replication: the ops of one committed transaction.
type Update struct {
	// DocID addresses the document.
	DocID string `json:"doc"`
	// ClientID identifies the authoring replica.
	ClientID string `json:"client"`
	// Clock is the author's local transaction counter.
	Clock uint64 `json:"clock"`
	// Seq is the total-order position assigned by a relay; 0 when unsequenced.
	Seq uint64 `json:"seq,omitempty"`
	// Ops are applied in order.
	Ops []Op `json:"ops"`
}

// Containers returns the distinct container names touched by u.
func (u Update) Containers() []string {
	seen := make(map[string]bool, len(u.Ops))
	var out []string
	for _, op := range u.Ops {
		if !seen[op.Container] {
			seen[op.Container] = true
			out = append(out, op.Container)
		}
	}
	return out
}

// Validate checks the structural invariants of u.
//
// Postcondition: returns nil if u can be applied, or an error naming the
// first violation.
func (u Update) Validate() error {
	if u.DocID == "" {
		return fmt.Errorf("update has empty doc id")
	}
	if u.ClientID == "" {
		return fmt.Errorf("update for %q has empty client id", u.DocID)
	}
	for i, op := range u.Ops {
		if op.Container == "" {
			return fmt.Errorf("op %d: empty container", i)
		}
		switch op.Kind {
		case OpInsert:
			if op.ID == "" || len(op.Value) == 0 {
				return fmt.Errorf("op %d: insert requires id and value", i)
			}
		case OpDelete:
			if op.ID == "" {
				return fmt.Errorf("op %d: delete requires id", i)
			}
		case OpSet:
			if op.Key == "" || len(op.Value) == 0 {
				return fmt.Errorf("op %d: set requires key and value", i)
			}
		case OpUnset:
			if op.Key == "" {
				return fmt.Errorf("op %d: unset requires key", i)
			}
		default:
			return fmt.Errorf("op %d: unknown kind %q", i, op.Kind)
		}
	}
	return nil
}
