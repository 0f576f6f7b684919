package relay

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/cory-johannsen/battlemap/internal/replica"
)

// ErrDocumentNotFound is returned when a document has no journaled updates.
var ErrDocumentNotFound = errors.New("document not found")

// Journal is the durable, totally ordered log of updates per document.
type Journal interface {
	// Append assigns u the next sequence number of its document and stores it.
	//
	// Postcondition: the returned update carries Seq = previous head + 1.
	Append(ctx context.Context, u replica.Update) (replica.Update, error)
	// Since returns the updates of docID with Seq > seq in order.
	Since(ctx context.Context, docID string, seq uint64) ([]replica.Update, error)
	// Head returns the highest sequence number of docID, or
	// ErrDocumentNotFound.
	Head(ctx context.Context, docID string) (uint64, error)
}

// MemoryJournal keeps updates in process memory. It is safe for concurrent
// use.
type MemoryJournal struct {
	mu   sync.RWMutex
	docs map[string][]replica.Update
}

// NewMemoryJournal returns an empty journal.
func NewMemoryJournal() *MemoryJournal {
	return &MemoryJournal{docs: make(map[string][]replica.Update)}
}

// Append implements Journal.
func (j *MemoryJournal) Append(_ context.Context, u replica.Update) (replica.Update, error) {
	if err := u.Validate(); err != nil {
		return replica.Update{}, fmt.Errorf("appending update: %w", err)
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	log := j.docs[u.DocID]
	u.Seq = uint64(len(log)) + 1
	j.docs[u.DocID] = append(log, u)
	return u, nil
}

// Since implements Journal.
func (j *MemoryJournal) Since(_ context.Context, docID string, seq uint64) ([]replica.Update, error) {
	j.mu.RLock()
	defer j.mu.RUnlock()
	log := j.docs[docID]
	if seq >= uint64(len(log)) {
		return nil, nil
	}
	return append([]replica.Update(nil), log[seq:]...), nil
}

// Head implements Journal.
func (j *MemoryJournal) Head(_ context.Context, docID string) (uint64, error) {
	j.mu.RLock()
	defer j.mu.RUnlock()
	log, ok := j.docs[docID]
	if !ok {
		return 0, ErrDocumentNotFound
	}
	return uint64(len(log)), nil
}
