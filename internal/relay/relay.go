// Package relay sequences, journals and fans out replica updates. Every
// update of a document is given the next sequence number, stored in a
// Journal and delivered to every subscriber of the document, the author
// included, so all replicas observe one total order.
package relay

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/cory-johannsen/battlemap/internal/replica"
)

// ErrSlowSubscriber closes a subscription whose buffer overflowed.
var ErrSlowSubscriber = errors.New("subscriber too slow")

// Subscription receives the live updates of one document.
type Subscription struct {
	// C delivers updates in sequence order. It is closed when the
	// subscription is cancelled or dropped.
	C <-chan replica.Update

	c      chan replica.Update
	hub    *hub
	once   sync.Once
	reason error
}

// Err reports why C was closed: nil after Cancel, ErrSlowSubscriber after an
// overflow.
func (s *Subscription) Err() error {
	s.hub.mu.Lock()
	defer s.hub.mu.Unlock()
	return s.reason
}

// Cancel unsubscribes. It is safe to call more than once.
func (s *Subscription) Cancel() {
	s.hub.mu.Lock()
	defer s.hub.mu.Unlock()
	s.hub.drop(s, nil)
}

type hub struct {
	mu   sync.Mutex
	subs map[*Subscription]struct{}
}

// drop must be called with h.mu held.
func (h *hub) drop(s *Subscription, reason error) {
	s.once.Do(func() {
		delete(h.subs, s)
		s.reason = reason
		close(s.c)
	})
}

// Server is the transport-independent relay core. It is safe for concurrent
// use.
type Server struct {
	journal Journal
	logger  *zap.Logger
	buffer  int

	mu   sync.Mutex
	hubs map[string]*hub
}

// NewServer returns a relay storing updates in journal. buffer is the number
// of updates queued per subscriber.
//
// Precondition: journal must be non-nil; buffer > 0.
func NewServer(journal Journal, buffer int, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if buffer < 1 {
		buffer = 1
	}
	return &Server{journal: journal, logger: logger, buffer: buffer, hubs: make(map[string]*hub)}
}

func (s *Server) hub(docID string) *hub {
	s.mu.Lock()
	defer s.mu.Unlock()
	h, ok := s.hubs[docID]
	if !ok {
		h = &hub{subs: make(map[*Subscription]struct{})}
		s.hubs[docID] = h
	}
	return h
}

// Join subscribes to docID and returns the journaled updates after since.
// No update is lost or repeated between the backlog and the subscription.
//
// Postcondition: on success the caller must Cancel the subscription.
func (s *Server) Join(ctx context.Context, docID string, since uint64) ([]replica.Update, *Subscription, error) {
	if docID == "" {
		return nil, nil, errors.New("join requires a document id")
	}
	h := s.hub(docID)
	h.mu.Lock()
	defer h.mu.Unlock()
	backlog, err := s.journal.Since(ctx, docID, since)
	if err != nil {
		return nil, nil, fmt.Errorf("reading journal for %s: %w", docID, err)
	}
	c := make(chan replica.Update, s.buffer)
	sub := &Subscription{C: c, c: c, hub: h}
	h.subs[sub] = struct{}{}
	s.logger.Debug("subscriber joined", zap.String("doc", docID),
		zap.Uint64("since", since), zap.Int("backlog", len(backlog)), zap.Int("subscribers", len(h.subs)))
	return backlog, sub, nil
}

// Publish sequences u, journals it and delivers it to every subscriber of
// its document. Subscribers whose buffer is full are dropped with
// ErrSlowSubscriber.
//
// Postcondition: returns the update as journaled, with Seq assigned.
func (s *Server) Publish(ctx context.Context, u replica.Update) (replica.Update, error) {
	if err := u.Validate(); err != nil {
		return replica.Update{}, fmt.Errorf("rejecting update: %w", err)
	}
	h := s.hub(u.DocID)
	h.mu.Lock()
	defer h.mu.Unlock()
	stored, err := s.journal.Append(ctx, u)
	if err != nil {
		return replica.Update{}, fmt.Errorf("journaling update: %w", err)
	}
	for sub := range h.subs {
		select {
		case sub.c <- stored:
		default:
			s.logger.Warn("dropping slow subscriber", zap.String("doc", u.DocID), zap.Uint64("seq", stored.Seq))
			h.drop(sub, ErrSlowSubscriber)
		}
	}
	return stored, nil
}

// Subscribers returns the number of live subscriptions to docID.
func (s *Server) Subscribers(docID string) int {
	h := s.hub(docID)
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}
