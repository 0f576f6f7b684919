package replica

import (
	"bytes"
	"fmt"
	"slices"

	"go.uber.org/zap"
)

// Option configures a Doc.
type Option func(*Doc)

// WithLogger sets the logger used for diagnostics.
func WithLogger(l *zap.Logger) Option {
	return func(d *Doc) { d.logger = l }
}

// Doc is a replicated document.
//
// The visible state is the confirmed state (every sequenced update received
// from the relay, in order) with this replica's own unacknowledged updates
// replayed on top. Because every replica applies the same sequenced updates in
// the same order, confirmed states converge.
type Doc struct {
	id       string
	clientID string
	logger   *zap.Logger

	clock     uint64
	lastSeq   uint64
	confirmed *state
	view      *state
	pending   []Update

	txn    *Txn
	outbox func(Update)

	observers map[string][]observer
	nextObs   int
}

type observer struct {
	id int
	fn func()
}

// NewDoc creates an empty document.
//
// Precondition: docID and clientID must be non-empty.
// Postcondition: returns a Doc with no containers and no outbox; until Attach
// is called, local transactions are confirmed immediately.
func NewDoc(docID, clientID string, opts ...Option) *Doc {
	d := &Doc{
		id:        docID,
		clientID:  clientID,
		logger:    zap.NewNop(),
		confirmed: newState(),
		view:      newState(),
		observers: make(map[string][]observer),
	}
	for _, o := range opts {
		o(d)
	}
	return d
}

// ID returns the document id.
func (d *Doc) ID() string { return d.id }

// ClientID returns this replica's client id.
func (d *Doc) ClientID() string { return d.clientID }

// Pending returns the number of local updates not yet echoed by the relay.
func (d *Doc) Pending() int { return len(d.pending) }

// LastSeq returns the highest relay sequence number applied.
func (d *Doc) LastSeq() uint64 { return d.lastSeq }

// Attach routes committed local updates to send. Updates still pending from
// an earlier attachment are re-sent.
//
// Precondition: send must not call back into the Doc.
func (d *Doc) Attach(send func(Update)) {
	d.outbox = send
	if send == nil {
		return
	}
	for _, u := range d.pending {
		send(u)
	}
}

// Transact runs fn as one atomic transaction. Ops recorded through tx are
// visible to reads inside fn immediately; observers of every touched
// container fire once, after fn returns. Nested calls join the outer
// transaction.
//
// Postcondition: returns the committed update, or an update with no ops when
// fn recorded nothing.
func (d *Doc) Transact(fn func(tx *Txn)) Update {
	if d.txn != nil {
		fn(d.txn)
		return Update{DocID: d.id, ClientID: d.clientID}
	}
	tx := &Txn{doc: d}
	d.txn = tx
	func() {
		defer func() { d.txn = nil }()
		fn(tx)
	}()
	if len(tx.ops) == 0 {
		return Update{DocID: d.id, ClientID: d.clientID}
	}
	d.clock++
	u := Update{DocID: d.id, ClientID: d.clientID, Clock: d.clock, Ops: tx.ops}
	if d.outbox == nil {
		d.confirmed.applyUpdate(u)
	} else {
		d.pending = append(d.pending, u)
		d.outbox(u)
	}
	d.notify(u.Containers())
	return u
}

// TryTransact is Transact for a block that can fail. When fn returns an
// error, every op fn recorded is discarded: the view returns to its state
// before fn and nothing of fn's is committed or sent. Inside an enclosing
// transaction only fn's own ops are rolled back.
func (d *Doc) TryTransact(fn func(tx *Txn) error) (Update, error) {
	var err error
	u := d.Transact(func(tx *Txn) {
		mark := len(tx.ops)
		if err = fn(tx); err != nil {
			tx.rollback(mark)
		}
	})
	return u, err
}

// ApplyRemote integrates a sequenced update from the relay. Updates whose
// sequence number was already applied are ignored; this replica's own
// updates are removed from the pending queue.
//
// Postcondition: returns an error only when u fails validation or addresses
// another document; the document is unchanged in that case.
func (d *Doc) ApplyRemote(u Update) error {
	if u.DocID != d.id {
		return fmt.Errorf("applying update for doc %q to doc %q", u.DocID, d.id)
	}
	if err := u.Validate(); err != nil {
		return fmt.Errorf("applying remote update: %w", err)
	}
	if u.Seq != 0 {
		if u.Seq <= d.lastSeq {
			d.logger.Debug("skipping replayed update", zap.String("doc", d.id), zap.Uint64("seq", u.Seq))
			return nil
		}
		d.lastSeq = u.Seq
	}
	d.confirmed.applyUpdate(u)

	touched := u.Containers()
	if u.ClientID == d.clientID {
		d.pending = slices.DeleteFunc(d.pending, func(p Update) bool { return p.Clock <= u.Clock })
	}
	for _, p := range d.pending {
		touched = append(touched, p.Containers()...)
	}
	d.rebase()
	d.notify(touched)
	return nil
}

// rebase rebuilds the view from the confirmed state and pending updates,
// reusing decoded records whose payload is unchanged.
func (d *Doc) rebase() {
	old := d.view
	v := d.confirmed.clone()
	for _, p := range d.pending {
		v.applyUpdate(p)
	}
	for name, items := range v.seqs {
		prev := make(map[string]item, len(old.seqs[name]))
		for _, it := range old.seqs[name] {
			if it.rec != nil {
				prev[it.id] = it
			}
		}
		for i, it := range items {
			if p, ok := prev[it.id]; ok && bytes.Equal(p.raw, it.raw) {
				items[i].rec = p.rec
			}
		}
	}
	d.view = v
}

// Observe registers fn to run after any transaction or remote update that
// touches container. The returned func unregisters it.
func (d *Doc) Observe(container string, fn func()) (cancel func()) {
	d.nextObs++
	id := d.nextObs
	d.observers[container] = append(d.observers[container], observer{id: id, fn: fn})
	return func() {
		d.observers[container] = slices.DeleteFunc(d.observers[container], func(o observer) bool { return o.id == id })
	}
}

func (d *Doc) notify(containers []string) {
	slices.Sort(containers)
	containers = slices.Compact(containers)
	for _, c := range containers {
		for _, o := range slices.Clone(d.observers[c]) {
			o.fn()
		}
	}
}

// Txn records the ops of one transaction.
type Txn struct {
	doc *Doc
	ops []Op
}

func (tx *Txn) record(op Op) {
	tx.ops = append(tx.ops, op)
	tx.doc.view.apply(op, nil)
}

// rollback drops the ops recorded after mark and rebuilds the view from the
// committed state plus the ops that remain.
func (tx *Txn) rollback(mark int) {
	if mark >= len(tx.ops) {
		return
	}
	tx.ops = tx.ops[:mark]
	tx.doc.rebase()
	for _, op := range tx.ops {
		tx.doc.view.apply(op, nil)
	}
}

// Doc returns the document the transaction belongs to.
func (tx *Txn) Doc() *Doc { return tx.doc }
