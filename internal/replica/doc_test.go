package replica

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

type note struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

func (n note) RecordID() string { return n.ID }

func texts(s *Sequence[note]) []string {
	var out []string
	for _, n := range s.ToSlice() {
		out = append(out, n.Text)
	}
	return out
}

func TestSequence_PushInsertDeleteReplace(t *testing.T) {
	d := NewDoc("doc", "a")
	s := NewSequence[note](d, "notes")

	d.Transact(func(tx *Txn) {
		require.NoError(t, s.Push(tx, note{"1", "one"}, note{"3", "three"}))
		require.NoError(t, s.Insert(tx, 1, note{"2", "two"}))
	})
	assert.Equal(t, []string{"one", "two", "three"}, texts(s))

	d.Transact(func(tx *Txn) {
		require.NoError(t, s.Replace(tx, 1, note{"2", "TWO"}))
		require.NoError(t, s.Delete(tx, 0, 1))
	})
	assert.Equal(t, []string{"TWO", "three"}, texts(s))
	assert.Equal(t, 1, s.Index("3"))

	n, ok := s.Find("2")
	require.True(t, ok)
	assert.Equal(t, "TWO", n.Text)
}

func TestSequence_RejectsOutOfRange(t *testing.T) {
	d := NewDoc("doc", "a")
	s := NewSequence[note](d, "notes")
	d.Transact(func(tx *Txn) {
		assert.Error(t, s.Insert(tx, 2, note{"1", "x"}))
		assert.Error(t, s.Delete(tx, 0, 1))
		assert.Error(t, s.Push(tx, note{"", "no id"}))
	})
	assert.Equal(t, 0, s.Len())
}

func TestTransact_ReadsSeeUncommittedOps(t *testing.T) {
	d := NewDoc("doc", "a")
	s := NewSequence[note](d, "notes")
	d.Transact(func(tx *Txn) {
		require.NoError(t, s.Push(tx, note{"1", "one"}))
		assert.Equal(t, 1, s.Len())
	})
}

func TestTransact_NotifiesOncePerContainerAfterCommit(t *testing.T) {
	d := NewDoc("doc", "a")
	s := NewSequence[note](d, "notes")
	m := NewMap(d, "settings")
	var seqCalls, mapCalls int
	var lenAtNotify int
	s.Observe(func() { seqCalls++; lenAtNotify = s.Len() })
	cancel := m.Observe(func() { mapCalls++ })

	d.Transact(func(tx *Txn) {
		require.NoError(t, s.Push(tx, note{"1", "one"}))
		require.NoError(t, s.Push(tx, note{"2", "two"}))
		assert.Equal(t, 0, seqCalls)
		require.NoError(t, m.Set(tx, "k", 1))
	})
	assert.Equal(t, 1, seqCalls)
	assert.Equal(t, 2, lenAtNotify)
	assert.Equal(t, 1, mapCalls)

	cancel()
	d.Transact(func(tx *Txn) { require.NoError(t, m.Set(tx, "k", 2)) })
	assert.Equal(t, 1, mapCalls)
}

func TestTransact_EmptyProducesNoUpdate(t *testing.T) {
	d := NewDoc("doc", "a")
	var sent int
	d.Attach(func(Update) { sent++ })
	u := d.Transact(func(*Txn) {})
	assert.Empty(t, u.Ops)
	assert.Equal(t, 0, sent)
}

type reading struct {
	ID    string  `json:"id"`
	Value float64 `json:"value"`
}

func (r reading) RecordID() string { return r.ID }

func TestSequence_ReplaceWithUnencodableRecordRecordsNothing(t *testing.T) {
	d := NewDoc("doc", "a")
	s := NewSequence[reading](d, "readings")
	d.Transact(func(tx *Txn) { require.NoError(t, s.Push(tx, reading{"r", 1})) })

	u := d.Transact(func(tx *Txn) {
		assert.Error(t, s.Replace(tx, 0, reading{"r", math.NaN()}))
		assert.Error(t, s.Replace(tx, 1, reading{"r", 2}))
		assert.Error(t, s.Insert(tx, 0, reading{"q", 3}, reading{"p", math.Inf(1)}))
	})
	assert.Empty(t, u.Ops)
	require.Equal(t, 1, s.Len())
	got, ok := s.Get(0)
	require.True(t, ok)
	assert.Equal(t, reading{"r", 1}, got)
}

func TestTryTransact_ErrorDiscardsOps(t *testing.T) {
	d := NewDoc("doc", "a")
	s := NewSequence[note](d, "notes")
	var sent, calls int
	d.Attach(func(Update) { sent++ })
	s.Observe(func() { calls++ })

	boom := errors.New("boom")
	u, err := d.TryTransact(func(tx *Txn) error {
		require.NoError(t, s.Push(tx, note{"1", "one"}))
		assert.Equal(t, 1, s.Len())
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Empty(t, u.Ops)
	assert.Equal(t, 0, s.Len())
	assert.Equal(t, 0, sent)
	assert.Equal(t, 0, calls)
	assert.Equal(t, 0, d.Pending())

	_, err = d.TryTransact(func(tx *Txn) error { return s.Push(tx, note{"2", "two"}) })
	require.NoError(t, err)
	assert.Equal(t, []string{"two"}, texts(s))
	assert.Equal(t, 1, sent)
}

func TestTryTransact_NestedRollsBackOnlyItsOwnOps(t *testing.T) {
	d := NewDoc("doc", "a")
	s := NewSequence[note](d, "notes")
	d.Transact(func(tx *Txn) { require.NoError(t, s.Push(tx, note{"0", "zero"})) })

	u := d.Transact(func(tx *Txn) {
		require.NoError(t, s.Push(tx, note{"1", "one"}))
		_, err := d.TryTransact(func(tx *Txn) error {
			require.NoError(t, s.Delete(tx, 0, 2))
			assert.Equal(t, 0, s.Len())
			return errors.New("abandon")
		})
		assert.Error(t, err)
		assert.Equal(t, []string{"zero", "one"}, texts(s))
		require.NoError(t, s.Push(tx, note{"2", "two"}))
	})
	assert.Len(t, u.Ops, 2)
	assert.Equal(t, []string{"zero", "one", "two"}, texts(s))
}

func TestMap_SetValueDelete(t *testing.T) {
	d := NewDoc("doc", "a")
	m := NewMap(d, "settings")
	d.Transact(func(tx *Txn) {
		require.NoError(t, m.Set(tx, "opacity", 0.5))
		require.NoError(t, m.Set(tx, "grid", "square"))
	})
	v, ok := Value[float64](m, "opacity")
	require.True(t, ok)
	assert.Equal(t, 0.5, v)
	_, ok = Value[float64](m, "grid")
	assert.False(t, ok)
	assert.Equal(t, []string{"grid", "opacity"}, m.Keys())

	d.Transact(func(tx *Txn) { m.Delete(tx, "grid") })
	_, ok = m.Raw("grid")
	assert.False(t, ok)
}

// relayed applies every update to every doc in submission order with
// increasing sequence numbers, standing in for a relay.
type relayed struct {
	seq  uint64
	docs []*Doc
	log  []Update
}

func (r *relayed) attach(d *Doc) {
	r.docs = append(r.docs, d)
	d.Attach(func(u Update) { r.log = append(r.log, u) })
}

func (r *relayed) flush(t *testing.T) {
	for len(r.log) > 0 {
		u := r.log[0]
		r.log = r.log[1:]
		r.seq++
		u.Seq = r.seq
		for _, d := range r.docs {
			require.NoError(t, d.ApplyRemote(u))
		}
	}
}

func TestApplyRemote_ConcurrentEditsConverge(t *testing.T) {
	r := &relayed{}
	a := NewDoc("doc", "a")
	b := NewDoc("doc", "b")
	r.attach(a)
	r.attach(b)
	sa := NewSequence[note](a, "notes")
	sb := NewSequence[note](b, "notes")

	a.Transact(func(tx *Txn) { require.NoError(t, sa.Push(tx, note{"1", "base"})) })
	r.flush(t)
	require.Equal(t, []string{"base"}, texts(sb))

	// Both replicas edit the same record before seeing each other.
	a.Transact(func(tx *Txn) { require.NoError(t, sa.Replace(tx, 0, note{"1", "from a"})) })
	b.Transact(func(tx *Txn) {
		require.NoError(t, sb.Replace(tx, 0, note{"1", "from b"}))
		require.NoError(t, sb.Push(tx, note{"2", "extra"}))
	})
	assert.Equal(t, []string{"from a"}, texts(sa))
	assert.Equal(t, 1, a.Pending())

	r.flush(t)
	assert.Equal(t, texts(sa), texts(sb))
	assert.Equal(t, []string{"from b", "extra"}, texts(sa))
	assert.Equal(t, 0, a.Pending())
	assert.Equal(t, 0, b.Pending())
}

func TestApplyRemote_ReplayedSeqIgnored(t *testing.T) {
	d := NewDoc("doc", "a")
	s := NewSequence[note](d, "notes")
	u := Update{DocID: "doc", ClientID: "b", Clock: 1, Seq: 1, Ops: []Op{
		{Container: "notes", Kind: OpInsert, ID: "1", Value: []byte(`{"id":"1","text":"x"}`)},
	}}
	require.NoError(t, d.ApplyRemote(u))
	require.NoError(t, d.ApplyRemote(u))
	assert.Equal(t, 1, s.Len())
	assert.Equal(t, uint64(1), d.LastSeq())
}

func TestApplyRemote_RejectsForeignDocAndInvalidOps(t *testing.T) {
	d := NewDoc("doc", "a")
	assert.Error(t, d.ApplyRemote(Update{DocID: "other", ClientID: "b"}))
	assert.Error(t, d.ApplyRemote(Update{DocID: "doc", ClientID: "b", Ops: []Op{{Container: "c", Kind: "bogus"}}}))
}

func TestApplyRemote_MissingAnchorAppends(t *testing.T) {
	d := NewDoc("doc", "a")
	s := NewSequence[note](d, "notes")
	d.Transact(func(tx *Txn) { require.NoError(t, s.Push(tx, note{"1", "one"})) })
	require.NoError(t, d.ApplyRemote(Update{DocID: "doc", ClientID: "b", Clock: 1, Ops: []Op{
		{Container: "notes", Kind: OpInsert, ID: "2", After: "gone", Value: []byte(`{"id":"2","text":"two"}`)},
		{Container: "notes", Kind: OpDelete, ID: "never-existed"},
	}}))
	assert.Equal(t, []string{"one", "two"}, texts(s))
}

func TestApplyRemote_UndecodableRecordSkipped(t *testing.T) {
	d := NewDoc("doc", "a")
	s := NewSequence[note](d, "notes")
	require.NoError(t, d.ApplyRemote(Update{DocID: "doc", ClientID: "b", Clock: 1, Ops: []Op{
		{Container: "notes", Kind: OpInsert, ID: "1", Value: []byte(`[1,2]`)},
		{Container: "notes", Kind: OpInsert, ID: "2", After: "1", Value: []byte(`{"id":"2","text":"ok"}`)},
	}}))
	assert.Equal(t, 2, s.Len())
	assert.Equal(t, []string{"ok"}, texts(s))
	_, ok := s.Get(0)
	assert.False(t, ok)
}

func TestAttach_ResendsPending(t *testing.T) {
	d := NewDoc("doc", "a")
	var first []Update
	d.Attach(func(u Update) { first = append(first, u) })
	s := NewSequence[note](d, "notes")
	d.Transact(func(tx *Txn) { require.NoError(t, s.Push(tx, note{"1", "x"})) })
	require.Len(t, first, 1)

	var second []Update
	d.Attach(func(u Update) { second = append(second, u) })
	require.Len(t, second, 1)
	assert.Equal(t, first[0].Clock, second[0].Clock)
}

func TestPropertyUpdateReplayIsIdempotent(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		src := NewDoc("doc", "src")
		s := NewSequence[note](src, "notes")
		var updates []Update
		src.Attach(func(u Update) { updates = append(updates, u) })

		steps := rapid.IntRange(1, 20).Draw(rt, "steps")
		for i := range steps {
			src.Transact(func(tx *Txn) {
				n := s.Len()
				switch op := rapid.IntRange(0, 2).Draw(rt, "op"); {
				case op == 0 || n == 0:
					at := rapid.IntRange(0, n).Draw(rt, "at")
					_ = s.Insert(tx, at, note{ID: rapid.StringMatching(`[a-e]`).Draw(rt, "id"), Text: string(rune('a' + i))})
				case op == 1:
					_ = s.Delete(tx, rapid.IntRange(0, n-1).Draw(rt, "del"), 1)
				default:
					at := rapid.IntRange(0, n-1).Draw(rt, "rep")
					cur, _ := s.Get(at)
					_ = s.Replace(tx, at, note{ID: cur.ID, Text: "r"})
				}
			})
		}

		once := NewDoc("doc", "x")
		twice := NewDoc("doc", "y")
		for _, u := range updates {
			require.NoError(rt, once.ApplyRemote(u))
			require.NoError(rt, twice.ApplyRemote(u))
			require.NoError(rt, twice.ApplyRemote(u))
		}
		a := NewSequence[note](once, "notes").ToSlice()
		b := NewSequence[note](twice, "notes").ToSlice()
		assert.Equal(rt, a, b)
		assert.Equal(rt, s.ToSlice(), a)
	})
}
