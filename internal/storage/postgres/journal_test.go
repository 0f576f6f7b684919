package postgres_test

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cory-johannsen/battlemap/internal/relay"
	"github.com/cory-johannsen/battlemap/internal/replica"
	"github.com/cory-johannsen/battlemap/internal/storage/postgres"
	"github.com/cory-johannsen/battlemap/internal/testutil"
)

func uniqueDoc(prefix string) string {
	return fmt.Sprintf("%s_%d", prefix, time.Now().UnixNano())
}

func wallUpdate(doc, client string, clock uint64) replica.Update {
	return replica.Update{
		DocID:    doc,
		ClientID: client,
		Clock:    clock,
		Ops: []replica.Op{{
			Container: "walls:file",
			Kind:      replica.OpInsert,
			ID:        fmt.Sprintf("w%d", clock),
			Value:     json.RawMessage(fmt.Sprintf(`{"id":"w%d","layer":"walls","segments":[]}`, clock)),
		}},
	}
}

func TestJournal(t *testing.T) {
	pc := testutil.NewPostgresContainer(t)
	j := postgres.NewJournal(pc.Pool.DB())
	ctx := context.Background()

	t.Run("append assigns dense sequence numbers", func(t *testing.T) {
		doc := uniqueDoc("dense")
		_, err := j.Head(ctx, doc)
		assert.ErrorIs(t, err, relay.ErrDocumentNotFound)

		for i := uint64(1); i <= 3; i++ {
			u, err := j.Append(ctx, wallUpdate(doc, "alice", i))
			require.NoError(t, err)
			assert.Equal(t, i, u.Seq)
		}
		head, err := j.Head(ctx, doc)
		require.NoError(t, err)
		assert.Equal(t, uint64(3), head)
	})

	t.Run("since returns ordered updates with ops intact", func(t *testing.T) {
		doc := uniqueDoc("since")
		for i := uint64(1); i <= 4; i++ {
			_, err := j.Append(ctx, wallUpdate(doc, "bob", i))
			require.NoError(t, err)
		}
		got, err := j.Since(ctx, doc, 2)
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, uint64(3), got[0].Seq)
		assert.Equal(t, uint64(4), got[1].Seq)
		assert.Equal(t, "bob", got[0].ClientID)
		assert.Equal(t, uint64(3), got[0].Clock)
		require.Len(t, got[0].Ops, 1)
		assert.Equal(t, "w3", got[0].Ops[0].ID)
		assert.JSONEq(t, `{"id":"w3","layer":"walls","segments":[]}`, string(got[0].Ops[0].Value))
	})

	t.Run("concurrent appends serialize", func(t *testing.T) {
		doc := uniqueDoc("concurrent")
		var wg sync.WaitGroup
		seqs := make(chan uint64, 20)
		for i := uint64(1); i <= 20; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				u, err := j.Append(ctx, wallUpdate(doc, fmt.Sprintf("c%d", i), i))
				if assert.NoError(t, err) {
					seqs <- u.Seq
				}
			}()
		}
		wg.Wait()
		close(seqs)
		seen := map[uint64]bool{}
		for s := range seqs {
			seen[s] = true
		}
		assert.Len(t, seen, 20)
		for i := uint64(1); i <= 20; i++ {
			assert.True(t, seen[i], "missing seq %d", i)
		}
	})

	t.Run("relay replays the journal to a late joiner", func(t *testing.T) {
		doc := uniqueDoc("relay")
		s := relay.NewServer(j, 8, nil)
		_, err := s.Publish(ctx, wallUpdate(doc, "alice", 1))
		require.NoError(t, err)
		backlog, sub, err := s.Join(ctx, doc, 0)
		require.NoError(t, err)
		defer sub.Cancel()
		require.Len(t, backlog, 1)
		assert.Equal(t, uint64(1), backlog[0].Seq)
	})

	t.Run("health", func(t *testing.T) {
		assert.NoError(t, pc.Pool.Health(ctx, time.Second))
	})
}
