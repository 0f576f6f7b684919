package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cory-johannsen/battlemap/internal/relay"
	"github.com/cory-johannsen/battlemap/internal/replica"
)

// Journal is a relay.Journal backed by the documents and doc_updates tables.
type Journal struct {
	db *pgxpool.Pool
}

var _ relay.Journal = (*Journal)(nil)

// NewJournal creates a Journal backed by the given pool.
//
// Precondition: db must be a valid, open connection pool with the schema
// from migrations/ applied.
func NewJournal(db *pgxpool.Pool) *Journal {
	return &Journal{db: db}
}

// Append implements relay.Journal. The document's head row is locked for the
// duration of the insert, so concurrent appends to one document serialize.
func (j *Journal) Append(ctx context.Context, u replica.Update) (replica.Update, error) {
	if err := u.Validate(); err != nil {
		return replica.Update{}, fmt.Errorf("appending update: %w", err)
	}
	ops, err := json.Marshal(u.Ops)
	if err != nil {
		return replica.Update{}, fmt.Errorf("encoding ops: %w", err)
	}

	err = pgx.BeginFunc(ctx, j.db, func(tx pgx.Tx) error {
		var head int64
		if err := tx.QueryRow(ctx,
			`INSERT INTO documents (id, head)
			 VALUES ($1, 1)
			 ON CONFLICT (id) DO UPDATE SET head = documents.head + 1, updated_at = NOW()
			 RETURNING head`,
			u.DocID,
		).Scan(&head); err != nil {
			return fmt.Errorf("advancing head of %s: %w", u.DocID, err)
		}
		u.Seq = uint64(head)
		if _, err := tx.Exec(ctx,
			`INSERT INTO doc_updates (doc_id, seq, client_id, clock, ops)
			 VALUES ($1, $2, $3, $4, $5)`,
			u.DocID, head, u.ClientID, int64(u.Clock), ops,
		); err != nil {
			return fmt.Errorf("inserting update %d of %s: %w", head, u.DocID, err)
		}
		return nil
	})
	if err != nil {
		return replica.Update{}, err
	}
	return u, nil
}

// Since implements relay.Journal.
func (j *Journal) Since(ctx context.Context, docID string, seq uint64) ([]replica.Update, error) {
	rows, err := j.db.Query(ctx,
		`SELECT seq, client_id, clock, ops
		 FROM doc_updates
		 WHERE doc_id = $1 AND seq > $2
		 ORDER BY seq`,
		docID, int64(seq),
	)
	if err != nil {
		return nil, fmt.Errorf("querying updates of %s: %w", docID, err)
	}
	defer rows.Close()

	var out []replica.Update
	for rows.Next() {
		var (
			s, clock int64
			ops      []byte
		)
		u := replica.Update{DocID: docID}
		if err := rows.Scan(&s, &u.ClientID, &clock, &ops); err != nil {
			return nil, fmt.Errorf("scanning update of %s: %w", docID, err)
		}
		if err := json.Unmarshal(ops, &u.Ops); err != nil {
			return nil, fmt.Errorf("decoding ops of %s@%d: %w", docID, s, err)
		}
		u.Seq, u.Clock = uint64(s), uint64(clock)
		out = append(out, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading updates of %s: %w", docID, err)
	}
	return out, nil
}

// Head implements relay.Journal.
func (j *Journal) Head(ctx context.Context, docID string) (uint64, error) {
	var head int64
	err := j.db.QueryRow(ctx, `SELECT head FROM documents WHERE id = $1`, docID).Scan(&head)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, relay.ErrDocumentNotFound
		}
		return 0, fmt.Errorf("reading head of %s: %w", docID, err)
	}
	return uint64(head), nil
}
