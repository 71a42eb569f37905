package store

import (
	"context"
	"errors"

	"github.com/Harshitk-cp/prospector/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// LedgerStore is the Postgres belief ledger backend. The table carries no
// UPDATE or DELETE path through this adapter; both are rejected with
// ErrAppendOnly so no storage adapter can quietly rewrite history.
type LedgerStore struct {
	db *pgxpool.Pool
}

func NewLedgerStore(db *pgxpool.Pool) *LedgerStore {
	return &LedgerStore{db: db}
}

func (s *LedgerStore) Append(ctx context.Context, e *domain.LedgerEntry) error {
	_, err := s.db.Exec(ctx,
		`INSERT INTO belief_ledger (entity_id, iteration, hypothesis_id, kind, impact, evidence_ref, category, recorded_at, prev_hash, hash)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		e.EntityID, e.Iteration, e.HypothesisID, e.Kind, e.Impact,
		e.EvidenceRef, e.Category, e.RecordedAt, e.PrevHash, e.Hash,
	)
	return err
}

// Update always fails: ledger entries are immutable.
func (s *LedgerStore) Update(ctx context.Context, _ *domain.LedgerEntry) error {
	return ErrAppendOnly
}

// Delete always fails: ledger entries are immutable.
func (s *LedgerStore) Delete(ctx context.Context, _ uuid.UUID) error {
	return ErrAppendOnly
}

func (s *LedgerStore) GetChain(ctx context.Context, entityID uuid.UUID) ([]domain.LedgerEntry, error) {
	rows, err := s.db.Query(ctx,
		`SELECT entity_id, iteration, hypothesis_id, kind, impact, evidence_ref, category, recorded_at, prev_hash, hash
		 FROM belief_ledger WHERE entity_id = $1 ORDER BY seq`,
		entityID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []domain.LedgerEntry
	for rows.Next() {
		var e domain.LedgerEntry
		if err := rows.Scan(&e.EntityID, &e.Iteration, &e.HypothesisID, &e.Kind, &e.Impact,
			&e.EvidenceRef, &e.Category, &e.RecordedAt, &e.PrevHash, &e.Hash); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (s *LedgerStore) LastEntry(ctx context.Context, entityID uuid.UUID) (*domain.LedgerEntry, error) {
	e := &domain.LedgerEntry{}
	err := s.db.QueryRow(ctx,
		`SELECT entity_id, iteration, hypothesis_id, kind, impact, evidence_ref, category, recorded_at, prev_hash, hash
		 FROM belief_ledger WHERE entity_id = $1 ORDER BY seq DESC LIMIT 1`,
		entityID,
	).Scan(&e.EntityID, &e.Iteration, &e.HypothesisID, &e.Kind, &e.Impact,
		&e.EvidenceRef, &e.Category, &e.RecordedAt, &e.PrevHash, &e.Hash)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return e, nil
}

func (s *LedgerStore) HasEvidenceRef(ctx context.Context, hypothesisID uuid.UUID, ref string) (bool, error) {
	var exists bool
	err := s.db.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM belief_ledger WHERE hypothesis_id = $1 AND evidence_ref = $2)`,
		hypothesisID, ref,
	).Scan(&exists)
	return exists, err
}
