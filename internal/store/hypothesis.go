package store

import (
	"context"
	"errors"

	"github.com/Harshitk-cp/prospector/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type HypothesisStore struct {
	db *pgxpool.Pool
}

func NewHypothesisStore(db *pgxpool.Pool) *HypothesisStore {
	return &HypothesisStore{db: db}
}

func (s *HypothesisStore) Create(ctx context.Context, h *domain.Hypothesis) error {
	if h.Status == "" {
		h.Status = domain.StatusActive
	}
	return s.db.QueryRow(ctx,
		`INSERT INTO hypotheses (entity_id, category, statement, prior, confidence, accepts, weak_accepts, rejects, no_progress, last_delta, eig_score, status, pattern_key)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		 RETURNING id, created_at, updated_at`,
		h.EntityID, h.Category, h.Statement, h.Prior, h.Confidence,
		h.Outcomes.Accepts, h.Outcomes.WeakAccepts, h.Outcomes.Rejects, h.Outcomes.NoProgress,
		h.LastDelta, h.EIGScore, h.Status, h.PatternKey,
	).Scan(&h.ID, &h.CreatedAt, &h.UpdatedAt)
}

func (s *HypothesisStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Hypothesis, error) {
	h := &domain.Hypothesis{}
	err := s.db.QueryRow(ctx,
		`SELECT id, entity_id, category, statement, prior, confidence, accepts, weak_accepts, rejects, no_progress, last_delta, eig_score, status, pattern_key, created_at, updated_at
		 FROM hypotheses WHERE id = $1`,
		id,
	).Scan(&h.ID, &h.EntityID, &h.Category, &h.Statement, &h.Prior, &h.Confidence,
		&h.Outcomes.Accepts, &h.Outcomes.WeakAccepts, &h.Outcomes.Rejects, &h.Outcomes.NoProgress,
		&h.LastDelta, &h.EIGScore, &h.Status, &h.PatternKey, &h.CreatedAt, &h.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return h, nil
}

func (s *HypothesisStore) GetByEntity(ctx context.Context, entityID uuid.UUID) ([]domain.Hypothesis, error) {
	rows, err := s.db.Query(ctx,
		`SELECT id, entity_id, category, statement, prior, confidence, accepts, weak_accepts, rejects, no_progress, last_delta, eig_score, status, pattern_key, created_at, updated_at
		 FROM hypotheses WHERE entity_id = $1 ORDER BY created_at, id`,
		entityID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Hypothesis
	for rows.Next() {
		var h domain.Hypothesis
		if err := rows.Scan(&h.ID, &h.EntityID, &h.Category, &h.Statement, &h.Prior, &h.Confidence,
			&h.Outcomes.Accepts, &h.Outcomes.WeakAccepts, &h.Outcomes.Rejects, &h.Outcomes.NoProgress,
			&h.LastDelta, &h.EIGScore, &h.Status, &h.PatternKey, &h.CreatedAt, &h.UpdatedAt); err != nil {
			return nil, err
		}
		result = append(result, h)
	}
	return result, rows.Err()
}

func (s *HypothesisStore) Update(ctx context.Context, h *domain.Hypothesis) error {
	tag, err := s.db.Exec(ctx,
		`UPDATE hypotheses
		 SET confidence = $2, accepts = $3, weak_accepts = $4, rejects = $5, no_progress = $6,
		     last_delta = $7, eig_score = $8, status = $9, updated_at = NOW()
		 WHERE id = $1`,
		h.ID, h.Confidence,
		h.Outcomes.Accepts, h.Outcomes.WeakAccepts, h.Outcomes.Rejects, h.Outcomes.NoProgress,
		h.LastDelta, h.EIGScore, h.Status,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *HypothesisStore) ListDistinctEntityIDs(ctx context.Context) ([]uuid.UUID, error) {
	rows, err := s.db.Query(ctx, `SELECT DISTINCT entity_id FROM hypotheses`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
