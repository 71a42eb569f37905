package store

import (
	"context"
	"errors"

	"github.com/Harshitk-cp/prospector/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type CategoryStatsStore struct {
	db *pgxpool.Pool
}

func NewCategoryStatsStore(db *pgxpool.Pool) *CategoryStatsStore {
	return &CategoryStatsStore{db: db}
}

func (s *CategoryStatsStore) Upsert(ctx context.Context, cs *domain.CategoryStats) error {
	_, err := s.db.Exec(ctx,
		`INSERT INTO category_stats (entity_id, category, accepts, weak_accepts, rejects, no_progress, total_iterations, weak_accept_streak, saturation_multiplier)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 ON CONFLICT (entity_id, category) DO UPDATE
		 SET accepts = $3, weak_accepts = $4, rejects = $5, no_progress = $6,
		     total_iterations = $7, weak_accept_streak = $8, saturation_multiplier = $9`,
		cs.EntityID, cs.Category,
		cs.Outcomes.Accepts, cs.Outcomes.WeakAccepts, cs.Outcomes.Rejects, cs.Outcomes.NoProgress,
		cs.TotalIterations, cs.WeakAcceptStreak, cs.SaturationMultiplier,
	)
	return err
}

func (s *CategoryStatsStore) Get(ctx context.Context, entityID uuid.UUID, category string) (*domain.CategoryStats, error) {
	cs := &domain.CategoryStats{}
	err := s.db.QueryRow(ctx,
		`SELECT entity_id, category, accepts, weak_accepts, rejects, no_progress, total_iterations, weak_accept_streak, saturation_multiplier
		 FROM category_stats WHERE entity_id = $1 AND category = $2`,
		entityID, category,
	).Scan(&cs.EntityID, &cs.Category,
		&cs.Outcomes.Accepts, &cs.Outcomes.WeakAccepts, &cs.Outcomes.Rejects, &cs.Outcomes.NoProgress,
		&cs.TotalIterations, &cs.WeakAcceptStreak, &cs.SaturationMultiplier)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return cs, nil
}

func (s *CategoryStatsStore) GetByEntity(ctx context.Context, entityID uuid.UUID) ([]domain.CategoryStats, error) {
	rows, err := s.db.Query(ctx,
		`SELECT entity_id, category, accepts, weak_accepts, rejects, no_progress, total_iterations, weak_accept_streak, saturation_multiplier
		 FROM category_stats WHERE entity_id = $1 ORDER BY category`,
		entityID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.CategoryStats
	for rows.Next() {
		var cs domain.CategoryStats
		if err := rows.Scan(&cs.EntityID, &cs.Category,
			&cs.Outcomes.Accepts, &cs.Outcomes.WeakAccepts, &cs.Outcomes.Rejects, &cs.Outcomes.NoProgress,
			&cs.TotalIterations, &cs.WeakAcceptStreak, &cs.SaturationMultiplier); err != nil {
			return nil, err
		}
		result = append(result, cs)
	}
	return result, rows.Err()
}
