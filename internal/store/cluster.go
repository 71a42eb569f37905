package store

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/Harshitk-cp/prospector/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type ClusterStore struct {
	db *pgxpool.Pool
}

func NewClusterStore(db *pgxpool.Pool) *ClusterStore {
	return &ClusterStore{db: db}
}

// patternRow is the serialized form of one pattern's counters. Entity sets
// are stored as id lists inside the JSONB document.
type patternRow struct {
	Trials      int         `json:"trials"`
	Saturations int         `json:"saturations"`
	TriedBy     []uuid.UUID `json:"tried_by"`
	SaturatedBy []uuid.UUID `json:"saturated_by"`
}

func (s *ClusterStore) Upsert(ctx context.Context, state *domain.ClusterState) error {
	doc := make(map[string]patternRow, len(state.Patterns))
	for key, counts := range state.Patterns {
		row := patternRow{Trials: counts.Trials, Saturations: counts.Saturations}
		for id := range counts.TriedBy {
			row.TriedBy = append(row.TriedBy, id)
		}
		for id := range counts.SaturatedBy {
			row.SaturatedBy = append(row.SaturatedBy, id)
		}
		doc[key] = row
	}

	payload, err := json.Marshal(doc)
	if err != nil {
		return err
	}

	_, err = s.db.Exec(ctx,
		`INSERT INTO cluster_states (cluster_id, patterns, updated_at)
		 VALUES ($1, $2, NOW())
		 ON CONFLICT (cluster_id) DO UPDATE SET patterns = $2, updated_at = NOW()`,
		state.ClusterID, payload,
	)
	return err
}

func (s *ClusterStore) Get(ctx context.Context, clusterID uuid.UUID) (*domain.ClusterState, error) {
	var payload []byte
	err := s.db.QueryRow(ctx,
		`SELECT patterns FROM cluster_states WHERE cluster_id = $1`,
		clusterID,
	).Scan(&payload)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return &domain.ClusterState{
				ClusterID: clusterID,
				Patterns:  make(map[string]domain.PatternCounts),
			}, nil
		}
		return nil, err
	}

	var doc map[string]patternRow
	if err := json.Unmarshal(payload, &doc); err != nil {
		return nil, err
	}

	state := &domain.ClusterState{
		ClusterID: clusterID,
		Patterns:  make(map[string]domain.PatternCounts, len(doc)),
	}
	for key, row := range doc {
		counts := domain.PatternCounts{
			Trials:      row.Trials,
			Saturations: row.Saturations,
			TriedBy:     make(map[uuid.UUID]struct{}, len(row.TriedBy)),
			SaturatedBy: make(map[uuid.UUID]struct{}, len(row.SaturatedBy)),
		}
		for _, id := range row.TriedBy {
			counts.TriedBy[id] = struct{}{}
		}
		for _, id := range row.SaturatedBy {
			counts.SaturatedBy[id] = struct{}{}
		}
		state.Patterns[key] = counts
	}
	return state, nil
}
