// Seed script for creating the prospector schema plus demo data.
// Run with: go run ./scripts/seed.go
package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
)

const schema = `
CREATE TABLE IF NOT EXISTS hypotheses (
	id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
	entity_id UUID NOT NULL,
	category TEXT NOT NULL,
	statement TEXT NOT NULL,
	prior DOUBLE PRECISION NOT NULL,
	confidence DOUBLE PRECISION NOT NULL,
	accepts INT NOT NULL DEFAULT 0,
	weak_accepts INT NOT NULL DEFAULT 0,
	rejects INT NOT NULL DEFAULT 0,
	no_progress INT NOT NULL DEFAULT 0,
	last_delta DOUBLE PRECISION NOT NULL DEFAULT 0,
	eig_score DOUBLE PRECISION NOT NULL DEFAULT 0,
	status TEXT NOT NULL DEFAULT 'active',
	pattern_key TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_hypotheses_entity ON hypotheses(entity_id);

CREATE TABLE IF NOT EXISTS category_stats (
	entity_id UUID NOT NULL,
	category TEXT NOT NULL,
	accepts INT NOT NULL DEFAULT 0,
	weak_accepts INT NOT NULL DEFAULT 0,
	rejects INT NOT NULL DEFAULT 0,
	no_progress INT NOT NULL DEFAULT 0,
	total_iterations INT NOT NULL DEFAULT 0,
	weak_accept_streak INT NOT NULL DEFAULT 0,
	saturation_multiplier DOUBLE PRECISION NOT NULL DEFAULT 1,
	PRIMARY KEY (entity_id, category)
);

CREATE TABLE IF NOT EXISTS belief_ledger (
	seq BIGSERIAL PRIMARY KEY,
	entity_id UUID NOT NULL,
	iteration INT NOT NULL,
	hypothesis_id UUID NOT NULL,
	kind TEXT NOT NULL,
	impact DOUBLE PRECISION NOT NULL,
	evidence_ref TEXT NOT NULL,
	category TEXT NOT NULL,
	recorded_at TIMESTAMPTZ NOT NULL,
	prev_hash TEXT NOT NULL,
	hash TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_belief_ledger_entity ON belief_ledger(entity_id, seq);
CREATE INDEX IF NOT EXISTS idx_belief_ledger_evidence ON belief_ledger(hypothesis_id, evidence_ref);

CREATE TABLE IF NOT EXISTS cluster_states (
	cluster_id UUID PRIMARY KEY,
	patterns JSONB NOT NULL DEFAULT '{}',
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
`

func main() {
	envFile := os.Getenv("PROSPECTOR_ENV")
	if envFile == "" {
		envFile = ".env"
	}
	_ = godotenv.Load(envFile)
	_ = godotenv.Load(envFile + ".secret")

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL is required")
	}

	ctx := context.Background()

	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		log.Fatalf("connect: %v", err)
	}
	defer pool.Close()

	if _, err := pool.Exec(ctx, schema); err != nil {
		log.Fatalf("create schema: %v", err)
	}
	fmt.Println("schema ready")

	entityID := uuid.New()
	fmt.Printf("demo entity: %s\n", entityID)
	fmt.Printf("demo cluster: %s\n", uuid.New())
	fmt.Println()
	fmt.Println("seed hypotheses with:")
	fmt.Printf("  curl -X POST localhost:8080/v1/entities/%s/hypotheses \\\n", entityID)
	fmt.Println(`    -d '{"template_id": "procurement-default", "entity_name": "Acme Corp"}'`)
}
