// Package history keeps an audit trail of runs in Postgres. The sink is
// optional: runs behave identically without a configured DSN, and a
// lost audit row is logged, never fatal.
package history

import (
	"context"
	_ "embed"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"dabastion/posture"
)

//go:embed schema.sql
var schemaSQL string

// Store writes one row per run and one per graded event. It satisfies
// report.Reporter so it can ride in a report fanout.
type Store struct {
	pool   *pgxpool.Pool
	ctx    context.Context
	logger *slog.Logger
	runID  uuid.UUID
}

// Open connects to the audit database and ensures the schema exists.
func Open(ctx context.Context, dsn string, logger *slog.Logger) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connecting to audit database: %w", err)
	}
	// no bind parameters, so pgx runs this multi-statement script over
	// the simple protocol
	if _, err := pool.Exec(ctx, schemaSQL); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ensuring audit schema: %w", err)
	}
	return &Store{pool: pool, ctx: ctx, logger: logger}, nil
}

// BeginRun opens the run row every later Record hangs off.
func (s *Store) BeginRun(mode, domain, operator string) error {
	s.runID = uuid.New()
	_, err := s.pool.Exec(s.ctx, `
		INSERT INTO runs (run_id, mode, domain, operator, started_at)
		VALUES ($1, $2, $3, $4, $5)
	`, s.runID, mode, domain, operator, time.Now())
	if err != nil {
		return fmt.Errorf("recording run start: %w", err)
	}
	return nil
}

// Record stores one graded line. Best effort.
func (s *Store) Record(severity posture.Severity, message string) {
	_, err := s.pool.Exec(s.ctx, `
		INSERT INTO run_events (event_id, run_id, severity, message, recorded_at)
		VALUES ($1, $2, $3, $4, $5)
	`, uuid.New(), s.runID, severity.String(), message, time.Now())
	if err != nil {
		s.logger.Warn("could not record audit event", "error", err)
	}
}

// FinishRun stamps the run row's end time.
func (s *Store) FinishRun() {
	_, err := s.pool.Exec(s.ctx, `
		UPDATE runs SET finished_at = $1 WHERE run_id = $2
	`, time.Now(), s.runID)
	if err != nil {
		s.logger.Warn("could not finish audit run", "error", err)
	}
}

func (s *Store) Close() {
	s.pool.Close()
}
