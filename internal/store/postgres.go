package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	_ "github.com/lib/pq"

	"github.com/sagarsarangi/startup-check/config"
	"github.com/sagarsarangi/startup-check/models"
)

// PostgresStore keeps the pair in a single row per session. Both halves live
// in NOT NULL columns of the same row, so a save is atomic by construction.
type PostgresStore struct {
	DB *sql.DB
}

// NewPostgresStore opens and pings the database. The analyses table is managed
// by migrations (see the migrate command).
func NewPostgresStore(ctx context.Context, cfg config.PostgresConfig) (*PostgresStore, error) {
	db, err := sql.Open("postgres", cfg.DSN())
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("postgres connection failed: %w", err)
	}
	return &PostgresStore{DB: db}, nil
}

func (s *PostgresStore) Save(ctx context.Context, sessionID string, input models.StartupInput, result models.AnalysisResult) error {
	inputB, err := json.Marshal(input)
	if err != nil {
		return fmt.Errorf("marshal input: %w", err)
	}
	resultB, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}

	_, err = s.DB.ExecContext(ctx, `
INSERT INTO analyses (session_id, schema_version, input, result, saved_at)
VALUES ($1,$2,$3,$4,NOW())
ON CONFLICT (session_id) DO UPDATE SET
  schema_version = EXCLUDED.schema_version,
  input = EXCLUDED.input,
  result = EXCLUDED.result,
  saved_at = NOW();
`, sessionID, SchemaVersion, inputB, resultB)
	if err != nil {
		return fmt.Errorf("save analysis pair: %w", err)
	}
	return nil
}

func (s *PostgresStore) Load(ctx context.Context, sessionID string) (Pair, error) {
	row := s.DB.QueryRowContext(ctx,
		`SELECT schema_version, input, result, saved_at FROM analyses WHERE session_id=$1`, sessionID)

	var (
		version         int
		inputB, resultB []byte
		pair            Pair
	)
	if err := row.Scan(&version, &inputB, &resultB, &pair.SavedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Pair{}, models.ErrNoAnalysis
		}
		return Pair{}, fmt.Errorf("load analysis pair: %w", err)
	}
	if version != SchemaVersion {
		return Pair{}, models.ErrNoAnalysis
	}
	if err := json.Unmarshal(inputB, &pair.Input); err != nil {
		return Pair{}, models.ErrNoAnalysis
	}
	if err := json.Unmarshal(resultB, &pair.Result); err != nil {
		return Pair{}, models.ErrNoAnalysis
	}
	return pair, nil
}

func (s *PostgresStore) Clear(ctx context.Context, sessionID string) error {
	if _, err := s.DB.ExecContext(ctx, `DELETE FROM analyses WHERE session_id=$1`, sessionID); err != nil {
		return fmt.Errorf("clear analysis pair: %w", err)
	}
	return nil
}
