package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/sagarsarangi/startup-check/config"
	"github.com/sagarsarangi/startup-check/models"
)

// SchemaVersion tags every persisted record. A record written under a
// different version reads back as absent instead of passing through unchecked.
const SchemaVersion = 1

// Pair is the persisted (input, result) tuple. Both halves are written and
// read together; there is never a partial pair visible to callers.
type Pair struct {
	Input   models.StartupInput   `json:"input"`
	Result  models.AnalysisResult `json:"result"`
	SavedAt time.Time             `json:"saved_at"`
}

// Store keeps the single most recent analysis pair per session across a
// full-page navigation boundary. It is the one seam shared by the submitting
// and rendering sides.
type Store interface {
	// Save atomically replaces both records, or fails leaving the prior pair
	// untouched.
	Save(ctx context.Context, sessionID string, input models.StartupInput, result models.AnalysisResult) error
	// Load returns the last saved pair, or models.ErrNoAnalysis when never
	// saved, either half missing or corrupt, or the schema version mismatches.
	Load(ctx context.Context, sessionID string) (Pair, error)
	// Clear removes both records.
	Clear(ctx context.Context, sessionID string) error
}

// New creates a store from configuration.
func New(ctx context.Context, cfg config.StorageConfig) (Store, error) {
	switch cfg.Driver {
	case "redis":
		return NewRedisStore(ctx, cfg.Redis)
	case "postgres":
		return NewPostgresStore(ctx, cfg.Postgres)
	case "memory":
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unsupported storage driver: %s", cfg.Driver)
	}
}

// record is the versioned envelope around each persisted half.
type record struct {
	Version int             `json:"version"`
	SavedAt time.Time       `json:"saved_at"`
	Data    json.RawMessage `json:"data"`
}
