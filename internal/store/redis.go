package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/sagarsarangi/startup-check/config"
	"github.com/sagarsarangi/startup-check/models"
)

// RedisStore keeps the pair in two session-scoped keys. Both keys are written
// inside one MULTI/EXEC so no reader can ever observe a mix of old and new
// halves.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStore connects to Redis and verifies the connection with a ping.
func NewRedisStore(ctx context.Context, cfg config.RedisConfig) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:        fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password:    cfg.Password,
		DB:          cfg.DB,
		DialTimeout: cfg.Timeout,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis connection failed (%s:%d): %w", cfg.Host, cfg.Port, err)
	}
	ttl := cfg.TTL
	if ttl == 0 {
		ttl = 24 * time.Hour
	}
	return &RedisStore{client: client, ttl: ttl}, nil
}

func inputKey(sessionID string) string  { return "analysis:" + sessionID + ":input" }
func resultKey(sessionID string) string { return "analysis:" + sessionID + ":result" }

func (s *RedisStore) Save(ctx context.Context, sessionID string, input models.StartupInput, result models.AnalysisResult) error {
	now := time.Now().UTC()
	inputRec, err := marshalRecord(input, now)
	if err != nil {
		return fmt.Errorf("marshal input: %w", err)
	}
	resultRec, err := marshalRecord(result, now)
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, inputKey(sessionID), inputRec, s.ttl)
		pipe.Set(ctx, resultKey(sessionID), resultRec, s.ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("save analysis pair: %w", err)
	}
	return nil
}

func (s *RedisStore) Load(ctx context.Context, sessionID string) (Pair, error) {
	vals, err := s.client.MGet(ctx, inputKey(sessionID), resultKey(sessionID)).Result()
	if err != nil {
		return Pair{}, fmt.Errorf("load analysis pair: %w", err)
	}
	inputRaw, okIn := vals[0].(string)
	resultRaw, okRes := vals[1].(string)
	if !okIn || !okRes {
		// Either half missing reads as never saved.
		return Pair{}, models.ErrNoAnalysis
	}

	var pair Pair
	savedAt, err := unmarshalRecord([]byte(inputRaw), &pair.Input)
	if err != nil {
		return Pair{}, models.ErrNoAnalysis
	}
	if _, err := unmarshalRecord([]byte(resultRaw), &pair.Result); err != nil {
		return Pair{}, models.ErrNoAnalysis
	}
	pair.SavedAt = savedAt
	return pair, nil
}

func (s *RedisStore) Clear(ctx context.Context, sessionID string) error {
	if err := s.client.Del(ctx, inputKey(sessionID), resultKey(sessionID)).Err(); err != nil {
		return fmt.Errorf("clear analysis pair: %w", err)
	}
	return nil
}

func marshalRecord(v any, savedAt time.Time) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return json.Marshal(record{Version: SchemaVersion, SavedAt: savedAt, Data: data})
}

// unmarshalRecord decodes an envelope into out. Corrupt payloads and stale
// schema versions are reported as errors so callers treat them as absent.
func unmarshalRecord(raw []byte, out any) (time.Time, error) {
	var rec record
	if err := json.Unmarshal(raw, &rec); err != nil {
		return time.Time{}, err
	}
	if rec.Version != SchemaVersion {
		return time.Time{}, fmt.Errorf("schema version %d, want %d", rec.Version, SchemaVersion)
	}
	if err := json.Unmarshal(rec.Data, out); err != nil {
		return time.Time{}, err
	}
	return rec.SavedAt, nil
}
