package history

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"pdf-qa-platform/models"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "pdfqa:history:"

// Redis stores each session as a list of JSON-encoded turns. Every append
// refreshes the session TTL.
type Redis struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedis(rdb *redis.Client, ttl time.Duration) *Redis {
	return &Redis{rdb: rdb, ttl: ttl}
}

func key(sessionID string) string {
	return keyPrefix + sessionID
}

func (r *Redis) Load(ctx context.Context, sessionID string) ([]models.Turn, error) {
	raw, err := r.rdb.LRange(ctx, key(sessionID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("redis load history: %w", err)
	}

	turns := make([]models.Turn, 0, len(raw))
	for i, item := range raw {
		var t models.Turn
		if err := json.Unmarshal([]byte(item), &t); err != nil {
			return nil, fmt.Errorf("decode history entry %d: %w", i, err)
		}
		turns = append(turns, t)
	}
	return turns, nil
}

// Append pushes all turns in one MULTI/EXEC so a session never holds half a pair.
func (r *Redis) Append(ctx context.Context, sessionID string, turns ...models.Turn) error {
	if len(turns) == 0 {
		return nil
	}

	values := make([]any, 0, len(turns))
	for _, t := range turns {
		b, err := json.Marshal(t)
		if err != nil {
			return fmt.Errorf("encode history entry: %w", err)
		}
		values = append(values, string(b))
	}

	k := key(sessionID)
	_, err := r.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.RPush(ctx, k, values...)
		if r.ttl > 0 {
			pipe.Expire(ctx, k, r.ttl)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis append history: %w", err)
	}
	return nil
}

func (r *Redis) Reset(ctx context.Context, sessionID string) error {
	if err := r.rdb.Del(ctx, key(sessionID)).Err(); err != nil {
		return fmt.Errorf("redis reset history: %w", err)
	}
	return nil
}

func (r *Redis) Close() error { return r.rdb.Close() }
