package velocity

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// RedisStore implements Store on a sorted set per card tail, scored by
// observation time in unix milliseconds. Keys expire shortly after the
// window so idle tails cost nothing.
type RedisStore struct {
	client *redis.Client
	window time.Duration
}

// NewRedis creates a Redis-backed velocity store.
func NewRedis(client *redis.Client, window time.Duration) *RedisStore {
	if window <= 0 {
		window = DefaultWindow
	}
	return &RedisStore{client: client, window: window}
}

func (s *RedisStore) key(cardTail string) string {
	return "fraudlens:velocity:" + cardTail
}

// Observe appends the observation, prunes entries outside the window, and
// returns the in-window count in one pipelined round trip.
func (s *RedisStore) Observe(ctx context.Context, cardTail string, at time.Time) (int, error) {
	key := s.key(cardTail)
	cutoff := at.Add(-s.window).UnixMilli()

	pipe := s.client.TxPipeline()
	pipe.ZAdd(ctx, key, redis.Z{
		Score:  float64(at.UnixMilli()),
		Member: uuid.NewString(),
	})
	pipe.ZRemRangeByScore(ctx, key, "-inf", strconv.FormatInt(cutoff, 10))
	card := pipe.ZCard(ctx, key)
	pipe.Expire(ctx, key, s.window*2)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("velocity observe: %w", err)
	}
	return int(card.Val()), nil
}
