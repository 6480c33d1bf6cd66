// Package redis allocates persistent id blocks from Redis counters, so
// several processes can share one id space.
package redis

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"causeway/pkg/platform/sentinel"
	platformstrings "causeway/pkg/platform/strings"
)

const defaultKeyPrefix = "causeway:seq:"

// Store reserves id blocks with INCRBY on one key per sequence.
type Store struct {
	client *redis.Client
	prefix string
}

// Option configures a Store.
type Option func(*Store)

// WithKeyPrefix overrides the key namespace.
func WithKeyPrefix(prefix string) Option {
	return func(s *Store) {
		if prefix != "" {
			s.prefix = prefix
		}
	}
}

func New(client *redis.Client, opts ...Option) *Store {
	s := &Store{client: client, prefix: defaultKeyPrefix}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Reserve returns the first id of a block of n consecutive ids. INCRBY is
// atomic, so blocks handed to different processes never overlap.
func (s *Store) Reserve(ctx context.Context, sequence string, n int64) (int64, error) {
	if n <= 0 {
		return 0, fmt.Errorf("reserve %s: batch size must be positive, got %d", sequence, n)
	}
	last, err := s.client.IncrBy(ctx, s.prefix+sequence, n).Result()
	if err != nil {
		return 0, fmt.Errorf("reserve %s: %w: %w", sequence, sentinel.ErrUnavailable, err)
	}
	return last - n + 1, nil
}

// Current returns the last id reserved for sequence, 0 if none.
func (s *Store) Current(ctx context.Context, sequence string) (int64, error) {
	v, err := s.client.Get(ctx, s.prefix+sequence).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read sequence %s: %w", sequence, err)
	}
	return v, nil
}

// seedScript raises every key to ARGV[1] and leaves higher counters alone.
var seedScript = redis.NewScript(`
local floor = tonumber(ARGV[1])
for _, key in ipairs(KEYS) do
	local current = tonumber(redis.call('GET', key) or '0')
	if current < floor then
		redis.call('SET', key, floor)
	end
end
return 0
`)

// Seed raises each sequence's counter to floor, so the next reservation
// starts above it. Counters already at or above floor are not lowered.
func (s *Store) Seed(ctx context.Context, floor int64, sequences ...string) error {
	sequences = platformstrings.DedupeAndTrim(sequences)
	if len(sequences) == 0 {
		return nil
	}
	keys := make([]string, len(sequences))
	for i, seq := range sequences {
		keys[i] = s.prefix + seq
	}
	if err := seedScript.Run(ctx, s.client, keys, floor).Err(); err != nil {
		return fmt.Errorf("seed sequences: %w: %w", sentinel.ErrUnavailable, err)
	}
	return nil
}
