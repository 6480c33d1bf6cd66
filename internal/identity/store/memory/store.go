// Package memory provides an in-process id allocator for tests and single
// instance deployments.
package memory

import (
	"context"
	"fmt"
	"sync"

	platformstrings "causeway/pkg/platform/strings"
)

// Store hands out blocks from per-sequence counters starting at 1.
type Store struct {
	mu       sync.Mutex
	counters map[string]int64
}

func New() *Store {
	return &Store{counters: make(map[string]int64)}
}

// Reserve returns the first id of a block of n consecutive ids.
func (s *Store) Reserve(ctx context.Context, sequence string, n int64) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if n <= 0 {
		return 0, fmt.Errorf("reserve %s: batch size must be positive, got %d", sequence, n)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	first := s.counters[sequence] + 1
	s.counters[sequence] += n
	return first, nil
}

// Current returns the last id reserved for sequence.
func (s *Store) Current(_ context.Context, sequence string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.counters[sequence], nil
}

// Seed raises each sequence's counter to floor. Higher counters are kept.
func (s *Store) Seed(ctx context.Context, floor int64, sequences ...string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, seq := range platformstrings.DedupeAndTrim(sequences) {
		s.counters[seq] = max(s.counters[seq], floor)
	}
	return nil
}
