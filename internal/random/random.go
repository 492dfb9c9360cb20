// Package random abstracts the randomness used by coupon allocation and
// draw execution so tests can substitute a deterministic source.
package random

import (
	"math/rand"
	"sync"
	"time"
)

// Source provides the two draws the selection algorithms need: a uniform
// float in [0, 1) for weighted company selection and a uniform int in
// [0, n) for offset and winner picks.
type Source interface {
	Float64() float64
	Intn(n int) int
}

// lockedSource wraps math/rand with a mutex so a single Source can be
// shared across concurrent request handlers.
type lockedSource struct {
	mu  sync.Mutex
	rnd *rand.Rand
}

// New returns a time-seeded Source safe for concurrent use.
func New() Source {
	return &lockedSource{rnd: rand.New(rand.NewSource(time.Now().UnixNano()))}
}

// NewSeeded returns a Source with a fixed seed. Primarily used for testing.
func NewSeeded(seed int64) Source {
	return &lockedSource{rnd: rand.New(rand.NewSource(seed))}
}

func (s *lockedSource) Float64() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rnd.Float64()
}

func (s *lockedSource) Intn(n int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rnd.Intn(n)
}
