// Package entropy abstracts the arena's randomness source so simulations
// can run fully reproducible (seeded) or genuinely random (crypto).
// The decision engine itself never draws randomness; only the host does.
package entropy

import (
	"crypto/rand"
	"encoding/binary"
	mathrand "math/rand"
	"sync"
)

// Source yields random values for pairing and stat jitter.
type Source interface {
	// Float returns a value in [0, 1).
	Float() float64
	// Intn returns a value in [0, n). n must be positive.
	Intn(n int) int
}

// Seeded is a deterministic Source backed by math/rand. Safe for
// concurrent use.
type Seeded struct {
	mu  sync.Mutex
	rng *mathrand.Rand
}

// NewSeeded creates a reproducible source: identical seeds always yield
// identical draw sequences.
func NewSeeded(seed int64) *Seeded {
	return &Seeded{rng: mathrand.New(mathrand.NewSource(seed))}
}

func (s *Seeded) Float() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.Float64()
}

func (s *Seeded) Intn(n int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.Intn(n)
}

// Crypto is a Source backed by crypto/rand, for runs where
// unpredictability matters more than replay.
type Crypto struct{}

func (Crypto) Float() float64 {
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		// Should never happen; 0.5 is the safe neutral draw.
		return 0.5
	}
	// Use only 53 bits for a uniform float64 in [0, 1).
	n := binary.LittleEndian.Uint64(buf[:]) >> 11
	return float64(n) / float64(1<<53)
}

func (c Crypto) Intn(n int) int {
	if n <= 0 {
		return 0
	}
	return int(c.Float() * float64(n))
}

// ForSeed returns a seeded source for nonzero seeds and a crypto source
// when seed is 0.
func ForSeed(seed int64) Source {
	if seed == 0 {
		return Crypto{}
	}
	return NewSeeded(seed)
}
