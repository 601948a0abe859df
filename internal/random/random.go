package random

import (
	cryptoRand "crypto/rand"
	"encoding/binary"
	"math/rand/v2"
	"sync"
)

// Source abstracts the uniform float source every roll in the game goes through.
type Source interface {
	Float64() float64 // [0, 1)
}

// crypto random : default generation method
type cryptoRNG struct{}

func (cryptoRNG) Float64() float64 {
	// Read 53bit random => [0, 1)
	var buf [8]byte
	if _, err := cryptoRand.Read(buf[:]); err != nil {
		// back to math/rand/v2
		return rand.Float64()
	}

	u := binary.BigEndian.Uint64(buf[:]) >> 11 // 53 bits
	return float64(u) / (1 << 53)
}

func Default() Source { return cryptoRNG{} }

// Replicable RNG (e.g. Monte Carlo, tests)
type seededRNG struct {
	mu sync.Mutex
	r  *rand.Rand
}

func NewSeeded(seed uint64) Source {
	return &seededRNG{r: rand.New(rand.NewPCG(seed, 0))}
}

func (s *seededRNG) Float64() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.r.Float64()
}

// Scripted replays fixed values in order and then falls back to Fallback.
// Tests use it to force hit qualities, dodges and jitter.
type Scripted struct {
	mu       sync.Mutex
	values   []float64
	Fallback float64
}

func NewScripted(values ...float64) *Scripted {
	return &Scripted{values: append([]float64(nil), values...)}
}

// Push appends more values to the script.
func (s *Scripted) Push(values ...float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values = append(s.values, values...)
}

func (s *Scripted) Float64() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.values) == 0 {
		return s.Fallback
	}
	v := s.values[0]
	s.values = s.values[1:]
	return v
}

// Remaining reports how many scripted values are still queued.
func (s *Scripted) Remaining() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.values)
}
