package gacha

import (
	cryptorand "crypto/rand"
	"encoding/binary"
	"math/rand/v2"

	"github.com/sskkslay-netizen/Bst/internal/domain"
)

// ─── Random Sources ─────────────────────────────────────────────────────────

// cryptoRNG is the default source for live play.
type cryptoRNG struct{}

func (cryptoRNG) Float64() float64 {
	var buf [8]byte
	if _, err := cryptorand.Read(buf[:]); err != nil {
		return rand.Float64()
	}
	// 53 random bits give a uniform float in [0, 1).
	u := binary.BigEndian.Uint64(buf[:]) >> 11
	return float64(u) / (1 << 53)
}

// DefaultRNG returns a crypto-backed source.
func DefaultRNG() domain.RandomSource { return cryptoRNG{} }

// seededRNG is reproducible for tests and simulations.
type seededRNG struct{ r *rand.Rand }

// NewSeededRNG returns a deterministic PCG source.
func NewSeededRNG(seed uint64) domain.RandomSource {
	return &seededRNG{r: rand.New(rand.NewPCG(seed, 0))}
}

func (s *seededRNG) Float64() float64 { return s.r.Float64() }

// Sequence replays fixed values, then repeats the last one. Handy for
// forcing exact rolls in tests.
type Sequence struct {
	Values []float64
	i      int
}

func (s *Sequence) Float64() float64 {
	if len(s.Values) == 0 {
		return 0
	}
	v := s.Values[min(s.i, len(s.Values)-1)]
	s.i++
	return v
}

// pick returns a uniform index in [0, n).
func pick(rng domain.RandomSource, n int) int {
	i := int(rng.Float64() * float64(n))
	if i >= n {
		i = n - 1
	}
	return i
}
