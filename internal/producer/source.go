package producer

import (
	"math/rand/v2"
	"time"

	"github.com/SinaHkz/typed-pipeline/pkg/types"
)

// Ranges bounds the values drawn by RandomSource. Both ends are inclusive.
type Ranges struct {
	Kinds       []types.Kind
	IntervalMin time.Duration
	IntervalMax time.Duration
	CostMin     int
	CostMax     int
}

// RandomSource draws kind, cost and interval uniformly from Ranges.
type RandomSource struct {
	r   Ranges
	rng *rand.Rand
}

// NewRandomSource returns a source seeded from the clock when rng is nil.
func NewRandomSource(r Ranges, rng *rand.Rand) *RandomSource {
	if rng == nil {
		seed := uint64(time.Now().UnixNano())
		rng = rand.New(rand.NewPCG(seed, seed>>1|1))
	}
	return &RandomSource{r: r, rng: rng}
}

func (s *RandomSource) Interval() time.Duration {
	span := s.r.IntervalMax - s.r.IntervalMin
	if span <= 0 {
		return s.r.IntervalMin
	}
	// uint64 so the inclusive bound holds when span is math.MaxInt64
	return s.r.IntervalMin + time.Duration(s.rng.Uint64N(uint64(span)+1))
}

func (s *RandomSource) Kind() types.Kind {
	return s.r.Kinds[s.rng.IntN(len(s.r.Kinds))]
}

func (s *RandomSource) Cost() int {
	return s.r.CostMin + s.rng.IntN(s.r.CostMax-s.r.CostMin+1)
}

// Sequence replays fixed values in order, wrapping around when exhausted.
// Empty slices yield zero values.
type Sequence struct {
	Intervals []time.Duration
	Kinds     []types.Kind
	Costs     []int

	i, k, c int
}

func (s *Sequence) Interval() time.Duration {
	if len(s.Intervals) == 0 {
		return 0
	}
	d := s.Intervals[s.i%len(s.Intervals)]
	s.i++
	return d
}

func (s *Sequence) Kind() types.Kind {
	if len(s.Kinds) == 0 {
		return ""
	}
	k := s.Kinds[s.k%len(s.Kinds)]
	s.k++
	return k
}

func (s *Sequence) Cost() int {
	if len(s.Costs) == 0 {
		return 0
	}
	c := s.Costs[s.c%len(s.Costs)]
	s.c++
	return c
}
