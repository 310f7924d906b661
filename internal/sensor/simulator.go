package sensor

import (
	"context"
	"math/rand/v2"
	"sync"
)

// Simulated readings are uniform in this range with a fixed confidence.
const (
	SimulatedMinDistance = 180.0
	SimulatedMaxDistance = 1000.0
	SimulatedConfidence  = 0.8
)

// Simulator is the Source used when no sensor could be opened.
type Simulator struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewSimulator returns a Simulator drawing from rng, or from a randomly
// seeded generator when rng is nil.
func NewSimulator(rng *rand.Rand) *Simulator {
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &Simulator{rng: rng}
}

// Acquire returns a synthetic sample.
func (s *Simulator) Acquire(ctx context.Context) (Sample, error) {
	if err := ctx.Err(); err != nil {
		return Sample{}, err
	}
	s.mu.Lock()
	u := s.rng.Float64()
	s.mu.Unlock()
	return Sample{
		Distance:   SimulatedMinDistance + u*(SimulatedMaxDistance-SimulatedMinDistance),
		Confidence: SimulatedConfidence,
	}, nil
}

// Simulated is always true for a Simulator.
func (s *Simulator) Simulated() bool { return true }

// Close is a no-op.
func (s *Simulator) Close() error { return nil }
