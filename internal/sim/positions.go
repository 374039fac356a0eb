package sim

import (
	"errors"
	"math/rand"

	"rescueops/internal/fleet"
)

// DefaultJitter is the per-axis position offset bound in degrees.
const DefaultJitter = 0.0005

// PositionSimulator nudges every unit by a small random offset each tick.
// Positions are not clamped and may drift without bound.
type PositionSimulator struct {
	store *fleet.Store
	bound float64
	rng   *rand.Rand
}

// NewPositionSimulator returns a simulator over store. A non-positive bound
// selects DefaultJitter; a nil rng is seeded from the global source.
func NewPositionSimulator(store *fleet.Store, bound float64, rng *rand.Rand) *PositionSimulator {
	if bound <= 0 {
		bound = DefaultJitter
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(rand.Int63()))
	}
	return &PositionSimulator{store: store, bound: bound, rng: rng}
}

// Tick moves every unit once and returns how many were moved. All moves
// are committed as one Store batch. Units that vanish mid-tick are skipped.
func (p *PositionSimulator) Tick() int {
	moved := 0
	p.store.Batch(func() {
		for _, id := range p.store.UnitIDs() {
			dLat, dLon := p.offset(), p.offset()
			err := p.store.MutateUnit(id, func(u *fleet.Unit) {
				u.Position.Lat += dLat
				u.Position.Lon += dLon
			})
			if errors.Is(err, fleet.ErrNotFound) {
				continue
			}
			if err == nil {
				moved++
			}
		}
	})
	return moved
}

func (p *PositionSimulator) offset() float64 {
	return (p.rng.Float64()*2 - 1) * p.bound
}
