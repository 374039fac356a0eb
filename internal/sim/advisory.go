package sim

import (
	"math/rand"
	"sync"
)

// InitialAdvisory is shown until the first rotation.
const InitialAdvisory = "AI suggests: Deploy D-002 to optimal GPS coordinates for maximum coverage"

// DefaultAdvisories returns the built-in rotation pool.
func DefaultAdvisories() []string {
	return []string{
		"AI suggests: Deploy D-002 to 37.7829°N, 122.4074°W for optimal victim rescue coverage",
		"AI suggests: Route R-001 to avoid hazard zone at 37.7769°N, 122.4154°W",
		"AI suggests: Coordinate D-001 and D-003 for synchronized search pattern",
		"AI suggests: Battery level critical for D-003 - return to base at 37.7749°N, 122.4194°W",
		"AI suggests: New victim signal detected - dispatch nearest unit to investigate",
		"AI suggests: Weather conditions optimal for drone deployment in sector 7",
		"AI suggests: Communication relay established - extending operational range by 2km",
	}
}

// AdvisoryRotator holds the current advisory and replaces it with a random
// pool entry on each Rotate. Draws are with replacement.
type AdvisoryRotator struct {
	mu        sync.Mutex
	pool      []string
	current   string
	rng       *rand.Rand
	listeners []func(string)
}

// NewAdvisoryRotator copies pool. An empty pool leaves Rotate a no-op.
func NewAdvisoryRotator(pool []string, initial string, rng *rand.Rand) *AdvisoryRotator {
	if rng == nil {
		rng = rand.New(rand.NewSource(rand.Int63()))
	}
	p := make([]string, len(pool))
	copy(p, pool)
	return &AdvisoryRotator{pool: p, current: initial, rng: rng}
}

// Current returns the last advisory set.
func (a *AdvisoryRotator) Current() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.current
}

// Rotate picks a new advisory from the pool and returns it.
func (a *AdvisoryRotator) Rotate() string {
	a.mu.Lock()
	if len(a.pool) == 0 {
		cur := a.current
		a.mu.Unlock()
		return cur
	}
	next := a.pool[a.rng.Intn(len(a.pool))]
	a.mu.Unlock()
	a.Set(next)
	return next
}

// Set replaces the advisory and notifies listeners if it changed.
func (a *AdvisoryRotator) Set(text string) {
	a.mu.Lock()
	changed := a.current != text
	a.current = text
	listeners := append([]func(string){}, a.listeners...)
	a.mu.Unlock()
	if !changed {
		return
	}
	for _, fn := range listeners {
		fn(text)
	}
}

// OnChange registers fn to receive new advisory values.
func (a *AdvisoryRotator) OnChange(fn func(string)) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.listeners = append(a.listeners, fn)
}
