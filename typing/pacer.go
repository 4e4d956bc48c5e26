package typing

import (
	"math/rand/v2"
	"sync"
	"time"
)

// Default pacing, in milliseconds
const (
	DefaultBaseDelay     = 20
	DefaultVariableDelay = 80
)

// Pacer draws the pause taken after each step: Base plus a uniform random
// share of Variable, so every delay falls in [Base, Base+Variable).
type Pacer struct {
	Base     time.Duration
	Variable time.Duration

	mu  sync.Mutex
	rnd *rand.Rand
}

// NewPacer builds a pacer from millisecond settings. Negative values count as zero.
func NewPacer(baseMs, variableMs int) *Pacer {
	return &Pacer{
		Base:     time.Duration(max(baseMs, 0)) * time.Millisecond,
		Variable: time.Duration(max(variableMs, 0)) * time.Millisecond,
	}
}

// Seed makes the delay sequence reproducible
func (p *Pacer) Seed(seed uint64) {
	p.mu.Lock()
	p.rnd = rand.New(rand.NewPCG(seed, seed))
	p.mu.Unlock()
}

// Delay returns the next pause
func (p *Pacer) Delay() time.Duration {
	if p.Variable <= 0 {
		return p.Base
	}

	p.mu.Lock()
	var f float64
	if p.rnd != nil {
		f = p.rnd.Float64()
	} else {
		f = rand.Float64()
	}
	p.mu.Unlock()

	d := time.Duration(f * float64(p.Variable))
	if d >= p.Variable {
		d = p.Variable - 1
	}
	return p.Base + d
}
