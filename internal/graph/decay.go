package graph

import (
	"fmt"
	"math"

	"github.com/nvandessel/pamem/internal/models"
)

// DecayStrategy maps an activation and an elapsed tick count to a decayed
// activation.
type DecayStrategy interface {
	Decay(activation float64, ticks int64) float64
}

// LinearDecay subtracts Rate per tick.
type LinearDecay struct {
	Rate float64
}

// Decay implements DecayStrategy.
func (d LinearDecay) Decay(activation float64, ticks int64) float64 {
	if ticks <= 0 {
		return activation
	}
	return math.Max(0, activation-d.Rate*float64(ticks))
}

// ExponentialDecay multiplies by e^(-Rate*ticks).
type ExponentialDecay struct {
	Rate float64
}

// Decay implements DecayStrategy.
func (d ExponentialDecay) Decay(activation float64, ticks int64) float64 {
	if activation == 0 || ticks <= 0 {
		return activation
	}
	return activation * math.Exp(-d.Rate*float64(ticks))
}

// NewDecayStrategy returns the named strategy: "linear" or "exponential".
func NewDecayStrategy(name string, rate float64) (DecayStrategy, error) {
	switch name {
	case "", "linear":
		return LinearDecay{Rate: rate}, nil
	case "exponential":
		return ExponentialDecay{Rate: rate}, nil
	default:
		return nil, fmt.Errorf("unknown decay strategy: %s (valid: linear, exponential)", name)
	}
}

// Decay lowers the activation of every resident node and link by the given
// number of ticks. Nodes tagged no-decay are left alone.
func (g *Graph) Decay(ticks int64, strategy DecayStrategy) {
	if strategy == nil || ticks <= 0 {
		return
	}
	fn := func(a float64) float64 { return strategy.Decay(a, ticks) }

	for _, n := range g.Nodes() {
		if n.HasTag(models.TagNoDecay) {
			continue
		}
		n.Decay(fn)
	}
	for _, l := range g.Links() {
		l.Decay(fn)
	}
}
