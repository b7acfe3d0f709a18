package metrics

import (
	"math"

	"github.com/san-kum/systree/internal/framework"
)

// Stability counts steps where any state element leaves [-threshold,
// threshold] and reports their fraction.
type Stability struct {
	threshold  float64
	violations int
	samples    int
}

func NewStability(threshold float64) *Stability {
	return &Stability{threshold: threshold}
}

func (s *Stability) Name() string { return "instability" }

func (s *Stability) Observe(_ int, _ float64, x framework.Vector, _ float64) {
	s.samples++
	for _, v := range x {
		if math.Abs(v) > s.threshold || math.IsNaN(v) {
			s.violations++
			return
		}
	}
}

func (s *Stability) Value() float64 {
	if s.samples == 0 {
		return 0
	}
	return float64(s.violations) / float64(s.samples)
}

func (s *Stability) Reset() {
	s.violations = 0
	s.samples = 0
}
