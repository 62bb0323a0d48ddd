package recommend

import (
	"math/rand"
	"sync"
	"time"

	"pcbuilder/internal/models"
)

// Range bounds the share of the remaining budget a step may spend.
type Range struct {
	Min, Max float64
}

func (r Range) Midpoint() float64 { return (r.Min + r.Max) / 2 }

// FractionSource draws a fraction within a range.
type FractionSource interface {
	Fraction(r Range) float64
}

// Midpoint always returns the middle of the range.
type Midpoint struct{}

func (Midpoint) Fraction(r Range) float64 { return r.Midpoint() }

// Random samples uniformly within the range. One Random may be shared by
// concurrent requests.
type Random struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewRandom seeds a Random; seed 0 uses the current time.
func NewRandom(seed int64) *Random {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Random{rng: rand.New(rand.NewSource(seed))}
}

func (r *Random) Fraction(rg Range) float64 {
	r.mu.Lock()
	f := r.rng.Float64()
	r.mu.Unlock()
	return rg.Min + f*(rg.Max-rg.Min)
}

var baseFractions = map[models.Category]Range{
	models.CategoryCPU:         {0.20, 0.35},
	models.CategoryMotherboard: {0.15, 0.25},
	models.CategoryGPU:         {0.30, 0.45},
	models.CategoryRAM:         {0.25, 0.40},
	models.CategoryStorage:     {0.25, 0.40},
	models.CategoryPSU:         {0.40, 0.60},
	models.CategoryCase:        {0.50, 0.80},
	models.CategoryMonitor:     {0.50, 0.80},
	models.CategoryKeyboard:    {0.30, 0.50},
	models.CategoryMouse:       {0.40, 0.70},
}

var useCaseFractions = map[UseCase]map[models.Category]Range{
	UseCaseGaming: {
		models.CategoryGPU: {0.50, 0.65},
	},
	UseCaseProductivity: {
		models.CategoryCPU: {0.25, 0.40},
	},
	UseCaseStreaming: {
		models.CategoryCPU: {0.22, 0.37},
		models.CategoryGPU: {0.40, 0.55},
	},
}

// FractionRange returns the budget share range for a category under a use case.
func FractionRange(useCase UseCase, category models.Category) Range {
	if r, ok := useCaseFractions[useCase][category]; ok {
		return r
	}
	return baseFractions[category]
}
