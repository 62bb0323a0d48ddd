package recommend

import (
	"errors"
	"fmt"
	"log"
	"os"
	"sort"
	"strings"
	"time"

	"pcbuilder/internal/catalog"
	"pcbuilder/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	looseTolerance = decimal.RequireFromString("1.25")
	psuMargin      = decimal.RequireFromString("1.5")
	lowBudgetTier  = decimal.NewFromInt(800)
)

// Allocator assembles builds from a catalog. It holds no per-request state
// and may serve concurrent requests.
type Allocator struct {
	reader     catalog.Reader
	fractions  FractionSource
	logger     *log.Logger
	minPSU     decimal.Decimal
	strictCase bool
	now        func() time.Time
}

type Option func(*Allocator)

// WithFractions sets the source of per-step budget fractions.
func WithFractions(f FractionSource) Option {
	return func(a *Allocator) { a.fractions = f }
}

func WithLogger(l *log.Logger) Option {
	return func(a *Allocator) { a.logger = l }
}

// WithMinPSUWattage sets the floor applied to the TDP-derived PSU requirement.
func WithMinPSUWattage(w decimal.Decimal) Option {
	return func(a *Allocator) { a.minPSU = w }
}

// WithStrictCase makes the Case a mandatory category.
func WithStrictCase(strict bool) Option {
	return func(a *Allocator) { a.strictCase = strict }
}

func New(reader catalog.Reader, opts ...Option) *Allocator {
	a := &Allocator{
		reader:    reader,
		fractions: NewRandom(0),
		minPSU:    decimal.NewFromInt(450),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.logger == nil {
		a.logger = log.New(os.Stdout, "[Recommender] ", log.LstdFlags)
	}
	return a
}

// allocation is the state threaded through the steps. Steps never mutate
// it in place; commit and warn return modified copies.
type allocation struct {
	prefs       Preferences
	total       decimal.Decimal
	constraints catalog.Constraints
	cpuTDP      int
	gpuTDP      int
	parts       []Part
	warnings    []string
}

func (s allocation) remaining() decimal.Decimal { return s.prefs.Budget.Sub(s.total) }

func (s allocation) commit(p Part, c catalog.Constraints) allocation {
	s.total = s.total.Add(p.Price.Price)
	s.parts = append(s.parts[:len(s.parts):len(s.parts)], p)
	s.constraints = c
	return s
}

func (s allocation) warn(format string, args ...interface{}) allocation {
	s.warnings = append(s.warnings[:len(s.warnings):len(s.warnings)], fmt.Sprintf(format, args...))
	return s
}

func (s allocation) committed() []models.Category {
	out := make([]models.Category, 0, len(s.parts))
	for _, p := range s.parts {
		out = append(out, p.Category)
	}
	return out
}

func (s allocation) has(c models.Category) bool {
	for _, p := range s.parts {
		if p.Category == c {
			return true
		}
	}
	return false
}

type candidate struct {
	product models.Product
	price   models.PriceEntry
	priced  bool
}

// step describes one category of the allocation sequence.
type step struct {
	category  models.Category
	mandatory bool
	loose     bool
	narrow    func(catalog.Constraints) catalog.Constraints
	eligible  func(allocation, models.Product) bool
	less      func(allocation, candidate, candidate) bool
	apply     func(allocation, models.Product) catalog.Constraints
}

// Recommend runs the allocation for one preference record.
func (a *Allocator) Recommend(prefs Preferences) (*BuildResult, error) {
	if !prefs.Budget.IsPositive() {
		a.logger.Printf("Budget not provided or invalid (%s), cannot recommend a build", prefs.Budget)
		return nil, ErrNoBudget
	}
	if prefs.UseCase == "" {
		prefs.UseCase = UseCaseGeneral
	}
	a.logger.Printf("Starting recommendation: budget=$%s use_case=%s aesthetic=%q monitor=%t keyboard=%t mouse=%t",
		prefs.Budget.StringFixed(2), prefs.UseCase, prefs.Aesthetic, prefs.Monitor, prefs.Keyboard, prefs.Mouse)

	state := allocation{prefs: prefs}
	for _, st := range a.steps() {
		if !prefs.Wants(st.category) {
			continue
		}
		var err error
		if state, err = a.run(st, state); err != nil {
			return nil, err
		}
	}

	if state.total.GreaterThan(prefs.Budget) {
		a.logger.Printf("Final build cost $%s exceeds budget $%s, rejecting", state.total.StringFixed(2), prefs.Budget.StringFixed(2))
		return nil, &InfeasibleError{Reason: "total exceeds budget", Committed: state.committed()}
	}
	for _, c := range models.MandatoryCategories {
		if !state.has(c) {
			return nil, &InfeasibleError{Category: c, Reason: "mandatory category missing", Committed: state.committed()}
		}
	}

	result := &BuildResult{
		ID:          uuid.New(),
		Parts:       make(map[models.Category]Part, len(state.parts)),
		Order:       state.committed(),
		Total:       state.total,
		Preferences: prefs,
		Warnings:    state.warnings,
		CreatedAt:   a.now().UTC(),
	}
	for _, p := range state.parts {
		result.Parts[p.Category] = p
	}
	a.logger.Printf("Recommended build %s with total cost $%s", result.ID, result.Total.StringFixed(2))
	return result, nil
}

func (a *Allocator) run(st step, state allocation) (allocation, error) {
	remaining := state.remaining()
	ceiling := remaining.Mul(decimal.NewFromFloat(a.fractions.Fraction(FractionRange(state.prefs.UseCase, st.category))))
	if st.loose {
		ceiling = decimal.Min(remaining, ceiling.Mul(looseTolerance))
	}

	constraints := state.constraints
	if st.narrow != nil {
		constraints = st.narrow(constraints)
	}
	products := catalog.Filter(a.reader.ListByCategory(st.category), st.category, constraints)

	candidates := make([]candidate, 0, len(products))
	for _, p := range products {
		if missing := p.MissingSpecs(); len(missing) > 0 {
			a.logger.Printf("Skipping %s %q: missing spec %s", st.category, p.Name, strings.Join(missing, ", "))
			state = state.warn("skipped %s %q: missing spec %s", st.category, p.Name, strings.Join(missing, ", "))
			continue
		}
		if st.eligible != nil && !st.eligible(state, p) {
			continue
		}
		c := candidate{product: p}
		entry, err := a.reader.PriceFor(p.ID)
		switch {
		case err == nil:
			c.price, c.priced = entry, true
		case !errors.Is(err, catalog.ErrNoPrice):
			a.logger.Printf("Price lookup for %q failed: %v", p.Name, err)
		}
		candidates = append(candidates, c)
	}
	if st.less != nil {
		sort.SliceStable(candidates, func(i, j int) bool { return st.less(state, candidates[i], candidates[j]) })
	}

	for _, c := range candidates {
		if !c.priced || c.price.Price.GreaterThan(ceiling) {
			continue
		}
		next := state.constraints
		if st.apply != nil {
			next = st.apply(state, c.product)
		}
		switch st.category {
		case models.CategoryCPU:
			state.cpuTDP, _ = c.product.TDP()
		case models.CategoryGPU:
			state.gpuTDP, _ = c.product.TDP()
		}
		state = state.commit(Part{Category: st.category, Product: c.product, Price: c.price}, next)
		a.logger.Printf("Selected %s: %s for $%s (ceiling $%s). Running total: $%s",
			st.category, c.product.Name, c.price.Price.StringFixed(2), ceiling.StringFixed(2), state.total.StringFixed(2))
		return state, nil
	}

	a.logger.Printf("No %s within $%s among %d candidates", st.category, ceiling.StringFixed(2), len(candidates))
	mandatory := st.mandatory || (st.category == models.CategoryCase && a.strictCase)
	if mandatory {
		return state, &InfeasibleError{Category: st.category, Committed: state.committed()}
	}
	if st.category == models.CategoryCase {
		return state.warn("no compatible Case fits the remaining budget; the build has no case"), nil
	}
	if st.category.IsPeripheral() {
		return state.warn("requested %s left out: none fits the remaining budget", st.category), nil
	}
	return state.warn("no %s fits the remaining budget", st.category), nil
}

func (a *Allocator) steps() []step {
	return []step{
		{
			category:  models.CategoryCPU,
			mandatory: true,
			less:      byUseCaseScore,
			apply: func(s allocation, p models.Product) catalog.Constraints {
				c := s.constraints
				c.Socket, _ = p.Socket()
				// Nominal only; the motherboard decides the RAM type.
				c.RAMType, _ = p.RAMType()
				return c
			},
		},
		{
			category:  models.CategoryMotherboard,
			mandatory: true,
			less: func(_ allocation, x, y candidate) bool {
				return x.product.Score() > y.product.Score()
			},
			apply: func(s allocation, p models.Product) catalog.Constraints {
				c := s.constraints
				c.RAMType, _ = p.RAMType()
				c.FormFactor, _ = p.FormFactor()
				return c
			},
		},
		{
			category:  models.CategoryGPU,
			mandatory: true,
			less:      byUseCaseScore,
		},
		{
			category:  models.CategoryRAM,
			mandatory: true,
			loose:     true,
			eligible: func(s allocation, p models.Product) bool {
				capacity, _ := p.CapacityGB()
				return capacity >= ramFloorGB(s.prefs)
			},
			less: func(_ allocation, x, y candidate) bool {
				cx, _ := x.product.CapacityGB()
				cy, _ := y.product.CapacityGB()
				if cx != cy {
					return cx > cy
				}
				sx, _ := x.product.SpeedMTs()
				sy, _ := y.product.SpeedMTs()
				return sx > sy
			},
		},
		{
			category:  models.CategoryStorage,
			mandatory: true,
			loose:     true,
			narrow: func(c catalog.Constraints) catalog.Constraints {
				c.StorageType = "SSD"
				return c
			},
			eligible: func(s allocation, p models.Product) bool {
				capacity, _ := p.CapacityGB()
				return capacity >= storageFloorGB(s.prefs)
			},
			less: func(_ allocation, x, y candidate) bool {
				cx, _ := x.product.CapacityGB()
				cy, _ := y.product.CapacityGB()
				return cx > cy
			},
		},
		{
			category:  models.CategoryPSU,
			mandatory: true,
			eligible: func(s allocation, p models.Product) bool {
				watts, _ := p.Wattage()
				return decimal.NewFromInt(int64(watts)).GreaterThanOrEqual(a.requiredWattage(s))
			},
			less: func(_ allocation, x, y candidate) bool {
				wx, _ := x.product.Wattage()
				wy, _ := y.product.Wattage()
				return wx > wy
			},
		},
		{
			category: models.CategoryCase,
			less:     byAestheticThenPrice,
		},
		{
			category: models.CategoryMonitor,
			eligible: func(s allocation, p models.Product) bool {
				return monitorMatches(p, s.prefs.MonitorResolution, s.prefs.MonitorRefreshRate)
			},
			less: func(_ allocation, x, y candidate) bool {
				rx, _ := x.product.RefreshRateHz()
				ry, _ := y.product.RefreshRateHz()
				if rx != ry {
					return rx > ry
				}
				wx, _, _ := x.product.Resolution()
				wy, _, _ := y.product.Resolution()
				return wx > wy
			},
		},
		{
			category: models.CategoryKeyboard,
			less:     byAestheticThenPrice,
		},
		{
			category: models.CategoryMouse,
			less:     byAestheticThenPrice,
		},
	}
}

// requiredWattage is max(floor, 1.5 x (CPU tdp + GPU tdp)).
func (a *Allocator) requiredWattage(s allocation) decimal.Decimal {
	need := decimal.NewFromInt(int64(s.cpuTDP + s.gpuTDP)).Mul(psuMargin)
	return decimal.Max(a.minPSU, need)
}

func ramFloorGB(p Preferences) int {
	if p.Budget.LessThan(lowBudgetTier) && p.UseCase != UseCaseProductivity {
		return 16
	}
	return 32
}

func storageFloorGB(p Preferences) int {
	if p.Budget.LessThan(lowBudgetTier) {
		return 500
	}
	return 1000
}

func byUseCaseScore(s allocation, x, y candidate) bool {
	px, py := x.product, y.product
	switch s.prefs.UseCase {
	case UseCaseGaming:
		if px.GamingScore != py.GamingScore {
			return px.GamingScore > py.GamingScore
		}
		return px.ProductivityScore > py.ProductivityScore
	case UseCaseProductivity:
		if px.ProductivityScore != py.ProductivityScore {
			return px.ProductivityScore > py.ProductivityScore
		}
		return px.GamingScore > py.GamingScore
	default:
		return px.Score() > py.Score()
	}
}

func byAestheticThenPrice(s allocation, x, y candidate) bool {
	if s.prefs.Aesthetic != "" {
		mx, my := x.product.HasTag(s.prefs.Aesthetic), y.product.HasTag(s.prefs.Aesthetic)
		if mx != my {
			return mx
		}
	}
	if x.priced != y.priced {
		return x.priced
	}
	if !x.priced {
		return false
	}
	return x.price.Price.LessThan(y.price.Price)
}

var monitorResolutions = map[string][2]int{
	"1080p": {1920, 1080},
	"1440p": {2560, 1440},
	"4k":    {3840, 2160},
	"2160p": {3840, 2160},
}

// monitorMatches applies the optional resolution and refresh constraints.
// Unknown resolution labels do not filter.
func monitorMatches(p models.Product, resolution string, minRefresh int) bool {
	if want, ok := monitorResolutions[strings.ToLower(strings.TrimSpace(resolution))]; ok {
		w, h, ok := p.Resolution()
		if !ok || w != want[0] || h != want[1] {
			return false
		}
	}
	if minRefresh > 0 {
		hz, _ := p.RefreshRateHz()
		if hz < minRefresh {
			return false
		}
	}
	return true
}
