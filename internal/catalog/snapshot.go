package catalog

import (
	"sort"

	"pcbuilder/internal/models"
)

// Reader is the read-only catalog view used by recommendation and price checks.
type Reader interface {
	ListByCategory(category models.Category) []models.Product
	PriceFor(productID uint) (models.PriceEntry, error)
}

// Snapshot is an immutable in-memory catalog. It is safe for concurrent use.
type Snapshot struct {
	products   map[models.Category][]models.Product
	prices     map[uint]models.PriceEntry
	byID       map[uint]models.Product
	totalCount int
}

// NewSnapshot indexes products and resolves each product's current price from
// its Prices history. Products keep their input order within a category.
func NewSnapshot(products []models.Product) *Snapshot {
	s := &Snapshot{
		products: make(map[models.Category][]models.Product),
		prices:   make(map[uint]models.PriceEntry),
		byID:     make(map[uint]models.Product, len(products)),
	}
	for _, p := range products {
		if entry, ok := ResolvePrice(p.Prices); ok {
			s.prices[p.ID] = entry
		}
		p.Prices = nil
		s.products[p.Category] = append(s.products[p.Category], p)
		s.byID[p.ID] = p
		s.totalCount++
	}
	return s
}

// ListByCategory returns a copy of the category's products.
func (s *Snapshot) ListByCategory(category models.Category) []models.Product {
	list := s.products[category]
	out := make([]models.Product, len(list))
	copy(out, list)
	return out
}

// PriceFor returns the product's current price or ErrNoPrice.
func (s *Snapshot) PriceFor(productID uint) (models.PriceEntry, error) {
	entry, ok := s.prices[productID]
	if !ok {
		return models.PriceEntry{}, ErrNoPrice
	}
	return entry, nil
}

// Product looks up a product by ID.
func (s *Snapshot) Product(id uint) (models.Product, bool) {
	p, ok := s.byID[id]
	return p, ok
}

// Len is the number of products in the snapshot.
func (s *Snapshot) Len() int { return s.totalCount }

// Counts returns the number of products per category, sorted by category name.
func (s *Snapshot) Counts() []CategoryCount {
	counts := make([]CategoryCount, 0, len(s.products))
	for c, list := range s.products {
		priced := 0
		for _, p := range list {
			if _, ok := s.prices[p.ID]; ok {
				priced++
			}
		}
		counts = append(counts, CategoryCount{Category: c, Products: len(list), Priced: priced})
	}
	sort.Slice(counts, func(i, j int) bool { return counts[i].Category < counts[j].Category })
	return counts
}

// CategoryCount summarises one category of a snapshot.
type CategoryCount struct {
	Category models.Category `json:"category"`
	Products int             `json:"products"`
	Priced   int             `json:"priced"`
}
