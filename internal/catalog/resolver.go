package catalog

import (
	"errors"

	"pcbuilder/internal/models"
)

var (
	// ErrNoPrice means the product has no usable price observation and cannot be offered.
	ErrNoPrice = errors.New("no price data")
	// ErrProductNotFound is returned for unknown product identifiers.
	ErrProductNotFound = errors.New("product not found")
)

// ResolvePrice picks the current price among a product's observations:
// the freshest timestamp wins, ties go to the lowest price, then to the
// earliest recorded entry. Non-positive prices are ignored.
func ResolvePrice(entries []models.PriceEntry) (models.PriceEntry, bool) {
	var best models.PriceEntry
	found := false
	for _, e := range entries {
		if !e.Price.IsPositive() {
			continue
		}
		if !found || better(e, best) {
			best = e
			found = true
		}
	}
	return best, found
}

func better(a, b models.PriceEntry) bool {
	if !a.ObservedAt.Equal(b.ObservedAt) {
		return a.ObservedAt.After(b.ObservedAt)
	}
	if c := a.Price.Cmp(b.Price); c != 0 {
		return c < 0
	}
	return a.ID < b.ID
}
