package catalog

import (
	"strings"

	"pcbuilder/internal/models"
)

// Constraints are requirements imposed by parts chosen earlier in a build.
// Empty fields are absent constraints.
type Constraints struct {
	Socket      string
	RAMType     string
	FormFactor  string // motherboard form factor
	StorageType string
}

// Filter narrows products to the compatible members of category, keeping
// their order. Only the rules relevant to the category apply.
func Filter(products []models.Product, category models.Category, c Constraints) []models.Product {
	out := make([]models.Product, 0, len(products))
	for _, p := range products {
		if p.Category != category {
			continue
		}
		if compatible(p, c) {
			out = append(out, p)
		}
	}
	return out
}

func compatible(p models.Product, c Constraints) bool {
	switch p.Category {
	case models.CategoryCPU, models.CategoryMotherboard:
		if c.Socket != "" {
			socket, _ := p.Socket()
			return socket == c.Socket
		}
	case models.CategoryRAM:
		if c.RAMType != "" {
			ramType, _ := p.RAMType()
			return ramType == c.RAMType
		}
	case models.CategoryStorage:
		if c.StorageType != "" {
			kind, _ := p.StorageType()
			return strings.EqualFold(kind, c.StorageType)
		}
	case models.CategoryCase:
		// Only full ATX boards are checked; other pairings are not validated.
		if c.FormFactor == "ATX" {
			ff, _ := p.FormFactor()
			return !strings.Contains(ff, "Mini ITX")
		}
	}
	return true
}
