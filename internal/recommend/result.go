package recommend

import (
	"fmt"
	"strings"
	"time"

	"pcbuilder/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Part is one selected product with the price it was accepted at.
type Part struct {
	Category models.Category   `json:"category"`
	Product  models.Product    `json:"product"`
	Price    models.PriceEntry `json:"price_entry"`
}

// BuildResult is a complete recommendation. It only exists for successful runs.
type BuildResult struct {
	ID          uuid.UUID                `json:"id"`
	Parts       map[models.Category]Part `json:"build"`
	Order       []models.Category        `json:"order"`
	Total       decimal.Decimal          `json:"total_cost"`
	Preferences Preferences              `json:"user_preferences"`
	Warnings    []string                 `json:"warnings,omitempty"`
	CreatedAt   time.Time                `json:"created_at"`
}

// Part returns the part chosen for a category.
func (b *BuildResult) Part(c models.Category) (Part, bool) {
	p, ok := b.Parts[c]
	return p, ok
}

// OrderedParts returns the parts in selection order.
func (b *BuildResult) OrderedParts() []Part {
	parts := make([]Part, 0, len(b.Order))
	for _, c := range b.Order {
		parts = append(parts, b.Parts[c])
	}
	return parts
}

// Remaining is the unspent budget.
func (b *BuildResult) Remaining() decimal.Decimal {
	return b.Preferences.Budget.Sub(b.Total)
}

// Summary renders the build as a short plain-text reply.
func (b *BuildResult) Summary() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Here's a %s build for your $%s budget:\n", b.Preferences.UseCase, b.Preferences.Budget.StringFixed(2))
	for _, p := range b.OrderedParts() {
		fmt.Fprintf(&sb, "- %s: %s ($%s at %s)\n", p.Category, p.Product.Name, p.Price.Price.StringFixed(2), p.Price.RetailerName)
	}
	fmt.Fprintf(&sb, "Total: $%s", b.Total.StringFixed(2))
	if rem := b.Remaining(); rem.IsPositive() {
		fmt.Fprintf(&sb, " ($%s left over)", rem.StringFixed(2))
	}
	sb.WriteString("\n")
	for _, w := range b.Warnings {
		fmt.Fprintf(&sb, "Note: %s\n", w)
	}
	return sb.String()
}
