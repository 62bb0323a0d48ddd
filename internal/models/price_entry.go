package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// PriceEntry is one retailer price observation for a product.
// Entries are append-only; the sequence per product forms its price history.
type PriceEntry struct {
	ID           uint            `json:"id" gorm:"primaryKey"`
	ProductID    uint            `json:"product_id" gorm:"index:idx_price_product_observed,priority:1;not null"`
	RetailerName string          `json:"retailer_name" gorm:"size:100;not null"`
	RetailerURL  string          `json:"retailer_url" gorm:"size:500;not null"`
	Price        decimal.Decimal `json:"price" gorm:"type:decimal(10,2);not null"`
	// Source timestamp
	ObservedAt time.Time `json:"observed_at" gorm:"index:idx_price_product_observed,priority:2"`
}
