package models

import (
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Category is the catalog category a product belongs to.
type Category string

const (
	CategoryCPU         Category = "CPU"
	CategoryGPU         Category = "GPU"
	CategoryMotherboard Category = "Motherboard"
	CategoryRAM         Category = "RAM"
	CategoryStorage     Category = "Storage"
	CategoryPSU         Category = "PSU"
	CategoryCase        Category = "Case"
	CategoryMonitor     Category = "Monitor"
	CategoryKeyboard    Category = "Keyboard"
	CategoryMouse       Category = "Mouse"
)

// Categories lists every known category in allocation order.
var Categories = []Category{
	CategoryCPU,
	CategoryMotherboard,
	CategoryGPU,
	CategoryRAM,
	CategoryStorage,
	CategoryPSU,
	CategoryCase,
	CategoryMonitor,
	CategoryKeyboard,
	CategoryMouse,
}

// MandatoryCategories must all be present in a successful build.
var MandatoryCategories = []Category{
	CategoryCPU,
	CategoryMotherboard,
	CategoryGPU,
	CategoryRAM,
	CategoryStorage,
	CategoryPSU,
}

// ParseCategory matches a category name case-insensitively.
func ParseCategory(s string) (Category, bool) {
	for _, c := range Categories {
		if strings.EqualFold(string(c), strings.TrimSpace(s)) {
			return c, true
		}
	}
	return "", false
}

// IsPeripheral reports whether the category is an optional peripheral.
func (c Category) IsPeripheral() bool {
	return c == CategoryMonitor || c == CategoryKeyboard || c == CategoryMouse
}

// Product represents a catalogued PC part or peripheral
type Product struct {
	ID                uint              `json:"id" gorm:"primaryKey"`
	Name              string            `json:"name" gorm:"size:255;index;not null"`
	Category          Category          `json:"category" gorm:"size:50;index;not null"`
	Brand             string            `json:"brand" gorm:"size:100;not null;uniqueIndex:idx_brand_model"`
	Model             string            `json:"model" gorm:"size:255;not null;uniqueIndex:idx_brand_model"`
	Specs             datatypes.JSONMap `json:"specs"`
	ImageURL          string            `json:"image_url,omitempty" gorm:"size:500"`
	GamingScore       int               `json:"gaming_score" gorm:"default:0"`
	ProductivityScore int               `json:"productivity_score" gorm:"default:0"`
	AestheticTags     string            `json:"aesthetic_tags" gorm:"size:255"` // comma separated
	CreatedAt         time.Time         `json:"created_at"`
	UpdatedAt         time.Time         `json:"updated_at"`

	Prices []PriceEntry `json:"prices,omitempty" gorm:"foreignKey:ProductID"`
}

// Tags returns the aesthetic tags as a sorted, de-duplicated set.
func (p Product) Tags() []string {
	seen := make(map[string]struct{})
	var tags []string
	for _, t := range strings.Split(p.AestheticTags, ",") {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		key := strings.ToLower(t)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		tags = append(tags, t)
	}
	sort.Strings(tags)
	return tags
}

// HasTag reports whether the product carries the aesthetic tag (case-insensitive).
func (p Product) HasTag(tag string) bool {
	tag = strings.TrimSpace(tag)
	if tag == "" {
		return false
	}
	for _, t := range p.Tags() {
		if strings.EqualFold(t, tag) {
			return true
		}
	}
	return false
}

// Score returns gaming + productivity score.
func (p Product) Score() int {
	return p.GamingScore + p.ProductivityScore
}

// User owns saved builds and receives price-drop alerts
type User struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	Name      string    `json:"name" gorm:"size:100"`
	Email     string    `json:"email" gorm:"size:255;uniqueIndex;not null"`
	CreatedAt time.Time `json:"created_at"`

	SavedBuilds []SavedBuild `json:"saved_builds,omitempty" gorm:"foreignKey:UserID"`
}

// DisplayName falls back to a neutral greeting when no name was given.
func (u User) DisplayName() string {
	if strings.TrimSpace(u.Name) == "" {
		return "there"
	}
	return u.Name
}

// SavedBuild is a committed recommendation watched for price drops
type SavedBuild struct {
	ID          uint              `json:"id" gorm:"primaryKey"`
	UserID      uint              `json:"user_id" gorm:"index;not null"`
	User        User              `json:"user" gorm:"foreignKey:UserID"`
	ResultID    string            `json:"result_id" gorm:"size:36;index"`
	Preferences datatypes.JSONMap `json:"user_preferences"`
	TotalCost   decimal.Decimal   `json:"total_cost" gorm:"type:decimal(10,2)"`
	CreatedAt   time.Time         `json:"created_at"`
	NotifiedAt  *time.Time        `json:"notified_at"`

	Parts []BuildPart `json:"parts" gorm:"foreignKey:SavedBuildID"`
}

// CooldownElapsed reports whether a new alert may be sent at now.
func (b SavedBuild) CooldownElapsed(now time.Time, cooldown time.Duration) bool {
	return b.NotifiedAt == nil || b.NotifiedAt.Before(now.Add(-cooldown))
}

// BuildPart is one product of a saved build with its price bookkeeping
type BuildPart struct {
	ID                  uint             `json:"id" gorm:"primaryKey"`
	SavedBuildID        uint             `json:"saved_build_id" gorm:"index;not null"`
	ProductID           uint             `json:"product_id" gorm:"index;not null"`
	Product             Product          `json:"product" gorm:"foreignKey:ProductID"`
	Category            Category         `json:"category" gorm:"size:50"`
	RecommendedPrice    decimal.Decimal  `json:"recommended_price" gorm:"type:decimal(10,2);not null"`
	CurrentPrice        *decimal.Decimal `json:"current_price" gorm:"type:decimal(10,2)"`
	LowestPriceRetailer string           `json:"lowest_price_retailer" gorm:"size:100"`
	LowestPriceURL      string           `json:"lowest_price_url" gorm:"size:500"`
	UpdatedAt           time.Time        `json:"updated_at"`
}

// AutoMigrate creates or updates every table used by the service.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(&Product{}, &PriceEntry{}, &User{}, &SavedBuild{}, &BuildPart{})
}
