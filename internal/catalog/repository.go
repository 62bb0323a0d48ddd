package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"pcbuilder/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository is the gorm-backed catalog store.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// LoadSnapshot reads every product with its price history into an immutable Snapshot.
func (r *Repository) LoadSnapshot(ctx context.Context) (*Snapshot, error) {
	var products []models.Product
	if err := r.db.WithContext(ctx).Preload("Prices").Order("id ASC").Find(&products).Error; err != nil {
		return nil, fmt.Errorf("failed to load catalog: %w", err)
	}
	return NewSnapshot(products), nil
}

// Products lists products, optionally restricted to one category.
func (r *Repository) Products(ctx context.Context, category models.Category) ([]models.Product, error) {
	q := r.db.WithContext(ctx).Order("id ASC")
	if category != "" {
		q = q.Where("category = ?", category)
	}
	var products []models.Product
	if err := q.Find(&products).Error; err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	return products, nil
}

// Product fetches one product by ID.
func (r *Repository) Product(ctx context.Context, id uint) (models.Product, error) {
	var p models.Product
	err := r.db.WithContext(ctx).First(&p, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return p, ErrProductNotFound
	}
	if err != nil {
		return p, fmt.Errorf("failed to get product %d: %w", id, err)
	}
	return p, nil
}

// PriceFor resolves the current price directly in SQL with the same ordering
// as ResolvePrice.
func (r *Repository) PriceFor(ctx context.Context, productID uint) (models.PriceEntry, error) {
	if _, err := r.Product(ctx, productID); err != nil {
		return models.PriceEntry{}, err
	}

	var entry models.PriceEntry
	err := r.db.WithContext(ctx).
		Where("product_id = ? AND price > 0", productID).
		Order("observed_at DESC, price ASC, id ASC").
		First(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return entry, ErrNoPrice
	}
	if err != nil {
		return entry, fmt.Errorf("failed to resolve price for product %d: %w", productID, err)
	}
	return entry, nil
}

// PriceHistory returns a product's observations, newest first.
func (r *Repository) PriceHistory(ctx context.Context, productID uint, limit int) ([]models.PriceEntry, error) {
	q := r.db.WithContext(ctx).Where("product_id = ?", productID).Order("observed_at DESC, id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	var entries []models.PriceEntry
	if err := q.Find(&entries).Error; err != nil {
		return nil, fmt.Errorf("failed to load price history: %w", err)
	}
	return entries, nil
}

// AddPrice appends a price observation. Entries are never updated in place.
func (r *Repository) AddPrice(ctx context.Context, entry *models.PriceEntry) error {
	if !entry.Price.IsPositive() {
		return fmt.Errorf("price for product %d must be positive, got %s", entry.ProductID, entry.Price)
	}
	if entry.ObservedAt.IsZero() {
		entry.ObservedAt = time.Now().UTC()
	}
	entry.ID = 0
	if err := r.db.WithContext(ctx).Create(entry).Error; err != nil {
		return fmt.Errorf("failed to add price for product %d: %w", entry.ProductID, err)
	}
	return nil
}

// UpsertProduct inserts a product or refreshes the existing row with the same
// brand and model. The stored row is returned.
func (r *Repository) UpsertProduct(ctx context.Context, p models.Product) (models.Product, error) {
	p.Brand = strings.TrimSpace(p.Brand)
	p.Model = strings.TrimSpace(p.Model)
	if p.Brand == "" || p.Model == "" {
		return p, fmt.Errorf("product %q needs brand and model", p.Name)
	}
	p.ID = 0
	p.Prices = nil

	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "brand"}, {Name: "model"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"name", "category", "specs", "image_url", "gaming_score",
			"productivity_score", "aesthetic_tags", "updated_at",
		}),
	}).Create(&p).Error
	if err != nil {
		return p, fmt.Errorf("failed to upsert product %s %s: %w", p.Brand, p.Model, err)
	}
	return r.FindByBrandModel(ctx, p.Brand, p.Model)
}

// FindByBrandModel looks a product up by its natural key.
func (r *Repository) FindByBrandModel(ctx context.Context, brand, model string) (models.Product, error) {
	var p models.Product
	err := r.db.WithContext(ctx).
		Where("brand = ? AND model = ?", strings.TrimSpace(brand), strings.TrimSpace(model)).
		First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return p, ErrProductNotFound
	}
	if err != nil {
		return p, fmt.Errorf("failed to find product %s %s: %w", brand, model, err)
	}
	return p, nil
}
