package builds

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"pcbuilder/internal/models"
	"pcbuilder/internal/recommend"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrBuildNotFound is returned for unknown saved build IDs.
var ErrBuildNotFound = errors.New("saved build not found")

// Store persists saved builds and their parts.
type Store struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// Save commits a recommendation for the user identified by email, creating
// the user on first use.
func (s *Store) Save(ctx context.Context, email, name string, result *recommend.BuildResult) (*models.SavedBuild, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, fmt.Errorf("email is required to save a build")
	}
	if result == nil || len(result.Parts) == 0 {
		return nil, fmt.Errorf("nothing to save")
	}

	build := &models.SavedBuild{
		ResultID:    result.ID.String(),
		Preferences: datatypes.JSONMap(result.Preferences.Map()),
		TotalCost:   result.Total,
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		user := models.User{Email: email}
		if err := tx.Where(models.User{Email: email}).Attrs(models.User{Name: name}).FirstOrCreate(&user).Error; err != nil {
			return fmt.Errorf("failed to upsert user: %w", err)
		}
		if name != "" && user.Name != name {
			if err := tx.Model(&user).Update("name", name).Error; err != nil {
				return fmt.Errorf("failed to update user name: %w", err)
			}
			user.Name = name
		}

		build.UserID = user.ID
		if err := tx.Omit(clause.Associations).Create(build).Error; err != nil {
			return fmt.Errorf("failed to create saved build: %w", err)
		}

		parts := make([]models.BuildPart, 0, len(result.Parts))
		for _, p := range result.OrderedParts() {
			price := p.Price.Price
			parts = append(parts, models.BuildPart{
				SavedBuildID:        build.ID,
				ProductID:           p.Product.ID,
				Category:            p.Category,
				RecommendedPrice:    price,
				CurrentPrice:        &price,
				LowestPriceRetailer: p.Price.RetailerName,
				LowestPriceURL:      p.Price.RetailerURL,
			})
		}
		if err := tx.Omit(clause.Associations).Create(&parts).Error; err != nil {
			return fmt.Errorf("failed to create build parts: %w", err)
		}
		build.User = user
		build.Parts = parts
		return nil
	})
	if err != nil {
		return nil, err
	}
	return build, nil
}

// Get loads a saved build with its user and parts.
func (s *Store) Get(ctx context.Context, id uint) (*models.SavedBuild, error) {
	var build models.SavedBuild
	err := s.db.WithContext(ctx).
		Preload("User").
		Preload("Parts", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		Preload("Parts.Product").
		First(&build, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrBuildNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get saved build %d: %w", id, err)
	}
	return &build, nil
}

// ListSavedBuilds returns every saved build with user and parts.
func (s *Store) ListSavedBuilds(ctx context.Context) ([]models.SavedBuild, error) {
	var list []models.SavedBuild
	err := s.db.WithContext(ctx).
		Preload("User").
		Preload("Parts", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		Preload("Parts.Product").
		Order("id ASC").
		Find(&list).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list saved builds: %w", err)
	}
	return list, nil
}

// UpdatePartPrices writes the current price snapshot of each part in one transaction.
func (s *Store) UpdatePartPrices(ctx context.Context, parts []models.BuildPart) error {
	if len(parts) == 0 {
		return nil
	}
	now := time.Now().UTC()
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, p := range parts {
			err := tx.Model(&models.BuildPart{}).Where("id = ?", p.ID).Updates(map[string]interface{}{
				"current_price":         p.CurrentPrice,
				"lowest_price_retailer": p.LowestPriceRetailer,
				"lowest_price_url":      p.LowestPriceURL,
				"updated_at":            now,
			}).Error
			if err != nil {
				return fmt.Errorf("failed to update part %d: %w", p.ID, err)
			}
		}
		return nil
	})
}

// ClaimNotification stamps notified_at with at when the build has never
// been notified or was last notified before at-cooldown. The check and the
// stamp are one UPDATE, so of two overlapping runs only one wins.
func (s *Store) ClaimNotification(ctx context.Context, buildID uint, at time.Time, cooldown time.Duration) (bool, error) {
	at = at.UTC()
	res := s.db.WithContext(ctx).Model(&models.SavedBuild{}).
		Where("id = ? AND (notified_at IS NULL OR notified_at < ?)", buildID, at.Add(-cooldown)).
		Update("notified_at", at)
	if res.Error != nil {
		return false, fmt.Errorf("failed to stamp saved build %d: %w", buildID, res.Error)
	}
	if res.RowsAffected == 1 {
		return true, nil
	}

	var count int64
	if err := s.db.WithContext(ctx).Model(&models.SavedBuild{}).Where("id = ?", buildID).Count(&count).Error; err != nil {
		return false, fmt.Errorf("failed to look up saved build %d: %w", buildID, err)
	}
	if count == 0 {
		return false, ErrBuildNotFound
	}
	return false, nil
}

// ReleaseNotification restores previous as the build's stamp, provided it
// still holds the claim made at at.
func (s *Store) ReleaseNotification(ctx context.Context, buildID uint, at time.Time, previous *time.Time) error {
	var value interface{} = gorm.Expr("NULL")
	if previous != nil {
		value = previous.UTC()
	}
	err := s.db.WithContext(ctx).Model(&models.SavedBuild{}).
		Where("id = ? AND notified_at = ?", buildID, at.UTC()).
		Update("notified_at", value).Error
	if err != nil {
		return fmt.Errorf("failed to release saved build %d: %w", buildID, err)
	}
	return nil
}
