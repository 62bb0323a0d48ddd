package catalog

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"pcbuilder/internal/models"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
	"gorm.io/gorm"
)

// SeedFile is the YAML layout accepted by Seed.
type SeedFile struct {
	Products []SeedProduct `yaml:"products"`
}

type SeedProduct struct {
	Name              string                 `yaml:"name"`
	Category          string                 `yaml:"category"`
	Brand             string                 `yaml:"brand"`
	Model             string                 `yaml:"model"`
	Specs             map[string]interface{} `yaml:"specs"`
	ImageURL          string                 `yaml:"image_url"`
	GamingScore       int                    `yaml:"gaming_score"`
	ProductivityScore int                    `yaml:"productivity_score"`
	AestheticTags     []string               `yaml:"aesthetic_tags"`
	Prices            []SeedPrice            `yaml:"prices"`
}

type SeedPrice struct {
	Retailer   string     `yaml:"retailer"`
	URL        string     `yaml:"url"`
	Price      string     `yaml:"price"`
	ObservedAt *time.Time `yaml:"observed_at"`
}

// SeedReport counts what a seed run wrote.
type SeedReport struct {
	Products int
	Prices   int
}

// ParseSeed decodes and validates a seed document.
func ParseSeed(r io.Reader) (SeedFile, error) {
	var file SeedFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil {
		return file, fmt.Errorf("failed to decode seed file: %w", err)
	}
	for i, p := range file.Products {
		if _, ok := models.ParseCategory(p.Category); !ok {
			return file, fmt.Errorf("product %d (%s): unknown category %q", i, p.Name, p.Category)
		}
		if strings.TrimSpace(p.Brand) == "" || strings.TrimSpace(p.Model) == "" {
			return file, fmt.Errorf("product %d (%s): brand and model are required", i, p.Name)
		}
		for _, sp := range p.Prices {
			price, err := decimal.NewFromString(strings.TrimSpace(sp.Price))
			if err != nil {
				return file, fmt.Errorf("product %d (%s): invalid price %q: %w", i, p.Name, sp.Price, err)
			}
			if !price.IsPositive() {
				return file, fmt.Errorf("product %d (%s): price must be positive", i, p.Name)
			}
		}
	}
	return file, nil
}

// Seed upserts every product of the document and appends its prices,
// all in one transaction.
func (r *Repository) Seed(ctx context.Context, src io.Reader) (SeedReport, error) {
	var report SeedReport
	file, err := ParseSeed(src)
	if err != nil {
		return report, err
	}

	now := time.Now().UTC()
	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		txRepo := NewRepository(tx)
		for _, sp := range file.Products {
			category, _ := models.ParseCategory(sp.Category)
			stored, err := txRepo.UpsertProduct(ctx, models.Product{
				Name:              sp.Name,
				Category:          category,
				Brand:             sp.Brand,
				Model:             sp.Model,
				Specs:             sp.Specs,
				ImageURL:          sp.ImageURL,
				GamingScore:       sp.GamingScore,
				ProductivityScore: sp.ProductivityScore,
				AestheticTags:     strings.Join(sp.AestheticTags, ","),
			})
			if err != nil {
				return err
			}
			report.Products++

			for _, price := range sp.Prices {
				observed := now
				if price.ObservedAt != nil {
					observed = price.ObservedAt.UTC()
				}
				entry := models.PriceEntry{
					ProductID:    stored.ID,
					RetailerName: price.Retailer,
					RetailerURL:  price.URL,
					Price:        decimal.RequireFromString(strings.TrimSpace(price.Price)),
					ObservedAt:   observed,
				}
				if err := txRepo.AddPrice(ctx, &entry); err != nil {
					return err
				}
				report.Prices++
			}
		}
		return nil
	})
	if err != nil {
		return SeedReport{}, err
	}
	return report, nil
}
