package pricefeed

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"pcbuilder/internal/catalog"
	"pcbuilder/internal/models"
)

// PriceWriter is the catalog surface the refresher writes through.
type PriceWriter interface {
	FindByBrandModel(ctx context.Context, brand, model string) (models.Product, error)
	AddPrice(ctx context.Context, entry *models.PriceEntry) error
}

// Source is the feed the refresher reads from.
type Source interface {
	Retailers(ctx context.Context) ([]string, error)
	Fetch(ctx context.Context, retailer string) ([]Observation, error)
}

// RefreshReport counts one refresh pass.
type RefreshReport struct {
	Retailers int
	Added     int
	Unmatched int
	Rejected  int
	Failed    []string
}

// Refresher appends feed observations to the catalog's price history.
type Refresher struct {
	source    Source
	writer    PriceWriter
	retailers []string
	logger    *log.Logger
	now       func() time.Time
}

// NewRefresher builds a refresher. An empty retailers list asks the feed for its retailers.
func NewRefresher(source Source, writer PriceWriter, retailers []string, logger *log.Logger) *Refresher {
	if logger == nil {
		logger = log.New(os.Stdout, "[PriceFeed] ", log.LstdFlags)
	}
	return &Refresher{source: source, writer: writer, retailers: retailers, logger: logger, now: time.Now}
}

// Refresh pulls every retailer once. A failing retailer is recorded and skipped.
func (r *Refresher) Refresh(ctx context.Context) (RefreshReport, error) {
	var report RefreshReport
	retailers := r.retailers
	if len(retailers) == 0 {
		var err error
		if retailers, err = r.source.Retailers(ctx); err != nil {
			return report, err
		}
	}

	for _, retailer := range retailers {
		observations, err := r.source.Fetch(ctx, retailer)
		if err != nil {
			r.logger.Printf("Fetching %s failed: %v", retailer, err)
			report.Failed = append(report.Failed, retailer)
			continue
		}
		report.Retailers++

		for _, obs := range observations {
			if obs.InStock != nil && !*obs.InStock {
				continue
			}
			if !obs.Price.IsPositive() {
				report.Rejected++
				continue
			}
			product, err := r.writer.FindByBrandModel(ctx, obs.Brand, obs.Model)
			if errors.Is(err, catalog.ErrProductNotFound) {
				report.Unmatched++
				continue
			}
			if err != nil {
				return report, err
			}

			observed := obs.ObservedAt
			if observed.IsZero() {
				observed = r.now()
			}
			entry := models.PriceEntry{
				ProductID:    product.ID,
				RetailerName: retailer,
				RetailerURL:  obs.URL,
				Price:        obs.Price,
				ObservedAt:   observed.UTC(),
			}
			if err := r.writer.AddPrice(ctx, &entry); err != nil {
				return report, fmt.Errorf("failed to record %s price for %s %s: %w", retailer, obs.Brand, obs.Model, err)
			}
			report.Added++
		}
	}

	r.logger.Printf("Refresh done: retailers=%d added=%d unmatched=%d rejected=%d failed=%v",
		report.Retailers, report.Added, report.Unmatched, report.Rejected, report.Failed)
	return report, nil
}
