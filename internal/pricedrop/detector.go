package pricedrop

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"pcbuilder/internal/catalog"
	"pcbuilder/internal/lock"
	"pcbuilder/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Store is the persistence the detector reads and updates.
type Store interface {
	ListSavedBuilds(ctx context.Context) ([]models.SavedBuild, error)
	UpdatePartPrices(ctx context.Context, parts []models.BuildPart) error
	// ClaimNotification stamps notified_at with at only when the current
	// stamp is empty or older than cooldown, and reports whether it did.
	ClaimNotification(ctx context.Context, buildID uint, at time.Time, cooldown time.Duration) (bool, error)
	// ReleaseNotification puts previous back if the stamp is still at.
	ReleaseNotification(ctx context.Context, buildID uint, at time.Time, previous *time.Time) error
}

// Notifier receives all drops of one build in a single call.
type Notifier interface {
	OnDropsDetected(ctx context.Context, build models.SavedBuild, drops []Drop) error
}

// Drop is one part whose price fell materially below its recommended price.
type Drop struct {
	Part        models.BuildPart `json:"-"`
	Category    models.Category  `json:"category"`
	ProductName string           `json:"product_name"`
	OldPrice    decimal.Decimal  `json:"old_price"`
	NewPrice    decimal.Decimal  `json:"new_price"`
	Retailer    string           `json:"retailer"`
	URL         string           `json:"url"`
}

func (d Drop) Saving() decimal.Decimal { return d.OldPrice.Sub(d.NewPrice) }

// Report summarises one detector pass.
type Report struct {
	RunID         string `json:"run_id"`
	BuildsChecked int    `json:"builds_checked"`
	PartsUpdated  int    `json:"parts_updated"`
	DropsFound    int    `json:"drops_found"`
	Notified      int    `json:"notified"`
	Skipped       int    `json:"skipped"`
	Failed        int    `json:"failed"`
}

// IsDrop reports whether current is strictly below recommended by more than
// threshold x recommended.
func IsDrop(recommended, current, threshold decimal.Decimal) bool {
	if !current.LessThan(recommended) {
		return false
	}
	return recommended.Sub(current).GreaterThan(recommended.Mul(threshold))
}

type Detector struct {
	store     Store
	reader    catalog.Reader
	notifier  Notifier
	locker    lock.Locker
	now       func() time.Time
	cooldown  time.Duration
	threshold decimal.Decimal
	lockTTL   time.Duration
	logger    *log.Logger
}

type Option func(*Detector)

func WithLocker(l lock.Locker) Option { return func(d *Detector) { d.locker = l } }

func WithClock(now func() time.Time) Option { return func(d *Detector) { d.now = now } }

// WithCooldown sets the minimum time between two alerts for the same build.
func WithCooldown(c time.Duration) Option { return func(d *Detector) { d.cooldown = c } }

// WithThreshold sets the relative drop that must be exceeded, e.g. 0.05.
func WithThreshold(t decimal.Decimal) Option { return func(d *Detector) { d.threshold = t } }

func WithLogger(l *log.Logger) Option { return func(d *Detector) { d.logger = l } }

func New(store Store, reader catalog.Reader, notifier Notifier, opts ...Option) *Detector {
	d := &Detector{
		store:     store,
		reader:    reader,
		notifier:  notifier,
		locker:    lock.NewLocalLocker(),
		now:       time.Now,
		cooldown:  24 * time.Hour,
		threshold: decimal.RequireFromString("0.05"),
		lockTTL:   5 * time.Minute,
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.logger == nil {
		d.logger = log.New(os.Stdout, "[PriceDrop] ", log.LstdFlags)
	}
	return d
}

// Run checks every saved build once. Failures on one build are logged and
// counted; the pass continues with the next build.
func (d *Detector) Run(ctx context.Context) (Report, error) {
	report := Report{RunID: uuid.NewString()}
	builds, err := d.store.ListSavedBuilds(ctx)
	if err != nil {
		return report, fmt.Errorf("failed to list saved builds: %w", err)
	}
	d.logger.Printf("Run %s: checking %d saved builds", report.RunID, len(builds))

	for _, build := range builds {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		res, err := d.checkBuild(ctx, build)
		switch {
		case errors.Is(err, lock.ErrLocked):
			d.logger.Printf("Build %d is being checked elsewhere, skipping", build.ID)
			report.Skipped++
			continue
		case err != nil:
			d.logger.Printf("Build %d failed: %v", build.ID, err)
			report.Failed++
			continue
		}
		report.BuildsChecked++
		report.PartsUpdated += res.updated
		report.DropsFound += res.drops
		if res.notified {
			report.Notified++
		}
	}

	d.logger.Printf("Run %s done: checked=%d updated=%d drops=%d notified=%d skipped=%d failed=%d",
		report.RunID, report.BuildsChecked, report.PartsUpdated, report.DropsFound, report.Notified, report.Skipped, report.Failed)
	return report, nil
}

type buildResult struct {
	updated  int
	drops    int
	notified bool
}

func (d *Detector) checkBuild(ctx context.Context, build models.SavedBuild) (buildResult, error) {
	var res buildResult
	release, err := d.locker.Acquire(ctx, fmt.Sprintf("pricedrop:build:%d", build.ID), d.lockTTL)
	if err != nil {
		return res, err
	}
	defer release()

	updates := make([]models.BuildPart, 0, len(build.Parts))
	var drops []Drop
	for _, part := range build.Parts {
		entry, err := d.reader.PriceFor(part.ProductID)
		if err != nil {
			if !errors.Is(err, catalog.ErrNoPrice) {
				d.logger.Printf("Price lookup for product %d failed: %v", part.ProductID, err)
			}
			continue
		}
		price := entry.Price
		part.CurrentPrice = &price
		part.LowestPriceRetailer = entry.RetailerName
		part.LowestPriceURL = entry.RetailerURL
		updates = append(updates, part)

		if IsDrop(part.RecommendedPrice, price, d.threshold) {
			drops = append(drops, Drop{
				Part:        part,
				Category:    part.Category,
				ProductName: part.Product.Name,
				OldPrice:    part.RecommendedPrice,
				NewPrice:    price,
				Retailer:    entry.RetailerName,
				URL:         entry.RetailerURL,
			})
		}
	}

	if err := d.store.UpdatePartPrices(ctx, updates); err != nil {
		return res, err
	}
	res.updated = len(updates)
	res.drops = len(drops)
	if len(drops) == 0 {
		return res, nil
	}

	now := d.now()
	if !build.CooldownElapsed(now, d.cooldown) {
		d.logger.Printf("Build %d has %d drops but was notified at %s, within cooldown", build.ID, len(drops), build.NotifiedAt.Format(time.RFC3339))
		return res, nil
	}
	// The listed build may be stale; another run could have notified it
	// since. The claim re-checks the cooldown against the stored stamp.
	claimed, err := d.store.ClaimNotification(ctx, build.ID, now, d.cooldown)
	if err != nil {
		return res, err
	}
	if !claimed {
		d.logger.Printf("Build %d has %d drops but another run already notified it, within cooldown", build.ID, len(drops))
		return res, nil
	}
	if err := d.notifier.OnDropsDetected(ctx, build, drops); err != nil {
		d.logger.Printf("Notification for build %d failed: %v", build.ID, err)
		// Undo the claim so the next run retries.
		if err := d.store.ReleaseNotification(ctx, build.ID, now, build.NotifiedAt); err != nil {
			return res, err
		}
		return res, nil
	}
	res.notified = true
	d.logger.Printf("Notified %s about %d drops on build %d", build.User.Email, len(drops), build.ID)
	return res, nil
}
