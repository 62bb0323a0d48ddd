package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"pcbuilder/internal/app"
	"pcbuilder/internal/builds"
	"pcbuilder/internal/catalog"
	"pcbuilder/internal/config"
	"pcbuilder/internal/database"
	"pcbuilder/internal/notify"
	"pcbuilder/internal/pricedrop"
	"pcbuilder/internal/services/pricefeed"

	"github.com/joho/godotenv"
)

var (
	interval  = flag.Int("interval", 3600, "check interval in seconds")
	dbURL     = flag.String("db", "", "database DSN (defaults to DATABASE_URL)")
	logFile   = flag.String("log", "", "log file path")
	once      = flag.Bool("once", false, "run a single pass and exit")
	skipFeed  = flag.Bool("skip-feed", false, "do not pull retailer prices before checking builds")
	runBudget = flag.Duration("timeout", 10*time.Minute, "upper bound for one pass")
)

// PriceMonitor refreshes retailer prices and checks saved builds for drops.
type PriceMonitor struct {
	repo      *catalog.Repository
	detector  func(reader catalog.Reader) *pricedrop.Detector
	refresher *pricefeed.Refresher
	logger    *log.Logger

	passes   int
	failures int
}

func main() {
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}
	cfg := config.Load()

	var logWriter io.Writer = os.Stdout
	if *logFile != "" {
		f, err := os.OpenFile(*logFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			log.Fatalf("Failed to open log file: %v", err)
		}
		defer f.Close()
		logWriter = f
	}
	logger := log.New(logWriter, "[PriceMonitor] ", log.LstdFlags|log.Lshortfile)

	dsn := *dbURL
	if dsn == "" {
		dsn = cfg.DatabaseURL
	}
	db, err := database.Initialize(dsn, cfg.IsDevelopment())
	if err != nil {
		logger.Fatalf("Database initialization failed: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	locker, closeLocker, err := app.Locker(ctx, cfg, logger)
	if err != nil {
		logger.Fatalf("Lock setup failed: %v", err)
	}
	defer closeLocker()

	store := builds.NewStore(db)
	notifier := notify.Fanout{app.EmailNotifier(cfg, logger)}
	detectorOpts := app.DetectorOptions(cfg, locker, logger)

	monitor := &PriceMonitor{
		repo: catalog.NewRepository(db),
		detector: func(reader catalog.Reader) *pricedrop.Detector {
			return pricedrop.New(store, reader, notifier, detectorOpts...)
		},
		logger: logger,
	}
	if cfg.PriceFeedURL != "" && !*skipFeed {
		client := pricefeed.NewClient(cfg.PriceFeedURL, cfg.PriceFeedAPIKey)
		monitor.refresher = pricefeed.NewRefresher(client, monitor.repo, cfg.PriceFeedRetailers, logger)
	} else {
		logger.Printf("Price feed disabled, using prices already in the catalog")
	}

	logger.Printf("Price monitor started: interval=%ds threshold=%s cooldown=%s", *interval, cfg.DropThreshold, cfg.NotifyCooldown)

	if *once {
		if err := monitor.runOnce(ctx); err != nil {
			logger.Printf("Pass failed: %v", err)
			os.Exit(1)
		}
		return
	}
	monitor.runLoop(ctx)
}

// runOnce performs one refresh and detector pass.
func (pm *PriceMonitor) runOnce(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, *runBudget)
	defer cancel()
	pm.passes++

	if pm.refresher != nil {
		report, err := pm.refresher.Refresh(ctx)
		if err != nil {
			pm.failures++
			return fmt.Errorf("price refresh: %w", err)
		}
		if len(report.Failed) > 0 {
			pm.logger.Printf("Feed failures for %d retailers: %v", len(report.Failed), report.Failed)
		}
	}

	snap, err := pm.repo.LoadSnapshot(ctx)
	if err != nil {
		pm.failures++
		return err
	}
	report, err := pm.detector(snap).Run(ctx)
	if err != nil {
		pm.failures++
		return fmt.Errorf("price-drop run: %w", err)
	}
	if report.Failed > 0 {
		pm.failures++
	}
	return nil
}

// runLoop runs immediately, then on every tick until the context ends.
func (pm *PriceMonitor) runLoop(ctx context.Context) {
	ticker := time.NewTicker(time.Duration(*interval) * time.Second)
	defer ticker.Stop()

	pm.tick(ctx)
	for {
		select {
		case <-ticker.C:
			pm.tick(ctx)
		case <-ctx.Done():
			pm.logger.Printf("Price monitor stopped after %d passes (%d with failures)", pm.passes, pm.failures)
			return
		}
	}
}

func (pm *PriceMonitor) tick(ctx context.Context) {
	if err := pm.runOnce(ctx); err != nil {
		pm.logger.Printf("Pass failed: %v", err)
	}
}
