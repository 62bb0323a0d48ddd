// Package app turns a Config into the components shared by the server and
// the command-line tools.
package app

import (
	"context"
	"log"
	"strings"

	"pcbuilder/internal/config"
	"pcbuilder/internal/lock"
	"pcbuilder/internal/notify"
	"pcbuilder/internal/pricedrop"
	"pcbuilder/internal/recommend"
)

// Fractions picks the allocation fraction source. Anything other than
// "midpoint" draws uniformly inside each range.
func Fractions(cfg *config.Config) recommend.FractionSource {
	if strings.EqualFold(cfg.AllocationMode, "midpoint") {
		return recommend.Midpoint{}
	}
	return recommend.NewRandom(cfg.AllocationSeed)
}

func AllocatorOptions(cfg *config.Config, logger *log.Logger) []recommend.Option {
	opts := []recommend.Option{
		recommend.WithFractions(Fractions(cfg)),
		recommend.WithMinPSUWattage(cfg.MinPSUWattage),
		recommend.WithStrictCase(cfg.StrictCase),
	}
	if logger != nil {
		opts = append(opts, recommend.WithLogger(logger))
	}
	return opts
}

// Locker returns a Redis locker when REDIS_URL is set, otherwise an
// in-process one. The returned close func is never nil.
func Locker(ctx context.Context, cfg *config.Config, logger *log.Logger) (lock.Locker, func(), error) {
	if logger == nil {
		logger = log.Default()
	}
	if cfg.RedisURL == "" {
		logger.Printf("REDIS_URL not set, using in-process build locks")
		return lock.NewLocalLocker(), func() {}, nil
	}
	l, err := lock.NewRedisLockerFromURL(ctx, cfg.RedisURL)
	if err != nil {
		return nil, func() {}, err
	}
	logger.Printf("Using Redis build locks")
	return l, func() { l.Close() }, nil
}

func EmailNotifier(cfg *config.Config, logger *log.Logger) *notify.EmailNotifier {
	return notify.NewEmailNotifier(notify.EmailConfig{
		Host:     cfg.EmailHost,
		Port:     cfg.EmailPort,
		Username: cfg.EmailUser,
		Password: cfg.EmailPassword,
		From:     cfg.FromEmail,
	}, logger)
}

func DetectorOptions(cfg *config.Config, locker lock.Locker, logger *log.Logger) []pricedrop.Option {
	opts := []pricedrop.Option{
		pricedrop.WithLocker(locker),
		pricedrop.WithCooldown(cfg.NotifyCooldown),
		pricedrop.WithThreshold(cfg.DropThreshold),
	}
	if logger != nil {
		opts = append(opts, pricedrop.WithLogger(logger))
	}
	return opts
}
