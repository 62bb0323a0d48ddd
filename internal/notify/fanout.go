package notify

import (
	"context"
	"errors"

	"pcbuilder/internal/models"
	"pcbuilder/internal/pricedrop"
)

// Fanout delivers to every notifier. Notifiers reporting ErrNotConfigured
// (including a hub with no recipients) are ignored; any other failure is
// returned so the build stays unstamped. When nothing delivered,
// ErrNotConfigured is returned.
type Fanout []pricedrop.Notifier

func (f Fanout) OnDropsDetected(ctx context.Context, build models.SavedBuild, drops []pricedrop.Drop) error {
	var errs []error
	delivered := 0
	for _, n := range f {
		err := n.OnDropsDetected(ctx, build, drops)
		switch {
		case err == nil:
			delivered++
		case errors.Is(err, ErrNotConfigured):
		default:
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	if delivered == 0 {
		return ErrNotConfigured
	}
	return nil
}
