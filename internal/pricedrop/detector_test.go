package pricedrop

import (
	"context"
	"errors"
	"io"
	"log"
	"sync"
	"testing"
	"time"

	"pcbuilder/internal/catalog"
	"pcbuilder/internal/lock"
	"pcbuilder/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2024, 6, 10, 12, 0, 0, 0, time.UTC)

type fakeStore struct {
	mu       sync.Mutex
	builds   []models.SavedBuild
	updated  []models.BuildPart
	notified map[uint]time.Time
	listErr  error
}

func (s *fakeStore) ListSavedBuilds(context.Context) ([]models.SavedBuild, error) {
	return s.builds, s.listErr
}

func (s *fakeStore) UpdatePartPrices(_ context.Context, parts []models.BuildPart) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.updated = append(s.updated, parts...)
	return nil
}

// stamp returns the build's live notified_at: the last claim, or the stamp
// the build was listed with.
func (s *fakeStore) stamp(id uint) *time.Time {
	if at, ok := s.notified[id]; ok {
		return &at
	}
	for _, b := range s.builds {
		if b.ID == id {
			return b.NotifiedAt
		}
	}
	return nil
}

func (s *fakeStore) ClaimNotification(_ context.Context, id uint, at time.Time, cooldown time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if prev := s.stamp(id); prev != nil && !prev.Before(at.Add(-cooldown)) {
		return false, nil
	}
	if s.notified == nil {
		s.notified = map[uint]time.Time{}
	}
	s.notified[id] = at
	return true, nil
}

func (s *fakeStore) ReleaseNotification(_ context.Context, id uint, at time.Time, previous *time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cur, ok := s.notified[id]; !ok || !cur.Equal(at) {
		return nil
	}
	delete(s.notified, id)
	if previous != nil {
		if listed := s.stamp(id); listed == nil || !listed.Equal(*previous) {
			s.notified[id] = *previous
		}
	}
	return nil
}

type fakeNotifier struct {
	calls [][]Drop
	err   error
}

func (n *fakeNotifier) OnDropsDetected(_ context.Context, _ models.SavedBuild, drops []Drop) error {
	n.calls = append(n.calls, drops)
	return n.err
}

// priced builds a snapshot where product i+1 currently costs prices[i].
func priced(prices ...string) *catalog.Snapshot {
	products := make([]models.Product, 0, len(prices))
	for i, p := range prices {
		id := uint(i + 1)
		products = append(products, models.Product{
			ID: id, Name: "product", Category: models.CategoryGPU,
			Prices: []models.PriceEntry{{ID: id, ProductID: id, RetailerName: "newegg.com", RetailerURL: "https://www.newegg.com/p", Price: decimal.RequireFromString(p), ObservedAt: now.Add(-time.Hour)}},
		})
	}
	return catalog.NewSnapshot(products)
}

func buildWith(id uint, notifiedAt *time.Time, recommended ...string) models.SavedBuild {
	b := models.SavedBuild{ID: id, NotifiedAt: notifiedAt, User: models.User{Email: "owner@example.com"}}
	for i, r := range recommended {
		b.Parts = append(b.Parts, models.BuildPart{
			ID: uint(i + 1), SavedBuildID: id, ProductID: uint(i + 1), Category: models.CategoryGPU,
			RecommendedPrice: decimal.RequireFromString(r),
		})
	}
	return b
}

func newDetector(store Store, reader catalog.Reader, n Notifier, opts ...Option) *Detector {
	opts = append([]Option{WithClock(func() time.Time { return now }), WithLogger(log.New(io.Discard, "", 0))}, opts...)
	return New(store, reader, n, opts...)
}

func ago(d time.Duration) *time.Time {
	t := now.Add(-d)
	return &t
}

func TestIsDrop(t *testing.T) {
	threshold := decimal.RequireFromString("0.05")
	tests := []struct {
		recommended, current string
		want                 bool
	}{
		{"100", "90", true},
		{"100", "96", false},
		{"100", "95", false},
		{"100", "94.99", true},
		{"100", "100", false},
		{"100", "120", false},
	}
	for _, tt := range tests {
		t.Run(tt.recommended+"->"+tt.current, func(t *testing.T) {
			got := IsDrop(decimal.RequireFromString(tt.recommended), decimal.RequireFromString(tt.current), threshold)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRunFlagsDropAndNotifiesOnce(t *testing.T) {
	store := &fakeStore{builds: []models.SavedBuild{buildWith(1, nil, "100", "200", "50")}}
	notifier := &fakeNotifier{}

	// part 1 drops 10%, part 2 drops 4%, part 3 drops 20%
	report, err := newDetector(store, priced("90", "192", "40"), notifier).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, report.BuildsChecked)
	assert.Equal(t, 3, report.PartsUpdated)
	assert.Equal(t, 2, report.DropsFound)
	assert.Equal(t, 1, report.Notified)
	assert.NotEmpty(t, report.RunID)

	require.Len(t, notifier.calls, 1)
	drops := notifier.calls[0]
	require.Len(t, drops, 2)
	assert.Equal(t, "10", drops[0].Saving().String())
	assert.Equal(t, "newegg.com", drops[0].Retailer)
	assert.Equal(t, uint(3), drops[1].Part.ProductID)

	assert.Equal(t, now, store.notified[1])
	require.Len(t, store.updated, 3)
	assert.Equal(t, "192", store.updated[1].CurrentPrice.String())
	assert.Equal(t, "newegg.com", store.updated[1].LowestPriceRetailer)
}

func TestRunSmallDropIsNotFlagged(t *testing.T) {
	store := &fakeStore{builds: []models.SavedBuild{buildWith(1, nil, "100")}}
	notifier := &fakeNotifier{}

	report, err := newDetector(store, priced("96"), notifier).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, report.DropsFound)
	assert.Empty(t, notifier.calls)
	assert.Empty(t, store.notified)
	// the snapshot is still refreshed
	require.Len(t, store.updated, 1)
	assert.Equal(t, "96", store.updated[0].CurrentPrice.String())
}

func TestRunCooldown(t *testing.T) {
	t.Run("notified an hour ago", func(t *testing.T) {
		store := &fakeStore{builds: []models.SavedBuild{buildWith(1, ago(time.Hour), "100")}}
		notifier := &fakeNotifier{}

		report, err := newDetector(store, priced("90"), notifier).Run(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 1, report.DropsFound)
		assert.Equal(t, 0, report.Notified)
		assert.Empty(t, notifier.calls)
		assert.Empty(t, store.notified)
	})

	t.Run("notified 25 hours ago", func(t *testing.T) {
		store := &fakeStore{builds: []models.SavedBuild{buildWith(1, ago(25*time.Hour), "100")}}
		notifier := &fakeNotifier{}

		report, err := newDetector(store, priced("90"), notifier).Run(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 1, report.Notified)
		assert.Len(t, notifier.calls, 1)
		assert.Equal(t, now, store.notified[1])
	})

	t.Run("custom cooldown", func(t *testing.T) {
		store := &fakeStore{builds: []models.SavedBuild{buildWith(1, ago(2*time.Hour), "100")}}
		notifier := &fakeNotifier{}

		_, err := newDetector(store, priced("90"), notifier, WithCooldown(time.Hour)).Run(context.Background())
		require.NoError(t, err)
		assert.Len(t, notifier.calls, 1)
	})
}

func TestRunNotifierFailureKeepsCooldownOpen(t *testing.T) {
	store := &fakeStore{builds: []models.SavedBuild{buildWith(1, nil, "100")}}
	notifier := &fakeNotifier{err: errors.New("smtp down")}

	report, err := newDetector(store, priced("90"), notifier).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, report.Notified)
	assert.Len(t, notifier.calls, 1)
	assert.Empty(t, store.notified)
	assert.Len(t, store.updated, 1)
}

func TestRunSkipsUnpricedParts(t *testing.T) {
	build := buildWith(1, nil, "100", "100")
	build.Parts[1].ProductID = 42
	store := &fakeStore{builds: []models.SavedBuild{build}}

	report, err := newDetector(store, priced("90"), &fakeNotifier{}).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.PartsUpdated)
	assert.Equal(t, 1, report.DropsFound)
}

func TestRunSkipsLockedBuilds(t *testing.T) {
	locker := lock.NewLocalLocker()
	release, err := locker.Acquire(context.Background(), "pricedrop:build:1", time.Minute)
	require.NoError(t, err)
	defer release()

	store := &fakeStore{builds: []models.SavedBuild{buildWith(1, nil, "100"), buildWith(2, nil, "100")}}
	notifier := &fakeNotifier{}

	report, err := newDetector(store, priced("90"), notifier, WithLocker(locker)).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.Skipped)
	assert.Equal(t, 1, report.BuildsChecked)
	assert.Len(t, notifier.calls, 1)
	_, stamped := store.notified[1]
	assert.False(t, stamped)
	assert.Contains(t, store.notified, uint(2))
}

// staleListStore hands out the builds as they were listed, then lets
// another pass run before the caller gets to them.
type staleListStore struct {
	*fakeStore
	afterList func()
}

func (s *staleListStore) ListSavedBuilds(ctx context.Context) ([]models.SavedBuild, error) {
	builds, err := s.fakeStore.ListSavedBuilds(ctx)
	listed := append([]models.SavedBuild(nil), builds...)
	if f := s.afterList; f != nil {
		s.afterList = nil
		f()
	}
	return listed, err
}

func TestOverlappingRunsNotifyOnce(t *testing.T) {
	shared := &fakeStore{builds: []models.SavedBuild{buildWith(1, ago(30*time.Hour), "100")}}
	locker := lock.NewLocalLocker()
	notifier := &fakeNotifier{}

	var first Report
	store := &staleListStore{fakeStore: shared, afterList: func() {
		var err error
		first, err = newDetector(shared, priced("90"), notifier, WithLocker(locker)).Run(context.Background())
		require.NoError(t, err)
	}}

	second, err := newDetector(store, priced("90"), notifier, WithLocker(locker)).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, first.Notified)
	assert.Equal(t, 0, second.Notified)
	assert.Equal(t, 1, second.DropsFound)
	assert.Len(t, notifier.calls, 1)
	assert.Equal(t, now, shared.notified[1])
}

func TestRunNotifierFailureRestoresPreviousStamp(t *testing.T) {
	store := &fakeStore{builds: []models.SavedBuild{buildWith(1, ago(30*time.Hour), "100")}}
	failing := &fakeNotifier{err: errors.New("smtp down")}

	report, err := newDetector(store, priced("90"), failing).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, report.Notified)
	assert.Empty(t, store.notified)

	// the next run is free to try again
	ok := &fakeNotifier{}
	report, err = newDetector(store, priced("90"), ok).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.Notified)
	assert.Len(t, ok.calls, 1)
}

func TestRunThreshold(t *testing.T) {
	store := &fakeStore{builds: []models.SavedBuild{buildWith(1, nil, "100")}}
	notifier := &fakeNotifier{}

	report, err := newDetector(store, priced("90"), notifier, WithThreshold(decimal.RequireFromString("0.15"))).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, report.DropsFound)
}

func TestRunListFailure(t *testing.T) {
	store := &fakeStore{listErr: errors.New("db gone")}
	_, err := newDetector(store, priced(), &fakeNotifier{}).Run(context.Background())
	assert.ErrorContains(t, err, "db gone")
}
