package catalog

import (
	"testing"
	"time"

	"pcbuilder/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

var t0 = time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

func entry(id uint, price string, at time.Time) models.PriceEntry {
	return models.PriceEntry{ID: id, RetailerName: "shop", Price: decimal.RequireFromString(price), ObservedAt: at}
}

func TestResolvePrice(t *testing.T) {
	t.Run("latest observation wins", func(t *testing.T) {
		got, ok := ResolvePrice([]models.PriceEntry{
			entry(1, "80", t0),
			entry(2, "95", t0.Add(time.Hour)),
		})
		require.True(t, ok)
		assert.Equal(t, uint(2), got.ID)
	})

	t.Run("same timestamp picks the lower price", func(t *testing.T) {
		got, ok := ResolvePrice([]models.PriceEntry{
			entry(1, "120", t0),
			entry(2, "110", t0),
		})
		require.True(t, ok)
		assert.Equal(t, "110", got.Price.String())
	})

	t.Run("full tie picks the earliest entry", func(t *testing.T) {
		got, ok := ResolvePrice([]models.PriceEntry{
			entry(7, "110", t0),
			entry(3, "110", t0),
		})
		require.True(t, ok)
		assert.Equal(t, uint(3), got.ID)
	})

	t.Run("non-positive prices are ignored", func(t *testing.T) {
		got, ok := ResolvePrice([]models.PriceEntry{
			entry(1, "0", t0.Add(time.Hour)),
			entry(2, "-5", t0.Add(2 * time.Hour)),
			entry(3, "60", t0),
		})
		require.True(t, ok)
		assert.Equal(t, uint(3), got.ID)
	})

	t.Run("no entries", func(t *testing.T) {
		_, ok := ResolvePrice(nil)
		assert.False(t, ok)
	})
}

func TestSnapshot(t *testing.T) {
	snap := NewSnapshot([]models.Product{
		{ID: 1, Category: models.CategoryCPU, Name: "A", Prices: []models.PriceEntry{entry(1, "300", t0)}},
		{ID: 2, Category: models.CategoryCPU, Name: "B"},
		{ID: 3, Category: models.CategoryGPU, Name: "C", Prices: []models.PriceEntry{entry(2, "400", t0)}},
	})

	cpus := snap.ListByCategory(models.CategoryCPU)
	require.Len(t, cpus, 2)
	assert.Equal(t, "A", cpus[0].Name)
	assert.Nil(t, cpus[0].Prices)

	cpus[0].Name = "mutated"
	assert.Equal(t, "A", snap.ListByCategory(models.CategoryCPU)[0].Name)

	price, err := snap.PriceFor(1)
	require.NoError(t, err)
	assert.Equal(t, "300", price.Price.String())

	_, err = snap.PriceFor(2)
	assert.ErrorIs(t, err, ErrNoPrice)
	_, err = snap.PriceFor(99)
	assert.ErrorIs(t, err, ErrNoPrice)

	assert.Empty(t, snap.ListByCategory(models.CategoryMouse))
	assert.Equal(t, 3, snap.Len())
	assert.Equal(t, []CategoryCount{
		{Category: models.CategoryCPU, Products: 2, Priced: 1},
		{Category: models.CategoryGPU, Products: 1, Priced: 1},
	}, snap.Counts())
}

func product(id uint, category models.Category, specs datatypes.JSONMap) models.Product {
	return models.Product{ID: id, Category: category, Specs: specs}
}

func TestFilter(t *testing.T) {
	products := []models.Product{
		product(1, models.CategoryMotherboard, datatypes.JSONMap{"socket": "AM5", "ram_type": "DDR5", "form_factor": "ATX"}),
		product(2, models.CategoryMotherboard, datatypes.JSONMap{"socket": "LGA1700", "ram_type": "DDR4"}),
		product(3, models.CategoryMotherboard, datatypes.JSONMap{"ram_type": "DDR5"}),
		product(4, models.CategoryRAM, datatypes.JSONMap{"ram_type": "DDR5"}),
		product(5, models.CategoryRAM, datatypes.JSONMap{"ram_type": "DDR4"}),
		product(6, models.CategoryCase, datatypes.JSONMap{"form_factor": "ATX Mid Tower"}),
		product(7, models.CategoryCase, datatypes.JSONMap{"form_factor": "Mini ITX"}),
		product(8, models.CategoryStorage, datatypes.JSONMap{"type": "ssd"}),
		product(9, models.CategoryStorage, datatypes.JSONMap{"type": "HDD"}),
		product(10, models.CategoryGPU, nil),
	}

	ids := func(ps []models.Product) []uint {
		out := []uint{}
		for _, p := range ps {
			out = append(out, p.ID)
		}
		return out
	}

	t.Run("socket match for motherboards", func(t *testing.T) {
		got := Filter(products, models.CategoryMotherboard, Constraints{Socket: "AM5"})
		assert.Equal(t, []uint{1}, ids(got))
	})

	t.Run("no constraint keeps everything in the category", func(t *testing.T) {
		got := Filter(products, models.CategoryMotherboard, Constraints{})
		assert.Equal(t, []uint{1, 2, 3}, ids(got))
	})

	t.Run("ram type match", func(t *testing.T) {
		got := Filter(products, models.CategoryRAM, Constraints{RAMType: "DDR4", Socket: "AM5"})
		assert.Equal(t, []uint{5}, ids(got))
	})

	t.Run("atx board excludes mini itx cases", func(t *testing.T) {
		got := Filter(products, models.CategoryCase, Constraints{FormFactor: "ATX"})
		assert.Equal(t, []uint{6}, ids(got))
	})

	t.Run("other board form factors are not checked", func(t *testing.T) {
		got := Filter(products, models.CategoryCase, Constraints{FormFactor: "Micro-ATX"})
		assert.Equal(t, []uint{6, 7}, ids(got))
	})

	t.Run("storage type is case-insensitive", func(t *testing.T) {
		got := Filter(products, models.CategoryStorage, Constraints{StorageType: "SSD"})
		assert.Equal(t, []uint{8}, ids(got))
	})

	t.Run("unconstrained categories pass through", func(t *testing.T) {
		got := Filter(products, models.CategoryGPU, Constraints{Socket: "AM5", RAMType: "DDR5"})
		assert.Equal(t, []uint{10}, ids(got))
	})
}
