package models

import (
	"encoding/json"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"gorm.io/datatypes"
)

func TestSpecAccessors(t *testing.T) {
	p := Product{
		Category: CategoryCPU,
		Specs: datatypes.JSONMap{
			SpecSocket:  "AM5",
			SpecTDP:     float64(105),
			"cores":     json.Number("8"),
			"boost_ghz": "5.4",
			"blank":     "   ",
			"bad":       math.NaN(),
			"flag":      true,
		},
	}

	socket, ok := p.Socket()
	assert.True(t, ok)
	assert.Equal(t, "AM5", socket)

	tdp, ok := p.TDP()
	assert.True(t, ok)
	assert.Equal(t, 105, tdp)

	cores, ok := p.SpecInt("cores")
	assert.True(t, ok)
	assert.Equal(t, 8, cores)

	boost, ok := p.SpecInt("boost_ghz")
	assert.True(t, ok)
	assert.Equal(t, 5, boost)

	_, ok = p.SpecString("blank")
	assert.False(t, ok)
	_, ok = p.SpecInt("bad")
	assert.False(t, ok)
	_, ok = p.SpecInt("flag")
	assert.False(t, ok)
	_, ok = p.SpecString(SpecTDP)
	assert.False(t, ok)
	_, ok = p.RAMType()
	assert.False(t, ok)
}

func TestResolution(t *testing.T) {
	p := Product{Specs: datatypes.JSONMap{SpecResolutionWidth: 2560, SpecResolutionHeight: 1440}}
	w, h, ok := p.Resolution()
	assert.True(t, ok)
	assert.Equal(t, 2560, w)
	assert.Equal(t, 1440, h)

	p = Product{Specs: datatypes.JSONMap{SpecResolutionWidth: 2560}}
	_, _, ok = p.Resolution()
	assert.False(t, ok)
}

func TestMissingSpecs(t *testing.T) {
	tests := []struct {
		name    string
		product Product
		want    []string
	}{
		{"complete cpu", Product{Category: CategoryCPU, Specs: datatypes.JSONMap{SpecSocket: "AM5", SpecTDP: 65}}, nil},
		{"cpu without tdp", Product{Category: CategoryCPU, Specs: datatypes.JSONMap{SpecSocket: "AM5"}}, []string{SpecTDP}},
		{"motherboard without anything", Product{Category: CategoryMotherboard}, []string{SpecSocket, SpecRAMType}},
		{"ram with string capacity", Product{Category: CategoryRAM, Specs: datatypes.JSONMap{SpecRAMType: "DDR5", SpecCapacityGB: "32"}}, nil},
		{"psu without wattage", Product{Category: CategoryPSU, Specs: datatypes.JSONMap{}}, []string{SpecWattage}},
		{"peripherals need nothing", Product{Category: CategoryMouse}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.product.MissingSpecs())
		})
	}
}

func TestTags(t *testing.T) {
	p := Product{AestheticTags: " RGB, white,rgb ,, minimal"}
	assert.Equal(t, []string{"RGB", "minimal", "white"}, p.Tags())
	assert.True(t, p.HasTag("Rgb"))
	assert.True(t, p.HasTag("WHITE"))
	assert.False(t, p.HasTag("black"))
	assert.False(t, p.HasTag(""))
	assert.Empty(t, Product{}.Tags())
}

func TestParseCategory(t *testing.T) {
	c, ok := ParseCategory(" motherboard ")
	assert.True(t, ok)
	assert.Equal(t, CategoryMotherboard, c)

	c, ok = ParseCategory("PSU")
	assert.True(t, ok)
	assert.Equal(t, CategoryPSU, c)

	_, ok = ParseCategory("cooler")
	assert.False(t, ok)

	assert.True(t, CategoryKeyboard.IsPeripheral())
	assert.False(t, CategoryCase.IsPeripheral())
}

func TestCooldownElapsed(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	assert.True(t, SavedBuild{}.CooldownElapsed(now, 24*time.Hour))

	recent := now.Add(-time.Hour)
	assert.False(t, SavedBuild{NotifiedAt: &recent}.CooldownElapsed(now, 24*time.Hour))

	old := now.Add(-25 * time.Hour)
	assert.True(t, SavedBuild{NotifiedAt: &old}.CooldownElapsed(now, 24*time.Hour))
}

func TestDisplayName(t *testing.T) {
	assert.Equal(t, "there", User{}.DisplayName())
	assert.Equal(t, "Ana", User{Name: "Ana"}.DisplayName())
}
