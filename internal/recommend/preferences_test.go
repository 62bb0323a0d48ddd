package recommend

import (
	"encoding/json"
	"strings"
	"testing"

	"pcbuilder/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePreferences(t *testing.T) {
	t.Run("full record", func(t *testing.T) {
		var raw map[string]interface{}
		require.NoError(t, json.Unmarshal([]byte(`{
			"budget": 1500,
			"use_case": "Gaming",
			"aesthetic": " white ",
			"monitor": true,
			"mouse": "true",
			"monitor_resolution": "1440p",
			"monitor_refresh_rate": 165
		}`), &raw))

		p, err := ParsePreferences(raw)
		require.NoError(t, err)
		assert.True(t, decimal.NewFromInt(1500).Equal(p.Budget))
		assert.Equal(t, UseCaseGaming, p.UseCase)
		assert.Equal(t, "white", p.Aesthetic)
		assert.True(t, p.Monitor)
		assert.False(t, p.Keyboard)
		assert.True(t, p.Mouse)
		assert.Equal(t, "1440p", p.MonitorResolution)
		assert.Equal(t, 165, p.MonitorRefreshRate)
	})

	t.Run("budget as string", func(t *testing.T) {
		p, err := ParsePreferences(map[string]interface{}{"budget": "$1,250.50"})
		require.NoError(t, err)
		assert.Equal(t, "1250.5", p.Budget.String())
		assert.Equal(t, UseCaseGeneral, p.UseCase)
	})

	t.Run("missing budget is left for the allocator", func(t *testing.T) {
		p, err := ParsePreferences(map[string]interface{}{"use_case": "streaming"})
		require.NoError(t, err)
		assert.True(t, p.Budget.IsZero())
		assert.Equal(t, UseCaseStreaming, p.UseCase)
	})

	t.Run("invalid values", func(t *testing.T) {
		_, err := ParsePreferences(map[string]interface{}{"budget": "lots"})
		assert.ErrorContains(t, err, "budget")

		_, err = ParsePreferences(map[string]interface{}{"use_case": "mining"})
		assert.ErrorContains(t, err, "use_case")

		_, err = ParsePreferences(map[string]interface{}{"keyboard": 3})
		assert.ErrorContains(t, err, "keyboard")
	})
}

func TestPreferencesWants(t *testing.T) {
	p := Preferences{Keyboard: true}
	for _, c := range models.MandatoryCategories {
		assert.True(t, p.Wants(c), "%s", c)
	}
	assert.True(t, p.Wants(models.CategoryCase))
	assert.True(t, p.Wants(models.CategoryKeyboard))
	assert.False(t, p.Wants(models.CategoryMonitor))
	assert.False(t, p.Wants(models.CategoryMouse))
}

func TestPreferencesMapRoundTrip(t *testing.T) {
	in := Preferences{
		Budget:             decimal.RequireFromString("999.99"),
		UseCase:            UseCaseProductivity,
		Aesthetic:          "minimalist",
		Keyboard:           true,
		MonitorRefreshRate: 144,
	}
	out, err := ParsePreferences(in.Map())
	require.NoError(t, err)
	assert.True(t, in.Budget.Equal(out.Budget))
	out.Budget = in.Budget
	assert.Equal(t, in, out)
}

func TestFractions(t *testing.T) {
	assert.Equal(t, Range{0.50, 0.65}, FractionRange(UseCaseGaming, models.CategoryGPU))
	assert.Equal(t, Range{0.30, 0.45}, FractionRange(UseCaseGeneral, models.CategoryGPU))
	assert.Equal(t, Range{0.25, 0.40}, FractionRange(UseCaseProductivity, models.CategoryCPU))
	assert.Equal(t, Range{0.20, 0.35}, FractionRange(UseCaseGaming, models.CategoryCPU))

	assert.InDelta(t, 0.575, Midpoint{}.Fraction(Range{0.50, 0.65}), 1e-9)

	r1, r2 := NewRandom(7), NewRandom(7)
	for i := 0; i < 100; i++ {
		f := r1.Fraction(Range{0.2, 0.35})
		assert.GreaterOrEqual(t, f, 0.2)
		assert.Less(t, f, 0.35)
		assert.Equal(t, f, r2.Fraction(Range{0.2, 0.35}))
	}
}

func TestBuildResultSummary(t *testing.T) {
	result, err := reference().allocator().Recommend(gaming(1200))
	require.NoError(t, err)

	summary := result.Summary()
	assert.True(t, strings.HasPrefix(summary, "Here's a gaming build for your $1200.00 budget:"))
	assert.Contains(t, summary, "- CPU: Ryzen 7 7800X3D ($300.00 at amazon.com)")
	assert.Contains(t, summary, "Total: $1150.00 ($50.00 left over)")
	assert.Len(t, result.OrderedParts(), 7)
}

func TestInfeasibleErrorMessage(t *testing.T) {
	err := &InfeasibleError{Category: models.CategoryGPU}
	assert.Equal(t, "no feasible build: no GPU", err.Error())

	err = &InfeasibleError{Reason: "total exceeds budget"}
	assert.Equal(t, "no feasible build (total exceeds budget)", err.Error())
}
