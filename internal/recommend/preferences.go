package recommend

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"pcbuilder/internal/models"

	"github.com/shopspring/decimal"
)

// UseCase steers budget fractions and CPU/GPU ranking.
type UseCase string

const (
	UseCaseGaming       UseCase = "gaming"
	UseCaseProductivity UseCase = "productivity"
	UseCaseStreaming    UseCase = "streaming"
	UseCaseGeneral      UseCase = "general"
)

// ParseUseCase accepts the known use cases case-insensitively; blank means general.
func ParseUseCase(s string) (UseCase, error) {
	switch u := UseCase(strings.ToLower(strings.TrimSpace(s))); u {
	case "":
		return UseCaseGeneral, nil
	case UseCaseGaming, UseCaseProductivity, UseCaseStreaming, UseCaseGeneral:
		return u, nil
	}
	return "", fmt.Errorf("unknown use_case %q", s)
}

// Preferences is the per-request preference record.
type Preferences struct {
	Budget             decimal.Decimal `json:"budget"`
	UseCase            UseCase         `json:"use_case"`
	Aesthetic          string          `json:"aesthetic,omitempty"`
	Monitor            bool            `json:"monitor"`
	Keyboard           bool            `json:"keyboard"`
	Mouse              bool            `json:"mouse"`
	MonitorResolution  string          `json:"monitor_resolution,omitempty"`
	MonitorRefreshRate int             `json:"monitor_refresh_rate,omitempty"`
}

// Wants reports whether the build should include category c. Core parts are
// always wanted; peripherals only when their flag is set.
func (p Preferences) Wants(c models.Category) bool {
	if !c.IsPeripheral() {
		return true
	}
	switch c {
	case models.CategoryMonitor:
		return p.Monitor
	case models.CategoryKeyboard:
		return p.Keyboard
	case models.CategoryMouse:
		return p.Mouse
	}
	return false
}

// ParsePreferences converts the mapping produced by the preference extraction
// service. A missing budget is not an error here; the allocator reports it.
func ParsePreferences(raw map[string]interface{}) (Preferences, error) {
	var p Preferences
	var err error

	if v, ok := raw["budget"]; ok && v != nil {
		if p.Budget, err = toDecimal(v); err != nil {
			return p, fmt.Errorf("invalid budget: %w", err)
		}
	}
	useCase, _ := raw["use_case"].(string)
	if p.UseCase, err = ParseUseCase(useCase); err != nil {
		return p, err
	}
	if v, ok := raw["aesthetic"].(string); ok {
		p.Aesthetic = strings.TrimSpace(v)
	}
	for key, dst := range map[string]*bool{"monitor": &p.Monitor, "keyboard": &p.Keyboard, "mouse": &p.Mouse} {
		if *dst, err = toBool(raw[key]); err != nil {
			return p, fmt.Errorf("invalid %s: %w", key, err)
		}
	}
	if v, ok := raw["monitor_resolution"].(string); ok {
		p.MonitorResolution = strings.TrimSpace(v)
	}
	if v, ok := raw["monitor_refresh_rate"]; ok && v != nil {
		rate, err := toDecimal(v)
		if err != nil {
			return p, fmt.Errorf("invalid monitor_refresh_rate: %w", err)
		}
		p.MonitorRefreshRate = int(rate.IntPart())
	}
	return p, nil
}

// Map is the inverse of ParsePreferences, used when persisting a build.
func (p Preferences) Map() map[string]interface{} {
	m := map[string]interface{}{
		"budget":   p.Budget.String(),
		"use_case": string(p.UseCase),
		"monitor":  p.Monitor,
		"keyboard": p.Keyboard,
		"mouse":    p.Mouse,
	}
	if p.Aesthetic != "" {
		m["aesthetic"] = p.Aesthetic
	}
	if p.MonitorResolution != "" {
		m["monitor_resolution"] = p.MonitorResolution
	}
	if p.MonitorRefreshRate > 0 {
		m["monitor_refresh_rate"] = p.MonitorRefreshRate
	}
	return m
}

func toDecimal(v interface{}) (decimal.Decimal, error) {
	switch n := v.(type) {
	case float64:
		return decimal.NewFromFloat(n), nil
	case float32:
		return decimal.NewFromFloat32(n), nil
	case int:
		return decimal.NewFromInt(int64(n)), nil
	case int64:
		return decimal.NewFromInt(n), nil
	case json.Number:
		return decimal.NewFromString(n.String())
	case string:
		s := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(n), "$"))
		return decimal.NewFromString(strings.ReplaceAll(s, ",", ""))
	case decimal.Decimal:
		return n, nil
	}
	return decimal.Zero, fmt.Errorf("unsupported type %T", v)
}

func toBool(v interface{}) (bool, error) {
	switch b := v.(type) {
	case nil:
		return false, nil
	case bool:
		return b, nil
	case string:
		if strings.TrimSpace(b) == "" {
			return false, nil
		}
		return strconv.ParseBool(strings.TrimSpace(b))
	}
	return false, fmt.Errorf("unsupported type %T", v)
}
