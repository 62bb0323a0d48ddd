package models

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Spec attribute keys used by compatibility and ranking.
const (
	SpecSocket           = "socket"
	SpecRAMType          = "ram_type"
	SpecFormFactor       = "form_factor"
	SpecTDP              = "tdp"
	SpecCapacityGB       = "capacity_gb"
	SpecSpeedMTs         = "speed_mt_s"
	SpecWattage          = "wattage"
	SpecType             = "type"
	SpecRefreshRateHz    = "refresh_rate_hz"
	SpecResolutionWidth  = "resolution_width"
	SpecResolutionHeight = "resolution_height"
)

// SpecString returns a string attribute; absent, non-string and blank values report false.
func (p Product) SpecString(key string) (string, bool) {
	raw, ok := p.Specs[key]
	if !ok || raw == nil {
		return "", false
	}
	s, ok := raw.(string)
	if !ok {
		return "", false
	}
	s = strings.TrimSpace(s)
	return s, s != ""
}

// SpecInt returns an integral attribute. JSON numbers, Go integers and
// numeric strings are accepted; fractional values are truncated.
func (p Product) SpecInt(key string) (int, bool) {
	raw, ok := p.Specs[key]
	if !ok || raw == nil {
		return 0, false
	}
	switch v := raw.(type) {
	case int:
		return v, true
	case int32:
		return int(v), true
	case int64:
		return int(v), true
	case uint:
		return int(v), true
	case float32:
		return floatToInt(float64(v))
	case float64:
		return floatToInt(v)
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return 0, false
		}
		return floatToInt(f)
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0, false
		}
		return floatToInt(f)
	}
	return 0, false
}

func floatToInt(f float64) (int, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return int(f), true
}

func (p Product) Socket() (string, bool)      { return p.SpecString(SpecSocket) }
func (p Product) RAMType() (string, bool)     { return p.SpecString(SpecRAMType) }
func (p Product) FormFactor() (string, bool)  { return p.SpecString(SpecFormFactor) }
func (p Product) StorageType() (string, bool) { return p.SpecString(SpecType) }
func (p Product) TDP() (int, bool)            { return p.SpecInt(SpecTDP) }
func (p Product) CapacityGB() (int, bool)     { return p.SpecInt(SpecCapacityGB) }
func (p Product) SpeedMTs() (int, bool)       { return p.SpecInt(SpecSpeedMTs) }
func (p Product) Wattage() (int, bool)        { return p.SpecInt(SpecWattage) }
func (p Product) RefreshRateHz() (int, bool)  { return p.SpecInt(SpecRefreshRateHz) }

// Resolution returns the panel resolution; both dimensions must be present.
func (p Product) Resolution() (width, height int, ok bool) {
	w, okW := p.SpecInt(SpecResolutionWidth)
	h, okH := p.SpecInt(SpecResolutionHeight)
	if !okW || !okH {
		return 0, 0, false
	}
	return w, h, true
}

// MissingSpecs lists the required keys absent for the product's category.
func (p Product) MissingSpecs() []string {
	var required []string
	switch p.Category {
	case CategoryCPU:
		required = []string{SpecSocket, SpecTDP}
	case CategoryMotherboard:
		required = []string{SpecSocket, SpecRAMType}
	case CategoryGPU:
		required = []string{SpecTDP}
	case CategoryRAM:
		required = []string{SpecRAMType, SpecCapacityGB}
	case CategoryStorage:
		required = []string{SpecCapacityGB}
	case CategoryPSU:
		required = []string{SpecWattage}
	}

	var missing []string
	for _, key := range required {
		switch key {
		case SpecSocket, SpecRAMType:
			if _, ok := p.SpecString(key); !ok {
				missing = append(missing, key)
			}
		default:
			if _, ok := p.SpecInt(key); !ok {
				missing = append(missing, key)
			}
		}
	}
	return missing
}
