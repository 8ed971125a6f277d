// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package region

import (
	"encoding/json"
	"maps"
	"slices"
	"strconv"
	"time"
)

// Setting keys understood by the engine.
const (
	KeyRestrictedToWorld  = "general.restrictedToWorld"
	KeyRestrictedToRegion = "general.restrictedToRegion"

	KeyBuyPrice        = "buy.price"
	KeyBuyMoneyBack    = "buy.moneyBack"
	KeyBuyInactiveTime = "buy.inactiveTimeUntilSell"

	KeyRentPrice        = "rent.price"
	KeyRentDuration     = "rent.duration"
	KeyRentMoneyBack    = "rent.moneyBack"
	KeyRentMaxExtends   = "rent.maxExtends"
	KeyRentMaxRentTime  = "rent.maxRentTime"
	KeyRentInactiveTime = "rent.inactiveTimeUntilUnrent"
	KeyRentWarningTime  = "rent.warningTime"
)

// Settings is an immutable snapshot of setting values.
type Settings struct {
	values map[string]any
}

// NewSettings copies m into a new snapshot.
func NewSettings(m map[string]any) Settings {
	if len(m) == 0 {
		return Settings{}
	}
	return Settings{values: maps.Clone(m)}
}

// Get returns the raw value stored under key.
func (s Settings) Get(key string) (any, bool) {
	v, ok := s.values[key]
	if !ok || v == nil {
		return nil, false
	}
	return v, true
}

// With returns a copy of s with key set to value.
func (s Settings) With(key string, value any) Settings {
	next := make(map[string]any, len(s.values)+1)
	maps.Copy(next, s.values)
	next[key] = value
	return Settings{values: next}
}

// Without returns a copy of s with key removed.
func (s Settings) Without(key string) Settings {
	if _, ok := s.values[key]; !ok {
		return s
	}
	next := maps.Clone(s.values)
	delete(next, key)
	return Settings{values: next}
}

// Len returns the number of keys.
func (s Settings) Len() int {
	return len(s.values)
}

// Keys returns the keys in sorted order.
func (s Settings) Keys() []string {
	return slices.Sorted(maps.Keys(s.values))
}

// Map returns a copy of the underlying values.
func (s Settings) Map() map[string]any {
	return maps.Clone(s.values)
}

// MarshalJSON encodes durations as strings so they survive a round trip.
func (s Settings) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(s.values))
	for k, v := range s.values {
		if d, ok := v.(time.Duration); ok {
			out[k] = d.String()
			continue
		}
		out[k] = v
	}
	return json.Marshal(out)
}

// UnmarshalJSON decodes a JSON object into a new snapshot.
func (s *Settings) UnmarshalJSON(data []byte) error {
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return err //nolint:wrapcheck // json errors are descriptive
	}
	*s = NewSettings(m)
	return nil
}

// Layers is an ordered list of settings consulted front to back.
type Layers []Settings

// Resolve returns the value of key from the first layer that defines it.
func Resolve(key string, layers ...Settings) (any, bool) {
	for _, l := range layers {
		if v, ok := l.Get(key); ok {
			return v, true
		}
	}
	return nil, false
}

// Get resolves key across the layers.
func (l Layers) Get(key string) (any, bool) {
	return Resolve(key, l...)
}

// Float resolves key as a number. Missing or non-numeric values yield 0.
func (l Layers) Float(key string) float64 {
	v, ok := l.Get(key)
	if !ok {
		return 0
	}
	f, _ := toFloat(v)
	return f
}

// Int resolves key as an integer. Missing values yield 0.
func (l Layers) Int(key string) int {
	v, ok := l.Get(key)
	if !ok {
		return 0
	}
	f, _ := toFloat(v)
	return int(f)
}

// Bool resolves key as a boolean.
func (l Layers) Bool(key string) bool {
	v, ok := l.Get(key)
	if !ok {
		return false
	}
	switch b := v.(type) {
	case bool:
		return b
	case string:
		parsed, err := strconv.ParseBool(b)
		return err == nil && parsed
	default:
		return false
	}
}

// String resolves key as a string.
func (l Layers) String(key string) string {
	v, ok := l.Get(key)
	if !ok {
		return ""
	}
	switch s := v.(type) {
	case string:
		return s
	case time.Duration:
		return s.String()
	default:
		f, ok := toFloat(v)
		if !ok {
			return ""
		}
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
}

// Duration resolves key as a duration. Strings use time.ParseDuration syntax,
// bare numbers are seconds.
func (l Layers) Duration(key string) time.Duration {
	v, ok := l.Get(key)
	if !ok {
		return 0
	}
	switch d := v.(type) {
	case time.Duration:
		return d
	case string:
		parsed, err := time.ParseDuration(d)
		if err != nil {
			return 0
		}
		return parsed
	default:
		f, ok := toFloat(v)
		if !ok {
			return 0
		}
		return time.Duration(f * float64(time.Second))
	}
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(n, 64)
		return f, err == nil
	default:
		return 0, false
	}
}
