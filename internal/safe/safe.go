// Package safe extracts values from decoded JSON payloads. Exchanges rename
// fields across endpoint versions, so every helper accepts an ordered list of
// candidate keys and takes the first one present. Absent or unparseable
// values map to explicit sentinels (empty string, invalid NullDecimal, zero
// time) instead of panics or omissions.
package safe

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

// ParseObject decodes a JSON object keeping numbers as json.Number so
// monetary values never pass through a binary float.
func ParseObject(data []byte) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var m map[string]any
	if err := dec.Decode(&m); err != nil {
		return nil, fmt.Errorf("failed to decode JSON object: %w", err)
	}
	return m, nil
}

// ParseArray decodes a JSON array keeping numbers as json.Number.
func ParseArray(data []byte) ([]any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var a []any
	if err := dec.Decode(&a); err != nil {
		return nil, fmt.Errorf("failed to decode JSON array: %w", err)
	}
	return a, nil
}

// String returns the first present key rendered as a string, or "".
func String(m map[string]any, keys ...string) string {
	for _, k := range keys {
		v, ok := m[k]
		if !ok || v == nil {
			continue
		}
		switch t := v.(type) {
		case string:
			return t
		case json.Number:
			return t.String()
		case bool:
			return strconv.FormatBool(t)
		}
	}
	return ""
}

// StringOr is String with a fallback default.
func StringOr(m map[string]any, def string, keys ...string) string {
	if s := String(m, keys...); s != "" {
		return s
	}
	return def
}

// Decimal returns the first present key as an exact decimal. Strings and
// json.Number sources are parsed directly; anything else (or an empty/broken
// string) yields the invalid sentinel.
func Decimal(m map[string]any, keys ...string) decimal.NullDecimal {
	for _, k := range keys {
		v, ok := m[k]
		if !ok || v == nil {
			continue
		}
		var raw string
		switch t := v.(type) {
		case string:
			raw = t
		case json.Number:
			raw = t.String()
		default:
			continue
		}
		if raw == "" {
			continue
		}
		d, err := decimal.NewFromString(raw)
		if err != nil {
			continue
		}
		return decimal.NullDecimal{Decimal: d, Valid: true}
	}
	return decimal.NullDecimal{}
}

// Int returns the first present key as an int64, with ok reporting presence.
// Decimal strings like "12.0" are accepted when integral.
func Int(m map[string]any, keys ...string) (int64, bool) {
	d := Decimal(m, keys...)
	if !d.Valid {
		return 0, false
	}
	if d.Decimal.Exponent() < 0 && !d.Decimal.IsInteger() {
		return 0, false
	}
	return d.Decimal.IntPart(), true
}

// IntOr is Int with a fallback default.
func IntOr(m map[string]any, def int64, keys ...string) int64 {
	if v, ok := Int(m, keys...); ok {
		return v
	}
	return def
}

// Bool returns the first present boolean-ish key. String values "true" and
// "false" count, matching exchanges that quote their flags.
func Bool(m map[string]any, keys ...string) (bool, bool) {
	for _, k := range keys {
		v, ok := m[k]
		if !ok || v == nil {
			continue
		}
		switch t := v.(type) {
		case bool:
			return t, true
		case string:
			if b, err := strconv.ParseBool(t); err == nil {
				return b, true
			}
		}
	}
	return false, false
}

// BoolOr is Bool with a fallback default.
func BoolOr(m map[string]any, def bool, keys ...string) bool {
	if v, ok := Bool(m, keys...); ok {
		return v
	}
	return def
}

// Map returns the first present key that is a JSON object, or nil.
func Map(m map[string]any, keys ...string) map[string]any {
	for _, k := range keys {
		if v, ok := m[k].(map[string]any); ok {
			return v
		}
	}
	return nil
}

// Slice returns the first present key that is a JSON array, or nil.
func Slice(m map[string]any, keys ...string) []any {
	for _, k := range keys {
		if v, ok := m[k].([]any); ok {
			return v
		}
	}
	return nil
}

// MillisTime interprets the first present key as a millisecond timestamp.
// Zero time is the absent sentinel.
func MillisTime(m map[string]any, keys ...string) time.Time {
	v, ok := Int(m, keys...)
	if !ok || v <= 0 {
		return time.Time{}
	}
	return time.UnixMilli(v).UTC()
}

// SecondsTime interprets the first present key as a second timestamp.
func SecondsTime(m map[string]any, keys ...string) time.Time {
	v, ok := Int(m, keys...)
	if !ok || v <= 0 {
		return time.Time{}
	}
	return time.Unix(v, 0).UTC()
}

// ISOTime interprets the first present key as an RFC3339 timestamp, the
// format exchanges that return "2024-01-02T03:04:05.000Z" strings use.
func ISOTime(m map[string]any, keys ...string) time.Time {
	s := String(m, keys...)
	if s == "" {
		return time.Time{}
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}

// Object coerces v into a map when it is a JSON object, for walking nested
// payloads returned by Slice.
func Object(v any) map[string]any {
	m, _ := v.(map[string]any)
	return m
}
