package domain

import (
	"encoding/json"
	"fmt"
	"maps"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// deleteMarker is the directive value that removes an override.
const deleteMarker = "-"

// OverrideMap maps a POP code, or WildcardKey, to a status index.
type OverrideMap map[string]uint8

// DecodeOverrides parses the stored form of an override map. An empty value
// decodes to an empty map.
func DecodeOverrides(raw string) (OverrideMap, error) {
	out := OverrideMap{}
	if strings.TrimSpace(raw) == "" {
		return out, nil
	}
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil, fmt.Errorf("%w: decode overrides: %w", ErrMalformedPayload, err)
	}
	if out == nil {
		out = OverrideMap{}
	}
	return out, nil
}

// Encode returns the stored form of the map. Keys are emitted in sorted order.
func (m OverrideMap) Encode() string {
	if m == nil {
		return "{}"
	}
	data, _ := json.Marshal(map[string]uint8(m)) //nolint:errcheck // string keys and integer values always marshal
	return string(data)
}

// Directive is one requested edit to the override map.
type Directive struct {
	Key   string `json:"key"`
	Value string `json:"value"` // "-" or a decimal status index

	remove bool
	index  uint8
}

// SetDirective builds a directive that sets key to index.
func SetDirective(key string, index uint8) Directive {
	return Directive{Key: key, Value: strconv.Itoa(int(index)), index: index}
}

// DeleteDirective builds a directive that removes key ("*" clears everything).
func DeleteDirective(key string) Directive {
	return Directive{Key: key, Value: deleteMarker, remove: true}
}

// ParseDirectives reads directives from a raw query string in the order they
// appear. Any malformed pair rejects the whole set so nothing is half-applied.
func ParseDirectives(rawQuery string) ([]Directive, error) {
	var out []Directive
	for _, pair := range strings.Split(rawQuery, "&") {
		if pair == "" {
			continue
		}
		rawKey, rawValue, _ := strings.Cut(pair, "=")

		key, err := url.QueryUnescape(rawKey)
		if err != nil {
			return nil, fmt.Errorf("%w: key %q: %w", ErrInvalidDirective, rawKey, err)
		}
		value, err := url.QueryUnescape(rawValue)
		if err != nil {
			return nil, fmt.Errorf("%w: value for %q: %w", ErrInvalidDirective, key, err)
		}
		if key == "" {
			return nil, fmt.Errorf("%w: empty key", ErrInvalidDirective)
		}

		if value == deleteMarker {
			out = append(out, DeleteDirective(key))
			continue
		}
		n, err := strconv.ParseUint(value, 10, 8)
		if err != nil {
			return nil, fmt.Errorf("%w: %s=%q must be a status index in 0..255 or %q", ErrInvalidDirective, key, value, deleteMarker)
		}
		out = append(out, SetDirective(key, uint8(n)))
	}
	return out, nil
}

// ApplyDirectives returns current with directives applied in order. current
// is not modified.
func ApplyDirectives(current OverrideMap, directives []Directive) OverrideMap {
	next := maps.Clone(current)
	if next == nil {
		next = OverrideMap{}
	}
	for _, d := range directives {
		switch {
		case d.remove && d.Key == WildcardKey:
			clear(next)
		case d.remove:
			delete(next, d.Key)
		default:
			next[d.Key] = d.index
		}
	}
	return next
}

// StoredOverrides is the serialized override map as held by a store.
type StoredOverrides struct {
	Value string
	Found bool
	// Revision identifies the stored version for conditional writes. Empty
	// when the backend cannot compare-and-swap.
	Revision string
}

// OverrideChange describes one persisted mutation of the override map.
type OverrideChange struct {
	ID         string      `json:"id"`
	ChangedAt  time.Time   `json:"changed_at"`
	POP        string      `json:"pop"`
	Directives []Directive `json:"directives"`
	Previous   OverrideMap `json:"previous"`
	Current    OverrideMap `json:"current"`
}
