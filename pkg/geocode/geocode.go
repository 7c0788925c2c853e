// Package geocode provides forward and reverse geocoding via Nominatim or the
// Google Geocoding API behind a single Provider interface.
package geocode

import (
	"context"
	"math"
	"strconv"
	"strings"
)

// Candidate is one forward geocoding match.
type Candidate struct {
	DisplayName string  `json:"display_name"`
	Lat         float64 `json:"lat"`
	Lng         float64 `json:"lng"`
}

// AddressKey is one of the address components providers may report.
type AddressKey string

const (
	KeyRoad         AddressKey = "road"
	KeyPedestrian   AddressKey = "pedestrian"
	KeyFootway      AddressKey = "footway"
	KeyCycleway     AddressKey = "cycleway"
	KeyPath         AddressKey = "path"
	KeyCity         AddressKey = "city"
	KeyTown         AddressKey = "town"
	KeyVillage      AddressKey = "village"
	KeyMunicipality AddressKey = "municipality"
	KeyHamlet       AddressKey = "hamlet"
	KeyLocality     AddressKey = "locality"
	KeyState        AddressKey = "state"
	KeyRegion       AddressKey = "region"
	KeyCountry      AddressKey = "country"
)

var knownKeys = map[AddressKey]bool{
	KeyRoad: true, KeyPedestrian: true, KeyFootway: true, KeyCycleway: true, KeyPath: true,
	KeyCity: true, KeyTown: true, KeyVillage: true, KeyMunicipality: true, KeyHamlet: true,
	KeyLocality: true, KeyState: true, KeyRegion: true, KeyCountry: true,
}

// Address holds the recognized components of a reverse geocoding result.
// Keys outside the known set are never stored.
type Address map[AddressKey]string

// Set stores v under k when k is a known key and v is non-blank.
func (a Address) Set(k AddressKey, v string) {
	if !knownKeys[k] {
		return
	}
	if v = strings.TrimSpace(v); v != "" {
		a[k] = v
	}
}

// first returns the first non-blank value among keys.
func (a Address) first(keys ...AddressKey) string {
	for _, k := range keys {
		if v := strings.TrimSpace(a[k]); v != "" {
			return v
		}
	}
	return ""
}

// ReverseResult is the outcome of a reverse lookup. Both fields may be empty
// when the provider had nothing for the point.
type ReverseResult struct {
	DisplayName string
	Address     Address
}

// Provider is a geocoding backend. Transport failures and non-2xx responses
// are returned as errors; reachable responses that cannot be parsed yield
// empty results.
type Provider interface {
	Name() string
	Geocode(ctx context.Context, query string, limit int) ([]Candidate, error)
	Reverse(ctx context.Context, lat, lng float64, zoom int) (*ReverseResult, error)
}

// RoughLocation derives a city/state level description from addr, e.g.
// "Austin, TX". It falls back to the country alone when neither a city nor a
// state is known, and returns "" when nothing usable is present.
func RoughLocation(addr Address) string {
	if len(addr) == 0 {
		return ""
	}
	city := addr.first(KeyCity, KeyTown, KeyVillage, KeyMunicipality, KeyHamlet, KeyLocality)
	state := addr.first(KeyState, KeyRegion)

	var parts []string
	if city != "" {
		parts = append(parts, city)
	}
	if state != "" {
		parts = append(parts, state)
	}
	if len(parts) == 0 {
		if country := addr.first(KeyCountry); country != "" {
			parts = append(parts, country)
		}
	}
	return strings.Join(parts, ", ")
}

// ApproxStreet returns the most street-like component of addr, or "".
func ApproxStreet(addr Address) string {
	if len(addr) == 0 {
		return ""
	}
	return addr.first(KeyRoad, KeyPedestrian, KeyFootway, KeyCycleway, KeyPath)
}

// asFloat accepts a JSON number or numeric string and rejects NaN and Inf.
func asFloat(v any) (float64, bool) {
	var f float64
	switch t := v.(type) {
	case float64:
		f = t
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

func clamp(v, lo, hi int) int {
	return max(lo, min(v, hi))
}
