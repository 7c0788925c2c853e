package model

import (
	"strings"
	"time"
)

// ListingSource identifies where a listing was captured.
type ListingSource string

const (
	SourceAirbnb     ListingSource = "airbnb"
	SourceBlueground ListingSource = "blueground"
	SourcePost       ListingSource = "post"
)

// Valid reports whether s is a known listing source.
func (s ListingSource) Valid() bool {
	switch s {
	case SourceAirbnb, SourceBlueground, SourcePost:
		return true
	}
	return false
}

// PricePeriod describes what span a listing price covers.
type PricePeriod string

const (
	PeriodNight   PricePeriod = "night"
	PeriodMonth   PricePeriod = "month"
	PeriodTotal   PricePeriod = "total"
	PeriodUnknown PricePeriod = "unknown"
)

// Valid reports whether p is a known price period.
func (p PricePeriod) Valid() bool {
	switch p {
	case PeriodNight, PeriodMonth, PeriodTotal, PeriodUnknown:
		return true
	}
	return false
}

// DefaultCurrency is applied to new listings that do not name one.
const DefaultCurrency = "USD"

// Listing is a captured rental listing, unique by (WorkspaceID, SourceURL).
type Listing struct {
	ID           string        `json:"id"`
	WorkspaceID  string        `json:"-"`
	Source       ListingSource `json:"source"`
	SourceURL    string        `json:"source_url"`
	Title        *string       `json:"title"`
	PriceValue   *float64      `json:"price_value"`
	Currency     string        `json:"currency"`
	PricePeriod  PricePeriod   `json:"price_period"`
	Lat          *float64      `json:"lat"`
	Lng          *float64      `json:"lng"`
	LocationText *string       `json:"location_text"`
	CapturedAt   time.Time     `json:"captured_at"`
}

// HasCoords reports whether both coordinates are present.
func (l *Listing) HasCoords() bool {
	return l.Lat != nil && l.Lng != nil
}

// HasLocationText reports whether the free-form location is non-blank.
func (l *Listing) HasLocationText() bool {
	return l.LocationText != nil && strings.TrimSpace(*l.LocationText) != ""
}

// ListingInput is an upsert request. Nil fields mean "not provided"; on merge
// they leave the stored value untouched.
type ListingInput struct {
	Source       ListingSource
	SourceURL    string
	Title        *string
	PriceValue   *float64
	Currency     *string
	PricePeriod  *PricePeriod
	Lat          *float64
	Lng          *float64
	LocationText *string
	CapturedAt   *time.Time
}

// ListingSummary is the aggregate view of a workspace's listings.
type ListingSummary struct {
	Count            int        `json:"count"`
	LatestID         *string    `json:"latest_id"`
	LatestCapturedAt *time.Time `json:"latest_captured_at"`
}
