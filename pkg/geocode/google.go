package geocode

import (
	"context"
	"encoding/json"
	"net/url"
	"strconv"
	"strings"

	"go.uber.org/zap"
)

const googleGeocodeURL = "https://maps.googleapis.com/maps/api/geocode/json"

// Google geocodes against the Google Geocoding API.
type Google struct {
	transport
	apiKey  string
	country string
}

// NewGoogle creates a Google provider. Only the first entry of countryCodes
// is used, as a components=country filter on forward lookups.
func NewGoogle(apiKey, countryCodes string, opts ...Option) *Google {
	country, _, _ := strings.Cut(countryCodes, ",")
	return &Google{
		transport: newTransport(opts),
		apiKey:    apiKey,
		country:   strings.ToLower(strings.TrimSpace(country)),
	}
}

// Name implements Provider.
func (g *Google) Name() string { return "google" }

type googleResponse struct {
	Status  string         `json:"status"`
	Results []googleResult `json:"results"`
}

type googleResult struct {
	FormattedAddress  any               `json:"formatted_address"`
	AddressComponents []googleComponent `json:"address_components"`
	Geometry          struct {
		Location struct {
			Lat any `json:"lat"`
			Lng any `json:"lng"`
		} `json:"location"`
	} `json:"geometry"`
}

type googleComponent struct {
	LongName  string   `json:"long_name"`
	ShortName string   `json:"short_name"`
	Types     []string `json:"types"`
}

// Geocode implements Provider.
func (g *Google) Geocode(ctx context.Context, query string, limit int) ([]Candidate, error) {
	params := url.Values{}
	params.Set("address", query)
	params.Set("key", g.apiKey)
	if g.country != "" {
		params.Set("components", "country:"+g.country)
	}

	resp, err := g.fetch(ctx, params)
	if err != nil {
		return nil, err
	}
	if resp == nil {
		return []Candidate{}, nil
	}

	out := make([]Candidate, 0, len(resp.Results))
	for _, r := range resp.Results {
		lat, okLat := asFloat(r.Geometry.Location.Lat)
		lng, okLng := asFloat(r.Geometry.Location.Lng)
		if !okLat || !okLng {
			continue
		}
		name, _ := r.FormattedAddress.(string)
		if strings.TrimSpace(name) == "" {
			name = query
		}
		out = append(out, Candidate{DisplayName: name, Lat: lat, Lng: lng})
		if len(out) >= limit {
			break
		}
	}
	return out, nil
}

// Reverse implements Provider. Zoom has no Google equivalent and is ignored.
func (g *Google) Reverse(ctx context.Context, lat, lng float64, _ int) (*ReverseResult, error) {
	params := url.Values{}
	params.Set("latlng", strconv.FormatFloat(lat, 'f', -1, 64)+","+strconv.FormatFloat(lng, 'f', -1, 64))
	params.Set("key", g.apiKey)

	res := &ReverseResult{Address: Address{}}
	resp, err := g.fetch(ctx, params)
	if err != nil {
		return nil, err
	}
	if resp == nil || len(resp.Results) == 0 {
		return res, nil
	}

	first := resp.Results[0]
	if name, ok := first.FormattedAddress.(string); ok {
		res.DisplayName = strings.TrimSpace(name)
	}
	for _, c := range first.AddressComponents {
		for _, typ := range c.Types {
			switch typ {
			case "route":
				res.Address.Set(KeyRoad, c.LongName)
			case "locality", "postal_town":
				if _, ok := res.Address[KeyCity]; !ok {
					res.Address.Set(KeyCity, c.LongName)
				}
			case "administrative_area_level_1":
				res.Address.Set(KeyState, preferShort(c))
			case "country":
				res.Address.Set(KeyCountry, preferShort(c))
			}
		}
	}
	return res, nil
}

// fetch returns nil without error when the payload is unusable or the API
// reports a status other than OK.
func (g *Google) fetch(ctx context.Context, params url.Values) (*googleResponse, error) {
	body, err := g.get(ctx, g.Name(), googleGeocodeURL+"?"+params.Encode())
	if err != nil {
		return nil, err
	}

	var resp googleResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		zap.L().Debug("geocode: google payload unparseable", zap.Error(err))
		return nil, nil
	}
	if resp.Status != "OK" {
		zap.L().Debug("geocode: google non-OK status", zap.String("status", resp.Status))
		return nil, nil
	}
	return &resp, nil
}

func preferShort(c googleComponent) string {
	if s := strings.TrimSpace(c.ShortName); s != "" {
		return s
	}
	return c.LongName
}
