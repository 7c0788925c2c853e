package geocode

import (
	"context"
	"encoding/json"
	"net/url"
	"strconv"
	"strings"

	"go.uber.org/zap"
)

// DefaultNominatimURL is the public OpenStreetMap Nominatim instance.
const DefaultNominatimURL = "https://nominatim.openstreetmap.org"

// Nominatim geocodes against an OpenStreetMap Nominatim server.
type Nominatim struct {
	transport
	baseURL      string
	countryCodes string
}

// NewNominatim creates a Nominatim provider. countryCodes is the
// comma-separated filter passed through as countrycodes.
func NewNominatim(baseURL, userAgent, countryCodes string, opts ...Option) *Nominatim {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		baseURL = DefaultNominatimURL
	}
	n := &Nominatim{
		transport:    newTransport(opts),
		baseURL:      baseURL,
		countryCodes: strings.TrimSpace(countryCodes),
	}
	n.userAgent = userAgent
	return n
}

// Name implements Provider.
func (n *Nominatim) Name() string { return "nominatim" }

type nominatimPlace struct {
	Lat         any            `json:"lat"`
	Lon         any            `json:"lon"`
	DisplayName any            `json:"display_name"`
	Address     map[string]any `json:"address"`
}

// Geocode implements Provider.
func (n *Nominatim) Geocode(ctx context.Context, query string, limit int) ([]Candidate, error) {
	params := url.Values{}
	params.Set("q", query)
	params.Set("format", "jsonv2")
	params.Set("limit", strconv.Itoa(limit))
	params.Set("addressdetails", "1")
	if n.countryCodes != "" {
		params.Set("countrycodes", n.countryCodes)
	}

	body, err := n.get(ctx, n.Name(), n.baseURL+"/search?"+params.Encode())
	if err != nil {
		return nil, err
	}

	var raw []json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		zap.L().Debug("geocode: nominatim search payload not a list", zap.Error(err))
		return []Candidate{}, nil
	}

	out := make([]Candidate, 0, len(raw))
	for _, item := range raw {
		var p nominatimPlace
		if err := json.Unmarshal(item, &p); err != nil {
			continue
		}
		lat, okLat := asFloat(p.Lat)
		lng, okLng := asFloat(p.Lon)
		name, okName := p.DisplayName.(string)
		if !okLat || !okLng || !okName {
			continue
		}
		out = append(out, Candidate{DisplayName: name, Lat: lat, Lng: lng})
		if len(out) >= limit {
			break
		}
	}
	return out, nil
}

// Reverse implements Provider.
func (n *Nominatim) Reverse(ctx context.Context, lat, lng float64, zoom int) (*ReverseResult, error) {
	params := url.Values{}
	params.Set("lat", strconv.FormatFloat(lat, 'f', -1, 64))
	params.Set("lon", strconv.FormatFloat(lng, 'f', -1, 64))
	params.Set("format", "jsonv2")
	params.Set("addressdetails", "1")
	params.Set("zoom", strconv.Itoa(zoom))

	body, err := n.get(ctx, n.Name(), n.baseURL+"/reverse?"+params.Encode())
	if err != nil {
		return nil, err
	}

	res := &ReverseResult{Address: Address{}}
	var p nominatimPlace
	if err := json.Unmarshal(body, &p); err != nil {
		zap.L().Debug("geocode: nominatim reverse payload not an object", zap.Error(err))
		return res, nil
	}
	if name, ok := p.DisplayName.(string); ok {
		res.DisplayName = strings.TrimSpace(name)
	}
	for k, v := range p.Address {
		if s, ok := v.(string); ok {
			res.Address.Set(AddressKey(k), s)
		}
	}
	return res, nil
}
