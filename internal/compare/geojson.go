package compare

import (
	"encoding/json"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"

	"github.com/sells-group/easyrelocate/internal/model"
)

// Feature kinds in the GeoJSON export.
const (
	KindTarget  = "target"
	KindListing = "listing"
)

// FeatureCollection renders res as GeoJSON: the target first, then each
// listing that has coordinates, in comparison order.
func FeatureCollection(res *model.CompareResult) *geojson.FeatureCollection {
	fc := &geojson.FeatureCollection{Features: make([]*geojson.Feature, 0, len(res.Items)+1)}

	t := res.Target
	fc.Features = append(fc.Features, &geojson.Feature{
		ID:       t.ID,
		Geometry: point(t.Lat, t.Lng),
		Properties: map[string]any{
			"kind":       KindTarget,
			"name":       t.Name,
			"address":    t.Address,
			"updated_at": t.UpdatedAt,
		},
	})

	for _, item := range res.Items {
		l := item.Listing
		if !l.HasCoords() {
			continue
		}
		fc.Features = append(fc.Features, &geojson.Feature{
			ID:       l.ID,
			Geometry: point(*l.Lat, *l.Lng),
			Properties: map[string]any{
				"kind":          KindListing,
				"source":        l.Source,
				"source_url":    l.SourceURL,
				"title":         l.Title,
				"price_value":   l.PriceValue,
				"currency":      l.Currency,
				"price_period":  l.PricePeriod,
				"location_text": l.LocationText,
				"captured_at":   l.CapturedAt,
				"distance_km":   item.Metrics.DistanceKM,
			},
		})
	}

	fc.BBox = bounds(fc.Features)
	return fc
}

// MarshalGeoJSON encodes res as a GeoJSON FeatureCollection.
func MarshalGeoJSON(res *model.CompareResult) ([]byte, error) {
	data, err := json.Marshal(FeatureCollection(res))
	if err != nil {
		return nil, eris.Wrap(err, "compare: marshal geojson")
	}
	return data, nil
}

// point builds a GeoJSON position, which is ordered longitude first.
func point(lat, lng float64) *geom.Point {
	return geom.NewPointFlat(geom.XY, []float64{lng, lat})
}

func bounds(features []*geojson.Feature) *geom.Bounds {
	b := geom.NewBounds(geom.XY)
	for _, f := range features {
		b.Extend(f.Geometry)
	}
	return b
}
