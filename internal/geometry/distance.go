package geometry

import (
	"sort"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"
	"github.com/paulmach/orb/geojson"

	"estatemap/internal/models"
)

// Ranked is a place with its distance from a reference point
type Ranked struct {
	Place          models.Place `json:"place"`
	DistanceMeters float64      `json:"distance_meters"`
}

// RankByDistance orders places by great-circle distance from center. Places
// farther than radius are dropped unless radius is 0, and places without a
// location are always dropped.
func RankByDistance(center orb.Point, radius float64, places []models.Place) []Ranked {
	ranked := make([]Ranked, 0, len(places))
	for _, p := range places {
		if !hasLocation(p) {
			continue
		}
		d := geo.Distance(center, p.Location.Point())
		if radius > 0 && d > radius {
			continue
		}
		ranked = append(ranked, Ranked{Place: p, DistanceMeters: d})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].DistanceMeters < ranked[j].DistanceMeters
	})
	return ranked
}

// Bound returns the bounding box of every located place
func Bound(places []models.Place) (orb.Bound, bool) {
	var points orb.MultiPoint
	for _, p := range places {
		if hasLocation(p) {
			points = append(points, p.Location.Point())
		}
	}
	if len(points) == 0 {
		return orb.Bound{}, false
	}
	return points.Bound(), true
}

// FeatureCollection renders located places as GeoJSON points
func FeatureCollection(places []models.Place) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for _, p := range places {
		if !hasLocation(p) {
			continue
		}
		feature := geojson.NewFeature(p.Location.Point())
		feature.ID = p.ID
		feature.Properties = geojson.Properties{
			"name":              p.DisplayName.Text,
			"primary_type":      p.PrimaryType,
			"formatted_address": p.FormattedAddress,
		}
		fc.Append(feature)
	}
	if bound, ok := Bound(places); ok {
		fc.BBox = geojson.NewBBox(bound)
	}
	return fc
}

func hasLocation(p models.Place) bool {
	return p.Location != models.LatLng{}
}
