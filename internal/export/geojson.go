// Package export writes computed results to interchange formats: GeoJSON for
// web maps, shapefiles for desktop GIS, and XLSX for reporting.
package export

import (
	"encoding/json"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"

	"github.com/martinbsolomon/philoca/internal/engine"
	"github.com/martinbsolomon/philoca/internal/model"
)

// Classified sample class names used in feature properties and shapefile
// attributes.
const (
	ClassAbove = "above"
	ClassBelow = "below"
)

// SamplesGeoJSON encodes the classified samples as a GeoJSON FeatureCollection
// of points. Each feature carries the measured value and its threshold class.
func SamplesGeoJSON(cls model.Classification, parameter string) ([]byte, error) {
	fc := &geojson.FeatureCollection{}

	add := func(samples []model.Sample, class string) {
		for _, s := range samples {
			fc.Features = append(fc.Features, &geojson.Feature{
				Geometry: geom.NewPointFlat(geom.XY, []float64{s.Longitude, s.Latitude}),
				Properties: map[string]any{
					"parameter": parameter,
					"value":     s.Value,
					"class":     class,
					"threshold": cls.Threshold,
				},
			})
		}
	}
	add(cls.Above, ClassAbove)
	add(cls.Below, ClassBelow)

	data, err := json.Marshal(fc)
	if err != nil {
		return nil, eris.Wrap(err, "export: marshal samples geojson")
	}
	return data, nil
}

// HullGeoJSON encodes the samples' convex hull as a GeoJSON Polygon feature.
// Returns an empty FeatureCollection when the samples enclose no area, so
// renderers can always parse the response.
func HullGeoJSON(ss model.SampleSet) ([]byte, error) {
	fc := &geojson.FeatureCollection{}

	if ring := engine.ConvexHull(ss); ring != nil {
		coords := make([]geom.Coord, len(ring))
		for i, pt := range ring {
			coords[i] = geom.Coord{pt[0], pt[1]}
		}
		poly := geom.NewPolygon(geom.XY)
		if _, err := poly.SetCoords([][]geom.Coord{coords}); err != nil {
			return nil, eris.Wrap(err, "export: build hull polygon")
		}
		fc.Features = append(fc.Features, &geojson.Feature{
			Geometry: poly,
			Properties: map[string]any{
				"parameter":    ss.Parameter,
				"sample_count": ss.Len(),
			},
		})
	}

	data, err := json.Marshal(fc)
	if err != nil {
		return nil, eris.Wrap(err, "export: marshal hull geojson")
	}
	return data, nil
}
