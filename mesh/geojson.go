package mesh

import (
	"fmt"
	"os"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// Feature kinds written to the "kind" property
const (
	FeatureKindBeacon  = "beacon"
	FeatureKindScanner = "scanner"
	FeatureKindExtent  = "extent"
)

// ResultToGeoJSON projects the unified result onto the XY plane. Beacons and
// scanner origins become Point features carrying their Z coordinate as a
// property. The XY bounding box of all beacons is added as an extent polygon.
func ResultToGeoJSON(result *Result) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	if result == nil {
		return fc
	}

	points := make(orb.MultiPoint, 0, len(result.Beacons))
	for i, b := range result.Beacons {
		pt := toOrbPoint(b.Position)
		points = append(points, pt)

		f := geojson.NewFeature(pt)
		f.ID = fmt.Sprintf("beacon-%d", i)
		f.Properties["kind"] = FeatureKindBeacon
		f.Properties["z"] = b.Position.Z
		f.Properties["scanner"] = b.Scanner
		fc.Append(f)
	}

	for _, s := range result.Scanners {
		f := geojson.NewFeature(toOrbPoint(s.Position))
		f.ID = fmt.Sprintf("scanner-%d", s.ID)
		f.Properties["kind"] = FeatureKindScanner
		f.Properties["z"] = s.Position.Z
		f.Properties["scanner"] = s.ID
		f.Properties["beaconCount"] = s.BeaconCount
		f.Properties["reference"] = s.ID == result.Reference
		fc.Append(f)
	}

	if len(points) > 0 {
		f := geojson.NewFeature(points.Bound().ToPolygon())
		f.ID = FeatureKindExtent
		f.Properties["kind"] = FeatureKindExtent
		f.Properties["uniqueBeacons"] = result.UniqueBeacons
		f.Properties["maxScannerDistance"] = result.MaxScannerDistance
		fc.Append(f)
	}

	return fc
}

// SaveGeoJSON writes the result's GeoJSON projection to path
func SaveGeoJSON(path string, result *Result) error {
	data, err := ResultToGeoJSON(result).MarshalJSON()
	if err != nil {
		return fmt.Errorf("marshaling GeoJSON: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing GeoJSON file: %w", err)
	}
	return nil
}

func toOrbPoint(v Vector3) orb.Point {
	return orb.Point{float64(v.X), float64(v.Y)}
}
