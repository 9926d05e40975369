package model

import (
	"encoding/json"
	"fmt"

	"github.com/peterstace/simplefeatures/geom"
)

// GeoPoint is a WGS84 location attached to a placed field so it can be
// shared and found again.
type GeoPoint struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Point returns the location as a simplefeatures point (X=lon, Y=lat).
// NaN or infinite coordinates are rejected.
func (g GeoPoint) Point() (geom.Point, error) {
	pt, err := geom.XY{X: g.Longitude, Y: g.Latitude}.AsPoint()
	if err != nil {
		return geom.Point{}, fmt.Errorf("location %v,%v: %w", g.Latitude, g.Longitude, err)
	}
	return pt, nil
}

// WKT returns the location in well-known text.
func (g GeoPoint) WKT() (string, error) {
	pt, err := g.Point()
	if err != nil {
		return "", err
	}
	return pt.AsText(), nil
}

// GeoJSON returns the location as a GeoJSON point geometry.
func (g GeoPoint) GeoJSON() (json.RawMessage, error) {
	pt, err := g.Point()
	if err != nil {
		return nil, err
	}
	return json.Marshal(pt)
}
