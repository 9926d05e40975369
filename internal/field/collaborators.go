package field

import (
	"github.com/golang/geo/r3"

	"github.com/ayusman/strikezone/internal/geom"
	"github.com/ayusman/strikezone/internal/model"
)

// ScreenPoint is a 2D position in view pixels.
type ScreenPoint struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Raycaster intersects a screen point with detected horizontal surfaces.
type Raycaster interface {
	Raycast(p ScreenPoint) (r3.Vector, bool)
}

// AnchorTracker is the world-tracking session that persists the field anchor.
type AnchorTracker interface {
	AddAnchor(pose geom.Pose) (string, error)
	RemoveAnchor(id string) error
}

// LocationSource provides the device's geographic position, if known.
type LocationSource interface {
	Location() (model.GeoPoint, bool)
}
