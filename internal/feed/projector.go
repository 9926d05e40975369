package feed

import (
	"image"

	"github.com/golang/geo/r3"

	"github.com/ayusman/strikezone/internal/detector"
	"github.com/ayusman/strikezone/internal/geom"
)

// BallDiameter is a regulation baseball's diameter in metres.
const BallDiameter = 0.074

// Projector lifts a 2D detection into world space using a pinhole model.
// Depth comes from the ball's known size: depth = fx * diameter / pixels.
type Projector struct {
	Intrinsics   geom.Intrinsics
	BallDiameter float64
}

// NewProjector returns a Projector for a regulation ball.
func NewProjector(in geom.Intrinsics) Projector {
	return Projector{Intrinsics: in, BallDiameter: BallDiameter}
}

// Depth returns the distance along the optical axis for a box.
func (p Projector) Depth(box image.Rectangle) (float64, bool) {
	px := detector.ApparentDiameter(box)
	if px <= 0 || p.Intrinsics.Fx <= 0 {
		return 0, false
	}
	return p.Intrinsics.Fx * p.BallDiameter / px, true
}

// Project returns the world position of the box centre seen from camera.
func (p Projector) Project(box image.Rectangle, camera geom.Pose) (r3.Vector, bool) {
	depth, ok := p.Depth(box)
	if !ok {
		return r3.Vector{}, false
	}
	cx, cy := detector.Center(box)
	return camera.Transform(p.Intrinsics.Unproject(cx, cy, depth)), true
}
