package field

import (
	"math"

	"github.com/golang/geo/r3"

	"github.com/ayusman/strikezone/internal/geom"
)

// CameraPoser reports the camera's current world pose.
type CameraPoser interface {
	CameraPose() geom.Pose
}

// PlaneRaycaster intersects screen rays with a single horizontal ground plane.
// It stands in for platform plane detection when the camera is on a tripod
// at a known height.
type PlaneRaycaster struct {
	Intrinsics  geom.Intrinsics
	Camera      CameraPoser
	GroundY     float64
	MaxDistance float64
}

// Raycast returns the ground hit for p, if the ray points down and the hit is
// within MaxDistance (when set).
func (r *PlaneRaycaster) Raycast(p ScreenPoint) (r3.Vector, bool) {
	pose := r.Camera.CameraPose()
	dir := geom.Rotate(pose.Rotation, r.Intrinsics.CameraRay(p.X, p.Y))

	if math.Abs(dir.Y) < 1e-9 {
		return r3.Vector{}, false
	}
	t := (r.GroundY - pose.Position.Y) / dir.Y
	if t <= 0 {
		return r3.Vector{}, false
	}

	hit := pose.Position.Add(dir.Mul(t))
	if r.MaxDistance > 0 && hit.Sub(pose.Position).Norm() > r.MaxDistance {
		return r3.Vector{}, false
	}
	hit.Y = r.GroundY
	return hit, true
}
