package geom

import "github.com/golang/geo/r3"

// Intrinsics is a pinhole camera model in pixels.
type Intrinsics struct {
	Fx     float64 `json:"fx" mapstructure:"fx"`
	Fy     float64 `json:"fy" mapstructure:"fy"`
	Cx     float64 `json:"cx" mapstructure:"cx"`
	Cy     float64 `json:"cy" mapstructure:"cy"`
	Width  int     `json:"width" mapstructure:"width"`
	Height int     `json:"height" mapstructure:"height"`
}

// DefaultIntrinsics approximates a 640x480 camera with a ~65° horizontal field of view.
func DefaultIntrinsics() Intrinsics {
	return Intrinsics{Fx: 500, Fy: 500, Cx: 320, Cy: 240, Width: 640, Height: 480}
}

// CameraRay returns the camera-space direction through pixel (px, py).
// The camera looks down -Z with +Y up; image rows grow downward.
func (k Intrinsics) CameraRay(px, py float64) r3.Vector {
	return r3.Vector{
		X: (px - k.Cx) / k.Fx,
		Y: -(py - k.Cy) / k.Fy,
		Z: -1,
	}
}

// Unproject returns the camera-space point at the given depth along the ray through (px, py).
func (k Intrinsics) Unproject(px, py, depth float64) r3.Vector {
	return k.CameraRay(px, py).Mul(depth)
}
