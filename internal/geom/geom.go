// Package geom provides the vector and rotation helpers used to move between
// plate-local and world coordinates.
package geom

import (
	"math"

	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/num/quat"
)

// Up is the world vertical axis. Yaw is always a rotation about it.
var Up = r3.Vector{X: 0, Y: 1, Z: 0}

// DegToRad converts degrees to radians.
func DegToRad(deg float64) float64 {
	return deg * math.Pi / 180
}

// RadToDeg converts radians to degrees.
func RadToDeg(rad float64) float64 {
	return rad * 180 / math.Pi
}

// YawRotation returns the unit quaternion rotating by rad about the Y axis.
func YawRotation(rad float64) quat.Number {
	half := rad / 2
	return quat.Number{Real: math.Cos(half), Jmag: math.Sin(half)}
}

// PitchRotation returns the unit quaternion rotating by rad about the X axis.
// Positive values tilt -Z toward +Y.
func PitchRotation(rad float64) quat.Number {
	half := rad / 2
	return quat.Number{Real: math.Cos(half), Imag: math.Sin(half)}
}

// Rotate applies the unit quaternion q to v.
func Rotate(q quat.Number, v r3.Vector) r3.Vector {
	p := quat.Number{Imag: v.X, Jmag: v.Y, Kmag: v.Z}
	r := quat.Mul(quat.Mul(q, p), quat.Conj(q))
	return r3.Vector{X: r.Imag, Y: r.Jmag, Z: r.Kmag}
}

// RotateAroundY rotates v by rad about the Y axis.
func RotateAroundY(rad float64, v r3.Vector) r3.Vector {
	return Rotate(YawRotation(rad), v)
}

// GroundOffset is a translation on the ground plane. Y is implicitly zero.
type GroundOffset struct {
	X float64 `json:"x"`
	Z float64 `json:"z"`
}

// Vector returns the offset as a 3D vector with Y forced to zero.
func (o GroundOffset) Vector() r3.Vector {
	return r3.Vector{X: o.X, Y: 0, Z: o.Z}
}

// IsZero reports whether both components are zero.
func (o GroundOffset) IsZero() bool {
	return o.X == 0 && o.Z == 0
}

// LocalToWorld maps an offset expressed in an anchor's rotated frame into a
// world position:
//
//	worldOffset = RotateAroundY(yawSign * yawDegrees * π/180, (x, 0, z))
//	position    = origin + worldOffset
//
// yawSign selects the renderer's handedness convention. Every caller that
// moves the field must go through this function so preview and commit agree.
func LocalToWorld(origin r3.Vector, yawDegrees, yawSign float64, offset GroundOffset) r3.Vector {
	return origin.Add(RotateAroundY(yawSign*DegToRad(yawDegrees), offset.Vector()))
}

// Pose is a rigid transform: rotate, then translate.
type Pose struct {
	Position r3.Vector
	Rotation quat.Number
}

// IdentityPose returns a pose at the origin with no rotation.
func IdentityPose() Pose {
	return Pose{Rotation: quat.Number{Real: 1}}
}

// NewYawPose builds a pose at position rotated by yawRad about the Y axis.
func NewYawPose(position r3.Vector, yawRad float64) Pose {
	return Pose{Position: position, Rotation: YawRotation(yawRad)}
}

// Transform maps a point from the pose's local frame into the parent frame.
func (p Pose) Transform(local r3.Vector) r3.Vector {
	return p.Position.Add(Rotate(p.Rotation, local))
}

// InverseTransform maps a point from the parent frame into the pose's local frame.
func (p Pose) InverseTransform(world r3.Vector) r3.Vector {
	return Rotate(quat.Conj(p.Rotation), world.Sub(p.Position))
}

// Compose returns the pose equivalent to applying child inside p.
func (p Pose) Compose(child Pose) Pose {
	return Pose{
		Position: p.Transform(child.Position),
		Rotation: quat.Mul(p.Rotation, child.Rotation),
	}
}

// Distance returns the Euclidean distance between a and b.
func Distance(a, b r3.Vector) float64 {
	return a.Sub(b).Norm()
}

// ApproxEqual reports whether a and b differ by at most eps on every axis.
func ApproxEqual(a, b r3.Vector, eps float64) bool {
	return math.Abs(a.X-b.X) <= eps && math.Abs(a.Y-b.Y) <= eps && math.Abs(a.Z-b.Z) <= eps
}
