package geom

import (
	"math"
	"testing"

	"github.com/golang/geo/r3"
	"github.com/stretchr/testify/assert"
)

const epsilon = 1e-9

func TestRotateAroundY(t *testing.T) {
	tests := []struct {
		name string
		deg  float64
		in   r3.Vector
		want r3.Vector
	}{
		{"zero rotation", 0, r3.Vector{X: 1, Y: 2, Z: 3}, r3.Vector{X: 1, Y: 2, Z: 3}},
		{"quarter turn moves x to -z", 90, r3.Vector{X: 1}, r3.Vector{Z: -1}},
		{"quarter turn moves z to x", 90, r3.Vector{Z: 1}, r3.Vector{X: 1}},
		{"half turn", 180, r3.Vector{X: 1, Z: 1}, r3.Vector{X: -1, Z: -1}},
		{"y is untouched", 37, r3.Vector{Y: 5}, r3.Vector{Y: 5}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := RotateAroundY(DegToRad(tt.deg), tt.in)
			assert.True(t, ApproxEqual(got, tt.want, epsilon), "got %v, want %v", got, tt.want)
		})
	}
}

func TestRotateAroundY_MatchesClosedForm(t *testing.T) {
	for deg := -45.0; deg <= 45.0; deg += 7.5 {
		rad := DegToRad(deg)
		v := r3.Vector{X: 0.2, Y: 0, Z: -0.15}
		want := r3.Vector{
			X: v.X*math.Cos(rad) + v.Z*math.Sin(rad),
			Z: -v.X*math.Sin(rad) + v.Z*math.Cos(rad),
		}
		assert.True(t, ApproxEqual(RotateAroundY(rad, v), want, epsilon), "deg=%v", deg)
	}
}

func TestLocalToWorld(t *testing.T) {
	origin := r3.Vector{X: 1, Y: 0.5, Z: -2}

	t.Run("zero offset stays at origin", func(t *testing.T) {
		got := LocalToWorld(origin, 30, -1, GroundOffset{})
		assert.Equal(t, origin, got)
	})

	t.Run("negative sign rotates opposite to yaw", func(t *testing.T) {
		offset := GroundOffset{X: 0.1, Z: -0.05}
		got := LocalToWorld(r3.Vector{}, 30, -1, offset)
		want := RotateAroundY(DegToRad(-30), offset.Vector())
		assert.True(t, ApproxEqual(got, want, epsilon))
		assert.InDelta(t, 0.111603, got.X, 1e-6)
		assert.InDelta(t, 0.006699, got.Z, 1e-6)
		assert.Equal(t, 0.0, got.Y)
	})

	t.Run("length of offset is preserved", func(t *testing.T) {
		offset := GroundOffset{X: 0.2, Z: 0.2}
		got := LocalToWorld(origin, -45, -1, offset)
		assert.InDelta(t, offset.Vector().Norm(), got.Sub(origin).Norm(), epsilon)
		assert.InDelta(t, origin.Y, got.Y, epsilon)
	})
}

func TestPose_TransformRoundTrip(t *testing.T) {
	p := NewYawPose(r3.Vector{X: 3, Y: 0, Z: -1}, DegToRad(25))
	local := r3.Vector{X: 0.3, Y: 0.8, Z: -0.1}

	world := p.Transform(local)
	back := p.InverseTransform(world)

	assert.True(t, ApproxEqual(local, back, epsilon), "got %v, want %v", back, local)
}

func TestPose_Compose(t *testing.T) {
	parent := NewYawPose(r3.Vector{X: 1}, DegToRad(90))
	child := NewYawPose(r3.Vector{Z: 1}, DegToRad(-90))

	composed := parent.Compose(child)

	// Child origin (0,0,1) rotated 90° lands at (1,0,0), then shifted by parent.
	assert.True(t, ApproxEqual(composed.Position, r3.Vector{X: 2}, epsilon), "got %v", composed.Position)
	// Rotations cancel.
	v := r3.Vector{X: 1}
	assert.True(t, ApproxEqual(Rotate(composed.Rotation, v), v, epsilon))
}

func TestIdentityPose(t *testing.T) {
	v := r3.Vector{X: 1, Y: 2, Z: 3}
	assert.Equal(t, v, IdentityPose().Transform(v))
}

func TestPitchRotation(t *testing.T) {
	forward := r3.Vector{Z: -1}

	up := Rotate(PitchRotation(DegToRad(90)), forward)
	assert.True(t, ApproxEqual(up, r3.Vector{Y: 1}, epsilon), "got %v", up)

	down := Rotate(PitchRotation(DegToRad(-30)), forward)
	assert.InDelta(t, -0.5, down.Y, epsilon)
	assert.InDelta(t, -math.Sqrt(3)/2, down.Z, epsilon)
}
