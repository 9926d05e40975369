package field

import (
	"testing"

	"github.com/golang/geo/r3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ayusman/strikezone/internal/geom"
)

type fixedCamera struct{ pose geom.Pose }

func (f fixedCamera) CameraPose() geom.Pose { return f.pose }

func TestPlaneRaycaster(t *testing.T) {
	in := geom.DefaultIntrinsics()
	cam := fixedCamera{pose: geom.NewYawPose(r3.Vector{Y: 1.5}, 0)}

	tests := []struct {
		name    string
		point   ScreenPoint
		maxDist float64
		want    r3.Vector
		wantHit bool
	}{
		{"below horizon", ScreenPoint{X: in.Cx, Y: in.Cy + in.Fy*0.5}, 0, r3.Vector{Z: -3}, true},
		{"on horizon", ScreenPoint{X: in.Cx, Y: in.Cy}, 0, r3.Vector{}, false},
		{"above horizon", ScreenPoint{X: in.Cx, Y: in.Cy - 50}, 0, r3.Vector{}, false},
		{"beyond max distance", ScreenPoint{X: in.Cx, Y: in.Cy + in.Fy*0.5}, 2, r3.Vector{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &PlaneRaycaster{Intrinsics: in, Camera: cam, MaxDistance: tt.maxDist}
			got, ok := r.Raycast(tt.point)
			require.Equal(t, tt.wantHit, ok)
			if ok {
				assert.True(t, geom.ApproxEqual(got, tt.want, 1e-9), "got %v", got)
			}
		})
	}
}

func TestMemoryAnchors(t *testing.T) {
	m := NewMemoryAnchors(false)

	_, err := m.AddAnchor(geom.IdentityPose())
	assert.ErrorIs(t, err, ErrWorldTrackingNotReady)

	m.SetReady(true)
	id, err := m.AddAnchor(geom.NewYawPose(r3.Vector{X: 1}, 0))
	require.NoError(t, err)
	assert.Equal(t, 1, m.Len())

	p, ok := m.Get(id)
	require.True(t, ok)
	assert.Equal(t, 1.0, p.Position.X)

	require.NoError(t, m.RemoveAnchor(id))
	assert.Error(t, m.RemoveAnchor(id))
	assert.Equal(t, 0, m.Len())
}
