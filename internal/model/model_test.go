package model

import (
	"encoding/json"
	"math"
	"strings"
	"testing"

	"github.com/golang/geo/r3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testZone() StrikeZoneVolume {
	return StrikeZoneVolume{
		Min: r3.Vector{X: -0.2, Y: 0.5, Z: -0.2},
		Max: r3.Vector{X: 0.2, Y: 1.1, Z: 0.2},
	}
}

func TestStrikeZone_ContainsBoundary(t *testing.T) {
	z := testZone()
	eps := 1e-9

	tests := []struct {
		name string
		p    r3.Vector
		want bool
	}{
		{"centre", z.Center(), true},
		{"on min x", r3.Vector{X: z.Min.X, Y: 0.8, Z: 0}, true},
		{"on max x", r3.Vector{X: z.Max.X, Y: 0.8, Z: 0}, true},
		{"just below min x", r3.Vector{X: z.Min.X - eps, Y: 0.8, Z: 0}, false},
		{"just above max y", r3.Vector{X: 0, Y: z.Max.Y + eps, Z: 0}, false},
		{"on min corner", z.Min, true},
		{"on max corner", z.Max, true},
		{"behind zone", r3.Vector{X: 0, Y: 0.8, Z: z.Max.Z + eps}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, z.Contains(tt.p))
		})
	}
}

func TestStrikeZone_Validate(t *testing.T) {
	assert.NoError(t, testZone().Validate())

	flat := testZone()
	flat.Max.Y = flat.Min.Y
	assert.ErrorIs(t, flat.Validate(), ErrInvalidZone)

	inverted := testZone()
	inverted.Min.X, inverted.Max.X = inverted.Max.X, inverted.Min.X
	assert.ErrorIs(t, inverted.Validate(), ErrInvalidZone)
}

func TestNewStrikeZone(t *testing.T) {
	d := DefaultFieldDimensions()
	z, err := NewStrikeZone(d)
	require.NoError(t, err)

	assert.InDelta(t, d.StrikeZoneWidth, z.Size().X, 1e-12)
	assert.InDelta(t, d.StrikeZoneHeight, z.Size().Y, 1e-12)
	assert.InDelta(t, d.PlateHeight, z.Size().Z, 1e-12)
	assert.InDelta(t, d.KneeHeight, z.Min.Y, 1e-12)
	assert.InDelta(t, 0, z.Center().X, 1e-12)

	d.StrikeZoneHeight = 0
	_, err = NewStrikeZone(d)
	assert.ErrorIs(t, err, ErrInvalidZone)
}

func TestFieldConfiguration_WorldToPlate(t *testing.T) {
	zone, err := NewStrikeZone(DefaultFieldDimensions())
	require.NoError(t, err)

	cfg := &FieldConfiguration{
		PlatePosition: r3.Vector{X: 2, Y: 0, Z: -3},
		YawDegrees:    90,
		YawSign:       -1,
		StrikeZone:    zone,
	}

	local := r3.Vector{X: 0.1, Y: 0.7, Z: 0.05}
	world := cfg.PlateToWorld(local)
	back := cfg.WorldToPlate(world)

	assert.InDelta(t, local.X, back.X, 1e-9)
	assert.InDelta(t, local.Y, back.Y, 1e-9)
	assert.InDelta(t, local.Z, back.Z, 1e-9)
	assert.True(t, cfg.InStrikeZone(world))

	// With a 90° yaw, a point displaced along world X from the plate is
	// displaced along plate Z, which leaves the zone depth.
	outside := cfg.PlatePosition.Add(r3.Vector{X: 0.5, Y: 0.7})
	assert.False(t, cfg.InStrikeZone(outside))
	assert.InDelta(t, 0.5, math.Abs(cfg.WorldToPlate(outside).Z), 1e-9)
}

func TestTrackingState_Text(t *testing.T) {
	for s := StateInitializing; s <= StateStopped; s++ {
		text, err := s.MarshalText()
		require.NoError(t, err)

		var decoded TrackingState
		require.NoError(t, decoded.UnmarshalText(text))
		assert.Equal(t, s, decoded)
	}

	var s TrackingState
	assert.Error(t, s.UnmarshalText([]byte("warming_up")))
	assert.Equal(t, "TrackingState(42)", TrackingState(42).String())
}

func TestPitchClassification_Outcome(t *testing.T) {
	strike, ball := true, false

	assert.Equal(t, "unknown", PitchClassification{}.Outcome())
	assert.Equal(t, "strike", PitchClassification{IsStrike: &strike}.Outcome())
	assert.Equal(t, "ball", PitchClassification{IsStrike: &ball}.Outcome())
}

func TestGeoPoint(t *testing.T) {
	g := GeoPoint{Latitude: 40.8296, Longitude: -73.9262}

	wkt, err := g.WKT()
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(wkt, "POINT"), wkt)

	raw, err := g.GeoJSON()
	require.NoError(t, err)

	var decoded struct {
		Type        string    `json:"type"`
		Coordinates []float64 `json:"coordinates"`
	}
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, "Point", decoded.Type)
	require.Len(t, decoded.Coordinates, 2)
	assert.InDelta(t, g.Longitude, decoded.Coordinates[0], 1e-9)
	assert.InDelta(t, g.Latitude, decoded.Coordinates[1], 1e-9)
}

func TestGeoPoint_RejectsNonFinite(t *testing.T) {
	for _, g := range []GeoPoint{
		{Latitude: math.NaN(), Longitude: 0},
		{Latitude: 0, Longitude: math.Inf(1)},
	} {
		_, err := g.Point()
		assert.Error(t, err, "%+v", g)
		_, err = g.WKT()
		assert.Error(t, err, "%+v", g)
		_, err = g.GeoJSON()
		assert.Error(t, err, "%+v", g)
	}
}
