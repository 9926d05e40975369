package model

import (
	"time"

	"github.com/golang/geo/r3"

	"github.com/ayusman/strikezone/internal/geom"
)

// FieldDimensions holds the named measurements used to build field geometry.
// All lengths are in metres.
type FieldDimensions struct {
	StrikeZoneWidth  float64 `json:"strike_zone_width" mapstructure:"strikeZoneWidth"`
	StrikeZoneHeight float64 `json:"strike_zone_height" mapstructure:"strikeZoneHeight"`
	PlateWidth       float64 `json:"plate_width" mapstructure:"plateWidth"`
	PlateHeight      float64 `json:"plate_height" mapstructure:"plateHeight"`
	// KneeHeight is the bottom of the zone above the plate. Empirically tuned.
	KneeHeight float64 `json:"knee_height" mapstructure:"kneeHeight"`
	// MoundDistance is the distance from the plate to the pitching rubber,
	// measured along -Z in plate-local space. Zero disables the mound marker.
	MoundDistance float64 `json:"mound_distance" mapstructure:"moundDistance"`
}

// DefaultFieldDimensions returns regulation plate size with an adult zone.
func DefaultFieldDimensions() FieldDimensions {
	return FieldDimensions{
		StrikeZoneWidth:  0.4318,
		StrikeZoneHeight: 0.60,
		PlateWidth:       0.4318,
		PlateHeight:      0.4318,
		KneeHeight:       0.46,
		MoundDistance:    18.44,
	}
}

// FieldConfiguration is an immutable snapshot of a placed field.
type FieldConfiguration struct {
	PlatePosition r3.Vector        `json:"plate_position"`
	YawDegrees    float64          `json:"yaw_degrees"`
	YawSign       float64          `json:"yaw_sign"`
	StrikeZone    StrikeZoneVolume `json:"strike_zone"`
	MoundPosition *r3.Vector       `json:"mound_position,omitempty"`
	Dimensions    FieldDimensions  `json:"dimensions"`
	Location      *GeoPoint        `json:"location,omitempty"`
	PlacedAt      time.Time        `json:"placed_at"`
}

// PlatePose returns the plate's world pose.
func (c *FieldConfiguration) PlatePose() geom.Pose {
	return geom.NewYawPose(c.PlatePosition, c.YawSign*geom.DegToRad(c.YawDegrees))
}

// PlateToWorld maps a plate-local point into world space.
func (c *FieldConfiguration) PlateToWorld(local r3.Vector) r3.Vector {
	return c.PlatePose().Transform(local)
}

// WorldToPlate maps a world point into plate-local space.
func (c *FieldConfiguration) WorldToPlate(world r3.Vector) r3.Vector {
	return c.PlatePose().InverseTransform(world)
}

// InStrikeZone reports whether a world position is inside the strike zone.
func (c *FieldConfiguration) InStrikeZone(world r3.Vector) bool {
	return c.StrikeZone.Contains(c.WorldToPlate(world))
}
