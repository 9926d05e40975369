// Package model holds the value types shared by the field controller, the
// trajectory tracker and their consumers.
package model

import (
	"errors"
	"fmt"

	"github.com/golang/geo/r3"
)

// ErrInvalidZone is returned when a strike zone has an empty or inverted extent.
var ErrInvalidZone = errors.New("invalid strike zone")

// StrikeZoneVolume is an axis-aligned box in plate-local coordinates.
// X runs across the plate, Y is up, Z points from the plate toward the catcher.
type StrikeZoneVolume struct {
	Min r3.Vector `json:"min"`
	Max r3.Vector `json:"max"`
}

// NewStrikeZone builds the zone for the given dimensions. The zone is centred
// on the plate horizontally, starts at knee height and spans the plate depth.
func NewStrikeZone(d FieldDimensions) (StrikeZoneVolume, error) {
	halfWidth := d.StrikeZoneWidth / 2
	halfDepth := d.PlateHeight / 2
	z := StrikeZoneVolume{
		Min: r3.Vector{X: -halfWidth, Y: d.KneeHeight, Z: -halfDepth},
		Max: r3.Vector{X: halfWidth, Y: d.KneeHeight + d.StrikeZoneHeight, Z: halfDepth},
	}
	if err := z.Validate(); err != nil {
		return StrikeZoneVolume{}, err
	}
	return z, nil
}

// Validate checks that Min is strictly below Max on every axis.
func (z StrikeZoneVolume) Validate() error {
	if z.Min.X >= z.Max.X || z.Min.Y >= z.Max.Y || z.Min.Z >= z.Max.Z {
		return fmt.Errorf("%w: min %v must be below max %v", ErrInvalidZone, z.Min, z.Max)
	}
	return nil
}

// Contains reports whether p lies inside the zone. Boundaries count as inside.
func (z StrikeZoneVolume) Contains(p r3.Vector) bool {
	return p.X >= z.Min.X && p.X <= z.Max.X &&
		p.Y >= z.Min.Y && p.Y <= z.Max.Y &&
		p.Z >= z.Min.Z && p.Z <= z.Max.Z
}

// Center returns the midpoint of the zone.
func (z StrikeZoneVolume) Center() r3.Vector {
	return z.Min.Add(z.Max).Mul(0.5)
}

// Size returns the extent of the zone on each axis.
func (z StrikeZoneVolume) Size() r3.Vector {
	return z.Max.Sub(z.Min)
}
