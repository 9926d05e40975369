package field

import "errors"

var (
	// ErrNoPlaneFound is returned when the placement raycast hits no horizontal surface.
	ErrNoPlaneFound = errors.New("no horizontal surface at screen point")

	// ErrNoField is returned by operations that need a placed field.
	ErrNoField = errors.New("field has not been placed")

	// ErrWorldTrackingNotReady is returned when the world-tracking session
	// cannot accept anchors yet. It is not fatal; the caller may retry.
	ErrWorldTrackingNotReady = errors.New("world tracking not ready")
)
