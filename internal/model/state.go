package model

import "fmt"

// TrackingState is the coarse lifecycle of a tracking session.
type TrackingState int

const (
	StateInitializing TrackingState = iota
	StateSearchingForHomePlate
	StateFieldPlaced
	StateTrackingSpeed
	StateError
	StateStopped
)

func (s TrackingState) String() string {
	switch s {
	case StateInitializing:
		return "initializing"
	case StateSearchingForHomePlate:
		return "searching_for_home_plate"
	case StateFieldPlaced:
		return "field_placed"
	case StateTrackingSpeed:
		return "tracking_speed"
	case StateError:
		return "error"
	case StateStopped:
		return "stopped"
	default:
		return fmt.Sprintf("TrackingState(%d)", int(s))
	}
}

// MarshalText encodes the state by name.
func (s TrackingState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText decodes a state name produced by MarshalText.
func (s *TrackingState) UnmarshalText(text []byte) error {
	for c := StateInitializing; c <= StateStopped; c++ {
		if c.String() == string(text) {
			*s = c
			return nil
		}
	}
	return fmt.Errorf("unknown tracking state %q", text)
}
