package model

import (
	"time"

	"github.com/golang/geo/r3"
)

// TrackedBallSample is one accepted ball position.
type TrackedBallSample struct {
	Position   r3.Vector `json:"position"`
	CapturedAt time.Time `json:"captured_at"`
}

// PitchClassification is produced once per accepted detection and never
// modified afterwards. SpeedMPH and IsStrike are nil when unknown.
type PitchClassification struct {
	ID         string    `json:"id"`
	Position   r3.Vector `json:"position"`
	Confidence float64   `json:"confidence"`
	SpeedMPH   *float64  `json:"speed_mph,omitempty"`
	IsStrike   *bool     `json:"is_strike,omitempty"`
	DetectedAt time.Time `json:"detected_at"`
	CapturedAt time.Time `json:"captured_at"`
}

// Outcome returns "strike", "ball" or "unknown".
func (p PitchClassification) Outcome() string {
	switch {
	case p.IsStrike == nil:
		return "unknown"
	case *p.IsStrike:
		return "strike"
	default:
		return "ball"
	}
}
