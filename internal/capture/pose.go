package capture

import (
	"errors"
	"sync"

	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/num/quat"

	"github.com/ayusman/strikezone/internal/geom"
)

// ErrWorldTrackingUnsupported is returned when no camera pose can be provided.
var ErrWorldTrackingUnsupported = errors.New("world tracking unsupported")

// PoseSource reports the camera's world pose for the frame being captured.
type PoseSource interface {
	Pose() (geom.Pose, error)
}

// MountConfig describes a fixed camera mount.
type MountConfig struct {
	Height       float64 `mapstructure:"height"`
	PitchDegrees float64 `mapstructure:"pitchDegrees"`
	YawDegrees   float64 `mapstructure:"yawDegrees"`
}

// DefaultMountConfig is a tripod at chest height, tilted slightly down.
func DefaultMountConfig() MountConfig {
	return MountConfig{Height: 1.4, PitchDegrees: -10}
}

// StaticPose is a camera that never moves, e.g. on a tripod. It can be
// updated when the mount is adjusted.
type StaticPose struct {
	mu   sync.RWMutex
	pose geom.Pose
}

// NewStaticPose builds the pose for a mount at the world origin.
func NewStaticPose(m MountConfig) *StaticPose {
	return &StaticPose{pose: MountPose(m)}
}

// MountPose converts a mount description into a world pose: yaw about Y,
// then pitch about the camera's X axis.
func MountPose(m MountConfig) geom.Pose {
	yaw := geom.YawRotation(geom.DegToRad(m.YawDegrees))
	pitch := geom.PitchRotation(geom.DegToRad(m.PitchDegrees))
	return geom.Pose{
		Position: r3.Vector{Y: m.Height},
		Rotation: quat.Mul(yaw, pitch),
	}
}

// Pose implements PoseSource.
func (s *StaticPose) Pose() (geom.Pose, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pose, nil
}

// CameraPose returns the pose, ignoring errors, for raycasting.
func (s *StaticPose) CameraPose() geom.Pose {
	p, _ := s.Pose()
	return p
}

// Set replaces the pose.
func (s *StaticPose) Set(p geom.Pose) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pose = p
}

// NoPose is a PoseSource for devices without world tracking.
type NoPose struct{}

// Pose always fails with ErrWorldTrackingUnsupported.
func (NoPose) Pose() (geom.Pose, error) {
	return geom.Pose{}, ErrWorldTrackingUnsupported
}
