package capture

import (
	"fmt"
	"time"

	"gocv.io/x/gocv"

	"github.com/ayusman/strikezone/internal/geom"
	"github.com/ayusman/strikezone/internal/timeutil"
)

// Frame is an image stamped with the camera pose and capture time.
// The receiver of a Frame owns its Mat and must Close it.
type Frame struct {
	Mat        *gocv.Mat
	CameraPose geom.Pose
	CapturedAt time.Time
}

// Close releases the frame's image.
func (f *Frame) Close() {
	if f != nil && f.Mat != nil {
		f.Mat.Close()
		f.Mat = nil
	}
}

// Grabber pairs a camera with a pose source.
type Grabber struct {
	camera Camera
	poses  PoseSource
	clock  timeutil.Clock
}

// NewGrabber returns a Grabber. A nil clock uses wall time.
func NewGrabber(camera Camera, poses PoseSource, clock timeutil.Clock) *Grabber {
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	return &Grabber{camera: camera, poses: poses, clock: clock}
}

// Camera returns the underlying camera.
func (g *Grabber) Camera() Camera {
	return g.camera
}

// Grab reads one frame. The pose is sampled immediately after the image so
// both describe the same instant as closely as the device allows.
func (g *Grabber) Grab() (*Frame, error) {
	mat, err := g.camera.ReadFrame()
	if err != nil {
		return nil, err
	}
	at := g.clock.Now()

	pose, err := g.poses.Pose()
	if err != nil {
		mat.Close()
		return nil, fmt.Errorf("camera pose: %w", err)
	}
	return &Frame{Mat: mat, CameraPose: pose, CapturedAt: at}, nil
}
