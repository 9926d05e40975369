// Package capture reads posed frames from a camera using GoCV (OpenCV).
package capture

import (
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"
	"gocv.io/x/gocv"
)

// Default camera settings. Pitches need a higher rate than the idle preview.
const (
	DefaultFPS    = 30
	DefaultWidth  = 640
	DefaultHeight = 480
)

var (
	// ErrCameraNotOpen is returned when reading from a closed camera.
	ErrCameraNotOpen = errors.New("camera is not open")
	// ErrNoFrame is returned when the device or file yields no image.
	ErrNoFrame = errors.New("no frame available")
)

// Config selects and sizes the capture device. File, when set, replays a
// recorded video instead of opening DeviceID.
type Config struct {
	DeviceID int    `mapstructure:"deviceId"`
	File     string `mapstructure:"file"`
	Width    int    `mapstructure:"width"`
	Height   int    `mapstructure:"height"`
	FPS      int    `mapstructure:"fps"`
}

// DefaultConfig returns the first camera at 640x480.
func DefaultConfig() Config {
	return Config{Width: DefaultWidth, Height: DefaultHeight, FPS: DefaultFPS}
}

// normalize fills zero sizes and rates with the defaults.
func (c Config) normalize() Config {
	if c.Width <= 0 || c.Height <= 0 {
		c.Width, c.Height = DefaultWidth, DefaultHeight
	}
	if c.FPS <= 0 {
		c.FPS = DefaultFPS
	}
	return c
}

// source is the argument handed to gocv.OpenVideoCapture.
func (c Config) source() any {
	if c.File != "" {
		return c.File
	}
	return c.DeviceID
}

// Camera is a frame source the session loop reads from.
type Camera interface {
	Open() error
	Close() error
	ReadFrame() (*gocv.Mat, error)
	SetFPS(fps int)
	FPS() int
	IsOpen() bool
}

// deviceCamera reads from an OpenCV capture device or video file.
type deviceCamera struct {
	cfg Config

	mu      sync.Mutex
	capture *gocv.VideoCapture
	fps     int
	reads   uint64
}

// NewCamera creates a closed Camera for cfg.
func NewCamera(cfg Config) Camera {
	cfg = cfg.normalize()
	return &deviceCamera{cfg: cfg, fps: cfg.FPS}
}

func (c *deviceCamera) Open() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.capture != nil {
		return nil
	}

	vc, err := gocv.OpenVideoCapture(c.cfg.source())
	if err != nil {
		return fmt.Errorf("open capture %v: %w", c.cfg.source(), err)
	}
	if c.cfg.File == "" {
		vc.Set(gocv.VideoCaptureFrameWidth, float64(c.cfg.Width))
		vc.Set(gocv.VideoCaptureFrameHeight, float64(c.cfg.Height))
		vc.Set(gocv.VideoCaptureFPS, float64(c.fps))
	}

	c.capture = vc
	c.reads = 0
	log.Info().
		Interface("source", c.cfg.source()).
		Float64("width", vc.Get(gocv.VideoCaptureFrameWidth)).
		Float64("height", vc.Get(gocv.VideoCaptureFrameHeight)).
		Int("fps", c.fps).
		Msg("camera opened")
	return nil
}

// Close releases the device. Closing a closed camera is a no-op.
func (c *deviceCamera) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.capture == nil {
		return nil
	}
	err := c.capture.Close()
	c.capture = nil
	log.Debug().Uint64("frames", c.reads).Msg("camera closed")
	return err
}

// ReadFrame reads one frame. The caller closes the returned Mat.
func (c *deviceCamera) ReadFrame() (*gocv.Mat, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.capture == nil {
		return nil, ErrCameraNotOpen
	}

	mat := gocv.NewMat()
	if ok := c.capture.Read(&mat); !ok || mat.Empty() {
		mat.Close()
		return nil, ErrNoFrame
	}
	c.reads++
	return &mat, nil
}

// SetFPS changes the requested capture rate. Non-positive values are
// ignored.
func (c *deviceCamera) SetFPS(fps int) {
	if fps <= 0 {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.fps = fps
	if c.capture != nil && c.cfg.File == "" {
		c.capture.Set(gocv.VideoCaptureFPS, float64(fps))
	}
}

func (c *deviceCamera) FPS() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fps
}

func (c *deviceCamera) IsOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.capture != nil
}
