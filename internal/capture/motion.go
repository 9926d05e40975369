package capture

import (
	"image"
	"sync"
	"time"

	"gocv.io/x/gocv"

	"github.com/ayusman/strikezone/internal/timeutil"
)

const (
	// BlurSize is the Gaussian kernel side. A ball at pitching distance covers
	// only a few pixels, so the kernel stays small.
	BlurSize = 5
	// DiffThreshold is the binary threshold for difference detection
	DiffThreshold = 25
	// DefaultMotionThreshold is the changed-pixel percentage treated as motion.
	DefaultMotionThreshold = 0.02
)

// MotionDetector detects motion between consecutive frames by differencing
// blurred grayscale images.
type MotionDetector struct {
	threshold   float64
	prevGray    gocv.Mat
	initialized bool
	mu          sync.Mutex
}

// NewMotionDetector creates a MotionDetector. threshold is the percentage of
// pixels that must change, e.g. 1.0 means 1%.
func NewMotionDetector(threshold float64) *MotionDetector {
	if threshold <= 0 {
		threshold = DefaultMotionThreshold
	}
	return &MotionDetector{
		threshold: threshold,
		prevGray:  gocv.NewMat(),
	}
}

// Detect compares frame with the previous one and reports whether motion
// was detected along with the percentage of pixels that changed. The first
// frame only establishes the baseline.
func (m *MotionDetector) Detect(frame *gocv.Mat) (bool, float64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if frame == nil || frame.Empty() {
		return false, 0
	}

	gray := gocv.NewMat()
	defer gray.Close()
	if frame.Channels() > 1 {
		gocv.CvtColor(*frame, &gray, gocv.ColorBGRToGray)
	} else {
		frame.CopyTo(&gray)
	}

	blurred := gocv.NewMat()
	defer blurred.Close()
	gocv.GaussianBlur(gray, &blurred, image.Point{X: BlurSize, Y: BlurSize}, 0, 0, gocv.BorderDefault)

	if !m.initialized || m.prevGray.Rows() != blurred.Rows() || m.prevGray.Cols() != blurred.Cols() {
		blurred.CopyTo(&m.prevGray)
		m.initialized = true
		return false, 0
	}

	diff := gocv.NewMat()
	defer diff.Close()
	gocv.AbsDiff(blurred, m.prevGray, &diff)

	thresh := gocv.NewMat()
	defer thresh.Close()
	gocv.Threshold(diff, &thresh, DiffThreshold, 255, gocv.ThresholdBinary)

	changePercent := float64(gocv.CountNonZero(thresh)) / float64(thresh.Rows()*thresh.Cols()) * 100.0
	blurred.CopyTo(&m.prevGray)

	return changePercent > m.threshold, changePercent
}

// Reset drops the baseline frame.
func (m *MotionDetector) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.release()
}

// Close releases resources used by the motion detector.
func (m *MotionDetector) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.release()
}

func (m *MotionDetector) release() {
	if !m.prevGray.Empty() {
		m.prevGray.Close()
		m.prevGray = gocv.NewMat()
	}
	m.initialized = false
}

// SetThreshold sets the changed-pixel percentage. Values <= 0 are ignored.
func (m *MotionDetector) SetThreshold(threshold float64) {
	if threshold <= 0 {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.threshold = threshold
}

// Gate keeps inference running for Hold after the last motion so a ball that
// briefly stops differencing (e.g. against a uniform sky) is still tracked.
type Gate struct {
	motion *MotionDetector
	hold   time.Duration
	clock  timeutil.Clock

	mu         sync.Mutex
	lastMotion time.Time
	active     bool
}

// NewGate wraps motion. A nil motion detector makes the gate always open.
func NewGate(motion *MotionDetector, hold time.Duration, clock timeutil.Clock) *Gate {
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	return &Gate{motion: motion, hold: hold, clock: clock}
}

// Open reports whether frame should be sent to the detector.
func (g *Gate) Open(frame *gocv.Mat) bool {
	if g.motion == nil {
		return true
	}
	moving, _ := g.motion.Detect(frame)
	return g.observe(moving)
}

func (g *Gate) observe(moving bool) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.clock.Now()
	if moving {
		g.lastMotion = now
		g.active = true
		return true
	}
	if g.active && now.Sub(g.lastMotion) > g.hold {
		g.active = false
	}
	return g.active
}

// Active reports the gate state without feeding a frame.
func (g *Gate) Active() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.active || g.motion == nil
}

// Close releases the motion detector.
func (g *Gate) Close() {
	if g.motion != nil {
		g.motion.Close()
	}
}
