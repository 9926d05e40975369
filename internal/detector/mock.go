package detector

import (
	"image"
	"sync"

	"gocv.io/x/gocv"
)

// MockDetector is a test implementation of the Detector interface.
// It allows tests to control the detection results.
type MockDetector struct {
	mu         sync.Mutex
	detections []Detection
	err        error
	ready      bool
	calls      int
	closed     bool
}

// NewMockDetector creates a ready MockDetector.
func NewMockDetector() *MockDetector {
	return &MockDetector{ready: true}
}

// SetDetections sets the detections that will be returned by Detect.
func (m *MockDetector) SetDetections(dets []Detection) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.detections = dets
}

// SetError sets the error that will be returned by Detect.
func (m *MockDetector) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// SetReady controls the value reported by Ready.
func (m *MockDetector) SetReady(ready bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ready = ready
}

// Detect returns the pre-configured detections or error.
func (m *MockDetector) Detect(frame *gocv.Mat) ([]Detection, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return append([]Detection(nil), m.detections...), nil
}

// Ready reports the configured readiness.
func (m *MockDetector) Ready() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ready && !m.closed
}

// Calls returns how many times Detect ran.
func (m *MockDetector) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Close marks the detector as closed.
func (m *MockDetector) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// BallAt returns a confident baseball detection centred on (x, y) with the
// given box side in pixels.
func BallAt(x, y, size int) Detection {
	half := size / 2
	return Detection{
		Label:      "baseball",
		Confidence: 0.92,
		Box:        image.Rect(x-half, y-half, x-half+size, y-half+size),
	}
}
