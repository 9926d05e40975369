package capture

import (
	"image"
	"image/color"
	"testing"
	"time"

	"gocv.io/x/gocv"

	"github.com/ayusman/strikezone/internal/timeutil"
)

func blank() gocv.Mat {
	return gocv.NewMatWithSize(480, 640, gocv.MatTypeCV8UC3)
}

func withBall(x, y, radius int) gocv.Mat {
	m := blank()
	gocv.Circle(&m, image.Pt(x, y), radius, color.RGBA{255, 255, 255, 0}, -1)
	return m
}

func TestMotionDetector_Threshold(t *testing.T) {
	tests := []struct {
		name    string
		initial float64
		set     float64
		want    float64
	}{
		{"zero takes default", 0, 0, DefaultMotionThreshold},
		{"negative takes default", -3, 0, DefaultMotionThreshold},
		{"explicit", 1.5, 0, 1.5},
		{"set replaces", 1.5, 0.25, 0.25},
		{"set ignores negative", 1.5, -1, 1.5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			md := NewMotionDetector(tt.initial)
			defer md.Close()
			if tt.set != 0 {
				md.SetThreshold(tt.set)
			}
			if md.threshold != tt.want {
				t.Errorf("threshold = %f, want %f", md.threshold, tt.want)
			}
		})
	}
}

func TestMotionDetector_Detect(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping test that requires GoCV Mat creation")
	}

	tests := []struct {
		name      string
		threshold float64
		first     func() gocv.Mat
		second    func() gocv.Mat
		want      bool
	}{
		{"static scene", DefaultMotionThreshold, blank, blank, false},
		{"ball enters", DefaultMotionThreshold, blank, func() gocv.Mat { return withBall(320, 240, 6) }, true},
		{"ball moves", DefaultMotionThreshold,
			func() gocv.Mat { return withBall(200, 240, 6) },
			func() gocv.Mat { return withBall(260, 236, 6) }, true},
		{"below a coarse threshold", 5, blank, func() gocv.Mat { return withBall(320, 240, 6) }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			md := NewMotionDetector(tt.threshold)
			defer md.Close()

			a, b := tt.first(), tt.second()
			defer a.Close()
			defer b.Close()

			if moving, pct := md.Detect(&a); moving || pct != 0 {
				t.Fatalf("baseline frame reported motion (%f%%)", pct)
			}
			if moving, pct := md.Detect(&b); moving != tt.want {
				t.Errorf("Detect() = %v (%f%%), want %v", moving, pct, tt.want)
			}
		})
	}
}

func TestMotionDetector_ResetDropsBaseline(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping test that requires GoCV Mat creation")
	}

	md := NewMotionDetector(DefaultMotionThreshold)
	defer md.Close()

	a := blank()
	defer a.Close()
	b := withBall(320, 240, 6)
	defer b.Close()

	md.Detect(&a)
	md.Reset()
	if md.initialized || !md.prevGray.Empty() {
		t.Fatal("Reset() should drop the baseline")
	}
	if moving, _ := md.Detect(&b); moving {
		t.Error("first frame after Reset() must only set the baseline")
	}

	md.Close()
	md.Close()
}

func TestMotionDetector_SizeChangeRebases(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping test that requires GoCV Mat creation")
	}

	md := NewMotionDetector(DefaultMotionThreshold)
	defer md.Close()

	small := gocv.NewMatWithSize(240, 320, gocv.MatTypeCV8UC3)
	defer small.Close()
	large := withBall(320, 240, 6)
	defer large.Close()

	md.Detect(&small)
	if moving, _ := md.Detect(&large); moving {
		t.Error("a resolution change should rebase, not report motion")
	}
}

func TestGate(t *testing.T) {
	clock := timeutil.NewMockClock(time.Date(2026, 4, 1, 19, 5, 0, 0, time.UTC))
	g := NewGate(NewMotionDetector(1), 500*time.Millisecond, clock)
	defer g.Close()

	steps := []struct {
		advance time.Duration
		moving  bool
		want    bool
	}{
		{0, false, false},
		{0, true, true},
		{400 * time.Millisecond, false, true},
		{200 * time.Millisecond, false, false},
		{time.Second, true, true},
	}
	for i, s := range steps {
		clock.Advance(s.advance)
		if got := g.observe(s.moving); got != s.want {
			t.Errorf("step %d: observe(%v) = %v, want %v", i, s.moving, got, s.want)
		}
		if g.Active() != s.want {
			t.Errorf("step %d: Active() = %v, want %v", i, g.Active(), s.want)
		}
	}
}

func TestGate_NilMotionAlwaysOpen(t *testing.T) {
	g := NewGate(nil, 0, nil)

	if !g.Open(nil) || !g.Active() {
		t.Error("gate without a motion detector should always be open")
	}
	g.Close()
}
