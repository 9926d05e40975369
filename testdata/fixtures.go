// Package testdata renders synthetic camera frames for pipeline tests.
package testdata

import (
	"image"
	"image/color"

	"gocv.io/x/gocv"
)

// Frame dimensions match the default camera configuration.
const (
	Width  = 640
	Height = 480
)

var white = color.RGBA{R: 255, G: 255, B: 255}

// BlankFrame returns a black frame.
func BlankFrame() *gocv.Mat {
	m := gocv.NewMatWithSize(Height, Width, gocv.MatTypeCV8UC3)
	return &m
}

// BallFrame returns a black frame with a white ball of the given pixel
// radius centred at c.
func BallFrame(c image.Point, radius int) *gocv.Mat {
	m := BlankFrame()
	gocv.Circle(m, c, radius, white, -1)
	return m
}

// PitchSequence renders n frames of a ball moving from start by step per
// frame, shrinking radius by shrink each frame down to a minimum of 2px to
// mimic a ball travelling away from the camera.
func PitchSequence(n int, start, step image.Point, radius, shrink int) []*gocv.Mat {
	frames := make([]*gocv.Mat, 0, n)
	for i := 0; i < n; i++ {
		r := radius - i*shrink
		if r < 2 {
			r = 2
		}
		frames = append(frames, BallFrame(start.Add(step.Mul(i)), r))
	}
	return frames
}

// CloseAll releases every frame.
func CloseAll(frames []*gocv.Mat) {
	for _, f := range frames {
		if f != nil {
			f.Close()
		}
	}
}
