package detector

import "image"

// Center returns the centre of r in pixels.
func Center(r image.Rectangle) (x, y float64) {
	return float64(r.Min.X+r.Max.X) / 2, float64(r.Min.Y+r.Max.Y) / 2
}

// ApparentDiameter returns the mean of the box width and height in pixels.
// A ball's box is roughly square; averaging absorbs motion blur along one axis.
func ApparentDiameter(r image.Rectangle) float64 {
	return float64(r.Dx()+r.Dy()) / 2
}

// Filter returns the detections matching label with confidence above
// minConfidence.
func Filter(dets []Detection, label string, minConfidence float64) []Detection {
	var out []Detection
	for _, d := range dets {
		if d.Label == label && d.Confidence > minConfidence {
			out = append(out, d)
		}
	}
	return out
}
