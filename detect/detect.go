// Package detect defines the detection types shared by the tracker and
// the overlay renderer, and the boundary that validates everything
// arriving from the external detection oracle. Oracle output is
// untrusted input: boxes are clamped to the frame and to minimum size
// thresholds before anything downstream sees them.
package detect

import (
	"context"
	"image"
)

// Boxes smaller than this after clamping are noise and are dropped.
const (
	MinBoxWidth  = 10
	MinBoxHeight = 20
)

// Box is a bounding box in pixel units relative to the frame that
// produced it.
type Box struct {
	X int `json:"x"`
	Y int `json:"y"`
	W int `json:"w"`
	H int `json:"h"`
}

// Center returns the integer centroid of the box.
func (b Box) Center() image.Point {
	return image.Pt(b.X+b.W/2, b.Y+b.H/2)
}

// Detection is one candidate subject region reported by the oracle.
type Detection struct {
	Label      string
	Confidence float64
	Box        Box
}

// Oracle produces detections for a JPEG-encoded frame. Implementations
// may fail or return malformed boxes; callers must pass results through
// Sanitize and must treat errors as a degraded-but-valid empty result.
type Oracle interface {
	Detect(ctx context.Context, jpeg []byte, width, height int) ([]Detection, error)
}

// ClampBox forces b inside a width×height frame. ok is false when the
// box has no usable overlap with the frame or is below the minimum size
// thresholds after clamping.
func ClampBox(b Box, width, height int) (Box, bool) {
	if width <= 0 || height <= 0 {
		return Box{}, false
	}
	if b.X < 0 {
		b.X = 0
	}
	if b.Y < 0 {
		b.Y = 0
	}
	if b.X >= width || b.Y >= height {
		return Box{}, false
	}
	if b.X+b.W > width {
		b.W = width - b.X
	}
	if b.Y+b.H > height {
		b.H = height - b.Y
	}
	if b.W < MinBoxWidth || b.H < MinBoxHeight {
		return Box{}, false
	}
	return b, true
}

// Sanitize applies ClampBox to every detection and clamps confidences
// into [0,1]. Detections whose boxes do not survive clamping are
// dropped. Input order is preserved.
func Sanitize(dets []Detection, width, height int) []Detection {
	out := make([]Detection, 0, len(dets))
	for _, d := range dets {
		box, ok := ClampBox(d.Box, width, height)
		if !ok {
			continue
		}
		d.Box = box
		if d.Confidence < 0 {
			d.Confidence = 0
		}
		if d.Confidence > 1 {
			d.Confidence = 1
		}
		out = append(out, d)
	}
	return out
}
