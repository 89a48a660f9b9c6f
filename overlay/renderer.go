// Package overlay draws identity annotations onto frames. Rendering is
// pure: the input frame is never modified, the caller owns the returned
// copy.
package overlay

import (
	"fmt"
	"image"
	"image/color"

	"gocv.io/x/gocv"

	"github.com/rhaslani/Birdieo-v2/track"
)

// Renderer annotates frames with identity boxes and labels.
type Renderer struct {
	boxColor   color.RGBA
	labelColor color.RGBA
	thickness  int
}

func NewRenderer() *Renderer {
	return &Renderer{
		boxColor:   color.RGBA{0, 255, 0, 255},
		labelColor: color.RGBA{0, 0, 0, 255},
		thickness:  2,
	}
}

// Annotate returns a copy of img with one box, centroid dot and label
// per identity. With no identities the copy is pixel-identical to the
// input. The caller must Close the returned Mat.
func (r *Renderer) Annotate(img gocv.Mat, ids []track.Identity) gocv.Mat {
	out := img.Clone()
	for _, id := range ids {
		r.drawIdentity(&out, id)
	}
	return out
}

func (r *Renderer) drawIdentity(img *gocv.Mat, id track.Identity) {
	rect := image.Rect(id.Box.X, id.Box.Y, id.Box.X+id.Box.W, id.Box.Y+id.Box.H)
	if rect.Empty() {
		return
	}

	gocv.Rectangle(img, rect, r.boxColor, r.thickness)
	gocv.Circle(img, id.Center, 3, r.boxColor, -1)

	label := fmt.Sprintf("%s %.0f%%", id.ID, id.Confidence*100)
	size := gocv.GetTextSize(label, gocv.FontHersheySimplex, 0.4, 1)

	// Label sits above the box, or below it when the box touches the
	// top edge.
	labelPos := image.Point{X: rect.Min.X, Y: rect.Min.Y - 8}
	if labelPos.Y < size.Y+4 {
		labelPos.Y = rect.Max.Y + size.Y + 8
	}

	bg := image.Rect(
		labelPos.X-2,
		labelPos.Y-size.Y-2,
		labelPos.X+size.X+2,
		labelPos.Y+4,
	)
	gocv.Rectangle(img, bg, r.boxColor, -1)
	gocv.PutText(img, label, labelPos, gocv.FontHersheySimplex, 0.4, r.labelColor, 1)
}
