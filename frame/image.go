package frame

import (
	"errors"
	"fmt"
	"image"

	"gocv.io/x/gocv"
)

// ErrEncode is returned when JPEG compression fails. There is no useful
// fallback for a failed encode, so callers surface it to the request.
var ErrEncode = errors.New("frame: jpeg encode failed")

// Valid reports whether a Mat is a usable BGR frame. Mirrors the checks
// the capture loop applies before a frame may enter the pipeline.
func Valid(img gocv.Mat) bool {
	if img.Ptr() == nil || img.Empty() {
		return false
	}
	return img.Rows() > 0 && img.Cols() > 0 && img.Channels() == 3
}

// Downscale resizes img to maxWidth when it is wider, preserving aspect
// ratio with integer truncation and area-averaging interpolation. The
// input is closed and replaced when a resize happens; otherwise it is
// returned untouched. maxWidth <= 0 disables downscaling.
func Downscale(img gocv.Mat, maxWidth int) gocv.Mat {
	if maxWidth <= 0 || img.Cols() <= maxWidth {
		return img
	}

	w := img.Cols()
	h := img.Rows()
	newW := maxWidth
	newH := h * newW / w

	resized := gocv.NewMat()
	gocv.Resize(img, &resized, image.Pt(newW, newH), 0, 0, gocv.InterpolationArea)
	img.Close()
	return resized
}

// EncodeJPEG compresses img with the given quality (1..100) and returns
// the raw JPEG bytes.
func EncodeJPEG(img gocv.Mat, quality int) ([]byte, error) {
	buf, err := gocv.IMEncodeWithParams(gocv.JPEGFileExt, img, []int{gocv.IMWriteJpegQuality, quality})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEncode, err)
	}
	defer buf.Close()

	jpg := make([]byte, len(buf.GetBytes()))
	copy(jpg, buf.GetBytes())
	return jpg, nil
}

// Decode turns raw image bytes (as fetched from a snapshot endpoint)
// into a BGR Mat.
func Decode(data []byte) (gocv.Mat, error) {
	img, err := gocv.IMDecode(data, gocv.IMReadColor)
	if err != nil {
		return gocv.Mat{}, fmt.Errorf("frame: decode: %w", err)
	}
	if !Valid(img) {
		img.Close()
		return gocv.Mat{}, errors.New("frame: decode produced an empty image")
	}
	return img, nil
}
