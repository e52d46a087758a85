//go:build withcv

package imagery

import (
	"image"

	"gocv.io/x/gocv"
)

// preprocess denoises img with a Gaussian blur via gocv before the pure-Go
// binarization/layout pass, trading a cgo dependency for materially
// cleaner row/column darkness sums on scanned (as opposed to rendered)
// pages.
func preprocess(img Image) Image {
	mat, err := gocv.NewMatFromBytes(img.Height, img.Width, gocv.MatTypeCV8UC4, img.Pixels)
	if err != nil {
		return img
	}
	defer mat.Close()

	blurred := gocv.NewMat()
	defer blurred.Close()
	gocv.GaussianBlur(mat, &blurred, image.Pt(3, 3), 0, 0, gocv.BorderDefault)

	out := make([]byte, len(img.Pixels))
	copy(out, blurred.ToBytes())
	return Image{Width: img.Width, Height: img.Height, Pixels: out}
}
