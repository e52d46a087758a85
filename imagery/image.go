// Package imagery implements the Image Analyzer: converting a decoded
// raster into grid calibration, electrical calibration and a panel layout,
// via a VLM-guided primary path with a local computer-vision fallback.
package imagery

// Image is an immutable view over a decoded raster: width, height, and a
// dense row-major array of RGBA samples. The core never mutates an Image;
// every stage downstream of the Image Analyzer allocates new values.
type Image struct {
	Width  int
	Height int
	Pixels []byte // row-major RGBA, len == Width*Height*4
}

// NewImage constructs an Image, panicking if pixels is not sized
// Width*Height*4. Callers decode PNG/JPEG themselves; this package accepts
// only already-decoded pixel buffers.
func NewImage(width, height int, pixels []byte) Image {
	if len(pixels) != width*height*4 {
		panic("imagery: pixel buffer size does not match width*height*4")
	}
	return Image{Width: width, Height: height, Pixels: pixels}
}

// At returns the RGBA components of the pixel at (x, y).
func (img Image) At(x, y int) (r, g, b, a uint8) {
	i := (y*img.Width + x) * 4
	return img.Pixels[i], img.Pixels[i+1], img.Pixels[i+2], img.Pixels[i+3]
}

// Valid reports whether (x, y) lies within the image bounds.
func (img Image) Valid(x, y int) bool {
	return x >= 0 && x < img.Width && y >= 0 && y < img.Height
}
