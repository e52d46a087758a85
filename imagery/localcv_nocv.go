//go:build !withcv

package imagery

// preprocess is the pure-Go stand-in used when the gocv-accelerated path
// is not built in (CI and most deployments): a simple 3x3 box blur over
// each RGB channel, cheap enough to run without cgo.
func preprocess(img Image) Image {
	out := make([]byte, len(img.Pixels))
	copy(out, img.Pixels)

	for y := 1; y < img.Height-1; y++ {
		for x := 1; x < img.Width-1; x++ {
			for c := 0; c < 3; c++ {
				var sum int
				for dy := -1; dy <= 1; dy++ {
					for dx := -1; dx <= 1; dx++ {
						i := ((y+dy)*img.Width+(x+dx))*4 + c
						sum += int(img.Pixels[i])
					}
				}
				out[(y*img.Width+x)*4+c] = byte(sum / 9)
			}
		}
	}
	return Image{Width: img.Width, Height: img.Height, Pixels: out}
}
