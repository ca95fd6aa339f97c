package gainmap

import (
	"image"
	"image/color"

	"github.com/gogpu/gputypes"

	"github.com/hdrkit/gainmap/render"
)

// ToImage converts a host pixel buffer into a standard library image, for
// handing off to an external compressor. Float formats are clamped to
// [0, 1] and quantized.
func ToImage(buf *render.PixelBuffer) *image.RGBA {
	out := image.NewRGBA(image.Rect(0, 0, buf.Width, buf.Height))
	for y := 0; y < buf.Height; y++ {
		for x := 0; x < buf.Width; x++ {
			px := buf.At(x, y)
			out.SetRGBA(x, y, color.RGBA{
				R: quantize8(px[0]),
				G: quantize8(px[1]),
				B: quantize8(px[2]),
				A: quantize8(px[3]),
			})
		}
	}
	return out
}

// FromImage converts a decoded standard library image into an 8-bit host
// pixel buffer. Channel values are copied as stored; no transfer decode is
// applied. Fails on an empty image.
func FromImage(img image.Image) (*render.PixelBuffer, error) {
	b := img.Bounds()
	buf, err := render.NewPixelBuffer(b.Dx(), b.Dy(), gputypes.TextureFormatRGBA8Unorm)
	if err != nil {
		return nil, err
	}
	for y := 0; y < buf.Height; y++ {
		for x := 0; x < buf.Width; x++ {
			r, g, bl, a := img.At(b.Min.X+x, b.Min.Y+y).RGBA()
			buf.Set(x, y, [4]float32{
				float32(r) / 65535.0,
				float32(g) / 65535.0,
				float32(bl) / 65535.0,
				float32(a) / 65535.0,
			})
		}
	}
	return buf, nil
}

func quantize8(v float32) uint8 {
	if v < 0 {
		v = 0
	}
	if v > 1 {
		v = 1
	}
	return uint8(v*255.0 + 0.5)
}
