package gainmap

import (
	"image"
	"image/color"

	"github.com/gogpu/gputypes"
	"github.com/mdouchement/hdr"
	"github.com/mdouchement/hdr/hdrcolor"

	"github.com/hdrkit/gainmap/render"
)

// FromHDRImage converts a linear-light HDR image (as decoded by an
// external HDR codec) into a 32-bit float pixel buffer. Values are taken
// as relative to SDR white (1.0 = SDR white). Fails on an empty image.
func FromHDRImage(img hdr.Image) (*render.PixelBuffer, error) {
	b := img.Bounds()
	buf, err := render.NewPixelBuffer(b.Dx(), b.Dy(), gputypes.TextureFormatRGBA32Float)
	if err != nil {
		return nil, err
	}
	for y := 0; y < buf.Height; y++ {
		for x := 0; x < buf.Width; x++ {
			r, g, bl, _ := img.HDRAt(b.Min.X+x, b.Min.Y+y).HDRRGBA()
			buf.Set(x, y, [4]float32{float32(r), float32(g), float32(bl), 1})
		}
	}
	return buf, nil
}

// HDRImage adapts a floating-point pixel buffer to the hdr.Image
// interface, so reconstructions can be fed straight into HDR encoders.
type HDRImage struct {
	Buf *render.PixelBuffer
}

// ColorModel implements image.Image.
func (h *HDRImage) ColorModel() color.Model { return hdrcolor.RGBModel }

// Bounds implements image.Image.
func (h *HDRImage) Bounds() image.Rectangle {
	return image.Rect(0, 0, h.Buf.Width, h.Buf.Height)
}

// At implements image.Image.
func (h *HDRImage) At(x, y int) color.Color { return h.HDRAt(x, y) }

// HDRAt implements hdr.Image.
func (h *HDRImage) HDRAt(x, y int) hdrcolor.Color {
	px := h.Buf.At(x, y)
	return hdrcolor.RGB{R: float64(px[0]), G: float64(px[1]), B: float64(px[2])}
}

// Size implements hdr.Image.
func (h *HDRImage) Size() int { return h.Buf.Width * h.Buf.Height }

var _ hdr.Image = (*HDRImage)(nil)
