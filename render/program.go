package render

import "github.com/gogpu/gputypes"

// Program is a per-pixel transform, the software analogue of a fragment
// shader. Shade is invoked once per output pixel with the bound input
// textures and must be safe for concurrent calls.
//
// Parameter mutation follows a two-phase contract: programs may expose
// setters that change uniforms, but only Pass.Render re-executes the
// program. Setters must never render implicitly.
type Program interface {
	// Name identifies the program in logs and diagnostics.
	Name() string

	// Shade computes the linear-light RGBA output for pixel (x, y).
	Shade(x, y int, inputs []*Texture) [4]float32
}

// Texture is a sampleable image bound as a program input or exposed as a
// pass output for downstream passes.
type Texture struct {
	buf *PixelBuffer
}

// NewTexture wraps a pixel buffer as a sampleable texture. The texture
// aliases the buffer; it does not copy.
func NewTexture(buf *PixelBuffer) *Texture {
	return &Texture{buf: buf}
}

// Width returns the texture width in pixels.
func (t *Texture) Width() int { return t.buf.Width }

// Height returns the texture height in pixels.
func (t *Texture) Height() int { return t.buf.Height }

// Format returns the underlying pixel format.
func (t *Texture) Format() gputypes.TextureFormat { return t.buf.Format }

// Sample returns the texel at (x, y), clamping coordinates to the edge.
func (t *Texture) Sample(x, y int) [4]float32 {
	if x < 0 {
		x = 0
	}
	if y < 0 {
		y = 0
	}
	if x >= t.buf.Width {
		x = t.buf.Width - 1
	}
	if y >= t.buf.Height {
		y = t.buf.Height - 1
	}
	return t.buf.At(x, y)
}

// SampleRect nearest-samples the texture as if it covered a dstW x dstH
// surface. Used when an input (e.g. a downscaled map) is smaller than the
// pass output.
func (t *Texture) SampleRect(x, y, dstW, dstH int) [4]float32 {
	if dstW == t.buf.Width && dstH == t.buf.Height {
		return t.Sample(x, y)
	}
	sx := int((float32(x) + 0.5) * float32(t.buf.Width) / float32(dstW))
	sy := int((float32(y) + 0.5) * float32(t.buf.Height) / float32(dstH))
	return t.Sample(sx, sy)
}
