package gainmap

import (
	"github.com/gogpu/gputypes"

	"github.com/hdrkit/gainmap/render"
)

// sdrWhiteLevel is the HDR linear value mapped to SDR white by the
// rendition tone curve. Inputs are expected relative to SDR white, so the
// curve is a plain clamp.
const sdrWhiteLevel = 1.0

// sdrProgram is the fixed rendition tone curve: scale by 1/sdrWhiteLevel,
// clamp to [0, 1]. The pass's sRGB color space performs the output encode.
type sdrProgram struct{}

func (sdrProgram) Name() string { return "sdr-rendition" }

func (sdrProgram) Shade(x, y int, inputs []*render.Texture) [4]float32 {
	px := inputs[0].Sample(x, y)
	for c := 0; c < 3; c++ {
		px[c] = clamp01(px[c] / sdrWhiteLevel)
	}
	// Alpha carries no HDR information; the rendition is fully opaque.
	px[3] = 1
	return px
}

// SDRRenderer derives the 8-bit SDR base rendition from an HDR source by
// applying the fixed tone curve and sRGB output encode.
type SDRRenderer struct {
	pass *render.Pass
}

// NewSDRRenderer builds the rendition pass over the HDR source texture.
// ctx may be nil (the pass then owns a software context) or shared.
func NewSDRRenderer(hdr *render.Texture, ctx *render.Context) (*SDRRenderer, error) {
	pass, err := render.NewPass(hdr.Width(), hdr.Height(),
		gputypes.TextureFormatRGBA8Unorm, render.ColorSpaceSRGB, sdrProgram{}, ctx)
	if err != nil {
		return nil, err
	}
	pass.SetInputs(hdr)
	return &SDRRenderer{pass: pass}, nil
}

// Render executes the rendition pass. Re-rendering is allowed.
func (r *SDRRenderer) Render() error { return r.pass.Render() }

// ReadPixels copies the rendition into a host buffer.
func (r *SDRRenderer) ReadPixels() (*render.PixelBuffer, error) { return r.pass.ReadPixels() }

// Texture exposes the rendition for a downstream pass without a host
// round-trip.
func (r *SDRRenderer) Texture() (*render.Texture, error) { return r.pass.Texture() }

// Dispose releases the pass. Idempotent.
func (r *SDRRenderer) Dispose() { r.pass.Dispose() }
