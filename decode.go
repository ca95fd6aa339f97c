package gainmap

import (
	"fmt"

	"github.com/gogpu/gputypes"

	"github.com/hdrkit/gainmap/render"
)

// DecodeOptions tunes HDR reconstruction.
type DecodeOptions struct {
	// MaxDisplayBoost clamps how much of the encoded HDR range is
	// restored. Zero means full restoration (2^HDRCapacityMax).
	MaxDisplayBoost float32

	// OutputFormat is the floating-point surface format of the
	// reconstruction. Defaults to RGBA32Float.
	OutputFormat gputypes.TextureFormat
}

// WithMaxDisplayBoost sets the initial display boost.
func WithMaxDisplayBoost(boost float32) func(*DecodeOptions) {
	return func(o *DecodeOptions) { o.MaxDisplayBoost = boost }
}

// WithOutputFormat selects the reconstruction surface format.
func WithOutputFormat(format gputypes.TextureFormat) func(*DecodeOptions) {
	return func(o *DecodeOptions) { o.OutputFormat = format }
}

// reconstructProgram applies the inverse formula. The SDR input is
// sRGB-encoded 8-bit and is linearized before use; the gain map input is
// nearest-upsampled when smaller than the output. Parameters mutate only
// between renders; Shade reads them without locking.
type reconstructProgram struct {
	meta   *Metadata
	weight float32
	width  int
	height int
}

func (*reconstructProgram) Name() string { return "gainmap-reconstruct" }

func (p *reconstructProgram) setWeight(w float32) { p.weight = w }

func (p *reconstructProgram) Shade(x, y int, inputs []*render.Texture) [4]float32 {
	sdr := inputs[0].Sample(x, y)
	gain := inputs[1].SampleRect(x, y, p.width, p.height)
	var out [4]float32
	for c := 0; c < 3; c++ {
		s := render.SRGBToLinear(sdr[c])
		out[c] = ApplyGain(s, gain[c], p.meta, c, p.weight)
	}
	out[3] = sdr[3]
	return out
}

// Decoder reconstructs an HDR surface from an SDR rendition, its gain map,
// and the metadata record. MaxDisplayBoost may be changed between renders
// to produce differently-boosted reconstructions from the same inputs.
type Decoder struct {
	pass  *render.Pass
	prog  *reconstructProgram
	meta  *Metadata
	boost float32
}

// NewDecoder builds the inverse pass. The gain map must match the SDR
// dimensions exactly or be an integer downscale of them; anything else
// fails with ErrDimensionMismatch before any surface is allocated.
func NewDecoder(sdr, gainMap *render.Texture, meta *Metadata, ctx *render.Context, opts ...func(*DecodeOptions)) (*Decoder, error) {
	if meta == nil {
		return nil, fmt.Errorf("gainmap: metadata required")
	}
	if err := meta.Validate(); err != nil {
		return nil, err
	}
	if !mapFitsBase(gainMap.Width(), sdr.Width()) || !mapFitsBase(gainMap.Height(), sdr.Height()) {
		return nil, fmt.Errorf("%w: gain map %dx%d vs SDR %dx%d",
			ErrDimensionMismatch, gainMap.Width(), gainMap.Height(), sdr.Width(), sdr.Height())
	}

	opt := DecodeOptions{OutputFormat: gputypes.TextureFormatRGBA32Float}
	for _, apply := range opts {
		apply(&opt)
	}
	if opt.MaxDisplayBoost == 0 {
		opt.MaxDisplayBoost = meta.MaxDisplayBoost()
	}
	if opt.MaxDisplayBoost < 1 {
		return nil, fmt.Errorf("gainmap: max display boost %g must be >= 1", opt.MaxDisplayBoost)
	}

	snapshot := *meta
	prog := &reconstructProgram{
		meta:   &snapshot,
		weight: BoostWeight(opt.MaxDisplayBoost, &snapshot),
		width:  sdr.Width(),
		height: sdr.Height(),
	}
	pass, err := render.NewPass(sdr.Width(), sdr.Height(),
		opt.OutputFormat, render.ColorSpaceLinear, prog, ctx)
	if err != nil {
		return nil, err
	}
	pass.SetInputs(sdr, gainMap)
	return &Decoder{pass: pass, prog: prog, meta: &snapshot, boost: opt.MaxDisplayBoost}, nil
}

// mapFitsBase reports whether a gain map extent can cover a base extent:
// equal, or baseExtent/scale for some integer scale (the encoder's MapScale,
// which floors).
func mapFitsBase(mapExtent, baseExtent int) bool {
	if mapExtent == baseExtent {
		return true
	}
	if mapExtent <= 0 || mapExtent > baseExtent {
		return false
	}
	scale := baseExtent / mapExtent
	return baseExtent/scale == mapExtent
}

// SetMaxDisplayBoost updates the requested boost. Pure parameter mutation:
// the reconstruction changes only on the next Render.
func (d *Decoder) SetMaxDisplayBoost(boost float32) error {
	if boost < 1 {
		return fmt.Errorf("gainmap: max display boost %g must be >= 1", boost)
	}
	d.boost = boost
	d.prog.setWeight(BoostWeight(boost, d.meta))
	return nil
}

// MaxDisplayBoost returns the currently requested boost.
func (d *Decoder) MaxDisplayBoost() float32 { return d.boost }

// Render executes the inverse pass, regenerating the reconstruction in
// place.
func (d *Decoder) Render() error { return d.pass.Render() }

// ReadPixels copies the reconstructed HDR surface into a host buffer.
func (d *Decoder) ReadPixels() (*render.PixelBuffer, error) { return d.pass.ReadPixels() }

// Texture exposes the reconstruction for a downstream pass.
func (d *Decoder) Texture() (*render.Texture, error) { return d.pass.Texture() }

// Dispose releases the pass. Idempotent.
func (d *Decoder) Dispose() { d.pass.Dispose() }
