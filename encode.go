package gainmap

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/nfnt/resize"

	"github.com/hdrkit/gainmap/render"
)

// EncodeOptions tunes gain map generation.
type EncodeOptions struct {
	// MaxContentBoost is the largest HDR/SDR ratio the map can encode,
	// per channel, in linear space. Zero means derive it from the
	// source pixel statistics.
	MaxContentBoost [3]float32

	// MinContentBoost is the smallest encoded ratio. Defaults to 1
	// (no attenuation) when MaxContentBoost is explicit, or to the
	// observed minimum when boosts are derived.
	MinContentBoost [3]float32

	// Gamma is the encoding exponent compressing gain into 8 bits.
	Gamma [3]float32

	OffsetSDR [3]float32
	OffsetHDR [3]float32

	// SingleChannel encodes one gain value from max(R,G,B), replicated
	// across channels, instead of per-channel gains.
	SingleChannel bool

	// MapScale downscales the returned map by an integer factor (>= 1).
	// The rendered surface stays full resolution; ReadPixels resamples.
	MapScale int
}

// WithMaxContentBoost sets a uniform maximum content boost.
func WithMaxContentBoost(boost float32) func(*EncodeOptions) {
	return func(o *EncodeOptions) { o.MaxContentBoost = Triplet(boost) }
}

// WithMapScale sets the gain map downscale factor.
func WithMapScale(scale int) func(*EncodeOptions) {
	return func(o *EncodeOptions) { o.MapScale = scale }
}

// gainProgram encodes per-pixel gain with the forward formula. The SDR
// input is sRGB-encoded 8-bit and is linearized before use. Parameters
// mutate only between renders; Shade reads them without locking.
type gainProgram struct {
	meta          *Metadata
	singleChannel bool
}

func (*gainProgram) Name() string { return "gainmap-encode" }

func (p *gainProgram) setMetadata(m *Metadata) { p.meta = m }

func (p *gainProgram) Shade(x, y int, inputs []*render.Texture) [4]float32 {
	hdr := inputs[0].Sample(x, y)
	sdr := inputs[1].Sample(x, y)
	for c := 0; c < 3; c++ {
		sdr[c] = render.SRGBToLinear(sdr[c])
	}
	var out [4]float32
	if p.singleChannel {
		g := EncodeGain(max3(hdr[0], hdr[1], hdr[2]), max3(sdr[0], sdr[1], sdr[2]), p.meta, 0)
		out[0], out[1], out[2] = g, g, g
	} else {
		for c := 0; c < 3; c++ {
			out[c] = EncodeGain(hdr[c], sdr[c], p.meta, c)
		}
	}
	out[3] = 1
	return out
}

// GainMapRenderer produces the gain map image and its metadata record from
// an HDR source and its SDR rendition.
type GainMapRenderer struct {
	pass *render.Pass
	prog *gainProgram
	opt  EncodeOptions
	hdr  *render.Texture
	sdr  *render.Texture
	meta *Metadata
}

// NewGainMapRenderer builds the forward pass. The HDR and SDR inputs must
// have identical pixel dimensions; on mismatch it fails with
// ErrDimensionMismatch before any surface is allocated.
func NewGainMapRenderer(hdr, sdr *render.Texture, ctx *render.Context, opts ...func(*EncodeOptions)) (*GainMapRenderer, error) {
	if hdr.Width() != sdr.Width() || hdr.Height() != sdr.Height() {
		return nil, fmt.Errorf("%w: HDR %dx%d vs SDR %dx%d",
			ErrDimensionMismatch, hdr.Width(), hdr.Height(), sdr.Width(), sdr.Height())
	}

	opt := EncodeOptions{
		Gamma:     Triplet(1),
		OffsetSDR: Triplet(DefaultOffsetSDR),
		OffsetHDR: Triplet(DefaultOffsetHDR),
		MapScale:  1,
	}
	for _, apply := range opts {
		apply(&opt)
	}
	if opt.MapScale < 1 {
		opt.MapScale = 1
	}
	for c := 0; c < 3; c++ {
		if opt.Gamma[c] <= 0 {
			return nil, fmt.Errorf("gainmap: gamma[%d]=%g must be > 0", c, opt.Gamma[c])
		}
	}

	prog := &gainProgram{singleChannel: opt.SingleChannel}
	pass, err := render.NewPass(hdr.Width(), hdr.Height(),
		gputypes.TextureFormatRGBA8Unorm, render.ColorSpaceLinear, prog, ctx)
	if err != nil {
		return nil, err
	}
	pass.SetInputs(hdr, sdr)
	return &GainMapRenderer{pass: pass, prog: prog, opt: opt, hdr: hdr, sdr: sdr}, nil
}

// Render derives the metadata record and executes the forward pass.
func (r *GainMapRenderer) Render() error {
	meta := r.deriveMetadata()
	if err := meta.Validate(); err != nil {
		return err
	}
	r.prog.setMetadata(meta)
	if err := r.pass.Render(); err != nil {
		return err
	}
	r.meta = meta
	return nil
}

// Metadata returns the immutable record snapshot for the last Render, or
// nil before the first successful Render.
func (r *GainMapRenderer) Metadata() *Metadata {
	if r.meta == nil {
		return nil
	}
	snapshot := *r.meta
	return &snapshot
}

// ReadPixels copies the gain map into a host buffer, downscaled by
// MapScale when configured.
func (r *GainMapRenderer) ReadPixels() (*render.PixelBuffer, error) {
	buf, err := r.pass.ReadPixels()
	if err != nil {
		return nil, err
	}
	if r.opt.MapScale == 1 {
		return buf, nil
	}
	w := buf.Width / r.opt.MapScale
	h := buf.Height / r.opt.MapScale
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}
	scaled := resize.Resize(uint(w), uint(h), ToImage(buf), resize.Bilinear)
	return FromImage(scaled)
}

// Texture exposes the full-resolution gain map for a downstream pass.
func (r *GainMapRenderer) Texture() (*render.Texture, error) { return r.pass.Texture() }

// Dispose releases the pass. Idempotent.
func (r *GainMapRenderer) Dispose() { r.pass.Dispose() }

// deriveMetadata maps the options into the log2-space record, scanning the
// sources for content boost bounds when none are given.
func (r *GainMapRenderer) deriveMetadata() *Metadata {
	meta := &Metadata{
		Gamma:     r.opt.Gamma,
		OffsetSDR: r.opt.OffsetSDR,
		OffsetHDR: r.opt.OffsetHDR,
	}

	maxBoost := r.opt.MaxContentBoost
	minBoost := r.opt.MinContentBoost
	if maxBoost == ([3]float32{}) {
		minBoost, maxBoost = r.scanContentBoost()
	} else if minBoost == ([3]float32{}) {
		minBoost = Triplet(1)
	}

	for c := 0; c < 3; c++ {
		meta.GainMapMin[c] = log2f(minBoost[c])
		meta.GainMapMax[c] = log2f(maxBoost[c])
		if meta.GainMapMax[c] < meta.GainMapMin[c] {
			meta.GainMapMax[c] = meta.GainMapMin[c]
		}
	}

	meta.HDRCapacityMin = 0
	meta.HDRCapacityMax = max3(meta.GainMapMax[0], meta.GainMapMax[1], meta.GainMapMax[2])
	if meta.HDRCapacityMax < 0 {
		meta.HDRCapacityMax = 0
	}
	return meta
}

// scanContentBoost measures the observed HDR/SDR ratio range. The scan
// mirrors the encode formula's offsets so the derived bounds are exact.
func (r *GainMapRenderer) scanContentBoost() (minBoost, maxBoost [3]float32) {
	const maxFinite = 3.4e38
	lo := Triplet(maxFinite)
	hi := Triplet(-maxFinite)
	for y := 0; y < r.hdr.Height(); y++ {
		for x := 0; x < r.hdr.Width(); x++ {
			hdr := r.hdr.Sample(x, y)
			sdr := r.sdr.Sample(x, y)
			for c := 0; c < 3; c++ {
				s := render.SRGBToLinear(sdr[c])
				ratio := (hdr[c] + r.opt.OffsetHDR[c]) / (s + r.opt.OffsetSDR[c])
				if ratio < lo[c] {
					lo[c] = ratio
				}
				if ratio > hi[c] {
					hi[c] = ratio
				}
			}
		}
	}
	for c := 0; c < 3; c++ {
		if lo[c] > 1 {
			lo[c] = 1
		}
		if hi[c] < lo[c] {
			hi[c] = lo[c]
		}
	}
	if r.opt.SingleChannel {
		l := min3(lo[0], lo[1], lo[2])
		h := max3(hi[0], hi[1], hi[2])
		return Triplet(l), Triplet(h)
	}
	return lo, hi
}

func max3(a, b, c float32) float32 {
	if a >= b && a >= c {
		return a
	}
	if b >= a && b >= c {
		return b
	}
	return c
}

func min3(a, b, c float32) float32 {
	if a <= b && a <= c {
		return a
	}
	if b <= a && b <= c {
		return b
	}
	return c
}
