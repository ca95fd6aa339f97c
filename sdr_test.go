package gainmap_test

import (
	"math"
	"testing"

	"github.com/gogpu/gputypes"

	"github.com/hdrkit/gainmap"
	"github.com/hdrkit/gainmap/render"
)

// hdrRamp builds a linear-light HDR test source whose red channel ramps
// from 0 to maxBoost across x, with green and blue at fixed fractions.
func hdrRamp(w, h int, maxBoost float32) *render.PixelBuffer {
	buf, _ := render.NewPixelBuffer(w, h, gputypes.TextureFormatRGBA32Float)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			r := maxBoost * float32(x) / float32(w-1)
			buf.Set(x, y, [4]float32{r, r * 0.5, r * 0.25, 1})
		}
	}
	return buf
}

func TestSDRRendererToneCurve(t *testing.T) {
	hdr := hdrRamp(8, 4, 4)
	r, err := gainmap.NewSDRRenderer(render.NewTexture(hdr), nil)
	if err != nil {
		t.Fatal(err)
	}
	defer r.Dispose()
	if err := r.Render(); err != nil {
		t.Fatal(err)
	}
	out, err := r.ReadPixels()
	if err != nil {
		t.Fatal(err)
	}

	if out.Format != gputypes.TextureFormatRGBA8Unorm {
		t.Fatalf("rendition format = %v, want RGBA8Unorm", out.Format)
	}
	for y := 0; y < out.Height; y++ {
		for x := 0; x < out.Width; x++ {
			got := out.At(x, y)
			src := hdr.At(x, y)
			for c := 0; c < 3; c++ {
				v := src[c]
				if v > 1 {
					v = 1
				}
				want := render.LinearToSRGB(v)
				if diff := math.Abs(float64(got[c] - want)); diff > 1.0/255+1e-4 {
					t.Fatalf("pixel (%d,%d) channel %d = %v, want %v", x, y, c, got[c], want)
				}
			}
			if got[3] != 1 {
				t.Fatalf("pixel (%d,%d) alpha = %v, want opaque", x, y, got[3])
			}
		}
	}
}

func TestSDRRendererClampsOverrange(t *testing.T) {
	buf, _ := render.NewPixelBuffer(2, 1, gputypes.TextureFormatRGBA32Float)
	buf.Set(0, 0, [4]float32{10, 10, 10, 1})
	buf.Set(1, 0, [4]float32{-1, -1, -1, 1})

	r, err := gainmap.NewSDRRenderer(render.NewTexture(buf), nil)
	if err != nil {
		t.Fatal(err)
	}
	defer r.Dispose()
	if err := r.Render(); err != nil {
		t.Fatal(err)
	}
	out, err := r.ReadPixels()
	if err != nil {
		t.Fatal(err)
	}
	if px := out.At(0, 0); px[0] != 1 {
		t.Fatalf("overrange pixel = %v, want white", px)
	}
	if px := out.At(1, 0); px[0] != 0 {
		t.Fatalf("negative pixel = %v, want black", px)
	}
}

func TestSDRRendererSharedContext(t *testing.T) {
	ctx := render.NewContext()
	defer ctx.Release()

	hdr := render.NewTexture(hdrRamp(4, 4, 2))
	r1, err := gainmap.NewSDRRenderer(hdr, ctx)
	if err != nil {
		t.Fatal(err)
	}
	r1.Dispose()

	// Disposing a renderer must not release the shared context.
	r2, err := gainmap.NewSDRRenderer(hdr, ctx)
	if err != nil {
		t.Fatal(err)
	}
	defer r2.Dispose()
	if err := r2.Render(); err != nil {
		t.Fatalf("shared context unusable after renderer dispose: %v", err)
	}
}
