package render_test

import (
	"math"
	"testing"

	colorful "github.com/lucasb-eyer/go-colorful"

	"github.com/hdrkit/gainmap/render"
)

// The transfer functions must agree with go-colorful's linear RGB
// conversions, which implement the same sRGB curve.
func TestSRGBTransferAgainstColorful(t *testing.T) {
	for _, v := range []float32{0, 0.0005, 0.0031308, 0.01, 0.18, 0.5, 0.999, 1} {
		want := colorful.LinearRgb(float64(v), float64(v), float64(v)).R
		got := render.LinearToSRGB(v)
		if diff := math.Abs(float64(got) - want); diff > 1e-5 {
			t.Errorf("LinearToSRGB(%v) = %v, reference %v", v, got, want)
		}
	}
}

func TestSRGBTransferRoundTrip(t *testing.T) {
	for v := float32(0); v <= 1; v += 0.05 {
		got := render.SRGBToLinear(render.LinearToSRGB(v))
		if diff := math.Abs(float64(got - v)); diff > 1e-6 {
			t.Errorf("round trip of %v = %v", v, got)
		}
	}
}
