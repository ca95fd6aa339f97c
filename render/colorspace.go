package render

import "math"

// ColorSpace selects the transfer encoding applied when a pass writes its
// output surface. Programs always shade in linear light; the pass encodes
// on store, the way sRGB texture formats do on a GPU.
type ColorSpace int

const (
	// ColorSpaceLinear stores shaded values as-is.
	ColorSpaceLinear ColorSpace = iota

	// ColorSpaceSRGB applies the sRGB OETF to RGB on store. Alpha is
	// never encoded.
	ColorSpaceSRGB
)

// LinearToSRGB applies the sRGB opto-electronic transfer function.
func LinearToSRGB(v float32) float32 {
	if v <= 0.0031308 {
		return 12.92 * v
	}
	return 1.055*float32(math.Pow(float64(v), 1.0/2.4)) - 0.055
}

// SRGBToLinear inverts LinearToSRGB.
func SRGBToLinear(v float32) float32 {
	if v <= 0.04045 {
		return v / 12.92
	}
	return float32(math.Pow(float64((v+0.055)/1.055), 2.4))
}

func (s ColorSpace) encode(px [4]float32) [4]float32 {
	if s != ColorSpaceSRGB {
		return px
	}
	for c := 0; c < 3; c++ {
		px[c] = LinearToSRGB(px[c])
	}
	return px
}
