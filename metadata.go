package gainmap

import "fmt"

// Default per-channel offsets preventing log(0) in the gain formulas.
const (
	DefaultOffsetSDR = 1.0 / 64.0
	DefaultOffsetHDR = 1.0 / 64.0
)

// Metadata is the gain map transform parameter record.
//
// GainMapMin/GainMapMax bound the log2 boost each gain map pixel can
// encode; HDRCapacityMin/HDRCapacityMax bound the log2 boost the whole map
// represents, letting a decoder apply a partial boost. All triplets are
// per-channel R, G, B.
//
// A Metadata value is immutable once constructed: renderers hand out
// snapshots and the decoder only reads it.
type Metadata struct {
	GainMapMin [3]float32 // log2
	GainMapMax [3]float32 // log2
	Gamma      [3]float32
	OffsetSDR  [3]float32
	OffsetHDR  [3]float32

	HDRCapacityMin float32 // log2
	HDRCapacityMax float32 // log2
}

// Validate checks the record's invariants.
func (m *Metadata) Validate() error {
	for c := 0; c < 3; c++ {
		if m.GainMapMax[c] < m.GainMapMin[c] {
			return fmt.Errorf("gainmap: GainMapMax[%d]=%g < GainMapMin[%d]=%g", c, m.GainMapMax[c], c, m.GainMapMin[c])
		}
		if m.Gamma[c] <= 0 {
			return fmt.Errorf("gainmap: Gamma[%d]=%g must be > 0", c, m.Gamma[c])
		}
	}
	if m.HDRCapacityMin < 0 {
		return fmt.Errorf("gainmap: HDRCapacityMin=%g must be >= 0", m.HDRCapacityMin)
	}
	if m.HDRCapacityMax < m.HDRCapacityMin {
		return fmt.Errorf("gainmap: HDRCapacityMax=%g < HDRCapacityMin=%g", m.HDRCapacityMax, m.HDRCapacityMin)
	}
	return nil
}

// MaxDisplayBoost returns the boost at which the decoder applies the full
// encoded range, 2^HDRCapacityMax.
func (m *Metadata) MaxDisplayBoost() float32 {
	return exp2f(m.HDRCapacityMax)
}

// Triplet returns a uniform per-channel triplet.
func Triplet(v float32) [3]float32 {
	return [3]float32{v, v, v}
}

func tripletUniform(t [3]float32) bool {
	return t[0] == t[1] && t[0] == t[2]
}
