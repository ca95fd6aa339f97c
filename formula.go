package gainmap

import "math"

func log2f(v float32) float32 { return float32(math.Log2(float64(v))) }
func exp2f(v float32) float32 { return float32(math.Exp2(float64(v))) }
func powf(v, p float32) float32 {
	return float32(math.Pow(float64(v), float64(p)))
}

func clamp01(v float32) float32 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// EncodeGain computes the encoded gain value in [0, 1] for channel c from
// an HDR and SDR linear sample pair. A flat channel (GainMapMax equal to
// GainMapMin) always encodes zero.
func EncodeGain(hdr, sdr float32, m *Metadata, c int) float32 {
	span := m.GainMapMax[c] - m.GainMapMin[c]
	if span == 0 {
		return 0
	}
	logRecovery := (log2f(hdr+m.OffsetHDR[c]) - log2f(sdr+m.OffsetSDR[c]) - m.GainMapMin[c]) / span
	gain := clamp01(logRecovery)
	if m.Gamma[c] != 1 {
		gain = powf(gain, 1.0/m.Gamma[c])
	}
	return gain
}

// ApplyGain reconstructs the HDR linear value for channel c from an SDR
// sample, a stored gain in [0, 1], and an application weight in [0, 1]
// (see BoostWeight).
func ApplyGain(sdr, gain float32, m *Metadata, c int, weight float32) float32 {
	if m.Gamma[c] != 1 {
		gain = powf(gain, m.Gamma[c])
	}
	logBoost := m.GainMapMin[c] + (m.GainMapMax[c]-m.GainMapMin[c])*gain
	return (sdr+m.OffsetSDR[c])*exp2f(logBoost*weight) - m.OffsetHDR[c]
}

// BoostWeight maps a requested display boost onto the fraction of the
// encoded range to apply: 0 at or below 2^HDRCapacityMin, 1 at or above
// 2^HDRCapacityMax, a linear ramp in log2 space between.
func BoostWeight(maxDisplayBoost float32, m *Metadata) float32 {
	logBoost := log2f(maxDisplayBoost)
	span := m.HDRCapacityMax - m.HDRCapacityMin
	if span == 0 {
		if logBoost >= m.HDRCapacityMax {
			return 1
		}
		return 0
	}
	return clamp01((logBoost - m.HDRCapacityMin) / span)
}
