package render

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/gogpu/gputypes"
)

// PixelBuffer is a host-addressable RGBA image. Pix holds packed
// little-endian channel data; len(Pix) == Width*Height*4*channel size.
type PixelBuffer struct {
	Width  int
	Height int
	Format gputypes.TextureFormat
	Pix    []byte
}

// FormatSupported reports whether the package can allocate and address
// buffers of the given texture format.
func FormatSupported(format gputypes.TextureFormat) bool {
	switch format {
	case gputypes.TextureFormatRGBA8Unorm,
		gputypes.TextureFormatRGBA16Float,
		gputypes.TextureFormatRGBA32Float:
		return true
	default:
		return false
	}
}

func channelBytes(format gputypes.TextureFormat) int {
	switch format {
	case gputypes.TextureFormatRGBA8Unorm:
		return 1
	case gputypes.TextureFormatRGBA16Float:
		return 2
	case gputypes.TextureFormatRGBA32Float:
		return 4
	default:
		return 0
	}
}

// NewPixelBuffer allocates a zeroed buffer. It fails with
// ErrUnsupportedFormat for formats the package cannot address.
func NewPixelBuffer(width, height int, format gputypes.TextureFormat) (*PixelBuffer, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("render: invalid dimensions %dx%d", width, height)
	}
	cb := channelBytes(format)
	if cb == 0 {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedFormat, format)
	}
	return &PixelBuffer{
		Width:  width,
		Height: height,
		Format: format,
		Pix:    make([]byte, width*height*4*cb),
	}, nil
}

// At returns the RGBA value at (x, y) as float32. Unorm channels are
// normalized to [0, 1]; float formats are returned as stored.
func (b *PixelBuffer) At(x, y int) [4]float32 {
	i := (y*b.Width + x) * 4
	var px [4]float32
	switch b.Format {
	case gputypes.TextureFormatRGBA8Unorm:
		for c := 0; c < 4; c++ {
			px[c] = float32(b.Pix[i+c]) / 255.0
		}
	case gputypes.TextureFormatRGBA16Float:
		for c := 0; c < 4; c++ {
			px[c] = halfToFloat32(binary.LittleEndian.Uint16(b.Pix[(i+c)*2:]))
		}
	case gputypes.TextureFormatRGBA32Float:
		for c := 0; c < 4; c++ {
			px[c] = math.Float32frombits(binary.LittleEndian.Uint32(b.Pix[(i+c)*4:]))
		}
	}
	return px
}

// Set stores an RGBA value at (x, y). Unorm channels are clamped to [0, 1]
// and quantized with rounding.
func (b *PixelBuffer) Set(x, y int, px [4]float32) {
	i := (y*b.Width + x) * 4
	switch b.Format {
	case gputypes.TextureFormatRGBA8Unorm:
		for c := 0; c < 4; c++ {
			v := px[c]
			if v < 0 {
				v = 0
			}
			if v > 1 {
				v = 1
			}
			b.Pix[i+c] = uint8(v*255.0 + 0.5)
		}
	case gputypes.TextureFormatRGBA16Float:
		for c := 0; c < 4; c++ {
			binary.LittleEndian.PutUint16(b.Pix[(i+c)*2:], float32ToHalf(px[c]))
		}
	case gputypes.TextureFormatRGBA32Float:
		for c := 0; c < 4; c++ {
			binary.LittleEndian.PutUint32(b.Pix[(i+c)*4:], math.Float32bits(px[c]))
		}
	}
}

// Clone returns a deep copy of the buffer.
func (b *PixelBuffer) Clone() *PixelBuffer {
	out := &PixelBuffer{Width: b.Width, Height: b.Height, Format: b.Format}
	out.Pix = append([]byte(nil), b.Pix...)
	return out
}

func halfToFloat32(h uint16) float32 {
	sign := uint32(h>>15) & 0x1
	exp := int32(h>>10) & 0x1F
	mant := int32(h & 0x03FF)

	if exp == 0 {
		if mant == 0 {
			return math.Float32frombits(sign << 31)
		}
		for mant&0x0400 == 0 {
			mant <<= 1
			exp--
		}
		exp++
		mant &= 0x03FF
	} else if exp == 31 {
		if mant == 0 {
			return math.Float32frombits((sign << 31) | 0x7F800000)
		}
		return math.Float32frombits((sign << 31) | 0x7F800000 | (uint32(mant) << 13))
	}

	exp = exp + (127 - 15)
	mant <<= 13
	bits := (sign << 31) | (uint32(exp) << 23) | uint32(mant)
	return math.Float32frombits(bits)
}

func float32ToHalf(f float32) uint16 {
	bits := math.Float32bits(f)
	sign := uint16(bits>>16) & 0x8000
	exp := int32(bits>>23)&0xFF - 127 + 15
	mant := bits & 0x007FFFFF

	switch {
	case exp >= 31:
		if bits&0x7FFFFFFF > 0x7F800000 {
			// NaN, keep a mantissa bit set.
			return sign | 0x7C00 | 0x0200
		}
		return sign | 0x7C00 // overflow to inf
	case exp <= 0:
		if exp < -10 {
			return sign // underflow to zero
		}
		mant |= 0x00800000
		shift := uint32(14 - exp)
		half := uint16(mant >> shift)
		if mant>>(shift-1)&1 != 0 {
			half++ // round to nearest
		}
		return sign | half
	default:
		half := sign | uint16(exp)<<10 | uint16(mant>>13)
		if mant&0x1000 != 0 {
			half++
		}
		return half
	}
}
