// Package jpegseg walks the marker structure of JPEG-style byte streams.
// It understands just enough framing to locate, read, and splice APPn
// segments; entropy-coded data is treated as opaque.
package jpegseg

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
)

const (
	MarkerStart = 0xFF
	SOI         = 0xD8
	EOI         = 0xD9
	SOS         = 0xDA
	TEM         = 0x01
	APP0        = 0xE0
	APP1        = 0xE1
	APP2        = 0xE2
	COM         = 0xFE
)

// MaxPayload is the largest APPn payload: the 16-bit segment length covers
// itself (2 bytes) plus the payload.
const MaxPayload = 0xFFFF - 2

// ErrInvalid reports a byte stream whose marker structure cannot be walked.
var ErrInvalid = errors.New("jpegseg: invalid marker structure")

// Segment is one marker segment's payload.
type Segment struct {
	Marker  byte
	Payload []byte
}

func isRestart(marker byte) bool { return marker >= 0xD0 && marker <= 0xD7 }

func isApp(marker byte) bool { return marker >= APP0 && marker <= 0xEF }

func segLength(data []byte, pos int) (int, error) {
	if pos+1 >= len(data) {
		return 0, fmt.Errorf("%w: truncated marker at %d", ErrInvalid, pos)
	}
	n := int(binary.BigEndian.Uint16(data[pos:]))
	if n < 2 || pos+n > len(data) {
		return 0, fmt.Errorf("%w: segment length %d at %d", ErrInvalid, n, pos)
	}
	return n, nil
}

// HeaderSegments returns copies of all marker segments between SOI and the
// first SOS or EOI.
func HeaderSegments(data []byte) ([]Segment, error) {
	if len(data) < 4 || data[0] != MarkerStart || data[1] != SOI {
		return nil, fmt.Errorf("%w: missing SOI", ErrInvalid)
	}
	var segs []Segment
	pos := 2
	for pos+1 < len(data) {
		if data[pos] != MarkerStart {
			return nil, fmt.Errorf("%w: expected marker at %d", ErrInvalid, pos)
		}
		for pos < len(data) && data[pos] == MarkerStart {
			pos++
		}
		if pos >= len(data) {
			break
		}
		marker := data[pos]
		pos++
		if marker == SOS || marker == EOI {
			return segs, nil
		}
		if isRestart(marker) || marker == TEM {
			continue
		}
		n, err := segLength(data, pos)
		if err != nil {
			return nil, err
		}
		segs = append(segs, Segment{
			Marker:  marker,
			Payload: append([]byte(nil), data[pos+2:pos+n]...),
		})
		pos += n
	}
	return segs, nil
}

// InsertOffset returns the byte offset at which new APP segments belong:
// after the stream's existing APPn/COM segments, before the first
// structural marker (quantization tables, frame header, scan data).
func InsertOffset(data []byte) (int, error) {
	if len(data) < 4 || data[0] != MarkerStart || data[1] != SOI {
		return 0, fmt.Errorf("%w: missing SOI", ErrInvalid)
	}
	pos := 2
	for pos+1 < len(data) {
		if data[pos] != MarkerStart {
			return 0, fmt.Errorf("%w: expected marker at %d", ErrInvalid, pos)
		}
		markerAt := pos
		for pos < len(data) && data[pos] == MarkerStart {
			pos++
		}
		if pos >= len(data) {
			break
		}
		marker := data[pos]
		pos++
		if !isApp(marker) && marker != COM {
			return markerAt, nil
		}
		n, err := segLength(data, pos)
		if err != nil {
			return 0, err
		}
		pos += n
	}
	return 0, fmt.Errorf("%w: no frame data", ErrInvalid)
}

// WriteSegment appends a marker segment to out.
func WriteSegment(out *bytes.Buffer, marker byte, payload []byte) {
	out.WriteByte(MarkerStart)
	out.WriteByte(marker)
	length := uint16(len(payload) + 2)
	out.WriteByte(byte(length >> 8))
	out.WriteByte(byte(length))
	out.Write(payload)
}

// ImageEnd returns the offset one past the EOI of the image starting at
// start (which must point at an SOI).
func ImageEnd(data []byte, start int) (int, error) {
	if start+1 >= len(data) || data[start] != MarkerStart || data[start+1] != SOI {
		return 0, fmt.Errorf("%w: not an SOI at %d", ErrInvalid, start)
	}
	pos := start + 2
	inScan := false
	for pos+1 < len(data) {
		if !inScan {
			if data[pos] != MarkerStart {
				return 0, fmt.Errorf("%w: expected marker at %d", ErrInvalid, pos)
			}
			for pos < len(data) && data[pos] == MarkerStart {
				pos++
			}
			if pos >= len(data) {
				break
			}
			marker := data[pos]
			pos++
			switch {
			case marker == EOI:
				return pos, nil
			case marker == SOS:
				n, err := segLength(data, pos)
				if err != nil {
					return 0, err
				}
				pos += n
				inScan = true
			case isRestart(marker) || marker == TEM:
				// no payload
			default:
				n, err := segLength(data, pos)
				if err != nil {
					return 0, err
				}
				pos += n
			}
			continue
		}

		// Entropy-coded data: skip to the next real marker.
		if data[pos] != MarkerStart {
			pos++
			continue
		}
		if pos+1 >= len(data) {
			return 0, fmt.Errorf("%w: truncated scan data", ErrInvalid)
		}
		next := data[pos+1]
		switch {
		case next == 0x00 || isRestart(next):
			pos += 2
		case next == EOI:
			return pos + 2, nil
		default:
			pos += 2
			n, err := segLength(data, pos)
			if err != nil {
				return 0, err
			}
			pos += n
			inScan = false
		}
	}
	return 0, fmt.Errorf("%w: no EOI", ErrInvalid)
}

// ImageRanges returns the [start, end) ranges of every SOI-to-EOI image in
// the stream, in byte order.
func ImageRanges(data []byte) ([][2]int, error) {
	var ranges [][2]int
	i := 0
	for i+1 < len(data) {
		if data[i] == MarkerStart && data[i+1] == SOI {
			end, err := ImageEnd(data, i)
			if err != nil {
				return nil, err
			}
			ranges = append(ranges, [2]int{i, end})
			i = end
			continue
		}
		i++
	}
	if len(ranges) == 0 {
		return nil, fmt.Errorf("%w: no images", ErrInvalid)
	}
	return ranges, nil
}
