package gainmap

import (
	"bytes"
	"fmt"
	"sort"

	"github.com/hdrkit/gainmap/internal/jpegseg"
)

// PacketSignature is the ASCII prefix identifying an APP1 segment as a
// gain map metadata segment. The signature is followed by a 1-based
// segment index byte and a total-segment-count byte, then payload bytes.
const PacketSignature = "urn:hdrkit:gainmap\x00"

// maxPacketChunk is the packet payload capacity of one APP1 segment.
const maxPacketChunk = jpegseg.MaxPayload - len(PacketSignature) - 2

// ExtractPacket locates the metadata packet inside a compressed image byte
// stream and reassembles it from its segments in declared-index order,
// tolerating interleaved unrelated segments. It fails with
// ErrMetadataNotFound when no matching segment exists and with
// ErrMalformedContainer when the marker structure is broken or segment
// indices are inconsistent.
func ExtractPacket(data []byte) ([]byte, error) {
	segs, err := jpegseg.HeaderSegments(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedContainer, err)
	}

	type chunk struct {
		index int
		data  []byte
	}
	var (
		chunks []chunk
		total  = -1
	)
	sig := []byte(PacketSignature)
	for _, seg := range segs {
		if seg.Marker != jpegseg.APP1 || !bytes.HasPrefix(seg.Payload, sig) {
			continue
		}
		body := seg.Payload[len(sig):]
		if len(body) < 2 {
			return nil, fmt.Errorf("%w: metadata segment too short", ErrMalformedContainer)
		}
		index := int(body[0])
		count := int(body[1])
		if count == 0 || index == 0 || index > count {
			return nil, fmt.Errorf("%w: segment index %d of %d", ErrMalformedContainer, index, count)
		}
		if total == -1 {
			total = count
		} else if total != count {
			return nil, fmt.Errorf("%w: segment count disagreement (%d vs %d)", ErrMalformedContainer, total, count)
		}
		chunks = append(chunks, chunk{index: index, data: body[2:]})
	}
	if len(chunks) == 0 {
		return nil, ErrMetadataNotFound
	}
	if len(chunks) != total {
		return nil, fmt.Errorf("%w: %d of %d metadata segments present", ErrMalformedContainer, len(chunks), total)
	}

	// Arrival order is irrelevant; declared index decides packet order.
	sort.Slice(chunks, func(i, j int) bool { return chunks[i].index < chunks[j].index })
	for i, c := range chunks {
		if c.index != i+1 {
			return nil, fmt.Errorf("%w: duplicate metadata segment index %d", ErrMalformedContainer, c.index)
		}
	}

	var packet bytes.Buffer
	for _, c := range chunks {
		packet.Write(c.data)
	}
	return packet.Bytes(), nil
}

// Embed inserts the metadata packet and the compressed gain map image into
// the primary image byte stream, returning a new composite stream. The
// packet is split across as many APP1 segments as its size requires; an
// MPF directory referencing the appended gain map image is written after
// them. Segments land after the primary's existing metadata markers,
// before entropy-coded data; unrelated segments are preserved untouched.
// The input slices are never mutated.
func Embed(primary, gainMap, packet []byte) ([]byte, error) {
	if len(packet) == 0 {
		return nil, fmt.Errorf("%w: empty metadata packet", ErrMalformedContainer)
	}
	// The segment index and count are single bytes.
	if len(packet) > 255*maxPacketChunk {
		return nil, fmt.Errorf("%w: metadata packet too large (%d bytes)", ErrMalformedContainer, len(packet))
	}
	if len(gainMap) < 2 || gainMap[0] != jpegseg.MarkerStart || gainMap[1] != jpegseg.SOI {
		return nil, fmt.Errorf("%w: gain map stream is not a compressed image", ErrMalformedContainer)
	}
	insertAt, err := jpegseg.InsertOffset(primary)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedContainer, err)
	}

	var segs bytes.Buffer
	chunks := splitPacket(packet)
	for i, c := range chunks {
		payload := make([]byte, 0, len(PacketSignature)+2+len(c))
		payload = append(payload, PacketSignature...)
		payload = append(payload, byte(i+1), byte(len(chunks)))
		payload = append(payload, c...)
		jpegseg.WriteSegment(&segs, jpegseg.APP1, payload)
	}

	var out bytes.Buffer
	out.Grow(len(primary) + segs.Len() + mpfPayloadSize() + 4 + len(gainMap))
	out.Write(primary[:insertAt])
	out.Write(segs.Bytes())

	// The MPF offset is relative to its own TIFF header, which lands 8
	// bytes into the APP2 segment (marker, length, signature).
	mpfSegLen := 4 + mpfPayloadSize()
	primarySize := len(primary) + segs.Len() + mpfSegLen
	tiffHeaderAt := out.Len() + 8
	mpf := buildMPF(primarySize, len(gainMap), primarySize-tiffHeaderAt)
	jpegseg.WriteSegment(&out, jpegseg.APP2, mpf)

	out.Write(primary[insertAt:])
	out.Write(gainMap)
	return out.Bytes(), nil
}

// ExtractGainMap recovers the embedded gain map image byte stream from a
// composite container, preferring the MPF directory and falling back to a
// structural scan for a trailing image.
func ExtractGainMap(data []byte) ([]byte, error) {
	if start, end, ok := gainMapRangeByMPF(data); ok {
		return append([]byte(nil), data[start:end]...), nil
	}
	ranges, err := jpegseg.ImageRanges(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedContainer, err)
	}
	if len(ranges) < 2 {
		return nil, fmt.Errorf("%w: no gain map image", ErrMetadataNotFound)
	}
	return append([]byte(nil), data[ranges[1][0]:ranges[1][1]]...), nil
}

// gainMapRangeByMPF resolves the gain map byte range from the primary
// header's MPF directory, if one is present and consistent.
func gainMapRangeByMPF(data []byte) (start, end int, ok bool) {
	off, seg, found := findAPP2WithPrefix(data, mpfSig)
	if !found {
		return 0, 0, false
	}
	idx, err := parseMPF(seg)
	if err != nil {
		return 0, 0, false
	}
	tiffHeaderAt := off + 4 + len(mpfSig)
	start = tiffHeaderAt + idx.secondaryOffset
	end = start + idx.secondarySize
	if start < 2 || end > len(data) || start >= end {
		return 0, 0, false
	}
	if data[start] != jpegseg.MarkerStart || data[start+1] != jpegseg.SOI {
		return 0, 0, false
	}
	return start, end, true
}

// findAPP2WithPrefix walks the primary header and returns the byte offset
// of the first matching APP2 marker plus its payload.
func findAPP2WithPrefix(data []byte, prefix []byte) (offset int, payload []byte, ok bool) {
	if len(data) < 4 || data[0] != jpegseg.MarkerStart || data[1] != jpegseg.SOI {
		return 0, nil, false
	}
	pos := 2
	for pos+3 < len(data) {
		if data[pos] != jpegseg.MarkerStart {
			return 0, nil, false
		}
		markerAt := pos
		for pos < len(data) && data[pos] == jpegseg.MarkerStart {
			pos++
		}
		if pos >= len(data) {
			return 0, nil, false
		}
		marker := data[pos]
		pos++
		if marker == jpegseg.SOS || marker == jpegseg.EOI {
			return 0, nil, false
		}
		if marker >= 0xD0 && marker <= 0xD7 || marker == jpegseg.TEM {
			continue
		}
		if pos+1 >= len(data) {
			return 0, nil, false
		}
		segLen := int(data[pos])<<8 | int(data[pos+1])
		if segLen < 2 || pos+segLen > len(data) {
			return 0, nil, false
		}
		if marker == jpegseg.APP2 && bytes.HasPrefix(data[pos+2:pos+segLen], prefix) {
			return markerAt, data[pos+2 : pos+segLen], true
		}
		pos += segLen
	}
	return 0, nil, false
}

func splitPacket(packet []byte) [][]byte {
	var chunks [][]byte
	for len(packet) > maxPacketChunk {
		chunks = append(chunks, packet[:maxPacketChunk])
		packet = packet[maxPacketChunk:]
	}
	return append(chunks, packet)
}
