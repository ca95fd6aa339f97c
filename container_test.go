package gainmap_test

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/hdrkit/gainmap"
	"github.com/hdrkit/gainmap/internal/jpegseg"
)

// writeSegment appends a JPEG marker segment with a length prefix.
func writeSegment(out *bytes.Buffer, marker byte, payload []byte) {
	out.WriteByte(0xFF)
	out.WriteByte(marker)
	length := len(payload) + 2
	out.WriteByte(byte(length >> 8))
	out.WriteByte(byte(length))
	out.Write(payload)
}

// sampleJPEG builds a structurally valid stand-in stream: APP0 + comment +
// table segment, a scan with byte stuffing and a restart marker, EOI.
func sampleJPEG(comment string) []byte {
	var b bytes.Buffer
	b.Write([]byte{0xFF, 0xD8})
	writeSegment(&b, 0xE0, append([]byte("JFIF\x00"), 1, 2, 0))
	writeSegment(&b, 0xFE, []byte(comment))
	writeSegment(&b, 0xDB, make([]byte, 6))
	writeSegment(&b, 0xDA, []byte{1, 0})
	b.Write([]byte{0x12, 0xFF, 0x00, 0x34, 0xFF, 0xD0, 0x56, 0x78})
	b.Write([]byte{0xFF, 0xD9})
	return b.Bytes()
}

func mustEmbed(t *testing.T, primary, gainMap, packet []byte) []byte {
	t.Helper()
	composite, err := gainmap.Embed(primary, gainMap, packet)
	if err != nil {
		t.Fatal(err)
	}
	return composite
}

func TestEmbedExtractRoundTrip(t *testing.T) {
	primary := sampleJPEG("primary image")
	gainMap := sampleJPEG("gain map image")
	packet, err := gainmap.SerializePacket(testMetadata())
	if err != nil {
		t.Fatal(err)
	}

	primaryCopy := append([]byte(nil), primary...)
	composite := mustEmbed(t, primary, gainMap, packet)

	gotPacket, err := gainmap.ExtractPacket(composite)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(gotPacket, packet) {
		t.Fatalf("packet mismatch:\n got %q\nwant %q", gotPacket, packet)
	}

	gotMap, err := gainmap.ExtractGainMap(composite)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(gotMap, gainMap) {
		t.Fatalf("gain map stream mismatch: got %d bytes, want %d", len(gotMap), len(gainMap))
	}

	if !bytes.Equal(primary, primaryCopy) {
		t.Fatal("Embed mutated the primary input")
	}
	if !bytes.Contains(composite, []byte("primary image")) {
		t.Fatal("unrelated comment segment lost")
	}
	if !bytes.HasPrefix(composite, primary[:2]) || !bytes.HasSuffix(composite, []byte{0xFF, 0xD9}) {
		t.Fatal("composite lost its framing")
	}
}

func TestEmbedExtractMultiSegmentPacket(t *testing.T) {
	primary := sampleJPEG("primary")
	gainMap := sampleJPEG("map")
	// Larger than two APP1 segments can carry.
	packet := bytes.Repeat([]byte("0123456789abcdef"), 9000)

	composite := mustEmbed(t, primary, gainMap, packet)

	got, err := gainmap.ExtractPacket(composite)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, packet) {
		t.Fatalf("multi-segment packet mismatch: got %d bytes, want %d", len(got), len(packet))
	}

	gotMap, err := gainmap.ExtractGainMap(composite)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(gotMap, gainMap) {
		t.Fatal("gain map stream mismatch after multi-segment embed")
	}
}

func TestEmbedRejectsBadInputs(t *testing.T) {
	primary := sampleJPEG("primary")
	gainMap := sampleJPEG("map")

	if _, err := gainmap.Embed(primary, gainMap, nil); !errors.Is(err, gainmap.ErrMalformedContainer) {
		t.Errorf("empty packet: err = %v, want ErrMalformedContainer", err)
	}
	if _, err := gainmap.Embed(primary, []byte("not an image"), []byte("p")); !errors.Is(err, gainmap.ErrMalformedContainer) {
		t.Errorf("bad gain map stream: err = %v, want ErrMalformedContainer", err)
	}
	if _, err := gainmap.Embed([]byte{0x00, 0x01}, gainMap, []byte("p")); !errors.Is(err, gainmap.ErrMalformedContainer) {
		t.Errorf("bad primary: err = %v, want ErrMalformedContainer", err)
	}
}

func TestEmbedRejectsOversizedPacket(t *testing.T) {
	primary := sampleJPEG("primary")
	gainMap := sampleJPEG("map")
	// One byte past what 255 segments can carry.
	limit := 255 * (jpegseg.MaxPayload - len(gainmap.PacketSignature) - 2)
	packet := make([]byte, limit+1)

	if _, err := gainmap.Embed(primary, gainMap, packet); !errors.Is(err, gainmap.ErrMalformedContainer) {
		t.Fatalf("oversized packet: err = %v, want ErrMalformedContainer", err)
	}
	if _, err := gainmap.Embed(primary, gainMap, packet[:limit]); err != nil {
		t.Fatalf("packet at the limit: err = %v", err)
	}
}

func TestExtractPacketNotFound(t *testing.T) {
	_, err := gainmap.ExtractPacket(sampleJPEG("plain"))
	if !errors.Is(err, gainmap.ErrMetadataNotFound) {
		t.Fatalf("err = %v, want ErrMetadataNotFound", err)
	}
}

// metadataSegment builds one raw APP1 metadata segment with the given
// index/count header.
func metadataSegment(index, count byte, body string) []byte {
	payload := append([]byte(gainmap.PacketSignature), index, count)
	payload = append(payload, body...)
	var b bytes.Buffer
	writeSegment(&b, 0xE1, payload)
	return b.Bytes()
}

// spliceSegments inserts raw segments right after SOI + APP0 of a sample
// stream.
func spliceSegments(base []byte, segs ...[]byte) []byte {
	app0End := 2 + 2 + 2 + 8 // SOI, APP0 marker, length, payload
	var b bytes.Buffer
	b.Write(base[:app0End])
	for _, s := range segs {
		b.Write(s)
	}
	b.Write(base[app0End:])
	return b.Bytes()
}

func TestExtractPacketMalformed(t *testing.T) {
	base := sampleJPEG("x")

	for _, tc := range []struct {
		name string
		segs [][]byte
		want string
	}{
		{"missing segment", [][]byte{metadataSegment(1, 2, "half")}, "1 of 2"},
		{"index beyond count", [][]byte{metadataSegment(3, 2, "x")}, "segment index 3 of 2"},
		{"zero index", [][]byte{metadataSegment(0, 1, "x")}, "segment index 0 of 1"},
		{"count disagreement", [][]byte{metadataSegment(1, 2, "a"), metadataSegment(2, 3, "b")}, "disagreement"},
		{"duplicate index", [][]byte{metadataSegment(1, 2, "a"), metadataSegment(1, 2, "b")}, "duplicate"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			data := spliceSegments(base, tc.segs...)
			_, err := gainmap.ExtractPacket(data)
			if !errors.Is(err, gainmap.ErrMalformedContainer) {
				t.Fatalf("err = %v, want ErrMalformedContainer", err)
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("err %q does not mention %q", err, tc.want)
			}
		})
	}
}

func TestExtractPacketOutOfOrderSegments(t *testing.T) {
	base := sampleJPEG("x")
	data := spliceSegments(base,
		metadataSegment(2, 2, "world"),
		metadataSegment(1, 2, "hello "),
	)
	got, err := gainmap.ExtractPacket(data)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "hello world" {
		t.Fatalf("packet = %q, want %q", got, "hello world")
	}
}

func TestExtractGainMapNotFound(t *testing.T) {
	_, err := gainmap.ExtractGainMap(sampleJPEG("single image"))
	if !errors.Is(err, gainmap.ErrMetadataNotFound) {
		t.Fatalf("err = %v, want ErrMetadataNotFound", err)
	}
}

func TestExtractGainMapWithoutMPF(t *testing.T) {
	// Two concatenated images but no directory segment: the structural
	// scan must still find the trailing image.
	primary := sampleJPEG("primary")
	gainMap := sampleJPEG("map")
	data := append(append([]byte(nil), primary...), gainMap...)

	got, err := gainmap.ExtractGainMap(data)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, gainMap) {
		t.Fatal("fallback scan returned wrong byte range")
	}
}
