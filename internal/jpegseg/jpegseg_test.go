package jpegseg

import (
	"bytes"
	"errors"
	"testing"
)

func buildStream(withScan bool) []byte {
	var b bytes.Buffer
	b.Write([]byte{MarkerStart, SOI})
	WriteSegment(&b, APP0, []byte("JFIF\x00"))
	WriteSegment(&b, COM, []byte("comment"))
	WriteSegment(&b, 0xDB, make([]byte, 4))
	if withScan {
		WriteSegment(&b, SOS, []byte{1, 0})
		b.Write([]byte{0x11, MarkerStart, 0x00, 0x22, MarkerStart, 0xD3, 0x33})
	}
	b.Write([]byte{MarkerStart, EOI})
	return b.Bytes()
}

func TestHeaderSegments(t *testing.T) {
	segs, err := HeaderSegments(buildStream(true))
	if err != nil {
		t.Fatal(err)
	}
	if len(segs) != 3 {
		t.Fatalf("got %d segments, want 3", len(segs))
	}
	if segs[0].Marker != APP0 || !bytes.Equal(segs[0].Payload, []byte("JFIF\x00")) {
		t.Fatalf("segment 0 = %+v", segs[0])
	}
	if segs[1].Marker != COM || string(segs[1].Payload) != "comment" {
		t.Fatalf("segment 1 = %+v", segs[1])
	}
}

func TestHeaderSegmentsErrors(t *testing.T) {
	for _, tc := range []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"no soi", []byte{0x00, 0x01, 0x02, 0x03}},
		{"truncated length", []byte{MarkerStart, SOI, MarkerStart, APP1, 0x00}},
		{"length beyond stream", []byte{MarkerStart, SOI, MarkerStart, APP1, 0xFF, 0xFF, 0x00}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := HeaderSegments(tc.data); !errors.Is(err, ErrInvalid) {
				t.Fatalf("err = %v, want ErrInvalid", err)
			}
		})
	}
}

func TestInsertOffset(t *testing.T) {
	data := buildStream(true)
	off, err := InsertOffset(data)
	if err != nil {
		t.Fatal(err)
	}
	// Insertion lands after APP0 and COM, at the table segment.
	if data[off] != MarkerStart || data[off+1] != 0xDB {
		t.Fatalf("offset %d points at %02X %02X, want FF DB", off, data[off], data[off+1])
	}
}

func TestInsertOffsetNoFrame(t *testing.T) {
	var b bytes.Buffer
	b.Write([]byte{MarkerStart, SOI})
	WriteSegment(&b, APP0, []byte("JFIF\x00"))
	if _, err := InsertOffset(b.Bytes()); !errors.Is(err, ErrInvalid) {
		t.Fatalf("err = %v, want ErrInvalid", err)
	}
}

func TestImageEnd(t *testing.T) {
	data := buildStream(true)
	end, err := ImageEnd(data, 0)
	if err != nil {
		t.Fatal(err)
	}
	if end != len(data) {
		t.Fatalf("end = %d, want %d", end, len(data))
	}
}

func TestImageEndStopsAtFirstEOI(t *testing.T) {
	first := buildStream(true)
	data := append(append([]byte(nil), first...), buildStream(false)...)
	end, err := ImageEnd(data, 0)
	if err != nil {
		t.Fatal(err)
	}
	if end != len(first) {
		t.Fatalf("end = %d, want %d", end, len(first))
	}
}

func TestImageRanges(t *testing.T) {
	first := buildStream(true)
	second := buildStream(false)
	data := append(append([]byte(nil), first...), second...)

	ranges, err := ImageRanges(data)
	if err != nil {
		t.Fatal(err)
	}
	if len(ranges) != 2 {
		t.Fatalf("got %d ranges, want 2", len(ranges))
	}
	if ranges[0] != [2]int{0, len(first)} {
		t.Fatalf("range 0 = %v", ranges[0])
	}
	if ranges[1] != [2]int{len(first), len(data)} {
		t.Fatalf("range 1 = %v", ranges[1])
	}

	if _, err := ImageRanges([]byte("no images here")); !errors.Is(err, ErrInvalid) {
		t.Fatalf("err = %v, want ErrInvalid", err)
	}
}

func TestWriteSegment(t *testing.T) {
	var b bytes.Buffer
	WriteSegment(&b, APP1, []byte("abc"))
	want := []byte{MarkerStart, APP1, 0x00, 0x05, 'a', 'b', 'c'}
	if !bytes.Equal(b.Bytes(), want) {
		t.Fatalf("got % X, want % X", b.Bytes(), want)
	}
}
