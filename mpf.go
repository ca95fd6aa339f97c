package gainmap

import (
	"bytes"
	"encoding/binary"
	"errors"
)

// Multi-Picture Format (CIPA DC-007) directory: an APP2 segment in the
// primary image referencing the embedded gain map image by size and offset.
// Offsets are relative to the MPF TIFF header.

const (
	mpfPictureCount = 2
	mpfTagCount     = 3
	mpfTagSize      = 12
	mpfEntrySize    = 16

	mpfTypeLong      = 0x4
	mpfTypeUndefined = 0x7

	mpfTagVersion        = 0xB000
	mpfTagNumberOfImages = 0xB001
	mpfTagEntry          = 0xB002

	mpfAttrTypePrimary = 0x030000
)

var (
	mpfSig       = []byte{'M', 'P', 'F', 0}
	mpfBigEndian = []byte{0x4D, 0x4D, 0x00, 0x2A}
	mpfVersion   = []byte{'0', '1', '0', '0'}
)

// mpfPayloadSize is the byte size of the APP2 payload written by buildMPF.
func mpfPayloadSize() int {
	return len(mpfSig) + len(mpfBigEndian) + 4 + 2 + mpfTagCount*mpfTagSize + 4 + mpfPictureCount*mpfEntrySize
}

// buildMPF serializes a two-picture directory. secondaryOffset is relative
// to the TIFF header (the byte after the MPF signature).
func buildMPF(primarySize, secondarySize, secondaryOffset int) []byte {
	var out bytes.Buffer
	out.Grow(mpfPayloadSize())
	putU16 := func(v uint16) { _ = binary.Write(&out, binary.BigEndian, v) }
	putU32 := func(v uint32) { _ = binary.Write(&out, binary.BigEndian, v) }

	out.Write(mpfSig)
	out.Write(mpfBigEndian)
	putU32(uint32(len(mpfBigEndian) + 4)) // index IFD follows the TIFF header

	putU16(mpfTagCount)

	putU16(mpfTagVersion)
	putU16(mpfTypeUndefined)
	putU32(uint32(len(mpfVersion)))
	out.Write(mpfVersion)

	putU16(mpfTagNumberOfImages)
	putU16(mpfTypeLong)
	putU32(1)
	putU32(mpfPictureCount)

	putU16(mpfTagEntry)
	putU16(mpfTypeUndefined)
	putU32(mpfEntrySize * mpfPictureCount)
	putU32(uint32(8 + 2 + mpfTagCount*mpfTagSize + 4)) // entry block offset

	putU32(0) // no attribute IFD

	// Primary picture entry.
	putU32(mpfAttrTypePrimary)
	putU32(uint32(primarySize))
	putU32(0)
	putU16(0)
	putU16(0)

	// Gain map picture entry.
	putU32(0)
	putU32(uint32(secondarySize))
	putU32(uint32(secondaryOffset))
	putU16(0)
	putU16(0)

	return out.Bytes()
}

type mpfIndex struct {
	primarySize     int
	secondarySize   int
	secondaryOffset int // relative to the TIFF header
}

// parseMPF reads a two-picture directory from an APP2 payload.
func parseMPF(payload []byte) (mpfIndex, error) {
	if len(payload) < len(mpfSig)+8 || !bytes.HasPrefix(payload, mpfSig) {
		return mpfIndex{}, errors.New("mpf signature missing")
	}
	tiff := payload[len(mpfSig):]
	var order binary.ByteOrder
	switch {
	case tiff[0] == 0x4D && tiff[1] == 0x4D:
		order = binary.BigEndian
	case tiff[0] == 0x49 && tiff[1] == 0x49:
		order = binary.LittleEndian
	default:
		return mpfIndex{}, errors.New("mpf byte order invalid")
	}
	if order.Uint16(tiff[2:4]) != 0x002A {
		return mpfIndex{}, errors.New("mpf tiff magic invalid")
	}
	ifd := int(order.Uint32(tiff[4:8]))
	if ifd < 0 || ifd+2 > len(tiff) {
		return mpfIndex{}, errors.New("mpf ifd offset invalid")
	}
	tags := int(order.Uint16(tiff[ifd : ifd+2]))
	pos := ifd + 2
	entryOffset := -1
	for i := 0; i < tags; i++ {
		if pos+mpfTagSize > len(tiff) {
			return mpfIndex{}, errors.New("mpf ifd truncated")
		}
		tag := order.Uint16(tiff[pos : pos+2])
		typ := order.Uint16(tiff[pos+2 : pos+4])
		count := order.Uint32(tiff[pos+4 : pos+8])
		value := order.Uint32(tiff[pos+8 : pos+12])
		if tag == mpfTagEntry && typ == mpfTypeUndefined && count >= mpfEntrySize {
			entryOffset = int(value)
			break
		}
		pos += mpfTagSize
	}
	if entryOffset < 0 || entryOffset+mpfEntrySize*mpfPictureCount > len(tiff) {
		return mpfIndex{}, errors.New("mpf entry block invalid")
	}

	var idx mpfIndex
	pos = entryOffset
	for i := 0; i < mpfPictureCount; i++ {
		attr := order.Uint32(tiff[pos : pos+4])
		size := int(order.Uint32(tiff[pos+4 : pos+8]))
		offset := int(order.Uint32(tiff[pos+8 : pos+12]))
		if attr&mpfAttrTypePrimary != 0 {
			idx.primarySize = size
		} else {
			idx.secondarySize = size
			idx.secondaryOffset = offset
		}
		pos += mpfEntrySize
	}
	if idx.primarySize == 0 || idx.secondarySize == 0 {
		return mpfIndex{}, errors.New("mpf picture sizes missing")
	}
	return idx, nil
}
