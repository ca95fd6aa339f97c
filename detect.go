package gainmap

import (
	"bufio"
	"bytes"
	"errors"
	"io"
)

// HasGainMap performs a streaming check for embedded gain map metadata
// without loading the full image: it scans the primary header's APP
// segments for the packet signature and stops at the first scan data.
func HasGainMap(r io.Reader) (bool, error) {
	br := bufio.NewReader(r)
	found, err := findSOI(br)
	if err != nil || !found {
		return false, err
	}
	sig := []byte(PacketSignature)
	for {
		marker, err := readMarker(br)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return false, nil
			}
			return false, err
		}
		switch marker {
		case 0xDA, 0xD9: // SOS, EOI
			return false, nil
		case 0xE1: // APP1
			match, err := segmentHasPrefix(br, sig)
			if err != nil {
				return false, err
			}
			if match {
				return true, nil
			}
		default:
			if marker >= 0xD0 && marker <= 0xD7 || marker == 0x01 {
				continue
			}
			if err := discardSegment(br); err != nil {
				return false, err
			}
		}
	}
}

func findSOI(br *bufio.Reader) (bool, error) {
	var prev byte
	for {
		b, err := br.ReadByte()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return false, nil
			}
			return false, err
		}
		if prev == 0xFF && b == 0xD8 {
			return true, nil
		}
		prev = b
	}
}

func readMarker(br *bufio.Reader) (byte, error) {
	for {
		b, err := br.ReadByte()
		if err != nil {
			return 0, err
		}
		if b != 0xFF {
			continue
		}
		for {
			m, err := br.ReadByte()
			if err != nil {
				return 0, err
			}
			if m != 0xFF {
				return m, nil
			}
		}
	}
}

func segmentHasPrefix(br *bufio.Reader, prefix []byte) (bool, error) {
	length, err := readU16(br)
	if err != nil {
		return false, err
	}
	if length < 2 {
		return false, errors.New("gainmap: invalid segment length")
	}
	payloadLen := int(length) - 2
	readLen := payloadLen
	if readLen > len(prefix) {
		readLen = len(prefix)
	}
	buf := make([]byte, readLen)
	if _, err := io.ReadFull(br, buf); err != nil {
		return false, err
	}
	if err := discardN(br, payloadLen-readLen); err != nil {
		return false, err
	}
	return bytes.HasPrefix(buf, prefix), nil
}

func discardSegment(br *bufio.Reader) error {
	length, err := readU16(br)
	if err != nil {
		return err
	}
	if length < 2 {
		return errors.New("gainmap: invalid segment length")
	}
	return discardN(br, int(length)-2)
}

func readU16(br *bufio.Reader) (uint16, error) {
	hi, err := br.ReadByte()
	if err != nil {
		return 0, err
	}
	lo, err := br.ReadByte()
	if err != nil {
		return 0, err
	}
	return uint16(hi)<<8 | uint16(lo), nil
}

func discardN(br *bufio.Reader, n int) error {
	if n <= 0 {
		return nil
	}
	_, err := io.CopyN(io.Discard, br, int64(n))
	return err
}
