package gainmap

import "errors"

var (
	// ErrDimensionMismatch means input images differ in size where
	// identical dimensions are required.
	ErrDimensionMismatch = errors.New("gainmap: input dimensions mismatch")

	// ErrMetadataNotFound means container extraction found no gain map
	// metadata segment.
	ErrMetadataNotFound = errors.New("gainmap: metadata not found")

	// ErrMalformedContainer means the byte stream's marker structure is
	// invalid or metadata segment indices are inconsistent.
	ErrMalformedContainer = errors.New("gainmap: malformed container")

	// ErrPacketParse means a metadata packet is present but fields are
	// missing or non-numeric.
	ErrPacketParse = errors.New("gainmap: malformed metadata packet")
)
