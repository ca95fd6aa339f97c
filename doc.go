// Package gainmap converts between an HDR image and a pair of SDR images
// plus a small metadata record, and back.
//
// The encode path renders an 8-bit SDR rendition from the HDR source,
// renders a gain map (the per-pixel log2 boost needed to recover HDR from
// SDR), and derives the Metadata record that parametrizes recovery. The
// decode path reconstructs an HDR surface from SDR + gain map + Metadata,
// with an adjustable display boost. The Metadata record serializes into a
// textual packet that the container codec embeds into, and extracts from,
// the APP marker structure of a compressed image byte stream.
//
// Pixel math runs through the render package's full-screen pass engine;
// compression and decompression of the image streams themselves are left
// to external codecs.
package gainmap
