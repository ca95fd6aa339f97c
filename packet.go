package gainmap

import (
	"bytes"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// The packet is an XMP-style XML fragment carrying hdrgm-namespaced
// attributes. Values are either one number (applies to all channels) or
// three comma-separated numbers (per-channel R,G,B). Log2-space fields
// (GainMapMin/Max, HDRCapacity*) are serialized in log2, matching the
// in-memory record.
const (
	packetVersion   = "1.0"
	hdrgmNamespace  = "http://ns.adobe.com/hdr-gain-map/1.0/"
	packetXMLHeader = `<x:xmpmeta xmlns:x="adobe:ns:meta/"><rdf:RDF xmlns:rdf="http://www.w3.org/1999/02/22-rdf-syntax-ns#"><rdf:Description rdf:about=""`
	packetXMLFooter = `/></rdf:RDF></x:xmpmeta>`
)

var (
	reVersion   = regexp.MustCompile(`hdrgm:Version="([^"]+)"`)
	rePacketKey = map[string]*regexp.Regexp{
		"GainMapMin":     regexp.MustCompile(`hdrgm:GainMapMin="([^"]+)"`),
		"GainMapMax":     regexp.MustCompile(`hdrgm:GainMapMax="([^"]+)"`),
		"Gamma":          regexp.MustCompile(`hdrgm:Gamma="([^"]+)"`),
		"OffsetSDR":      regexp.MustCompile(`hdrgm:OffsetSDR="([^"]+)"`),
		"OffsetHDR":      regexp.MustCompile(`hdrgm:OffsetHDR="([^"]+)"`),
		"HDRCapacityMin": regexp.MustCompile(`hdrgm:HDRCapacityMin="([^"]+)"`),
		"HDRCapacityMax": regexp.MustCompile(`hdrgm:HDRCapacityMax="([^"]+)"`),
	}
)

// SerializePacket renders a metadata record into its embeddable textual
// packet.
func SerializePacket(m *Metadata) ([]byte, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}
	var out bytes.Buffer
	out.WriteString(packetXMLHeader)
	fmt.Fprintf(&out, ` xmlns:hdrgm=%q`, hdrgmNamespace)
	fmt.Fprintf(&out, ` hdrgm:Version=%q`, packetVersion)
	writeAttr := func(key string, t [3]float32) {
		fmt.Fprintf(&out, ` hdrgm:%s=%q`, key, formatTriplet(t))
	}
	writeAttr("GainMapMin", m.GainMapMin)
	writeAttr("GainMapMax", m.GainMapMax)
	writeAttr("Gamma", m.Gamma)
	writeAttr("OffsetSDR", m.OffsetSDR)
	writeAttr("OffsetHDR", m.OffsetHDR)
	fmt.Fprintf(&out, ` hdrgm:HDRCapacityMin=%q`, formatFloat(m.HDRCapacityMin))
	fmt.Fprintf(&out, ` hdrgm:HDRCapacityMax=%q`, formatFloat(m.HDRCapacityMax))
	out.WriteString(packetXMLFooter)
	return out.Bytes(), nil
}

// ParsePacket reconstructs a metadata record from packet bytes. GainMapMax
// and HDRCapacityMax are required; the remaining fields default to the flat
// map (min 0, gamma 1, offsets 1/64, capacity min 0).
func ParsePacket(packet []byte) (*Metadata, error) {
	text := string(packet)
	if reVersion.FindStringSubmatch(text) == nil {
		return nil, fmt.Errorf("%w: missing Version", ErrPacketParse)
	}

	m := &Metadata{
		Gamma:     Triplet(1),
		OffsetSDR: Triplet(DefaultOffsetSDR),
		OffsetHDR: Triplet(DefaultOffsetHDR),
	}

	get := func(key string, required bool, dst *[3]float32) error {
		match := rePacketKey[key].FindStringSubmatch(text)
		if match == nil {
			if required {
				return fmt.Errorf("%w: missing %s", ErrPacketParse, key)
			}
			return nil
		}
		t, err := parseTriplet(match[1])
		if err != nil {
			return fmt.Errorf("%w: %s: %v", ErrPacketParse, key, err)
		}
		*dst = t
		return nil
	}

	if err := get("GainMapMax", true, &m.GainMapMax); err != nil {
		return nil, err
	}
	if err := get("GainMapMin", false, &m.GainMapMin); err != nil {
		return nil, err
	}
	if err := get("Gamma", false, &m.Gamma); err != nil {
		return nil, err
	}
	if err := get("OffsetSDR", false, &m.OffsetSDR); err != nil {
		return nil, err
	}
	if err := get("OffsetHDR", false, &m.OffsetHDR); err != nil {
		return nil, err
	}

	var capMin, capMax [3]float32
	if err := get("HDRCapacityMax", true, &capMax); err != nil {
		return nil, err
	}
	if err := get("HDRCapacityMin", false, &capMin); err != nil {
		return nil, err
	}
	if !tripletUniform(capMin) || !tripletUniform(capMax) {
		return nil, fmt.Errorf("%w: HDRCapacity values must be scalar", ErrPacketParse)
	}
	m.HDRCapacityMin = capMin[0]
	m.HDRCapacityMax = capMax[0]

	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPacketParse, err)
	}
	return m, nil
}

func formatFloat(v float32) string {
	return strconv.FormatFloat(float64(v), 'f', -1, 32)
}

func formatTriplet(t [3]float32) string {
	if tripletUniform(t) {
		return formatFloat(t[0])
	}
	return formatFloat(t[0]) + "," + formatFloat(t[1]) + "," + formatFloat(t[2])
}

func parseTriplet(s string) ([3]float32, error) {
	var t [3]float32
	parts := strings.Split(s, ",")
	switch len(parts) {
	case 1:
		v, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 32)
		if err != nil {
			return t, fmt.Errorf("non-numeric value %q", parts[0])
		}
		return Triplet(float32(v)), nil
	case 3:
		for i, p := range parts {
			v, err := strconv.ParseFloat(strings.TrimSpace(p), 32)
			if err != nil {
				return t, fmt.Errorf("non-numeric value %q", p)
			}
			t[i] = float32(v)
		}
		return t, nil
	default:
		return t, fmt.Errorf("expected 1 or 3 values, got %d", len(parts))
	}
}
