// Command gainmaptool encodes, decodes, and inspects gain map composites.
//
// JPEG compression and Radiance HDR decoding are external collaborators
// here: the tool wires them to the gainmap package's raw pixel buffers and
// byte-stream container operations.
package main

import (
	"bytes"
	"flag"
	"fmt"
	"image"
	"image/jpeg"
	"os"
	"path/filepath"

	"github.com/mdouchement/hdr"
	"github.com/mdouchement/hdr/codec/rgbe"

	"github.com/hdrkit/gainmap"
	"github.com/hdrkit/gainmap/render"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}
	var err error
	switch os.Args[1] {
	case "encode":
		err = runEncode(os.Args[2:])
	case "decode":
		err = runDecode(os.Args[2:])
	case "extract":
		err = runExtract(os.Args[2:])
	case "embed":
		err = runEmbed(os.Args[2:])
	case "detect":
		err = runDetect(os.Args[2:])
	default:
		usage()
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `usage: gainmaptool <command> [flags]

commands:
  encode   render SDR + gain map from an HDR image and embed into a composite JPEG
  decode   reconstruct an HDR image from a composite JPEG
  extract  print the metadata packet from a composite JPEG
  embed    embed a packet and gain map JPEG into a primary JPEG
  detect   check whether a JPEG carries gain map metadata`)
}

func runEncode(args []string) error {
	fs := flag.NewFlagSet("encode", flag.ExitOnError)
	in := fs.String("hdr", "", "input Radiance .hdr file")
	out := fs.String("out", "", "output composite JPEG")
	quality := fs.Int("q", 95, "primary JPEG quality")
	mapQuality := fs.Int("mq", 85, "gain map JPEG quality")
	mapScale := fs.Int("scale", 1, "gain map downscale factor")
	_ = fs.Parse(args)
	if *in == "" || *out == "" {
		return fmt.Errorf("encode requires -hdr and -out")
	}

	f, err := os.Open(filepath.Clean(*in))
	if err != nil {
		return err
	}
	defer f.Close()
	img, err := rgbe.Decode(f)
	if err != nil {
		return err
	}
	hdrImg, ok := img.(hdr.Image)
	if !ok {
		return fmt.Errorf("%s is not an HDR image", *in)
	}

	hdrBuf, err := gainmap.FromHDRImage(hdrImg)
	if err != nil {
		return err
	}
	hdrTex := render.NewTexture(hdrBuf)
	ctx := render.NewContext()
	defer ctx.Release()

	sdrr, err := gainmap.NewSDRRenderer(hdrTex, ctx)
	if err != nil {
		return err
	}
	defer sdrr.Dispose()
	if err := sdrr.Render(); err != nil {
		return err
	}
	sdrTex, err := sdrr.Texture()
	if err != nil {
		return err
	}

	gmr, err := gainmap.NewGainMapRenderer(hdrTex, sdrTex, ctx, gainmap.WithMapScale(*mapScale))
	if err != nil {
		return err
	}
	defer gmr.Dispose()
	if err := gmr.Render(); err != nil {
		return err
	}

	sdrBuf, err := sdrr.ReadPixels()
	if err != nil {
		return err
	}
	mapBuf, err := gmr.ReadPixels()
	if err != nil {
		return err
	}
	packet, err := gainmap.SerializePacket(gmr.Metadata())
	if err != nil {
		return err
	}

	primaryJPEG, err := encodeJPEG(gainmap.ToImage(sdrBuf), *quality)
	if err != nil {
		return err
	}
	mapJPEG, err := encodeJPEG(gainmap.ToImage(mapBuf), *mapQuality)
	if err != nil {
		return err
	}
	composite, err := gainmap.Embed(primaryJPEG, mapJPEG, packet)
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Clean(*out), composite, 0o644)
}

func runDecode(args []string) error {
	fs := flag.NewFlagSet("decode", flag.ExitOnError)
	in := fs.String("in", "", "input composite JPEG")
	out := fs.String("out", "", "output Radiance .hdr file")
	boost := fs.Float64("boost", 0, "max display boost (0 = full)")
	_ = fs.Parse(args)
	if *in == "" || *out == "" {
		return fmt.Errorf("decode requires -in and -out")
	}

	data, err := os.ReadFile(filepath.Clean(*in))
	if err != nil {
		return err
	}
	packet, err := gainmap.ExtractPacket(data)
	if err != nil {
		return err
	}
	meta, err := gainmap.ParsePacket(packet)
	if err != nil {
		return err
	}
	mapStream, err := gainmap.ExtractGainMap(data)
	if err != nil {
		return err
	}

	sdrImg, err := jpeg.Decode(bytes.NewReader(data))
	if err != nil {
		return err
	}
	mapImg, err := jpeg.Decode(bytes.NewReader(mapStream))
	if err != nil {
		return err
	}

	sdrBuf, err := gainmap.FromImage(sdrImg)
	if err != nil {
		return err
	}
	mapBuf, err := gainmap.FromImage(mapImg)
	if err != nil {
		return err
	}

	var opts []func(*gainmap.DecodeOptions)
	if *boost > 0 {
		opts = append(opts, gainmap.WithMaxDisplayBoost(float32(*boost)))
	}
	dec, err := gainmap.NewDecoder(
		render.NewTexture(sdrBuf), render.NewTexture(mapBuf),
		meta, nil, opts...)
	if err != nil {
		return err
	}
	defer dec.Dispose()
	if err := dec.Render(); err != nil {
		return err
	}
	buf, err := dec.ReadPixels()
	if err != nil {
		return err
	}

	w, err := os.Create(filepath.Clean(*out))
	if err != nil {
		return err
	}
	defer w.Close()
	return rgbe.Encode(w, &gainmap.HDRImage{Buf: buf})
}

func runExtract(args []string) error {
	fs := flag.NewFlagSet("extract", flag.ExitOnError)
	in := fs.String("in", "", "input composite JPEG")
	_ = fs.Parse(args)
	if *in == "" {
		return fmt.Errorf("extract requires -in")
	}
	data, err := os.ReadFile(filepath.Clean(*in))
	if err != nil {
		return err
	}
	packet, err := gainmap.ExtractPacket(data)
	if err != nil {
		return err
	}
	fmt.Println(string(packet))
	return nil
}

func runEmbed(args []string) error {
	fs := flag.NewFlagSet("embed", flag.ExitOnError)
	primary := fs.String("primary", "", "primary JPEG")
	mapFile := fs.String("map", "", "gain map JPEG")
	packetFile := fs.String("packet", "", "metadata packet file")
	out := fs.String("out", "", "output composite JPEG")
	_ = fs.Parse(args)
	if *primary == "" || *mapFile == "" || *packetFile == "" || *out == "" {
		return fmt.Errorf("embed requires -primary, -map, -packet and -out")
	}
	primaryData, err := os.ReadFile(filepath.Clean(*primary))
	if err != nil {
		return err
	}
	mapData, err := os.ReadFile(filepath.Clean(*mapFile))
	if err != nil {
		return err
	}
	packet, err := os.ReadFile(filepath.Clean(*packetFile))
	if err != nil {
		return err
	}
	composite, err := gainmap.Embed(primaryData, mapData, packet)
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Clean(*out), composite, 0o644)
}

func runDetect(args []string) error {
	fs := flag.NewFlagSet("detect", flag.ExitOnError)
	in := fs.String("in", "", "input JPEG")
	_ = fs.Parse(args)
	if *in == "" {
		return fmt.Errorf("detect requires -in")
	}
	f, err := os.Open(filepath.Clean(*in))
	if err != nil {
		return err
	}
	defer f.Close()
	ok, err := gainmap.HasGainMap(f)
	if err != nil {
		return err
	}
	if ok {
		fmt.Println("gain map metadata present")
	} else {
		fmt.Println("no gain map metadata")
	}
	return nil
}

func encodeJPEG(img image.Image, quality int) ([]byte, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
