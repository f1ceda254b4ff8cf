package raster

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"image"
	"io"

	"github.com/klauspost/compress/zstd"

	"pixelfudger/pixel"
)

/*
argbz is a lossless snapshot of a raster:

	magic   [6]byte  "ARGBZ\x00"
	width   uint32   big endian
	height  uint32   big endian
	payload          zstd stream of width*height big endian packed pixels
*/

const (
	FormatName = "argbz"
	magic      = "ARGBZ\x00"
	headerSize = len(magic) + 8

	maxSide   = 1 << 16
	maxPixels = 1 << 28

	// pixels reserved up front; the rest grows as rows are decompressed
	initialPixels = 1 << 20
)

var ErrFormat = errors.New("not a valid argbz snapshot")

func init() {
	image.RegisterFormat(FormatName, magic, decodeImage, DecodeConfig)
}

// Encode writes img as an argbz snapshot.
func Encode(w io.Writer, img image.Image) error {
	r, ok := img.(*Raster)
	if !ok {
		r = FromImage(img)
	}
	if r == nil {
		return errors.New("cannot encode nil raster")
	}
	if !r.Valid() {
		return fmt.Errorf("cannot encode %dx%d raster", r.Width, r.Height)
	}

	var hdr [headerSize]byte
	copy(hdr[:], magic)
	binary.BigEndian.PutUint32(hdr[len(magic):], uint32(r.Width))
	binary.BigEndian.PutUint32(hdr[len(magic)+4:], uint32(r.Height))
	if _, err := w.Write(hdr[:]); err != nil {
		return fmt.Errorf("could not write argbz header: %w", err)
	}

	enc, err := zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedBetterCompression))
	if err != nil {
		return fmt.Errorf("could not create zstd encoder: %w", err)
	}

	buf := make([]byte, 4*r.Width)
	for y := 0; y < r.Height; y++ {
		for x, p := range r.Row(y) {
			binary.BigEndian.PutUint32(buf[4*x:], uint32(p))
		}
		if _, err = enc.Write(buf); err != nil {
			enc.Close()
			return fmt.Errorf("could not compress row %d: %w", y, err)
		}
	}

	if err = enc.Close(); err != nil {
		return fmt.Errorf("could not flush zstd stream: %w", err)
	}
	return nil
}

// Decode reads an argbz snapshot.
func Decode(rd io.Reader) (*Raster, error) {
	br := bufio.NewReader(rd)
	width, height, err := readHeader(br)
	if err != nil {
		return nil, err
	}

	dec, err := zstd.NewReader(br, zstd.WithDecoderConcurrency(1))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFormat, err)
	}
	defer dec.Close()

	// grows with the payload, not with the header
	pix := make([]pixel.Pixel, 0, min(width*height, initialPixels))
	buf := make([]byte, 4*width)
	for y := range height {
		if _, err = io.ReadFull(dec, buf); err != nil {
			return nil, fmt.Errorf("%w: row %d: %w", ErrFormat, y, err)
		}
		for x := range width {
			pix = append(pix, pixel.Pixel(binary.BigEndian.Uint32(buf[4*x:])))
		}
	}
	return &Raster{Width: width, Height: height, Pix: pix}, nil
}

// DecodeConfig reads the dimensions of an argbz snapshot without
// decompressing it.
func DecodeConfig(rd io.Reader) (image.Config, error) {
	width, height, err := readHeader(rd)
	if err != nil {
		return image.Config{}, err
	}
	return image.Config{ColorModel: (&Raster{}).ColorModel(), Width: width, Height: height}, nil
}

func decodeImage(rd io.Reader) (image.Image, error) {
	return Decode(rd)
}

func readHeader(rd io.Reader) (width, height int, err error) {
	var hdr [headerSize]byte
	if _, err = io.ReadFull(rd, hdr[:]); err != nil {
		return 0, 0, fmt.Errorf("%w: header: %w", ErrFormat, err)
	}
	if string(hdr[:len(magic)]) != magic {
		return 0, 0, fmt.Errorf("%w: bad magic %q", ErrFormat, hdr[:len(magic)])
	}

	w := binary.BigEndian.Uint32(hdr[len(magic):])
	h := binary.BigEndian.Uint32(hdr[len(magic)+4:])
	if w == 0 || h == 0 || w > maxSide || h > maxSide || uint64(w)*uint64(h) > maxPixels {
		return 0, 0, fmt.Errorf("%w: unsupported size %dx%d", ErrFormat, w, h)
	}
	return int(w), int(h), nil
}
