// Package export encodes finished rasters and writes them to disk.
package export

import (
	"fmt"
	"image"
	"image/color"
	"image/gif"
	"image/jpeg"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/lucasb-eyer/go-colorful"
	"github.com/xfmoulet/qoi"
	"golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	"golang.org/x/image/tiff"

	"pixelfudger/raster"
)

// FormatSame keeps the format a picture was loaded from whenever it can be
// encoded, and falls back to png otherwise.
const FormatSame = "same"

// Formats lists every format Encode supports.
var Formats = []string{"png", "jpeg", "gif", "bmp", "tiff", "qoi", raster.FormatName}

var extensions = map[string]string{
	"jpeg": "jpg",
	"tiff": "tif",
}

type Options struct {
	Format string
	// Background is what transparent pixels are flattened onto for formats
	// without full alpha support. Nil means opaque black.
	Background color.Color
}

// Resolve maps a requested format to the one that will be written for a
// picture decoded from srcFormat.
func Resolve(format, srcFormat string) string {
	if format != FormatSame {
		return format
	}
	if slices.Contains(Formats, srcFormat) {
		return srcFormat
	}
	return "png"
}

// Extension returns the file name extension, without dot, of a format.
func Extension(format string) string {
	if ext, ok := extensions[format]; ok {
		return ext
	}
	return format
}

// TimestampName builds a file name such as PixelFudger_20240131_235959.jpg.
func TimestampName(prefix string, now time.Time, format string) string {
	return fmt.Sprintf("%s_%s.%s", prefix, now.Format("20060102_150405"), Extension(format))
}

// ReplaceExt swaps the extension of a file name for the one of format.
func ReplaceExt(name, format string) string {
	return fmt.Sprintf("%s.%s", strings.TrimSuffix(name, filepath.Ext(name)), Extension(format))
}

// ParseBackground reads a hex colour such as #000 or #1a2b3c.
func ParseBackground(s string) (color.Color, error) {
	c, err := colorful.Hex(s)
	if err != nil {
		return nil, fmt.Errorf("invalid background colour %q, should be #RGB or #RRGGBB: %w", s, err)
	}
	r, g, b := c.RGB255()
	return color.NRGBA{R: r, G: g, B: b, A: 0xFF}, nil
}

func Encode(w io.Writer, img image.Image, opts Options) error {
	switch opts.Format {
	case "gif":
		if err := gif.Encode(w, flatten(img, opts.Background), nil); err != nil {
			return fmt.Errorf("could not encode GIF: %w", err)
		}
	case "jpeg":
		if err := jpeg.Encode(w, flatten(img, opts.Background), &jpeg.Options{Quality: 100}); err != nil {
			return fmt.Errorf("could not encode JPEG: %w", err)
		}
	case "png":
		if err := pngEncoder.Encode(w, nrgba(img)); err != nil {
			return fmt.Errorf("could not encode PNG: %w", err)
		}
	case "bmp":
		if err := bmp.Encode(w, nrgba(img)); err != nil {
			return fmt.Errorf("could not encode BMP: %w", err)
		}
	case "tiff":
		if err := tiff.Encode(w, nrgba(img), &tiff.Options{Compression: tiff.Deflate}); err != nil {
			return fmt.Errorf("could not encode TIFF: %w", err)
		}
	case "qoi":
		if err := qoi.Encode(w, nrgba(img)); err != nil {
			return fmt.Errorf("could not encode QOI: %w", err)
		}
	case raster.FormatName:
		if err := raster.Encode(w, img); err != nil {
			return fmt.Errorf("could not encode snapshot: %w", err)
		}
	default:
		return fmt.Errorf("unsupported output format: %s", opts.Format)
	}
	return nil
}

// Save encodes img into path, replacing any existing file only once the
// encoding succeeded.
func Save(img image.Image, path string, opts Options) error {
	return WriteFile(path, func(w io.Writer) error {
		return Encode(w, img, opts)
	})
}

// WriteFile streams write into a temporary file next to path and renames it
// into place when write succeeds.
func WriteFile(path string, write func(io.Writer) error) (err error) {
	dir, name := filepath.Split(path)
	if dir == "" {
		dir = "."
	}

	outFile, err := os.CreateTemp(dir, "."+name+".*")
	if err != nil {
		return fmt.Errorf("could not create temporary destination for %q: %w", path, err)
	}
	canRename := false
	defer func() {
		if defErr := outFile.Sync(); defErr != nil && err == nil {
			err = fmt.Errorf("could not flush temporary destination for %q: %w", path, defErr)
		}
		if defErr := outFile.Close(); defErr != nil && err == nil {
			err = fmt.Errorf("could not close temporary destination for %q: %w", path, defErr)
		}

		if canRename && err == nil {
			if defErr := os.Rename(outFile.Name(), path); defErr != nil {
				err = fmt.Errorf("could not rename destination file %q: %w", path, defErr)
			}
		}
		if err != nil {
			os.Remove(outFile.Name())
		}
	}()

	if err = write(outFile); err != nil {
		return err
	}

	canRename = true
	return nil
}

// nrgba hands encoders a standard image type so they take their fast paths.
func nrgba(img image.Image) image.Image {
	if r, ok := img.(*raster.Raster); ok {
		return r.NRGBA()
	}
	return img
}

func flatten(img image.Image, bg color.Color) image.Image {
	if bg == nil {
		bg = color.Black
	}
	b := img.Bounds()
	dest := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dest, dest.Bounds(), image.NewUniform(bg), image.Point{}, draw.Src)
	draw.Draw(dest, dest.Bounds(), nrgba(img), b.Min, draw.Over)
	return dest
}

// pngBuffers lets batch workers reuse png encoder state.
type pngBuffers struct {
	sync.Pool
}

func (p *pngBuffers) Get() *png.EncoderBuffer {
	if buf, ok := p.Pool.Get().(*png.EncoderBuffer); ok {
		return buf
	}
	return new(png.EncoderBuffer)
}

func (p *pngBuffers) Put(buf *png.EncoderBuffer) {
	p.Pool.Put(buf)
}

var pngEncoder = png.Encoder{
	CompressionLevel: png.BestCompression,
	BufferPool:       &pngBuffers{},
}
