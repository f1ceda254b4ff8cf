// Package load decodes pictures into rasters, sampling large pictures down to
// fit display bounds.
package load

import (
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"log/slog"
	"os"

	_ "github.com/xfmoulet/qoi"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/vp8l"
	_ "golang.org/x/image/webp"

	"pixelfudger/raster"
)

// Bounds limits the size of a loaded picture. Zero leaves a dimension
// unbounded.
type Bounds struct {
	MaxWidth  int
	MaxHeight int
}

// SampleSize returns the smallest power of two by which width and height must
// be divided to fit the bounds.
func (b Bounds) SampleSize(width, height int) int {
	sample := 1
	for (b.MaxWidth > 0 && width > b.MaxWidth*sample) || (b.MaxHeight > 0 && height > b.MaxHeight*sample) {
		sample *= 2
	}
	return sample
}

// File decodes the picture at path. It returns the raster and the name of the
// format it was decoded from.
func File(logger *slog.Logger, path string, bounds Bounds) (*raster.Raster, string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, "", fmt.Errorf("could not open picture %q: %w", path, err)
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil {
			logger.Error("could not close picture", "error", closeErr)
		}
	}()

	r, format, err := Decode(logger, f, bounds)
	if err != nil {
		return nil, "", fmt.Errorf("could not load picture %q: %w", path, err)
	}
	return r, format, nil
}

func Decode(logger *slog.Logger, rd io.Reader, bounds Bounds) (*raster.Raster, string, error) {
	img, format, err := image.Decode(rd)
	if err != nil {
		return nil, "", fmt.Errorf("could not decode image: %w", err)
	}

	size := img.Bounds()
	if size.Empty() {
		return nil, format, fmt.Errorf("empty %s image", format)
	}

	sample := bounds.SampleSize(size.Dx(), size.Dy())
	if sample == 1 {
		logger.Info("loaded", "format", format, "width", size.Dx(), "height", size.Dy())
		if r, ok := img.(*raster.Raster); ok {
			return r, format, nil
		}
		return raster.FromImage(img), format, nil
	}

	dest := image.NewNRGBA(image.Rect(0, 0, max(size.Dx()/sample, 1), max(size.Dy()/sample, 1)))
	logger.Info("loaded", "format", format, "width", size.Dx(), "height", size.Dy(),
		"sample", sample, "scaledWidth", dest.Rect.Dx(), "scaledHeight", dest.Rect.Dy())
	draw.CatmullRom.Scale(dest, dest.Bounds(), img, size, draw.Src, nil)

	return raster.FromImage(dest), format, nil
}
