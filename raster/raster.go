// Package raster holds row-major buffers of packed ARGB pixels.
package raster

import (
	"image"
	"image/color"
	"image/draw"

	"pixelfudger/pixel"
)

// Raster is a Width x Height buffer of non-premultiplied packed pixels. The
// pixel at (x, y) is Pix[y*Width+x].
type Raster struct {
	Width  int
	Height int
	Pix    []pixel.Pixel
}

var _ draw.Image = &Raster{}

func New(width, height int) *Raster {
	return &Raster{
		Width:  width,
		Height: height,
		Pix:    make([]pixel.Pixel, width*height),
	}
}

// Valid reports whether the raster has a positive size backed by exactly
// Width*Height pixels.
func (r *Raster) Valid() bool {
	return r != nil && r.Width > 0 && r.Height > 0 && len(r.Pix) == r.Width*r.Height
}

// Row returns the pixels of row y, sharing storage with the raster.
func (r *Raster) Row(y int) []pixel.Pixel {
	return r.Pix[y*r.Width : (y+1)*r.Width]
}

// Rows returns the pixels of rows [start, end), sharing storage with the raster.
func (r *Raster) Rows(start, end int) []pixel.Pixel {
	return r.Pix[start*r.Width : end*r.Width]
}

func (r *Raster) Clone() *Raster {
	c := &Raster{Width: r.Width, Height: r.Height, Pix: make([]pixel.Pixel, len(r.Pix))}
	copy(c.Pix, r.Pix)
	return c
}

func (r *Raster) ColorModel() color.Model {
	return color.NRGBAModel
}

func (r *Raster) Bounds() image.Rectangle {
	return image.Rect(0, 0, r.Width, r.Height)
}

func (r *Raster) At(x, y int) color.Color {
	if !(image.Point{x, y}.In(r.Bounds())) {
		return color.NRGBA{}
	}
	a, red, g, b := r.Pix[y*r.Width+x].Components()
	return color.NRGBA{R: red, G: g, B: b, A: a}
}

func (r *Raster) Set(x, y int, c color.Color) {
	if !(image.Point{x, y}.In(r.Bounds())) {
		return
	}
	n := color.NRGBAModel.Convert(c).(color.NRGBA)
	r.Pix[y*r.Width+x] = pixel.ARGB(n.A, n.R, n.G, n.B)
}

// NRGBA copies the raster into a new image.NRGBA.
func (r *Raster) NRGBA() *image.NRGBA {
	img := image.NewNRGBA(r.Bounds())
	for y := 0; y < r.Height; y++ {
		ofs := y * img.Stride
		for _, p := range r.Row(y) {
			img.Pix[ofs] = p.R()
			img.Pix[ofs+1] = p.G()
			img.Pix[ofs+2] = p.B()
			img.Pix[ofs+3] = p.A()
			ofs += 4
		}
	}
	return img
}

// FromImage copies any image into a new raster whose origin is the image's
// top-left corner.
func FromImage(img image.Image) *Raster {
	if r, ok := img.(*Raster); ok {
		return r.Clone()
	}

	b := img.Bounds()
	r := New(b.Dx(), b.Dy())
	if nrgba, ok := img.(*image.NRGBA); ok {
		for y := 0; y < r.Height; y++ {
			ofs := nrgba.PixOffset(b.Min.X, b.Min.Y+y)
			row := r.Row(y)
			for x := range row {
				row[x] = pixel.ARGB(nrgba.Pix[ofs+3], nrgba.Pix[ofs], nrgba.Pix[ofs+1], nrgba.Pix[ofs+2])
				ofs += 4
			}
		}
		return r
	}

	for y := 0; y < r.Height; y++ {
		row := r.Row(y)
		for x := range row {
			n := color.NRGBAModel.Convert(img.At(b.Min.X+x, b.Min.Y+y)).(color.NRGBA)
			row[x] = pixel.ARGB(n.A, n.R, n.G, n.B)
		}
	}
	return r
}
