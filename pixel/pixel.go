// Package pixel defines packed ARGB pixels, the colour channels they carry and
// the strategies that rewrite a single channel of a pixel.
package pixel

import "fmt"

// Pixel is a packed 32-bit colour: alpha, red, green and blue at bit
// offsets 24, 16, 8 and 0.
type Pixel uint32

const alphaShift = 24

func ARGB(a, r, g, b uint8) Pixel {
	return Pixel(a)<<alphaShift | Pixel(r)<<redShift | Pixel(g)<<greenShift | Pixel(b)<<blueShift
}

// At returns the 8 bit value stored at the given bit offset.
func (p Pixel) At(shift uint) uint8 {
	return uint8(p >> shift)
}

func (p Pixel) A() uint8 { return p.At(alphaShift) }
func (p Pixel) R() uint8 { return p.At(redShift) }
func (p Pixel) G() uint8 { return p.At(greenShift) }
func (p Pixel) B() uint8 { return p.At(blueShift) }

func (p Pixel) Components() (a, r, g, b uint8) {
	return p.A(), p.R(), p.G(), p.B()
}

func (p Pixel) String() string {
	return fmt.Sprintf("#%08X", uint32(p))
}
