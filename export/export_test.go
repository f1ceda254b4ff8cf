package export

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"pixelfudger/pixel"
	"pixelfudger/raster"
)

func sample() *raster.Raster {
	r := raster.New(4, 3)
	for i := range r.Pix {
		r.Pix[i] = pixel.ARGB(255, uint8(i*20), uint8(255-i*20), uint8(i))
	}
	r.Pix[5] = pixel.ARGB(0, 10, 20, 30)
	return r
}

func TestLosslessFormats(t *testing.T) {
	src := sample()
	for _, format := range []string{"png", "tiff", "qoi", raster.FormatName} {
		t.Run(format, func(t *testing.T) {
			var buf bytes.Buffer
			if err := Encode(&buf, src, Options{Format: format}); err != nil {
				t.Fatalf("Encode: %v", err)
			}
			img, got, err := image.Decode(&buf)
			if err != nil {
				t.Fatalf("Decode: %v", err)
			}
			if got != format {
				t.Errorf("decoded as %q", got)
			}
			back := raster.FromImage(img)
			for i, p := range src.Pix {
				// formats may normalise fully transparent pixels
				if p.A() == 0 && back.Pix[i].A() == 0 {
					continue
				}
				if back.Pix[i] != p {
					t.Fatalf("pixel %d = %s, want %s", i, back.Pix[i], p)
				}
			}
		})
	}
}

func TestConcurrentPNGEncodes(t *testing.T) {
	src := sample()
	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for range 8 {
		wg.Go(func() {
			var buf bytes.Buffer
			if err := Encode(&buf, src, Options{Format: "png"}); err != nil {
				errs <- err
				return
			}
			img, err := png.Decode(&buf)
			if err != nil {
				errs <- err
				return
			}
			got := raster.FromImage(img)
			for i, p := range got.Pix {
				if p != src.Pix[i] && (p.A() != 0 || src.Pix[i].A() != 0) {
					errs <- fmt.Errorf("pixel %d = %s, want %s", i, p, src.Pix[i])
					return
				}
			}
		})
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}

	if buf := (&pngBuffers{}).Get(); buf == nil {
		t.Error("empty pool returned nil buffer")
	}
}

func TestJPEGFlattensOntoBackground(t *testing.T) {
	r := raster.New(8, 8)
	var buf bytes.Buffer
	if err := Encode(&buf, r, Options{Format: "jpeg", Background: color.White}); err != nil {
		t.Fatalf("Encode: %v", err)
	}
	img, _, err := image.Decode(&buf)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	c := color.NRGBAModel.Convert(img.At(3, 3)).(color.NRGBA)
	if c.R < 250 || c.G < 250 || c.B < 250 || c.A != 255 {
		t.Errorf("transparent pixel exported as %v, want white", c)
	}
}

func TestBMPAndGIF(t *testing.T) {
	for _, format := range []string{"bmp", "gif"} {
		var buf bytes.Buffer
		if err := Encode(&buf, sample(), Options{Format: format}); err != nil {
			t.Fatalf("%s: Encode: %v", format, err)
		}
		cfg, got, err := image.DecodeConfig(&buf)
		if err != nil {
			t.Fatalf("%s: DecodeConfig: %v", format, err)
		}
		if got != format || cfg.Width != 4 || cfg.Height != 3 {
			t.Errorf("%s: decoded %s %dx%d", format, got, cfg.Width, cfg.Height)
		}
	}
}

func TestUnsupportedFormat(t *testing.T) {
	if err := Encode(&bytes.Buffer{}, sample(), Options{Format: "webp"}); err == nil {
		t.Error("webp encoding should be unsupported")
	}
}

func TestResolve(t *testing.T) {
	tests := []struct{ format, src, want string }{
		{"jpeg", "png", "jpeg"},
		{FormatSame, "png", "png"},
		{FormatSame, "qoi", "qoi"},
		{FormatSame, "webp", "png"},
	}
	for _, tt := range tests {
		if got := Resolve(tt.format, tt.src); got != tt.want {
			t.Errorf("Resolve(%q, %q) = %q, want %q", tt.format, tt.src, got, tt.want)
		}
	}
}

func TestNames(t *testing.T) {
	now := time.Date(2024, 1, 31, 23, 59, 58, 0, time.UTC)
	if got := TimestampName("PixelFudger", now, "jpeg"); got != "PixelFudger_20240131_235958.jpg" {
		t.Errorf("TimestampName = %q", got)
	}
	if got := ReplaceExt("holiday.photo.webp", "png"); got != "holiday.photo.png" {
		t.Errorf("ReplaceExt = %q", got)
	}
	if got := ReplaceExt("scan", "tiff"); got != "scan.tif" {
		t.Errorf("ReplaceExt = %q", got)
	}
}

func TestParseBackground(t *testing.T) {
	c, err := ParseBackground("#1a2b3c")
	if err != nil {
		t.Fatalf("ParseBackground: %v", err)
	}
	if c != (color.NRGBA{R: 0x1a, G: 0x2b, B: 0x3c, A: 0xff}) {
		t.Errorf("colour = %v", c)
	}
	for _, bad := range []string{"", "red", "#12345g"} {
		if _, err := ParseBackground(bad); err == nil {
			t.Errorf("ParseBackground(%q) succeeded", bad)
		}
	}
}

func TestSaveReplacesOnlyOnSuccess(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.png")
	if err := os.WriteFile(path, []byte("old"), 0o644); err != nil {
		t.Fatal(err)
	}

	errWrite := errors.New("disk on fire")
	err := WriteFile(path, func(w io.Writer) error {
		w.Write([]byte("partial"))
		return errWrite
	})
	if !errors.Is(err, errWrite) {
		t.Fatalf("WriteFile = %v", err)
	}
	if data, _ := os.ReadFile(path); string(data) != "old" {
		t.Errorf("failed write replaced the destination with %q", data)
	}

	if err = Save(sample(), path, Options{Format: "png"}); err != nil {
		t.Fatalf("Save: %v", err)
	}
	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if _, format, err := image.DecodeConfig(f); err != nil || format != "png" {
		t.Errorf("saved file decodes as %q, %v", format, err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Errorf("temporary files left behind: %v", entries)
	}
}
