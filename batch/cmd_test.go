package batch

import (
	"context"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"pixelfudger/apply"
	"pixelfudger/parallel"
	"pixelfudger/pixel"
)

func writePNG(t *testing.T, path string, c color.NRGBA) {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, 3, 2))
	for y := range 2 {
		for x := range 3 {
			img.SetNRGBA(x, y, c)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatal(err)
	}
}

func readPNG(t *testing.T, path string) image.Image {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	img, err := png.Decode(f)
	if err != nil {
		t.Fatal(err)
	}
	return img
}

func newCmd(t *testing.T, scan string) *CLICmd {
	t.Helper()
	c := &CLICmd{
		Scan: scan,
		Dest: "out",
		Params: apply.Params{
			Channel:    pixel.Blue,
			Strategy:   pixel.DiscardChannel,
			Format:     "same",
			Background: "#000000",
		},
	}
	if err := c.Validate(nil); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	return c
}

func TestRun(t *testing.T) {
	for _, workers := range []int{1, 4} {
		scan := t.TempDir()
		writePNG(t, filepath.Join(scan, "a.png"), color.NRGBA{R: 1, G: 2, B: 3, A: 255})
		writePNG(t, filepath.Join(scan, "b.png"), color.NRGBA{R: 9, G: 8, B: 7, A: 128})
		if err := os.Mkdir(filepath.Join(scan, "sub"), 0o755); err != nil {
			t.Fatal(err)
		}

		c := newCmd(t, scan)
		if c.Dest != filepath.Join(scan, "out") {
			t.Fatalf("dest = %q", c.Dest)
		}

		pool := parallel.Start(workers)
		if err := c.Run(context.Background(), pool.Do, pool.Wait); err != nil {
			t.Fatalf("Run with %d workers: %v", workers, err)
		}

		got := color.NRGBAModel.Convert(readPNG(t, filepath.Join(scan, "out", "a.png")).At(2, 1)).(color.NRGBA)
		if want := (color.NRGBA{R: 1, G: 2, B: 0, A: 255}); got != want {
			t.Errorf("a.png pixel = %v, want %v", got, want)
		}
		got = color.NRGBAModel.Convert(readPNG(t, filepath.Join(scan, "out", "b.png")).At(0, 0)).(color.NRGBA)
		if want := (color.NRGBA{R: 9, G: 8, B: 0, A: 128}); got != want {
			t.Errorf("b.png pixel = %v, want %v", got, want)
		}
	}
}

func TestRunCountsFailures(t *testing.T) {
	scan := t.TempDir()
	writePNG(t, filepath.Join(scan, "ok.png"), color.NRGBA{R: 1, G: 2, B: 3, A: 255})
	if err := os.WriteFile(filepath.Join(scan, "notes.txt"), []byte("not a picture"), 0o644); err != nil {
		t.Fatal(err)
	}

	c := newCmd(t, scan)
	pool := parallel.Start(2)
	if err := c.Run(context.Background(), pool.Do, pool.Wait); err == nil {
		t.Fatal("expected an error for the undecodable file")
	}
	if pool.Failed() != 1 {
		t.Errorf("failed = %d, want 1", pool.Failed())
	}
	if _, err := os.Stat(filepath.Join(scan, "out", "ok.png")); err != nil {
		t.Errorf("good picture not saved: %v", err)
	}
}

func TestValidate(t *testing.T) {
	file := filepath.Join(t.TempDir(), "file.png")
	writePNG(t, file, color.NRGBA{A: 255})

	for name, c := range map[string]*CLICmd{
		"missing scan":   {Scan: filepath.Join(t.TempDir(), "nope"), Params: apply.Params{Background: "#000"}},
		"scan is a file": {Scan: file, Params: apply.Params{Background: "#000"}},
		"workers":        {Scan: t.TempDir(), Workers: -1, Params: apply.Params{Background: "#000"}},
		"background":     {Scan: t.TempDir(), Params: apply.Params{Background: "black"}},
	} {
		if err := c.Validate(nil); err == nil {
			t.Errorf("%s: Validate succeeded", name)
		}
	}

	abs := t.TempDir()
	c := &CLICmd{Scan: t.TempDir(), Dest: abs, Params: apply.Params{Background: "#000"}}
	if err := c.Validate(nil); err != nil {
		t.Fatal(err)
	}
	if c.Dest != abs {
		t.Errorf("absolute dest rewritten to %q", c.Dest)
	}
}
