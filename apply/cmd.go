package apply

import (
	"context"
	"fmt"
	"image/color"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/alecthomas/kong"

	"pixelfudger/anim"
	"pixelfudger/export"
	"pixelfudger/fudge"
	"pixelfudger/load"
	"pixelfudger/pixel"
)

// FilePrefix starts the names of pictures saved without an explicit output.
const FilePrefix = "PixelFudger"

// Params are shared by every command that fudges pictures.
type Params struct {
	Channel    pixel.Channel  `help:"Colour channel to fudge (red, green, blue)" required:""`
	Strategy   pixel.Strategy `help:"Pixel strategy (discard, discard-alpha, level, invert)" default:"discard"`
	MaxWidth   int            `help:"Display width. Wider pictures are sampled down by powers of two" group:"load"`
	MaxHeight  int            `help:"Display height. Taller pictures are sampled down by powers of two" group:"load"`
	Format     string         `help:"Output format. 'same' keeps the input format when it can be written" enum:"same,png,jpeg,gif,bmp,tiff,qoi,argbz" default:"jpeg" group:"export"`
	Background string         `help:"Colour transparent pixels are flattened onto for JPEG and GIF output" default:"#000000" group:"export"`

	BackgroundColor color.Color `kong:"-"`
}

// Validate checks the limits and parses the background colour.
func (p *Params) Validate() error {
	if p.MaxWidth < 0 {
		return fmt.Errorf("invalid display width: %d", p.MaxWidth)
	}
	if p.MaxHeight < 0 {
		return fmt.Errorf("invalid display height: %d", p.MaxHeight)
	}

	var err error
	if p.BackgroundColor, err = export.ParseBackground(p.Background); err != nil {
		return err
	}
	return nil
}

func (p *Params) Job() fudge.Job {
	return fudge.Job{Strategy: p.Strategy, Channel: p.Channel}
}

func (p *Params) Bounds() load.Bounds {
	return load.Bounds{MaxWidth: p.MaxWidth, MaxHeight: p.MaxHeight}
}

type CLICmd struct {
	Input     string        `arg:"" help:"Picture to fudge" type:"existingfile"`
	Output    string        `help:"Destination file. Defaults to PixelFudger_<timestamp> in the destination folder" type:"path"`
	Dest      string        `help:"Destination folder when no output file is given" default:"." type:"path"`
	Preset    string        `help:"Pacing preset: fudger (2s at 32ms) or strip (1s at 16ms)" enum:"fudger,strip" default:"fudger" group:"pacing"`
	Duration  time.Duration `help:"Total animation time, overrides the preset" group:"pacing"`
	Frame     time.Duration `help:"Time between two bands, overrides the preset" group:"pacing"`
	Animation string        `help:"Also record every published band into this animated PNG" type:"path"`

	Params `embed:""`
}

func (c *CLICmd) Validate(kctx *kong.Context) error {
	if c.Duration < 0 || c.Frame < 0 {
		return fmt.Errorf("invalid pacing: duration %v, frame %v", c.Duration, c.Frame)
	}
	return c.Params.Validate()
}

// Pacing resolves the preset and its overrides.
func (c *CLICmd) Pacing() (duration, interval time.Duration, err error) {
	if duration, interval, err = fudge.PresetPacing(c.Preset); err != nil {
		return 0, 0, err
	}
	if c.Duration > 0 {
		duration = c.Duration
	}
	if c.Frame > 0 {
		interval = c.Frame
	}
	return duration, interval, nil
}

func (c *CLICmd) Run(ctx context.Context) error {
	logger := slog.Default().With("file", c.Input)

	duration, interval, err := c.Pacing()
	if err != nil {
		return err
	}

	var rec *anim.Recorder
	if c.Animation != "" {
		rec = anim.NewRecorder(interval)
	}

	task := Task{
		Input:  c.Input,
		Params: c.Params,
		Pacing: fudge.Options{Duration: duration, FrameInterval: interval},
		Output: func(srcFormat string) string {
			if c.Output != "" {
				return c.Output
			}
			format := export.Resolve(c.Format, srcFormat)
			return filepath.Join(c.Dest, export.TimestampName(FilePrefix, time.Now(), format))
		},
		Recorder: rec,
	}
	dest, err := task.Process(ctx, logger)
	if err != nil {
		return err
	}

	if rec != nil {
		if err = rec.Save(c.Animation); err != nil {
			return fmt.Errorf("could not save animation %q: %w", c.Animation, err)
		}
		logger.Info("saved animation", "to", c.Animation, "frames", rec.Len())
	}

	logger.Info("saved", "to", dest)
	return nil
}
