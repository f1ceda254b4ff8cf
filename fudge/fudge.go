// Package fudge applies a pixel strategy to a raster band by band, pacing the
// bands so that the whole transformation animates over a fixed duration.
//
// A Transformer owns one raster. While a run is in progress the raster is
// claimed and any further run on it, from this or any other Transformer, is
// rejected with ErrBusy; the raster
// must only be read from inside the Publish callback, which is invoked once
// per band after every row of that band has been rewritten.
package fudge

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"pixelfudger/pixel"
	"pixelfudger/raster"
)

var (
	ErrInvalidBuffer  = errors.New("invalid raster buffer")
	ErrInvalidOptions = errors.New("invalid pacing options")
	ErrInvalidJob     = errors.New("invalid transform job")
	ErrBusy           = errors.New("transform already in progress")
)

const (
	DefaultDuration      = 2000 * time.Millisecond
	DefaultFrameInterval = 32 * time.Millisecond
)

// Pacing presets, named after the tools they come from.
const (
	PresetFudger = "fudger"
	PresetStrip  = "strip"
)

var presets = map[string]struct {
	duration, interval time.Duration
}{
	PresetFudger: {DefaultDuration, DefaultFrameInterval},
	PresetStrip:  {1000 * time.Millisecond, 16 * time.Millisecond},
}

// PresetPacing returns the total duration and frame interval of a preset.
func PresetPacing(name string) (duration, interval time.Duration, err error) {
	p, ok := presets[name]
	if !ok {
		return 0, 0, fmt.Errorf("unknown pacing preset %q", name)
	}
	return p.duration, p.interval, nil
}

type Options struct {
	// Duration is the wall-clock time the whole raster should take.
	// Zero means DefaultDuration.
	Duration time.Duration
	// FrameInterval is the minimum time between two band publications.
	// Zero means DefaultFrameInterval.
	FrameInterval time.Duration
	// Unpaced processes the raster as a single band without sleeping.
	Unpaced bool

	// Publish receives every completed band, in order, on the worker
	// goroutine. The next band does not start before Publish returns.
	Publish func(Band)
	// Finalize runs exactly once at the end of every accepted run.
	Finalize func()

	Logger *slog.Logger
}

func (o Options) pacing() (duration, interval time.Duration, err error) {
	duration, interval = o.Duration, o.FrameInterval
	if duration < 0 || interval < 0 {
		return 0, 0, fmt.Errorf("%w: duration %v, frame interval %v", ErrInvalidOptions, duration, interval)
	}
	if duration == 0 {
		duration = DefaultDuration
	}
	if interval == 0 {
		interval = DefaultFrameInterval
	}
	return duration, interval, nil
}

// Job selects what a run does to every pixel.
type Job struct {
	Strategy pixel.Strategy
	Channel  pixel.Channel
}

func (j Job) validate() error {
	if !j.Strategy.Valid() || !j.Channel.Valid() {
		return fmt.Errorf("%w: %s on %s", ErrInvalidJob, j.Strategy, j.Channel)
	}
	return nil
}

// Band is a group of consecutive rows [Start, End) that has been fully
// transformed and is ready to be displayed.
type Band struct {
	Index  int
	Start  int
	End    int
	Raster *raster.Raster
}

// Pix returns the pixels of the band, sharing storage with the raster.
func (b Band) Pix() []pixel.Pixel {
	return b.Raster.Rows(b.Start, b.End)
}

type Stats struct {
	Bands   int
	Rows    int
	Slept   time.Duration
	Elapsed time.Duration
}

// Result is delivered once by a run started with Start.
type Result struct {
	Stats Stats
	Err   error
}

// FrameCount is the number of frames needed to fill duration at one frame
// per interval, rounded up.
func FrameCount(duration, interval time.Duration) int {
	if interval <= 0 {
		return 1
	}
	n := int(duration / interval)
	if duration%interval != 0 {
		n++
	}
	return max(n, 1)
}

// RowsPerFrame spreads height rows over the given number of frames, rounded up.
func RowsPerFrame(height, frames int) int {
	if frames < 1 {
		frames = 1
	}
	return max((height+frames-1)/frames, 1)
}
