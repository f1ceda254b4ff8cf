// Package apply implements the commands that load a picture, fudge one of its
// colour channels band by band and save the result.
package apply

import (
	"context"
	"fmt"
	"log/slog"

	"pixelfudger/anim"
	"pixelfudger/export"
	"pixelfudger/fudge"
	"pixelfudger/load"
)

// Task fudges a single picture.
type Task struct {
	Input  string
	Params Params
	// Pacing carries the durations. Process sets Publish and wraps Finalize.
	Pacing fudge.Options
	// Output names the destination once the source format is known.
	Output func(srcFormat string) string
	// Recorder, when set, is shown the loaded picture and every band.
	Recorder *anim.Recorder
}

// Process runs the task and returns the path it saved to.
func (t Task) Process(ctx context.Context, logger *slog.Logger) (string, error) {
	src, srcFormat, err := load.File(logger, t.Input, t.Params.Bounds())
	if err != nil {
		return "", err
	}

	opts := t.Pacing
	opts.Logger = logger
	opts.Publish = func(b fudge.Band) {
		logger.Debug("progress", "percent", b.End*100/b.Raster.Height)
		if t.Recorder != nil {
			t.Recorder.Capture(b)
		}
	}
	opts.Finalize = func() {
		logger.Info("ready for the next run", "strategy", t.Params.Strategy, "channel", t.Params.Channel)
		if t.Pacing.Finalize != nil {
			t.Pacing.Finalize()
		}
	}
	if t.Recorder != nil {
		t.Recorder.Show(src)
	}

	if _, err = fudge.New(src, opts).Run(ctx, t.Params.Job()); err != nil {
		return "", fmt.Errorf("could not fudge %q: %w", t.Input, err)
	}

	format := export.Resolve(t.Params.Format, srcFormat)
	dest := t.Output(srcFormat)
	if err = export.Save(src, dest, export.Options{Format: format, Background: t.Params.BackgroundColor}); err != nil {
		return "", fmt.Errorf("could not save %q: %w", dest, err)
	}
	return dest, nil
}
