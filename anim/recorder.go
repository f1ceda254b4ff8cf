// Package anim records the published states of a paced transform as an
// animated PNG.
package anim

import (
	"fmt"
	"image"
	"io"
	"sync"
	"time"

	"github.com/kettek/apng"

	"pixelfudger/export"
	"pixelfudger/fudge"
	"pixelfudger/raster"
)

// Recorder is a display that keeps a copy of every state it is shown.
type Recorder struct {
	frameDelay time.Duration
	// Hold is how long the final frame stays on screen before the
	// animation loops.
	Hold time.Duration

	mu     sync.Mutex
	frames []*image.NRGBA
}

func NewRecorder(frameDelay time.Duration) *Recorder {
	return &Recorder{
		frameDelay: frameDelay,
		Hold:       time.Second,
	}
}

// Show records the current state of r.
func (rec *Recorder) Show(r *raster.Raster) {
	img := r.NRGBA()
	rec.mu.Lock()
	rec.frames = append(rec.frames, img)
	rec.mu.Unlock()
}

// Capture records a published band. It has the signature of
// fudge.Options.Publish.
func (rec *Recorder) Capture(b fudge.Band) {
	rec.Show(b.Raster)
}

func (rec *Recorder) Len() int {
	rec.mu.Lock()
	defer rec.mu.Unlock()
	return len(rec.frames)
}

func (rec *Recorder) Encode(w io.Writer) error {
	rec.mu.Lock()
	defer rec.mu.Unlock()

	if len(rec.frames) == 0 {
		return fmt.Errorf("no frames recorded")
	}

	a := apng.APNG{Frames: make([]apng.Frame, len(rec.frames))}
	for i, img := range rec.frames {
		delay := rec.frameDelay
		if i == len(rec.frames)-1 {
			delay = max(delay, rec.Hold)
		}
		a.Frames[i] = apng.Frame{
			Image:            img,
			DelayNumerator:   uint16(min(delay.Milliseconds(), 0xFFFF)),
			DelayDenominator: 1000,
		}
	}

	if err := apng.Encode(w, a); err != nil {
		return fmt.Errorf("could not encode APNG: %w", err)
	}
	return nil
}

// Save writes the animation to path.
func (rec *Recorder) Save(path string) error {
	return export.WriteFile(path, rec.Encode)
}
