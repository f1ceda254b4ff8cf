package fudge

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"pixelfudger/pixel"
	"pixelfudger/raster"
)

type State int

const (
	Idle State = iota
	Transforming
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Transforming:
		return "transforming"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// claims maps every raster being transformed to the transformer running on
// it, so that two transformers sharing a raster exclude each other.
var claims = struct {
	sync.Mutex
	owners map[*raster.Raster]*Transformer
}{owners: make(map[*raster.Raster]*Transformer)}

func claim(r *raster.Raster, t *Transformer) bool {
	claims.Lock()
	defer claims.Unlock()
	if _, ok := claims.owners[r]; ok {
		return false
	}
	claims.owners[r] = t
	return true
}

func release(r *raster.Raster, t *Transformer) {
	claims.Lock()
	defer claims.Unlock()
	if claims.owners[r] == t {
		delete(claims.owners, r)
	}
}

func claimed(r *raster.Raster) bool {
	claims.Lock()
	defer claims.Unlock()
	_, ok := claims.owners[r]
	return ok
}

// Transformer runs paced transforms over a single raster, one at a time.
type Transformer struct {
	raster *raster.Raster
	opts   Options
	clock  clock

	mu    sync.Mutex
	state State
}

func New(r *raster.Raster, opts Options) *Transformer {
	return &Transformer{
		raster: r,
		opts:   opts,
		clock:  realClock{},
	}
}

func (t *Transformer) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Snapshot returns a copy of the raster. It fails with ErrBusy while any
// transformer is running on that raster.
func (t *Transformer) Snapshot() (*raster.Raster, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state == Transforming || claimed(t.raster) {
		return nil, ErrBusy
	}
	if !t.raster.Valid() {
		return nil, ErrInvalidBuffer
	}
	return t.raster.Clone(), nil
}

// Run transforms the whole raster on the calling goroutine and returns once
// the last band has been published or ctx is done.
func (t *Transformer) Run(ctx context.Context, job Job) (Stats, error) {
	p, err := t.begin(job)
	if err != nil {
		return Stats{}, err
	}
	defer t.finish()

	return t.run(ctx, job, p)
}

// Start transforms the raster on a new goroutine. Rejections are reported
// synchronously; otherwise the returned channel yields one Result after the
// run has finished and the transformer is idle again.
func (t *Transformer) Start(ctx context.Context, job Job) (<-chan Result, error) {
	p, err := t.begin(job)
	if err != nil {
		return nil, err
	}

	done := make(chan Result, 1)
	go func() {
		var res Result
		defer func() {
			done <- res
			close(done)
		}()
		defer t.finish()

		res.Stats, res.Err = t.run(ctx, job, p)
	}()
	return done, nil
}

type plan struct {
	op           pixel.Operator
	interval     time.Duration
	rowsPerFrame int
	bands        int
}

// begin validates a run and moves the transformer from Idle to Transforming.
func (t *Transformer) begin(job Job) (plan, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.state == Transforming {
		return plan{}, ErrBusy
	}

	r := t.raster
	if !r.Valid() {
		if r == nil {
			return plan{}, fmt.Errorf("%w: no raster", ErrInvalidBuffer)
		}
		return plan{}, fmt.Errorf("%w: %dx%d with %d pixels", ErrInvalidBuffer, r.Width, r.Height, len(r.Pix))
	}
	if err := job.validate(); err != nil {
		return plan{}, err
	}
	duration, interval, err := t.opts.pacing()
	if err != nil {
		return plan{}, err
	}

	p := plan{
		op:           job.Strategy.Bind(job.Channel),
		interval:     interval,
		rowsPerFrame: RowsPerFrame(r.Height, FrameCount(duration, interval)),
	}
	if t.opts.Unpaced {
		p.rowsPerFrame = r.Height
	}
	p.bands = (r.Height + p.rowsPerFrame - 1) / p.rowsPerFrame

	if !claim(r, t) {
		return plan{}, fmt.Errorf("%w: raster is being transformed by another transformer", ErrBusy)
	}
	t.state = Transforming
	return p, nil
}

func (t *Transformer) finish() {
	t.mu.Lock()
	release(t.raster, t)
	t.state = Idle
	t.mu.Unlock()

	if t.opts.Finalize != nil {
		t.opts.Finalize()
	}
}

func (t *Transformer) run(ctx context.Context, job Job, p plan) (Stats, error) {
	r := t.raster
	logger := t.logger().With("strategy", job.Strategy, "channel", job.Channel)
	logger.Info("transforming", "width", r.Width, "height", r.Height,
		"bands", p.bands, "rowsPerBand", p.rowsPerFrame, "paced", !t.opts.Unpaced)

	var stats Stats
	began := t.clock.Now()
	lastPublish := began
	bandStart := 0
	for row := 0; row < r.Height; row++ {
		// bands are either untouched or completed and published
		if row == bandStart {
			if err := ctx.Err(); err != nil {
				stats.Elapsed = t.clock.Now().Sub(began)
				logger.Info("transform cancelled", "bands", stats.Bands, "rows", stats.Rows)
				return stats, err
			}
		}

		p.op.Apply(r.Row(row))
		stats.Rows++

		if (row+1)%p.rowsPerFrame != 0 && row+1 != r.Height {
			continue
		}

		var sleepErr error
		if !t.opts.Unpaced {
			now := t.clock.Now()
			if wait := p.interval - now.Sub(lastPublish); wait > 0 {
				sleepErr = t.clock.Sleep(ctx, wait)
				stats.Slept += t.clock.Now().Sub(now)
			}
		}

		band := Band{Index: stats.Bands, Start: bandStart, End: row + 1, Raster: r}
		if t.opts.Publish != nil {
			t.opts.Publish(band)
		}
		lastPublish = t.clock.Now()
		stats.Bands++
		bandStart = row + 1
		logger.Debug("band published", "band", band.Index, "rows", band.End)

		if sleepErr != nil && bandStart < r.Height {
			stats.Elapsed = lastPublish.Sub(began)
			logger.Info("transform cancelled", "bands", stats.Bands, "rows", stats.Rows)
			return stats, sleepErr
		}
	}

	stats.Elapsed = t.clock.Now().Sub(began)
	logger.Info("transformed", "bands", stats.Bands, "elapsed", stats.Elapsed, "slept", stats.Slept)
	return stats, nil
}

func (t *Transformer) logger() *slog.Logger {
	if t.opts.Logger != nil {
		return t.opts.Logger
	}
	return slog.Default()
}
