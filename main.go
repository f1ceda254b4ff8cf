package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/alecthomas/kong"

	"pixelfudger/apply"
	"pixelfudger/batch"
	"pixelfudger/parallel"
	"pixelfudger/pixel"
)

type strategiesCmd struct{}

func (c *strategiesCmd) Run(kctx *kong.Context) error {
	return listStrategies(kctx.Stdout)
}

func listStrategies(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for _, s := range pixel.Strategies() {
		fmt.Fprintf(tw, "%s\t%s\n", s, s.Label())
	}
	return tw.Flush()
}

type cli struct {
	LogLevel  slog.Level `help:"Minimum level of logged messages (debug, info, warn, error)" default:"info"`
	LogFormat string     `help:"Log output format" enum:"text,json" default:"text"`

	Apply      apply.CLICmd  `cmd:"" help:"Fudge one colour channel of a picture, band by band"`
	Batch      batch.CLICmd  `cmd:"" help:"Fudge every picture of a folder, without pacing"`
	Strategies strategiesCmd `cmd:"" help:"List the available pixel strategies"`
}

// workers sizes the pool; only batch runs jobs on it, everything else gets
// the inline pool.
func (c *cli) workers(command string) int {
	if command == "batch" {
		return c.Batch.Workers
	}
	return 1
}

func newLogger(w io.Writer, format string, level slog.Level) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level}
	if format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var c cli
	kctx := kong.Parse(&c,
		kong.Name("pixelfudger"),
		kong.Description("Fudges a colour channel of pictures, one paced band of rows at a time."),
		kong.UsageOnError(),
		kong.BindTo(ctx, (*context.Context)(nil)),
	)

	slog.SetDefault(newLogger(os.Stderr, c.LogFormat, c.LogLevel))

	pool := parallel.Start(c.workers(kctx.Command()))
	defer pool.Cancel()

	kctx.FatalIfErrorf(kctx.Run(pool.Do, pool.Wait))
}
