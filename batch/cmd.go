// Package batch fudges every picture of a folder.
package batch

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"

	"github.com/alecthomas/kong"

	"pixelfudger/apply"
	"pixelfudger/export"
	"pixelfudger/fudge"
	"pixelfudger/parallel"
)

type CLICmd struct {
	Scan    string `help:"Source folder to scan" default:"."`
	Dest    string `help:"Destination folder for fudged pictures. Relative to scan dir if not absolute. If same as scan dir, will overwrite source files." default:"fudged"`
	Workers int    `help:"Pictures processed at once. Zero uses every CPU" default:"0"`

	apply.Params `embed:""`
}

func (c *CLICmd) Validate(kctx *kong.Context) error {
	scanDir, err := filepath.Abs(c.Scan)
	var info os.FileInfo
	if err == nil {
		if info, err = os.Stat(scanDir); err == nil && !info.IsDir() {
			err = fmt.Errorf("not a directory")
		}
	}
	if err != nil {
		return fmt.Errorf("invalid scan path %q: %w", c.Scan, err)
	}
	c.Scan = scanDir

	if !filepath.IsAbs(c.Dest) {
		c.Dest = filepath.Join(scanDir, c.Dest)
	}

	if c.Workers < 0 {
		return fmt.Errorf("invalid worker count: %d", c.Workers)
	}

	return c.Params.Validate()
}

// Run fudges every file of the scan folder without pacing. Files that cannot
// be decoded are logged and counted as errors.
func (c *CLICmd) Run(ctx context.Context, worker parallel.WorkerFunc, wait parallel.WaitFunc) error {
	if err := os.MkdirAll(c.Dest, 0o755); err != nil {
		return fmt.Errorf("unable to create destination folder %q: %w", c.Dest, err)
	}

	files, err := os.ReadDir(c.Scan)
	if err != nil {
		return fmt.Errorf("unable to read folder %q: %w", c.Scan, err)
	}

	var processedCount atomic.Uint64
	for _, file := range files {
		if file.IsDir() {
			continue
		}

		worker(func(fileName string) func() error {
			return func() error {
				filePath := filepath.Join(c.Scan, fileName)
				logger := slog.Default().With("file", filePath)

				task := apply.Task{
					Input:  filePath,
					Params: c.Params,
					Pacing: fudge.Options{Unpaced: true},
					Output: func(srcFormat string) string {
						return filepath.Join(c.Dest, export.ReplaceExt(fileName, export.Resolve(c.Format, srcFormat)))
					},
				}
				dest, err := task.Process(ctx, logger)
				if err != nil {
					logger.Error("could not fudge picture", "error", err)
					return err
				}

				logger.Debug("saved", "to", dest)
				processedCount.Add(1)
				return nil
			}
		}(file.Name()))
	}

	err = wait(true)

	processed := processedCount.Load()
	slog.Info("stats", "processed", processed, "dest", c.Dest)

	return err
}
