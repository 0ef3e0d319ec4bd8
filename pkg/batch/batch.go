package batch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Sumatoshi-tech/rb2js/pkg/cache"
	"github.com/Sumatoshi-tech/rb2js/pkg/options"
)

// ErrFailed is returned when at least one file failed to convert.
var ErrFailed = errors.New("batch conversion failed")

const (
	defaultExtension = ".js"
	dirPerm          = 0o750
	filePerm         = 0o644
)

// Converter turns one Ruby source into JavaScript. transpile.Transpiler
// satisfies it.
type Converter interface {
	ConvertSource(ctx context.Context, name string, src []byte) (string, error)
	Options() options.Options
}

// Config controls a run.
type Config struct {
	// OutDir mirrors the input tree with converted files. Empty keeps the
	// output in the results only.
	OutDir string

	// Extension replaces the source extension in OutDir.
	Extension string

	// MaxFileSize skips larger files. Zero means no limit.
	MaxFileSize uint64

	// Workers bounds parallel conversions. Zero uses one per CPU.
	Workers int

	// FailFast stops starting new files after the first failure.
	FailFast bool
}

// Result is the outcome for one file.
type Result struct {
	Err      error
	File     File
	Output   string
	Duration time.Duration
	Cached   bool
	// Done is false for files cancelled before they started.
	Done bool
}

// Runner converts files with a shared converter and cache.
type Runner struct {
	converter Converter
	cache     *cache.Cache
	logger    *slog.Logger
	cfg       Config
}

// NewRunner creates a runner. outputs is optional.
func NewRunner(converter Converter, outputs *cache.Cache, logger *slog.Logger, cfg Config) *Runner {
	if cfg.Workers <= 0 {
		cfg.Workers = runtime.NumCPU()
	}

	if cfg.Extension == "" {
		cfg.Extension = defaultExtension
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &Runner{converter: converter, cache: outputs, logger: logger, cfg: cfg}
}

// Run converts every Ruby file under root. Results keep discovery order.
// With FailFast the first failure cancels files not yet started; files
// already converting finish. The returned error wraps ErrFailed when any
// file failed and carries the first failure.
func (runner *Runner) Run(ctx context.Context, root string) (*Summary, error) {
	start := time.Now()

	files, skipped, err := Discover(root, runner.cfg.MaxFileSize)
	if err != nil {
		return nil, err
	}

	results := make([]Result, len(files))
	for idx, file := range files {
		results[idx].File = file
	}

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(runner.cfg.Workers)

	for idx, file := range files {
		if groupCtx.Err() != nil {
			break
		}

		group.Go(func() error {
			if groupCtx.Err() != nil {
				return nil
			}

			results[idx] = runner.convertFile(ctx, file)
			if results[idx].Err != nil && runner.cfg.FailFast {
				return results[idx].Err
			}

			return nil
		})
	}

	waitErr := group.Wait()

	summary := newSummary(skipped, results, time.Since(start))

	if ctx.Err() != nil {
		return summary, fmt.Errorf("batch cancelled: %w", ctx.Err())
	}

	if first := summary.FirstError(); first != nil {
		return summary, fmt.Errorf("%w: %d of %d files: %w", ErrFailed, summary.Failed, len(files), first)
	}

	if waitErr != nil {
		return summary, fmt.Errorf("%w: %w", ErrFailed, waitErr)
	}

	return summary, nil
}

func (runner *Runner) convertFile(ctx context.Context, file File) Result {
	start := time.Now()
	result := Result{File: file, Done: true}

	src, err := os.ReadFile(file.Path)
	if err != nil {
		result.Err = fmt.Errorf("read %s: %w", file.Rel, err)

		return result
	}

	convert := func() (string, error) {
		return runner.converter.ConvertSource(ctx, file.Rel, src)
	}

	if runner.cache != nil {
		key := cache.NewKey(runner.converter.Options().Fingerprint(), src)
		result.Output, result.Cached, result.Err = runner.cache.GetOrCompute(ctx, key, convert)
	} else {
		result.Output, result.Err = convert()
	}

	if result.Err == nil && runner.cfg.OutDir != "" {
		result.Err = runner.write(file, result.Output)
	}

	result.Duration = time.Since(start)

	if result.Err != nil {
		runner.logger.DebugContext(ctx, "file failed", "file", file.Rel, "error", result.Err)
	} else {
		runner.logger.DebugContext(ctx, "file converted", "file", file.Rel, "cached", result.Cached,
			"duration", result.Duration)
	}

	return result
}

// OutputPath returns where file is written under OutDir.
func (runner *Runner) OutputPath(file File) string {
	rel := strings.TrimSuffix(file.Rel, filepath.Ext(file.Rel)) + runner.cfg.Extension

	return filepath.Join(runner.cfg.OutDir, rel)
}

func (runner *Runner) write(file File, output string) error {
	path := runner.OutputPath(file)

	err := os.MkdirAll(filepath.Dir(path), dirPerm)
	if err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	err = os.WriteFile(path, []byte(output), filePerm)
	if err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}

	return nil
}
