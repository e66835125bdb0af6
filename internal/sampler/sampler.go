// Package sampler extracts a few representative values per column from the
// files of a folder, for cross-file data dictionary generation.
package sampler

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/KaramelBytes/datacatalog-cli/internal/loader"
	"github.com/KaramelBytes/datacatalog-cli/internal/logging"
	"github.com/KaramelBytes/datacatalog-cli/internal/metrics"
)

// Sampler samples files with shared load options. The zero value is usable.
type Sampler struct {
	Options loader.Options
	Log     *zap.Logger
	Metrics *metrics.Metrics
}

// SampleColumns returns the sample map of folder/filename.
//
// A missing file, an unsupported extension or a failing header-only load is
// returned as an error. A failure of the full load is logged and yields an
// empty, non-nil map with a nil error.
func (s *Sampler) SampleColumns(ctx context.Context, folder, filename string) (*SampleMap, error) {
	path := filepath.Join(folder, filename)
	log := logging.OrNop(s.Log).With(zap.String("file", path))

	if err := loader.Exists(path); err != nil {
		return nil, err
	}
	format, err := loader.FormatFromPath(path)
	if err != nil {
		return nil, err
	}

	started := time.Now()
	if _, err := loader.LoadHeader(ctx, path, s.Options); err != nil {
		s.Metrics.ObserveLoad(format, started, err)
		return nil, err
	}

	started = time.Now()
	t, err := loader.Load(ctx, path, s.Options)
	s.Metrics.ObserveLoad(format, started, err)
	if err != nil {
		var le *loader.LoadError
		if errors.As(err, &le) && ctx.Err() == nil {
			log.Warn("full load failed, returning empty samples", zap.String("format", string(format)), zap.Error(err))
			s.Metrics.ObserveAbsorbed(format)
			return &SampleMap{}, nil
		}
		return nil, err
	}
	m := Extract(t)
	log.Debug("sampled file", zap.Int("columns", m.Len()), zap.Int("rows", t.NumRows()))
	return m, nil
}

// FileSamples is the outcome for one file of a batch.
type FileSamples struct {
	File    string
	Samples *SampleMap
	Err     error
}

// SampleAll samples files concurrently, at most concurrency at a time
// (unbounded when <= 0). Results keep the order of files. Errors of individual
// files are combined; the other files still complete.
func (s *Sampler) SampleAll(ctx context.Context, folder string, files []string, concurrency int) ([]FileSamples, error) {
	results := make([]FileSamples, len(files))
	var g errgroup.Group
	if concurrency > 0 {
		g.SetLimit(concurrency)
	}
	for i, f := range files {
		g.Go(func() error {
			m, err := s.SampleColumns(ctx, folder, f)
			results[i] = FileSamples{File: f, Samples: m, Err: err}
			return nil
		})
	}
	_ = g.Wait()

	var errs error
	for _, r := range results {
		if r.Err != nil {
			errs = multierr.Append(errs, fmt.Errorf("%s: %w", r.File, r.Err))
		}
	}
	return results, errs
}

// Discover lists the loadable files directly inside folder, sorted by name.
func Discover(folder string) ([]string, error) {
	entries, err := os.ReadDir(folder)
	if err != nil {
		return nil, fmt.Errorf("read folder: %w", err)
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() || !loader.Supported(e.Name()) {
			continue
		}
		out = append(out, e.Name())
	}
	return out, nil
}
