package harness

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/afero"
	"golang.org/x/sync/errgroup"
)

// Discover returns the scenario files under dir, sorted. A file argument is
// returned as is.
func Discover(fsys afero.Fs, dir string) ([]string, error) {
	info, err := fsys.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("scenario path: %w", err)
	}
	if !info.IsDir() {
		return []string{dir}, nil
	}

	var paths []string
	err = afero.Walk(fsys, dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		switch strings.ToLower(filepath.Ext(path)) {
		case ".yaml", ".yml":
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", dir, err)
	}
	sort.Strings(paths)
	return paths, nil
}

// Outcome pairs a scenario file with its result. Err is set when the file
// could not be loaded or run.
type Outcome struct {
	Path   string
	Result *Result
	Err    error
}

// RunAll loads and runs every scenario in paths with at most parallel
// scenarios in flight. Outcomes are returned in the order of paths. Load and
// run failures are reported per outcome; the returned error is only set when
// ctx is cancelled.
func RunAll(ctx context.Context, fsys afero.Fs, paths []string, opts Options, parallel int) ([]Outcome, error) {
	if parallel < 1 {
		parallel = 1
	}
	// The render log is a single-connection database.
	if opts.Store != nil {
		parallel = 1
	}

	outcomes := make([]Outcome, len(paths))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(parallel)

	for i, path := range paths {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			outcomes[i] = runOne(gctx, fsys, path, opts)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return outcomes, nil
}

func runOne(ctx context.Context, fsys afero.Fs, path string, opts Options) Outcome {
	scenario, err := LoadScenario(fsys, path)
	if err != nil {
		return Outcome{Path: path, Err: err}
	}
	result, err := Run(ctx, scenario, opts)
	if err != nil {
		return Outcome{Path: path, Err: fmt.Errorf("%s: %w", path, err)}
	}
	return Outcome{Path: path, Result: result}
}
